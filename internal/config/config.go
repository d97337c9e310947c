// Package config loads the cbportal JSON config file through viper.
//
// File layout ($HOME/.cbportal_config.json by default):
//
//	{
//	  "mqtt": {
//	    "broker_address": "broker.hivemq.com",
//	    "broker_port": 1883,
//	    "topic": "maple-otter-quartz-42"
//	  }
//	}
//
// Optional mqtt keys: username, password, client_id, tls, ca_file, qos.
// Every key can be overridden with CBPORTAL_<KEY> env vars where dots become
// underscores (CBPORTAL_MQTT_TOPIC), and by command flags bound by the CLI.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// FileName is the config file name looked up in the home directory.
const FileName = ".cbportal_config.json"

// ErrConfig wraps every missing, unreadable, malformed or invalid config.
var ErrConfig = errors.New("config")

const (
	DefaultBroker = "broker.hivemq.com"
	DefaultPort   = 1883
	DefaultQoS    = 1
)

// Keys used with viper.
const (
	KeyBroker   = "mqtt.broker_address"
	KeyPort     = "mqtt.broker_port"
	KeyTopic    = "mqtt.topic"
	KeyUsername = "mqtt.username"
	KeyPassword = "mqtt.password"
	KeyClientID = "mqtt.client_id"
	KeyTLS      = "mqtt.tls"
	KeyCAFile   = "mqtt.ca_file"
	KeyQoS      = "mqtt.qos"
)

// MQTT holds the broker settings.
type MQTT struct {
	BrokerAddress string `mapstructure:"broker_address"`
	BrokerPort    int    `mapstructure:"broker_port"`
	Topic         string `mapstructure:"topic"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	ClientID      string `mapstructure:"client_id"`
	TLS           bool   `mapstructure:"tls"`
	CAFile        string `mapstructure:"ca_file"`
	QoS           int    `mapstructure:"qos"`
}

// Config is the whole file.
type Config struct {
	MQTT MQTT `mapstructure:"mqtt"`
}

// DefaultPath returns $HOME/.cbportal_config.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%w: locate home directory: %v", ErrConfig, err)
	}
	return filepath.Join(home, FileName), nil
}

// Prepare points v at path (DefaultPath when empty), registers defaults and
// the CBPORTAL env prefix. It does not read the file.
func Prepare(v *viper.Viper, path string) error {
	if err := prepareFile(v, path); err != nil {
		return err
	}
	v.SetEnvPrefix("CBPORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return nil
}

// prepareFile is Prepare without env overrides, for writing the file back.
func prepareFile(v *viper.Viper, path string) error {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return err
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault(KeyBroker, DefaultBroker)
	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyTopic, "")
	v.SetDefault(KeyUsername, "")
	v.SetDefault(KeyPassword, "")
	v.SetDefault(KeyClientID, "")
	v.SetDefault(KeyTLS, false)
	v.SetDefault(KeyCAFile, "")
	v.SetDefault(KeyQoS, DefaultQoS)
	return nil
}

// Load reads the file v was prepared with and validates the result.
// A missing file is an error: run "cbportal init" first.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s not found (run \"cbportal init\")", ErrConfig, v.ConfigFileUsed())
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrConfig, v.ConfigFileUsed(), err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrConfig, v.ConfigFileUsed(), err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that the config is usable.
func (c *Config) Validate() error {
	m := c.MQTT
	switch {
	case strings.TrimSpace(m.BrokerAddress) == "":
		return fmt.Errorf("%w: mqtt.broker_address is empty", ErrConfig)
	case m.BrokerPort <= 0 || m.BrokerPort > 65535:
		return fmt.Errorf("%w: mqtt.broker_port %d out of range", ErrConfig, m.BrokerPort)
	case m.Topic == "":
		return fmt.Errorf("%w: mqtt.topic is empty (run \"cbportal init\")", ErrConfig)
	case strings.ContainsAny(m.Topic, "+#\x00"):
		return fmt.Errorf("%w: mqtt.topic %q must not contain wildcards", ErrConfig, m.Topic)
	case m.QoS < 0 || m.QoS > 2:
		return fmt.Errorf("%w: mqtt.qos %d must be 0, 1 or 2", ErrConfig, m.QoS)
	case m.CAFile != "" && !m.TLS:
		return fmt.Errorf("%w: mqtt.ca_file is set but mqtt.tls is false", ErrConfig)
	}
	return nil
}
