package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/cbportal/internal/config"
	"go.klb.dev/cbportal/internal/logging"
)

// brokerFlags maps config keys to the flags that override them.
var brokerFlags = map[string]string{
	config.KeyBroker: "broker",
	config.KeyPort:   "port",
	config.KeyTopic:  "topic",
}

// bindViper wires a command's flags into a viper instance pointed at the
// config file, with CBPORTAL_* env vars.
//
// Precedence (lowest → highest): defaults → config file → CBPORTAL_* env vars → flags
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	path, _ := cmd.Flags().GetString("config")
	if err := config.Prepare(v, path); err != nil {
		return err
	}
	for key, name := range brokerFlags {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding --%s: %w", name, err)
			}
		}
	}
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// addBrokerFlags adds the flags that override the mqtt section of the config.
func addBrokerFlags(cmd *cobra.Command) {
	cmd.Flags().String("broker", "", "MQTT broker address (overrides mqtt.broker_address)")
	cmd.Flags().Int("port", 0, "MQTT broker port (overrides mqtt.broker_port)")
	cmd.Flags().String("topic", "", "topic shared by your devices (overrides mqtt.topic)")
	cmd.Flags().String("password-file", "", "read the encryption password from this file instead of prompting")
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("verbose", "v", false, "debug logging")
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
	cmd.Flags().String("log-level", "", "log level: debug|info|warn|error (default: info, debug with --verbose)")
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (default $HOME/"+config.FileName+")")
}

// setupLogging reads logging flags from viper and configures slog.
func setupLogging(v *viper.Viper) {
	logging.Setup(logging.Options{
		Format:  logging.ParseFormat(v.GetString("log-format")),
		Level:   v.GetString("log-level"),
		Verbose: v.GetBool("verbose"),
	})
}
