package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"go.klb.dev/cbportal/internal/clip"
	"go.klb.dev/cbportal/internal/config"
	"go.klb.dev/cbportal/internal/crypto"
	"go.klb.dev/cbportal/internal/engine"
	"go.klb.dev/cbportal/internal/mqttbus"
	"go.klb.dev/cbportal/internal/tlsconf"
)

// session is a connected engine plus the resources it owns.
type session struct {
	cfg     *config.Config
	backend clip.Backend
	bus     *mqttbus.Bus
	eng     *engine.Engine
}

// openSession loads the config, asks for the password, connects to the
// broker and builds the engine. Config errors surface before anything else
// is touched. attempts bounds the initial connection (0 = until ctx ends).
// live drops retained replays so a stale message cannot overwrite the
// clipboard of a device that is already in use.
func openSession(ctx context.Context, v *viper.Viper, attempts int, live bool, interval time.Duration) (*session, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	opts, err := busOptions(cfg, attempts)
	if err != nil {
		return nil, err
	}
	opts.SkipRetained = live

	password, err := readPassword(v)
	if err != nil {
		return nil, err
	}
	key := crypto.DeriveKey(password, cfg.MQTT.Topic)

	var backend clip.Backend
	if v.GetBool("headless") {
		backend = clip.NewMemory()
	} else {
		backend = clip.New()
	}
	slog.Info("clipboard backend", "name", backend.Name())

	bus, err := mqttbus.Dial(ctx, opts)
	if err != nil {
		backend.Close()
		return nil, err
	}
	eng, err := engine.New(engine.Config{
		Transport: bus,
		Backend:   backend,
		Key:       key,
		Interval:  interval,
	})
	if err != nil {
		_ = bus.Close()
		backend.Close()
		return nil, err
	}
	return &session{cfg: cfg, backend: backend, bus: bus, eng: eng}, nil
}

func (s *session) Close() {
	if err := s.eng.Close(); err != nil {
		slog.Debug("close transport", "err", err)
	}
	s.backend.Close()
}

// busOptions maps the mqtt config section onto connection options.
func busOptions(cfg *config.Config, attempts int) (mqttbus.Options, error) {
	m := cfg.MQTT
	opts := mqttbus.Options{
		Host:            m.BrokerAddress,
		Port:            m.BrokerPort,
		Topic:           m.Topic,
		ClientID:        m.ClientID,
		Username:        m.Username,
		Password:        m.Password,
		QoS:             byte(m.QoS),
		ConnectAttempts: attempts,
	}
	if m.TLS {
		tc, err := tlsconf.Client(m.BrokerAddress, m.CAFile)
		if err != nil {
			return mqttbus.Options{}, fmt.Errorf("%w: %v", config.ErrConfig, err)
		}
		opts.TLS = tc
	}
	return opts, nil
}
