package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/cbportal/internal/engine"
	"go.klb.dev/cbportal/internal/ipc"
	"go.klb.dev/cbportal/internal/mqttbus"
	"go.klb.dev/cbportal/internal/statusrpc"
)

func newSyncCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Keep the clipboard in sync until interrupted",
		Long: `Polls the local clipboard and publishes every change, and applies every
change published by your other devices, until interrupted with Ctrl-C.

While running, "cbportal status" reports activity through a local socket
($XDG_RUNTIME_DIR/cbportal.sock, override with CBPORTAL_SOCKET).

Precedence (lowest → highest): defaults → config file → CBPORTAL_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runSync(v) },
	}

	f := cmd.Flags()
	f.Duration("interval", engine.DefaultInterval, "clipboard poll interval")
	f.Bool("headless", false, "use an in-memory clipboard instead of the system one")
	addBrokerFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runSync(v *viper.Viper) error {
	setupLogging(v)

	interval := v.GetDuration("interval")
	if interval <= 0 {
		return fmt.Errorf("--interval must be positive, got %s", interval)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("cbportal sync starting", "version", Version)

	// Reconnects forever; the broker may come and go while we run.
	s, err := openSession(ctx, v, 0, true, interval)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		slog.Error("sync failed", "err", err)
		return err
	}
	defer s.Close()

	m := s.cfg.MQTT
	info := statusrpc.Info{
		Version: Version,
		Broker:  mqttbus.BrokerURL(m.BrokerAddress, m.BrokerPort, m.TLS),
		Topic:   m.Topic,
	}

	// Status socket so "cbportal status" can talk to us.
	path := ipc.SocketPath()
	ln, err := ipc.Listen(path)
	if err != nil {
		slog.Warn("status socket unavailable", "err", err)
	} else {
		srv := statusrpc.NewServer(info, s.eng.Stats)
		go func() {
			if err := srv.Serve(ln); err != nil {
				slog.Debug("status server stopped", "err", err)
			}
		}()
		defer srv.Stop()
		slog.Info("status socket listening", "path", path)
	}

	return s.eng.Sync(ctx)
}
