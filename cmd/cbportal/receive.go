package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/cbportal/internal/engine"
)

func newReceiveCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Wait for clipboard content and apply it once",
		Long: `Subscribes to the configured topic and writes the first message that
decrypts with your password to the local clipboard, then exits. A retained
message on the broker is delivered immediately.

Exits without changing the clipboard when nothing arrives within --wait.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runReceive(v) },
	}

	f := cmd.Flags()
	f.Duration("wait", 5*time.Second, "how long to wait for a message")
	f.Int("connect-attempts", oneShotAttempts, "broker connection attempts before giving up (0 = forever)")
	addBrokerFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runReceive(v *viper.Viper) error {
	setupLogging(v)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wait := v.GetDuration("wait")
	if wait <= 0 {
		return fmt.Errorf("--wait must be positive, got %s", wait)
	}

	s, err := openSession(ctx, v, v.GetInt("connect-attempts"), false, engine.DefaultInterval)
	if err != nil {
		slog.Error("receive failed", "err", err)
		return err
	}
	defer s.Close()

	applied, err := s.eng.Receive(ctx, wait)
	switch {
	case errors.Is(err, context.Canceled):
		return nil
	case err != nil:
		slog.Error("receive failed", "err", err)
		return err
	case !applied:
		st := s.eng.Stats()
		if st.Rejected > 0 {
			fmt.Fprintf(os.Stderr, "Nothing applied within %s (%d message(s) failed to decrypt: wrong password?).\n", wait, st.Rejected)
		} else {
			fmt.Fprintf(os.Stderr, "Nothing received within %s.\n", wait)
		}
	}
	return nil
}
