package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/cbportal/internal/engine"
)

// oneShotAttempts bounds broker connection attempts for send and receive.
const oneShotAttempts = 3

func newSendCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Publish the current clipboard once",
		Long: `Encrypts the current clipboard content (text, or an image as PNG) and
publishes it to the configured topic, then exits.

With --retain (the default) the broker keeps the message so a device that runs
"cbportal receive" later still gets it.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runSend(v) },
	}

	f := cmd.Flags()
	f.Bool("retain", true, "ask the broker to retain the message for late receivers")
	f.Int("connect-attempts", oneShotAttempts, "broker connection attempts before giving up (0 = forever)")
	addBrokerFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runSend(v *viper.Viper) error {
	setupLogging(v)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, v, v.GetInt("connect-attempts"), false, engine.DefaultInterval)
	if err != nil {
		slog.Error("send failed", "err", err)
		return err
	}
	defer s.Close()

	if err := s.eng.Send(ctx, v.GetBool("retain")); err != nil {
		if errors.Is(err, engine.ErrNothingToSend) {
			fmt.Fprintln(os.Stderr, "Clipboard is empty, nothing sent.")
			return nil
		}
		slog.Error("send failed", "err", err)
		return err
	}
	return nil
}
