package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"go.klb.dev/cbportal/internal/config"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the config file and join or create a topic",
		Long: `Writes $HOME/.cbportal_config.json (or --config) with the default broker
and a topic. Pass --topic to join the topic of your other devices; without it a
new random topic is generated unless the file already has one.

Existing settings are kept. The password is never stored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			topic, _ := cmd.Flags().GetString("topic")
			return runInit(path, topic)
		},
	}

	cmd.Flags().String("topic", "", "join this topic instead of generating one")
	addConfigFlag(cmd)

	return cmd
}

func runInit(path, topic string) error {
	got, created, err := config.Init(path, topic)
	if err != nil {
		return err
	}
	if path == "" {
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	verb := "Updated"
	if created {
		verb = "Created"
	}
	fmt.Printf("%s %s\n", verb, path)
	fmt.Printf("Topic: %s\n", got)
	fmt.Println()
	fmt.Println("On your other devices run:")
	fmt.Printf("  cbportal init --topic %s\n", got)
	fmt.Println("and use the same password everywhere.")
	return nil
}
