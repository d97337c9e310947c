// cbportal: end-to-end encrypted clipboard sharing over MQTT.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "cbportal",
		Short: "Share your clipboard between devices over MQTT",
		Long: `cbportal mirrors the clipboard (text or a single image) between devices
through an MQTT topic. Content is encrypted end-to-end with a key derived from
a password you type on each device and the topic name.

Run "cbportal init" once per device to create the config file and pick a
topic, then "cbportal sync" on every device that should share a clipboard.

Config file: $HOME/.cbportal_config.json (override with --config).
Keys can be overridden with CBPORTAL_MQTT_<KEY> env vars or flags.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newSendCmd(),
		newReceiveCmd(),
		newSyncCmd(),
		newInitCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("cbportal %s\n", Version)
		},
	}
}
