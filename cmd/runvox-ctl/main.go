// Command runvox-ctl drives a running runvox over its control socket.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"runvox/internal/ipc"
)

var socketPath string

var rootCmd = &cobra.Command{
	Use:   "runvox-ctl",
	Short: "Control a running runvox assistant",
	Long: `runvox-ctl sends commands to a running runvox over its unix control
socket. "trigger" starts a question turn as if the trigger phrase had been
heard; "stop" ends the assistant as if the stop phrase had been heard.`,
	SilenceUsage: true,
}

var triggerCmd = &cobra.Command{
	Use:     "trigger",
	Aliases: []string{"t"},
	Short:   "Start a question turn",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(ipc.CommandTrigger)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Say goodbye and stop the assistant",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(ipc.CommandStop)
	},
}

func send(cmd string) error {
	if err := ipc.SendCommand(socketPath, cmd); err != nil {
		return fmt.Errorf("send %q to %s: %w", cmd, socketPath, err)
	}
	fmt.Printf("Sent %s\n", cmd)
	return nil
}

func defaultSocket() string {
	if p := os.Getenv("CONTROL_SOCKET"); p != "" {
		return p
	}
	return ipc.DefaultSocket
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", defaultSocket(), "Control socket path")

	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(triggerCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
