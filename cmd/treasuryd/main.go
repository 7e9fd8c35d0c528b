// Command treasuryd runs the realtime event and presence daemon for the
// treasury web app, plus small operator commands for poking at a
// running instance.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ledgerloft/treasuryd/internal/ui"
)

var (
	serverURL  string
	authToken  string
	jsonOutput bool
)

func defaultServerURL() string {
	if s := os.Getenv("TREASURY_SERVER_URL"); s != "" {
		return s
	}
	if u := activeRemoteURL(); u != "" {
		return u
	}
	return "http://localhost:8080"
}

var rootCmd = &cobra.Command{
	Use:   "treasuryd <command>",
	Short: "Realtime event and presence daemon for the treasury app",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL(), "base URL of a running treasuryd")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("TREASURY_AUTH_TOKEN"), "bearer token for authenticated endpoints")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "realtime", Title: "Realtime:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)
	cobra.EnableCommandSorting = false

	// Realtime
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(presenceCmd)
	rootCmd.AddCommand(emitCmd)
	rootCmd.AddCommand(activityCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(remoteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
