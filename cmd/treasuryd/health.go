package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check a running treasuryd instance",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Status      string `json:"status"`
			Connections int    `json:"connections"`
		}
		if err := apiGet("/v1/health", &resp); err != nil {
			return err
		}
		if jsonOutput {
			printJSON(resp)
			return nil
		}
		fmt.Printf("status: %s\nconnections: %d\n", resp.Status, resp.Connections)
		return nil
	},
}
