package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var emitCmd = &cobra.Command{
	Use:     "emit <topic> <action>",
	Short:   "Emit an event through a running daemon",
	GroupID: "realtime",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		identity, _ := cmd.Flags().GetString("identity")
		entityID, _ := cmd.Flags().GetString("entity")
		actor, _ := cmd.Flags().GetString("actor")
		message, _ := cmd.Flags().GetString("message")
		amount, _ := cmd.Flags().GetString("amount")

		body := map[string]string{
			"topic":  args[0],
			"action": args[1],
		}
		if identity != "" {
			body["identity"] = identity
		}
		if entityID != "" {
			body["entity_id"] = entityID
		}
		if actor != "" {
			body["actor"] = actor
		}
		if message != "" {
			body["message"] = message
		}
		if amount != "" {
			body["amount"] = amount
		}

		if err := apiPost("/v1/events/emit", body, nil); err != nil {
			return err
		}
		fmt.Println("event accepted")
		return nil
	},
}

func init() {
	emitCmd.Flags().String("identity", "", "deliver only to this identity (default: broadcast)")
	emitCmd.Flags().String("entity", "", "entity id the event refers to")
	emitCmd.Flags().String("actor", "", "who made the change")
	emitCmd.Flags().String("message", "", "human-readable summary")
	emitCmd.Flags().String("amount", "", "monetary amount, e.g. 420.50")
}
