package main

import (
	"fmt"
	"net/url"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ledgerloft/treasuryd/internal/store"
	"github.com/ledgerloft/treasuryd/internal/ui"
)

var activityCmd = &cobra.Command{
	Use:     "activity",
	Short:   "List the recent activity feed",
	GroupID: "realtime",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")
		actor, _ := cmd.Flags().GetString("actor")
		limit, _ := cmd.Flags().GetInt("limit")

		q := url.Values{}
		if topic != "" {
			q.Set("topic", topic)
		}
		if actor != "" {
			q.Set("actor", actor)
		}
		q.Set("limit", strconv.Itoa(limit))

		var resp struct {
			Activities []*store.Activity `json:"activities"`
			Total      int               `json:"total"`
		}
		if err := apiGet("/v1/activity?"+q.Encode(), &resp); err != nil {
			return err
		}

		if jsonOutput {
			printJSON(resp)
			return nil
		}

		if len(resp.Activities) == 0 {
			fmt.Println("no activity")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tTOPIC\tACTION\tACTOR\tAMOUNT\tMESSAGE")
		for _, a := range resp.Activities {
			amount := ""
			if a.Amount != nil {
				amount = a.Amount.String()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				ui.RenderMuted(a.CreatedAt.Format("2006-01-02 15:04:05")),
				a.Topic, a.Action, a.Actor, amount, a.Message)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\n%d of %d entries\n", len(resp.Activities), resp.Total)
		return nil
	},
}

func init() {
	activityCmd.Flags().String("topic", "", "filter by topic")
	activityCmd.Flags().String("actor", "", "filter by actor")
	activityCmd.Flags().Int("limit", 50, "maximum entries to fetch")
}
