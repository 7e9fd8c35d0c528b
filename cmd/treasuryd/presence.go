package main

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ledgerloft/treasuryd/internal/ui"
)

var presenceCmd = &cobra.Command{
	Use:     "presence <identity>...",
	Short:   "Query presence for one or more identities",
	GroupID: "realtime",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Presence map[string]string `json:"presence"`
		}
		path := "/v1/presence?ids=" + url.QueryEscape(strings.Join(args, ","))
		if err := apiGet(path, &resp); err != nil {
			return err
		}

		if jsonOutput {
			printJSON(resp.Presence)
			return nil
		}

		ids := make([]string, 0, len(resp.Presence))
		for id := range resp.Presence {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "IDENTITY\tSTATUS")
		for _, id := range ids {
			fmt.Fprintf(w, "%s\t%s\n", id, ui.RenderStatus(resp.Presence[id]))
		}
		return w.Flush()
	},
}
