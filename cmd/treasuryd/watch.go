package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ledgerloft/treasuryd/internal/events"
	"github.com/ledgerloft/treasuryd/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Tail the live event stream",
	GroupID: "realtime",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		identity, _ := cmd.Flags().GetString("identity")
		natsURL, _ := cmd.Flags().GetString("nats")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if natsURL == "" {
			natsURL = os.Getenv("TREASURY_NATS_URL")
		}
		if natsURL == "" {
			natsURL = activeRemoteNATSURL()
		}
		if natsURL != "" {
			return watchNATS(ctx, natsURL)
		}

		if identity == "" {
			identity = activeRemoteIdentity()
		}
		if identity == "" {
			identity = "operator"
		}
		return watchSSE(ctx, identity)
	},
}

func init() {
	watchCmd.Flags().String("identity", "", "identity to connect to the stream as (default: remote profile, then \"operator\")")
	watchCmd.Flags().String("nats", "", "watch via NATS instead of the SSE endpoint")
}

// watchNATS tails the bus directly. Useful when the daemon relays to
// NATS and the operator box can reach it.
func watchNATS(ctx context.Context, natsURL string) error {
	sub, err := events.NewNATSSubscriber(natsURL)
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(events.SubjectWildcard)
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancel()

	fmt.Fprintf(os.Stderr, "watching %s on %s\n", events.SubjectWildcard, natsURL)

	for {
		select {
		case <-ctx.Done():
			return nil
		case payload, ok := <-ch:
			if !ok {
				return nil
			}
			printEvent(payload)
		}
	}
}

// watchSSE tails a running daemon's SSE endpoint.
func watchSSE(ctx context.Context, identity string) error {
	streamURL := strings.TrimRight(serverURL, "/") + "/v1/events/stream?identity=" + url.QueryEscape(identity)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return err
	}
	if token := resolveToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream request failed: %s", resp.Status)
	}

	fmt.Fprintf(os.Stderr, "watching %s as %s\n", streamURL, identity)

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if data, ok := strings.CutPrefix(line, "data:"); ok {
			printEvent([]byte(data))
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func printEvent(payload []byte) {
	var ev events.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		fmt.Printf("%s\n", payload)
		return
	}
	if jsonOutput {
		fmt.Printf("%s\n", payload)
		return
	}

	line := fmt.Sprintf("%s  %s %s",
		ui.RenderMuted(ev.At.Format("15:04:05")),
		ui.RenderAccent(string(ev.Topic)),
		ev.Action)
	if ev.EntityID != "" {
		line += " " + ev.EntityID
	}
	if ev.Actor != "" {
		line += " by " + ev.Actor
	}
	if ev.Amount != nil {
		line += " " + ev.Amount.String()
	}
	if ev.Message != "" {
		line += "  " + ui.RenderMuted(ev.Message)
	}
	fmt.Println(line)
}
