package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ledgerloft/treasuryd/internal/store"
)

// exportPageSize is how many activity rows are fetched per page during
// an export.
const exportPageSize = 500

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version       string    `json:"version"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	ActivityCount int       `json:"activity_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ExportJSONL writes the full activity feed as JSONL to w, newest
// first. Each page goes straight to the encoder, so a long feed never
// sits in memory whole. The header's count comes from the store's total
// on the first page.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	page, total, err := s.ListActivity(ctx, store.ActivityFilter{
		Limit: exportPageSize,
	})
	if err != nil {
		return fmt.Errorf("list activity: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:       "1",
		Type:          "header",
		Timestamp:     time.Now().UTC(),
		ActivityCount: total,
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	offset := 0
	for {
		for _, a := range page {
			if err := enc.Encode(record{Type: "activity", Data: a}); err != nil {
				return fmt.Errorf("encode activity %s: %w", a.ID, err)
			}
		}
		offset += len(page)
		if len(page) == 0 || offset >= total {
			return nil
		}

		page, _, err = s.ListActivity(ctx, store.ActivityFilter{
			Limit:  exportPageSize,
			Offset: offset,
		})
		if err != nil {
			return fmt.Errorf("list activity at offset %d: %w", offset, err)
		}
	}
}
