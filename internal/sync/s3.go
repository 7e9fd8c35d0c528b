package sync

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Destination uploads activity snapshots to an S3-compatible bucket.
// Every export lands twice: under the stable configured key, which
// always holds the latest snapshot, and under a timestamped history key
// derived from it, so the bucket accumulates an audit trail of past
// exports.
type S3Destination struct {
	client *s3.Client
	bucket string
	key    string

	now func() time.Time // overridden in tests
}

// NewS3Destination creates an S3 destination. If endpoint is non-empty,
// path-style addressing is enabled (for MinIO and similar).
func NewS3Destination(ctx context.Context, bucket, key, region, endpoint string) (*S3Destination, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(cfg, s3opts...)
	return &S3Destination{
		client: client,
		bucket: bucket,
		key:    key,
		now:    time.Now,
	}, nil
}

// Write uploads data as the latest snapshot and as a dated history
// object.
func (d *S3Destination) Write(ctx context.Context, data []byte) error {
	exportedAt := d.now().UTC()
	for _, key := range []string{d.key, historyKey(d.key, exportedAt)} {
		if err := d.put(ctx, key, data, exportedAt); err != nil {
			return err
		}
	}
	return nil
}

func (d *S3Destination) put(ctx context.Context, key string, data []byte, exportedAt time.Time) error {
	contentType := "application/x-ndjson"
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
		Metadata: map[string]string{
			"exported-at": exportedAt.Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("s3 put object %s: %w", key, err)
	}
	return nil
}

// historyKey derives the dated object key for one export:
// "treasury/activity.jsonl" at noon on 2026-03-01 becomes
// "treasury/activity-20260301T120000Z.jsonl".
func historyKey(key string, t time.Time) string {
	stamp := t.UTC().Format("20060102T150405Z")
	ext := path.Ext(key)
	return strings.TrimSuffix(key, ext) + "-" + stamp + ext
}
