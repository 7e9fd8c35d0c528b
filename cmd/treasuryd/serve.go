package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ledgerloft/treasuryd/internal/config"
	"github.com/ledgerloft/treasuryd/internal/events"
	"github.com/ledgerloft/treasuryd/internal/ingest"
	"github.com/ledgerloft/treasuryd/internal/realtime"
	"github.com/ledgerloft/treasuryd/internal/server"
	"github.com/ledgerloft/treasuryd/internal/store"
	"github.com/ledgerloft/treasuryd/internal/store/postgres"
	feedsync "github.com/ledgerloft/treasuryd/internal/sync"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the realtime daemon",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		slog.SetDefault(logger)

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		// Activity feed store.
		var st store.Store
		if cfg.DatabaseURL != "" {
			pg, err := postgres.New(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			st = pg
			logger.Info("activity feed enabled", "database", "postgres")
		} else {
			st = &store.NoopStore{}
			logger.Info("activity feed disabled (TREASURY_DATABASE_URL not set)")
		}

		// Event bus relay.
		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				st.Close()
				return err
			}
			publisher = pub
			logger.Info("bus relay enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("bus relay disabled (TREASURY_NATS_URL not set)")
		}

		registry := realtime.NewRegistry(cfg.AwayAfter)
		srv := server.New(registry, st, publisher, cfg.JWTSecret)

		sweeper := realtime.NewSweeper(registry, realtime.SweepConfig{
			DeadAfter: cfg.DeadAfter,
			Interval:  cfg.SweepInterval,
			OnChange:  srv.PresenceChanged,
		})
		sweeper.Start()

		httpServer := &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: srv.NewHTTPHandler(cfg.AuthToken),
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		// Redis ingest bridge.
		var bridge *ingest.Bridge
		var ingestCancel context.CancelFunc
		if cfg.RedisURL != "" {
			b, err := ingest.New(context.Background(), cfg.RedisURL, cfg.RedisChannel, srv.AcceptEvent)
			if err != nil {
				logger.Error("failed to start redis ingest", "err", err)
			} else {
				bridge = b
				var ingestCtx context.Context
				ingestCtx, ingestCancel = context.WithCancel(context.Background())
				go func() {
					if err := bridge.Run(ingestCtx); err != nil && ingestCtx.Err() == nil {
						logger.Error("redis ingest error", "err", err)
					}
				}()
				logger.Info("redis ingest started", "channel", cfg.RedisChannel)
			}
		}

		// Activity feed export scheduler.
		var scheduler *feedsync.Scheduler
		if cfg.SyncInterval > 0 && cfg.DatabaseURL != "" {
			var dests []feedsync.Destination

			if cfg.SyncS3Bucket != "" {
				s3Dest, err := feedsync.NewS3Destination(
					context.Background(),
					cfg.SyncS3Bucket,
					cfg.SyncS3Key,
					cfg.SyncS3Region,
					cfg.SyncS3Endpoint,
				)
				if err != nil {
					logger.Error("failed to create S3 sync destination", "err", err)
				} else {
					dests = append(dests, s3Dest)
					logger.Info("sync S3 destination enabled", "bucket", cfg.SyncS3Bucket, "key", cfg.SyncS3Key)
				}
			}

			if cfg.SyncGitRepo != "" {
				gitDest := feedsync.NewGitDestination(cfg.SyncGitRepo, cfg.SyncGitFile, cfg.SyncGitBranch)
				dests = append(dests, gitDest)
				logger.Info("sync git destination enabled", "repo", cfg.SyncGitRepo, "file", cfg.SyncGitFile)
			}

			if len(dests) > 0 {
				scheduler = feedsync.NewScheduler(st, dests, cfg.SyncInterval, logger)
				scheduler.Start()
				logger.Info("sync scheduler started", "interval", cfg.SyncInterval)
			}
		}

		logger.Info("treasuryd started",
			"http_addr", cfg.HTTPAddr,
			"away_after", cfg.AwayAfter,
			"dead_after", cfg.DeadAfter,
		)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		if ingestCancel != nil {
			ingestCancel()
			bridge.Close()
			logger.Info("redis ingest stopped")
		}

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("sync scheduler stopped")
		}

		sweeper.Stop()
		logger.Info("presence sweeper stopped")

		// Closing the registry tears down every live sink, which unwinds
		// the stream handlers before the HTTP server drains.
		registry.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}
