package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cifan-festival/submission-service/internal/config"
	"github.com/cifan-festival/submission-service/internal/services/blob"
	mongoStore "github.com/cifan-festival/submission-service/internal/storage/mongo"
)

// OrphanSweeper removes submission blobs that no persisted application
// references. Orphans appear when the process dies between upload and
// document write, or when a compensating delete itself fails. The grace
// period keeps the sweeper from racing in-flight submissions.
type OrphanSweeper struct {
	blobs    *blob.Service
	store    *mongoStore.Mongo
	interval time.Duration
	grace    time.Duration
	logger   *slog.Logger
}

func NewOrphanSweeper(blobs *blob.Service, store *mongoStore.Mongo, interval, grace time.Duration) *OrphanSweeper {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	return &OrphanSweeper{
		blobs:    blobs,
		store:    store,
		interval: interval,
		grace:    grace,
		logger:   logger,
	}
}

func (sw *OrphanSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	sw.logger.Info("Orphan sweeper started",
		"interval", sw.interval.String(),
		"grace_period", sw.grace.String())

	// Run once immediately on startup
	sw.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			sw.logger.Info("Orphan sweeper shutting down")
			return
		case <-ticker.C:
			sw.sweep(ctx)
		}
	}
}

func (sw *OrphanSweeper) sweep(ctx context.Context) {
	startTime := time.Now()

	sw.logger.Info("Starting orphaned blob cleanup")

	objects, err := sw.blobs.ListSubmissionObjects(ctx, "")
	if err != nil {
		sw.logger.Error("Failed to list submission objects",
			"error", err.Error(),
			"duration_ms", time.Since(startTime).Milliseconds())
		return
	}

	cutoff := startTime.Add(-sw.grace)

	// Group objects by the application id segment of their key. A group is
	// only eligible once every object in it has aged past the grace period.
	groups := make(map[string][]string)
	eligible := make(map[string]bool)
	for _, obj := range objects {
		appID := blob.SubmissionIDFromKey(obj.Key)
		if appID == "" {
			continue
		}
		if _, seen := groups[appID]; !seen {
			eligible[appID] = true
		}
		groups[appID] = append(groups[appID], obj.Key)
		if obj.LastModified.After(cutoff) {
			eligible[appID] = false
		}
	}

	var deleted int
	for appID, keys := range groups {
		if !eligible[appID] {
			continue
		}

		exists, err := sw.store.ApplicationExists(ctx, appID)
		if err != nil {
			sw.logger.Error("Failed to check application",
				"application_id", appID,
				"error", err.Error())
			continue
		}
		if exists {
			continue
		}

		for _, key := range keys {
			if err := sw.blobs.Delete(ctx, key); err != nil {
				sw.logger.Error("Failed to delete orphaned object",
					"application_id", appID,
					"object_key", key,
					"error", err.Error())
				continue
			}
			deleted++
		}

		sw.logger.Info("Removed orphaned submission objects",
			"application_id", appID,
			"object_count", len(keys))
	}

	duration := time.Since(startTime)

	sw.logger.Info("Completed orphaned blob cleanup",
		"objects_scanned", len(objects),
		"objects_deleted", deleted,
		"duration_ms", duration.Milliseconds(),
		"duration", duration.String())
}

func main() {
	// Load config
	cfg := config.MustLoad()

	// Document store for application existence checks
	store, err := mongoStore.NewMongo(cfg)
	if err != nil {
		log.Fatal("Failed to initialize document store:", err)
	}

	// Blob store to scan and clean
	blobs, err := blob.NewService(cfg)
	if err != nil {
		log.Fatal("Failed to initialize blob storage:", err)
	}
	slog.Info("Connected to blob storage", slog.String("bucket", cfg.MinIO.BucketName))

	interval := time.Duration(cfg.Sweeper.IntervalMinutes) * time.Minute
	grace := time.Duration(cfg.Sweeper.GracePeriodMinutes) * time.Minute

	sweeper := NewOrphanSweeper(blobs, store, interval, grace)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		slog.Info("Received shutdown signal")
		cancel()
	}()

	sweeper.Start(ctx)

	slog.Info("Orphan sweeper stopped")
}
