// Package syncer walks recently published items and refreshes their
// engagement metrics while respecting the provider's request budget.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/haidv/outpost/internal/core/domain"
	"github.com/haidv/outpost/internal/metrics"
	"github.com/haidv/outpost/internal/resilience"
)

// MetricsFetcher reads engagement counts from the posting provider.
type MetricsFetcher interface {
	FetchEngagement(ctx context.Context, accessToken, id string) (*domain.EngagementSnapshot, error)
}

// History lists published items and stores refreshed snapshots.
type History interface {
	ListRecentPublishedIDs(ctx context.Context, userID string, limit int) ([]string, error)
	SaveSnapshot(ctx context.Context, externalID string, snap domain.EngagementSnapshot) error
}

// SnapshotCache is an optional hot cache for refreshed snapshots.
// Cache writes are best-effort.
type SnapshotCache interface {
	PutSnapshot(ctx context.Context, externalID string, snap domain.EngagementSnapshot) error
}

// Config bounds one sync run.
type Config struct {
	MaxItems       int
	InterCallDelay time.Duration
}

// Synchronizer refreshes engagement metrics for a bounded page of
// published items, strictly sequentially.
type Synchronizer struct {
	provider MetricsFetcher
	history  History
	cache    SnapshotCache // may be nil
	policy   resilience.Policy
	cfg      Config
	log      *slog.Logger
}

// NewSynchronizer creates a batch metrics synchronizer.
func NewSynchronizer(provider MetricsFetcher, history History, cache SnapshotCache, policy resilience.Policy, cfg Config, log *slog.Logger) *Synchronizer {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 20
	}
	if cfg.InterCallDelay <= 0 {
		cfg.InterCallDelay = 2 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Synchronizer{
		provider: provider,
		history:  history,
		cache:    cache,
		policy:   policy,
		cfg:      cfg,
		log:      log,
	}
}

// SyncBatch refreshes metrics for the user's most recent published
// items. One item's failure never aborts the batch; the full fetched
// set is always processed. Items are paced with a fixed inter-call
// delay to stay under the provider's per-window call budget.
func (s *Synchronizer) SyncBatch(ctx context.Context, userID, accessToken string) (domain.SyncBatchResult, error) {
	var result domain.SyncBatchResult

	ids, err := s.history.ListRecentPublishedIDs(ctx, userID, s.cfg.MaxItems)
	if err != nil {
		return result, fmt.Errorf("list published items: %w", err)
	}

	for i, id := range ids {
		if err := s.syncOne(ctx, accessToken, id); err != nil {
			result.FailedCount++
			metrics.SyncItemsTotal.WithLabelValues("failed").Inc()
			s.log.Warn("metrics sync failed for item", "external_id", id, "error", err)
		} else {
			result.UpdatedCount++
			metrics.SyncItemsTotal.WithLabelValues("updated").Inc()
		}

		// Pace between items, not after the last one.
		if i < len(ids)-1 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(s.cfg.InterCallDelay):
			}
		}
	}

	s.log.Info("metrics sync finished",
		"user_id", userID,
		"updated", result.UpdatedCount,
		"failed", result.FailedCount)
	return result, nil
}

func (s *Synchronizer) syncOne(ctx context.Context, accessToken, id string) error {
	snap, err := resilience.Run(ctx, s.policy, func(ctx context.Context) (*domain.EngagementSnapshot, error) {
		return s.provider.FetchEngagement(ctx, accessToken, id)
	})
	if err != nil {
		return err
	}
	if snap == nil {
		// Provider has no metrics for this item yet.
		return nil
	}

	if err := s.history.SaveSnapshot(ctx, id, *snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.PutSnapshot(ctx, id, *snap); err != nil {
			s.log.Warn("snapshot cache write failed", "external_id", id, "error", err)
		}
	}
	return nil
}
