package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/haidv/outpost/internal/core/domain"
	"github.com/haidv/outpost/internal/publish"
)

// HistoryRepo implements the publish and syncer history interfaces
// using PostgreSQL.
type HistoryRepo struct {
	db *DB
}

// NewHistoryRepo creates a new PostgreSQL history repository.
func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// RecordOutcome inserts one history row for a publish attempt.
func (r *HistoryRepo) RecordOutcome(ctx context.Context, userID string, out domain.PublishOutcome, meta publish.Metadata) error {
	postedAt := meta.PostedAt
	if postedAt.IsZero() {
		postedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO publish_history (id, user_id, external_id, success, message, content, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.NewString(), userID, out.ExternalID, out.Success, out.Message, meta.Text, postedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	return nil
}

// ListRecentPublishedIDs returns external ids of successfully
// published items, most recent first.
func (r *HistoryRepo) ListRecentPublishedIDs(ctx context.Context, userID string, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT external_id FROM publish_history
		 WHERE user_id = $1 AND success AND external_id <> ''
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list published ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan published id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list published ids: %w", err)
	}
	return ids, nil
}

// SaveSnapshot writes refreshed engagement counts onto the history row
// keyed by external id.
func (r *HistoryRepo) SaveSnapshot(ctx context.Context, externalID string, snap domain.EngagementSnapshot) error {
	var impressions, reach sql.NullInt64
	var rate sql.NullFloat64
	if snap.ImpressionCount != nil {
		impressions = sql.NullInt64{Int64: int64(*snap.ImpressionCount), Valid: true}
	}
	if snap.ReachCount != nil {
		reach = sql.NullInt64{Int64: int64(*snap.ReachCount), Valid: true}
	}
	if snap.EngagementRate != nil {
		rate = sql.NullFloat64{Float64: *snap.EngagementRate, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE publish_history
		 SET like_count = $2, retweet_count = $3, reply_count = $4, quote_count = $5,
		     engagement_score = $6, impression_count = $7, reach_count = $8,
		     engagement_rate = $9, metrics_synced_at = $10
		 WHERE external_id = $1`,
		externalID,
		snap.LikeCount, snap.RetweetCount, snap.ReplyCount, snap.QuoteCount,
		snap.EngagementScore, impressions, reach, rate, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}
