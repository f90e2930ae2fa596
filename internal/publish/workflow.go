// Package publish orchestrates the "post content now" workflow:
// provider call through the retrier, transparent refresh-and-retry on
// expired credentials, then best-effort bookkeeping.
package publish

import (
	"context"
	"log/slog"
	"time"

	"github.com/haidv/outpost/internal/core/domain"
	"github.com/haidv/outpost/internal/metrics"
	"github.com/haidv/outpost/internal/provider/social"
	"github.com/haidv/outpost/internal/resilience"
)

// Poster is the posting-provider surface the workflow needs.
type Poster interface {
	Post(ctx context.Context, accessToken string, req social.PostRequest) (*social.Posted, error)
	FetchEngagement(ctx context.Context, accessToken, id string) (*domain.EngagementSnapshot, error)
}

// History records publish outcomes and engagement snapshots.
type History interface {
	RecordOutcome(ctx context.Context, userID string, out domain.PublishOutcome, meta Metadata) error
	SaveSnapshot(ctx context.Context, externalID string, snap domain.EngagementSnapshot) error
}

// Refresher runs the credential refresh flow and retries the given
// operation once with the new access token.
type Refresher interface {
	RefreshAndRetry(ctx context.Context, accountID string,
		op func(ctx context.Context, accessToken string) domain.PublishOutcome) domain.PublishOutcome
}

// Metadata accompanies a history row.
type Metadata struct {
	Text     string
	PostedAt time.Time
}

// Request is one publish invocation.
type Request struct {
	UserID      string
	AccountID   string
	AccessToken string
	Content     social.PostRequest

	// SkipHistory is set when the history row already exists, e.g.
	// when publishing a previously scheduled item.
	SkipHistory bool
}

// Workflow publishes posts through the resilient layer.
type Workflow struct {
	provider  Poster
	refresher Refresher
	history   History
	policy    resilience.Policy
	log       *slog.Logger
}

// NewWorkflow creates a publish workflow.
func NewWorkflow(provider Poster, refresher Refresher, history History, policy resilience.Policy, log *slog.Logger) *Workflow {
	if log == nil {
		log = slog.Default()
	}
	return &Workflow{
		provider:  provider,
		refresher: refresher,
		history:   history,
		policy:    policy,
		log:       log,
	}
}

// Publish posts content now. Exactly one failure class is retried
// transparently: an expired access token triggers one refresh+retry.
// Every other failure is returned with Retryable/RetryAfter so the
// caller can offer its own retry affordance. Side effects after a
// successful post never flip the outcome to failure.
func (w *Workflow) Publish(ctx context.Context, req Request) domain.PublishOutcome {
	out, appErr := w.postOnce(ctx, req.AccessToken, req.Content)

	if appErr != nil && appErr.Kind == resilience.KindAuthExpired {
		out = w.refresher.RefreshAndRetry(ctx, req.AccountID,
			func(ctx context.Context, accessToken string) domain.PublishOutcome {
				req.AccessToken = accessToken
				retried, _ := w.postOnce(ctx, accessToken, req.Content)
				return retried
			})
	}

	if out.Success {
		metrics.PublishTotal.WithLabelValues("success").Inc()
		w.afterSuccess(ctx, req, out)
	} else {
		metrics.PublishTotal.WithLabelValues("failed").Inc()
		w.log.Warn("publish failed",
			"user_id", req.UserID,
			"account_id", req.AccountID,
			"retryable", out.Retryable,
			"retry_after", out.RetryAfter,
			"message", out.Message)
	}
	return out
}

// postOnce runs the provider call through the retrier and folds the
// result into an outcome. The classified error is also returned so the
// caller can branch on its kind.
func (w *Workflow) postOnce(ctx context.Context, accessToken string, content social.PostRequest) (domain.PublishOutcome, *resilience.AppError) {
	posted, err := resilience.Run(ctx, w.policy, func(ctx context.Context) (*social.Posted, error) {
		return w.provider.Post(ctx, accessToken, content)
	})
	if err != nil {
		appErr := resilience.Classify(err)
		return domain.PublishOutcome{
			Success:    false,
			Message:    appErr.Message,
			Retryable:  appErr.Retryable,
			RetryAfter: appErr.RetryAfter,
		}, appErr
	}
	return domain.PublishOutcome{Success: true, ExternalID: posted.ID}, nil
}

// afterSuccess runs the post-success side effects. Both are
// best-effort: a brand-new post commonly has no metrics yet, and a
// local bookkeeping failure is not the user's problem to retry.
func (w *Workflow) afterSuccess(ctx context.Context, req Request, out domain.PublishOutcome) {
	var snap *domain.EngagementSnapshot

	w.bestEffort("initial engagement fetch", func() error {
		var err error
		snap, err = w.provider.FetchEngagement(ctx, req.AccessToken, out.ExternalID)
		return err
	})

	if !req.SkipHistory {
		w.bestEffort("record publish history", func() error {
			meta := Metadata{Text: req.Content.Text, PostedAt: time.Now()}
			return w.history.RecordOutcome(ctx, req.UserID, out, meta)
		})
	}

	if snap != nil {
		w.bestEffort("save initial snapshot", func() error {
			return w.history.SaveSnapshot(ctx, out.ExternalID, *snap)
		})
	}
}

// bestEffort runs fn and routes any failure to the log sink only. The
// "never fails the parent" contract lives here, not at call sites.
func (w *Workflow) bestEffort(step string, fn func() error) {
	if err := fn(); err != nil {
		w.log.Warn("best-effort step failed", "step", step, "error", err)
	}
}
