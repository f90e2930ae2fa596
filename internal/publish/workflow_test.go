package publish

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/haidv/outpost/internal/core/domain"
	"github.com/haidv/outpost/internal/provider/social"
	"github.com/haidv/outpost/internal/resilience"
)

// oneShot avoids real backoff sleeps in workflow tests.
var oneShot = resilience.Policy{MaxRetries: 0}

type fakePoster struct {
	postErrByToken map[string]error // token → error; missing = success
	postCalls      int
	engagement     *domain.EngagementSnapshot
	engagementErr  error
	fetchCalls     int
}

func (p *fakePoster) Post(ctx context.Context, accessToken string, req social.PostRequest) (*social.Posted, error) {
	p.postCalls++
	if err := p.postErrByToken[accessToken]; err != nil {
		return nil, err
	}
	return &social.Posted{ID: "post-123", Text: req.Text}, nil
}

func (p *fakePoster) FetchEngagement(ctx context.Context, accessToken, id string) (*domain.EngagementSnapshot, error) {
	p.fetchCalls++
	return p.engagement, p.engagementErr
}

type fakeHistory struct {
	recordErr   error
	saveErr     error
	recorded    int
	snapshots   int
	lastOutcome domain.PublishOutcome
}

func (h *fakeHistory) RecordOutcome(ctx context.Context, userID string, out domain.PublishOutcome, meta Metadata) error {
	if h.recordErr != nil {
		return h.recordErr
	}
	h.recorded++
	h.lastOutcome = out
	return nil
}

func (h *fakeHistory) SaveSnapshot(ctx context.Context, externalID string, snap domain.EngagementSnapshot) error {
	if h.saveErr != nil {
		return h.saveErr
	}
	h.snapshots++
	return nil
}

// fakeRefresher mimics the coordinator: it invokes the op once with a
// fresh token, or fails without invoking it.
type fakeRefresher struct {
	newToken string
	failWith string
	calls    int
}

func (r *fakeRefresher) RefreshAndRetry(ctx context.Context, accountID string,
	op func(ctx context.Context, accessToken string) domain.PublishOutcome) domain.PublishOutcome {
	r.calls++
	if r.failWith != "" {
		return domain.PublishOutcome{Success: false, Message: r.failWith}
	}
	return op(ctx, r.newToken)
}

func baseRequest() Request {
	return Request{
		UserID:      "user-1",
		AccountID:   "acct-1",
		AccessToken: "token-1",
		Content:     social.PostRequest{Text: "hello"},
	}
}

func TestPublishSuccess(t *testing.T) {
	snap := domain.NewEngagementSnapshot(1, 2, 3, 4, nil, nil)
	poster := &fakePoster{engagement: &snap}
	history := &fakeHistory{}
	w := NewWorkflow(poster, &fakeRefresher{}, history, oneShot, nil)

	out := w.Publish(context.Background(), baseRequest())

	if !out.Success {
		t.Fatalf("unexpected failure: %s", out.Message)
	}
	if out.ExternalID != "post-123" {
		t.Errorf("external id = %q, want post-123", out.ExternalID)
	}
	if history.recorded != 1 {
		t.Errorf("history rows = %d, want 1", history.recorded)
	}
	if history.snapshots != 1 {
		t.Errorf("snapshots = %d, want 1", history.snapshots)
	}
}

func TestPublishSuccessWithFailingMetricsFetch(t *testing.T) {
	poster := &fakePoster{engagementErr: errors.New("metrics unavailable")}
	history := &fakeHistory{}
	w := NewWorkflow(poster, &fakeRefresher{}, history, oneShot, nil)

	out := w.Publish(context.Background(), baseRequest())

	if !out.Success {
		t.Error("a failing metrics fetch must never fail the publish")
	}
	if history.recorded != 1 {
		t.Error("history should still be recorded")
	}
}

func TestPublishSuccessWithFailingHistoryWrite(t *testing.T) {
	poster := &fakePoster{}
	history := &fakeHistory{recordErr: errors.New("db down")}
	w := NewWorkflow(poster, &fakeRefresher{}, history, oneShot, nil)

	out := w.Publish(context.Background(), baseRequest())

	if !out.Success {
		t.Error("a failing history write must never fail the publish")
	}
}

func TestPublishSkipHistory(t *testing.T) {
	poster := &fakePoster{}
	history := &fakeHistory{}
	w := NewWorkflow(poster, &fakeRefresher{}, history, oneShot, nil)

	req := baseRequest()
	req.SkipHistory = true
	out := w.Publish(context.Background(), req)

	if !out.Success {
		t.Fatalf("unexpected failure: %s", out.Message)
	}
	if history.recorded != 0 {
		t.Errorf("history rows = %d, want 0 when the row already exists", history.recorded)
	}
}

func TestPublishAuthExpiredRefreshesAndRetries(t *testing.T) {
	poster := &fakePoster{
		postErrByToken: map[string]error{"token-1": &social.APIError{StatusCode: 401}},
	}
	refresher := &fakeRefresher{newToken: "token-2"}
	history := &fakeHistory{}
	w := NewWorkflow(poster, refresher, history, oneShot, nil)

	out := w.Publish(context.Background(), baseRequest())

	if !out.Success {
		t.Fatalf("expected success after refresh, got %s", out.Message)
	}
	if refresher.calls != 1 {
		t.Errorf("refresher calls = %d, want 1", refresher.calls)
	}
	if poster.postCalls != 2 {
		t.Errorf("post calls = %d, want 2 (original + retried)", poster.postCalls)
	}
	if history.recorded != 1 {
		t.Error("the retried success should still be recorded")
	}
}

func TestPublishAuthExpiredSecondFailureNotRetriedAgain(t *testing.T) {
	poster := &fakePoster{
		postErrByToken: map[string]error{
			"token-1": &social.APIError{StatusCode: 401},
			"token-2": &social.APIError{StatusCode: 401},
		},
	}
	refresher := &fakeRefresher{newToken: "token-2"}
	w := NewWorkflow(poster, refresher, &fakeHistory{}, oneShot, nil)

	out := w.Publish(context.Background(), baseRequest())

	if out.Success {
		t.Error("expected failure when the retried call fails too")
	}
	if refresher.calls != 1 {
		t.Errorf("refresher calls = %d, want exactly 1 (no refresh loop)", refresher.calls)
	}
	if poster.postCalls != 2 {
		t.Errorf("post calls = %d, want 2", poster.postCalls)
	}
}

func TestPublishNoStoredRefreshToken(t *testing.T) {
	poster := &fakePoster{
		postErrByToken: map[string]error{"token-1": &social.APIError{StatusCode: 401}},
	}
	refresher := &fakeRefresher{failWith: "no stored credentials for this account, please re-authenticate"}
	w := NewWorkflow(poster, refresher, &fakeHistory{}, oneShot, nil)

	out := w.Publish(context.Background(), baseRequest())

	if out.Success || out.Retryable {
		t.Error("expected terminal, non-retryable failure")
	}
	if !strings.Contains(out.Message, "re-authenticate") {
		t.Errorf("message = %q, want re-authenticate instruction", out.Message)
	}
}

func TestPublishRateLimitSurfacedWithRetryHint(t *testing.T) {
	poster := &fakePoster{
		postErrByToken: map[string]error{"token-1": &social.APIError{StatusCode: 429}},
	}
	refresher := &fakeRefresher{}
	w := NewWorkflow(poster, refresher, &fakeHistory{}, oneShot, nil)

	out := w.Publish(context.Background(), baseRequest())

	if out.Success {
		t.Error("expected failure")
	}
	if !out.Retryable {
		t.Error("rate limits are retryable by the caller")
	}
	if out.RetryAfter != 900*time.Second {
		t.Errorf("RetryAfter = %v, want the 900s provider window", out.RetryAfter)
	}
	if refresher.calls != 0 {
		t.Error("rate limits must not trigger a credential refresh")
	}
}

func TestPublishForbiddenIsTerminal(t *testing.T) {
	poster := &fakePoster{
		postErrByToken: map[string]error{"token-1": &social.APIError{StatusCode: 403}},
	}
	refresher := &fakeRefresher{}
	w := NewWorkflow(poster, refresher, &fakeHistory{}, oneShot, nil)

	out := w.Publish(context.Background(), baseRequest())

	if out.Success || out.Retryable {
		t.Error("403 must be a terminal, non-retryable failure")
	}
	if refresher.calls != 0 {
		t.Error("refreshing credentials will not help a permissions problem")
	}
}
