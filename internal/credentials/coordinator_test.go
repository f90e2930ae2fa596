package credentials

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/haidv/outpost/internal/core/domain"
)

type fakeStore struct {
	mu           sync.Mutex
	refreshToken string
	getErr       error
	saveErr      error
	saved        []domain.TokenPair
	events       *[]string
}

func (s *fakeStore) GetRefreshToken(ctx context.Context, accountID string) (string, error) {
	return s.refreshToken, s.getErr
}

func (s *fakeStore) SaveTokens(ctx context.Context, accountID string, pair domain.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, pair)
	if s.events != nil {
		*s.events = append(*s.events, "save")
	}
	return nil
}

type fakeExchanger struct {
	pair    domain.TokenPair
	err     error
	calls   atomic.Int32
	release chan struct{} // when set, Exchange blocks until closed
}

func (e *fakeExchanger) ExchangeRefreshToken(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	e.calls.Add(1)
	if e.release != nil {
		<-e.release
	}
	return e.pair, e.err
}

func succeedingOp(events *[]string, opCalls *int) func(context.Context, string) domain.PublishOutcome {
	return func(ctx context.Context, accessToken string) domain.PublishOutcome {
		if events != nil {
			*events = append(*events, "op")
		}
		if opCalls != nil {
			*opCalls++
		}
		return domain.PublishOutcome{Success: true, ExternalID: "post-1"}
	}
}

func TestRefreshAndRetryNoStoredToken(t *testing.T) {
	store := &fakeStore{refreshToken: ""}
	exchanger := &fakeExchanger{}
	c := NewCoordinator(store, exchanger, nil)

	opCalls := 0
	out := c.RefreshAndRetry(context.Background(), "acct-1", succeedingOp(nil, &opCalls))

	if out.Success {
		t.Error("expected failure with no stored refresh token")
	}
	if out.Retryable {
		t.Error("missing credentials must not be retryable")
	}
	if !strings.Contains(out.Message, "re-authenticate") {
		t.Errorf("message = %q, want re-authenticate instruction", out.Message)
	}
	if exchanger.calls.Load() != 0 {
		t.Error("identity provider must not be called without a refresh token")
	}
	if opCalls != 0 {
		t.Error("op must not run when refresh fails")
	}
}

func TestRefreshAndRetryExchangeFails(t *testing.T) {
	store := &fakeStore{refreshToken: "old-refresh"}
	exchanger := &fakeExchanger{err: errors.New("invalid_grant")}
	c := NewCoordinator(store, exchanger, nil)

	opCalls := 0
	out := c.RefreshAndRetry(context.Background(), "acct-1", succeedingOp(nil, &opCalls))

	if out.Success || out.Retryable {
		t.Error("exchange failure must be a terminal, non-retryable outcome")
	}
	if !strings.Contains(out.Message, "re-authenticate") {
		t.Errorf("message = %q, want re-authenticate instruction", out.Message)
	}
	if opCalls != 0 {
		t.Error("op must not run when the exchange fails")
	}
	if len(store.saved) != 0 {
		t.Error("nothing should be persisted on a failed exchange")
	}
}

func TestRefreshAndRetryPersistsBeforeRetry(t *testing.T) {
	var events []string
	store := &fakeStore{refreshToken: "old-refresh", events: &events}
	exchanger := &fakeExchanger{pair: domain.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"}}
	c := NewCoordinator(store, exchanger, nil)

	var gotToken string
	out := c.RefreshAndRetry(context.Background(), "acct-1",
		func(ctx context.Context, accessToken string) domain.PublishOutcome {
			events = append(events, "op")
			gotToken = accessToken
			return domain.PublishOutcome{Success: true}
		})

	if !out.Success {
		t.Fatalf("unexpected failure: %s", out.Message)
	}
	if gotToken != "new-access" {
		t.Errorf("op received token %q, want new-access", gotToken)
	}
	if len(events) != 2 || events[0] != "save" || events[1] != "op" {
		t.Errorf("events = %v, want [save op]", events)
	}
	if len(store.saved) != 1 || store.saved[0].RefreshToken != "new-refresh" {
		t.Errorf("saved = %+v, want both new tokens persisted", store.saved)
	}
}

func TestRefreshAndRetryKeepsOldRefreshTokenWhenOmitted(t *testing.T) {
	store := &fakeStore{refreshToken: "old-refresh"}
	exchanger := &fakeExchanger{pair: domain.TokenPair{AccessToken: "new-access"}}
	c := NewCoordinator(store, exchanger, nil)

	out := c.RefreshAndRetry(context.Background(), "acct-1", succeedingOp(nil, nil))
	if !out.Success {
		t.Fatalf("unexpected failure: %s", out.Message)
	}
	if len(store.saved) != 1 || store.saved[0].RefreshToken != "old-refresh" {
		t.Errorf("saved = %+v, want old refresh token carried over", store.saved)
	}
}

func TestRefreshAndRetryOpRunsExactlyOnce(t *testing.T) {
	store := &fakeStore{refreshToken: "old-refresh"}
	exchanger := &fakeExchanger{pair: domain.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"}}
	c := NewCoordinator(store, exchanger, nil)

	opCalls := 0
	out := c.RefreshAndRetry(context.Background(), "acct-1",
		func(ctx context.Context, accessToken string) domain.PublishOutcome {
			opCalls++
			// The retried call fails again; no second refresh may follow.
			return domain.PublishOutcome{Success: false, Message: "still unauthorized"}
		})

	if out.Success {
		t.Error("the op's failure must be the coordinator's result")
	}
	if opCalls != 1 {
		t.Errorf("op calls = %d, want exactly 1", opCalls)
	}
	if exchanger.calls.Load() != 1 {
		t.Errorf("exchanges = %d, want exactly 1", exchanger.calls.Load())
	}
}

func TestRefreshAndRetryPersistFailureIsTerminal(t *testing.T) {
	store := &fakeStore{refreshToken: "old-refresh", saveErr: errors.New("db down")}
	exchanger := &fakeExchanger{pair: domain.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"}}
	c := NewCoordinator(store, exchanger, nil)

	opCalls := 0
	out := c.RefreshAndRetry(context.Background(), "acct-1", succeedingOp(nil, &opCalls))
	if out.Success {
		t.Error("expected failure when tokens cannot be persisted")
	}
	if opCalls != 0 {
		t.Error("op must not run before tokens are durably persisted")
	}
}

func TestConcurrentRefreshesCollapse(t *testing.T) {
	store := &fakeStore{refreshToken: "old-refresh"}
	exchanger := &fakeExchanger{
		pair:    domain.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"},
		release: make(chan struct{}),
	}
	c := NewCoordinator(store, exchanger, nil)

	var opCalls atomic.Int32
	var wg sync.WaitGroup
	outcomes := make([]domain.PublishOutcome, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = c.RefreshAndRetry(context.Background(), "acct-1",
				func(ctx context.Context, accessToken string) domain.PublishOutcome {
					opCalls.Add(1)
					return domain.PublishOutcome{Success: true}
				})
		}(i)
	}

	// Let both callers reach the in-flight exchange, then release it.
	time.Sleep(50 * time.Millisecond)
	close(exchanger.release)
	wg.Wait()

	if got := exchanger.calls.Load(); got != 1 {
		t.Errorf("exchanges = %d, want 1 (single-flight)", got)
	}
	if got := opCalls.Load(); got != 2 {
		t.Errorf("op calls = %d, want one retry per caller", got)
	}
	for i, out := range outcomes {
		if !out.Success {
			t.Errorf("caller %d failed: %s", i, out.Message)
		}
	}
}
