// Package control wires configuration into a running service: stores,
// provider clients, the refresh coordinator, and the two workflows.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/haidv/outpost/internal/core/config"
	"github.com/haidv/outpost/internal/core/domain"
	"github.com/haidv/outpost/internal/credentials"
	"github.com/haidv/outpost/internal/health"
	"github.com/haidv/outpost/internal/metrics"
	"github.com/haidv/outpost/internal/provider/ai"
	"github.com/haidv/outpost/internal/provider/social"
	"github.com/haidv/outpost/internal/publish"
	"github.com/haidv/outpost/internal/resilience"
	"github.com/haidv/outpost/internal/store/postgres"
	redisstore "github.com/haidv/outpost/internal/store/redis"
	"github.com/haidv/outpost/internal/syncer"
)

// Service is the assembled application.
type Service struct {
	cfg          *config.AppConfig
	db           *postgres.DB
	cache        *redisstore.Cache
	credRepo     *postgres.CredentialRepo
	workflow     *publish.Workflow
	synchronizer *syncer.Synchronizer
	generator    *ai.Generator
	healthServer *health.Server
	log          *slog.Logger
}

// New creates a Service with all dependencies initialized and
// migrations applied.
func New(cfg *config.AppConfig) (*Service, error) {
	log := slog.Default()

	db, err := postgres.NewDB(context.Background(), cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to init db: %w", err)
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, err
	}
	if err := goose.Up(db.DB.DB, "migrations"); err != nil {
		return nil, fmt.Errorf("failed to migrate db: %w", err)
	}

	var cache *redisstore.Cache
	if cfg.Redis.URL != "" {
		cache, err = redisstore.NewCache(cfg.Redis.Store())
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		slog.Info("Snapshot cache enabled")
	}

	provider := social.NewClient(cfg.Social.Client())
	identity := social.NewIdentityClient(cfg.Social.Client())

	credRepo := postgres.NewCredentialRepo(db)
	historyRepo := postgres.NewHistoryRepo(db)
	coordinator := credentials.NewCoordinator(credRepo, identity, log)

	publishPolicy := cfg.Publish.Policy()
	publishPolicy.OnRetry = observeRetry(log, "publish")
	workflow := publish.NewWorkflow(provider, coordinator, historyRepo, publishPolicy, log)

	syncPolicy := cfg.Sync.Retry.Policy()
	syncPolicy.OnRetry = observeRetry(log, "sync")
	var snapCache syncer.SnapshotCache
	if cache != nil {
		snapCache = cache
	}
	synchronizer := syncer.NewSynchronizer(provider, historyRepo, snapCache, syncPolicy, cfg.Sync.Batch(), log)

	var generator *ai.Generator
	if cfg.OpenAI.APIKey != "" {
		generator, err = ai.NewGenerator(cfg.OpenAI)
		if err != nil {
			return nil, fmt.Errorf("failed to init ai generator: %w", err)
		}
	}

	checks := map[string]health.CheckFunc{
		"database": db.Health,
	}
	if cache != nil {
		checks["redis"] = cache.Health
	}
	healthServer := health.NewServer(checks, cfg.Server.Port)

	return &Service{
		cfg:          cfg,
		db:           db,
		cache:        cache,
		credRepo:     credRepo,
		workflow:     workflow,
		synchronizer: synchronizer,
		generator:    generator,
		healthServer: healthServer,
		log:          log,
	}, nil
}

// observeRetry routes the retrier's observer hook to logs and metrics.
func observeRetry(log *slog.Logger, workflow string) func(int, *resilience.AppError) {
	return func(attempt int, err *resilience.AppError) {
		metrics.RetryAttempts.WithLabelValues(string(err.Kind)).Inc()
		log.Debug("retrying provider call",
			"workflow", workflow, "attempt", attempt, "kind", err.Kind, "retry_after", err.RetryAfter)
	}
}

// Start runs the health server and, when configured, the background
// sync ticker. It blocks until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.db.StartMetricsCollector(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Health server listening", "port", s.cfg.Server.Port)
		errCh <- s.healthServer.Start()
	}()

	if s.cfg.Sync.Interval > 0 {
		go s.runSyncTicker(ctx)
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Stop shuts the service down.
func (s *Service) Stop(ctx context.Context) {
	if err := s.healthServer.Stop(ctx); err != nil {
		s.log.Warn("Health server shutdown failed", "error", err)
	}
	if s.cache != nil {
		_ = s.cache.Close()
	}
	_ = s.db.Close()
}

// runSyncTicker periodically refreshes metrics for every account with
// published history.
func (s *Service) runSyncTicker(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Sync.Interval.Std())
	defer ticker.Stop()

	s.log.Info("Background metrics sync enabled", "interval", s.cfg.Sync.Interval.Std())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			accounts, err := s.credRepo.ListAccounts(ctx)
			if err != nil {
				s.log.Warn("Failed to list accounts for sync", "error", err)
				continue
			}
			for _, acct := range accounts {
				if _, err := s.SyncOnce(ctx, acct.UserID, acct.AccountID); err != nil {
					s.log.Warn("Background sync failed", "account_id", acct.AccountID, "error", err)
				}
			}
		}
	}
}

// PublishText publishes one post for an account, drafting the text
// with the AI generator when prompt is set and text is empty.
func (s *Service) PublishText(ctx context.Context, userID, accountID, text, prompt string) (domain.PublishOutcome, error) {
	if text == "" && prompt != "" {
		if s.generator == nil {
			return domain.PublishOutcome{}, fmt.Errorf("ai drafting requested but openai is not configured")
		}
		drafted, err := s.generator.GenerateCaption(ctx, prompt)
		if err != nil {
			appErr := resilience.Classify(err)
			return domain.PublishOutcome{}, fmt.Errorf("draft post text: %w", appErr)
		}
		text = drafted
	}
	if text == "" {
		return domain.PublishOutcome{}, fmt.Errorf("nothing to post")
	}

	accessToken, err := s.credRepo.GetAccessToken(ctx, accountID)
	if err != nil {
		return domain.PublishOutcome{}, fmt.Errorf("load access token: %w", err)
	}

	out := s.workflow.Publish(ctx, publish.Request{
		UserID:      userID,
		AccountID:   accountID,
		AccessToken: accessToken,
		Content:     social.PostRequest{Text: text},
	})
	return out, nil
}

// SyncOnce runs one metrics sync batch for an account.
func (s *Service) SyncOnce(ctx context.Context, userID, accountID string) (domain.SyncBatchResult, error) {
	accessToken, err := s.credRepo.GetAccessToken(ctx, accountID)
	if err != nil {
		return domain.SyncBatchResult{}, fmt.Errorf("load access token: %w", err)
	}
	return s.synchronizer.SyncBatch(ctx, userID, accessToken)
}
