package services

import (
	"context"
	"log/slog"
	"time"

	"aquora-api/internal/adapters/persistence/repositories"
	"aquora-api/internal/config"
	"aquora-api/internal/core/domain"

	"github.com/robfig/cron/v3"
)

// CronService runs housekeeping jobs on a schedule
type CronService struct {
	cron   *cron.Cron
	tokens repositories.RefreshTokenRepository
	events EventPublisher
	cfg    config.HousekeepingConfig
	logger *slog.Logger
	now    Clock
}

// NewCronService creates a new cron service
func NewCronService(tokens repositories.RefreshTokenRepository, events EventPublisher, cfg config.HousekeepingConfig, logger *slog.Logger) *CronService {
	return &CronService{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
		tokens: tokens,
		events: events,
		cfg:    cfg,
		logger: logger,
		now:    systemClock,
	}
}

// WithClock replaces the service clock
func (s *CronService) WithClock(now Clock) *CronService {
	s.now = now
	return s
}

// Start schedules the jobs. An empty schedule disables pruning.
func (s *CronService) Start() error {
	if s.cfg.CleanupCron == "" {
		s.logger.Info("refresh token pruning disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.cfg.CleanupCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		_, _ = s.PruneRefreshTokens(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron service started", "refresh_token_cleanup", s.cfg.CleanupCron)
	return nil
}

// Stop waits for running jobs, up to ten seconds
func (s *CronService) Stop() {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-time.After(10 * time.Second):
		s.logger.Warn("cron jobs still running at shutdown")
	}
}

// PruneRefreshTokens deletes refresh tokens that expired more than the
// retention window ago. Newer rows stay for reuse detection and audit.
func (s *CronService) PruneRefreshTokens(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)

	deleted, err := s.tokens.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		s.logger.ErrorContext(ctx, "refresh token pruning failed", "error", err)
		return 0, err
	}

	s.logger.InfoContext(ctx, "refresh tokens pruned", "deleted", deleted, "cutoff", cutoff)
	if deleted > 0 && s.events != nil {
		event := domain.Event{
			Name:       domain.EventRefreshTokensPruned,
			OccurredAt: s.now(),
			Data:       map[string]any{"deleted": deleted, "cutoff": cutoff},
		}
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "failed to publish event", "event", event.Name, "error", err)
		}
	}
	return deleted, nil
}
