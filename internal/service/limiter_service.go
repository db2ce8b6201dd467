package service

import (
	"context"
	"time"

	"lexchat-be/internal/constant"
	"lexchat-be/internal/dto"
	"lexchat-be/internal/entity"
	"lexchat-be/internal/pkg/logger"
	"lexchat-be/internal/repository/contract"
)

// ILimiterService enforces the daily question quota for signed-out clients.
// Usage is counted uniformly for every client; the block threshold only
// applies while the caller is anonymous.
type ILimiterService interface {
	// RecordQuestion increments the day's counter and returns the new count.
	// A rolled-over day restarts at 1. Storage failures are logged, never
	// surfaced: losing a count is preferable to losing a question.
	RecordQuestion(ctx context.Context, clientKey string) (int, error)

	// IsBlocked reports whether the client is out of questions for the day.
	// Signed-in callers are never blocked.
	IsBlocked(ctx context.Context, clientKey string, signedIn bool) bool

	// Gate is IsBlocked shaped for the orchestrator: nil when the question
	// may proceed, a typed *dto.LimitExceededError otherwise.
	Gate(ctx context.Context, clientKey string, signedIn bool) error
}

type limiterService struct {
	usageRepo contract.UsageRepository
	limit     int
	logger    logger.ILogger
	now       func() time.Time
}

func NewLimiterService(usageRepo contract.UsageRepository, limit int, log logger.ILogger) ILimiterService {
	if limit <= 0 {
		limit = constant.DailyQuestionLimit
	}
	return &limiterService{
		usageRepo: usageRepo,
		limit:     limit,
		logger:    log,
		now:       time.Now,
	}
}

// currentCount reads today's count, treating any repository failure or a
// stale (previous-day) record as zero.
func (s *limiterService) currentCount(ctx context.Context, clientKey string) int {
	usage, err := s.usageRepo.Get(ctx, clientKey)
	if err != nil {
		s.logger.Warn("LimiterService", "Failed to read usage, treating as zero", map[string]interface{}{
			"client_key": clientKey,
			"error":      err.Error(),
		})
		return 0
	}
	if usage == nil || !usage.SameDay(s.now()) {
		return 0
	}
	return usage.Count
}

func (s *limiterService) RecordQuestion(ctx context.Context, clientKey string) (int, error) {
	now := s.now()
	count := s.currentCount(ctx, clientKey) + 1

	err := s.usageRepo.Save(ctx, clientKey, &entity.DailyUsage{Count: count, Day: now})
	if err != nil {
		s.logger.Warn("LimiterService", "Failed to persist usage counter", map[string]interface{}{
			"client_key": clientKey,
			"count":      count,
			"error":      err.Error(),
		})
	}
	return count, nil
}

func (s *limiterService) IsBlocked(ctx context.Context, clientKey string, signedIn bool) bool {
	if signedIn {
		return false
	}
	return s.currentCount(ctx, clientKey) >= s.limit
}

func (s *limiterService) Gate(ctx context.Context, clientKey string, signedIn bool) error {
	if signedIn {
		return nil
	}
	used := s.currentCount(ctx, clientKey)
	if used < s.limit {
		return nil
	}
	return &dto.LimitExceededError{
		Limit:      s.limit,
		Used:       used,
		ResetAfter: nextMidnight(s.now()),
	}
}

func nextMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
}
