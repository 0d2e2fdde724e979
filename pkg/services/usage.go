package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/stickerlab/sticker-engine/pkg/apperrors"
	"github.com/stickerlab/sticker-engine/pkg/models"
	"github.com/stickerlab/sticker-engine/pkg/repositories"
)

// UsageService maintains the per-day and per-user usage counters and the
// aggregate stats snapshot.
type UsageService interface {
	// EnsureUser idempotently creates the user's counter row with
	// first_seen set to today.
	EnsureUser(ctx context.Context, userID int64) error
	// RecordEvent bumps both the daily and the user counter for the
	// event kind and advances the user's last_seen. Failures of one
	// table do not block the other.
	RecordEvent(ctx context.Context, userID int64, kind models.EventKind) error
	// StatsSnapshot returns the aggregate view for reporting.
	StatsSnapshot(ctx context.Context) (*models.StatsSnapshot, error)
}

// usageService implements UsageService.
type usageService struct {
	daily        repositories.DailyStatsRepository
	users        repositories.UserStatsRepository
	catalog      repositories.CatalogRepository
	cache        SnapshotCache
	queryTimeout time.Duration
	logger       *zap.Logger

	// now is swappable in tests.
	now func() time.Time
}

// NewUsageService creates a new usage service with dependencies.
func NewUsageService(
	daily repositories.DailyStatsRepository,
	users repositories.UserStatsRepository,
	catalog repositories.CatalogRepository,
	cache SnapshotCache,
	queryTimeout time.Duration,
	logger *zap.Logger,
) UsageService {
	return &usageService{
		daily:        daily,
		users:        users,
		catalog:      catalog,
		cache:        cache,
		queryTimeout: queryTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *usageService) EnsureUser(ctx context.Context, userID int64) error {
	opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	return s.users.EnsureRow(opCtx, userID, s.now())
}

// RecordEvent treats the two counter tables independently: a failed
// daily increment must not cost the user increment, and vice versa. Both
// increments are single atomic statements in the repositories.
func (s *usageService) RecordEvent(ctx context.Context, userID int64, kind models.EventKind) error {
	field, ok := repositories.FieldForEvent(kind)
	if !ok {
		return fmt.Errorf("invalid event kind: %s", kind)
	}

	today := s.now()

	dailyErr := s.incrementDaily(ctx, today, field)
	userErr := s.incrementUser(ctx, userID, today, field)

	return errors.Join(dailyErr, userErr)
}

// incrementDaily bumps the day counter, creating today's row on demand.
// The ensure-then-retry path covers the first event of a new day.
func (s *usageService) incrementDaily(ctx context.Context, today time.Time, field repositories.CounterField) error {
	opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	err := s.daily.Increment(opCtx, today, field)
	if !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	if err := s.daily.EnsureRow(opCtx, today); err != nil {
		return err
	}
	return s.daily.Increment(opCtx, today, field)
}

func (s *usageService) incrementUser(ctx context.Context, userID int64, today time.Time, field repositories.CounterField) error {
	opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	err := s.users.Increment(opCtx, userID, field, today)
	if !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}

	if err := s.users.EnsureRow(opCtx, userID, today); err != nil {
		return err
	}
	return s.users.Increment(opCtx, userID, field, today)
}

func (s *usageService) StatsSnapshot(ctx context.Context) (*models.StatsSnapshot, error) {
	if snapshot, ok := s.cache.Get(ctx); ok {
		return snapshot, nil
	}

	opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	collections, err := s.catalog.CountDistinct(opCtx, repositories.ColumnCollectionID)
	if err != nil {
		return nil, err
	}
	emoji, err := s.catalog.CountDistinct(opCtx, repositories.ColumnEmojiCode)
	if err != nil {
		return nil, err
	}
	totalUsers, err := s.users.CountUsers(opCtx)
	if err != nil {
		return nil, err
	}
	totalSent, err := s.users.SumStickersSent(opCtx)
	if err != nil {
		return nil, err
	}

	todaySent, err := s.daily.Get(opCtx, s.now(), repositories.FieldStickersSent)
	if errors.Is(err, apperrors.ErrNotFound) {
		// No events yet today.
		todaySent = 0
	} else if err != nil {
		return nil, err
	}

	snapshot := &models.StatsSnapshot{
		DistinctCollections: collections,
		DistinctEmoji:       emoji,
		TotalUsers:          totalUsers,
		TotalStickersSent:   totalSent,
		TodayStickersSent:   todaySent,
	}

	s.cache.Set(ctx, snapshot)
	return snapshot, nil
}

// Ensure usageService implements UsageService at compile time.
var _ UsageService = (*usageService)(nil)
