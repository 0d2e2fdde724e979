package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/stickerlab/sticker-engine/pkg/apperrors"
	"github.com/stickerlab/sticker-engine/pkg/database"
	"github.com/stickerlab/sticker-engine/pkg/models"
)

// DailyStatsRepository maintains the one-row-per-day usage counters.
type DailyStatsRepository interface {
	// EnsureRow creates a zeroed counter row for the day if absent.
	// Safe under concurrent callers: at most one row per day ever exists.
	EnsureRow(ctx context.Context, day time.Time) error
	// Increment atomically adds one to the given counter for the day.
	// Returns apperrors.ErrNotFound if the day has no row yet.
	Increment(ctx context.Context, day time.Time, field CounterField) error
	// Get reads a single counter. Returns apperrors.ErrNotFound if the
	// day has no row.
	Get(ctx context.Context, day time.Time, field CounterField) (int64, error)
	// GetRecord reads the full day record.
	GetRecord(ctx context.Context, day time.Time) (*models.DailyRecord, error)
}

// dailyStatsRepository implements DailyStatsRepository using PostgreSQL.
type dailyStatsRepository struct {
	db *database.DB
}

// NewDailyStatsRepository creates a new daily stats repository.
func NewDailyStatsRepository(db *database.DB) DailyStatsRepository {
	return &dailyStatsRepository{db: db}
}

// dateOf truncates a timestamp to its UTC calendar date.
func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (r *dailyStatsRepository) EnsureRow(ctx context.Context, day time.Time) error {
	query := `
		INSERT INTO daily_stats (day)
		VALUES ($1)
		ON CONFLICT (day) DO NOTHING`

	if _, err := r.db.Exec(ctx, query, dateOf(day)); err != nil {
		return apperrors.Storage("daily.ensure_row", err)
	}
	return nil
}

// Increment is a single in-place UPDATE so concurrent increments on the
// same day serialize on the row and no update is lost.
func (r *dailyStatsRepository) Increment(ctx context.Context, day time.Time, field CounterField) error {
	col, ok := counterColumns[field]
	if !ok {
		return fmt.Errorf("unknown counter field: %s", field)
	}

	query := fmt.Sprintf(`UPDATE daily_stats SET %s = %s + 1 WHERE day = $1`, col, col)

	result, err := r.db.Exec(ctx, query, dateOf(day))
	if err != nil {
		return apperrors.Storage("daily.increment", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *dailyStatsRepository) Get(ctx context.Context, day time.Time, field CounterField) (int64, error) {
	col, ok := counterColumns[field]
	if !ok {
		return 0, fmt.Errorf("unknown counter field: %s", field)
	}

	query := fmt.Sprintf(`SELECT %s FROM daily_stats WHERE day = $1`, col)

	var value int64
	err := r.db.QueryRow(ctx, query, dateOf(day)).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrNotFound
		}
		return 0, apperrors.Storage("daily.get", err)
	}
	return value, nil
}

func (r *dailyStatsRepository) GetRecord(ctx context.Context, day time.Time) (*models.DailyRecord, error) {
	query := `
		SELECT day, commands_use, stickers_sent, other_messages
		FROM daily_stats
		WHERE day = $1`

	var rec models.DailyRecord
	err := r.db.QueryRow(ctx, query, dateOf(day)).Scan(
		&rec.Day,
		&rec.CommandsUse,
		&rec.StickersSent,
		&rec.OtherMessages,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Storage("daily.get_record", err)
	}
	return &rec, nil
}

// Ensure dailyStatsRepository implements DailyStatsRepository at compile time.
var _ DailyStatsRepository = (*dailyStatsRepository)(nil)
