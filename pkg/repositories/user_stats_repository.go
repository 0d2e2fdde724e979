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

// UserStatsRepository maintains the per-user usage counters.
type UserStatsRepository interface {
	// EnsureRow creates a zeroed counter row for the user if absent, with
	// first_seen and last_seen set to the given day. Existing rows are
	// left untouched: first_seen is immutable after creation.
	EnsureRow(ctx context.Context, userID int64, day time.Time) error
	// Increment atomically adds one to the given counter and advances
	// last_seen, never moving it backwards. Returns apperrors.ErrNotFound
	// if the user has no row yet.
	Increment(ctx context.Context, userID int64, field CounterField, day time.Time) error
	// Get reads a single counter. Returns apperrors.ErrNotFound if the
	// user has no row.
	Get(ctx context.Context, userID int64, field CounterField) (int64, error)
	// GetRecord reads the full user record.
	GetRecord(ctx context.Context, userID int64) (*models.UserRecord, error)
	// CountUsers counts all known users.
	CountUsers(ctx context.Context) (int64, error)
	// SumStickersSent totals stickers sent across all users.
	SumStickersSent(ctx context.Context) (int64, error)
}

// userStatsRepository implements UserStatsRepository using PostgreSQL.
type userStatsRepository struct {
	db *database.DB
}

// NewUserStatsRepository creates a new user stats repository.
func NewUserStatsRepository(db *database.DB) UserStatsRepository {
	return &userStatsRepository{db: db}
}

func (r *userStatsRepository) EnsureRow(ctx context.Context, userID int64, day time.Time) error {
	query := `
		INSERT INTO user_stats (user_id, first_seen, last_seen)
		VALUES ($1, $2, $2)
		ON CONFLICT (user_id) DO NOTHING`

	if _, err := r.db.Exec(ctx, query, userID, dateOf(day)); err != nil {
		return apperrors.Storage("user.ensure_row", err)
	}
	return nil
}

// Increment bumps the counter and advances last_seen in one statement.
// GREATEST keeps last_seen monotone even if events arrive out of order
// across a midnight boundary.
func (r *userStatsRepository) Increment(ctx context.Context, userID int64, field CounterField, day time.Time) error {
	col, ok := counterColumns[field]
	if !ok {
		return fmt.Errorf("unknown counter field: %s", field)
	}

	query := fmt.Sprintf(`
		UPDATE user_stats
		SET %s = %s + 1, last_seen = GREATEST(last_seen, $2)
		WHERE user_id = $1`, col, col)

	result, err := r.db.Exec(ctx, query, userID, dateOf(day))
	if err != nil {
		return apperrors.Storage("user.increment", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *userStatsRepository) Get(ctx context.Context, userID int64, field CounterField) (int64, error) {
	col, ok := counterColumns[field]
	if !ok {
		return 0, fmt.Errorf("unknown counter field: %s", field)
	}

	query := fmt.Sprintf(`SELECT %s FROM user_stats WHERE user_id = $1`, col)

	var value int64
	err := r.db.QueryRow(ctx, query, userID).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrNotFound
		}
		return 0, apperrors.Storage("user.get", err)
	}
	return value, nil
}

func (r *userStatsRepository) GetRecord(ctx context.Context, userID int64) (*models.UserRecord, error) {
	query := `
		SELECT user_id, first_seen, last_seen, commands_use, stickers_sent, other_messages
		FROM user_stats
		WHERE user_id = $1`

	var rec models.UserRecord
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&rec.UserID,
		&rec.FirstSeen,
		&rec.LastSeen,
		&rec.CommandsUse,
		&rec.StickersSent,
		&rec.OtherMessages,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Storage("user.get_record", err)
	}
	return &rec, nil
}

func (r *userStatsRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM user_stats`).Scan(&count); err != nil {
		return 0, apperrors.Storage("user.count", err)
	}
	return count, nil
}

func (r *userStatsRepository) SumStickersSent(ctx context.Context) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(stickers_sent), 0) FROM user_stats`
	if err := r.db.QueryRow(ctx, query).Scan(&total); err != nil {
		return 0, apperrors.Storage("user.sum_stickers", err)
	}
	return total, nil
}

// Ensure userStatsRepository implements UserStatsRepository at compile time.
var _ UserStatsRepository = (*userStatsRepository)(nil)
