package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stickerlab/sticker-engine/pkg/apperrors"
	"github.com/stickerlab/sticker-engine/pkg/database"
	"github.com/stickerlab/sticker-engine/pkg/models"
)

// CatalogColumn names a sticker column usable in distinct-count queries.
type CatalogColumn string

const (
	ColumnCollectionID CatalogColumn = "collection_id"
	ColumnEmojiCode    CatalogColumn = "emoji_code"
)

// catalogColumns whitelists the SQL identifier for each countable column.
var catalogColumns = map[CatalogColumn]string{
	ColumnCollectionID: "collection_id",
	ColumnEmojiCode:    "emoji_code",
}

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations, raised when two inserts race past the NOT EXISTS guard.
const uniqueViolation = "23505"

// CatalogRepository is the persistent, append-only sticker catalog.
type CatalogRepository interface {
	// InsertIfAbsent inserts the fingerprint unless a row with the same
	// file id, or a row with the same (collection, emoji) pair, already
	// exists. Returns whether an insert occurred. Idempotent.
	InsertIfAbsent(ctx context.Context, fp models.Fingerprint) (bool, error)
	// Contains reports whether a sticker with the given file id is known.
	Contains(ctx context.Context, fileID string) (bool, error)
	// SelectReply draws a uniformly random file id among rows matching
	// emojiCode outside excludeCollection. Returns apperrors.ErrNoMatch
	// when no candidate exists.
	SelectReply(ctx context.Context, emojiCode, excludeCollection string) (string, error)
	// SelectAny draws a uniformly random file id over the whole catalog.
	// Returns apperrors.ErrNoMatch on an empty catalog.
	SelectAny(ctx context.Context) (string, error)
	// CountDistinct counts distinct values of the given column. The
	// collection count excludes stickers without a collection.
	CountDistinct(ctx context.Context, column CatalogColumn) (int64, error)
}

// catalogRepository implements CatalogRepository using PostgreSQL.
type catalogRepository struct {
	db *database.DB
}

// NewCatalogRepository creates a new catalog repository.
func NewCatalogRepository(db *database.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

// InsertIfAbsent runs a single conditional insert so the check and the
// insert cannot interleave with a concurrent writer. The unique indexes
// backstop the residual race between two simultaneous statements; a
// unique violation therefore collapses to "already present".
func (r *catalogRepository) InsertIfAbsent(ctx context.Context, fp models.Fingerprint) (bool, error) {
	query := `
		INSERT INTO stickers (file_id, emoji_code, collection_id)
		SELECT $1, $2, $3
		WHERE NOT EXISTS (
			SELECT 1 FROM stickers
			WHERE file_id = $1
			   OR (collection_id = $3 AND emoji_code = $2 AND $3 <> '')
		)`

	result, err := r.db.Exec(ctx, query, fp.FileID, fp.EmojiCode, fp.CollectionID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return false, nil
		}
		return false, apperrors.Storage("catalog.insert", err)
	}

	return result.RowsAffected() == 1, nil
}

// Contains reports whether a sticker with the given file id is known.
func (r *catalogRepository) Contains(ctx context.Context, fileID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM stickers WHERE file_id = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, fileID).Scan(&exists); err != nil {
		return false, apperrors.Storage("catalog.contains", err)
	}
	return exists, nil
}

// SelectReply draws uniformly over the filtered candidate set at call
// time. There is no "last chosen" state; repeated calls are independent.
func (r *catalogRepository) SelectReply(ctx context.Context, emojiCode, excludeCollection string) (string, error) {
	query := `
		SELECT file_id FROM stickers
		WHERE emoji_code = $1 AND collection_id <> $2
		ORDER BY random()
		LIMIT 1`

	var fileID string
	err := r.db.QueryRow(ctx, query, emojiCode, excludeCollection).Scan(&fileID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.ErrNoMatch
		}
		return "", apperrors.Storage("catalog.select_reply", err)
	}
	return fileID, nil
}

// SelectAny draws uniformly over the whole catalog, ignoring emoji and
// collection filters.
func (r *catalogRepository) SelectAny(ctx context.Context) (string, error) {
	query := `SELECT file_id FROM stickers ORDER BY random() LIMIT 1`

	var fileID string
	err := r.db.QueryRow(ctx, query).Scan(&fileID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.ErrNoMatch
		}
		return "", apperrors.Storage("catalog.select_any", err)
	}
	return fileID, nil
}

// CountDistinct counts distinct values of a whitelisted column.
func (r *catalogRepository) CountDistinct(ctx context.Context, column CatalogColumn) (int64, error) {
	col, ok := catalogColumns[column]
	if !ok {
		return 0, fmt.Errorf("unknown catalog column: %s", column)
	}

	query := fmt.Sprintf(`SELECT COUNT(DISTINCT %s) FROM stickers`, col)
	if column == ColumnCollectionID {
		// Stickers without a collection are not a collection.
		query += ` WHERE collection_id <> ''`
	}

	var count int64
	if err := r.db.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, apperrors.Storage("catalog.count_distinct", err)
	}
	return count, nil
}

// Ensure catalogRepository implements CatalogRepository at compile time.
var _ CatalogRepository = (*catalogRepository)(nil)
