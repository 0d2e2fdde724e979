package repositories

import (
	"context"

	"github.com/stickerlab/sticker-engine/pkg/apperrors"
	"github.com/stickerlab/sticker-engine/pkg/database"
)

// CollectionRepository is the ledger of collections whose full sibling
// set has already been pulled from the transport. It tracks whole packs;
// individual stickers live in the catalog.
type CollectionRepository interface {
	// Claim marks the collection as ingested. Returns true for the one
	// caller that claimed it first; concurrent claimers get false and
	// must not re-fetch the pack.
	Claim(ctx context.Context, collectionID string) (bool, error)
	// Release undoes a claim after a wholly failed ingestion so a later
	// inbound message retries the pack.
	Release(ctx context.Context, collectionID string) error
	// IsIngested reports whether the collection has been claimed.
	IsIngested(ctx context.Context, collectionID string) (bool, error)
}

// collectionRepository implements CollectionRepository using PostgreSQL.
type collectionRepository struct {
	db *database.DB
}

// NewCollectionRepository creates a new collection repository.
func NewCollectionRepository(db *database.DB) CollectionRepository {
	return &collectionRepository{db: db}
}

// Claim is a single conditional insert; the primary key arbitrates
// concurrent claimers.
func (r *collectionRepository) Claim(ctx context.Context, collectionID string) (bool, error) {
	query := `
		INSERT INTO ingested_collections (collection_id)
		VALUES ($1)
		ON CONFLICT (collection_id) DO NOTHING`

	result, err := r.db.Exec(ctx, query, collectionID)
	if err != nil {
		return false, apperrors.Storage("collection.claim", err)
	}
	return result.RowsAffected() == 1, nil
}

func (r *collectionRepository) Release(ctx context.Context, collectionID string) error {
	query := `DELETE FROM ingested_collections WHERE collection_id = $1`

	if _, err := r.db.Exec(ctx, query, collectionID); err != nil {
		return apperrors.Storage("collection.release", err)
	}
	return nil
}

func (r *collectionRepository) IsIngested(ctx context.Context, collectionID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM ingested_collections WHERE collection_id = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, collectionID).Scan(&exists); err != nil {
		return false, apperrors.Storage("collection.is_ingested", err)
	}
	return exists, nil
}

// Ensure collectionRepository implements CollectionRepository at compile time.
var _ CollectionRepository = (*collectionRepository)(nil)
