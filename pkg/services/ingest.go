package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/stickerlab/sticker-engine/pkg/apperrors"
	"github.com/stickerlab/sticker-engine/pkg/fingerprint"
	"github.com/stickerlab/sticker-engine/pkg/models"
	"github.com/stickerlab/sticker-engine/pkg/repositories"
)

// CollectionFetcher retrieves the full sibling set of a collection from
// the transport collaborator. The engine never talks to the chat
// platform directly.
type CollectionFetcher interface {
	Collection(ctx context.Context, collectionID string) ([]models.IncomingSticker, error)
}

// CollectionFetcherFunc adapts a plain function to CollectionFetcher.
type CollectionFetcherFunc func(ctx context.Context, collectionID string) ([]models.IncomingSticker, error)

// Collection calls f(ctx, collectionID).
func (f CollectionFetcherFunc) Collection(ctx context.Context, collectionID string) ([]models.IncomingSticker, error) {
	return f(ctx, collectionID)
}

// IngestService feeds stickers into the deduplicated catalog.
type IngestService interface {
	// IngestBatch fingerprints and stores every item of one collection.
	// Per-item failures do not abort the batch; the batch fails only if
	// no item could be stored. Returns how many rows were inserted.
	IngestBatch(ctx context.Context, collectionID string, items []models.IncomingSticker) (int, error)
	// IngestCollectionOnce pulls and ingests the collection's sibling set
	// unless some earlier event already did. Returns how many rows were
	// inserted (0 when the collection was already claimed).
	IngestCollectionOnce(ctx context.Context, collectionID string, fetch CollectionFetcher) (int, error)
}

// ingestService implements IngestService.
type ingestService struct {
	catalog      repositories.CatalogRepository
	collections  repositories.CollectionRepository
	cache        SnapshotCache
	queryTimeout time.Duration
	logger       *zap.Logger
}

// NewIngestService creates a new ingest service with dependencies.
func NewIngestService(
	catalog repositories.CatalogRepository,
	collections repositories.CollectionRepository,
	cache SnapshotCache,
	queryTimeout time.Duration,
	logger *zap.Logger,
) IngestService {
	return &ingestService{
		catalog:      catalog,
		collections:  collections,
		cache:        cache,
		queryTimeout: queryTimeout,
		logger:       logger,
	}
}

// IngestBatch continues best-effort past individual failures: the catalog
// is append-only and idempotent, so a skipped item is picked up the next
// time the collection is offered.
func (s *ingestService) IngestBatch(ctx context.Context, collectionID string, items []models.IncomingSticker) (int, error) {
	collectionID = fingerprint.NormalizeCollection(collectionID)

	inserted := 0
	failed := 0
	for _, item := range items {
		fp := fingerprint.FromSticker(item)
		if fp.CollectionID == models.NoCollection {
			fp.CollectionID = collectionID
		}

		opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
		ok, err := s.catalog.InsertIfAbsent(opCtx, fp)
		cancel()
		if err != nil {
			failed++
			s.logger.Warn("Failed to ingest sticker",
				zap.String("file_id", fp.FileID),
				zap.String("collection_id", collectionID),
				zap.Error(err))
			continue
		}
		if ok {
			inserted++
		}
	}

	if inserted > 0 {
		s.cache.Invalidate(ctx)
	}

	if failed > 0 && failed == len(items) {
		return 0, apperrors.Storage("ingest.batch",
			fmt.Errorf("all %d items of collection %q failed", failed, collectionID))
	}

	return inserted, nil
}

// IngestCollectionOnce applies the two-level dedup: the collection ledger
// decides whether the whole pack is pulled at all, the catalog dedupes
// the individual items.
func (s *ingestService) IngestCollectionOnce(ctx context.Context, collectionID string, fetch CollectionFetcher) (int, error) {
	collectionID = fingerprint.NormalizeCollection(collectionID)
	if collectionID == models.NoCollection {
		return 0, nil
	}

	claimCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	claimed, err := s.collections.Claim(claimCtx, collectionID)
	cancel()
	if err != nil {
		return 0, err
	}
	if !claimed {
		return 0, nil
	}

	items, err := fetch.Collection(ctx, collectionID)
	if err != nil {
		s.release(ctx, collectionID)
		return 0, fmt.Errorf("failed to fetch collection %q: %w", collectionID, err)
	}

	inserted, err := s.IngestBatch(ctx, collectionID, items)
	if err != nil {
		// Nothing of the pack made it in; give the claim back so a later
		// message retries.
		s.release(ctx, collectionID)
		return 0, err
	}

	s.logger.Info("Ingested collection",
		zap.String("collection_id", collectionID),
		zap.Int("items", len(items)),
		zap.Int("inserted", inserted))
	return inserted, nil
}

func (s *ingestService) release(ctx context.Context, collectionID string) {
	opCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	if err := s.collections.Release(opCtx, collectionID); err != nil {
		s.logger.Warn("Failed to release collection claim",
			zap.String("collection_id", collectionID),
			zap.Error(err))
	}
}

// Ensure ingestService implements IngestService at compile time.
var _ IngestService = (*ingestService)(nil)
