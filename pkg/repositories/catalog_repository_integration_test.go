//go:build integration

package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/stickerlab/sticker-engine/pkg/apperrors"
	"github.com/stickerlab/sticker-engine/pkg/models"
	"github.com/stickerlab/sticker-engine/pkg/testhelpers"
)

func setupCatalogTest(t *testing.T) CatalogRepository {
	t.Helper()

	tdb := testhelpers.GetTestDB(t)
	tdb.TruncateAll(t)
	return NewCatalogRepository(tdb.DB)
}

func mustInsert(t *testing.T, repo CatalogRepository, fileID, emojiCode, collectionID string) {
	t.Helper()

	inserted, err := repo.InsertIfAbsent(context.Background(), models.Fingerprint{
		FileID:       fileID,
		EmojiCode:    emojiCode,
		CollectionID: collectionID,
	})
	if err != nil {
		t.Fatalf("InsertIfAbsent(%s) failed: %v", fileID, err)
	}
	if !inserted {
		t.Fatalf("InsertIfAbsent(%s) reported duplicate for a fresh sticker", fileID)
	}
}

func TestCatalogRepository_InsertIfAbsent_DedupByFileID(t *testing.T) {
	repo := setupCatalogTest(t)
	ctx := context.Background()

	mustInsert(t, repo, "file-1", ":grinning_face:", "pack1")

	// Same file id, different emoji and collection: still a duplicate.
	inserted, err := repo.InsertIfAbsent(ctx, models.Fingerprint{
		FileID:       "file-1",
		EmojiCode:    ":winking_face:",
		CollectionID: "pack2",
	})
	if err != nil {
		t.Fatalf("InsertIfAbsent failed: %v", err)
	}
	if inserted {
		t.Error("Expected duplicate file id to be rejected")
	}
}

func TestCatalogRepository_InsertIfAbsent_DedupByCollectionEmojiPair(t *testing.T) {
	repo := setupCatalogTest(t)
	ctx := context.Background()

	mustInsert(t, repo, "file-1", ":grinning_face:", "pack1")

	// New file id but the (collection, emoji) slot is taken.
	inserted, err := repo.InsertIfAbsent(ctx, models.Fingerprint{
		FileID:       "file-2",
		EmojiCode:    ":grinning_face:",
		CollectionID: "pack1",
	})
	if err != nil {
		t.Fatalf("InsertIfAbsent failed: %v", err)
	}
	if inserted {
		t.Error("Expected (collection, emoji) duplicate to be rejected")
	}

	// Same emoji in a different collection is fine.
	mustInsert(t, repo, "file-3", ":grinning_face:", "pack2")
}

func TestCatalogRepository_InsertIfAbsent_NoCollectionDedupsByFileOnly(t *testing.T) {
	repo := setupCatalogTest(t)

	// Stickers outside any collection may repeat an emoji freely.
	mustInsert(t, repo, "loose-1", ":red_heart:", models.NoCollection)
	mustInsert(t, repo, "loose-2", ":red_heart:", models.NoCollection)
}

func TestCatalogRepository_SelectReply_ExcludesCollection(t *testing.T) {
	repo := setupCatalogTest(t)
	ctx := context.Background()

	mustInsert(t, repo, "a-1", ":grinning_face:", "packA")
	mustInsert(t, repo, "b-1", ":grinning_face:", "packB")

	// Only packB remains once packA is excluded; every draw must land there.
	for i := 0; i < 10; i++ {
		fileID, err := repo.SelectReply(ctx, ":grinning_face:", "packA")
		if err != nil {
			t.Fatalf("SelectReply failed: %v", err)
		}
		if fileID != "b-1" {
			t.Fatalf("Expected b-1, got %s", fileID)
		}
	}
}

func TestCatalogRepository_SelectReply_NoMatch(t *testing.T) {
	repo := setupCatalogTest(t)
	ctx := context.Background()

	mustInsert(t, repo, "a-1", ":grinning_face:", "packA")

	_, err := repo.SelectReply(ctx, ":grinning_face:", "packA")
	if !errors.Is(err, apperrors.ErrNoMatch) {
		t.Errorf("Expected ErrNoMatch when the only candidate is excluded, got %v", err)
	}

	_, err = repo.SelectReply(ctx, ":unknown_emoji:", "")
	if !errors.Is(err, apperrors.ErrNoMatch) {
		t.Errorf("Expected ErrNoMatch for unknown emoji, got %v", err)
	}
}

func TestCatalogRepository_SelectAny(t *testing.T) {
	repo := setupCatalogTest(t)
	ctx := context.Background()

	_, err := repo.SelectAny(ctx)
	if !errors.Is(err, apperrors.ErrNoMatch) {
		t.Fatalf("Expected ErrNoMatch on empty catalog, got %v", err)
	}

	mustInsert(t, repo, "only", ":grinning_face:", "packA")

	fileID, err := repo.SelectAny(ctx)
	if err != nil {
		t.Fatalf("SelectAny failed: %v", err)
	}
	if fileID != "only" {
		t.Errorf("Expected only, got %s", fileID)
	}
}

func TestCatalogRepository_CountDistinct(t *testing.T) {
	repo := setupCatalogTest(t)
	ctx := context.Background()

	mustInsert(t, repo, "a-1", ":grinning_face:", "packA")
	mustInsert(t, repo, "a-2", ":winking_face:", "packA")
	mustInsert(t, repo, "b-1", ":grinning_face:", "packB")
	mustInsert(t, repo, "loose-1", ":red_heart:", models.NoCollection)

	collections, err := repo.CountDistinct(ctx, ColumnCollectionID)
	if err != nil {
		t.Fatalf("CountDistinct(collection) failed: %v", err)
	}
	if collections != 2 {
		t.Errorf("Expected 2 collections (sentinel excluded), got %d", collections)
	}

	emoji, err := repo.CountDistinct(ctx, ColumnEmojiCode)
	if err != nil {
		t.Fatalf("CountDistinct(emoji) failed: %v", err)
	}
	if emoji != 3 {
		t.Errorf("Expected 3 distinct emoji, got %d", emoji)
	}
}

func TestCatalogRepository_Contains(t *testing.T) {
	repo := setupCatalogTest(t)
	ctx := context.Background()

	mustInsert(t, repo, "a-1", ":grinning_face:", "packA")

	found, err := repo.Contains(ctx, "a-1")
	if err != nil {
		t.Fatalf("Contains failed: %v", err)
	}
	if !found {
		t.Error("Expected a-1 to be present")
	}

	found, err = repo.Contains(ctx, "missing")
	if err != nil {
		t.Fatalf("Contains failed: %v", err)
	}
	if found {
		t.Error("Expected missing to be absent")
	}
}

func TestCatalogRepository_ConcurrentInsert_SingleWinner(t *testing.T) {
	repo := setupCatalogTest(t)
	ctx := context.Background()

	const workers = 16
	results := make(chan bool, workers)
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		go func() {
			inserted, err := repo.InsertIfAbsent(ctx, models.Fingerprint{
				FileID:       "contested",
				EmojiCode:    ":grinning_face:",
				CollectionID: "packA",
			})
			results <- inserted
			errs <- err
		}()
	}

	winners := 0
	for i := 0; i < workers; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("Concurrent InsertIfAbsent failed: %v", err)
		}
		if <-results {
			winners++
		}
	}

	if winners != 1 {
		t.Errorf("Expected exactly 1 insert to win, got %d", winners)
	}
}
