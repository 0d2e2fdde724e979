//go:build integration

package repositories

import (
	"context"
	"sync"
	"testing"

	"github.com/stickerlab/sticker-engine/pkg/testhelpers"
)

func setupCollectionTest(t *testing.T) CollectionRepository {
	t.Helper()

	tdb := testhelpers.GetTestDB(t)
	tdb.TruncateAll(t)
	return NewCollectionRepository(tdb.DB)
}

func TestCollectionRepository_Claim(t *testing.T) {
	repo := setupCollectionTest(t)
	ctx := context.Background()

	claimed, err := repo.Claim(ctx, "pack1")
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if !claimed {
		t.Fatal("Expected first claim to succeed")
	}

	claimed, err = repo.Claim(ctx, "pack1")
	if err != nil {
		t.Fatalf("Second Claim failed: %v", err)
	}
	if claimed {
		t.Error("Expected second claim of the same collection to lose")
	}

	ingested, err := repo.IsIngested(ctx, "pack1")
	if err != nil {
		t.Fatalf("IsIngested failed: %v", err)
	}
	if !ingested {
		t.Error("Expected pack1 to be recorded as ingested")
	}
}

func TestCollectionRepository_Release(t *testing.T) {
	repo := setupCollectionTest(t)
	ctx := context.Background()

	if _, err := repo.Claim(ctx, "pack1"); err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if err := repo.Release(ctx, "pack1"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	// After release the collection can be claimed again.
	claimed, err := repo.Claim(ctx, "pack1")
	if err != nil {
		t.Fatalf("Claim after release failed: %v", err)
	}
	if !claimed {
		t.Error("Expected claim to succeed after release")
	}
}

func TestCollectionRepository_ConcurrentClaim_SingleWinner(t *testing.T) {
	repo := setupCollectionTest(t)
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan bool, workers)
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := repo.Claim(ctx, "contested")
			results <- claimed
			errs <- err
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Concurrent Claim failed: %v", err)
		}
	}

	winners := 0
	for claimed := range results {
		if claimed {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("Expected exactly 1 claim to win, got %d", winners)
	}
}
