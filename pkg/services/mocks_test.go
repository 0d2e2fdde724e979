package services

import (
	"context"
	"time"

	"github.com/stickerlab/sticker-engine/pkg/apperrors"
	"github.com/stickerlab/sticker-engine/pkg/models"
	"github.com/stickerlab/sticker-engine/pkg/repositories"
)

// mockCatalogRepository is an in-memory stand-in for the catalog table.
// It mirrors the real dedup contract (file id and per-collection emoji
// uniqueness) so idempotency tests exercise the actual rule.
type mockCatalogRepository struct {
	rows map[string]models.Fingerprint // by file id

	insertErrFor  map[string]error // per file id
	selectReplyID string
	selectErr     error
	selectAnyID   string
	selectAnyErr  error
	distinct      map[repositories.CatalogColumn]int64
	countErr      error

	insertCalls      []models.Fingerprint
	selectReplyCalls int
	selectAnyCalls   int
	lastEmoji        string
	lastExclude      string
}

func newMockCatalog() *mockCatalogRepository {
	return &mockCatalogRepository{
		rows:         map[string]models.Fingerprint{},
		insertErrFor: map[string]error{},
		distinct:     map[repositories.CatalogColumn]int64{},
	}
}

func (m *mockCatalogRepository) InsertIfAbsent(ctx context.Context, fp models.Fingerprint) (bool, error) {
	m.insertCalls = append(m.insertCalls, fp)
	if err := m.insertErrFor[fp.FileID]; err != nil {
		return false, err
	}
	if _, ok := m.rows[fp.FileID]; ok {
		return false, nil
	}
	if fp.CollectionID != models.NoCollection {
		for _, row := range m.rows {
			if row.CollectionID == fp.CollectionID && row.EmojiCode == fp.EmojiCode {
				return false, nil
			}
		}
	}
	m.rows[fp.FileID] = fp
	return true, nil
}

func (m *mockCatalogRepository) Contains(ctx context.Context, fileID string) (bool, error) {
	_, ok := m.rows[fileID]
	return ok, nil
}

func (m *mockCatalogRepository) SelectReply(ctx context.Context, emojiCode, excludeCollection string) (string, error) {
	m.selectReplyCalls++
	m.lastEmoji = emojiCode
	m.lastExclude = excludeCollection
	if m.selectErr != nil {
		return "", m.selectErr
	}
	if m.selectReplyID == "" {
		return "", apperrors.ErrNoMatch
	}
	return m.selectReplyID, nil
}

func (m *mockCatalogRepository) SelectAny(ctx context.Context) (string, error) {
	m.selectAnyCalls++
	if m.selectAnyErr != nil {
		return "", m.selectAnyErr
	}
	if m.selectAnyID == "" {
		return "", apperrors.ErrNoMatch
	}
	return m.selectAnyID, nil
}

func (m *mockCatalogRepository) CountDistinct(ctx context.Context, column repositories.CatalogColumn) (int64, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.distinct[column], nil
}

// mockCollectionRepository tracks claimed collection ids in memory.
type mockCollectionRepository struct {
	claimed map[string]bool

	claimErr   error
	releaseErr error

	claimCalls   []string
	releaseCalls []string
}

func newMockCollections() *mockCollectionRepository {
	return &mockCollectionRepository{claimed: map[string]bool{}}
}

func (m *mockCollectionRepository) Claim(ctx context.Context, collectionID string) (bool, error) {
	m.claimCalls = append(m.claimCalls, collectionID)
	if m.claimErr != nil {
		return false, m.claimErr
	}
	if m.claimed[collectionID] {
		return false, nil
	}
	m.claimed[collectionID] = true
	return true, nil
}

func (m *mockCollectionRepository) Release(ctx context.Context, collectionID string) error {
	m.releaseCalls = append(m.releaseCalls, collectionID)
	if m.releaseErr != nil {
		return m.releaseErr
	}
	delete(m.claimed, collectionID)
	return nil
}

func (m *mockCollectionRepository) IsIngested(ctx context.Context, collectionID string) (bool, error) {
	return m.claimed[collectionID], nil
}

// mockDailyStatsRepository emulates the ensure/increment contract of the
// daily table.
type mockDailyStatsRepository struct {
	rowExists bool
	counters  map[repositories.CounterField]int64

	ensureErr    error
	incrementErr error
	getErr       error

	ensureCalls    int
	incrementCalls int
}

func newMockDaily() *mockDailyStatsRepository {
	return &mockDailyStatsRepository{counters: map[repositories.CounterField]int64{}}
}

func (m *mockDailyStatsRepository) EnsureRow(ctx context.Context, day time.Time) error {
	m.ensureCalls++
	if m.ensureErr != nil {
		return m.ensureErr
	}
	m.rowExists = true
	return nil
}

func (m *mockDailyStatsRepository) Increment(ctx context.Context, day time.Time, field repositories.CounterField) error {
	m.incrementCalls++
	if m.incrementErr != nil {
		return m.incrementErr
	}
	if !m.rowExists {
		return apperrors.ErrNotFound
	}
	m.counters[field]++
	return nil
}

func (m *mockDailyStatsRepository) Get(ctx context.Context, day time.Time, field repositories.CounterField) (int64, error) {
	if m.getErr != nil {
		return 0, m.getErr
	}
	if !m.rowExists {
		return 0, apperrors.ErrNotFound
	}
	return m.counters[field], nil
}

func (m *mockDailyStatsRepository) GetRecord(ctx context.Context, day time.Time) (*models.DailyRecord, error) {
	if !m.rowExists {
		return nil, apperrors.ErrNotFound
	}
	return &models.DailyRecord{
		Day:           day,
		CommandsUse:   m.counters[repositories.FieldCommandsUse],
		StickersSent:  m.counters[repositories.FieldStickersSent],
		OtherMessages: m.counters[repositories.FieldOtherMessages],
	}, nil
}

// mockUserStatsRepository emulates the ensure/increment contract of the
// user table for a single user.
type mockUserStatsRepository struct {
	rowExists bool
	counters  map[repositories.CounterField]int64
	userCount int64
	totalSent int64

	ensureErr    error
	incrementErr error

	ensureCalls    int
	incrementCalls int
	lastUserID     int64
}

func newMockUsers() *mockUserStatsRepository {
	return &mockUserStatsRepository{counters: map[repositories.CounterField]int64{}}
}

func (m *mockUserStatsRepository) EnsureRow(ctx context.Context, userID int64, day time.Time) error {
	m.ensureCalls++
	m.lastUserID = userID
	if m.ensureErr != nil {
		return m.ensureErr
	}
	m.rowExists = true
	return nil
}

func (m *mockUserStatsRepository) Increment(ctx context.Context, userID int64, field repositories.CounterField, day time.Time) error {
	m.incrementCalls++
	m.lastUserID = userID
	if m.incrementErr != nil {
		return m.incrementErr
	}
	if !m.rowExists {
		return apperrors.ErrNotFound
	}
	m.counters[field]++
	return nil
}

func (m *mockUserStatsRepository) Get(ctx context.Context, userID int64, field repositories.CounterField) (int64, error) {
	if !m.rowExists {
		return 0, apperrors.ErrNotFound
	}
	return m.counters[field], nil
}

func (m *mockUserStatsRepository) GetRecord(ctx context.Context, userID int64) (*models.UserRecord, error) {
	if !m.rowExists {
		return nil, apperrors.ErrNotFound
	}
	return &models.UserRecord{UserID: userID}, nil
}

func (m *mockUserStatsRepository) CountUsers(ctx context.Context) (int64, error) {
	return m.userCount, nil
}

func (m *mockUserStatsRepository) SumStickersSent(ctx context.Context) (int64, error) {
	return m.totalSent, nil
}

// mockSnapshotCache records cache traffic.
type mockSnapshotCache struct {
	snapshot *models.StatsSnapshot

	getCalls        int
	setCalls        int
	invalidateCalls int
}

func (m *mockSnapshotCache) Get(ctx context.Context) (*models.StatsSnapshot, bool) {
	m.getCalls++
	if m.snapshot == nil {
		return nil, false
	}
	return m.snapshot, true
}

func (m *mockSnapshotCache) Set(ctx context.Context, snapshot *models.StatsSnapshot) {
	m.setCalls++
	m.snapshot = snapshot
}

func (m *mockSnapshotCache) Invalidate(ctx context.Context) {
	m.invalidateCalls++
	m.snapshot = nil
}

// mockFetcher serves a fixed sibling set per collection.
type mockFetcher struct {
	collections map[string][]models.IncomingSticker
	err         error

	calls []string
}

func (m *mockFetcher) Collection(ctx context.Context, collectionID string) ([]models.IncomingSticker, error) {
	m.calls = append(m.calls, collectionID)
	if m.err != nil {
		return nil, m.err
	}
	return m.collections[collectionID], nil
}

// Interface guards for the mocks.
var (
	_ repositories.CatalogRepository    = (*mockCatalogRepository)(nil)
	_ repositories.CollectionRepository = (*mockCollectionRepository)(nil)
	_ repositories.DailyStatsRepository = (*mockDailyStatsRepository)(nil)
	_ repositories.UserStatsRepository  = (*mockUserStatsRepository)(nil)
	_ SnapshotCache                     = (*mockSnapshotCache)(nil)
	_ CollectionFetcher                 = (*mockFetcher)(nil)
)
