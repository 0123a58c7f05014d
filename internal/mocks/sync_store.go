package mocks

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"

	"github.com/calmhive/taskmirror/internal/domain"
	"github.com/calmhive/taskmirror/internal/store"
)

// MockSyncRecordStore implements store.SyncRecordStore with an in-memory map.
type MockSyncRecordStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*domain.SyncRecord

	// Custom behavior overrides
	CreateFn func(ctx context.Context, rec *domain.SyncRecord) error
	DeleteFn func(ctx context.Context, id uuid.UUID) error
}

var _ store.SyncRecordStore = (*MockSyncRecordStore)(nil)

// NewMockSyncRecordStore creates an empty in-memory sync record store.
func NewMockSyncRecordStore() *MockSyncRecordStore {
	return &MockSyncRecordStore{records: make(map[uuid.UUID]*domain.SyncRecord)}
}

// Seed inserts records directly.
func (m *MockSyncRecordStore) Seed(records ...*domain.SyncRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.records[r.ID] = r
	}
}

// All returns every stored record.
func (m *MockSyncRecordStore) All() []*domain.SyncRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.SyncRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	return out
}

func (m *MockSyncRecordStore) Create(ctx context.Context, rec *domain.SyncRecord) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, rec)
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	return nil
}

func (m *MockSyncRecordStore) Update(ctx context.Context, rec *domain.SyncRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.ID]; !ok {
		return store.ErrSyncRecordNotFound
	}
	m.records[rec.ID] = rec
	return nil
}

func (m *MockSyncRecordStore) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return store.ErrSyncRecordNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *MockSyncRecordStore) GetByTask(
	ctx context.Context,
	taskID uuid.UUID,
) (*domain.SyncRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.TaskID != nil && *r.TaskID == taskID {
			return r, nil
		}
	}
	return nil, store.ErrSyncRecordNotFound
}

func (m *MockSyncRecordStore) GetByInstance(
	ctx context.Context,
	instanceID uuid.UUID,
) (*domain.SyncRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.InstanceID != nil && *r.InstanceID == instanceID {
			return r, nil
		}
	}
	return nil, store.ErrSyncRecordNotFound
}

func (m *MockSyncRecordStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.SyncRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.SyncRecord
	for _, r := range m.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockSyncRecordStore) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	recs, _ := m.ListByUser(ctx, userID)
	return len(recs), nil
}

func (m *MockSyncRecordStore) DeleteByUser(
	ctx context.Context,
	userID uuid.UUID,
) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for id, r := range m.records {
		if r.UserID == userID {
			delete(m.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// WithTx returns the same store; the mock has no transaction semantics.
func (m *MockSyncRecordStore) WithTx(tx *sql.Tx) store.SyncRecordStore {
	return m
}

// MockSyncSettingsStore implements store.SyncSettingsStore with an
// in-memory map.
type MockSyncSettingsStore struct {
	mu       sync.Mutex
	settings map[uuid.UUID]*domain.SyncSettings

	// Custom behavior overrides
	GetFn    func(ctx context.Context, userID uuid.UUID) (*domain.SyncSettings, error)
	UpsertFn func(ctx context.Context, settings *domain.SyncSettings) error
}

var _ store.SyncSettingsStore = (*MockSyncSettingsStore)(nil)

// NewMockSyncSettingsStore creates an empty in-memory settings store.
func NewMockSyncSettingsStore() *MockSyncSettingsStore {
	return &MockSyncSettingsStore{settings: make(map[uuid.UUID]*domain.SyncSettings)}
}

// Seed inserts settings rows directly.
func (m *MockSyncSettingsStore) Seed(settings ...*domain.SyncSettings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range settings {
		m.settings[s.UserID] = s
	}
}

func (m *MockSyncSettingsStore) Get(
	ctx context.Context,
	userID uuid.UUID,
) (*domain.SyncSettings, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settings[userID]
	if !ok {
		return nil, store.ErrSyncSettingsNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *MockSyncSettingsStore) Upsert(
	ctx context.Context,
	settings *domain.SyncSettings,
) error {
	if m.UpsertFn != nil {
		return m.UpsertFn(ctx, settings)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *settings
	m.settings[settings.UserID] = &copied
	return nil
}

// WithTx returns the same store; the mock has no transaction semantics.
func (m *MockSyncSettingsStore) WithTx(tx *sql.Tx) store.SyncSettingsStore {
	return m
}
