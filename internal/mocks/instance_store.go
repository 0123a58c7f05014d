package mocks

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/calmhive/taskmirror/internal/domain"
	"github.com/calmhive/taskmirror/internal/store"
)

// MockInstanceStore implements store.InstanceStore with an in-memory map.
// Create enforces the one-instance-per-task-per-date rule the way the
// database unique constraint does.
type MockInstanceStore struct {
	mu        sync.Mutex
	instances map[uuid.UUID]*domain.TaskInstance

	// Custom behavior overrides
	CreateFn       func(ctx context.Context, inst *domain.TaskInstance) error
	ListSyncableFn func(ctx context.Context, userID uuid.UUID) ([]*domain.TaskInstance, error)

	// CreateCount tracks successful inserts across calls.
	CreateCount int
}

var _ store.InstanceStore = (*MockInstanceStore)(nil)

// NewMockInstanceStore creates an empty in-memory instance store.
func NewMockInstanceStore() *MockInstanceStore {
	return &MockInstanceStore{instances: make(map[uuid.UUID]*domain.TaskInstance)}
}

// Seed inserts instances directly, bypassing the uniqueness check.
func (m *MockInstanceStore) Seed(instances ...*domain.TaskInstance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inst := range instances {
		m.instances[inst.ID] = inst
	}
}

// All returns every stored instance.
func (m *MockInstanceStore) All() []*domain.TaskInstance {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.TaskInstance, 0, len(m.instances))
	for _, inst := range m.instances {
		out = append(out, inst)
	}
	return out
}

func (m *MockInstanceStore) Create(ctx context.Context, inst *domain.TaskInstance) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, inst)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.instances {
		if existing.TaskID == inst.TaskID && existing.InstanceDate.Equal(inst.InstanceDate) {
			return store.ErrInstanceExists
		}
	}
	m.instances[inst.ID] = inst
	m.CreateCount++
	return nil
}

func (m *MockInstanceStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.TaskInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	if !ok {
		return nil, store.ErrInstanceNotFound
	}
	return inst, nil
}

func (m *MockInstanceStore) Update(ctx context.Context, inst *domain.TaskInstance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.instances[inst.ID]; !ok {
		return store.ErrInstanceNotFound
	}
	m.instances[inst.ID] = inst
	return nil
}

func (m *MockInstanceStore) ListByTask(
	ctx context.Context,
	taskID uuid.UUID,
	from, to time.Time,
) ([]*domain.TaskInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.TaskInstance
	for _, inst := range m.instances {
		if inst.TaskID != taskID {
			continue
		}
		if inst.InstanceDate.Before(from) || inst.InstanceDate.After(to) {
			continue
		}
		out = append(out, inst)
	}
	return out, nil
}

func (m *MockInstanceStore) ListSyncable(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.TaskInstance, error) {
	if m.ListSyncableFn != nil {
		return m.ListSyncableFn(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.TaskInstance
	for _, inst := range m.instances {
		if inst.UserID == userID {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (m *MockInstanceStore) DeleteOlderThan(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for id, inst := range m.instances {
		if !inst.InstanceDate.Before(cutoff) {
			continue
		}
		if inst.Status != domain.InstanceStatusCompleted && inst.Status != domain.InstanceStatusSkipped {
			continue
		}
		delete(m.instances, id)
		deleted++
	}
	return deleted, nil
}

// WithTx returns the same store; the mock has no transaction semantics.
func (m *MockInstanceStore) WithTx(tx *sql.Tx) store.InstanceStore {
	return m
}
