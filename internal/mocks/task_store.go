package mocks

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"

	"github.com/calmhive/taskmirror/internal/domain"
	"github.com/calmhive/taskmirror/internal/store"
)

// MockTaskStore implements store.TaskStore with an in-memory map.
type MockTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task

	// Custom behavior overrides
	CreateFn               func(ctx context.Context, task *domain.Task) error
	GetByIDFn              func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	ListPendingRecurringFn func(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error)
	ListSyncableOneOffFn   func(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error)
}

var _ store.TaskStore = (*MockTaskStore)(nil)

// NewMockTaskStore creates an empty in-memory task store.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

// Seed inserts tasks directly, bypassing validation.
func (m *MockTaskStore) Seed(tasks ...*domain.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tasks {
		m.tasks[t.ID] = t
	}
}

func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}
	if err := task.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.ID]; ok {
		return store.ErrDuplicate
	}
	m.tasks[task.ID] = task
	return nil
}

func (m *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return task, nil
}

func (m *MockTaskStore) Update(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.ID]; !ok {
		return store.ErrTaskNotFound
	}
	m.tasks[task.ID] = task
	return nil
}

func (m *MockTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *MockTaskStore) ListPendingRecurring(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.Task, error) {
	if m.ListPendingRecurringFn != nil {
		return m.ListPendingRecurringFn(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Task
	for _, t := range m.tasks {
		if t.UserID == userID && t.IsRecurring && t.Status == domain.TaskStatusPending {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MockTaskStore) ListSyncableOneOff(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.Task, error) {
	if m.ListSyncableOneOffFn != nil {
		return m.ListSyncableOneOffFn(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Task
	for _, t := range m.tasks {
		if t.UserID != userID || t.IsRecurring || t.Encrypted {
			continue
		}
		if t.Status != domain.TaskStatusPending && t.Status != domain.TaskStatusCompleted {
			continue
		}
		if t.ScheduledDate == nil || t.ScheduledTime == nil {
			continue
		}
		if m.hasChildrenLocked(t.ID) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *MockTaskStore) HasChildren(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasChildrenLocked(id), nil
}

func (m *MockTaskStore) hasChildrenLocked(id uuid.UUID) bool {
	for _, t := range m.tasks {
		if t.ParentID != nil && *t.ParentID == id {
			return true
		}
	}
	return false
}

func (m *MockTaskStore) ListUserIDsWithPendingRecurring(
	ctx context.Context,
) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	for _, t := range m.tasks {
		if t.IsRecurring && t.Status == domain.TaskStatusPending && !seen[t.UserID] {
			seen[t.UserID] = true
			out = append(out, t.UserID)
		}
	}
	return out, nil
}

// WithTx returns the same store; the mock has no transaction semantics.
func (m *MockTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return m
}
