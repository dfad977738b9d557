// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for testing.
// It applies the same validation and ownership rules as SQLStore.
type MockStore struct {
	mu     sync.RWMutex
	users  map[int64]*User // keyed by telegram id
	tasks  map[int64]*Task // keyed by task id
	nextID int64
	now    func() time.Time

	// PingErr, when set, is returned by Ping.
	PingErr error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		users: make(map[int64]*User),
		tasks: make(map[int64]*Task),
		now:   time.Now,
	}
}

// UpsertUser stores or updates a user.
func (m *MockStore) UpsertUser(ctx context.Context, user *User) error {
	if user == nil || user.TelegramID <= 0 {
		return fmt.Errorf("%w: telegram id must be positive", ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC().Truncate(time.Second)
	existing, ok := m.users[user.TelegramID]
	if !ok {
		m.users[user.TelegramID] = &User{
			TelegramID: user.TelegramID,
			Username:   copyString(user.Username),
			FirstName:  copyString(user.FirstName),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return nil
	}

	existing.Username = copyString(user.Username)
	existing.FirstName = copyString(user.FirstName)
	existing.UpdatedAt = now
	return nil
}

// GetUser retrieves a user by Telegram id.
func (m *MockStore) GetUser(ctx context.Context, telegramID int64) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[telegramID]
	if !ok {
		return nil, ErrNotFound
	}

	result := *u
	result.Username = copyString(u.Username)
	result.FirstName = copyString(u.FirstName)
	return &result, nil
}

// CreateTask stores a new task for ownerID.
func (m *MockStore) CreateTask(ctx context.Context, ownerID int64, text, date string) (*Task, error) {
	text, err := ValidateText(text)
	if err != nil {
		return nil, err
	}
	date, err = ValidateDate(date)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[ownerID]; !ok {
		return nil, fmt.Errorf("%w: unknown owner %d", ErrInvalidInput, ownerID)
	}

	m.nextID++
	t := &Task{
		ID:        m.nextID,
		OwnerID:   ownerID,
		Text:      text,
		Date:      date,
		UpdatedAt: m.now().UTC().Truncate(time.Second),
	}
	m.tasks[t.ID] = t

	result := *t
	return &result, nil
}

// ListTasks returns the owner's tasks for date, newest first.
func (m *MockStore) ListTasks(ctx context.Context, ownerID int64, date string) ([]*Task, error) {
	date, err := ValidateDate(date)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Task, 0)
	for _, t := range m.tasks {
		if t.OwnerID == ownerID && t.Date == date {
			c := *t
			result = append(result, &c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID > result[j].ID
	})

	return result, nil
}

// UpdateTask replaces the text of the owner's task.
func (m *MockStore) UpdateTask(ctx context.Context, ownerID, taskID int64, text string) (*Task, error) {
	text, err := ValidateText(text)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.ownedTask(ownerID, taskID)
	if !ok {
		return nil, ErrNotFound
	}

	t.Text = text
	t.UpdatedAt = m.now().UTC().Truncate(time.Second)

	result := *t
	return &result, nil
}

// ToggleTask flips done on the owner's task.
func (m *MockStore) ToggleTask(ctx context.Context, ownerID, taskID int64) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.ownedTask(ownerID, taskID)
	if !ok {
		return nil, ErrNotFound
	}

	t.Done = !t.Done
	t.UpdatedAt = m.now().UTC().Truncate(time.Second)

	result := *t
	return &result, nil
}

// DeleteTask removes the owner's task.
func (m *MockStore) DeleteTask(ctx context.Context, ownerID, taskID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ownedTask(ownerID, taskID); !ok {
		return ErrNotFound
	}

	delete(m.tasks, taskID)
	return nil
}

// Ping returns PingErr.
func (m *MockStore) Ping(ctx context.Context) error {
	return m.PingErr
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error {
	return nil
}

// ownedTask must be called with m.mu held.
func (m *MockStore) ownedTask(ownerID, taskID int64) (*Task, bool) {
	t, ok := m.tasks[taskID]
	if !ok || t.OwnerID != ownerID {
		return nil, false
	}
	return t, true
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Compile-time checks that both implementations satisfy Store.
var (
	_ Store = (*MockStore)(nil)
	_ Store = (*SQLStore)(nil)
)
