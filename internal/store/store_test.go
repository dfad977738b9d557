package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *SQLStore {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// eachStore runs fn against SQLStore and MockStore so both honor the same contract.
func eachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()
	t.Run("sqlite", func(t *testing.T) { fn(t, setupTestStore(t)) })
	t.Run("mock", func(t *testing.T) { fn(t, NewMockStore()) })
}

func ptr(s string) *string { return &s }

func seedUser(t *testing.T, s Store, id int64) {
	t.Helper()
	require.NoError(t, s.UpsertUser(context.Background(), &User{TelegramID: id}))
}

func TestStore_UpsertUser_Idempotent(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		require.NoError(t, s.UpsertUser(ctx, &User{TelegramID: 42, Username: ptr("alice"), FirstName: ptr("Alice")}))
		first, err := s.GetUser(ctx, 42)
		require.NoError(t, err)

		require.NoError(t, s.UpsertUser(ctx, &User{TelegramID: 42, Username: ptr("alice2")}))
		got, err := s.GetUser(ctx, 42)
		require.NoError(t, err)

		require.NotNil(t, got.Username)
		assert.Equal(t, "alice2", *got.Username)
		assert.Nil(t, got.FirstName, "absent first name overwrites with null")
		assert.Equal(t, first.CreatedAt, got.CreatedAt, "created_at preserved")
	})
}

func TestStore_UpsertUser_Invalid(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		assert.ErrorIs(t, s.UpsertUser(ctx, nil), ErrInvalidInput)
		assert.ErrorIs(t, s.UpsertUser(ctx, &User{TelegramID: 0}), ErrInvalidInput)
		assert.ErrorIs(t, s.UpsertUser(ctx, &User{TelegramID: -5}), ErrInvalidInput)
	})
}

func TestStore_GetUser_NotFound(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		_, err := s.GetUser(context.Background(), 999)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_CreateAndListTasks(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedUser(t, s, 7)

		created, err := s.CreateTask(ctx, 7, "  Buy milk  ", "2024-05-01")
		require.NoError(t, err)
		assert.Positive(t, created.ID)
		assert.Equal(t, int64(7), created.OwnerID)
		assert.Equal(t, "Buy milk", created.Text)
		assert.Equal(t, "2024-05-01", created.Date)
		assert.False(t, created.Done)

		tasks, err := s.ListTasks(ctx, 7, "2024-05-01")
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, created.ID, tasks[0].ID)
		assert.Equal(t, "Buy milk", tasks[0].Text)
	})
}

func TestStore_ListTasks_NewestFirst(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedUser(t, s, 7)

		var ids []int64
		for _, text := range []string{"first", "second", "third"} {
			task, err := s.CreateTask(ctx, 7, text, "2024-05-01")
			require.NoError(t, err)
			ids = append(ids, task.ID)
		}
		_, err := s.CreateTask(ctx, 7, "other day", "2024-05-02")
		require.NoError(t, err)

		tasks, err := s.ListTasks(ctx, 7, "2024-05-01")
		require.NoError(t, err)
		require.Len(t, tasks, 3)
		assert.Equal(t, ids[2], tasks[0].ID)
		assert.Equal(t, ids[1], tasks[1].ID)
		assert.Equal(t, ids[0], tasks[2].ID)
	})
}

func TestStore_ListTasks_Empty(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		tasks, err := s.ListTasks(context.Background(), 7, "2024-05-01")
		require.NoError(t, err)
		assert.NotNil(t, tasks)
		assert.Empty(t, tasks)
	})
}

func TestStore_CreateTask_Invalid(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedUser(t, s, 7)

		tests := []struct {
			name  string
			owner int64
			text  string
			date  string
		}{
			{"empty text", 7, "", "2024-05-01"},
			{"whitespace text", 7, " \t\n", "2024-05-01"},
			{"bad date format", 7, "x", "05/01/2024"},
			{"impossible date", 7, "x", "2024-02-30"},
			{"empty date", 7, "x", ""},
			{"unknown owner", 8, "x", "2024-05-01"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := s.CreateTask(ctx, tt.owner, tt.text, tt.date)
				assert.ErrorIs(t, err, ErrInvalidInput)
			})
		}

		tasks, err := s.ListTasks(ctx, 7, "2024-05-01")
		require.NoError(t, err)
		assert.Empty(t, tasks, "rejected creates must not persist anything")
	})
}

func TestStore_ListTasks_InvalidDate(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		_, err := s.ListTasks(context.Background(), 7, "tomorrow")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestStore_UpdateTask(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedUser(t, s, 7)
		task, err := s.CreateTask(ctx, 7, "draft", "2024-05-01")
		require.NoError(t, err)

		updated, err := s.UpdateTask(ctx, 7, task.ID, " final ")
		require.NoError(t, err)
		assert.Equal(t, "final", updated.Text)
		assert.Equal(t, task.Date, updated.Date)
		assert.Equal(t, task.Done, updated.Done)

		_, err = s.UpdateTask(ctx, 7, task.ID, "   ")
		assert.ErrorIs(t, err, ErrInvalidInput)

		_, err = s.UpdateTask(ctx, 7, task.ID+100, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_ToggleTask(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedUser(t, s, 7)
		task, err := s.CreateTask(ctx, 7, "toggle me", "2024-05-01")
		require.NoError(t, err)

		toggled, err := s.ToggleTask(ctx, 7, task.ID)
		require.NoError(t, err)
		assert.True(t, toggled.Done)
		assert.Equal(t, "toggle me", toggled.Text)

		toggled, err = s.ToggleTask(ctx, 7, task.ID)
		require.NoError(t, err)
		assert.False(t, toggled.Done)

		_, err = s.ToggleTask(ctx, 7, task.ID+100)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_DeleteTask(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedUser(t, s, 7)
		task, err := s.CreateTask(ctx, 7, "delete me", "2024-05-01")
		require.NoError(t, err)

		require.NoError(t, s.DeleteTask(ctx, 7, task.ID))
		assert.ErrorIs(t, s.DeleteTask(ctx, 7, task.ID), ErrNotFound, "second delete")

		tasks, err := s.ListTasks(ctx, 7, "2024-05-01")
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})
}

func TestStore_OwnerIsolation(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedUser(t, s, 1)
		seedUser(t, s, 2)

		task, err := s.CreateTask(ctx, 1, "private", "2024-05-01")
		require.NoError(t, err)

		tasks, err := s.ListTasks(ctx, 2, "2024-05-01")
		require.NoError(t, err)
		assert.Empty(t, tasks, "other owner must not see the task")

		_, err = s.UpdateTask(ctx, 2, task.ID, "hijacked")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.ToggleTask(ctx, 2, task.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		assert.ErrorIs(t, s.DeleteTask(ctx, 2, task.ID), ErrNotFound)

		// owner's row is untouched
		tasks, err = s.ListTasks(ctx, 1, "2024-05-01")
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "private", tasks[0].Text)
		assert.False(t, tasks[0].Done)
	})
}

func TestStore_ConcurrentCreates(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedUser(t, s, 7)

		const n = 20
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.CreateTask(ctx, 7, "parallel", "2024-05-01")
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}

		tasks, err := s.ListTasks(ctx, 7, "2024-05-01")
		require.NoError(t, err)
		assert.Len(t, tasks, n)

		seen := make(map[int64]bool)
		for _, task := range tasks {
			assert.False(t, seen[task.ID], "duplicate id %d", task.ID)
			seen[task.ID] = true
		}
	})
}

func TestValidateDate(t *testing.T) {
	got, err := ValidateDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", got)

	_, err = ValidateDate("2023-02-29")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ValidateDate("2024-5-1")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestValidateText(t *testing.T) {
	got, err := ValidateText("  hi  ")
	require.NoError(t, err)
	assert.Equal(t, "hi", got)

	_, err = ValidateText("\t \n")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
