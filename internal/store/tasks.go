// ABOUTME: SQL implementation of TaskStore
// ABOUTME: Every statement filters on owner_id so tasks never cross users

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const taskColumns = `id, owner_id, text, date, done, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	var (
		t         Task
		updatedAt string
	)
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Text, &t.Date, &t.Done, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	t.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &t, nil
}

// CreateTask inserts a new task with done=false.
// Returns ErrInvalidInput for blank text, a bad date or an unknown owner.
func (s *SQLStore) CreateTask(ctx context.Context, ownerID int64, text, date string) (*Task, error) {
	text, err := ValidateText(text)
	if err != nil {
		return nil, err
	}
	date, err = ValidateDate(date)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := s.rebind(`
		INSERT INTO tasks (owner_id, text, date, updated_at)
		VALUES (?, ?, ?, ?)
		RETURNING ` + taskColumns)

	task, err := scanTask(s.db.QueryRowContext(ctx, query, ownerID, text, date, s.timestamp()))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: unknown owner %d", ErrInvalidInput, ownerID)
		}
		return nil, classify("inserting task", err)
	}

	s.logger.Debug("created task", "id", task.ID, "owner_id", ownerID)
	return task, nil
}

// ListTasks returns the owner's tasks for date, newest first.
// An empty slice is returned when there are none.
func (s *SQLStore) ListTasks(ctx context.Context, ownerID int64, date string) ([]*Task, error) {
	date, err := ValidateDate(date)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := s.rebind(`
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE owner_id = ? AND date = ?
		ORDER BY id DESC
	`)

	rows, err := s.db.QueryContext(ctx, query, ownerID, date)
	if err != nil {
		return nil, classify("querying tasks", err)
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]*Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, classify("scanning task row", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterating task rows", err)
	}

	return tasks, nil
}

// UpdateTask replaces the text of the owner's task and bumps updated_at.
// Returns ErrNotFound if no such task belongs to ownerID.
func (s *SQLStore) UpdateTask(ctx context.Context, ownerID, taskID int64, text string) (*Task, error) {
	text, err := ValidateText(text)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := s.rebind(`
		UPDATE tasks
		SET text = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
		RETURNING ` + taskColumns)

	task, err := scanTask(s.db.QueryRowContext(ctx, query, text, s.timestamp(), taskID, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, classify("updating task", err)
	}

	s.logger.Debug("updated task", "id", taskID, "owner_id", ownerID)
	return task, nil
}

// ToggleTask flips done on the owner's task.
// Returns ErrNotFound if no such task belongs to ownerID.
func (s *SQLStore) ToggleTask(ctx context.Context, ownerID, taskID int64) (*Task, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := s.rebind(`
		UPDATE tasks
		SET done = NOT done, updated_at = ?
		WHERE id = ? AND owner_id = ?
		RETURNING ` + taskColumns)

	task, err := scanTask(s.db.QueryRowContext(ctx, query, s.timestamp(), taskID, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, classify("toggling task", err)
	}

	s.logger.Debug("toggled task", "id", taskID, "owner_id", ownerID, "done", task.Done)
	return task, nil
}

// DeleteTask removes the owner's task.
// Returns ErrNotFound if no such task belongs to ownerID, including on a repeated delete.
func (s *SQLStore) DeleteTask(ctx context.Context, ownerID, taskID int64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM tasks WHERE id = ? AND owner_id = ?`), taskID, ownerID)
	if err != nil {
		return classify("deleting task", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return classify("getting rows affected", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted task", "id", taskID, "owner_id", ownerID)
	return nil
}
