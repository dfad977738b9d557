// ABOUTME: Store interfaces and data types for users and tasks
// ABOUTME: Defines User, Task, the sentinel errors and input validation shared by implementations

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a task does not exist or belongs to another owner.
var ErrNotFound = errors.New("not found")

// ErrInvalidInput is returned when caller-supplied values fail validation.
var ErrInvalidInput = errors.New("invalid input")

// ErrUnavailable is returned when the storage engine could not complete the call.
// It is transient and safe to retry.
var ErrUnavailable = errors.New("storage unavailable")

// DateLayout is the calendar date format used for task dates.
const DateLayout = "2006-01-02"

// User is a Telegram user that has authenticated at least once.
type User struct {
	TelegramID int64
	Username   *string
	FirstName  *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Task is a dated to-do item owned by a single user.
type Task struct {
	ID        int64
	OwnerID   int64
	Text      string
	Date      string // YYYY-MM-DD
	Done      bool
	UpdatedAt time.Time
}

// UserStore persists authenticated users.
type UserStore interface {
	// UpsertUser inserts the user or overwrites username and first name of an existing row.
	UpsertUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, telegramID int64) (*User, error)
}

// TaskStore persists tasks. Every method is scoped to ownerID: a task owned by
// someone else behaves exactly like a missing one.
type TaskStore interface {
	CreateTask(ctx context.Context, ownerID int64, text, date string) (*Task, error)
	ListTasks(ctx context.Context, ownerID int64, date string) ([]*Task, error)
	UpdateTask(ctx context.Context, ownerID, taskID int64, text string) (*Task, error)
	ToggleTask(ctx context.Context, ownerID, taskID int64) (*Task, error)
	DeleteTask(ctx context.Context, ownerID, taskID int64) error
}

// Store is the full persistence surface used by the server.
type Store interface {
	UserStore
	TaskStore

	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store
	Close() error
}

// ValidateText trims text and rejects blank values.
func ValidateText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", fmt.Errorf("%w: text is required", ErrInvalidInput)
	}
	return trimmed, nil
}

// ValidateDate checks that date is a real calendar date in YYYY-MM-DD form.
func ValidateDate(date string) (string, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("%w: date must be a valid YYYY-MM-DD calendar date", ErrInvalidInput)
	}
	return d.Format(DateLayout), nil
}
