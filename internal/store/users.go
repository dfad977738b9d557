// ABOUTME: SQL implementation of UserStore
// ABOUTME: Single-statement upsert keyed by telegram_id, last write wins

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UpsertUser inserts user or overwrites username and first_name of the existing row.
// created_at is preserved across upserts.
func (s *SQLStore) UpsertUser(ctx context.Context, user *User) error {
	if user == nil || user.TelegramID <= 0 {
		return fmt.Errorf("%w: telegram id must be positive", ErrInvalidInput)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.timestamp()
	query := s.rebind(`
		INSERT INTO telegram_users (telegram_id, username, first_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (telegram_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			updated_at = excluded.updated_at
	`)

	_, err := s.db.ExecContext(ctx, query,
		user.TelegramID,
		nullableString(user.Username),
		nullableString(user.FirstName),
		now,
		now,
	)
	if err != nil {
		return classify("upserting user", err)
	}

	s.logger.Debug("upserted user", "telegram_id", user.TelegramID)
	return nil
}

// GetUser retrieves a user by Telegram id.
// Returns ErrNotFound if the user has never authenticated.
func (s *SQLStore) GetUser(ctx context.Context, telegramID int64) (*User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := s.rebind(`
		SELECT telegram_id, username, first_name, created_at, updated_at
		FROM telegram_users
		WHERE telegram_id = ?
	`)

	var (
		u                    User
		username, firstName  sql.NullString
		createdAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx, query, telegramID).Scan(
		&u.TelegramID,
		&username,
		&firstName,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, classify("querying user", err)
	}

	u.Username = stringPtr(username)
	u.FirstName = stringPtr(firstName)
	if u.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if u.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &u, nil
}

// nullableString maps a nil pointer to SQL NULL.
func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
