// ABOUTME: database/sql implementation of Store for SQLite (modernc.org/sqlite) and PostgreSQL (lib/pq)
// ABOUTME: Opens a pooled handle, creates the schema and classifies driver errors

package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

func (d dialect) String() string {
	if d == dialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// DefaultQueryTimeout bounds every store call when Options.QueryTimeout is unset.
const DefaultQueryTimeout = 5 * time.Second

// Options tunes an SQLStore.
type Options struct {
	QueryTimeout time.Duration
	MaxOpenConns int
	Logger       *slog.Logger
	Now          func() time.Time
}

// SQLStore implements Store on a pooled *sql.DB.
type SQLStore struct {
	db           *sql.DB
	dialect      dialect
	queryTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// NewSQLiteStore opens a SQLite store at the given path with default options.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLStore, error) {
	return Open(path, Options{})
}

// Open connects to target and creates the schema if it doesn't exist.
// postgres:// and postgresql:// targets use PostgreSQL; anything else is a SQLite path.
func Open(target string, opts Options) (*SQLStore, error) {
	if target == "" {
		return nil, errors.New("store: target is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store")

	var (
		db  *sql.DB
		d   dialect
		err error
	)
	if strings.HasPrefix(target, "postgres://") || strings.HasPrefix(target, "postgresql://") {
		d = dialectPostgres
		db, err = sql.Open("postgres", target)
	} else {
		d = dialectSQLite
		db, err = openSQLite(target)
	}
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if opts.MaxOpenConns > 0 && !(d == dialectSQLite && isMemoryPath(target)) {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	s := &SQLStore{
		db:           db,
		dialect:      d,
		queryTimeout: opts.QueryTimeout,
		logger:       logger,
		now:          opts.Now,
	}
	if s.queryTimeout <= 0 {
		s.queryTimeout = DefaultQueryTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("store initialized", "dialect", d.String())
	return s, nil
}

func sqlitePath(target string) string {
	path := strings.TrimPrefix(target, "sqlite://")
	return strings.TrimPrefix(path, "file:")
}

func isMemoryPath(target string) bool {
	return sqlitePath(target) == ":memory:"
}

// openSQLite opens a SQLite database with pragmas applied to every pooled connection.
func openSQLite(target string) (*sql.DB, error) {
	path := sqlitePath(target)

	if path == ":memory:" {
		db, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
		if err != nil {
			return nil, err
		}
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
		return db, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dsn := "file:" + path +
		"?_pragma=foreign_keys(1)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)"
	return sql.Open("sqlite", dsn)
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS telegram_users (
		telegram_id INTEGER PRIMARY KEY,
		username    TEXT,
		first_name  TEXT,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id   INTEGER NOT NULL REFERENCES telegram_users(telegram_id) ON DELETE CASCADE,
		text       TEXT NOT NULL,
		date       TEXT NOT NULL,
		done       INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL,

		CHECK (length(trim(text)) > 0),
		CHECK (done IN (0, 1))
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_owner_date ON tasks(owner_id, date);
`

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS telegram_users (
		telegram_id BIGINT PRIMARY KEY,
		username    TEXT,
		first_name  TEXT,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id         BIGSERIAL PRIMARY KEY,
		owner_id   BIGINT NOT NULL REFERENCES telegram_users(telegram_id) ON DELETE CASCADE,
		text       TEXT NOT NULL,
		date       TEXT NOT NULL,
		done       BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TEXT NOT NULL,

		CHECK (length(trim(text)) > 0)
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_owner_date ON tasks(owner_id, date);
`

// createSchema creates the database tables if they don't exist
func (s *SQLStore) createSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.queryTimeout)
	defer cancel()

	schema := sqliteSchema
	if s.dialect == dialectPostgres {
		schema = postgresSchema
	}
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Ping checks connectivity within the query timeout.
func (s *SQLStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return classify("pinging database", s.db.PingContext(ctx))
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	s.logger.Info("closing store")
	return s.db.Close()
}

func (s *SQLStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (s *SQLStore) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// classify wraps err with op and maps transient failures to ErrUnavailable.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isUnavailable(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57":
			return true
		}
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}

	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}

// isForeignKeyViolation reports whether err is a missing-parent constraint failure.
func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
