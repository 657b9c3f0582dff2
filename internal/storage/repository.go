package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"expensetracker/internal/core"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// Options configures how a Repository connects and retries.
type Options struct {
	Dialect       Dialect
	SQLitePath    string
	DatabaseURL   string
	RetryAttempts int
	RetryBackoff  time.Duration
	// OpTimeout bounds a single attempt, connection acquisition included.
	OpTimeout  time.Duration
	Categories []string
}

// DefaultOptions returns a SQLite configuration at path with the default retry policy.
func DefaultOptions(path string) Options {
	return Options{
		Dialect:       DialectSQLite,
		SQLitePath:    path,
		RetryAttempts: 3,
		RetryBackoff:  100 * time.Millisecond,
		OpTimeout:     5 * time.Second,
		Categories:    core.DefaultCategories,
	}
}

// Repository is the single data-access layer over either dialect.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	retry   retryPolicy
}

// Open connects, migrates and seeds the default categories.
func Open(ctx context.Context, opts Options) (*Repository, error) {
	if opts.Dialect == "" {
		opts.Dialect = DialectSQLite
	}

	var dsn string
	switch opts.Dialect {
	case DialectSQLite:
		if err := os.MkdirAll(filepath.Dir(opts.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		dsn = sqliteDSN(opts.SQLitePath)
	case DialectPostgres:
		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres dialect requires a database URL")
		}
		dsn = opts.DatabaseURL
	default:
		return nil, fmt.Errorf("unknown store dialect %q", opts.Dialect)
	}

	db, err := sql.Open(opts.Dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", opts.Dialect, err)
	}
	if opts.Dialect == DialectSQLite {
		// One writer at a time; busy_timeout absorbs short waits.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(opts.Dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &Repository{
		db:      db,
		dialect: opts.Dialect,
		retry:   newRetryPolicy(opts.RetryAttempts, opts.RetryBackoff, opts.OpTimeout),
	}

	categories := opts.Categories
	if len(categories) == 0 {
		categories = core.DefaultCategories
	}
	if err := repo.EnsureCategories(ctx, categories); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed categories: %w", err)
	}

	slog.InfoContext(ctx, "Store opened",
		"dialect", opts.Dialect,
		"categories", len(categories),
		"retry_attempts", repo.retry.attempts)

	return repo, nil
}

// NewSQLiteRepository opens a SQLite store at dbPath with default options.
func NewSQLiteRepository(dbPath string) (*Repository, error) {
	return Open(context.Background(), DefaultOptions(dbPath))
}

func sqliteDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (r *Repository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertReturningID runs an INSERT ... RETURNING id statement.
func (r *Repository) insertReturningID(ctx context.Context, q queryer, query string, args ...any) (int64, error) {
	var id int64
	if err := q.QueryRowContext(ctx, r.rebind(query), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// dbDate scans TEXT (SQLite) and DATE (Postgres) columns into a core.Date.
type dbDate struct {
	core.Date
}

func (d *dbDate) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.Date = core.NewDate(v.Year(), int(v.Month()), v.Day())
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	case nil:
		d.Date = core.Date{}
		return nil
	default:
		return fmt.Errorf("unsupported date type %T", src)
	}
}

func (d *dbDate) parse(s string) error {
	if len(s) > len(core.DateLayout) {
		s = s[:len(core.DateLayout)]
	}
	t, err := time.Parse(core.DateLayout, s)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", s, err)
	}
	d.Date = core.Date{Time: t}
	return nil
}
