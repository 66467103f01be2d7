package snapshot

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrationsFS embed.FS

// goose keeps its dialect and base FS in package state.
var gooseMu sync.Mutex

// Dialect names a supported SQL backend.
type Dialect string

const (
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite3"
)

func (d Dialect) driver() (string, error) {
	switch d {
	case DialectMySQL:
		return "mysql", nil
	case DialectPostgres:
		return "pgx", nil
	case DialectSQLite:
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported snapshot dialect %q", d)
	}
}

// SQLStore keeps snapshots in the backforge_snapshots table, one row per
// generation. Only the latest generation and the one before it are kept.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	project string
}

// OpenSQL connects to dsn, runs the snapshot table migrations and returns a
// store scoped to project.
func OpenSQL(ctx context.Context, dialect Dialect, dsn, project string) (*SQLStore, error) {
	driver, err := dialect.driver()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := migrate(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLStore{db: db, dialect: dialect, project: project}, nil
}

func migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(string(dialect)); err != nil {
		return err
	}
	goose.SetBaseFS(sub)
	defer goose.SetBaseFS(nil)

	if err := goose.UpContext(ctx, db, string(dialect)); err != nil {
		return fmt.Errorf("migrate snapshot table: %w", err)
	}
	return nil
}

// Load returns the latest snapshot of the project.
func (s *SQLStore) Load(ctx context.Context) (*Snapshot, error) {
	return s.loadAt(ctx, 0)
}

// LoadPrevious returns the snapshot saved before the latest one.
func (s *SQLStore) LoadPrevious(ctx context.Context) (*Snapshot, error) {
	return s.loadAt(ctx, 1)
}

func (s *SQLStore) loadAt(ctx context.Context, offset int) (*Snapshot, error) {
	query := s.rebind(`SELECT checksum, body FROM backforge_snapshots
WHERE project = ? ORDER BY generation DESC LIMIT 1 OFFSET ` + strconv.Itoa(offset))

	var checksum, body string
	err := s.db.QueryRowContext(ctx, query, s.project).Scan(&checksum, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	snap, err := Decode([]byte(body))
	if err != nil {
		return nil, err
	}
	if snap.Checksum != checksum {
		return nil, fmt.Errorf("%w: row %s, body %s", ErrCorrupt, checksum, snap.Checksum)
	}
	return snap, nil
}

// Save inserts snap as the next generation and prunes everything older than
// the previous one.
func (s *SQLStore) Save(ctx context.Context, snap *Snapshot) (err error) {
	body, err := Encode(snap)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var last sql.NullInt64
	row := tx.QueryRowContext(ctx, s.rebind(`SELECT MAX(generation) FROM backforge_snapshots WHERE project = ?`), s.project)
	if err = row.Scan(&last); err != nil {
		return fmt.Errorf("query generation: %w", err)
	}
	next := last.Int64 + 1

	_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO backforge_snapshots
(id, project, generation, version, checksum, created_at, body) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		snap.ID.String(), s.project, next, snap.Version, snap.Checksum,
		snap.CreatedAt.UTC().Format(time.RFC3339Nano), string(body))
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	_, err = tx.ExecContext(ctx, s.rebind(`DELETE FROM backforge_snapshots WHERE project = ? AND generation < ?`),
		s.project, next-1)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
