package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Driver names a warehouse driver.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

type rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// conn is the slice of a database handle the store needs. pgx and
// database/sql differ in placeholder syntax and batching.
type conn interface {
	query(ctx context.Context, q string, args ...any) (rows, error)
	exec(ctx context.Context, q string, args ...any) (int64, error)
	batch(ctx context.Context, q string, argSets [][]any) error
	placeholder(n int) string
	ping(ctx context.Context) error
	close()
}

// Store wraps warehouse access helpers.
type Store struct {
	conn   conn
	driver Driver
}

// New creates a Store backed by a pgx pool.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	return &Store{conn: &pgxConn{pool: pool}, driver: DriverPostgres}, nil
}

// OpenSQLite opens an embedded warehouse file. ":memory:" is accepted for
// tests; the handle is limited to one connection so it sees one database.
func OpenSQLite(path string) (*Store, error) {
	if path == "" {
		path = "warehouse.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	handle.SetMaxOpenConns(1)
	return &Store{conn: &sqlConn{db: handle}, driver: DriverSQLite}, nil
}

// Open dispatches on driver.
func Open(ctx context.Context, driver Driver, dsn string) (*Store, error) {
	switch driver {
	case DriverPostgres, "":
		return New(ctx, dsn)
	case DriverSQLite:
		return OpenSQLite(dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}

// Driver reports which driver backs the store.
func (s *Store) Driver() Driver {
	return s.driver
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.ping(ctx)
}

// Exec runs a statement verbatim. Used for schema setup and seeding.
func (s *Store) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	return s.conn.exec(ctx, stmt, args...)
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.conn != nil {
		s.conn.close()
	}
}

// Lazy opens the process-wide store on first use and reuses it afterwards.
// A failed open is not cached, so the next caller retries.
type Lazy struct {
	mu     sync.Mutex
	driver Driver
	dsn    string
	store  *Store
}

// NewLazy records connection settings without connecting.
func NewLazy(driver Driver, dsn string) *Lazy {
	return &Lazy{driver: driver, dsn: dsn}
}

// Get returns the shared store, connecting if necessary.
func (l *Lazy) Get(ctx context.Context) (*Store, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.store != nil {
		return l.store, nil
	}
	store, err := Open(ctx, l.driver, l.dsn)
	if err != nil {
		return nil, err
	}
	l.store = store
	return store, nil
}

// Close releases the store if it was ever opened.
func (l *Lazy) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.store != nil {
		l.store.Close()
		l.store = nil
	}
}

type pgxConn struct {
	pool *pgxpool.Pool
}

func (c *pgxConn) query(ctx context.Context, q string, args ...any) (rows, error) {
	return c.pool.Query(ctx, q, args...)
}

func (c *pgxConn) exec(ctx context.Context, q string, args ...any) (int64, error) {
	tag, err := c.pool.Exec(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (c *pgxConn) batch(ctx context.Context, q string, argSets [][]any) error {
	if len(argSets) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, args := range argSets {
		batch.Queue(q, args...)
	}

	res := c.pool.SendBatch(ctx, batch)
	defer res.Close()

	for range argSets {
		if _, err := res.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (c *pgxConn) placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (c *pgxConn) ping(ctx context.Context) error { return c.pool.Ping(ctx) }

func (c *pgxConn) close() { c.pool.Close() }

type sqlConn struct {
	db *sql.DB
}

type sqlRows struct {
	*sql.Rows
}

func (r sqlRows) Close() { _ = r.Rows.Close() }

func (c *sqlConn) query(ctx context.Context, q string, args ...any) (rows, error) {
	r, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{Rows: r}, nil
}

func (c *sqlConn) exec(ctx context.Context, q string, args ...any) (int64, error) {
	res, err := c.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *sqlConn) batch(ctx context.Context, q string, argSets [][]any) (err error) {
	if len(argSets) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, args := range argSets {
		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (c *sqlConn) placeholder(int) string { return "?" }

func (c *sqlConn) ping(ctx context.Context) error { return c.db.PingContext(ctx) }

func (c *sqlConn) close() { _ = c.db.Close() }
