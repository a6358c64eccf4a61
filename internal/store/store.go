// Package store provides durable storage for cache partitions and
// mutation queues across multiple database backends.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver

	"github.com/civilsoul/offlined/internal/contract"
	"github.com/civilsoul/offlined/schema"
)

// dbFileName is the name of the default SQLite database file.
const dbFileName = ".offlined.db"

// Store handles durable storage operations using various database backends.
// It implements both the partition and queue store contracts over one
// connection pool.
type Store struct {
	db         *sql.DB
	backend    schema.DatabaseBackend
	driverName string
	connStr    string
}

// queueView adapts Store to the queue contract so that the two status
// methods keep distinct names on the concrete type.
type queueView struct {
	s *Store
}

func (v queueView) Enqueue(item *schema.QueueItem) (int64, error) { return v.s.Enqueue(item) }
func (v queueView) Oldest(category schema.QueueCategory) (*schema.QueueItem, error) {
	return v.s.Oldest(category)
}
func (v queueView) Remove(id int64) error                  { return v.s.Remove(id) }
func (v queueView) Touch(id int64) error                   { return v.s.Touch(id) }
func (v queueView) Bury(item *schema.QueueItem) error      { return v.s.Bury(item) }
func (v queueView) Status() (schema.QueueStatus, error)    { return v.s.QueueStatus() }
func (v queueView) Items(category schema.QueueCategory) ([]schema.QueueItem, error) {
	return v.s.Items(category)
}

// Compile-time checks.
var (
	_ contract.PartitionStore = &Store{}
	_ contract.QueueStore     = queueView{}
)

// Manager owns the store for the agent's lifetime.
type Manager struct {
	sync.RWMutex // Protects the store pointer during initialization
	store        *Store
}

var _ contract.StoreManager = &Manager{}

// NewManager opens the configured backend and runs schema migrations.
func NewManager(backend schema.DatabaseBackend, connStr string) (*Manager, error) {
	s, err := Open(backend, connStr)
	if err != nil {
		return nil, err
	}
	return &Manager{store: s}, nil
}

// PartitionStore returns the cache partition store.
func (mgr *Manager) PartitionStore() contract.PartitionStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.store
}

// QueueStore returns the mutation queue store.
func (mgr *Manager) QueueStore() contract.QueueStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return queueView{s: mgr.store}
}

// Close closes the underlying DB connection.
func (mgr *Manager) Close() error {
	mgr.Lock()
	defer mgr.Unlock()
	return mgr.store.Close()
}

// MigrateTo migrates the schema to a target version. See Store.MigrateTo.
func (mgr *Manager) MigrateTo(targetVersion int) (string, error) {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.store.MigrateTo(targetVersion)
}

// Open initializes a Store for the given backend and brings its schema
// up to date.
func Open(backend schema.DatabaseBackend, connStr string) (*Store, error) {
	var db *sql.DB
	var err error
	var driverName string

	switch backend {
	case schema.SQLiteBackend:
		driverName = "sqlite"
		dbPath := connStr
		if dbPath == "" {
			dbPath = GetDBFilePath()
		}
		db, err = sql.Open(driverName, dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store at %q: %w. Ensure the directory is writable", dbPath, err)
		}
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)

	case schema.MySQLBackend:
		// connStr should be:
		// user:password@tcp(host:port)/dbname?multiStatements=true
		driverName = "mysql"
		db, err = sql.Open(driverName, connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MySQL store: %w. Check connection format: user:password@tcp(host:port)/dbname", err)
		}

	case schema.PostgreSQLBackend:
		// connStr should be:
		// host=localhost port=5432 user=postgres password=secret dbname=offlined
		driverName = "pgx"
		db, err = sql.Open(driverName, connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL store: %w. Check connection format: host=localhost port=5432 user=postgres dbname=mydb", err)
		}

	case schema.NoneBackend:
		// A no-op store for disabled persistence
		return &Store{backend: backend, connStr: connStr}, nil

	default:
		return nil, fmt.Errorf("unsupported store backend: %s. Must be sqlite, mysql, postgresql, or none", backend)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database. Check that the server is running and connection parameters are valid: %w", backend, err)
	}

	s := &Store{db: db, backend: backend, driverName: driverName, connStr: connStr}

	if err := s.migrateUp(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate %s schema: %w", backend, err)
	}

	return s, nil
}

// GetDBFilePath returns the path to the default SQLite DB file.
func GetDBFilePath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, dbFileName)
}

// Close closes the underlying DB connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// disabled reports whether persistence is turned off.
func (s *Store) disabled() bool {
	return s.backend == schema.NoneBackend || s.db == nil
}

// rebind converts '?' placeholders to the backend's parameter syntax.
func (s *Store) rebind(query string) string {
	if s.backend != schema.PostgreSQLBackend {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Clear removes all durable state for the backend. For SQLite the
// database file is deleted; for server backends the tables are dropped.
func Clear(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.NoneBackend:
		return nil

	case schema.SQLiteBackend:
		dbPath := connStr
		if dbPath == "" {
			dbPath = GetDBFilePath()
		}
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove store file %q: %w", dbPath, err)
		}
		return nil

	default:
		s, err := Open(backend, connStr)
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		for _, table := range []string{"dead_items", "queue_items", "cache_entries", "schema_migrations"} {
			if _, err := s.db.Exec("DROP TABLE IF EXISTS " + table); err != nil {
				return fmt.Errorf("failed to drop table %s: %w", table, err)
			}
		}
		return nil
	}
}
