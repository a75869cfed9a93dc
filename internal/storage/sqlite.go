package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour a DB speaks.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// DB wraps a SQL database connection together with its dialect.
type DB struct {
	conn    *sql.DB
	dialect Dialect
	path    string // sqlite file, empty for server databases
}

// OpenSQLite opens (or creates) the SQLite file at dbPath.
func OpenSQLite(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite only supports one writer, so a single connection avoids SQLITE_BUSY
	conn.SetMaxOpenConns(1)

	return setup(conn, DialectSQLite, dbPath)
}

// Open connects to a postgres or mysql server, or a sqlite file, and migrates it.
func Open(dialect Dialect, dsn string) (*DB, error) {
	switch dialect {
	case DialectSQLite:
		return OpenSQLite(dsn)
	case DialectPostgres, DialectMySQL:
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", dialect)
	}

	conn, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if err := conn.PingContext(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	return setup(conn, dialect, "")
}

func setup(conn *sql.DB, dialect Dialect, path string) (*DB, error) {
	db := &DB{conn: conn, dialect: dialect, path: path}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Path returns the SQLite file path, or "" for server databases.
func (db *DB) Path() string {
	return db.path
}

// rebind rewrites ? placeholders into the dialect's bind syntax.
func (db *DB) rebind(query string) string {
	if db.dialect != DialectPostgres {
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

// upsertClause returns the conflict clause that turns an INSERT on key into an upsert of cols.
func (db *DB) upsertClause(key string, cols []string) string {
	sets := make([]string, 0, len(cols))
	for _, c := range cols {
		if c == key {
			continue
		}
		if db.dialect == DialectMySQL {
			sets = append(sets, fmt.Sprintf("%s = VALUES(%s)", c, c))
		} else {
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}
	if db.dialect == DialectMySQL {
		return " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}
	return fmt.Sprintf(" ON CONFLICT(%s) DO UPDATE SET %s", key, strings.Join(sets, ", "))
}

func (db *DB) migrate() error {
	var migrations []string
	switch db.dialect {
	case DialectPostgres:
		migrations = postgresMigrations
	case DialectMySQL:
		migrations = mysqlMigrations
	default:
		migrations = sqliteMigrations
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %s: %w", firstLine(m), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i > 0 {
		return s[:i]
	}
	return s
}

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS pages (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		is_deleted INTEGER NOT NULL DEFAULT 0,
		deleted_at DATETIME,
		parent_id TEXT,
		is_public INTEGER NOT NULL DEFAULT 0,
		tags_json TEXT NOT NULL DEFAULT '[]',
		cloud_id TEXT,
		last_synced_at DATETIME,
		needs_sync INTEGER NOT NULL DEFAULT 0,
		title_cursor INTEGER NOT NULL DEFAULT -1,
		focused_block_id TEXT,
		focused_block_cursor INTEGER NOT NULL DEFAULT -1
	)`,
	`CREATE TABLE IF NOT EXISTS blocks (
		page_id TEXT NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
		id TEXT NOT NULL,
		sort_order INTEGER NOT NULL,
		type TEXT NOT NULL DEFAULT 'TEXT',
		content TEXT NOT NULL DEFAULT '',
		properties_json TEXT NOT NULL DEFAULT '{}',
		children_json TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		needs_sync INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (page_id, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pages_deleted_updated ON pages(is_deleted, updated_at)`,
	`CREATE INDEX IF NOT EXISTS idx_blocks_page_order ON blocks(page_id, sort_order)`,
	`CREATE TABLE IF NOT EXISTS app_settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL DEFAULT ''
	)`,
}

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS pages (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		is_deleted BOOLEAN NOT NULL DEFAULT false,
		deleted_at TIMESTAMPTZ,
		parent_id TEXT,
		is_public BOOLEAN NOT NULL DEFAULT false,
		tags_json TEXT NOT NULL DEFAULT '[]',
		cloud_id TEXT,
		last_synced_at TIMESTAMPTZ,
		needs_sync BOOLEAN NOT NULL DEFAULT false,
		title_cursor INTEGER NOT NULL DEFAULT -1,
		focused_block_id TEXT,
		focused_block_cursor INTEGER NOT NULL DEFAULT -1
	)`,
	`CREATE TABLE IF NOT EXISTS blocks (
		page_id TEXT NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
		id TEXT NOT NULL,
		sort_order INTEGER NOT NULL,
		type TEXT NOT NULL DEFAULT 'TEXT',
		content TEXT NOT NULL DEFAULT '',
		properties_json TEXT NOT NULL DEFAULT '{}',
		children_json TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		needs_sync BOOLEAN NOT NULL DEFAULT false,
		PRIMARY KEY (page_id, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pages_deleted_updated ON pages(is_deleted, updated_at)`,
	`CREATE INDEX IF NOT EXISTS idx_blocks_page_order ON blocks(page_id, sort_order)`,
	`CREATE TABLE IF NOT EXISTS app_settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL DEFAULT ''
	)`,
}

// MySQL cannot default TEXT columns or CREATE INDEX IF NOT EXISTS, so indexes live inline.
var mysqlMigrations = []string{
	`CREATE TABLE IF NOT EXISTS pages (
		id VARCHAR(64) PRIMARY KEY,
		title TEXT NOT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		is_deleted TINYINT(1) NOT NULL DEFAULT 0,
		deleted_at DATETIME(6) NULL,
		parent_id VARCHAR(64) NULL,
		is_public TINYINT(1) NOT NULL DEFAULT 0,
		tags_json TEXT NOT NULL,
		cloud_id VARCHAR(255) NULL,
		last_synced_at DATETIME(6) NULL,
		needs_sync TINYINT(1) NOT NULL DEFAULT 0,
		title_cursor INT NOT NULL DEFAULT -1,
		focused_block_id VARCHAR(64) NULL,
		focused_block_cursor INT NOT NULL DEFAULT -1,
		INDEX idx_pages_deleted_updated (is_deleted, updated_at)
	) CHARACTER SET utf8mb4`,
	`CREATE TABLE IF NOT EXISTS blocks (
		page_id VARCHAR(64) NOT NULL,
		id VARCHAR(64) NOT NULL,
		sort_order INT NOT NULL,
		type VARCHAR(32) NOT NULL DEFAULT 'TEXT',
		content LONGTEXT NOT NULL,
		properties_json LONGTEXT NOT NULL,
		children_json LONGTEXT NOT NULL,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		needs_sync TINYINT(1) NOT NULL DEFAULT 0,
		PRIMARY KEY (page_id, id),
		INDEX idx_blocks_page_order (page_id, sort_order),
		FOREIGN KEY (page_id) REFERENCES pages(id) ON DELETE CASCADE
	) CHARACTER SET utf8mb4`,
	"CREATE TABLE IF NOT EXISTS app_settings (\n\t\t`key` VARCHAR(128) PRIMARY KEY,\n\t\tvalue TEXT NOT NULL\n\t) CHARACTER SET utf8mb4",
}
