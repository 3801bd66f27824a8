// Package cache implements a decompilation cache keyed by a content hash
// of a parsed module plus a function index: repeat pseudo_of/disasm_of
// calls on an unchanged function become a lookup instead of a re-lift.
//
// Grounded on the teacher's internal/database.DBManager: one manager type
// hiding several database/sql-compatible backends behind a single
// dbType-to-driver-name switch, connection pooling tuned once at Open
// time, and a small query surface (here Get/Put instead of
// Query/Execute/Transaction, since the cache only ever does point lookups
// and upserts).
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Kind distinguishes what artifact a cache row holds, since the same
// (module, function) pair can have independently-cached pseudo-code, a
// disasm listing, and a CFG summary.
type Kind string

const (
	KindPseudo Kind = "pseudo"
	KindDisasm Kind = "disasm"
	KindCFG    Kind = "cfg"
)

// Cache wraps one database/sql backend, chosen by driver name at Open
// time. Entries are addressed by (module hash, function index, kind) so
// invalidation is automatic: reparsing a changed module yields a
// different hash and simply misses the old rows.
type Cache struct {
	db     *sql.DB
	driver string
}

// driverNames maps the backend names a caller writes in config/CLI flags
// to the actual database/sql driver name registered by each import above.
var driverNames = map[string]string{
	"sqlite":   "sqlite",
	"sqlite3":  "sqlite",
	"postgres": "postgres",
	"postgresql": "postgres",
	"mysql":    "mysql",
	"mssql":    "sqlserver",
	"sqlserver": "sqlserver",
}

// Open connects to dbType (sqlite, postgres, mysql, or mssql) at dsn and
// ensures the cache table exists.
func Open(dbType, dsn string) (*Cache, error) {
	driver, ok := driverNames[dbType]
	if !ok {
		return nil, fmt.Errorf("cache: unsupported database type %q", dbType)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("cache: failed to open %s: %w", dbType, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: failed to ping %s: %w", dbType, err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	c := &Cache{db: db, driver: driver}
	if err := c.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) ensureSchema() error {
	_, err := c.db.Exec(`
CREATE TABLE IF NOT EXISTS decompile_cache (
	module_hash TEXT NOT NULL,
	func_index  INTEGER NOT NULL,
	kind        TEXT NOT NULL,
	content     TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	PRIMARY KEY (module_hash, func_index, kind)
)`)
	if err != nil {
		return fmt.Errorf("cache: failed to create schema: %w", err)
	}
	return nil
}

// ModuleHash returns a stable content hash for a serialized module,
// suitable as the first component of a cache key.
func ModuleHash(serialized []byte) string {
	sum := sha256.Sum256(serialized)
	return hex.EncodeToString(sum[:])
}

// Get looks up a previously cached artifact, reporting found=false on a
// cache miss (not an error: a miss is the expected first-call path).
func (c *Cache) Get(moduleHash string, funcIndex int, kind Kind) (content string, found bool, err error) {
	row := c.db.QueryRow(
		`SELECT content FROM decompile_cache WHERE module_hash = ? AND func_index = ? AND kind = ?`,
		moduleHash, funcIndex, string(kind))
	err = row.Scan(&content)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache: lookup failed: %w", err)
	}
	return content, true, nil
}

// Put stores or replaces an artifact.
func (c *Cache) Put(moduleHash string, funcIndex int, kind Kind, content string) error {
	_, err := c.db.Exec(
		`DELETE FROM decompile_cache WHERE module_hash = ? AND func_index = ? AND kind = ?`,
		moduleHash, funcIndex, string(kind))
	if err != nil {
		return fmt.Errorf("cache: failed to evict stale entry: %w", err)
	}
	_, err = c.db.Exec(
		`INSERT INTO decompile_cache (module_hash, func_index, kind, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		moduleHash, funcIndex, string(kind), content, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("cache: failed to store entry: %w", err)
	}
	return nil
}

// Stats reports how many artifacts of each kind are cached, for the CLI's
// `cache stats` command.
func (c *Cache) Stats() (map[Kind]int, error) {
	rows, err := c.db.Query(`SELECT kind, COUNT(*) FROM decompile_cache GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("cache: stats query failed: %w", err)
	}
	defer rows.Close()

	out := map[Kind]int{}
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		out[Kind(kind)] = n
	}
	return out, rows.Err()
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error { return c.db.Close() }
