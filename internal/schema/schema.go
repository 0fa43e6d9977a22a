// Package schema owns the on-disk SQLite layout for a persistent cache
// database: opening the file, tuning PRAGMAs, creating the CacheElement
// and SchemaInfo tables, and migrating a version-1 database forward.
package schema

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/akavache-go/akavache/internal/cachemodel"
	akerrors "github.com/akavache-go/akavache/internal/errors"

	_ "modernc.org/sqlite"
)

const (
	createCacheElement = `
CREATE TABLE IF NOT EXISTS CacheElement (
    Key TEXT PRIMARY KEY NOT NULL,
    TypeName TEXT,
    Value BLOB,
    CreatedAt INTEGER NOT NULL,
    Expiration INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cacheelement_expiration ON CacheElement(Expiration);
CREATE INDEX IF NOT EXISTS idx_cacheelement_typename ON CacheElement(TypeName);
`

	createSchemaInfo = `
CREATE TABLE IF NOT EXISTS SchemaInfo (
    Version INTEGER NOT NULL
);
`
)

// Manager owns a single *sql.DB handle, applying PRAGMAs and the
// CacheElement/SchemaInfo tables once, the first time it's asked to.
type Manager struct {
	once sync.Once
	err  error

	db   *sql.DB
	path string
}

// Open opens (creating if absent) the SQLite database at path, applying
// the pragmas a single-writer cache queue wants: WAL so readers never
// block the writer, MEMORY temp storage, and synchronous=OFF since the
// operation queue already serializes writes and durability across a
// hard crash isn't a contract the cache makes. Each pragma is
// best-effort: an engine that rejects one is used without it.
func Open(path string) (*Manager, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, akerrors.Backend(fmt.Errorf("create cache directory %s: %w", dir, err))
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, akerrors.Backend(fmt.Errorf("open %s: %w", path, err))
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA synchronous=OFF",
	} {
		_, _ = db.Exec(pragma)
	}

	m := &Manager{db: db, path: path}
	if err := m.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

// DB returns the underlying handle for the queue worker to issue
// statements against. Callers must not close it directly; use Close.
func (m *Manager) DB() *sql.DB {
	return m.db
}

// Close closes the underlying database handle.
func (m *Manager) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}

// ensureSchema creates the tables on first use and migrates a version-1
// layout forward. It is idempotent: a database already at the current
// version does nothing beyond a single read of SchemaInfo.
func (m *Manager) ensureSchema() error {
	m.once.Do(func() {
		m.err = m.migrate()
	})
	return m.err
}

func (m *Manager) migrate() error {
	version, err := m.readVersion()
	if err != nil {
		return err
	}

	switch version {
	case 0:
		return m.createFresh()
	case 1:
		return m.migrateV1ToV2()
	case CurrentVersion:
		return nil
	default:
		return akerrors.Invalid(fmt.Sprintf("unsupported schema version %d", version))
	}
}

// CurrentVersion is the schema version this build reads and writes.
const CurrentVersion = 2

func (m *Manager) readVersion() (int, error) {
	var exists int
	err := m.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='SchemaInfo'",
	).Scan(&exists)
	if err != nil {
		return 0, akerrors.Backend(fmt.Errorf("check SchemaInfo: %w", err))
	}
	if exists == 0 {
		var v1exists int
		err := m.db.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='CacheElement'",
		).Scan(&v1exists)
		if err != nil {
			return 0, akerrors.Backend(fmt.Errorf("check CacheElement: %w", err))
		}
		if v1exists == 0 {
			return 0, nil
		}
		// CacheElement exists with no SchemaInfo: a version-1 database
		// predating the schema-version table and the CreatedAt column.
		var hasCreatedAt int
		err = m.db.QueryRow(
			"SELECT COUNT(*) FROM pragma_table_info('CacheElement') WHERE name='CreatedAt'",
		).Scan(&hasCreatedAt)
		if err != nil {
			return 0, akerrors.Backend(fmt.Errorf("inspect CacheElement columns: %w", err))
		}
		if hasCreatedAt == 0 {
			return 1, nil
		}
		return CurrentVersion, nil
	}

	var version int
	if err := m.db.QueryRow("SELECT Version FROM SchemaInfo LIMIT 1").Scan(&version); err != nil {
		return 0, akerrors.Backend(fmt.Errorf("read SchemaInfo.Version: %w", err))
	}
	return version, nil
}

func (m *Manager) createFresh() error {
	tx, err := m.db.Begin()
	if err != nil {
		return akerrors.Backend(fmt.Errorf("begin schema creation: %w", err))
	}
	defer tx.Rollback()

	if _, err := tx.Exec(createCacheElement); err != nil {
		return akerrors.Backend(fmt.Errorf("create CacheElement: %w", err))
	}
	if _, err := tx.Exec(createSchemaInfo); err != nil {
		return akerrors.Backend(fmt.Errorf("create SchemaInfo: %w", err))
	}
	if _, err := tx.Exec("INSERT INTO SchemaInfo (Version) VALUES (?)", CurrentVersion); err != nil {
		return akerrors.Backend(fmt.Errorf("seed SchemaInfo: %w", err))
	}
	return tx.Commit()
}

// migrateV1ToV2 renames the existing table aside, recreates it with the
// CreatedAt column, backfills CreatedAt with the migration's wall-clock
// time (a version-1 row carries no creation timestamp of its own),
// drops the renamed table, and records the new version. It runs inside
// one transaction so a crash midway leaves the database at v1, not a
// half-migrated state.
func (m *Manager) migrateV1ToV2() error {
	tx, err := m.db.Begin()
	if err != nil {
		return akerrors.Backend(fmt.Errorf("begin migration: %w", err))
	}
	defer tx.Rollback()

	if _, err := tx.Exec("ALTER TABLE CacheElement RENAME TO VersionOneCacheElement"); err != nil {
		return akerrors.Backend(fmt.Errorf("rename CacheElement: %w", err))
	}
	if _, err := tx.Exec(createCacheElement); err != nil {
		return akerrors.Backend(fmt.Errorf("recreate CacheElement: %w", err))
	}
	if _, err := tx.Exec(
		`INSERT INTO CacheElement (Key, TypeName, Value, CreatedAt, Expiration)
		 SELECT Key, TypeName, Value, ?, Expiration FROM VersionOneCacheElement`,
		cachemodel.ToTicks(time.Now().UTC()),
	); err != nil {
		return akerrors.Backend(fmt.Errorf("backfill CacheElement: %w", err))
	}
	if _, err := tx.Exec("DROP TABLE VersionOneCacheElement"); err != nil {
		return akerrors.Backend(fmt.Errorf("drop VersionOneCacheElement: %w", err))
	}
	if _, err := tx.Exec(createSchemaInfo); err != nil {
		return akerrors.Backend(fmt.Errorf("create SchemaInfo: %w", err))
	}
	if _, err := tx.Exec("DELETE FROM SchemaInfo"); err != nil {
		return akerrors.Backend(fmt.Errorf("clear SchemaInfo: %w", err))
	}
	if _, err := tx.Exec("INSERT INTO SchemaInfo (Version) VALUES (?)", CurrentVersion); err != nil {
		return akerrors.Backend(fmt.Errorf("record migrated version: %w", err))
	}
	return tx.Commit()
}

// Vacuum evicts every expired entry, then reclaims the freed space.
// The delete runs in its own statement since SQLite disallows VACUUM
// inside a transaction.
func (m *Manager) Vacuum() error {
	if _, err := m.db.Exec("DELETE FROM CacheElement WHERE Expiration < ?", cachemodel.ToTicks(time.Now().UTC())); err != nil {
		return akerrors.Backend(fmt.Errorf("evict expired: %w", err))
	}
	if _, err := m.db.Exec("VACUUM"); err != nil {
		return akerrors.Backend(fmt.Errorf("vacuum: %w", err))
	}
	return nil
}
