/*
Package sqlite provides a SQLite-backed implementation of generic.Store.

PURPOSE:
  Persists every collection of every business profile in one SQLite file.
  Each record is stored as its JSON document; the engine never queries
  inside documents, it only loads whole collections.

INTERFACES IMPLEMENTED:
  generic.Store:        LoadAll / SaveAll / ReplaceAll (via ForProfile)
  generic.ProfileStore: ForProfile / ResetProfile

KEY TABLES:
  records: (profile_id, collection, id) -> data_json, seq

ORDERING:
  LoadAll returns records by seq, the position at which the id was first
  written. Upserting an existing id keeps its position, so storage order is
  insertion order of ids.

ATOMICITY:
  SaveAll and ReplaceAll each run inside one SQL transaction. Nothing spans
  two collections: a caller that writes a sale and then the accounts
  collection performs two independent writes.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety within the process. Concurrent
  writers to the same collection are last-write-wins.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  db, err := sqlite.New("./data/books.db")
  if err != nil {
      log.Fatal(err)
  }
  defer db.Close()

  store := db.ForProfile("shop-1")
  accounts, err := generic.LoadAll[books.Account](ctx, store, books.CollAccounts)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/bookkeeper/generic"
)

// DefaultProfile is used when no profile is selected.
const DefaultProfile = "default"

var (
	_ generic.ProfileStore  = (*Store)(nil)
	_ generic.ProfileLister = (*Store)(nil)
)

// Store implements generic.Store for one profile and generic.ProfileStore.
type Store struct {
	db      *sql.DB
	mu      *sync.RWMutex
	profile string
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, mu: &sync.RWMutex{}, profile: DefaultProfile}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Profile returns the profile this view is scoped to.
func (s *Store) Profile() string { return s.profile }

// ForProfile returns a view of the same database scoped to profileID.
func (s *Store) ForProfile(profileID string) generic.Store {
	return s.WithProfile(profileID)
}

// WithProfile is ForProfile returning the concrete type.
func (s *Store) WithProfile(profileID string) *Store {
	if profileID == "" {
		profileID = DefaultProfile
	}
	return &Store{db: s.db, mu: s.mu, profile: profileID}
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		profile_id TEXT NOT NULL,
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		data_json TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (profile_id, collection, id)
	);

	-- Hot path: load a whole collection in storage order
	CREATE INDEX IF NOT EXISTS idx_records_collection_seq
		ON records(profile_id, collection, seq);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RECORD STORE (generic.Store interface)
// =============================================================================

// LoadAll returns every record of a collection in storage order.
func (s *Store) LoadAll(ctx context.Context, c generic.Collection) ([]generic.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, data_json FROM records
		WHERE profile_id = ? AND collection = ?
		ORDER BY seq ASC
	`, s.profile, string(c))
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := []generic.Record{}
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, generic.Record{ID: id, Data: []byte(data)})
	}
	return records, rows.Err()
}

// SaveAll upserts records by id in one transaction.
func (s *Store) SaveAll(ctx context.Context, c generic.Collection, records []generic.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	next, err := s.nextSeq(ctx, sqlTx, c)
	if err != nil {
		return err
	}
	for _, r := range records {
		res, err := sqlTx.ExecContext(ctx, `
			UPDATE records SET data_json = ?, updated_at = ?
			WHERE profile_id = ? AND collection = ? AND id = ?
		`, string(r.Data), now(), s.profile, string(c), r.ID)
		if err != nil {
			return fmt.Errorf("failed to update record %s: %w", r.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			continue
		}
		if err := s.insert(ctx, sqlTx, c, r, next); err != nil {
			return err
		}
		next++
	}

	return sqlTx.Commit()
}

// ReplaceAll deletes the collection and writes records in one transaction.
func (s *Store) ReplaceAll(ctx context.Context, c generic.Collection, records []generic.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx,
		"DELETE FROM records WHERE profile_id = ? AND collection = ?",
		s.profile, string(c),
	); err != nil {
		return fmt.Errorf("failed to clear %s: %w", c, err)
	}
	for i, r := range records {
		if err := s.insert(ctx, sqlTx, c, r, int64(i)); err != nil {
			return err
		}
	}

	return sqlTx.Commit()
}

func (s *Store) insert(ctx context.Context, tx *sql.Tx, c generic.Collection, r generic.Record, seq int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO records (profile_id, collection, id, seq, data_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.profile, string(c), r.ID, seq, string(r.Data), now())
	if err != nil {
		return fmt.Errorf("failed to insert record %s: %w", r.ID, err)
	}
	return nil
}

func (s *Store) nextSeq(ctx context.Context, tx *sql.Tx, c generic.Collection) (int64, error) {
	var max sql.NullInt64
	err := tx.QueryRowContext(ctx,
		"SELECT MAX(seq) FROM records WHERE profile_id = ? AND collection = ?",
		s.profile, string(c),
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to read sequence: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64 + 1, nil
}

// =============================================================================
// PROFILES (generic.ProfileStore interface)
// =============================================================================

// ListProfiles returns every profile that has at least one record.
func (s *Store) ListProfiles(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT profile_id FROM records ORDER BY profile_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// ResetProfile deletes every record of a profile (for demo scenarios).
func (s *Store) ResetProfile(ctx context.Context, profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE profile_id = ?", profileID)
	return err
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
