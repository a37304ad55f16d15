// Package journal records the filesystem changes made by rename and wrap so
// they can be listed and reversed.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/solatis/antiseptic/internal/core/db"
	"github.com/solatis/antiseptic/internal/types"
)

// Entry is one recorded change.
type Entry struct {
	ID           types.EntryID   `db:"entry_id"`
	Operation    types.Operation `db:"operation"`
	Source       string          `db:"source_path"`
	Target       string          `db:"target_path"`
	AppliedRules string          `db:"applied_rules"`
	CreatedAt    time.Time       `db:"created_at"`
	UndoneAt     sql.NullTime    `db:"undone_at"`
}

// Rules decodes the applied rule ids.
func (e Entry) Rules() []types.RuleID {
	var ids []types.RuleID
	if err := json.Unmarshal([]byte(e.AppliedRules), &ids); err != nil {
		return nil
	}
	return ids
}

// Undone reports whether the entry has been reversed.
func (e Entry) Undone() bool {
	return e.UndoneAt.Valid
}

// Journal stores entries through the named queries in internal/core/db.
type Journal struct {
	db      *sqlx.DB
	queries *db.Queries
	now     func() time.Time
}

// Open connects to dbURL, applies pending migrations and returns a Journal.
func Open(ctx context.Context, dbURL string) (*Journal, error) {
	database, err := db.Open(dbURL)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(ctx, database); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}
	j, err := New(database)
	if err != nil {
		database.Close()
		return nil, err
	}
	return j, nil
}

// New wraps an already migrated database.
func New(database *sqlx.DB) (*Journal, error) {
	queries, err := db.LoadQueries(database)
	if err != nil {
		return nil, err
	}
	return &Journal{db: database, queries: queries, now: time.Now}, nil
}

// Close releases the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores a performed change.
func (j *Journal) Record(ctx context.Context, op types.Operation, source, target string, applied []types.RuleID) (Entry, error) {
	if applied == nil {
		applied = []types.RuleID{}
	}
	rules, err := json.Marshal(applied)
	if err != nil {
		return Entry{}, err
	}

	e := Entry{
		ID:           types.NewEntryID(),
		Operation:    op,
		Source:       source,
		Target:       target,
		AppliedRules: string(rules),
		CreatedAt:    j.now().UTC(),
	}
	_, err = j.queries.Exec(ctx, "record-entry", e.ID, e.Operation, e.Source, e.Target, e.AppliedRules, e.CreatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to record %s of %s: %w", op, source, err)
	}
	return e, nil
}

// List returns up to limit entries, newest first.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	var entries []Entry
	if err := j.queries.Select(ctx, "list-entries", &entries, limit); err != nil {
		return nil, fmt.Errorf("failed to list journal: %w", err)
	}
	return entries, nil
}

// Get returns the entry with the given id, or the only entry whose id starts
// with it.
func (j *Journal) Get(ctx context.Context, id string) (Entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Entry{}, types.ErrEntryNotFound
	}

	if full, err := types.ParseEntryID(id); err == nil {
		var e Entry
		err := j.queries.Get(ctx, "get-entry", &e, full)
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, fmt.Errorf("%w: %s", types.ErrEntryNotFound, id)
		}
		return e, err
	}

	var matches []Entry
	pattern := strings.NewReplacer("%", "", "_", "").Replace(id) + "%"
	if err := j.queries.Select(ctx, "find-entries-by-prefix", &matches, pattern); err != nil {
		return Entry{}, err
	}
	switch len(matches) {
	case 0:
		return Entry{}, fmt.Errorf("%w: %s", types.ErrEntryNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return Entry{}, fmt.Errorf("%w: %s is ambiguous", types.ErrEntryNotFound, id)
	}
}

// Undo reverses a recorded change and marks the entry undone.
//
// A rename moves target back to source. A wrap moves the file back and
// removes the directory it created when that directory is empty. Undo
// refuses when target no longer exists or source is occupied.
func (j *Journal) Undo(ctx context.Context, id string) (Entry, error) {
	e, err := j.Get(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if e.Undone() {
		return e, fmt.Errorf("%w: %s", types.ErrAlreadyUndone, e.ID)
	}

	if _, err := os.Lstat(e.Target); err != nil {
		return e, fmt.Errorf("cannot undo %s: %s is missing: %w", e.ID, e.Target, err)
	}
	if _, err := os.Lstat(e.Source); err == nil {
		return e, fmt.Errorf("cannot undo %s: %s already exists", e.ID, e.Source)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return e, err
	}

	// Mark and move succeed together: a failed move rolls the mark back,
	// a failed commit moves the path forward again.
	tx, err := j.db.BeginTxx(ctx, nil)
	if err != nil {
		return e, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := j.now().UTC()
	res, err := j.queries.ExecTx(ctx, tx, "mark-undone", now, e.ID)
	if err != nil {
		return e, fmt.Errorf("failed to mark %s undone: %w", e.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return e, fmt.Errorf("%w: %s", types.ErrAlreadyUndone, e.ID)
	}

	if err := os.Rename(e.Target, e.Source); err != nil {
		return e, fmt.Errorf("failed to move %s back: %w", e.Target, err)
	}
	if err := tx.Commit(); err != nil {
		os.Rename(e.Source, e.Target)
		return e, fmt.Errorf("failed to mark %s undone: %w", e.ID, err)
	}
	if e.Operation == types.OpWrap {
		// Non-empty directories stay
		os.Remove(filepath.Dir(e.Target))
	}

	e.UndoneAt = sql.NullTime{Time: now, Valid: true}
	return e, nil
}

