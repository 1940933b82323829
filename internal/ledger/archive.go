package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// Archive is a local SQLite store for entries evicted from the retained
// window by trimming. It keeps full history queryable without growing the
// snapshot file; it plays no part in chain verification.
type Archive struct {
	db *sql.DB
}

const archiveSchema = `
CREATE TABLE IF NOT EXISTS archived_entries (
	sequence    INTEGER PRIMARY KEY,
	id          TEXT NOT NULL,
	action      TEXT NOT NULL,
	entry       TEXT NOT NULL,
	archived_at TEXT NOT NULL
);`

// OpenArchive opens (or creates) the archive database at path.
func OpenArchive(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open archive: %w", err)
	}
	if _, err := db.Exec(archiveSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: init archive schema: %w", err)
	}
	return &Archive{db: db}, nil
}

// Store inserts evicted entries in one transaction. Re-archiving the same
// sequence is ignored so a replayed eviction cannot fail the batch.
func (a *Archive) Store(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("ledger: archive begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		"INSERT OR IGNORE INTO archived_entries (sequence, id, action, entry, archived_at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("ledger: archive prepare: %w", err)
	}
	defer stmt.Close()

	now := UTCNowISO()
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("ledger: archive marshal seq %d: %w", e.Sequence, err)
		}
		if _, err := stmt.Exec(e.Sequence, e.ID, e.Action, string(data), now); err != nil {
			return fmt.Errorf("ledger: archive insert seq %d: %w", e.Sequence, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ledger: archive commit: %w", err)
	}
	return nil
}

// Count returns the number of archived entries.
func (a *Archive) Count() (int, error) {
	var n int
	if err := a.db.QueryRow("SELECT COUNT(*) FROM archived_entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("ledger: archive count: %w", err)
	}
	return n, nil
}

// Get returns the archived entry with the given sequence number, or false if
// it was never archived.
func (a *Archive) Get(sequence int64) (Entry, bool, error) {
	var data string
	err := a.db.QueryRow(
		"SELECT entry FROM archived_entries WHERE sequence = ?", sequence).Scan(&data)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("ledger: archive get seq %d: %w", sequence, err)
	}

	var e Entry
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return Entry{}, false, fmt.Errorf("ledger: archive parse seq %d: %w", sequence, err)
	}
	return e, true, nil
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}
