package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// snapshot is the full persisted ledger state: the retained entries plus the
// chain tip. Written synchronously on every Append.
type snapshot struct {
	Entries  []Entry `json:"entries"`
	Sequence int64   `json:"sequence"`
	LastHash string  `json:"last_hash"`
	SavedAt  string  `json:"saved_at"`
}

type fileStore struct {
	path string
}

func newFileStore(path string) (*fileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("ledger: create directory: %w", err)
	}
	return &fileStore{path: path}, nil
}

// save writes the snapshot atomically: temp file, fsync, rename. A crash
// mid-write leaves the previous snapshot intact.
func (st *fileStore) save(snap snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("ledger: marshal snapshot: %w", err)
	}

	tmp := st.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("ledger: open temp snapshot: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("ledger: write snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("ledger: sync snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("ledger: close snapshot: %w", err)
	}
	if err := os.Rename(tmp, st.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("ledger: replace snapshot: %w", err)
	}
	return nil
}

// load reads the persisted snapshot. Missing file returns an empty snapshot.
// An unreadable or corrupt file also returns an empty snapshot plus the
// underlying error so the caller can surface it — availability over
// durability: a damaged chain file must not block startup.
func (st *fileStore) load() (snapshot, error) {
	data, err := os.ReadFile(st.path)
	if err != nil {
		if os.IsNotExist(err) {
			return snapshot{}, nil
		}
		return snapshot{}, fmt.Errorf("ledger: read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return snapshot{}, fmt.Errorf("ledger: parse snapshot: %w", err)
	}
	return snap, nil
}
