package consent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// validKey matches alphanumeric, dash, underscore, and dot characters only.
var validKey = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// validateKey rejects ids that could cause path traversal.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("id must not be empty")
	}
	if strings.Contains(key, "..") {
		return fmt.Errorf("id must not contain '..'")
	}
	if !validKey.MatchString(key) {
		return fmt.Errorf("id contains invalid characters: only alphanumeric, dash, underscore, and dot are allowed")
	}
	return nil
}

// DecisionFile is an operator's answer to a pending request, dropped into
// the spool's decisions directory by the CLI and picked up by the watcher.
type DecisionFile struct {
	ID        string    `json:"id"`
	Approved  bool      `json:"approved"`
	DecidedAt time.Time `json:"decided_at"`
}

// Spool mirrors pending requests to disk so operators can inspect and answer
// them from outside the serving process. Layout under dir:
//
//	pending/<id>.json   — one file per outstanding request
//	decisions/<id>.json — operator answers awaiting pickup
type Spool struct {
	dir string
	mu  sync.Mutex
}

// NewSpool creates the spool directories under dir.
func NewSpool(dir string) (*Spool, error) {
	for _, sub := range []string{"pending", "decisions"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0700); err != nil {
			return nil, fmt.Errorf("consent: create spool directory: %w", err)
		}
	}
	return &Spool{dir: dir}, nil
}

// DecisionsDir returns the directory the watcher observes.
func (s *Spool) DecisionsDir() string {
	return filepath.Join(s.dir, "decisions")
}

// Put writes (or overwrites) the pending file for a request.
func (s *Spool) Put(req *Request) error {
	if err := validateKey(req.ID); err != nil {
		return fmt.Errorf("consent: invalid request id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(s.pendingPath(req.ID), req)
}

// Remove unlinks the pending file for a resolved request. Best-effort.
func (s *Spool) Remove(id string) {
	if validateKey(id) != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	os.Remove(s.pendingPath(id))
}

// List returns the spooled pending requests, oldest first.
func (s *Spool) List() ([]Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(s.dir, "pending"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("consent: read spool: %w", err)
	}

	var reqs []Request
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, "pending", e.Name()))
		if err != nil {
			continue
		}
		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			continue
		}
		reqs = append(reqs, req)
	}

	sort.Slice(reqs, func(i, j int) bool { return reqs[i].CreatedAt.Before(reqs[j].CreatedAt) })
	return reqs, nil
}

// SubmitDecision writes an operator decision file for the watcher to pick
// up.
func (s *Spool) SubmitDecision(id string, approved bool) error {
	if err := validateKey(id); err != nil {
		return fmt.Errorf("consent: invalid request id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(s.decisionPath(id), DecisionFile{
		ID:        id,
		Approved:  approved,
		DecidedAt: time.Now().UTC(),
	})
}

// ReadDecision parses a decision file.
func ReadDecision(path string) (DecisionFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DecisionFile{}, fmt.Errorf("consent: read decision: %w", err)
	}
	var d DecisionFile
	if err := json.Unmarshal(data, &d); err != nil {
		return DecisionFile{}, fmt.Errorf("consent: parse decision: %w", err)
	}
	return d, nil
}

// Cleanup removes all pending and decision files.
func (s *Spool) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range []string{"pending", "decisions"} {
		dir := filepath.Join(s.dir, sub)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				os.Remove(filepath.Join(dir, e.Name()))
			}
		}
	}
	return nil
}

func (s *Spool) pendingPath(id string) string {
	return filepath.Join(s.dir, "pending", id+".json")
}

func (s *Spool) decisionPath(id string) string {
	return filepath.Join(s.dir, "decisions", id+".json")
}

func writeAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("consent: marshal: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("consent: write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("consent: replace: %w", err)
	}
	return nil
}
