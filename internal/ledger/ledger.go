// Package ledger implements the tamper-evident audit chain: an append-only
// sequence of signed, hash-linked records with file-backed persistence.
//
// One Ledger owns one storage file and one signing key. Append is serialized
// under a mutex — sequence assignment, hashing, signing, tip update,
// retention trimming, and persistence form a single critical section.
// Concurrent writers to the same file are unsupported and will corrupt the
// chain.
package ledger

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Config holds ledger construction parameters.
type Config struct {
	// Path is the ledger snapshot file.
	Path string
	// KeyPath is the signing key file. Defaults to Path + ".key".
	KeyPath string
	// MaxEntries caps the retained window. 0 disables trimming.
	MaxEntries int
	// Archive, when non-nil, receives entries evicted by trimming.
	Archive *Archive
	// Forwarder, when non-nil, receives every appended entry (best-effort).
	Forwarder *Forwarder
}

// Ledger is the append-only hash chain.
type Ledger struct {
	mu         sync.Mutex
	signer     *Signer
	store      *fileStore
	entries    []Entry
	sequence   int64
	lastHash   string
	maxEntries int
	archive    *Archive
	forwarder  *Forwarder
	log        *logrus.Entry
}

// Open loads (or creates) the ledger at cfg.Path. On first use a fresh
// signing key is generated and persisted next to the ledger. A corrupt or
// unreadable snapshot resets to an empty chain with a logged warning rather
// than failing startup.
func Open(cfg Config) (*Ledger, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("ledger: path is required")
	}
	keyPath := cfg.KeyPath
	if keyPath == "" {
		keyPath = cfg.Path + ".key"
	}

	signer, err := LoadOrCreateSigner(keyPath)
	if err != nil {
		return nil, err
	}

	store, err := newFileStore(cfg.Path)
	if err != nil {
		return nil, err
	}

	log := logrus.WithField("component", "ledger")

	snap, err := store.load()
	if err != nil {
		// Silent historical data loss is the documented trade-off here;
		// the warning is the operator side channel.
		log.WithError(err).Warn("persisted chain unreadable, starting empty")
		snap = snapshot{}
	}

	lastHash := snap.LastHash
	if lastHash == "" {
		lastHash = GenesisHash
		if n := len(snap.Entries); n > 0 {
			lastHash = snap.Entries[n-1].Hash
		}
	}

	return &Ledger{
		signer:     signer,
		store:      store,
		entries:    snap.Entries,
		sequence:   snap.Sequence,
		lastHash:   lastHash,
		maxEntries: cfg.MaxEntries,
		archive:    cfg.Archive,
		forwarder:  cfg.Forwarder,
		log:        log,
	}, nil
}

// Append creates, signs, links, and durably persists a new entry. The entry
// is committed only if the snapshot write succeeds; on write failure the
// in-memory tip is unchanged and the error is returned. Retention trimming
// evicts oldest-first once MaxEntries is exceeded — surviving entries keep
// their sequence numbers and hashes.
func (l *Ledger) Append(rec Record) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := Entry{
		ID:                uuid.NewString(),
		Sequence:          l.sequence + 1,
		Timestamp:         UTCNowISO(),
		Action:            rec.Action,
		ToolName:          rec.ToolName,
		RiskLevel:         rec.RiskLevel.String(),
		ConsentRequired:   rec.ConsentRequired,
		ConsentGranted:    rec.ConsentGranted,
		DataTokenized:     rec.DataTokenized,
		InjectionDetected: rec.InjectionDetected,
		Metadata:          rec.Metadata,
	}
	e.Hash = contentHash(e)
	e.PrevHash = l.lastHash
	e.Signature = l.signer.Sign(e.Sequence, e.ID, e.Hash, e.PrevHash)

	retained := append(l.entries, e)
	var evicted []Entry
	if l.maxEntries > 0 && len(retained) > l.maxEntries {
		cut := len(retained) - l.maxEntries
		evicted = retained[:cut]
		retained = retained[cut:]
	}

	if err := l.store.save(snapshot{
		Entries:  retained,
		Sequence: e.Sequence,
		LastHash: e.Hash,
		SavedAt:  UTCNowISO(),
	}); err != nil {
		return Entry{}, fmt.Errorf("ledger: append seq %d: %w", e.Sequence, err)
	}

	l.entries = retained
	l.sequence = e.Sequence
	l.lastHash = e.Hash

	if l.archive != nil && len(evicted) > 0 {
		if err := l.archive.Store(evicted); err != nil {
			l.log.WithError(err).Warn("archive evicted entries")
		}
	}

	if l.forwarder != nil {
		l.forwarder.Submit(e)
	}

	return e, nil
}

// GetRecent returns a copy of the most recent n retained entries in append
// order.
func (l *Ledger) GetRecent(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || len(l.entries) == 0 {
		return nil
	}
	if n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]Entry, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}

// Export returns a copy of all retained entries in append order.
func (l *Ledger) Export() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Stats summarizes the retained window.
type Stats struct {
	TotalEntries int    `json:"total_entries"`
	Valid        bool   `json:"valid"`
	Sequence     int64  `json:"sequence"`
	Earliest     string `json:"earliest,omitempty"`
	Latest       string `json:"latest,omitempty"`
}

// Stats combines chain validity with the count and timestamp range of the
// retained window.
func (l *Ledger) Stats() Stats {
	result := l.Verify()

	l.mu.Lock()
	defer l.mu.Unlock()

	s := Stats{
		TotalEntries: len(l.entries),
		Valid:        result.Valid,
		Sequence:     l.sequence,
	}
	if len(l.entries) > 0 {
		s.Earliest = l.entries[0].Timestamp
		s.Latest = l.entries[len(l.entries)-1].Timestamp
	}
	return s
}

// Close releases the archive and forwarder, if configured.
func (l *Ledger) Close() error {
	if l.forwarder != nil {
		l.forwarder.Close()
	}
	if l.archive != nil {
		return l.archive.Close()
	}
	return nil
}
