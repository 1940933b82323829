package ledger

// FailureReason identifies which integrity check an entry failed.
type FailureReason string

const (
	// ReasonLinkageBroken: prev_hash does not match the predecessor's hash.
	ReasonLinkageBroken FailureReason = "linkage_broken"
	// ReasonContentMismatch: the stored hash does not match the recomputed
	// content digest.
	ReasonContentMismatch FailureReason = "content_mismatch"
	// ReasonSignatureMismatch: the signature was not produced by this
	// ledger's key over this entry's position, id, hash, and linkage.
	ReasonSignatureMismatch FailureReason = "signature_mismatch"
)

// VerifyResult reports chain integrity. On failure, Reason/Sequence/ID
// pinpoint the first offending entry; later entries are not inspected since
// the chain is unverifiable past a break.
type VerifyResult struct {
	Valid        bool          `json:"valid"`
	TotalEntries int           `json:"total_entries"`
	Reason       FailureReason `json:"reason,omitempty"`
	Sequence     int64         `json:"sequence,omitempty"`
	ID           string        `json:"id,omitempty"`
}

// Verify walks the retained entries in order, checking linkage, content
// digest, and signature for each. An empty chain is valid.
//
// When the first retained entry is sequence 1 the expected previous hash is
// the genesis sentinel. After retention trimming the first retained entry's
// predecessor is gone, so its own prev_hash seeds the walk — linkage into
// pruned history cannot be recomputed and is accepted as the anchor.
func (l *Ledger) Verify() VerifyResult {
	l.mu.Lock()
	entries := make([]Entry, len(l.entries))
	copy(entries, l.entries)
	l.mu.Unlock()

	result := VerifyResult{Valid: true, TotalEntries: len(entries)}
	if len(entries) == 0 {
		return result
	}

	expected := GenesisHash
	if entries[0].Sequence != 1 {
		expected = entries[0].PrevHash
	}

	for _, e := range entries {
		if e.PrevHash != expected {
			return VerifyResult{
				TotalEntries: len(entries),
				Reason:       ReasonLinkageBroken,
				Sequence:     e.Sequence,
				ID:           e.ID,
			}
		}
		if contentHash(e) != e.Hash {
			return VerifyResult{
				TotalEntries: len(entries),
				Reason:       ReasonContentMismatch,
				Sequence:     e.Sequence,
				ID:           e.ID,
			}
		}
		if !l.signer.Check(e) {
			return VerifyResult{
				TotalEntries: len(entries),
				Reason:       ReasonSignatureMismatch,
				Sequence:     e.Sequence,
				ID:           e.ID,
			}
		}
		expected = e.Hash
	}

	return result
}
