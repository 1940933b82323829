package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/ppiankov/auditgate/internal/risk"
)

// GenesisHash is the prev_hash of the first entry in a new ledger. It is an
// opaque sentinel compared only for exact equality — deliberately not shaped
// like a real digest, and never recomputed.
const GenesisHash = "genesis"

// TimestampFormat is the fixed serialization for entry timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Entry is one immutable record in the hash-chained ledger.
//
// Hash covers the semantic fields (everything except hash, prev_hash and
// signature) and is position-independent. PrevHash links the entry to its
// predecessor. Signature is an HMAC over sequence|id|hash|prev_hash, binding
// position, identity, content, and linkage together.
type Entry struct {
	ID                string            `json:"id"`
	Sequence          int64             `json:"sequence"`
	Timestamp         string            `json:"timestamp"`
	Action            string            `json:"action"`
	ToolName          string            `json:"tool_name,omitempty"`
	RiskLevel         string            `json:"risk_level"`
	ConsentRequired   bool              `json:"consent_required"`
	ConsentGranted    *bool             `json:"consent_granted,omitempty"`
	DataTokenized     bool              `json:"data_tokenized"`
	InjectionDetected bool              `json:"injection_detected"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	Hash              string            `json:"hash"`
	PrevHash          string            `json:"prev_hash"`
	Signature         string            `json:"signature"`
}

// Record holds the caller-supplied fields for one Append. Everything else on
// the entry (id, sequence, timestamp, hash, prev_hash, signature) is assigned
// by the ledger.
type Record struct {
	Action            string
	ToolName          string
	RiskLevel         risk.Level
	ConsentRequired   bool
	ConsentGranted    *bool
	DataTokenized     bool
	InjectionDetected bool
	Metadata          map[string]string
}

// entryContent is the canonical serialization input for the content hash.
// All fields are fixed-order struct fields so json.Marshal is deterministic;
// the metadata map is safe because encoding/json sorts map keys.
type entryContent struct {
	ID                string            `json:"id"`
	Sequence          int64             `json:"sequence"`
	Timestamp         string            `json:"timestamp"`
	Action            string            `json:"action"`
	ToolName          string            `json:"tool_name,omitempty"`
	RiskLevel         string            `json:"risk_level"`
	ConsentRequired   bool              `json:"consent_required"`
	ConsentGranted    *bool             `json:"consent_granted,omitempty"`
	DataTokenized     bool              `json:"data_tokenized"`
	InjectionDetected bool              `json:"injection_detected"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// contentHash returns "sha256:<hex>" over the entry's canonical content.
// The result is independent of hash, prev_hash, and signature, so it stays
// stable when the entry's position in the chain is inspected.
func contentHash(e Entry) string {
	content := entryContent{
		ID:                e.ID,
		Sequence:          e.Sequence,
		Timestamp:         e.Timestamp,
		Action:            e.Action,
		ToolName:          e.ToolName,
		RiskLevel:         e.RiskLevel,
		ConsentRequired:   e.ConsentRequired,
		ConsentGranted:    e.ConsentGranted,
		DataTokenized:     e.DataTokenized,
		InjectionDetected: e.InjectionDetected,
		Metadata:          e.Metadata,
	}
	data, err := json.Marshal(content)
	if err != nil {
		// Only map values could fail to marshal, and Metadata is
		// map[string]string. Unreachable in practice.
		panic("ledger: marshal entry content: " + err.Error())
	}
	h := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(h[:])
}

// UTCNowISO returns the current UTC time in the ledger timestamp format.
func UTCNowISO() string {
	return time.Now().UTC().Format(TimestampFormat)
}
