package consent

import (
	"time"

	"github.com/ppiankov/auditgate/internal/risk"
)

// Status is the state of a consent request. Pending is initial; the other
// three are terminal and mutually exclusive — a request leaves Pending
// exactly once.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusTimedOut Status = "timed_out"
)

// Request is one outstanding human approval decision for one tool
// invocation. Transient: only its resolution is recorded in the ledger.
type Request struct {
	ID         string         `json:"id"`
	ToolName   string         `json:"tool_name"`
	ToolArgs   map[string]any `json:"tool_args,omitempty"`
	RiskLevel  risk.Level     `json:"risk_level"`
	Reason     string         `json:"reason"`
	Status     Status         `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty"`
}
