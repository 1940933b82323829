package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/auditgate/internal/consent"
	"github.com/ppiankov/auditgate/internal/ledger"
)

// --- Input/Output types ---

// InterceptInput defines parameters for the auditgate_intercept tool.
type InterceptInput struct {
	Tool string         `json:"tool" jsonschema:"tool name about to be invoked"`
	Args map[string]any `json:"args,omitempty" jsonschema:"tool arguments, shown to the approver"`
}

// InterceptOutput reports whether the call may proceed.
type InterceptOutput struct {
	Blocked   bool   `json:"blocked"`
	Reason    string `json:"reason,omitempty"`
	ConsentID string `json:"consent_id,omitempty"`
}

// CheckInput defines parameters for the auditgate_check tool.
type CheckInput struct {
	Tool string `json:"tool" jsonschema:"tool name to classify"`
}

// CheckOutput contains the dry-run classification.
type CheckOutput struct {
	Risk            string `json:"risk"`
	RequiresConsent bool   `json:"requires_consent"`
}

// ResolveInput identifies a pending consent request.
type ResolveInput struct {
	ID string `json:"id" jsonschema:"consent request id"`
}

// ResolveOutput confirms whether the request was still pending.
type ResolveOutput struct {
	ID       string `json:"id"`
	Resolved bool   `json:"resolved"`
	Status   string `json:"status,omitempty"`
}

// PendingInput is empty — no parameters needed.
type PendingInput struct{}

// PendingOutput lists outstanding consent requests.
type PendingOutput struct {
	Requests []PendingItem `json:"requests"`
}

// PendingItem describes one pending request.
type PendingItem struct {
	ID        string `json:"id"`
	Tool      string `json:"tool"`
	Risk      string `json:"risk"`
	Reason    string `json:"reason"`
	CreatedAt string `json:"created_at"`
}

// VerifyInput is empty — no parameters needed.
type VerifyInput struct{}

// RecentInput defines parameters for the auditgate_recent tool.
type RecentInput struct {
	N int `json:"n,omitempty" jsonschema:"number of entries to return (default 10)"`
}

// RecentOutput carries the most recent ledger entries.
type RecentOutput struct {
	Entries []ledger.Entry `json:"entries"`
}

// --- Handlers ---

func (s *Server) handleIntercept(ctx context.Context, req *mcpsdk.CallToolRequest, input InterceptInput) (*mcpsdk.CallToolResult, InterceptOutput, error) {
	decision, err := s.workflow.Intercept(ctx, consent.Event{
		ToolName: input.Tool,
		Args:     input.Args,
	})
	if err != nil {
		return nil, InterceptOutput{}, err
	}

	out := InterceptOutput{
		Blocked:   decision.Blocked,
		Reason:    decision.Reason,
		ConsentID: decision.RequestID,
	}
	if decision.Blocked {
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}

func (s *Server) handleCheck(ctx context.Context, req *mcpsdk.CallToolRequest, input CheckInput) (*mcpsdk.CallToolResult, CheckOutput, error) {
	return nil, CheckOutput{
		Risk:            s.workflow.ClassifyRisk(input.Tool).String(),
		RequiresConsent: s.workflow.RequiresConsent(input.Tool),
	}, nil
}

func (s *Server) handleApprove(ctx context.Context, req *mcpsdk.CallToolRequest, input ResolveInput) (*mcpsdk.CallToolResult, ResolveOutput, error) {
	resolved := s.workflow.HandleResponse(input.ID, true)
	return nil, ResolveOutput{ID: input.ID, Resolved: resolved, Status: resolveStatus(resolved, "approved")}, nil
}

func (s *Server) handleDeny(ctx context.Context, req *mcpsdk.CallToolRequest, input ResolveInput) (*mcpsdk.CallToolResult, ResolveOutput, error) {
	resolved := s.workflow.HandleResponse(input.ID, false)
	return nil, ResolveOutput{ID: input.ID, Resolved: resolved, Status: resolveStatus(resolved, "denied")}, nil
}

func resolveStatus(resolved bool, status string) string {
	if resolved {
		return status
	}
	return "not_pending"
}

func (s *Server) handlePending(ctx context.Context, req *mcpsdk.CallToolRequest, input PendingInput) (*mcpsdk.CallToolResult, PendingOutput, error) {
	pending := s.workflow.Pending()
	out := PendingOutput{Requests: make([]PendingItem, 0, len(pending))}
	for _, r := range pending {
		out.Requests = append(out.Requests, PendingItem{
			ID:        r.ID,
			Tool:      r.ToolName,
			Risk:      r.RiskLevel.String(),
			Reason:    r.Reason,
			CreatedAt: r.CreatedAt.UTC().Format(ledger.TimestampFormat),
		})
	}
	return nil, out, nil
}

func (s *Server) handleVerify(ctx context.Context, req *mcpsdk.CallToolRequest, input VerifyInput) (*mcpsdk.CallToolResult, ledger.VerifyResult, error) {
	result := s.ledger.Verify()
	if !result.Valid {
		return &mcpsdk.CallToolResult{IsError: true}, result, nil
	}
	return nil, result, nil
}

func (s *Server) handleRecent(ctx context.Context, req *mcpsdk.CallToolRequest, input RecentInput) (*mcpsdk.CallToolResult, RecentOutput, error) {
	n := input.N
	if n <= 0 {
		n = 10
	}
	return nil, RecentOutput{Entries: s.ledger.GetRecent(n)}, nil
}
