// Package mcp exposes the consent workflow and audit ledger as MCP tools
// over stdio, so an agent host can gate tool calls and operators (or
// sidecar agents) can inspect and resolve approvals.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/auditgate/internal/consent"
	"github.com/ppiankov/auditgate/internal/ledger"
)

// Server wraps the MCP SDK server around a workflow and its ledger.
type Server struct {
	mcpServer *mcpsdk.Server
	workflow  *consent.Workflow
	ledger    *ledger.Ledger
}

// New creates an MCP server with all auditgate tools registered.
func New(workflow *consent.Workflow, led *ledger.Ledger, version string) *Server {
	s := &Server{
		workflow: workflow,
		ledger:   led,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "auditgate",
			Version: version,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport. Blocks until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// registerTools adds all auditgate tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "auditgate_intercept",
		Description: "Gate a prospective tool call. Suspends until a human approves, denies, or the timeout expires. The decision is recorded in the audit ledger.",
	}, s.handleIntercept)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "auditgate_check",
		Description: "Classify a tool name's risk and report whether it would require consent, without creating a request (dry-run).",
	}, s.handleCheck)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "auditgate_approve",
		Description: "Approve a pending consent request by id.",
	}, s.handleApprove)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "auditgate_deny",
		Description: "Deny a pending consent request by id.",
	}, s.handleDeny)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "auditgate_pending",
		Description: "List all pending consent requests.",
	}, s.handlePending)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "auditgate_verify",
		Description: "Verify the audit ledger's hash chain and signatures. Reports the first broken entry if tampered.",
	}, s.handleVerify)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "auditgate_recent",
		Description: "Return the most recent audit ledger entries.",
	}, s.handleRecent)
}
