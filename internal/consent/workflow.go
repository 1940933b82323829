// Package consent implements the human-in-the-loop gate: a pending-request
// registry, a per-request race between an explicit response and a timeout,
// and unconditional decision logging to the audit ledger.
//
// Limitation, by design: if the process terminates while requests are
// pending, the in-flight approvals are abandoned and the awaiting callers
// never resume.
package consent

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/auditgate/internal/ledger"
	"github.com/ppiankov/auditgate/internal/notify"
	"github.com/ppiankov/auditgate/internal/risk"
)

// Event describes a prospective tool invocation handed to Intercept by the
// host's hook mechanism. DataTokenized, InjectionDetected, and Metadata are
// opaque facts from upstream detectors, passed through to the ledger.
type Event struct {
	ToolName          string
	Args              map[string]any
	DataTokenized     bool
	InjectionDetected bool
	Metadata          map[string]string
}

// Decision is the outcome of Intercept. A blocked call carries a reason that
// distinguishes explicit rejection from timeout. RequestID is set whenever a
// consent request was created.
type Decision struct {
	Blocked   bool
	Reason    string
	RequestID string
}

// Config holds workflow parameters.
type Config struct {
	// Timeout bounds how long Intercept waits for a human response.
	Timeout time.Duration
	// Gate decides which tool calls need consent at all.
	Gate risk.GateConfig
}

// pendingRequest pairs a request with the one-shot channel its claimant
// fulfills. The channel is buffered so the winning resolver never blocks.
type pendingRequest struct {
	req  *Request
	done chan Status
}

// Workflow tracks outstanding approval requests and records every decision
// to the ledger. The pending table is the sole authority for "has this
// request already been resolved": claiming is a remove-if-present under one
// mutex, so exactly one of {response, timer} wins.
type Workflow struct {
	cfg      Config
	ledger   *ledger.Ledger
	notifier notify.Notifier
	spool    *Spool

	mu      sync.Mutex
	pending map[string]*pendingRequest

	log *logrus.Entry
}

// New creates a workflow. spool may be nil to disable the on-disk mirror of
// pending requests.
func New(cfg Config, led *ledger.Ledger, notifier notify.Notifier, spool *Spool) *Workflow {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &Workflow{
		cfg:      cfg,
		ledger:   led,
		notifier: notifier,
		spool:    spool,
		pending:  make(map[string]*pendingRequest),
		log:      logrus.WithField("component", "consent"),
	}
}

// ClassifyRisk exposes the classifier for callers that only need the level.
func (w *Workflow) ClassifyRisk(toolName string) risk.Level {
	return risk.Classify(toolName)
}

// RequiresConsent reports whether the named tool would be gated.
func (w *Workflow) RequiresConsent(toolName string) bool {
	return risk.RequiresConsent(toolName, w.cfg.Gate)
}

// Intercept gates one prospective tool call. Tool calls below the gate pass
// immediately with nothing appended — routine logging is the caller's job.
// Gated calls publish a prompt, then suspend until an explicit response or
// the timeout claims the request; the decision is appended to the ledger
// unconditionally before returning.
//
// Concurrent Intercept calls are independent: each has its own pending-table
// entry and timer.
func (w *Workflow) Intercept(ctx context.Context, ev Event) (Decision, error) {
	if !risk.RequiresConsent(ev.ToolName, w.cfg.Gate) {
		return Decision{Blocked: false}, nil
	}

	level := risk.Classify(ev.ToolName)
	req := &Request{
		ID:        uuid.NewString(),
		ToolName:  ev.ToolName,
		ToolArgs:  ev.Args,
		RiskLevel: level,
		Reason:    fmt.Sprintf("%s risk requires human approval", level),
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	// Delivery is awaited; the response is not.
	prompt := FormatPrompt(req, w.cfg.Timeout)
	if err := w.notifier.Deliver(ctx, prompt); err != nil {
		return Decision{}, fmt.Errorf("consent: deliver prompt for %s: %w", req.ID, err)
	}

	pr := &pendingRequest{req: req, done: make(chan Status, 1)}
	w.mu.Lock()
	w.pending[req.ID] = pr
	w.mu.Unlock()

	if w.spool != nil {
		if err := w.spool.Put(req); err != nil {
			w.log.WithField("id", req.ID).WithError(err).Warn("spool pending request")
		}
	}

	timer := time.NewTimer(w.cfg.Timeout)
	defer timer.Stop()

	var status Status
	select {
	case status = <-pr.done:
	case <-timer.C:
		if w.claim(req.ID) != nil {
			status = StatusTimedOut
		} else {
			// A response claimed the request between the timer firing
			// and our claim attempt; its status is already in flight.
			status = <-pr.done
		}
	}

	now := time.Now().UTC()
	req.Status = status
	req.ResolvedAt = &now

	if w.spool != nil {
		w.spool.Remove(req.ID)
	}

	if err := w.record(ev, req, status); err != nil {
		return Decision{}, err
	}

	switch status {
	case StatusApproved:
		return Decision{Blocked: false, RequestID: req.ID}, nil
	case StatusRejected:
		return Decision{
			Blocked:   true,
			Reason:    fmt.Sprintf("rejected by operator (consent %s)", req.ID),
			RequestID: req.ID,
		}, nil
	default:
		return Decision{
			Blocked:   true,
			Reason:    fmt.Sprintf("consent %s timed out after %s", req.ID, w.cfg.Timeout),
			RequestID: req.ID,
		}, nil
	}
}

// HandleResponse resolves a pending request. Returns false if the id is
// unknown, already resolved, or timed out — a normal outcome, not an error.
func (w *Workflow) HandleResponse(id string, approved bool) bool {
	pr := w.claim(id)
	if pr == nil {
		return false
	}
	if approved {
		pr.done <- StatusApproved
	} else {
		pr.done <- StatusRejected
	}
	return true
}

// Pending returns a copy of the outstanding requests, oldest first.
func (w *Workflow) Pending() []Request {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]Request, 0, len(w.pending))
	for _, pr := range w.pending {
		out = append(out, *pr.req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// claim atomically removes a request from the pending table. Whoever gets a
// non-nil result owns the resolution; everyone else sees nil and must not
// touch the request.
func (w *Workflow) claim(id string) *pendingRequest {
	w.mu.Lock()
	defer w.mu.Unlock()

	pr, ok := w.pending[id]
	if !ok {
		return nil
	}
	delete(w.pending, id)
	return pr
}

// record appends the decision to the ledger. A ledger write failure fails
// the Intercept — the decision must not be acted on unaudited.
func (w *Workflow) record(ev Event, req *Request, status Status) error {
	granted := status == StatusApproved

	meta := make(map[string]string, len(ev.Metadata)+3)
	for k, v := range ev.Metadata {
		meta[k] = v
	}
	meta["consent_id"] = req.ID
	meta["consent_status"] = string(status)
	if len(ev.Args) > 0 {
		meta["tool_args"] = FormatArgs(ev.Args)
	}

	_, err := w.ledger.Append(ledger.Record{
		Action:            "consent_decision",
		ToolName:          ev.ToolName,
		RiskLevel:         req.RiskLevel,
		ConsentRequired:   true,
		ConsentGranted:    &granted,
		DataTokenized:     ev.DataTokenized,
		InjectionDetected: ev.InjectionDetected,
		Metadata:          meta,
	})
	if err != nil {
		return fmt.Errorf("consent: record decision for %s: %w", req.ID, err)
	}
	return nil
}
