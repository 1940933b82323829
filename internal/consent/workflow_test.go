package consent

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/auditgate/internal/ledger"
	"github.com/ppiankov/auditgate/internal/risk"
)

// captureNotifier records delivered prompts instead of sending them anywhere.
type captureNotifier struct {
	mu      sync.Mutex
	prompts []string
	fail    error
}

func (n *captureNotifier) Deliver(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.prompts = append(n.prompts, text)
	return nil
}

func (n *captureNotifier) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.prompts) == 0 {
		return ""
	}
	return n.prompts[len(n.prompts)-1]
}

func newTestWorkflow(t *testing.T, cfg Config) (*Workflow, *ledger.Ledger, *captureNotifier) {
	t.Helper()
	led, err := ledger.Open(ledger.Config{Path: filepath.Join(t.TempDir(), "ledger.json")})
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	notifier := &captureNotifier{}
	return New(cfg, led, notifier, nil), led, notifier
}

// waitForPending polls until exactly one request is outstanding and returns
// its id. Intercept registers the request after delivering the prompt, so
// responders in tests have to wait for it to appear. Safe to call off the
// test goroutine.
func waitForPending(t *testing.T, w *Workflow) string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if pending := w.Pending(); len(pending) == 1 {
			return pending[0].ID
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Error("no pending request appeared")
	return ""
}

func TestInterceptPassesBelowGate(t *testing.T) {
	w, led, notifier := newTestWorkflow(t, Config{
		Timeout: time.Second,
		Gate:    risk.GateConfig{Threshold: risk.LevelHigh},
	})

	dec, err := w.Intercept(context.Background(), Event{ToolName: "read_file"})
	if err != nil {
		t.Fatalf("intercept: %v", err)
	}
	if dec.Blocked || dec.RequestID != "" {
		t.Fatalf("low-risk call should pass without a request: %+v", dec)
	}
	if len(notifier.prompts) != 0 {
		t.Error("no prompt should be delivered for an ungated call")
	}
	// Routine passes are not audited here; only decisions are.
	if got := led.Stats().TotalEntries; got != 0 {
		t.Errorf("ledger has %d entries, want 0", got)
	}
}

func TestInterceptApproved(t *testing.T) {
	w, led, notifier := newTestWorkflow(t, Config{
		Timeout: 10 * time.Second,
		Gate:    risk.GateConfig{Threshold: risk.LevelHigh},
	})

	go func() {
		id := waitForPending(t, w)
		if !w.HandleResponse(id, true) {
			t.Error("HandleResponse should resolve the pending request")
		}
	}()

	dec, err := w.Intercept(context.Background(), Event{
		ToolName: "delete_file",
		Args:     map[string]any{"path": "/tmp/x"},
	})
	if err != nil {
		t.Fatalf("intercept: %v", err)
	}
	if dec.Blocked {
		t.Fatalf("approved call should not be blocked: %+v", dec)
	}
	if dec.RequestID == "" {
		t.Fatal("missing request id")
	}

	prompt := notifier.last()
	if !strings.Contains(prompt, "delete_file") || !strings.Contains(prompt, dec.RequestID) {
		t.Errorf("prompt missing tool name or request id:\n%s", prompt)
	}

	entries := led.Export()
	if len(entries) != 1 {
		t.Fatalf("ledger has %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Action != "consent_decision" || !e.ConsentRequired {
		t.Fatalf("unexpected decision entry: %+v", e)
	}
	if e.ConsentGranted == nil || !*e.ConsentGranted {
		t.Error("consent_granted should be true")
	}
	if e.Metadata["consent_id"] != dec.RequestID || e.Metadata["consent_status"] != string(StatusApproved) {
		t.Errorf("decision metadata = %v", e.Metadata)
	}
}

func TestInterceptRejected(t *testing.T) {
	w, led, _ := newTestWorkflow(t, Config{
		Timeout: 10 * time.Second,
		Gate:    risk.GateConfig{Threshold: risk.LevelHigh},
	})

	go func() {
		id := waitForPending(t, w)
		w.HandleResponse(id, false)
	}()

	dec, err := w.Intercept(context.Background(), Event{ToolName: "run_shell_command"})
	if err != nil {
		t.Fatalf("intercept: %v", err)
	}
	if !dec.Blocked {
		t.Fatal("rejected call must be blocked")
	}
	if !strings.Contains(dec.Reason, "rejected by operator") {
		t.Errorf("reason = %q", dec.Reason)
	}

	e := led.Export()[0]
	if e.ConsentGranted == nil || *e.ConsentGranted {
		t.Error("consent_granted should be false")
	}
	if e.Metadata["consent_status"] != string(StatusRejected) {
		t.Errorf("consent_status = %s", e.Metadata["consent_status"])
	}
}

func TestInterceptTimesOut(t *testing.T) {
	w, led, _ := newTestWorkflow(t, Config{
		Timeout: 50 * time.Millisecond,
		Gate:    risk.GateConfig{Threshold: risk.LevelHigh},
	})

	dec, err := w.Intercept(context.Background(), Event{ToolName: "delete_file"})
	if err != nil {
		t.Fatalf("intercept: %v", err)
	}
	if !dec.Blocked {
		t.Fatal("timed-out call must be blocked")
	}
	if !strings.Contains(dec.Reason, "timed out") {
		t.Errorf("reason = %q", dec.Reason)
	}

	e := led.Export()[0]
	if e.ConsentGranted == nil || *e.ConsentGranted {
		t.Error("timeout must record consent_granted=false")
	}
	if e.Metadata["consent_status"] != string(StatusTimedOut) {
		t.Errorf("consent_status = %s", e.Metadata["consent_status"])
	}

	// The request left the pending table when the timer claimed it.
	if w.HandleResponse(dec.RequestID, true) {
		t.Error("late response should find nothing to resolve")
	}
}

func TestHandleResponseUnknownID(t *testing.T) {
	w, _, _ := newTestWorkflow(t, Config{Timeout: time.Second})
	if w.HandleResponse("no-such-request", true) {
		t.Fatal("unknown id should not resolve")
	}
}

func TestHandleResponseSecondCallLoses(t *testing.T) {
	w, _, _ := newTestWorkflow(t, Config{
		Timeout: 10 * time.Second,
		Gate:    risk.GateConfig{Threshold: risk.LevelHigh},
	})

	results := make(chan bool, 2)
	go func() {
		id := waitForPending(t, w)
		results <- w.HandleResponse(id, true)
		results <- w.HandleResponse(id, false)
	}()

	dec, err := w.Intercept(context.Background(), Event{ToolName: "delete_file"})
	if err != nil {
		t.Fatalf("intercept: %v", err)
	}
	if dec.Blocked {
		t.Fatal("first response approved; the later denial must not apply")
	}
	if first := <-results; !first {
		t.Error("first response should win")
	}
	if second := <-results; second {
		t.Error("second response should find the request gone")
	}
}

func TestConcurrentInterceptsAreIndependent(t *testing.T) {
	w, led, _ := newTestWorkflow(t, Config{
		Timeout: 10 * time.Second,
		Gate:    risk.GateConfig{Threshold: risk.LevelHigh},
	})

	type outcome struct {
		tool string
		dec  Decision
		err  error
	}
	outcomes := make(chan outcome, 2)
	intercept := func(tool string) {
		dec, err := w.Intercept(context.Background(), Event{ToolName: tool})
		outcomes <- outcome{tool: tool, dec: dec, err: err}
	}
	go intercept("delete_file")
	go intercept("run_shell_command")

	// Wait until both are registered, then approve one and deny the other.
	deadline := time.Now().Add(5 * time.Second)
	var pending []Request
	for time.Now().Before(deadline) {
		if pending = w.Pending(); len(pending) == 2 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d requests, want 2", len(pending))
	}
	for _, req := range pending {
		w.HandleResponse(req.ID, req.ToolName == "delete_file")
	}

	for i := 0; i < 2; i++ {
		o := <-outcomes
		if o.err != nil {
			t.Fatalf("intercept %s: %v", o.tool, o.err)
		}
		switch o.tool {
		case "delete_file":
			if o.dec.Blocked {
				t.Errorf("delete_file was approved but blocked: %+v", o.dec)
			}
		case "run_shell_command":
			if !o.dec.Blocked {
				t.Errorf("run_shell_command was denied but passed: %+v", o.dec)
			}
		}
	}

	if got := led.Stats().TotalEntries; got != 2 {
		t.Errorf("ledger has %d decision entries, want 2", got)
	}
}

func TestInterceptFailsWhenPromptUndeliverable(t *testing.T) {
	w, led, notifier := newTestWorkflow(t, Config{
		Timeout: time.Second,
		Gate:    risk.GateConfig{Threshold: risk.LevelHigh},
	})
	notifier.fail = errors.New("webhook down")

	_, err := w.Intercept(context.Background(), Event{ToolName: "delete_file"})
	if err == nil {
		t.Fatal("undeliverable prompt must fail the intercept")
	}
	if len(w.Pending()) != 0 {
		t.Error("failed intercept should leave nothing pending")
	}
	if got := led.Stats().TotalEntries; got != 0 {
		t.Errorf("ledger has %d entries, want 0", got)
	}
}

func TestPendingSortedOldestFirst(t *testing.T) {
	w, _, _ := newTestWorkflow(t, Config{
		Timeout: 10 * time.Second,
		Gate:    risk.GateConfig{Threshold: risk.LevelHigh},
	})

	go w.Intercept(context.Background(), Event{ToolName: "delete_file"})
	first := waitForPending(t, w)

	go w.Intercept(context.Background(), Event{ToolName: "drop_table"})
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && len(w.Pending()) < 2 {
		time.Sleep(2 * time.Millisecond)
	}

	pending := w.Pending()
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	if pending[0].ID != first {
		t.Error("oldest request should sort first")
	}

	for _, req := range pending {
		w.HandleResponse(req.ID, false)
	}
}

func TestRequiresConsentDelegatesToGate(t *testing.T) {
	w, _, _ := newTestWorkflow(t, Config{
		Timeout: time.Second,
		Gate: risk.GateConfig{
			Threshold:    risk.LevelHigh,
			NeverRequire: []string{"delete_file"},
		},
	})

	if w.RequiresConsent("delete_file") {
		t.Error("never-require list should exempt delete_file")
	}
	if !w.RequiresConsent("run_shell_command") {
		t.Error("critical tool should be gated")
	}
	if w.ClassifyRisk("run_shell_command") != risk.LevelCritical {
		t.Error("ClassifyRisk should match the classifier")
	}
}
