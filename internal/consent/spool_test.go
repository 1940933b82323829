package consent

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/auditgate/internal/risk"
)

func newTestSpool(t *testing.T) *Spool {
	t.Helper()
	s, err := NewSpool(filepath.Join(t.TempDir(), "spool"))
	if err != nil {
		t.Fatalf("new spool: %v", err)
	}
	return s
}

func spoolRequest(id string, created time.Time) *Request {
	return &Request{
		ID:        id,
		ToolName:  "delete_file",
		RiskLevel: risk.LevelHigh,
		Status:    StatusPending,
		CreatedAt: created,
	}
}

func TestSpoolPutListRemove(t *testing.T) {
	s := newTestSpool(t)
	now := time.Now().UTC()

	if err := s.Put(spoolRequest("req-b", now)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(spoolRequest("req-a", now.Add(-time.Minute))); err != nil {
		t.Fatalf("put: %v", err)
	}

	reqs, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("listed %d requests, want 2", len(reqs))
	}
	if reqs[0].ID != "req-a" || reqs[1].ID != "req-b" {
		t.Fatalf("order = [%s, %s], want oldest first", reqs[0].ID, reqs[1].ID)
	}

	s.Remove("req-a")
	reqs, err = s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reqs) != 1 || reqs[0].ID != "req-b" {
		t.Fatalf("after remove: %+v", reqs)
	}
}

func TestSpoolRejectsTraversalIDs(t *testing.T) {
	s := newTestSpool(t)

	for _, id := range []string{"", "../../etc/cron.d/evil", "a/b", "id with spaces"} {
		if err := s.Put(spoolRequest(id, time.Now())); err == nil {
			t.Errorf("Put accepted unsafe id %q", id)
		}
		if err := s.SubmitDecision(id, true); err == nil {
			t.Errorf("SubmitDecision accepted unsafe id %q", id)
		}
	}
}

func TestSubmitAndReadDecision(t *testing.T) {
	s := newTestSpool(t)
	if err := s.SubmitDecision("req-1", true); err != nil {
		t.Fatalf("submit: %v", err)
	}

	path := filepath.Join(s.DecisionsDir(), "req-1.json")
	d, err := ReadDecision(path)
	if err != nil {
		t.Fatalf("read decision: %v", err)
	}
	if d.ID != "req-1" || !d.Approved {
		t.Fatalf("decision = %+v", d)
	}
	if d.DecidedAt.IsZero() {
		t.Error("decision missing timestamp")
	}
}

func TestReadDecisionRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{truncated"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadDecision(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSpoolCleanup(t *testing.T) {
	s := newTestSpool(t)
	if err := s.Put(spoolRequest("req-1", time.Now())); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.SubmitDecision("req-2", false); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := s.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	reqs, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reqs) != 0 {
		t.Errorf("pending not cleaned: %+v", reqs)
	}
	if _, err := os.Stat(filepath.Join(s.DecisionsDir(), "req-2.json")); !os.IsNotExist(err) {
		t.Error("decision file survived cleanup")
	}
}
