package ledger

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type collectorStub struct {
	mu      sync.Mutex
	entries []Entry
	auths   []string
	paths   []string
}

func (c *collectorStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var e Entry
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		c.mu.Lock()
		c.entries = append(c.entries, e)
		c.auths = append(c.auths, r.Header.Get("Authorization"))
		c.paths = append(c.paths, r.URL.Path)
		c.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}
}

func (c *collectorStub) received() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

func TestForwarderDeliversEntries(t *testing.T) {
	stub := &collectorStub{}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	f := NewForwarder(srv.URL, "secret-token")
	f.Submit(Entry{Sequence: 1, ID: "id-1", Action: "forwarded"})
	f.Submit(Entry{Sequence: 2, ID: "id-2", Action: "forwarded"})
	f.Close()

	got := stub.received()
	if len(got) != 2 {
		t.Fatalf("collector received %d entries, want 2", len(got))
	}
	if got[0].Sequence != 1 || got[1].Sequence != 2 {
		t.Fatalf("entries out of order: %+v", got)
	}
	if stub.paths[0] != collectorPath {
		t.Errorf("posted to %s, want %s", stub.paths[0], collectorPath)
	}
	if stub.auths[0] != "Bearer secret-token" {
		t.Errorf("authorization = %q", stub.auths[0])
	}
}

func TestForwarderOmitsAuthWithoutToken(t *testing.T) {
	stub := &collectorStub{}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	f := NewForwarder(srv.URL+"/", "")
	f.Submit(Entry{Sequence: 1, ID: "id-1"})
	f.Close()

	if len(stub.received()) != 1 {
		t.Fatal("entry not delivered")
	}
	if stub.auths[0] != "" {
		t.Errorf("unexpected authorization header %q", stub.auths[0])
	}
	// Trailing slash on the base URL must not double up in the path.
	if stub.paths[0] != collectorPath {
		t.Errorf("posted to %s, want %s", stub.paths[0], collectorPath)
	}
}

// Append must succeed even when the collector is gone — forwarding is
// fire-and-forget and never on the critical path.
func TestAppendSurvivesDeadCollector(t *testing.T) {
	f := NewForwarder("http://127.0.0.1:1", "")
	defer f.Close()

	l, err := Open(Config{
		Path:      filepath.Join(t.TempDir(), "ledger.json"),
		Forwarder: f,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if _, err := l.Append(testRecord("unforwardable")); err != nil {
		t.Fatalf("append must not fail on forwarding: %v", err)
	}
	if result := l.Verify(); !result.Valid {
		t.Fatalf("chain invalid: %s", result.Reason)
	}
}

func TestSubmitAfterQueueFullDoesNotBlock(t *testing.T) {
	// No server and no worker progress beyond connection failures; flooding
	// past the queue bound must return promptly every time.
	f := NewForwarder("http://127.0.0.1:1", "")
	defer f.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < forwardQueueSize*4; i++ {
			f.Submit(Entry{Sequence: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Submit blocked on a full queue")
	}
}
