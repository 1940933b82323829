package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// collectorPath is the fixed endpoint path under the configured base URL.
const collectorPath = "/v1/audit/entries"

// forwardQueueSize bounds the outbound queue. When full, entries are dropped
// rather than blocking Append — a slow collector must never stall the
// critical path.
const forwardQueueSize = 256

const forwardTimeout = 5 * time.Second

// Forwarder ships appended entries to a remote collector. Fire-and-forget:
// no retry, no backpressure, failures logged at debug and otherwise
// swallowed.
type Forwarder struct {
	url    string
	token  string
	client *http.Client
	queue  chan Entry
	done   chan struct{}
	once   sync.Once
	log    *logrus.Entry
}

// NewForwarder creates a forwarder for the collector at baseURL and starts
// its background worker. token, when non-empty, is sent as a bearer
// credential.
func NewForwarder(baseURL, token string) *Forwarder {
	f := &Forwarder{
		url:    strings.TrimRight(baseURL, "/") + collectorPath,
		token:  token,
		client: &http.Client{Timeout: forwardTimeout},
		queue:  make(chan Entry, forwardQueueSize),
		done:   make(chan struct{}),
		log:    logrus.WithField("component", "forwarder"),
	}
	go f.run()
	return f
}

// Submit enqueues an entry for delivery. Never blocks; drops when the queue
// is full.
func (f *Forwarder) Submit(e Entry) {
	select {
	case f.queue <- e:
	default:
		f.log.WithField("sequence", e.Sequence).Debug("queue full, entry dropped")
	}
}

// Close stops the worker after draining queued entries.
func (f *Forwarder) Close() {
	f.once.Do(func() {
		close(f.queue)
		<-f.done
	})
}

func (f *Forwarder) run() {
	defer close(f.done)
	for e := range f.queue {
		if err := f.send(e); err != nil {
			f.log.WithField("sequence", e.Sequence).WithError(err).Debug("forward failed")
		}
	}
}

func (f *Forwarder) send(e Entry) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("collector returned HTTP %d", resp.StatusCode)
	}
	return nil
}
