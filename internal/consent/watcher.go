package consent

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// sweepDefault is the periodic re-scan interval. The sweep catches decision
// files written while an fsnotify event was lost or before the watcher
// started.
const sweepDefault = 2 * time.Second

// DecisionWatcher observes the spool's decisions directory and feeds
// operator answers into the workflow. Decision files for unknown or
// already-resolved requests are consumed and dropped.
type DecisionWatcher struct {
	spool   *Spool
	handler func(id string, approved bool) bool
	sweep   time.Duration
	log     *logrus.Entry
}

// NewDecisionWatcher creates a watcher. handler is usually
// (*Workflow).HandleResponse.
func NewDecisionWatcher(spool *Spool, handler func(id string, approved bool) bool) *DecisionWatcher {
	return &DecisionWatcher{
		spool:   spool,
		handler: handler,
		sweep:   sweepDefault,
		log:     logrus.WithField("component", "decision-watcher"),
	}
}

// Run watches the decisions directory until ctx is cancelled. Existing files
// are processed on startup.
func (w *DecisionWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := w.spool.DecisionsDir()
	if err := watcher.Add(dir); err != nil {
		return err
	}

	w.scan(dir)

	ticker := time.NewTicker(w.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				w.process(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("watch error")
		case <-ticker.C:
			w.scan(dir)
		}
	}
}

func (w *DecisionWatcher) scan(dir string) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return
	}
	for _, path := range matches {
		w.process(path)
	}
}

func (w *DecisionWatcher) process(path string) {
	if !strings.HasSuffix(path, ".json") || strings.HasSuffix(path, ".tmp") {
		return
	}

	d, err := ReadDecision(path)
	if err != nil {
		// Likely a partial write; the sweep retries it.
		return
	}

	resolved := w.handler(d.ID, d.Approved)
	if !resolved {
		w.log.WithField("id", d.ID).Debug("decision for unknown or resolved request")
	}

	// Consumed regardless of outcome — stale decisions must not replay.
	w.spool.Remove(d.ID)
	os.Remove(path)
}
