// Package notify delivers human-facing consent prompts. The consent
// workflow awaits delivery before suspending on the response, so a Deliver
// error surfaces to the caller of Intercept.
package notify

import (
	"context"
	"fmt"
	"io"
)

// Notifier is the outbound channel for consent prompts.
type Notifier interface {
	Deliver(ctx context.Context, text string) error
}

// WriterNotifier prints prompts to a writer — the terminal path for
// interactive sessions.
type WriterNotifier struct {
	W io.Writer
}

// Deliver writes the prompt followed by a newline.
func (n *WriterNotifier) Deliver(_ context.Context, text string) error {
	if _, err := fmt.Fprintln(n.W, text); err != nil {
		return fmt.Errorf("notify: write prompt: %w", err)
	}
	return nil
}
