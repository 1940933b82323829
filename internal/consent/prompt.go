package consent

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatPrompt renders the human-facing approval prompt for a request. Pure
// and deterministic — argument keys are sorted — so the same request always
// renders the same text.
func FormatPrompt(req *Request, timeout time.Duration) string {
	var b strings.Builder

	b.WriteString("APPROVAL REQUIRED\n")
	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "%-10s %s\n", "Tool:", req.ToolName)
	fmt.Fprintf(&b, "%-10s %s\n", "Risk:", strings.ToUpper(req.RiskLevel.String()))
	fmt.Fprintf(&b, "%-10s %s\n", "Request:", req.ID)
	fmt.Fprintf(&b, "%-10s %ds\n", "Timeout:", int(timeout.Seconds()))

	if len(req.ToolArgs) > 0 {
		b.WriteString("Arguments:\n")
		b.WriteString(FormatArgs(req.ToolArgs))
	}

	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "Reply with: auditgate approve %s | auditgate deny %s\n", req.ID, req.ID)

	return b.String()
}

// FormatArgs renders a tool argument map as sorted "key: value" lines.
func FormatArgs(args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %v\n", k, args[k])
	}
	return b.String()
}
