package consent

import (
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/auditgate/internal/risk"
)

func TestFormatPromptContents(t *testing.T) {
	req := &Request{
		ID:        "req-123",
		ToolName:  "delete_file",
		ToolArgs:  map[string]any{"path": "/etc/passwd", "recursive": true},
		RiskLevel: risk.LevelHigh,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	prompt := FormatPrompt(req, 90*time.Second)

	for _, want := range []string{
		"APPROVAL REQUIRED",
		"delete_file",
		"HIGH",
		"req-123",
		"90s",
		"path: /etc/passwd",
		"recursive: true",
		"auditgate approve req-123",
		"auditgate deny req-123",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestFormatPromptDeterministic(t *testing.T) {
	req := &Request{
		ID:        "req-abc",
		ToolName:  "run_shell_command",
		ToolArgs:  map[string]any{"c": 3, "a": 1, "b": 2},
		RiskLevel: risk.LevelCritical,
	}

	first := FormatPrompt(req, time.Minute)
	for i := 0; i < 20; i++ {
		if FormatPrompt(req, time.Minute) != first {
			t.Fatal("prompt rendering is not deterministic")
		}
	}
}

func TestFormatPromptOmitsEmptyArgs(t *testing.T) {
	req := &Request{ID: "req-1", ToolName: "deploy_service", RiskLevel: risk.LevelHigh}
	if strings.Contains(FormatPrompt(req, time.Minute), "Arguments:") {
		t.Fatal("argless prompt should omit the arguments section")
	}
}

func TestFormatArgsSortedByKey(t *testing.T) {
	got := FormatArgs(map[string]any{"zebra": 1, "alpha": 2, "mid": 3})
	want := "  alpha: 2\n  mid: 3\n  zebra: 1\n"
	if got != want {
		t.Fatalf("FormatArgs = %q, want %q", got, want)
	}
}
