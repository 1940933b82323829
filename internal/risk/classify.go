// Package risk maps tool identifiers to risk levels and decides whether a
// tool call needs human consent before it runs.
package risk

import "strings"

type tableEntry struct {
	key   string
	level Level
}

// table is the canonical ordered list of known tool keywords. Order is
// policy, not cosmetics: Classify falls back to a substring scan over this
// slice and the FIRST match in declared order wins, even when a later entry
// would be a longer match. Keep new entries grouped by level, most dangerous
// first.
var table = []tableEntry{
	{"shell", LevelCritical},
	{"exec", LevelCritical},
	{"terminal", LevelCritical},
	{"sudo", LevelCritical},
	{"eval", LevelCritical},
	{"delete", LevelHigh},
	{"remove", LevelHigh},
	{"drop", LevelHigh},
	{"deploy", LevelHigh},
	{"payment", LevelHigh},
	{"transfer", LevelHigh},
	{"credential", LevelHigh},
	{"secret", LevelHigh},
	{"token", LevelHigh},
	{"write", LevelMedium},
	{"edit", LevelMedium},
	{"create", LevelMedium},
	{"update", LevelMedium},
	{"move", LevelMedium},
	{"send", LevelMedium},
	{"upload", LevelMedium},
	{"email", LevelMedium},
	{"post", LevelMedium},
	{"read", LevelLow},
	{"list", LevelLow},
	{"get", LevelLow},
	{"search", LevelLow},
	{"fetch", LevelLow},
	{"view", LevelLow},
}

// Classify maps a tool identifier to a risk level. Exact (case-insensitive)
// table hits win; otherwise the table is scanned in declared order and the
// first key that is a substring of the name decides. Unknown names default
// to LevelLow.
func Classify(name string) Level {
	n := strings.ToLower(name)

	for _, e := range table {
		if e.key == n {
			return e.level
		}
	}

	for _, e := range table {
		if strings.Contains(n, e.key) {
			return e.level
		}
	}

	return LevelLow
}

// GateConfig controls which tool calls the consent workflow gates.
type GateConfig struct {
	// Threshold is the minimum classified level that requires consent.
	Threshold Level
	// AlwaysRequire forces consent for these tool names regardless of level.
	AlwaysRequire []string
	// NeverRequire exempts these tool names. Wins over AlwaysRequire.
	NeverRequire []string
}

// RequiresConsent reports whether the named tool must be approved by a human
// before running. Precedence: never-require, then always-require, then the
// classified level against the threshold.
func RequiresConsent(name string, cfg GateConfig) bool {
	for _, n := range cfg.NeverRequire {
		if strings.EqualFold(n, name) {
			return false
		}
	}
	for _, n := range cfg.AlwaysRequire {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return Classify(name) >= cfg.Threshold
}
