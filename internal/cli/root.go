package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/auditgate/internal/config"
	"github.com/ppiankov/auditgate/internal/ledger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "auditgate",
	Short: "Tamper-evident audit chain and consent gate for AI agents",
	Long:  "Records every sensitive agent action in a signed, hash-linked ledger and pauses destructive actions until a human approves or the wait expires.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (default ~/.auditgate/config.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	return config.LoadConfig(path)
}

// openLedger opens the configured ledger without archive or forwarding —
// enough for the read-side commands. The serve command wires the full
// stack.
func openLedger(cfg *config.Config) (*ledger.Ledger, error) {
	return ledger.Open(ledger.Config{
		Path:       cfg.Ledger.Path,
		KeyPath:    cfg.Ledger.KeyPath,
		MaxEntries: cfg.Ledger.MaxEntries,
	})
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
