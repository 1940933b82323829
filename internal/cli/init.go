package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/auditgate/internal/config"
)

var initForce bool

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap auditgate configuration",
	Long:  "Writes the default config to ~/.auditgate/config.yaml (or --config).\nThe ledger, signing key, archive, and spool are created lazily on first use.",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(path); err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", path)
	fmt.Printf("Ledger:  %s\n", cfg.Ledger.Path)
	fmt.Printf("Key:     %s\n", cfg.Ledger.KeyPath)
	fmt.Printf("Archive: %s\n", cfg.Ledger.ArchivePath)
	fmt.Printf("Spool:   %s\n", cfg.Consent.SpoolDir)
	return nil
}
