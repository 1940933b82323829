package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the audit ledger's integrity",
	Long:  "Walks the retained chain and validates linkage, content digests, and\nsignatures. Exits 0 if valid, 1 with the first offending entry if tampered.",
	RunE:  runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	led, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer led.Close()

	result := led.Verify()
	if result.Valid {
		fmt.Printf("OK: %d entries verified\n", result.TotalEntries)
		return nil
	}

	fmt.Fprintf(os.Stderr, "FAILED at sequence %d (%s): %s\n", result.Sequence, result.ID, result.Reason)
	os.Exit(1)
	return nil
}
