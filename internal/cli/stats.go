package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show ledger statistics",
	Long:  "Prints entry count, chain validity, current sequence, and the timestamp\nrange of the retained window.",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	led, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer led.Close()

	out, _ := json.MarshalIndent(led.Stats(), "", "  ")
	fmt.Println(string(out))
	return nil
}
