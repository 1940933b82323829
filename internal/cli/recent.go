package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var recentN int

func init() {
	rootCmd.AddCommand(recentCmd)
	recentCmd.Flags().IntVarP(&recentN, "lines", "n", 10, "Number of recent entries to show")
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show recent audit ledger entries",
	RunE:  runRecent,
}

func runRecent(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	led, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer led.Close()

	for _, e := range led.GetRecent(recentN) {
		out, err := json.MarshalIndent(e, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal entry %d: %w", e.Sequence, err)
		}
		fmt.Println(string(out))
	}
	return nil
}
