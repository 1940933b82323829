package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/auditgate/internal/consent"
)

func init() {
	rootCmd.AddCommand(pendingCmd)
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List pending consent requests",
	Long:  "Shows the spooled consent requests awaiting a decision in the running\nserve process.",
	RunE:  runPending,
}

func runPending(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	spool, err := consent.NewSpool(cfg.Consent.SpoolDir)
	if err != nil {
		return err
	}

	list, err := spool.List()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No pending consent requests.")
		return nil
	}

	fmt.Printf("%-38s %-10s %-20s %s\n", "ID", "RISK", "TOOL", "CREATED")
	for _, r := range list {
		fmt.Printf("%-38s %-10s %-20s %s\n",
			r.ID,
			r.RiskLevel,
			truncate(r.ToolName, 20),
			r.CreatedAt.Format("15:04:05"),
		)
	}
	return nil
}
