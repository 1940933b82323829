package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/auditgate/internal/consent"
)

func init() {
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(denyCmd)
}

var approveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending consent request",
	Long:  "Drops an approval decision into the spool. The running serve process\npicks it up and unblocks the waiting tool call.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submitDecision(args[0], true)
	},
}

var denyCmd = &cobra.Command{
	Use:   "deny <id>",
	Short: "Deny a pending consent request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submitDecision(args[0], false)
	},
}

func submitDecision(id string, approved bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	spool, err := consent.NewSpool(cfg.Consent.SpoolDir)
	if err != nil {
		return err
	}

	if err := spool.SubmitDecision(id, approved); err != nil {
		return err
	}

	if approved {
		fmt.Printf("Approved %s\n", id)
	} else {
		fmt.Printf("Denied %s\n", id)
	}
	return nil
}
