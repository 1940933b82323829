package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ppiankov/auditgate/internal/consent"
	"github.com/ppiankov/auditgate/internal/ledger"
	gatemcp "github.com/ppiankov/auditgate/internal/mcp"
	"github.com/ppiankov/auditgate/internal/notify"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the consent gate as an MCP server",
	Long: `Runs auditgate over stdio as an MCP (Model Context Protocol) server.

Exposes intercept, check, approve, deny, pending, verify, and recent tools.
Consent prompts go to the configured webhook, or to stderr when none is set.
Decisions arrive via MCP tools or via files written by "auditgate approve".`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var archive *ledger.Archive
	if cfg.Ledger.ArchivePath != "" {
		archive, err = ledger.OpenArchive(cfg.Ledger.ArchivePath)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
	}

	var forwarder *ledger.Forwarder
	if cfg.Forward.BaseURL != "" {
		forwarder = ledger.NewForwarder(cfg.Forward.BaseURL, cfg.Forward.Token)
	}

	led, err := ledger.Open(ledger.Config{
		Path:       cfg.Ledger.Path,
		KeyPath:    cfg.Ledger.KeyPath,
		MaxEntries: cfg.Ledger.MaxEntries,
		Archive:    archive,
		Forwarder:  forwarder,
	})
	if err != nil {
		return err
	}
	defer led.Close()

	var notifier notify.Notifier
	if cfg.Notify.URL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notify)
	} else {
		// stdio carries the MCP transport; prompts go to stderr.
		notifier = &notify.WriterNotifier{W: os.Stderr}
	}

	spool, err := consent.NewSpool(cfg.Consent.SpoolDir)
	if err != nil {
		return err
	}
	spool.Cleanup()

	workflow := consent.New(consent.Config{
		Timeout: cfg.Consent.Timeout(),
		Gate:    cfg.Consent.Gate(),
	}, led, notifier, spool)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down auditgate...")
		cancel()
	}()

	watcher := consent.NewDecisionWatcher(spool, workflow.HandleResponse)
	go func() {
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			logrus.WithError(err).Warn("decision watcher stopped")
		}
	}()

	fmt.Fprintln(os.Stderr, "auditgate MCP server running on stdio")
	return gatemcp.New(workflow, led, version).Run(ctx)
}
