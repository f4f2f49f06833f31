package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/voxport/internal/attachment"
	"github.com/Veraticus/voxport/internal/backup"
	"github.com/Veraticus/voxport/internal/cli"
	"github.com/Veraticus/voxport/internal/common"
	"github.com/Veraticus/voxport/internal/config"
	"github.com/Veraticus/voxport/internal/engine"
	"github.com/Veraticus/voxport/internal/ledger"
	"github.com/Veraticus/voxport/internal/model"
	"github.com/Veraticus/voxport/internal/phone"
	"github.com/Veraticus/voxport/internal/takeout"
)

func convertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <takeout-dir>",
		Short: "Convert a takeout export into SMS Backup & Restore files",
		Long: `Convert walks the takeout directory, learns which number belongs to which
contact from every document, and then writes all texts, calls and
voicemails with resolved numbers.`,
		Args: cobra.ExactArgs(1),
		RunE: runConvert,
	}

	addResolveFlags(cmd)
	cmd.Flags().String("messages-out", "", "messages output file (default: sms-backup.xml)")
	cmd.Flags().String("calls-out", "", "calls output file (default: calls-backup.xml)")
	cmd.Flags().String("db", "", "record the run in this SQLite database")
	cmd.Flags().Bool("dry-run", false, "resolve everything but write no output files")
	cmd.Flags().Bool("no-progress", false, "disable progress bars")
	cmd.Flags().Int("show-diagnostics", 5, "diagnostics to list per kind (0 for all, -1 for none)")

	return cmd
}

// addResolveFlags registers the flags shared by every command that builds
// a ledger.
func addResolveFlags(cmd *cobra.Command) {
	cmd.Flags().String("trust", "", "trust file mapping contacts to numbers (YAML or JSON)")
	cmd.Flags().String("owner", "", "the account owner's phone number")
	cmd.Flags().String("owner-name", "", `label the owner is recorded under (default "Me")`)
	cmd.Flags().String("policy", "", "resolution policy: as-is, newest or configured (default newest)")
	cmd.Flags().String("region", "", `region for numbers without a country code (default "US")`)
	cmd.Flags().Int("workers", 0, "documents parsed in parallel (default: number of CPUs)")
}

// bindResolveFlags binds the shared flags of the command being run. Flags
// of other commands share names, so binding happens at run time.
func bindResolveFlags(cmd *cobra.Command) {
	_ = viper.BindPFlag(config.KeyTrustPath, cmd.Flags().Lookup("trust"))
	_ = viper.BindPFlag(config.KeyOwnerNumber, cmd.Flags().Lookup("owner"))
	_ = viper.BindPFlag(config.KeyOwnerName, cmd.Flags().Lookup("owner-name"))
	_ = viper.BindPFlag(config.KeyPolicy, cmd.Flags().Lookup("policy"))
	_ = viper.BindPFlag(config.KeyRegion, cmd.Flags().Lookup("region"))
	_ = viper.BindPFlag(config.KeyWorkers, cmd.Flags().Lookup("workers"))
}

// conversion is everything needed to run both passes over one export.
type conversion struct {
	cfg          *config.Config
	ledger       *ledger.Ledger
	orchestrator *engine.Orchestrator
	paths        []string
}

func prepareConversion(cmd *cobra.Command, root string, sink engine.EventSink, progress bool) (*conversion, error) {
	bindResolveFlags(cmd)

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	paths, err := takeout.Walk(root, cfg.Suffix)
	if err != nil {
		return nil, common.NewUserError("could not read the takeout directory", err)
	}
	if len(paths) == 0 {
		return nil, common.NewUserError(fmt.Sprintf("no %s documents found under %s", cfg.Suffix, root), nil)
	}
	common.LogInfo("Found takeout documents", common.Fields{"root": root, "documents": len(paths)})

	norm := phone.NewNormalizer(cfg.Region, cfg.BogusNumber)
	l, err := buildLedger(cfg, norm)
	if err != nil {
		return nil, err
	}

	o := engine.New(l, norm, takeout.NewParser(), sink, attachment.NewLocator(), engine.Config{
		Owner:   cfg.OwnerName,
		Policy:  cfg.Policy,
		Workers: cfg.Workers,
	})
	if progress {
		o.WithProgress(cli.NewPassProgress(os.Stderr))
	}

	return &conversion{cfg: cfg, ledger: l, orchestrator: o, paths: paths}, nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	_ = viper.BindPFlag(config.KeyMessagesPath, cmd.Flags().Lookup("messages-out"))
	_ = viper.BindPFlag(config.KeyCallsPath, cmd.Flags().Lookup("calls-out"))
	_ = viper.BindPFlag(config.KeyStoragePath, cmd.Flags().Lookup("db"))

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	perKind, _ := cmd.Flags().GetInt("show-diagnostics")

	writer := backup.NewWriter()
	conv, err := prepareConversion(cmd, args[0], writer, !noProgress)
	if err != nil {
		return err
	}
	cfg := conv.cfg

	handler := cli.NewInterruptHandler(os.Stderr)
	ctx := handler.HandleInterrupts(cmd.Context())

	started := time.Now()
	report, err := conv.orchestrator.Run(ctx, conv.paths)
	if err != nil {
		if handler.WasInterrupted() {
			return common.NewUserError("conversion interrupted", err)
		}
		return fmt.Errorf("conversion failed: %w", err)
	}

	messagesPath, callsPath := cfg.MessagesPath, cfg.CallsPath
	if dryRun {
		messagesPath, callsPath = "", ""
	} else if err := writer.Save(cfg.MessagesPath, cfg.CallsPath); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if cfg.StoragePath != "" {
		recordRun(ctx, cfg, args[0], conv, report, started)
	}

	out := cmd.OutOrStdout()
	printDiagnostics(out, conv.orchestrator.Diagnostics().Items(), perKind)
	if _, err := fmt.Fprintln(out, cli.RenderReport(report, messagesPath, callsPath)); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// recordRun stores the run in the history database. Failing to do so does
// not fail the conversion.
func recordRun(ctx context.Context, cfg *config.Config, root string, conv *conversion, report *engine.Report, started time.Time) {
	store, err := initStorage(ctx, cfg.StoragePath)
	if err != nil {
		common.LogError(err, "Failed to open run history", common.Fields{"path": cfg.StoragePath})
		return
	}
	defer func() { _ = store.Close() }()

	source, err := filepath.Abs(root)
	if err != nil {
		source = root
	}

	run := &model.Run{
		StartedAt:       started,
		FinishedAt:      started.Add(report.Duration),
		Source:          source,
		Policy:          cfg.Policy.String(),
		Owner:           report.Owner,
		Documents:       report.Documents,
		Messages:        report.Messages,
		Calls:           report.Calls,
		Voicemails:      report.Voicemails,
		Skipped:         report.Skipped,
		OwnerUnresolved: report.OwnerUnresolved,
	}
	if err := store.SaveRun(ctx, run, conv.ledger.Snapshot(), conv.orchestrator.Diagnostics().Items()); err != nil {
		common.LogError(err, "Failed to record run", common.Fields{"path": cfg.StoragePath})
		return
	}
	common.LogDebug("Recorded run", common.Fields{"id": run.ID, "path": cfg.StoragePath})
}

func printDiagnostics(w io.Writer, items []model.Diagnostic, perKind int) {
	if perKind < 0 || len(items) == 0 {
		return
	}
	if _, err := fmt.Fprintln(w, cli.RenderDiagnostics(items, perKind)+"\n"); err != nil {
		common.LogWarn("Failed to write diagnostics", common.Fields{"error": err})
	}
}
