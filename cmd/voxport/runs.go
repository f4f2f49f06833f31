package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/voxport/internal/cli"
	"github.com/Veraticus/voxport/internal/common"
	"github.com/Veraticus/voxport/internal/config"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List recorded conversions or show one of them",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRuns,
	}
	cmd.Flags().String("db", "", "run history database")
	cmd.Flags().Int("limit", 10, "number of runs to list")
	return cmd
}

func runRuns(cmd *cobra.Command, args []string) error {
	_ = viper.BindPFlag(config.KeyStoragePath, cmd.Flags().Lookup("db"))
	dbPath := viper.GetString(config.KeyStoragePath)
	if dbPath == "" {
		return common.NewUserError("no run history configured", common.ErrMissingConfig)
	}

	store, err := initStorage(cmd.Context(), dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	out := cmd.OutOrStdout()

	if len(args) == 0 {
		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := store.ListRuns(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			_, err := fmt.Fprintln(out, cli.FormatInfo("No runs recorded yet"))
			return err
		}
		for _, r := range runs {
			line := fmt.Sprintf("%s  %s  %d messages, %d calls  %s",
				r.ID, r.StartedAt.Local().Format(time.DateTime), r.Messages, r.Calls, r.Source)
			if r.OwnerUnresolved {
				line = cli.WarningStyle.Render(line)
			}
			if _, err := fmt.Fprintln(out, line); err != nil {
				return err
			}
		}
		return nil
	}

	run, err := store.GetRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	entries, err := store.ListCandidates(cmd.Context(), run.ID)
	if err != nil {
		return err
	}
	diags, err := store.ListDiagnostics(cmd.Context(), run.ID)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  • Source: %s\n", run.Source)
	fmt.Fprintf(&b, "  • Started: %s\n", run.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(&b, "  • Policy: %s\n", run.Policy)
	fmt.Fprintf(&b, "  • Owner: %s\n", run.Owner)
	fmt.Fprintf(&b, "  • Documents: %d (%d skipped)\n", run.Documents, run.Skipped)
	fmt.Fprintf(&b, "  • Messages: %d, calls: %d, voicemails: %d", run.Messages, run.Calls, run.Voicemails)

	if _, err := fmt.Fprintln(out, cli.RenderBox("Run "+run.ID, b.String())); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out, cli.RenderContacts(entries, nil)); err != nil {
		return err
	}
	if len(diags) > 0 {
		if _, err := fmt.Fprintln(out, "\n"+cli.RenderDiagnostics(diags, 0)); err != nil {
			return err
		}
	}
	return nil
}
