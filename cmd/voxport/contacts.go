package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/voxport/internal/backup"
	"github.com/Veraticus/voxport/internal/cli"
	"github.com/Veraticus/voxport/internal/model"
)

func contactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts <takeout-dir>",
		Short: "Show the contact numbers learned from a takeout export",
		Long: `Contacts resolves the export without writing any output and prints every
contact with the numbers it was seen with, followed by the conflicts and the
names no number could be found for. Use it to write a trust file.`,
		Args: cobra.ExactArgs(1),
		RunE: runContacts,
	}
	addResolveFlags(cmd)
	return cmd
}

func runContacts(cmd *cobra.Command, args []string) error {
	conv, err := prepareConversion(cmd, args[0], backup.NewWriter(), false)
	if err != nil {
		return err
	}

	if _, err := conv.orchestrator.Run(cmd.Context(), conv.paths); err != nil {
		return fmt.Errorf("failed to resolve contacts: %w", err)
	}

	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintln(out, cli.FormatTitle("Contacts")); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out, cli.RenderContacts(conv.ledger.Snapshot(), conv.ledger.Missing())); err != nil {
		return err
	}

	var conflicts []model.Diagnostic
	for _, d := range conv.orchestrator.Diagnostics().Items() {
		if d.Kind == model.DiagnosticConflictingContact {
			conflicts = append(conflicts, d)
		}
	}
	if len(conflicts) > 0 {
		if _, err := fmt.Fprintln(out, "\n"+cli.RenderDiagnostics(conflicts, 0)); err != nil {
			return err
		}
	}
	return nil
}
