package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/voxport/internal/engine"
	"github.com/Veraticus/voxport/internal/ledger"
	"github.com/Veraticus/voxport/internal/model"
)

var diagnosticLabels = map[model.DiagnosticKind]string{
	model.DiagnosticMissingContact:     "Missing contacts",
	model.DiagnosticConflictingContact: "Conflicting contacts",
	model.DiagnosticUnparsableNumber:   "Unparsable numbers",
	model.DiagnosticMissingAttachment:  "Missing attachments",
	model.DiagnosticUnresolvedIdentity: "Unresolved conversations",
	model.DiagnosticUnreadableDocument: "Unreadable documents",
}

// RenderReport formats the end-of-run summary box.
func RenderReport(r *engine.Report, messagesPath, callsPath string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "  • Documents: %d (%d deferred, %d skipped, %d unreadable)\n",
		r.Documents, r.Deferred, r.Skipped, r.Unreadable)
	fmt.Fprintf(&b, "  • %s Messages: %d\n", ChatIcon, r.Messages)
	fmt.Fprintf(&b, "  • %s Calls: %d\n", PhoneIcon, r.Calls)
	fmt.Fprintf(&b, "  • Voicemails: %d\n", r.Voicemails)
	fmt.Fprintf(&b, "  • %s New contact numbers: %d\n", ContactIcon, r.NewPairs)
	if r.Owner != "" {
		fmt.Fprintf(&b, "  • Owner: %s\n", r.Owner)
	}
	fmt.Fprintf(&b, "  • Time taken: %s\n", r.Duration.Round(time.Millisecond))

	if messagesPath != "" || callsPath != "" {
		b.WriteString("\n")
		fmt.Fprintf(&b, "  Messages → %s\n", messagesPath)
		fmt.Fprintf(&b, "  Calls    → %s\n", callsPath)
	}

	if counts := diagnosticLines(r.Diagnostics); counts != "" {
		b.WriteString("\n")
		b.WriteString(counts)
	}

	if r.OwnerUnresolved {
		b.WriteString("\n")
		b.WriteString(FormatError("Owner number unknown: text conversations were skipped"))
		b.WriteString("\n")
	}

	title := "Conversion Complete"
	if r.OwnerUnresolved {
		title = "Conversion Incomplete"
	}
	return RenderBox(title, strings.TrimRight(b.String(), "\n"))
}

func diagnosticLines(counts map[model.DiagnosticKind]int) string {
	var b strings.Builder
	for _, kind := range model.DiagnosticKinds {
		n := counts[kind]
		if n == 0 {
			continue
		}
		b.WriteString(FormatWarning(fmt.Sprintf("%s: %d", diagnosticLabels[kind], n)))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderDiagnostics lists diagnostics grouped by kind, showing at most
// perKind of each. A perKind of zero or less shows all of them.
func RenderDiagnostics(items []model.Diagnostic, perKind int) string {
	grouped := make(map[model.DiagnosticKind][]model.Diagnostic)
	for _, d := range items {
		grouped[d.Kind] = append(grouped[d.Kind], d)
	}

	var sections []string
	for _, kind := range model.DiagnosticKinds {
		list := grouped[kind]
		if len(list) == 0 {
			continue
		}

		var b strings.Builder
		b.WriteString(BoldStyle.Render(diagnosticLabels[kind]))
		b.WriteString("\n")
		for i, d := range list {
			if perKind > 0 && i == perKind {
				b.WriteString(SubtleStyle.Render(fmt.Sprintf("  … and %d more", len(list)-perKind)))
				b.WriteString("\n")
				break
			}
			line := "  " + d.Subject
			if d.Detail != "" {
				line += SubtleStyle.Render(" (" + d.Detail + ")")
			}
			b.WriteString(line + "\n")
		}
		sections = append(sections, strings.TrimRight(b.String(), "\n"))
	}
	return strings.Join(sections, "\n\n")
}

// RenderContacts renders a ledger snapshot as a table followed by the
// contacts that could not be resolved.
func RenderContacts(entries []ledger.Entry, missing []model.Contact) string {
	contactWidth := len("Contact")
	for _, e := range entries {
		contactWidth = max(contactWidth, lipgloss.Width(string(e.Contact)))
	}

	header := TableHeaderStyle.Render(
		TableCellStyle.Width(contactWidth+2).Render("Contact") +
			TableCellStyle.Width(16).Render("Number") +
			TableCellStyle.Render("Source"))

	rows := []string{header}
	for _, e := range entries {
		name := TableCellStyle.Width(contactWidth + 2).Render(string(e.Contact))
		if e.AliasOf != "" {
			rows = append(rows, name+SubtleStyle.Render("→ "+string(e.AliasOf)))
		}
		for i, c := range e.Candidates {
			if i > 0 {
				name = TableCellStyle.Width(contactWidth + 2).Render("")
			}
			rows = append(rows, name+
				TableCellStyle.Width(16).Render(string(c.Number))+
				SubtleStyle.Render(candidateSource(c)))
		}
	}

	out := strings.Join(rows, "\n")
	if len(missing) > 0 {
		names := make([]string, len(missing))
		for i, m := range missing {
			names[i] = string(m)
		}
		out += "\n\n" + FormatWarning("No number known for: "+strings.Join(names, ", "))
	}
	return out
}

func candidateSource(c model.Candidate) string {
	if c.IsConfigured() {
		return "trust file"
	}
	return "seen " + c.Timestamp.Format("2006-01-02")
}
