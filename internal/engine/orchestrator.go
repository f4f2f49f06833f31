// Package engine drives a conversion: a discovery pass that feeds every
// document's contact cards into the identity ledger, followed by a
// resolution pass that turns documents into message, call and voicemail
// events.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/voxport/internal/evidence"
	"github.com/Veraticus/voxport/internal/ledger"
	"github.com/Veraticus/voxport/internal/model"
	"github.com/Veraticus/voxport/internal/phone"
)

// DefaultOwner is the contact label the account owner is recorded under.
const DefaultOwner = "Me"

// Config holds the orchestrator settings.
type Config struct {
	Policy  ledger.Policy
	Owner   string
	Workers int
}

// DefaultConfig returns the default orchestrator settings.
func DefaultConfig() Config {
	return Config{
		Owner:   DefaultOwner,
		Policy:  ledger.Newest,
		Workers: runtime.NumCPU(),
	}
}

// Orchestrator runs both passes over one export against one ledger.
type Orchestrator struct {
	ledger   *ledger.Ledger
	norm     *phone.Normalizer
	scanner  *evidence.Scanner
	source   DocumentSource
	emitter  *Emitter
	diags    *Diagnostics
	progress Progress
	config   Config
}

// document is one input slot carried from discovery to resolution.
type document struct {
	doc      *model.Document
	evidence evidence.Context
	path     string
	deferred bool
}

// New creates an orchestrator writing events to sink.
func New(l *ledger.Ledger, n *phone.Normalizer, source DocumentSource, sink EventSink, finder AttachmentFinder, config Config) *Orchestrator {
	if config.Owner == "" {
		config.Owner = DefaultOwner
	}
	if config.Policy == nil {
		config.Policy = ledger.Newest
	}
	if config.Workers < 1 {
		config.Workers = 1
	}

	scanner := evidence.NewScanner(l, n, config.Policy, config.Owner)
	diags := NewDiagnostics()

	return &Orchestrator{
		ledger:   l,
		norm:     n,
		scanner:  scanner,
		source:   source,
		emitter:  NewEmitter(sink, finder, scanner, l, n, diags),
		diags:    diags,
		progress: noopProgress{},
		config:   config,
	}
}

// WithProgress reports pass progress to p.
func (o *Orchestrator) WithProgress(p Progress) *Orchestrator {
	if p != nil {
		o.progress = p
	}
	return o
}

// Diagnostics returns the run's diagnostics collector.
func (o *Orchestrator) Diagnostics() *Diagnostics {
	return o.diags
}

// Run converts the documents at paths. Only cancellation and sink failures
// abort the run; everything else becomes a diagnostic.
func (o *Orchestrator) Run(ctx context.Context, paths []string) (*Report, error) {
	start := time.Now()
	report := &Report{Documents: len(paths)}

	slog.Info("Starting discovery pass",
		"documents", len(paths),
		"workers", o.config.Workers,
		"policy", o.config.Policy.String())

	docs, err := o.discover(ctx, paths, report)
	if err != nil {
		return nil, err
	}

	slog.Info("Discovery pass complete",
		"new_pairs", report.NewPairs,
		"deferred", report.Deferred,
		"unreadable", report.Unreadable)

	if err := o.resolve(ctx, docs, report); err != nil {
		return nil, err
	}

	for _, c := range o.ledger.Conflicts() {
		o.diags.Add(model.Diagnostic{
			Kind:    model.DiagnosticConflictingContact,
			Subject: string(c.Contact),
			Detail:  fmt.Sprintf("%s then %s", c.Previous, c.Number),
		})
	}

	report.Diagnostics = o.diags.Counts()
	report.Duration = time.Since(start)

	slog.Info("Conversion complete",
		"messages", report.Messages,
		"calls", report.Calls,
		"voicemails", report.Voicemails,
		"skipped", report.Skipped,
		"duration", report.Duration)

	return report, nil
}

// discover parses every document in parallel, then feeds their cards into
// the ledger serially in input order so the ledger ends up identical for
// any worker count.
func (o *Orchestrator) discover(ctx context.Context, paths []string, report *Report) ([]document, error) {
	docs := make([]document, len(paths))
	failures := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Workers)
	for i, path := range paths {
		docs[i].path = path
		g.Go(func() error {
			doc, err := o.source.ParseFile(gctx, path)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				failures[i] = err
				return nil
			}
			docs[i].doc = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("discovery pass: %w", err)
	}

	o.progress.Start("Discovery", len(docs))
	defer o.progress.Finish()

	for i := range docs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("discovery pass: %w", err)
		}
		o.progress.Advance()
		d := &docs[i]

		if failures[i] != nil {
			report.Unreadable++
			o.diags.Add(model.Diagnostic{
				Kind:     model.DiagnosticUnreadableDocument,
				Subject:  d.path,
				Detail:   failures[i].Error(),
				Document: d.path,
			})
			continue
		}

		obs := o.scanner.Observe(d.doc.Sightings())
		report.NewPairs += obs.NewPairs
		o.unparsable(obs.Unparsable, d.path)

		d.evidence = o.scanner.Scan(d.doc)
		if o.scanner.Defer(d.evidence) {
			d.deferred = true
			report.Deferred++
			slog.Debug("Deferring document until discovery completes", "document", d.path)
		}
	}
	return docs, nil
}

// resolve emits events for every readable document in input order.
func (o *Orchestrator) resolve(ctx context.Context, docs []document, report *Report) error {
	owner, ownerOK := o.scanner.Owner()
	report.Owner = owner

	if !ownerOK && report.Deferred > 0 {
		report.OwnerUnresolved = true
		o.diags.Add(model.Diagnostic{
			Kind:    model.DiagnosticMissingContact,
			Subject: o.config.Owner,
			Detail:  "the account owner's number is unknown",
		})
		slog.Error("Owner number could not be determined, text conversations will be skipped",
			"owner", o.config.Owner,
			"hint", fmt.Sprintf("add %q with the account's number to the trust file", o.config.Owner))
	}

	o.progress.Start("Resolution", len(docs))
	defer o.progress.Finish()

	for i := range docs {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("resolution pass: %w", err)
		}
		o.progress.Advance()

		d := &docs[i]
		if d.doc == nil {
			continue
		}
		if err := o.resolveDocument(d, owner, ownerOK, report); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) resolveDocument(d *document, owner model.Number, ownerOK bool, report *Report) error {
	kind := d.doc.Kind()

	switch kind {
	case model.KindUnknown:
		report.Skipped++
		slog.Debug("Skipping document with unknown kind", "document", d.path, "tags", d.doc.Tags)
		return nil

	case model.KindMissed, model.KindPlaced, model.KindReceived:
		n, err := o.emitter.Call(d.doc)
		report.Calls += n
		return err
	}

	if !ownerOK {
		// Call log entries do not need the owner.
		report.Skipped++
		if kind == model.KindVoicemail || kind == model.KindRecorded {
			n, err := o.emitter.Call(d.doc)
			report.Calls += n
			return err
		}
		return nil
	}

	if kind == model.KindGroup {
		n, err := o.emitter.Group(d.doc, owner)
		report.Messages += n
		return err
	}

	corr := o.scanner.Correspondent(d.evidence)
	o.unparsable(corr.Unparsable, d.path)
	for _, name := range corr.Unresolved {
		o.diags.Add(model.Diagnostic{
			Kind:     model.DiagnosticMissingContact,
			Subject:  name,
			Detail:   "no number known for this contact",
			Document: d.path,
		})
	}

	unresolved := !corr.Resolved() && len(corr.Unresolved) > 0

	if kind == model.KindText {
		if unresolved {
			report.Skipped++
			o.unresolvedIdentity(d, corr)
			return nil
		}
		n, err := o.emitter.Text(d.doc, owner, corr.Number)
		report.Messages += n
		return err
	}

	if unresolved && (d.doc.Call == nil || d.doc.Call.Contributor.Number == "") {
		// The call log entry does not need the caller's identity.
		report.Skipped++
		o.unresolvedIdentity(d, corr)
		n, err := o.emitter.Call(d.doc)
		report.Calls += n
		return err
	}

	voicemails, calls, err := o.emitter.Voicemail(d.doc, owner, corr.Number)
	report.Voicemails += voicemails
	report.Calls += calls
	return err
}

func (o *Orchestrator) unresolvedIdentity(d *document, corr evidence.Correspondent) {
	o.diags.Add(model.Diagnostic{
		Kind:     model.DiagnosticUnresolvedIdentity,
		Subject:  d.doc.Filename(),
		Detail:   fmt.Sprintf("no number for %v", corr.Unresolved),
		Document: d.path,
	})
}

func (o *Orchestrator) unparsable(raw []string, path string) {
	for _, r := range raw {
		o.diags.Add(model.Diagnostic{
			Kind:     model.DiagnosticUnparsableNumber,
			Subject:  r,
			Detail:   "not a phone number",
			Document: path,
		})
	}
}
