package engine

import (
	"fmt"

	"github.com/Veraticus/voxport/internal/evidence"
	"github.com/Veraticus/voxport/internal/ledger"
	"github.com/Veraticus/voxport/internal/model"
	"github.com/Veraticus/voxport/internal/phone"
)

// Emitter turns resolved documents into events.
type Emitter struct {
	sink    EventSink
	finder  AttachmentFinder
	scanner *evidence.Scanner
	ledger  *ledger.Ledger
	norm    *phone.Normalizer
	diags   *Diagnostics
}

// NewEmitter creates an emitter. finder may be nil, in which case every
// attachment is reported missing.
func NewEmitter(sink EventSink, finder AttachmentFinder, scanner *evidence.Scanner, l *ledger.Ledger, n *phone.Normalizer, diags *Diagnostics) *Emitter {
	return &Emitter{
		sink:    sink,
		finder:  finder,
		scanner: scanner,
		ledger:  l,
		norm:    n,
		diags:   diags,
	}
}

var callTypes = map[model.DocumentKind]model.CallType{
	model.KindMissed:    model.CallMissed,
	model.KindPlaced:    model.CallOutgoing,
	model.KindReceived:  model.CallIncoming,
	model.KindVoicemail: model.CallVoicemail,
	model.KindRecorded:  model.CallIncoming,
}

// Text emits one event per message of a one-to-one conversation with
// correspondent.
func (e *Emitter) Text(doc *model.Document, owner, correspondent model.Number) (int, error) {
	emitted := 0
	for _, msg := range doc.Messages {
		event := model.MessageEvent{
			Timestamp:   msg.Timestamp,
			Self:        owner,
			Body:        msg.Body,
			Attachments: e.attachments(doc, msg.Attachments),
		}

		if e.isOwner(msg.Sender) {
			event.Direction = model.DirectionSent
			event.Participant = correspondent
			event.Sender = owner
		} else {
			event.Direction = model.DirectionReceived
			event.Participant = e.participant(msg.Sender, correspondent, doc.Path)
			event.Sender = event.Participant
		}

		if err := e.sink.WriteMessage(event); err != nil {
			return emitted, fmt.Errorf("failed to write message from %s: %w", doc.Path, err)
		}
		emitted++
	}
	return emitted, nil
}

// Group emits the messages of a group conversation. Every event carries
// the full participant list.
func (e *Emitter) Group(doc *model.Document, owner model.Number) (int, error) {
	var group []model.Number
	seen := make(map[model.Number]struct{})
	for _, card := range doc.Participants {
		if e.isOwner(card) {
			continue
		}
		n := e.participant(card, e.norm.Bogus(), doc.Path)
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		group = append(group, n)
	}
	if len(group) == 0 {
		group = []model.Number{e.norm.Bogus()}
	}

	emitted := 0
	for _, msg := range doc.Messages {
		event := model.MessageEvent{
			Timestamp:   msg.Timestamp,
			Self:        owner,
			Body:        msg.Body,
			Group:       group,
			Participant: group[0],
			Attachments: e.attachments(doc, msg.Attachments),
		}

		if e.isOwner(msg.Sender) {
			event.Direction = model.DirectionSent
			event.Sender = owner
		} else {
			event.Direction = model.DirectionReceived
			event.Sender = e.participant(msg.Sender, e.norm.Bogus(), doc.Path)
		}

		if err := e.sink.WriteMessage(event); err != nil {
			return emitted, fmt.Errorf("failed to write group message from %s: %w", doc.Path, err)
		}
		emitted++
	}
	return emitted, nil
}

// Call emits the call log entry of a document. A call without a caller
// number is reported as restricted under the sentinel number.
func (e *Emitter) Call(doc *model.Document) (int, error) {
	if doc.Call == nil {
		return 0, nil
	}
	call := doc.Call

	event := model.CallEvent{
		Timestamp:    call.Timestamp,
		Duration:     call.Duration,
		Type:         callTypes[doc.Kind()],
		Presentation: model.PresentationAllowed,
	}

	if call.Contributor.Number == "" {
		event.Number = e.norm.Bogus()
		event.Presentation = model.PresentationRestricted
	} else {
		event.Number = e.participant(call.Contributor, e.norm.Bogus(), doc.Path)
		event.ContactName = e.contactName(event.Number)
	}

	if err := e.sink.WriteCall(event); err != nil {
		return 0, fmt.Errorf("failed to write call from %s: %w", doc.Path, err)
	}
	return 1, nil
}

// Voicemail emits the transcript of a voicemail or recorded call followed
// by its call log entry.
func (e *Emitter) Voicemail(doc *model.Document, owner, correspondent model.Number) (int, int, error) {
	if doc.Call == nil {
		return 0, 0, nil
	}
	call := doc.Call

	participant := correspondent
	if call.Contributor.Number != "" {
		participant = e.participant(call.Contributor, correspondent, doc.Path)
	}

	event := model.VoicemailEvent{
		Timestamp:   call.Timestamp,
		Participant: participant,
		Self:        owner,
		Body:        call.Transcript,
		Attachments: e.attachments(doc, call.Audio),
	}
	if err := e.sink.WriteVoicemail(event); err != nil {
		return 0, 0, fmt.Errorf("failed to write voicemail from %s: %w", doc.Path, err)
	}

	calls, err := e.Call(doc)
	return 1, calls, err
}

// participant resolves a card, falling back to fallback when the card
// carries nothing usable.
func (e *Emitter) participant(card model.Card, fallback model.Number, path string) model.Number {
	if n, ok := e.scanner.ResolveCard(card); ok {
		return n
	}
	if card.Number != "" {
		res := e.norm.Normalize(card.Number)
		e.diags.Add(model.Diagnostic{
			Kind:     model.DiagnosticUnparsableNumber,
			Subject:  res.Raw,
			Detail:   "not a phone number",
			Document: path,
		})
		return res.OrRaw()
	}
	return fallback
}

func (e *Emitter) contactName(number model.Number) string {
	owner := ledger.CleanLabel(e.scanner.OwnerLabel())
	for _, name := range e.ledger.ResolveNames(number) {
		if name != owner {
			return string(name)
		}
	}
	return ""
}

func (e *Emitter) isOwner(card model.Card) bool {
	return e.scanner.IsOwner(card)
}

func (e *Emitter) attachments(doc *model.Document, refs []string) []model.Attachment {
	if len(refs) == 0 {
		return nil
	}

	var out []model.Attachment
	for _, ref := range refs {
		if e.finder == nil {
			e.missingAttachment(doc, ref, "attachments are disabled")
			continue
		}
		att, err := e.finder.Find(doc.Dir(), ref)
		if err != nil {
			e.missingAttachment(doc, ref, err.Error())
			continue
		}
		out = append(out, *att)
	}
	return out
}

func (e *Emitter) missingAttachment(doc *model.Document, ref, detail string) {
	e.diags.Add(model.Diagnostic{
		Kind:     model.DiagnosticMissingAttachment,
		Subject:  ref,
		Detail:   detail,
		Document: doc.Path,
	})
}
