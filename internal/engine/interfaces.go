package engine

import (
	"context"

	"github.com/Veraticus/voxport/internal/model"
)

// DocumentSource loads one takeout document.
type DocumentSource interface {
	ParseFile(ctx context.Context, path string) (*model.Document, error)
}

// EventSink receives resolved events in emission order.
type EventSink interface {
	WriteMessage(event model.MessageEvent) error
	WriteCall(event model.CallEvent) error
	WriteVoicemail(event model.VoicemailEvent) error
}

// AttachmentFinder locates media referenced by a document.
type AttachmentFinder interface {
	Find(dir, ref string) (*model.Attachment, error)
}

// Progress reports how far a pass has got.
type Progress interface {
	Start(pass string, total int)
	Advance()
	Finish()
}

type noopProgress struct{}

func (noopProgress) Start(string, int) {}
func (noopProgress) Advance()          {}
func (noopProgress) Finish()           {}
