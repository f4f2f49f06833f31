package model

import (
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// DocumentKind classifies a takeout document by its tags.
type DocumentKind string

// Document kinds.
const (
	KindText      DocumentKind = "text"
	KindGroup     DocumentKind = "group"
	KindMissed    DocumentKind = "missed"
	KindPlaced    DocumentKind = "placed"
	KindReceived  DocumentKind = "received"
	KindVoicemail DocumentKind = "voicemail"
	KindRecorded  DocumentKind = "recorded"
	KindUnknown   DocumentKind = "unknown"
)

// Message is a single text message inside a conversation document.
type Message struct {
	Timestamp   time.Time
	Sender      Card
	Body        string
	Attachments []string // relative paths of images and other media
}

// CallRecord is the call, voicemail or recording described by a document.
type CallRecord struct {
	Timestamp   time.Time
	Contributor Card
	Transcript  string
	Audio       []string
	Duration    time.Duration
}

// Document is one parsed takeout file.
type Document struct {
	Path         string
	Title        string
	Tags         []string
	Messages     []Message
	Participants []Card
	Call         *CallRecord
}

// Dir returns the directory the document lives in. Attachment references
// are relative to it.
func (d *Document) Dir() string {
	return filepath.Dir(d.Path)
}

// Filename returns the document's base name without its suffix.
func (d *Document) Filename() string {
	base := filepath.Base(d.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// HasTag reports whether the document carries the tag, ignoring case.
func (d *Document) HasTag(tag string) bool {
	return slices.ContainsFunc(d.Tags, func(t string) bool {
		return strings.EqualFold(t, tag)
	})
}

// Kind classifies the document from its tags.
func (d *Document) Kind() DocumentKind {
	switch {
	case d.HasTag("Text"):
		if len(d.Participants) > 0 {
			return KindGroup
		}
		return KindText
	case d.HasTag("Voicemail"):
		return KindVoicemail
	case d.HasTag("Recorded"):
		return KindRecorded
	case d.HasTag("Missed"):
		return KindMissed
	case d.HasTag("Placed"):
		return KindPlaced
	case d.HasTag("Received"):
		return KindReceived
	default:
		return KindUnknown
	}
}

// BearsMessages reports whether converting the document needs the owner's
// identity: text conversations and voicemails do, plain call records do not.
func (d *Document) BearsMessages() bool {
	switch d.Kind() {
	case KindText, KindGroup, KindVoicemail, KindRecorded:
		return true
	default:
		return false
	}
}

// Timestamp returns the earliest record time in the document.
func (d *Document) Timestamp() time.Time {
	var ts time.Time
	if d.Call != nil {
		ts = d.Call.Timestamp
	}
	for _, m := range d.Messages {
		if ts.IsZero() || (!m.Timestamp.IsZero() && m.Timestamp.Before(ts)) {
			ts = m.Timestamp
		}
	}
	return ts
}

// Sightings returns every contact card in the document paired with the
// time of the record it was found in.
func (d *Document) Sightings() []Sighting {
	ts := d.Timestamp()
	var out []Sighting
	for _, p := range d.Participants {
		out = append(out, Sighting{Card: p, Timestamp: ts})
	}
	for _, m := range d.Messages {
		out = append(out, Sighting{Card: m.Sender, Timestamp: m.Timestamp})
	}
	if d.Call != nil {
		out = append(out, Sighting{Card: d.Call.Contributor, Timestamp: d.Call.Timestamp})
	}
	return out
}
