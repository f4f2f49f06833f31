package model

import "time"

// Direction of a text message relative to the account owner.
type Direction int

// SMS Backup & Restore message box values.
const (
	DirectionReceived Direction = 1
	DirectionSent     Direction = 2
)

// CallType follows the Android call log type codes.
type CallType int

// Call types.
const (
	CallIncoming  CallType = 1
	CallOutgoing  CallType = 2
	CallMissed    CallType = 3
	CallVoicemail CallType = 4
)

// Presentation follows the Android call log number presentation codes.
type Presentation string

// Presentations.
const (
	PresentationAllowed    Presentation = "1"
	PresentationRestricted Presentation = "2"
)

// Attachment is a located media file ready for serialization.
type Attachment struct {
	Name        string
	ContentType string
	Data        string // base64
}

// MessageEvent is a text message between the owner and one or more
// participants.
type MessageEvent struct {
	Timestamp   time.Time
	Participant Number
	Self        Number
	Sender      Number
	Body        string
	Group       []Number // all participants of a group conversation, owner excluded
	Attachments []Attachment
	Direction   Direction
}

// IsMultimedia reports whether the event has to be written as MMS.
func (e MessageEvent) IsMultimedia() bool {
	return len(e.Group) > 0 || len(e.Attachments) > 0
}

// CallEvent is one call log entry.
type CallEvent struct {
	Timestamp    time.Time
	Number       Number
	ContactName  string
	Presentation Presentation
	Duration     time.Duration
	Type         CallType
}

// VoicemailEvent is a voicemail or recorded call with its transcript.
type VoicemailEvent struct {
	Timestamp   time.Time
	Participant Number
	Self        Number
	Body        string
	Attachments []Attachment
}
