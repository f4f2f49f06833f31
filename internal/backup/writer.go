// Package backup writes events in the SMS Backup & Restore XML format:
// one file of sms and mms records and one file of call records.
package backup

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/voxport/internal/model"
)

const header = "<?xml version='1.0' encoding='UTF-8' standalone='yes' ?>\n" +
	"<!--Converted from Google Voice takeout-->\n"

// stream is one output file's records, held until the count is known.
type stream struct {
	root  string
	body  bytes.Buffer
	seen  map[string]struct{}
	count int
}

func newStream(root string) *stream {
	return &stream{root: root, seen: make(map[string]struct{})}
}

// add appends a record unless an identical one was already written.
func (s *stream) add(record any) error {
	data, err := xml.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode %s record: %w", s.root, err)
	}
	key := string(data)
	if _, dup := s.seen[key]; dup {
		return nil
	}
	s.seen[key] = struct{}{}
	s.body.Write(data)
	s.body.WriteByte('\n')
	s.count++
	return nil
}

func (s *stream) writeTo(w io.Writer) error {
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "<%s count=\"%d\">\n", s.root, s.count); err != nil {
		return err
	}
	if _, err := w.Write(s.body.Bytes()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "</%s>\n", s.root)
	return err
}

// Writer collects events and serializes them. It implements the engine's
// event sink and is safe for concurrent use.
type Writer struct {
	messages *stream
	calls    *stream
	mu       sync.Mutex
}

// NewWriter creates an empty writer.
func NewWriter() *Writer {
	return &Writer{
		messages: newStream("smses"),
		calls:    newStream("calls"),
	}
}

// WriteMessage records a text message. Group conversations and messages
// with attachments become mms records.
func (w *Writer) WriteMessage(event model.MessageEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !event.IsMultimedia() {
		return w.messages.add(smsFor(event.Participant, event.Timestamp, event.Direction, event.Body))
	}
	return w.messages.add(mmsFor(event))
}

// WriteVoicemail records a voicemail transcript as a received message,
// carrying the recording when there is one.
func (w *Writer) WriteVoicemail(event model.VoicemailEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(event.Attachments) == 0 {
		return w.messages.add(smsFor(event.Participant, event.Timestamp, model.DirectionReceived, event.Body))
	}
	return w.messages.add(mmsFor(model.MessageEvent{
		Timestamp:   event.Timestamp,
		Participant: event.Participant,
		Self:        event.Self,
		Sender:      event.Participant,
		Body:        event.Body,
		Attachments: event.Attachments,
		Direction:   model.DirectionReceived,
	}))
}

// WriteCall records a call log entry.
func (w *Writer) WriteCall(event model.CallEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	name := event.ContactName
	if name == "" {
		name = unknownContact
	}
	return w.calls.add(callRecord{
		Number:       string(event.Number),
		Duration:     int64(event.Duration / time.Second),
		Date:         event.Timestamp.UnixMilli(),
		Type:         int(event.Type),
		Presentation: string(event.Presentation),
		ReadableDate: event.Timestamp.Format(readableLayout),
		ContactName:  name,
	})
}

// Counts returns the number of distinct message and call records.
func (w *Writer) Counts() (messages, calls int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.messages.count, w.calls.count
}

// FlushMessages writes the complete messages document to out.
func (w *Writer) FlushMessages(out io.Writer) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.messages.writeTo(out)
}

// FlushCalls writes the complete calls document to out.
func (w *Writer) FlushCalls(out io.Writer) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls.writeTo(out)
}

// Save writes both documents to disk. Each file is replaced atomically.
func (w *Writer) Save(messagesPath, callsPath string) error {
	if err := writeFile(messagesPath, w.FlushMessages); err != nil {
		return err
	}
	return writeFile(callsPath, w.FlushCalls)
}

func writeFile(path string, flush func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := flush(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

func smsFor(address model.Number, ts time.Time, direction model.Direction, body string) smsRecord {
	return smsRecord{
		Address:       string(address),
		Date:          ts.UnixMilli(),
		Type:          int(direction),
		Subject:       "null",
		Body:          body,
		Toa:           "null",
		ScToa:         "null",
		ServiceCenter: "null",
		Read:          1,
		Status:        1,
		ReadableDate:  ts.Format(readableLayout),
	}
}

func mmsFor(event model.MessageEvent) mmsRecord {
	recipients := event.Group
	if len(recipients) == 0 {
		recipients = []model.Number{event.Participant}
	}

	sent := event.Direction == model.DirectionSent
	record := mmsRecord{
		Address:      joinNumbers(recipients),
		ContentType:  mmsContentType,
		Date:         event.Timestamp.UnixMilli(),
		MType:        mmsRetrieveConf,
		MsgBox:       int(event.Direction),
		Read:         1,
		Rr:           129,
		Seen:         1,
		SubID:        -1,
		ReadableDate: event.Timestamp.Format(readableLayout),
	}
	if sent {
		record.MType = mmsSendReq
	}

	if event.Body != "" || len(event.Attachments) == 0 {
		record.Parts = append(record.Parts, mmsPart{
			ContentType: "text/plain",
			Text:        event.Body,
		})
	}
	for _, att := range event.Attachments {
		record.Parts = append(record.Parts, mmsPart{
			Seq:         len(record.Parts),
			ContentType: att.ContentType,
			Name:        att.Name,
			Location:    att.Name,
			Data:        att.Data,
		})
	}
	if len(event.Attachments) == 0 {
		record.TextOnly = 1
	}

	sender := event.Sender
	if sent {
		sender = event.Self
	}
	for _, n := range append(slices.Clone(recipients), event.Self) {
		addrType := addrTo
		if n == sender {
			addrType = addrFrom
		}
		record.Addrs = append(record.Addrs, mmsAddr{
			Address: string(n),
			Charset: charsetUTF8,
			Type:    addrType,
		})
	}
	return record
}

func joinNumbers(numbers []model.Number) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = string(n)
	}
	return strings.Join(parts, "~")
}
