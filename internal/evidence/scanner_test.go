package evidence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/voxport/internal/ledger"
	"github.com/Veraticus/voxport/internal/model"
	"github.com/Veraticus/voxport/internal/phone"
)

func newScanner(t *testing.T) (*Scanner, *ledger.Ledger) {
	t.Helper()
	n := phone.NewNormalizer("US", "")
	l := ledger.New(n)
	return NewScanner(l, n, ledger.Newest, "Me"), l
}

func TestFromFilename(t *testing.T) {
	tests := []struct {
		in   string
		want Ref
	}{
		{in: "+15551234567 - Text - 2020-01-01T00_00_00Z", want: Ref{Number: "+15551234567"}},
		{in: "15551234567 - Missed - 2020-01-01T00_00_00Z", want: Ref{Number: "15551234567"}},
		{in: "Jane Doe - Text - 2020-01-01T00_00_00Z", want: Ref{Name: "Jane Doe"}},
		{in: "Group Conversation - 2020-01-01T00_00_00Z", want: Ref{}},
		{in: " - Text - 2020-01-01T00_00_00Z", want: Ref{}},
		{in: "Bills", want: Ref{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FromFilename(tt.in))
		})
	}
}

func TestFromTitle(t *testing.T) {
	assert.Equal(t, Ref{Name: "Jane Doe"}, FromTitle("Jane Doe"))
	assert.Equal(t, Ref{Number: "+15550000003"}, FromTitle("Missed call from\n+15550000003"))
	assert.Equal(t, Ref{Name: "Carol"}, FromTitle("\nVoicemail from\n  Carol \n"))
	assert.Equal(t, Ref{}, FromTitle("Group Conversation"))
	assert.Equal(t, Ref{}, FromTitle(""))
	assert.True(t, FromTitle("Me").Empty())
}

func TestScanner_Observe(t *testing.T) {
	s, l := newScanner(t)
	ts := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	obs := s.Observe([]model.Sighting{
		{Card: model.Card{Name: "Me", Number: "+15550000001", Self: true}, Timestamp: ts},
		{Card: model.Card{Name: "Jane", Number: "(555) 000-0002"}, Timestamp: ts},
		{Card: model.Card{Name: "Jim", Number: "+15550000003"}, Timestamp: ts},
		{Card: model.Card{Name: "Jane", Number: "+15550000002"}, Timestamp: ts},
		{Card: model.Card{Name: "Ghost", Number: "unknown"}, Timestamp: ts},
		{Card: model.Card{Name: "Nobody"}, Timestamp: ts},
	})

	assert.Equal(t, 3, obs.NewPairs)
	assert.Equal(t, []string{"unknown"}, obs.Unparsable)

	owner, ok := s.Owner()
	require.True(t, ok)
	assert.Equal(t, model.Number("+15550000001"), owner)
	assert.True(t, l.Has("Jim"))
	assert.False(t, l.Has("Nobody"))
}

func TestScanner_CorrespondentFallbackOrder(t *testing.T) {
	s, l := newScanner(t)
	l.Discover("Jane Doe", "+15550000002", time.Unix(100, 0))
	l.Discover("John Roe", "+15550000003", time.Unix(100, 0))

	doc := func(title, file string) *model.Document {
		return &model.Document{Title: title, Path: "/x/" + file + ".html", Tags: []string{"Text"}}
	}

	tests := []struct {
		name           string
		ctx            Context
		want           model.Number
		wantSource     Source
		wantUnresolved []string
	}{
		{
			name: "card wins",
			ctx: func() Context {
				c := s.Scan(doc("Jane Doe", "+15550000009 - Text - x"))
				c.OtherParty = &model.Card{Number: "+15550000007"}
				return c
			}(),
			want:       "+15550000007",
			wantSource: SourceCard,
		},
		{
			name:       "title number before title name and filename",
			ctx:        s.Scan(doc("Missed call from\n+15550000004", "John Roe - Missed - x")),
			want:       "+15550000004",
			wantSource: SourceTitleNumber,
		},
		{
			name:       "title name via ledger",
			ctx:        s.Scan(doc("Jane Doe", "+15550000009 - Text - x")),
			want:       "+15550000002",
			wantSource: SourceTitleName,
		},
		{
			name:           "filename number after unresolved title name",
			ctx:            s.Scan(doc("Stranger", "+15550000009 - Text - x")),
			want:           "+15550000009",
			wantSource:     SourceFilenameNumber,
			wantUnresolved: []string{"Stranger"},
		},
		{
			name:       "filename name via ledger",
			ctx:        s.Scan(doc("", "John Roe - Text - x")),
			want:       "+15550000003",
			wantSource: SourceFilenameName,
		},
		{
			name:           "sentinel",
			ctx:            s.Scan(doc("Stranger", "Other Stranger - Text - x")),
			want:           phone.DefaultBogusNumber,
			wantSource:     SourceSentinel,
			wantUnresolved: []string{"Stranger", "Other Stranger"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Correspondent(tt.ctx)
			assert.Equal(t, tt.want, got.Number)
			assert.Equal(t, tt.wantSource, got.Source, got.Source.String())
			assert.Equal(t, tt.wantUnresolved, got.Unresolved)
		})
	}
}

func TestScanner_Defer(t *testing.T) {
	s, l := newScanner(t)
	text := &model.Document{Title: "Jane Doe", Path: "Jane Doe - Text - x.html", Tags: []string{"Text"}}
	call := &model.Document{Title: "Jane Doe", Path: "Jane Doe - Missed - x.html", Tags: []string{"Missed"}}

	assert.True(t, s.Defer(s.Scan(text)), "owner unknown")
	assert.False(t, s.Defer(s.Scan(call)), "call records never wait")

	l.Configure("Me", "+15550000001")
	assert.True(t, s.Defer(s.Scan(text)), "title name unknown")

	l.Discover("Jane Doe", "+15550000002", time.Unix(1, 0))
	assert.False(t, s.Defer(s.Scan(text)))
}

func TestScanner_ScanFindsOtherParty(t *testing.T) {
	s, l := newScanner(t)
	doc := &model.Document{
		Path: "x.html",
		Messages: []model.Message{
			{Sender: model.Card{Name: "Me", Number: "+15550000001", Self: true}},
			{Sender: model.Card{Name: "Jane", Number: "555-000-0002"}},
		},
	}

	ctx := s.Scan(doc)
	require.NotNil(t, ctx.OtherParty)
	assert.Equal(t, "+15550000002", ctx.OtherParty.Number)
	assert.Empty(t, l.Snapshot(), "scan does not write to the ledger")
}
