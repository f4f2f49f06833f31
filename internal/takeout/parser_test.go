package takeout

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/voxport/internal/common"
	"github.com/Veraticus/voxport/internal/model"
)

const textConversation = `<?xml version="1.0" ?>
<html><head><title>Jane Doe</title></head>
<body>
<div class="hChatLog hfeed">
<div class="message"><abbr class="dt" title="2020-03-01T10:00:00.000-05:00">Mar 1, 2020</abbr>:
<cite class="sender vcard"><a class="tel" href="tel:+15550000002"><span class="fn">Jane Doe</span></a></cite>:
<q>Hello<br>there</q></div>
<div class="message"><abbr class="dt" title="2020-03-01T10:05:00.000-05:00">Mar 1, 2020</abbr>:
<cite class="sender vcard"><a class="tel" href="tel:+15550000001"><abbr class="fn" title="">Me</abbr></a></cite>:
<q>Hi!</q>
<div><img src="Jane Doe - Text - 2020-03-01T15_05_00Z-1-1"></div></div>
</div>
<div class="tags">Labels: <a rel="tag" href="http://www.google.com/voice#inbox">Inbox</a>, <a rel="tag" href="http://www.google.com/voice#sms">Text</a></div>
</body></html>`

const missedCall = `<html><head><title>Missed call from
+15550000003</title></head><body>
<div class="haudioRecording">
<span class="fn">Missed call from</span>
<div class="contributor vcard"><a class="tel" href="tel:"><span class="fn"></span></a></div>
<abbr class="published" title="2020-04-02T08:30:00.000Z">Apr 2, 2020</abbr>
<abbr class="duration" title="PT1M5S">(00:01:05)</abbr>
</div>
<div class="tags">Labels: <a rel="tag" href="#missed">Missed</a></div>
</body></html>`

const groupConversation = `<html><head><title>Group Conversation</title></head><body>
<div class="participants">Group conversation with:
<cite class="sender vcard"><a class="tel" href="tel:+15550000004"><span class="fn">Ann</span></a></cite>,
<cite class="sender vcard"><a class="tel" href="tel:+15550000005"><span class="fn">Ben</span></a></cite></div>
<div class="message"><abbr class="dt" title="2020-05-01T12:00:00Z">May 1</abbr>:
<cite class="sender vcard"><a class="tel" href="tel:+15550000004"><span class="fn">Ann</span></a></cite>: <q>hey all</q></div>
<div class="tags"><a rel="tag" href="#sms">Text</a></div>
</body></html>`

const voicemail = `<html><head><title>Voicemail from
Carol</title></head><body>
<div class="haudioRecording">
<div class="contributor vcard"><a class="tel" href="tel:+15550000006"><span class="fn">Carol</span></a></div>
<abbr class="published" title="2020-06-01T09:00:00Z">Jun 1</abbr>
<abbr class="duration" title="PT12S">(00:00:12)</abbr>
<span class="full-text">Call me back</span>
<audio controls="controls" src="Carol - Voicemail - 2020-06-01T09_00_00Z.mp3"></audio>
</div>
<div class="tags"><a rel="tag" href="#voicemail">Voicemail</a></div>
</body></html>`

func TestParser_TextConversation(t *testing.T) {
	doc, err := NewParser().Parse(strings.NewReader(textConversation), "/takeout/Calls/Jane Doe - Text - 2020-03-01T15_00_00Z.html")
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", doc.Title)
	assert.Equal(t, []string{"Inbox", "Text"}, doc.Tags)
	assert.Equal(t, model.KindText, doc.Kind())
	assert.True(t, doc.BearsMessages())
	require.Len(t, doc.Messages, 2)

	first := doc.Messages[0]
	assert.Equal(t, "Hello\nthere", first.Body)
	assert.Equal(t, model.Card{Name: "Jane Doe", Number: "+15550000002"}, first.Sender)
	assert.Equal(t, time.Date(2020, 3, 1, 15, 0, 0, 0, time.UTC), first.Timestamp.UTC())

	second := doc.Messages[1]
	assert.True(t, second.Sender.Self)
	assert.Equal(t, "Me", second.Sender.Name)
	assert.Equal(t, []string{"Jane Doe - Text - 2020-03-01T15_05_00Z-1-1"}, second.Attachments)

	assert.Nil(t, doc.Call)
	assert.Equal(t, "Jane Doe - Text - 2020-03-01T15_00_00Z", doc.Filename())
	assert.Equal(t, "/takeout/Calls", doc.Dir())
}

func TestParser_MissedCall(t *testing.T) {
	doc, err := NewParser().Parse(strings.NewReader(missedCall), "missed.html")
	require.NoError(t, err)

	assert.Equal(t, model.KindMissed, doc.Kind())
	assert.False(t, doc.BearsMessages())
	require.NotNil(t, doc.Call)
	assert.Equal(t, "", doc.Call.Contributor.Number)
	assert.Equal(t, 65*time.Second, doc.Call.Duration)
	assert.Equal(t, time.Date(2020, 4, 2, 8, 30, 0, 0, time.UTC), doc.Call.Timestamp.UTC())
	assert.Equal(t, "Missed call from\n+15550000003", doc.Title)
}

func TestParser_GroupConversation(t *testing.T) {
	doc, err := NewParser().Parse(strings.NewReader(groupConversation), "Group Conversation - 2020-05-01T12_00_00Z.html")
	require.NoError(t, err)

	assert.Equal(t, model.KindGroup, doc.Kind())
	require.Len(t, doc.Participants, 2)
	assert.Equal(t, "Ann", doc.Participants[0].Name)
	assert.Equal(t, "+15550000005", doc.Participants[1].Number)
	require.Len(t, doc.Messages, 1)
	assert.Len(t, doc.Sightings(), 3)
}

func TestParser_Voicemail(t *testing.T) {
	doc, err := NewParser().Parse(strings.NewReader(voicemail), "vm.html")
	require.NoError(t, err)

	assert.Equal(t, model.KindVoicemail, doc.Kind())
	require.NotNil(t, doc.Call)
	assert.Equal(t, "Call me back", doc.Call.Transcript)
	assert.Equal(t, []string{"Carol - Voicemail - 2020-06-01T09_00_00Z.mp3"}, doc.Call.Audio)
	assert.Equal(t, "Carol", doc.Call.Contributor.Name)
	assert.Equal(t, 12*time.Second, doc.Call.Duration)
}

func TestParser_ParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.html")
	require.NoError(t, os.WriteFile(path, []byte(voicemail), 0o600))

	doc, err := NewParser().ParseFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Path)

	_, err = NewParser().ParseFile(context.Background(), filepath.Join(dir, "missing.html"))
	assert.ErrorIs(t, err, common.ErrUnreadableDocument)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewParser().ParseFile(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "PT46S", want: 46 * time.Second},
		{in: "PT1H2M3S", want: time.Hour + 2*time.Minute + 3*time.Second},
		{in: "PT0.5S", want: 500 * time.Millisecond},
		{in: "P1DT1M", want: 24*time.Hour + time.Minute},
		{in: "", want: 0},
		{in: "00:01:05", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWalk(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Calls"), 0o750))
	for _, name := range []string{"Calls/b.html", "Calls/a.HTML", "Calls/a.mp3", "index.html"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), nil, 0o600))
	}

	paths, err := Walk(root, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "Calls/a.HTML"),
		filepath.Join(root, "Calls/b.html"),
		filepath.Join(root, "index.html"),
	}, paths)

	_, err = Walk(filepath.Join(root, "nope"), ".html")
	assert.Error(t, err)
}
