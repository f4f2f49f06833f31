package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/voxport/internal/common"
	"github.com/Veraticus/voxport/internal/config"
	"github.com/Veraticus/voxport/internal/model"
	"github.com/Veraticus/voxport/internal/phone"
	"github.com/Veraticus/voxport/internal/testutil"
)

const janeConversation = `<html><head><title>Jane Doe</title></head>
<body>
<div class="hChatLog hfeed">
<div class="message"><abbr class="dt" title="2020-03-01T10:00:00.000-05:00">Mar 1, 2020</abbr>:
<cite class="sender vcard"><a class="tel" href="tel:+15550000002"><span class="fn">Jane Doe</span></a></cite>:
<q>Hello</q></div>
<div class="message"><abbr class="dt" title="2020-03-01T10:05:00.000-05:00">Mar 1, 2020</abbr>:
<cite class="sender vcard"><a class="tel" href="tel:+15550000001"><abbr class="fn" title="">Me</abbr></a></cite>:
<q>Hi!</q></div>
</div>
<div class="tags"><a rel="tag" href="#sms">Text</a></div>
</body></html>`

const restrictedCall = `<html><head><title>Missed call from
Unknown</title></head><body>
<div class="haudioRecording">
<div class="contributor vcard"><a class="tel" href="tel:"><span class="fn"></span></a></div>
<abbr class="published" title="2020-04-02T08:30:00.000Z">Apr 2, 2020</abbr>
<abbr class="duration" title="PT1M5S">(00:01:05)</abbr>
</div>
<div class="tags"><a rel="tag" href="#missed">Missed</a></div>
</body></html>`

func writeTakeout(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "Takeout", "Voice", "Calls")
	require.NoError(t, os.MkdirAll(root, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Jane Doe - Text - 2020-03-01T15_00_00Z.html"), []byte(janeConversation), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, " - Missed - 2020-04-02T08_30_00Z.html"), []byte(restrictedCall), 0o600))
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "voxport dev\n", out)
}

func TestConvertAndRunsCommands(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := writeTakeout(t)
	outDir := t.TempDir()
	messages := filepath.Join(outDir, "sms.xml")
	calls := filepath.Join(outDir, "calls.xml")
	db := filepath.Join(outDir, "runs.db")

	out, err := execute(t, "convert", root,
		"--owner", "+15550000001",
		"--messages-out", messages,
		"--calls-out", calls,
		"--db", db,
		"--no-progress",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Conversion")

	sms, err := os.ReadFile(messages)
	require.NoError(t, err)
	assert.Contains(t, string(sms), `<smses count="2">`)
	assert.Contains(t, string(sms), `address="+15550000002"`)

	log, err := os.ReadFile(calls)
	require.NoError(t, err)
	assert.Contains(t, string(log), `<calls count="1">`)
	assert.Contains(t, string(log), `number="`+string(phone.DefaultBogusNumber)+`"`)

	out, err = execute(t, "runs", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "2 messages, 1 calls")
}

func TestConvertMissingDirectory(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := execute(t, "convert", filepath.Join(t.TempDir(), "nope"), "--no-progress", "--dry-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not read the takeout directory")
}

func TestBuildLedger(t *testing.T) {
	trust := filepath.Join(t.TempDir(), "trust.yaml")
	require.NoError(t, os.WriteFile(trust, []byte("Jane Doe: \"+1 555 000 0002\"\n"), 0o600))

	cfg := &config.Config{OwnerName: "Me", OwnerNumber: "+15550000001", TrustPath: trust}
	l, err := buildLedger(cfg, phone.NewNormalizer("US", phone.DefaultBogusNumber))
	require.NoError(t, err)

	assert.True(t, l.Has("Me"))
	assert.True(t, l.Has("Jane Doe"))
	assert.Equal(t, []model.Contact{"Jane Doe"}, l.ResolveNames("+15550000002"))
}

func TestBuildLedger_BadTrustFile(t *testing.T) {
	cfg := &config.Config{OwnerName: "Me", TrustPath: filepath.Join(t.TempDir(), "missing.yaml")}
	_, err := buildLedger(cfg, phone.NewNormalizer("US", phone.DefaultBogusNumber))
	require.Error(t, err)
}

func TestRunsShow(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	db := filepath.Join(t.TempDir(), "runs.db")
	run := testutil.SeedRun(t, testutil.SetupTestDB(t, db))

	out, err := execute(t, "runs", run.ID, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Run "+run.ID)
	assert.Contains(t, out, "/takeout/Voice/Calls")
	assert.Contains(t, out, "Jane Doe")
	assert.Contains(t, out, "+15550000002")
	assert.Contains(t, out, "Bob")

	_, err = execute(t, "runs", "no-such-run", "--db", db)
	require.ErrorIs(t, err, common.ErrNotFound)
}
