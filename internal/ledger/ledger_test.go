package ledger

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/voxport/internal/common"
	"github.com/Veraticus/voxport/internal/model"
)

func at(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func TestLedger_DiscoverNewestWins(t *testing.T) {
	l := New(nil)

	assert.True(t, l.Discover("Bob", "+15550000001", at(100)))
	assert.True(t, l.Discover("Bob", "+15550000002", at(200)))

	got, ok := l.ResolveNumber("Bob", "", Newest)
	require.True(t, ok)
	assert.Equal(t, model.Number("+15550000002"), got)

	// Older evidence arriving later does not displace the head.
	assert.True(t, l.Discover("Bob", "+15550000003", at(50)))
	got, _ = l.ResolveNumber("Bob", "", Newest)
	assert.Equal(t, model.Number("+15550000002"), got)
}

func TestLedger_DiscoverIsIdempotent(t *testing.T) {
	l := New(nil)

	assert.True(t, l.Discover("Alice", "+15550000001", at(100)))
	assert.False(t, l.Discover("Alice", "+15550000001", at(100)))

	assert.Len(t, l.Candidates("Alice"), 1)
	assert.Empty(t, l.Conflicts())
}

func TestLedger_RediscoveryRefreshesTimestamp(t *testing.T) {
	l := New(nil)

	l.Discover("Alice", "+15550000001", at(100))
	l.Discover("Alice", "+15550000002", at(200))
	assert.False(t, l.Discover("Alice", "+15550000001", at(300)))

	got, _ := l.ResolveNumber("Alice", "", Newest)
	assert.Equal(t, model.Number("+15550000001"), got)
	assert.Len(t, l.Candidates("Alice"), 2)
}

func TestLedger_NumericNamesAreIgnored(t *testing.T) {
	l := New(nil)

	assert.False(t, l.Discover("+15551234567", "+15557654321", at(1)))
	assert.False(t, l.Discover("(555) 123-4567", "+15557654321", at(1)))
	assert.Empty(t, l.Snapshot())
	assert.Nil(t, l.ResolveNames("+15557654321"))
}

func TestLedger_EmptyInputsAreIgnored(t *testing.T) {
	l := New(nil)

	assert.False(t, l.Discover("", "+15550000001", at(1)))
	assert.False(t, l.Discover("Bob", "", at(1)))
	assert.Empty(t, l.Snapshot())
}

func TestLedger_ConflictRecordedOnce(t *testing.T) {
	l := New(nil)

	l.Discover("Bob", "+15550000001", at(100))
	l.Discover("Bob", "+15550000002", at(200))
	l.Discover("Bob", "+15550000002", at(200))
	l.Discover("Bob", "+15550000001", at(100))

	conflicts := l.Conflicts()
	require.Len(t, conflicts, 1)
	assert.Equal(t, model.Contact("Bob"), conflicts[0].Contact)
	assert.Equal(t, model.Number("+15550000001"), conflicts[0].Previous)
	assert.Equal(t, model.Number("+15550000002"), conflicts[0].Number)

	got, _ := l.ResolveNumber("Bob", "", Newest)
	assert.Equal(t, model.Number("+15550000002"), got)
}

func TestLedger_LabelsAreNormalized(t *testing.T) {
	l := New(nil)

	// Decomposed e + combining acute accent, extra spaces.
	l.Discover("  Jose\u0301   Ruiz ", "+15550000001", at(1))

	got, ok := l.ResolveNumber("Jos\u00e9 Ruiz", "", Newest)
	require.True(t, ok)
	assert.Equal(t, model.Number("+15550000001"), got)
}

func TestLedger_AliasTransitivity(t *testing.T) {
	l := New(nil)
	l.AddAlias("Bobby", "Robert")
	l.AddAlias("Robert", "Bob")
	l.Discover("Bob", "+15550000009", at(10))

	for _, p := range []Policy{AsIs, Newest} {
		got, ok := l.ResolveNumber("Bobby", "", p)
		require.True(t, ok, p.String())
		assert.Equal(t, model.Number("+15550000009"), got, p.String())
	}
}

func TestLedger_AliasCycleFailsInsteadOfLooping(t *testing.T) {
	l := New(nil)
	l.AddAlias("A", "B")
	l.AddAlias("B", "C")
	l.AddAlias("C", "A")

	got, ok := l.ResolveNumber("A", "", Newest)
	assert.False(t, ok)
	assert.Empty(t, got)
	assert.Contains(t, l.Missing(), model.Contact("A"))
}

func TestLedger_AliasChainBeyondDepthFails(t *testing.T) {
	l := New(nil)
	for i := 0; i < MaxAliasDepth+2; i++ {
		l.AddAlias(label(i), label(i+1))
	}
	l.Discover(label(MaxAliasDepth+2), "+15550000001", at(1))

	_, ok := l.ResolveNumber(label(0), "", Newest)
	assert.False(t, ok)

	got, ok := l.ResolveNumber(label(4), "", Newest)
	assert.True(t, ok)
	assert.Equal(t, model.Number("+15550000001"), got)
}

func label(i int) string {
	return "contact-" + strings.Repeat("x", i+1)
}

func TestLedger_Policies(t *testing.T) {
	l := New(nil)
	l.Configure("Carol", "+15550000001", "+15550000002")
	l.Discover("Carol", "+15550000003", at(500))
	l.Discover("Dave", "+15550000004", at(100))

	tests := []struct {
		name    string
		contact string
		hint    model.Number
		policy  Policy
		want    model.Number
		wantOK  bool
	}{
		{name: "as-is prefers hint", contact: "Carol", hint: "+15550000003", policy: AsIs, want: "+15550000003", wantOK: true},
		{name: "as-is without hint is newest", contact: "Carol", policy: AsIs, want: "+15550000001", wantOK: true},
		{name: "as-is hint for unknown contact", contact: "Nobody", hint: "+15550000008", policy: AsIs, want: "+15550000008", wantOK: true},
		{name: "newest ignores hint", contact: "Carol", hint: "+15550000003", policy: Newest, want: "+15550000001", wantOK: true},
		{name: "configured head", contact: "Carol", policy: Configured, want: "+15550000001", wantOK: true},
		{name: "configured accepts matching hint", contact: "Carol", hint: "+15550000002", policy: Configured, want: "+15550000002", wantOK: true},
		{name: "configured rejects discovered hint", contact: "Carol", hint: "+15550000003", policy: Configured, want: "+15550000001", wantOK: true},
		{name: "configured has nothing for discovered-only contact", contact: "Dave", policy: Configured, wantOK: false},
		{name: "newest on discovered-only contact", contact: "Dave", policy: Newest, want: "+15550000004", wantOK: true},
		{name: "unknown contact", contact: "Nobody", policy: Newest, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := l.ResolveNumber(tt.contact, tt.hint, tt.policy)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLedger_ConfiguredPrecedence(t *testing.T) {
	l := New(nil)
	l.Configure("Erin", "+15550000001")
	l.Discover("Erin", "+15550000002", time.Now())

	got, ok := l.ResolveNumber("Erin", "", Configured)
	require.True(t, ok)
	assert.Equal(t, model.Number("+15550000001"), got)
	assert.Len(t, l.Conflicts(), 1, "discovering a new number against a configured head is a conflict")
}

func TestLedger_ConfiguredChasesAliasWhenNothingConfigured(t *testing.T) {
	l := New(nil)
	l.Discover("Frank", "+15550000005", at(1))
	l.AddAlias("Frank", "Franklin")
	l.Configure("Franklin", "+15550000006")

	got, ok := l.ResolveNumber("Frank", "", Configured)
	require.True(t, ok)
	assert.Equal(t, model.Number("+15550000006"), got)

	got, ok = l.ResolveNumber("Frank", "", Newest)
	require.True(t, ok)
	assert.Equal(t, model.Number("+15550000005"), got)
}

func TestLedger_ResolveNames(t *testing.T) {
	l := New(nil)
	l.Discover("Grace", "+15550000001", at(1))
	l.Discover("Gracie", "+15550000001", at(2))
	l.Discover("Heidi", "+15550000002", at(1))
	l.AddNumberAlias("+15550000009", "+15550000002")

	assert.Equal(t, []model.Contact{"Grace", "Gracie"}, l.ResolveNames("+15550000001"))
	assert.Equal(t, []model.Contact{"Heidi"}, l.ResolveNames("+15550000009"))
	assert.Nil(t, l.ResolveNames("+15550000007"))
}

func TestLedger_BestNumberFor(t *testing.T) {
	l := New(nil)
	l.Configure("Ivan", "+15550000001")
	l.Discover("Ivan", "+15550000002", at(100))
	l.Discover("Judy", "+15550000003", at(100))
	l.Discover("Judy", "+15550000004", at(200))
	l.AddNumberAlias("+15550000005", "+15550000004")

	assert.Equal(t, model.Number("+15550000002"), l.BestNumberFor("+15550000002", AsIs))
	assert.Equal(t, model.Number("+15550000001"), l.BestNumberFor("+15550000002", Configured))
	assert.Equal(t, model.Number("+15550000001"), l.BestNumberFor("+15550000002", Newest))
	assert.Equal(t, model.Number("+15550000004"), l.BestNumberFor("+15550000003", Newest))
	assert.Equal(t, model.Number("+15550000003"), l.BestNumberFor("+15550000003", Configured), "nothing configured for Judy")
	assert.Equal(t, model.Number("+15550000004"), l.BestNumberFor("+15550000005", Newest))
	assert.Equal(t, model.Number("+15550000007"), l.BestNumberFor("+15550000007", Newest))
}

func TestLedger_OrderIndependentRanking(t *testing.T) {
	type obs struct {
		name   string
		number model.Number
		ts     time.Time
	}
	observations := []obs{
		{"Kim", "+15550000001", at(100)},
		{"Kim", "+15550000002", at(300)},
		{"Kim", "+15550000003", at(200)},
		{"Kim", "+15550000004", at(300)},
		{"Lee", "+15550000005", at(10)},
		{"Lee", "+15550000006", at(20)},
		{"Kim", "+15550000001", at(400)},
	}

	reference := New(nil)
	for _, o := range observations {
		reference.Discover(o.name, o.number, o.ts)
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]obs(nil), observations...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		l := New(nil)
		for _, o := range shuffled {
			l.Discover(o.name, o.number, o.ts)
		}
		assert.Equal(t, reference.Snapshot(), l.Snapshot())
	}
}

func TestLedger_ReverseIndexConsistency(t *testing.T) {
	l := New(nil)
	l.Configure("Mallory", "+15550000001")
	l.Discover("Mallory", "+15550000002", at(1))
	l.Discover("Niaj", "+15550000002", at(2))
	l.Configure("Mallory", "+15550000002")

	for _, entry := range l.Snapshot() {
		for _, c := range entry.Candidates {
			assert.Contains(t, l.ResolveNames(c.Number), entry.Contact)
		}
	}
	for _, n := range []model.Number{"+15550000001", "+15550000002"} {
		for _, contact := range l.ResolveNames(n) {
			numbers := make([]model.Number, 0)
			for _, c := range l.Candidates(string(contact)) {
				numbers = append(numbers, c.Number)
			}
			assert.Contains(t, numbers, n)
		}
	}
}

func TestLedger_ConfigureListOrder(t *testing.T) {
	l := New(nil)
	l.Configure("Olivia", "+15550000002", "+15550000001")

	candidates := l.Candidates("Olivia")
	require.Len(t, candidates, 2)
	assert.Equal(t, model.Number("+15550000002"), candidates[0].Number)
	assert.True(t, candidates[0].IsConfigured())
}

func TestLedger_Missing(t *testing.T) {
	l := New(nil)
	_, ok := l.ResolveNumber("Peggy", "", Newest)
	require.False(t, ok)
	assert.Equal(t, []model.Contact{"Peggy"}, l.Missing())

	l.Discover("Peggy", "+15550000001", at(1))
	assert.Empty(t, l.Missing(), "resolvable contacts drop out of the missing list")
}

func TestParsePolicy(t *testing.T) {
	for input, want := range map[string]Policy{
		"as-is":      AsIs,
		"newest":     Newest,
		"":           Newest,
		"Configured": Configured,
	} {
		got, err := ParsePolicy(input)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParsePolicy("oldest")
	assert.ErrorIs(t, err, common.ErrConfiguration)
}
