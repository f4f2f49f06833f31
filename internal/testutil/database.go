// Package testutil provides test helpers for the run history.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/voxport/internal/ledger"
	"github.com/Veraticus/voxport/internal/model"
	"github.com/Veraticus/voxport/internal/service"
	"github.com/Veraticus/voxport/internal/storage"
)

// SetupTestDB opens a migrated run history at path, which may be
// ":memory:". The store is closed when the test ends.
func SetupTestDB(t *testing.T, path string) service.RunStore {
	t.Helper()

	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Logf("failed to close test database: %v", err)
		}
	})

	return store
}

// SeedRun records a finished run with one contact and one diagnostic and
// returns it with its assigned ID.
func SeedRun(t *testing.T, store service.RunStore) *model.Run {
	t.Helper()

	started := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	run := &model.Run{
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		Source:     "/takeout/Voice/Calls",
		Policy:     ledger.Newest.String(),
		Owner:      "+15550000001",
		Documents:  3,
		Messages:   2,
		Calls:      1,
	}
	entries := []ledger.Entry{{
		Contact: "Jane Doe",
		Candidates: []model.Candidate{
			{Number: "+15550000002", Timestamp: started, Provenance: model.ProvenanceDiscovered},
		},
	}}
	diags := []model.Diagnostic{{
		Kind:     model.DiagnosticMissingContact,
		Subject:  "Bob",
		Detail:   "no number known for this contact",
		Document: "/takeout/Voice/Calls/Bob - Text.html",
	}}

	if err := store.SaveRun(context.Background(), run, entries, diags); err != nil {
		t.Fatalf("failed to seed run: %v", err)
	}
	return run
}
