package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/voxport/internal/common"
	"github.com/Veraticus/voxport/internal/ledger"
	"github.com/Veraticus/voxport/internal/model"
	"github.com/Veraticus/voxport/internal/service"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

var _ service.RunStore = (*SQLiteStorage)(nil)

// SQLiteStorage keeps a history of conversion runs: the ledger each run
// ended with and the diagnostics it reported.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// SaveRun stores a run together with its ledger snapshot and diagnostics.
// A run without an ID is given a new one.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *model.Run, entries []ledger.Entry, diags []model.Diagnostic) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}
	for i := range diags {
		if err := validateDiagnostic(&diags[i]); err != nil {
			return fmt.Errorf("diagnostic at index %d: %w", i, err)
		}
	}

	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := saveRunTx(ctx, tx, run); err != nil {
		return err
	}
	if err := saveEntriesTx(ctx, tx, run.ID, entries); err != nil {
		return err
	}
	if err := saveDiagnosticsTx(ctx, tx, run.ID, diags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

func saveRunTx(ctx context.Context, tx *sql.Tx, run *model.Run) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, started_at, finished_at, source, policy, owner,
			documents, messages, calls, voicemails, skipped, owner_unresolved
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Source, run.Policy, string(run.Owner),
		run.Documents, run.Messages, run.Calls, run.Voicemails, run.Skipped, run.OwnerUnresolved,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

func saveEntriesTx(ctx context.Context, tx *sql.Tx, runID string, entries []ledger.Entry) error {
	candidateStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger_candidates (run_id, contact, number, seen_at, provenance)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare candidate statement: %w", err)
	}
	defer func() { _ = candidateStmt.Close() }()

	aliasStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger_aliases (run_id, contact, alias_of)
		VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare alias statement: %w", err)
	}
	defer func() { _ = aliasStmt.Close() }()

	for _, entry := range entries {
		for _, c := range entry.Candidates {
			if _, err := candidateStmt.ExecContext(ctx, runID, string(entry.Contact), string(c.Number),
				c.Timestamp.UTC(), string(c.Provenance)); err != nil {
				return fmt.Errorf("failed to save candidate for %s: %w", entry.Contact, err)
			}
		}
		if entry.AliasOf != "" {
			if _, err := aliasStmt.ExecContext(ctx, runID, string(entry.Contact), string(entry.AliasOf)); err != nil {
				return fmt.Errorf("failed to save alias for %s: %w", entry.Contact, err)
			}
		}
	}
	return nil
}

func saveDiagnosticsTx(ctx context.Context, tx *sql.Tx, runID string, diags []model.Diagnostic) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO diagnostics (run_id, seq, kind, subject, detail, document)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare diagnostic statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, d := range diags {
		if _, err := stmt.ExecContext(ctx, runID, i, string(d.Kind), d.Subject, d.Detail, d.Document); err != nil {
			return fmt.Errorf("failed to save diagnostic: %w", err)
		}
	}
	return nil
}

// GetRun returns a stored run.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*model.Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, source, policy, owner,
			documents, messages, calls, voicemails, skipped, owner_unresolved
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns every run.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, source, policy, owner,
			documents, messages, calls, voicemails, skipped, owner_unresolved
		FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// ListCandidates returns the ledger a run ended with, sorted by contact.
func (s *SQLiteStorage) ListCandidates(ctx context.Context, runID string) ([]ledger.Entry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runID, "runID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT contact, number, seen_at, provenance
		FROM ledger_candidates
		WHERE run_id = ?
		ORDER BY contact, seen_at DESC, provenance, number`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byContact := make(map[model.Contact]*ledger.Entry)
	var order []model.Contact
	for rows.Next() {
		var (
			contact, number, provenance string
			seenAt                      time.Time
		)
		if err := rows.Scan(&contact, &number, &seenAt, &provenance); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		entry := entryFor(byContact, &order, model.Contact(contact))
		entry.Candidates = append(entry.Candidates, model.Candidate{
			Number:     model.Number(number),
			Timestamp:  seenAt,
			Provenance: model.Provenance(provenance),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	aliasRows, err := s.db.QueryContext(ctx, `
		SELECT contact, alias_of FROM ledger_aliases WHERE run_id = ? ORDER BY contact`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query aliases: %w", err)
	}
	defer func() { _ = aliasRows.Close() }()

	for aliasRows.Next() {
		var contact, aliasOf string
		if err := aliasRows.Scan(&contact, &aliasOf); err != nil {
			return nil, fmt.Errorf("failed to scan alias: %w", err)
		}
		entryFor(byContact, &order, model.Contact(contact)).AliasOf = model.Contact(aliasOf)
	}
	if err := aliasRows.Err(); err != nil {
		return nil, err
	}

	slices.Sort(order)
	entries := make([]ledger.Entry, 0, len(order))
	for _, contact := range order {
		entries = append(entries, *byContact[contact])
	}
	return entries, nil
}

// ListDiagnostics returns a run's diagnostics in the order they were
// reported, optionally restricted to kinds.
func (s *SQLiteStorage) ListDiagnostics(ctx context.Context, runID string, kinds ...model.DiagnosticKind) ([]model.Diagnostic, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runID, "runID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, subject, detail, document
		FROM diagnostics WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query diagnostics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	wanted := make(map[model.DiagnosticKind]struct{}, len(kinds))
	for _, k := range kinds {
		wanted[k] = struct{}{}
	}

	var diags []model.Diagnostic
	for rows.Next() {
		var d model.Diagnostic
		var kind string
		if err := rows.Scan(&kind, &d.Subject, &d.Detail, &d.Document); err != nil {
			return nil, fmt.Errorf("failed to scan diagnostic: %w", err)
		}
		d.Kind = model.DiagnosticKind(kind)
		if len(wanted) > 0 {
			if _, ok := wanted[d.Kind]; !ok {
				continue
			}
		}
		diags = append(diags, d)
	}
	return diags, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.Run, error) {
	var run model.Run
	var owner string
	err := row.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Source, &run.Policy, &owner,
		&run.Documents, &run.Messages, &run.Calls, &run.Voicemails, &run.Skipped, &run.OwnerUnresolved)
	if err != nil {
		return nil, err
	}
	run.Owner = model.Number(owner)
	return &run, nil
}

func entryFor(byContact map[model.Contact]*ledger.Entry, order *[]model.Contact, contact model.Contact) *ledger.Entry {
	entry, ok := byContact[contact]
	if !ok {
		entry = &ledger.Entry{Contact: contact}
		byContact[contact] = entry
		*order = append(*order, contact)
	}
	return entry
}
