package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/voxport/internal/model"
)

func TestValidateRun(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		run     *model.Run
		wantErr error
		name    string
	}{
		{name: "valid", run: createTestRun(start)},
		{name: "nil", run: nil, wantErr: ErrNilParameter},
		{name: "no start", run: &model.Run{Source: "x", Policy: "newest"}, wantErr: ErrInvalidRun},
		{
			name:    "finished before start",
			run:     &model.Run{StartedAt: start, FinishedAt: start.Add(-time.Second), Source: "x", Policy: "newest"},
			wantErr: ErrInvalidRun,
		},
		{name: "no source", run: &model.Run{StartedAt: start, FinishedAt: start, Policy: "newest"}, wantErr: ErrInvalidRun},
		{name: "no policy", run: &model.Run{StartedAt: start, FinishedAt: start, Source: "x"}, wantErr: ErrInvalidRun},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRun(tt.run)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("validateRun() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("validateRun() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDiagnostic(t *testing.T) {
	tests := []struct {
		name    string
		diag    model.Diagnostic
		wantErr bool
	}{
		{name: "valid", diag: model.Diagnostic{Kind: model.DiagnosticMissingAttachment, Subject: "a.jpg"}},
		{name: "unknown kind", diag: model.Diagnostic{Kind: "bogus", Subject: "a"}, wantErr: true},
		{name: "blank subject", diag: model.Diagnostic{Kind: model.DiagnosticMissingContact, Subject: "  "}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateDiagnostic(&tt.diag)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateDiagnostic() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidDiagnostic) {
				t.Errorf("validateDiagnostic() error = %v, want ErrInvalidDiagnostic", err)
			}
		})
	}
}

func TestSQLiteStorage_RejectsInvalidInput(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	//nolint:staticcheck // testing nil context handling
	if err := store.SaveRun(nil, createTestRun(time.Now()), nil, nil); !errors.Is(err, ErrNilContext) {
		t.Errorf("SaveRun(nil ctx) error = %v", err)
	}

	diags := []model.Diagnostic{{Kind: "bogus", Subject: "x"}}
	if err := store.SaveRun(context.Background(), createTestRun(time.Now()), nil, diags); !errors.Is(err, ErrInvalidDiagnostic) {
		t.Errorf("SaveRun(bad diagnostic) error = %v", err)
	}

	if _, err := store.ListCandidates(context.Background(), ""); !errors.Is(err, ErrEmptyString) {
		t.Errorf("ListCandidates(\"\") error = %v", err)
	}
	if _, err := NewSQLiteStorage(" "); !errors.Is(err, ErrEmptyString) {
		t.Errorf("NewSQLiteStorage(\" \") error = %v", err)
	}
}
