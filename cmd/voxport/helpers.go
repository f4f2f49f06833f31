package main

import (
	"context"
	"fmt"

	"github.com/Veraticus/voxport/internal/config"
	"github.com/Veraticus/voxport/internal/ledger"
	"github.com/Veraticus/voxport/internal/phone"
	"github.com/Veraticus/voxport/internal/service"
	"github.com/Veraticus/voxport/internal/storage"
)

// buildLedger seeds a ledger from the configured owner number and the
// trust file.
func buildLedger(cfg *config.Config, norm *phone.Normalizer) (*ledger.Ledger, error) {
	l := ledger.New(norm)
	if cfg.OwnerNumber != "" {
		l.Configure(cfg.OwnerName, cfg.OwnerNumber)
	}
	if cfg.TrustPath != "" {
		if err := l.LoadTrustFile(cfg.TrustPath); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// initStorage opens and migrates the run history database.
func initStorage(ctx context.Context, dbPath string) (service.RunStore, error) {
	store, err := storage.NewSQLiteStorage(config.ExpandPath(dbPath))
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}
