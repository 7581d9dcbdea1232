package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/muellerb/shop-register-go/internal/domain"
	"github.com/muellerb/shop-register-go/internal/infra/memstore"
)

func seedSnapshot() *domain.RegisterSnapshot {
	return domain.NewRegisterSnapshot(
		domain.MustAmount("5000"),
		time.Date(2025, 8, 4, 0, 0, 0, 0, time.UTC),
	)
}

func TestLoad_Uninitialized(t *testing.T) {
	store := memstore.New()

	_, err := store.Load(context.Background())
	var uninit *domain.ErrUninitialized
	if !errors.As(err, &uninit) {
		t.Fatalf("expected ErrUninitialized, got %v", err)
	}
}

func TestLoadSave_RoundTrip(t *testing.T) {
	store := memstore.NewSeeded(seedSnapshot())

	snap, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	snap.Apply(domain.LedgerEntry{Amount: domain.MustAmount("20"), Timestamp: time.Now()})
	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.Balance.Equal(domain.MustAmount("5020")) {
		t.Errorf("expected balance 5020, got %s", reloaded.Balance)
	}
}

func TestSave_BumpsVersion(t *testing.T) {
	store := memstore.NewSeeded(seedSnapshot())

	snap, _ := store.Load(context.Background())
	before := snap.Version
	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	if snap.Version != before+1 {
		t.Errorf("expected version %d after save, got %d", before+1, snap.Version)
	}
}

func TestSave_StaleVersionConflicts(t *testing.T) {
	store := memstore.NewSeeded(seedSnapshot())

	first, _ := store.Load(context.Background())
	second, _ := store.Load(context.Background())

	if err := store.Save(context.Background(), first); err != nil {
		t.Fatalf("first save: %v", err)
	}

	err := store.Save(context.Background(), second)
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ErrConflict for stale snapshot, got %v", err)
	}
}

func TestLoad_ReturnsCopy(t *testing.T) {
	store := memstore.NewSeeded(seedSnapshot())

	snap, _ := store.Load(context.Background())
	snap.Apply(domain.LedgerEntry{Amount: domain.MustAmount("999"), Timestamp: time.Now()})

	fresh, _ := store.Load(context.Background())
	if !fresh.Balance.Equal(domain.MustAmount("5000")) {
		t.Error("mutating a loaded snapshot must not affect the store")
	}
}
