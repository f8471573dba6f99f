package repository

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileTrackedStoreMissingFile(t *testing.T) {
	s := NewFileTrackedStore(filepath.Join(t.TempDir(), "absent.json"))
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty set, got %v", got)
	}
}

func TestFileTrackedStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tracked.json")
	s := NewFileTrackedStore(path)

	want := []string{"BTCUSDT", "ETHUSDT"}
	if err := s.Save(context.Background(), want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, got)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if !strings.Contains(string(b), `"trading_pair_names"`) {
		t.Fatalf("unexpected persisted layout: %s", b)
	}
}

func TestFileTrackedStoreSaveReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracked.json")
	s := NewFileTrackedStore(path)

	if err := s.Save(context.Background(), []string{"AUSDT", "BUSDT"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(context.Background(), []string{"AUSDT"}); err != nil {
		t.Fatalf("second save: %v", err)
	}
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0] != "AUSDT" {
		t.Fatalf("save must replace the set, got %v", got)
	}
}
