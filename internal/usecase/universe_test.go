package usecase

import (
	"context"
	"testing"

	"VolRank/internal/domain/models"
)

type fakeListings struct {
	spot        []models.SpotSymbol
	derivatives []models.DerivativeSymbol
}

func (l *fakeListings) ListSpotSymbols(context.Context) ([]models.SpotSymbol, error) {
	return l.spot, nil
}

func (l *fakeListings) ListDerivativeSymbols(context.Context) ([]models.DerivativeSymbol, error) {
	return l.derivatives, nil
}

type memTrackedStore struct {
	symbols []string
	saves   int
}

func (s *memTrackedStore) Load(context.Context) ([]string, error) {
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out, nil
}

func (s *memTrackedStore) Save(_ context.Context, symbols []string) error {
	s.symbols = append(s.symbols[:0], symbols...)
	s.saves++
	return nil
}

func TestResolveFiltersToTradableIntersection(t *testing.T) {
	listings := &fakeListings{
		spot: []models.SpotSymbol{
			{Symbol: "BTCUSDT", Status: "TRADING"},
			{Symbol: "ETHBTC", Status: "TRADING"},   // wrong quote
			{Symbol: "XYZUSDT", Status: "BREAK"},    // not trading
			{Symbol: "SOLUSDT", Status: "TRADING"},  // no futures listing
			{Symbol: "DOGEUSDT", Status: "TRADING"}, // tradable on both
		},
		derivatives: []models.DerivativeSymbol{
			{Pair: "BTCUSDT"},
			{Pair: "DOGEUSDT"},
			{Pair: "ADAUSD"}, // wrong quote
		},
	}
	store := &memTrackedStore{}
	r := NewUniverseResolver(listings, store, testLogger(t), "USDT")

	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := []string{"BTCUSDT", "DOGEUSDT"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if store.saves != 1 {
		t.Fatalf("expected one save, got %d", store.saves)
	}
}

func TestResolveIsIdempotentAndAppendOnly(t *testing.T) {
	listings := &fakeListings{
		spot: []models.SpotSymbol{
			{Symbol: "BTCUSDT", Status: "TRADING"},
			{Symbol: "ETHUSDT", Status: "TRADING"},
		},
		derivatives: []models.DerivativeSymbol{
			{Pair: "BTCUSDT"},
			{Pair: "ETHUSDT"},
		},
	}
	// A previously tracked symbol that is no longer listed stays tracked.
	store := &memTrackedStore{symbols: []string{"OLDUSDT"}}
	r := NewUniverseResolver(listings, store, testLogger(t), "USDT")

	first, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}

	want := []string{"OLDUSDT", "BTCUSDT", "ETHUSDT"}
	if len(first) != len(want) || len(second) != len(want) {
		t.Fatalf("expected %v, got %v then %v", want, first, second)
	}
	for i := range want {
		if first[i] != want[i] || second[i] != want[i] {
			t.Fatalf("expected %v, got %v then %v", want, first, second)
		}
	}
}
