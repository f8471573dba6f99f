package usecase

import (
	"context"
	"fmt"
	"strings"

	"VolRank/internal/domain/models"
	drepo "VolRank/internal/domain/repository"
	xlogger "VolRank/pkg/logger"
)

// UniverseResolver computes the set of symbols eligible for ranking: pairs
// quoted in the stablecoin of record that are listed on both the spot and
// the derivatives market. The persisted set only ever grows; symbols already
// tracked are never re-added or removed here.
type UniverseResolver struct {
	listings    drepo.SymbolListing
	store       drepo.TrackedSetStore
	logger      *xlogger.Logger
	quoteSuffix string
}

// NewUniverseResolver creates a resolver filtering to pairs quoted in
// quoteSuffix (e.g. "USDT").
func NewUniverseResolver(listings drepo.SymbolListing, store drepo.TrackedSetStore, logger *xlogger.Logger, quoteSuffix string) *UniverseResolver {
	return &UniverseResolver{
		listings:    listings,
		store:       store,
		logger:      logger,
		quoteSuffix: quoteSuffix,
	}
}

// Resolve merges the two listings into the persisted tracked set and returns
// the full set, in persisted order. Running it twice against unchanged
// listings leaves the set unchanged after the first run.
func (r *UniverseResolver) Resolve(ctx context.Context) ([]string, error) {
	tracked, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tracked set: %w", err)
	}
	if len(tracked) > 0 {
		r.logger.Info("loaded persisted tracked set", xlogger.Int("symbols", len(tracked)))
	}
	known := make(map[string]struct{}, len(tracked))
	for _, s := range tracked {
		known[s] = struct{}{}
	}

	spot, err := r.listings.ListSpotSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("list spot symbols: %w", err)
	}
	derivatives, err := r.listings.ListDerivativeSymbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("list derivative symbols: %w", err)
	}

	derivative := make(map[string]struct{}, len(derivatives))
	for _, d := range derivatives {
		if d.Pair == "" || !strings.HasSuffix(d.Pair, r.quoteSuffix) {
			continue
		}
		if _, ok := known[d.Pair]; ok {
			continue
		}
		derivative[d.Pair] = struct{}{}
	}

	// Intersect in spot listing order so repeated runs append
	// deterministically.
	added := 0
	for _, s := range spot {
		if s.Symbol == "" || !strings.HasSuffix(s.Symbol, r.quoteSuffix) || s.Status != models.StatusTrading {
			continue
		}
		if _, ok := known[s.Symbol]; ok {
			continue
		}
		if _, ok := derivative[s.Symbol]; !ok {
			continue
		}
		tracked = append(tracked, s.Symbol)
		known[s.Symbol] = struct{}{}
		added++
	}

	if err := r.store.Save(ctx, tracked); err != nil {
		return nil, fmt.Errorf("save tracked set: %w", err)
	}

	r.logger.Info("tracked set resolved",
		xlogger.Int("added", added),
		xlogger.Int("total", len(tracked)))
	return tracked, nil
}
