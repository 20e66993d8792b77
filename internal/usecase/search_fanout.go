package usecase

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xavierca1/aqar-matcher/internal/entity"
	"github.com/xavierca1/aqar-matcher/internal/infra/integration/listings"
	"github.com/xavierca1/aqar-matcher/internal/infra/metrics"
	"github.com/xavierca1/aqar-matcher/internal/normalize"
)

type FanoutConfig struct {
	MinResults int
	Variations bool
	PriceRelax float64
	AreaRelax  float64
	PerAreaCap int
	MaxQueries int
	// Delay between two sub-queries. Zero disables pacing.
	Delay time.Duration
}

func DefaultFanoutConfig() FanoutConfig {
	return FanoutConfig{
		MinResults: 5,
		Variations: true,
		PriceRelax: 0.25,
		AreaRelax:  0.20,
		PerAreaCap: 5,
		MaxQueries: 20,
		Delay:      300 * time.Millisecond,
	}
}

// SearchFanout expands one requirement into several listing queries and
// merges the answers by listing id.
type SearchFanout struct {
	searcher ListingSearcher
	cfg      FanoutConfig
	limiter  *rate.Limiter
	logger   *zap.SugaredLogger
}

func NewSearchFanout(searcher ListingSearcher, cfg FanoutConfig, logger *zap.SugaredLogger) *SearchFanout {
	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}
	if cfg.PerAreaCap <= 0 {
		cfg.PerAreaCap = 5
	}
	if cfg.MaxQueries <= 0 {
		cfg.MaxQueries = 20
	}
	return &SearchFanout{
		searcher: searcher,
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
	}
}

// fanoutRun holds the state of one Search call.
type fanoutRun struct {
	f       *SearchFanout
	req     entity.Requirement
	seen    map[string]bool
	results []entity.SearchResult
	queries int
	// budget for the regular sub-queries; one slot stays free for the fallback
	budget int
}

// Search runs the exact query, relaxed variations, token splits and the
// fallback without an area constraint. Sub-query failures count as empty
// answers. MaxQueries bounds the whole run and always leaves room for the
// fallback.
func (f *SearchFanout) Search(ctx context.Context, req entity.Requirement) []entity.SearchResult {
	run := &fanoutRun{f: f, req: req, seen: map[string]bool{}, budget: f.cfg.MaxQueries}
	if len(req.Neighborhoods) > 0 && run.budget > 1 {
		run.budget--
	}
	areas := searchAreas(req)

	// 1. exata
	run.across(ctx, run.baseInput(), areas)

	// 2. variações relaxadas
	if f.cfg.Variations && len(run.results) < f.cfg.MinResults {
		if req.HasPriceBounds() {
			in := run.baseInput()
			in.MinPrice, in.MaxPrice = relax(req.PriceMin, req.PriceMax, f.cfg.PriceRelax)
			run.across(ctx, in, areas)
		}
		if req.HasAreaBounds() {
			in := run.baseInput()
			in.MinArea, in.MaxArea = relax(req.AreaMin, req.AreaMax, f.cfg.AreaRelax)
			run.across(ctx, in, areas)
		}
		if syn := normalize.FirstSynonym(req.PropertyType); syn != "" && normalize.Fold(syn) != normalize.Fold(req.PropertyType) {
			in := run.baseInput()
			in.PropertyType = syn
			run.across(ctx, in, areas)
		}
	}

	// 3. frases compostas viram tokens isolados
	if words := splitTokens(req.PropertyType); len(words) > 1 {
		for _, w := range words {
			in := run.baseInput()
			in.PropertyType = w
			run.across(ctx, in, areas)
		}
	}
	for _, area := range areas {
		words := splitTokens(area)
		if len(words) < 2 {
			continue
		}
		for _, w := range words {
			in := run.baseInput()
			in.PreferredArea = w
			run.add(run.query(ctx, in), false, 0)
		}
	}

	// 5. fallback sem restrição de área
	if len(run.results) == 0 && len(req.Neighborhoods) > 0 {
		run.budget = f.cfg.MaxQueries
		run.add(run.query(ctx, run.baseInput()), true, 0)
	}

	f.logger.Infow("🔎 [FANOUT] busca concluída",
		"property_type", req.PropertyType,
		"areas", len(areas),
		"queries", run.queries,
		"results", len(run.results),
	)
	return run.results
}

// SearchAndRank is Search followed by ScoreAndSort.
func (f *SearchFanout) SearchAndRank(ctx context.Context, req entity.Requirement) []entity.SearchResult {
	return ScoreAndSort(f.Search(ctx, req), req)
}

func (r *fanoutRun) baseInput() listings.SearchInput {
	return listings.SearchInput{
		PropertyType: strings.TrimSpace(r.req.PropertyType),
		Purpose:      string(r.req.Purpose),
		MinPrice:     r.req.PriceMin,
		MaxPrice:     r.req.PriceMax,
		MinArea:      r.req.AreaMin,
		MaxArea:      r.req.AreaMax,
		Page:         r.req.Page,
	}
}

// across runs input once per area. With more than one area each area
// contributes at most PerAreaCap results.
func (r *fanoutRun) across(ctx context.Context, input listings.SearchInput, areas []string) {
	if len(areas) <= 1 {
		if len(areas) == 1 {
			input.PreferredArea = areas[0]
		}
		r.add(r.query(ctx, input), false, 0)
		return
	}
	for _, area := range areas {
		in := input
		in.PreferredArea = area
		r.add(r.query(ctx, in), false, r.f.cfg.PerAreaCap)
	}
}

// add merges listings not seen yet. limit > 0 caps how many of this batch are
// taken.
func (r *fanoutRun) add(batch []entity.Listing, fallback bool, limit int) {
	taken := 0
	for _, l := range batch {
		if limit > 0 && taken >= limit {
			return
		}
		if l.ID == "" || r.seen[l.ID] {
			continue
		}
		r.seen[l.ID] = true
		r.results = append(r.results, entity.SearchResult{Listing: l, Fallback: fallback})
		taken++
	}
}

func (r *fanoutRun) query(ctx context.Context, input listings.SearchInput) []entity.Listing {
	if r.queries >= r.budget {
		metrics.RecordSubquery("skipped")
		return nil
	}
	r.queries++

	if err := r.f.limiter.Wait(ctx); err != nil {
		metrics.RecordSubquery("failed")
		return nil
	}

	posts, _, err := r.f.searcher.Search(ctx, input)
	if err != nil {
		r.f.logger.Warnw("⚠️ [FANOUT] sub-consulta falhou, tratada como vazia",
			"property_type", input.PropertyType,
			"area", input.PreferredArea,
			"error", err,
		)
		metrics.RecordSubquery("failed")
		return nil
	}
	metrics.RecordSubquery("ok")
	return posts
}

// searchAreas resolves the requirement to the list of preferred_area values.
// A lone city name expands to its neighborhoods.
func searchAreas(req entity.Requirement) []string {
	hoods := normalize.Neighborhoods(req.Neighborhoods)
	if len(hoods) == 1 && normalize.IsCity(hoods[0]) {
		if expanded := normalize.ExpandCityToNeighborhoods(hoods[0]); len(expanded) > 0 {
			return expanded
		}
	}
	if len(hoods) == 0 && strings.TrimSpace(req.City) != "" {
		return []string{strings.TrimSpace(req.City)}
	}
	return hoods
}

func relax(lower, upper *float64, ratio float64) (*float64, *float64) {
	var lo, hi *float64
	if v, ok := bound(lower); ok {
		lo = entity.Float(v * (1 - ratio))
	}
	if v, ok := bound(upper); ok {
		hi = entity.Float(v * (1 + ratio))
	}
	return lo, hi
}

func splitTokens(s string) []string {
	var out []string
	for _, w := range strings.Fields(s) {
		if len([]rune(w)) >= 3 {
			out = append(out, w)
		}
	}
	return out
}
