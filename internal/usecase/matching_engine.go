package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/aqar-matcher/internal/entity"
	"github.com/xavierca1/aqar-matcher/internal/infra/metrics"
)

const (
	DefaultMatchThreshold = 70
	DefaultRateLimit      = time.Hour
)

type MatchingConfig struct {
	Threshold int
	RateLimit time.Duration
}

// MatchingEngine evaluates a published offer against every active request.
// Its state lives entirely in the client records.
type MatchingEngine struct {
	clients ClientRepository
	cfg     MatchingConfig
	now     func() time.Time
	logger  *zap.SugaredLogger
}

func NewMatchingEngine(clients ClientRepository, cfg MatchingConfig, logger *zap.SugaredLogger) *MatchingEngine {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultMatchThreshold
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	return &MatchingEngine{
		clients: clients,
		cfg:     cfg,
		now:     time.Now,
		logger:  logger,
	}
}

func (e *MatchingEngine) WithClock(now func() time.Time) *MatchingEngine {
	e.now = now
	return e
}

// Evaluate returns the notification worklist for offer, one entry per
// matching (client, request) pair in request order. Nothing is written; the
// caller reports deliveries with RecordMatchSent, and the delivery re-check
// keeps a client with two matching requests from getting the offer twice.
func (e *MatchingEngine) Evaluate(ctx context.Context, offer entity.Offer) ([]entity.MatchCandidate, error) {
	if strings.TrimSpace(offer.ID) == "" {
		return nil, newValidationError("offer id is required")
	}

	active, err := e.clients.ListActiveRequests(ctx)
	if err != nil {
		return nil, newStoreError("falha ao listar pedidos ativos", err)
	}

	now := e.now()
	var candidates []entity.MatchCandidate

	for _, ar := range active {
		c := ar.Client
		if c.HasMatch(offer.ID) {
			continue
		}
		if c.NotifiedWithin(now, e.cfg.RateLimit) {
			continue
		}

		req := ar.Request.Requirement()
		sim := CalculateSimilarity(req, offer)
		if sim.Score < e.cfg.Threshold {
			continue
		}

		candidates = append(candidates, entity.MatchCandidate{
			PhoneNumber: ar.Phone,
			Name:        c.Name,
			RequestID:   ar.Request.ID,
			Requirement: req,
			Offer:       offer,
			Similarity:  sim,
		})
	}

	metrics.RecordMatches(len(candidates))
	e.logger.Infow("🎯 [MATCHER] oferta avaliada",
		"offer_id", offer.ID,
		"active_requests", len(active),
		"matches", len(candidates),
	)
	return candidates, nil
}

// IsEligible re-checks a candidate right before delivery.
func (e *MatchingEngine) IsEligible(ctx context.Context, phone, offerID string) (bool, error) {
	c, err := e.clients.Get(ctx, phone)
	if errors.Is(err, entity.ErrClientNotFound) {
		return false, nil
	}
	if err != nil {
		return false, newStoreError("falha ao buscar cliente", err)
	}
	if !c.IsEligibleSearcher() || c.HasMatch(offerID) {
		return false, nil
	}
	return !c.NotifiedWithin(e.now(), e.cfg.RateLimit), nil
}

// RecordMatchSent appends the delivered offer to the history and refreshes
// the rate-limit clock. A second call for the same offer changes nothing.
func (e *MatchingEngine) RecordMatchSent(ctx context.Context, phone string, offer entity.Offer, sim entity.Similarity) error {
	now := e.now()
	_, err := e.clients.Mutate(ctx, phone, func(c *entity.Client) error {
		appended := c.AppendMatch(entity.Match{
			OfferID:         offer.ID,
			OfferTitle:      offer.Title,
			OfferLink:       offer.Link,
			SimilarityScore: sim.Score,
			MatchQuality:    sim.MatchQuality,
			SentAt:          now,
		})
		if appended {
			c.LastNotificationAt = &now
		}
		return nil
	})
	if err != nil {
		return wrapClientErr("falha ao registrar match", err)
	}
	return nil
}

// MarkInactive stops every request of the client from being evaluated.
func (e *MatchingEngine) MarkInactive(ctx context.Context, phone, reason string) error {
	now := e.now()
	_, err := e.clients.Mutate(ctx, phone, func(c *entity.Client) error {
		c.RequestStatus = entity.RequestInactive
		c.DeactivationReason = reason
		c.DeactivatedAt = &now
		return nil
	})
	if err != nil {
		return wrapClientErr("falha ao desativar cliente", err)
	}
	e.logger.Infow("⏸️ [MATCHER] cliente desativado", "phone", phone, "reason", reason)
	return nil
}

func (e *MatchingEngine) Reactivate(ctx context.Context, phone string) error {
	_, err := e.clients.Mutate(ctx, phone, func(c *entity.Client) error {
		c.RequestStatus = entity.RequestActive
		c.DeactivationReason = ""
		c.DeactivatedAt = nil
		return nil
	})
	if err != nil {
		return wrapClientErr("falha ao reativar cliente", err)
	}
	e.logger.Infow("▶️ [MATCHER] cliente reativado", "phone", phone)
	return nil
}

// RecordInteraction stores the client's response to a delivered offer.
func (e *MatchingEngine) RecordInteraction(ctx context.Context, phone, offerID string, t entity.InteractionType) error {
	if !t.IsValid() {
		return newValidationError(fmt.Sprintf("invalid interaction type %q", t))
	}
	now := e.now()
	_, err := e.clients.Mutate(ctx, phone, func(c *entity.Client) error {
		m := c.FindMatch(offerID)
		if m == nil {
			return entity.ErrMatchNotFound
		}
		m.ApplyInteraction(t, now)
		return nil
	})
	if err != nil {
		return wrapClientErr("falha ao registrar interação", err)
	}
	return nil
}

// GetInteractionStats aggregates responses across all clients. Read only.
func (e *MatchingEngine) GetInteractionStats(ctx context.Context) (InteractionStats, error) {
	clients, err := e.clients.ListAll(ctx)
	if err != nil {
		return InteractionStats{}, newStoreError("falha ao listar clientes", err)
	}

	type acc struct {
		count int
		total int
	}
	sums := make(map[entity.InteractionType]*acc, len(entity.ValidInteractions))
	for _, t := range entity.ValidInteractions {
		sums[t] = &acc{}
	}

	stats := InteractionStats{ByType: make(map[entity.InteractionType]InteractionStat, len(sums))}
	for _, c := range clients {
		for _, m := range c.MatchHistory {
			stats.TotalMatches++
			for _, t := range matchFlags(m) {
				sums[t].count++
				sums[t].total += m.SimilarityScore
			}
		}
	}

	for t, a := range sums {
		st := InteractionStat{Count: a.count}
		if a.count > 0 {
			st.AverageScore = float64(a.total) / float64(a.count)
		}
		stats.ByType[t] = st
	}
	return stats, nil
}

func matchFlags(m entity.Match) []entity.InteractionType {
	var out []entity.InteractionType
	if m.Opened {
		out = append(out, entity.InteractionOpened)
	}
	if m.Clicked {
		out = append(out, entity.InteractionClicked)
	}
	if m.Contacted {
		out = append(out, entity.InteractionContacted)
	}
	if m.Rejected {
		out = append(out, entity.InteractionRejected)
	}
	if m.Ignored {
		out = append(out, entity.InteractionIgnored)
	}
	return out
}

// wrapClientErr keeps domain sentinels visible to the HTTP layer.
func wrapClientErr(msg string, err error) error {
	switch {
	case errors.Is(err, entity.ErrClientNotFound),
		errors.Is(err, entity.ErrMatchNotFound),
		errors.Is(err, entity.ErrInvalidPhone):
		return fmt.Errorf("%s: %w", msg, err)
	default:
		return newStoreError(msg, err)
	}
}
