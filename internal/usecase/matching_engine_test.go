package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/aqar-matcher/internal/entity"
)

func newTestEngine(clock *testClock) (*MatchingEngine, *testClock) {
	store := newMemoryStore(clock)
	return NewMatchingEngine(store, MatchingConfig{}, nopLogger).WithClock(clock.Now), clock
}

func TestEvaluateEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	store := newMemoryStore(clock)
	engine := NewMatchingEngine(store, MatchingConfig{}, nopLogger).WithClock(clock.Now)
	seedSearcher(t, store, "966500000001", "Fahad", apartmentRequest())

	offer := rabiyaOffer("A1")
	candidates, err := engine.Evaluate(ctx, offer)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	cand := candidates[0]
	assert.Equal(t, "966500000001", cand.PhoneNumber)
	assert.Equal(t, "Fahad", cand.Name)
	assert.Equal(t, "r-apt", cand.RequestID)
	assert.GreaterOrEqual(t, cand.Similarity.Score, 70)

	require.NoError(t, engine.RecordMatchSent(ctx, cand.PhoneNumber, offer, cand.Similarity))

	// mesmo depois do rate limit a oferta não volta
	clock.Advance(2 * time.Hour)
	again, err := engine.Evaluate(ctx, offer)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestEvaluateRateLimitBoundary(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	store := newMemoryStore(clock)
	engine := NewMatchingEngine(store, MatchingConfig{}, nopLogger).WithClock(clock.Now)
	seedSearcher(t, store, "966500000001", "Fahad", apartmentRequest())

	first := rabiyaOffer("A1")
	sim := CalculateSimilarity(apartmentRequest().Requirement(), first)
	require.NoError(t, engine.RecordMatchSent(ctx, "966500000001", first, sim))

	clock.Advance(59 * time.Minute)
	got, err := engine.Evaluate(ctx, rabiyaOffer("A2"))
	require.NoError(t, err)
	assert.Empty(t, got)

	clock.Advance(time.Minute)
	got, err = engine.Evaluate(ctx, rabiyaOffer("A2"))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestEvaluateThresholdAndFilters(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	store := newMemoryStore(clock)
	engine := NewMatchingEngine(store, MatchingConfig{}, nopLogger).WithClock(clock.Now)

	land := entity.Request{ID: "r-land", PropertyType: "أرض", Neighborhoods: []string{"الرابية"}}
	seedSearcher(t, store, "966500000002", "Noura", land)

	_, err := store.Upsert(ctx, "966500000003", func(c *entity.Client) error {
		c.Role = entity.RoleOwner
		c.State = entity.StateCompleted
		c.Requests = []entity.Request{apartmentRequest()}
		return nil
	})
	require.NoError(t, err)

	got, err := engine.Evaluate(ctx, rabiyaOffer("A1"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEvaluateOneCandidatePerRequest(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	store := newMemoryStore(clock)
	engine := NewMatchingEngine(store, MatchingConfig{}, nopLogger).WithClock(clock.Now)

	second := apartmentRequest()
	second.ID = "r-apt-2"
	second.PropertyType = "شقق"
	seedSearcher(t, store, "966500000001", "Fahad", apartmentRequest(), second)
	seedSearcher(t, store, "966500000004", "Sara", apartmentRequest())

	got, err := engine.Evaluate(ctx, rabiyaOffer("A1"))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "966500000001", got[0].PhoneNumber)
	assert.Equal(t, "r-apt", got[0].RequestID)
	assert.Equal(t, "966500000001", got[1].PhoneNumber)
	assert.Equal(t, "r-apt-2", got[1].RequestID)
	assert.Equal(t, "966500000004", got[2].PhoneNumber)
}

func TestEvaluateRequiresOfferID(t *testing.T) {
	engine, _ := newTestEngine(newTestClock())
	_, err := engine.Evaluate(context.Background(), entity.Offer{})
	assert.True(t, IsDomainError(err))
}

func TestRecordMatchSentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	store := newMemoryStore(clock)
	engine := NewMatchingEngine(store, MatchingConfig{}, nopLogger).WithClock(clock.Now)
	seedSearcher(t, store, "966500000001", "Fahad", apartmentRequest())

	offer := rabiyaOffer("A1")
	sim := CalculateSimilarity(apartmentRequest().Requirement(), offer)
	require.NoError(t, engine.RecordMatchSent(ctx, "966500000001", offer, sim))
	sentAt := clock.Now()

	clock.Advance(3 * time.Hour)
	require.NoError(t, engine.RecordMatchSent(ctx, "966500000001", offer, sim))

	c, err := store.Get(ctx, "966500000001")
	require.NoError(t, err)
	require.Len(t, c.MatchHistory, 1)
	assert.Equal(t, sentAt, *c.LastNotificationAt)
	assert.Equal(t, sim.Score, c.MatchHistory[0].SimilarityScore)
}

func TestMarkInactiveAndReactivate(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	store := newMemoryStore(clock)
	engine := NewMatchingEngine(store, MatchingConfig{}, nopLogger).WithClock(clock.Now)
	seedSearcher(t, store, "966500000001", "Fahad", apartmentRequest())

	require.NoError(t, engine.MarkInactive(ctx, "966500000001", "found a place"))
	got, err := engine.Evaluate(ctx, rabiyaOffer("A1"))
	require.NoError(t, err)
	assert.Empty(t, got)

	c, err := store.Get(ctx, "966500000001")
	require.NoError(t, err)
	assert.Equal(t, "found a place", c.DeactivationReason)
	assert.NotNil(t, c.DeactivatedAt)

	require.NoError(t, engine.Reactivate(ctx, "966500000001"))
	got, err = engine.Evaluate(ctx, rabiyaOffer("A1"))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMarkInactiveUnknownClient(t *testing.T) {
	engine, _ := newTestEngine(newTestClock())
	err := engine.MarkInactive(context.Background(), "966500000099", "x")
	assert.ErrorIs(t, err, entity.ErrClientNotFound)
}

func TestRecordInteractionAndStats(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	store := newMemoryStore(clock)
	engine := NewMatchingEngine(store, MatchingConfig{}, nopLogger).WithClock(clock.Now)
	seedSearcher(t, store, "966500000001", "Fahad", apartmentRequest())
	seedSearcher(t, store, "966500000002", "Noura", apartmentRequest())

	a1 := rabiyaOffer("A1")
	require.NoError(t, engine.RecordMatchSent(ctx, "966500000001", a1, entity.Similarity{Score: 90}))
	require.NoError(t, engine.RecordMatchSent(ctx, "966500000002", a1, entity.Similarity{Score: 70}))

	require.NoError(t, engine.RecordInteraction(ctx, "966500000001", "A1", entity.InteractionClicked))
	require.NoError(t, engine.RecordInteraction(ctx, "966500000002", "A1", entity.InteractionClicked))
	require.NoError(t, engine.RecordInteraction(ctx, "966500000002", "A1", entity.InteractionRejected))

	err := engine.RecordInteraction(ctx, "966500000001", "missing", entity.InteractionOpened)
	assert.ErrorIs(t, err, entity.ErrMatchNotFound)

	err = engine.RecordInteraction(ctx, "966500000001", "A1", entity.InteractionType("liked"))
	assert.True(t, IsDomainError(err))

	c, err := store.Get(ctx, "966500000002")
	require.NoError(t, err)
	m := c.FindMatch("A1")
	require.NotNil(t, m)
	assert.True(t, m.Clicked)
	assert.True(t, m.Rejected)
	assert.Equal(t, entity.InteractionRejected, *m.UserResponse)

	stats, err := engine.GetInteractionStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalMatches)
	assert.Equal(t, 2, stats.ByType[entity.InteractionClicked].Count)
	assert.InDelta(t, 80.0, stats.ByType[entity.InteractionClicked].AverageScore, 0.001)
	assert.Equal(t, 1, stats.ByType[entity.InteractionRejected].Count)
	assert.Zero(t, stats.ByType[entity.InteractionContacted].Count)
}

func TestIsEligible(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	store := newMemoryStore(clock)
	engine := NewMatchingEngine(store, MatchingConfig{}, nopLogger).WithClock(clock.Now)
	seedSearcher(t, store, "966500000001", "Fahad", apartmentRequest())

	ok, err := engine.IsEligible(ctx, "966500000001", "A1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = engine.IsEligible(ctx, "966500000077", "A1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, engine.RecordMatchSent(ctx, "966500000001", rabiyaOffer("A1"), entity.Similarity{Score: 80}))
	ok, err = engine.IsEligible(ctx, "966500000001", "A1")
	require.NoError(t, err)
	assert.False(t, ok)
}
