package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/aqar-matcher/internal/entity"
	"github.com/xavierca1/aqar-matcher/internal/infra/database"
	"github.com/xavierca1/aqar-matcher/internal/usecase"
)

var nopLogger = zap.NewNop().Sugar()

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) PublishOffer(ctx context.Context, offer entity.Offer) error {
	return m.Called(ctx, offer).Error(0)
}

type MockPipeline struct{ mock.Mock }

func (m *MockPipeline) Execute(ctx context.Context, offer entity.Offer) (*usecase.NotifyMatchesOutput, error) {
	args := m.Called(ctx, offer)
	out, _ := args.Get(0).(*usecase.NotifyMatchesOutput)
	return out, args.Error(1)
}

type MockAlerts struct{ mock.Mock }

func (m *MockAlerts) SendAlert(subject, body string) error {
	return m.Called(subject, body).Error(0)
}

type fakeSearch struct {
	got     entity.Requirement
	results []entity.SearchResult
}

func (f *fakeSearch) SearchAndRank(_ context.Context, req entity.Requirement) []entity.SearchResult {
	f.got = req
	return f.results
}

type clientEnv struct {
	router http.Handler
	store  *database.ClientStore
	engine *usecase.MatchingEngine
}

func newClientEnv(t *testing.T) clientEnv {
	t.Helper()
	store := database.NewClientStore(database.NewMemoryBackend(), nopLogger)
	require.NoError(t, store.Load(context.Background()))
	engine := usecase.NewMatchingEngine(store, usecase.MatchingConfig{}, nopLogger)
	submit := usecase.NewSubmitRequirementsUseCase(store, nopLogger)

	h := NewClientHandler(store, engine, submit, ErrorMapper{Logger: nopLogger}, nopLogger)
	r := chi.NewRouter()
	h.Routes(r)
	return clientEnv{router: r, store: store, engine: engine}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestClientRequestsLifecycle(t *testing.T) {
	env := newClientEnv(t)

	rec := do(t, env.router, http.MethodPut, "/clients/0500000001/requests",
		`{"name":"Fahad","property_type":"شقة","price_max":500000,"neighborhoods":["الرابية"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out usecase.SubmitRequirementsOutput
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "966500000001", out.Phone)
	assert.Equal(t, 1, out.Requests)

	rec = do(t, env.router, http.MethodPut, "/clients/966500000001/requests", `{"property_type":"شقق","price_max":600000}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, env.router, http.MethodGet, "/clients", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []ClientSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].ActiveRequests)
	assert.Equal(t, entity.StateCompleted, list[0].State)

	rec = do(t, env.router, http.MethodGet, "/clients/966500000001", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Fahad")

	rec = do(t, env.router, http.MethodDelete, "/clients/966500000001", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, env.router, http.MethodDelete, "/clients/966500000001", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, env.router, http.MethodGet, "/clients/966500000001", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClientPutRequestValidation(t *testing.T) {
	env := newClientEnv(t)

	rec := do(t, env.router, http.MethodPut, "/clients/966500000001/requests", `{"purpose":"lease"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")

	rec = do(t, env.router, http.MethodPut, "/clients/abc/requests", `{"property_type":"شقة"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, env.router, http.MethodPut, "/clients/966500000001/requests", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClientDeactivateReactivate(t *testing.T) {
	env := newClientEnv(t)
	do(t, env.router, http.MethodPut, "/clients/966500000001/requests", `{"property_type":"شقة"}`)

	rec := do(t, env.router, http.MethodPost, "/clients/966500000001/deactivate", `{"reason":"found a place"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	c, err := env.store.Get(context.Background(), "966500000001")
	require.NoError(t, err)
	assert.Equal(t, entity.RequestInactive, c.RequestStatus)
	assert.Equal(t, "found a place", c.DeactivationReason)

	rec = do(t, env.router, http.MethodPost, "/clients/966500000001/reactivate", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, env.router, http.MethodPost, "/clients/966500000099/deactivate", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClientInteractionsAndStats(t *testing.T) {
	env := newClientEnv(t)
	ctx := context.Background()
	do(t, env.router, http.MethodPut, "/clients/966500000001/requests", `{"property_type":"شقة"}`)
	require.NoError(t, env.engine.RecordMatchSent(ctx, "966500000001", entity.Offer{ID: "A1"}, entity.Similarity{Score: 88}))

	rec := do(t, env.router, http.MethodPost, "/clients/966500000001/interactions", `{"offer_id":"A1","type":"clicked"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, env.router, http.MethodPost, "/clients/966500000001/interactions", `{"offer_id":"B9","type":"clicked"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "MATCH_NOT_FOUND")

	rec = do(t, env.router, http.MethodPost, "/clients/966500000001/interactions", `{"offer_id":"A1","type":"liked"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, env.router, http.MethodGet, "/stats/interactions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats usecase.InteractionStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalMatches)
	assert.Equal(t, 1, stats.ByType[entity.InteractionClicked].Count)
	assert.InDelta(t, 88.0, stats.ByType[entity.InteractionClicked].AverageScore, 0.001)
}

func TestOfferHandlerPublishes(t *testing.T) {
	pub := new(MockPublisher)
	pipeline := new(MockPipeline)
	pub.On("PublishOffer", mock.Anything, mock.MatchedBy(func(o entity.Offer) bool { return o.ID == "12345" })).Return(nil).Once()

	h := NewOfferHandler(pub, pipeline, "", ErrorMapper{Logger: nopLogger}, nopLogger)
	rec := do(t, http.HandlerFunc(h.Handle), http.MethodPost, "/offers", `{"id":12345,"title":"شقة للبيع","meta":{"price":"450,000"}}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	pub.AssertExpectations(t)
	pipeline.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestOfferHandlerFallsBackToPipeline(t *testing.T) {
	pub := new(MockPublisher)
	pipeline := new(MockPipeline)
	pub.On("PublishOffer", mock.Anything, mock.Anything).Return(errors.New("channel closed")).Once()
	pipeline.On("Execute", mock.Anything, mock.Anything).Return(&usecase.NotifyMatchesOutput{OfferID: "A1", Matched: 2}, nil).Once()

	h := NewOfferHandler(pub, pipeline, "", ErrorMapper{Logger: nopLogger}, nopLogger)
	rec := do(t, http.HandlerFunc(h.Handle), http.MethodPost, "/offers", `{"id":"A1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp OfferResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Queued)
	assert.Equal(t, 2, resp.Result.Matched)
}

func TestOfferHandlerRejectsBadInput(t *testing.T) {
	h := NewOfferHandler(nil, new(MockPipeline), "s3cret", ErrorMapper{Logger: nopLogger}, nopLogger)

	rec := do(t, http.HandlerFunc(h.Handle), http.MethodPost, "/offers", `{"id":"A1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/offers", bytes.NewBufferString(`{"title":"x"}`))
	req.Header.Set("X-Webhook-Token", "s3cret")
	rr := httptest.NewRecorder()
	h.Handle(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSearchHandler(t *testing.T) {
	search := &fakeSearch{results: []entity.SearchResult{
		{Listing: entity.Listing{ID: "1"}, Score: 90},
		{Listing: entity.Listing{ID: "2"}, Score: 50},
	}}
	h := NewSearchHandler(search, ErrorMapper{Logger: nopLogger}, nopLogger)

	rec := do(t, http.HandlerFunc(h.Handle), http.MethodPost, "/search", `{"property_type":"شقة للايجار","neighborhoods":["الرابية"],"limit":1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "1", resp.Results[0].Listing.ID)
	assert.Equal(t, entity.PurposeRent, search.got.Purpose)

	rec = do(t, http.HandlerFunc(h.Handle), http.MethodPost, "/search", `{"property_type":"شقة","price_min":900,"price_max":100}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, http.HandlerFunc(h.Handle), http.MethodPost, "/search", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"))

	now = now.Add(31 * time.Second)
	assert.True(t, rl.Allow("1.1.1.1"))
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", getClientIP(req))
}

func TestErrorMapperAlertsOnVerifyMismatch(t *testing.T) {
	alerts := new(MockAlerts)
	alerts.On("SendAlert", mock.Anything, mock.MatchedBy(func(body string) bool {
		return strings.Contains(body, "submit_requirements")
	})).Return(nil).Once()

	m := ErrorMapper{Alerts: alerts, Logger: nopLogger}
	rec := httptest.NewRecorder()
	m.Write(rec, "submit_requirements", fmt.Errorf("flush: %w", database.ErrVerifyMismatch))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	alerts.AssertExpectations(t)
}

func TestErrorMapperMalformedRecordIsConflict(t *testing.T) {
	alerts := new(MockAlerts)
	m := ErrorMapper{Alerts: alerts, Logger: nopLogger}
	rec := httptest.NewRecorder()
	m.Write(rec, "submit_requirements", fmt.Errorf("lookup: %w", database.ErrMalformedRecord))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "MALFORMED_RECORD")
	alerts.AssertNotCalled(t, "SendAlert", mock.Anything, mock.Anything)
}

type fakePinger struct{ err error }

func (f fakePinger) BackendName() string { return "memory" }
func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeQueue struct{ ok bool }

func (f fakeQueue) Healthy() bool { return f.ok }

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler(fakePinger{}, nil)
	rec := do(t, http.HandlerFunc(h.Handle), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "memory", resp.Dependencies["store_backend"])
	assert.Equal(t, "not configured", resp.Dependencies["rabbitmq"])

	h = NewHealthHandler(fakePinger{}, fakeQueue{ok: false})
	rec = do(t, http.HandlerFunc(h.Handle), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
