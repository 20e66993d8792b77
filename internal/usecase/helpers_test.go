package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/aqar-matcher/internal/entity"
	"github.com/xavierca1/aqar-matcher/internal/infra/database"
)

var nopLogger = zap.NewNop().Sugar()

// testClock is a settable clock shared by the store and the engine.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newMemoryStore(clock *testClock) *database.ClientStore {
	return database.NewClientStore(database.NewMemoryBackend(), nopLogger).WithClock(clock.Now)
}

// seedSearcher stores a completed searcher with the given requests.
func seedSearcher(t *testing.T, store *database.ClientStore, phone, name string, requests ...entity.Request) {
	t.Helper()
	_, err := store.Upsert(context.Background(), phone, func(c *entity.Client) error {
		c.Name = name
		c.Role = entity.RoleSearcher
		c.State = entity.StateCompleted
		for i := range requests {
			if requests[i].Status == "" {
				requests[i].Status = entity.RequestActive
			}
		}
		c.Requests = requests
		return nil
	})
	require.NoError(t, err)
}

// apartmentRequest is the reference criteria: apartment in الرابية, 400k-500k.
func apartmentRequest() entity.Request {
	return entity.Request{
		ID:            "r-apt",
		PropertyType:  "شقة",
		PriceMin:      entity.Float(400000),
		PriceMax:      entity.Float(500000),
		Neighborhoods: []string{"الرابية"},
		Status:        entity.RequestActive,
	}
}

func rabiyaOffer(id string) entity.Offer {
	return entity.Offer{
		ID:    id,
		Title: "شقة للبيع في الرابية",
		Link:  "https://aqar.example/" + id,
		Meta: entity.OfferMeta{
			PriceAmount:  entity.Float(450000),
			AreaAmount:   entity.Float(200),
			Neighborhood: "الرابية",
		},
	}
}

type MockMessageSender struct {
	mock.Mock
}

func (m *MockMessageSender) SendText(ctx context.Context, to, body string) error {
	args := m.Called(ctx, to, body)
	return args.Error(0)
}

// captureScheduler keeps scheduled tasks so tests can fire them by hand.
type captureScheduler struct {
	tasks []func(ctx context.Context) error
	names []string
}

func (s *captureScheduler) Schedule(name string, fn func(ctx context.Context) error) string {
	s.names = append(s.names, name)
	s.tasks = append(s.tasks, fn)
	return name
}
