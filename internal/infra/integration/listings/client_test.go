package listings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/aqar-matcher/internal/entity"
)

func TestSearchEncodesQueryAndParsesPosts(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = map[string]string{}
		for k := range r.URL.Query() {
			got[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"total": 2, "count": 2,
			"posts": [
				{"id": 101, "title": "شقة للبيع", "link": "https://x/101", "price_amount": "450,000", "space": 200, "location": "الرابية"},
				{"id": "102", "title": "أرض", "link": "https://x/102"}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", time.Second)
	posts, total, err := client.Search(context.Background(), SearchInput{
		PropertyType:  "شقة",
		PreferredArea: "الرابية",
		MinPrice:      entity.Float(400000),
		MaxPrice:      entity.Float(500000),
		Page:          1,
	})
	require.NoError(t, err)

	assert.Equal(t, "شقة", got["property_type"])
	assert.Equal(t, "الرابية", got["preferred_area"])
	assert.Equal(t, "400000", got["min_price"])
	assert.Equal(t, "500000", got["max_price"])
	assert.NotContains(t, got, "min_area")

	assert.Equal(t, 2, total)
	require.Len(t, posts, 2)
	assert.Equal(t, "101", posts[0].ID)
	require.NotNil(t, posts[0].PriceAmount)
	assert.Equal(t, 450000.0, *posts[0].PriceAmount)
	assert.Equal(t, 200.0, *posts[0].Space)

	// campos ausentes ficam desconhecidos
	assert.Nil(t, posts[1].PriceAmount)
	assert.Nil(t, posts[1].Space)
}

func TestSearchMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>oops</html>`))
	}))
	defer srv.Close()

	_, _, err := NewClient(srv.URL, "", time.Second).Search(context.Background(), SearchInput{})
	assert.Error(t, err)
}

func TestSearchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	_, _, err := NewClient(srv.URL, "", 50*time.Millisecond).Search(context.Background(), SearchInput{})
	assert.Error(t, err)
}

func TestSearchNotConfigured(t *testing.T) {
	_, _, err := NewClient("", "", time.Second).Search(context.Background(), SearchInput{})
	assert.Error(t, err)
}
