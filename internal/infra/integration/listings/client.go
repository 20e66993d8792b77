package listings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xavierca1/aqar-matcher/internal/entity"
)

// Client talks to the listings search endpoint of the publishing site.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// Search runs one query. Every call carries its own timeout.
func (c *Client) Search(ctx context.Context, input SearchInput) ([]entity.Listing, int, error) {
	if c.baseURL == "" {
		return nil, 0, fmt.Errorf("listings api não configurada")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+encodeQuery(input).Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("erro ao criar requisição: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("erro na busca de anúncios: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("erro ao ler resposta: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("listings api retornou status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var result SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, 0, fmt.Errorf("resposta malformada da listings api: %w", err)
	}

	out := make([]entity.Listing, 0, len(result.Posts))
	for _, p := range result.Posts {
		if p.ID == "" {
			continue
		}
		out = append(out, p.ToListing())
	}
	return out, result.Total, nil
}

func encodeQuery(input SearchInput) url.Values {
	q := url.Values{}
	setString(q, "property_type", input.PropertyType)
	setString(q, "preferred_area", input.PreferredArea)
	setString(q, "purpose", input.Purpose)
	setFloat(q, "min_price", input.MinPrice)
	setFloat(q, "max_price", input.MaxPrice)
	setFloat(q, "min_area", input.MinArea)
	setFloat(q, "max_area", input.MaxArea)
	if input.Page > 0 {
		q.Set("page", strconv.Itoa(input.Page))
	}
	return q
}

func setString(q url.Values, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		q.Set(key, v)
	}
}

func setFloat(q url.Values, key string, value *float64) {
	if value != nil && *value > 0 {
		q.Set(key, strconv.FormatFloat(*value, 'f', 0, 64))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
