package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// UpstreamError carries a non-2xx provider response through to the caller
// with the provider's payload untouched.
type UpstreamError struct {
	StatusCode int
	Payload    []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("quote provider returned %d: %s", e.StatusCode, string(e.Payload))
}

type CoinMarketCapClient struct {
	baseURL  string
	apiKey   string
	currency string
	client   *http.Client
}

type cmcResponse struct {
	Data map[string]Asset `json:"data"`
}

func NewCoinMarketCapClient(baseURL, apiKey, currency string, timeout time.Duration) *CoinMarketCapClient {
	if baseURL == "" {
		baseURL = "https://pro-api.coinmarketcap.com/v1/cryptocurrency/quotes/latest"
	}
	if currency == "" {
		currency = "USD"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CoinMarketCapClient{
		baseURL:  baseURL,
		apiKey:   apiKey,
		currency: currency,
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *CoinMarketCapClient) Currency() string {
	return c.currency
}

func (c *CoinMarketCapClient) FetchQuotes(ctx context.Context, symbols []string) ([]Asset, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("symbols is empty")
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("symbol", strings.Join(symbols, ","))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accepts", "application/json")
	req.Header.Set("X-CMC_PRO_API_KEY", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request coinmarketcap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		payload, _ := io.ReadAll(resp.Body)
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Payload: payload}
	}

	var payload cmcResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode coinmarketcap: %w", err)
	}

	return orderBySymbols(payload.Data, symbols), nil
}

// orderBySymbols flattens the upstream symbol-keyed map into a slice ordered
// by the request. JSON object order is not observable in Go, and request
// order is the order the rows should appear in the table anyway. Symbols the
// provider did not return are skipped, repeats contribute one row.
func orderBySymbols(data map[string]Asset, symbols []string) []Asset {
	out := make([]Asset, 0, len(data))
	seen := make(map[string]bool, len(data))
	for _, sym := range symbols {
		key := strings.ToUpper(strings.TrimSpace(sym))
		if _, ok := data[key]; !ok {
			key = strings.TrimSpace(sym)
			if _, ok := data[key]; !ok {
				continue
			}
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, data[key])
	}
	return out
}
