// Package enrich resolves token mints to display symbols and current USD
// prices. Everything here is best-effort: an unresolved mint degrades to a
// truncated address and a nil price, never an error on the scan path.
package enrich

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
)

// DefaultPriceTimeout bounds each price request.
const DefaultPriceTimeout = 10 * time.Second

// PriceSource fetches current USD prices for a batch of mints. Absent
// entries mean the upstream has no price, not an error.
type PriceSource interface {
	GetPrices(ctx context.Context, mints []string) (map[string]float64, error)
}

// PriceClient fetches batched prices from a Jupiter-style price API:
// GET {base}?ids=mint1,mint2 returning a data map keyed by mint. Prices are
// USD by default; quote against another token with WithVsToken.
type PriceClient struct {
	baseURL string
	vsToken string
	client  *http.Client
}

// PriceOption configures a PriceClient.
type PriceOption func(*PriceClient)

// WithVsToken quotes prices against the given mint instead of USD. The
// position monitor uses this to price tokens in SOL, the same unit position
// entry prices are recorded in.
func WithVsToken(mint string) PriceOption {
	return func(c *PriceClient) { c.vsToken = mint }
}

// NewPriceClient creates a price client for the given endpoint.
func NewPriceClient(baseURL string, opts ...PriceOption) *PriceClient {
	c := &PriceClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: DefaultPriceTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type priceResponse struct {
	Data map[string]priceEntry `json:"data"`
}

type priceEntry struct {
	Price json.Number `json:"price"`
}

// GetPrices fetches prices for the given mints in one request. Mints the
// upstream cannot price are simply missing from the result map.
func (c *PriceClient) GetPrices(ctx context.Context, mints []string) (map[string]float64, error) {
	if len(mints) == 0 {
		return map[string]float64{}, nil
	}

	reqURL := fmt.Sprintf("%s?ids=%s", c.baseURL, url.QueryEscape(strings.Join(mints, ",")))
	if c.vsToken != "" {
		reqURL += "&vsToken=" + url.QueryEscape(c.vsToken)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create price request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("price request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("price api status %d: %s", resp.StatusCode, string(body))
	}

	var parsed priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode price response: %w", err)
	}

	prices := make(map[string]float64, len(parsed.Data))
	for mint, entry := range parsed.Data {
		price, err := strconv.ParseFloat(entry.Price.String(), 64)
		if err != nil || price <= 0 {
			continue
		}
		prices[mint] = price
	}
	return prices, nil
}

var _ PriceSource = (*PriceClient)(nil)
