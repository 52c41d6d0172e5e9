package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"solana-copydesk/internal/solana"
)

// DefaultSymbolTimeout bounds each metadata request.
const DefaultSymbolTimeout = 10 * time.Second

// SymbolSource resolves mints to display symbols. Unresolvable mints fall
// back to a truncated address, so the result map always covers every input.
type SymbolSource interface {
	GetSymbols(ctx context.Context, mints []string) (map[string]string, error)
}

// SymbolClient resolves symbols from a token metadata API:
// GET {base}/{mint} returning {"symbol": "..."}.
type SymbolClient struct {
	baseURL string
	client  *http.Client
}

// NewSymbolClient creates a symbol client for the given endpoint.
func NewSymbolClient(baseURL string) *SymbolClient {
	return &SymbolClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: DefaultSymbolTimeout},
	}
}

type tokenMetadataResponse struct {
	Symbol string `json:"symbol"`
}

// GetSymbols resolves each mint's symbol, falling back to the truncated
// address when the upstream does not know the token. Lookup failures are
// absorbed into the fallback; the error return is reserved for context
// cancellation.
func (c *SymbolClient) GetSymbols(ctx context.Context, mints []string) (map[string]string, error) {
	symbols := make(map[string]string, len(mints))
	for _, mint := range mints {
		if err := ctx.Err(); err != nil {
			return symbols, err
		}
		symbol, err := c.getSymbol(ctx, mint)
		if err != nil || symbol == "" {
			symbols[mint] = solana.TruncateAddress(mint)
			continue
		}
		symbols[mint] = symbol
	}
	return symbols, nil
}

func (c *SymbolClient) getSymbol(ctx context.Context, mint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+mint, nil)
	if err != nil {
		return "", fmt.Errorf("create metadata request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("metadata request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("metadata api status %d", resp.StatusCode)
	}

	var parsed tokenMetadataResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode metadata response: %w", err)
	}
	return parsed.Symbol, nil
}

var _ SymbolSource = (*SymbolClient)(nil)
