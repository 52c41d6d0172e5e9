package solana

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"solana-copydesk/internal/observability"
)

// ErrAllEndpointsFailed is returned when every configured endpoint failed.
var ErrAllEndpointsFailed = errors.New("all rpc endpoints failed")

// Gateway is an RPCClient that tries an ordered list of endpoints until one
// answers. One attempt per endpoint per call; an endpoint's network failure
// or malformed response is swallowed and the next endpoint is tried. Only
// exhaustion of the whole list surfaces to the caller. Callers that need
// retries wrap the gateway with their own backoff.
type Gateway struct {
	clients []*HTTPClient
	logger  zerolog.Logger
}

// NewGateway creates a gateway over the given endpoint URLs, in fallback order.
func NewGateway(endpoints []string, logger zerolog.Logger, opts ...ClientOption) (*Gateway, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("at least one rpc endpoint required")
	}

	clients := make([]*HTTPClient, len(endpoints))
	for i, ep := range endpoints {
		clients[i] = NewHTTPClient(ep, opts...)
	}

	return &Gateway{
		clients: clients,
		logger:  logger.With().Str("component", "rpc_gateway").Logger(),
	}, nil
}

// GetTransaction retrieves a transaction, falling back across endpoints.
func (g *Gateway) GetTransaction(ctx context.Context, signature string) (*TransactionDetail, error) {
	var tx *TransactionDetail
	err := g.each(ctx, "getTransaction", func(c *HTTPClient) error {
		var err error
		tx, err = c.GetTransaction(ctx, signature)
		return err
	})
	return tx, err
}

// GetSignaturesForAddress retrieves signatures, falling back across endpoints.
func (g *Gateway) GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error) {
	var sigs []SignatureInfo
	err := g.each(ctx, "getSignaturesForAddress", func(c *HTTPClient) error {
		var err error
		sigs, err = c.GetSignaturesForAddress(ctx, address, opts)
		return err
	})
	return sigs, err
}

// each runs fn against each client in order until one succeeds.
func (g *Gateway) each(ctx context.Context, method string, fn func(c *HTTPClient) error) error {
	var lastErr error
	for i, client := range g.clients {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 {
			observability.RecordRPCFailover()
		}
		started := time.Now()
		err := fn(client)
		observability.RecordRPCLatency(method, time.Since(started).Seconds())
		if err != nil {
			g.logger.Debug().
				Str("method", method).
				Str("endpoint", client.Endpoint()).
				Err(err).
				Msg("endpoint failed, trying next")
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrAllEndpointsFailed, method, lastErr)
}

var _ RPCClient = (*Gateway)(nil)
