package executor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-copydesk/internal/domain"
)

const testMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

type stubSigner struct {
	sent string
}

func (s *stubSigner) PublicKey() string { return "StubPubkey11111111111111111111111111111111" }

func (s *stubSigner) SignAndSend(_ context.Context, base64Tx string) (string, error) {
	s.sent = base64Tx
	return "5igned5ignature", nil
}

// jupiterStub serves the two endpoints the executor touches.
func jupiterStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/quote", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, domain.SOLMint, r.URL.Query().Get("inputMint"))
		assert.Equal(t, testMint, r.URL.Query().Get("outputMint"))
		assert.Equal(t, "1250", r.URL.Query().Get("slippageBps"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"inputMint": "` + domain.SOLMint + `",
			"inAmount": "1000000000",
			"outputMint": "` + testMint + `",
			"outAmount": "500000000",
			"otherAmountThreshold": "437500000",
			"swapMode": "ExactIn",
			"slippageBps": 1250,
			"priceImpactPct": "0.1",
			"routePlan": []
		}`))
	})
	mux.HandleFunc("/swap", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"swapTransaction": "base64tx==", "lastValidBlockHeight": 12345}`))
	})
	return httptest.NewServer(mux)
}

func TestJupiterExecutor_QuoteAndExecute(t *testing.T) {
	server := jupiterStub(t)
	defer server.Close()

	signer := &stubSigner{}
	exec, err := NewJupiterExecutor(server.URL, signer, zerolog.Nop())
	require.NoError(t, err)

	q, err := exec.Quote(context.Background(), domain.SOLMint, testMint, SolToLamports(1.0), 1250)
	require.NoError(t, err)

	assert.Equal(t, int64(1_000_000_000), q.InAmount)
	assert.Equal(t, int64(500_000_000), q.OutAmount)
	// 1 SOL for 500 tokens at 6 decimals
	assert.InDelta(t, 0.002, q.SolPerToken(6), 1e-12)

	sig, err := exec.Execute(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "5igned5ignature", sig)
	assert.Equal(t, "base64tx==", signer.sent)
	assert.False(t, exec.DryRun())
}

func TestJupiterExecutor_QuoteRejectsNonPositiveAmount(t *testing.T) {
	exec, err := NewJupiterExecutor("http://localhost:0", &stubSigner{}, zerolog.Nop())
	require.NoError(t, err)

	_, err = exec.Quote(context.Background(), domain.SOLMint, testMint, 0, 500)
	assert.Error(t, err)
}

func TestDryRunExecutor_LabelsSignatures(t *testing.T) {
	server := jupiterStub(t)
	defer server.Close()

	inner, err := NewJupiterExecutor(server.URL, &stubSigner{}, zerolog.Nop())
	require.NoError(t, err)
	exec := NewDryRun(inner)

	q, err := exec.Quote(context.Background(), domain.SOLMint, testMint, SolToLamports(1.0), 1250)
	require.NoError(t, err)

	sig, err := exec.Execute(context.Background(), q)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sig, DryRunPrefix))
	assert.True(t, exec.DryRun())
}

func TestSolToLamports(t *testing.T) {
	assert.Equal(t, int64(1_000_000_000), SolToLamports(1.0))
	assert.Equal(t, int64(100_000), SolToLamports(0.0001))
}

func TestTokenUnits(t *testing.T) {
	assert.Equal(t, int64(1_500_000), TokenUnits(1.5, 6))
	assert.Equal(t, int64(2), TokenUnits(2e-9, 9))
}

func TestQuote_SolPerTokenSellDirection(t *testing.T) {
	q := &Quote{
		InputMint:  testMint,
		OutputMint: domain.SOLMint,
		InAmount:   500_000_000, // 500 tokens at 6 decimals
		OutAmount:  1_000_000_000,
	}
	assert.InDelta(t, 0.002, q.SolPerToken(6), 1e-12)
}
