package domain

// SOLMint is the native wrapped SOL mint address.
const SOLMint = "So11111111111111111111111111111111111111112"

// TradeType is the direction of a classified swap.
type TradeType string

const (
	TradeTypeBuy  TradeType = "buy"
	TradeTypeSell TradeType = "sell"
)

// Platform is the DEX venue a swap was routed through.
type Platform string

const (
	PlatformJupiter Platform = "jupiter"
	PlatformRaydium Platform = "raydium"
	PlatformPumpFun Platform = "pumpfun"
	PlatformUnknown Platform = "unknown"
)

// ClassifiedSwap is a single detected buy/sell event for a scanned wallet.
// Corresponds to the wallet_swaps table in PostgreSQL; (wallet, signature)
// is the natural key for deduplication.
type ClassifiedSwap struct {
	Signature     string    // Solana transaction signature
	Wallet        string    // scanned wallet address
	BlockTime     int64     // Unix seconds
	Type          TradeType // buy | sell
	TokenMint     string    // non-SOL leg of the swap
	TokenSymbol   string    // display symbol, filled by enrichment
	TokenDecimals int       // mint decimals, carried through for raw-unit conversion
	TokenAmount   float64   // unsigned token magnitude
	SolAmount     float64   // unsigned SOL magnitude
	Platform      Platform  // inferred venue
	PriceUSD      *float64  // current USD price, filled by enrichment (nullable)
	CreatedAt     int64     // record creation timestamp (ms)
}
