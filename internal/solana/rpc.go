package solana

import "context"

// RPCClient defines the Solana RPC HTTP interface the engine consumes.
type RPCClient interface {
	// GetTransaction retrieves a transaction with parsed balance diffs.
	// Returns nil, nil when the transaction is not found.
	GetTransaction(ctx context.Context, signature string) (*TransactionDetail, error)

	// GetSignaturesForAddress retrieves signatures for an address with pagination.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)
}

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// TransactionDetail is a transaction with the balance diffs and program ids
// the swap classifier needs.
type TransactionDetail struct {
	Signature         string
	Slot              int64
	BlockTime         int64 // Unix seconds
	Err               interface{}
	AccountKeys       []string // account addresses in message order
	ProgramIDs        []string // program ids touched by top-level instructions
	PreBalances       []int64  // lamport balances per account index, pre-execution
	PostBalances      []int64  // lamport balances per account index, post-execution
	PreTokenBalances  []TokenBalance
	PostTokenBalances []TokenBalance
}

// TokenBalance is one account's balance for one mint, pre or post execution.
type TokenBalance struct {
	AccountIndex int
	Mint         string
	Owner        string
	UIAmount     float64 // amount scaled by mint decimals
	Decimals     int
}

// AccountIndexOf returns the index of addr in the transaction's account keys,
// or -1 if the address is not part of the transaction.
func (t *TransactionDetail) AccountIndexOf(addr string) int {
	for i, key := range t.AccountKeys {
		if key == addr {
			return i
		}
	}
	return -1
}
