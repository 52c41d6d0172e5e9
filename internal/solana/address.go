package solana

import (
	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// IsValidWalletAddress reports whether addr is a plausible user wallet:
// 32 bytes of base58 that decode to a point on the ed25519 curve. Program
// derived addresses are off-curve by construction and are rejected, which
// keeps PDAs (vaults, pools) out of the followed-wallet set.
func IsValidWalletAddress(addr string) bool {
	decoded, err := base58.Decode(addr)
	if err != nil || len(decoded) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(decoded)
	return err == nil
}

// TruncateAddress shortens a base58 address for display: first four and
// last four characters joined by an ellipsis. Short inputs pass through.
func TruncateAddress(addr string) string {
	if len(addr) <= 8 {
		return addr
	}
	return addr[:4] + "..." + addr[len(addr)-4:]
}
