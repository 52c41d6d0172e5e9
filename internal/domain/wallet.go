package domain

// FollowedWallet is a source wallet tracked for copy trading.
// Corresponds to the followed_wallets table in PostgreSQL.
type FollowedWallet struct {
	UserID     string // user who follows the wallet
	Address    string // base58 wallet address, must be an on-curve ed25519 key
	Label      string // human-readable label
	IsActive   bool   // inactive wallets are skipped by the scanner
	AddedAt    int64  // Unix ms
	LastScanAt int64  // Unix ms of the last completed scan, 0 if never scanned
}
