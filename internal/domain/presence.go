package domain

// TokenPresence tracks one token observed across wallet scans. The scanner
// merges presence maps functionally each tick; eviction after the grace
// period is a pure filter over the merged map.
type TokenPresence struct {
	TokenMint  string
	LastSeenAt int64 // Unix ms of the last scan the token appeared in
	ScanCount  int   // number of scans the token has appeared in
}
