package solana

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidWalletAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    bool
	}{
		{
			name:    "on-curve wallet",
			address: "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
			want:    true,
		},
		{
			name: "off-curve program derived address",
			// Raydium AMM authority, a PDA.
			address: "5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1",
			want:    false,
		},
		{
			name:    "not base58",
			address: "0xdeadbeef",
			want:    false,
		},
		{
			name:    "too short",
			address: "abc",
			want:    false,
		},
		{
			name:    "empty",
			address: "",
			want:    false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidWalletAddress(tt.address))
		})
	}
}

func TestTruncateAddress(t *testing.T) {
	assert.Equal(t, "7xKX...gAsU", TruncateAddress("7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"))
	assert.Equal(t, "short", TruncateAddress("short"))
	assert.Equal(t, "", TruncateAddress(""))
}
