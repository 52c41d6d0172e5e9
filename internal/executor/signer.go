package executor

import (
	"context"
	"fmt"

	solanaclient "github.com/ilkamo/jupiter-go/solana"
)

// Signer is the opaque signing and submission capability. Implementations
// must never expose or log private key material.
type Signer interface {
	PublicKey() string
	// SignAndSend signs a base64-encoded serialized transaction and submits
	// it on chain, returning the transaction signature.
	SignAndSend(ctx context.Context, base64Tx string) (string, error)
}

// WalletSigner signs with a local keypair and submits through a Solana RPC
// endpoint.
type WalletSigner struct {
	wallet solanaclient.Wallet
	client solanaclient.Client
}

// NewWalletSigner builds a signer from a base58-encoded private key.
func NewWalletSigner(privateKeyBase58, rpcEndpoint string) (*WalletSigner, error) {
	wallet, err := solanaclient.NewWalletFromPrivateKeyBase58(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	client, err := solanaclient.NewClient(wallet, rpcEndpoint)
	if err != nil {
		return nil, fmt.Errorf("create solana client: %w", err)
	}
	return &WalletSigner{wallet: wallet, client: client}, nil
}

func (s *WalletSigner) PublicKey() string {
	return s.wallet.PublicKey().String()
}

func (s *WalletSigner) SignAndSend(ctx context.Context, base64Tx string) (string, error) {
	txID, err := s.client.SendTransactionOnChain(ctx, base64Tx)
	if err != nil {
		return "", err
	}
	return string(txID), nil
}

var _ Signer = (*WalletSigner)(nil)
