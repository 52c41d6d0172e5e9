// Package scanner walks followed wallets' recent transactions, classifies
// the swaps among them and feeds every newly observed swap to storage and
// the copy-trade dispatcher.
package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"solana-copydesk/internal/classify"
	"solana-copydesk/internal/copytrade"
	"solana-copydesk/internal/domain"
	"solana-copydesk/internal/observability"
	"solana-copydesk/internal/solana"
	"solana-copydesk/internal/storage"
)

const (
	// SignatureLimit caps how far back one scan looks.
	SignatureLimit = 50
	// BatchSize bounds concurrent transaction fetches within a scan.
	BatchSize = 10

	retryAttempts = 3
	retryBaseWait = time.Second
)

// Dispatcher mirrors newly observed swaps. Satisfied by copytrade.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, userID string, swap *domain.ClassifiedSwap) (copytrade.Outcome, error)
}

// Enricher fills symbols and prices on classified swaps.
type Enricher interface {
	Enrich(ctx context.Context, swaps []*domain.ClassifiedSwap) error
}

// Scanner scans followed wallets for swap activity.
type Scanner struct {
	rpc        solana.RPCClient
	swaps      storage.SwapStore
	archive    storage.SwapArchiveStore // nil disables archiving
	wallets    storage.FollowedWalletStore
	enricher   Enricher
	dispatcher Dispatcher // nil disables copy trading
	limiter    *rate.Limiter
	logger     zerolog.Logger

	retryWait time.Duration

	mu       sync.Mutex
	lastGood map[string][]*domain.ClassifiedSwap
	presence PresenceSet
}

// New creates a scanner. The limiter paces transaction fetch batches to
// respect upstream rate limits.
func New(
	rpc solana.RPCClient,
	swaps storage.SwapStore,
	archive storage.SwapArchiveStore,
	wallets storage.FollowedWalletStore,
	enricher Enricher,
	dispatcher Dispatcher,
	limiter *rate.Limiter,
	logger zerolog.Logger,
) *Scanner {
	return &Scanner{
		rpc:        rpc,
		swaps:      swaps,
		archive:    archive,
		wallets:    wallets,
		enricher:   enricher,
		dispatcher: dispatcher,
		limiter:    limiter,
		logger:     logger.With().Str("component", "scanner").Logger(),
		retryWait:  retryBaseWait,
		lastGood:   make(map[string][]*domain.ClassifiedSwap),
		presence:   make(PresenceSet),
	}
}

// ScanAll scans every active followed wallet once. A wallet followed by
// several users is fetched and classified a single time; the new swaps fan
// out to the dispatcher for each follower.
func (s *Scanner) ScanAll(ctx context.Context) error {
	wallets, err := s.wallets.GetActive(ctx)
	if err != nil {
		return fmt.Errorf("load active wallets: %w", err)
	}

	followers := make(map[string][]string, len(wallets))
	order := make([]string, 0, len(wallets))
	for _, w := range wallets {
		if _, seen := followers[w.Address]; !seen {
			order = append(order, w.Address)
		}
		followers[w.Address] = append(followers[w.Address], w.UserID)
	}

	for _, address := range order {
		started := time.Now()
		swaps, err := s.ScanWallet(ctx, address, followers[address])
		observability.RecordScan(time.Since(started).Seconds(), err)
		if err != nil {
			s.logger.Warn().Err(err).Str("wallet", address).Msg("scan failed, keeping previous results")
			continue
		}
		scannedAt := time.Now().UnixMilli()
		for _, userID := range followers[address] {
			if err := s.wallets.TouchScan(ctx, userID, address, scannedAt); err != nil {
				s.logger.Warn().Err(err).Str("wallet", address).Str("user", userID).Msg("touch scan failed")
			}
		}
		s.logger.Debug().
			Str("wallet", address).
			Int("new_swaps", len(swaps)).
			Int("followers", len(followers[address])).
			Msg("wallet scanned")
	}

	observability.RecordScanCycle(len(order), time.Now().Unix())
	return nil
}

// ScanWallet scans one wallet and returns the newly observed swaps, handing
// each one to the dispatcher once per follower. Swap-store novelty decides
// what is new for the wallet; per-user dedup belongs to the copy-trade
// natural key at dispatch. On upstream exhaustion it returns an error and
// retains the previous scan's results for readers.
func (s *Scanner) ScanWallet(ctx context.Context, address string, followers []string) ([]*domain.ClassifiedSwap, error) {
	var sigs []solana.SignatureInfo
	err := s.withBackoff(ctx, func() error {
		var rErr error
		sigs, rErr = s.rpc.GetSignaturesForAddress(ctx, address, &solana.SignaturesOpts{Limit: SignatureLimit})
		return rErr
	})
	if err != nil {
		return nil, fmt.Errorf("signatures for %s: %w", address, err)
	}

	fresh, err := s.unseen(ctx, address, sigs)
	if err != nil {
		return nil, err
	}

	swaps := s.classifyBatches(ctx, address, fresh)
	if len(swaps) > 0 {
		observability.RecordSwapsClassified(len(swaps))
		if err := s.enricher.Enrich(ctx, swaps); err != nil {
			observability.RecordEnrichmentError()
			s.logger.Warn().Err(err).Msg("enrichment failed, storing swaps unenriched")
		}
		if err := s.swaps.UpsertBulk(ctx, swaps); err != nil {
			return nil, fmt.Errorf("store swaps: %w", err)
		}
		if s.archive != nil {
			if err := s.archive.Append(ctx, swaps); err != nil {
				s.logger.Warn().Err(err).Msg("archive append failed")
			}
		}
		s.dispatch(ctx, followers, swaps)
	}

	s.remember(address, swaps)
	return swaps, nil
}

// Results returns the swaps from the wallet's last successful scan.
func (s *Scanner) Results(address string) []*domain.ClassifiedSwap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastGood[address]
}

// Presence returns the current token presence set, with stale entries
// evicted as of now.
func (s *Scanner) Presence() PresenceSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return EvictStale(s.presence, time.Now(), PresenceGrace)
}

// unseen filters out failed transactions and signatures already stored.
func (s *Scanner) unseen(ctx context.Context, address string, sigs []solana.SignatureInfo) ([]string, error) {
	fresh := make([]string, 0, len(sigs))
	for _, sig := range sigs {
		if sig.Err != nil {
			continue
		}
		known, err := s.swaps.Exists(ctx, address, sig.Signature)
		if err != nil {
			return nil, fmt.Errorf("check signature %s: %w", sig.Signature, err)
		}
		if !known {
			fresh = append(fresh, sig.Signature)
		}
	}
	return fresh, nil
}

// classifyBatches fetches transactions in bounded batches and classifies
// them. Individual fetch failures are logged and skipped; the affected
// signature stays unseen and is retried on the next scan.
func (s *Scanner) classifyBatches(ctx context.Context, address string, signatures []string) []*domain.ClassifiedSwap {
	var (
		mu    sync.Mutex
		swaps []*domain.ClassifiedSwap
	)
	for start := 0; start < len(signatures); start += BatchSize {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return swaps
			}
		}

		end := start + BatchSize
		if end > len(signatures) {
			end = len(signatures)
		}

		var wg sync.WaitGroup
		for _, signature := range signatures[start:end] {
			wg.Add(1)
			go func(signature string) {
				defer wg.Done()
				var tx *solana.TransactionDetail
				err := s.withBackoff(ctx, func() error {
					var fErr error
					tx, fErr = s.rpc.GetTransaction(ctx, signature)
					return fErr
				})
				if err != nil {
					s.logger.Warn().Err(err).Str("signature", signature).Msg("transaction fetch failed")
					return
				}
				swap := classify.Classify(tx, address)
				if swap == nil {
					return
				}
				swap.CreatedAt = time.Now().UnixMilli()
				mu.Lock()
				swaps = append(swaps, swap)
				mu.Unlock()
			}(signature)
		}
		wg.Wait()
	}
	return swaps
}

func (s *Scanner) dispatch(ctx context.Context, followers []string, swaps []*domain.ClassifiedSwap) {
	if s.dispatcher == nil {
		return
	}
	for _, userID := range followers {
		for _, swap := range swaps {
			outcome, err := s.dispatcher.Dispatch(ctx, userID, swap)
			if err != nil {
				s.logger.Error().Err(err).Str("user", userID).Str("signature", swap.Signature).Msg("dispatch failed")
				continue
			}
			s.logger.Debug().
				Str("user", userID).
				Str("signature", swap.Signature).
				Str("outcome", string(outcome)).
				Msg("swap dispatched")
		}
	}
}

// remember retains scan results and folds observed mints into the presence
// set.
func (s *Scanner) remember(address string, swaps []*domain.ClassifiedSwap) {
	mints := make([]string, 0, len(swaps))
	for _, swap := range swaps {
		mints = append(mints, swap.TokenMint)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(swaps) > 0 {
		s.lastGood[address] = swaps
	}
	now := time.Now()
	s.presence = EvictStale(MergePresence(s.presence, mints, now), now, PresenceGrace)
}

// withBackoff retries fn with exponential backoff (1s, 2s, 4s by default).
func (s *Scanner) withBackoff(ctx context.Context, fn func() error) error {
	var lastErr error
	wait := s.retryWait
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == retryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return lastErr
}
