package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"solana-copydesk/internal/domain"
	"solana-copydesk/internal/pnl"
	"solana-copydesk/internal/solana"
	"solana-copydesk/internal/storage"
)

const (
	summaryDays       = 30
	dailyPnLMaxPoints = 30
	topTokensLimit    = 5
)

// followWalletRequest is the body for POST /users/{userID}/wallets.
type followWalletRequest struct {
	Address string `json:"address"`
	Label   string `json:"label"`
}

type walletResponse struct {
	UserID     string `json:"user_id"`
	Address    string `json:"address"`
	Label      string `json:"label"`
	IsActive   bool   `json:"is_active"`
	AddedAt    int64  `json:"added_at"`
	LastScanAt int64  `json:"last_scan_at,omitempty"`
}

type swapResponse struct {
	Signature   string   `json:"signature"`
	Wallet      string   `json:"wallet"`
	BlockTime   int64    `json:"block_time"`
	Type        string   `json:"type"`
	TokenMint   string   `json:"token_mint"`
	TokenSymbol string   `json:"token_symbol,omitempty"`
	TokenAmount float64  `json:"token_amount"`
	SolAmount   float64  `json:"sol_amount"`
	Platform    string   `json:"platform"`
	PriceUSD    *float64 `json:"price_usd,omitempty"`
}

type positionResponse struct {
	ID                   int64   `json:"id"`
	UserID               string  `json:"user_id"`
	TokenMint            string  `json:"token_mint"`
	TokenSymbol          string  `json:"token_symbol,omitempty"`
	Amount               float64 `json:"amount"`
	AvgBuyPrice          float64 `json:"avg_buy_price"`
	EntryPrice           float64 `json:"entry_price"`
	CurrentPrice         float64 `json:"current_price"`
	UnrealizedPnLSol     float64 `json:"unrealized_pnl_sol"`
	UnrealizedPnLPercent float64 `json:"unrealized_pnl_percent"`
	RealizedPnLSol       float64 `json:"realized_pnl_sol"`
	IsOpen               bool    `json:"is_open"`
	OpenedAt             int64   `json:"opened_at"`
	ClosedAt             *int64  `json:"closed_at,omitempty"`
}

type copyTradeResponse struct {
	ID                string  `json:"id"`
	UserID            string  `json:"user_id"`
	SourceWallet      string  `json:"source_wallet"`
	SourceSignature   string  `json:"source_signature"`
	TokenMint         string  `json:"token_mint"`
	TokenSymbol       string  `json:"token_symbol,omitempty"`
	Type              string  `json:"type"`
	SourceAmountSol   float64 `json:"source_amount_sol"`
	ExecutedAmountSol float64 `json:"executed_amount_sol"`
	Status            string  `json:"status"`
	TxSignature       string  `json:"tx_signature,omitempty"`
	ErrorMessage      string  `json:"error_message,omitempty"`
	DryRun            bool    `json:"dry_run"`
	CreatedAt         int64   `json:"created_at"`
}

type settingsRequest struct {
	IsEnabled         bool    `json:"is_enabled"`
	MaxPositionSol    float64 `json:"max_position_sol"`
	SlippageBps       int     `json:"slippage_bps"`
	StopLossPercent   float64 `json:"stop_loss_percent"`
	TakeProfitPercent float64 `json:"take_profit_percent"`
}

type settingsResponse struct {
	UserID            string  `json:"user_id"`
	IsEnabled         bool    `json:"is_enabled"`
	MaxPositionSol    float64 `json:"max_position_sol"`
	SlippageBps       int     `json:"slippage_bps"`
	StopLossPercent   float64 `json:"stop_loss_percent"`
	TakeProfitPercent float64 `json:"take_profit_percent"`
	UpdatedAt         int64   `json:"updated_at"`
}

type tokenPnLResponse struct {
	TokenMint   string  `json:"token_mint"`
	TokenSymbol string  `json:"token_symbol,omitempty"`
	PnLSol      float64 `json:"pnl_sol"`
	TradeCount  int     `json:"trade_count"`
}

type platformShareResponse struct {
	Platform string `json:"platform"`
	Percent  int    `json:"percent"`
	Trades   int    `json:"trades"`
}

type dailyPnLResponse struct {
	Date   string  `json:"date"`
	PnLSol float64 `json:"pnl_sol"`
	Trades int     `json:"trades"`
}

type walletSummaryResponse struct {
	Wallet        string                  `json:"wallet"`
	DisplayWallet string                  `json:"display_wallet"`
	TotalTrades   int                     `json:"total_trades"`
	TotalBuys     int                     `json:"total_buys"`
	TotalSells    int                     `json:"total_sells"`
	TotalPnLSol   float64                 `json:"total_pnl_sol"`
	WinRate       float64                 `json:"win_rate"`
	TradesToday   int                     `json:"trades_today"`
	TopTokens     []tokenPnLResponse      `json:"top_tokens"`
	Platforms     []platformShareResponse `json:"platforms"`
	DailyPnL      []dailyPnLResponse      `json:"daily_pnl"`
}

func (s *Server) handleFollowWallet(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	var req followWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !solana.IsValidWalletAddress(req.Address) {
		respondError(w, http.StatusBadRequest, "invalid wallet address")
		return
	}

	wallet := &domain.FollowedWallet{
		UserID:   userID,
		Address:  req.Address,
		Label:    req.Label,
		IsActive: true,
		AddedAt:  time.Now().UnixMilli(),
	}
	if err := s.wallets.Upsert(r.Context(), wallet); err != nil {
		s.respondStoreError(w, err, "follow wallet")
		return
	}

	respondJSON(w, http.StatusCreated, toWalletResponse(wallet))
}

func (s *Server) handleListWallets(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	wallets, err := s.wallets.GetByUser(r.Context(), userID)
	if err != nil {
		s.respondStoreError(w, err, "list wallets")
		return
	}

	out := make([]walletResponse, 0, len(wallets))
	for _, wl := range wallets {
		out = append(out, toWalletResponse(wl))
	}
	respondJSON(w, http.StatusOK, out)
}

// handleUnfollowWallet deactivates the wallet rather than deleting it, so
// the swap history stays attributable.
func (s *Server) handleUnfollowWallet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, address := vars["userID"], vars["address"]

	wallets, err := s.wallets.GetByUser(r.Context(), userID)
	if err != nil {
		s.respondStoreError(w, err, "unfollow wallet")
		return
	}
	for _, wl := range wallets {
		if wl.Address != address {
			continue
		}
		wl.IsActive = false
		if err := s.wallets.Upsert(r.Context(), wl); err != nil {
			s.respondStoreError(w, err, "unfollow wallet")
			return
		}
		respondJSON(w, http.StatusOK, toWalletResponse(wl))
		return
	}
	respondError(w, http.StatusNotFound, "wallet not followed")
}

func (s *Server) handleWalletSummary(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	if !solana.IsValidWalletAddress(address) {
		respondError(w, http.StatusBadRequest, "invalid wallet address")
		return
	}

	swaps, err := s.swaps.GetByWallet(r.Context(), address)
	if err != nil {
		s.respondStoreError(w, err, "wallet summary")
		return
	}

	summary := pnl.Summarize(swaps, "")
	resp := walletSummaryResponse{
		Wallet:        address,
		DisplayWallet: solana.TruncateAddress(address),
		TotalTrades:   summary.TotalTrades,
		TotalBuys:     summary.TotalBuys,
		TotalSells:    summary.TotalSells,
		TotalPnLSol:   summary.TotalPnLSol,
		WinRate:       summary.WinRate,
		TradesToday:   pnl.TradesToday(swaps, time.Now(), time.UTC),
		TopTokens:     toTokenPnLResponses(pnl.TopTokens(swaps, topTokensLimit)),
		Platforms:     toPlatformResponses(pnl.PlatformDistribution(swaps)),
		DailyPnL:      toDailyResponses(s.dailyPnL(r, address, swaps)),
	}
	respondJSON(w, http.StatusOK, resp)
}

// dailyPnL prefers the analytics archive when one is configured; it holds
// the full history while the swap store may be pruned.
func (s *Server) dailyPnL(r *http.Request, wallet string, swaps []*domain.ClassifiedSwap) []domain.DailyPnL {
	if s.archive != nil {
		daily, err := s.archive.DailyPnL(r.Context(), wallet, summaryDays)
		if err == nil {
			return daily
		}
		s.logger.Warn().Err(err).Str("wallet", wallet).Msg("archive daily pnl failed, using swap store")
	}
	return pnl.DailyPnL(swaps, time.UTC, dailyPnLMaxPoints)
}

func (s *Server) handleWalletSwaps(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	if !solana.IsValidWalletAddress(address) {
		respondError(w, http.StatusBadRequest, "invalid wallet address")
		return
	}

	swaps, err := s.swaps.GetByWallet(r.Context(), address)
	if err != nil {
		s.respondStoreError(w, err, "wallet swaps")
		return
	}

	limit := parseLimit(r, 100)
	if len(swaps) > limit {
		swaps = swaps[:limit]
	}

	out := make([]swapResponse, 0, len(swaps))
	for _, swap := range swaps {
		out = append(out, toSwapResponse(swap))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	positions, err := s.positions.GetByUser(r.Context(), userID)
	if err != nil {
		s.respondStoreError(w, err, "list positions")
		return
	}

	out := make([]positionResponse, 0, len(positions))
	for _, p := range positions {
		out = append(out, toPositionResponse(p))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleListCopyTrades(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	trades, err := s.trades.GetByUser(r.Context(), userID)
	if err != nil {
		s.respondStoreError(w, err, "list copy trades")
		return
	}

	out := make([]copyTradeResponse, 0, len(trades))
	for _, ct := range trades {
		out = append(out, toCopyTradeResponse(ct))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	settings, err := s.settings.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "settings not configured")
			return
		}
		s.respondStoreError(w, err, "get settings")
		return
	}
	respondJSON(w, http.StatusOK, toSettingsResponse(settings))
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MaxPositionSol < 0 || req.SlippageBps < 0 ||
		req.StopLossPercent < 0 || req.TakeProfitPercent < 0 {
		respondError(w, http.StatusBadRequest, "settings values must not be negative")
		return
	}

	settings := &domain.CopySettings{
		UserID:            userID,
		IsEnabled:         req.IsEnabled,
		MaxPositionSol:    req.MaxPositionSol,
		SlippageBps:       req.SlippageBps,
		StopLossPercent:   req.StopLossPercent,
		TakeProfitPercent: req.TakeProfitPercent,
		UpdatedAt:         time.Now().UnixMilli(),
	}
	if err := s.settings.Upsert(r.Context(), settings); err != nil {
		s.respondStoreError(w, err, "put settings")
		return
	}
	respondJSON(w, http.StatusOK, toSettingsResponse(settings))
}

func (s *Server) respondStoreError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, storage.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	default:
		s.logger.Error().Err(err).Str("op", op).Msg("storage error")
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func toWalletResponse(w *domain.FollowedWallet) walletResponse {
	return walletResponse{
		UserID:     w.UserID,
		Address:    w.Address,
		Label:      w.Label,
		IsActive:   w.IsActive,
		AddedAt:    w.AddedAt,
		LastScanAt: w.LastScanAt,
	}
}

func toSwapResponse(s *domain.ClassifiedSwap) swapResponse {
	return swapResponse{
		Signature:   s.Signature,
		Wallet:      s.Wallet,
		BlockTime:   s.BlockTime,
		Type:        string(s.Type),
		TokenMint:   s.TokenMint,
		TokenSymbol: s.TokenSymbol,
		TokenAmount: s.TokenAmount,
		SolAmount:   s.SolAmount,
		Platform:    string(s.Platform),
		PriceUSD:    s.PriceUSD,
	}
}

func toPositionResponse(p *domain.Position) positionResponse {
	return positionResponse{
		ID:                   p.ID,
		UserID:               p.UserID,
		TokenMint:            p.TokenMint,
		TokenSymbol:          p.TokenSymbol,
		Amount:               p.Amount,
		AvgBuyPrice:          p.AvgBuyPrice,
		EntryPrice:           p.EntryPrice,
		CurrentPrice:         p.CurrentPrice,
		UnrealizedPnLSol:     p.UnrealizedPnLSol,
		UnrealizedPnLPercent: p.UnrealizedPnLPercent,
		RealizedPnLSol:       p.RealizedPnLSol,
		IsOpen:               p.IsOpen,
		OpenedAt:             p.OpenedAt,
		ClosedAt:             p.ClosedAt,
	}
}

func toCopyTradeResponse(ct *domain.CopyTrade) copyTradeResponse {
	return copyTradeResponse{
		ID:                ct.ID,
		UserID:            ct.UserID,
		SourceWallet:      ct.SourceWallet,
		SourceSignature:   ct.SourceSignature,
		TokenMint:         ct.TokenMint,
		TokenSymbol:       ct.TokenSymbol,
		Type:              string(ct.Type),
		SourceAmountSol:   ct.SourceAmountSol,
		ExecutedAmountSol: ct.ExecutedAmountSol,
		Status:            string(ct.Status),
		TxSignature:       ct.TxSignature,
		ErrorMessage:      ct.ErrorMessage,
		DryRun:            ct.DryRun,
		CreatedAt:         ct.CreatedAt,
	}
}

func toSettingsResponse(s *domain.CopySettings) settingsResponse {
	return settingsResponse{
		UserID:            s.UserID,
		IsEnabled:         s.IsEnabled,
		MaxPositionSol:    s.MaxPositionSol,
		SlippageBps:       s.SlippageBps,
		StopLossPercent:   s.StopLossPercent,
		TakeProfitPercent: s.TakeProfitPercent,
		UpdatedAt:         s.UpdatedAt,
	}
}

func toTokenPnLResponses(tokens []domain.TokenPnL) []tokenPnLResponse {
	out := make([]tokenPnLResponse, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, tokenPnLResponse{
			TokenMint:   t.TokenMint,
			TokenSymbol: t.TokenSymbol,
			PnLSol:      t.PnLSol,
			TradeCount:  t.TradeCount,
		})
	}
	return out
}

func toPlatformResponses(shares []domain.PlatformShare) []platformShareResponse {
	out := make([]platformShareResponse, 0, len(shares))
	for _, p := range shares {
		out = append(out, platformShareResponse{
			Platform: string(p.Platform),
			Percent:  p.Percent,
			Trades:   p.Trades,
		})
	}
	return out
}

func toDailyResponses(daily []domain.DailyPnL) []dailyPnLResponse {
	out := make([]dailyPnLResponse, 0, len(daily))
	for _, d := range daily {
		out = append(out, dailyPnLResponse{Date: d.Date, PnLSol: d.PnLSol, Trades: d.Trades})
	}
	return out
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
