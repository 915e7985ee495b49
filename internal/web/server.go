// Package web exposes the JSON API over the trading core. It is a thin
// presentation layer: the authenticated user id arrives in a header,
// money fields are rounded to two decimals for display, and error kinds
// map to HTTP statuses.
package web

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/sync/errgroup"

	"github.com/tintran1995/webtrack/internal/domain"
	"github.com/tintran1995/webtrack/internal/storage/ledger"
)

const userHeader = "X-User-ID"

type brokerService interface {
	Buy(ctx context.Context, userID, symbol string, shares decimal.Decimal) (domain.Transaction, error)
	Sell(ctx context.Context, userID, symbol string, shares decimal.Decimal) (domain.Transaction, error)
	Quote(ctx context.Context, symbol string) (domain.Quote, error)
}

type portfolioService interface {
	Value(ctx context.Context, userID string) (domain.Valuation, error)
}

type watchlistService interface {
	Add(ctx context.Context, userID, symbol string) (domain.WatchEntry, error)
	List(ctx context.Context, userID string) ([]domain.WatchEntry, error)
}

type accountStore interface {
	CreateAccount(userID string, startingCash decimal.Decimal) error
	Transactions(userID string, filter ledger.Filter) ([]domain.Transaction, error)
}

// Server serves the JSON API.
type Server struct {
	Addr string

	broker       brokerService
	portfolio    portfolioService
	watchlist    watchlistService
	accounts     accountStore
	startingCash decimal.Decimal
	logger       *zap.Logger
}

// NewServer creates the API server.
func NewServer(addr string, broker brokerService, portfolio portfolioService, watch watchlistService,
	accounts accountStore, startingCash decimal.Decimal, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		Addr:         addr,
		broker:       broker,
		portfolio:    portfolio,
		watchlist:    watch,
		accounts:     accounts,
		startingCash: startingCash,
		logger:       logger,
	}
}

func (s *Server) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("GET /portfolio", s.withUser(s.handlePortfolio))
	mux.HandleFunc("POST /buy", s.withUser(s.handleBuy))
	mux.HandleFunc("POST /sell", s.withUser(s.handleSell))
	mux.HandleFunc("GET /quote", s.handleQuote)
	mux.HandleFunc("GET /history", s.withUser(s.handleHistory))
	mux.HandleFunc("GET /watch", s.withUser(s.handleWatchList))
	mux.HandleFunc("POST /watch", s.withUser(s.handleWatchAdd))
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithAutoTLS runs an HTTPS server with automatic TLS certificates
// via ACME, plus an HTTP server on port 80 for HTTP-01 challenges.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(domains) == 0 {
		return errors.New("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = "cert-cache"
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	httpSrv := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 5 * time.Second,
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	httpsSrv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.mux(),
		ReadHeaderTimeout: 5 * time.Second,
		TLSConfig:         tlsConfig,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
		_ = httpsSrv.Shutdown(shutdownCtx)
	}()

	g := new(errgroup.Group)
	g.Go(func() error {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	return g.Wait()
}

// withUser extracts the authenticated user id supplied by the auth
// layer in front of this service.
func (s *Server) withUser(next func(w http.ResponseWriter, r *http.Request, userID string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(userHeader)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing "+userHeader+" header")
			return
		}
		next(w, r, userID)
	}
}

type registerRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "bad request", "user_id is required")
		return
	}

	if err := s.accounts.CreateAccount(req.UserID, s.startingCash); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"user_id": req.UserID,
		"cash":    s.startingCash.StringFixed(2),
	})
}

type tradeRequest struct {
	Symbol string `json:"symbol"`
	Shares string `json:"shares"`
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request, userID string) {
	s.handleTrade(w, r, userID, s.broker.Buy)
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request, userID string) {
	s.handleTrade(w, r, userID, s.broker.Sell)
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request, userID string,
	execute func(ctx context.Context, userID, symbol string, shares decimal.Decimal) (domain.Transaction, error)) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request", "invalid json body")
		return
	}
	shares, err := decimal.NewFromString(req.Shares)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid quantity", "shares must be a decimal number")
		return
	}

	tx, err := execute(r.Context(), userID, req.Symbol, shares)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionView(tx))
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := s.broker.Quote(r.Context(), r.URL.Query().Get("symbol"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"symbol": quote.Symbol,
		"name":   quote.Name,
		"price":  quote.Price.StringFixed(2),
	})
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request, userID string) {
	valuation, err := s.portfolio.Value(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	rows := make([]map[string]any, 0, len(valuation.Rows))
	for _, row := range valuation.Rows {
		view := map[string]any{
			"symbol":    row.Symbol,
			"shares":    row.Shares.String(),
			"available": row.Available,
		}
		if row.Available {
			view["name"] = row.Name
			view["price"] = row.Price.StringFixed(2)
			view["value"] = row.Value.StringFixed(2)
		}
		rows = append(rows, view)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cash":        valuation.Cash.StringFixed(2),
		"rows":        rows,
		"grand_total": valuation.GrandTotal.StringFixed(2),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, userID string) {
	txns, err := s.accounts.Transactions(userID, ledger.Filter{Symbol: r.URL.Query().Get("symbol")})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	rows := make([]map[string]any, 0, len(txns))
	for _, tx := range txns {
		rows = append(rows, transactionView(tx))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": rows})
}

func (s *Server) handleWatchList(w http.ResponseWriter, r *http.Request, userID string) {
	entries, err := s.watchlist.List(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"watchlist": watchViews(entries)})
}

type watchRequest struct {
	Symbol string `json:"symbol"`
}

func (s *Server) handleWatchAdd(w http.ResponseWriter, r *http.Request, userID string) {
	var req watchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "bad request", "symbol is required")
		return
	}

	entry, err := s.watchlist.Add(r.Context(), userID, req.Symbol)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, watchViews([]domain.WatchEntry{entry})[0])
}

func transactionView(tx domain.Transaction) map[string]any {
	return map[string]any{
		"id":     tx.ID,
		"symbol": tx.Symbol,
		"shares": tx.Shares.String(),
		"price":  tx.Price.StringFixed(2),
		"ts":     tx.Timestamp.UTC().Format(time.RFC3339),
	}
}

func watchViews(entries []domain.WatchEntry) []map[string]string {
	views := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		views = append(views, map[string]string{
			"symbol": e.Symbol,
			"price":  e.Price.StringFixed(2),
		})
	}
	return views
}

// writeDomainError maps core error kinds to HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found", err.Error())
	case errors.Is(err, domain.ErrUnknownSymbol):
		writeError(w, http.StatusNotFound, "unknown symbol", err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, "invalid quantity", err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		writeError(w, http.StatusUnprocessableEntity, "insufficient funds", err.Error())
	case errors.Is(err, domain.ErrInsufficientShares):
		writeError(w, http.StatusUnprocessableEntity, "insufficient shares", err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrQuoteUnavailable):
		writeError(w, http.StatusServiceUnavailable, "quote unavailable", err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", "unexpected server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, kind, reason string) {
	writeJSON(w, status, map[string]string{"error": kind, "reason": reason})
}
