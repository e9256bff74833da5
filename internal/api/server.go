package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bazaar/internal/auth"
	"bazaar/internal/config"
	"bazaar/internal/economy"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type contextKey string

const userContextKey contextKey = "user"

type UserContext struct {
	UserID string
	Email  string
	Role   string
	Token  string
}

type Server struct {
	cfg     config.APIConfig
	log     *slog.Logger
	auth    *auth.SupabaseClient
	economy *economy.Service
	mux     *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, authClient *auth.SupabaseClient, svc *economy.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		log:     logger,
		auth:    authClient,
		economy: svc,
		mux:     chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/wallet", s.handleWallet)
			r.Get("/wallet/ledger", s.handleLedger)
			r.Post("/wallet/transfer", s.handleTransfer)
			r.Get("/inventory", s.handleInventory)

			r.Get("/market/listings", s.handleBrowseListings)
			r.Post("/market/listings", s.handleCreateListing)
			r.Get("/market/listings/{id}", s.handleListingDetail)
			r.Post("/market/listings/{id}/buy", s.handleBuyListing)
			r.Post("/market/listings/{id}/cancel", s.handleCancelListing)
			r.Get("/market/stats", s.handleMarketStats)

			r.Get("/items/{id}/price", s.handleRecommendedPrice)
			r.Get("/items/{id}/history", s.handlePriceHistory)

			r.Get("/watchlist", s.handleWatchlist)
			r.Post("/watchlist", s.handleWatch)
			r.Delete("/watchlist/{item_id}", s.handleUnwatch)

			r.Get("/trades", s.handleListTrades)
			r.Post("/trades", s.handleProposeTrade)
			r.Get("/trades/{id}", s.handleTradeDetail)
			r.Post("/trades/{id}/accept", s.handleAcceptTrade)
			r.Post("/trades/{id}/reject", s.handleRejectTrade)
			r.Post("/trades/{id}/cancel", s.handleCancelTrade)

			r.Get("/blackmarket", s.handleBlackMarket)
			r.Post("/blackmarket/{id}/purchase", s.handleBlackMarketPurchase)

			r.Get("/reputation", s.handleReputation)
			r.Get("/reputation/top", s.handleTopTraders)

			r.Post("/rewards/grant", s.handleGrantReward)
		})
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		user, err := s.auth.VerifyAccessToken(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, fmt.Sprintf("invalid token: %v", err))
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, UserContext{
			UserID: user.ID,
			Email:  user.Email,
			Role:   user.Role(),
			Token:  token,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) (UserContext, error) {
	v := ctx.Value(userContextKey)
	user, ok := v.(UserContext)
	if !ok || user.UserID == "" {
		return UserContext{}, errors.New("missing auth context")
	}
	return user, nil
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.auth.SignUp(r.Context(), strings.TrimSpace(in.Email), strings.TrimSpace(in.Password))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if session.User.ID != "" {
		if err := s.economy.EnsureUser(r.Context(), session.User.ID, session.User.Email); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := s.auth.Login(r.Context(), strings.TrimSpace(in.Email), strings.TrimSpace(in.Password))
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err := s.economy.EnsureUser(r.Context(), session.User.ID, session.User.Email); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.economy.Wallet(r.Context(), user.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := s.economy.LedgerHistory(r.Context(), user.UserID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		ToUserID string `json:"to_user_id"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Reason   string `json:"reason"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	currency, err := economy.ParseCurrency(in.Currency)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out, err := s.economy.Transfer(r.Context(), economy.TransferInput{
		FromUserID:     user.UserID,
		ToUserID:       strings.TrimSpace(in.ToUserID),
		Amount:         in.Amount,
		Currency:       currency,
		Reason:         in.Reason,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleInventory(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.economy.UserInventory(r.Context(), user.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"inventory": out})
}

func (s *Server) handleBrowseListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	minPrice, _ := strconv.ParseInt(q.Get("min_price"), 10, 64)
	maxPrice, _ := strconv.ParseInt(q.Get("max_price"), 10, 64)
	out, err := s.economy.BrowseListings(r.Context(), economy.ListingFilters{
		Rarity:   economy.Rarity(strings.ToUpper(q.Get("rarity"))),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Search:   q.Get("search"),
		SortBy:   q.Get("sort"),
		Page:     page,
		PerPage:  perPage,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		ItemID        int64  `json:"item_id"`
		Quantity      int64  `json:"quantity"`
		PricePerUnit  int64  `json:"price_per_unit"`
		GemPrice      int64  `json:"gem_price"`
		Title         string `json:"title"`
		Description   string `json:"description"`
		ExpiresInDays int    `json:"expires_in_days"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.economy.CreateListing(r.Context(), economy.CreateListingInput{
		SellerID:       user.UserID,
		ItemID:         in.ItemID,
		Quantity:       in.Quantity,
		PricePerUnit:   in.PricePerUnit,
		GemPrice:       in.GemPrice,
		Title:          in.Title,
		Description:    in.Description,
		ExpiresInDays:  in.ExpiresInDays,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleListingDetail(w http.ResponseWriter, r *http.Request) {
	listingID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid listing id")
		return
	}
	out, err := s.economy.ListingDetail(r.Context(), listingID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBuyListing(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	listingID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid listing id")
		return
	}
	var in struct {
		Quantity int64  `json:"quantity"`
		Currency string `json:"currency"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	currency, err := economy.ParseCurrency(in.Currency)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out, err := s.economy.BuyListing(r.Context(), economy.BuyListingInput{
		ListingID:      listingID,
		BuyerID:        user.UserID,
		Quantity:       in.Quantity,
		Currency:       currency,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCancelListing(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	listingID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid listing id")
		return
	}
	if err := s.economy.CancelListing(r.Context(), listingID, user.UserID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleMarketStats(w http.ResponseWriter, r *http.Request) {
	out, err := s.economy.MarketStats(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRecommendedPrice(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	out, err := s.economy.RecommendedPrice(r.Context(), itemID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	period := economy.HistoryPeriod(strings.ToUpper(r.URL.Query().Get("period")))
	if period == "" {
		period = economy.PeriodDaily
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := s.economy.PriceHistory(r.Context(), itemID, period, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": out})
}

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.economy.UserWatchlist(r.Context(), user.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"watchlist": out})
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		ItemID   int64 `json:"item_id"`
		MaxPrice int64 `json:"max_price"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.economy.Watch(r.Context(), user.UserID, in.ItemID, in.MaxPrice); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleUnwatch(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	itemID, err := pathID(r, "item_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	if err := s.economy.Unwatch(r.Context(), user.UserID, itemID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	status := economy.TradeStatus(strings.ToUpper(r.URL.Query().Get("status")))
	out, err := s.economy.ListTrades(r.Context(), user.UserID, status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": out})
}

func (s *Server) handleProposeTrade(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	var in struct {
		RecipientID    string              `json:"recipient_id"`
		OfferedItems   []economy.TradeLine `json:"offered_items"`
		RequestedItems []economy.TradeLine `json:"requested_items"`
		Message        string              `json:"message"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.economy.ProposeTrade(r.Context(), economy.ProposeTradeInput{
		RequesterID:    user.UserID,
		RecipientID:    strings.TrimSpace(in.RecipientID),
		OfferedItems:   in.OfferedItems,
		RequestedItems: in.RequestedItems,
		Message:        in.Message,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleTradeDetail(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	tradeID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trade id")
		return
	}
	out, err := s.economy.TradeDetail(r.Context(), tradeID, user.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAcceptTrade(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	tradeID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trade id")
		return
	}
	out, err := s.economy.AcceptTrade(r.Context(), tradeID, user.UserID, idempotencyKey(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRejectTrade(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	tradeID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trade id")
		return
	}
	if err := s.economy.RejectTrade(r.Context(), tradeID, user.UserID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleCancelTrade(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	tradeID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trade id")
		return
	}
	if err := s.economy.CancelTrade(r.Context(), tradeID, user.UserID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleBlackMarket(w http.ResponseWriter, r *http.Request) {
	out, err := s.economy.BlackMarketOffers(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"offers": out})
}

func (s *Server) handleBlackMarketPurchase(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	offerID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid offer id")
		return
	}
	var in struct {
		Currency string `json:"currency"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	currency, err := economy.ParseCurrency(in.Currency)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out, err := s.economy.PurchaseBlackMarketOffer(r.Context(), economy.BlackMarketPurchaseInput{
		OfferID:        offerID,
		BuyerID:        user.UserID,
		Currency:       currency,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReputation(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	out, err := s.economy.Reputation(r.Context(), user.UserID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTopTraders(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := s.economy.TopTraders(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"traders": out})
}

func (s *Server) handleGrantReward(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if user.Role != "system" {
		writeError(w, http.StatusForbidden, "system role required")
		return
	}
	var in struct {
		UserID   string `json:"user_id"`
		Gold     int64  `json:"gold"`
		Gems     int64  `json:"gems"`
		XP       int64  `json:"xp"`
		ItemID   int64  `json:"item_id"`
		Quantity int64  `json:"quantity"`
		Reason   string `json:"reason"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.economy.GrantReward(r.Context(), economy.RewardGrant{
		UserID:         strings.TrimSpace(in.UserID),
		Gold:           in.Gold,
		Gems:           in.Gems,
		XP:             in.XP,
		ItemID:         in.ItemID,
		Quantity:       in.Quantity,
		Reason:         in.Reason,
		IdempotencyKey: idempotencyKey(r),
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, economy.ErrInvalidQuantity),
		errors.Is(err, economy.ErrInvalidPrice),
		errors.Is(err, economy.ErrInvalidCurrency),
		errors.Is(err, economy.ErrSelfTrade),
		errors.Is(err, economy.ErrEmptyTrade),
		errors.Is(err, economy.ErrNotTradeable),
		errors.Is(err, economy.ErrPriceOutOfBand),
		errors.Is(err, economy.ErrOwnListing):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, economy.ErrItemNotFound),
		errors.Is(err, economy.ErrListingNotFound),
		errors.Is(err, economy.ErrOfferNotFound),
		errors.Is(err, economy.ErrTradeNotFound),
		errors.Is(err, economy.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, economy.ErrListingNotActive),
		errors.Is(err, economy.ErrListingExpired),
		errors.Is(err, economy.ErrInsufficientFunds),
		errors.Is(err, economy.ErrInsufficientInventory),
		errors.Is(err, economy.ErrInsufficientStock),
		errors.Is(err, economy.ErrTradeNotPending),
		errors.Is(err, economy.ErrTradeLegStale),
		errors.Is(err, economy.ErrOutOfStock),
		errors.Is(err, economy.ErrOfferUnavailable),
		errors.Is(err, economy.ErrDuplicateIdempotency),
		errors.Is(err, economy.ErrTxConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, economy.ErrUnauthorized),
		errors.Is(err, economy.ErrTradingLocked),
		errors.Is(err, economy.ErrLowTrust):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, economy.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func idempotencyKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		return key
	}
	return uuid.NewString()
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
