package economy

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

type Currency string

const (
	CurrencyGold Currency = "gold"
	CurrencyGems Currency = "gems"
)

func ParseCurrency(s string) (Currency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "gold":
		return CurrencyGold, nil
	case "gems":
		return CurrencyGems, nil
	}
	return "", fmt.Errorf("%w: currency must be gold or gems", ErrInvalidCurrency)
}

type Rarity string

const (
	RarityCommon    Rarity = "COMMON"
	RarityUncommon  Rarity = "UNCOMMON"
	RarityRare      Rarity = "RARE"
	RarityEpic      Rarity = "EPIC"
	RarityLegendary Rarity = "LEGENDARY"
)

type ListingStatus string

const (
	ListingActive    ListingStatus = "ACTIVE"
	ListingSold      ListingStatus = "SOLD"
	ListingExpired   ListingStatus = "EXPIRED"
	ListingCancelled ListingStatus = "CANCELLED"
)

type TradeStatus string

const (
	TradePending   TradeStatus = "PENDING"
	TradeCompleted TradeStatus = "COMPLETED"
	TradeCancelled TradeStatus = "CANCELLED"
)

type LedgerKind string

const (
	LedgerEarned LedgerKind = "EARNED"
	LedgerSpent  LedgerKind = "SPENT"
	LedgerRefund LedgerKind = "REFUND"
)

type TransactionKind string

const (
	TxMarketplace TransactionKind = "MARKETPLACE"
	TxTrade       TransactionKind = "TRADE"
	TxBlackMarket TransactionKind = "BLACKMARKET"
)

const (
	MinTradeLevel     = 5
	DailyListingCap   = 50
	TrustFloor        = 20
	MaxTrustScore     = 100
	DefaultTrustScore = 100

	SuspiciousTxCount24h    = 100
	SuspiciousGoldEarned24h = int64(100_000)
	SuspiciousTrustPenalty  = 10
	MinAskPriceRatio        = 0.1
	MaxAskPriceRatio        = 5.0
	DefaultListingTTLDays   = 30
	DefaultTransferFeeRate  = 0.05
	XPAuditWindow           = 100
	XPPerLevel              = 100
)

var (
	// Validation errors: rejected before any mutable state is read.
	ErrInvalidQuantity = errors.New("quantity must be > 0")
	ErrInvalidPrice    = errors.New("price must be > 0")
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrSelfTrade       = errors.New("cannot trade with yourself")
	ErrEmptyTrade      = errors.New("trade must include at least one item")
	ErrNotTradeable    = errors.New("item is not tradeable")

	// State conflicts: current state re-read inside the transaction
	// disallows the operation; nothing was mutated.
	ErrItemNotFound          = errors.New("item not found")
	ErrListingNotFound       = errors.New("listing not found")
	ErrListingNotActive      = errors.New("listing is not active")
	ErrListingExpired        = errors.New("listing has expired")
	ErrOwnListing            = errors.New("cannot buy your own listing")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientInventory = errors.New("insufficient item quantity in inventory")
	ErrInsufficientStock     = errors.New("insufficient quantity available")
	ErrOutOfStock            = errors.New("offer is out of stock")
	ErrOfferNotFound         = errors.New("offer not found")
	ErrOfferUnavailable      = errors.New("offer is not available")
	ErrTradeNotFound         = errors.New("trade not found")
	ErrTradeNotPending       = errors.New("trade is not pending")
	ErrTradeLegStale         = errors.New("trade leg no longer holds enough quantity")
	ErrTradingLocked         = errors.New("trading is locked for this user")
	ErrRateLimited           = errors.New("daily listing limit reached")
	ErrLowTrust              = errors.New("trading reputation too low")
	ErrPriceOutOfBand        = errors.New("price outside allowed band")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrUserNotFound          = errors.New("user not found")

	// Concurrency: lost a serialization race; safe to retry.
	ErrTxConflict = errors.New("transaction conflict, please retry")

	ErrDuplicateIdempotency = errors.New("duplicate idempotency key")
)

// RarityMultiplier scales an item's base price when deriving the
// recommended market price.
func RarityMultiplier(r Rarity) float64 {
	switch r {
	case RarityUncommon:
		return 2.0
	case RarityRare:
		return 4.0
	case RarityEpic:
		return 8.0
	case RarityLegendary:
		return 16.0
	default:
		return 1.0
	}
}

// ValidatePrice bounds an asking price to [10%, 500%] of the catalog base
// price, guarding against dump pricing and gouging alike.
func ValidatePrice(basePrice, askPrice int64) error {
	if askPrice <= 0 {
		return ErrInvalidPrice
	}
	if float64(askPrice) < float64(basePrice)*MinAskPriceRatio {
		return fmt.Errorf("%w: below %.0f%% of base price", ErrPriceOutOfBand, MinAskPriceRatio*100)
	}
	if float64(askPrice) > float64(basePrice)*MaxAskPriceRatio {
		return fmt.Errorf("%w: above %.0f%% of base price", ErrPriceOutOfBand, MaxAskPriceRatio*100)
	}
	return nil
}

// LevelFromXP is the trading gate's local approximation, deliberately
// simpler than the platform's main leveling curve.
func LevelFromXP(totalXP int64) int {
	return int(totalXP/XPPerLevel) + 1
}

// TransferFee rounds the wallet-transfer fee. The fee is debited from the
// sender but credited nowhere; the sink is the documented behavior.
func TransferFee(amount int64, feeRate float64) int64 {
	return int64(math.Round(float64(amount) * feeRate))
}

// SplitFee returns what the recipient receives alongside the fee itself.
func SplitFee(amount int64, feeRate float64) (received, fee int64) {
	fee = TransferFee(amount, feeRate)
	return amount - fee, fee
}

func clampTrust(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxTrustScore {
		return MaxTrustScore
	}
	return v
}
