package economy

import "time"

type Wallet struct {
	UserID string `json:"user_id"`
	Gold   int64  `json:"gold"`
	Gems   int64  `json:"gems"`
}

type LedgerEntry struct {
	ID        int64      `json:"id"`
	TxGroupID string     `json:"tx_group_id"`
	UserID    string     `json:"user_id"`
	Amount    int64      `json:"amount"`
	Currency  Currency   `json:"currency"`
	Kind      LedgerKind `json:"kind"`
	Reason    string     `json:"reason"`
	CreatedAt time.Time  `json:"created_at"`
}

type ItemView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	BasePrice int64  `json:"base_price"`
	Rarity    Rarity `json:"rarity"`
	Tradeable bool   `json:"tradeable"`
}

type ListingView struct {
	ID           int64         `json:"id"`
	SellerID     string        `json:"seller_id"`
	ItemID       int64         `json:"item_id"`
	ItemName     string        `json:"item_name"`
	Quantity     int64         `json:"quantity"`
	PricePerUnit int64         `json:"price_per_unit"`
	GemPrice     int64         `json:"gem_price"`
	Title        string        `json:"title,omitempty"`
	Description  string        `json:"description,omitempty"`
	Views        int64         `json:"views"`
	Status       ListingStatus `json:"status"`
	ExpiresAt    *time.Time    `json:"expires_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

type CreateListingInput struct {
	SellerID       string
	ItemID         int64
	Quantity       int64
	PricePerUnit   int64 // 0 means use the recommended price
	GemPrice       int64
	Title          string
	Description    string
	ExpiresInDays  int
	IdempotencyKey string
}

type BuyListingInput struct {
	ListingID      int64
	BuyerID        string
	Quantity       int64
	Currency       Currency
	IdempotencyKey string
}

type BuyListingResult struct {
	TransactionID int64       `json:"transaction_id"`
	Listing       ListingView `json:"listing"`
	TotalPrice    int64       `json:"total_price"`
	Currency      Currency    `json:"currency"`
	BuyerBalance  int64       `json:"buyer_balance"`
}

type ListingFilters struct {
	Rarity   Rarity
	MinPrice int64
	MaxPrice int64
	Search   string
	SortBy   string // price_asc, price_desc, popularity, recent
	Page     int
	PerPage  int
}

type ListingPage struct {
	Listings   []ListingView `json:"listings"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	TotalPages int64         `json:"total_pages"`
}

type TradeItemView struct {
	ItemID    int64  `json:"item_id"`
	ItemName  string `json:"item_name"`
	Quantity  int64  `json:"quantity"`
	IsOffered bool   `json:"is_offered"`
}

type TradeView struct {
	ID          int64           `json:"id"`
	RequesterID string          `json:"requester_id"`
	RecipientID string          `json:"recipient_id"`
	Message     string          `json:"message,omitempty"`
	Status      TradeStatus     `json:"status"`
	Items       []TradeItemView `json:"items"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

type TradeLine struct {
	ItemID   int64 `json:"item_id"`
	Quantity int64 `json:"quantity"`
}

type ProposeTradeInput struct {
	RequesterID    string
	RecipientID    string
	OfferedItems   []TradeLine
	RequestedItems []TradeLine
	Message        string
	IdempotencyKey string
}

type PriceQuote struct {
	ItemID           int64         `json:"item_id"`
	ItemName         string        `json:"item_name"`
	BasePrice        int64         `json:"base_price"`
	Rarity           Rarity        `json:"rarity"`
	RecommendedPrice int64         `json:"recommended_price"`
	MinRecommended   int64         `json:"min_recommended"`
	MaxRecommended   int64         `json:"max_recommended"`
	CurrentAvgPrice  int64         `json:"current_avg_price"`
	DemandMultiplier float64       `json:"demand_multiplier"`
	RarityMultiplier float64       `json:"rarity_multiplier"`
	PopularityScore  int           `json:"popularity_score"`
	Trend            Trend         `json:"trend"`
	PriceChange24h   float64       `json:"price_change_24h"`
	Signals          DemandSignals `json:"signals"`
	Advice           string        `json:"advice"`
}

type ReputationView struct {
	UserID          string     `json:"user_id"`
	TrustScore      int        `json:"trust_score"`
	TotalSales      int64      `json:"total_sales"`
	TotalPurchases  int64      `json:"total_purchases"`
	TotalGoldEarned int64      `json:"total_gold_earned"`
	TotalGoldSpent  int64      `json:"total_gold_spent"`
	LastTradeAt     *time.Time `json:"last_trade_at,omitempty"`
}

type PriceHistoryRow struct {
	ItemID        int64     `json:"item_id"`
	Period        string    `json:"period"`
	PeriodStart   time.Time `json:"period_start"`
	PeriodEnd     time.Time `json:"period_end"`
	AveragePrice  int64     `json:"average_price"`
	LowestPrice   int64     `json:"lowest_price"`
	HighestPrice  int64     `json:"highest_price"`
	MedianPrice   int64     `json:"median_price"`
	TotalSold     int64     `json:"total_sold"`
	TotalListings int64     `json:"total_listings"`
}

type BlackMarketOfferView struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Rarity         Rarity    `json:"rarity"`
	Price          int64     `json:"price"`
	GemPrice       int64     `json:"gem_price"`
	Discount       int       `json:"discount"`
	FinalPrice     int64     `json:"final_price"`
	Stock          int64     `json:"stock"`
	SoldCount      int64     `json:"sold_count"`
	StockRemaining int64     `json:"stock_remaining"`
	Featured       bool      `json:"featured"`
	AvailableFrom  time.Time `json:"available_from"`
	AvailableTo    time.Time `json:"available_to"`
	TimeLeft       string    `json:"time_left"`
}

type BlackMarketPurchaseInput struct {
	OfferID        int64
	BuyerID        string
	Currency       Currency
	IdempotencyKey string
}

type BlackMarketPurchaseResult struct {
	PurchaseID int64    `json:"purchase_id"`
	ItemID     int64    `json:"item_id"`
	OfferName  string   `json:"offer_name"`
	PricePaid  int64    `json:"price_paid"`
	Currency   Currency `json:"currency"`
}

type TransferInput struct {
	FromUserID     string
	ToUserID       string
	Amount         int64
	Currency       Currency
	Reason         string
	IdempotencyKey string
}

type TransferResult struct {
	Amount        int64    `json:"amount"`
	Fee           int64    `json:"fee"`
	Received      int64    `json:"received"`
	Currency      Currency `json:"currency"`
	SenderBalance int64    `json:"sender_balance"`
}

type RewardGrant struct {
	UserID         string
	Gold           int64
	Gems           int64
	XP             int64
	ItemID         int64
	Quantity       int64
	Reason         string
	IdempotencyKey string
}

type MarketStats struct {
	ActiveListings  int64          `json:"active_listings"`
	Transactions24h int64          `json:"transactions_24h"`
	GoldVolume24h   int64          `json:"gold_volume_24h"`
	TrendingItems   []TrendingItem `json:"trending_items"`
}

type TrendingItem struct {
	ItemID          int64   `json:"item_id"`
	ItemName        string  `json:"item_name"`
	PriceChange24h  float64 `json:"price_change_24h"`
	PopularityScore int     `json:"popularity_score"`
}

type WatchlistEntry struct {
	ItemID   int64  `json:"item_id"`
	ItemName string `json:"item_name"`
	MaxPrice int64  `json:"max_price,omitempty"`
}
