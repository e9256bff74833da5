package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"bazaar/internal/economy"

	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

type ledgerPayload struct {
	Entries []economy.LedgerEntry `json:"entries"`
}

type inventoryPayload struct {
	Inventory []economy.InventoryRow `json:"inventory"`
}

type historyPayload struct {
	History []economy.PriceHistoryRow `json:"history"`
}

type watchlistPayload struct {
	Watchlist []economy.WatchlistEntry `json:"watchlist"`
}

type tradesPayload struct {
	Trades []economy.TradeView `json:"trades"`
}

type blackMarketPayload struct {
	Offers []economy.BlackMarketOfferView `json:"offers"`
}

type topTradersPayload struct {
	Traders []economy.ReputationView `json:"traders"`
}

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptOptional(label string) (string, error) {
	fmt.Printf("%s: ", label)
	text, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func promptChoice(label string, options []string, defaultValue string) (string, error) {
	normalized := make(map[string]struct{}, len(options))
	for _, opt := range options {
		normalized[strings.ToLower(strings.TrimSpace(opt))] = struct{}{}
	}
	for {
		fmt.Printf("%s (%s) [%s]: ", label, strings.Join(options, "/"), defaultValue)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			text = strings.ToLower(strings.TrimSpace(defaultValue))
		}
		if _, ok := normalized[text]; ok {
			return text, nil
		}
		printWarn("Invalid option. Please pick one of the listed values.")
	}
}

func promptInt64(label string, min int64) (int64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			printWarn("Enter a whole number.")
			continue
		}
		if v < min {
			printWarn(fmt.Sprintf("Value must be >= %d", min))
			continue
		}
		return v, nil
	}
}

func renderWallet(raw map[string]any) error {
	w, err := decodeInto[economy.Wallet](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== WALLET ==")
	fmt.Printf("Gold: %s\n", comma(w.Gold))
	fmt.Printf("Gems: %s\n", comma(w.Gems))
	fmt.Println()
	return nil
}

func renderLedger(raw map[string]any) error {
	payload, err := decodeInto[ledgerPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== LEDGER ==")
	if len(payload.Entries) == 0 {
		printInfo("No ledger entries yet.")
		return nil
	}
	fmt.Printf("%-20s %12s %-6s %-8s %-40s\n", "TIME", "AMOUNT", "CCY", "KIND", "REASON")
	for _, e := range payload.Entries {
		fmt.Printf("%-20s %12s %-6s %-8s %-40s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			colorizeAmount(e.Amount),
			e.Currency,
			e.Kind,
			truncate(e.Reason, 40),
		)
	}
	fmt.Println()
	return nil
}

func renderTransfer(raw map[string]any) error {
	out, err := decodeInto[economy.TransferResult](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== TRANSFER ==")
	fmt.Printf("Sent:     %s %s\n", comma(out.Amount), out.Currency)
	fmt.Printf("Fee:      %s\n", comma(out.Fee))
	fmt.Printf("Received: %s\n", comma(out.Received))
	fmt.Printf("Balance:  %s\n", comma(out.SenderBalance))
	fmt.Println()
	return nil
}

func renderInventory(raw map[string]any) error {
	payload, err := decodeInto[inventoryPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== INVENTORY ==")
	if len(payload.Inventory) == 0 {
		printInfo("Your inventory is empty.")
		return nil
	}
	fmt.Printf("%-6s %-28s %-10s %8s\n", "ID", "ITEM", "RARITY", "QTY")
	for _, row := range payload.Inventory {
		fmt.Printf("%-6d %-28s %-10s %8d\n",
			row.ItemID, truncate(row.ItemName, 28), row.Rarity, row.Quantity)
	}
	fmt.Println()
	return nil
}

func renderListings(raw map[string]any) error {
	page, err := decodeInto[economy.ListingPage](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== MARKETPLACE (page %d/%d, %d total) ==\n", page.Page, page.TotalPages, page.Total)
	if len(page.Listings) == 0 {
		printInfo("No active listings.")
		return nil
	}
	fmt.Printf("%-6s %-24s %8s %12s %10s %-10s\n", "ID", "ITEM", "QTY", "PRICE", "GEMS", "EXPIRES")
	for _, l := range page.Listings {
		expires := "-"
		if l.ExpiresAt != nil {
			expires = l.ExpiresAt.Local().Format("01-02 15:04")
		}
		fmt.Printf("%-6d %-24s %8d %12s %10d %-10s\n",
			l.ID, truncate(l.ItemName, 24), l.Quantity, comma(l.PricePerUnit), l.GemPrice, expires)
	}
	fmt.Println()
	return nil
}

func renderListingCreated(raw map[string]any) error {
	l, err := decodeInto[economy.ListingView](raw)
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Listing #%d created: %dx %s @ %s gold",
		l.ID, l.Quantity, l.ItemName, comma(l.PricePerUnit)))
	return nil
}

func renderPurchase(raw map[string]any) error {
	out, err := decodeInto[economy.BuyListingResult](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== PURCHASE ==")
	fmt.Printf("Item:    %s\n", out.Listing.ItemName)
	fmt.Printf("Paid:    %s %s\n", comma(out.TotalPrice), out.Currency)
	fmt.Printf("Balance: %s\n", comma(out.BuyerBalance))
	fmt.Println()
	return nil
}

func renderMarketStats(raw map[string]any) error {
	out, err := decodeInto[economy.MarketStats](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== MARKET STATS (24h) ==")
	fmt.Printf("Active listings: %d\n", out.ActiveListings)
	fmt.Printf("Transactions:    %d\n", out.Transactions24h)
	fmt.Printf("Gold volume:     %s\n", comma(out.GoldVolume24h))
	if len(out.TrendingItems) > 0 {
		fmt.Println()
		accent.Println("Trending")
		fmt.Printf("%-6s %-24s %10s %8s\n", "ID", "ITEM", "CHANGE", "POP")
		for _, t := range out.TrendingItems {
			fmt.Printf("%-6d %-24s %10s %8d\n",
				t.ItemID, truncate(t.ItemName, 24), colorizePercent(t.PriceChange24h), t.PopularityScore)
		}
	}
	fmt.Println()
	return nil
}

func renderPriceQuote(raw map[string]any) error {
	q, err := decodeInto[economy.PriceQuote](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== %s ==\n", q.ItemName)
	fmt.Printf("Rarity:       %s (x%.0f)\n", q.Rarity, q.RarityMultiplier)
	fmt.Printf("Base price:   %s\n", comma(q.BasePrice))
	fmt.Printf("Recommended:  %s (%s - %s)\n", comma(q.RecommendedPrice), comma(q.MinRecommended), comma(q.MaxRecommended))
	fmt.Printf("Market avg:   %s\n", comma(q.CurrentAvgPrice))
	fmt.Printf("Demand:       x%.2f\n", q.DemandMultiplier)
	fmt.Printf("Popularity:   %d/100\n", q.PopularityScore)
	fmt.Printf("Trend:        %s (%s)\n", q.Trend, colorizePercent(q.PriceChange24h))
	fmt.Println()
	printInfo(q.Advice)
	fmt.Println()
	return nil
}

func renderPriceHistory(raw map[string]any) error {
	payload, err := decodeInto[historyPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== PRICE HISTORY ==")
	if len(payload.History) == 0 {
		printInfo("No history recorded yet.")
		return nil
	}
	fmt.Printf("%-16s %10s %10s %10s %10s %8s\n", "PERIOD START", "AVG", "MEDIAN", "LOW", "HIGH", "SOLD")
	for _, h := range payload.History {
		fmt.Printf("%-16s %10s %10s %10s %10s %8d\n",
			h.PeriodStart.Local().Format("2006-01-02 15:04"),
			comma(h.AveragePrice), comma(h.MedianPrice),
			comma(h.LowestPrice), comma(h.HighestPrice), h.TotalSold)
	}
	fmt.Println()
	return nil
}

func renderWatchlist(raw map[string]any) error {
	payload, err := decodeInto[watchlistPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== WATCHLIST ==")
	if len(payload.Watchlist) == 0 {
		printInfo("Watchlist is empty.")
		return nil
	}
	fmt.Printf("%-6s %-28s %12s\n", "ID", "ITEM", "MAX PRICE")
	for _, w := range payload.Watchlist {
		maxPrice := "-"
		if w.MaxPrice > 0 {
			maxPrice = comma(w.MaxPrice)
		}
		fmt.Printf("%-6d %-28s %12s\n", w.ItemID, truncate(w.ItemName, 28), maxPrice)
	}
	fmt.Println()
	return nil
}

func renderTrades(raw map[string]any, selfID string) error {
	payload, err := decodeInto[tradesPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== TRADES ==")
	if len(payload.Trades) == 0 {
		printInfo("No trades yet.")
		return nil
	}
	for _, t := range payload.Trades {
		direction := "incoming from " + t.RequesterID
		if t.RequesterID == selfID {
			direction = "outgoing to " + t.RecipientID
		}
		fmt.Printf("#%-5d %-10s %s\n", t.ID, t.Status, direction)
		for _, it := range t.Items {
			arrow := "they get"
			if !it.IsOffered {
				arrow = "they give"
			}
			if t.RequesterID == selfID {
				if it.IsOffered {
					arrow = "you give"
				} else {
					arrow = "you get"
				}
			}
			fmt.Printf("       %-9s %dx %s\n", arrow, it.Quantity, it.ItemName)
		}
	}
	fmt.Println()
	return nil
}

func renderTradeCreated(raw map[string]any) error {
	t, err := decodeInto[economy.TradeView](raw)
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Trade #%d sent to %s.", t.ID, t.RecipientID))
	return nil
}

func renderTradeCompleted(raw map[string]any) error {
	t, err := decodeInto[economy.TradeView](raw)
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Trade #%d completed. Items exchanged.", t.ID))
	return nil
}

func renderBlackMarket(raw map[string]any) error {
	payload, err := decodeInto[blackMarketPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== BLACK MARKET ==")
	if len(payload.Offers) == 0 {
		printInfo("Nothing on offer right now. Check back later.")
		return nil
	}
	fmt.Printf("%-6s %-24s %-10s %10s %8s %8s %-10s\n", "ID", "ITEM", "RARITY", "PRICE", "DISC", "STOCK", "ENDS")
	for _, o := range payload.Offers {
		fmt.Printf("%-6d %-24s %-10s %10s %7d%% %8d %-10s\n",
			o.ID, truncate(o.Name, 24), o.Rarity, comma(o.FinalPrice),
			o.Discount, o.StockRemaining, o.TimeLeft)
	}
	fmt.Println()
	return nil
}

func renderBlackMarketPurchase(raw map[string]any) error {
	out, err := decodeInto[economy.BlackMarketPurchaseResult](raw)
	if err != nil {
		return err
	}
	printSuccess(fmt.Sprintf("Bought %s for %s %s.", out.OfferName, comma(out.PricePaid), out.Currency))
	return nil
}

func renderReputation(raw map[string]any) error {
	rep, err := decodeInto[economy.ReputationView](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== REPUTATION ==")
	fmt.Printf("Trust score:  %d/100\n", rep.TrustScore)
	fmt.Printf("Sales:        %d\n", rep.TotalSales)
	fmt.Printf("Purchases:    %d\n", rep.TotalPurchases)
	fmt.Printf("Gold earned:  %s\n", comma(rep.TotalGoldEarned))
	fmt.Printf("Gold spent:   %s\n", comma(rep.TotalGoldSpent))
	if rep.LastTradeAt != nil {
		fmt.Printf("Last trade:   %s\n", rep.LastTradeAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Println()
	return nil
}

func renderTopTraders(raw map[string]any) error {
	payload, err := decodeInto[topTradersPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\n== TOP TRADERS ==")
	if len(payload.Traders) == 0 {
		printInfo("No traders ranked yet.")
		return nil
	}
	fmt.Printf("%-6s %-38s %8s %8s %8s\n", "RANK", "USER", "TRUST", "SALES", "BUYS")
	for i, t := range payload.Traders {
		fmt.Printf("%-6d %-38s %8d %8d %8d\n",
			i+1, truncate(t.UserID, 38), t.TrustScore, t.TotalSales, t.TotalPurchases)
	}
	fmt.Println()
	return nil
}

func decodeInto[T any](in any) (T, error) {
	var out T
	raw, err := json.Marshal(in)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func colorizeAmount(v int64) string {
	text := comma(v)
	if v > 0 {
		text = "+" + text
	}
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func colorizePercent(v float64) string {
	text := fmt.Sprintf("%+.2f%%", v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func comma(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return sign + s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		if len(s) > pre {
			b.WriteByte(',')
		}
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return sign + b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
