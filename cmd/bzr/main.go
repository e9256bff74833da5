package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	cl "bazaar/internal/cli"
	"bazaar/internal/config"
	"bazaar/internal/syncq"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "bzr",
		Short:        "Bazaar trading client",
		SilenceUsage: true,
	}

	root.AddCommand(
		newSignupCmd(&apiBase),
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newWalletCmd(&apiBase),
		newInventoryCmd(&apiBase),
		newMarketCmd(&apiBase),
		newPriceCmd(&apiBase),
		newWatchCmd(&apiBase),
		newTradesCmd(&apiBase),
		newBlackMarketCmd(&apiBase),
		newRepCmd(&apiBase),
		newSyncCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func requireSession() (cl.Session, error) {
	sess, err := cl.LoadSession()
	if err != nil {
		return cl.Session{}, fmt.Errorf("login required: %w", err)
	}
	return sess, nil
}

func cmdContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}

func newSignupCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "signup",
		Short: "Create a Bazaar account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			session, err := newClient(apiBase).Signup(ctx, email, password)
			if err != nil {
				return err
			}
			if strings.TrimSpace(session.AccessToken) == "" {
				printWarn("Signup created. Verify email, then run `bzr login`.")
				return nil
			}
			if err := cl.SaveSession(cl.Session{
				AccessToken:  session.AccessToken,
				RefreshToken: session.RefreshToken,
				Email:        session.User.Email,
				UserID:       session.User.ID,
			}); err != nil {
				return err
			}
			printSuccess("Signup complete. Session saved.")
			return nil
		},
	}
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Login to Bazaar",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			session, err := newClient(apiBase).Login(ctx, email, password)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{
				AccessToken:  session.AccessToken,
				RefreshToken: session.RefreshToken,
				Email:        session.User.Email,
				UserID:       session.User.ID,
			}); err != nil {
				return err
			}
			printSuccess("Login successful.")
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear local session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newWalletCmd(apiBase *string) *cobra.Command {
	wallet := &cobra.Command{
		Use:   "wallet",
		Short: "Wallet commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Wallet(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderWallet(out)
		},
	}

	wallet.AddCommand(&cobra.Command{
		Use:   "ledger",
		Short: "Show recent ledger entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Ledger(ctx, sess.AccessToken, 50)
			if err != nil {
				return err
			}
			return renderLedger(out)
		},
	})

	wallet.AddCommand(&cobra.Command{
		Use:   "send [user-id]",
		Short: "Transfer gold or gems to another user",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			toUserID := ""
			if len(args) > 0 {
				toUserID = strings.TrimSpace(args[0])
			}
			if toUserID == "" {
				toUserID, err = promptRequired("Recipient user ID")
				if err != nil {
					return err
				}
			}
			amount, err := promptInt64("Amount", 1)
			if err != nil {
				return err
			}
			currency, err := promptChoice("Currency", []string{"gold", "gems"}, "gold")
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			body := map[string]any{
				"to_user_id": toUserID,
				"amount":     amount,
				"currency":   currency,
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Transfer(ctx, sess.AccessToken, toUserID, amount, currency, "", idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           "/v1/wallet/transfer",
					Body:           body,
					IdempotencyKey: idem,
				})
			}
			return renderTransfer(out)
		},
	})
	return wallet
}

func newInventoryCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "inv",
		Short: "Show your inventory",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Inventory(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderInventory(out)
		},
	}
}

func newMarketCmd(apiBase *string) *cobra.Command {
	market := &cobra.Command{
		Use:   "market",
		Short: "Marketplace commands",
	}

	market.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Browse active listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			q := url.Values{}
			search, err := promptOptional("Search (optional)")
			if err != nil {
				return err
			}
			if search != "" {
				q.Set("search", search)
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).BrowseListings(ctx, sess.AccessToken, q)
			if err != nil {
				return err
			}
			return renderListings(out)
		},
	})

	market.AddCommand(&cobra.Command{
		Use:   "sell [item-id]",
		Short: "List an item for sale",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			itemID, err := int64FromArgsOrPrompt(args, "Item ID")
			if err != nil {
				return err
			}
			quantity, err := promptInt64("Quantity", 1)
			if err != nil {
				return err
			}
			price, err := promptInt64("Price per unit (0 = recommended)", 0)
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			body := map[string]any{
				"item_id":        itemID,
				"quantity":       quantity,
				"price_per_unit": price,
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).CreateListing(ctx, sess.AccessToken, body, idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           "/v1/market/listings",
					Body:           body,
					IdempotencyKey: idem,
				})
			}
			return renderListingCreated(out)
		},
	})

	market.AddCommand(&cobra.Command{
		Use:   "buy [listing-id]",
		Short: "Buy from a listing",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			listingID, err := int64FromArgsOrPrompt(args, "Listing ID")
			if err != nil {
				return err
			}
			quantity, err := promptInt64("Quantity", 1)
			if err != nil {
				return err
			}
			currency, err := promptChoice("Currency", []string{"gold", "gems"}, "gold")
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			body := map[string]any{
				"quantity": quantity,
				"currency": currency,
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).BuyListing(ctx, sess.AccessToken, listingID, quantity, currency, idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           fmt.Sprintf("/v1/market/listings/%d/buy", listingID),
					Body:           body,
					IdempotencyKey: idem,
				})
			}
			return renderPurchase(out)
		},
	})

	market.AddCommand(&cobra.Command{
		Use:   "cancel [listing-id]",
		Short: "Cancel your listing",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			listingID, err := int64FromArgsOrPrompt(args, "Listing ID")
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			if _, err := newClient(apiBase).CancelListing(ctx, sess.AccessToken, listingID); err != nil {
				return err
			}
			printSuccess("Listing cancelled. Items returned to inventory.")
			return nil
		},
	})

	market.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Market overview",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).MarketStats(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderMarketStats(out)
		},
	})
	return market
}

func newPriceCmd(apiBase *string) *cobra.Command {
	price := &cobra.Command{
		Use:   "price [item-id]",
		Short: "Recommended price and demand for an item",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			itemID, err := int64FromArgsOrPrompt(args, "Item ID")
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).RecommendedPrice(ctx, sess.AccessToken, itemID)
			if err != nil {
				return err
			}
			return renderPriceQuote(out)
		},
	}

	price.AddCommand(&cobra.Command{
		Use:   "history [item-id]",
		Short: "Price history snapshots",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			itemID, err := int64FromArgsOrPrompt(args, "Item ID")
			if err != nil {
				return err
			}
			period, err := promptChoice("Period", []string{"daily", "weekly", "monthly"}, "daily")
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).PriceHistory(ctx, sess.AccessToken, itemID, strings.ToUpper(period))
			if err != nil {
				return err
			}
			return renderPriceHistory(out)
		},
	})
	return price
}

func newWatchCmd(apiBase *string) *cobra.Command {
	watch := &cobra.Command{
		Use:   "watch",
		Short: "Watchlist commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Watchlist(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderWatchlist(out)
		},
	}

	watch.AddCommand(&cobra.Command{
		Use:   "add [item-id]",
		Short: "Add an item to your watchlist",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			itemID, err := int64FromArgsOrPrompt(args, "Item ID")
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			if _, err := newClient(apiBase).Watch(ctx, sess.AccessToken, itemID, 0); err != nil {
				return err
			}
			printSuccess("Added to watchlist.")
			return nil
		},
	})

	watch.AddCommand(&cobra.Command{
		Use:   "rm [item-id]",
		Short: "Remove an item from your watchlist",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			itemID, err := int64FromArgsOrPrompt(args, "Item ID")
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			if _, err := newClient(apiBase).Unwatch(ctx, sess.AccessToken, itemID); err != nil {
				return err
			}
			printSuccess("Removed from watchlist.")
			return nil
		},
	})
	return watch
}

func newTradesCmd(apiBase *string) *cobra.Command {
	trades := &cobra.Command{
		Use:   "trades",
		Short: "P2P trade commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).ListTrades(ctx, sess.AccessToken, "")
			if err != nil {
				return err
			}
			return renderTrades(out, sess.UserID)
		},
	}

	trades.AddCommand(&cobra.Command{
		Use:   "offer [user-id]",
		Short: "Propose a trade",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			recipient := ""
			if len(args) > 0 {
				recipient = strings.TrimSpace(args[0])
			}
			if recipient == "" {
				recipient, err = promptRequired("Recipient user ID")
				if err != nil {
					return err
				}
			}
			offered, err := promptTradeLines("Offered items (item:qty, comma separated)")
			if err != nil {
				return err
			}
			requested, err := promptTradeLines("Requested items (item:qty, comma separated, empty = gift)")
			if err != nil {
				return err
			}
			message, err := promptOptional("Message (optional)")
			if err != nil {
				return err
			}
			idem := uuid.NewString()
			body := map[string]any{
				"recipient_id":    recipient,
				"offered_items":   offered,
				"requested_items": requested,
				"message":         message,
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).ProposeTrade(ctx, sess.AccessToken, body, idem)
			if err != nil {
				return queueOnNetworkError(err, syncq.Command{
					Method:         "POST",
					Path:           "/v1/trades",
					Body:           body,
					IdempotencyKey: idem,
				})
			}
			return renderTradeCreated(out)
		},
	})

	trades.AddCommand(newTradeActionCmd(apiBase, "accept", "Accept a pending trade"))
	trades.AddCommand(newTradeActionCmd(apiBase, "reject", "Reject a pending trade"))
	trades.AddCommand(newTradeActionCmd(apiBase, "cancel", "Cancel a trade you proposed"))
	return trades
}

func newTradeActionCmd(apiBase *string, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " [trade-id]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			tradeID, err := int64FromArgsOrPrompt(args, "Trade ID")
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			client := newClient(apiBase)
			switch action {
			case "accept":
				out, err := client.AcceptTrade(ctx, sess.AccessToken, tradeID, uuid.NewString())
				if err != nil {
					return err
				}
				return renderTradeCompleted(out)
			case "reject":
				if _, err := client.RejectTrade(ctx, sess.AccessToken, tradeID); err != nil {
					return err
				}
				printSuccess("Trade rejected.")
			case "cancel":
				if _, err := client.CancelTrade(ctx, sess.AccessToken, tradeID); err != nil {
					return err
				}
				printSuccess("Trade cancelled.")
			}
			return nil
		},
	}
}

func newBlackMarketCmd(apiBase *string) *cobra.Command {
	bm := &cobra.Command{
		Use:     "blackmarket",
		Aliases: []string{"bm"},
		Short:   "Black market commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).BlackMarket(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderBlackMarket(out)
		},
	}

	bm.AddCommand(&cobra.Command{
		Use:   "buy [offer-id]",
		Short: "Buy a black market offer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			offerID, err := int64FromArgsOrPrompt(args, "Offer ID")
			if err != nil {
				return err
			}
			currency, err := promptChoice("Currency", []string{"gold", "gems"}, "gold")
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).BuyBlackMarket(ctx, sess.AccessToken, offerID, currency, uuid.NewString())
			if err != nil {
				return err
			}
			return renderBlackMarketPurchase(out)
		},
	})
	return bm
}

func newRepCmd(apiBase *string) *cobra.Command {
	rep := &cobra.Command{
		Use:   "rep",
		Short: "Your trading reputation",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).Reputation(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderReputation(out)
		},
	}

	rep.AddCommand(&cobra.Command{
		Use:   "top",
		Short: "Top traders leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			ctx, cancel := cmdContext(cmd)
			defer cancel()
			out, err := newClient(apiBase).TopTraders(ctx, sess.AccessToken)
			if err != nil {
				return err
			}
			return renderTopTraders(out)
		},
	})
	return rep
}

func newSyncCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay locally queued offline writes",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := requireSession()
			if err != nil {
				return err
			}
			queue, err := syncq.Load()
			if err != nil {
				return err
			}
			if len(queue) == 0 {
				printInfo("Sync queue is empty.")
				return nil
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			remaining := make([]syncq.Command, 0, len(queue))
			replayed := 0
			for _, q := range queue {
				_, err := client.Do(ctx, q.Method, q.Path, sess.AccessToken, q.Body, q.IdempotencyKey)
				if err != nil {
					remaining = append(remaining, q)
					printError(fmt.Sprintf("Sync failed for %s %s: %v", q.Method, q.Path, err))
					continue
				}
				replayed++
			}
			if err := syncq.Save(remaining); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Sync complete: replayed=%d remaining=%d", replayed, len(remaining)))
			return nil
		},
	}
}

func int64FromArgsOrPrompt(args []string, label string) (int64, error) {
	if len(args) > 0 {
		v, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
		if err == nil {
			return v, nil
		}
		printWarn("Invalid " + strings.ToLower(label) + ".")
	}
	return promptInt64(label, 1)
}

func promptTradeLines(label string) ([]map[string]any, error) {
	text, err := promptOptional(label)
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.SplitN(part, ":", 2)
		itemID, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid item id %q", fields[0])
		}
		qty := int64(1)
		if len(fields) == 2 {
			qty, err = strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid quantity %q", fields[1])
			}
		}
		out = append(out, map[string]any{"item_id": itemID, "quantity": qty})
	}
	return out, nil
}

func queueOnNetworkError(err error, cmd syncq.Command) error {
	if !isNetworkError(err) {
		return err
	}
	if pushErr := syncq.Push(cmd); pushErr != nil {
		return fmt.Errorf("%v (queue failed: %v)", err, pushErr)
	}
	printWarn(fmt.Sprintf("API unreachable. Queued %s %s for `bzr sync`.", cmd.Method, cmd.Path))
	return nil
}

func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return !strings.Contains(msg, "api status ")
}
