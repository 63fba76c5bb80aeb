// Package summary aggregates spending history. Pure read-aggregation,
// no state.
package summary

import (
	"context"
	"fmt"
	"sort"
	"time"

	"finassist/internal/ledger"
)

// Periods accepted by Spending.
const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

// CategoryAmount is one category with its total outgoing amount.
type CategoryAmount struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// Spending is the aggregation result for one window.
type Spending struct {
	Period        string           `json:"period"`
	Message       string           `json:"message"`
	TotalAmount   float64          `json:"total_amount"`
	Count         int              `json:"transactions_count"`
	TopCategories []CategoryAmount `json:"top_categories"`
	Breakdown     []CategoryAmount `json:"category_breakdown"`
}

// Advice is the affordability verdict for a prospective purchase.
type Advice struct {
	CanAfford       bool    `json:"can_afford"`
	Recommendation  string  `json:"recommendation"`
	Reason          string  `json:"reason"`
	CurrentBalance  float64 `json:"current_balance"`
	PurchaseAmount  float64 `json:"purchase_amount"`
	BalanceAfter    float64 `json:"balance_after_purchase"`
	MonthlyAverage  float64 `json:"monthly_average"`
	UnusualPurchase bool    `json:"unusual_purchase"`
}

// Aggregator computes spending summaries and budget advice over the ledger.
type Aggregator struct {
	store ledger.Store
	now   func() time.Time
}

// NewAggregator builds an Aggregator.
func NewAggregator(store ledger.Store) *Aggregator {
	return &Aggregator{store: store, now: time.Now}
}

// windowStart returns the start of the requested period and its display name.
func (a *Aggregator) windowStart(period string) (time.Time, string, error) {
	now := a.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch period {
	case PeriodDay:
		return midnight, "Today", nil
	case PeriodWeek:
		// Week starts Monday.
		offset := (int(now.Weekday()) + 6) % 7
		return midnight.AddDate(0, 0, -offset), "This week", nil
	case PeriodMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), "This month", nil
	case PeriodYear:
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location()), "This year", nil
	default:
		return time.Time{}, "", fmt.Errorf("unsupported period %q: use day, week, month or year", period)
	}
}

// Spending sums outgoing transactions over the window and breaks them down
// by category, reporting the top three categories by magnitude.
func (a *Aggregator) Spending(ctx context.Context, userID uint, period, category string) (*Spending, error) {
	start, name, err := a.windowStart(period)
	if err != nil {
		return nil, err
	}
	txs, err := a.store.QueryTransactions(ctx, ledger.Filter{
		UserID:   userID,
		Since:    start,
		Category: category,
		Outgoing: true,
	})
	if err != nil {
		return nil, err
	}
	result := &Spending{Period: name}
	if len(txs) == 0 {
		result.Message = fmt.Sprintf("No spending records for %s.", name)
		return result, nil
	}
	byCategory := make(map[string]float64)
	for _, t := range txs {
		amount := -t.Amount // Outgoing rows are negative
		result.TotalAmount += amount
		byCategory[t.Category] += amount
	}
	result.Count = len(txs)
	for cat, amount := range byCategory {
		result.Breakdown = append(result.Breakdown, CategoryAmount{Category: cat, Amount: amount})
	}
	sort.Slice(result.Breakdown, func(i, j int) bool {
		if result.Breakdown[i].Amount != result.Breakdown[j].Amount {
			return result.Breakdown[i].Amount > result.Breakdown[j].Amount
		}
		return result.Breakdown[i].Category < result.Breakdown[j].Category
	})
	top := len(result.Breakdown)
	if top > 3 {
		top = 3
	}
	result.TopCategories = result.Breakdown[:top]
	result.Message = fmt.Sprintf("Spending summary for %s.", name)
	return result, nil
}

// MonthlyAverage is the mean monthly outgoing total over the trailing
// three months.
func (a *Aggregator) MonthlyAverage(ctx context.Context, userID uint) (float64, error) {
	since := a.now().AddDate(0, 0, -90)
	txs, err := a.store.QueryTransactions(ctx, ledger.Filter{
		UserID:   userID,
		Since:    since,
		Outgoing: true,
	})
	if err != nil {
		return 0, err
	}
	if len(txs) == 0 {
		return 0, nil
	}
	var total float64
	months := make(map[string]struct{})
	for _, t := range txs {
		total += -t.Amount
		months[t.CreatedAt.Format("2006-01")] = struct{}{}
	}
	count := len(months)
	if count > 3 {
		count = 3
	}
	return total / float64(count), nil
}

// BudgetAdvice judges whether a purchase is affordable given the current
// balance and the user's usual monthly spending.
func (a *Aggregator) BudgetAdvice(ctx context.Context, userID uint, amount float64) (*Advice, error) {
	wallet, err := a.store.GetWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, fmt.Errorf("wallet not found for user %d", userID)
	}
	monthly, err := a.MonthlyAverage(ctx, userID)
	if err != nil {
		return nil, err
	}
	adv := &Advice{
		CurrentBalance: wallet.DebitBalance,
		PurchaseAmount: amount,
		MonthlyAverage: monthly,
		CanAfford:      wallet.DebitBalance >= amount,
		// More than 30% of the usual month counts as a large purchase.
		UnusualPurchase: monthly > 0 && amount > monthly*0.3,
	}
	if adv.CanAfford {
		adv.BalanceAfter = wallet.DebitBalance - amount
		if adv.UnusualPurchase {
			adv.Recommendation = "Purchase possible (with caution)"
			adv.Reason = fmt.Sprintf("You can afford the purchase, but it is large compared to your usual monthly spending (%.0f).", monthly)
		} else {
			adv.Recommendation = "Purchase possible"
			adv.Reason = "You can afford this purchase with your current balance."
		}
	} else {
		adv.BalanceAfter = wallet.DebitBalance
		adv.Recommendation = "Purchase difficult"
		adv.Reason = fmt.Sprintf("Your current balance (%.0f) is not enough to cover the purchase amount (%.0f).", wallet.DebitBalance, amount)
	}
	return adv, nil
}
