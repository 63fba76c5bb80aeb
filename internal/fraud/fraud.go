package fraud

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"finassist/internal/ledger" // Ledger store for history lookups
)

// Level is the risk tier of a prospective transfer.
type Level int

// Risk tiers, ordered by severity.
const (
	Low Level = iota
	Medium
	High
)

// String returns the wire name of the level.
func (l Level) String() string {
	switch l {
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

// Factor kinds surfaced in an assessment.
const (
	FactorHighAmount        = "high_amount"
	FactorUnusualAmount     = "unusual_amount"
	FactorNewRecipient      = "new_recipient"
	FactorRepeatedTransfers = "repeated_transfers"
	FactorSuspiciousKeyword = "suspicious_keywords"
	FactorAccountNumber     = "account_number"
)

// Factor is one risk signal with a human-readable message.
type Factor struct {
	Kind    string `json:"type"`
	Message string `json:"message"`
}

// Assessment is the result of evaluating a prospective transfer.
type Assessment struct {
	Level           Level    `json:"-"`
	RiskLevel       string   `json:"risk_level"`
	Suspicious      bool     `json:"is_suspicious"`
	Factors         []Factor `json:"risk_factors"`
	Recommendations []string `json:"recommendations"`
}

// Input describes the transfer to score. Recipient and Description are
// optional, the corresponding checks are skipped when empty.
type Input struct {
	SenderID    uint
	Recipient   string
	Amount      float64
	Description string
}

// Suspicious keywords, matched case-insensitively as substrings.
// Covers urgency, secrecy, prizes, crypto, fees and inheritance scams.
var suspiciousKeywords = []string{
	"immediate", "urgent", "investment", "secret", "security",
	"account confirmation", "deposit request", "winning", "prize",
	"bitcoin", "cryptocurrency", "fee", "advance payment",
	"foreign remittance", "inheritance", "lottery", "estate",
	"voice phishing", "instant deposit",
}

// A 10-14 digit run looks like an account number.
var accountNumberPattern = regexp.MustCompile(`[0-9]{10,14}`)

// trailingWindow is how many recent rows feed the average-amount check.
const trailingWindow = 30

// Detector scores prospective transfers against configured thresholds and
// the sender's history. It has no side effects: given identical inputs and
// identical ledger history, the result is identical.
type Detector struct {
	store          ledger.Store
	largeThreshold float64
	now            func() time.Time
}

// NewDetector builds a Detector. largeThreshold is the amount at or above
// which a transfer counts as large.
func NewDetector(store ledger.Store, largeThreshold float64) *Detector {
	return &Detector{store: store, largeThreshold: largeThreshold, now: time.Now}
}

// Evaluate scores a prospective transfer into a risk tier. Rules are checked
// independently and combined by taking the maximum severity reached. Lookup
// failures are returned as errors, never folded into the tier.
func (d *Detector) Evaluate(ctx context.Context, in Input) (*Assessment, error) {
	a := &Assessment{Level: Low}

	// Amount checks.
	if in.Amount > 0 {
		if in.Amount >= d.largeThreshold {
			a.add(Medium, Factor{
				Kind:    FactorHighAmount,
				Message: fmt.Sprintf("High value transaction (%.2f).", in.Amount),
			})
		}
		avg, err := d.averageAmount(ctx, in.SenderID)
		if err != nil {
			return nil, err
		}
		if avg > 0 && in.Amount > avg*5 {
			a.add(Medium, Factor{
				Kind:    FactorUnusualAmount,
				Message: fmt.Sprintf("Much larger than the usual transaction amount (%.0f).", avg),
			})
		}
	}

	// Recipient checks.
	if in.Recipient != "" {
		history, err := d.store.QueryTransactions(ctx, ledger.Filter{
			UserID:    in.SenderID,
			Recipient: in.Recipient,
		})
		if err != nil {
			return nil, err
		}
		if len(history) == 0 {
			level := Medium
			// A first-time recipient plus a large amount is the classic scam shape.
			if a.Level >= Medium || in.Amount >= d.largeThreshold {
				level = High
			}
			a.add(level, Factor{
				Kind:    FactorNewRecipient,
				Message: fmt.Sprintf("First-time transfer to '%s'.", in.Recipient),
			})
		}
		recent, err := d.store.QueryTransactions(ctx, ledger.Filter{
			UserID:    in.SenderID,
			Recipient: in.Recipient,
			Since:     d.now().Add(-24 * time.Hour),
		})
		if err != nil {
			return nil, err
		}
		if len(recent) >= 2 {
			level := Medium
			if in.Amount >= d.largeThreshold {
				level = High
			}
			a.add(level, Factor{
				Kind:    FactorRepeatedTransfers,
				Message: fmt.Sprintf("%d transfers to '%s' in the last 24 hours.", len(recent), in.Recipient),
			})
		}
	}

	// Description checks.
	if in.Description != "" {
		lowered := strings.ToLower(in.Description)
		var found []string
		for _, kw := range suspiciousKeywords {
			if strings.Contains(lowered, kw) {
				found = append(found, kw)
			}
		}
		if len(found) > 0 {
			a.add(High, Factor{
				Kind:    FactorSuspiciousKeyword,
				Message: "Suspicious keywords found: " + strings.Join(found, ", "),
			})
		}
		if accountNumberPattern.MatchString(in.Description) {
			a.add(Medium, Factor{
				Kind:    FactorAccountNumber,
				Message: "Message contains a number that may be an account number.",
			})
		}
	}

	a.RiskLevel = a.Level.String()
	a.Suspicious = a.Level != Low
	a.Recommendations = recommendationsFor(a.Level)
	return a, nil
}

// add records a factor and raises the level if the factor's severity is higher.
func (a *Assessment) add(level Level, f Factor) {
	a.Factors = append(a.Factors, f)
	if level > a.Level {
		a.Level = level
	}
}

// averageAmount is the mean absolute amount over the sender's trailing window.
func (d *Detector) averageAmount(ctx context.Context, senderID uint) (float64, error) {
	txs, err := d.store.QueryTransactions(ctx, ledger.Filter{UserID: senderID, Limit: trailingWindow})
	if err != nil {
		return 0, err
	}
	if len(txs) == 0 {
		return 0, nil
	}
	var total float64
	for _, t := range txs {
		if t.Amount < 0 {
			total -= t.Amount
		} else {
			total += t.Amount
		}
	}
	return total / float64(len(txs)), nil
}

func recommendationsFor(level Level) []string {
	switch level {
	case High:
		return []string{
			"Contact the recipient directly to confirm before proceeding with the transaction.",
			"Report suspicious transactions to your financial institution or the police.",
			"Double-check that the recipient account is correct.",
		}
	case Medium:
		return []string{
			"Double-check the transaction information.",
			"Verify that the recipient is correct.",
			"Confirm that the amount is accurate.",
		}
	default:
		return []string{
			"This appears to be a safe transaction.",
			"It's always good to review your transaction history.",
		}
	}
}
