package fraud

import (
	"context"
	"testing"
	"time"

	"finassist/internal/domain"
	"finassist/internal/ledger/ledgertest"

	"github.com/stretchr/testify/require"
)

const largeThreshold = 1000000

func newTestDetector(store *ledgertest.Store) *Detector {
	d := NewDetector(store, largeThreshold)
	d.now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	return d
}

func TestEvaluateNoSignalsIsLow(t *testing.T) {
	store := ledgertest.New()
	store.AddTransaction(domain.Transaction{UserID: 1, Amount: -50, Recipient: "bob", CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)})
	d := newTestDetector(store)

	a, err := d.Evaluate(context.Background(), Input{SenderID: 1, Recipient: "bob", Amount: 40})
	require.NoError(t, err)
	require.Equal(t, Low, a.Level)
	require.Equal(t, "low", a.RiskLevel)
	require.False(t, a.Suspicious)
	require.Empty(t, a.Factors)
	require.NotEmpty(t, a.Recommendations)
}

func TestEvaluateLargeAmountIsMedium(t *testing.T) {
	store := ledgertest.New()
	store.AddTransaction(domain.Transaction{UserID: 1, Amount: -900000, Recipient: "bob", CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)})
	d := newTestDetector(store)

	a, err := d.Evaluate(context.Background(), Input{SenderID: 1, Recipient: "bob", Amount: largeThreshold})
	require.NoError(t, err)
	require.Equal(t, Medium, a.Level)
	require.Equal(t, FactorHighAmount, a.Factors[0].Kind)
}

func TestEvaluateUnusualAmountAgainstAverage(t *testing.T) {
	store := ledgertest.New()
	// Average of the trailing window is 100.
	for i := 0; i < 5; i++ {
		store.AddTransaction(domain.Transaction{UserID: 1, Amount: -100, Recipient: "bob", CreatedAt: time.Date(2025, 5, 1+i, 0, 0, 0, 0, time.UTC)})
	}
	d := newTestDetector(store)

	a, err := d.Evaluate(context.Background(), Input{SenderID: 1, Recipient: "bob", Amount: 600})
	require.NoError(t, err)
	require.Equal(t, Medium, a.Level)
	require.Equal(t, FactorUnusualAmount, a.Factors[0].Kind)
}

func TestEvaluateNewRecipientIsMedium(t *testing.T) {
	store := ledgertest.New()
	d := newTestDetector(store)

	a, err := d.Evaluate(context.Background(), Input{SenderID: 1, Recipient: "stranger", Amount: 40})
	require.NoError(t, err)
	require.Equal(t, Medium, a.Level)
	require.Equal(t, FactorNewRecipient, a.Factors[0].Kind)
}

func TestEvaluateNewRecipientWithLargeAmountIsHigh(t *testing.T) {
	store := ledgertest.New()
	d := newTestDetector(store)

	a, err := d.Evaluate(context.Background(), Input{SenderID: 1, Recipient: "stranger", Amount: largeThreshold})
	require.NoError(t, err)
	require.Equal(t, High, a.Level)

	kinds := factorKinds(a)
	require.Contains(t, kinds, FactorHighAmount)
	require.Contains(t, kinds, FactorNewRecipient)
}

func TestEvaluateRepeatedTransfersWithLargeAmountIsHigh(t *testing.T) {
	store := ledgertest.New()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	store.AddTransaction(domain.Transaction{UserID: 1, Amount: -10, Recipient: "bob", CreatedAt: now.Add(-2 * time.Hour)})
	store.AddTransaction(domain.Transaction{UserID: 1, Amount: -10, Recipient: "bob", CreatedAt: now.Add(-3 * time.Hour)})
	d := newTestDetector(store)

	a, err := d.Evaluate(context.Background(), Input{SenderID: 1, Recipient: "bob", Amount: largeThreshold})
	require.NoError(t, err)
	require.Equal(t, High, a.Level)
	require.Contains(t, factorKinds(a), FactorRepeatedTransfers)
}

func TestEvaluateRepeatedTransfersAloneIsMedium(t *testing.T) {
	store := ledgertest.New()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	store.AddTransaction(domain.Transaction{UserID: 1, Amount: -10, Recipient: "bob", CreatedAt: now.Add(-2 * time.Hour)})
	store.AddTransaction(domain.Transaction{UserID: 1, Amount: -10, Recipient: "bob", CreatedAt: now.Add(-3 * time.Hour)})
	d := newTestDetector(store)

	a, err := d.Evaluate(context.Background(), Input{SenderID: 1, Recipient: "bob", Amount: 15})
	require.NoError(t, err)
	require.Equal(t, Medium, a.Level)
}

func TestEvaluateSuspiciousKeywordsAreHighRegardlessOfAmount(t *testing.T) {
	store := ledgertest.New()
	store.AddTransaction(domain.Transaction{UserID: 1, Amount: -50, Recipient: "bob", CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)})
	d := newTestDetector(store)

	a, err := d.Evaluate(context.Background(), Input{
		SenderID:    1,
		Recipient:   "bob",
		Amount:      5,
		Description: "lottery winning, urgent",
	})
	require.NoError(t, err)
	require.Equal(t, High, a.Level)
	require.Contains(t, factorKinds(a), FactorSuspiciousKeyword)
}

func TestEvaluateAccountNumberRunIsMedium(t *testing.T) {
	store := ledgertest.New()
	store.AddTransaction(domain.Transaction{UserID: 1, Amount: -50, Recipient: "bob", CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)})
	d := newTestDetector(store)

	a, err := d.Evaluate(context.Background(), Input{
		SenderID:    1,
		Recipient:   "bob",
		Amount:      5,
		Description: "send to 12345678901234 please",
	})
	require.NoError(t, err)
	require.Equal(t, Medium, a.Level)
	require.Contains(t, factorKinds(a), FactorAccountNumber)

	// Nine digits are not an account number.
	a, err = d.Evaluate(context.Background(), Input{
		SenderID:    1,
		Recipient:   "bob",
		Amount:      5,
		Description: "order 123456789",
	})
	require.NoError(t, err)
	require.Equal(t, Low, a.Level)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	store := ledgertest.New()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	store.AddTransaction(domain.Transaction{UserID: 1, Amount: -10, Recipient: "bob", CreatedAt: now.Add(-2 * time.Hour)})
	d := newTestDetector(store)

	in := Input{SenderID: 1, Recipient: "stranger", Amount: 123456, Description: "rent 1234567890123"}
	first, err := d.Evaluate(context.Background(), in)
	require.NoError(t, err)
	second, err := d.Evaluate(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func factorKinds(a *Assessment) []string {
	kinds := make([]string, len(a.Factors))
	for i, f := range a.Factors {
		kinds[i] = f.Kind
	}
	return kinds
}
