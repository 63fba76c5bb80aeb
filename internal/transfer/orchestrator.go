package transfer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"finassist/internal/domain"
	"finassist/internal/fraud"
	"finassist/internal/ledger"

	"github.com/google/uuid"     // Transfer tokens
	"github.com/sirupsen/logrus" // Logging library
)

// NoteSink receives committed transaction rows for note indexing.
// Indexing is best-effort and never blocks a commit.
type NoteSink interface {
	SaveNoteEmbedding(ctx context.Context, t *domain.Transaction) error
}

// DefaultPendingTTL is how long a staged transfer stays confirmable.
const DefaultPendingTTL = 5 * time.Minute

// Fixed affirmative vocabulary for confirm responses. Anything else cancels.
var affirmatives = map[string]struct{}{
	"yes": {}, "confirm": {}, "approve": {}, "ok": {}, "okay": {},
	"sure": {}, "proceed": {}, "execute": {}, "confirmed": {},
}

// StageResult is returned by Prepare.
type StageResult struct {
	Token            string            `json:"transfer_id"`
	Prompt           string            `json:"message"`
	Amount           float64           `json:"amount"`
	RecipientName    string            `json:"recipient_name"`
	ProjectedBalance float64           `json:"projected_balance"`
	Assessment       *fraud.Assessment `json:"assessment,omitempty"`
}

// ConfirmResult is returned by Confirm and Cancel.
type ConfirmResult struct {
	Confirmed     bool    `json:"confirmed"`
	Message       string  `json:"message"`
	TransactionID uint    `json:"transaction_id,omitempty"`
	NewBalance    float64 `json:"new_balance"`
}

// Orchestrator drives the transfer confirmation protocol:
// stage -> fraud check -> confirm/cancel -> atomic commit.
type Orchestrator struct {
	store    ledger.Store
	detector *fraud.Detector
	pending  *pendingStore
	notes    NoteSink // optional
}

// NewOrchestrator builds an Orchestrator. notes may be nil.
func NewOrchestrator(store ledger.Store, detector *fraud.Detector, pendingTTL time.Duration, notes NoteSink) *Orchestrator {
	if pendingTTL <= 0 {
		pendingTTL = DefaultPendingTTL
	}
	return &Orchestrator{
		store:    store,
		detector: detector,
		pending:  newPendingStore(pendingTTL),
		notes:    notes,
	}
}

// validated holds everything Prepare and Execute need after validation.
type validated struct {
	sender       *domain.User
	recipient    *domain.User
	senderWallet *domain.Wallet
	assessment   *fraud.Assessment
}

// validate runs the shared stage-time checks: positive amount, both wallets
// present, sufficient funds, and the mandatory fraud evaluation with a hard
// gate on high risk. Medium risk passes through as an advisory.
func (o *Orchestrator) validate(ctx context.Context, senderID, recipientID uint, amount float64, description string) (*validated, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, ErrValidation
	}
	if senderID == recipientID {
		return nil, fmt.Errorf("%w: cannot transfer to yourself", ErrValidation)
	}
	sender, err := o.store.GetUser(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if sender == nil {
		return nil, fmt.Errorf("%w: sender %d", ErrNotFound, senderID)
	}
	recipient, err := o.store.GetUser(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if recipient == nil {
		return nil, fmt.Errorf("%w: recipient %d", ErrNotFound, recipientID)
	}
	senderWallet, err := o.store.GetWallet(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if senderWallet == nil {
		return nil, fmt.Errorf("%w: sender wallet", ErrNotFound)
	}
	recipientWallet, err := o.store.GetWallet(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if recipientWallet == nil {
		return nil, fmt.Errorf("%w: recipient wallet", ErrNotFound)
	}
	// Sufficient iff not strictly less.
	if senderWallet.DebitBalance < amount {
		return nil, fmt.Errorf("%w: balance %.2f, required %.2f", ErrInsufficientFunds, senderWallet.DebitBalance, amount)
	}
	assessment, err := o.detector.Evaluate(ctx, fraud.Input{
		SenderID:    senderID,
		Recipient:   recipient.Username,
		Amount:      amount,
		Description: description,
	})
	if err != nil {
		return nil, err
	}
	if assessment.Level == fraud.High {
		reason := "multiple risk factors"
		if len(assessment.Factors) > 0 {
			reason = assessment.Factors[0].Message
		}
		return nil, fmt.Errorf("%w: %s", ErrHighRisk, reason)
	}
	return &validated{
		sender:       sender,
		recipient:    recipient,
		senderWallet: senderWallet,
		assessment:   assessment,
	}, nil
}

// Prepare validates a prospective transfer and stages it as the single
// pending transfer for the session, discarding any prior unconfirmed one.
// It mutates no wallet state.
func (o *Orchestrator) Prepare(ctx context.Context, sessionID string, senderID, recipientID uint, amount float64, description string) (*StageResult, error) {
	lock := o.pending.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	v, err := o.validate(ctx, senderID, recipientID, amount, description)
	if err != nil {
		return nil, err
	}
	p := &Pending{
		Token:         uuid.NewString(),
		SenderID:      senderID,
		RecipientID:   recipientID,
		Amount:        amount,
		Description:   description,
		SenderName:    v.sender.Username,
		RecipientName: v.recipient.Username,
		SenderBalance: v.senderWallet.DebitBalance,
		Assessment:    v.assessment,
		StagedAt:      time.Now(),
	}
	o.pending.put(sessionID, p)

	projected := p.SenderBalance - amount
	prompt := fmt.Sprintf("Transfer %.2f to %s? Your balance after this transfer will be %.2f. Reply 'yes' to confirm or anything else to cancel.",
		amount, p.RecipientName, projected)
	if v.assessment.Level == fraud.Medium {
		prompt += " Note: this transfer was flagged for review: " + v.assessment.Factors[0].Message
	}
	logrus.WithFields(logrus.Fields{
		"session_id":  sessionID,
		"transfer_id": p.Token,
		"sender_id":   senderID,
		"recipient":   p.RecipientName,
		"amount":      amount,
		"risk_level":  v.assessment.RiskLevel,
	}).Info("Transfer staged")
	return &StageResult{
		Token:            p.Token,
		Prompt:           prompt,
		Amount:           amount,
		RecipientName:    p.RecipientName,
		ProjectedBalance: projected,
		Assessment:       v.assessment,
	}, nil
}

// Confirm consumes the pending transfer for the session. An affirmative
// response commits it; any other response cancels it. The pending slot is
// cleared in both branches, confirm is single-use.
func (o *Orchestrator) Confirm(ctx context.Context, sessionID, responseText string) (*ConfirmResult, error) {
	lock := o.pending.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	p := o.pending.take(sessionID)
	if p == nil {
		return nil, ErrNoPendingTransfer
	}
	if !isAffirmative(responseText) {
		logrus.WithFields(logrus.Fields{
			"session_id":  sessionID,
			"transfer_id": p.Token,
		}).Info("Transfer cancelled by response")
		return o.cancelResult(ctx, p), nil
	}

	// The balance may have drifted since staging; the commit re-checks it
	// against the live row, so no separate validation pass is needed here.
	txID, newBalance, err := o.commit(ctx, p)
	if err != nil {
		return nil, err
	}
	return &ConfirmResult{
		Confirmed:     true,
		Message:       fmt.Sprintf("%.2f has been successfully transferred to %s.", p.Amount, p.RecipientName),
		TransactionID: txID,
		NewBalance:    newBalance,
	}, nil
}

// Cancel discards the pending transfer for the session without any mutation.
func (o *Orchestrator) Cancel(ctx context.Context, sessionID string) (*ConfirmResult, error) {
	lock := o.pending.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	p := o.pending.take(sessionID)
	if p == nil {
		return nil, ErrNoPendingTransfer
	}
	return o.cancelResult(ctx, p), nil
}

// cancelResult reports a cleared stage with the live sender balance, falling
// back to the staging snapshot when the read fails. Cancellation itself
// never fails once the pending slot is taken.
func (o *Orchestrator) cancelResult(ctx context.Context, p *Pending) *ConfirmResult {
	balance := p.SenderBalance
	if w, err := o.store.GetWallet(ctx, p.SenderID); err == nil && w != nil {
		balance = w.DebitBalance
	}
	return &ConfirmResult{
		Confirmed:  false,
		Message:    fmt.Sprintf("Transfer of %.2f to %s cancelled.", p.Amount, p.RecipientName),
		NewBalance: balance,
	}
}

// Execute runs the validate-and-commit path in one step, without the
// conversational confirmation round trip. Used by the REST transfer endpoint.
func (o *Orchestrator) Execute(ctx context.Context, senderID, recipientID uint, amount float64, description string) (*ConfirmResult, error) {
	v, err := o.validate(ctx, senderID, recipientID, amount, description)
	if err != nil {
		return nil, err
	}
	p := &Pending{
		Token:         uuid.NewString(),
		SenderID:      senderID,
		RecipientID:   recipientID,
		Amount:        amount,
		Description:   description,
		SenderName:    v.sender.Username,
		RecipientName: v.recipient.Username,
		SenderBalance: v.senderWallet.DebitBalance,
		Assessment:    v.assessment,
		StagedAt:      time.Now(),
	}
	txID, newBalance, err := o.commit(ctx, p)
	if err != nil {
		return nil, err
	}
	return &ConfirmResult{
		Confirmed:     true,
		Message:       fmt.Sprintf("%.2f has been successfully transferred to %s.", amount, p.RecipientName),
		TransactionID: txID,
		NewBalance:    newBalance,
	}, nil
}

// commit applies the confirmed transfer as one store transaction: debit
// sender, credit recipient, insert the two ledger rows. The store guards the
// debit against the live balance, so concurrent commits on the same wallet
// serialize there and cannot overdraw it. Never retried automatically, the
// caller must re-stage.
func (o *Orchestrator) commit(ctx context.Context, p *Pending) (uint, float64, error) {
	note := p.Description
	if note == "" {
		note = "Transfer to " + p.RecipientName
	}
	incomingNote := p.Description
	if incomingNote == "" {
		incomingNote = "Transfer from " + p.SenderName
	}
	flagged := p.Assessment != nil && p.Assessment.Suspicious
	outgoing := &domain.Transaction{
		UserID:    p.SenderID,
		Amount:    -p.Amount,
		Recipient: p.RecipientName,
		Category:  "Transfer",
		Note:      note,
		IsFraud:   flagged,
	}
	incoming := &domain.Transaction{
		UserID:    p.RecipientID,
		Amount:    p.Amount,
		Recipient: p.SenderName,
		Category:  "Transfer",
		Note:      incomingNote,
		IsFraud:   flagged,
	}

	newBalance, err := o.store.TransferFunds(ctx, p.SenderID, p.RecipientID, p.Amount, outgoing, incoming)
	if errors.Is(err, ledger.ErrInsufficientFunds) {
		return 0, 0, fmt.Errorf("%w: balance changed since staging", ErrInsufficientFunds)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrCommitFailed, err)
	}

	logrus.WithFields(logrus.Fields{
		"transfer_id":  p.Token,
		"sender_id":    p.SenderID,
		"recipient_id": p.RecipientID,
		"amount":       p.Amount,
		"new_balance":  newBalance,
	}).Info("Transfer committed")

	// Note indexing is best-effort, a failure never undoes the commit.
	if o.notes != nil {
		if err := o.notes.SaveNoteEmbedding(ctx, outgoing); err != nil {
			logrus.WithFields(logrus.Fields{
				"transaction_id": outgoing.ID,
				"error":          err.Error(),
			}).Warn("Failed to index transaction note")
		}
	}
	return outgoing.ID, newBalance, nil
}

// isAffirmative reports whether a confirm response matches the affirmative
// vocabulary, case-insensitively and ignoring surrounding punctuation.
func isAffirmative(text string) bool {
	cleaned := strings.ToLower(strings.TrimSpace(text))
	cleaned = strings.Trim(cleaned, ".!,")
	_, ok := affirmatives[cleaned]
	return ok
}
