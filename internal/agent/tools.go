package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"finassist/internal/fraud"
	"finassist/internal/ledger"
	"finassist/internal/llm"
	"finassist/internal/notes"
	"finassist/internal/summary"
	"finassist/internal/transfer"
)

// Deps are the collaborators behind the tool set.
type Deps struct {
	Store      ledger.Store
	Transfers  *transfer.Orchestrator
	Detector   *fraud.Detector
	Aggregator *summary.Aggregator
	Notes      *notes.Searcher // optional, search_notes is skipped when nil
}

// BuildRegistry wires every operation to its handler. An incomplete Deps is
// a configuration bug and fails loudly.
func BuildRegistry(d Deps) (*Registry, error) {
	if d.Store == nil || d.Transfers == nil || d.Detector == nil || d.Aggregator == nil {
		return nil, errors.New("agent: missing tool dependencies")
	}
	r := NewRegistry()

	register := func(op Op, decl llm.ToolDecl, h Handler) error {
		return r.Register(op, decl, h)
	}

	if err := register(OpTransferMoney, llm.ToolDecl{
		Name:        string(OpTransferMoney),
		Description: "Stage a money transfer to a recipient. Returns a confirmation prompt that must be relayed to the user. The transfer is only executed after confirm_transfer.",
		Parameters: llm.Schema{
			Type: "object",
			Properties: map[string]llm.Schema{
				"recipient": {Type: "string", Description: "Recipient username or name fragment"},
				"amount":    {Type: "number", Description: "Transfer amount, must be positive"},
				"note":      {Type: "string", Description: "Optional transfer memo"},
			},
			Required: []string{"recipient", "amount"},
		},
	}, d.handleTransferMoney); err != nil {
		return nil, err
	}

	if err := register(OpConfirmTransfer, llm.ToolDecl{
		Name:        string(OpConfirmTransfer),
		Description: "Pass the user's literal reply to the pending transfer confirmation prompt. Affirmative replies commit the transfer, anything else cancels it.",
		Parameters: llm.Schema{
			Type: "object",
			Properties: map[string]llm.Schema{
				"response": {Type: "string", Description: "The user's exact reply"},
			},
			Required: []string{"response"},
		},
	}, d.handleConfirmTransfer); err != nil {
		return nil, err
	}

	if err := register(OpCancelTransfer, llm.ToolDecl{
		Name:        string(OpCancelTransfer),
		Description: "Cancel the pending transfer without executing it.",
		Parameters:  llm.Schema{Type: "object", Properties: map[string]llm.Schema{}},
	}, d.handleCancelTransfer); err != nil {
		return nil, err
	}

	if err := register(OpCheckFraud, llm.ToolDecl{
		Name:        string(OpCheckFraud),
		Description: "Analyze the fraud risk of a prospective transaction or message.",
		Parameters: llm.Schema{
			Type: "object",
			Properties: map[string]llm.Schema{
				"recipient":   {Type: "string", Description: "Recipient name, if any"},
				"amount":      {Type: "number", Description: "Amount, if any"},
				"description": {Type: "string", Description: "Message or transaction description, if any"},
			},
		},
	}, d.handleCheckFraud); err != nil {
		return nil, err
	}

	if err := register(OpSpendingSummary, llm.ToolDecl{
		Name:        string(OpSpendingSummary),
		Description: "Summarize the user's spending for a period, with a per-category breakdown and top categories.",
		Parameters: llm.Schema{
			Type: "object",
			Properties: map[string]llm.Schema{
				"period":   {Type: "string", Enum: []string{"day", "week", "month", "year"}, Description: "Aggregation window"},
				"category": {Type: "string", Description: "Optional category filter"},
			},
			Required: []string{"period"},
		},
	}, d.handleSpendingSummary); err != nil {
		return nil, err
	}

	if err := register(OpBudgetAdvice, llm.ToolDecl{
		Name:        string(OpBudgetAdvice),
		Description: "Judge whether a purchase is affordable given the user's balance and usual spending.",
		Parameters: llm.Schema{
			Type: "object",
			Properties: map[string]llm.Schema{
				"amount": {Type: "number", Description: "Purchase amount"},
			},
			Required: []string{"amount"},
		},
	}, d.handleBudgetAdvice); err != nil {
		return nil, err
	}

	if d.Notes != nil {
		if err := register(OpSearchNotes, llm.ToolDecl{
			Name:        string(OpSearchNotes),
			Description: "Search the user's transaction notes for entries similar to a query.",
			Parameters: llm.Schema{
				Type: "object",
				Properties: map[string]llm.Schema{
					"query": {Type: "string", Description: "Free-text search query"},
					"top_k": {Type: "number", Description: "Number of results, default 5"},
				},
				Required: []string{"query"},
			},
		}, d.handleSearchNotes); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (d Deps) handleTransferMoney(ctx context.Context, sess *Session, args map[string]any) (any, error) {
	recipient := argString(args, "recipient")
	amount := argFloat(args, "amount")
	note := argString(args, "note")
	if recipient == "" {
		return nil, errors.New("recipient is required")
	}
	recipientID, err := d.resolveRecipient(ctx, recipient)
	if err != nil {
		return nil, err
	}
	return d.Transfers.Prepare(ctx, sess.ID, sess.UserID, recipientID, amount, note)
}

func (d Deps) handleConfirmTransfer(ctx context.Context, sess *Session, args map[string]any) (any, error) {
	return d.Transfers.Confirm(ctx, sess.ID, argString(args, "response"))
}

func (d Deps) handleCancelTransfer(ctx context.Context, sess *Session, _ map[string]any) (any, error) {
	return d.Transfers.Cancel(ctx, sess.ID)
}

func (d Deps) handleCheckFraud(ctx context.Context, sess *Session, args map[string]any) (any, error) {
	return d.Detector.Evaluate(ctx, fraud.Input{
		SenderID:    sess.UserID,
		Recipient:   argString(args, "recipient"),
		Amount:      argFloat(args, "amount"),
		Description: argString(args, "description"),
	})
}

func (d Deps) handleSpendingSummary(ctx context.Context, sess *Session, args map[string]any) (any, error) {
	return d.Aggregator.Spending(ctx, sess.UserID, argString(args, "period"), argString(args, "category"))
}

func (d Deps) handleBudgetAdvice(ctx context.Context, sess *Session, args map[string]any) (any, error) {
	amount := argFloat(args, "amount")
	if amount <= 0 {
		return nil, errors.New("amount must be a positive number")
	}
	return d.Aggregator.BudgetAdvice(ctx, sess.UserID, amount)
}

func (d Deps) handleSearchNotes(ctx context.Context, sess *Session, args map[string]any) (any, error) {
	query := argString(args, "query")
	if query == "" {
		return nil, errors.New("query is required")
	}
	return d.Notes.Search(ctx, sess.UserID, query, int(argFloat(args, "top_k")))
}

// resolveRecipient maps a free-text recipient onto a user id. An exact
// username match wins, otherwise the fragment must be unambiguous.
func (d Deps) resolveRecipient(ctx context.Context, name string) (uint, error) {
	users, err := d.Store.FindUsersByName(ctx, name)
	if err != nil {
		return 0, err
	}
	for _, u := range users {
		if strings.EqualFold(u.Username, name) {
			return u.ID, nil
		}
	}
	switch len(users) {
	case 0:
		return 0, fmt.Errorf("no user found matching '%s'", name)
	case 1:
		return users[0].ID, nil
	default:
		names := make([]string, len(users))
		for i, u := range users {
			names[i] = u.Username
		}
		return 0, fmt.Errorf("'%s' is ambiguous, matches: %s", name, strings.Join(names, ", "))
	}
}

// JSON numbers arrive as float64; tolerate strings the model sometimes sends.
func argString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func argFloat(args map[string]any, key string) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
