// Package agent hosts the conversational dispatcher: a typed tool registry,
// session objects with an owning TTL store, and the function-calling loop
// around the chat model.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"finassist/internal/llm"
)

// Op identifies one operation the model may invoke. Dispatch is by tagged
// identifier, not by matching free-form tool names.
type Op string

// The full operation set. Registration of anything else fails.
const (
	OpTransferMoney   Op = "transfer_money"
	OpConfirmTransfer Op = "confirm_transfer"
	OpCancelTransfer  Op = "cancel_transfer"
	OpCheckFraud      Op = "check_fraud"
	OpSpendingSummary Op = "spending_summary"
	OpBudgetAdvice    Op = "budget_advice"
	OpSearchNotes     Op = "search_notes"
)

var knownOps = map[Op]struct{}{
	OpTransferMoney: {}, OpConfirmTransfer: {}, OpCancelTransfer: {},
	OpCheckFraud: {}, OpSpendingSummary: {}, OpBudgetAdvice: {}, OpSearchNotes: {},
}

// Handler executes one operation for a session with the model's arguments.
type Handler func(ctx context.Context, sess *Session, args map[string]any) (any, error)

type tool struct {
	decl    llm.ToolDecl
	handler Handler
}

// Registry maps operations to handlers. All entries are validated at
// registration time; dispatch never guesses.
type Registry struct {
	tools map[Op]tool
	order []Op
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[Op]tool)}
}

// Register adds an operation. Unknown ops, nil handlers, mismatched
// declaration names and duplicates are configuration bugs and fail here.
func (r *Registry) Register(op Op, decl llm.ToolDecl, h Handler) error {
	if _, ok := knownOps[op]; !ok {
		return fmt.Errorf("unknown operation %q", op)
	}
	if h == nil {
		return fmt.Errorf("nil handler for operation %q", op)
	}
	if decl.Name != string(op) {
		return fmt.Errorf("declaration name %q does not match operation %q", decl.Name, op)
	}
	if _, exists := r.tools[op]; exists {
		return fmt.Errorf("operation %q registered twice", op)
	}
	r.tools[op] = tool{decl: decl, handler: h}
	r.order = append(r.order, op)
	return nil
}

// Declarations returns the tool declarations in registration order.
func (r *Registry) Declarations() []llm.ToolDecl {
	decls := make([]llm.ToolDecl, 0, len(r.order))
	for _, op := range r.order {
		decls = append(decls, r.tools[op].decl)
	}
	return decls
}

// Dispatch executes a tool call. Operation errors are folded into the
// structured result ({success:false, message}) so the model can relay them;
// only unknown operations are a dispatch error.
func (r *Registry) Dispatch(ctx context.Context, sess *Session, call llm.ToolCall) (map[string]any, error) {
	t, ok := r.tools[Op(call.Name)]
	if !ok {
		return nil, fmt.Errorf("model requested unregistered operation %q", call.Name)
	}
	result, err := t.handler(ctx, sess, call.Args)
	if err != nil {
		return map[string]any{"success": false, "message": err.Error()}, nil
	}
	out, err := toMap(result)
	if err != nil {
		return nil, err
	}
	if _, ok := out["success"]; !ok {
		out["success"] = true
	}
	return out, nil
}

// toMap flattens a handler result into the generic map the model consumes.
func toMap(v any) (map[string]any, error) {
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
