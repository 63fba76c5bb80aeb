package agent

import (
	"context"
	"testing"
	"time"

	"finassist/internal/fraud"
	"finassist/internal/ledger/ledgertest"
	"finassist/internal/llm"
	"finassist/internal/summary"
	"finassist/internal/transfer"

	"github.com/stretchr/testify/require"
)

// scriptedModel replays a fixed sequence of responses and records every
// request it saw.
type scriptedModel struct {
	responses []*llm.Response
	requests  []llm.Request
}

func (m *scriptedModel) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	m.requests = append(m.requests, req)
	if len(m.responses) == 0 {
		return &llm.Response{Text: "script exhausted"}, nil
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func newTestDeps(t *testing.T) (Deps, *ledgertest.Store) {
	t.Helper()
	store := ledgertest.New()
	store.AddUser(1, "alice", 100)
	store.AddUser(2, "bob", 0)
	detector := fraud.NewDetector(store, 1000000)
	return Deps{
		Store:      store,
		Transfers:  transfer.NewOrchestrator(store, detector, time.Minute, nil),
		Detector:   detector,
		Aggregator: summary.NewAggregator(store),
	}, store
}

func TestBuildRegistryRequiresDependencies(t *testing.T) {
	_, err := BuildRegistry(Deps{})
	require.Error(t, err)
}

func TestBuildRegistrySkipsNotesWhenAbsent(t *testing.T) {
	deps, _ := newTestDeps(t)
	r, err := BuildRegistry(deps)
	require.NoError(t, err)
	for _, d := range r.Declarations() {
		require.NotEqual(t, string(OpSearchNotes), d.Name)
	}
}

func TestHandleMessagePlainTextTurn(t *testing.T) {
	deps, _ := newTestDeps(t)
	r, err := BuildRegistry(deps)
	require.NoError(t, err)
	model := &scriptedModel{responses: []*llm.Response{{Text: "Hello! How can I help?"}}}
	a := New(model, r)
	sess := NewSessionStore(time.Minute).GetOrCreate("", 1)

	reply, err := a.HandleMessage(context.Background(), sess, "hi")
	require.NoError(t, err)
	require.Equal(t, sess.ID, reply.SessionID)
	require.Equal(t, "Hello! How can I help?", reply.Response)
	require.Empty(t, reply.Actions)
	// User turn plus assistant turn recorded.
	require.Len(t, sess.History, 2)
	// The model was offered the full tool set.
	require.Len(t, model.requests[0].Tools, 6)
}

func TestHandleMessageTransferFlow(t *testing.T) {
	deps, store := newTestDeps(t)
	r, err := BuildRegistry(deps)
	require.NoError(t, err)
	model := &scriptedModel{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{Name: "transfer_money", Args: map[string]any{"recipient": "bob", "amount": 40.0}}}},
		{Text: "Transfer 40.00 to bob? Reply yes to confirm."},
		{ToolCalls: []llm.ToolCall{{Name: "confirm_transfer", Args: map[string]any{"response": "yes"}}}},
		{Text: "Done, 40.00 sent to bob."},
	}}
	a := New(model, r)
	sess := NewSessionStore(time.Minute).GetOrCreate("", 1)

	reply, err := a.HandleMessage(context.Background(), sess, "send 40 to bob")
	require.NoError(t, err)
	require.Equal(t, []string{"transfer_money"}, reply.Actions)
	// Staging alone moves no money.
	require.Equal(t, 100.0, store.Balance(1))

	reply, err = a.HandleMessage(context.Background(), sess, "yes")
	require.NoError(t, err)
	require.Equal(t, []string{"confirm_transfer"}, reply.Actions)
	require.Equal(t, "Done, 40.00 sent to bob.", reply.Response)
	require.Equal(t, 60.0, store.Balance(1))
	require.Equal(t, 40.0, store.Balance(2))

	// The tool result fed back to the model carries the commit outcome.
	last := model.requests[len(model.requests)-1]
	found := false
	for _, msg := range last.Messages {
		if msg.ToolResult != nil && msg.ToolResult.Name == "confirm_transfer" {
			found = true
			require.Equal(t, true, msg.ToolResult.Result["success"])
		}
	}
	require.True(t, found)
}

func TestHandleMessageFoldsToolFailureForTheModel(t *testing.T) {
	deps, store := newTestDeps(t)
	r, err := BuildRegistry(deps)
	require.NoError(t, err)
	model := &scriptedModel{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{Name: "transfer_money", Args: map[string]any{"recipient": "bob", "amount": 500.0}}}},
		{Text: "You do not have enough balance for that transfer."},
	}}
	a := New(model, r)
	sess := NewSessionStore(time.Minute).GetOrCreate("", 1)

	reply, err := a.HandleMessage(context.Background(), sess, "send 500 to bob")
	require.NoError(t, err)
	require.Equal(t, "You do not have enough balance for that transfer.", reply.Response)
	require.Equal(t, 100.0, store.Balance(1))

	last := model.requests[len(model.requests)-1]
	msg := last.Messages[len(last.Messages)-1]
	require.NotNil(t, msg.ToolResult)
	require.Equal(t, false, msg.ToolResult.Result["success"])
}

func TestHandleMessageAmbiguousRecipient(t *testing.T) {
	deps, store := newTestDeps(t)
	store.AddUser(3, "bobby", 0)
	r, err := BuildRegistry(deps)
	require.NoError(t, err)

	// An exact username match wins over the longer fragment match.
	sess := NewSessionStore(time.Minute).GetOrCreate("", 1)
	result, err := r.Dispatch(context.Background(), sess, llm.ToolCall{
		Name: "transfer_money",
		Args: map[string]any{"recipient": "bob", "amount": 10.0},
	})
	require.NoError(t, err)
	require.Equal(t, true, result["success"])
	require.Equal(t, "bob", result["recipient_name"])

	// A fragment matching several users is rejected with the candidates.
	result, err = r.Dispatch(context.Background(), sess, llm.ToolCall{
		Name: "transfer_money",
		Args: map[string]any{"recipient": "bo", "amount": 10.0},
	})
	require.NoError(t, err)
	require.Equal(t, false, result["success"])
	require.Contains(t, result["message"], "ambiguous")
}

func TestHandleMessageRoundLimit(t *testing.T) {
	deps, _ := newTestDeps(t)
	r, err := BuildRegistry(deps)
	require.NoError(t, err)
	// The model asks for a fraud check forever.
	responses := make([]*llm.Response, maxToolRounds+1)
	for i := range responses {
		responses[i] = &llm.Response{ToolCalls: []llm.ToolCall{{Name: "check_fraud", Args: map[string]any{"description": "hello"}}}}
	}
	a := New(&scriptedModel{responses: responses}, r)
	sess := NewSessionStore(time.Minute).GetOrCreate("", 1)

	_, err = a.HandleMessage(context.Background(), sess, "loop")
	require.Error(t, err)
}
