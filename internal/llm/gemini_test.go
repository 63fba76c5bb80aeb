package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newFakeGemini(t *testing.T, handler http.HandlerFunc) *GeminiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewGeminiClient("test-key", "gemini-2.0-flash")
	c.baseURL = srv.URL
	return c
}

func TestCompleteTextReply(t *testing.T) {
	var got geminiRequest
	c := newFakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models/gemini-2.0-flash:generateContent", r.URL.Path)
		require.Equal(t, "test-key", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"role": "model", "parts": []map[string]any{{"text": "Hello!"}}}},
			},
		})
	})

	resp, err := c.Complete(context.Background(), Request{
		System:   "Be helpful.",
		Messages: []Message{{Role: RoleUser, Text: "hi"}},
		Tools:    []ToolDecl{{Name: "check_fraud", Parameters: Schema{Type: "object"}}},
	})
	require.NoError(t, err)
	require.Equal(t, "Hello!", resp.Text)
	require.Empty(t, resp.ToolCalls)

	// The wire request carried the system prompt, history and tool set.
	require.NotNil(t, got.SystemInstruction)
	require.Equal(t, "Be helpful.", got.SystemInstruction.Parts[0].Text)
	require.Len(t, got.Contents, 1)
	require.Equal(t, "user", got.Contents[0].Role)
	require.Len(t, got.Tools, 1)
	require.Equal(t, "check_fraud", got.Tools[0].FunctionDeclarations[0].Name)
}

func TestCompleteFunctionCallReply(t *testing.T) {
	c := newFakeGemini(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"role": "model", "parts": []map[string]any{
					{"functionCall": map[string]any{"name": "transfer_money", "args": map[string]any{"recipient": "bob", "amount": 40}}},
				}}},
			},
		})
	})

	resp, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Text: "send 40 to bob"}}})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	require.Equal(t, "transfer_money", resp.ToolCalls[0].Name)
	require.Equal(t, "bob", resp.ToolCalls[0].Args["recipient"])
	require.Equal(t, 40.0, resp.ToolCalls[0].Args["amount"])
}

func TestCompleteToolTrafficRoles(t *testing.T) {
	var got geminiRequest
	c := newFakeGemini(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "done"}}}},
			},
		})
	})

	_, err := c.Complete(context.Background(), Request{Messages: []Message{
		{Role: RoleUser, Text: "send 40 to bob"},
		{Role: RoleAssistant, ToolCall: &ToolCall{Name: "transfer_money", Args: map[string]any{"amount": 40.0}}},
		{Role: RoleUser, ToolResult: &ToolResult{Name: "transfer_money", Result: map[string]any{"success": true}}},
	}})
	require.NoError(t, err)
	require.Len(t, got.Contents, 3)
	require.Equal(t, "model", got.Contents[1].Role)
	require.NotNil(t, got.Contents[1].Parts[0].FunctionCall)
	require.Equal(t, "user", got.Contents[2].Role)
	require.NotNil(t, got.Contents[2].Parts[0].FunctionResponse)
}

func TestCompleteAPIError(t *testing.T) {
	c := newFakeGemini(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 400, "message": "API key not valid"},
		})
	})

	_, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Text: "hi"}}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "API key not valid")
}

func TestCompleteNoCandidates(t *testing.T) {
	c := newFakeGemini(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"candidates": []map[string]any{}})
	})

	_, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Text: "hi"}}})
	require.Error(t, err)
}
