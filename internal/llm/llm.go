// Package llm abstracts the hosted chat model. The model is an external,
// non-deterministic collaborator: it proposes tool calls and renders
// structured results into natural language, nothing more.
package llm

import "context"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToolCall is a function call proposed by the model.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Message is one turn of a conversation. Exactly one of Text, ToolCall or
// ToolResult is set.
type Message struct {
	Role       string
	Text       string
	ToolCall   *ToolCall
	ToolResult *ToolResult
}

// ToolResult is the structured output of an executed tool call, fed back to
// the model.
type ToolResult struct {
	Name   string         `json:"name"`
	Result map[string]any `json:"result"`
}

// Schema is a minimal JSON-schema subset for tool parameter declarations.
type Schema struct {
	Type        string            `json:"type"`
	Description string            `json:"description,omitempty"`
	Enum        []string          `json:"enum,omitempty"`
	Properties  map[string]Schema `json:"properties,omitempty"`
	Required    []string          `json:"required,omitempty"`
}

// ToolDecl declares one callable tool to the model.
type ToolDecl struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
}

// Request is one completion request.
type Request struct {
	System   string
	Messages []Message
	Tools    []ToolDecl
}

// Response is the model's reply: either plain text or tool calls to execute.
type Response struct {
	Text      string
	ToolCalls []ToolCall
}

// ChatModel completes a conversation, possibly proposing tool calls.
type ChatModel interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}
