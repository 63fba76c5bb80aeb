package agent

import (
	"context"
	"errors"

	"finassist/internal/llm"

	"github.com/sirupsen/logrus" // Logging library
)

// maxToolRounds bounds the tool-call loop so a misbehaving model cannot
// spin forever.
const maxToolRounds = 6

// Reply is the agent's answer to one user message.
type Reply struct {
	SessionID string   `json:"session_id"`
	Response  string   `json:"response"`
	Actions   []string `json:"actions"` // Operations executed this turn, in order
}

// Agent runs the conversation loop: the model proposes tool calls, the
// registry executes them, results are fed back until the model answers in
// plain text. Correctness of the operations never depends on the model.
type Agent struct {
	model    llm.ChatModel
	registry *Registry
}

// New builds an Agent.
func New(model llm.ChatModel, registry *Registry) *Agent {
	return &Agent{model: model, registry: registry}
}

// HandleMessage processes one user turn within a session.
func (a *Agent) HandleMessage(ctx context.Context, sess *Session, text string) (*Reply, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.History = append(sess.History, llm.Message{Role: llm.RoleUser, Text: text})
	reply := &Reply{SessionID: sess.ID}

	for round := 0; round < maxToolRounds; round++ {
		resp, err := a.model.Complete(ctx, llm.Request{
			System:   llm.SystemPrompt,
			Messages: sess.History,
			Tools:    a.registry.Declarations(),
		})
		if err != nil {
			return nil, err
		}
		if len(resp.ToolCalls) == 0 {
			sess.History = append(sess.History, llm.Message{Role: llm.RoleAssistant, Text: resp.Text})
			reply.Response = resp.Text
			return reply, nil
		}
		for _, call := range resp.ToolCalls {
			call := call
			sess.History = append(sess.History, llm.Message{Role: llm.RoleAssistant, ToolCall: &call})
			result, err := a.registry.Dispatch(ctx, sess, call)
			if err != nil {
				return nil, err
			}
			logrus.WithFields(logrus.Fields{
				"session_id": sess.ID,
				"user_id":    sess.UserID,
				"operation":  call.Name,
				"success":    result["success"],
			}).Info("Agent tool call")
			reply.Actions = append(reply.Actions, call.Name)
			sess.History = append(sess.History, llm.Message{
				Role:       llm.RoleUser,
				ToolResult: &llm.ToolResult{Name: call.Name, Result: result},
			})
		}
	}
	return nil, errors.New("agent: tool-call loop exceeded round limit")
}
