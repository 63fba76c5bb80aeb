package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient implements ChatModel against the Gemini generateContent API.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

// NewGeminiClient builds a client for the given model, e.g. "gemini-2.0-flash".
func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: geminiBaseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Wire types for the generateContent endpoint.
type geminiPart struct {
	Text             string              `json:"text,omitempty"`
	FunctionCall     *geminiFunctionCall `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResp `json:"functionResponse,omitempty"`
}

type geminiFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type geminiFunctionResp struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	Tools             []geminiTools   `json:"tools,omitempty"`
}

type geminiTools struct {
	FunctionDeclarations []ToolDecl `json:"functionDeclarations"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the conversation and tool declarations to Gemini and maps
// the reply back to text or tool calls.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (*Response, error) {
	body := geminiRequest{Contents: make([]geminiContent, 0, len(req.Messages))}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	for _, m := range req.Messages {
		body.Contents = append(body.Contents, toGeminiContent(m))
	}
	if len(req.Tools) > 0 {
		body.Tools = []geminiTools{{FunctionDeclarations: req.Tools}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer httpResp.Body.Close()
	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	var parsed geminiResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("gemini response decode failed: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("gemini error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini returned status %d", httpResp.StatusCode)
	}
	if len(parsed.Candidates) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	resp := &Response{}
	for _, part := range parsed.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
		} else if part.Text != "" {
			resp.Text += part.Text
		}
	}
	return resp, nil
}

// toGeminiContent maps a conversation message to the wire format. Gemini
// uses "model" for the assistant role and carries tool traffic as
// functionCall/functionResponse parts.
func toGeminiContent(m Message) geminiContent {
	role := "user"
	if m.Role == RoleAssistant {
		role = "model"
	}
	switch {
	case m.ToolCall != nil:
		return geminiContent{Role: "model", Parts: []geminiPart{{
			FunctionCall: &geminiFunctionCall{Name: m.ToolCall.Name, Args: m.ToolCall.Args},
		}}}
	case m.ToolResult != nil:
		return geminiContent{Role: "user", Parts: []geminiPart{{
			FunctionResponse: &geminiFunctionResp{Name: m.ToolResult.Name, Response: m.ToolResult.Result},
		}}}
	default:
		return geminiContent{Role: role, Parts: []geminiPart{{Text: m.Text}}}
	}
}
