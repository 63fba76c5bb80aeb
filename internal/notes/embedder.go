// Package notes provides similarity search over transaction note text.
// Embedding generation and the vector index are external collaborators
// behind narrow interfaces.
package notes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

const embedBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiEmbedder implements Embedder against the Gemini embedContent API.
type GeminiEmbedder struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

// NewGeminiEmbedder builds an embedder for the given model,
// e.g. "text-embedding-004".
func NewGeminiEmbedder(apiKey, model string) *GeminiEmbedder {
	return &GeminiEmbedder{
		apiKey:  apiKey,
		model:   model,
		baseURL: embedBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type embedRequest struct {
	Model   string `json:"model"`
	Content struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"content"`
}

type embedResponse struct {
	Embedding struct {
		Values []float64 `json:"values"`
	} `json:"embedding"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Embed returns the embedding vector for the text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	var req embedRequest
	req.Model = "models/" + e.model
	req.Content.Parts = []struct {
		Text string `json:"text"`
	}{{Text: text}}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/models/%s:embedContent?key=%s", e.baseURL, e.model, e.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := e.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer httpResp.Body.Close()
	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	var parsed embedResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("embedding response decode failed: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("embedding error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if len(parsed.Embedding.Values) == 0 {
		return nil, fmt.Errorf("embedding response was empty")
	}
	return parsed.Embedding.Values, nil
}
