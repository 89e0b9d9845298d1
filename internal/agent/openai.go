package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vanguardd/pkg/types"
)

// OpenAIClient speaks the OpenAI chat-completions wire format to a base URL.
// The gateway points it at its own listen address, so agent synthesis runs on
// the same local model instance as every other completion.
type OpenAIClient struct {
	baseURL string
	http    *http.Client
}

// NewOpenAIClient builds a client for baseURL (".../v1", no trailing slash).
func NewOpenAIClient(baseURL string) *OpenAIClient {
	return &OpenAIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *OpenAIClient) CreateChatCompletion(ctx context.Context, req types.ChatCompletionRequest) (types.ChatCompletionResponse, error) {
	var out types.ChatCompletionResponse
	body, err := json.Marshal(req)
	if err != nil {
		return out, fmt.Errorf("encode request: %w", err)
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("build request: %w", err)
	}
	hreq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(hreq)
	if err != nil {
		return out, fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var apiErr types.ErrorResponse
		if derr := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&apiErr); derr == nil && apiErr.Error != "" {
			return out, fmt.Errorf("chat completion: %s", apiErr.Error)
		}
		return out, fmt.Errorf("chat completion: unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}
