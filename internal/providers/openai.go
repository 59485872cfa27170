package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIProvider talks to OpenAI-compatible chat-completions APIs.
type OpenAIProvider struct {
	apiKey      string
	apiBase     string
	model       string
	client      *http.Client
	retryConfig RetryConfig
}

func NewOpenAIProvider(apiKey, apiBase, model string) *OpenAIProvider {
	if apiBase == "" {
		apiBase = "https://api.openai.com/v1"
	}
	apiBase = strings.TrimRight(apiBase, "/")
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAIProvider{
		apiKey:      apiKey,
		apiBase:     apiBase,
		model:       model,
		client:      &http.Client{Timeout: 30 * time.Second},
		retryConfig: DefaultRetryConfig(),
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Complete sends a single-turn chat completion and returns the reply text.
func (p *OpenAIProvider) Complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model": p.model,
		"messages": []message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", err
	}

	return RetryDo(ctx, p.retryConfig, func() (string, error) {
		respBody, err := p.doRequest(ctx, body)
		if err != nil {
			return "", err
		}
		defer respBody.Close()

		var result struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
			Error *struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(respBody).Decode(&result); err != nil {
			return "", fmt.Errorf("openai: decode response: %w", err)
		}
		if result.Error != nil {
			return "", fmt.Errorf("openai: %s", result.Error.Message)
		}
		if len(result.Choices) == 0 {
			return "", fmt.Errorf("openai: empty choices")
		}
		return strings.TrimSpace(result.Choices[0].Message.Content), nil
	})
}

// Ping verifies the API key by listing models. Used by startup/doctor checks;
// a failure only disables AI replies, it is never fatal.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openai: models returned status %d", resp.StatusCode)
	}
	return nil
}

func (p *OpenAIProvider) doRequest(ctx context.Context, body []byte) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, Retryable(fmt.Errorf("openai: %w", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, Retryable(fmt.Errorf("openai: status %d: %s", resp.StatusCode, data))
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("openai: status %d: %s", resp.StatusCode, data)
	}
	return resp.Body, nil
}
