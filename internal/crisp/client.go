// Package crisp implements the support-service boundary: the plugin-tier
// REST client and the realtime (RTM) listener for visitor events.
package crisp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultAPIBase = "https://api.crisp.chat/v1"

// Client is a plugin-tier Crisp REST client scoped to one website.
type Client struct {
	id        string
	key       string
	websiteID string
	apiBase   string
	client    *http.Client
}

func NewClient(id, key, websiteID string) *Client {
	return &Client{
		id:        id,
		key:       key,
		websiteID: websiteID,
		apiBase:   defaultAPIBase,
		client:    &http.Client{Timeout: 20 * time.Second},
	}
}

// WithAPIBase overrides the API base URL. Test hook.
func (c *Client) WithAPIBase(base string) *Client {
	c.apiBase = base
	return c
}

// WebsiteID returns the website this client is scoped to.
func (c *Client) WebsiteID() string { return c.websiteID }

// Ping verifies credentials against the plugin connect endpoint.
// Called once at startup; failure there is fatal.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/plugin/connect/account", nil, nil)
}

// SendMessage writes a message into a conversation.
func (c *Client) SendMessage(ctx context.Context, sessionID string, msg MessageParams) error {
	path := fmt.Sprintf("/website/%s/conversation/%s/message", c.websiteID, sessionID)
	return c.do(ctx, http.MethodPost, path, msg, nil)
}

// GetConversationMetas fetches the visitor metadata block.
func (c *Client) GetConversationMetas(ctx context.Context, sessionID string) (*ConversationMetas, error) {
	path := fmt.Sprintf("/website/%s/conversation/%s/meta", c.websiteID, sessionID)
	var metas ConversationMetas
	if err := c.do(ctx, http.MethodGet, path, nil, &metas); err != nil {
		return nil, err
	}
	return &metas, nil
}

// MarkRead acknowledges a visitor message by fingerprint. Idempotent on the
// Crisp side; callers log failures and move on.
func (c *Client) MarkRead(ctx context.Context, sessionID string, fingerprint int64) error {
	path := fmt.Sprintf("/website/%s/conversation/%s/read", c.websiteID, sessionID)
	body := map[string]any{
		"from":         "user",
		"origin":       "chat",
		"fingerprints": []int64{fingerprint},
	}
	return c.do(ctx, http.MethodPatch, path, body, nil)
}

// SetConversationState moves a conversation to pending/resolved.
func (c *Client) SetConversationState(ctx context.Context, sessionID, state string) error {
	path := fmt.Sprintf("/website/%s/conversation/%s/state", c.websiteID, sessionID)
	return c.do(ctx, http.MethodPatch, path, map[string]string{"state": state}, nil)
}

// ConnectEndpoints resolves the RTM socket endpoint for this plugin.
func (c *Client) ConnectEndpoints(ctx context.Context) (string, error) {
	var out struct {
		Socket struct {
			App string `json:"app"`
		} `json:"socket"`
	}
	if err := c.do(ctx, http.MethodGet, "/plugin/connect/endpoints", nil, &out); err != nil {
		return "", err
	}
	if out.Socket.App == "" {
		return "", fmt.Errorf("crisp: no socket endpoint in response")
	}
	return out.Socket.App, nil
}

// do issues one REST call. Responses are enveloped as {"data": ...}.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Basic "+c.basicAuth())
	req.Header.Set("X-Crisp-Tier", "plugin")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("crisp: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("crisp: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("crisp: %s %s: status %d: %s", method, path, resp.StatusCode, truncate(respBody))
	}

	if out != nil {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(respBody, &envelope); err != nil {
			return fmt.Errorf("crisp: decode envelope: %w", err)
		}
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("crisp: decode data: %w", err)
		}
	}
	return nil
}

func (c *Client) basicAuth() string {
	return base64.StdEncoding.EncodeToString([]byte(c.id + ":" + c.key))
}

func truncate(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
