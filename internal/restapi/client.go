// Package restapi is the thin REST client the chat core uses to talk to the
// storefront backend: guest-token minting and the historical-message fetch
// that seeds a room's local cache.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ronalking182/errand-shop-mobile-app-sub001/internal/auth"
)

// Message is one history row exactly as the backend returns it. Note the
// two-value senderType taxonomy ("user"/"admin"); the store folds it into the
// canonical roles on ingestion.
type Message struct {
	ID         string `json:"id"`
	Message    string `json:"message"`
	SenderType string `json:"senderType"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName,omitempty"`
	Timestamp  int64  `json:"timestamp"`
	Read       bool   `json:"read,omitempty"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Client calls the storefront backend's chat endpoints.
type Client struct {
	BaseURL string
	Tokens  auth.TokenSource
	HTTP    *http.Client
}

func NewClient(baseURL string, tokens auth.TokenSource) *Client {
	return &Client{
		BaseURL: baseURL,
		Tokens:  tokens,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Tokens != nil {
		if token := c.Tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 400 || !env.Success {
		if env.Message != "" {
			return fmt.Errorf("backend: %s", env.Message)
		}
		return fmt.Errorf("backend: status %d", resp.StatusCode)
	}
	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

// ChatMessages fetches the authoritative history for a room, in whatever
// order the backend chose to return it.
func (c *Client) ChatMessages(ctx context.Context, roomID string) ([]Message, error) {
	var out []Message
	path := "/api/chat/messages?room_id=" + url.QueryEscape(roomID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GuestToken mints an anonymous customer credential.
func (c *Client) GuestToken(ctx context.Context) (string, error) {
	var out struct {
		Token      string `json:"token"`
		CustomerID string `json:"customer_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/guest", nil, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

// MarkRead tells the backend the customer has seen the staff messages in a
// room. The local store tracks its own read state; this keeps the server's
// copy in step.
func (c *Client) MarkRead(ctx context.Context, roomID string) error {
	path := "/api/chat/read?room_id=" + url.QueryEscape(roomID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}
