// Package zalo talks to the Zalo Bot HTTP API and handles bot commands.
package zalo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// MaxMessageRunes is the longest text the API accepts.
const MaxMessageRunes = 2000

// ErrNotConfigured is returned when no bot token has been set.
var ErrNotConfigured = errors.New("zalo bot token not configured")

// APIError is an ok=false response.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("zalo %s: %d %s", e.Method, e.Code, e.Description)
}

// Client is safe for concurrent use. The token can be swapped at runtime.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	mu    sync.RWMutex
	token string
}

// NewClient returns a client for baseURL (e.g. https://bot-api.zaloplatforms.com).
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 40 * time.Second},
		token:   token,
	}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = strings.TrimSpace(token)
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) Configured() bool {
	return c.Token() != ""
}

// MaskedToken shows only the ends of a long token.
func (c *Client) MaskedToken() string {
	t := c.Token()
	if len(t) > 20 {
		return t[:10] + "..." + t[len(t)-10:]
	}
	return t
}

type envelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

func (c *Client) call(ctx context.Context, method string, body, out any) error {
	token := c.Token()
	if token == "" {
		return ErrNotConfigured
	}
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/bot"+token+"/"+method, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("zalo %s: %w", method, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("zalo %s: decode response (status %d): %w", method, resp.StatusCode, err)
	}
	if !env.OK {
		code := env.ErrorCode
		if code == 0 {
			code = resp.StatusCode
		}
		return &APIError{Method: method, Code: code, Description: env.Description}
	}
	if out != nil && len(env.Result) > 0 {
		return json.Unmarshal(env.Result, out)
	}
	return nil
}

// SendMessage sends text to chatID, cut to MaxMessageRunes.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	return c.call(ctx, "sendMessage", map[string]string{
		"chat_id": chatID,
		"text":    truncateRunes(text, MaxMessageRunes),
	}, nil)
}

// SendPhoto sends a publicly reachable image URL with a caption.
func (c *Client) SendPhoto(ctx context.Context, chatID, photoURL, caption string) error {
	return c.call(ctx, "sendPhoto", map[string]string{
		"chat_id": chatID,
		"photo":   photoURL,
		"caption": caption,
	}, nil)
}

// BotInfo is the getMe result.
type BotInfo struct {
	ID          string `json:"id"`
	AccountName string `json:"account_name"`
	DisplayName string `json:"display_name"`
}

func (c *Client) GetMe(ctx context.Context) (*BotInfo, error) {
	var info BotInfo
	if err := c.call(ctx, "getMe", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Update is one incoming event.
type Update struct {
	Message *Message `json:"message"`
}

type Message struct {
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
	Chat      struct {
		ID string `json:"id"`
	} `json:"chat"`
	From struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"from"`
}

// GetUpdates long-polls for up to timeout. The API returns either one update or a list.
func (c *Client) GetUpdates(ctx context.Context, timeout time.Duration) ([]Update, error) {
	var raw json.RawMessage
	if err := c.call(ctx, "getUpdates", map[string]int{"timeout": int(timeout.Seconds())}, &raw); err != nil {
		return nil, err
	}
	return decodeUpdates(raw)
}

func decodeUpdates(raw json.RawMessage) ([]Update, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '[' {
		var list []Update
		err := json.Unmarshal(raw, &list)
		return list, err
	}
	var one Update
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, err
	}
	return []Update{one}, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
