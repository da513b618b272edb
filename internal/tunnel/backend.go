// Package tunnel keeps a public URL pointing at the local server through a cloudflared
// connector leased from a tunnel backend.
package tunnel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrSubdomainInUse means another installation holds the subdomain; retrying will not help.
var ErrSubdomainInUse = errors.New("tunnel subdomain already in use")

// Lease is a tunnel issued by the backend.
type Lease struct {
	TunnelID string `json:"tunnelId"`
	Token    string `json:"tunnelToken"`
	URL      string `json:"url"`
}

// Backend issues and releases tunnels.
type Backend struct {
	URL  string
	HTTP *http.Client
}

// NewBackend returns a client for the tunnel lease service at url.
func NewBackend(url string) *Backend {
	return &Backend{URL: url, HTTP: &http.Client{Timeout: 30 * time.Second}}
}

type createResponse struct {
	Lease
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Create asks for a tunnel on subdomain.
func (b *Backend) Create(ctx context.Context, subdomain string) (*Lease, error) {
	body, _ := json.Marshal(map[string]string{"subdomain": subdomain})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tunnel backend: %w", err)
	}
	defer resp.Body.Close()

	var out createResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("tunnel backend: decode (status %d): %w", resp.StatusCode, err)
	}
	if !out.Success {
		if strings.Contains(out.Error, "SUBDOMAIN_IN_USE") || strings.Contains(out.Error, "already in use") {
			return nil, fmt.Errorf("%w: %s", ErrSubdomainInUse, subdomain)
		}
		if out.Error == "" {
			out.Error = "unknown error"
		}
		return nil, fmt.Errorf("tunnel backend: %s", out.Error)
	}
	return &out.Lease, nil
}

// Release tells the backend the tunnel is no longer used.
func (b *Backend) Release(ctx context.Context, subdomain, tunnelID string) error {
	body, _ := json.Marshal(map[string]string{"subdomain": subdomain, "tunnelId": tunnelID})
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, b.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := b.HTTP.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("tunnel backend release: status %d", resp.StatusCode)
	}
	return nil
}
