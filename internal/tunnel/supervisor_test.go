package tunnel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSettings struct {
	mu sync.Mutex
	m  map[string]string
}

func (m *memSettings) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[key], nil
}

func (m *memSettings) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.m == nil {
		m.m = map[string]string{}
	}
	m.m[key] = value
	return nil
}

type fakeBackend struct {
	mu       sync.Mutex
	released []map[string]string
	createFn func(sub string) string
}

func (f *fakeBackend) handler(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	switch r.Method {
	case http.MethodPost:
		_, _ = w.Write([]byte(f.createFn(body["subdomain"])))
	case http.MethodDelete:
		f.mu.Lock()
		f.released = append(f.released, body)
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestSupervisor_RunOnce(t *testing.T) {
	fb := &fakeBackend{createFn: func(sub string) string {
		return `{"success":true,"tunnelId":"t-1","tunnelToken":"secret","url":"https://` + sub + `.nport.link"}`
	}}
	srv := httptest.NewServer(http.HandlerFunc(fb.handler))
	defer srv.Close()

	settings := &memSettings{m: map[string]string{KeySubdomain: "vicas-123456"}}
	s := NewSupervisor(NewBackend(srv.URL), settings, "cloudflared", "3000", quiet())

	var gotArgs []string
	var during Info
	s.Connector = func(ctx context.Context, binary string, args []string) error {
		gotArgs = args
		during = s.Info()
		return nil
	}

	err := s.RunOnce(context.Background())
	require.Error(t, err, "a connector exit is reported so Run reconnects")

	assert.Equal(t, []string{"tunnel", "run", "--token", "secret", "--url", "http://localhost:3000"}, gotArgs)
	assert.True(t, during.Connected)
	assert.Equal(t, "https://vicas-123456.nport.link", during.URL)
	assert.False(t, s.Info().Connected)
	assert.Equal(t, "https://vicas-123456.nport.link", settings.m[KeyDomainURL])
	require.Len(t, fb.released, 1)
	assert.Equal(t, "t-1", fb.released[0]["tunnelId"])
}

func TestSupervisor_GeneratesSubdomain(t *testing.T) {
	settings := &memSettings{}
	s := NewSupervisor(nil, settings, "", "", quiet())
	sub, err := s.Subdomain(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sub, "vicas-"))
	assert.Len(t, sub, len("vicas-")+6)

	again, err := s.Subdomain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sub, again)
}

func TestSupervisor_Run_StopsOnSubdomainConflict(t *testing.T) {
	fb := &fakeBackend{createFn: func(string) string {
		return `{"success":false,"error":"SUBDOMAIN_IN_USE"}`
	}}
	srv := httptest.NewServer(http.HandlerFunc(fb.handler))
	defer srv.Close()

	s := NewSupervisor(NewBackend(srv.URL), &memSettings{}, "cloudflared", "3000", quiet())
	s.Connector = func(context.Context, string, []string) error {
		t.Fatal("connector must not start without a lease")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.Run(ctx)
	assert.True(t, errors.Is(err, ErrSubdomainInUse), "got %v", err)
}

func TestSupervisor_Run_ReturnsOnCancel(t *testing.T) {
	fb := &fakeBackend{createFn: func(sub string) string {
		return `{"success":true,"tunnelId":"t-2","tunnelToken":"x","url":"https://a.nport.link"}`
	}}
	srv := httptest.NewServer(http.HandlerFunc(fb.handler))
	defer srv.Close()

	s := NewSupervisor(NewBackend(srv.URL), &memSettings{}, "cloudflared", "3000", quiet())
	started := make(chan struct{})
	s.Connector = func(ctx context.Context, _ string, _ []string) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	<-started
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	fb.mu.Lock()
	defer fb.mu.Unlock()
	assert.Len(t, fb.released, 1, "lease released even after cancellation")
}

func TestSupervisor_Run_ResetsBackoffAfterStableSession(t *testing.T) {
	fb := &fakeBackend{createFn: func(string) string {
		return `{"success":true,"tunnelId":"t-3","tunnelToken":"x","url":"https://b.nport.link"}`
	}}
	srv := httptest.NewServer(http.HandlerFunc(fb.handler))
	defer srv.Close()

	s := NewSupervisor(NewBackend(srv.URL), &memSettings{}, "cloudflared", "3000", quiet())
	clock := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }
	s.StableAfter = 10 * time.Minute

	// Each backoff is tagged with the order it was built in; Next records (backoff, attempt).
	type step struct{ backoff, attempt int }
	var steps []step
	built := 0
	s.NewBackoff = func() retry.Backoff {
		built++
		id, attempt := built, 0
		return retry.BackoffFunc(func() (time.Duration, bool) {
			attempt++
			steps = append(steps, step{id, attempt})
			return time.Millisecond, false
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sessions := []time.Duration{time.Minute, time.Minute, 3 * time.Hour, time.Minute}
	s.Connector = func(context.Context, string, []string) error {
		if len(sessions) == 0 {
			cancel()
			return context.Canceled
		}
		clock = clock.Add(sessions[0])
		sessions = sessions[1:]
		return errors.New("connection lost")
	}

	require.NoError(t, s.Run(ctx))
	assert.Equal(t, 2, built)
	assert.Equal(t, []step{{1, 1}, {1, 2}, {2, 1}, {2, 2}}, steps)
}

func TestLogConnectorOutput(t *testing.T) {
	var buf bytes.Buffer
	s := &Supervisor{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	s.logConnectorOutput(strings.NewReader(strings.Join([]string{
		"INF Registered tunnel connection connIndex=0",
		"WRN Cannot determine default origin certificate path",
		"ERR failed to serve quic connection",
		"INF Registered tunnel connection connIndex=1",
		"INF Starting metrics server",
	}, "\n")))

	out := buf.String()
	assert.Contains(t, out, "count=2")
	assert.Contains(t, out, "failed to serve quic connection")
	assert.NotContains(t, out, "origin certificate")
	assert.NotContains(t, out, "metrics server")
}
