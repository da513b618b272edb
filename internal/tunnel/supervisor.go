package tunnel

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/crucial707/meddevice/internal/metrics"
)

// Settings keys the supervisor reads and writes.
const (
	KeySubdomain = "tunnel_subdomain"
	KeyDomainURL = "domain_url"
)

// SettingsStore persists the subdomain and the public URL.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Info is the current tunnel state.
type Info struct {
	Connected bool   `json:"connected"`
	URL       string `json:"url"`
	Subdomain string `json:"subdomain"`
}

const (
	reconnectBase = 5 * time.Second
	reconnectCap  = 5 * time.Minute
	// A connector session that lasted this long starts the reconnect backoff over.
	defaultStableAfter = 10 * time.Minute
)

func defaultBackoff() retry.Backoff {
	return retry.WithCappedDuration(reconnectCap, retry.NewExponential(reconnectBase))
}

// Supervisor leases a tunnel, runs the connector and reconnects when it exits.
type Supervisor struct {
	Backend   *Backend
	Settings  SettingsStore
	Binary    string
	LocalPort string
	Logger    *slog.Logger
	// Connector runs the tunnel process until it exits; tests replace it.
	Connector func(ctx context.Context, binary string, args []string) error
	// NewBackoff builds a fresh reconnect delay sequence.
	NewBackoff  func() retry.Backoff
	StableAfter time.Duration

	now  func() time.Time
	mu   sync.RWMutex
	info Info
}

// NewSupervisor returns a Supervisor that runs binary against localPort.
func NewSupervisor(backend *Backend, settings SettingsStore, binary, localPort string, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Supervisor{
		Backend:     backend,
		Settings:    settings,
		Binary:      binary,
		LocalPort:   localPort,
		Logger:      logger,
		NewBackoff:  defaultBackoff,
		StableAfter: defaultStableAfter,
		now:         time.Now,
	}
	s.Connector = s.runCloudflared
	return s
}

// Info returns a snapshot of the tunnel state.
func (s *Supervisor) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

func (s *Supervisor) setInfo(i Info) {
	s.mu.Lock()
	s.info = i
	s.mu.Unlock()
	metrics.SetTunnelConnected(i.Connected)
}

// Subdomain returns the saved subdomain, creating and saving a random one on first use.
func (s *Supervisor) Subdomain(ctx context.Context) (string, error) {
	sub, err := s.Settings.Get(ctx, KeySubdomain)
	if err != nil {
		return "", err
	}
	if sub != "" {
		return sub, nil
	}
	sub = fmt.Sprintf("vicas-%d", 100000+rand.IntN(900000))
	if err := s.Settings.Set(ctx, KeySubdomain, sub); err != nil {
		return "", err
	}
	return sub, nil
}

// RunOnce leases a tunnel and blocks while the connector runs. The lease is released
// when the connector exits.
func (s *Supervisor) RunOnce(ctx context.Context) error {
	sub, err := s.Subdomain(ctx)
	if err != nil {
		return fmt.Errorf("tunnel subdomain: %w", err)
	}
	s.mu.Lock()
	s.info.Subdomain = sub
	s.mu.Unlock()

	lease, err := s.Backend.Create(ctx, sub)
	if err != nil {
		return err
	}
	if err := s.Settings.Set(ctx, KeyDomainURL, lease.URL); err != nil {
		s.Logger.Error("save tunnel url", "error", err)
	}
	s.setInfo(Info{Connected: true, URL: lease.URL, Subdomain: sub})
	s.Logger.Info("tunnel created", "url", lease.URL, "scanner", lease.URL+"/inspect.html")

	args := []string{"tunnel", "run", "--token", lease.Token, "--url", "http://localhost:" + s.LocalPort}
	runErr := s.Connector(ctx, s.Binary, args)

	s.setInfo(Info{Connected: false, URL: lease.URL, Subdomain: sub})
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.Backend.Release(releaseCtx, sub, lease.TunnelID); err != nil {
		s.Logger.Warn("tunnel release", "error", err)
	}
	if runErr != nil {
		return fmt.Errorf("tunnel connector: %w", runErr)
	}
	return errors.New("tunnel connector exited")
}

// Run keeps the tunnel up until ctx ends, backing off between attempts. The backoff
// starts over after a session that stayed up for StableAfter. A subdomain conflict stops it.
func (s *Supervisor) Run(ctx context.Context) error {
	backoff := s.NewBackoff()
	for {
		started := s.now()
		err := s.RunOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrSubdomainInUse) {
			return err
		}
		if s.now().Sub(started) >= s.StableAfter {
			backoff = s.NewBackoff()
		}
		delay, stop := backoff.Next()
		if stop {
			return err
		}
		s.Logger.Warn("tunnel down, reconnecting", "error", err, "delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

var ignoredConnectorOutput = []string{
	"Cannot determine default origin certificate path",
	"No file cert.pem",
	"origincert option",
	"TUNNEL_ORIGIN_CERT",
	"context canceled",
	"failed to run the datagram handler",
	"Connection terminated",
	"Retrying connection",
}

func (s *Supervisor) runCloudflared(ctx context.Context, binary string, args []string) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	s.logConnectorOutput(stderr)
	return cmd.Wait()
}

func (s *Supervisor) logConnectorOutput(r io.Reader) {
	registered := 0
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if containsAny(line, ignoredConnectorOutput) {
			continue
		}
		if strings.Contains(line, "Registered tunnel connection") {
			registered++
			s.Logger.Info("tunnel connection registered", "count", registered)
			continue
		}
		if strings.Contains(line, "ERR") || strings.Contains(line, "error") {
			s.Logger.Warn("tunnel connector", "output", strings.TrimSpace(line))
		}
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
