package netwatch

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Prober is a Monitor that determines reachability by periodically issuing a
// HEAD request against the ingestion endpoint. Any HTTP response counts as
// online; only a failed connection counts as offline.
type Prober struct {
	*Manual

	url      string
	interval time.Duration
	client   *http.Client
	logger   *slog.Logger
	done     chan struct{}
}

// NewProber creates a probe-backed monitor. The monitor starts optimistic
// (online) and corrects itself after the first probe.
func NewProber(url string, interval time.Duration, logger *slog.Logger) *Prober {
	return &Prober{
		Manual:   NewManual(true),
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start launches the probe loop. It probes once immediately, then on every
// interval tick until Stop is called.
func (p *Prober) Start() {
	go func() {
		p.probe()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-p.done:
				return
			case <-ticker.C:
				p.probe()
			}
		}
	}()
}

// Stop terminates the probe loop.
func (p *Prober) Stop() {
	close(p.done)
}

func (p *Prober) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		p.logger.Error("invalid probe url", "url", p.url, "error", err)
		return
	}

	resp, err := p.client.Do(req)
	online := err == nil
	if resp != nil {
		resp.Body.Close()
	}

	if online != p.IsOnline() {
		p.logger.Info("network state changed", "online", online)
	}
	p.SetOnline(online)
}
