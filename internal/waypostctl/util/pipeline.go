// Package util provides shared helpers for the Waypost CLI commands
package util

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/waypost/waypost/internal/waypost"
	"github.com/waypost/waypost/internal/waypost/collector"
	wpconfig "github.com/waypost/waypost/internal/waypost/config"
	"github.com/waypost/waypost/internal/waypost/journey"
	"github.com/waypost/waypost/internal/waypost/netwatch"
	"github.com/waypost/waypost/internal/waypost/queue"
	"github.com/waypost/waypost/internal/waypostctl/config"
)

// Pipeline bundles a fully wired client telemetry pipeline for CLI use.
type Pipeline struct {
	Collector *collector.Collector
	Monitor   *journey.Monitor
	Queues    *queue.Manager
	Network   *netwatch.Manual
	Logger    *slog.Logger

	system *waypost.System
}

// BuildPipeline wires collector, queue manager, journey monitor and alert
// sinks from the CLI configuration. The network monitor is manual and starts
// online; CLI runs have no connectivity signal to subscribe to.
func BuildPipeline(cfg *config.Config) (*Pipeline, error) {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	wpcfg := wpconfig.Defaults()
	wpcfg.Transport.Endpoint = cfg.Endpoint
	wpcfg.Collector.BatchSize = cfg.BatchSize
	wpcfg.Collector.FlushInterval = cfg.FlushInterval
	wpcfg.Collector.SamplingRate = cfg.SamplingRate
	wpcfg.Collector.DebugMode = cfg.Debug
	wpcfg.Alerts.RedisAddr = cfg.RedisAddr
	wpcfg.Alerts.RedisChannel = cfg.AlertChannel
	// Debug runs expose the ops surface with the live batch tail.
	wpcfg.Ops.Enabled = cfg.Debug

	network := netwatch.NewManual(true)

	system, err := waypost.New(wpcfg, logger, waypost.WithNetwork(network))
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		Collector: system.Collector,
		Monitor:   system.Monitor,
		Queues:    system.Queues,
		Network:   network,
		Logger:    logger,
		system:    system,
	}, nil
}

// Shutdown drains the pipeline: abandons in-flight journeys, performs the
// final synchronous flush and releases resources.
func (p *Pipeline) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	p.system.Shutdown(ctx)
}
