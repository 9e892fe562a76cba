// Package waypost assembles the telemetry pipeline: collector, queue
// manager, journey monitor, network watcher, alert sinks and the optional
// ops surface. A host application constructs one System at process start and
// passes it to whatever needs to record telemetry; there is no hidden
// singleton.
package waypost

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/waypost/waypost/api/types/v1alpha1"
	"github.com/waypost/waypost/internal/waypost/alert"
	alertredis "github.com/waypost/waypost/internal/waypost/alert/redis"
	"github.com/waypost/waypost/internal/waypost/collector"
	"github.com/waypost/waypost/internal/waypost/config"
	"github.com/waypost/waypost/internal/waypost/journey"
	"github.com/waypost/waypost/internal/waypost/netwatch"
	"github.com/waypost/waypost/internal/waypost/ops"
	"github.com/waypost/waypost/internal/waypost/queue"
	"github.com/waypost/waypost/internal/waypost/transport"
)

// System is one fully wired telemetry pipeline instance.
type System struct {
	Collector *collector.Collector
	Monitor   *journey.Monitor
	Queues    *queue.Manager
	Network   netwatch.Monitor

	logger     *slog.Logger
	prober     *netwatch.Prober
	redis      *goredis.Client
	opsHandler *ops.Handler
	opsServer  *http.Server
}

// Option overrides a System dependency, primarily for tests and embedders
// with their own platform integrations.
type Option func(*options)

type options struct {
	network netwatch.Monitor
	sender  transport.Sender
	sink    alert.Sink
	defs    []v1alpha1.JourneyDefinition
}

// WithNetwork replaces the probe-based reachability monitor.
func WithNetwork(network netwatch.Monitor) Option {
	return func(o *options) { o.network = network }
}

// WithSender replaces the HTTP transport.
func WithSender(sender transport.Sender) Option {
	return func(o *options) { o.sender = sender }
}

// WithAlertSink replaces the configured alert sinks.
func WithAlertSink(sink alert.Sink) Option {
	return func(o *options) { o.sink = sink }
}

// WithJourneyDefinitions replaces the journey catalog.
func WithJourneyDefinitions(defs ...v1alpha1.JourneyDefinition) Option {
	return func(o *options) { o.defs = defs }
}

// New builds a System from configuration. The caller owns the returned
// instance and must call Shutdown before process exit to drain queues.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*System, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	defs := o.defs
	if defs == nil {
		if cfg.Journeys.CatalogPath != "" {
			loaded, err := journey.LoadCatalog(cfg.Journeys.CatalogPath)
			if err != nil {
				return nil, err
			}
			defs = loaded
		} else {
			defs = journey.DefaultCatalog()
		}
	}
	registry, err := journey.NewRegistry(defs...)
	if err != nil {
		return nil, err
	}

	s := &System{logger: logger}

	sender := o.sender
	if sender == nil {
		var err error
		sender, err = transport.NewHTTPSender(cfg.Transport.Endpoint, logger,
			transport.WithSendTimeout(cfg.Transport.SendTimeout),
			transport.WithBeaconTimeout(cfg.Transport.BeaconTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("error creating transport: %w", err)
		}
	}

	network := o.network
	if network == nil {
		probeURL := cfg.Transport.ProbeURL
		if probeURL == "" {
			probeURL = cfg.Transport.Endpoint
		}
		prober := netwatch.NewProber(probeURL, cfg.Transport.ProbeInterval, logger)
		prober.Start()
		s.prober = prober
		network = prober
	}
	s.Network = network

	sessionID := collector.NewSessionID()

	s.Queues = queue.NewManager(sender, network, sessionID, queue.Options{
		BatchSize:       cfg.Collector.BatchSize,
		FlushInterval:   cfg.Collector.FlushInterval,
		MaxRetries:      cfg.Collector.MaxRetries,
		MaxRetryBatches: cfg.Collector.MaxRetryBatches,
	}, logger)

	sink := o.sink
	if sink == nil {
		sinks := alert.MultiSink{alert.NewLogSink(logger)}
		if cfg.Alerts.RedisAddr != "" {
			s.redis = goredis.NewClient(&goredis.Options{Addr: cfg.Alerts.RedisAddr})
			sinks = append(sinks, alertredis.NewSink(s.redis, cfg.Alerts.RedisChannel, logger))
		}
		sink = sinks
	}

	deviceClass := cfg.Collector.DeviceClass
	if deviceClass == "" || deviceClass == "unknown" {
		deviceClass = collector.DetectDeviceClass()
	}

	s.Collector = collector.New(s.Queues, sink, sessionID, collector.Options{
		SamplingRate: cfg.Collector.SamplingRate,
		DeviceClass:  deviceClass,
		DebugMode:    cfg.Collector.DebugMode,
	}, logger)

	s.Monitor = journey.NewMonitor(registry, s.Collector, sink, sessionID, journey.Options{
		CleanupInterval: cfg.Journeys.CleanupInterval,
		Retention:       cfg.Journeys.Retention,
	}, logger)

	if cfg.Ops.Enabled {
		zlogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		s.opsHandler = ops.NewHandler(s.Queues, s.Monitor, zlogger, logger)
		s.opsServer = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Ops.Host, cfg.Ops.Port),
			Handler: s.opsHandler.Router(),
		}
		go func() {
			if err := s.opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("ops server error", "error", err)
			}
		}()
		logger.Info("ops surface listening", "addr", s.opsServer.Addr)
	}

	return s, nil
}

// OnHidden should be called when the host signals the application moved to
// the background. Queues are flushed asynchronously.
func (s *System) OnHidden() {
	s.Queues.OnHidden()
}

// OnUnload should be called when the host is about to terminate without a
// normal shutdown: in-flight journeys are abandoned and queues get a final
// fire-and-forget flush.
func (s *System) OnUnload() {
	s.Monitor.OnUnload()
	s.Queues.FlushAll(true)
}

// Shutdown stops timers, abandons in-flight journeys, drains queues with a
// final synchronous flush and releases resources.
func (s *System) Shutdown(ctx context.Context) {
	s.Monitor.Shutdown()
	if s.prober != nil {
		s.prober.Stop()
	}
	s.Queues.Shutdown()
	if s.opsServer != nil {
		s.opsServer.Shutdown(ctx)
		s.opsHandler.Close()
	}
	if s.redis != nil {
		s.redis.Close()
	}
}
