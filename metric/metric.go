// Package metric provides Prometheus metrics collection and monitoring.
package metric

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/process"

	"github.com/ashwaniclecvdoc/vc-backend-scale/database"
)

// Source is the state the collector samples.
type Source interface {
	FindAllPeerInfos() ([]*database.PeerInfo, error)
	FindAllRoomInfos() ([]*database.RoomInfo, error)
	FindResourceInfosByKind(kind database.ResourceKind) ([]*database.ResourceInfo, error)
}

// Metrics contains the Prometheus metrics server and registered custom metrics.
type Metrics struct {
	config   Config
	registry *prometheus.Registry

	webSocketConnections prometheus.Gauge
	peers                prometheus.Gauge
	rooms                prometheus.Gauge
	resources            *prometheus.GaugeVec
	events               *prometheus.CounterVec
	httpResponses        *prometheus.CounterVec
	cpuUsage             prometheus.Gauge
	memoryUsage          prometheus.Gauge
}

// New creates a new Metrics instance with its own registry.
func New(config Config) *Metrics {
	if config.Path == "" {
		config.Path = DefaultMetricsPath
	}
	if config.Interval == 0 {
		config.Interval = DefaultSampleInterval
	}
	m := &Metrics{
		config:   config,
		registry: prometheus.NewRegistry(),
		webSocketConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "websocket_connections_total",
			Help: "Current number of WebSocket connections.",
		}),
		peers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "peers_total",
			Help: "Current number of peer sessions.",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rooms_total",
			Help: "Current number of rooms.",
		}),
		resources: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "media_resources_total",
			Help: "Current number of live media resources.",
		}, []string{"kind"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signaling_events_total",
			Help: "Handled signaling events.",
		}, []string{"type", "result"}),
		httpResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_responses_total",
			Help: "HTTP responses by status code.",
		}, []string{"code"}),
		cpuUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cpu_usage_percentage",
			Help: "CPU usage percentage.",
		}),
		memoryUsage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "memory_usage_bytes",
			Help: "Current memory usage in bytes.",
		}),
	}
	m.registry.MustRegister(
		m.webSocketConnections,
		m.peers,
		m.rooms,
		m.resources,
		m.events,
		m.httpResponses,
		m.cpuUsage,
		m.memoryUsage,
	)
	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Start serves the metrics until the context is done. A zero port disables it.
func (m *Metrics) Start(ctx context.Context) error {
	if m.config.Port == 0 {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", m.config.Port),
		Handler:           mux,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Str("module", "metric").Err(err).Msg("failed to stop metrics server")
		}
	}()

	log.Info().Str("module", "metric").Int("port", m.config.Port).Str("path", m.config.Path).Msg("starting metrics server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	return nil
}

// Collect samples the source and the process every interval until the
// context is done.
func (m *Metrics) Collect(ctx context.Context, source Source) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return fmt.Errorf("failed to inspect process: %w", err)
	}

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()
	for {
		m.Sample(source)
		m.updateSystemMetrics(proc)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Sample updates the peer, room and resource gauges from the source.
func (m *Metrics) Sample(source Source) {
	if peers, err := source.FindAllPeerInfos(); err == nil {
		m.peers.Set(float64(len(peers)))
	}
	if rooms, err := source.FindAllRoomInfos(); err == nil {
		m.rooms.Set(float64(len(rooms)))
	}
	for _, kind := range []database.ResourceKind{database.Transport, database.Producer, database.Consumer} {
		if resources, err := source.FindResourceInfosByKind(kind); err == nil {
			m.resources.WithLabelValues(string(kind)).Set(float64(len(resources)))
		}
	}
}

func (m *Metrics) updateSystemMetrics(proc *process.Process) {
	if percent, err := proc.CPUPercent(); err == nil {
		m.cpuUsage.Set(percent)
	}
	if info, err := proc.MemoryInfo(); err == nil {
		m.memoryUsage.Set(float64(info.RSS))
	}
}

// IncrementWebSocketConnections increments the WebSocket connection count.
func (m *Metrics) IncrementWebSocketConnections() {
	m.webSocketConnections.Inc()
}

// DecrementWebSocketConnections decrements the WebSocket connection count.
func (m *Metrics) DecrementWebSocketConnections() {
	m.webSocketConnections.Dec()
}

// ObserveEvent counts a handled signaling event.
func (m *Metrics) ObserveEvent(eventType, result string) {
	m.events.WithLabelValues(eventType, result).Inc()
}

// ObserveResponse counts an HTTP response.
func (m *Metrics) ObserveResponse(code int) {
	m.httpResponses.WithLabelValues(strconv.Itoa(code)).Inc()
}
