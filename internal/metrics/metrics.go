package metrics

import (
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Remote store metrics
	RemoteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fretlog_remote_requests_total",
			Help: "Total requests issued to the remote store",
		},
		[]string{"operation", "outcome"},
	)

	RemoteRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fretlog_remote_request_duration_seconds",
			Help:    "Remote store request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	// Snapshot cache metrics
	SnapshotReadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fretlog_snapshot_reads_total",
			Help: "Local snapshot reads by result (hit, miss, corrupt, error)",
		},
		[]string{"result"},
	)

	SnapshotWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fretlog_snapshot_writes_total",
			Help: "Local snapshot writes by result",
		},
		[]string{"result"},
	)

	// Timer metrics
	TimerPersistWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fretlog_timer_persist_writes_total",
			Help: "Item time writes issued when a timer pauses",
		},
		[]string{"outcome"},
	)

	TimerRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fretlog_timer_running",
			Help: "1 while a session item timer is running",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RemoteRequestsTotal,
		RemoteRequestDuration,
		SnapshotReadsTotal,
		SnapshotWritesTotal,
		TimerPersistWrites,
		TimerRunning,
	)
}

// Outcome labels a finished operation.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveRemote records one remote call.
func ObserveRemote(operation string, started time.Time, err error) {
	RemoteRequestsTotal.WithLabelValues(operation, Outcome(err)).Inc()
	RemoteRequestDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// Start binds the listener synchronously so address errors surface to the
// caller, then serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Starting metrics server")

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.server.Addr
	}
	return s.listener.Addr().String()
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
