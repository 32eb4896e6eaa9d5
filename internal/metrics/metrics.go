package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Core synchronization primitives
	initOnce       sync.Once
	serverMutex    sync.Mutex
	modeMutex      sync.Mutex
	currentSrv     *http.Server
	triggerChannel chan<- os.Signal
	reloadChannel  chan<- os.Signal

	// healthy flips to false when the most recent run failed
	healthy atomic.Bool
)

// Init initializes all metrics subsystems and registers them with Prometheus
// This function is safe to call multiple times (uses sync.Once)
func Init() {
	initOnce.Do(func() {
		initCleanupMetrics()
		initDaemonMetrics()

		registerCleanupMetrics()
		registerDaemonMetrics()

		// Initialize metrics with default values so they appear in /metrics immediately
		CleanupLastRunTimestamp.Set(0)
		CleanupLastMode.WithLabelValues("NONE").Set(0)
		EmergencyActive.Set(0)
		healthy.Store(true)
	})
}

// SetTriggerChannel sets the channel that POST /trigger writes SIGUSR1 to.
func SetTriggerChannel(ch chan<- os.Signal) {
	serverMutex.Lock()
	defer serverMutex.Unlock()
	triggerChannel = ch
}

// SetReloadChannel sets the channel that POST /reload writes SIGHUP to.
func SetReloadChannel(ch chan<- os.Signal) {
	serverMutex.Lock()
	defer serverMutex.Unlock()
	reloadChannel = ch
}

// SetHealthy records whether the last run completed without a fatal error.
func SetHealthy(ok bool) {
	healthy.Store(ok)
}

// Handler builds the HTTP mux exposing /metrics, /health, /trigger and /reload.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok","healthy":true}`))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"degraded","healthy":false}`))
	})

	mux.HandleFunc("/trigger", signalHandler(&triggerChannel, syscall.SIGUSR1, "Cleanup triggered"))
	mux.HandleFunc("/reload", signalHandler(&reloadChannel, syscall.SIGHUP, "Config reload triggered"))

	return mux
}

func signalHandler(target *chan<- os.Signal, sig os.Signal, okMsg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		serverMutex.Lock()
		ch := *target
		serverMutex.Unlock()

		if ch == nil {
			http.Error(w, "Channel not initialized", http.StatusServiceUnavailable)
			return
		}
		select {
		case ch <- sig:
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(okMsg))
		default:
			http.Error(w, "Channel full", http.StatusServiceUnavailable)
		}
	}
}

// StartServer starts the metrics HTTP server on the specified address
func StartServer(addr string, logger *slog.Logger) {
	serverMutex.Lock()
	defer serverMutex.Unlock()

	if currentSrv != nil {
		logger.Info("metrics server already running", "addr", currentSrv.Addr)
		return
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	currentSrv = srv

	go func() {
		logger.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
			ErrorsTotal.Inc()
		}
	}()
}

// Shutdown gracefully shuts down the metrics server
func Shutdown(ctx context.Context, logger *slog.Logger) {
	serverMutex.Lock()
	defer serverMutex.Unlock()

	if currentSrv == nil {
		return
	}

	if err := currentSrv.Shutdown(ctx); err != nil {
		logger.Error("metrics server shutdown error", "error", err)
		ErrorsTotal.Inc()
	}
	currentSrv = nil
}
