package daemon

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/lumehealth/carebot/internal/care"
	"github.com/lumehealth/carebot/internal/config"
	"github.com/lumehealth/carebot/internal/errors"
	"github.com/lumehealth/carebot/internal/logfields"
	"github.com/lumehealth/carebot/internal/metrics"
	"github.com/lumehealth/carebot/internal/version"
)

// adminServer is the local HTTP endpoint for health, status and metrics. It
// binds its listener before serving so a taken port fails startup instead of
// surfacing later as a dead endpoint.
type adminServer struct {
	cfg      config.AdminConfig
	daemon   *Daemon
	registry *prom.Registry
	logger   *slog.Logger

	listener net.Listener
	server   *http.Server
}

func newAdminServer(cfg config.AdminConfig, d *Daemon, registry *prom.Registry, logger *slog.Logger) *adminServer {
	return &adminServer{cfg: cfg, daemon: d, registry: registry, logger: logger}
}

// Start binds the listener and begins serving in the background.
func (a *adminServer) Start() error {
	ln, err := net.Listen("tcp", a.cfg.Listen)
	if err != nil {
		return errors.Wrap(err, errors.CategoryDaemon, errors.SeverityFatal, "bind admin listener").
			WithContext("listen", a.cfg.Listen)
	}
	a.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc(a.cfg.Health.Path, a.handleHealth)
	mux.HandleFunc("/status", a.handleStatus)
	if a.cfg.Metrics.Enabled && a.registry != nil {
		mux.Handle(a.cfg.Metrics.Path, metrics.HTTPHandler(a.registry))
	}

	a.server = &http.Server{
		Handler:      chain(a.logger, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := a.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			a.logger.Error("admin server failed", logfields.Error(err))
		}
	}()

	a.logger.Info("admin endpoint listening", slog.String("addr", ln.Addr().String()))
	return nil
}

// Stop shuts the server down, letting in-flight requests finish.
func (a *adminServer) Stop(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// Addr reports the bound address, useful when Listen used port 0.
func (a *adminServer) Addr() string {
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

func (a *adminServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := a.daemon.GetStatus()
	code := http.StatusOK
	if status != StatusRunning {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{
		"status":  string(status),
		"version": version.Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// statusSnapshot is the admin /status document.
type statusSnapshot struct {
	Status            Status            `json:"status"`
	Version           string            `json:"version"`
	UptimeSeconds     float64           `json:"uptime_seconds"`
	Timezone          string            `json:"timezone"`
	Day               care.Day          `json:"day"`
	RecipientLinked   bool              `json:"recipient_linked"`
	Recipient         int64             `json:"recipient,omitempty"`
	ActiveEscalations int               `json:"active_escalations"`
	NextRuns          map[string]string `json:"next_runs,omitempty"`
}

func (a *adminServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.daemon.snapshot(r.Context()))
}

// snapshot assembles the admin status document from live components.
func (d *Daemon) snapshot(ctx context.Context) statusSnapshot {
	snap := statusSnapshot{
		Status:        d.GetStatus(),
		Version:       version.Version,
		UptimeSeconds: d.Uptime().Seconds(),
		Timezone:      d.loc.String(),
		Day:           care.Today(d.loc),
	}

	if d.registry != nil {
		if recipient, ok := d.registry.Resolve(ctx); ok {
			snap.RecipientLinked = true
			snap.Recipient = int64(recipient)
		}
	}
	if d.escalation != nil {
		snap.ActiveEscalations = d.escalation.ActiveCount()
	}
	if d.triggers != nil {
		snap.NextRuns = make(map[string]string, 3)
		for _, slot := range care.Slots() {
			if next, err := d.triggers.NextRun(slot); err == nil {
				snap.NextRuns[string(slot)] = next.In(d.loc).Format(time.RFC3339)
			}
		}
	}
	return snap
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
