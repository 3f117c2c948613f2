package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"subembed/internal/deps"
	"subembed/internal/logging"
	"subembed/internal/preflight"
)

type statusServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

type healthResponse struct {
	Status      string  `json:"status"`
	DiskPercent float64 `json:"disk_percent"`
	DiskFreeGB  float64 `json:"disk_free_gb"`
	Error       string  `json:"error,omitempty"`
}

type statusResponse struct {
	Status        string          `json:"status"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Sessions      int             `json:"sessions"`
	ActiveUsers   int             `json:"active_users"`
	Files         map[string]int  `json:"files"`
	Dependencies  []deps.Status   `json:"dependencies"`
	Disk          *healthResponse `json:"disk,omitempty"`
}

func newStatusServer(bind string, d *Daemon, logger *slog.Logger) *statusServer {
	s := &statusServer{
		bind:   strings.TrimSpace(bind),
		logger: logger,
		daemon: d,
	}
	s.server = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *statusServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	return mux
}

func (s *statusServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("status listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("status server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *statusServer) stop() {
	if s == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

func (s *statusServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *statusServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "subembed %s is running\nUptime: %s\nSessions: %d\n",
		status.Version, uptime(status.StartedAt).Truncate(time.Second), status.Sessions)
}

func (s *statusServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	health := s.diskHealth()
	code := http.StatusOK
	if health.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, health)
}

func (s *statusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	files := make(map[string]int, len(status.Files))
	for _, usage := range status.Files {
		files[usage.Name] = usage.Files
	}
	state := "stopped"
	if status.Running {
		state = "running"
	}
	health := s.diskHealth()
	s.writeJSON(w, http.StatusOK, statusResponse{
		Status:        state,
		Version:       status.Version,
		UptimeSeconds: int64(uptime(status.StartedAt).Seconds()),
		Sessions:      status.Sessions,
		ActiveUsers:   status.ActiveUsers,
		Files:         files,
		Dependencies:  status.Dependencies,
		Disk:          &health,
	})
}

func (s *statusServer) diskHealth() healthResponse {
	stats, err := preflight.DiskUsage(s.daemon.opts.Layout.DownloadDir)
	if err != nil {
		return healthResponse{Status: "unhealthy", Error: err.Error()}
	}
	return healthResponse{
		Status:      "healthy",
		DiskPercent: round2(stats.UsedPercent),
		DiskFreeGB:  round2(stats.FreeGB()),
	}
}

func uptime(startedAt time.Time) time.Duration {
	if startedAt.IsZero() {
		return 0
	}
	return time.Since(startedAt)
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func (s *statusServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		s.logger.Warn("status encode failed", logging.Error(err))
	}
}

func (s *statusServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
