// Package http serves the ledger as a JSON API for the web front end.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"paydo/internal/ledger"
	applog "paydo/internal/log"
)

const (
	mutationLimit  = 60
	mutationWindow = time.Minute
	maxBodyBytes   = 1 << 20
	maxBackupBytes = 32 << 20
)

type Server struct {
	http.Server
	ledger      *ledger.Ledger
	logger      *applog.Logger
	rateLimiter *rateLimiter
	metrics     *securityMetrics
	now         func() time.Time
	// restoreLimit caps the size of an uploaded backup.
	restoreLimit int64

	shutdownOnce sync.Once
}

// NewServer wires the API routes in front of l.
func NewServer(addr string, l *ledger.Ledger, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ledger:      l,
		logger:      logger.WithComponent(applog.ComponentHTTP),
		rateLimiter: newRateLimiter(mutationLimit, mutationWindow),
		metrics:     &securityMetrics{},
		now:         time.Now,

		restoreLimit: maxBackupBytes,
	}

	mux.HandleFunc("GET /healthz", handleHealth)

	mux.HandleFunc("GET /api/budget", s.handleBudget)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)
	mux.HandleFunc("GET /api/tags", s.handleListTags)
	mux.HandleFunc("DELETE /api/tags/{tag}", s.handleDeleteTag)
	mux.HandleFunc("GET /api/backup", s.handleBackup)
	mux.HandleFunc("POST /api/restore", s.handleRestore)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("GET /api/storage", s.handleStorage)

	s.Handler = applog.Middleware(logger)(s.withSecurity(mux))
	return s
}

// withSecurity sets security headers, flags probing requests and rate
// limits mutations per client IP.
func (s *Server) withSecurity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		clientIP := extractClientIP(r)
		setSecurityHeaders(w.Header())

		if detectSuspiciousRequest(r, s.metrics) {
			applog.FromContext(ctx).WarnContext(ctx, "Suspicious request", applog.FieldClientIP, clientIP, applog.FieldPath, r.URL.Path)
		}

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP, s.metrics) {
			applog.FromContext(ctx).WarnContext(ctx, "Rate limit exceeded", applog.FieldClientIP, clientIP, applog.FieldMethod, r.Method)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded", Message: msgRateLimited})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops the rate limiter and the HTTP server. It is safe to call
// more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
