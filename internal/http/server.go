// Package http exposes the report engine over a JSON REST API. The
// consumer workers stay the write path; this surface serves reads,
// deletes and the on-demand recalculation trigger.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"reportsvc/internal/log"
)

// recalcPerMinute caps recalculation triggers per user; each trigger
// causes a full period fetch from the transaction service.
const recalcPerMinute = 10

// Server wraps the standard http.Server with the configured router.
type Server struct {
	http.Server

	limiter      *userLimiter
	shutdownOnce sync.Once
}

// NewServer builds the router and returns a server ready to listen on addr.
func NewServer(addr string, h *Handler, logger *log.Logger) *Server {
	r := chi.NewRouter()
	limiter := newUserLimiter(recalcPerMinute)

	r.Use(middleware.Recoverer)
	r.Use(log.RequestLogger(logger.WithComponent(log.ComponentHTTP)))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-User-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", handleHealth)

	r.Route("/api/v1/reports", func(r chi.Router) {
		r.Get("/", h.ListReports)
		r.Get("/summary", h.Summary)
		r.Get("/{period}", h.GetReport)
		r.Delete("/{period}", h.DeleteReport)
		r.Delete("/id/{reportId}", h.DeleteReportByID)
		r.With(limiter.middleware()).Post("/{period}/recalculate", h.Recalculate)
	})

	return &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		limiter: limiter,
	}
}

// Shutdown stops the limiter sweep and drains in-flight requests within
// the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
