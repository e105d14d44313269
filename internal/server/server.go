// Package server wires the HTTP routes.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"clinic-agent/internal/agent"
	"clinic-agent/internal/analytics"
	"clinic-agent/internal/auth"
	"clinic-agent/internal/tasks"
	"clinic-agent/internal/transcript"
)

type Deps struct {
	Agent       agent.Runner
	Transcripts transcript.Runner
	Todos       tasks.TodoStore
	Events      analytics.Execer
	Auth        auth.Middleware
	Origins     []string
	// Ping reports whether the database is reachable.
	Ping func(ctx context.Context) error
}

func Router(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", healthHandler(d.Ping))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(d.Auth.Handler)

		r.Post("/ai-agent", agent.Handler(d.Agent, d.Events))
		r.Post("/process-transcript", transcript.ProcessHandler(d.Transcripts, d.Events))
		r.Get("/tasks", tasks.ListHandler(d.Todos))
		r.Post("/tasks/status", tasks.SetStatusHandler(d.Todos, d.Events))
		r.Post("/events/agent-feedback", analytics.AgentFeedbackHandler(d.Events))
	})

	origins := d.Origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Content-Type", "Authorization", "Idempotency-Key", "X-Source-Event-Key",
			"X-Platform", "X-Session-Id", "X-App-Version", "X-Device-Locale",
		},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

func healthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				log.Warn().Err(err).Msg("health check: database unreachable")
				http.Error(w, "database unreachable", http.StatusServiceUnavailable)
				return
			}
		}
		_, _ = w.Write([]byte("OK"))
	}
}

// Run serves h on addr until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("API server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
