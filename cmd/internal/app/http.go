package app

import (
	"context"
	"net/http"
	"time"

	"aya/cmd/internal/auth/api"
	"aya/cmd/internal/metrics"
	"aya/cmd/internal/realtime"
	"aya/cmd/internal/solver"
)

// readinessChecker is satisfied by *Storage.
type readinessChecker interface {
	Ping(ctx context.Context) error
}

func registerHTTP(
	mux *http.ServeMux,
	log Logger,
	ready readinessChecker,
	auth *api.Handler,
	ws *realtime.WSGateway,
	solve *solver.Handler,
	web http.Handler,
	m *metrics.Metrics,
) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			if err := ready.Ping(ctx); err != nil {
				http.Error(w, "storage not ready", http.StatusServiceUnavailable)
				log.Info("readyz.storage.not_ready", "err", err)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	if m != nil {
		mux.Handle("/metrics", m.Handler())
	}

	auth.Register(mux)
	mux.Handle("/solve", auth.RequireSession(solve))
	mux.HandleFunc("/ws", ws.HandleWS)

	if web != nil {
		mux.Handle("/", web)
	}
}
