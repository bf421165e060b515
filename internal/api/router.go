package api

import "net/http"

func Router(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", h.Health)

	mux.HandleFunc("GET /v1/session/status", h.SessionStatus)
	mux.HandleFunc("GET /v1/queues", h.Queues)

	mux.HandleFunc("GET /v1/poller/status", h.PollerStatus)
	mux.HandleFunc("POST /v1/poller/start", h.PollerStart)
	mux.HandleFunc("POST /v1/poller/stop", h.PollerStop)

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("sms-bridge"))
	})

	return mux
}
