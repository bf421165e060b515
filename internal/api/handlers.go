// Package api exposes a small read-mostly ops endpoint. It is off
// unless an address is configured; the bridge itself never depends on
// it.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/LeventeLantos/sms-bridge/internal/poller"
	"github.com/LeventeLantos/sms-bridge/internal/queue"
	"github.com/LeventeLantos/sms-bridge/internal/session"
)

// Session is the slice of the session manager the API reads.
type Session interface {
	Status() session.Status
	Attempts() int
}

type Handler struct {
	sess   Session
	poll   *poller.Poller
	inbox  *queue.Inbox
	outbox *queue.Outbox
}

func NewHandler(sess Session, poll *poller.Poller, inbox *queue.Inbox, outbox *queue.Outbox) *Handler {
	return &Handler{sess: sess, poll: poll, inbox: inbox, outbox: outbox}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   h.sess.Status(),
		"attempts": h.sess.Attempts(),
	})
}

func (h *Handler) Queues(w http.ResponseWriter, r *http.Request) {
	inboxDepth, err := h.inbox.Depth()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	pending, failed, err := h.outbox.Depths()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"inbox":          inboxDepth,
		"outbox_pending": pending,
		"outbox_failed":  failed,
	})
}

func (h *Handler) PollerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"running": h.poll.IsRunning()})
}

func (h *Handler) PollerStart(w http.ResponseWriter, r *http.Request) {
	h.poll.Start()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.poll.IsRunning()})
}

func (h *Handler) PollerStop(w http.ResponseWriter, r *http.Request) {
	h.poll.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"running": h.poll.IsRunning()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
