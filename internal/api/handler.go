package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/storyloom/internal/reveal"
	"github.com/gyaneshwarpardhi/storyloom/internal/savegame"
	"github.com/gyaneshwarpardhi/storyloom/internal/session"
)

// SaveStore is the save game persistence used by the handlers.
type SaveStore interface {
	session.Store
	List(ctx context.Context) ([]savegame.Summary, error)
	Delete(ctx context.Context, slot string) error
}

// Options configures optional handler behaviour.
type Options struct {
	// AutosaveSlot, when set, receives a save after every forward move.
	AutosaveSlot string
	Typewriter   reveal.Typewriter
}

// Handler holds all HTTP handler dependencies.
type Handler struct {
	sess  *session.Session
	saves SaveStore
	opts  Options
	mux   *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(sess *session.Session, saves SaveStore, opts Options) http.Handler {
	h := &Handler{sess: sess, saves: saves, opts: opts, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/chapters/{name}/load", h.loadChapter)
	h.mux.HandleFunc("POST /v1/chapters/reload", h.reloadChapter)
	h.mux.HandleFunc("GET /v1/session", h.view)
	h.mux.HandleFunc("PUT /v1/session/player", h.setPlayer)
	h.mux.HandleFunc("POST /v1/session/next", h.next)
	h.mux.HandleFunc("POST /v1/session/choose", h.choose)
	h.mux.HandleFunc("POST /v1/session/back", h.back)
	h.mux.HandleFunc("POST /v1/session/continue", h.continueStory)
	h.mux.HandleFunc("GET /v1/session/checkpoint", h.checkpoint)
	h.mux.HandleFunc("GET /v1/session/reveal", h.reveal)
	h.mux.HandleFunc("GET /v1/graph", h.graph)
	h.mux.HandleFunc("GET /v1/progress", h.progress)
	h.mux.HandleFunc("GET /v1/saves", h.listSaves)
	h.mux.HandleFunc("POST /v1/saves", h.save)
	h.mux.HandleFunc("POST /v1/saves/{slot}/restore", h.restore)
	h.mux.HandleFunc("DELETE /v1/saves/{slot}", h.deleteSave)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

// POST /v1/chapters/{name}/load - build the chapter graph and start at its root.
func (h *Handler) loadChapter(w http.ResponseWriter, r *http.Request) {
	v, err := h.sess.LoadChapter(r.Context(), r.PathValue("name"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// POST /v1/chapters/reload - reconcile the loaded chapter against its document.
func (h *Handler) reloadChapter(w http.ResponseWriter, r *http.Request) {
	res, err := h.sess.Reload(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"added":      len(res.Added),
		"removed":    len(res.Removed),
		"kept":       len(res.Kept),
		"unresolved": res.Unresolved,
		"invalid":    res.Invalid,
	})
}

// GET /v1/session - the current view.
func (h *Handler) view(w http.ResponseWriter, r *http.Request) {
	v, err := h.sess.View()
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// PUT /v1/session/player - replace the player profile.
func (h *Handler) setPlayer(w http.ResponseWriter, r *http.Request) {
	var p session.Player
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	h.sess.SetPlayer(p)
	writeJSON(w, http.StatusOK, p)
}

// POST /v1/session/next - advance past the current node.
func (h *Handler) next(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, func() (*session.View, error) { return h.sess.Next() })
}

type chooseRequest struct {
	Node string `json:"node"`
}

// POST /v1/session/choose - take one of the offered choices.
func (h *Handler) choose(w http.ResponseWriter, r *http.Request) {
	var req chooseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if req.Node == "" {
		writeError(w, http.StatusBadRequest, "node is required")
		return
	}
	h.move(w, r, func() (*session.View, error) { return h.sess.Choose(req.Node) })
}

// POST /v1/session/back - return to the previous node.
func (h *Handler) back(w http.ResponseWriter, r *http.Request) {
	v, err := h.sess.Back()
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// POST /v1/session/continue - load the chapter following a finished one.
func (h *Handler) continueStory(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, func() (*session.View, error) { return h.sess.ContinueStory(r.Context()) })
}

func (h *Handler) move(w http.ResponseWriter, r *http.Request, step func() (*session.View, error)) {
	v, err := step()
	if err != nil {
		writeFailure(w, err)
		return
	}
	if h.opts.AutosaveSlot != "" {
		if _, err := h.sess.Save(r.Context(), h.saves, h.opts.AutosaveSlot); err != nil {
			slog.Warn("autosave failed", "slot", h.opts.AutosaveSlot, "err", err)
		}
	}
	writeJSON(w, http.StatusOK, v)
}

// GET /v1/session/checkpoint - the raw traversal position.
func (h *Handler) checkpoint(w http.ResponseWriter, r *http.Request) {
	cp, err := h.sess.Checkpoint()
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

// GET /v1/session/reveal - stream the current text as server-sent events,
// one event per revealed character. Disconnecting stops the stream.
func (h *Handler) reveal(w http.ResponseWriter, r *http.Request) {
	text, err := h.sess.Text()
	if err != nil {
		writeFailure(w, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	err = h.opts.Typewriter.Run(r.Context(), text, func(shown string) {
		data, _ := json.Marshal(shown)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	})
	if err != nil {
		return
	}
	fmt.Fprint(w, "event: done\ndata: {}\n\n")
	flusher.Flush()
}

// GET /v1/graph - dump the loaded chapter graph.
func (h *Handler) graph(w http.ResponseWriter, r *http.Request) {
	g, err := h.sess.Graph()
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// GET /v1/progress - progress weights for the loaded chapter.
func (h *Handler) progress(w http.ResponseWriter, r *http.Request) {
	est, err := h.sess.Progress()
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

// GET /v1/saves - list save slots, newest first.
func (h *Handler) listSaves(w http.ResponseWriter, r *http.Request) {
	list, err := h.saves.List(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	if list == nil {
		list = []savegame.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"saves": list})
}

type saveRequest struct {
	Slot string `json:"slot"`
}

// POST /v1/saves - save the session. An empty or missing body creates a new slot.
func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	slot, err := h.sess.Save(r.Context(), h.saves, req.Slot)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"slot": slot})
}

// POST /v1/saves/{slot}/restore - restore the session from a slot.
func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	v, err := h.sess.Restore(r.Context(), h.saves, r.PathValue("slot"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// DELETE /v1/saves/{slot} - remove a slot.
func (h *Handler) deleteSave(w http.ResponseWriter, r *http.Request) {
	if err := h.saves.Delete(r.Context(), r.PathValue("slot")); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /healthz - always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz - 503 until a chapter is loaded.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	ch := h.sess.Chapter()
	if ch == "" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "no chapter loaded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "chapter": ch})
}
