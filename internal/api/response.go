package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gyaneshwarpardhi/storyloom/internal/chapter"
	"github.com/gyaneshwarpardhi/storyloom/internal/progress"
	"github.com/gyaneshwarpardhi/storyloom/internal/savegame"
	"github.com/gyaneshwarpardhi/storyloom/internal/session"
	"github.com/gyaneshwarpardhi/storyloom/internal/story"
	"github.com/gyaneshwarpardhi/storyloom/internal/traversal"
)

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the standard error envelope.
type errorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Status: status})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, chapter.ErrChapterNotFound),
		errors.Is(err, savegame.ErrNotFound),
		errors.Is(err, session.ErrNoMoreChapters),
		errors.Is(err, progress.ErrUnknownChapter):
		return http.StatusNotFound
	case errors.Is(err, traversal.ErrNotAChoice),
		errors.Is(err, traversal.ErrUnknownNode),
		errors.Is(err, chapter.ErrBadName):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNoChapter),
		errors.Is(err, session.ErrNotFinished),
		errors.Is(err, session.ErrGameOver),
		errors.Is(err, session.ErrAtStart),
		errors.Is(err, traversal.ErrAwaitingChoice),
		errors.Is(err, traversal.ErrNoTerminal),
		errors.Is(err, traversal.ErrNotStarted):
		return http.StatusConflict
	case errors.Is(err, story.ErrCycle),
		errors.Is(err, story.ErrNoRoot),
		errors.Is(err, story.ErrInvalidDocument):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "err", err)
	}
	writeError(w, status, err.Error())
}
