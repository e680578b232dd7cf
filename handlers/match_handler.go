package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Dosada05/nations-league/livestream"
	"github.com/Dosada05/nations-league/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(ms services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: ms}
}

func (h *MatchHandler) SimulateMatch(w http.ResponseWriter, r *http.Request) {
	var input services.SimulateMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	outcome, err := h.matchService.Simulate(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, outcome, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) PlayMatch(w http.ResponseWriter, r *http.Request) {
	var input services.SimulateMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	outcome, err := h.matchService.Play(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, outcome, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// LiveStream serves the match as server-sent events, one JSON object per
// "data:" line. Errors found before the first event are answered as plain
// JSON; a client that disconnects cancels the match.
func (h *MatchHandler) LiveStream(w http.ResponseWriter, r *http.Request) {
	var input services.SimulateMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		serverErrorResponse(w, r, errors.New("streaming is not supported by the response writer"))
		return
	}

	started := false
	emit := func(ev livestream.Event) error {
		if !started {
			// The live replay outlasts the server write timeout.
			_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.Header().Set("X-Accel-Buffering", "no")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to encode %s event: %w", ev.Type, err)
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	err := h.matchService.RunLive(r.Context(), input, emit)
	if err == nil {
		return
	}
	if !started {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	slog.Info("live stream ended early", "path", r.URL.Path, "error", err)
}

func (h *MatchHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.matchService.History(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": history}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) ListGoalScorers(w http.ResponseWriter, r *http.Request) {
	scorers, err := h.matchService.GoalScorers(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"goal_scorers": scorers}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
