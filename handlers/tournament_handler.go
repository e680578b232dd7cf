package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/nations-league/services"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
}

func NewTournamentHandler(ts services.TournamentService) *TournamentHandler {
	return &TournamentHandler{tournamentService: ts}
}

func (h *TournamentHandler) GetBracket(w http.ResponseWriter, r *http.Request) {
	b, err := h.tournamentService.Bracket(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	err = writeJSON(w, http.StatusOK, jsonResponse{"bracket": b}, nil)
	if err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StartTournament accepts an empty body, in which case every registered team
// is drawn with a random seed.
func (h *TournamentHandler) StartTournament(w http.ResponseWriter, r *http.Request) {
	var input services.StartTournamentInput
	if err := readJSON(w, r, &input); err != nil && !errors.Is(err, errEmptyBody) {
		badRequestResponse(w, r, err)
		return
	}

	b, err := h.tournamentService.Start(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	err = writeJSON(w, http.StatusOK, jsonResponse{"bracket": b}, nil)
	if err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) ResetTournament(w http.ResponseWriter, r *http.Request) {
	b, err := h.tournamentService.Reset(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	err = writeJSON(w, http.StatusOK, jsonResponse{"bracket": b, "message": "tournament reset"}, nil)
	if err != nil {
		serverErrorResponse(w, r, err)
	}
}
