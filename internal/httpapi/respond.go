package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quizrally/trivia-backend/internal/game"
	"github.com/quizrally/trivia-backend/internal/hub"
	"github.com/quizrally/trivia-backend/internal/session"
)

// sessionFor resolves the {code} path param to a live session, writing a 404
// when the code is unknown. The second return is the normalized code.
func (a *API) sessionFor(w http.ResponseWriter, r *http.Request) (*session.Session, string) {
	code := game.NormalizeCode(chi.URLParam(r, "code"))
	reply := make(chan *session.Session, 1)
	a.Hub.Inbox() <- hub.GetSession{Code: code, Reply: reply}
	s := <-reply
	if s == nil {
		writeError(w, game.ErrRoomNotFound)
		return nil, code
	}
	return s, code
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the game error taxonomy onto HTTP statuses in one place so
// every handler reports failures the same way.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, game.ErrRoomNotFound), errors.Is(err, game.ErrPlayerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrNotHost):
		status = http.StatusForbidden
	case errors.Is(err, game.ErrRoomLocked),
		errors.Is(err, game.ErrInvalidState),
		errors.Is(err, game.ErrConflict),
		errors.Is(err, game.ErrStaleSubmission),
		errors.Is(err, game.ErrDuplicateSubmission):
		status = http.StatusConflict
	case errors.Is(err, game.ErrNoPlayers):
		status = http.StatusPreconditionFailed
	case errors.Is(err, game.ErrGeneration):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
