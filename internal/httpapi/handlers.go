package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/quizrally/trivia-backend/internal/game"
	"github.com/quizrally/trivia-backend/internal/hub"
	"github.com/quizrally/trivia-backend/internal/quizgen"
	"github.com/quizrally/trivia-backend/internal/session"
	"github.com/quizrally/trivia-backend/internal/store"
	"github.com/quizrally/trivia-backend/pkg/types"
)

// API bundles what the handlers need. AI may be nil when no generation key
// is configured; pack-sourced rooms still work.
type API struct {
	Hub     *hub.Hub
	Store   store.Store
	AI      quizgen.Source
	Catalog *quizgen.Catalog
	Log     *zap.Logger
}

const createCodeAttempts = 5

type createRoomRequest struct {
	HostName      string `json:"host_name"`
	Topic         string `json:"topic"`
	Difficulty    string `json:"difficulty"`
	QuestionCount int    `json:"question_count"`
	Source        string `json:"source,omitempty"`  // "ai" (default) | "pack"
	PackID        string `json:"pack_id,omitempty"` // required for source "pack"
	WindowMode    string `json:"window_mode,omitempty"`
	WindowSec     int    `json:"window_sec,omitempty"`
	LatePolicy    string `json:"late_policy,omitempty"`
}

type createRoomResponse struct {
	Code      string     `json:"code"`
	RoomID    string     `json:"room_id"`
	HostToken string     `json:"host_token"`
	Rules     game.Rules `json:"rules"`
}

func (a *API) CreateRoom() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, game.ErrValidation)
			return
		}

		difficulty, ok := game.ParseDifficulty(req.Difficulty)
		if !ok {
			writeError(w, game.ErrValidation)
			return
		}

		rules := game.DefaultRules()
		if req.WindowMode != "" {
			switch game.WindowMode(req.WindowMode) {
			case game.WindowFixed, game.WindowWaitForAll:
				rules.WindowMode = game.WindowMode(req.WindowMode)
			default:
				writeError(w, game.ErrValidation)
				return
			}
		}
		if req.WindowSec > 0 {
			rules.WindowSec = req.WindowSec
		}
		if req.LatePolicy != "" {
			switch game.LatePolicy(req.LatePolicy) {
			case game.LateAcceptZero, game.LateReject:
				rules.LatePolicy = game.LatePolicy(req.LatePolicy)
			default:
				writeError(w, game.ErrValidation)
				return
			}
		}

		var source quizgen.Source
		switch req.Source {
		case "", "ai":
			if a.AI == nil {
				writeError(w, fmt.Errorf("%w: no generation backend configured", game.ErrGeneration))
				return
			}
			source = a.AI
		case "pack":
			source = a.Catalog.Source(req.PackID)
		default:
			writeError(w, game.ErrValidation)
			return
		}

		questions, err := source.Generate(r.Context(), quizgen.Request{
			Topic:      req.Topic,
			Difficulty: difficulty,
			Count:      req.QuestionCount,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		room, questionRows, err := game.NewRoom(req.HostName, req.Topic, difficulty, rules, questions, time.Now())
		if err != nil {
			writeError(w, err)
			return
		}

		// Retry-on-collision: 32^6 codes make collisions rare, not
		// impossible.
		for attempt := 0; ; attempt++ {
			err = a.Store.CreateRoom(r.Context(), room, questionRows)
			if err == nil {
				break
			}
			if !errors.Is(err, game.ErrCodeTaken) || attempt+1 >= createCodeAttempts {
				writeError(w, err)
				return
			}
			code, codeErr := game.NewCode()
			if codeErr != nil {
				writeError(w, codeErr)
				return
			}
			a.Log.Info("join code collision, regenerating", zap.String("code", room.Code))
			room.Code = code
		}

		reply := make(chan *session.Session, 1)
		a.Hub.Inbox() <- hub.OpenSession{Room: room, Questions: questionRows, Reply: reply}
		if <-reply == nil {
			http.Error(w, "failed to open session", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, createRoomResponse{
			Code:      room.Code,
			RoomID:    room.ID,
			HostToken: room.HostToken,
			Rules:     room.Rules,
		})
	}
}

func (a *API) ListPacks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"packs": a.Catalog.List()})
	}
}

type joinRequest struct {
	Name string `json:"name"`
}

type joinResponse struct {
	PlayerID   string `json:"player_id"`
	Name       string `json:"name"`
	RoomCode   string `json:"room_code"`
	RoomStatus string `json:"room_status"`
}

func (a *API) JoinRoom() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, code := a.sessionFor(w, r)
		if s == nil {
			return
		}
		var req joinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, game.ErrValidation)
			return
		}

		reply := make(chan session.JoinReply, 1)
		s.Inbox() <- session.Join{Name: req.Name, Reply: reply}
		jr := <-reply
		if jr.Err != nil {
			writeError(w, jr.Err)
			return
		}
		writeJSON(w, http.StatusCreated, joinResponse{
			PlayerID:   jr.Player.ID,
			Name:       jr.Player.Name,
			RoomCode:   code,
			RoomStatus: string(game.StatusLobby),
		})
	}
}

type hostActionRequest struct {
	HostToken string `json:"host_token"`
	FromIndex int    `json:"from_index"`
}

func (a *API) StartGame() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.hostAction(w, r, func(s *session.Session, req hostActionRequest, reply chan error) {
			s.Inbox() <- session.Start{HostToken: req.HostToken, Reply: reply}
		}, false)
	}
}

func (a *API) AdvanceQuestion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.hostAction(w, r, func(s *session.Session, req hostActionRequest, reply chan error) {
			s.Inbox() <- session.Advance{HostToken: req.HostToken, FromIndex: req.FromIndex, Reply: reply}
		}, true)
	}
}

func (a *API) RevealNow() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.hostAction(w, r, func(s *session.Session, req hostActionRequest, reply chan error) {
			s.Inbox() <- session.Reveal{HostToken: req.HostToken, Reply: reply}
		}, false)
	}
}

func (a *API) CancelRoom() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.hostAction(w, r, func(s *session.Session, req hostActionRequest, reply chan error) {
			s.Inbox() <- session.Cancel{HostToken: req.HostToken, Reply: reply}
		}, false)
	}
}

// hostAction runs one host-driven transition and answers with the fresh
// snapshot. With absorbConflict set, a lost compare-and-set is treated as
// "someone already advanced": the caller still gets the authoritative
// snapshot and resyncs from it.
func (a *API) hostAction(w http.ResponseWriter, r *http.Request, send func(*session.Session, hostActionRequest, chan error), absorbConflict bool) {
	s, _ := a.sessionFor(w, r)
	if s == nil {
		return
	}
	var req hostActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, game.ErrValidation)
		return
	}

	reply := make(chan error, 1)
	send(s, req, reply)
	if err := <-reply; err != nil {
		if !(absorbConflict && errors.Is(err, game.ErrConflict)) {
			writeError(w, err)
			return
		}
		a.Log.Debug("advance conflict absorbed", zap.Error(err))
	}

	snapReply := make(chan session.Snapshot, 1)
	s.Inbox() <- session.GetSnapshot{Reply: snapReply}
	writeJSON(w, http.StatusOK, types.FromSnapshot(<-snapReply))
}

type submitRequest struct {
	PlayerID      string `json:"player_id"`
	QuestionIndex int    `json:"q_index"`
	SelectedIndex int    `json:"selected_index"`
}

func (a *API) SubmitAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _ := a.sessionFor(w, r)
		if s == nil {
			return
		}
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, game.ErrValidation)
			return
		}

		reply := make(chan session.SubmitReply, 1)
		s.Inbox() <- session.Submit{
			PlayerID:      req.PlayerID,
			QuestionIndex: req.QuestionIndex,
			SelectedIndex: req.SelectedIndex,
			Reply:         reply,
		}
		sr := <-reply
		if sr.Err != nil {
			writeError(w, sr.Err)
			return
		}
		writeJSON(w, http.StatusOK, types.FromAnswer(sr.Answer))
	}
}

// GetSnapshot is the polling half of the change feed; clients hit it on an
// interval as the staleness ceiling when pushed snapshots are dropped.
func (a *API) GetSnapshot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _ := a.sessionFor(w, r)
		if s == nil {
			return
		}
		reply := make(chan session.Snapshot, 1)
		s.Inbox() <- session.GetSnapshot{Reply: reply}
		writeJSON(w, http.StatusOK, types.FromSnapshot(<-reply))
	}
}

func (a *API) GetLeaderboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, _ := a.sessionFor(w, r)
		if s == nil {
			return
		}
		reply := make(chan session.Snapshot, 1)
		s.Inbox() <- session.GetSnapshot{Reply: reply}
		snap := <-reply
		writeJSON(w, http.StatusOK, map[string]any{
			"standings": types.FromStandings(snap.Standings),
		})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
