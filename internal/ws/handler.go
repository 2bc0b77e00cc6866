package ws

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/quizrally/trivia-backend/internal/game"
	"github.com/quizrally/trivia-backend/internal/hub"
	"github.com/quizrally/trivia-backend/internal/session"
	"github.com/quizrally/trivia-backend/pkg/types"
)

const (
	writeTimeout = 3 * time.Second
	readTimeout  = 60 * time.Second
)

// Handler upgrades a participant connection and bridges it onto the room
// session: snapshots flow out through a watcher outbox, client actions flow
// in through the session inbox. A slow or dead connection never stalls the
// room; the session drops its outbox and the polling endpoint covers the gap.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := game.NormalizeCode(r.URL.Query().Get("code"))
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		reply := make(chan *session.Session, 1)
		h.Inbox() <- hub.GetSession{Code: code, Reply: reply}
		s := <-reply
		if s == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan session.Snapshot, 8)
		clientID := randID()

		s.Inbox() <- session.Watch{ClientID: clientID, Outbox: out}
		defer func() { s.Inbox() <- session.Unwatch{ClientID: clientID} }()

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				payload := types.FromSnapshot(snap)
				msg := types.ServerMessage{Type: "snapshot", Snapshot: &payload}
				data, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, data)
				cancel()
			}
		}()

		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("websocket read ended", zap.String("room", code), zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeErrorMsg(r.Context(), conn, "bad json")
				continue
			}
			dispatch(r.Context(), conn, s, cm)
		}
	}
}

// dispatch forwards one client action to the session and writes the direct
// reply. Broadcast snapshots arrive via the watcher outbox, not here.
func dispatch(ctx context.Context, conn *websocket.Conn, s *session.Session, cm types.ClientMessage) {
	switch cm.Type {
	case "submit_answer":
		reply := make(chan session.SubmitReply, 1)
		s.Inbox() <- session.Submit{
			PlayerID:      cm.PlayerID,
			QuestionIndex: cm.QuestionIndex,
			SelectedIndex: cm.SelectedIndex,
			Reply:         reply,
		}
		sr := <-reply
		if sr.Err != nil {
			writeErrorMsg(ctx, conn, sr.Err.Error())
			return
		}
		writeMsg(ctx, conn, types.ServerMessage{Type: "answer_result", Answer: types.FromAnswer(sr.Answer)})

	case "advance_question":
		reply := make(chan error, 1)
		s.Inbox() <- session.Advance{HostToken: cm.HostToken, FromIndex: cm.FromIndex, Reply: reply}
		replyErrorOnly(ctx, conn, <-reply)

	case "reveal_now":
		reply := make(chan error, 1)
		s.Inbox() <- session.Reveal{HostToken: cm.HostToken, Reply: reply}
		replyErrorOnly(ctx, conn, <-reply)

	default:
		writeErrorMsg(ctx, conn, "unknown type")
	}
}

// replyErrorOnly writes only failures; on success the broadcast snapshot is
// the acknowledgement.
func replyErrorOnly(ctx context.Context, conn *websocket.Conn, err error) {
	if err != nil {
		writeErrorMsg(ctx, conn, err.Error())
	}
}

func writeMsg(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) {
	data, _ := json.Marshal(msg)
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, data)
}

func writeErrorMsg(ctx context.Context, conn *websocket.Conn, text string) {
	writeMsg(ctx, conn, types.ServerMessage{Type: "error", Error: text})
}

func randID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
