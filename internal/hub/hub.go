// Package hub is the registry actor mapping join codes to live room
// sessions. Rooms outlive the process in the store; the hub lazily rebuilds a
// session for any stored room it has not seen yet.
package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/quizrally/trivia-backend/internal/game"
	"github.com/quizrally/trivia-backend/internal/session"
	"github.com/quizrally/trivia-backend/internal/store"
)

type HubMsg interface{ isHubMsg() }

// OpenSession registers a session for a freshly created room.
type OpenSession struct {
	Room      *game.Room
	Questions []game.Question
	Reply     chan *session.Session
}

// GetSession looks up a live session, restoring it from the store when the
// room exists but this process has not touched it yet. Reply is nil when the
// code is unknown.
type GetSession struct {
	Code  string
	Reply chan *session.Session
}

type RemoveSession struct {
	Code string
}

type ShutdownHub struct{}

func (OpenSession) isHubMsg()   {}
func (GetSession) isHubMsg()    {}
func (RemoveSession) isHubMsg() {}
func (ShutdownHub) isHubMsg()   {}

type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	store    store.Store
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, st store.Store, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		store:    st,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case OpenSession:
				if s := h.sessions[msg.Room.Code]; s != nil {
					msg.Reply <- s
					break
				}
				s := session.New(h.ctx, h.store, msg.Room, msg.Questions, h.log)
				h.sessions[msg.Room.Code] = s
				msg.Reply <- s

			case GetSession:
				if s := h.sessions[msg.Code]; s != nil {
					msg.Reply <- s
					break
				}
				msg.Reply <- h.restore(msg.Code)

			case RemoveSession:
				if s := h.sessions[msg.Code]; s != nil {
					s.Inbox() <- session.Shutdown{}
				}
				delete(h.sessions, msg.Code)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) restore(code string) *session.Session {
	room, err := h.store.RoomByCode(h.ctx, code)
	if err != nil {
		return nil
	}
	questions, err := h.store.Questions(h.ctx, room.ID)
	if err != nil {
		h.log.Error("restore session: load questions", zap.String("room", code), zap.Error(err))
		return nil
	}
	s := session.New(h.ctx, h.store, room, questions, h.log)
	h.sessions[code] = s
	h.log.Info("session restored from store", zap.String("room", code))
	return s
}

func (h *Hub) shutdown() {
	for _, s := range h.sessions {
		s.Inbox() <- session.Shutdown{}
	}
	clear(h.sessions)
	h.cancel()
}
