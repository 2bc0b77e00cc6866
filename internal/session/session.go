// Package session runs one actor goroutine per room. Every state-changing
// action for a room flows through its inbox, which serializes transitions;
// the store's atomic operations make the writes safe even against actions
// that bypass serialization (client retries, duplicated requests).
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quizrally/trivia-backend/internal/game"
	"github.com/quizrally/trivia-backend/internal/store"
)

type Msg interface{ isSessionMsg() }

// Watch registers a client outbox for snapshot fan-out and immediately sends
// the current snapshot.
type Watch struct {
	ClientID string
	Outbox   chan Snapshot
}

type Unwatch struct{ ClientID string }

type Join struct {
	Name  string
	Reply chan JoinReply
}

type JoinReply struct {
	Player *game.Player
	Err    error
}

type Start struct {
	HostToken string
	Reply     chan error
}

// Advance carries the index the host believes is current; the store's
// compare-and-set uses it so a duplicated advance can never double-increment.
type Advance struct {
	HostToken string
	FromIndex int
	Reply     chan error
}

type Reveal struct {
	HostToken string
	Reply     chan error
}

type Cancel struct {
	HostToken string
	Reply     chan error
}

type Submit struct {
	PlayerID      string
	QuestionIndex int
	SelectedIndex int
	Reply         chan SubmitReply
}

type SubmitReply struct {
	Answer *game.Answer
	Err    error
}

type GetSnapshot struct{ Reply chan Snapshot }

// Inspect is test-only: reflects internals without data races.
type Inspect struct{ Reply chan View }

type Shutdown struct{}

// windowExpired is the deadline timer firing; gen guards against a stale
// timer armed for an earlier question.
type windowExpired struct{ gen int }

func (Watch) isSessionMsg()         {}
func (Unwatch) isSessionMsg()       {}
func (Join) isSessionMsg()          {}
func (Start) isSessionMsg()         {}
func (Advance) isSessionMsg()       {}
func (Reveal) isSessionMsg()        {}
func (Cancel) isSessionMsg()        {}
func (Submit) isSessionMsg()        {}
func (GetSnapshot) isSessionMsg()   {}
func (Inspect) isSessionMsg()       {}
func (Shutdown) isSessionMsg()      {}
func (windowExpired) isSessionMsg() {}

// Snapshot is the authoritative view broadcast to every watcher after a
// mutation. Clients merge it with the reducer rules in internal/view.
type Snapshot struct {
	Version     int
	Room        game.Room
	Players     []game.Player
	Question    *game.Question
	AnswerCount int
	Standings   []game.Standing
}

type View struct {
	Version     int
	NumWatchers int
}

type Session struct {
	inbox     chan Msg
	store     store.Store
	roomID    string
	code      string
	questions []game.Question // immutable once the room exists
	clients   map[string]chan Snapshot
	version   int
	timerGen  int
	clock     func() time.Time
	log       *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

func New(parent context.Context, st store.Store, room *game.Room, questions []game.Question, log *zap.Logger) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		inbox:     make(chan Msg, 64),
		store:     st,
		roomID:    room.ID,
		code:      room.Code,
		questions: questions,
		clients:   make(map[string]chan Snapshot),
		clock:     time.Now,
		log:       log.With(zap.String("room", room.Code)),
		ctx:       ctx,
		cancel:    cancel,
	}
	// Recovery path: a room reloaded mid-question still needs its window
	// timer.
	if room.Status == game.StatusPlaying && room.QuestionEndsAt != nil {
		s.armWindow(room.QuestionEndsAt)
	}
	go s.loop()
	return s
}

func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Watch:
				s.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- s.snapshot()

			case Unwatch:
				if ch, ok := s.clients[msg.ClientID]; ok {
					close(ch)
					delete(s.clients, msg.ClientID)
				}

			case Join:
				player, err := s.handleJoin(msg)
				msg.Reply <- JoinReply{Player: player, Err: err}
				if err == nil {
					s.broadcast()
				}

			case Start:
				err := s.handleStart(msg)
				msg.Reply <- err
				if err == nil {
					s.broadcast()
				}

			case Advance:
				err := s.handleAdvance(msg)
				msg.Reply <- err
				if err == nil {
					s.broadcast()
				}

			case Reveal:
				err := s.handleReveal(msg)
				msg.Reply <- err
				if err == nil {
					s.broadcast()
				}

			case Cancel:
				err := s.handleCancel(msg)
				msg.Reply <- err
				if err == nil {
					s.broadcast()
				}

			case Submit:
				answer, changed, err := s.handleSubmit(msg)
				msg.Reply <- SubmitReply{Answer: answer, Err: err}
				if changed {
					s.broadcast()
				}

			case GetSnapshot:
				msg.Reply <- s.snapshot()

			case Inspect:
				msg.Reply <- View{Version: s.version, NumWatchers: len(s.clients)}

			case windowExpired:
				if msg.gen != s.timerGen {
					break // a newer question already armed its own timer
				}
				s.broadcast()

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) handleJoin(msg Join) (*game.Player, error) {
	room, err := s.store.Room(s.ctx, s.roomID)
	if err != nil {
		return nil, err
	}
	if err := room.CanJoin(); err != nil {
		return nil, err
	}
	player, err := game.NewPlayer(s.roomID, msg.Name, s.clock())
	if err != nil {
		return nil, err
	}
	if err := s.store.AddPlayer(s.ctx, player); err != nil {
		return nil, err
	}
	s.log.Info("player joined", zap.String("player", player.Name))
	return player, nil
}

func (s *Session) handleStart(msg Start) error {
	room, err := s.store.Room(s.ctx, s.roomID)
	if err != nil {
		return err
	}
	if msg.HostToken != room.HostToken {
		return game.ErrNotHost
	}
	players, err := s.store.Players(s.ctx, s.roomID)
	if err != nil {
		return err
	}
	plan, err := game.PlanStart(room, len(players), s.clock())
	if err != nil {
		return err
	}
	updated, err := s.store.StartRoom(s.ctx, s.roomID, plan.EndsAt)
	if err != nil {
		return err
	}
	s.armWindow(updated.QuestionEndsAt)
	s.log.Info("game started", zap.Int("players", len(players)))
	return nil
}

func (s *Session) handleAdvance(msg Advance) error {
	room, err := s.store.Room(s.ctx, s.roomID)
	if err != nil {
		return err
	}
	if msg.HostToken != room.HostToken {
		return game.ErrNotHost
	}
	if msg.FromIndex != room.CurrentQuestion {
		// Someone (usually a retry of the same click) advanced first.
		return game.ErrConflict
	}
	plan, err := game.PlanAdvance(room, s.clock())
	if err != nil {
		return err
	}
	updated, err := s.store.AdvanceRoom(s.ctx, s.roomID, msg.FromIndex, plan)
	if err != nil {
		return err
	}
	if updated.Status == game.StatusFinished {
		s.armWindow(nil)
		s.log.Info("game finished")
	} else {
		s.armWindow(updated.QuestionEndsAt)
		s.log.Info("question advanced", zap.Int("index", updated.CurrentQuestion))
	}
	return nil
}

func (s *Session) handleReveal(msg Reveal) error {
	room, err := s.store.Room(s.ctx, s.roomID)
	if err != nil {
		return err
	}
	if msg.HostToken != room.HostToken {
		return game.ErrNotHost
	}
	if err := game.PlanReveal(room); err != nil {
		return err
	}
	now := s.clock()
	if _, err := s.store.RevealRoom(s.ctx, s.roomID, room.CurrentQuestion, now); err != nil {
		return err
	}
	// The rewritten deadline is already in the past, so no timer to arm;
	// the broadcast is the nudge.
	s.armWindow(nil)
	s.log.Info("window revealed early", zap.Int("index", room.CurrentQuestion))
	return nil
}

func (s *Session) handleCancel(msg Cancel) error {
	room, err := s.store.Room(s.ctx, s.roomID)
	if err != nil {
		return err
	}
	if msg.HostToken != room.HostToken {
		return game.ErrNotHost
	}
	if err := game.PlanCancel(room); err != nil {
		return err
	}
	if _, err := s.store.CancelRoom(s.ctx, s.roomID); err != nil {
		return err
	}
	s.armWindow(nil)
	s.log.Info("room cancelled")
	return nil
}

// handleSubmit scores and stores one answer. The bool result reports whether
// state changed (a duplicate does not broadcast).
func (s *Session) handleSubmit(msg Submit) (*game.Answer, bool, error) {
	room, err := s.store.Room(s.ctx, s.roomID)
	if err != nil {
		return nil, false, err
	}
	if room.Status != game.StatusPlaying {
		return nil, false, game.ErrInvalidState
	}
	if msg.QuestionIndex != room.CurrentQuestion {
		return nil, false, game.ErrStaleSubmission
	}
	if msg.QuestionIndex < 0 || msg.QuestionIndex >= len(s.questions) {
		return nil, false, game.ErrValidation
	}
	question := &s.questions[msg.QuestionIndex]

	player, err := s.store.Player(s.ctx, msg.PlayerID)
	if err != nil {
		return nil, false, err
	}
	if player.RoomID != s.roomID {
		return nil, false, game.ErrPlayerNotFound
	}

	now := s.clock()
	windowClosed := room.Window(now) == game.WindowClosed
	if windowClosed && room.Rules.LatePolicy == game.LateReject {
		return nil, false, game.ErrStaleSubmission
	}

	result, err := game.Score(question, msg.SelectedIndex, room.Rules, room.QuestionEndsAt, now)
	if err != nil {
		return nil, false, err
	}
	if windowClosed {
		// Accept-zero policy: the answer lands, the window does not pay.
		result.Points = 0
	}

	answer := &game.Answer{
		ID:            uuid.NewString(),
		RoomID:        s.roomID,
		PlayerID:      msg.PlayerID,
		QuestionIndex: msg.QuestionIndex,
		SelectedIndex: msg.SelectedIndex,
		Correct:       result.Correct,
		Points:        result.Points,
		SubmittedAt:   now,
	}
	stored, inserted, err := s.store.InsertAnswerOnce(s.ctx, answer)
	if err != nil {
		return nil, false, err
	}
	if !inserted {
		// A retry after a network error: hand back the original answer,
		// score exactly once.
		return stored, false, nil
	}
	if stored.Points > 0 {
		if err := s.store.IncrementScore(s.ctx, msg.PlayerID, stored.Points); err != nil {
			return nil, false, err
		}
	}
	return stored, true, nil
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{Version: s.version}
	room, err := s.store.Room(s.ctx, s.roomID)
	if err != nil {
		s.log.Error("snapshot: load room", zap.Error(err))
		return snap
	}
	snap.Room = *room

	players, err := s.store.Players(s.ctx, s.roomID)
	if err != nil {
		s.log.Error("snapshot: load players", zap.Error(err))
	}
	snap.Players = players
	snap.Standings = game.Standings(players)

	if room.Status == game.StatusPlaying && room.CurrentQuestion < len(s.questions) {
		q := s.questions[room.CurrentQuestion]
		snap.Question = &q
		count, err := s.store.AnswerCount(s.ctx, s.roomID, room.CurrentQuestion)
		if err != nil {
			s.log.Error("snapshot: count answers", zap.Error(err))
		}
		snap.AnswerCount = count
	}
	return snap
}

func (s *Session) broadcast() {
	s.version++
	snap := s.snapshot()
	for id, ch := range s.clients {
		select {
		case ch <- snap:
		default:
			// Slow consumer: drop it rather than stall the room. The
			// client reconnects and resyncs from a fresh snapshot.
			close(ch)
			delete(s.clients, id)
		}
	}
}

// armWindow schedules a nudge broadcast for the deadline so watchers get a
// snapshot the moment the window closes. Passing nil just invalidates any
// armed timer. Local client countdowns never depend on this; closure is
// always recomputed from the deadline itself.
func (s *Session) armWindow(endsAt *time.Time) {
	s.timerGen++
	if endsAt == nil {
		return
	}
	gen := s.timerGen
	delay := time.Until(*endsAt)
	if delay < 0 {
		delay = 0
	}
	time.AfterFunc(delay, func() {
		select {
		case s.inbox <- windowExpired{gen: gen}:
		default:
			// Inbox full or session gone: the next mutation broadcasts
			// anyway.
		}
	})
}

func (s *Session) shutdown() {
	for id, ch := range s.clients {
		close(ch)
		delete(s.clients, id)
	}
	s.cancel()
}
