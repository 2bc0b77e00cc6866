package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/quizrally/trivia-backend/internal/game"
)

// Memory is the in-process Store used by tests and keyless local runs. One
// mutex guards everything; contention is per-process and room actions are
// already serialized per room, so finer locking buys nothing here.
type Memory struct {
	mu          sync.Mutex
	rooms       map[string]*game.Room      // by id
	roomsByCode map[string]string          // code to id
	questions   map[string][]game.Question // by room id, index-ordered
	players     map[string]*game.Player    // by id
	roomPlayers map[string][]string        // room id to player ids in join order
	answers     map[answerKey]*game.Answer
}

type answerKey struct {
	roomID   string
	playerID string
	index    int
}

func NewMemory() *Memory {
	return &Memory{
		rooms:       make(map[string]*game.Room),
		roomsByCode: make(map[string]string),
		questions:   make(map[string][]game.Question),
		players:     make(map[string]*game.Player),
		roomPlayers: make(map[string][]string),
		answers:     make(map[answerKey]*game.Answer),
	}
}

func (m *Memory) CreateRoom(_ context.Context, room *game.Room, questions []game.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.roomsByCode[room.Code]; taken {
		return game.ErrCodeTaken
	}
	cp := *room
	m.rooms[room.ID] = &cp
	m.roomsByCode[room.Code] = room.ID

	qs := make([]game.Question, len(questions))
	copy(qs, questions)
	sort.Slice(qs, func(i, j int) bool { return qs[i].Index < qs[j].Index })
	m.questions[room.ID] = qs
	return nil
}

func (m *Memory) RoomByCode(_ context.Context, code string) (*game.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.roomsByCode[code]
	if !ok {
		return nil, game.ErrRoomNotFound
	}
	return m.roomCopyLocked(id)
}

func (m *Memory) Room(_ context.Context, id string) (*game.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roomCopyLocked(id)
}

func (m *Memory) roomCopyLocked(id string) (*game.Room, error) {
	r, ok := m.rooms[id]
	if !ok {
		return nil, game.ErrRoomNotFound
	}
	cp := *r
	if r.QuestionEndsAt != nil {
		t := *r.QuestionEndsAt
		cp.QuestionEndsAt = &t
	}
	return &cp, nil
}

func (m *Memory) StartRoom(_ context.Context, id string, endsAt *time.Time) (*game.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, game.ErrRoomNotFound
	}
	if r.Status != game.StatusLobby {
		return nil, game.ErrConflict
	}
	r.Status = game.StatusPlaying
	r.Locked = true
	r.CurrentQuestion = 0
	r.QuestionEndsAt = endsAt
	return m.roomCopyLocked(id)
}

func (m *Memory) AdvanceRoom(_ context.Context, id string, fromIndex int, adv game.Advance) (*game.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, game.ErrRoomNotFound
	}
	// The compare-and-set: both the status and the expected index must
	// still hold, or someone else advanced first.
	if r.Status != game.StatusPlaying || r.CurrentQuestion != fromIndex {
		return nil, game.ErrConflict
	}
	r.Status = adv.Status
	r.CurrentQuestion = adv.NextIndex
	r.QuestionEndsAt = adv.EndsAt
	return m.roomCopyLocked(id)
}

func (m *Memory) RevealRoom(_ context.Context, id string, expectIndex int, at time.Time) (*game.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, game.ErrRoomNotFound
	}
	if r.Status != game.StatusPlaying || r.CurrentQuestion != expectIndex {
		return nil, game.ErrConflict
	}
	r.QuestionEndsAt = &at
	return m.roomCopyLocked(id)
}

func (m *Memory) CancelRoom(_ context.Context, id string) (*game.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, game.ErrRoomNotFound
	}
	if r.Status.Terminal() {
		return nil, game.ErrConflict
	}
	r.Status = game.StatusCancelled
	r.Locked = true
	return m.roomCopyLocked(id)
}

func (m *Memory) AddPlayer(_ context.Context, p *game.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[p.RoomID]
	if !ok {
		return game.ErrRoomNotFound
	}
	// Checked under the same lock that start takes, so a join cannot slip
	// in between the lobby check and the lock flip.
	if r.Status != game.StatusLobby || r.Locked {
		return game.ErrRoomLocked
	}
	cp := *p
	m.players[p.ID] = &cp
	m.roomPlayers[p.RoomID] = append(m.roomPlayers[p.RoomID], p.ID)
	return nil
}

func (m *Memory) Players(_ context.Context, roomID string) ([]game.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.roomPlayers[roomID]
	out := make([]game.Player, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.players[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *Memory) Player(_ context.Context, id string) (*game.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return nil, game.ErrPlayerNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) IncrementScore(_ context.Context, playerID string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[playerID]
	if !ok {
		return game.ErrPlayerNotFound
	}
	p.Score += delta
	return nil
}

func (m *Memory) Questions(_ context.Context, roomID string) ([]game.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	qs, ok := m.questions[roomID]
	if !ok {
		return nil, game.ErrRoomNotFound
	}
	out := make([]game.Question, len(qs))
	copy(out, qs)
	return out, nil
}

func (m *Memory) InsertAnswerOnce(_ context.Context, a *game.Answer) (*game.Answer, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := answerKey{roomID: a.RoomID, playerID: a.PlayerID, index: a.QuestionIndex}
	if existing, ok := m.answers[key]; ok {
		cp := *existing
		return &cp, false, nil
	}
	cp := *a
	m.answers[key] = &cp
	return &cp, true, nil
}

func (m *Memory) AnswerCount(_ context.Context, roomID string, questionIndex int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key := range m.answers {
		if key.roomID == roomID && key.index == questionIndex {
			n++
		}
	}
	return n, nil
}
