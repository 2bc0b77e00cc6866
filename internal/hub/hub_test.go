package hub

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/quizrally/trivia-backend/internal/game"
	"github.com/quizrally/trivia-backend/internal/session"
	"github.com/quizrally/trivia-backend/internal/store"
)

func seededHub(t *testing.T) (*Hub, *game.Room, []game.Question) {
	t.Helper()
	m := store.NewMemory()
	room := &game.Room{
		ID:            "room-1",
		Code:          "ZED123",
		HostName:      "Dana",
		Status:        game.StatusLobby,
		QuestionCount: 5,
		Rules:         game.DefaultRules(),
	}
	questions := make([]game.Question, 5)
	for i := range questions {
		questions[i] = game.Question{RoomID: room.ID, Index: i, Options: []string{"a", "b", "c", "d"}}
	}
	if err := m.CreateRoom(context.Background(), room, questions); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return NewHub(context.Background(), m, zap.NewNop()), room, questions
}

func TestHub_Open_Get_SamePointer(t *testing.T) {
	h, room, questions := seededHub(t)
	reply := make(chan *session.Session, 1)

	h.Inbox() <- OpenSession{Room: room, Questions: questions, Reply: reply}
	s1 := <-reply

	h.Inbox() <- GetSession{Code: "ZED123", Reply: reply}
	s2 := <-reply

	if s1 == nil || s2 == nil || s1 != s2 {
		t.Fatalf("expected same session pointer")
	}
}

func TestHub_Get_RestoresFromStore(t *testing.T) {
	h, _, _ := seededHub(t)
	reply := make(chan *session.Session, 1)

	// Never opened in this process; the room only exists in the store.
	h.Inbox() <- GetSession{Code: "ZED123", Reply: reply}
	if s := <-reply; s == nil {
		t.Fatalf("expected session restored from store")
	}

	h.Inbox() <- GetSession{Code: "NOPE99", Reply: reply}
	if s := <-reply; s != nil {
		t.Fatalf("unknown code should yield nil")
	}
}

func TestHub_RemoveSession(t *testing.T) {
	h, room, questions := seededHub(t)
	reply := make(chan *session.Session, 1)

	h.Inbox() <- OpenSession{Room: room, Questions: questions, Reply: reply}
	first := <-reply

	h.Inbox() <- RemoveSession{Code: "ZED123"}

	// Still restorable (the store row remains), but it is a new actor.
	h.Inbox() <- GetSession{Code: "ZED123", Reply: reply}
	second := <-reply
	if second == nil || second == first {
		t.Fatalf("expected a fresh session after removal")
	}
}
