// Package store defines the session store contract: the single source of
// truth every room action reads from and writes to. The contract is
// deliberately narrow (insert-if-absent for answers, compare-and-set for
// question advancement, a guarded update per lifecycle transition, an atomic
// score increment) so any transactional backend can satisfy it without
// general read-modify-write.
package store

import (
	"context"
	"time"

	"github.com/quizrally/trivia-backend/internal/game"
)

type Store interface {
	// CreateRoom inserts the room and its immutable question set.
	// Returns game.ErrCodeTaken when the join code is already in use;
	// callers regenerate and retry.
	CreateRoom(ctx context.Context, room *game.Room, questions []game.Question) error

	RoomByCode(ctx context.Context, code string) (*game.Room, error)
	Room(ctx context.Context, id string) (*game.Room, error)

	// StartRoom moves lobby→playing, locks the room, and opens question
	// zero's window. The update only applies while the stored status is
	// still lobby; a lost race returns game.ErrConflict.
	StartRoom(ctx context.Context, id string, endsAt *time.Time) (*game.Room, error)

	// AdvanceRoom applies adv iff the stored current index still equals
	// fromIndex and the room is playing. Duplicate or racing advances get
	// game.ErrConflict instead of double-incrementing.
	AdvanceRoom(ctx context.Context, id string, fromIndex int, adv game.Advance) (*game.Room, error)

	// RevealRoom rewrites the deadline to the reveal instant, guarded by
	// the expected current index so a reveal cannot land on the next
	// question.
	RevealRoom(ctx context.Context, id string, expectIndex int, at time.Time) (*game.Room, error)

	// CancelRoom moves lobby/playing→cancelled.
	CancelRoom(ctx context.Context, id string) (*game.Room, error)

	// AddPlayer appends a player, refusing with game.ErrRoomLocked once
	// the room has left (or is leaving) the lobby.
	AddPlayer(ctx context.Context, p *game.Player) error
	Players(ctx context.Context, roomID string) ([]game.Player, error)
	Player(ctx context.Context, id string) (*game.Player, error)

	// IncrementScore adds delta to the player's score as a single atomic
	// update, never a read-modify-write.
	IncrementScore(ctx context.Context, playerID string, delta int) error

	Questions(ctx context.Context, roomID string) ([]game.Question, error)

	// InsertAnswerOnce stores the answer unless one already exists for the
	// same (room, player, question index). On a duplicate it returns the
	// original answer and inserted=false, which is what makes client
	// retries idempotent.
	InsertAnswerOnce(ctx context.Context, a *game.Answer) (existing *game.Answer, inserted bool, err error)

	// AnswerCount reports how many answers exist for one question; the
	// wait-for-all window compares this against the player count.
	AnswerCount(ctx context.Context, roomID string, questionIndex int) (int, error)
}
