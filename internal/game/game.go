package game

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusLobby     Status = "lobby"
	StatusPlaying   Status = "playing"
	StatusFinished  Status = "finished"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition can leave this status.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func ParseDifficulty(s string) (Difficulty, bool) {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(s), true
	default:
		return "", false
	}
}

// WindowMode selects how the answer window for a question closes.
type WindowMode string

const (
	// WindowFixed closes the window at a precomputed deadline; faster
	// correct answers score more.
	WindowFixed WindowMode = "fixed"
	// WindowWaitForAll has no deadline; the window stays open until every
	// player has answered or the host forces a reveal.
	WindowWaitForAll WindowMode = "wait_for_all"
)

// LatePolicy decides what happens to a submission that arrives after the
// window closed but before the room advances.
type LatePolicy string

const (
	// LateAcceptZero stores the answer with zero points.
	LateAcceptZero LatePolicy = "accept_zero"
	// LateReject refuses the submission as stale.
	LateReject LatePolicy = "reject"
)

type Rules struct {
	WindowMode      WindowMode `json:"window_mode"`
	WindowSec       int        `json:"window_sec"`
	PointsPerSecond int        `json:"points_per_second"`
	FlatPoints      int        `json:"flat_points"`
	LatePolicy      LatePolicy `json:"late_policy"`
}

// DefaultRules matches the tuning the game shipped with: a 10 second window
// worth 10 points per remaining second.
func DefaultRules() Rules {
	return Rules{
		WindowMode:      WindowFixed,
		WindowSec:       10,
		PointsPerSecond: 10,
		FlatPoints:      100,
		LatePolicy:      LateAcceptZero,
	}
}

const (
	MinQuestions = 5
	MaxQuestions = 20
	MaxTopicLen  = 100
	MaxNameLen   = 20
	OptionCount  = 4
)

type Room struct {
	ID              string     `json:"id"`
	Code            string     `json:"code"`
	HostName        string     `json:"host_name"`
	HostToken       string     `json:"-"`
	Status          Status     `json:"status"`
	Locked          bool       `json:"locked"`
	Topic           string     `json:"topic"`
	Difficulty      Difficulty `json:"difficulty"`
	QuestionCount   int        `json:"question_count"`
	CurrentQuestion int        `json:"current_q_index"`
	QuestionEndsAt  *time.Time `json:"question_ends_at"`
	Rules           Rules      `json:"rules"`
	CreatedAt       time.Time  `json:"created_at"`
}

type Question struct {
	ID           string   `json:"id"`
	RoomID       string   `json:"room_id"`
	Index        int      `json:"q_index"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
}

type Player struct {
	ID       string    `json:"id"`
	RoomID   string    `json:"room_id"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	JoinedAt time.Time `json:"joined_at"`
}

type Answer struct {
	ID            string    `json:"id"`
	RoomID        string    `json:"room_id"`
	PlayerID      string    `json:"player_id"`
	QuestionIndex int       `json:"q_index"`
	SelectedIndex int       `json:"selected_index"`
	Correct       bool      `json:"is_correct"`
	Points        int       `json:"points_awarded"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// QuestionInput is the shape every question source must produce.
type QuestionInput struct {
	Text         string
	Options      []string
	CorrectIndex int
}

// ValidateQuestions checks a generated or pre-authored set against the shape
// the room contract requires: the requested count, four options each, and an
// in-range correct index.
func ValidateQuestions(qs []QuestionInput, count int) error {
	if len(qs) != count {
		return fmt.Errorf("%w: got %d questions, want %d", ErrValidation, len(qs), count)
	}
	for i, q := range qs {
		if strings.TrimSpace(q.Text) == "" {
			return fmt.Errorf("%w: question %d has empty text", ErrValidation, i)
		}
		if len(q.Options) != OptionCount {
			return fmt.Errorf("%w: question %d has %d options", ErrValidation, i, len(q.Options))
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= OptionCount {
			return fmt.Errorf("%w: question %d correct index %d out of range", ErrValidation, i, q.CorrectIndex)
		}
	}
	return nil
}

// NewRoom builds a lobby-state room plus its immutable question rows. The
// join code is generated here; callers retry on a store code collision.
func NewRoom(hostName, topic string, difficulty Difficulty, rules Rules, qs []QuestionInput, now time.Time) (*Room, []Question, error) {
	hostName = strings.TrimSpace(hostName)
	topic = strings.TrimSpace(topic)
	if hostName == "" || len(hostName) > MaxNameLen {
		return nil, nil, fmt.Errorf("%w: host name must be 1..%d characters", ErrValidation, MaxNameLen)
	}
	if topic == "" || len(topic) > MaxTopicLen {
		return nil, nil, fmt.Errorf("%w: topic must be 1..%d characters", ErrValidation, MaxTopicLen)
	}
	if _, ok := ParseDifficulty(string(difficulty)); !ok {
		return nil, nil, fmt.Errorf("%w: unknown difficulty %q", ErrValidation, difficulty)
	}
	if len(qs) < MinQuestions || len(qs) > MaxQuestions {
		return nil, nil, fmt.Errorf("%w: question count must be %d..%d", ErrValidation, MinQuestions, MaxQuestions)
	}
	if err := ValidateQuestions(qs, len(qs)); err != nil {
		return nil, nil, err
	}

	code, err := NewCode()
	if err != nil {
		return nil, nil, err
	}

	room := &Room{
		ID:              uuid.NewString(),
		Code:            code,
		HostName:        hostName,
		HostToken:       uuid.NewString(),
		Status:          StatusLobby,
		Locked:          false,
		Topic:           topic,
		Difficulty:      difficulty,
		QuestionCount:   len(qs),
		CurrentQuestion: 0,
		QuestionEndsAt:  nil,
		Rules:           rules,
		CreatedAt:       now,
	}

	questions := make([]Question, len(qs))
	for i, q := range qs {
		questions[i] = Question{
			ID:           uuid.NewString(),
			RoomID:       room.ID,
			Index:        i,
			Text:         q.Text,
			Options:      q.Options,
			CorrectIndex: q.CorrectIndex,
		}
	}
	return room, questions, nil
}

// WindowState is derived from the deadline rather than stored, so the
// window-open question always has a single source of truth.
type WindowState string

const (
	WindowNone   WindowState = "none"   // not playing
	WindowOpen   WindowState = "open"   // submissions accepted at full value
	WindowClosed WindowState = "closed" // deadline passed, room not yet advanced
)

// Window reports the answer-window state at the given instant. A nil
// deadline while playing means a wait-for-all window that is still open.
func (r *Room) Window(now time.Time) WindowState {
	if r.Status != StatusPlaying {
		return WindowNone
	}
	if r.QuestionEndsAt == nil {
		return WindowOpen
	}
	if now.Before(*r.QuestionEndsAt) {
		return WindowOpen
	}
	return WindowClosed
}

// windowDeadline computes the deadline for a freshly opened question, nil in
// wait-for-all mode.
func windowDeadline(rules Rules, now time.Time) *time.Time {
	if rules.WindowMode != WindowFixed {
		return nil
	}
	d := now.Add(time.Duration(rules.WindowSec) * time.Second)
	return &d
}

// StartPlan describes the lobby→playing transition for question zero.
type StartPlan struct {
	EndsAt *time.Time
}

// PlanStart validates the start-game preconditions against a snapshot of the
// room. The store's conditional update is what makes the transition race-safe;
// this gate makes the illegal ones fail loudly first.
func PlanStart(r *Room, playerCount int, now time.Time) (StartPlan, error) {
	if r.Status != StatusLobby {
		return StartPlan{}, fmt.Errorf("%w: cannot start from %q", ErrInvalidState, r.Status)
	}
	if playerCount < 1 {
		return StartPlan{}, ErrNoPlayers
	}
	return StartPlan{EndsAt: windowDeadline(r.Rules, now)}, nil
}

// Advance describes the outcome of one advanceQuestion call: either the next
// question with a fresh window, or the finished terminal state.
type Advance struct {
	NextIndex int
	Status    Status
	EndsAt    *time.Time
}

// PlanAdvance computes the transition that follows the room's current
// question. The plan is applied with a compare-and-set on the current index,
// so two racing advances cannot both take effect.
func PlanAdvance(r *Room, now time.Time) (Advance, error) {
	if r.Status != StatusPlaying {
		return Advance{}, fmt.Errorf("%w: cannot advance from %q", ErrInvalidState, r.Status)
	}
	next := r.CurrentQuestion + 1
	if next >= r.QuestionCount {
		return Advance{NextIndex: r.CurrentQuestion, Status: StatusFinished, EndsAt: nil}, nil
	}
	return Advance{NextIndex: next, Status: StatusPlaying, EndsAt: windowDeadline(r.Rules, now)}, nil
}

// PlanReveal validates the early-reveal action. Reveal rewrites the deadline
// to the reveal instant so every client's local countdown independently
// concludes the window is closed; no second reveal flag exists to disagree
// with it.
func PlanReveal(r *Room) error {
	if r.Status != StatusPlaying {
		return fmt.Errorf("%w: cannot reveal from %q", ErrInvalidState, r.Status)
	}
	return nil
}

// PlanCancel validates the escape-hatch transition.
func PlanCancel(r *Room) error {
	if r.Status.Terminal() {
		return fmt.Errorf("%w: cannot cancel from %q", ErrInvalidState, r.Status)
	}
	return nil
}

// CanJoin gates a join attempt. Locked is set the moment play starts, so
// both checks collapse to the same answer in practice.
func (r *Room) CanJoin() error {
	if r.Status != StatusLobby || r.Locked {
		return ErrRoomLocked
	}
	return nil
}

// NewPlayer builds a zero-score player for a lobby join.
func NewPlayer(roomID, name string, now time.Time) (*Player, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > MaxNameLen {
		return nil, fmt.Errorf("%w: player name must be 1..%d characters", ErrValidation, MaxNameLen)
	}
	return &Player{
		ID:       uuid.NewString(),
		RoomID:   roomID,
		Name:     name,
		Score:    0,
		JoinedAt: now,
	}, nil
}
