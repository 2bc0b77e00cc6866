// Package view is the client-side reducer for room snapshots. A client feeds
// it every snapshot it receives, pushed or polled, in whatever order the
// network delivers them, plus its own optimistic submissions. The reducer
// keeps the merge rules in one place so every surface renders the same state.
package view

import "github.com/quizrally/trivia-backend/pkg/types"

// State is what a client renders. Server-owned fields are replaced wholesale
// from the newest snapshot; the fields under "local" survive snapshots that
// do not yet reflect this client's own actions.
type State struct {
	Version     int
	Room        types.Room
	Players     []types.Player
	Question    *types.Question
	AnswerCount int
	Standings   []types.Standing

	// local, reset when the question index moves
	Submitted   bool
	LocalAnswer *types.AnswerResult
}

func New() *State {
	return &State{Version: -1}
}

// Apply merges one snapshot. Three rules, applied in order:
//
//  1. Version watermark: a snapshot at or below the current version is a
//     duplicate or arrived out of order; it is dropped entirely.
//  2. Question boundary: when the question index or the room status moves,
//     per-question local state (Submitted, LocalAnswer, AnswerCount) resets
//     before the merge. The version check above makes the reset fire at most
//     once per boundary even when the same snapshot is delivered twice.
//  3. Merge: server-owned fields are replaced, never merged field-by-field.
//     AnswerCount only ratchets upward within a question, so a snapshot that
//     raced an in-flight submission cannot make the count jump backward.
//
// The return reports whether the snapshot was applied.
func (s *State) Apply(snap types.Snapshot) bool {
	if snap.Version <= s.Version {
		return false
	}

	if snap.Room.CurrentQIndex != s.Room.CurrentQIndex || snap.Room.Status != s.Room.Status {
		s.Submitted = false
		s.LocalAnswer = nil
		s.AnswerCount = 0
	}

	s.Version = snap.Version
	s.Room = snap.Room
	s.Players = snap.Players
	s.Question = snap.Question
	s.Standings = snap.Standings
	if snap.AnswerCount > s.AnswerCount {
		s.AnswerCount = snap.AnswerCount
	}
	return true
}

// ApplyLocalAnswer records this client's own scored submission without
// waiting for the broadcast that includes it. Submitted ratchets: once set
// for a question it stays set until the question moves, even if a stale
// snapshot without the answer arrives afterwards.
func (s *State) ApplyLocalAnswer(res types.AnswerResult) {
	if s.Question == nil || res.QuestionIndex != s.Room.CurrentQIndex {
		return
	}
	if !s.Submitted {
		s.Submitted = true
		s.AnswerCount++
	}
	s.LocalAnswer = &res
}

// WindowOpen reports whether this client may still submit, judged from the
// snapshot alone: the room is playing, the deadline (when one exists) is
// still ahead of the supplied clock reading, and in wait-for-all mode not
// every player has answered yet.
func (s *State) WindowOpen(nowUnixMilli int64) bool {
	if s.Room.Status != "playing" {
		return false
	}
	if s.Room.WindowMode == "wait_for_all" && len(s.Players) > 0 && s.AnswerCount >= len(s.Players) {
		return false
	}
	if s.Room.QuestionEndsAt == nil {
		return true
	}
	return s.Room.QuestionEndsAt.UnixMilli() > nowUnixMilli
}
