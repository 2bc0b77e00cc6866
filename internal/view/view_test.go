package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quizrally/trivia-backend/pkg/types"
)

func snap(version, qIndex int, status string, answerCount int) types.Snapshot {
	return types.Snapshot{
		Version: version,
		Room: types.Room{
			Code:          "QWERTY",
			Status:        status,
			CurrentQIndex: qIndex,
		},
		Question:    &types.Question{Index: qIndex, Text: "q", Options: []string{"a", "b", "c", "d"}},
		AnswerCount: answerCount,
	}
}

func TestApply_VersionWatermark(t *testing.T) {
	s := New()

	require.True(t, s.Apply(snap(3, 0, "playing", 1)))
	require.Equal(t, 3, s.Version)

	// Same version again: duplicate delivery, dropped.
	require.False(t, s.Apply(snap(3, 0, "playing", 2)))
	require.Equal(t, 1, s.AnswerCount)

	// Older version: out-of-order delivery, dropped.
	require.False(t, s.Apply(snap(2, 0, "playing", 0)))
	require.Equal(t, 3, s.Version)
}

func TestApply_AnswerCountRatchet(t *testing.T) {
	s := New()
	require.True(t, s.Apply(snap(1, 0, "playing", 2)))

	// Newer snapshot with a lower count cannot pull the count back.
	require.True(t, s.Apply(snap(2, 0, "playing", 1)))
	require.Equal(t, 2, s.AnswerCount)

	require.True(t, s.Apply(snap(3, 0, "playing", 3)))
	require.Equal(t, 3, s.AnswerCount)
}

func TestApply_QuestionBoundaryResets(t *testing.T) {
	s := New()
	require.True(t, s.Apply(snap(1, 0, "playing", 0)))

	s.ApplyLocalAnswer(types.AnswerResult{QuestionIndex: 0, SelectedIndex: 1, IsCorrect: true, PointsAwarded: 80})
	require.True(t, s.Submitted)
	require.Equal(t, 1, s.AnswerCount)

	// Index moves: local submission state resets, count restarts from the
	// snapshot's value.
	require.True(t, s.Apply(snap(2, 1, "playing", 0)))
	require.False(t, s.Submitted)
	require.Nil(t, s.LocalAnswer)
	require.Equal(t, 0, s.AnswerCount)
}

func TestApply_SubmittedSurvivesStaleSnapshot(t *testing.T) {
	s := New()
	require.True(t, s.Apply(snap(1, 0, "playing", 0)))
	s.ApplyLocalAnswer(types.AnswerResult{QuestionIndex: 0, SelectedIndex: 2})

	// A later snapshot for the same question that does not yet include this
	// client's answer must not clear the submitted flag or lower the count.
	require.True(t, s.Apply(snap(2, 0, "playing", 0)))
	require.True(t, s.Submitted)
	require.NotNil(t, s.LocalAnswer)
	require.Equal(t, 1, s.AnswerCount)
}

func TestApplyLocalAnswer_IgnoresWrongQuestion(t *testing.T) {
	s := New()
	require.True(t, s.Apply(snap(1, 2, "playing", 0)))

	s.ApplyLocalAnswer(types.AnswerResult{QuestionIndex: 1})
	require.False(t, s.Submitted)

	// Duplicate local echo counts once.
	s.ApplyLocalAnswer(types.AnswerResult{QuestionIndex: 2})
	s.ApplyLocalAnswer(types.AnswerResult{QuestionIndex: 2})
	require.Equal(t, 1, s.AnswerCount)
}

func TestWindowOpen(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	deadline := now.Add(5 * time.Second)

	s := New()
	sn := snap(1, 0, "playing", 0)
	sn.Room.QuestionEndsAt = &deadline
	require.True(t, s.Apply(sn))

	require.True(t, s.WindowOpen(now.UnixMilli()))
	require.False(t, s.WindowOpen(now.Add(6*time.Second).UnixMilli()))

	// Wait-for-all: no deadline means the window stays open while playing,
	// until every player has answered.
	sn2 := snap(2, 0, "playing", 0)
	sn2.Room.WindowMode = "wait_for_all"
	sn2.Players = []types.Player{{ID: "p1"}, {ID: "p2"}}
	require.True(t, s.Apply(sn2))
	require.True(t, s.WindowOpen(now.Add(time.Hour).UnixMilli()))

	sn2b := snap(3, 0, "playing", 2)
	sn2b.Room.WindowMode = "wait_for_all"
	sn2b.Players = []types.Player{{ID: "p1"}, {ID: "p2"}}
	require.True(t, s.Apply(sn2b))
	require.False(t, s.WindowOpen(now.UnixMilli()))

	sn3 := snap(4, 0, "finished", 0)
	require.True(t, s.Apply(sn3))
	require.False(t, s.WindowOpen(now.UnixMilli()))
}
