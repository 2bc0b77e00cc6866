package types

import (
	"github.com/quizrally/trivia-backend/internal/game"
	"github.com/quizrally/trivia-backend/internal/session"
)

// FromSnapshot flattens an authoritative session snapshot into the wire
// shape shared by the HTTP and websocket surfaces.
func FromSnapshot(snap session.Snapshot) Snapshot {
	out := Snapshot{
		Version: snap.Version,
		Room: Room{
			Code:            snap.Room.Code,
			HostName:        snap.Room.HostName,
			Status:          string(snap.Room.Status),
			Locked:          snap.Room.Locked,
			Topic:           snap.Room.Topic,
			Difficulty:      string(snap.Room.Difficulty),
			QuestionCount:   snap.Room.QuestionCount,
			CurrentQIndex:   snap.Room.CurrentQuestion,
			QuestionEndsAt:  snap.Room.QuestionEndsAt,
			WindowMode:      string(snap.Room.Rules.WindowMode),
			LatePolicy:      string(snap.Room.Rules.LatePolicy),
			PointsPerSecond: snap.Room.Rules.PointsPerSecond,
		},
		Players:     make([]Player, 0, len(snap.Players)),
		AnswerCount: snap.AnswerCount,
		Standings:   FromStandings(snap.Standings),
	}
	for _, p := range snap.Players {
		out.Players = append(out.Players, Player{ID: p.ID, Name: p.Name, Score: p.Score})
	}
	if q := snap.Question; q != nil {
		out.Question = &Question{
			Index:        q.Index,
			Text:         q.Text,
			Options:      q.Options,
			CorrectIndex: q.CorrectIndex,
		}
	}
	return out
}

func FromStandings(in []game.Standing) []Standing {
	out := make([]Standing, 0, len(in))
	for _, s := range in {
		out = append(out, Standing{
			PlayerID: s.PlayerID,
			Name:     s.Name,
			Score:    s.Score,
			Rank:     s.Rank,
			IsWinner: s.Winner,
		})
	}
	return out
}

// FromAnswer echoes a scored submission back to its submitter.
func FromAnswer(a *game.Answer) *AnswerResult {
	if a == nil {
		return nil
	}
	return &AnswerResult{
		QuestionIndex: a.QuestionIndex,
		SelectedIndex: a.SelectedIndex,
		IsCorrect:     a.Correct,
		PointsAwarded: a.Points,
	}
}
