package game

import (
	"fmt"
	"math"
	"time"
)

// Result is what one scoring pass produces for a submission.
type Result struct {
	Correct bool `json:"is_correct"`
	Points  int  `json:"points_awarded"`
}

// Score computes the points for a submission against the room's rules. Time
// remaining comes from the stored deadline and the coordinator's clock, never
// from anything the client claims.
//
// Fixed mode: floor(secondsRemaining * PointsPerSecond) for a correct answer,
// clamped at zero once the deadline has passed. Wait-for-all mode: a flat
// award, since there is no shared countdown to reward speed against.
func Score(q *Question, selected int, rules Rules, endsAt *time.Time, submittedAt time.Time) (Result, error) {
	if selected < 0 || selected >= OptionCount {
		return Result{}, fmt.Errorf("%w: selected option %d out of range", ErrValidation, selected)
	}
	correct := selected == q.CorrectIndex
	if !correct {
		return Result{Correct: false, Points: 0}, nil
	}

	switch rules.WindowMode {
	case WindowWaitForAll:
		return Result{Correct: true, Points: rules.FlatPoints}, nil
	default:
		if endsAt == nil {
			// Fixed mode always carries a deadline while a question is
			// open; treat its absence as an already-elapsed window.
			return Result{Correct: true, Points: 0}, nil
		}
		remaining := endsAt.Sub(submittedAt).Seconds()
		if remaining <= 0 {
			return Result{Correct: true, Points: 0}, nil
		}
		return Result{Correct: true, Points: int(math.Floor(remaining * float64(rules.PointsPerSecond)))}, nil
	}
}
