package game

import "sort"

// Standing is one leaderboard row. Rank uses standard competition ranking:
// equal scores share the lower ordinal and the next distinct score resumes at
// its list position, so 300/300/100 ranks 1/1/3.
type Standing struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
	Winner   bool   `json:"is_winner"`
}

// Standings derives the leaderboard from player scores alone. It is a pure
// function and can be recomputed at any instant; nothing about rank is ever
// stored. Every player tied for the top score is a winner, so joint winners
// are possible.
func Standings(players []Player) []Standing {
	out := make([]Standing, len(players))
	for i, p := range players {
		out[i] = Standing{PlayerID: p.ID, Name: p.Name, Score: p.Score}
	}
	// Name is only a display tie-break; rank ignores it.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})

	for i := range out {
		if i > 0 && out[i].Score == out[i-1].Score {
			out[i].Rank = out[i-1].Rank
		} else {
			out[i].Rank = i + 1
		}
	}
	if len(out) > 0 {
		top := out[0].Score
		for i := range out {
			out[i].Winner = out[i].Score == top
		}
	}
	return out
}

// Winners returns the joint-winner set: every player whose score equals the
// maximum.
func Winners(players []Player) []Player {
	if len(players) == 0 {
		return nil
	}
	top := players[0].Score
	for _, p := range players[1:] {
		if p.Score > top {
			top = p.Score
		}
	}
	var winners []Player
	for _, p := range players {
		if p.Score == top {
			winners = append(winners, p)
		}
	}
	return winners
}
