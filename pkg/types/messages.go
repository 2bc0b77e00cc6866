package types

import "time"

// ClientMessage is what a websocket participant sends. Type selects the
// action; the other fields are filled per action.
type ClientMessage struct {
	Type          string `json:"type"`
	PlayerID      string `json:"player_id,omitempty"`
	HostToken     string `json:"host_token,omitempty"`
	QuestionIndex int    `json:"q_index,omitempty"`
	SelectedIndex int    `json:"selected_index,omitempty"`
	FromIndex     int    `json:"from_index,omitempty"`
}

// ServerMessage frames everything the coordinator pushes or replies over the
// socket: "snapshot" | "answer_result" | "error".
type ServerMessage struct {
	Type     string        `json:"type"`
	Snapshot *Snapshot     `json:"snapshot,omitempty"`
	Answer   *AnswerResult `json:"answer,omitempty"`
	Error    string        `json:"error,omitempty"`
}

type Snapshot struct {
	Version     int        `json:"version"`
	Room        Room       `json:"room"`
	Players     []Player   `json:"players"`
	Question    *Question  `json:"question,omitempty"`
	AnswerCount int        `json:"answer_count"`
	Standings   []Standing `json:"standings"`
}

type Room struct {
	Code            string     `json:"code"`
	HostName        string     `json:"host_name"`
	Status          string     `json:"status"`
	Locked          bool       `json:"locked"`
	Topic           string     `json:"topic"`
	Difficulty      string     `json:"difficulty"`
	QuestionCount   int        `json:"question_count"`
	CurrentQIndex   int        `json:"current_q_index"`
	QuestionEndsAt  *time.Time `json:"question_ends_at"`
	WindowMode      string     `json:"window_mode"`
	LatePolicy      string     `json:"late_policy"`
	PointsPerSecond int        `json:"points_per_second"`
}

type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type Question struct {
	Index        int      `json:"q_index"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
}

type Standing struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
	IsWinner bool   `json:"is_winner"`
}

type AnswerResult struct {
	QuestionIndex int  `json:"q_index"`
	SelectedIndex int  `json:"selected_index"`
	IsCorrect     bool `json:"is_correct"`
	PointsAwarded int  `json:"points_awarded"`
}
