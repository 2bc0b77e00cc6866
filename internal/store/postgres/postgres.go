// Package postgres backs the session store with Postgres through gorm. The
// three concurrency-critical operations map straight onto SQL primitives: the
// answer uniqueness constraint plus ON CONFLICT DO NOTHING, a guarded UPDATE
// for the index compare-and-set, and a SQL-level score increment.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/quizrally/trivia-backend/internal/game"
)

const uniqueViolation = "23505"

type Store struct {
	db *gorm.DB
}

// Open connects and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := db.AutoMigrate(&roomRow{}, &questionRow{}, &playerRow{}, &answerRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

type roomRow struct {
	ID              string `gorm:"primaryKey"`
	Code            string `gorm:"uniqueIndex;size:6"`
	HostName        string
	HostToken       string
	Status          string `gorm:"index"`
	Locked          bool
	Topic           string
	Difficulty      string
	QuestionCount   int
	CurrentQIndex   int
	QuestionEndsAt  *time.Time
	WindowMode      string
	WindowSec       int
	PointsPerSecond int
	FlatPoints      int
	LatePolicy      string
	CreatedAt       time.Time
}

func (roomRow) TableName() string { return "rooms" }

type questionRow struct {
	ID           string `gorm:"primaryKey"`
	RoomID       string `gorm:"index;uniqueIndex:uq_questions_room_index"`
	QIndex       int    `gorm:"uniqueIndex:uq_questions_room_index"`
	Text         string
	Options      []string `gorm:"serializer:json"`
	CorrectIndex int
}

func (questionRow) TableName() string { return "questions" }

type playerRow struct {
	ID       string `gorm:"primaryKey"`
	RoomID   string `gorm:"index"`
	Name     string
	Score    int
	JoinedAt time.Time
}

func (playerRow) TableName() string { return "players" }

type answerRow struct {
	ID            string `gorm:"primaryKey"`
	RoomID        string `gorm:"uniqueIndex:uq_answers_room_player_q"`
	PlayerID      string `gorm:"uniqueIndex:uq_answers_room_player_q"`
	QIndex        int    `gorm:"uniqueIndex:uq_answers_room_player_q"`
	SelectedIndex int
	Correct       bool
	Points        int
	SubmittedAt   time.Time
}

func (answerRow) TableName() string { return "answers" }

func toRoomRow(r *game.Room) roomRow {
	return roomRow{
		ID:              r.ID,
		Code:            r.Code,
		HostName:        r.HostName,
		HostToken:       r.HostToken,
		Status:          string(r.Status),
		Locked:          r.Locked,
		Topic:           r.Topic,
		Difficulty:      string(r.Difficulty),
		QuestionCount:   r.QuestionCount,
		CurrentQIndex:   r.CurrentQuestion,
		QuestionEndsAt:  r.QuestionEndsAt,
		WindowMode:      string(r.Rules.WindowMode),
		WindowSec:       r.Rules.WindowSec,
		PointsPerSecond: r.Rules.PointsPerSecond,
		FlatPoints:      r.Rules.FlatPoints,
		LatePolicy:      string(r.Rules.LatePolicy),
		CreatedAt:       r.CreatedAt,
	}
}

func fromRoomRow(row roomRow) *game.Room {
	return &game.Room{
		ID:              row.ID,
		Code:            row.Code,
		HostName:        row.HostName,
		HostToken:       row.HostToken,
		Status:          game.Status(row.Status),
		Locked:          row.Locked,
		Topic:           row.Topic,
		Difficulty:      game.Difficulty(row.Difficulty),
		QuestionCount:   row.QuestionCount,
		CurrentQuestion: row.CurrentQIndex,
		QuestionEndsAt:  row.QuestionEndsAt,
		Rules: game.Rules{
			WindowMode:      game.WindowMode(row.WindowMode),
			WindowSec:       row.WindowSec,
			PointsPerSecond: row.PointsPerSecond,
			FlatPoints:      row.FlatPoints,
			LatePolicy:      game.LatePolicy(row.LatePolicy),
		},
		CreatedAt: row.CreatedAt,
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (s *Store) CreateRoom(ctx context.Context, room *game.Room, questions []game.Question) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(toRoomRow(room)).Error; err != nil {
			if isUniqueViolation(err) {
				return game.ErrCodeTaken
			}
			return err
		}
		rows := make([]questionRow, len(questions))
		for i, q := range questions {
			rows[i] = questionRow{
				ID:           q.ID,
				RoomID:       q.RoomID,
				QIndex:       q.Index,
				Text:         q.Text,
				Options:      q.Options,
				CorrectIndex: q.CorrectIndex,
			}
		}
		return tx.Create(&rows).Error
	})
}

func (s *Store) RoomByCode(ctx context.Context, code string) (*game.Room, error) {
	var row roomRow
	err := s.db.WithContext(ctx).First(&row, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, game.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromRoomRow(row), nil
}

func (s *Store) Room(ctx context.Context, id string) (*game.Room, error) {
	var row roomRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, game.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromRoomRow(row), nil
}

func (s *Store) StartRoom(ctx context.Context, id string, endsAt *time.Time) (*game.Room, error) {
	res := s.db.WithContext(ctx).Model(&roomRow{}).
		Where("id = ? AND status = ?", id, string(game.StatusLobby)).
		Updates(map[string]any{
			"status":           string(game.StatusPlaying),
			"locked":           true,
			"current_q_index":  0,
			"question_ends_at": endsAt,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return s.conflictOrNotFound(ctx, id)
	}
	return s.Room(ctx, id)
}

func (s *Store) AdvanceRoom(ctx context.Context, id string, fromIndex int, adv game.Advance) (*game.Room, error) {
	res := s.db.WithContext(ctx).Model(&roomRow{}).
		Where("id = ? AND status = ? AND current_q_index = ?", id, string(game.StatusPlaying), fromIndex).
		Updates(map[string]any{
			"status":           string(adv.Status),
			"current_q_index":  adv.NextIndex,
			"question_ends_at": adv.EndsAt,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return s.conflictOrNotFound(ctx, id)
	}
	return s.Room(ctx, id)
}

func (s *Store) RevealRoom(ctx context.Context, id string, expectIndex int, at time.Time) (*game.Room, error) {
	res := s.db.WithContext(ctx).Model(&roomRow{}).
		Where("id = ? AND status = ? AND current_q_index = ?", id, string(game.StatusPlaying), expectIndex).
		Update("question_ends_at", at)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return s.conflictOrNotFound(ctx, id)
	}
	return s.Room(ctx, id)
}

func (s *Store) CancelRoom(ctx context.Context, id string) (*game.Room, error) {
	res := s.db.WithContext(ctx).Model(&roomRow{}).
		Where("id = ? AND status IN ?", id, []string{string(game.StatusLobby), string(game.StatusPlaying)}).
		Updates(map[string]any{
			"status": string(game.StatusCancelled),
			"locked": true,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return s.conflictOrNotFound(ctx, id)
	}
	return s.Room(ctx, id)
}

// conflictOrNotFound disambiguates a zero-row guarded update: the room either
// no longer satisfies the guard (lost race) or never existed.
func (s *Store) conflictOrNotFound(ctx context.Context, id string) (*game.Room, error) {
	if _, err := s.Room(ctx, id); errors.Is(err, game.ErrRoomNotFound) {
		return nil, game.ErrRoomNotFound
	}
	return nil, game.ErrConflict
}

func (s *Store) AddPlayer(ctx context.Context, p *game.Player) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room roomRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&room, "id = ?", p.RoomID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return game.ErrRoomNotFound
		}
		if err != nil {
			return err
		}
		if room.Status != string(game.StatusLobby) || room.Locked {
			return game.ErrRoomLocked
		}
		return tx.Create(&playerRow{
			ID:       p.ID,
			RoomID:   p.RoomID,
			Name:     p.Name,
			Score:    p.Score,
			JoinedAt: p.JoinedAt,
		}).Error
	})
}

func (s *Store) Players(ctx context.Context, roomID string) ([]game.Player, error) {
	var rows []playerRow
	if err := s.db.WithContext(ctx).Where("room_id = ?", roomID).Order("joined_at asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]game.Player, len(rows))
	for i, row := range rows {
		out[i] = game.Player{ID: row.ID, RoomID: row.RoomID, Name: row.Name, Score: row.Score, JoinedAt: row.JoinedAt}
	}
	return out, nil
}

func (s *Store) Player(ctx context.Context, id string) (*game.Player, error) {
	var row playerRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, game.ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &game.Player{ID: row.ID, RoomID: row.RoomID, Name: row.Name, Score: row.Score, JoinedAt: row.JoinedAt}, nil
}

func (s *Store) IncrementScore(ctx context.Context, playerID string, delta int) error {
	res := s.db.WithContext(ctx).Model(&playerRow{}).
		Where("id = ?", playerID).
		UpdateColumn("score", gorm.Expr("score + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return game.ErrPlayerNotFound
	}
	return nil
}

func (s *Store) Questions(ctx context.Context, roomID string) ([]game.Question, error) {
	var rows []questionRow
	if err := s.db.WithContext(ctx).Where("room_id = ?", roomID).Order("q_index asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]game.Question, len(rows))
	for i, row := range rows {
		out[i] = game.Question{
			ID:           row.ID,
			RoomID:       row.RoomID,
			Index:        row.QIndex,
			Text:         row.Text,
			Options:      row.Options,
			CorrectIndex: row.CorrectIndex,
		}
	}
	return out, nil
}

func (s *Store) InsertAnswerOnce(ctx context.Context, a *game.Answer) (*game.Answer, bool, error) {
	row := answerRow{
		ID:            a.ID,
		RoomID:        a.RoomID,
		PlayerID:      a.PlayerID,
		QIndex:        a.QuestionIndex,
		SelectedIndex: a.SelectedIndex,
		Correct:       a.Correct,
		Points:        a.Points,
		SubmittedAt:   a.SubmittedAt,
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_id"}, {Name: "player_id"}, {Name: "q_index"}},
		DoNothing: true,
	}).Create(&row)
	if res.Error != nil {
		// Some driver paths surface the constraint error instead of
		// reporting zero rows affected.
		if !isUniqueViolation(res.Error) {
			return nil, false, res.Error
		}
		res.RowsAffected = 0
	}
	if res.RowsAffected > 0 {
		cp := *a
		return &cp, true, nil
	}

	var existing answerRow
	err := s.db.WithContext(ctx).
		First(&existing, "room_id = ? AND player_id = ? AND q_index = ?", a.RoomID, a.PlayerID, a.QuestionIndex).Error
	if err != nil {
		return nil, false, err
	}
	return &game.Answer{
		ID:            existing.ID,
		RoomID:        existing.RoomID,
		PlayerID:      existing.PlayerID,
		QuestionIndex: existing.QIndex,
		SelectedIndex: existing.SelectedIndex,
		Correct:       existing.Correct,
		Points:        existing.Points,
		SubmittedAt:   existing.SubmittedAt,
	}, false, nil
}

func (s *Store) AnswerCount(ctx context.Context, roomID string, questionIndex int) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&answerRow{}).
		Where("room_id = ? AND q_index = ?", roomID, questionIndex).
		Count(&n).Error
	return int(n), err
}
