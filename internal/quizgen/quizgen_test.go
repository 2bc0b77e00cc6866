package quizgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quizrally/trivia-backend/internal/game"
)

func completionHandler(t *testing.T, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		require.Equal(t, "json_object", req.ResponseFormat.Type)

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func wellFormedSet(n int) string {
	set := questionSet{}
	for i := 0; i < n; i++ {
		set.Questions = append(set.Questions, struct {
			Text         string   `json:"text"`
			Options      []string `json:"options"`
			CorrectIndex int      `json:"correctIndex"`
		}{
			Text:         fmt.Sprintf("Question %d?", i),
			Options:      []string{"A", "B", "C", "D"},
			CorrectIndex: i % 4,
		})
	}
	raw, _ := json.Marshal(set)
	return string(raw)
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(srv.URL, "test-key", "gpt-4o-mini", zap.NewNop())
}

func TestClient_Generate(t *testing.T) {
	srv := httptest.NewServer(completionHandler(t, wellFormedSet(5)))
	defer srv.Close()

	qs, err := newTestClient(srv).Generate(context.Background(), Request{
		Topic: "90s TV", Difficulty: game.DifficultyMedium, Count: 5,
	})
	require.NoError(t, err)
	require.Len(t, qs, 5)
	require.Equal(t, []string{"A", "B", "C", "D"}, qs[0].Options)
}

func TestClient_Generate_CountMismatchRejected(t *testing.T) {
	srv := httptest.NewServer(completionHandler(t, wellFormedSet(4)))
	defer srv.Close()

	_, err := newTestClient(srv).Generate(context.Background(), Request{
		Topic: "history", Difficulty: game.DifficultyEasy, Count: 5,
	})
	require.ErrorIs(t, err, game.ErrGeneration)
}

func TestClient_Generate_BadShapeRejected(t *testing.T) {
	cases := map[string]string{
		"not json":           "the questions are as follows...",
		"three options":      `{"questions":[{"text":"q","options":["a","b","c"],"correctIndex":0},{"text":"q","options":["a","b","c","d"],"correctIndex":0},{"text":"q","options":["a","b","c","d"],"correctIndex":0},{"text":"q","options":["a","b","c","d"],"correctIndex":0},{"text":"q","options":["a","b","c","d"],"correctIndex":0}]}`,
		"index out of range": `{"questions":[{"text":"q","options":["a","b","c","d"],"correctIndex":4},{"text":"q","options":["a","b","c","d"],"correctIndex":0},{"text":"q","options":["a","b","c","d"],"correctIndex":0},{"text":"q","options":["a","b","c","d"],"correctIndex":0},{"text":"q","options":["a","b","c","d"],"correctIndex":0}]}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(completionHandler(t, content))
			defer srv.Close()

			_, err := newTestClient(srv).Generate(context.Background(), Request{
				Topic: "anything", Difficulty: game.DifficultyHard, Count: 5,
			})
			require.ErrorIs(t, err, game.ErrGeneration)
		})
	}
}

func TestClient_Generate_UpstreamErrorPreserved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limit exceeded"},
		})
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Generate(context.Background(), Request{
		Topic: "anything", Difficulty: game.DifficultyEasy, Count: 5,
	})
	require.ErrorIs(t, err, game.ErrGeneration)
	require.Contains(t, err.Error(), "rate limit exceeded")
}

func TestClient_Generate_ValidatesRequest(t *testing.T) {
	c := NewClient("http://unused", "k", "m", zap.NewNop())

	_, err := c.Generate(context.Background(), Request{Topic: "t", Difficulty: game.DifficultyEasy, Count: 3})
	require.True(t, errors.Is(err, game.ErrValidation))

	_, err = c.Generate(context.Background(), Request{Topic: "t", Difficulty: "impossible", Count: 10})
	require.True(t, errors.Is(err, game.ErrValidation))
}

func TestCatalog_PackSource(t *testing.T) {
	catalog := NewCatalog()
	require.NotEmpty(t, catalog.List())

	src := catalog.Source("general-knowledge")
	qs, err := src.Generate(context.Background(), Request{Count: 5})
	require.NoError(t, err)
	require.Len(t, qs, 5)

	_, err = src.Generate(context.Background(), Request{Count: 20})
	require.ErrorIs(t, err, game.ErrGeneration, "asking beyond pack size fails like a short AI response")

	_, err = catalog.Source("no-such-pack").Generate(context.Background(), Request{Count: 5})
	require.ErrorIs(t, err, game.ErrGeneration)
}

func TestBuiltinPacks_AllWellFormed(t *testing.T) {
	for _, p := range NewCatalog().List() {
		require.GreaterOrEqual(t, len(p.Questions), game.MinQuestions, "pack %s", p.ID)
		require.NoError(t, game.ValidateQuestions(p.Questions, len(p.Questions)), "pack %s", p.ID)
	}
}
