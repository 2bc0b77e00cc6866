// Package quizgen produces validated question sets for new rooms, either
// from an OpenAI-compatible chat-completions endpoint or from the built-in
// pre-authored pack catalog. Whatever the source, the output is checked
// against the same shape contract before a room is allowed to exist.
package quizgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/quizrally/trivia-backend/internal/game"
)

type Request struct {
	Topic      string
	Difficulty game.Difficulty
	Count      int
}

// Source is anything that can produce a question set for a request.
type Source interface {
	Generate(ctx context.Context, req Request) ([]game.QuestionInput, error)
}

var difficultyInstructions = map[game.Difficulty]string{
	game.DifficultyEasy:   "Questions should be straightforward and suitable for beginners. Use common, well-known facts.",
	game.DifficultyMedium: "Questions should be moderately challenging, requiring some knowledge of the topic.",
	game.DifficultyHard:   "Questions should be challenging and require deep knowledge or obscure facts about the topic.",
}

// Client calls a chat-completions endpoint and parses the JSON question set
// out of the reply.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(baseURL, apiKey, model string, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: 60 * time.Second},
		log:     log,
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat respFormat    `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type questionSet struct {
	Questions []struct {
		Text         string   `json:"text"`
		Options      []string `json:"options"`
		CorrectIndex int      `json:"correctIndex"`
	} `json:"questions"`
}

func systemPrompt(req Request) string {
	return fmt.Sprintf(`You are a quiz question generator. Generate exactly %d multiple-choice trivia questions about the topic: %q.

%s

Requirements:
- Each question must have exactly 4 answer options
- Exactly one option must be correct
- Wrong options should be plausible but clearly incorrect to someone who knows the topic
- Questions should be engaging and educational
- Avoid ambiguous wording
- Do not repeat questions or answers

Respond with a JSON object in this exact format:
{
  "questions": [
    {
      "text": "Question text here?",
      "options": ["Option A", "Option B", "Option C", "Option D"],
      "correctIndex": 0
    }
  ]
}

The correctIndex is 0-based (0 for first option, 1 for second, etc).
Only respond with valid JSON, no additional text.`, req.Count, req.Topic, difficultyInstructions[req.Difficulty])
}

func (c *Client) Generate(ctx context.Context, req Request) ([]game.QuestionInput, error) {
	if req.Count < game.MinQuestions || req.Count > game.MaxQuestions {
		return nil, fmt.Errorf("%w: question count must be %d..%d", game.ErrValidation, game.MinQuestions, game.MaxQuestions)
	}
	if _, ok := game.ParseDifficulty(string(req.Difficulty)); !ok {
		return nil, fmt.Errorf("%w: unknown difficulty %q", game.ErrValidation, req.Difficulty)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(req)},
			{Role: "user", Content: fmt.Sprintf("Generate %d %s questions about: %s", req.Count, req.Difficulty, req.Topic)},
		},
		Temperature:    0.8,
		ResponseFormat: respFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", game.ErrGeneration, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", game.ErrGeneration, err)
	}

	var chat chatResponse
	if err := json.Unmarshal(raw, &chat); err != nil {
		return nil, fmt.Errorf("%w: malformed completion response", game.ErrGeneration)
	}
	if resp.StatusCode != http.StatusOK {
		detail := resp.Status
		if chat.Error != nil && chat.Error.Message != "" {
			detail = chat.Error.Message
		}
		// Preserve the upstream message; it is the one failure the end
		// user actually sees.
		return nil, fmt.Errorf("%w: %s", game.ErrGeneration, detail)
	}
	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("%w: completion contained no content", game.ErrGeneration)
	}

	var set questionSet
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &set); err != nil {
		return nil, fmt.Errorf("%w: model did not return valid JSON", game.ErrGeneration)
	}

	out := make([]game.QuestionInput, len(set.Questions))
	for i, q := range set.Questions {
		out[i] = game.QuestionInput{Text: q.Text, Options: q.Options, CorrectIndex: q.CorrectIndex}
	}
	if err := game.ValidateQuestions(out, req.Count); err != nil {
		c.log.Warn("generated question set failed validation", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", game.ErrGeneration, err)
	}
	return out, nil
}
