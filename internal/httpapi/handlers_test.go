package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quizrally/trivia-backend/internal/hub"
	"github.com/quizrally/trivia-backend/internal/quizgen"
	"github.com/quizrally/trivia-backend/internal/store"
	"github.com/quizrally/trivia-backend/pkg/types"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	m := store.NewMemory()
	h := hub.NewHub(context.Background(), m, zap.NewNop())
	api := &API{
		Hub:     h,
		Store:   m,
		Catalog: quizgen.NewCatalog(),
		Log:     zap.NewNop(),
	}
	srv := httptest.NewServer(SetupRoutes(api, []string{"*"}))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func createPackRoom(t *testing.T, srv *httptest.Server) createRoomResponse {
	t.Helper()
	var created createRoomResponse
	status := postJSON(t, srv.URL+"/rooms", createRoomRequest{
		HostName:      "Dana",
		Topic:         "general knowledge",
		Difficulty:    "easy",
		QuestionCount: 6,
		Source:        "pack",
		PackID:        "general-knowledge",
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, created.Code, 6)
	require.NotEmpty(t, created.HostToken)
	return created
}

func TestCreateRoom_Validation(t *testing.T) {
	srv := newTestServer(t)

	status := postJSON(t, srv.URL+"/rooms", createRoomRequest{
		HostName:      "Dana",
		Topic:         "anything",
		Difficulty:    "impossible",
		QuestionCount: 6,
		Source:        "pack",
		PackID:        "general-knowledge",
	}, nil)
	require.Equal(t, http.StatusBadRequest, status)

	// Unknown pack is a generation failure, same as a bad AI response.
	status = postJSON(t, srv.URL+"/rooms", createRoomRequest{
		HostName:      "Dana",
		Topic:         "anything",
		Difficulty:    "easy",
		QuestionCount: 6,
		Source:        "pack",
		PackID:        "no-such-pack",
	}, nil)
	require.Equal(t, http.StatusBadGateway, status)

	// No AI backend configured in tests.
	status = postJSON(t, srv.URL+"/rooms", createRoomRequest{
		HostName:      "Dana",
		Topic:         "anything",
		Difficulty:    "easy",
		QuestionCount: 6,
	}, nil)
	require.Equal(t, http.StatusBadGateway, status)
}

func TestListPacks(t *testing.T) {
	srv := newTestServer(t)

	var body struct {
		Packs []quizgen.Pack `json:"packs"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/packs", &body))
	require.NotEmpty(t, body.Packs)
	for _, p := range body.Packs {
		require.NotEmpty(t, p.ID)
		require.Greater(t, p.Size, 0)
	}
}

func TestUnknownRoom(t *testing.T) {
	srv := newTestServer(t)
	require.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/rooms/NOPE99", nil))
	require.Equal(t, http.StatusNotFound,
		postJSON(t, srv.URL+"/rooms/NOPE99/join", joinRequest{Name: "Avery"}, nil))
}

func TestRoomLifecycle(t *testing.T) {
	srv := newTestServer(t)
	created := createPackRoom(t, srv)
	base := srv.URL + "/rooms/" + created.Code

	// Join two players; codes are case-insensitive on the way in.
	var j1, j2 joinResponse
	lower := srv.URL + "/rooms/" + string(bytes.ToLower([]byte(created.Code)))
	require.Equal(t, http.StatusCreated, postJSON(t, lower+"/join", joinRequest{Name: "Avery"}, &j1))
	require.Equal(t, http.StatusCreated, postJSON(t, base+"/join", joinRequest{Name: "Blake"}, &j2))
	require.NotEqual(t, j1.PlayerID, j2.PlayerID)

	// Start requires the host token.
	require.Equal(t, http.StatusForbidden,
		postJSON(t, base+"/start", hostActionRequest{HostToken: "wrong"}, nil))

	var snap types.Snapshot
	require.Equal(t, http.StatusOK,
		postJSON(t, base+"/start", hostActionRequest{HostToken: created.HostToken}, &snap))
	require.Equal(t, "playing", snap.Room.Status)
	require.True(t, snap.Room.Locked)
	require.NotNil(t, snap.Question)
	require.Equal(t, 0, snap.Question.Index)
	require.NotNil(t, snap.Room.QuestionEndsAt)

	// Joining after lock is refused.
	require.Equal(t, http.StatusConflict,
		postJSON(t, base+"/join", joinRequest{Name: "Casey"}, nil))

	// Correct answer within the window scores.
	var res types.AnswerResult
	require.Equal(t, http.StatusOK, postJSON(t, base+"/answers", submitRequest{
		PlayerID:      j1.PlayerID,
		QuestionIndex: 0,
		SelectedIndex: snap.Question.CorrectIndex,
	}, &res))
	require.True(t, res.IsCorrect)
	require.Greater(t, res.PointsAwarded, 0)

	// Resubmission returns the original verdict unchanged.
	var dup types.AnswerResult
	require.Equal(t, http.StatusOK, postJSON(t, base+"/answers", submitRequest{
		PlayerID:      j1.PlayerID,
		QuestionIndex: 0,
		SelectedIndex: (snap.Question.CorrectIndex + 1) % 4,
	}, &dup))
	require.Equal(t, res, dup)

	// Advance; a duplicate advance with the same from-index is absorbed and
	// answers 200 with the authoritative snapshot.
	require.Equal(t, http.StatusOK,
		postJSON(t, base+"/advance", hostActionRequest{HostToken: created.HostToken, FromIndex: 0}, &snap))
	require.Equal(t, 1, snap.Room.CurrentQIndex)

	require.Equal(t, http.StatusOK,
		postJSON(t, base+"/advance", hostActionRequest{HostToken: created.HostToken, FromIndex: 0}, &snap))
	require.Equal(t, 1, snap.Room.CurrentQIndex)

	// Walk the remaining questions to the end.
	for i := 1; i < 6; i++ {
		require.Equal(t, http.StatusOK,
			postJSON(t, base+"/advance", hostActionRequest{HostToken: created.HostToken, FromIndex: i}, &snap))
	}
	require.Equal(t, "finished", snap.Room.Status)

	var lb struct {
		Standings []types.Standing `json:"standings"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, base+"/leaderboard", &lb))
	require.Len(t, lb.Standings, 2)
	require.Equal(t, 1, lb.Standings[0].Rank)
	require.Equal(t, j1.PlayerID, lb.Standings[0].PlayerID)
	require.True(t, lb.Standings[0].IsWinner)
}

func TestCancelRoom(t *testing.T) {
	srv := newTestServer(t)
	created := createPackRoom(t, srv)
	base := srv.URL + "/rooms/" + created.Code

	var snap types.Snapshot
	require.Equal(t, http.StatusOK,
		postJSON(t, base+"/cancel", hostActionRequest{HostToken: created.HostToken}, &snap))
	require.Equal(t, "cancelled", snap.Room.Status)

	// Cancelling twice is an invalid transition.
	require.Equal(t, http.StatusConflict,
		postJSON(t, base+"/cancel", hostActionRequest{HostToken: created.HostToken}, nil))
}

func TestSnapshotPolling(t *testing.T) {
	srv := newTestServer(t)
	created := createPackRoom(t, srv)
	base := srv.URL + "/rooms/" + created.Code

	var before, after types.Snapshot
	require.Equal(t, http.StatusOK, getJSON(t, base, &before))
	require.Equal(t, "lobby", before.Room.Status)

	require.Equal(t, http.StatusCreated, postJSON(t, base+"/join", joinRequest{Name: "Avery"}, nil))
	require.Equal(t, http.StatusOK, getJSON(t, base, &after))
	require.Greater(t, after.Version, before.Version)
	require.Len(t, after.Players, 1)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
