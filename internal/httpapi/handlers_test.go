package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/squadfire/internal/server"
	"github.com/DoyleJ11/squadfire/internal/session/sessiontest"
	"github.com/DoyleJ11/squadfire/pkg/types"
)

type fakeHistory struct {
	matches []types.Match
	err     error
	limit   int
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]types.Match, error) {
	f.limit = limit
	return f.matches, f.err
}

func newTestServer(t *testing.T) *server.Server {
	t.Helper()
	srv := server.New(server.DefaultConfig(), zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.Match.Run(ctx)
	return srv
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	h := SetupRoutes(srv, nil, zaptest.NewLogger(t))
	assert.Equal(t, http.StatusOK, get(t, h, "/healthz").Code)
}

func TestRoster(t *testing.T) {
	srv := newTestServer(t)
	_, err := srv.Registry.Join("alice", sessiontest.NewConn(), "ghost")
	require.NoError(t, err)
	srv.Lobby.Broadcast()

	rr := get(t, SetupRoutes(srv, nil, zaptest.NewLogger(t)), "/roster")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var out types.Roster
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, 4, out.MaxPlayers)
	require.Len(t, out.Players, 1)
	assert.Equal(t, "alice", out.Players[0].Name)
	assert.Equal(t, "RED", out.Players[0].Team)
	assert.Equal(t, "ghost", out.Players[0].CharacterID)
	assert.Equal(t, 120, out.Players[0].HP)
	assert.WithinDuration(t, time.Now(), out.Players[0].JoinedAt, time.Minute)
}

func TestMatchStatusIdle(t *testing.T) {
	srv := newTestServer(t)
	rr := get(t, SetupRoutes(srv, nil, zaptest.NewLogger(t)), "/match")
	require.Equal(t, http.StatusOK, rr.Code)

	var out types.MatchStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.False(t, out.Running)
	assert.Equal(t, "LOBBY", out.State)
}

func TestMatchStatusLoopStopped(t *testing.T) {
	srv := server.New(server.DefaultConfig(), zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Match.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("match loop did not stop")
	}

	rr := get(t, SetupRoutes(srv, nil, zaptest.NewLogger(t)), "/match")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestMatchesDisabled(t *testing.T) {
	srv := newTestServer(t)
	rr := get(t, SetupRoutes(srv, nil, zaptest.NewLogger(t)), "/matches")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestMatchesLimit(t *testing.T) {
	srv := newTestServer(t)
	hist := &fakeHistory{matches: []types.Match{{ID: 3, Winner: "RED", Rounds: 2}}}
	h := SetupRoutes(srv, hist, zaptest.NewLogger(t))

	rr := get(t, h, "/matches")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, defaultMatchLimit, hist.limit)

	var out []types.Match
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "RED", out[0].Winner)

	get(t, h, "/matches?limit=500")
	assert.Equal(t, maxMatchLimit, hist.limit)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/matches?limit=abc").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/matches?limit=0").Code)
}

func TestMatchesEmptyAndError(t *testing.T) {
	srv := newTestServer(t)

	rr := get(t, SetupRoutes(srv, &fakeHistory{}, zaptest.NewLogger(t)), "/matches")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())

	rr = get(t, SetupRoutes(srv, &fakeHistory{err: errors.New("db down")}, zaptest.NewLogger(t)), "/matches")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
