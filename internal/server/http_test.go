package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/loveletter-online/server-go/internal/repository"
	"github.com/loveletter-online/server-go/internal/room"
)

type fakeStore struct {
	stats       map[string]*repository.UserStats
	leaderboard []repository.LeaderboardEntry
}

func (f *fakeStore) UserStats(_ context.Context, subjectID string) (*repository.UserStats, error) {
	if s, ok := f.stats[subjectID]; ok {
		return s, nil
	}
	return nil, repository.ErrNoSuchUser
}

func (f *fakeStore) Leaderboard(_ context.Context, kind string, _ int) ([]repository.LeaderboardEntry, error) {
	switch kind {
	case repository.LeaderboardWins, repository.LeaderboardHighestHand, repository.LeaderboardWinRate:
		return f.leaderboard, nil
	}
	return nil, repository.ErrUnknownLeaderboard
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func newAPIServer(store Store) *httptest.Server {
	rooms := room.NewManager(room.Options{GracePeriod: time.Minute}, nil, nil, zap.NewNop())
	api := NewStatsAPI(store, rooms, zap.NewNop())
	mux := http.NewServeMux()
	api.Register(mux)
	return httptest.NewServer(mux)
}

func TestStatsRequiresUserID(t *testing.T) {
	srv := newAPIServer(&fakeStore{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatsUnknownUser(t *testing.T) {
	srv := newAPIServer(&fakeStore{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stats?userId=nobody")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatsReturnsAggregates(t *testing.T) {
	store := &fakeStore{stats: map[string]*repository.UserStats{
		"u1": {SubjectID: "u1", Name: "Ada", GamesPlayed: 10, GamesWon: 4, WinRate: 0.4},
	}}
	srv := newAPIServer(store)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stats?userId=u1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got repository.UserStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, 4, got.GamesWon)
}

func TestStatsUnavailableWithoutStore(t *testing.T) {
	srv := newAPIServer(nil)
	defer srv.Close()

	for _, path := range []string{"/stats?userId=u1", "/leaderboard"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, path)
	}
}

func TestLeaderboardRejectsUnknownType(t *testing.T) {
	srv := newAPIServer(&fakeStore{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/leaderboard?type=elo")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLeaderboardDefaultsToWins(t *testing.T) {
	store := &fakeStore{leaderboard: []repository.LeaderboardEntry{
		{SubjectID: "u1", Name: "Ada", Value: 12},
	}}
	srv := newAPIServer(store)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/leaderboard")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []repository.LeaderboardEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "Ada", got[0].Name)
}

func TestPreflightGetsCORSHeaders(t *testing.T) {
	srv := newAPIServer(&fakeStore{})
	defer srv.Close()

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/stats", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHealthReportsRoomCount(t *testing.T) {
	srv := newAPIServer(&fakeStore{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "ok", got["status"])
	assert.Equal(t, float64(0), got["rooms"])
}
