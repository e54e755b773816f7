package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fortyfives/server/store"
)

type fakeLedger struct {
	pingErr error
	games   []store.GameSummary
	detail  map[string]store.GameDetail
	leaders []store.LeaderRow
	limit   int
}

func (f *fakeLedger) Ping(context.Context) error { return f.pingErr }

func (f *fakeLedger) RecentGames(_ context.Context, limit int) ([]store.GameSummary, error) {
	f.limit = limit
	return f.games, nil
}

func (f *fakeLedger) GameDetail(_ context.Context, id string) (store.GameDetail, error) {
	d, ok := f.detail[id]
	if !ok {
		return store.GameDetail{}, store.ErrNotFound
	}
	return d, nil
}

func (f *fakeLedger) Leaderboard(context.Context) ([]store.LeaderRow, error) {
	return f.leaders, nil
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHealth(t *testing.T) {
	f := &fakeLedger{}
	rr := get(t, Router(f), "/api/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"ok":true}`, rr.Body.String())

	f.pingErr = errors.New("down")
	rr = get(t, Router(f), "/api/health")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestGamesList(t *testing.T) {
	f := &fakeLedger{}
	h := Router(f)

	rr := get(t, h, "/api/games")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
	assert.Equal(t, 50, f.limit)

	f.games = []store.GameSummary{{ID: "g1", Rounds: 4}}
	rr = get(t, h, "/api/games?limit=1000")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 200, f.limit)
	var out []store.GameSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "g1", out[0].ID)

	rr = get(t, h, "/api/games?limit=-3")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGameDetail(t *testing.T) {
	winner := "ann"
	f := &fakeLedger{detail: map[string]store.GameDetail{
		"g1": {GameSummary: store.GameSummary{ID: "g1", Winner: &winner}, DeckSeed: 9},
	}}
	h := Router(f)

	rr := get(t, h, "/api/games/g1")
	require.Equal(t, http.StatusOK, rr.Code)
	var d store.GameDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &d))
	assert.Equal(t, int64(9), d.DeckSeed)
	require.NotNil(t, d.Winner)
	assert.Equal(t, "ann", *d.Winner)

	rr = get(t, h, "/api/games/missing")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestLeaderboard(t *testing.T) {
	f := &fakeLedger{leaders: []store.LeaderRow{{Name: "ann", Kind: "random", Elo: 1520, Games: 3}}}
	rr := get(t, Router(f), "/api/leaderboard")
	require.Equal(t, http.StatusOK, rr.Code)
	var rows []store.LeaderRow
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rows))
	assert.Equal(t, f.leaders, rows)

	rr = get(t, Router(f), "/api/nope")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
