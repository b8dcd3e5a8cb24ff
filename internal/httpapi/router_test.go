package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casino-bot/internal/model"
	"casino-bot/internal/pkg/lock"
	"casino-bot/internal/repository/sqlite"
	"casino-bot/internal/service"
)

type downStore struct{}

func (downStore) Ping(context.Context) error { return errors.New("down") }

func newLedger(t *testing.T) (*sqlite.Store, *service.LedgerService) {
	t.Helper()
	store, err := sqlite.Open(":memory:", model.DefaultBalance)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, service.NewLedgerService(store, lock.NewUserLock(), model.DefaultBalance)
}

func TestHealthz(t *testing.T) {
	store, ledger := newLedger(t)

	rec := httptest.NewRecorder()
	NewRouter(store, ledger, 10).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	NewRouter(downStore{}, ledger, 10).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLeaderboard(t *testing.T) {
	store, ledger := newLedger(t)
	ctx := context.Background()
	for id, delta := range map[int64]int64{1: 100, 2: 900, 3: -300} {
		_, err := ledger.ApplyDelta(ctx, id, delta, "test")
		require.NoError(t, err)
	}
	router := NewRouter(store, ledger, 2)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []entry{
		{Rank: 1, UserID: 2, Balance: 1900},
		{Rank: 2, UserID: 1, Balance: 1100},
	}, got)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboard?limit=10", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 3)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboard?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
