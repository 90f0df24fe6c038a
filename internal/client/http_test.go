package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/studyquest/pkg/models"
)

func TestHTTPSyncer(t *testing.T) {
	var got models.SyncRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/profiles/7/sync", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.SyncResponse{
			XP:    models.XPSnapshot{TotalXP: 120, Level: 2, XPProgress: 20, XPRequired: 150},
			Coins: 5,
		})
	}))
	defer srv.Close()

	syncer := NewHTTPSyncer(srv.URL+"/", 7, "secret-token")
	resp, err := syncer.Sync(context.Background(), models.SyncRequest{PendingXP: 60, PendingCoins: 5, Reason: "test", BatchKey: "k"})
	require.NoError(t, err)

	assert.Equal(t, models.SyncRequest{PendingXP: 60, PendingCoins: 5, Reason: "test", BatchKey: "k"}, got)
	assert.Equal(t, 2, resp.XP.Level)
	assert.Equal(t, int64(5), resp.Coins)
}

func TestHTTPSyncerStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"code":"RATE_LIMITED","message":"too many requests"}`))
	}))
	defer srv.Close()

	_, err := NewHTTPSyncer(srv.URL, 7, "t").Sync(context.Background(), models.SyncRequest{PendingXP: 1})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.Status)
	assert.Equal(t, "RATE_LIMITED", statusErr.Code)
	assert.True(t, statusErr.Retryable())
}

func TestStatusErrorRetryable(t *testing.T) {
	for status, want := range map[int]bool{
		http.StatusBadRequest:          false,
		http.StatusUnauthorized:        false,
		http.StatusForbidden:           false,
		http.StatusNotFound:            false,
		http.StatusRequestTimeout:      true,
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusServiceUnavailable:  true,
	} {
		assert.Equal(t, want, (&StatusError{Status: status}).Retryable(), "status %d", status)
	}
}

func TestPredictorOverHTTPKeepsBatchOnServerError(t *testing.T) {
	var keys []string
	fail := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.SyncRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		keys = append(keys, req.BatchKey)
		if fail {
			fail = false
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(models.SyncResponse{
			XP: models.XPSnapshot{TotalXP: int64(req.PendingXP), Level: 1, XPProgress: int64(req.PendingXP), XPRequired: 100},
		})
	}))
	defer srv.Close()

	p, _ := newPredictor(NewHTTPSyncer(srv.URL, 1, "t"))
	p.RecordAnswer(models.OutcomeCorrect)

	_, err := p.Flush(context.Background())
	require.Error(t, err)
	_, err = p.Flush(context.Background())
	require.NoError(t, err)

	require.Len(t, keys, 2)
	assert.Equal(t, keys[0], keys[1])
	assert.Equal(t, int64(10), p.Canonical().XP.TotalXP)
}
