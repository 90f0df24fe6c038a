package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/studyquest/internal/apperr"
	"github.com/example/studyquest/internal/progress"
	"github.com/example/studyquest/internal/ratelimit"
	"github.com/example/studyquest/pkg/models"
)

type fakeService struct {
	lastProfile int64
	lastCard    int64
	lastOutcome models.Outcome
	lastSync    models.SyncRequest
	lastActor   progress.Actor
	lastRate    float64
	err         error
}

func (f *fakeService) RecordOutcome(_ context.Context, profileID, cardID int64, outcome models.Outcome) (models.OutcomeResult, error) {
	f.lastProfile, f.lastCard, f.lastOutcome = profileID, cardID, outcome
	if f.err != nil {
		return models.OutcomeResult{}, f.err
	}
	return models.OutcomeResult{Stats: models.ProfileStats{ProfileID: profileID, TotalCardsStudied: 1}}, nil
}

func (f *fakeService) GetDueCards(_ context.Context, profileID int64, theme string, limit int) (models.DueCards, error) {
	f.lastProfile = profileID
	return models.DueCards{DueCardIDs: []int64{3, 1}, UnseenCardIDs: []int64{}, TotalDue: limit}, f.err
}

func (f *fakeService) AwardAndSync(_ context.Context, profileID int64, req models.SyncRequest) (models.SyncResponse, error) {
	f.lastProfile, f.lastSync = profileID, req
	return models.SyncResponse{XP: models.XPSnapshot{TotalXP: int64(req.PendingXP), Level: 1, XPRequired: 100}}, f.err
}

func (f *fakeService) CompleteTest(_ context.Context, profileID int64, testID string, score int, d models.Difficulty) (models.TestCompletion, error) {
	f.lastProfile = profileID
	return models.TestCompletion{TokensAwarded: 5, Reason: "Earned 5 tokens for 100% score on hard test"}, f.err
}

func (f *fakeService) GetActiveQuests(_ context.Context, profileID int64) ([]models.QuestView, error) {
	f.lastProfile = profileID
	return []models.QuestView{{ID: 1, Title: "Review 10 cards", Type: models.QuestDaily, Target: 10}}, f.err
}

func (f *fakeService) GetTokenBalance(_ context.Context, profileID int64) (models.TokenBalance, error) {
	f.lastProfile = profileID
	return models.TokenBalance{Balance: 7, ConversionRate: 0.1}, f.err
}

func (f *fakeService) SetConversionRate(_ context.Context, actor progress.Actor, profileID int64, rate float64) (models.TokenBalance, error) {
	f.lastActor, f.lastProfile, f.lastRate = actor, profileID, rate
	return models.TokenBalance{ConversionRate: rate}, f.err
}

type harness struct {
	srv  *Server
	svc  *fakeService
	auth *Authenticator
}

func newHarness(t *testing.T, limiter *ratelimit.Store) *harness {
	t.Helper()
	svc := &fakeService{}
	auth := NewAuthenticator("test-secret")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &harness{srv: New(svc, auth, limiter, logger), svc: svc, auth: auth}
}

func (h *harness) do(t *testing.T, method, path, body string, profileID int64, role models.Role) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if profileID > 0 {
		token, err := h.auth.Issue(profileID, role, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRecordOutcomeRoute(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodPost, "/api/v1/profiles/4/cards/9/answers", `{"outcome":"correct"}`, 4, models.RoleStudent)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(4), h.svc.lastProfile)
	assert.Equal(t, int64(9), h.svc.lastCard)
	assert.Equal(t, models.OutcomeCorrect, h.svc.lastOutcome)

	var res models.OutcomeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Stats.TotalCardsStudied)
}

func TestAuthRequired(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodGet, "/api/v1/profiles/4/quests", "", 0, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profiles/4/quests", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfileAuthorization(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodGet, "/api/v1/profiles/5/tokens", "", 4, models.RoleStudent)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, string(apperr.CodePermissionDenied), decodeError(t, rec).Code)

	rec = h.do(t, http.MethodGet, "/api/v1/profiles/5/tokens", "", 1, models.RoleParent)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(5), h.svc.lastProfile)

	rec = h.do(t, http.MethodGet, "/api/v1/profiles/abc/tokens", "", 1, models.RoleAdmin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{apperr.InvalidArgument("bad outcome"), http.StatusBadRequest},
		{apperr.NotFound("card 9"), http.StatusNotFound},
		{apperr.PermissionDenied("nope"), http.StatusForbidden},
		{apperr.RateLimited("slow"), http.StatusTooManyRequests},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		h := newHarness(t, nil)
		h.svc.err = tt.err

		rec := h.do(t, http.MethodPost, "/api/v1/profiles/4/cards/9/answers", `{"outcome":"correct"}`, 4, models.RoleStudent)
		assert.Equal(t, tt.status, rec.Code, tt.err.Error())
	}
}

func TestInternalErrorHidesDetails(t *testing.T) {
	h := newHarness(t, nil)
	h.svc.err = io.ErrUnexpectedEOF

	rec := h.do(t, http.MethodGet, "/api/v1/profiles/4/quests", "", 4, models.RoleStudent)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "INTERNAL", body.Code)
	assert.NotContains(t, body.Message, "EOF")
}

func TestSyncRouteAndRateLimit(t *testing.T) {
	h := newHarness(t, ratelimit.New(0.001, 2, time.Minute))
	body := `{"pendingXp":40,"pendingCoins":2,"reason":"deck","batchKey":"6f1c7b1e-6a57-4bb5-9d1a-3f3f6b0c2f10"}`

	for i := 0; i < 2; i++ {
		rec := h.do(t, http.MethodPost, "/api/v1/profiles/4/sync", body, 4, models.RoleStudent)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 40, h.svc.lastSync.PendingXP)
	assert.Equal(t, "6f1c7b1e-6a57-4bb5-9d1a-3f3f6b0c2f10", h.svc.lastSync.BatchKey)

	rec := h.do(t, http.MethodPost, "/api/v1/profiles/4/sync", body, 4, models.RoleStudent)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// other profiles have their own bucket
	rec = h.do(t, http.MethodPost, "/api/v1/profiles/5/sync", body, 5, models.RoleStudent)
	assert.Equal(t, http.StatusOK, rec.Code)

	// reads are not limited
	rec = h.do(t, http.MethodGet, "/api/v1/profiles/4/quests", "", 4, models.RoleStudent)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCompleteTestRoute(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodPost, "/api/v1/profiles/4/tests/complete", `{"testId":"t1","score":100,"difficulty":"hard"}`, 4, models.RoleStudent)
	require.Equal(t, http.StatusOK, rec.Code)
	var res models.TestCompletion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 5, res.TokensAwarded)
	assert.Contains(t, res.Reason, "100% score")
}

func TestDueCardsQuery(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodGet, "/api/v1/profiles/4/cards/due?theme=math&limit=15", "", 4, models.RoleStudent)
	require.Equal(t, http.StatusOK, rec.Code)
	var res models.DueCards
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, []int64{3, 1}, res.DueCardIDs)
	assert.Equal(t, 15, res.TotalDue)

	rec = h.do(t, http.MethodGet, "/api/v1/profiles/4/cards/due?limit=many", "", 4, models.RoleStudent)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetRatePassesActor(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodPut, "/api/v1/profiles/4/tokens/rate", `{"rate":0.25}`, 2, models.RoleParent)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, progress.Actor{ProfileID: 2, Role: models.RoleParent}, h.svc.lastActor)
	assert.Equal(t, 0.25, h.svc.lastRate)

	rec = h.do(t, http.MethodPut, "/api/v1/profiles/4/tokens/rate", `{}`, 2, models.RoleParent)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
