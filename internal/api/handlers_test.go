package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/sentiscope/internal/analysis"
	"github.com/spacesedan/sentiscope/internal/db"
	"github.com/spacesedan/sentiscope/internal/sentiment"
)

type mockService struct {
	profile     sentiment.SentimentProfile
	posts       []sentiment.Post
	recent      []sentiment.SentimentProfile
	personality string

	analyzeErr     error
	fetchErr       error
	recentErr      error
	personalityErr error

	lastHandle string
	lastLimit  int
}

func (m *mockService) Analyze(_ context.Context, handle string, limit int) (sentiment.SentimentProfile, error) {
	m.lastHandle, m.lastLimit = handle, limit
	return m.profile, m.analyzeErr
}

func (m *mockService) FetchPosts(_ context.Context, handle string, limit int) ([]sentiment.Post, error) {
	m.lastHandle, m.lastLimit = handle, limit
	return m.posts, m.fetchErr
}

func (m *mockService) RecentProfiles(_ context.Context) ([]sentiment.SentimentProfile, error) {
	return m.recent, m.recentErr
}

func (m *mockService) Personality(_ context.Context, handle string) (string, error) {
	m.lastHandle = handle
	return m.personality, m.personalityErr
}

func setupRouter(svc AnalysisService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(NewHandler(svc), "")
}

func doRequest(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestAnalyzeUserReturnsProfile(t *testing.T) {
	svc := &mockService{
		profile: sentiment.SentimentProfile{
			Handle:           "someone.bsky.social",
			TotalAnalyzed:    10,
			Counts:           map[string]int{"positive": 10},
			NarrativeSummary: "Analizados 10 posts. Sentimiento general: muy positivo. Confianza promedio: 90.0%.",
		},
	}
	r := setupRouter(svc)

	w := doRequest(r, "/api/analyze/bluesky/user/someone.bsky.social?limit=10")
	require.Equal(t, http.StatusOK, w.Code)

	var profile sentiment.SentimentProfile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, "someone.bsky.social", profile.Handle)
	assert.Equal(t, 10, profile.TotalAnalyzed)
	assert.Equal(t, 10, svc.lastLimit)
}

func TestAnalyzeUserDefaultsLimit(t *testing.T) {
	svc := &mockService{}
	r := setupRouter(svc)

	w := doRequest(r, "/api/analyze/bluesky/user/someone.bsky.social")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, analysis.DefaultPostLimit, svc.lastLimit)
}

func TestAnalyzeUserClampsLimit(t *testing.T) {
	svc := &mockService{}
	r := setupRouter(svc)

	doRequest(r, "/api/analyze/bluesky/user/x?limit=9999")
	assert.Equal(t, analysis.MaxPostLimit, svc.lastLimit)

	doRequest(r, "/api/analyze/bluesky/user/x?limit=0")
	assert.Equal(t, 1, svc.lastLimit)
}

func TestAnalyzeUserRejectsBadLimit(t *testing.T) {
	r := setupRouter(&mockService{})

	w := doRequest(r, "/api/analyze/bluesky/user/x?limit=lots")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyzeUserNoPosts(t *testing.T) {
	r := setupRouter(&mockService{analyzeErr: analysis.ErrNoPosts})

	w := doRequest(r, "/api/analyze/bluesky/user/nobody.bsky.social")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnalyzeUserInvalidHandle(t *testing.T) {
	r := setupRouter(&mockService{analyzeErr: sentiment.ErrInvalidHandle})

	w := doRequest(r, "/api/analyze/bluesky/user/%20")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyzeUserInternalError(t *testing.T) {
	r := setupRouter(&mockService{analyzeErr: assert.AnError})

	w := doRequest(r, "/api/analyze/bluesky/user/someone")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetUserPosts(t *testing.T) {
	svc := &mockService{posts: []sentiment.Post{{ID: "1", Text: "hello"}}}
	r := setupRouter(svc)

	w := doRequest(r, "/api/bluesky/user/someone.bsky.social?limit=5")
	require.Equal(t, http.StatusOK, w.Code)

	var posts []sentiment.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "hello", posts[0].Text)
}

func TestGetUserPostsEmptyIs404(t *testing.T) {
	r := setupRouter(&mockService{})

	w := doRequest(r, "/api/bluesky/user/nobody.bsky.social")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRecentUsers(t *testing.T) {
	svc := &mockService{recent: []sentiment.SentimentProfile{
		{Handle: "a"}, {Handle: "b"},
	}}
	r := setupRouter(svc)

	w := doRequest(r, "/api/users")
	require.Equal(t, http.StatusOK, w.Code)

	var profiles []sentiment.SentimentProfile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profiles))
	assert.Len(t, profiles, 2)
}

func TestGetRecentUsersEmptyListIsNotNull(t *testing.T) {
	r := setupRouter(&mockService{})

	w := doRequest(r, "/api/users")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestGetPersonalityAvailable(t *testing.T) {
	r := setupRouter(&mockService{personality: "thoughtful"})

	w := doRequest(r, "/api/personality/someone.bsky.social")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["is_available"])
	assert.Equal(t, "thoughtful", body["personality_analysis"])
}

func TestGetPersonalityPending(t *testing.T) {
	r := setupRouter(&mockService{})

	w := doRequest(r, "/api/personality/someone.bsky.social")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["is_available"])
	assert.Nil(t, body["personality_analysis"])
}

func TestGetPersonalityUnknownHandle(t *testing.T) {
	r := setupRouter(&mockService{personalityErr: db.ErrProfileNotFound})

	w := doRequest(r, "/api/personality/nobody.bsky.social")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthz(t *testing.T) {
	r := setupRouter(&mockService{})

	w := doRequest(r, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
}
