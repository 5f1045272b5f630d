package handler

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/LoneMenace/cinesense/internal/classifier"
	"github.com/LoneMenace/cinesense/internal/middleware"
	"github.com/LoneMenace/cinesense/internal/models"
	"github.com/LoneMenace/cinesense/internal/repository"
	"github.com/LoneMenace/cinesense/internal/service"
	"github.com/LoneMenace/cinesense/internal/session"
	"github.com/LoneMenace/cinesense/internal/vectorizer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const twoReviews = "The performances were outstanding.\nThe story lost momentum halfway through."

type testServer struct {
	router *gin.Engine
	cookie *http.Cookie
}

func newTestModel(t *testing.T, vocab []string, weights []float64, bias float64) classifier.Model {
	t.Helper()
	idf := make([]float64, len(vocab))
	for i := range idf {
		idf[i] = 1
	}
	vec, err := vectorizer.New(vocab, idf, vectorizer.DefaultOptions())
	require.NoError(t, err)
	model, err := classifier.NewLinear(vec, weights, bias)
	require.NoError(t, err)
	return model
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	model := newTestModel(t,
		[]string{"awful", "boring", "brilliant", "halfway", "lost", "momentum", "outstanding", "performances", "story"},
		[]float64{-2.4, -1.7, 1.9, -0.2, -0.9, -0.6, 2.1, 0.3, 0.2},
		-0.3)
	return newTestServerWith(t, model, zap.NewNop())
}

func newTestServerWith(t *testing.T, model classifier.Model, logger *zap.Logger) *testServer {
	t.Helper()

	repo, err := repository.NewReviewRepository(filepath.Join(t.TempDir(), "reviews.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	tokens, err := session.NewTokens("test-secret", time.Hour)
	require.NoError(t, err)

	tmpl, err := LoadTemplates()
	require.NoError(t, err)

	r := gin.New()
	r.Use(middleware.Session(tokens, "sid", zap.NewNop()))
	r.SetHTMLTemplate(tmpl)

	analyzer := service.NewAnalyzer(model, repo, nil, 3, zap.NewNop())
	NewHandler(analyzer, session.NewHistory(50, time.Hour), 30, logger).RegisterRoutes(r)

	return &testServer{router: r}
}

// do sends a request and keeps the session cookie between calls.
func (s *testServer) do(t *testing.T, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == "sid" {
			s.cookie = c
		}
	}
	return rec
}

func (s *testServer) analyzeJSON(t *testing.T, text string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(models.AnalyzeRequest{Text: text})
	require.NoError(t, err)
	return s.do(t, http.MethodPost, "/api/v1/analyze", "application/json", string(body))
}

func TestAnalyzeAPI(t *testing.T) {
	s := newTestServer(t)

	rec := s.analyzeJSON(t, twoReviews)
	require.Equal(t, http.StatusOK, rec.Code)

	var analysis models.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
	require.Len(t, analysis.Results, 2)
	assert.Equal(t, classifier.Positive, analysis.Results[0].Label)
	assert.Equal(t, classifier.Negative, analysis.Results[1].Label)
	assert.Len(t, analysis.Global.Positive, 3)
	assert.Len(t, analysis.Global.Negative, 3)
}

func TestAnalyzeAPIRejectsEmptyInput(t *testing.T) {
	s := newTestServer(t)

	rec := s.analyzeJSON(t, " \n\t\n")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "at least one sentence")

	rec = s.do(t, http.MethodPost, "/api/v1/analyze", "application/json", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/reviews", "", "")
	assert.Contains(t, rec.Body.String(), `"total":0`)
}

func TestRecentReviewsNewestFirst(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.analyzeJSON(t, twoReviews).Code)

	rec := s.do(t, http.MethodGet, "/api/v1/reviews?limit=1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Reviews []models.ReviewRecord `json:"reviews"`
		Total   int                   `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Total)
	assert.Equal(t, "The story lost momentum halfway through.", body.Reviews[0].Text)
	assert.Equal(t, "Negative", body.Reviews[0].Sentiment)

	rec = s.do(t, http.MethodGet, "/api/v1/reviews?limit=abc", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteReviewIsIdempotent(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.analyzeJSON(t, "brilliant").Code)

	rec := s.do(t, http.MethodDelete, "/api/v1/reviews/1", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodDelete, "/api/v1/reviews/1", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodDelete, "/api/v1/reviews/999", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/v1/reviews/x", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/reviews", "", "")
	assert.Contains(t, rec.Body.String(), `"total":0`)
}

func TestStatsAPI(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.analyzeJSON(t, twoReviews+"\nbrilliant").Code)

	rec := s.do(t, http.MethodGet, "/api/v1/reviews/stats", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats models.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.BySentiment["Positive"])
	assert.Equal(t, 1, stats.BySentiment["Negative"])
}

func TestGlobalExplanationAPI(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/explain/global?n=2", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var global models.GlobalExplanation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &global))
	require.Len(t, global.Positive, 2)
	require.Len(t, global.Negative, 2)
	assert.Equal(t, "outstanding", global.Positive[0].Word)
	assert.Equal(t, "awful", global.Negative[0].Word)

	for _, bad := range []string{"0", "-1", "ten"} {
		rec = s.do(t, http.MethodGet, "/api/v1/explain/global?n="+bad, "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestSessionHistoryAPI(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.analyzeJSON(t, twoReviews).Code)

	rec := s.do(t, http.MethodGet, "/api/v1/session/history", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":2`)

	// A fresh client gets its own session.
	other := &testServer{router: s.router}
	rec = other.do(t, http.MethodGet, "/api/v1/session/history", "", "")
	assert.Contains(t, rec.Body.String(), `"total":0`)

	rec = s.do(t, http.MethodDelete, "/api/v1/session/history", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/v1/session/history", "", "")
	assert.Contains(t, rec.Body.String(), `"total":0`)
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.analyzeJSON(t, twoReviews).Code)

	rec := s.do(t, http.MethodGet, "/api/v1/export/csv", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "review_text", "sentiment", "confidence", "created_at"}, rows[0])
	assert.Equal(t, "2", rows[1][0])
	assert.Equal(t, "Negative", rows[1][2])
}

func TestExportJSON(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.analyzeJSON(t, twoReviews).Code)

	rec := s.do(t, http.MethodGet, "/api/v1/export/json", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var reviews []models.ReviewRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reviews))
	require.Len(t, reviews, 2)
	assert.Equal(t, "Positive", reviews[1].Sentiment)
}

func TestAnalyzeAPIExtremeScore(t *testing.T) {
	model := newTestModel(t, []string{"awful"}, []float64{-800}, 0)
	s := newTestServerWith(t, model, zap.NewNop())

	rec := s.analyzeJSON(t, "awful")
	require.Equal(t, http.StatusOK, rec.Code)

	var analysis models.Analysis
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &analysis))
	require.Len(t, analysis.Results, 1)
	assert.Equal(t, classifier.Negative, analysis.Results[0].Label)
	assert.Equal(t, 100.0, analysis.Results[0].Confidence)
	assert.False(t, math.IsInf(analysis.Results[0].ExpNegScore, 0))
}

// brokenWriter accepts headers but fails every body write.
type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestExportWriteFailuresAreLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	model := newTestModel(t, []string{"brilliant"}, []float64{1.9}, 0)
	s := newTestServerWith(t, model, zap.New(core))
	require.Equal(t, http.StatusOK, s.analyzeJSON(t, "brilliant").Code)

	for _, path := range []string{"/api/v1/export/csv", "/api/v1/export/json"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		s.router.ServeHTTP(brokenWriter{httptest.NewRecorder()}, req)
	}

	assert.Equal(t, 1, logs.FilterMessage("Failed to flush CSV export").Len())
	assert.Equal(t, 1, logs.FilterMessage("Failed to write JSON export").Len())
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestAnalyzePageRendersResults(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Analyze Sentiment")
	assert.NotContains(t, rec.Body.String(), "Numerical decision breakdown")

	form := url.Values{"text": {twoReviews}}.Encode()
	rec = s.do(t, http.MethodPost, "/analyze", "application/x-www-form-urlencoded", form)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Positive")
	assert.Contains(t, body, "Negative")
	assert.Contains(t, body, "Numerical decision breakdown")
	assert.Contains(t, body, "2.10 + 0.30")
	assert.Contains(t, body, "e<sup>-2.10</sup>")
	assert.Contains(t, body, "e<sup>1.80</sup>")
	assert.NotContains(t, body, "<sup>--")
	assert.Contains(t, body, "Strong Positive Indicators")
	assert.Contains(t, body, "Clear session history")
}

func TestAnalyzeFormWarnsOnEmptyInput(t *testing.T) {
	s := newTestServer(t)

	form := url.Values{"text": {"   \n  "}}.Encode()
	rec := s.do(t, http.MethodPost, "/analyze", "application/x-www-form-urlencoded", form)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please enter at least one sentence.")
}

func TestHistoryPageAndDeleteForm(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/history", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No reviews stored yet.")

	require.Equal(t, http.StatusOK, s.analyzeJSON(t, "brilliant").Code)
	rec = s.do(t, http.MethodGet, "/history", "", "")
	assert.Contains(t, rec.Body.String(), "brilliant")
	assert.Contains(t, rec.Body.String(), "/history/1/delete")

	rec = s.do(t, http.MethodPost, "/history/1/delete", "", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/history", rec.Header().Get("Location"))

	rec = s.do(t, http.MethodGet, "/history", "", "")
	assert.NotContains(t, rec.Body.String(), "/history/1/delete")
}

func TestClearSessionForm(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK, s.analyzeJSON(t, "brilliant").Code)

	rec := s.do(t, http.MethodPost, "/session/clear", "", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = s.do(t, http.MethodGet, "/", "", "")
	assert.Contains(t, rec.Body.String(), "Nothing analyzed in this session yet.")
}

func TestAboutPage(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/about", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "About CineSense")
}
