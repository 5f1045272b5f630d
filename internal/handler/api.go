package handler

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/LoneMenace/cinesense/internal/middleware"
	"github.com/LoneMenace/cinesense/internal/models"
	"github.com/LoneMenace/cinesense/internal/service"
	"github.com/LoneMenace/cinesense/internal/session"
)

// exportLimit caps how many stored reviews an export returns.
const exportLimit = 100000

// Handler handles HTTP requests
type Handler struct {
	analyzer     *service.Analyzer
	history      *session.History
	historyLimit int
	logger       *zap.Logger
}

// NewHandler creates a new handler
func NewHandler(analyzer *service.Analyzer, history *session.History, historyLimit int, logger *zap.Logger) *Handler {
	return &Handler{
		analyzer:     analyzer,
		history:      history,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

// RegisterRoutes registers the JSON API and the HTML pages
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.POST("/analyze", h.Analyze)

		api.GET("/reviews", h.GetRecentReviews)
		api.GET("/reviews/stats", h.GetStats)
		api.DELETE("/reviews/:id", h.DeleteReview)

		api.GET("/explain/global", h.GetGlobalExplanation)

		api.GET("/session/history", h.GetSessionHistory)
		api.DELETE("/session/history", h.ClearSessionHistory)

		api.GET("/export/csv", h.ExportCSV)
		api.GET("/export/json", h.ExportJSON)
	}

	r.GET("/", h.AnalyzePage)
	r.POST("/analyze", h.AnalyzeForm)
	r.GET("/history", h.HistoryPage)
	r.POST("/history/:id/delete", h.DeleteForm)
	r.POST("/session/clear", h.ClearSessionForm)
	r.GET("/about", h.AboutPage)

	r.GET("/health", h.HealthCheck)
}

// Analyze handles multi-line review analysis
func (h *Handler) Analyze(c *gin.Context) {
	var req models.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	analysis, err := h.analyze(c, req.Text)
	if err != nil {
		if errors.Is(err, service.ErrEmptyInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to analyze", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}

	c.JSON(http.StatusOK, analysis)
}

// analyze runs the analyzer and records the results in the session history.
func (h *Handler) analyze(c *gin.Context, text string) (*models.Analysis, error) {
	analysis, err := h.analyzer.Analyze(c.Request.Context(), text)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entries := make([]session.Entry, 0, len(analysis.Results))
	for _, res := range analysis.Results {
		entries = append(entries, session.Entry{
			Text:       res.Text,
			Sentiment:  string(res.Label),
			Confidence: res.Confidence,
			AnalyzedAt: now,
		})
	}
	h.history.Append(middleware.SessionID(c), entries...)

	return analysis, nil
}

// GetRecentReviews returns the newest stored reviews
func (h *Handler) GetRecentReviews(c *gin.Context) {
	limit := h.historyLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	reviews, err := h.analyzer.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to get reviews", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get reviews"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews": reviews,
		"total":   len(reviews),
	})
}

// DeleteReview removes a stored review; unknown ids succeed
func (h *Handler) DeleteReview(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid review ID"})
		return
	}

	if err := h.analyzer.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("Failed to delete review", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete review"})
		return
	}

	c.Status(http.StatusNoContent)
}

// GetStats returns review statistics
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.analyzer.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetGlobalExplanation returns the strongest indicator words
func (h *Handler) GetGlobalExplanation(c *gin.Context) {
	n := 0
	if raw := c.Query("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid n (must be a positive integer)"})
			return
		}
		n = parsed
	}

	c.JSON(http.StatusOK, h.analyzer.GlobalExplanation(n))
}

// GetSessionHistory returns what this session analyzed so far
func (h *Handler) GetSessionHistory(c *gin.Context) {
	entries := h.history.List(middleware.SessionID(c))
	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"total":   len(entries),
	})
}

// ClearSessionHistory forgets this session's entries
func (h *Handler) ClearSessionHistory(c *gin.Context) {
	h.history.Clear(middleware.SessionID(c))
	c.Status(http.StatusNoContent)
}

// ExportCSV exports stored reviews to CSV
func (h *Handler) ExportCSV(c *gin.Context) {
	reviews, err := h.analyzer.Recent(c.Request.Context(), exportLimit)
	if err != nil {
		h.logger.Error("Failed to export CSV", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=reviews.csv")

	writer := csv.NewWriter(c.Writer)
	if err := writer.Write([]string{"id", "review_text", "sentiment", "confidence", "created_at"}); err != nil {
		h.logger.Error("Failed to write CSV header", zap.Error(err))
		return
	}
	for _, r := range reviews {
		row := []string{
			strconv.FormatInt(r.ID, 10),
			r.Text,
			r.Sentiment,
			fmt.Sprintf("%.2f", r.Confidence),
			r.CreatedAt.Format(models.TimestampLayout),
		}
		if err := writer.Write(row); err != nil {
			h.logger.Error("Failed to write CSV row", zap.Int64("id", r.ID), zap.Error(err))
			return
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		h.logger.Error("Failed to flush CSV export", zap.Error(err))
	}
}

// ExportJSON exports stored reviews to JSON
func (h *Handler) ExportJSON(c *gin.Context) {
	reviews, err := h.analyzer.Recent(c.Request.Context(), exportLimit)
	if err != nil {
		h.logger.Error("Failed to export JSON", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", "attachment; filename=reviews.json")

	encoder := json.NewEncoder(c.Writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(reviews); err != nil {
		h.logger.Error("Failed to write JSON export", zap.Error(err))
	}
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "cinesense",
		"version": "1.0.0",
	})
}
