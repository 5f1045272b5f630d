package handler

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/LoneMenace/cinesense/internal/classifier"
	"github.com/LoneMenace/cinesense/internal/middleware"
	"github.com/LoneMenace/cinesense/internal/models"
	"github.com/LoneMenace/cinesense/internal/service"
	"github.com/LoneMenace/cinesense/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

const placeholder = "The performances were outstanding.\nThe story lost momentum halfway through."

type pageData struct {
	Tab         string
	Text        string
	Placeholder string
	Warning     string
	Error       string
	Analysis    *models.Analysis
	Reviews     []*models.ReviewRecord
	Session     []session.Entry
}

// LoadTemplates parses the embedded HTML pages.
func LoadTemplates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006, 15:04")
		},
		"weight": func(w float64) string { return fmt.Sprintf("%.2f", w) },
		"prob":   func(p float64) string { return fmt.Sprintf("%.6f", p) },
		"pct":    func(p float64) string { return fmt.Sprintf("%.2f", p) },
		"neg":    func(w float64) float64 { return -w },
		"expansion": func(features []classifier.FeatureWeight) template.HTML {
			if len(features) == 0 {
				return "0.00"
			}
			parts := make([]string, len(features))
			for i, f := range features {
				parts[i] = fmt.Sprintf("%.2f", f.Weight)
			}
			// Only formatted numbers go in, so the joined text is safe markup.
			return template.HTML(strings.Join(parts, " + "))
		},
		"words": func(words []string) string {
			if len(words) == 0 {
				return "None"
			}
			return strings.Join(words, ", ")
		},
		"positive": func(label string) bool { return label == string(classifier.Positive) },
	}).ParseFS(templateFS, "templates/*.html")
}

func (h *Handler) render(c *gin.Context, status int, name string, data pageData) {
	data.Placeholder = placeholder
	data.Session = h.history.List(middleware.SessionID(c))
	c.HTML(status, name, data)
}

// AnalyzePage shows the analysis form
func (h *Handler) AnalyzePage(c *gin.Context) {
	h.render(c, http.StatusOK, "analyze.html", pageData{Tab: "analyze"})
}

// AnalyzeForm analyzes the submitted form text
func (h *Handler) AnalyzeForm(c *gin.Context) {
	text := c.PostForm("text")
	data := pageData{Tab: "analyze", Text: text}

	analysis, err := h.analyze(c, text)
	switch {
	case errors.Is(err, service.ErrEmptyInput):
		data.Warning = "Please enter at least one sentence."
		h.render(c, http.StatusBadRequest, "analyze.html", data)
		return
	case err != nil:
		h.logger.Error("Failed to analyze", zap.Error(err))
		data.Error = "Analysis failed: " + err.Error()
		h.render(c, http.StatusInternalServerError, "analyze.html", data)
		return
	}

	data.Analysis = analysis
	h.render(c, http.StatusOK, "analyze.html", data)
}

// HistoryPage lists stored reviews
func (h *Handler) HistoryPage(c *gin.Context) {
	data := pageData{Tab: "history"}

	reviews, err := h.analyzer.Recent(c.Request.Context(), h.historyLimit)
	if err != nil {
		h.logger.Error("Failed to get reviews", zap.Error(err))
		data.Error = "Failed to load past reviews: " + err.Error()
		h.render(c, http.StatusInternalServerError, "history.html", data)
		return
	}

	data.Reviews = reviews
	h.render(c, http.StatusOK, "history.html", data)
}

// DeleteForm deletes a review and returns to the history page
func (h *Handler) DeleteForm(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.render(c, http.StatusBadRequest, "history.html", pageData{Tab: "history", Error: "Invalid review ID."})
		return
	}

	if err := h.analyzer.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("Failed to delete review", zap.Int64("id", id), zap.Error(err))
		h.render(c, http.StatusInternalServerError, "history.html", pageData{Tab: "history", Error: "Failed to delete review: " + err.Error()})
		return
	}

	c.Redirect(http.StatusSeeOther, "/history")
}

// ClearSessionForm clears this session's history
func (h *Handler) ClearSessionForm(c *gin.Context) {
	h.history.Clear(middleware.SessionID(c))
	c.Redirect(http.StatusSeeOther, "/")
}

// AboutPage shows static information
func (h *Handler) AboutPage(c *gin.Context) {
	h.render(c, http.StatusOK, "about.html", pageData{Tab: "about"})
}
