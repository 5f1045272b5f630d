package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LoneMenace/cinesense/internal/classifier"
	"github.com/LoneMenace/cinesense/internal/metrics"
	"github.com/LoneMenace/cinesense/internal/models"
)

// ErrEmptyInput is returned when a submission has no non-blank line.
var ErrEmptyInput = errors.New("please enter at least one sentence")

// probabilityDriftWarn is the gap between the indicator-weight
// probability and the classifier's own probability worth a debug log.
const probabilityDriftWarn = 0.25

// ReviewStore persists analysis results
type ReviewStore interface {
	Insert(ctx context.Context, text, sentiment string, confidence float64) error
	FetchRecent(ctx context.Context, limit int) ([]*models.ReviewRecord, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

// Analyzer handles sentiment analysis business logic
type Analyzer struct {
	model   classifier.Model
	store   ReviewStore
	metrics *metrics.Collector
	topN    int
	logger  *zap.Logger
}

// NewAnalyzer creates a new analyzer service. topN <= 0 selects
// classifier.DefaultTopN.
func NewAnalyzer(
	model classifier.Model,
	store ReviewStore,
	collector *metrics.Collector,
	topN int,
	logger *zap.Logger,
) *Analyzer {
	if topN <= 0 {
		topN = classifier.DefaultTopN
	}
	return &Analyzer{
		model:   model,
		store:   store,
		metrics: collector,
		topN:    topN,
		logger:  logger,
	}
}

// SplitLines returns the trimmed non-blank lines of a submission.
func SplitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Analyze scores every line of text and stores each result
func (a *Analyzer) Analyze(ctx context.Context, text string) (*models.Analysis, error) {
	lines := SplitLines(text)
	if len(lines) == 0 {
		return nil, ErrEmptyInput
	}

	start := time.Now()
	results := make([]classifier.Prediction, 0, len(lines))
	for _, line := range lines {
		pred := classifier.Score(a.model, line)
		pred.Confidence = classifier.RoundConfidence(pred.Confidence)

		if err := a.store.Insert(ctx, line, string(pred.Label), pred.Confidence); err != nil {
			return nil, fmt.Errorf("failed to save review: %w", err)
		}

		if a.metrics != nil {
			a.metrics.ObservePrediction(string(pred.Label))
		}
		if drift := pred.PositiveProbability - pred.ModelProbability; drift > probabilityDriftWarn || drift < -probabilityDriftWarn {
			a.logger.Debug("Indicator probability differs from classifier probability",
				zap.Float64("indicator", pred.PositiveProbability),
				zap.Float64("classifier", pred.ModelProbability))
		}

		results = append(results, pred)
	}

	if a.metrics != nil {
		a.metrics.ObserveAnalysis(time.Since(start))
	}

	a.logger.Info("Reviews analyzed", zap.Int("lines", len(results)))

	return &models.Analysis{
		Results: results,
		Global:  a.GlobalExplanation(a.topN),
	}, nil
}

// GlobalExplanation returns the n strongest indicator words per class
func (a *Analyzer) GlobalExplanation(n int) models.GlobalExplanation {
	if n <= 0 {
		n = a.topN
	}
	pos, neg := classifier.TopFeatures(a.model, n)
	return models.GlobalExplanation{Positive: pos, Negative: neg}
}

// Recent returns the newest stored reviews
func (a *Analyzer) Recent(ctx context.Context, limit int) ([]*models.ReviewRecord, error) {
	return a.store.FetchRecent(ctx, limit)
}

// Delete removes a stored review
func (a *Analyzer) Delete(ctx context.Context, id int64) error {
	removed, err := a.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}
	if a.metrics != nil {
		a.metrics.ReviewsDeleted.Inc()
	}
	a.logger.Info("Review deleted", zap.Int64("id", id))
	return nil
}

// Stats returns statistics about stored reviews
func (a *Analyzer) Stats(ctx context.Context) (*models.Stats, error) {
	return a.store.Stats(ctx)
}
