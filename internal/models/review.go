package models

import (
	"time"

	"github.com/LoneMenace/cinesense/internal/classifier"
)

// TimestampLayout is how created_at is stored in the reviews table.
const TimestampLayout = "2006-01-02 15:04:05"

// ReviewRecord is one persisted analysis result
type ReviewRecord struct {
	ID         int64     `json:"id" db:"id"`
	Text       string    `json:"text" db:"review_text"`
	Sentiment  string    `json:"sentiment" db:"sentiment"`
	Confidence float64   `json:"confidence" db:"confidence"`
	CreatedAt  time.Time `json:"created_at" db:"-"`
}

// AnalyzeRequest for one or more reviews, one per line
type AnalyzeRequest struct {
	Text string `json:"text" form:"text"`
}

// Analysis is the outcome of analyzing a multi-line submission
type Analysis struct {
	Results []classifier.Prediction `json:"results"`
	Global  GlobalExplanation       `json:"global"`
}

// GlobalExplanation lists the strongest indicator words of the model
type GlobalExplanation struct {
	Positive []classifier.FeatureWeight `json:"positive"`
	Negative []classifier.FeatureWeight `json:"negative"`
}

// Stats summarizes stored reviews
type Stats struct {
	Total             int            `json:"total"`
	BySentiment       map[string]int `json:"by_sentiment"`
	AverageConfidence float64        `json:"average_confidence"`
}
