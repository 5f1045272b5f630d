package training

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/LoneMenace/cinesense/internal/artifact"
	"github.com/LoneMenace/cinesense/internal/vectorizer"
)

// Pipeline fits the vectorizer and classifier on a labeled corpus and
// writes both artifacts.
type Pipeline struct {
	Corpus     CorpusSpec
	CorpusPath string
	Vectorizer vectorizer.Options
	Logistic   LogisticConfig
	TestSize   float64
	Seed       int64
	OutputDir  string
	Log        logrus.FieldLogger
}

// Report summarizes one pipeline run.
type Report struct {
	TrainSize      int
	TestSize       int
	Vocabulary     int
	Iterations     int
	Converged      bool
	TrainAccuracy  float64
	TestAccuracy   float64
	VectorizerPath string
	ClassifierPath string
	Duration       time.Duration
}

// Run loads the corpus from CorpusPath and trains on it.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	examples, err := LoadCSV(p.CorpusPath, p.Corpus)
	if err != nil {
		return nil, err
	}
	p.logger().WithField("examples", len(examples)).Info("Corpus loaded")
	return p.Train(ctx, examples)
}

// Train runs the pipeline over in-memory examples.
func (p *Pipeline) Train(ctx context.Context, examples []Example) (*Report, error) {
	start := time.Now()
	log := p.logger()

	if len(examples) == 0 {
		return nil, ErrNoExamples
	}

	train, test := Split(examples, p.TestSize, p.Seed)
	log.WithFields(logrus.Fields{"train": len(train), "test": len(test)}).Info("Split corpus")

	trainDocs := make([]string, len(train))
	for i, ex := range train {
		trainDocs[i] = ex.Text
	}
	vec, err := vectorizer.Fit(trainDocs, p.Vectorizer)
	if err != nil {
		return nil, fmt.Errorf("failed to fit vectorizer: %w", err)
	}
	log.WithField("vocabulary", vec.Size()).Info("Vectorizer fitted")

	Xtrain, ytrain := encode(vec, train)
	fit, err := FitLogistic(ctx, Xtrain, ytrain, vec.Size(), p.Logistic)
	if err != nil {
		return nil, fmt.Errorf("failed to fit classifier: %w", err)
	}
	if !fit.Converged {
		log.WithField("iterations", fit.Iterations).Warn("Classifier did not converge, increase max_iter")
	}

	report := &Report{
		TrainSize:      len(train),
		TestSize:       len(test),
		Vocabulary:     vec.Size(),
		Iterations:     fit.Iterations,
		Converged:      fit.Converged,
		TrainAccuracy:  Accuracy(Xtrain, ytrain, fit.Weights, fit.Bias),
		VectorizerPath: filepath.Join(p.OutputDir, "vectorizer.json"),
		ClassifierPath: filepath.Join(p.OutputDir, "classifier.json"),
	}
	if len(test) > 0 {
		Xtest, ytest := encode(vec, test)
		report.TestAccuracy = Accuracy(Xtest, ytest, fit.Weights, fit.Bias)
	}

	if err := artifact.SaveVectorizer(report.VectorizerPath, vec); err != nil {
		return nil, err
	}
	if err := artifact.SaveClassifier(report.ClassifierPath, fit.Weights, fit.Bias); err != nil {
		return nil, err
	}
	report.Duration = time.Since(start)

	log.WithFields(logrus.Fields{
		"train_accuracy": report.TrainAccuracy,
		"test_accuracy":  report.TestAccuracy,
		"iterations":     report.Iterations,
		"duration":       report.Duration.String(),
	}).Info("Model trained and saved")

	return report, nil
}

func (p *Pipeline) logger() logrus.FieldLogger {
	if p.Log == nil {
		return logrus.StandardLogger()
	}
	return p.Log
}

func encode(vec *vectorizer.TFIDF, examples []Example) ([]vectorizer.SparseVector, []int) {
	X := make([]vectorizer.SparseVector, len(examples))
	y := make([]int, len(examples))
	for i, ex := range examples {
		X[i] = vec.Encode(ex.Text)
		y[i] = ex.Label
	}
	return X, y
}
