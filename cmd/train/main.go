package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/LoneMenace/cinesense/internal/config"
	"github.com/LoneMenace/cinesense/internal/training"
	"github.com/LoneMenace/cinesense/internal/vectorizer"
)

func main() {
	configPath := flag.String("config", "configs/config.yml", "path to config file")
	corpus := flag.String("corpus", "", "labeled CSV corpus (overrides config)")
	output := flag.String("output", "", "artifact directory (overrides config)")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logrus.SetLevel(level)
	}

	tc := cfg.Training
	if *corpus != "" {
		tc.CorpusPath = *corpus
	}
	if *output != "" {
		tc.OutputDir = *output
	}

	vecOpts := vectorizer.DefaultOptions()
	vecOpts.MaxFeatures = tc.MaxFeatures

	pipeline := &training.Pipeline{
		Corpus: training.CorpusSpec{
			TextColumn:    tc.TextColumn,
			LabelColumn:   tc.LabelColumn,
			PositiveLabel: tc.PositiveLabel,
		},
		CorpusPath: tc.CorpusPath,
		Vectorizer: vecOpts,
		Logistic: training.LogisticConfig{
			C:         tc.C,
			MaxIter:   tc.MaxIter,
			Tolerance: tc.Tolerance,
			Workers:   tc.Workers,
		},
		TestSize:  tc.TestSize,
		Seed:      tc.Seed,
		OutputDir: tc.OutputDir,
		Log:       logrus.StandardLogger(),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logrus.WithField("corpus", tc.CorpusPath).Info("Training sentiment model...")
	report, err := pipeline.Run(ctx)
	if err != nil {
		logrus.Fatalf("Training failed: %v", err)
	}

	logrus.WithFields(logrus.Fields{
		"train_size":     report.TrainSize,
		"test_size":      report.TestSize,
		"vocabulary":     report.Vocabulary,
		"iterations":     report.Iterations,
		"converged":      report.Converged,
		"train_accuracy": report.TrainAccuracy,
		"test_accuracy":  report.TestAccuracy,
		"duration":       report.Duration,
	}).Info("Training complete")
	logrus.Infof("Artifacts written to %s and %s", report.VectorizerPath, report.ClassifierPath)
}
