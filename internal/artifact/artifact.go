// Package artifact reads and writes the fitted vectorizer and classifier
// as JSON documents.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/LoneMenace/cinesense/internal/classifier"
	"github.com/LoneMenace/cinesense/internal/vectorizer"
)

// VectorizerFile is the on-disk form of a fitted TF-IDF vectorizer.
type VectorizerFile struct {
	Vocabulary   []string  `json:"vocabulary"`
	IDF          []float64 `json:"idf"`
	Lowercase    bool      `json:"lowercase"`
	StopWords    []string  `json:"stop_words"`
	TokenPattern string    `json:"token_pattern"`
	Norm         string    `json:"norm"`
	SublinearTF  bool      `json:"sublinear_tf"`
}

// ClassifierFile is the on-disk form of a fitted binary linear classifier.
// Coef is aligned with the vectorizer vocabulary.
type ClassifierFile struct {
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
	Classes   []string  `json:"classes"`
}

// LoadVectorizer reads a vectorizer artifact.
func LoadVectorizer(path string) (*vectorizer.TFIDF, error) {
	var f VectorizerFile
	if err := readJSON(path, &f); err != nil {
		return nil, err
	}

	vec, err := vectorizer.New(f.Vocabulary, f.IDF, vectorizer.Options{
		Lowercase:    f.Lowercase,
		StopWords:    f.StopWords,
		TokenPattern: f.TokenPattern,
		Norm:         f.Norm,
		SublinearTF:  f.SublinearTF,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid vectorizer artifact %s: %w", path, err)
	}
	return vec, nil
}

// LoadClassifier reads a classifier artifact.
func LoadClassifier(path string) (*ClassifierFile, error) {
	var f ClassifierFile
	if err := readJSON(path, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadModel reads both artifacts and binds them into a scoring model.
func LoadModel(vectorizerPath, classifierPath string) (*classifier.Linear, error) {
	vec, err := LoadVectorizer(vectorizerPath)
	if err != nil {
		return nil, err
	}
	clf, err := LoadClassifier(classifierPath)
	if err != nil {
		return nil, err
	}

	model, err := classifier.NewLinear(vec, clf.Coef, clf.Intercept)
	if err != nil {
		return nil, fmt.Errorf("invalid classifier artifact %s: %w", classifierPath, err)
	}
	return model, nil
}

// SaveVectorizer writes a vectorizer artifact.
func SaveVectorizer(path string, vec *vectorizer.TFIDF) error {
	opts := vec.Options()
	return writeJSON(path, VectorizerFile{
		Vocabulary:   vec.Vocabulary(),
		IDF:          vec.IDF(),
		Lowercase:    opts.Lowercase,
		StopWords:    opts.StopWords,
		TokenPattern: opts.TokenPattern,
		Norm:         opts.Norm,
		SublinearTF:  opts.SublinearTF,
	})
}

// SaveClassifier writes a classifier artifact.
func SaveClassifier(path string, weights []float64, bias float64) error {
	return writeJSON(path, ClassifierFile{
		Coef:      weights,
		Intercept: bias,
		Classes:   []string{string(classifier.Negative), string(classifier.Positive)},
	})
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode artifact %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}
