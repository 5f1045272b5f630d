package classifier

import (
	"errors"
	"fmt"

	"github.com/LoneMenace/cinesense/internal/vectorizer"
)

// ErrDimensionMismatch is returned when the weight vector is not aligned
// with the vectorizer vocabulary.
var ErrDimensionMismatch = errors.New("classifier: weight vector length does not match vocabulary size")

// Model is the narrow view of a fitted vectorizer and linear classifier
// that scoring and explanation depend on.
type Model interface {
	Encode(text string) vectorizer.SparseVector
	Vocabulary() []string
	Weights() []float64
	Bias() float64
}

// Linear is a binary linear classifier over a TF-IDF encoding.
type Linear struct {
	vec        *vectorizer.TFIDF
	vocabulary []string
	weights    []float64
	bias       float64
}

// NewLinear binds a weight vector and bias to a fitted vectorizer.
func NewLinear(vec *vectorizer.TFIDF, weights []float64, bias float64) (*Linear, error) {
	if vec.Size() != len(weights) {
		return nil, fmt.Errorf("%w: %d weights, %d terms", ErrDimensionMismatch, len(weights), vec.Size())
	}
	return &Linear{
		vec:        vec,
		vocabulary: vec.Vocabulary(),
		weights:    append([]float64(nil), weights...),
		bias:       bias,
	}, nil
}

func (m *Linear) Encode(text string) vectorizer.SparseVector { return m.vec.Encode(text) }

// Vocabulary returns the shared vocabulary slice; callers must not modify it.
func (m *Linear) Vocabulary() []string { return m.vocabulary }

// Weights returns the shared weight slice; callers must not modify it.
func (m *Linear) Weights() []float64 { return m.weights }

func (m *Linear) Bias() float64 { return m.bias }

// Vectorizer exposes the underlying encoder, used when writing artifacts.
func (m *Linear) Vectorizer() *vectorizer.TFIDF { return m.vec }
