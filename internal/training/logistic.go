package training

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/LoneMenace/cinesense/internal/classifier"
	"github.com/LoneMenace/cinesense/internal/vectorizer"
)

var ErrNoExamples = errors.New("training: no examples")

// LogisticConfig controls the regularized logistic regression fit.
type LogisticConfig struct {
	// C is the inverse regularization strength.
	C         float64
	MaxIter   int
	Tolerance float64
	Workers   int
}

// DefaultLogisticConfig returns C=1 with up to 1000 iterations.
func DefaultLogisticConfig() LogisticConfig {
	return LogisticConfig{C: 1, MaxIter: 1000, Tolerance: 1e-4, Workers: 4}
}

// FitResult holds the learned parameters.
type FitResult struct {
	Weights    []float64
	Bias       float64
	Iterations int
	Converged  bool
}

// FitLogistic minimizes ½‖w‖² + C·Σ logloss(y, σ(w·x + b)) with
// Nesterov-accelerated gradient descent. The intercept is not penalized.
func FitLogistic(ctx context.Context, X []vectorizer.SparseVector, y []int, dims int, cfg LogisticConfig) (*FitResult, error) {
	if len(X) == 0 {
		return nil, ErrNoExamples
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("training: %d samples, %d labels", len(X), len(y))
	}
	if cfg.C <= 0 {
		cfg.C = 1
	}
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = 1000
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	// Lipschitz bound of the gradient over (w, b): 1 + C/4 Σ(‖x‖² + 1).
	lipschitz := 1.0
	for _, x := range X {
		lipschitz += cfg.C * (x.SquaredNorm() + 1) / 4
	}
	step := 1 / lipschitz

	// params holds the weights followed by the bias.
	params := make([]float64, dims+1)
	prev := make([]float64, dims+1)
	look := make([]float64, dims+1)
	grad := make([]float64, dims+1)
	t := 1.0

	result := &FitResult{}
	for iter := 1; iter <= cfg.MaxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tNext := (1 + math.Sqrt(1+4*t*t)) / 2
		momentum := (t - 1) / tNext
		for i := range look {
			look[i] = params[i] + momentum*(params[i]-prev[i])
		}
		t = tNext

		if err := gradient(ctx, X, y, look, grad, cfg); err != nil {
			return nil, err
		}

		copy(prev, params)
		var gmax float64
		for i := range params {
			params[i] = look[i] - step*grad[i]
			gmax = math.Max(gmax, math.Abs(grad[i]))
		}

		result.Iterations = iter
		if gmax < cfg.Tolerance {
			result.Converged = true
			break
		}
	}

	result.Weights = params[:dims]
	result.Bias = params[dims]
	return result, nil
}

// gradient fills grad with the objective gradient at params, splitting
// the samples across workers.
func gradient(ctx context.Context, X []vectorizer.SparseVector, y []int, params, grad []float64, cfg LogisticConfig) error {
	dims := len(params) - 1
	workers := min(cfg.Workers, len(X))
	partials := make([][]float64, workers)
	chunk := (len(X) + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo, hi := w*chunk, min((w+1)*chunk, len(X))
		partial := make([]float64, dims+1)
		partials[w] = partial
		g.Go(func() error {
			for n := lo; n < hi; n++ {
				if n%4096 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				x := X[n]
				residual := classifier.Sigmoid(x.Dot(params[:dims])+params[dims]) - float64(y[n])
				for k, i := range x.Indices {
					partial[i] += residual * x.Values[k]
				}
				partial[dims] += residual
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range grad {
		var sum float64
		for _, p := range partials {
			sum += p[i]
		}
		grad[i] = cfg.C * sum
		if i < dims {
			grad[i] += params[i]
		}
	}
	return nil
}

// Accuracy returns the share of examples whose sign of w·x + b matches the label.
func Accuracy(X []vectorizer.SparseVector, y []int, weights []float64, bias float64) float64 {
	if len(X) == 0 {
		return 0
	}
	correct := 0
	for n, x := range X {
		pred := 0
		if x.Dot(weights)+bias >= 0 {
			pred = 1
		}
		if pred == y[n] {
			correct++
		}
	}
	return float64(correct) / float64(len(X))
}
