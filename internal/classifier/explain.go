package classifier

import (
	"sort"

	"github.com/LoneMenace/cinesense/internal/vectorizer"
)

// DefaultTopN is the number of indicator words shown per class.
const DefaultTopN = 10

// FeatureWeight pairs a vocabulary word with its learned weight.
type FeatureWeight struct {
	Word   string  `json:"word"`
	Weight float64 `json:"weight"`
}

// TopFeatures returns the n highest-weighted words and the n
// lowest-weighted words. Equal weights keep vocabulary order. When the
// vocabulary is smaller than 2n it is split between the two lists so
// they never share a word.
func TopFeatures(m Model, n int) (positive, negative []FeatureWeight) {
	vocab := m.Vocabulary()
	weights := m.Weights()
	size := len(vocab)

	positive = []FeatureWeight{}
	negative = []FeatureWeight{}
	if n <= 0 || size == 0 {
		return positive, negative
	}

	nPos := min(n, (size+1)/2)
	if size >= 2*n {
		nPos = n
	}
	nNeg := min(n, size-nPos)

	desc := sortedIndices(size, func(a, b int) bool { return weights[a] > weights[b] })
	taken := make(map[int]struct{}, nPos)
	for _, i := range desc[:nPos] {
		taken[i] = struct{}{}
		positive = append(positive, FeatureWeight{Word: vocab[i], Weight: weights[i]})
	}

	asc := sortedIndices(size, func(a, b int) bool { return weights[a] < weights[b] })
	for _, i := range asc {
		if len(negative) == nNeg {
			break
		}
		if _, ok := taken[i]; ok {
			continue
		}
		negative = append(negative, FeatureWeight{Word: vocab[i], Weight: weights[i]})
	}

	return positive, negative
}

func sortedIndices(size int, less func(a, b int) bool) []int {
	idx := make([]int, size)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return less(idx[a], idx[b]) })
	return idx
}

// ActiveFeatures returns the learned weight of every non-zero entry of an
// encoded text, ordered by descending weight.
func ActiveFeatures(m Model, v vectorizer.SparseVector) []FeatureWeight {
	vocab := m.Vocabulary()
	weights := m.Weights()

	out := make([]FeatureWeight, 0, v.Len())
	for k, i := range v.Indices {
		if v.Values[k] == 0 {
			continue
		}
		out = append(out, FeatureWeight{Word: vocab[i], Weight: weights[i]})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Weight > out[b].Weight })
	return out
}
