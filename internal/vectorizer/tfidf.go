package vectorizer

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// DefaultTokenPattern matches runs of two or more word characters.
const DefaultTokenPattern = `[\p{L}\p{M}\p{N}_]{2,}`

// NormL2 scales every encoded vector to unit euclidean length.
const NormL2 = "l2"

var (
	ErrEmptyCorpus       = errors.New("vectorizer: empty corpus")
	ErrEmptyVocabulary   = errors.New("vectorizer: empty vocabulary")
	ErrDuplicateTerm     = errors.New("vectorizer: duplicate vocabulary term")
	ErrDimensionMismatch = errors.New("vectorizer: idf length does not match vocabulary")
)

// Options controls tokenization and term weighting.
type Options struct {
	Lowercase    bool
	StopWords    []string
	TokenPattern string
	Norm         string
	SublinearTF  bool
	// MaxFeatures caps the vocabulary during Fit. Zero means no cap.
	MaxFeatures int
}

// DefaultOptions mirrors the settings the review model is trained with.
func DefaultOptions() Options {
	return Options{
		Lowercase:    true,
		StopWords:    EnglishStopWords,
		TokenPattern: DefaultTokenPattern,
		Norm:         NormL2,
		MaxFeatures:  10000,
	}
}

// SparseVector holds the non-zero entries of an encoded document,
// ordered by ascending index.
type SparseVector struct {
	Indices []int
	Values  []float64
}

// Len returns the number of non-zero entries.
func (v SparseVector) Len() int { return len(v.Indices) }

// Dot returns the inner product with a dense vector.
func (v SparseVector) Dot(dense []float64) float64 {
	var sum float64
	for k, i := range v.Indices {
		sum += v.Values[k] * dense[i]
	}
	return sum
}

// SquaredNorm returns the squared euclidean length.
func (v SparseVector) SquaredNorm() float64 {
	var sum float64
	for _, x := range v.Values {
		sum += x * x
	}
	return sum
}

// TFIDF is a fitted term-frequency / inverse-document-frequency encoder.
// It is immutable after construction and safe for concurrent use.
type TFIDF struct {
	vocabulary []string
	index      map[string]int
	idf        []float64
	opts       Options
	stopWords  map[string]struct{}
	pattern    *regexp.Regexp
}

// New rebuilds a fitted vectorizer from its vocabulary and idf weights.
func New(vocabulary []string, idf []float64, opts Options) (*TFIDF, error) {
	if len(vocabulary) == 0 {
		return nil, ErrEmptyVocabulary
	}
	if len(vocabulary) != len(idf) {
		return nil, fmt.Errorf("%w: %d terms, %d idf values", ErrDimensionMismatch, len(vocabulary), len(idf))
	}

	t, err := newAnalyzer(opts)
	if err != nil {
		return nil, err
	}

	t.vocabulary = append([]string(nil), vocabulary...)
	t.idf = append([]float64(nil), idf...)
	t.index = make(map[string]int, len(vocabulary))
	for i, term := range t.vocabulary {
		if _, dup := t.index[term]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTerm, term)
		}
		t.index[term] = i
	}

	return t, nil
}

func newAnalyzer(opts Options) (*TFIDF, error) {
	if opts.TokenPattern == "" {
		opts.TokenPattern = DefaultTokenPattern
	}
	pattern, err := regexp.Compile(opts.TokenPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid token pattern: %w", err)
	}

	stop := make(map[string]struct{}, len(opts.StopWords))
	for _, w := range opts.StopWords {
		stop[w] = struct{}{}
	}

	return &TFIDF{opts: opts, stopWords: stop, pattern: pattern}, nil
}

// Fit learns a vocabulary and idf weights from a corpus.
func Fit(docs []string, opts Options) (*TFIDF, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyCorpus
	}

	t, err := newAnalyzer(opts)
	if err != nil {
		return nil, err
	}

	termFreq := make(map[string]int)
	docFreq := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, tok := range t.Tokenize(doc) {
			termFreq[tok]++
			if _, ok := seen[tok]; !ok {
				seen[tok] = struct{}{}
				docFreq[tok]++
			}
		}
	}
	if len(termFreq) == 0 {
		return nil, ErrEmptyVocabulary
	}

	terms := make([]string, 0, len(termFreq))
	for term := range termFreq {
		terms = append(terms, term)
	}

	if opts.MaxFeatures > 0 && len(terms) > opts.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			fi, fj := termFreq[terms[i]], termFreq[terms[j]]
			if fi != fj {
				return fi > fj
			}
			return terms[i] < terms[j]
		})
		terms = terms[:opts.MaxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	idf := make([]float64, len(terms))
	for i, term := range terms {
		idf[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	return New(terms, idf, opts)
}

// Tokenize splits text into the terms the vectorizer counts, with
// stop words removed.
func (t *TFIDF) Tokenize(text string) []string {
	if t.opts.Lowercase {
		text = strings.ToLower(text)
	}
	raw := t.pattern.FindAllString(text, -1)
	tokens := raw[:0]
	for _, tok := range raw {
		if _, stop := t.stopWords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// Encode maps text onto the vocabulary. Unknown terms are ignored, so a
// text without recognized words yields an empty vector.
func (t *TFIDF) Encode(text string) SparseVector {
	counts := make(map[int]float64)
	for _, tok := range t.Tokenize(text) {
		if i, ok := t.index[tok]; ok {
			counts[i]++
		}
	}

	v := SparseVector{
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for i := range counts {
		v.Indices = append(v.Indices, i)
	}
	sort.Ints(v.Indices)

	for _, i := range v.Indices {
		tf := counts[i]
		if t.opts.SublinearTF {
			tf = 1 + math.Log(tf)
		}
		v.Values = append(v.Values, tf*t.idf[i])
	}

	if t.opts.Norm == NormL2 {
		if norm := math.Sqrt(v.SquaredNorm()); norm > 0 {
			for k := range v.Values {
				v.Values[k] /= norm
			}
		}
	}

	return v
}

// Vocabulary returns the terms in feature-index order.
func (t *TFIDF) Vocabulary() []string {
	return append([]string(nil), t.vocabulary...)
}

// IDF returns the inverse document frequency per feature index.
func (t *TFIDF) IDF() []float64 {
	return append([]float64(nil), t.idf...)
}

// Options returns the settings the vectorizer was built with.
func (t *TFIDF) Options() Options {
	opts := t.opts
	opts.StopWords = append([]string(nil), t.opts.StopWords...)
	return opts
}

// Size returns the vocabulary size.
func (t *TFIDF) Size() int { return len(t.vocabulary) }
