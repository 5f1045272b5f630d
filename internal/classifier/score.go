package classifier

import (
	"math"
)

// Label is the predicted sentiment class.
type Label string

const (
	Positive Label = "Positive"
	Negative Label = "Negative"
)

// Prediction is the scored result for one line of text, including the
// arithmetic that led to it.
type Prediction struct {
	Text  string `json:"text"`
	Label Label  `json:"sentiment"`
	// Confidence is the probability of Label, as a percentage.
	Confidence float64 `json:"confidence"`

	WordSum             float64 `json:"word_sum"`
	Bias                float64 `json:"bias"`
	Score               float64 `json:"score"`
	ExpNegScore         float64 `json:"exp_neg_score"`
	PositiveProbability float64 `json:"positive_probability"`
	NegativeProbability float64 `json:"negative_probability"`

	// ModelScore is the classifier's own decision value w·x + b, where x
	// carries the TF-IDF values rather than indicator weights.
	ModelScore       float64 `json:"model_score"`
	ModelProbability float64 `json:"model_probability"`

	Features      []FeatureWeight `json:"features"`
	PositiveWords []string        `json:"positive_words"`
	NegativeWords []string        `json:"negative_words"`
}

// Sigmoid is the logistic function 1 / (1 + e^-x), evaluated without
// overflow for large |x|.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// Score classifies one text. The decision score is the sum of the
// learned weights of every active feature plus the bias, so the
// explanation in Features always reproduces the label.
func Score(m Model, text string) Prediction {
	enc := m.Encode(text)
	features := ActiveFeatures(m, enc)

	var wordSum float64
	for _, f := range features {
		wordSum += f.Weight
	}
	bias := m.Bias()
	score := wordSum + bias

	p := Sigmoid(score)
	// Keep p >= 0.5 and score >= 0 in agreement where exp rounds to 1.
	if score < 0 && p >= 0.5 {
		p = math.Nextafter(0.5, 0)
	}

	pred := Prediction{
		Text:                text,
		WordSum:             wordSum,
		Bias:                bias,
		Score:               score,
		ExpNegScore:         math.Exp(math.Min(-score, maxExponent)),
		PositiveProbability: p,
		NegativeProbability: 1 - p,
		ModelScore:          enc.Dot(m.Weights()) + bias,
		Features:            features,
		PositiveWords:       []string{},
		NegativeWords:       []string{},
	}
	pred.ModelProbability = Sigmoid(pred.ModelScore)

	if score >= 0 {
		pred.Label = Positive
		pred.Confidence = p * 100
	} else {
		pred.Label = Negative
		pred.Confidence = (1 - p) * 100
	}

	for _, f := range features {
		switch {
		case f.Weight > 0:
			pred.PositiveWords = append(pred.PositiveWords, f.Word)
		case f.Weight < 0:
			pred.NegativeWords = append(pred.NegativeWords, f.Word)
		}
	}

	return pred
}

// maxExponent is the largest x for which math.Exp(x) is finite.
const maxExponent = 709

// RoundConfidence rounds a percentage to the two decimals kept in storage.
func RoundConfidence(pct float64) float64 {
	return math.Round(pct*100) / 100
}
