package training

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
)

// Example is one labeled review. Label is 1 for positive, 0 for negative.
type Example struct {
	Text  string
	Label int
}

// CorpusSpec names the columns of a labeled CSV corpus.
type CorpusSpec struct {
	TextColumn    string
	LabelColumn   string
	PositiveLabel string
}

// LoadCSV reads a labeled corpus with a header row.
func LoadCSV(path string, spec CorpusSpec) ([]Example, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}
	defer file.Close()

	return ReadCSV(file, spec)
}

// ReadCSV parses a labeled corpus. Rows with empty text are skipped.
func ReadCSV(r io.Reader, spec CorpusSpec) ([]Example, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus header: %w", err)
	}

	textCol, labelCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case spec.TextColumn:
			textCol = i
		case spec.LabelColumn:
			labelCol = i
		}
	}
	if textCol < 0 || labelCol < 0 {
		return nil, fmt.Errorf("corpus must have %q and %q columns", spec.TextColumn, spec.LabelColumn)
	}

	var examples []Example
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("corpus line %d: %w", line, err)
		}
		if textCol >= len(record) || labelCol >= len(record) {
			return nil, fmt.Errorf("corpus line %d: missing columns", line)
		}

		text := strings.TrimSpace(record[textCol])
		if text == "" {
			continue
		}
		label := 0
		if strings.EqualFold(strings.TrimSpace(record[labelCol]), spec.PositiveLabel) {
			label = 1
		}
		examples = append(examples, Example{Text: text, Label: label})
	}

	return examples, nil
}

// Split shuffles the examples with a fixed seed and holds out testSize
// of them for evaluation.
func Split(examples []Example, testSize float64, seed int64) (train, test []Example) {
	shuffled := append([]Example(nil), examples...)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	nTest := int(float64(len(shuffled)) * testSize)
	if testSize > 0 && nTest == 0 && len(shuffled) > 1 {
		nTest = 1
	}
	return shuffled[nTest:], shuffled[:nTest]
}
