package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LoneMenace/cinesense/internal/classifier"
	"github.com/LoneMenace/cinesense/internal/vectorizer"
)

func TestSaveAndLoadModel(t *testing.T) {
	dir := t.TempDir()
	vecPath := filepath.Join(dir, "models", "vectorizer.json")
	clfPath := filepath.Join(dir, "models", "classifier.json")

	vec, err := vectorizer.Fit([]string{"a gripping story", "a dull story", "gripping cast"}, vectorizer.DefaultOptions())
	require.NoError(t, err)
	weights := []float64{0.4, -1.2, 1.5, 0.1}
	require.Len(t, vec.Vocabulary(), len(weights))

	require.NoError(t, SaveVectorizer(vecPath, vec))
	require.NoError(t, SaveClassifier(clfPath, weights, -0.25))

	model, err := LoadModel(vecPath, clfPath)
	require.NoError(t, err)

	assert.Equal(t, vec.Vocabulary(), model.Vocabulary())
	assert.Equal(t, weights, model.Weights())
	assert.Equal(t, -0.25, model.Bias())
	assert.Equal(t, vec.Encode("gripping, dull story"), model.Encode("gripping, dull story"))
}

func TestLoadModelMissingFile(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "nope.json"), "also-missing.json")
	assert.Error(t, err)
}

func TestLoadModelDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	vecPath := filepath.Join(dir, "vectorizer.json")
	clfPath := filepath.Join(dir, "classifier.json")

	require.NoError(t, os.WriteFile(vecPath, []byte(`{"vocabulary":["good","bad"],"idf":[1,1],"lowercase":true,"norm":"l2"}`), 0o644))
	require.NoError(t, os.WriteFile(clfPath, []byte(`{"coef":[1.0],"intercept":0}`), 0o644))

	_, err := LoadModel(vecPath, clfPath)
	assert.ErrorIs(t, err, classifier.ErrDimensionMismatch)
}

func TestLoadVectorizerCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectorizer.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := LoadVectorizer(path)
	assert.Error(t, err)
}
