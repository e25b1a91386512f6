package classifier

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/features"
)

// Two trees: a stump on SYN Flag Count and a constant leaf.
const forestJSON = `{
  "kind": "random_forest",
  "classes": [0, 1],
  "estimators": [
    {
      "children_left":  [1, -1, -1],
      "children_right": [2, -1, -1],
      "feature":        [7, -2, -2],
      "threshold":      [0.5, -2, -2],
      "value":          [[11, 9], [9, 1], [2, 8]]
    },
    {
      "children_left":  [-1],
      "children_right": [-1],
      "feature":        [-2],
      "threshold":      [-2],
      "value":          [[5, 5]]
    }
  ]
}`

func writeModel(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadForest_Predict(t *testing.T) {
	f, err := LoadForest(writeModel(t, "forest.json", forestJSON))
	require.NoError(t, err)

	benign := features.FromMap(features.Record{features.SYNFlagCount: 0}).Vector()
	proba, err := f.PredictProba(benign)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, proba[0], 1e-9)
	assert.InDelta(t, 0.3, proba[1], 1e-9)

	pred, err := f.Predict(benign)
	require.NoError(t, err)
	assert.Equal(t, 0, pred)

	attack := features.FromMap(features.Record{features.SYNFlagCount: 1}).Vector()
	pred, err = f.Predict(attack)
	require.NoError(t, err)
	assert.Equal(t, 1, pred)

	res, err := New(f).Classify(features.FromMap(features.Record{features.SYNFlagCount: 1}))
	require.NoError(t, err)
	assert.Equal(t, DDoS, res.Label)
	assert.Equal(t, 0.65, res.Confidence)
}

func TestForest_RejectsWrongInputLength(t *testing.T) {
	f, err := LoadForest(writeModel(t, "forest.json", forestJSON))
	require.NoError(t, err)

	_, err = f.PredictProba([]float64{1, 2, 3})
	assert.Error(t, err)
}

func TestLoadForest_Invalid(t *testing.T) {
	tests := map[string]string{
		"not json":      `{`,
		"bad classes":   `{"classes":[0,1,2],"estimators":[{"children_left":[-1],"children_right":[-1],"feature":[-2],"threshold":[-2],"value":[[1,1,1]]}]}`,
		"no trees":      `{"classes":[0,1],"estimators":[]}`,
		"bad children":  `{"classes":[0,1],"estimators":[{"children_left":[0],"children_right":[0],"feature":[1],"threshold":[1],"value":[[1,1]]}]}`,
		"bad feature":   `{"classes":[0,1],"estimators":[{"children_left":[1,-1,-1],"children_right":[2,-1,-1],"feature":[40,-2,-2],"threshold":[1,-2,-2],"value":[[1,1],[1,0],[0,1]]}]}`,
		"ragged":        `{"classes":[0,1],"estimators":[{"children_left":[-1],"children_right":[],"feature":[-2],"threshold":[-2],"value":[[1,1]]}]}`,
		"wrong kind":    `{"kind":"svm","classes":[0,1],"estimators":[{"children_left":[-1],"children_right":[-1],"feature":[-2],"threshold":[-2],"value":[[1,1]]}]}`,
		"feature names": `{"feature_names":["Flow Duration"],"classes":[0,1],"estimators":[{"children_left":[-1],"children_right":[-1],"feature":[-2],"threshold":[-2],"value":[[1,1]]}]}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadForest(writeModel(t, "forest.json", body))
			assert.Error(t, err)
		})
	}
}

func TestLoadForest_FeatureNames(t *testing.T) {
	names := append([]string(nil), features.Columns[:]...)
	body := func(names []string) string {
		return `{"feature_names":["` + strings.Join(names, `","`) + `"],` + forestJSON[1:]
	}

	_, err := LoadForest(writeModel(t, "forest.json", body(names)))
	require.NoError(t, err)

	names[3] = features.LabelColumn
	_, err = LoadForest(writeModel(t, "forest.json", body(names)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a flow feature")

	names[3], names[4] = features.Columns[4], features.Columns[3]
	_, err = LoadForest(writeModel(t, "forest.json", body(names)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want")
}

func TestLoadModel_DispatchesOnExtension(t *testing.T) {
	m, err := LoadModel(writeModel(t, "model.JSON", forestJSON), ONNXOptions{})
	require.NoError(t, err)
	assert.IsType(t, &Forest{}, m)
	_, isCloser := m.(io.Closer)
	assert.False(t, isCloser)

	_, err = LoadModel(writeModel(t, "model.pkl", "binary"), ONNXOptions{})
	assert.ErrorIs(t, err, ErrUnsupportedModel)

	_, err = LoadModel(filepath.Join(t.TempDir(), "missing.json"), ONNXOptions{})
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadModel(t.TempDir(), ONNXOptions{})
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}
