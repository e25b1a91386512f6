package classifier

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/features"
)

type stubModel struct {
	pred       int
	proba      []float64
	predErr    error
	probaErr   error
	lastInput  []float64
	probaCalls int
}

func (s *stubModel) Predict(x []float64) (int, error) {
	s.lastInput = x
	return s.pred, s.predErr
}

func (s *stubModel) PredictProba(x []float64) ([]float64, error) {
	s.probaCalls++
	return s.proba, s.probaErr
}

func TestClassify_DDoS(t *testing.T) {
	m := &stubModel{pred: 1, proba: []float64{0.12344, 0.87656}}
	res, err := New(m).Classify(features.FromMap(features.Record{features.FlowDuration: 100}))
	require.NoError(t, err)

	assert.Equal(t, DDoS, res.Label)
	assert.Equal(t, "DDoS", res.Label.String())
	assert.Equal(t, 0.8766, res.Confidence)
	assert.Len(t, m.lastInput, features.Count)
	assert.Equal(t, 100.0, m.lastInput[0])
}

func TestClassify_Benign(t *testing.T) {
	m := &stubModel{pred: 0, proba: []float64{0.99999, 0.00001}}
	res, err := New(m).Classify(features.Flow{})
	require.NoError(t, err)

	assert.Equal(t, Benign, res.Label)
	assert.Equal(t, "Benigno", res.Label.String())
	assert.Equal(t, 1.0, res.Confidence)
}

func TestClassify_UsesPredictedClassProbability(t *testing.T) {
	// the model may report a probability below 0.5 for its own choice
	m := &stubModel{pred: 1, proba: []float64{0.6, 0.4}}
	res, err := New(m).Classify(features.Flow{})
	require.NoError(t, err)
	assert.Equal(t, 0.4, res.Confidence)
}

func TestClassify_Errors(t *testing.T) {
	tests := []struct {
		name  string
		model *stubModel
		is    error
	}{
		{"predict fails", &stubModel{predErr: errors.New("boom")}, nil},
		{"proba fails", &stubModel{pred: 0, probaErr: errors.New("boom")}, nil},
		{"unknown class", &stubModel{pred: 2, proba: []float64{0.1, 0.2, 0.7}}, ErrInvalidPrediction},
		{"short proba", &stubModel{pred: 1, proba: []float64{1}}, ErrInvalidPrediction},
		{"nan proba", &stubModel{pred: 0, proba: []float64{math.NaN(), 0}}, ErrInvalidPrediction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.model).Classify(features.Flow{})
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestClassify_SkipsProbaWhenPredictFails(t *testing.T) {
	m := &stubModel{predErr: errors.New("boom")}
	_, err := New(m).Classify(features.Flow{})
	require.Error(t, err)
	assert.Zero(t, m.probaCalls)
}

func TestRoundConfidence(t *testing.T) {
	for _, p := range []float64{-0.5, 0, 0.00004, 0.33333333, 0.5, 0.99996, 1, 3} {
		r := RoundConfidence(p)
		assert.GreaterOrEqual(t, r, 0.0)
		assert.LessOrEqual(t, r, 1.0)
		// at most 4 decimal places
		assert.Equal(t, r, math.Round(r*1e4)/1e4, fmt.Sprint(p))
	}
	assert.Equal(t, 0.3333, RoundConfidence(0.33333333))
	assert.Equal(t, 1.0, RoundConfidence(0.99996))
}

func TestLabelWireNames(t *testing.T) {
	assert.True(t, ValidLabel("DDoS"))
	assert.True(t, ValidLabel("Benigno"))
	assert.False(t, ValidLabel("Benign"))
	assert.False(t, ValidLabel(""))

	assert.Equal(t, "DDoS", DDoS.String())
	assert.Equal(t, "Benigno", Benign.String())
}
