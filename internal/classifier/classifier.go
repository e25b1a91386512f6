package classifier

import (
	"errors"
	"fmt"
	"math"

	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/features"
)

// Label is the traffic class predicted by the model.
type Label int

const (
	Benign Label = 0
	DDoS   Label = 1
)

// Wire names of the two labels, as written to the traffic log.
const (
	LabelBenign = "Benigno"
	LabelDDoS   = "DDoS"
)

func (l Label) String() string {
	if l == DDoS {
		return LabelDDoS
	}
	return LabelBenign
}

// ValidLabel reports whether s is one of the two wire names.
func ValidLabel(s string) bool {
	return s == LabelBenign || s == LabelDDoS
}

var ErrInvalidPrediction = errors.New("invalid prediction")

// Result is the outcome of classifying a single flow.
type Result struct {
	Label      Label   `json:"resultado"`
	Confidence float64 `json:"probabilidad"`
}

// Model is the binary classifier contract: a class index and the per-class
// probability estimate for one input vector.
type Model interface {
	Predict(x []float64) (int, error)
	PredictProba(x []float64) ([]float64, error)
}

// Classifier turns flows into Results using a loaded Model.
type Classifier struct {
	model Model
}

// New wraps an already loaded model.
func New(model Model) *Classifier {
	return &Classifier{model: model}
}

// Classify runs the model's label prediction and then reads the probability
// of the predicted class.
func (c *Classifier) Classify(f features.Flow) (Result, error) {
	x := f.Vector()

	pred, err := c.model.Predict(x)
	if err != nil {
		return Result{}, fmt.Errorf("predict: %w", err)
	}
	if pred != int(Benign) && pred != int(DDoS) {
		return Result{}, fmt.Errorf("%w: class %d", ErrInvalidPrediction, pred)
	}

	proba, err := c.model.PredictProba(x)
	if err != nil {
		return Result{}, fmt.Errorf("predict proba: %w", err)
	}
	if pred >= len(proba) {
		return Result{}, fmt.Errorf("%w: class %d outside %d probabilities", ErrInvalidPrediction, pred, len(proba))
	}
	p := proba[pred]
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return Result{}, fmt.Errorf("%w: probability %v", ErrInvalidPrediction, p)
	}

	return Result{Label: Label(pred), Confidence: RoundConfidence(p)}, nil
}

// RoundConfidence clamps p to [0, 1] and rounds it to 4 decimal places.
func RoundConfidence(p float64) float64 {
	switch {
	case p <= 0:
		return 0
	case p >= 1:
		return 1
	}
	return math.Round(p*1e4) / 1e4
}
