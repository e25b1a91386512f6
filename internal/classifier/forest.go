package classifier

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/features"
)

// leaf marks a node without children, as in scikit-learn's tree export.
const leaf = -1

// Tree is one decision tree in array form.
type Tree struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

// Forest is a random forest exported to JSON. Every class distribution in
// Value is indexed like Classes.
type Forest struct {
	Kind         string   `json:"kind"`
	FeatureNames []string `json:"feature_names,omitempty"`
	Classes      []int    `json:"classes"`
	Trees        []Tree   `json:"estimators"`
}

// LoadForest reads and validates a JSON forest artifact.
func LoadForest(path string) (*Forest, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}

	var f Forest
	if err := json.Unmarshal(buf, &f); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks the structure so that evaluation can index freely.
func (f *Forest) Validate() error {
	if f.Kind != "" && f.Kind != "random_forest" {
		return fmt.Errorf("%w: kind %q", ErrUnsupportedModel, f.Kind)
	}
	if len(f.Classes) != 2 || f.Classes[0] != int(Benign) || f.Classes[1] != int(DDoS) {
		return fmt.Errorf("model classes must be [0 1], got %v", f.Classes)
	}
	if len(f.FeatureNames) > 0 {
		if len(f.FeatureNames) != features.Count {
			return fmt.Errorf("model expects %d features, want %d", len(f.FeatureNames), features.Count)
		}
		for i, name := range f.FeatureNames {
			if !features.IsFeature(name) {
				return fmt.Errorf("model feature %d %q is not a flow feature", i, name)
			}
			if name != features.Columns[i] {
				return fmt.Errorf("model feature %d is %q, want %q", i, name, features.Columns[i])
			}
		}
	}
	if len(f.Trees) == 0 {
		return errors.New("model has no trees")
	}
	for i, t := range f.Trees {
		if err := t.validate(len(f.Classes)); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

func (t *Tree) validate(classes int) error {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return errors.New("empty tree")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return errors.New("node arrays differ in length")
	}
	for i := 0; i < n; i++ {
		l, r := t.ChildrenLeft[i], t.ChildrenRight[i]
		if l == leaf {
			if len(t.Value[i]) != classes {
				return fmt.Errorf("node %d has %d class weights, want %d", i, len(t.Value[i]), classes)
			}
			continue
		}
		if l <= i || l >= n || r <= i || r >= n {
			return fmt.Errorf("node %d has invalid children %d/%d", i, l, r)
		}
		if t.Feature[i] < 0 || t.Feature[i] >= features.Count {
			return fmt.Errorf("node %d splits on feature %d", i, t.Feature[i])
		}
	}
	return nil
}

// distribution walks the tree and returns the normalised class weights of
// the reached leaf. Children always have larger indexes than their parent,
// so the walk terminates.
func (t *Tree) distribution(x []float64) []float64 {
	node := 0
	for t.ChildrenLeft[node] != leaf {
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}

	weights := t.Value[node]
	out := make([]float64, len(weights))
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if sum == 0 {
		return out
	}
	for i, w := range weights {
		out[i] = w / sum
	}
	return out
}

// PredictProba averages the leaf distributions of all trees.
func (f *Forest) PredictProba(x []float64) ([]float64, error) {
	if len(x) != features.Count {
		return nil, fmt.Errorf("input has %d features, want %d", len(x), features.Count)
	}
	out := make([]float64, len(f.Classes))
	for i := range f.Trees {
		for c, p := range f.Trees[i].distribution(x) {
			out[c] += p
		}
	}
	for c := range out {
		out[c] /= float64(len(f.Trees))
	}
	return out, nil
}

// Predict returns the class with the highest averaged probability. Ties
// resolve to the lower class.
func (f *Forest) Predict(x []float64) (int, error) {
	proba, err := f.PredictProba(x)
	if err != nil {
		return 0, err
	}
	best := 0
	for c := 1; c < len(proba); c++ {
		if proba[c] > proba[best] {
			best = c
		}
	}
	return f.Classes[best], nil
}
