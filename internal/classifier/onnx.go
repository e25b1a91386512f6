package classifier

import (
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/marxtec/SOC-RandomForest-for-network-traffic-analysis/internal/features"
)

// ONNXOptions names the onnxruntime library and the graph's tensors. Empty
// tensor names fall back to the skl2onnx defaults with zipmap disabled.
type ONNXOptions struct {
	SharedLibraryPath string
	InputName         string
	LabelOutput       string
	ProbaOutput       string
}

func (o ONNXOptions) withDefaults() ONNXOptions {
	if o.InputName == "" {
		o.InputName = "float_input"
	}
	if o.LabelOutput == "" {
		o.LabelOutput = "label"
	}
	if o.ProbaOutput == "" {
		o.ProbaOutput = "probabilities"
	}
	return o
}

var ortInit sync.Once
var ortInitErr error

func initRuntime(libPath string) error {
	ortInit.Do(func() {
		if ort.IsInitialized() {
			return
		}
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// ONNXModel runs an exported classifier through onnxruntime. The input and
// output tensors are allocated once and reused, so calls are serialised.
type ONNXModel struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	label   *ort.Tensor[int64]
	proba   *ort.Tensor[float32]
}

// NewONNXModel loads the graph at path.
func NewONNXModel(path string, opts ONNXOptions) (*ONNXModel, error) {
	opts = opts.withDefaults()
	if err := initRuntime(opts.SharedLibraryPath); err != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", err)
	}

	m := &ONNXModel{}
	var err error
	if m.input, err = ort.NewEmptyTensor[float32](ort.NewShape(1, features.Count)); err != nil {
		return nil, fmt.Errorf("allocate input tensor: %w", err)
	}
	if m.label, err = ort.NewEmptyTensor[int64](ort.NewShape(1)); err != nil {
		m.Close()
		return nil, fmt.Errorf("allocate label tensor: %w", err)
	}
	if m.proba, err = ort.NewEmptyTensor[float32](ort.NewShape(1, 2)); err != nil {
		m.Close()
		return nil, fmt.Errorf("allocate probability tensor: %w", err)
	}

	m.session, err = ort.NewAdvancedSession(path,
		[]string{opts.InputName},
		[]string{opts.LabelOutput, opts.ProbaOutput},
		[]ort.Value{m.input},
		[]ort.Value{m.label, m.proba},
		nil,
	)
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}
	return m, nil
}

func (m *ONNXModel) run(x []float64) (int64, []float64, error) {
	if len(x) != features.Count {
		return 0, nil, fmt.Errorf("input has %d features, want %d", len(x), features.Count)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return 0, nil, errors.New("onnx model is closed")
	}
	in := m.input.GetData()
	for i, v := range x {
		in[i] = float32(v)
	}
	if err := m.session.Run(); err != nil {
		return 0, nil, fmt.Errorf("run onnx session: %w", err)
	}

	raw := m.proba.GetData()
	proba := make([]float64, len(raw))
	for i, p := range raw {
		proba[i] = float64(p)
	}
	return m.label.GetData()[0], proba, nil
}

func (m *ONNXModel) Predict(x []float64) (int, error) {
	label, _, err := m.run(x)
	return int(label), err
}

func (m *ONNXModel) PredictProba(x []float64) ([]float64, error) {
	_, proba, err := m.run(x)
	return proba, err
}

// Close releases the session and its tensors.
func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if m.session != nil {
		errs = append(errs, m.session.Destroy())
		m.session = nil
	}
	if m.input != nil {
		errs = append(errs, m.input.Destroy())
		m.input = nil
	}
	if m.label != nil {
		errs = append(errs, m.label.Destroy())
		m.label = nil
	}
	if m.proba != nil {
		errs = append(errs, m.proba.Destroy())
		m.proba = nil
	}
	return errors.Join(errs...)
}
