package classifier

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrUnsupportedModel = errors.New("unsupported model artifact")

// LoadModel opens the artifact at path. The format is chosen by extension:
// ".onnx" runs through onnxruntime, ".json" is a random-forest export.
// Models holding native resources implement io.Closer.
func LoadModel(path string, opts ONNXOptions) (Model, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat model: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnsupportedModel, path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".onnx":
		m, err := NewONNXModel(path, opts)
		if err != nil {
			return nil, err
		}
		return m, nil
	case ".json":
		f, err := LoadForest(path)
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("%w: extension %q", ErrUnsupportedModel, ext)
	}
}
