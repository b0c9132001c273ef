package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Matrix is the ordered list of parameter sets of a run.
type Matrix []ParameterSet

// DefaultMatrix is the built-in delivery time matrix: enable with a label, then disable.
func DefaultMatrix() Matrix {
	return Matrix{
		Enabled{Label: "enable", Text: "8-9 days"},
		Disabled{Label: "disable"},
	}
}

type matrixFile struct {
	Scenarios []matrixEntry `yaml:"scenarios"`
}

type matrixEntry struct {
	Action  string `yaml:"action"`
	Enabled *bool  `yaml:"enabled"`
	Text    string `yaml:"text,omitempty"`
}

// LoadMatrix reads and parses a matrix YAML file.
func LoadMatrix(path string) (Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read matrix file: %w", err)
	}
	return ParseMatrix(data)
}

// ParseMatrix decodes a matrix document. Unknown fields are rejected.
func ParseMatrix(data []byte) (Matrix, error) {
	var f matrixFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("invalid matrix: document is empty")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	m, err := f.toMatrix()
	if err != nil {
		return nil, fmt.Errorf("invalid matrix: %w", err)
	}
	return m, nil
}

func (f *matrixFile) toMatrix() (Matrix, error) {
	if len(f.Scenarios) == 0 {
		return nil, fmt.Errorf("at least one scenario is required")
	}
	seen := make(map[string]int, len(f.Scenarios))
	m := make(Matrix, 0, len(f.Scenarios))
	for i, e := range f.Scenarios {
		if e.Action == "" {
			return nil, fmt.Errorf("scenarios[%d]: action is required", i)
		}
		if prev, dup := seen[e.Action]; dup {
			return nil, fmt.Errorf("scenarios[%d]: action %q already used by scenarios[%d]", i, e.Action, prev)
		}
		seen[e.Action] = i
		if e.Enabled == nil {
			return nil, fmt.Errorf("scenarios[%d] (%s): enabled is required", i, e.Action)
		}
		if *e.Enabled {
			if e.Text == "" {
				return nil, fmt.Errorf("scenarios[%d] (%s): text is required when enabled", i, e.Action)
			}
			m = append(m, Enabled{Label: e.Action, Text: e.Text})
			continue
		}
		if e.Text != "" {
			return nil, fmt.Errorf("scenarios[%d] (%s): text must be empty when disabled", i, e.Action)
		}
		m = append(m, Disabled{Label: e.Action})
	}
	return m, nil
}

// MarshalYAML renders the matrix in its file format.
func (m Matrix) MarshalYAML() (interface{}, error) {
	f := matrixFile{Scenarios: make([]matrixEntry, 0, len(m))}
	for _, set := range m {
		enabled := set.Enabled()
		f.Scenarios = append(f.Scenarios, matrixEntry{Action: set.Action(), Enabled: &enabled, Text: set.ExpectedText()})
	}
	return f, nil
}
