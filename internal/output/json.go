package output

import (
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/cymbal-labs/searchdemo/internal/ui"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatView renders a view as JSON.
func (f *JSONFormatter) FormatView(view ui.ResultView) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(view, "", "  ")
	} else {
		data, err = json.Marshal(view)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// YAMLFormatter renders results as YAML.
type YAMLFormatter struct{}

// FormatView renders a view as YAML.
func (f *YAMLFormatter) FormatView(view ui.ResultView) (string, error) {
	data, err := yaml.Marshal(view)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
