package api

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Format is a CLI output encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// current is set once by the root command's --output flag before any
// subcommand runs.
var current = FormatYAML

// SetOutputFormat selects the process-wide output format. Unrecognized
// values fall back to YAML.
func SetOutputFormat(s string) {
	if f := Format(s); f == FormatJSON || f == FormatYAML {
		current = f
	} else {
		current = FormatYAML
	}
}

// Encode writes v to w in this format.
func (f Format) Encode(w io.Writer, v any) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", string(f))
	}
}

// Output writes v to stdout in the selected format. Every CLI command
// funnels its result through here so --output behaves uniformly.
func Output(v any) error {
	return current.Encode(os.Stdout, v)
}
