package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dgallion1/bondgen/internal/bond"
	"github.com/dgallion1/bondgen/internal/template"
	"gopkg.in/yaml.v3"
)

// Run is a CLI run file: the issue-level values that are not in the
// schedules.
type Run struct {
	template.Supplementary `yaml:",inline"`

	DatedDate string         `yaml:"dated_date"`
	Numbering bond.Numbering `yaml:"numbering"`
}

// LoadRun reads a YAML run file. Unknown keys are rejected.
func LoadRun(path string) (Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Run{}, fmt.Errorf("read run file: %w", err)
	}
	return ParseRun(data)
}

// ParseRun decodes a YAML run document. An empty document yields a zero
// Run.
func ParseRun(data []byte) (Run, error) {
	var r Run
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil && !errors.Is(err, io.EOF) {
		return Run{}, fmt.Errorf("parse run file: %w", err)
	}
	if err := r.Validate(); err != nil {
		return Run{}, err
	}
	return r, nil
}

// Validate checks the values that can be checked without the schedules.
func (r Run) Validate() error {
	if r.DatedDate != "" {
		if _, err := time.Parse(time.DateOnly, r.DatedDate); err != nil {
			return fmt.Errorf("dated_date %q is not a YYYY-MM-DD date", r.DatedDate)
		}
	}
	if r.Numbering.StartingNumber < 0 {
		return fmt.Errorf("numbering.starting_number must not be negative")
	}
	return nil
}
