// Package config loads experiment definitions from JSON or YAML files and
// resolves them into sweep requests.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/packwave/internal/sim"
	"github.com/banshee-data/packwave/internal/sweep"
)

// maxFileSize caps config reads at 1MB.
const maxFileSize = 1 * 1024 * 1024

// Experiment is the on-disk sweep definition. Grid order is significant:
// it fixes combination enumeration and CSV column order.
type Experiment struct {
	Name         string             `json:"name" yaml:"name"`
	Description  string             `json:"description,omitempty" yaml:"description,omitempty"`
	Replications int                `json:"replications,omitempty" yaml:"replications,omitempty"`
	Base         map[string]float64 `json:"base,omitempty" yaml:"base,omitempty"`
	Grid         []GridEntry        `json:"grid,omitempty" yaml:"grid,omitempty"`
}

// GridEntry is one swept parameter in an experiment file.
type GridEntry struct {
	Name   string    `json:"name" yaml:"name"`
	Values []float64 `json:"values" yaml:"values"`
}

// Load reads, parses and validates an experiment file. The extension
// selects the format: .json, .yaml or .yml only. Files over 1MB are
// rejected before reading.
func Load(path string) (*Experiment, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, &sweep.ConfigurationError{
			Field:  "file",
			Reason: fmt.Sprintf("experiment file must be .json, .yaml or .yml, got %q", ext),
		}
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat experiment file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, &sweep.ConfigurationError{
			Field:  "file",
			Reason: fmt.Sprintf("experiment file too large: %d bytes (max %d)", info.Size(), maxFileSize),
		}
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read experiment file: %w", err)
	}

	exp := &Experiment{}
	switch ext {
	case ".json":
		err = json.Unmarshal(data, exp)
	default:
		err = yaml.Unmarshal(data, exp)
	}
	if err != nil {
		return nil, &sweep.ConfigurationError{
			Field:  "file",
			Reason: fmt.Sprintf("failed to parse %s: %v", filepath.Base(cleanPath), err),
		}
	}

	if err := exp.Validate(); err != nil {
		return nil, err
	}
	return exp, nil
}

// Validate checks structure and that every referenced parameter is a known
// simulation parameter, so typos fail here instead of mid-sweep.
// Replications defaults to 1 when omitted.
func (e *Experiment) Validate() error {
	if e.Name == "" {
		return &sweep.ConfigurationError{Field: "name", Reason: "experiment name is required"}
	}
	if e.Replications < 0 {
		return &sweep.ConfigurationError{Field: "replications", Reason: "must not be negative"}
	}
	if e.Replications == 0 {
		e.Replications = 1
	}

	known := sim.Defaults()
	seen := make(map[string]bool, len(e.Grid))
	for _, entry := range e.Grid {
		if entry.Name == "" {
			return &sweep.ConfigurationError{Field: "grid", Reason: "grid entry with empty name"}
		}
		if _, ok := known[entry.Name]; !ok {
			return &sweep.ConfigurationError{Field: entry.Name, Reason: "unknown simulation parameter"}
		}
		if seen[entry.Name] {
			return &sweep.ConfigurationError{Field: entry.Name, Reason: "parameter swept twice"}
		}
		seen[entry.Name] = true
		if len(entry.Values) == 0 {
			return &sweep.ConfigurationError{Field: entry.Name, Reason: "no values to sweep"}
		}
	}

	// Sorted so the reported parameter is deterministic.
	baseNames := make([]string, 0, len(e.Base))
	for name := range e.Base {
		baseNames = append(baseNames, name)
	}
	sort.Strings(baseNames)
	for _, name := range baseNames {
		if _, ok := known[name]; !ok {
			return &sweep.ConfigurationError{Field: name, Reason: "unknown simulation parameter"}
		}
	}

	return nil
}

// ToRequest converts a validated experiment into a sweep request.
func (e *Experiment) ToRequest() sweep.Request {
	grid := make([]sweep.GridParam, len(e.Grid))
	for i, entry := range e.Grid {
		grid[i] = sweep.GridParam{Name: entry.Name, Values: entry.Values}
	}
	return sweep.Request{
		Name:         e.Name,
		Description:  e.Description,
		Grid:         grid,
		Base:         e.Base,
		Replications: e.Replications,
	}
}
