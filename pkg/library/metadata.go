package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Metadata is the declarative sidecar descriptor of one example.
type Metadata struct {
	// ID defaults to the containing directory name when absent.
	ID              string     `json:"id,omitempty" yaml:"id,omitempty"`
	Title           string     `json:"title" yaml:"title"`
	Description     string     `json:"description" yaml:"description"`
	Note            string     `json:"note,omitempty" yaml:"note,omitempty"`
	DocURL          string     `json:"doc_url,omitempty" yaml:"doc_url,omitempty"`
	RunInstructions string     `json:"run_instructions,omitempty" yaml:"run_instructions,omitempty"`
	Categories      []string   `json:"categories,omitempty" yaml:"categories,omitempty"`
	Documentation   []Link     `json:"documentation,omitempty" yaml:"documentation,omitempty"`
	HowItWorks      []string   `json:"how_it_works,omitempty" yaml:"how_it_works,omitempty"`
	Inputs          []Input    `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Benchmarks      *Resource  `json:"benchmarks,omitempty" yaml:"benchmarks,omitempty"`
	Tests           *Resource  `json:"tests,omitempty" yaml:"tests,omitempty"`
}

// Link is a labeled documentation URL.
type Link struct {
	Label string `json:"label" yaml:"label"`
	URL   string `json:"url" yaml:"url"`
}

// Input declares a value the example accepts at run time.
type Input struct {
	Name        string `json:"name" yaml:"name"`
	Label       string `json:"label,omitempty" yaml:"label,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Default     string `json:"default,omitempty" yaml:"default,omitempty"`
	Placeholder string `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
}

// Resource points at related material (benchmark artifacts, test docs).
type Resource struct {
	Label       string `json:"label,omitempty" yaml:"label,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Docs is the best-effort summary derived from an example's README.
type Docs struct {
	Path    string
	Summary string
}

// TestSuite is one test script discovered under an example's tests/
// directory, replaced wholesale on every reload.
type TestSuite struct {
	// ID is the file stem.
	ID string
	// Name and Description come from leading "-- Title:" and
	// "-- Description:" comment directives; Name falls back to ID.
	Name        string
	Description string
	Path        string
	Script      string
}

// BenchmarkSummary is an externally supplied enrichment attached to
// snapshots; this package never produces one itself.
type BenchmarkSummary struct {
	ExampleID    string
	Measurements []BenchmarkMeasurement
	ReportURL    string
}

// BenchmarkMeasurement is one benchmark data point, in milliseconds.
type BenchmarkMeasurement struct {
	BenchmarkID      string
	Parameter        string
	MeanMillis       float64
	LowerBoundMillis float64
	UpperBoundMillis float64
	StdDevMillis     float64
}

// Example is one loaded script example. Copies handed out by the library
// are independent snapshots.
type Example struct {
	Metadata   Metadata
	Script     string
	ScriptPath string
	Docs       *Docs
	TestSuites []TestSuite
	LoadedAt   time.Time

	// BenchmarkSummary is populated from the injected lookup, if any.
	BenchmarkSummary *BenchmarkSummary
}

// clone returns a deep enough copy that consumers cannot mutate library
// state through shared slices.
func (e Example) clone() Example {
	out := e
	out.Metadata.Categories = append([]string(nil), e.Metadata.Categories...)
	out.Metadata.Documentation = append([]Link(nil), e.Metadata.Documentation...)
	out.Metadata.HowItWorks = append([]string(nil), e.Metadata.HowItWorks...)
	out.Metadata.Inputs = append([]Input(nil), e.Metadata.Inputs...)
	out.TestSuites = append([]TestSuite(nil), e.TestSuites...)
	return out
}

// readMetadata loads an example descriptor, preferring meta.json with a
// meta.yaml fallback.
func readMetadata(exampleDir string) (Metadata, string, error) {
	jsonPath := filepath.Join(exampleDir, "meta.json")
	if raw, err := os.ReadFile(jsonPath); err == nil {
		var meta Metadata
		if err := json.Unmarshal(raw, &meta); err != nil {
			return Metadata{}, jsonPath, fmt.Errorf("parse %s: %w", jsonPath, err)
		}
		return meta, jsonPath, meta.validate()
	} else if !errors.Is(err, os.ErrNotExist) {
		return Metadata{}, jsonPath, err
	}

	yamlPath := filepath.Join(exampleDir, "meta.yaml")
	raw, err := os.ReadFile(yamlPath)
	if err != nil {
		return Metadata{}, jsonPath, fmt.Errorf("read descriptor: %w", err)
	}
	var meta Metadata
	if err := yaml.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, yamlPath, fmt.Errorf("parse %s: %w", yamlPath, err)
	}
	return meta, yamlPath, meta.validate()
}

func (m Metadata) validate() error {
	if m.Title == "" {
		return errors.New("descriptor is missing required field 'title'")
	}
	if m.Description == "" {
		return errors.New("descriptor is missing required field 'description'")
	}
	return nil
}
