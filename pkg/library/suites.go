package library

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const suitesDirName = "tests"

// loadSuites discovers the test-suite scripts of one example, sorted by
// resolved display name.
func loadSuites(exampleDir string) ([]TestSuite, error) {
	suitesDir := filepath.Join(exampleDir, suitesDirName)
	entries, err := os.ReadDir(suitesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read tests directory: %w", err)
	}

	var suites []TestSuite
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lua") {
			continue
		}
		path := filepath.Join(suitesDir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return suites, fmt.Errorf("read test script %s: %w", path, err)
		}

		id := strings.TrimSuffix(entry.Name(), ".lua")
		name, description := parseSuiteDirectives(string(raw))
		if name == "" {
			name = id
		}

		suites = append(suites, TestSuite{
			ID:          id,
			Name:        name,
			Description: description,
			Path:        path,
			Script:      string(raw),
		})
	}

	sort.Slice(suites, func(i, j int) bool {
		if suites[i].Name != suites[j].Name {
			return suites[i].Name < suites[j].Name
		}
		return suites[i].ID < suites[j].ID
	})
	return suites, nil
}

// parseSuiteDirectives reads "Title:" and "Description:" from the leading
// comment block. Parsing stops at the first non-comment, non-blank line.
func parseSuiteDirectives(script string) (title, description string) {
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "--") {
			break
		}
		content := strings.TrimSpace(strings.TrimLeft(trimmed, "-"))
		if rest, ok := strings.CutPrefix(content, "Title:"); ok {
			title = strings.TrimSpace(rest)
		} else if rest, ok := strings.CutPrefix(content, "Description:"); ok {
			description = strings.TrimSpace(rest)
		}
	}
	return title, description
}
