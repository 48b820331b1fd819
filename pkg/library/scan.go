package library

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	scriptFileName = "script.lua"
	docsFileName   = "README.md"
)

// scanExamples reads every immediate subdirectory of dir into an example.
// Directories missing a descriptor or script are skipped with a warning;
// only an unreadable root fails the scan.
func scanExamples(dir string, logger *slog.Logger) (map[string]Example, error) {
	examples := make(map[string]Example)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return examples, nil
		}
		return nil, err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		folder := entry.Name()
		exampleDir := filepath.Join(dir, folder)

		meta, metaPath, err := readMetadata(exampleDir)
		if err != nil {
			logger.Warn("skipping example with bad descriptor", "path", metaPath, "err", err)
			continue
		}
		if meta.ID == "" {
			meta.ID = folder
		}

		scriptPath := filepath.Join(exampleDir, scriptFileName)
		script, err := os.ReadFile(scriptPath)
		if err != nil {
			logger.Warn("skipping example without script", "path", scriptPath, "err", err)
			continue
		}

		suites, err := loadSuites(exampleDir)
		if err != nil {
			logger.Warn("failed to load test suites", "example", meta.ID, "err", err)
		}

		examples[meta.ID] = Example{
			Metadata:   meta,
			Script:     string(script),
			ScriptPath: scriptPath,
			Docs:       readDocs(exampleDir),
			TestSuites: suites,
			LoadedAt:   time.Now(),
		}
	}

	return examples, nil
}

// readDocs derives a best-effort summary from the first non-heading
// paragraph of the optional long-form doc file.
func readDocs(exampleDir string) *Docs {
	path := filepath.Join(exampleDir, docsFileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	for _, paragraph := range strings.Split(strings.ReplaceAll(string(raw), "\r\n", "\n"), "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" || strings.HasPrefix(paragraph, "#") {
			continue
		}
		summary := strings.Join(strings.Fields(paragraph), " ")
		return &Docs{Path: path, Summary: summary}
	}

	return &Docs{Path: path}
}
