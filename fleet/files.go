package fleet

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"facette.io/natsort"
	"github.com/amp-labs/statecrawler/sanitize"
	"github.com/amp-labs/statecrawler/statemachine"
)

const reportFileMode = 0o644

// Discover expands paths into declaration files. Files are kept as given;
// directories contribute their declaration files (by extension, not
// recursively) in natural order. A bare name that is not on disk is kept
// for the registered config loader.
func Discover(paths ...string) ([]string, error) {
	var files []string

	for _, path := range paths {
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) && isBareName(path) {
			files = append(files, path)

			continue
		}

		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			files = append(files, path)

			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}

		var found []string

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}

			if _, err := statemachine.FormatOf(entry.Name()); err == nil {
				found = append(found, filepath.Join(path, entry.Name()))
			}
		}

		natsort.Sort(found)

		files = append(files, found...)
	}

	return files, nil
}

func isBareName(path string) bool {
	_, err := statemachine.FormatOf(path)

	return err != nil && !strings.ContainsAny(path, `/\`)
}

// Load discovers and loads the declarations under paths.
func Load(paths ...string) ([]Declaration, error) {
	files, err := Discover(paths...)
	if err != nil {
		return nil, err
	}

	decls := make([]Declaration, 0, len(files))

	for _, file := range files {
		config, err := statemachine.LoadConfig(file)
		if err != nil {
			return nil, err
		}

		decls = append(decls, Declaration{Path: file, Config: config})
	}

	return decls, nil
}

// WriteReports writes one JSON file per result into dir, named after the
// declaration and run, and returns the paths written.
func WriteReports(dir string, report *Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return nil, fmt.Errorf("creating report directory: %w", err)
	}

	written := make([]string, 0, len(report.Results))

	for _, result := range report.Results {
		name := result.Name
		if result.RunID != "" {
			name += "-" + result.RunID
		}

		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return written, err
		}

		path := filepath.Join(dir, sanitize.FileName(name)+".json")
		if err := os.WriteFile(path, data, reportFileMode); err != nil {
			return written, fmt.Errorf("writing report %q: %w", path, err)
		}

		written = append(written, path)
	}

	return written, nil
}
