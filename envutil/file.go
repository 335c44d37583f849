package envutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFileType is returned when the file extension is not recognized.
var ErrUnknownFileType = errors.New("env file doesn't have a known file suffix")

// ErrInvalidEnvValue is returned for an env document value that is not a scalar.
var ErrInvalidEnvValue = errors.New("env value must be a scalar")

// LoadEnvFile reads variables from a file, chosen by extension:
//
//	.env          KEY=VALUE lines (comments, quoting and export allowed)
//	.json .yaml   a document whose "env" object maps names to scalars
//
//	env:
//	  CRAWLER_BASE_URL: http://localhost:8080
//	  CRAWLER_FULL: true
func LoadEnvFile(path string) (map[string]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".env":
		return godotenv.Read(path)
	case ".json", ".yml", ".yaml":
		return loadEnvDocument(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFileType, filepath.Base(path))
	}
}

// loadEnvDocument parses JSON and YAML alike, JSON being valid YAML.
func loadEnvDocument(path string) (map[string]string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is the intended file to load
	if err != nil {
		return nil, err
	}

	var doc struct {
		Env map[string]any `yaml:"env"`
	}

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	vars := make(map[string]string, len(doc.Env))

	for key, value := range doc.Env {
		switch v := value.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("%w: %s", ErrInvalidEnvValue, key)
		case nil:
			vars[key] = ""
		default:
			vars[key] = fmt.Sprint(v)
		}
	}

	return vars, nil
}

// ApplyEnvFile sets every variable of the file that the process environment
// leaves unset, and returns the keys it set, sorted.
func ApplyEnvFile(path string) ([]string, error) {
	vars, err := LoadEnvFile(path)
	if err != nil {
		return nil, err
	}

	var applied []string

	for key, value := range vars {
		if _, exists := os.LookupEnv(key); exists {
			continue
		}

		if err := os.Setenv(key, value); err != nil {
			return applied, fmt.Errorf("failed to set %s: %w", key, err)
		}

		applied = append(applied, key)
	}

	slices.Sort(applied)

	return applied, nil
}
