package statemachine

import (
	"fmt"
	"os"
	"strings"
)

const stateFileMode = 0o644

// SaveLastState writes the state's full name to path, and nothing else, so
// a later process can resume with WithCurrentState.
func SaveLastState(path string, state State) error {
	if state == nil {
		return ErrStateRequired
	}

	return SaveLastStateName(path, state.FullName())
}

// SaveLastStateName is SaveLastState for a state known only by name, such
// as one taken from a report.
func SaveLastStateName(path, fullName string) error {
	if fullName == "" {
		return ErrStateRequired
	}

	if err := os.WriteFile(path, []byte(fullName), stateFileMode); err != nil {
		return fmt.Errorf("failed to save last state to %q: %w", path, err)
	}

	return nil
}

// LoadLastState reads a full state name written by SaveLastState. A missing
// file is reported as an error wrapping fs.ErrNotExist.
func LoadLastState(path string) (string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Intentional path-based loading
	if err != nil {
		return "", fmt.Errorf("failed to load last state from %q: %w", path, err)
	}

	return strings.TrimSpace(string(data)), nil
}
