// Package validator checks crawl declarations for problems the loader
// accepts but a crawl would trip over, and fixes some of them.
package validator

import (
	"errors"
	"fmt"

	"github.com/amp-labs/statecrawler/statemachine"
)

var (
	// ErrStateNotFound is returned when attempting to change a state that doesn't exist.
	ErrStateNotFound = errors.New("state not found")
	// ErrDuplicateNotFound is returned when attempting to remove a duplicate that doesn't exist.
	ErrDuplicateNotFound = errors.New("duplicate not found")
	// ErrStateAlreadyExists is returned when attempting to rename to an existing state name.
	ErrStateAlreadyExists = errors.New("state already exists")
)

// Fix represents an automatic fix for a validation issue.
type Fix struct {
	Description string
	Apply       func(config *statemachine.Config) error
}

// RemoveUnreachableState creates a fix that removes a state and every
// transition touching it.
func RemoveUnreachableState(stateName string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Remove unreachable state '%s'", stateName),
		Apply: func(config *statemachine.Config) error {
			states := make([]statemachine.StateConfig, 0, len(config.States))

			for _, state := range config.States {
				if state.Name != stateName {
					states = append(states, state)
				}
			}

			if len(states) == len(config.States) {
				return fmt.Errorf("%w: '%s'", ErrStateNotFound, stateName)
			}

			config.States = states

			transitions := make([]statemachine.TransitionConfig, 0, len(config.Transitions))

			for _, t := range config.Transitions {
				if t.From != stateName && t.To != stateName {
					transitions = append(transitions, t)
				}
			}

			config.Transitions = transitions

			return nil
		},
	}
}

// RenameState creates a fix that renames a state everywhere it is used.
func RenameState(oldName, newName string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Rename state from '%s' to '%s'", oldName, newName),
		Apply: func(config *statemachine.Config) error {
			index := -1

			for i, state := range config.States {
				switch state.Name {
				case newName:
					return fmt.Errorf("%w: '%s'", ErrStateAlreadyExists, newName)
				case oldName:
					index = i
				}
			}

			if index < 0 {
				return fmt.Errorf("%w: '%s'", ErrStateNotFound, oldName)
			}

			config.States[index].Name = newName

			if config.InitialState == oldName {
				config.InitialState = newName
			}

			for i, t := range config.Transitions {
				if t.From == oldName {
					config.Transitions[i].From = newName
				}

				if t.To == oldName {
					config.Transitions[i].To = newName
				}
			}

			return nil
		},
	}
}

// RemoveDuplicateTransition creates a fix that keeps only the last
// declaration of a transition, the one the crawler uses.
func RemoveDuplicateTransition(from, to string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Remove duplicate transition from '%s' to '%s'", from, to),
		Apply: func(config *statemachine.Config) error {
			last := -1

			for i, t := range config.Transitions {
				if t.From == from && t.To == to {
					last = i
				}
			}

			transitions := make([]statemachine.TransitionConfig, 0, len(config.Transitions))

			for i, t := range config.Transitions {
				if t.From == from && t.To == to && i != last {
					continue
				}

				transitions = append(transitions, t)
			}

			if len(transitions) == len(config.Transitions) {
				return ErrDuplicateNotFound
			}

			config.Transitions = transitions

			return nil
		},
	}
}

// ApplyFixes applies a list of fixes to a config.
func ApplyFixes(config *statemachine.Config, fixes []*Fix) error {
	for _, fix := range fixes {
		if fix != nil && fix.Apply != nil {
			if err := fix.Apply(config); err != nil {
				return fmt.Errorf("failed to apply fix '%s': %w", fix.Description, err)
			}
		}
	}

	return nil
}

// AutoFix validates config, applies every offered fix and validates again.
func AutoFix(config *statemachine.Config, rules []Rule) (ValidationResult, error) {
	if err := ApplyFixes(config, ValidateWithRules(config, rules).Fixes()); err != nil {
		return ValidationResult{}, err
	}

	return ValidateWithRules(config, rules), nil
}
