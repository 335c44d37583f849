package cli

import (
	"errors"
	"slices"
	"strings"

	"facette.io/natsort"
	"github.com/manifoldco/promptui"
)

// ErrNothingToSelect is returned when a menu would be empty.
var ErrNothingToSelect = errors.New("nothing to select")

const selectPageSize = 12

// SelectState shows a searchable menu of state names in natural order and
// returns the chosen one.
func (t Terminal) SelectState(label string, states []string) (string, error) {
	names := sortStates(states)
	if len(names) == 0 {
		return "", ErrNothingToSelect
	}

	sel := &promptui.Select{
		Label:             label,
		Items:             names,
		Size:              min(len(names), selectPageSize),
		Searcher:          stateSearcher(names),
		StartInSearchMode: len(names) > selectPageSize,
		Stdin:             t.In,
		Stdout:            t.Out,
	}

	_, value, err := sel.Run()
	if err != nil {
		return "", err
	}

	return value, nil
}

// SelectState shows the state menu on the process terminal.
func SelectState(label string, states []string) (string, error) {
	return Stdio().SelectState(label, states)
}

// sortStates returns the distinct non-empty names in natural order.
func sortStates(states []string) []string {
	names := make([]string, 0, len(states))

	for _, s := range states {
		if s != "" && !slices.Contains(names, s) {
			names = append(names, s)
		}
	}

	slices.SortFunc(names, func(a, b string) int {
		switch {
		case a == b:
			return 0
		case natsort.Compare(a, b):
			return -1
		default:
			return 1
		}
	})

	return names
}

// stateSearcher matches a case-insensitive substring of the state name.
func stateSearcher(names []string) func(input string, index int) bool {
	return func(input string, index int) bool {
		if index < 0 || index >= len(names) {
			return false
		}

		return strings.Contains(strings.ToLower(names[index]), strings.ToLower(strings.TrimSpace(input)))
	}
}
