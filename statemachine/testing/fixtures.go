package testing

import (
	"fmt"

	"github.com/amp-labs/statecrawler/statemachine"
)

// PageVar is the variable the fixture declarations navigate with.
const PageVar = "page"

// Page declares a state verified by the page variable naming it.
func Page(name string) statemachine.StateConfig {
	return statemachine.StateConfig{
		Name:   name,
		Verify: fmt.Sprintf("%s == %q", PageVar, name),
	}
}

// Navigate declares a transition whose action sets the page variable to
// the target.
func Navigate(from, to string) statemachine.TransitionConfig {
	return NavigateTo(from, to, to)
}

// NavigateTo declares a transition from -> to whose action sets the page
// variable to page, which need not be the target.
func NavigateTo(from, to, page string) statemachine.TransitionConfig {
	return statemachine.TransitionConfig{
		From: from,
		To:   to,
		Action: &statemachine.ActionConfig{
			Type:       ActionType,
			Name:       from + "->" + to,
			Parameters: map[string]any{PageVar: page},
		},
	}
}

// ResetTo declares a reset action returning to page.
func ResetTo(page string) *statemachine.ActionConfig {
	return &statemachine.ActionConfig{
		Type:       ActionType,
		Name:       "reset",
		Parameters: map[string]any{PageVar: page},
	}
}

// CommonTestConfigs provides frequently used declarations. Every one of
// them resets to its initial page.
var CommonTestConfigs = struct { //nolint:gochecknoglobals
	Linear    func() *statemachine.Config
	Branching func() *statemachine.Config
	Cycle     func() *statemachine.Config
	Broken    func() *statemachine.Config
}{
	// Linear is Home -> Cart -> Paid -> Home.
	Linear: func() *statemachine.Config {
		return &statemachine.Config{
			Name:         "linear",
			InitialState: "Home",
			Reset:        ResetTo("Home"),
			States:       []statemachine.StateConfig{Page("Home"), Page("Cart"), Page("Paid")},
			Transitions: []statemachine.TransitionConfig{
				Navigate("Home", "Cart"),
				Navigate("Cart", "Paid"),
				Navigate("Paid", "Home"),
			},
		}
	},
	// Branching leaves Home for Search or Account and comes back.
	Branching: func() *statemachine.Config {
		return &statemachine.Config{
			Name:         "branching",
			InitialState: "Home",
			Reset:        ResetTo("Home"),
			States:       []statemachine.StateConfig{Page("Home"), Page("Search"), Page("Account")},
			Transitions: []statemachine.TransitionConfig{
				Navigate("Home", "Search"),
				Navigate("Search", "Home"),
				Navigate("Home", "Account"),
				Navigate("Account", "Home"),
			},
		}
	},
	// Cycle is A -> B -> C -> A with a cheap shortcut A -> C.
	Cycle: func() *statemachine.Config {
		shortcut := Navigate("A", "C")
		cost := 0.5
		shortcut.Cost = &cost

		return &statemachine.Config{
			Name:         "cycle",
			InitialState: "A",
			Reset:        ResetTo("A"),
			States:       []statemachine.StateConfig{Page("A"), Page("B"), Page("C")},
			Transitions: []statemachine.TransitionConfig{
				Navigate("A", "B"),
				Navigate("B", "C"),
				Navigate("C", "A"),
				shortcut,
			},
		}
	},
	// Broken is Linear with a Home -> Cart action that lands on an error
	// page, so Cart fails to verify and Paid cannot be reached.
	Broken: func() *statemachine.Config {
		return &statemachine.Config{
			Name:         "broken",
			InitialState: "Home",
			Reset:        ResetTo("Home"),
			States:       []statemachine.StateConfig{Page("Home"), Page("Cart"), Page("Paid")},
			Transitions: []statemachine.TransitionConfig{
				NavigateTo("Home", "Cart", "Error"),
				Navigate("Cart", "Paid"),
				Navigate("Paid", "Home"),
			},
		}
	},
}
