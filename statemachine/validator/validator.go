package validator

import (
	"fmt"
	"strings"

	"github.com/amp-labs/statecrawler/statemachine"
)

// ValidationResult contains the results of validating a declaration.
type ValidationResult struct {
	Valid       bool
	Errors      []ValidationError
	Warnings    []ValidationWarning
	Suggestions []Suggestion
}

// ValidationError represents a validation error with fix suggestions.
type ValidationError struct {
	Code     string   // Error code like "UNREACHABLE_STATE", "UNKNOWN_ACTION_TYPE"
	Message  string   // Human-readable error message
	Location Location // Where the error occurred
	Fix      *Fix     // Optional auto-fix suggestion
}

// ValidationWarning represents a non-critical issue.
type ValidationWarning struct {
	Code     string   // Warning code
	Message  string   // Human-readable warning message
	Location Location // Where the warning occurred
	Fix      *Fix     // Optional auto-fix suggestion
}

// Suggestion provides improvement recommendations.
type Suggestion struct {
	Message string // Suggestion description
	Example string // Declaration example showing the improvement
}

// Location identifies where an issue occurred.
type Location struct {
	File       string // Declaration file path
	State      string // State name if applicable
	Transition string // "from -> to" if applicable
}

// Validate checks a declaration against the default rules, with the
// built-in action types.
func Validate(config *statemachine.Config) ValidationResult {
	return ValidateWithRules(config, DefaultRules(nil))
}

// ValidateFile loads a declaration from a file and validates it. Action
// types are checked against factory; nil means the built-in types.
func ValidateFile(path string, factory *statemachine.ActionFactory, strict bool) (ValidationResult, error) {
	config, err := statemachine.LoadConfig(path)
	if err != nil {
		return ValidationResult{
			Valid: false,
			Errors: []ValidationError{
				{
					Code:     "CONFIG_LOAD_FAILED",
					Message:  fmt.Sprintf("Failed to load config: %v", err),
					Location: Location{File: path},
				},
			},
		}, err
	}

	result := ValidateWithRules(config, DefaultRules(factory))
	if strict {
		result = result.Strict()
	}

	for i := range result.Errors {
		if result.Errors[i].Location.File == "" {
			result.Errors[i].Location.File = path
		}
	}

	for i := range result.Warnings {
		if result.Warnings[i].Location.File == "" {
			result.Warnings[i].Location.File = path
		}
	}

	return result, nil
}

// ValidateWithRules validates using custom rules, plus every registered
// rule. A declaration that fails structural validation is reported as a
// single INVALID_DECLARATION error without running the rules.
func ValidateWithRules(config *statemachine.Config, rules []Rule) ValidationResult {
	if config == nil {
		return ValidationResult{Errors: []ValidationError{{Code: "INVALID_DECLARATION", Message: "config is nil"}}}
	}

	if err := config.Validate(); err != nil {
		return ValidationResult{
			Errors: []ValidationError{{Code: "INVALID_DECLARATION", Message: err.Error()}},
		}
	}

	var result ValidationResult

	for _, rule := range append(rules, registeredRules()...) {
		ruleResult := rule.Check(config)
		result.Errors = append(result.Errors, ruleResult.Errors...)
		result.Warnings = append(result.Warnings, ruleResult.Warnings...)
	}

	result.Valid = len(result.Errors) == 0
	result.Suggestions = generateSuggestions(config)

	return result
}

// Strict returns the result with every warning promoted to an error.
func (r ValidationResult) Strict() ValidationResult {
	for _, warning := range r.Warnings {
		r.Errors = append(r.Errors, ValidationError(warning))
	}

	r.Warnings = nil
	r.Valid = len(r.Errors) == 0

	return r
}

// Fixes returns every fix offered by the errors and warnings.
func (r ValidationResult) Fixes() []*Fix {
	var fixes []*Fix

	for _, err := range r.Errors {
		if err.Fix != nil {
			fixes = append(fixes, err.Fix)
		}
	}

	for _, warn := range r.Warnings {
		if warn.Fix != nil {
			fixes = append(fixes, warn.Fix)
		}
	}

	return fixes
}

func generateSuggestions(config *statemachine.Config) []Suggestion {
	var suggestions []Suggestion

	if config.Reset == nil && len(config.States) > 1 {
		suggestions = append(suggestions, Suggestion{
			Message: "Declare a reset action so routes through the entry point restore the initial state",
			Example: `reset:
  type: http
  parameters:
    method: POST
    path: /reset`,
		})
	}

	unverified := 0

	for _, state := range config.States {
		if strings.TrimSpace(state.Verify) == "" {
			unverified++
		}
	}

	if unverified > 0 && unverified == len(config.States) {
		suggestions = append(suggestions, Suggestion{
			Message: "No state declares a verify expression, so every step passes once its action does",
			Example: `states:
  - name: Cart
    verify: status == 200 && len(json.items) > 0
    metadata:
      probe:
        path: /cart`,
		})
	}

	return suggestions
}

// HasErrors returns true if the result has any errors.
func (r ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if the result has any warnings.
func (r ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// String returns a human-readable summary of validation results.
func (r ValidationResult) String() string {
	var sb strings.Builder

	if r.Valid {
		sb.WriteString("✓ Configuration is valid\n")
	} else {
		fmt.Fprintf(&sb, "✗ Configuration has %d error(s)\n", len(r.Errors))
	}

	for _, err := range r.Errors {
		fmt.Fprintf(&sb, "  [%s] %s%s\n", err.Code, err.Message, err.Location.suffix())

		if err.Fix != nil {
			fmt.Fprintf(&sb, "    Fix: %s\n", err.Fix.Description)
		}
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(&sb, "\n⚠ %d warning(s):\n", len(r.Warnings))

		for _, warn := range r.Warnings {
			fmt.Fprintf(&sb, "  [%s] %s%s\n", warn.Code, warn.Message, warn.Location.suffix())
		}
	}

	if len(r.Suggestions) > 0 {
		fmt.Fprintf(&sb, "\n%d suggestion(s):\n", len(r.Suggestions))

		for _, s := range r.Suggestions {
			fmt.Fprintf(&sb, "  - %s\n", s.Message)
		}
	}

	return sb.String()
}

func (l Location) suffix() string {
	switch {
	case l.State != "":
		return fmt.Sprintf(" (state: %s)", l.State)
	case l.Transition != "":
		return fmt.Sprintf(" (transition: %s)", l.Transition)
	default:
		return ""
	}
}
