package errors

import (
	"fmt"
	"strings"
)

// ErrorSuggestion represents a suggestion for fixing an error
type ErrorSuggestion struct {
	Title       string
	Description string
	Command     string
	Example     string
}

// SuggestionContext provides context for generating suggestions
type SuggestionContext struct {
	// Components lists the component names that do exist.
	Components     []string
	ConfigPath     string
	ComponentsPath string
	PriorityList   string
}

// ComponentNotFoundSuggestions generates suggestions for a tag naming a
// component directory that does not exist.
func ComponentNotFoundSuggestions(componentName string, ctx *SuggestionContext) []ErrorSuggestion {
	suggestions := []ErrorSuggestion{
		{
			Title:       "Check the component directory exists",
			Description: "Every component lives in a directory of the same name holding <name>.html",
			Command:     "ls -la " + ctx.ComponentsPath,
			Example:     ctx.ComponentsPath + "/" + componentName + "/" + componentName + ".html",
		},
		{
			Title:       "List all components",
			Description: "See which components pagesmith can find",
			Command:     "pagesmith list",
		},
	}

	if similar := similarName(componentName, ctx.Components); similar != "" {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Did you mean '" + similar + "'?",
			Description: "Similar component found",
		})
	}

	return suggestions
}

// PriorityListSuggestions generates suggestions for an order file entry that
// names no component directory.
func PriorityListSuggestions(entry string, ctx *SuggestionContext) []ErrorSuggestion {
	suggestions := []ErrorSuggestion{
		{
			Title:       "Fix the compilation order file",
			Description: "Each non-comment line must name a directory under " + ctx.ComponentsPath,
			Command:     "cat " + ctx.PriorityList,
			Example:     "# components compiled first\nnavbar\nfooter",
		},
	}

	if similar := similarName(entry, ctx.Components); similar != "" {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Did you mean '" + similar + "'?",
			Description: "Similar component found",
		})
	}

	return suggestions
}

// CompilerFailureSuggestions generates suggestions for a failed sass or tsc run.
func CompilerFailureSuggestions(command string, output string) []ErrorSuggestion {
	suggestions := []ErrorSuggestion{
		{
			Title:       "Review compiler output",
			Description: "Check the compiler message for the offending line",
		},
	}

	lower := strings.ToLower(output)
	if strings.Contains(lower, "not found") || strings.Contains(lower, "executable file") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Install " + command,
			Description: fmt.Sprintf("The %s executable must be on PATH", command),
			Command:     "npm install -g " + command,
		})
	}

	return suggestions
}

// ServerStartSuggestions generates suggestions for server startup failures
func ServerStartSuggestions(err error, port int) []ErrorSuggestion {
	suggestions := []ErrorSuggestion{}

	errStr := err.Error()

	if strings.Contains(errStr, "address already in use") || strings.Contains(errStr, "bind") {
		suggestions = append(suggestions,
			ErrorSuggestion{
				Title:       "Port already in use",
				Description: fmt.Sprintf("Port %d is already being used by another process", port),
				Command:     fmt.Sprintf("lsof -i :%d", port),
			},
			ErrorSuggestion{
				Title:       "Use a different port",
				Description: "Start the server on a different port",
				Command:     fmt.Sprintf("pagesmith serve --port %d", port+1),
			},
		)
	}

	if strings.Contains(errStr, "permission denied") && port < 1024 {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Use unprivileged port",
			Description: "Ports below 1024 require root privileges",
			Command:     "pagesmith serve --port 8080",
		})
	}

	return suggestions
}

// ConfigurationSuggestions generates suggestions for configuration issues
func ConfigurationSuggestions(configError string, configPath string) []ErrorSuggestion {
	suggestions := []ErrorSuggestion{
		{
			Title:       "Check configuration file",
			Description: "Verify your .pagesmith.yml file exists and has valid syntax",
			Command:     "cat " + configPath,
		},
	}

	if strings.Contains(configError, "yaml") || strings.Contains(configError, "decode") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Fix YAML syntax",
			Description: "There's a syntax error in your YAML configuration",
			Example:     "Use proper indentation and avoid tabs",
		})
	}

	if strings.Contains(configError, "paths") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Check directory paths",
			Description: "The output directory must differ from the source, and components must sit inside it",
			Example:     "paths:\n  source: edit-me\n  components: edit-me/shared/reusables",
		})
	}

	return suggestions
}

// FormatSuggestions formats suggestions into a user-friendly string
func FormatSuggestions(title string, suggestions []ErrorSuggestion) string {
	if len(suggestions) == 0 {
		return title
	}

	var output strings.Builder
	output.WriteString(title + "\n\n")
	output.WriteString("Suggestions:\n")

	for i, suggestion := range suggestions {
		output.WriteString(fmt.Sprintf("  %d. %s\n", i+1, suggestion.Title))
		if suggestion.Description != "" {
			output.WriteString(fmt.Sprintf("     %s\n", suggestion.Description))
		}
		if suggestion.Command != "" {
			output.WriteString(fmt.Sprintf("     Run: %s\n", suggestion.Command))
		}
		if suggestion.Example != "" {
			output.WriteString(fmt.Sprintf("     Example: %s\n", suggestion.Example))
		}
		output.WriteString("\n")
	}

	return output.String()
}

// EnhancedError wraps an error with suggestions
type EnhancedError struct {
	OriginalError error
	Title         string
	Suggestions   []ErrorSuggestion
}

// Error implements the error interface
func (e *EnhancedError) Error() string {
	return FormatSuggestions(e.Title, e.Suggestions)
}

// Unwrap returns the original error
func (e *EnhancedError) Unwrap() error {
	return e.OriginalError
}

// NewEnhancedError creates a new enhanced error with suggestions
func NewEnhancedError(title string, originalError error, suggestions []ErrorSuggestion) *EnhancedError {
	return &EnhancedError{
		OriginalError: originalError,
		Title:         title,
		Suggestions:   suggestions,
	}
}

// similarName returns the first candidate containing name or contained in
// it, ignoring case.
func similarName(name string, candidates []string) string {
	lower := strings.ToLower(name)
	if lower == "" {
		return ""
	}
	for _, candidate := range candidates {
		c := strings.ToLower(candidate)
		if c == lower {
			continue
		}
		if strings.Contains(c, lower) || strings.Contains(lower, c) {
			return candidate
		}
	}
	return ""
}
