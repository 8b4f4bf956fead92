package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorSeverityString(t *testing.T) {
	testCases := []struct {
		severity ErrorSeverity
		expected string
	}{
		{ErrorSeverityInfo, "info"},
		{ErrorSeverityWarning, "warning"},
		{ErrorSeverityError, "error"},
		{ErrorSeverityFatal, "fatal"},
		{ErrorSeverity(999), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.severity.String())
		})
	}
}

func TestDiagnosticError(t *testing.T) {
	d := Diagnostic{
		Code:      CodeMissingComponentDirectory,
		Component: "widget",
		File:      "index.html",
		Message:   "directory not found",
		Severity:  ErrorSeverityError,
	}

	msg := d.Error()
	assert.Contains(t, msg, "index.html")
	assert.Contains(t, msg, "widget")
	assert.Contains(t, msg, CodeMissingComponentDirectory)
	assert.Contains(t, msg, "directory not found")
}

func TestCollector(t *testing.T) {
	collector := NewCollector()
	assert.Equal(t, 0, collector.Count())
	assert.False(t, collector.HasErrors())

	collector.Add(Diagnostic{Code: CodeMissingSnippet, File: "a.ts", Severity: ErrorSeverityWarning})
	assert.False(t, collector.HasErrors())

	collector.AddAll("b.html", []Diagnostic{
		{Code: CodeMissingComponentBody, Severity: ErrorSeverityError},
		{Code: CodeMissingComponentBody, File: "c.html", Severity: ErrorSeverityError},
	})

	assert.True(t, collector.HasErrors())
	assert.Equal(t, 3, collector.Count())
	assert.Len(t, collector.ByFile("b.html"), 1)
	assert.Len(t, collector.ByFile("c.html"), 1)
	assert.Equal(t, 2, collector.CountByCode()[CodeMissingComponentBody])
	assert.Equal(t, []string{CodeMissingComponentBody, CodeMissingSnippet}, collector.Codes())

	for _, d := range collector.Diagnostics() {
		assert.False(t, d.Timestamp.IsZero())
	}

	collector.Clear()
	assert.Equal(t, 0, collector.Count())
}

func TestPagesmithErrorIs(t *testing.T) {
	err := ErrInvalidPriorityEntry("nav-bar", "order.txt")

	assert.True(t, errors.Is(err, ErrInvalidPriorityListEntry))
	assert.False(t, errors.Is(err, ErrIOFailure))
	assert.False(t, IsRecoverable(err))
	assert.Contains(t, err.Error(), "nav-bar")
	assert.Contains(t, err.Error(), "order.txt")
}

func TestWrappedClassification(t *testing.T) {
	depth := ErrDepthExceeded(10, "<r-loop>")
	wrapped := fmt.Errorf("expanding index.html: %w", depth)

	assert.True(t, errors.Is(wrapped, ErrExpansionDepthExceeded))
	assert.True(t, IsContentError(wrapped))
	assert.True(t, IsRecoverable(wrapped))

	compile := ErrCompilerFailed("a.scss", errors.New("exit status 1"))
	assert.True(t, errors.Is(compile, ErrExternalCompilerFailure))
	assert.True(t, IsRecoverable(compile))
}

func TestChain(t *testing.T) {
	root := errors.New("permission denied")
	ioErr := ErrIO("copy file", "out/index.html", root)
	top := fmt.Errorf("staging pages/index/index.html: %w", ioErr)

	chain := Chain(top)
	require.Len(t, chain, 3)
	assert.Contains(t, chain[0], "staging")
	assert.Contains(t, chain[1], CodeIOFailure)
	assert.Equal(t, "permission denied", chain[2])
	assert.True(t, errors.Is(top, ErrIOFailure))
}

func TestComponentNotFoundSuggestions(t *testing.T) {
	ctx := &SuggestionContext{
		Components:     []string{"footer", "navbar"},
		ComponentsPath: "edit-me/shared/reusables",
	}

	suggestions := ComponentNotFoundSuggestions("nav", ctx)
	require.Len(t, suggestions, 3)
	assert.Equal(t, "edit-me/shared/reusables/nav/nav.html", suggestions[0].Example)
	assert.Equal(t, "Did you mean 'navbar'?", suggestions[2].Title)

	assert.Len(t, ComponentNotFoundSuggestions("zzz", ctx), 2)
}

func TestPriorityListSuggestions(t *testing.T) {
	ctx := &SuggestionContext{
		Components:   []string{"Header"},
		PriorityList: "order.txt",
	}

	suggestions := PriorityListSuggestions("header", ctx)
	require.Len(t, suggestions, 2)
	assert.Equal(t, "cat order.txt", suggestions[0].Command)
	assert.Equal(t, "Did you mean 'Header'?", suggestions[1].Title)
}

func TestServerStartSuggestions(t *testing.T) {
	suggestions := ServerStartSuggestions(errors.New("listen tcp :8080: bind: address already in use"), 8080)
	require.Len(t, suggestions, 2)
	assert.Equal(t, "pagesmith serve --port 8081", suggestions[1].Command)

	assert.Empty(t, ServerStartSuggestions(errors.New("boom"), 8080))
}

func TestFormatSuggestions(t *testing.T) {
	assert.Equal(t, "title", FormatSuggestions("title", nil))

	out := FormatSuggestions("Build failed", []ErrorSuggestion{
		{Title: "Fix it", Description: "Do the thing", Command: "pagesmith build", Example: "x"},
	})
	assert.Contains(t, out, "Suggestions:")
	assert.Contains(t, out, "  1. Fix it")
	assert.Contains(t, out, "Run: pagesmith build")
	assert.Contains(t, out, "Example: x")

	cause := errors.New("cause")
	enhanced := NewEnhancedError("Build failed", cause, nil)
	assert.Equal(t, "Build failed", enhanced.Error())
	assert.ErrorIs(t, enhanced, cause)
}
