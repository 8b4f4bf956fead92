package cmd

import (
	stderrors "errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/conneroisu/pagesmith/internal/build"
	"github.com/conneroisu/pagesmith/internal/errors"
)

// printError writes err and every cause below it, followed by any
// suggestions attached to it.
func printError(w io.Writer, err error) {
	var enhanced *errors.EnhancedError
	if stderrors.As(err, &enhanced) {
		fmt.Fprintf(w, "❌ %s\n", enhanced.Title)
		printChain(w, enhanced.OriginalError)
		if len(enhanced.Suggestions) > 0 {
			fmt.Fprintln(w)
			fmt.Fprint(w, strings.TrimPrefix(errors.FormatSuggestions("", enhanced.Suggestions), "\n\n"))
		}
		return
	}

	fmt.Fprintln(w, "❌ Build failed")
	printChain(w, err)
}

func printChain(w io.Writer, err error) {
	for i, msg := range errors.Chain(err) {
		if i == 0 {
			fmt.Fprintf(w, "Error: %s\n", msg)
			continue
		}
		fmt.Fprintf(w, "  Caused by: %s\n", msg)
	}
}

// printReport summarises a finished build.
func printReport(w io.Writer, report *build.Report, verbose bool) {
	if len(report.Changed) == 0 {
		fmt.Fprintf(w, "✅ Nothing changed since the last build (%v)\n", report.Duration)
	} else {
		fmt.Fprintf(w, "✅ Build completed in %v\n", report.Duration)
		fmt.Fprintf(w, "   - %d changed, %d rebuilt, %d staged\n",
			len(report.Changed), len(report.Rebuilt), len(report.Staged))
	}

	if report.Styles.Total > 0 {
		fmt.Fprintf(w, "   - %s\n", report.StyleSummary())
	}
	if report.Scripts.Total > 0 {
		fmt.Fprintf(w, "   - %s\n", report.ScriptSummary())
	}
	if len(report.Variants) > 0 {
		fmt.Fprintf(w, "   - %d language variant(s) for %s\n", len(report.Variants), strings.Join(report.Languages, ", "))
	}
	if report.RemovedMaps > 0 {
		fmt.Fprintf(w, "   - removed %d source map(s)\n", report.RemovedMaps)
	}
	if report.Publish {
		fmt.Fprintf(w, "   - stripped .html from links in %d file(s)\n", report.PublishedFiles)
	}

	if verbose {
		fmt.Fprintf(w, "   - scanned %d file(s)%s\n", report.Scanned, kindSummary(report.Kinds))
		for _, staged := range report.Staged {
			fmt.Fprintf(w, "     %s\n", staged)
		}
	}

	printDiagnostics(w, report)
	printFailures(w, report)
}

// kindSummary renders per-kind counts as " (2 html, 1 scss)".
func kindSummary(kinds map[string]int) string {
	if len(kinds) == 0 {
		return ""
	}
	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%d %s", kinds[name], name))
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func printDiagnostics(w io.Writer, report *build.Report) {
	if report.Diagnostics == nil || report.Diagnostics.Count() == 0 {
		return
	}

	fmt.Fprintf(w, "⚠️  %d problem(s) found:\n", report.Diagnostics.Count())
	for _, d := range report.Diagnostics.Diagnostics() {
		fmt.Fprintf(w, "   %s\n", d.Error())
		for _, detail := range d.Details {
			fmt.Fprintf(w, "      %s\n", detail)
		}
	}
}

func printFailures(w io.Writer, report *build.Report) {
	if len(report.Failures) == 0 {
		return
	}

	fmt.Fprintf(w, "❌ %d file(s) failed to compile:\n", len(report.Failures))
	for _, failure := range report.Failures {
		fmt.Fprintf(w, "   %s\n", failure.Source)
		for _, line := range strings.Split(strings.TrimSpace(failure.Error), "\n") {
			fmt.Fprintf(w, "      %s\n", line)
		}
	}
}
