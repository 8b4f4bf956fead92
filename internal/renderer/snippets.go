package renderer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/conneroisu/pagesmith/internal/errors"
	"github.com/conneroisu/pagesmith/internal/logging"
	"github.com/conneroisu/pagesmith/internal/registry"
)

// SnippetExpander inlines shared script snippets: every tag <r-name> is
// replaced by the contents of <dir>/<name>.ts. Attributes are ignored.
type SnippetExpander struct {
	dir      string
	matcher  *registry.TagMatcher
	max      int
	logger   logging.Logger
	readFile func(string) ([]byte, error)
}

// NewSnippetExpander creates a snippet expander reading from dir.
func NewSnippetExpander(dir string, syntax registry.Syntax, maxExpansions int, logger logging.Logger) *SnippetExpander {
	if maxExpansions <= 0 {
		maxExpansions = DefaultMaxExpansions
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &SnippetExpander{
		dir:      dir,
		matcher:  registry.NewTagMatcher(syntax),
		max:      maxExpansions,
		logger:   logger.WithComponent("snippets"),
		readFile: os.ReadFile,
	}
}

// SnippetPath returns the file a snippet name resolves to.
func (s *SnippetExpander) SnippetPath(name string) string {
	return filepath.Join(s.dir, name+registry.ScriptExt)
}

// Expand inlines snippets until none remain. Snippets may include other
// snippets. A missing snippet becomes a comment marker.
func (s *SnippetExpander) Expand(ctx context.Context, text string) (*Result, error) {
	ec := newExpansionContext(text)

	for {
		tag, ok := s.matcher.First(ec.Document)
		if !ok {
			return ec.result(), nil
		}

		if ec.Iterations >= s.max {
			err := errors.ErrDepthExceeded(s.max, tag.Raw)
			ec.Diagnostics = append(ec.Diagnostics, errors.Diagnostic{
				Code:      errors.CodeExpansionDepthExceeded,
				Component: tag.Name,
				Message:   err.Message,
				Severity:  errors.ErrorSeverityError,
			})
			return ec.result(), err
		}
		ec.Iterations++

		snippetPath := s.SnippetPath(tag.Name)
		content, err := s.readFile(snippetPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return ec.result(), errors.ErrIO("read snippet", snippetPath, err)
			}

			s.logger.Warn(ctx, err, "Snippet not found", "tag", tag.Raw, "path", snippetPath)
			ec.Diagnostics = append(ec.Diagnostics, errors.Diagnostic{
				Code:      errors.CodeMissingSnippet,
				Component: tag.Name,
				Message:   fmt.Sprintf("snippet '%s' not found", tag.Name),
				Severity:  errors.ErrorSeverityWarning,
				Details:   []string{"expected " + snippetPath},
			})
			marker := fmt.Sprintf("/* ERROR: Snippet '%s' not found. */", tag.Name)
			ec.Document = ec.Document[:tag.Start] + marker + ec.Document[tag.End:]
			continue
		}

		ec.Document = ec.Document[:tag.Start] + string(content) + ec.Document[tag.End:]
	}
}
