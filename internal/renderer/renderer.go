// Package renderer expands component tags inside page and component text.
//
// Expansion is a rewrite loop over raw text: the first remaining tag is
// located, its attributes are merged into a parameter table that lives for
// the whole file, the component body is loaded and its placeholders are
// filled, stylesheet and script links are injected before </head>, and the
// tag is replaced by the processed body. Parameter values may defer to
// another component with the template prefix, which leaves a fresh tag in
// the document for a later iteration. Missing components degrade to inline
// error markers and diagnostics so one broken reference never stops a build.
package renderer

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/conneroisu/pagesmith/internal/errors"
	"github.com/conneroisu/pagesmith/internal/logging"
	"github.com/conneroisu/pagesmith/internal/registry"
)

// DefaultMaxExpansions bounds the rewrite loop of a single file. Every tag
// resolved counts once, nested or not.
const DefaultMaxExpansions = 1000

const headClose = "</head>"

// Config configures an Expander.
type Config struct {
	Syntax registry.Syntax
	// RootPlaceholder prefixes injected asset links, e.g. "<root>".
	RootPlaceholder string
	// ComponentsURL is the components directory as seen from the output
	// root, e.g. "shared/reusables".
	ComponentsURL string
	// MaxExpansions caps the total number of tags resolved in one file,
	// counting siblings as well as nested includes.
	MaxExpansions int
}

// ParameterTable holds the parameters bound while expanding one file.
// Keys are overwritten by later tags but never removed.
type ParameterTable map[string]string

// Bind sets key to value.
func (p ParameterTable) Bind(key, value string) {
	p[key] = value
}

// Keys returns the bound keys in sorted order.
func (p ParameterTable) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ExpansionContext is the mutable state of one Expand call.
type ExpansionContext struct {
	Params      ParameterTable
	Document    string
	Injections  []string
	Diagnostics []errors.Diagnostic
	Iterations  int
}

func newExpansionContext(text string) *ExpansionContext {
	return &ExpansionContext{
		Params:   make(ParameterTable),
		Document: text,
	}
}

func (ec *ExpansionContext) result() *Result {
	return &Result{
		Text:           ec.Document,
		HeadInjections: ec.Injections,
		Diagnostics:    ec.Diagnostics,
		Iterations:     ec.Iterations,
	}
}

// Result is the outcome of expanding one file.
type Result struct {
	Text           string
	HeadInjections []string
	Diagnostics    []errors.Diagnostic
	Iterations     int
}

// Expander performs component expansion against a registry.
type Expander struct {
	registry *registry.ComponentRegistry
	matcher  *registry.TagMatcher
	config   Config
	logger   logging.Logger
	readFile func(string) ([]byte, error)
}

// NewExpander creates an expander resolving components through reg.
func NewExpander(reg *registry.ComponentRegistry, config Config, logger logging.Logger) *Expander {
	if config.MaxExpansions <= 0 {
		config.MaxExpansions = DefaultMaxExpansions
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Expander{
		registry: reg,
		matcher:  registry.NewTagMatcher(config.Syntax),
		config:   config,
		logger:   logger.WithComponent("expander"),
		readFile: os.ReadFile,
	}
}

// Expand rewrites every component tag in text. Text without tags is
// returned unchanged. When the iteration cap is hit the partial result is
// returned together with an error matching errors.ErrExpansionDepthExceeded.
func (e *Expander) Expand(ctx context.Context, text string) (*Result, error) {
	ec := newExpansionContext(text)

	for {
		tag, ok := e.matcher.First(ec.Document)
		if !ok {
			return ec.result(), nil
		}

		if ec.Iterations >= e.config.MaxExpansions {
			err := errors.ErrDepthExceeded(e.config.MaxExpansions, tag.Raw)
			ec.Diagnostics = append(ec.Diagnostics, errors.Diagnostic{
				Code:      errors.CodeExpansionDepthExceeded,
				Component: tag.Name,
				Message:   err.Message,
				Severity:  errors.ErrorSeverityError,
			})
			return ec.result(), err
		}

		if err := ctx.Err(); err != nil {
			return ec.result(), err
		}

		ec.Iterations++
		if err := e.resolve(ctx, ec, tag); err != nil {
			return ec.result(), err
		}
	}
}

// resolve expands a single located tag into ec.Document.
func (e *Expander) resolve(ctx context.Context, ec *ExpansionContext, tag registry.Tag) error {
	for _, attr := range registry.ParseAttributes(tag.Attrs) {
		ec.Params.Bind(attr.Key, attr.Value)
	}

	def, err := e.registry.Lookup(tag.Name)
	if err != nil {
		e.recordMissing(ctx, ec, tag, def, err)
		return nil
	}

	content, err := e.readFile(def.BodyPath)
	if err != nil {
		return errors.ErrIO("read component body", def.BodyPath, err).WithComponent(tag.Name)
	}

	body := e.bindParameters(string(content), ec.Params)

	// Links go in before the splice so the tag offsets stay valid.
	if def.StylePath != "" {
		tag = e.inject(ec, tag, fmt.Sprintf("<link rel=\"stylesheet\" href=\"%s\">\n", e.assetURL(tag.Name, ".css")))
	}
	if def.ScriptPath != "" {
		tag = e.inject(ec, tag, fmt.Sprintf("<script defer src=\"%s\"></script>\n", e.assetURL(tag.Name, ".js")))
	}

	ec.Document = ec.Document[:tag.Start] + body + ec.Document[tag.End:]
	return nil
}

// bindParameters fills every bound placeholder in body.
func (e *Expander) bindParameters(body string, params ParameterTable) string {
	for _, key := range params.Keys() {
		placeholder := e.matcher.Placeholder(key)
		if !strings.Contains(body, placeholder) {
			continue
		}
		body = strings.ReplaceAll(body, placeholder, e.resolveValue(params[key]))
	}
	return body
}

// resolveValue applies the template and none sentinels.
func (e *Expander) resolveValue(value string) string {
	syntax := e.config.Syntax
	switch {
	case syntax.TemplatePrefix != "" && strings.HasPrefix(value, syntax.TemplatePrefix):
		return e.matcher.Render(strings.TrimPrefix(value, syntax.TemplatePrefix))
	case syntax.NonePrefix != "" && strings.HasPrefix(value, syntax.NonePrefix):
		return ""
	default:
		return value
	}
}

// inject inserts link before the first </head> unless it is already in the
// document, shifting tag when the insertion lands before it.
func (e *Expander) inject(ec *ExpansionContext, tag registry.Tag, link string) registry.Tag {
	if strings.Contains(ec.Document, link) {
		return tag
	}
	idx := strings.Index(ec.Document, headClose)
	if idx < 0 || (idx > tag.Start && idx < tag.End) {
		return tag
	}

	ec.Document = ec.Document[:idx] + link + ec.Document[idx:]
	ec.Injections = append(ec.Injections, link)

	if idx <= tag.Start {
		tag.Start += len(link)
		tag.End += len(link)
	}
	return tag
}

func (e *Expander) assetURL(name, ext string) string {
	return e.config.RootPlaceholder + "/" + path.Join(e.config.ComponentsURL, name, name+ext)
}

// recordMissing swaps the tag for an inline marker and records a diagnostic.
func (e *Expander) recordMissing(ctx context.Context, ec *ExpansionContext, tag registry.Tag, def *registry.ComponentDefinition, err error) {
	var marker string
	d := errors.Diagnostic{
		Component: tag.Name,
		Message:   err.Error(),
		Severity:  errors.ErrorSeverityWarning,
	}

	if def == nil {
		marker = fmt.Sprintf("<!-- ERROR: Component '%s' directory not found. -->", tag.Name)
		d.Code = errors.CodeMissingComponentDirectory
		dir, entries := e.registry.NearestListing(tag.Name)
		d.Details = append([]string{"nearest existing directory: " + dir}, entries...)
	} else {
		marker = fmt.Sprintf("<!-- ERROR: HTML file for Component '%s' not found. -->", tag.Name)
		d.Code = errors.CodeMissingComponentBody
		d.Details = []string{"expected " + e.registry.BodyPath(tag.Name)}
	}

	e.logger.Warn(ctx, err, "Component could not be resolved",
		"code", d.Code,
		"tag", tag.Raw,
	)

	ec.Diagnostics = append(ec.Diagnostics, d)
	ec.Document = ec.Document[:tag.Start] + marker + ec.Document[tag.End:]
}
