package build

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/conneroisu/pagesmith/internal/config"
	"github.com/conneroisu/pagesmith/internal/errors"
	"github.com/conneroisu/pagesmith/internal/i18n"
	"github.com/conneroisu/pagesmith/internal/logging"
	"github.com/conneroisu/pagesmith/internal/registry"
	"github.com/conneroisu/pagesmith/internal/renderer"
	"github.com/conneroisu/pagesmith/internal/scanner"
)

// Options selects the variant of a build run.
type Options struct {
	// Fresh clears the output tree and rebuilds every file.
	Fresh bool
	// Publish strips .html from internal links after compilation.
	Publish bool
}

// BuildCallback is called when a build completes. err is nil on success.
type BuildCallback func(report *Report, err error)

// Pipeline runs builds for one site. Runs are serialised.
type Pipeline struct {
	paths        config.PathsConfig
	syntax       config.SyntaxConfig
	scanner      *scanner.Scanner
	registry     *registry.ComponentRegistry
	resolver     *registry.DependencyResolver
	expander     *renderer.Expander
	snippets     *renderer.SnippetExpander
	translations *i18n.Loader
	compiler     Compiler
	state        *State
	metrics      *BuildMetrics
	logger       *logging.PagesmithLogger
	now          func() time.Time

	mu        sync.Mutex
	callbacks []BuildCallback
}

// NewPipeline wires a pipeline for cfg. Relative paths are resolved against
// the working directory.
func NewPipeline(cfg *config.Config, compiler Compiler, logger *logging.PagesmithLogger) (*Pipeline, error) {
	paths, err := absolutePaths(cfg.Paths)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	reg := registry.NewComponentRegistry(paths.Components)
	matcher := registry.NewTagMatcher(cfg.Syntax.Syntax)

	return &Pipeline{
		paths:    paths,
		syntax:   cfg.Syntax,
		scanner:  scanner.NewScanner(paths.Source, cfg.Watch.Ignore, logger),
		registry: reg,
		resolver: registry.NewDependencyResolver(paths.Components, matcher, logger),
		expander: renderer.NewExpander(reg, renderer.Config{
			Syntax:          cfg.Syntax.Syntax,
			RootPlaceholder: cfg.Syntax.RootPlaceholder,
			ComponentsURL:   cfg.ComponentsURL(),
			MaxExpansions:   cfg.Build.MaxExpansions,
		}, logger),
		snippets:     renderer.NewSnippetExpander(paths.SharedCode, cfg.Syntax.Syntax, cfg.Build.MaxExpansions, logger),
		translations: i18n.NewLoader(paths.PageText, logger),
		compiler:     compiler,
		state:        NewState(paths.StateFile),
		metrics:      NewBuildMetrics(),
		logger:       logger,
		now:          time.Now,
	}, nil
}

func absolutePaths(p config.PathsConfig) (config.PathsConfig, error) {
	fields := []*string{&p.Source, &p.Output, &p.Components, &p.SharedCode, &p.PageText, &p.PriorityList, &p.StateFile}
	for _, field := range fields {
		abs, err := filepath.Abs(*field)
		if err != nil {
			return p, errors.ErrIO("resolve path", *field, err)
		}
		*field = abs
	}
	return p, nil
}

// AddCallback registers a function run after every build.
func (p *Pipeline) AddCallback(callback BuildCallback) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callbacks = append(p.callbacks, callback)
}

// Metrics returns the metrics collected across runs.
func (p *Pipeline) Metrics() *BuildMetrics {
	return p.metrics
}

// Registry returns the component registry.
func (p *Pipeline) Registry() *registry.ComponentRegistry {
	return p.registry
}

// Resolver returns the dependency resolver.
func (p *Pipeline) Resolver() *registry.DependencyResolver {
	return p.resolver
}

// Scanner returns the source scanner.
func (p *Pipeline) Scanner() *scanner.Scanner {
	return p.scanner
}

// Paths returns the resolved site paths.
func (p *Pipeline) Paths() config.PathsConfig {
	return p.paths
}

// State returns the build marker.
func (p *Pipeline) State() *State {
	return p.state
}

// Run performs one build. Content problems such as missing components are
// reported in the returned Report and do not fail the build; a non-nil
// error means the build was aborted and the marker was not written.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Report, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := p.now()
	report := newReport(start, opts)
	perf := p.logger.StartOperation("build")

	err := p.run(ctx, opts, report)
	report.Duration = perf.Elapsed()

	if err != nil {
		perf.EndWithError(ctx, err)
	} else {
		perf.End(ctx,
			"staged", len(report.Staged),
			"diagnostics", report.Diagnostics.Count(),
		)
	}

	p.metrics.RecordBuild(report, err)
	for _, callback := range p.callbacks {
		callback(report, err)
	}

	return report, err
}

func (p *Pipeline) run(ctx context.Context, opts Options, report *Report) error {
	// Nothing in the output tree may change before the order file is valid.
	priority, err := LoadPriorityList(p.paths.PriorityList, p.registry)
	if err != nil {
		return err
	}

	translations, err := p.translations.Load(ctx)
	if err != nil {
		return err
	}
	report.Languages = translations.Languages()

	threshold, err := p.prepareOutput(ctx, opts)
	if err != nil {
		return err
	}

	p.registry.Invalidate()
	inventory, err := p.scanner.Scan(ctx)
	if err != nil {
		return err
	}
	report.Scanned = inventory.Len()
	report.Kinds = make(map[string]int)
	for kind, n := range inventory.CountByKind() {
		report.Kinds[kind.String()] = n
	}

	changed := inventory.ChangedSince(threshold)
	report.Changed = changed.Sorted()

	rebuild := p.resolver.Close(ctx, changed, inventory.HTMLFiles())
	report.Rebuilt = rebuild.Sorted()
	p.logger.Info(ctx, "Rebuild set computed",
		"changed", changed.Len(),
		"rebuild", rebuild.Len(),
	)

	var styles, scripts []unit
	stage := func(src string) error {
		u, err := p.stage(ctx, src, translations, report)
		if err != nil {
			return err
		}
		switch u.kind {
		case scanner.KindStyle:
			styles = append(styles, u)
		case scanner.KindScript:
			scripts = append(scripts, u)
		}
		return nil
	}

	staged := registry.NewPathSet()
	for _, entry := range priority {
		files, err := directFiles(filepath.Join(p.paths.Components, entry))
		if err != nil {
			return err
		}
		for _, file := range files {
			if !rebuild.Has(file) || !staged.Add(file) {
				continue
			}
			p.logger.Debug(ctx, "Staging prioritized component file", "component", entry, "path", file)
			if err := stage(file); err != nil {
				return err
			}
			report.Prioritized = append(report.Prioritized, file)
		}
	}

	for _, file := range report.Rebuilt {
		if !staged.Add(file) {
			continue
		}
		if err := stage(file); err != nil {
			return err
		}
	}

	if err := p.compile(ctx, styles, scripts, report); err != nil {
		return err
	}

	if report.RemovedMaps, err = removeSourceMaps(p.paths.Output); err != nil {
		return err
	}

	if opts.Publish {
		if report.PublishedFiles, err = publishTree(p.paths.Output); err != nil {
			return err
		}
		p.logger.Info(ctx, "Rewrote links for static hosting", "files", report.PublishedFiles)
	}

	return p.state.Record(report.StartedAt)
}

// prepareOutput readies the output tree and returns the change threshold.
func (p *Pipeline) prepareOutput(ctx context.Context, opts Options) (time.Time, error) {
	threshold := time.Time{}
	if opts.Fresh {
		p.logger.Info(ctx, "Fresh build: clearing output", "output", p.paths.Output)
		// A fresh build aborted after this point must leave a full build
		// behind it, not an incremental one against a cleared tree.
		if err := p.state.Reset(); err != nil {
			return threshold, err
		}
		if err := os.RemoveAll(p.paths.Output); err != nil {
			return threshold, errors.ErrIO("clear output directory", p.paths.Output, err)
		}
	} else {
		threshold = p.state.LastBuild()
	}

	if err := os.MkdirAll(p.paths.Output, 0755); err != nil {
		return threshold, errors.ErrIO("create output directory", p.paths.Output, err)
	}
	return threshold, nil
}

// unit is a staged stylesheet or script awaiting compilation.
type unit struct {
	kind   scanner.Kind
	source string
	staged string
	target string
}

// stage copies src into the output tree and applies the passes for its kind.
func (p *Pipeline) stage(ctx context.Context, src string, translations i18n.Translations, report *Report) (unit, error) {
	if err := ctx.Err(); err != nil {
		return unit{}, err
	}

	rel, err := filepath.Rel(p.paths.Source, src)
	if err != nil {
		return unit{}, errors.ErrIO("relate source file", src, err)
	}
	outRel := OutputRel(filepath.ToSlash(rel))
	u := unit{
		kind:   scanner.KindOf(src),
		source: src,
		staged: filepath.Join(p.paths.Output, filepath.FromSlash(outRel)),
		target: filepath.Join(p.paths.Output, filepath.FromSlash(CompiledRel(outRel))),
	}

	if u.target != u.staged {
		if err := os.Remove(u.target); err != nil && !os.IsNotExist(err) {
			return u, errors.ErrIO("remove stale output", u.target, err)
		}
	}
	if err := copyFile(src, u.staged); err != nil {
		return u, err
	}
	report.Staged = append(report.Staged, u.staged)

	data, err := os.ReadFile(u.staged)
	if err != nil {
		return u, errors.ErrIO("read staged file", u.staged, err)
	}
	if !utf8.Valid(data) {
		return u, nil
	}

	content := string(data)
	prefix := RootPrefix(Depth(outRel))
	placeholder := p.syntax.RootPlaceholder

	switch u.kind {
	case scanner.KindStyle:
		content = ReplaceRootOnLines(content, p.syntax.ScssImport, placeholder, prefix)
	case scanner.KindScript:
		if content, err = p.expand(ctx, p.snippets.Expand, content, u.staged, report); err != nil {
			return u, err
		}
	case scanner.KindHTML:
		if content, err = p.expand(ctx, p.expander.Expand, content, u.staged, report); err != nil {
			return u, err
		}
	}
	content = ReplaceRoot(content, placeholder, prefix)

	if content != string(data) {
		if err := os.WriteFile(u.staged, []byte(content), 0644); err != nil {
			return u, errors.ErrIO("write staged file", u.staged, err)
		}
	}

	if u.kind == scanner.KindHTML && len(translations) > 0 {
		written, err := i18n.WriteVariants(u.staged, content, translations)
		report.Variants = append(report.Variants, written...)
		if err != nil {
			return u, err
		}
	}

	return u, nil
}

type expandFunc func(ctx context.Context, text string) (*renderer.Result, error)

// expand runs an expansion pass and records its diagnostics. Hitting the
// iteration cap keeps the partial text; any other error aborts the build.
func (p *Pipeline) expand(ctx context.Context, fn expandFunc, content, file string, report *Report) (string, error) {
	result, err := fn(ctx, content)
	if result != nil {
		report.Diagnostics.AddAll(file, result.Diagnostics)
	}
	if err != nil {
		if stderrors.Is(err, errors.ErrExpansionDepthExceeded) {
			p.logger.Error(ctx, err, "Expansion stopped at iteration cap", "file", file)
			return result.Text, nil
		}
		return content, err
	}
	return result.Text, nil
}

// compile hands every staged unit to the compiler. Failures are counted and
// never abort the batch.
func (p *Pipeline) compile(ctx context.Context, styles, scripts []unit, report *Report) error {
	report.Styles.Total = len(styles)
	for _, u := range styles {
		ok, err := p.compileUnit(ctx, p.compiler.CompileStyle, u, report)
		if err != nil {
			return err
		}
		if ok {
			report.Styles.Compiled++
		}
	}
	p.logger.Info(ctx, report.StyleSummary())

	report.Scripts.Total = len(scripts)
	for _, u := range scripts {
		ok, err := p.compileUnit(ctx, p.compiler.CompileScript, u, report)
		if err != nil {
			return err
		}
		if ok {
			report.Scripts.Compiled++
		}
	}
	p.logger.Info(ctx, report.ScriptSummary())

	return nil
}

func (p *Pipeline) compileUnit(
	ctx context.Context,
	fn func(ctx context.Context, src, dst string) error,
	u unit,
	report *Report,
) (bool, error) {
	err := fn(ctx, u.staged, u.target)
	if err == nil {
		return true, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}

	p.logger.Warn(ctx, err, "Compilation failed", "source", u.source)
	report.Failures = append(report.Failures, CompileFailure{Source: u.source, Error: err.Error()})
	report.Diagnostics.Add(errors.Diagnostic{
		Code:     errors.CodeExternalCompilerFailure,
		File:     u.source,
		Message:  err.Error(),
		Severity: errors.ErrorSeverityError,
	})
	return false, nil
}

// directFiles lists the regular files directly inside dir, sorted.
func directFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.ErrIO("read component directory", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
