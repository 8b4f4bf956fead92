package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/conneroisu/pagesmith/internal/build"
	"github.com/conneroisu/pagesmith/internal/config"
	"github.com/conneroisu/pagesmith/internal/logging"
	"github.com/conneroisu/pagesmith/internal/watcher"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Rebuild the site whenever a source file changes",
	Long: `Build once, then watch the source tree and run an incremental build after
each burst of changes. Builds never overlap.

Examples:
  pagesmith watch                 # Watch and rebuild
  pagesmith watch --fresh         # Start from a fresh build
  pagesmith watch --publish       # Strip .html from links on every build`,
	RunE: runWatch,
}

var (
	watchFresh   bool
	watchPublish bool
	watchVerbose bool
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVar(&watchFresh, "fresh", false, "Clear the output directory before the first build")
	watchCmd.Flags().BoolVar(&watchPublish, "publish", false, "Strip .html from internal links after each build")
	watchCmd.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "List changed files")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	pipeline, err := newPipeline(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	session := &watchSession{
		cfg:      cfg,
		pipeline: pipeline,
		logger:   logger,
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
		publish:  watchPublish || cfg.Build.Publish,
		verbose:  watchVerbose,
	}
	return session.run(ctx, watchFresh)
}

// watchSession runs an initial build and then one incremental build per
// debounced batch of source changes.
type watchSession struct {
	cfg      *config.Config
	pipeline *build.Pipeline
	logger   *logging.PagesmithLogger
	out      io.Writer
	errOut   io.Writer
	publish  bool
	verbose  bool
}

// run blocks until ctx is cancelled. Only a failure to set up the watcher is
// returned; build failures are reported and watching continues.
func (s *watchSession) run(ctx context.Context, fresh bool) error {
	fileWatcher, err := watcher.NewFileWatcher(s.cfg.Watch.Debounce, s.logger)
	if err != nil {
		return err
	}
	defer fileWatcher.Stop()

	fileWatcher.AddFilter(watcher.IgnoreFilter(s.cfg.Watch.Ignore))
	fileWatcher.AddFilter(watcher.ExcludeFilter(s.cfg.Paths.Output, s.cfg.Paths.StateFile))
	fileWatcher.AddFilter(watcher.NoEditorTempFilter)
	fileWatcher.AddHandler(s.handleChanges)

	if err := fileWatcher.AddRecursive(s.cfg.Paths.Source); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.cfg.Paths.Source, err)
	}

	s.build(ctx, fresh)

	if err := fileWatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	fmt.Fprintf(s.out, "👀 Watching %s for changes (Ctrl+C to stop)\n", s.cfg.Paths.Source)

	<-ctx.Done()
	fmt.Fprintln(s.out, "🛑 Stopped watching")
	return nil
}

func (s *watchSession) handleChanges(ctx context.Context, events []watcher.ChangeEvent) error {
	if s.verbose {
		fmt.Fprintln(s.out, "📁 File changes detected:")
		for _, event := range events {
			fmt.Fprintf(s.out, "   %s: %s\n", event.Type, event.Path)
		}
	} else {
		fmt.Fprintf(s.out, "📁 %d file(s) changed\n", len(events))
	}

	s.build(ctx, false)
	return nil
}

func (s *watchSession) build(ctx context.Context, fresh bool) {
	report, err := s.pipeline.Run(ctx, build.Options{Fresh: fresh, Publish: s.publish})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		printError(s.errOut, withBuildSuggestions(s.cfg, err))
		return
	}
	printReport(s.out, report, false)
}
