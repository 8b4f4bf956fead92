package cmd

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/conneroisu/pagesmith/internal/build"
	"github.com/conneroisu/pagesmith/internal/config"
	"github.com/conneroisu/pagesmith/internal/errors"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Build the site",
	Long: `Build the site into the output directory. Only files changed since the last
build, and the pages that include them, are rebuilt.

Components listed in the compilation order file
(edit-me/shared/reusables-compilation-order.txt by default) are staged first,
one directory name per line relative to the components directory. If the file
does not exist the build proceeds with no priority components; an entry naming
a missing directory stops the build before the output is touched.

Each file may resolve at most build.max_expansions component tags (default
1000). The limit counts every tag in the file, not nesting depth.

Examples:
  pagesmith build                 # Incremental build
  pagesmith build --fresh         # Clear the output and rebuild everything
  pagesmith build --publish       # Strip .html from internal links for hosting`,
	RunE: runBuild,
}

var (
	buildFresh   bool
	buildPublish bool
	buildVerbose bool
)

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().BoolVar(&buildFresh, "fresh", false, "Clear the output directory and rebuild everything")
	buildCmd.Flags().BoolVar(&buildPublish, "publish", false, "Strip .html from internal links after building")
	buildCmd.Flags().BoolVarP(&buildVerbose, "verbose", "v", false, "List every staged file")

	bindFlagToConfig(buildCmd.Flags(), "publish", "build.publish")
}

func runBuild(cmd *cobra.Command, args []string) error {
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

	out := cmd.OutOrStdout()
	if buildFresh {
		fmt.Fprintln(out, "🔨 Starting fresh build...")
	} else {
		fmt.Fprintln(out, "🔨 Starting build...")
	}

	report, err := pipeline.Run(ctx, build.Options{Fresh: buildFresh, Publish: cfg.Build.Publish})
	if err != nil {
		return withBuildSuggestions(cfg, err)
	}

	printReport(out, report, buildVerbose)
	printCompilerHints(out, cfg, report)
	return nil
}

// withBuildSuggestions attaches suggestions to the fatal errors a user can
// fix directly.
func withBuildSuggestions(cfg *config.Config, err error) error {
	if !stderrors.Is(err, errors.ErrInvalidPriorityListEntry) {
		return err
	}

	var pe *errors.PagesmithError
	entry := ""
	if stderrors.As(err, &pe) {
		entry = pe.Component
	}

	return errors.NewEnhancedError(
		"Invalid entry in the compilation order file",
		err,
		errors.PriorityListSuggestions(entry, &errors.SuggestionContext{
			Components:     componentNames(cfg.Paths.Components),
			ConfigPath:     configPath(),
			ComponentsPath: cfg.Paths.Components,
			PriorityList:   cfg.Paths.PriorityList,
		}),
	)
}

// printCompilerHints explains compiler failures caused by a missing
// executable, once per command.
func printCompilerHints(w io.Writer, cfg *config.Config, report *build.Report) {
	hinted := make(map[string]bool)
	for _, failure := range report.Failures {
		command := cfg.Build.ScriptCommand
		if strings.EqualFold(filepath.Ext(failure.Source), ".scss") {
			command = cfg.Build.StyleCommand
		}
		suggestions := errors.CompilerFailureSuggestions(command, failure.Error)
		if len(suggestions) < 2 || hinted[command] {
			continue
		}
		hinted[command] = true
		fmt.Fprint(w, errors.FormatSuggestions(fmt.Sprintf("\n%s could not be run.", command), suggestions))
	}
}

// componentNames lists the directories under the components root.
func componentNames(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names
}
