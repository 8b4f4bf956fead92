package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/conneroisu/pagesmith/internal/config"
	"github.com/conneroisu/pagesmith/internal/logging"
	"github.com/conneroisu/pagesmith/internal/registry"
	"github.com/spf13/cobra"
)

var depsCmd = &cobra.Command{
	Use:   "deps <file>...",
	Short: "Show which files a change would rebuild",
	Long: `Print the rebuild set for the given changed files: the files themselves
plus every HTML file that includes them, directly or through other
components.

Examples:
  pagesmith deps edit-me/shared/reusables/top-bar/top-bar.html
  pagesmith deps -f json edit-me/shared/reusables/button/button.html`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDeps,
}

var depsFormat string

func init() {
	rootCmd.AddCommand(depsCmd)

	depsCmd.Flags().StringVarP(&depsFormat, "format", "f", "text", "Output format (text, json, yaml)")

	AddFlagValidation(depsCmd, "format", func(format string) error {
		return ValidateFormat(format, []string{"text", "json", "yaml"})
	})
}

// closureResult is the deps output.
type closureResult struct {
	Changed []string `json:"changed" yaml:"changed"`
	Rebuild []string `json:"rebuild" yaml:"rebuild"`
}

func runDeps(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := signalContext()
	defer cancel()

	result, err := closeOver(ctx, cfg, logger, args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch strings.ToLower(depsFormat) {
	case "json":
		return outputJSON(out, result)
	case "yaml":
		return outputYAML(out, result)
	default:
		fmt.Fprintf(out, "%d file(s) to rebuild:\n", len(result.Rebuild))
		for _, file := range result.Rebuild {
			fmt.Fprintf(out, "  %s\n", file)
		}
		return nil
	}
}

// closeOver computes the rebuild set for files, reported relative to the
// source root.
func closeOver(ctx context.Context, cfg *config.Config, logger logging.Logger, files []string) (*closureResult, error) {
	source, err := filepath.Abs(cfg.Paths.Source)
	if err != nil {
		return nil, err
	}
	components, err := filepath.Abs(cfg.Paths.Components)
	if err != nil {
		return nil, err
	}

	changed := registry.NewPathSet()
	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			return nil, err
		}
		changed.Add(abs)
	}

	resolver := registry.NewDependencyResolver(components, registry.NewTagMatcher(cfg.Syntax.Syntax), logger)
	rebuild, err := resolver.CloseTree(ctx, source, changed)
	if err != nil {
		return nil, err
	}

	rel := func(paths []string) []string {
		out := make([]string, 0, len(paths))
		for _, p := range paths {
			if r, err := filepath.Rel(source, p); err == nil && !strings.HasPrefix(r, "..") {
				p = r
			}
			out = append(out, filepath.ToSlash(p))
		}
		return out
	}

	return &closureResult{
		Changed: rel(changed.Sorted()),
		Rebuild: rel(rebuild.Sorted()),
	}, nil
}
