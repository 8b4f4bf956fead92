package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/conneroisu/pagesmith/internal/config"
	"github.com/conneroisu/pagesmith/internal/logging"
	"github.com/conneroisu/pagesmith/internal/registry"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"l"},
	Short:   "List the reusable components",
	Long: `List every component under the components directory with the assets it
provides, and optionally the files that include it.

Examples:
  pagesmith list                  # Table of components
  pagesmith list -d               # Include the files using each component
  pagesmith list -f json          # Output as JSON
  pagesmith list -d -f yaml       # Output as YAML with dependents`,
	RunE: runList,
}

var (
	listFormat     string
	listDependents bool
)

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "Output format (table, json, yaml)")
	listCmd.Flags().BoolVarP(&listDependents, "dependents", "d", false, "Include the files that use each component")

	AddFlagValidation(listCmd, "format", func(format string) error {
		return ValidateFormat(format, []string{"table", "json", "yaml"})
	})
}

// componentEntry is one row of list output. Paths are relative to the
// source root.
type componentEntry struct {
	Name   string   `json:"name" yaml:"name"`
	Body   string   `json:"body,omitempty" yaml:"body,omitempty"`
	Style  string   `json:"style,omitempty" yaml:"style,omitempty"`
	Script string   `json:"script,omitempty" yaml:"script,omitempty"`
	UsedBy []string `json:"used_by,omitempty" yaml:"used_by,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
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

	entries, err := collectComponents(ctx, cfg, logger, listDependents)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 && strings.ToLower(listFormat) == "table" {
		fmt.Fprintf(out, "No components found in %s\n", cfg.Paths.Components)
		return nil
	}

	switch strings.ToLower(listFormat) {
	case "json":
		return outputJSON(out, entries)
	case "yaml":
		return outputYAML(out, entries)
	default:
		return outputComponentTable(out, entries, listDependents)
	}
}

func collectComponents(ctx context.Context, cfg *config.Config, logger logging.Logger, withDependents bool) ([]componentEntry, error) {
	reg := registry.NewComponentRegistry(cfg.Paths.Components)
	defs, err := reg.All()
	if err != nil {
		return nil, err
	}

	var dependents map[string][]string
	if withDependents {
		htmlFiles, err := registry.HTMLFilesUnder(cfg.Paths.Source)
		if err != nil {
			return nil, err
		}
		resolver := registry.NewDependencyResolver(
			cfg.Paths.Components,
			registry.NewTagMatcher(cfg.Syntax.Syntax),
			logger,
		)
		dependents = registry.Dependents(resolver.Uses(ctx, htmlFiles))
	}

	entries := make([]componentEntry, 0, len(defs))
	for _, def := range defs {
		entry := componentEntry{
			Name:   def.Name,
			Body:   sourceRel(cfg, def.BodyPath),
			Style:  sourceRel(cfg, def.StylePath),
			Script: sourceRel(cfg, def.ScriptPath),
		}
		for _, file := range dependents[def.Name] {
			entry.UsedBy = append(entry.UsedBy, sourceRel(cfg, file))
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// sourceRel shortens path to be relative to the source root. Empty paths
// stay empty.
func sourceRel(cfg *config.Config, path string) string {
	if path == "" {
		return ""
	}
	if rel, err := filepath.Rel(cfg.Paths.Source, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}

func outputComponentTable(w io.Writer, entries []componentEntry, withDependents bool) error {
	table := tablewriter.NewWriter(w)
	header := []string{"Component", "HTML", "SCSS", "TS"}
	if withDependents {
		header = append(header, "Used By")
	}
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)

	for _, entry := range entries {
		row := []string{entry.Name, mark(entry.Body), mark(entry.Style), mark(entry.Script)}
		if withDependents {
			row = append(row, strings.Join(entry.UsedBy, "\n"))
		}
		table.Append(row)
	}

	footer := make([]string, len(header))
	footer[0] = "Total " + strconv.Itoa(len(entries))
	table.SetFooter(footer)
	table.Render()
	return nil
}

func mark(path string) string {
	if path == "" {
		return "-"
	}
	return "✓"
}

func outputJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func outputYAML(w io.Writer, v interface{}) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}
