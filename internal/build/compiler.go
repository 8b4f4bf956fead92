// Package build runs the incremental site build: inventory, dependency
// closure, priority-ordered staging with component expansion, external
// stylesheet and script compilation, and persistence of the build marker.
package build

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/conneroisu/pagesmith/internal/errors"
	"github.com/conneroisu/pagesmith/internal/logging"
	"github.com/conneroisu/pagesmith/internal/validation"
)

// Compiler turns staged sources into their compiled form.
type Compiler interface {
	// CompileStyle compiles the SCSS file src to the CSS file dst.
	CompileStyle(ctx context.Context, src, dst string) error
	// CompileScript compiles the TypeScript file src to the JavaScript file dst.
	CompileScript(ctx context.Context, src, dst string) error
}

// Command is an external compiler invocation. The placeholders {src} and
// {dst} in Args are replaced by the file paths of each unit.
type Command struct {
	Name string
	Args []string
}

func (c Command) argv(src, dst string) []string {
	args := make([]string, len(c.Args))
	for i, arg := range c.Args {
		arg = strings.ReplaceAll(arg, "{src}", src)
		args[i] = strings.ReplaceAll(arg, "{dst}", dst)
	}
	return args
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// ExecCompiler runs sass and tsc (or configured replacements) as
// subprocesses.
type ExecCompiler struct {
	style  Command
	script Command
	logger logging.Logger
}

// NewExecCompiler creates a subprocess compiler. Both commands must be in
// allowed, normally validation.Compilers.
func NewExecCompiler(style, script Command, allowed validation.Allowlist, logger logging.Logger) (*ExecCompiler, error) {
	for _, c := range []Command{style, script} {
		if err := validation.ValidateCompiler(c.Name, c.Args, allowed); err != nil {
			return nil, fmt.Errorf("command validation failed: %w", err)
		}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &ExecCompiler{
		style:  style,
		script: script,
		logger: logger.WithComponent("compiler"),
	}, nil
}

// CompileStyle runs the style command for one unit.
func (c *ExecCompiler) CompileStyle(ctx context.Context, src, dst string) error {
	return c.run(ctx, c.style, src, dst)
}

// CompileScript runs the script command for one unit.
func (c *ExecCompiler) CompileScript(ctx context.Context, src, dst string) error {
	return c.run(ctx, c.script, src, dst)
}

func (c *ExecCompiler) run(ctx context.Context, command Command, src, dst string) error {
	cmd := exec.CommandContext(ctx, command.Name, command.argv(src, dst)...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.ErrCompilerFailed(src,
			fmt.Errorf("%s failed: %w\nOutput: %s", command.Name, err, strings.TrimSpace(string(output))),
		).WithContext("command", command.String())
	}

	c.logger.Debug(ctx, "Compiled", "command", command.Name, "src", src, "dst", dst)
	return nil
}
