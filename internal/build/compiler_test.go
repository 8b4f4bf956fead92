package build

import (
	"context"
	stderrors "errors"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/conneroisu/pagesmith/internal/errors"
	"github.com/conneroisu/pagesmith/internal/testutils"
	"github.com/conneroisu/pagesmith/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandArgv(t *testing.T) {
	c := Command{Name: "tsc", Args: []string{"--target", "es2015", "{src}", "--outFile", "{dst}"}}
	assert.Equal(t,
		[]string{"--target", "es2015", "a.ts", "--outFile", "a.js"},
		c.argv("a.ts", "a.js"))
	assert.Equal(t, "tsc --target es2015 {src} --outFile {dst}", c.String())
}

func TestNewExecCompilerValidation(t *testing.T) {
	sass := Command{Name: "sass", Args: []string{"{src}", "{dst}"}}
	tsc := Command{Name: "tsc", Args: []string{"{src}", "--outFile", "{dst}"}}

	tests := []struct {
		name    string
		style   Command
		script  Command
		wantErr string
	}{
		{name: "defaults", style: sass, script: tsc},
		{name: "absolute allowed binary", style: Command{Name: "/usr/bin/sass"}, script: tsc},
		{name: "unknown command", style: Command{Name: "bash", Args: []string{"-c", "x"}}, script: tsc, wantErr: "not allowed"},
		{name: "injected argument", style: sass, script: Command{Name: "tsc", Args: []string{"; rm -rf /"}}, wantErr: "shell metacharacter"},
		{name: "empty command", style: Command{}, script: tsc, wantErr: "no compiler command configured"},
		{name: "cp is not a compiler", style: Command{Name: "cp", Args: []string{"{src}", "{dst}"}}, script: tsc, wantErr: "not allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewExecCompiler(tt.style, tt.script, validation.Compilers, nil)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestExecCompilerRuns(t *testing.T) {
	if _, err := exec.LookPath("cp"); err != nil {
		t.Skip("cp not available")
	}

	root := testutils.CreateTempSite(t, map[string]string{"a.scss": "a { }"})
	copyCmd := Command{Name: "cp", Args: []string{"{src}", "{dst}"}}
	c, err := NewExecCompiler(copyCmd, copyCmd, validation.Allowlist{"cp": true}, nil)
	require.NoError(t, err)

	src := filepath.Join(root, "a.scss")
	dst := filepath.Join(root, "a.css")
	require.NoError(t, c.CompileStyle(context.Background(), src, dst))
	assert.Equal(t, "a { }", testutils.ReadFile(t, dst))

	err = c.CompileScript(context.Background(), filepath.Join(root, "missing.ts"), filepath.Join(root, "missing.js"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrExternalCompilerFailure)
	assert.True(t, errors.IsRecoverable(err))
	assert.True(t, strings.Contains(err.Error(), "cp failed"))
}

func TestMemoryCompiler(t *testing.T) {
	root := testutils.CreateTempSite(t, map[string]string{
		"a.scss": "a { }",
		"b.ts":   "let b = 1;",
	})
	m := NewMemoryCompiler()
	m.Transform = func(kind, source string) (string, error) {
		return "/* " + kind + " */" + source, nil
	}
	ctx := context.Background()

	require.NoError(t, m.CompileStyle(ctx, filepath.Join(root, "a.scss"), filepath.Join(root, "a.css")))
	require.NoError(t, m.CompileScript(ctx, filepath.Join(root, "b.ts"), filepath.Join(root, "b.js")))
	assert.Equal(t, "/* style */a { }", testutils.ReadFile(t, filepath.Join(root, "a.css")))
	assert.Equal(t, "/* script */let b = 1;", testutils.ReadFile(t, filepath.Join(root, "b.js")))

	m.FailOn(filepath.Join(root, "b.ts"), stderrors.New("type error"))
	err := m.CompileScript(ctx, filepath.Join(root, "b.ts"), filepath.Join(root, "b.js"))
	assert.ErrorIs(t, err, errors.ErrExternalCompilerFailure)

	assert.Len(t, m.Calls(), 3)
	assert.Equal(t, "style", m.Calls()[0].Kind)
}
