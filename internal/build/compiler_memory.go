package build

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/conneroisu/pagesmith/internal/errors"
)

// CompileCall records one compilation handled by a MemoryCompiler.
type CompileCall struct {
	Kind string
	Src  string
	Dst  string
}

// MemoryCompiler is an in-process Compiler. By default it writes the source
// unchanged to the destination.
type MemoryCompiler struct {
	// Transform, when set, produces the compiled text.
	Transform func(kind, source string) (string, error)
	// SourceMaps makes every unit also write <dst>.map.
	SourceMaps bool

	mu       sync.Mutex
	calls    []CompileCall
	failures map[string]error
}

// NewMemoryCompiler creates an in-memory compiler.
func NewMemoryCompiler() *MemoryCompiler {
	return &MemoryCompiler{failures: make(map[string]error)}
}

// FailOn makes compilation of src fail with err.
func (m *MemoryCompiler) FailOn(src string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[src] = err
}

// Calls returns the compilations performed so far.
func (m *MemoryCompiler) Calls() []CompileCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompileCall(nil), m.calls...)
}

// CompileStyle implements Compiler.
func (m *MemoryCompiler) CompileStyle(ctx context.Context, src, dst string) error {
	return m.compile(ctx, "style", src, dst)
}

// CompileScript implements Compiler.
func (m *MemoryCompiler) CompileScript(ctx context.Context, src, dst string) error {
	return m.compile(ctx, "script", src, dst)
}

func (m *MemoryCompiler) compile(ctx context.Context, kind, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.calls = append(m.calls, CompileCall{Kind: kind, Src: src, Dst: dst})
	failure := m.failures[src]
	m.mu.Unlock()

	if failure != nil {
		return errors.ErrCompilerFailed(src, failure)
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return errors.ErrCompilerFailed(src, err)
	}

	out := string(data)
	if m.Transform != nil {
		if out, err = m.Transform(kind, out); err != nil {
			return errors.ErrCompilerFailed(src, err)
		}
	}

	if err := os.WriteFile(dst, []byte(out), 0644); err != nil {
		return errors.ErrCompilerFailed(src, err)
	}
	if m.SourceMaps {
		sourceMap := fmt.Sprintf(`{"version":3,"file":%q}`, dst)
		if err := os.WriteFile(dst+".map", []byte(sourceMap), 0644); err != nil {
			return errors.ErrCompilerFailed(src, err)
		}
	}
	return nil
}
