package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/conneroisu/pagesmith/internal/config"
	"github.com/stretchr/testify/require"
)

// Site layout used by the fixtures, relative to the project root.
const (
	SourceDir     = "edit-me"
	OutputDir     = "actual-website-do-not-edit"
	ComponentsDir = "edit-me/shared/reusables"
	SharedCodeDir = "edit-me/shared/code"
	PageTextDir   = "edit-me/shared/page_text"
	PriorityList  = "edit-me/shared/reusables-compilation-order.txt"
	StateFile     = ".last_compiled"
)

// CreateTempSite creates a project root holding files (slash-separated
// relative path -> content) and returns its path.
func CreateTempSite(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	WriteTree(t, root, files)
	return root
}

// WriteTree writes files under root, creating directories as needed.
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		WriteFile(t, filepath.Join(root, filepath.FromSlash(rel)), content)
	}
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// ReadFile returns the content of path, failing the test if it cannot be read.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// FileExists reports whether path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// SetModTime sets both access and modification time of path.
func SetModTime(t *testing.T, path string, modTime time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, modTime, modTime))
}

// AgeTree moves the modification time of every file under root into the past.
func AgeTree(t *testing.T, root string, age time.Duration) {
	t.Helper()
	past := time.Now().Add(-age)
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return os.Chtimes(path, past, past)
		}
		return nil
	})
	require.NoError(t, err)
}

// CreateTestConfig returns the default configuration with every path rooted
// at projectDir.
func CreateTestConfig(projectDir string) *config.Config {
	cfg := config.Default()
	cfg.Paths = config.PathsConfig{
		Source:       filepath.Join(projectDir, SourceDir),
		Output:       filepath.Join(projectDir, OutputDir),
		Components:   filepath.Join(projectDir, filepath.FromSlash(ComponentsDir)),
		SharedCode:   filepath.Join(projectDir, filepath.FromSlash(SharedCodeDir)),
		PageText:     filepath.Join(projectDir, filepath.FromSlash(PageTextDir)),
		PriorityList: filepath.Join(projectDir, filepath.FromSlash(PriorityList)),
		StateFile:    filepath.Join(projectDir, StateFile),
	}
	return cfg
}
