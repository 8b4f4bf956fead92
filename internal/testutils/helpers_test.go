package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTempSite(t *testing.T) {
	root := CreateTempSite(t, map[string]string{
		"edit-me/index.html":                             "<r-nav>",
		"edit-me/shared/reusables/nav/nav.html":          "<nav></nav>",
		"edit-me/shared/reusables/nav/nav.scss":          "nav{}",
		"edit-me/shared/reusables-compilation-order.txt": "nav/nav.html\n",
	})

	assert.Equal(t, "<r-nav>", ReadFile(t, filepath.Join(root, "edit-me", "index.html")))
	assert.True(t, FileExists(filepath.Join(root, "edit-me", "shared", "reusables", "nav", "nav.scss")))
	assert.False(t, FileExists(filepath.Join(root, "edit-me", "missing.html")))
}

func TestSetModTimeAndAgeTree(t *testing.T) {
	root := CreateTempSite(t, map[string]string{
		"a.html":     "a",
		"dir/b.html": "b",
	})

	AgeTree(t, root, time.Hour)
	for _, rel := range []string{"a.html", "dir/b.html"} {
		info, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
		require.NoError(t, err)
		assert.True(t, info.ModTime().Before(time.Now().Add(-50*time.Minute)), rel)
	}

	target := time.Now().Add(-24 * time.Hour).Truncate(time.Second)
	SetModTime(t, filepath.Join(root, "a.html"), target)
	info, err := os.Stat(filepath.Join(root, "a.html"))
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(target))
}

func TestCreateTestConfig(t *testing.T) {
	root := t.TempDir()
	cfg := CreateTestConfig(root)

	assert.Equal(t, filepath.Join(root, "edit-me"), cfg.Paths.Source)
	assert.Equal(t, filepath.Join(root, "actual-website-do-not-edit"), cfg.Paths.Output)
	assert.Equal(t, filepath.Join(root, "edit-me", "shared", "reusables"), cfg.Paths.Components)
	assert.Equal(t, filepath.Join(root, ".last_compiled"), cfg.Paths.StateFile)
	assert.Equal(t, "shared/reusables", cfg.ComponentsURL())
	assert.NoError(t, cfg.Validate())
}
