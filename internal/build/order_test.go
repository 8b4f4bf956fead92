package build

import (
	"path/filepath"
	"testing"

	"github.com/conneroisu/pagesmith/internal/errors"
	"github.com/conneroisu/pagesmith/internal/registry"
	"github.com/conneroisu/pagesmith/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPriorityList(t *testing.T) {
	root := testutils.CreateTempSite(t, map[string]string{
		"components/top-bar/top-bar.html":   "",
		"components/footer/footer.html":     "",
		"components/forms/input/input.html": "",
		"components/file.txt":               "",
	})
	components := registry.NewComponentRegistry(filepath.Join(root, "components"))

	tests := []struct {
		name     string
		list     string
		expected []string
		wantErr  bool
	}{
		{
			name:     "order kept, comments and blanks skipped",
			list:     "# first\n\nfooter\n  top-bar  \n",
			expected: []string{"footer", "top-bar"},
		},
		{
			name:     "nested directories",
			list:     "forms/input\n",
			expected: []string{filepath.Join("forms", "input")},
		},
		{
			name:    "unknown entry",
			list:    "footer\nheader\n",
			wantErr: true,
		},
		{
			name:    "file instead of directory",
			list:    "file.txt\n",
			wantErr: true,
		},
		{
			name:    "escaping the components directory",
			list:    "../components\n",
			wantErr: true,
		},
		{
			name:    "absolute path",
			list:    filepath.Join(root, "components", "footer") + "\n",
			wantErr: true,
		},
		{
			name:     "only comments",
			list:     "# nothing\n",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listPath := filepath.Join(t.TempDir(), "order.txt")
			testutils.WriteFile(t, listPath, tt.list)

			entries, err := LoadPriorityList(listPath, components)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errors.ErrInvalidPriorityListEntry)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, entries)
		})
	}
}

func TestLoadPriorityListMissingFile(t *testing.T) {
	entries, err := LoadPriorityList(filepath.Join(t.TempDir(), "missing.txt"), registry.NewComponentRegistry(t.TempDir()))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
