package build

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/conneroisu/pagesmith/internal/errors"
)

// pageGroupPattern matches the grouping directory pages are kept in.
var pageGroupPattern = regexp.MustCompile(`(^|/)pages/[^/]+/`)

// OutputRel maps a slash-separated path relative to the source root to its
// location relative to the output root. The first pages/<name>/ segment is
// dropped, so pages/index/index.html is served as index.html. Only a whole
// path segment named pages matches.
func OutputRel(rel string) string {
	if loc := pageGroupPattern.FindStringSubmatchIndex(rel); loc != nil {
		// loc[3] ends the leading separator, if any.
		return rel[:loc[3]] + rel[loc[1]:]
	}
	return rel
}

// CompiledRel maps a staged source to the name of its compiled output:
// .ts becomes .js and .scss becomes .css. Other names are returned as is.
func CompiledRel(rel string) string {
	switch strings.ToLower(path.Ext(rel)) {
	case ".ts":
		return strings.TrimSuffix(rel, path.Ext(rel)) + ".js"
	case ".scss":
		return strings.TrimSuffix(rel, path.Ext(rel)) + ".css"
	default:
		return rel
	}
}

// Depth returns the number of directories between the output root and the
// slash-separated output-relative path rel.
func Depth(rel string) int {
	return strings.Count(strings.Trim(rel, "/"), "/")
}

// RootPrefix returns the relative path from a file at depth back to the
// output root: "../" repeated depth times.
func RootPrefix(depth int) string {
	return strings.Repeat("../", depth)
}

// ReplaceRoot replaces every "<placeholder>/" in content with prefix.
func ReplaceRoot(content, placeholder, prefix string) string {
	return strings.ReplaceAll(content, placeholder+"/", prefix)
}

// ReplaceRootOnLines applies ReplaceRoot only to lines containing marker,
// such as SCSS @use imports.
func ReplaceRootOnLines(content, marker, placeholder, prefix string) string {
	if !strings.Contains(content, marker) {
		return content
	}
	lines := strings.SplitAfter(content, "\n")
	for i, line := range lines {
		if strings.Contains(line, marker) {
			lines[i] = ReplaceRoot(line, placeholder, prefix)
		}
	}
	return strings.Join(lines, "")
}

// copyFile copies src to dst, creating dst's directory.
func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errors.ErrIO("create output directory", filepath.Dir(dst), err)
	}

	in, err := os.Open(src)
	if err != nil {
		return errors.ErrIO("open source file", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return errors.ErrIO("create output file", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.ErrIO("copy source file", dst, err)
	}
	if err := out.Close(); err != nil {
		return errors.ErrIO("close output file", dst, err)
	}
	return nil
}

// removeSourceMaps deletes every .map file below root and returns how many
// were removed.
func removeSourceMaps(root string) (int, error) {
	removed := 0
	err := filepath.WalkDir(root, func(p string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() && filepath.Ext(p) == ".map" {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, errors.ErrIO("remove source maps", root, err)
	}
	return removed, nil
}
