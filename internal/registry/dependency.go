package registry

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/conneroisu/pagesmith/internal/errors"
	"github.com/conneroisu/pagesmith/internal/logging"
)

// PathSet is a string-keyed set of file paths. Paths are stored cleaned.
type PathSet map[string]struct{}

// NewPathSet creates a set holding paths.
func NewPathSet(paths ...string) PathSet {
	set := make(PathSet, len(paths))
	for _, p := range paths {
		set.Add(p)
	}
	return set
}

// Add inserts p and reports whether it was new.
func (s PathSet) Add(p string) bool {
	p = filepath.Clean(p)
	if _, ok := s[p]; ok {
		return false
	}
	s[p] = struct{}{}
	return true
}

// Has reports whether p is in the set.
func (s PathSet) Has(p string) bool {
	_, ok := s[filepath.Clean(p)]
	return ok
}

// Len returns the number of paths.
func (s PathSet) Len() int {
	return len(s)
}

// Clone returns an independent copy.
func (s PathSet) Clone() PathSet {
	out := make(PathSet, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}

// Sorted returns the members in lexical order.
func (s PathSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both sets hold the same paths.
func (s PathSet) Equal(other PathSet) bool {
	if len(s) != len(other) {
		return false
	}
	for p := range s {
		if _, ok := other[p]; !ok {
			return false
		}
	}
	return true
}

// DependencyResolver computes rebuild sets by following "uses" edges from
// HTML files to the components they reference.
type DependencyResolver struct {
	componentsDir string
	matcher       *TagMatcher
	logger        logging.Logger
	readFile      func(string) ([]byte, error)
}

// NewDependencyResolver creates a resolver for components under componentsDir.
func NewDependencyResolver(componentsDir string, matcher *TagMatcher, logger logging.Logger) *DependencyResolver {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &DependencyResolver{
		componentsDir: filepath.Clean(componentsDir),
		matcher:       matcher,
		logger:        logger.WithComponent("closure"),
		readFile:      os.ReadFile,
	}
}

// IsComponentPath reports whether path lies under the components directory.
func (d *DependencyResolver) IsComponentPath(path string) bool {
	rel, err := filepath.Rel(d.componentsDir, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Close returns the closed rebuild set for changed over htmlFiles. The
// input set is not modified. When changed holds nothing under the
// components directory the result equals changed.
func (d *DependencyResolver) Close(ctx context.Context, changed PathSet, htmlFiles []string) PathSet {
	result := changed.Clone()

	frontier := NewPathSet()
	for p := range changed {
		if d.IsComponentPath(p) {
			frontier.Add(p)
		}
	}
	if frontier.Len() == 0 {
		return result
	}

	// Files do not change during a build, so each one is scanned at most once.
	refs := make(map[string][]string, len(htmlFiles))
	passes := 0

	for {
		passes++
		inserted := 0

		for _, file := range htmlFiles {
			file = filepath.Clean(file)
			if result.Has(file) {
				continue
			}

			bodies, scanned := refs[file]
			if !scanned {
				bodies = d.referencedBodies(ctx, file)
				refs[file] = bodies
			}

			for _, body := range bodies {
				if !frontier.Has(body) {
					continue
				}
				result.Add(file)
				if d.IsComponentPath(file) {
					frontier.Add(file)
				}
				inserted++
				break
			}
		}

		if inserted == 0 {
			break
		}
	}

	d.logger.Debug(ctx, "Closure computed",
		"changed", changed.Len(),
		"rebuild", result.Len(),
		"passes", passes,
	)

	return result
}

// CloseTree walks sourceRoot for HTML files and closes changed over them.
func (d *DependencyResolver) CloseTree(ctx context.Context, sourceRoot string, changed PathSet) (PathSet, error) {
	htmlFiles, err := HTMLFilesUnder(sourceRoot)
	if err != nil {
		return nil, err
	}
	return d.Close(ctx, changed, htmlFiles), nil
}

// Uses returns, for each readable file, the component names it references.
func (d *DependencyResolver) Uses(ctx context.Context, htmlFiles []string) map[string][]string {
	graph := make(map[string][]string, len(htmlFiles))
	for _, file := range htmlFiles {
		content, err := d.readFile(file)
		if err != nil {
			d.logUnreadable(ctx, file, err)
			continue
		}
		graph[filepath.Clean(file)] = d.matcher.Names(string(content))
	}
	return graph
}

// Dependents inverts a Uses graph: component name -> files referencing it,
// sorted.
func Dependents(uses map[string][]string) map[string][]string {
	out := make(map[string][]string)
	for file, names := range uses {
		for _, name := range names {
			out[name] = append(out[name], file)
		}
	}
	for name := range out {
		sort.Strings(out[name])
	}
	return out
}

// referencedBodies returns the expected body paths of every tag in file.
// Unreadable files reference nothing.
func (d *DependencyResolver) referencedBodies(ctx context.Context, file string) []string {
	content, err := d.readFile(file)
	if err != nil {
		d.logUnreadable(ctx, file, err)
		return nil
	}

	names := d.matcher.Names(string(content))
	bodies := make([]string, 0, len(names))
	for _, name := range names {
		bodies = append(bodies, ExpectedBodyPath(d.componentsDir, name))
	}
	return bodies
}

func (d *DependencyResolver) logUnreadable(ctx context.Context, file string, err error) {
	d.logger.Debug(ctx, "Skipping unreadable file",
		"code", errors.CodeUnreadableSourceFile,
		"path", file,
		"error", err.Error(),
	)
}

// HTMLFilesUnder lists every .html file below root, sorted.
func HTMLFilesUnder(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(path), BodyExt) {
			files = append(files, filepath.Clean(path))
		}
		return nil
	})
	if err != nil {
		return nil, errors.ErrIO("walk source tree", root, err)
	}
	sort.Strings(files)
	return files, nil
}
