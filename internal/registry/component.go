package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/conneroisu/pagesmith/internal/errors"
)

// Source asset extensions looked up next to a component body.
const (
	BodyExt   = ".html"
	StyleExt  = ".scss"
	ScriptExt = ".ts"
)

// ComponentDefinition describes one component directory. Optional asset
// paths are empty when the file does not exist.
type ComponentDefinition struct {
	Name       string `json:"name" yaml:"name"`
	Dir        string `json:"dir" yaml:"dir"`
	BodyPath   string `json:"body,omitempty" yaml:"body,omitempty"`
	StylePath  string `json:"style,omitempty" yaml:"style,omitempty"`
	ScriptPath string `json:"script,omitempty" yaml:"script,omitempty"`
}

// HasBody reports whether the component's HTML body exists.
func (c *ComponentDefinition) HasBody() bool {
	return c.BodyPath != ""
}

// ComponentRegistry resolves component names against the components root
// by directory convention: <root>/<name>/<name>.{html,scss,ts}.
// Lookups are cached until Invalidate is called.
type ComponentRegistry struct {
	root  string
	cache map[string]*ComponentDefinition
	mutex sync.RWMutex
}

// NewComponentRegistry creates a registry rooted at the components directory.
func NewComponentRegistry(root string) *ComponentRegistry {
	return &ComponentRegistry{
		root:  filepath.Clean(root),
		cache: make(map[string]*ComponentDefinition),
	}
}

// Root returns the components directory.
func (r *ComponentRegistry) Root() string {
	return r.root
}

// BodyPath returns the conventional body path for name whether or not it exists.
func (r *ComponentRegistry) BodyPath(name string) string {
	return ExpectedBodyPath(r.root, name)
}

// ExpectedBodyPath returns <root>/<name>/<name>.html.
func ExpectedBodyPath(root, name string) string {
	return filepath.Join(root, name, name+BodyExt)
}

// Lookup resolves a component. A missing directory yields an error matching
// errors.ErrMissingComponentDirectory; a directory without a body yields the
// definition together with an error matching errors.ErrMissingComponentBody.
func (r *ComponentRegistry) Lookup(name string) (*ComponentDefinition, error) {
	r.mutex.RLock()
	def, ok := r.cache[name]
	r.mutex.RUnlock()

	if !ok {
		var err error
		def, err = r.resolve(name)
		if err != nil {
			return nil, err
		}
		r.mutex.Lock()
		r.cache[name] = def
		r.mutex.Unlock()
	}

	if def == nil {
		return nil, errors.NewContentError(
			errors.CodeMissingComponentDirectory,
			fmt.Sprintf("component '%s' directory not found", name),
		).WithComponent(name).WithFile(filepath.Join(r.root, name))
	}

	if !def.HasBody() {
		return def, errors.NewContentError(
			errors.CodeMissingComponentBody,
			fmt.Sprintf("HTML file for component '%s' not found", name),
		).WithComponent(name).WithFile(r.BodyPath(name))
	}

	return def, nil
}

// Invalidate drops every cached lookup.
func (r *ComponentRegistry) Invalidate() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.cache = make(map[string]*ComponentDefinition)
}

// resolve stats the conventional paths. A nil definition means the directory
// is absent.
func (r *ComponentRegistry) resolve(name string) (*ComponentDefinition, error) {
	dir := filepath.Join(r.root, name)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, nil
	}

	def := &ComponentDefinition{Name: name, Dir: dir}
	if isFile(filepath.Join(dir, name+BodyExt)) {
		def.BodyPath = filepath.Join(dir, name+BodyExt)
	}
	if isFile(filepath.Join(dir, name+StyleExt)) {
		def.StylePath = filepath.Join(dir, name+StyleExt)
	}
	if isFile(filepath.Join(dir, name+ScriptExt)) {
		def.ScriptPath = filepath.Join(dir, name+ScriptExt)
	}

	return def, nil
}

// All returns every component directory directly under the root, sorted by name.
func (r *ComponentRegistry) All() ([]*ComponentDefinition, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.ErrIO("read components directory", r.root, err)
	}

	defs := make([]*ComponentDefinition, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		def, err := r.Lookup(entry.Name())
		if def == nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs, nil
}

// Exists reports whether <root>/<name> is a directory strictly below the
// root. Absolute names and names escaping the root never exist.
func (r *ComponentRegistry) Exists(name string) bool {
	name = filepath.Clean(name)
	if filepath.IsAbs(name) || name == "." || name == ".." ||
		strings.HasPrefix(name, ".."+string(filepath.Separator)) {
		return false
	}
	info, err := os.Stat(filepath.Join(r.root, name))
	return err == nil && info.IsDir()
}

// NearestListing walks up from the component's expected directory to the
// closest existing ancestor and returns that directory and its entry names.
func (r *ComponentRegistry) NearestListing(name string) (string, []string) {
	dir := filepath.Join(r.root, name)
	for {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir, nil
		}
		dir = parent
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return dir, nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name()+string(filepath.Separator))
		} else {
			names = append(names, entry.Name())
		}
	}
	return dir, names
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
