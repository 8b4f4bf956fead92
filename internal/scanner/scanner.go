// Package scanner takes the source inventory of a pagesmith site.
//
// One walk of the source root records every regular file together with its
// kind and modification time. The build derives both the changed set and
// the HTML list used by dependency closure from that single snapshot, so a
// build never walks the source tree twice.
package scanner

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/conneroisu/pagesmith/internal/errors"
	"github.com/conneroisu/pagesmith/internal/logging"
	"github.com/conneroisu/pagesmith/internal/registry"
)

// Kind classifies a source file by the stage that processes it.
type Kind int

const (
	// KindOther files are copied with only the root placeholder pass.
	KindOther Kind = iota
	// KindHTML files go through template expansion.
	KindHTML
	// KindStyle files are SCSS stylesheets compiled to CSS.
	KindStyle
	// KindScript files are TypeScript compiled to JavaScript.
	KindScript
)

func (k Kind) String() string {
	switch k {
	case KindHTML:
		return "html"
	case KindStyle:
		return "scss"
	case KindScript:
		return "ts"
	default:
		return "other"
	}
}

// KindOf classifies path by its extension, ignoring case.
func KindOf(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case registry.BodyExt:
		return KindHTML
	case registry.StyleExt:
		return KindStyle
	case registry.ScriptExt:
		return KindScript
	default:
		return KindOther
	}
}

// SourceFile is one regular file of the source tree as seen by the walk.
type SourceFile struct {
	Path    string    `json:"path" yaml:"path"`
	Kind    Kind      `json:"kind" yaml:"kind"`
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
}

// Inventory is the snapshot of a source tree taken by one walk.
type Inventory struct {
	// Root is the walked directory.
	Root string
	// Files holds every regular file, sorted by path.
	Files []SourceFile
	// TakenAt is when the walk started.
	TakenAt time.Time
}

// Len returns the number of files.
func (inv *Inventory) Len() int {
	return len(inv.Files)
}

// ChangedSince returns the files modified strictly after threshold. A zero
// threshold selects everything.
func (inv *Inventory) ChangedSince(threshold time.Time) registry.PathSet {
	changed := registry.NewPathSet()
	for _, f := range inv.Files {
		if threshold.IsZero() || f.ModTime.After(threshold) {
			changed.Add(f.Path)
		}
	}
	return changed
}

// OfKind returns the paths of the files of kind k, sorted.
func (inv *Inventory) OfKind(k Kind) []string {
	var paths []string
	for _, f := range inv.Files {
		if f.Kind == k {
			paths = append(paths, f.Path)
		}
	}
	return paths
}

// HTMLFiles returns the paths of every HTML file, sorted.
func (inv *Inventory) HTMLFiles() []string {
	return inv.OfKind(KindHTML)
}

// CountByKind returns how many files of each kind were seen.
func (inv *Inventory) CountByKind() map[Kind]int {
	counts := make(map[Kind]int)
	for _, f := range inv.Files {
		counts[f.Kind]++
	}
	return counts
}

// Scanner walks a source root.
type Scanner struct {
	// root is the directory to walk
	root string
	// ignore holds base-name glob patterns of directories to skip
	ignore []string
	logger logging.Logger
}

// NewScanner creates a scanner for root. Directories whose base name
// matches one of the ignore patterns are not descended into.
func NewScanner(root string, ignore []string, logger logging.Logger) *Scanner {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Scanner{
		root:   filepath.Clean(root),
		ignore: ignore,
		logger: logger.WithComponent("scanner"),
	}
}

// Root returns the walked directory.
func (s *Scanner) Root() string {
	return s.root
}

// Scan walks the source root once and returns its inventory. A failure to
// read any part of the tree is fatal.
func (s *Scanner) Scan(ctx context.Context) (*Inventory, error) {
	inv := &Inventory{Root: s.root, TakenAt: time.Now()}

	err := filepath.WalkDir(s.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if entry.IsDir() {
			if path != s.root && s.ignored(entry.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}
		inv.Files = append(inv.Files, SourceFile{
			Path:    filepath.Clean(path),
			Kind:    KindOf(path),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.ErrIO("walk source tree", s.root, err)
	}

	sort.Slice(inv.Files, func(i, j int) bool { return inv.Files[i].Path < inv.Files[j].Path })

	s.logger.Debug(ctx, "Source inventory taken",
		"root", s.root,
		"files", len(inv.Files),
	)
	return inv, nil
}

func (s *Scanner) ignored(name string) bool {
	for _, pattern := range s.ignore {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}
