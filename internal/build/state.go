package build

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/conneroisu/pagesmith/internal/errors"
)

// State persists the start time of the last successful build as epoch
// milliseconds in a marker file.
type State struct {
	path string
}

// NewState creates a state backed by the marker file at path.
func NewState(path string) *State {
	return &State{path: path}
}

// Path returns the marker file location.
func (s *State) Path() string {
	return s.path
}

// LastBuild returns the recorded build time. An absent or unparsable marker
// yields the zero time, which makes every file count as changed.
func (s *State) LastBuild() time.Time {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return time.Time{}
	}

	ms, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Record writes t as the last build time.
func (s *State) Record(t time.Time) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.ErrIO("create state directory", dir, err)
		}
	}
	if err := os.WriteFile(s.path, []byte(fmt.Sprintf("%d\n", t.UnixMilli())), 0644); err != nil {
		return errors.ErrIO("write build marker", s.path, err)
	}
	return nil
}

// Reset removes the marker so the next build is a full one.
func (s *State) Reset() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.ErrIO("remove build marker", s.path, err)
	}
	return nil
}
