package build

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/conneroisu/pagesmith/internal/errors"
	"github.com/conneroisu/pagesmith/internal/registry"
)

// LoadPriorityList reads the component compilation order file. Blank lines
// and lines starting with '#' are ignored; every other line must name a
// directory below the components root. A missing file is an empty list.
// Any invalid entry fails the whole list.
func LoadPriorityList(listPath string, components *registry.ComponentRegistry) ([]string, error) {
	data, err := os.ReadFile(listPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.ErrIO("read compilation order file", listPath, err)
	}

	var entries []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		entry := filepath.Clean(filepath.FromSlash(line))
		if !components.Exists(entry) {
			return nil, errors.ErrInvalidPriorityEntry(line, listPath)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.ErrIO("read compilation order file", listPath, err)
	}

	return entries, nil
}
