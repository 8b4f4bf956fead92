package errors

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Diagnostic is a non-fatal problem found while building one file.
type Diagnostic struct {
	Code      string
	Component string
	File      string
	Message   string
	Severity  ErrorSeverity
	// Details holds extra lines for the user, e.g. the listing of the
	// nearest existing directory when a component cannot be found.
	Details   []string
	Timestamp time.Time
}

// ErrorSeverity represents the severity of a diagnostic
type ErrorSeverity int

const (
	ErrorSeverityInfo ErrorSeverity = iota
	ErrorSeverityWarning
	ErrorSeverityError
	ErrorSeverityFatal
)

// String returns the string representation of the severity
func (s ErrorSeverity) String() string {
	switch s {
	case ErrorSeverityInfo:
		return "info"
	case ErrorSeverityWarning:
		return "warning"
	case ErrorSeverityError:
		return "error"
	case ErrorSeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error implements the error interface
func (d *Diagnostic) Error() string {
	if d.Component != "" {
		return fmt.Sprintf("%s: %s: [%s] component %q: %s", d.File, d.Severity, d.Code, d.Component, d.Message)
	}
	return fmt.Sprintf("%s: %s: [%s] %s", d.File, d.Severity, d.Code, d.Message)
}

// Collector gathers diagnostics across a build.
type Collector struct {
	diagnostics []Diagnostic
	mutex       sync.RWMutex
}

// NewCollector creates a new diagnostic collector
func NewCollector() *Collector {
	return &Collector{
		diagnostics: make([]Diagnostic, 0),
	}
}

// Add adds a diagnostic, stamping it with the current time
func (c *Collector) Add(d Diagnostic) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now()
	}
	c.diagnostics = append(c.diagnostics, d)
}

// AddAll adds every diagnostic in ds, setting File where it is empty.
func (c *Collector) AddAll(file string, ds []Diagnostic) {
	for _, d := range ds {
		if d.File == "" {
			d.File = file
		}
		c.Add(d)
	}
}

// Diagnostics returns a copy of all collected diagnostics
func (c *Collector) Diagnostics() []Diagnostic {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	result := make([]Diagnostic, len(c.diagnostics))
	copy(result, c.diagnostics)
	return result
}

// HasErrors reports whether any diagnostic is at error severity or above
func (c *Collector) HasErrors() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	for _, d := range c.diagnostics {
		if d.Severity >= ErrorSeverityError {
			return true
		}
	}
	return false
}

// Count returns the number of collected diagnostics
func (c *Collector) Count() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.diagnostics)
}

// ByFile returns diagnostics for a specific file
func (c *Collector) ByFile(file string) []Diagnostic {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	var result []Diagnostic
	for _, d := range c.diagnostics {
		if d.File == file {
			result = append(result, d)
		}
	}
	return result
}

// CountByCode returns how many diagnostics were recorded per code
func (c *Collector) CountByCode() map[string]int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	counts := make(map[string]int)
	for _, d := range c.diagnostics {
		counts[d.Code]++
	}
	return counts
}

// Codes returns the distinct codes seen, sorted.
func (c *Collector) Codes() []string {
	counts := c.CountByCode()
	codes := make([]string, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Clear removes all diagnostics
func (c *Collector) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.diagnostics = c.diagnostics[:0]
}
