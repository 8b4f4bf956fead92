package build

import (
	"fmt"
	"sync"
	"time"

	"github.com/conneroisu/pagesmith/internal/errors"
)

// UnitStats counts the compilation units of one kind.
type UnitStats struct {
	Total    int `json:"total" yaml:"total"`
	Compiled int `json:"compiled" yaml:"compiled"`
}

// Failed returns the number of units that did not compile.
func (u UnitStats) Failed() int {
	return u.Total - u.Compiled
}

// CompileFailure records one unit the external compiler rejected.
type CompileFailure struct {
	Source string `json:"source" yaml:"source"`
	Error  string `json:"error" yaml:"error"`
}

// Report describes one build run.
type Report struct {
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	Fresh     bool          `json:"fresh" yaml:"fresh"`
	Publish   bool          `json:"publish" yaml:"publish"`

	// Scanned is the number of source files seen by the inventory.
	Scanned int `json:"scanned" yaml:"scanned"`
	// Kinds counts the scanned files by kind (html, scss, ts, other).
	Kinds map[string]int `json:"kinds" yaml:"kinds"`
	// Changed lists source files modified since the last build.
	Changed []string `json:"changed" yaml:"changed"`
	// Rebuilt is the closed rebuild set.
	Rebuilt []string `json:"rebuilt" yaml:"rebuilt"`
	// Prioritized lists the files staged ahead of the rest, in order.
	Prioritized []string `json:"prioritized" yaml:"prioritized"`
	// Staged lists the output files written, in staging order.
	Staged    []string `json:"staged" yaml:"staged"`
	Variants  []string `json:"variants" yaml:"variants"`
	Languages []string `json:"languages" yaml:"languages"`

	Styles   UnitStats        `json:"styles" yaml:"styles"`
	Scripts  UnitStats        `json:"scripts" yaml:"scripts"`
	Failures []CompileFailure `json:"failures" yaml:"failures"`

	RemovedMaps    int `json:"removed_maps" yaml:"removed_maps"`
	PublishedFiles int `json:"published_files" yaml:"published_files"`

	Diagnostics *errors.Collector `json:"-" yaml:"-"`
}

func newReport(start time.Time, opts Options) *Report {
	return &Report{
		StartedAt:   start,
		Fresh:       opts.Fresh,
		Publish:     opts.Publish,
		Diagnostics: errors.NewCollector(),
	}
}

// StyleSummary reports the stylesheet compilation outcome.
func (r *Report) StyleSummary() string {
	return fmt.Sprintf("%d of %d SCSS file(s) compiled to CSS", r.Styles.Compiled, r.Styles.Total)
}

// ScriptSummary reports the script compilation outcome.
func (r *Report) ScriptSummary() string {
	return fmt.Sprintf("%d of %d TypeScript file(s) compiled to JavaScript", r.Scripts.Compiled, r.Scripts.Total)
}

// BuildMetrics tracks builds across the lifetime of a pipeline, as in watch
// mode.
type BuildMetrics struct {
	TotalBuilds      int64
	SuccessfulBuilds int64
	FailedBuilds     int64
	FilesStaged      int64
	CompileFailures  int64
	AverageDuration  time.Duration
	TotalDuration    time.Duration
	LastBuild        time.Time
	mutex            sync.RWMutex
}

// NewBuildMetrics creates a new build metrics tracker
func NewBuildMetrics() *BuildMetrics {
	return &BuildMetrics{}
}

// RecordBuild records a build result in the metrics
func (bm *BuildMetrics) RecordBuild(report *Report, err error) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.TotalBuilds++
	if report != nil {
		bm.TotalDuration += report.Duration
		bm.FilesStaged += int64(len(report.Staged))
		bm.CompileFailures += int64(len(report.Failures))
		bm.LastBuild = report.StartedAt
	}

	if err != nil {
		bm.FailedBuilds++
	} else {
		bm.SuccessfulBuilds++
	}

	// Update average duration
	if bm.TotalBuilds > 0 {
		bm.AverageDuration = bm.TotalDuration / time.Duration(bm.TotalBuilds)
	}
}

// GetSnapshot returns a snapshot of current metrics
func (bm *BuildMetrics) GetSnapshot() BuildMetrics {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()
	return BuildMetrics{
		TotalBuilds:      bm.TotalBuilds,
		SuccessfulBuilds: bm.SuccessfulBuilds,
		FailedBuilds:     bm.FailedBuilds,
		FilesStaged:      bm.FilesStaged,
		CompileFailures:  bm.CompileFailures,
		AverageDuration:  bm.AverageDuration,
		TotalDuration:    bm.TotalDuration,
		LastBuild:        bm.LastBuild,
	}
}

// Reset resets all metrics
func (bm *BuildMetrics) Reset() {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	bm.TotalBuilds = 0
	bm.SuccessfulBuilds = 0
	bm.FailedBuilds = 0
	bm.FilesStaged = 0
	bm.CompileFailures = 0
	bm.AverageDuration = 0
	bm.TotalDuration = 0
	bm.LastBuild = time.Time{}
}

// GetSuccessRate returns the success rate as a percentage
func (bm *BuildMetrics) GetSuccessRate() float64 {
	bm.mutex.RLock()
	defer bm.mutex.RUnlock()

	if bm.TotalBuilds == 0 {
		return 0.0
	}

	return float64(bm.SuccessfulBuilds) / float64(bm.TotalBuilds) * 100.0
}
