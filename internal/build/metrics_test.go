package build

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildMetrics(t *testing.T) {
	bm := NewBuildMetrics()
	assert.Equal(t, 0.0, bm.GetSuccessRate())

	started := time.Now()
	bm.RecordBuild(&Report{
		StartedAt: started,
		Duration:  100 * time.Millisecond,
		Staged:    []string{"a", "b"},
		Failures:  []CompileFailure{{Source: "a.scss"}},
	}, nil)
	bm.RecordBuild(&Report{Duration: 300 * time.Millisecond}, stderrors.New("boom"))
	bm.RecordBuild(nil, stderrors.New("aborted early"))

	snapshot := bm.GetSnapshot()
	assert.Equal(t, int64(3), snapshot.TotalBuilds)
	assert.Equal(t, int64(1), snapshot.SuccessfulBuilds)
	assert.Equal(t, int64(2), snapshot.FailedBuilds)
	assert.Equal(t, int64(2), snapshot.FilesStaged)
	assert.Equal(t, int64(1), snapshot.CompileFailures)
	assert.Equal(t, 400*time.Millisecond, snapshot.TotalDuration)
	assert.InDelta(t, 33.33, bm.GetSuccessRate(), 0.01)

	bm.Reset()
	assert.Equal(t, int64(0), bm.GetSnapshot().TotalBuilds)
}

func TestReportSummaries(t *testing.T) {
	r := newReport(time.Now(), Options{Publish: true})
	r.Styles = UnitStats{Total: 3, Compiled: 2}
	r.Scripts = UnitStats{Total: 0}

	assert.Equal(t, "2 of 3 SCSS file(s) compiled to CSS", r.StyleSummary())
	assert.Equal(t, "0 of 0 TypeScript file(s) compiled to JavaScript", r.ScriptSummary())
	assert.True(t, r.Publish)
	assert.NotNil(t, r.Diagnostics)
}
