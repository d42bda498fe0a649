package results

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"gauntlet/internal/run"
)

func TestRenderSummary_Success(t *testing.T) {
	buf := &bytes.Buffer{}
	records := []Record{
		{Artifact: "/runs/a1b2/report/junit-a1b2.xml", Suite: "validation", Tests: 12},
	}

	RenderSummary(buf, Result{TotalTests: 12, Status: run.StatusSuccess}, records)

	out := buf.String()
	assert.Contains(t, out, "junit-a1b2.xml (validation)")
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "Run result: Success")
	assert.NotContains(t, out, "FAILED")
}

func TestRenderSummary_ListsFailingCases(t *testing.T) {
	buf := &bytes.Buffer{}
	records := []Record{
		{
			Artifact: "junit-a1b2-1.xml",
			Tests:    3,
			Failures: 1,
			Problems: []CaseProblem{
				{Name: "disk-io", Status: CaseFailed, Message: "exit status 1\nfio: io_u error"},
			},
		},
		{
			Artifact: "junit-a1b2-2.xml",
			Tests:    3,
			Errors:   1,
			Problems: []CaseProblem{
				{Name: "gpu-attach", Status: CaseError, Message: "command not found"},
			},
		},
	}

	RenderSummary(buf, Result{TotalTests: 6, TotalFailures: 1, TotalErrors: 1, Status: run.StatusFailure}, records)

	out := buf.String()
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "disk-io: exit status 1 fio: io_u error")
	assert.Contains(t, out, "ERROR")
	assert.Contains(t, out, "gpu-attach: command not found")
	assert.Contains(t, out, "Run result: Failure")
}

func TestRenderSummary_TruncatesLongMessages(t *testing.T) {
	long := bytes.Repeat([]byte("x"), 200)
	buf := &bytes.Buffer{}
	records := []Record{
		{
			Artifact: "junit-a1b2.xml",
			Tests:    1,
			Failures: 1,
			Problems: []CaseProblem{{Name: "verbose", Status: CaseFailed, Message: string(long)}},
		},
	}

	RenderSummary(buf, Result{TotalTests: 1, TotalFailures: 1, Status: run.StatusFailure}, records)

	assert.NotContains(t, buf.String(), string(long))
	assert.Contains(t, buf.String(), "...")
}
