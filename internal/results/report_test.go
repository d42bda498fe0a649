package results

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "junit-test.xml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseReport_SumsSuites(t *testing.T) {
	path := writeArtifact(t, `<?xml version="1.0" encoding="UTF-8"?>
<testsuites>
  <testsuite name="smoke" tests="10" failures="1" errors="0"/>
  <testsuite name="network" tests="5" failures="0" errors="2"/>
</testsuites>`)

	record, err := ParseReport(path)
	require.NoError(t, err)

	assert.Equal(t, 15, record.Tests)
	assert.Equal(t, 1, record.Failures)
	assert.Equal(t, 2, record.Errors)
	assert.Equal(t, "smoke", record.Suite)
}

func TestParseReport_IgnoresUnknownFields(t *testing.T) {
	path := writeArtifact(t, `<testsuites disabled="0" time="1.5">
  <testsuite name="s" tests="3" failures="0" errors="0" hostname="ci-worker-2" timestamp="2024-01-01T00:00:00">
    <properties><property name="os" value="linux"/></properties>
    <testcase name="boot" classname="s" time="0.4"/>
  </testsuite>
</testsuites>`)

	record, err := ParseReport(path)
	require.NoError(t, err)
	assert.Equal(t, 3, record.Tests)
	assert.Equal(t, 0, record.Failures)
}

func TestParseReport_MissingAttributesReadAsZero(t *testing.T) {
	path := writeArtifact(t, `<testsuites><testsuite name="bare" tests="2"/></testsuites>`)

	record, err := ParseReport(path)
	require.NoError(t, err)
	assert.Equal(t, 2, record.Tests)
	assert.Equal(t, 0, record.Failures)
	assert.Equal(t, 0, record.Errors)
}

func TestParseReport_MissingArtifact(t *testing.T) {
	_, err := ParseReport(filepath.Join(t.TempDir(), "junit-absent.xml"))
	require.Error(t, err)

	var aggErr *AggregationError
	require.True(t, errors.As(err, &aggErr))
	assert.Contains(t, aggErr.Error(), "missing")
}

func TestParseReport_MalformedArtifact(t *testing.T) {
	for _, content := range []string{
		"not xml at all",
		`<testsuites><testsuite tests="many"/></testsuites>`,
		`<report><testsuite tests="1"/></report>`,
	} {
		path := writeArtifact(t, content)
		_, err := ParseReport(path)

		var aggErr *AggregationError
		require.Truef(t, errors.As(err, &aggErr), "content %q should fail as AggregationError", content)
	}
}

func TestWriteReport_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report", "junit-run1.xml")

	suite := Suite{
		Name:     "validation",
		Duration: 3 * time.Second,
		Cases: []CaseResult{
			{Name: "boot-check", Status: CasePassed, Duration: time.Second},
			{Name: "disk-io", Status: CaseFailed, Message: "exit status 1", Output: "fio failed"},
			{Name: "gpu-attach", Status: CaseError, Message: "command not found"},
			{Name: "tpm-seal", Status: CaseSkipped, Message: "filtered out"},
		},
	}
	require.NoError(t, WriteReport(path, suite))

	record, err := ParseReport(path)
	require.NoError(t, err)

	// Skipped cases are not counted as executed tests.
	assert.Equal(t, 3, record.Tests)
	assert.Equal(t, 1, record.Failures)
	assert.Equal(t, 1, record.Errors)
	assert.Equal(t, "validation", record.Suite)

	require.Len(t, record.Problems, 2)
	assert.Equal(t, CaseProblem{Name: "disk-io", Status: CaseFailed, Message: "exit status 1"}, record.Problems[0])
	assert.Equal(t, CaseProblem{Name: "gpu-attach", Status: CaseError, Message: "command not found"}, record.Problems[1])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "exit status 1")
	assert.Contains(t, string(data), "<skipped")
}

func TestParseReport_ProblemMessageFallsBackToBody(t *testing.T) {
	path := writeArtifact(t, `<testsuites>
  <testsuite name="smoke" tests="2" failures="1" errors="0">
    <testcase name="ok"/>
    <testcase name="broken"><failure>assertion output
spanning lines</failure></testcase>
  </testsuite>
</testsuites>`)

	record, err := ParseReport(path)
	require.NoError(t, err)

	require.Len(t, record.Problems, 1)
	assert.Equal(t, "broken", record.Problems[0].Name)
	assert.Equal(t, CaseFailed, record.Problems[0].Status)
	assert.Contains(t, record.Problems[0].Message, "assertion output")
}
