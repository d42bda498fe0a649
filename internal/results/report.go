package results

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CaseStatus represents the outcome of a single executed test case.
type CaseStatus string

const (
	// CasePassed indicates the case passed
	CasePassed CaseStatus = "PASSED"
	// CaseFailed indicates the case failed an assertion or exited non-zero
	CaseFailed CaseStatus = "FAILED"
	// CaseSkipped indicates the case was not executed
	CaseSkipped CaseStatus = "SKIPPED"
	// CaseError indicates the harness could not execute the case
	CaseError CaseStatus = "ERROR"
)

// CaseResult is one executed case as recorded by a controller.
type CaseResult struct {
	Name      string
	ClassName string
	Duration  time.Duration
	Status    CaseStatus
	Message   string
	Output    string
}

// Suite is the set of case results one controller execution produced.
type Suite struct {
	Name     string
	Cases    []CaseResult
	Duration time.Duration
}

// CaseProblem is one failed or errored case read back from an artifact,
// kept so the summary can name what went wrong.
type CaseProblem struct {
	Name    string
	Status  CaseStatus
	Message string
}

// Record is the content of one report artifact. The three counters decide
// the score; Problems only feed the rendered summary.
type Record struct {
	Artifact string
	Suite    string
	Tests    int
	Failures int
	Errors   int
	Problems []CaseProblem
}

// The parse structure names only the fields aggregation and the summary
// read. Reports come from different emitters and may carry arbitrary extra
// attributes.
type reportDocument struct {
	XMLName xml.Name `xml:"testsuites"`
	Suites  []struct {
		Name     string `xml:"name,attr"`
		Tests    int    `xml:"tests,attr"`
		Failures int    `xml:"failures,attr"`
		Errors   int    `xml:"errors,attr"`
		Cases    []struct {
			Name    string      `xml:"name,attr"`
			Failure *xmlProblem `xml:"failure"`
			Error   *xmlProblem `xml:"error"`
		} `xml:"testcase"`
	} `xml:"testsuite"`
}

// ParseReport reads one report artifact and sums the counters of every
// testsuite element in it. A missing or malformed artifact is an
// AggregationError.
func ParseReport(path string) (Record, error) {
	record := Record{Artifact: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return record, NewAggregationError(path, "expected report artifact is missing", err)
		}
		return record, NewAggregationError(path, "failed to read report artifact", err)
	}

	var doc reportDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return record, NewAggregationError(path, "failed to parse report artifact", err)
	}

	for _, suite := range doc.Suites {
		if record.Suite == "" {
			record.Suite = suite.Name
		}
		record.Tests += suite.Tests
		record.Failures += suite.Failures
		record.Errors += suite.Errors

		for _, c := range suite.Cases {
			switch {
			case c.Failure != nil:
				record.Problems = append(record.Problems, CaseProblem{
					Name: c.Name, Status: CaseFailed, Message: problemMessage(c.Failure),
				})
			case c.Error != nil:
				record.Problems = append(record.Problems, CaseProblem{
					Name: c.Name, Status: CaseError, Message: problemMessage(c.Error),
				})
			}
		}
	}

	return record, nil
}

// problemMessage prefers the short message attribute over the element body,
// which usually holds full process output.
func problemMessage(p *xmlProblem) string {
	if p.Message != "" {
		return p.Message
	}
	return p.Content
}

// Writer-side structures carry the full testcase detail so failure output
// survives in the artifact for humans reading it later.
type xmlTestSuites struct {
	XMLName  xml.Name       `xml:"testsuites"`
	Tests    int            `xml:"tests,attr"`
	Failures int            `xml:"failures,attr"`
	Errors   int            `xml:"errors,attr"`
	Suites   []xmlTestSuite `xml:"testsuite"`
}

type xmlTestSuite struct {
	Name     string        `xml:"name,attr"`
	Tests    int           `xml:"tests,attr"`
	Failures int           `xml:"failures,attr"`
	Errors   int           `xml:"errors,attr"`
	Skipped  int           `xml:"skipped,attr"`
	Time     string        `xml:"time,attr"`
	Cases    []xmlTestCase `xml:"testcase"`
}

type xmlTestCase struct {
	Name      string      `xml:"name,attr"`
	ClassName string      `xml:"classname,attr,omitempty"`
	Time      string      `xml:"time,attr"`
	Failure   *xmlProblem `xml:"failure,omitempty"`
	Error     *xmlProblem `xml:"error,omitempty"`
	Skipped   *xmlMarker  `xml:"skipped,omitempty"`
	SystemOut string      `xml:"system-out,omitempty"`
}

type xmlProblem struct {
	Message string `xml:"message,attr,omitempty"`
	Content string `xml:",chardata"`
}

type xmlMarker struct {
	Message string `xml:"message,attr,omitempty"`
}

// WriteReport renders one suite as a JUnit-style XML artifact at path,
// creating the parent directory if needed.
func WriteReport(path string, suite Suite) error {
	out := xmlTestSuite{
		Name: suite.Name,
		Time: formatSeconds(suite.Duration),
	}

	for _, c := range suite.Cases {
		tc := xmlTestCase{
			Name:      c.Name,
			ClassName: c.ClassName,
			Time:      formatSeconds(c.Duration),
			SystemOut: c.Output,
		}
		switch c.Status {
		case CasePassed:
			out.Tests++
		case CaseFailed:
			out.Tests++
			out.Failures++
			tc.Failure = &xmlProblem{Message: c.Message, Content: c.Output}
		case CaseError:
			out.Tests++
			out.Errors++
			tc.Error = &xmlProblem{Message: c.Message, Content: c.Output}
		case CaseSkipped:
			out.Skipped++
			tc.Skipped = &xmlMarker{Message: c.Message}
		}
		out.Cases = append(out.Cases, tc)
	}

	doc := xmlTestSuites{
		Tests:    out.Tests,
		Failures: out.Failures,
		Errors:   out.Errors,
		Suites:   []xmlTestSuite{out},
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report for suite %s: %w", suite.Name, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, append([]byte(xml.Header), data...), 0o644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
