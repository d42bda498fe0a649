package results

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"gauntlet/internal/run"
	pkgstrings "gauntlet/pkg/strings"
)

// RenderSummary prints the final scoreboard: one row per report artifact,
// a totals footer, one line per failing case, and the run status.
func RenderSummary(out io.Writer, result Result, records []Record) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("REPORT"),
		text.FgHiCyan.Sprint("TESTS"),
		text.FgHiCyan.Sprint("FAILURES"),
		text.FgHiCyan.Sprint("ERRORS"),
	})

	for _, record := range records {
		label := filepath.Base(record.Artifact)
		if record.Suite != "" {
			label = fmt.Sprintf("%s (%s)", label, record.Suite)
		}
		t.AppendRow(table.Row{label, record.Tests, record.Failures, record.Errors})
	}

	t.AppendFooter(table.Row{"TOTAL", result.TotalTests, result.TotalFailures, result.TotalErrors})
	t.Render()

	for _, record := range records {
		for _, p := range record.Problems {
			fmt.Fprintf(out, "%s %s: %s\n",
				text.FgHiRed.Sprint(string(p.Status)), p.Name,
				pkgstrings.OneLine(p.Message, pkgstrings.DefaultMessageMaxLen))
		}
	}

	if result.Status == run.StatusSuccess {
		fmt.Fprintf(out, "\n✅ Run result: %s\n", result.Status)
	} else {
		fmt.Fprintf(out, "\n❌ Run result: %s\n", result.Status)
	}
}
