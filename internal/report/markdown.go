package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/spiderman/internal/stats"
)

// MarkdownWriter writes a GitHub flavored Markdown summary.
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter returns a Markdown writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write implements Writer.
func (w *MarkdownWriter) Write(summary *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Spiderman Crawl Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Start URL", "`" + summary.StartURL + "`"},
			{"Started", summary.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", summary.Duration().Round(time.Millisecond).String()},
			{"Status", summary.Status()},
		},
	})
	md.PlainText("")

	md.H2("Attempts")
	md.PlainText("")
	rows := make([][]string, 0, len(stats.Outcomes))
	for _, outcome := range stats.Outcomes {
		row := []string{label(outcome)}
		for _, stage := range stats.Stages {
			row = append(row, strconv.Itoa(summary.Stats.Counts.Get(outcome, stage)))
		}
		rows = append(rows, row)
	}
	md.Table(markdown.TableSet{
		Header: []string{"Outcome", label(stats.StageScraping), label(stats.StageDataProcessing)},
		Rows:   rows,
	})
	md.PlainText("")

	if summary.Stats.Attempts(stats.StageScraping) > 0 {
		w.writePieChart(md, summary)
	}

	md.H2("Execution Time")
	md.PlainText("")
	timeRows := make([][]string, 0, len(stats.Stages))
	for _, stage := range stats.Stages {
		timeRows = append(timeRows, []string{
			label(stage),
			summary.Stats.Time.Total.Get(stage).Round(time.Millisecond).String(),
			summary.Stats.Time.Avg.Get(stage).Round(time.Millisecond).String(),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Stage", "Total", "Average"},
		Rows:   timeRows,
	})
	md.PlainText("")

	w.writeAlert(md, summary)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [spiderman](https://github.com/nao1215/spiderman)*")

	return len(md.String()), md.Build()
}

// writePieChart charts the scraping outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Scraping Outcomes"),
		piechart.WithShowData(true),
	)
	for _, outcome := range stats.Outcomes {
		if n := summary.Stats.Counts.Get(outcome, stats.StageScraping); n > 0 {
			chart.LabelAndIntValue(label(outcome), uint64(n))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, summary *Summary) {
	hard := summary.Stats.Counts.HardFailure
	switch {
	case summary.Interrupted:
		md.Warningf("The crawl was interrupted; queued URLs were dropped.")
	case hard.Scraping+hard.DataProcessing > 0:
		md.Importantf("%d URL(s) and %d page(s) were given up after exhausting their retries.",
			hard.Scraping, hard.DataProcessing)
	default:
		md.Tip("Every scheduled URL was processed.")
	}
	md.PlainText("")
}
