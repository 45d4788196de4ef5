package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/spiderman/internal/stats"
)

const ruleWidth = 60

// SimpleWriter writes a plain text summary for terminals.
type SimpleWriter struct {
	output io.Writer
}

// NewSimpleWriter returns a text writer.
func NewSimpleWriter(output io.Writer) *SimpleWriter {
	return &SimpleWriter{output: output}
}

// Write implements Writer.
func (w *SimpleWriter) Write(summary *Summary) (int, error) {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString("                    SPIDERMAN CRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Start URL:  %s\n", summary.StartURL)
	fmt.Fprintf(&sb, "Started:    %s\n", summary.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&sb, "Duration:   %s\n", summary.Duration().Round(time.Millisecond))
	fmt.Fprintf(&sb, "Status:     %s\n\n", summary.Status())

	for _, stage := range stats.Stages {
		sb.WriteString(strings.Repeat("-", ruleWidth))
		sb.WriteString("\n")
		sb.WriteString(strings.ToUpper(label(stage)))
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat("-", ruleWidth))
		sb.WriteString("\n")

		for _, outcome := range stats.Outcomes {
			fmt.Fprintf(&sb, "  %-14s %d\n", label(outcome)+":", summary.Stats.Counts.Get(outcome, stage))
		}
		fmt.Fprintf(&sb, "  %-14s %s\n", "Total Time:", summary.Stats.Time.Total.Get(stage).Round(time.Millisecond))
		fmt.Fprintf(&sb, "  %-14s %s\n\n", "Average Time:", summary.Stats.Time.Avg.Get(stage).Round(time.Millisecond))
	}

	return io.WriteString(w.output, sb.String())
}
