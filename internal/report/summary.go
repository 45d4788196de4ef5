package report

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/spiderman/internal/stats"
)

// Summary describes one finished crawl.
type Summary struct {
	StartURL    string         `json:"start_url"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	Interrupted bool           `json:"interrupted"`
	Stats       stats.Snapshot `json:"stats"`
}

// Duration returns the wall-clock time of the crawl.
func (s *Summary) Duration() time.Duration {
	if s.FinishedAt.Before(s.StartedAt) {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Status returns a one-word state of the crawl.
func (s *Summary) Status() string {
	if s.Interrupted {
		return "Interrupted"
	}
	return "Complete"
}

var titleCaser = cases.Title(language.English)

// label turns an identifier such as "dataProcessing" into "Data Processing".
func label[T ~string](id T) string {
	var sb strings.Builder
	for i, r := range string(id) {
		if i > 0 && unicode.IsUpper(r) {
			sb.WriteByte(' ')
		}
		sb.WriteRune(r)
	}
	return titleCaser.String(sb.String())
}
