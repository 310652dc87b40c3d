package templates

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// GraphRow is one scenario result of the graph benchmark.
type GraphRow struct {
	Name           string
	Title          string
	Size           string
	NSources       int
	ReadFraction   float64
	StaticFraction float64
	Iterations     int
	Duration       time.Duration
	Sum            int
	Count          int64
	UpdateRate     float64
}

// markdownRow joins cells into a markdown table row.
func markdownRow(cells ...string) string {
	var sb strings.Builder
	sb.WriteString("|")
	for _, c := range cells {
		sb.WriteString(" ")
		sb.WriteString(strings.ReplaceAll(c, "|", `\|`))
		sb.WriteString(" |")
	}
	return sb.String()
}

func separatorRow(count int) string {
	var sb strings.Builder
	sb.WriteString("|")
	for i := 0; i < count; i++ {
		sb.WriteString(" --- |")
	}
	return sb.String()
}

func comma(n int64) string {
	return humanize.Comma(n)
}

func percent(f float64) string {
	return humanize.FtoaWithDigits(f*100, 2) + "%"
}
