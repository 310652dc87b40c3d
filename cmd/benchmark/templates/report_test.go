package templates_test

import (
	"strings"
	"testing"
	"time"

	"github.com/delaneyj/observerparty/cmd/benchmark/templates"
	"github.com/stretchr/testify/assert"
)

// should render one markdown row per scenario
func TestGraphReport(t *testing.T) {
	out := templates.GraphReport(100, []templates.GraphRow{
		{
			Name:           "deep",
			Size:           "5x500",
			NSources:       3,
			ReadFraction:   1,
			StaticFraction: 0.5,
			Iterations:     1500,
			Duration:       1500 * time.Millisecond,
			Sum:            1234567,
			UpdateRate:     2000,
		},
	})

	assert.Contains(t, out, "Max update count: 100")
	assert.Contains(t, out, "| deep | 5x500 | 3 | 100% | 50% | 1,500 | 1.5s | 2,000 | 1,234,567 |")
	assert.Equal(t, 3, strings.Count(out, "\n|"))
}
