package tui

import (
	"strings"
	"testing"

	"github.com/verte-zerg/tracepad/internal/capture"
	"github.com/verte-zerg/tracepad/internal/model"
	"github.com/verte-zerg/tracepad/internal/stats"
)

func TestRenderFooterFormats(t *testing.T) {
	m := newTestModel(t, model.ModePattern, nil)
	metric := 72.4
	m.last = &model.SessionOutcome{Metric: &metric}
	m.all = stats.Summary{WithMetric: 4, MeanMetric: 68.1}
	m.width = 200
	out := m.renderFooter(capture.Snapshot{Counters: capture.Counters{Sessions: 5, Submitted: 4, Abandoned: 1}})
	if !containsAll(out, []string{"Score 0", "Sessions 5", "sent 4", "dropped 1", "Last 72.40%", "All-time 68.10% over 4"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}
}

func TestRenderFooterTruncates(t *testing.T) {
	m := newTestModel(t, model.ModeDrawing, nil)
	m.width = 20
	out := m.renderFooter(capture.Snapshot{})
	if !strings.Contains(out, "…") {
		t.Fatalf("expected truncated footer: %s", out)
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
