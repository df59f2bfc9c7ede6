// Package stats summarises submitted session outcomes.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/tracepad/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Verdict classifies a backend metric.
type Verdict int

const (
	VerdictUnknown Verdict = iota
	VerdictHuman
	VerdictBorderline
	VerdictMacroSuspected
	VerdictOutlier
)

func (v Verdict) String() string {
	switch v {
	case VerdictHuman:
		return "human"
	case VerdictBorderline:
		return "borderline"
	case VerdictMacroSuspected:
		return "macro suspected"
	case VerdictOutlier:
		return "outlier"
	default:
		return "-"
	}
}

// Classify maps a metric percentage onto its verdict band.
func Classify(metric float64) Verdict {
	switch {
	case math.IsNaN(metric):
		return VerdictUnknown
	case metric >= 110:
		return VerdictOutlier
	case metric >= 90:
		return VerdictMacroSuspected
	case metric >= 80:
		return VerdictBorderline
	default:
		return VerdictHuman
	}
}

// VerdictOf classifies an outcome; outcomes without a metric are unknown.
func VerdictOf(out model.SessionOutcome) Verdict {
	if out.Metric == nil {
		return VerdictUnknown
	}
	return Classify(*out.Metric)
}

// Summary aggregates a list of outcomes.
type Summary struct {
	Sessions    int
	WithMetric  int
	Failed      int
	MeanMetric  float64
	MaxMetric   float64
	MeanSamples float64
	Verdicts    map[Verdict]int
}

// Summarize computes aggregate figures over outcomes.
func Summarize(outcomes []model.SessionOutcome) Summary {
	sum := Summary{Sessions: len(outcomes), Verdicts: map[Verdict]int{}}
	if len(outcomes) == 0 {
		return sum
	}
	var metricTotal float64
	var sampleTotal int
	for _, out := range outcomes {
		sampleTotal += out.Samples
		if out.Error != "" {
			sum.Failed++
		}
		sum.Verdicts[VerdictOf(out)]++
		if out.Metric == nil {
			continue
		}
		m := *out.Metric
		if sum.WithMetric == 0 || m > sum.MaxMetric {
			sum.MaxMetric = m
		}
		sum.WithMetric++
		metricTotal += m
	}
	if sum.WithMetric > 0 {
		sum.MeanMetric = metricTotal / float64(sum.WithMetric)
	}
	sum.MeanSamples = float64(sampleTotal) / float64(len(outcomes))
	return sum
}

// Metrics returns the metric series of outcomes that carry one.
func Metrics(outcomes []model.SessionOutcome) []float64 {
	out := make([]float64, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Metric != nil {
			out = append(out, *o.Metric)
		}
	}
	return out
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		n := i + 1
		if i >= window {
			sum -= values[i-window]
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := minMax(values)
	if hi-lo < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	last := len(sparkChars) - 1
	for _, v := range values {
		idx := int(math.Round((v - lo) / (hi - lo) * float64(last)))
		idx = max(0, min(idx, last))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints the aggregate block for outcomes.
func RenderSummary(w io.Writer, outcomes []model.SessionOutcome) error {
	if len(outcomes) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	sum := Summarize(outcomes)
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", sum.Sessions),
		fmt.Sprintf("Failed submissions: %d", sum.Failed),
		fmt.Sprintf("Avg samples: %.1f", sum.MeanSamples),
	}
	if sum.WithMetric > 0 {
		lines = append(lines,
			fmt.Sprintf("Avg metric: %.2f%%", sum.MeanMetric),
			fmt.Sprintf("Max metric: %.2f%%", sum.MaxMetric),
			fmt.Sprintf("Trend: %s", Sparkline(Metrics(outcomes))),
		)
	}
	for _, v := range []Verdict{VerdictHuman, VerdictBorderline, VerdictMacroSuspected, VerdictOutlier, VerdictUnknown} {
		if n := sum.Verdicts[v]; n > 0 {
			lines = append(lines, fmt.Sprintf("  %s: %d", v, n))
		}
	}
	lines = append(lines, "")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderOutcomeTable prints one row per outcome, oldest first.
func RenderOutcomeTable(w io.Writer, outcomes []model.SessionOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	cols := []column{
		{header: "Submitted"},
		{header: "Mode"},
		{header: "Samples", right: true},
		{header: "Duration", right: true},
		{header: "Metric", right: true},
		{header: "Verdict"},
		{header: "Session"},
	}
	rows := make([][]string, 0, len(outcomes))
	for _, out := range outcomes {
		metric := "-"
		if out.Metric != nil {
			metric = fmt.Sprintf("%.2f%%", *out.Metric)
		}
		verdict := VerdictOf(out).String()
		if out.Error != "" {
			verdict = "error: " + out.Error
		}
		rows = append(rows, []string{
			out.SubmittedAt.Local().Format("2006-01-02 15:04:05"),
			string(out.Mode),
			fmt.Sprintf("%d", out.Samples),
			fmt.Sprintf("%.1fs", float64(out.DurationMs)/1000),
			metric,
			verdict,
			shortID(out.SessionID),
		})
	}
	if _, err := fmt.Fprintln(w, "Sessions"); err != nil {
		return err
	}
	for _, line := range formatTable(cols, rows) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderCurves plots the metric and sample-count trends.
func RenderCurves(w io.Writer, outcomes []model.SessionOutcome, window, width, height int, forceColor bool) error {
	metrics := MovingAverage(Metrics(outcomes), window)
	samples := make([]float64, len(outcomes))
	for i, out := range outcomes {
		samples[i] = float64(out.Samples)
	}
	samples = MovingAverage(samples, window)
	return Plot(w, "Trends", []Series{
		{Name: "Metric", Values: metrics},
		{Name: "Samples", Values: samples},
	}, PlotOptions{Width: width, Height: height, ForceColor: forceColor})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func minMax(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if len(values) == 0 {
		return 0, 0
	}
	return lo, hi
}
