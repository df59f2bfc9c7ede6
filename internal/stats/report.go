package stats

import (
	"context"
	"io"

	"github.com/verte-zerg/tracepad/internal/model"
	"github.com/verte-zerg/tracepad/internal/store"
)

// Report contains precomputed data for history rendering.
type Report struct {
	Outcomes []model.SessionOutcome
	Summary  Summary
	Counts   map[model.Mode]int
}

// BuildReport loads outcomes matching filter.
func BuildReport(ctx context.Context, st *store.Store, filter model.HistoryFilter) (Report, error) {
	outcomes, err := st.ListOutcomes(ctx, filter)
	if err != nil {
		return Report{}, err
	}
	counts, err := st.CountByMode(ctx)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Outcomes: outcomes,
		Summary:  Summarize(outcomes),
		Counts:   counts,
	}, nil
}

// RenderOptions control the history output.
type RenderOptions struct {
	Window     int
	Width      int
	Height     int
	ForceColor bool
	Table      bool
}

// Render prints the summary, optional table and trend chart.
func (r Report) Render(w io.Writer, opts RenderOptions) error {
	if err := RenderSummary(w, r.Outcomes); err != nil {
		return err
	}
	if len(r.Outcomes) == 0 {
		return nil
	}
	if opts.Table {
		if err := RenderOutcomeTable(w, r.Outcomes); err != nil {
			return err
		}
	}
	return RenderCurves(w, r.Outcomes, opts.Window, opts.Width, opts.Height, opts.ForceColor)
}
