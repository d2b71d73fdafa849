package livesync

import "live-stats/src/models"

// Merge folds a partial update into the previous snapshot and returns a new value.
//
// Without a previous snapshot only complete updates are accepted; an incomplete
// one returns nil and the caller keeps waiting for a full fetch. Otherwise each
// field comes from the update when present, else from prev, else its zero default.
// Top and Totals are replaced as whole lists, never merged element-wise.
func Merge(prev *models.MSnapshot, in models.MPartialUpdate) *models.MSnapshot {
	if prev == nil && !in.IsComplete() {
		return nil
	}

	base := prev
	if base == nil {
		base = &models.MSnapshot{}
	}

	out := &models.MSnapshot{
		Scope:      base.Scope,
		Country:    base.Country,
		Date:       base.Date,
		TotalCount: base.TotalCount,
		Top:        base.Top,
		Totals:     base.Totals,
	}

	if in.Scope != nil {
		out.Scope = *in.Scope
	}
	if in.HasCountry {
		out.Country = in.Country
	}
	if in.Date != nil {
		out.Date = *in.Date
	}
	if in.TotalCount != nil {
		out.TotalCount = *in.TotalCount
	}
	if in.HasTop {
		out.Top = in.Top
	}
	if in.HasTotals {
		out.Totals = in.Totals
	}

	if out.Scope == "" {
		out.Scope = models.DefaultScope
	}
	if out.Country != nil {
		c := *out.Country
		out.Country = &c
	}
	// Copies keep published snapshots independent of the decoded update.
	out.Top = append(make([]string, 0, len(out.Top)), out.Top...)
	out.Totals = append(make([]models.MTotal, 0, len(out.Totals)), out.Totals...)

	return out
}
