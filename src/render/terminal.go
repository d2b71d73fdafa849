package render

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"live-stats/src/models"
	"live-stats/src/utils"

	"github.com/dustin/go-humanize"
	"github.com/enescakir/emoji"
	"github.com/kataras/tablewriter"
	"github.com/lensesio/tableprinter"
)

type moodRow struct {
	Mood    string `header:"mood"`
	Count   string `header:"count"`
	Percent string `header:"share"`
}

// -----------------------------------------------------------------------------

// Terminal prints live views as a table. It is a read-only observer.
type Terminal struct {
	Out    io.Writer
	Locale string
	Now    func() time.Time
}

func NewTerminal(out io.Writer, locale string) *Terminal {
	return &Terminal{Out: out, Locale: utils.NormalizeLocale(locale), Now: time.Now}
}

// -----------------------------------------------------------------------------

// Run renders every view received until ctx ends or views is closed.
func (t *Terminal) Run(ctx context.Context, views <-chan models.MLiveView) {
	for {
		select {
		case <-ctx.Done():
			return
		case view, ok := <-views:
			if !ok {
				return
			}
			t.Render(view)
		}
	}
}

// -----------------------------------------------------------------------------

func (t *Terminal) Render(view models.MLiveView) {
	fmt.Fprintln(t.Out, t.Header(view))

	if view.Error != "" {
		fmt.Fprintf(t.Out, "%s %s\n", emoji.Warning, view.Error)
	}
	if view.Snapshot == nil {
		fmt.Fprintln(t.Out, "waiting for data...")
		return
	}

	if top := utils.MapTop(view.Snapshot.Top, t.Locale); len(top) > 0 {
		parts := make([]string, len(top))
		for i, m := range top {
			parts[i] = fmt.Sprintf("%s %s", m.Emoji, m.Label)
		}
		fmt.Fprintf(t.Out, "top: %s\n", strings.Join(parts, ", "))
	}

	printer := tableprinter.New(t.Out)
	printer.BorderTop, printer.BorderBottom, printer.BorderLeft, printer.BorderRight = true, true, true, true
	printer.CenterSeparator = "│"
	printer.ColumnSeparator = "│"
	printer.RowSeparator = "─"
	printer.HeaderBgColor = tablewriter.BgBlackColor
	printer.HeaderFgColor = tablewriter.FgGreenColor
	printer.Print(t.Rows(view.Snapshot))
}

// -----------------------------------------------------------------------------

// Header is the one-line summary above the table.
func (t *Terminal) Header(view models.MLiveView) string {
	scope := models.DefaultScope
	date, total := "-", "0"
	if s := view.Snapshot; s != nil {
		scope = s.Scope
		if s.Country != nil && *s.Country != "" {
			scope = fmt.Sprintf("%s/%s", s.Scope, *s.Country)
		}
		if s.Date != "" {
			date = s.Date
		}
		total = humanize.Comma(s.TotalCount)
	}

	updated := "never"
	if !view.UpdatedAt.IsZero() {
		updated = humanize.RelTime(view.UpdatedAt, t.Now(), "ago", "from now")
	}
	return fmt.Sprintf("%s %s │ %s │ %s │ total %s │ updated %s",
		statusIcon(view.Status), view.Status, scope, date, total, updated)
}

// -----------------------------------------------------------------------------

// Rows sorts categories by count, largest first.
func (t *Terminal) Rows(s *models.MSnapshot) []moodRow {
	totals := append([]models.MTotal{}, s.Totals...)
	sort.SliceStable(totals, func(i, j int) bool { return totals[i].Count > totals[j].Count })

	rows := make([]moodRow, 0, len(totals))
	for _, tot := range totals {
		meta := utils.GetMoodMeta(tot.MoodType, t.Locale)
		icon := tot.Emoji
		if icon == "" {
			icon = meta.Emoji
		}
		rows = append(rows, moodRow{
			Mood:    strings.TrimSpace(icon + " " + meta.Label),
			Count:   humanize.Comma(tot.Count),
			Percent: humanize.FtoaWithDigits(tot.Percent, 1) + "%",
		})
	}
	return rows
}

// -----------------------------------------------------------------------------

func statusIcon(status models.ConnectionStatus) string {
	switch status {
	case models.StatusConnected:
		return string(emoji.GreenCircle)
	case models.StatusConnecting, models.StatusReconnecting:
		return string(emoji.YellowCircle)
	case models.StatusPolling:
		return string(emoji.HourglassNotDone)
	}
	return string(emoji.WhiteCircle)
}
