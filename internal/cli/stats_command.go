package cli

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	apperrors "fretlog/internal/errors"
	"fretlog/internal/stats"
	"fretlog/internal/timefmt"
)

// StatsCommand handles the stats subcommands
type StatsCommand struct {
	app          *App
	errorHandler *ErrorHandler
}

// NewStatsCommand creates a new stats command handler
func NewStatsCommand(app *App) *StatsCommand {
	return &StatsCommand{app: app, errorHandler: NewErrorHandler()}
}

// Summary prints practice totals for each calendar period.
func (c *StatsCommand) Summary(_ context.Context, _ []string) error {
	s := c.app.styles()
	sum := c.app.stats.Summary()
	streak := c.app.stats.Streak()

	rows := [][]string{
		{"Today", timefmt.Short(sum.Today)},
		{"This week", timefmt.Short(sum.Week)},
		{"This month", timefmt.Short(sum.Month)},
		{"This year", timefmt.Short(sum.Year)},
		{"All time", timefmt.Short(sum.AllTime)},
	}

	c.app.printf("%s\n\n", s.Title.Render("Practice summary"))
	c.app.printf("%s", table(s, []string{"Period", "Time"}, rows))
	c.app.printf("\n%s sessions, %s day streak\n", humanize.Comma(int64(sum.Sessions)), strconv.Itoa(streak.Current))
	return nil
}

// Top prints the most practiced items in a period.
func (c *StatsCommand) Top(_ context.Context, args []string, limit int) error {
	period, err := c.period(args)
	if err != nil {
		return err
	}
	if limit <= 0 {
		limit = c.app.config.Stats.TopLimit
	}

	items := c.app.stats.MostPracticedItems(period, limit)
	if len(items) == 0 {
		c.app.println("Nothing practiced in this period")
		return nil
	}

	s := c.app.styles()
	rows := make([][]string, 0, len(items))
	for i, item := range items {
		cat, _ := c.app.store.Category(item.CategoryID)
		rows = append(rows, []string{
			humanize.Ordinal(i + 1),
			item.Name,
			cat.Icon + " " + cat.Name,
			timefmt.Short(item.Total),
			strconv.Itoa(item.Sessions),
		})
	}
	c.app.printf("%s\n\n", s.Title.Render("Most practiced ("+string(period)+")"))
	c.app.printf("%s", table(s, []string{"", "Item", "Category", "Time", "Sessions"}, rows))
	return nil
}

// Recent prints the latest practiced items, newest first.
func (c *StatsCommand) Recent(_ context.Context, _ []string, limit int) error {
	if limit <= 0 {
		limit = c.app.config.Stats.RecentLimit
	}
	items := c.app.stats.RecentPracticeItems(limit)
	if len(items) == 0 {
		c.app.println("No practice recorded yet")
		return nil
	}

	s := c.app.styles()
	now := timeNow()
	rows := make([][]string, 0, len(items))
	for _, recent := range items {
		rows = append(rows, []string{
			recent.Item.Name,
			timefmt.Clock(recent.Item.TimeSpent),
			timefmt.Relative(recent.Date, now),
		})
	}
	c.app.printf("%s\n\n", s.Title.Render("Recently practiced"))
	c.app.printf("%s", table(s, []string{"Item", "Time", "When"}, rows))
	return nil
}

// Breakdown prints each category's share of a period.
func (c *StatsCommand) Breakdown(_ context.Context, args []string) error {
	period, err := c.period(args)
	if err != nil {
		return err
	}
	shares := c.app.stats.CategoryBreakdown(period)
	if len(shares) == 0 {
		c.app.println("Nothing practiced in this period")
		return nil
	}

	s := c.app.styles()
	width := c.app.config.Display.SummaryWidth / 3
	if width < 10 {
		width = 10
	}
	rows := make([][]string, 0, len(shares))
	for _, share := range shares {
		rows = append(rows, []string{
			share.Icon + " " + share.Name,
			s.Accent.Render(bar(share.Share, width)),
			percent(share.Share),
			timefmt.Short(share.Total),
		})
	}
	c.app.printf("%s\n\n", s.Title.Render("Category breakdown ("+string(period)+")"))
	c.app.printf("%s", table(s, []string{"Category", "", "Share", "Time"}, rows))
	return nil
}

// Streak prints the current and longest practice streaks.
func (c *StatsCommand) Streak(_ context.Context, _ []string) error {
	s := c.app.styles()
	streak := c.app.stats.Streak()

	c.app.printf("%s\n", s.Title.Render("Practice streak"))
	c.app.printf("Current: %s\n", s.Success.Render(days(streak.Current)))
	c.app.printf("Longest: %s\n", days(streak.Longest))
	if streak.LastPracticed.IsZero() {
		c.app.printf("Last practiced: never\n")
		return nil
	}
	c.app.printf("Last practiced: %s\n", streak.LastPracticed.Format(c.app.config.Display.DateFormat))
	return nil
}

// Heatmap prints one row per week over the window, one cell per day.
// The window is shorthand like "4w" or "30d", twelve weeks by default.
func (c *StatsCommand) Heatmap(_ context.Context, args []string) error {
	window := 12 * 7 * 24 * time.Hour
	if len(args) > 0 {
		d, err := parseTimeShorthand(args[0])
		if err != nil {
			return apperrors.NewInvalidInputError("window", args[0], err.Error())
		}
		window = d
	}
	n := int(window / (24 * time.Hour))
	if n < 1 {
		n = 1
	}

	cells := c.app.stats.Heatmap(n)
	var peak time.Duration
	var total time.Duration
	for _, cell := range cells {
		peak = max(peak, cell.Total)
		total += cell.Total
	}

	s := c.app.styles()
	levels := []string{"·", "░", "▒", "▓", "█"}
	var b strings.Builder
	for i, cell := range cells {
		if i%7 == 0 {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(s.Muted.Render(cell.Date.Format("Jan 02")))
			b.WriteString(" ")
		}
		level := 0
		if cell.Total > 0 && peak > 0 {
			level = 1 + int(float64(len(levels)-2)*float64(cell.Total)/float64(peak)+0.5)
		}
		b.WriteString(s.Accent.Render(levels[level]))
	}
	b.WriteString("\n")

	c.app.printf("%s\n\n", s.Title.Render("Practice heatmap"))
	c.app.printf("%s", b.String())
	c.app.printf("\n%s over %d days\n", timefmt.Short(total), n)
	return nil
}

func (c *StatsCommand) period(args []string) (stats.Period, error) {
	if len(args) == 0 {
		return stats.PeriodWeek, nil
	}
	p, err := stats.ParsePeriod(args[0])
	if err != nil {
		return "", apperrors.NewInvalidInputError("period", args[0], err.Error())
	}
	return p, nil
}

func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return strconv.Itoa(n) + " days"
}
