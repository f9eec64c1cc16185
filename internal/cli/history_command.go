package cli

import (
	"context"
	"strconv"
	"strings"

	"fretlog/internal/domain"
	apperrors "fretlog/internal/errors"
	"fretlog/internal/timefmt"
)

// HistoryCommand lists and edits completed sessions.
type HistoryCommand struct {
	app          *App
	errorHandler *ErrorHandler
}

func NewHistoryCommand(app *App) *HistoryCommand {
	return &HistoryCommand{app: app, errorHandler: NewErrorHandler()}
}

// List prints the most recent completed sessions, numbered the way the
// other history commands accept them.
func (c *HistoryCommand) List(_ context.Context, _ []string, limit int) error {
	if limit <= 0 {
		limit = c.app.config.Stats.RecentLimit
	}
	sessions := c.app.store.Sessions()
	if len(sessions) == 0 {
		c.app.println("No sessions recorded yet")
		return nil
	}
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}

	s := c.app.styles()
	rows := make([][]string, 0, len(sessions))
	for i, session := range sessions {
		inst, _ := c.app.store.Instrument(session.InstrumentID)
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			session.Date.Local().Format(c.app.config.Display.DateFormat),
			inst.Name,
			strconv.Itoa(len(session.Items)),
			timefmt.Short(session.TotalTime),
			session.Notes,
		})
	}
	c.app.printf("%s\n\n", s.Title.Render("Practice history"))
	c.app.printf("%s", table(s, []string{"#", "Date", "Instrument", "Items", "Total", "Notes"}, rows))
	return nil
}

func (c *HistoryCommand) Show(_ context.Context, args []string) error {
	session, err := c.app.resolveSession(args[0])
	if err != nil {
		return c.errorHandler.Handle("show session", err)
	}
	c.app.printf("%s", c.app.renderHistory(session))
	return nil
}

// Notes replaces the notes of a completed session.
func (c *HistoryCommand) Notes(ctx context.Context, args []string) error {
	session, err := c.app.resolveSession(args[0])
	if err != nil {
		return c.errorHandler.Handle("update session", err)
	}
	session.Notes = strings.TrimSpace(strings.Join(args[1:], " "))
	if _, err := c.app.store.UpdateSession(ctx, session); err != nil {
		return c.errorHandler.Handle("update session", err)
	}
	c.app.println("Notes saved")
	return nil
}

// Log records practice done away from the timer as a completed session
// that ends now.
func (c *HistoryCommand) Log(ctx context.Context, args []string, notes string) error {
	if len(args) < 2 {
		return apperrors.NewInvalidInputError("command", "history log", "usage: fretlog history log <item> <duration>")
	}
	spent, err := parseDuration(args[len(args)-1])
	if err != nil {
		return apperrors.NewInvalidInputError("duration", args[len(args)-1], err.Error())
	}
	item, err := c.app.resolveLibraryItem(strings.Join(args[:len(args)-1], " "))
	if err != nil {
		return c.errorHandler.Handle("log session", err)
	}

	end := timeNow()
	session := domain.NewSession("", c.app.store.User().DefaultInstrumentID, end.Add(-spent))
	entry := domain.NewSessionItem("", item, session.StartTime)
	entry.TimeSpent = spent
	session.AddItem(entry)
	session.EndTime = &end
	session.Notes = strings.TrimSpace(notes)

	saved, err := c.app.store.AddSession(ctx, session)
	if err != nil {
		return c.errorHandler.Handle("log session", err)
	}
	c.app.printf("Logged %s of %s\n", timefmt.Short(saved.TotalTime), item.Name)
	return nil
}

func (c *HistoryCommand) Delete(ctx context.Context, args []string) error {
	session, err := c.app.resolveSession(args[0])
	if err != nil {
		return c.errorHandler.Handle("delete session", err)
	}
	if err := c.app.store.DeleteSession(ctx, session.ID); err != nil {
		return c.errorHandler.Handle("delete session", err)
	}
	c.app.printf("Deleted session from %s\n", session.Date.Local().Format(c.app.config.Display.DateFormat))
	return nil
}

func (a *App) renderHistory(session domain.Session) string {
	s := a.styles()
	inst, _ := a.store.Instrument(session.InstrumentID)

	var b strings.Builder
	b.WriteString(s.Title.Render(session.Date.Local().Format(a.config.Display.DateFormat)))
	b.WriteString(s.Muted.Render("  " + inst.Icon + " " + inst.Name))
	b.WriteString("\n\n")

	rows := make([][]string, 0, len(session.Items))
	for _, item := range session.Items {
		cat, _ := a.store.Category(item.CategoryID)
		rows = append(rows, []string{item.Name, cat.Icon + " " + cat.Name, timefmt.Clock(item.TimeSpent)})
	}
	if len(rows) > 0 {
		b.WriteString(table(s, []string{"Item", "Category", "Time"}, rows))
		b.WriteString("\n")
	}
	b.WriteString(s.Text.Render("Total " + timefmt.Long(session.TotalTime)))
	b.WriteString("\n")
	if session.Notes != "" {
		b.WriteString(s.Muted.Render("Notes: " + session.Notes))
		b.WriteString("\n")
	}
	return b.String()
}
