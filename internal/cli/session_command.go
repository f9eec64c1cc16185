package cli

import (
	"context"
	"strconv"
	"strings"
	"time"

	"fretlog/internal/domain"
	apperrors "fretlog/internal/errors"
	"fretlog/internal/timefmt"
	"fretlog/internal/timer"
)

// SessionCommand handles the session subcommands
type SessionCommand struct {
	app          *App
	errorHandler *ErrorHandler
}

// NewSessionCommand creates a new session command handler
func NewSessionCommand(app *App) *SessionCommand {
	return &SessionCommand{app: app, errorHandler: NewErrorHandler()}
}

// Start begins a session on the named instrument, or the default one.
func (c *SessionCommand) Start(ctx context.Context, args []string) error {
	instrumentID := ""
	if len(args) > 0 {
		inst, err := c.app.resolveInstrument(strings.Join(args, " "))
		if err != nil {
			return c.errorHandler.Handle("start session", err)
		}
		instrumentID = inst.ID
	}

	session, err := c.app.store.StartNewSession(ctx, instrumentID)
	if err != nil {
		return c.errorHandler.Handle("start session", err)
	}

	s := c.app.styles()
	inst, _ := c.app.store.Instrument(session.InstrumentID)
	c.app.printf("%s %s %s\n", s.Success.Render("Started session"), inst.Icon, inst.Name)
	return nil
}

// Add puts library items into the current session.
func (c *SessionCommand) Add(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return apperrors.NewInvalidInputError("command", "session add", "usage: fretlog session add <library item>")
	}
	item, err := c.app.resolveLibraryItem(strings.Join(args, " "))
	if err != nil {
		return c.errorHandler.Handle("add item", err)
	}
	session, err := c.app.store.AddItemToSession(ctx, item.ID)
	if err != nil {
		return c.errorHandler.Handle("add item", err)
	}
	c.app.printf("Added %s (#%d)\n", item.Name, len(session.Items))
	return nil
}

// Play focuses the timer on an item, pausing whatever was running.
func (c *SessionCommand) Play(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return apperrors.NewInvalidInputError("command", "session play", "usage: fretlog session play <item>")
	}
	item, err := c.app.resolveSessionItem(strings.Join(args, " "))
	if err != nil {
		return c.errorHandler.Handle("start timer", err)
	}
	if err := c.app.timer.Play(ctx, item.ID); err != nil {
		return c.errorHandler.Handle("start timer", err)
	}
	c.app.printf("%s %s at %s\n", c.app.styles().Success.Render("▶"), item.Name, timefmt.Clock(c.app.timer.Elapsed(item.ID)))
	return nil
}

// Pause stops the running item, or the named one.
func (c *SessionCommand) Pause(ctx context.Context, args []string) error {
	itemID := c.app.timer.Focused()
	if len(args) > 0 {
		item, err := c.app.resolveSessionItem(strings.Join(args, " "))
		if err != nil {
			return c.errorHandler.Handle("pause timer", err)
		}
		itemID = item.ID
	}
	if itemID == "" || c.app.timer.State(itemID) != timer.Running {
		c.app.println("No item is running")
		return nil
	}

	elapsed := c.app.timer.Elapsed(itemID)
	if err := c.app.timer.Pause(ctx, itemID); err != nil {
		return c.errorHandler.Handle("pause timer", err)
	}
	item, _ := c.currentItem(itemID)
	c.app.printf("%s %s at %s\n", c.app.styles().Warning.Render("⏸"), item.Name, timefmt.Clock(elapsed))
	return nil
}

// Remove drops an item from the current session.
func (c *SessionCommand) Remove(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return apperrors.NewInvalidInputError("command", "session remove", "usage: fretlog session remove <item>")
	}
	item, err := c.app.resolveSessionItem(strings.Join(args, " "))
	if err != nil {
		return c.errorHandler.Handle("remove item", err)
	}
	if _, err := c.app.timer.RemoveItem(ctx, item.ID); err != nil {
		return c.errorHandler.Handle("remove item", err)
	}
	c.app.printf("Removed %s\n", item.Name)
	return nil
}

// SetTime overwrites the time recorded for an item.
func (c *SessionCommand) SetTime(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return apperrors.NewInvalidInputError("command", "session time", "usage: fretlog session time <item> <duration>")
	}
	spent, err := parseDuration(args[len(args)-1])
	if err != nil {
		return apperrors.NewInvalidInputError("duration", args[len(args)-1], err.Error())
	}
	item, err := c.app.resolveSessionItem(strings.Join(args[:len(args)-1], " "))
	if err != nil {
		return c.errorHandler.Handle("set item time", err)
	}
	if err := c.app.timer.SetElapsed(ctx, item.ID, spent); err != nil {
		return c.errorHandler.Handle("set item time", err)
	}
	c.app.printf("%s set to %s\n", item.Name, timefmt.Clock(spent))
	return nil
}

// Notes replaces the current session's notes.
func (c *SessionCommand) Notes(ctx context.Context, args []string) error {
	if _, err := c.app.store.UpdateCurrentSessionNotes(ctx, strings.Join(args, " ")); err != nil {
		return c.errorHandler.Handle("save notes", err)
	}
	c.app.println("Notes saved")
	return nil
}

// End finalizes the current session and moves it to history.
func (c *SessionCommand) End(ctx context.Context, args []string) error {
	notes := strings.Join(args, " ")
	if notes == "" {
		if session, ok := c.app.store.CurrentSession(); ok {
			notes = session.Notes
		}
	}
	done, err := c.app.timer.EndSession(ctx, notes)
	if err != nil {
		return c.errorHandler.Handle("end session", err)
	}
	if done == nil {
		c.app.println("No session is running")
		return nil
	}

	s := c.app.styles()
	c.app.printf("%s %s across %d items\n", s.Success.Render("Session saved:"), timefmt.Long(done.TotalTime), len(done.Items))
	return nil
}

// Cancel discards the current session.
func (c *SessionCommand) Cancel(ctx context.Context, _ []string) error {
	if _, ok := c.app.store.CurrentSession(); !ok {
		c.app.println("No session is running")
		return nil
	}
	if err := c.app.timer.CancelSession(ctx); err != nil {
		return c.errorHandler.Handle("cancel session", err)
	}
	c.app.println("Session discarded")
	return nil
}

// Status shows the current session with live item times.
func (c *SessionCommand) Status(_ context.Context, _ []string) error {
	session, ok := c.app.store.CurrentSession()
	if !ok {
		c.app.println("No session is running")
		return nil
	}
	c.app.printf("%s", c.app.renderSession(session))
	return nil
}

func (c *SessionCommand) currentItem(itemID string) (domain.SessionItem, bool) {
	session, ok := c.app.store.CurrentSession()
	if !ok {
		return domain.SessionItem{}, false
	}
	return session.Item(itemID)
}

// renderSession draws the session header and one row per item.
func (a *App) renderSession(session domain.Session) string {
	s := a.styles()
	inst, _ := a.store.Instrument(session.InstrumentID)

	var b strings.Builder
	b.WriteString(s.Title.Render("Practice session"))
	b.WriteString(s.Muted.Render("  " + inst.Icon + " " + inst.Name + "  started " + timefmt.Relative(session.StartTime, timeNow())))
	b.WriteString("\n\n")

	if len(session.Items) == 0 {
		b.WriteString(s.Muted.Render("No items yet. Add one with: fretlog session add <library item>"))
		b.WriteString("\n")
	} else {
		rows := make([][]string, 0, len(session.Items))
		var total time.Duration
		for i, item := range session.Items {
			state := a.timer.State(item.ID)
			elapsed := a.timer.Elapsed(item.ID)
			total += elapsed
			marker := " "
			if state == timer.Running {
				marker = s.Success.Render("▶")
			}
			cat, _ := a.store.Category(item.CategoryID)
			rows = append(rows, []string{
				marker,
				strconv.Itoa(i + 1),
				item.Name,
				cat.Icon + " " + cat.Name,
				timefmt.Clock(elapsed),
			})
		}
		b.WriteString(table(s, []string{"", "#", "Item", "Category", "Time"}, rows))
		b.WriteString("\n")
		b.WriteString(s.Text.Render("Total " + timefmt.Clock(total)))
		b.WriteString("\n")
	}
	if session.Notes != "" {
		b.WriteString(s.Muted.Render("Notes: " + session.Notes))
		b.WriteString("\n")
	}
	return b.String()
}
