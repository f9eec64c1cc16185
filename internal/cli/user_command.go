package cli

import (
	"context"
	"strings"
)

// ProfileOptions carries the profile set flags. Nil fields are unchanged.
type ProfileOptions struct {
	Name       *string
	Email      *string
	Instrument *string
}

// UserCommand handles the profile and theme subcommands
type UserCommand struct {
	app          *App
	errorHandler *ErrorHandler
}

// NewUserCommand creates a new user command handler
func NewUserCommand(app *App) *UserCommand {
	return &UserCommand{app: app, errorHandler: NewErrorHandler()}
}

// Show prints the profile.
func (c *UserCommand) Show(_ context.Context, _ []string) error {
	s := c.app.styles()
	user := c.app.store.User()

	c.app.printf("%s\n", s.Title.Render(user.DisplayName()))
	if user.Email != "" {
		c.app.printf("Email:      %s\n", user.Email)
	}
	if inst, ok := c.app.store.Instrument(user.DefaultInstrumentID); ok {
		c.app.printf("Instrument: %s %s\n", inst.Icon, inst.Name)
	} else {
		c.app.printf("Instrument: %s\n", s.Muted.Render("none"))
	}
	c.app.printf("Theme:      %s\n", c.app.store.Theme())
	return nil
}

// Set updates the profile fields given.
func (c *UserCommand) Set(ctx context.Context, opts ProfileOptions) error {
	user := c.app.store.User()
	if opts.Name != nil {
		user.Name = *opts.Name
	}
	if opts.Email != nil {
		user.Email = strings.TrimSpace(*opts.Email)
	}
	if opts.Instrument != nil {
		inst, err := c.app.resolveInstrument(*opts.Instrument)
		if err != nil {
			return c.errorHandler.Handle("update profile", err)
		}
		user.DefaultInstrumentID = inst.ID
	}

	saved, err := c.app.store.UpdateUser(ctx, user)
	if err != nil {
		return c.errorHandler.Handle("update profile", err)
	}
	c.app.printf("Profile saved for %s\n", saved.DisplayName())
	return nil
}

// Theme prints the current theme, or switches to the one given.
func (c *UserCommand) Theme(ctx context.Context, args []string) error {
	if len(args) == 0 {
		c.app.println(c.app.store.Theme())
		return nil
	}
	theme := strings.ToLower(args[0])
	if err := c.app.store.SetTheme(ctx, theme); err != nil {
		return c.errorHandler.Handle("set theme", err)
	}
	c.app.printf("%s\n", c.app.styles().Success.Render("Theme set to "+theme))
	return nil
}
