package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"fretlog/internal/config"
	"fretlog/internal/stats"
)

// AppFactory builds the App for a loaded configuration.
type AppFactory func(ctx context.Context, cfg *config.Config) (*App, error)

// RootCommand represents the base command when called without any subcommands
type RootCommand struct {
	cmd     *cobra.Command
	factory AppFactory
	config  *config.Config
}

// NewRootCommand creates the root cobra command with global flags
func NewRootCommand(factory AppFactory) *RootCommand {
	root := &RootCommand{factory: factory}

	root.cmd = &cobra.Command{
		Use:   "fretlog",
		Short: "Track music practice sessions from the command line",
		Long: `FretLog is a practice tracker for musicians.

FEATURES:
  • Build a library of songs, exercises and lessons grouped by category
  • Run practice sessions with a per-item timer that survives restarts
  • Review totals, streaks, most practiced items and category breakdowns
  • Export, import and reset all data

EXAMPLES:
  fretlog library add "Blackbird" --category Songs --artist "The Beatles"
  fretlog session start                    # Start a session on the default instrument
  fretlog session add blackbird            # Add a library item to the session
  fretlog session play 1                   # Time the first item
  fretlog session watch                    # Live view with keyboard controls
  fretlog session end "felt good"          # Save the session with notes
  fretlog stats summary                    # Practice time per period
  fretlog stats heatmap 4w                 # Daily practice over four weeks
  fretlog history notes 1 "slow tempo"     # Edit the notes of the last session
  fretlog history log blackbird 20m        # Record practice done without the timer

CONFIGURATION:
  Configuration follows this priority order: command-line flags > environment variables > config file > defaults

    FRETLOG_REMOTE_MODE                    embedded (default) or http
    FRETLOG_REMOTE_BASE_URL                Server address in http mode
    FRETLOG_REMOTE_DATABASE_PATH           SQLite file in embedded mode (default: ~/.fretlog/fretlog.db)
    FRETLOG_CACHE_BACKEND                  bolt (default), redis or memory
    FRETLOG_CACHE_PATH                     Snapshot file for the bolt backend
    FRETLOG_LOGGING_LEVEL                  debug, info, warn (default) or error
    FRETLOG_APPLICATION_TIMEOUT            Per-command timeout (default: 60s)

TIME FORMATS:
  Durations and windows accept shorthand: 30s, 15m, 2h, 1d, 2w, 3mo, 1y

GETTING HELP:
  fretlog [command] --help                 # Get help for any specific command
  fretlog completion bash                  # Generate bash completion script`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.addGlobalFlags()
	root.addSubcommands()

	return root
}

// Execute runs the root command
func (r *RootCommand) Execute() error {
	return r.cmd.Execute()
}

// ExecuteContext runs the root command with ctx as the base context.
func (r *RootCommand) ExecuteContext(ctx context.Context) error {
	return r.cmd.ExecuteContext(ctx)
}

// Command exposes the cobra command, for tests and completion.
func (r *RootCommand) Command() *cobra.Command {
	return r.cmd
}

// addGlobalFlags adds global configuration flags
func (r *RootCommand) addGlobalFlags() {
	flags := r.cmd.PersistentFlags()

	flags.String("config", "", "Config file (yaml, json or toml)")

	// Remote configuration
	flags.String("remote", "", "Remote mode: embedded or http (overrides FRETLOG_REMOTE_MODE)")
	flags.String("base-url", "", "Server address, implies http mode (overrides FRETLOG_REMOTE_BASE_URL)")
	flags.String("db", "", "SQLite database for embedded mode (overrides FRETLOG_REMOTE_DATABASE_PATH)")

	// Cache configuration
	flags.String("cache", "", "Snapshot cache: bolt, redis or memory (overrides FRETLOG_CACHE_BACKEND)")
	flags.String("cache-path", "", "Snapshot file for bolt (overrides FRETLOG_CACHE_PATH)")

	// Application configuration
	flags.String("log-level", "", "Log level (overrides FRETLOG_LOGGING_LEVEL)")
	flags.Duration("timeout", 0, "Per-command timeout (overrides FRETLOG_APPLICATION_TIMEOUT)")
	flags.BoolP("verbose", "v", false, "Enable verbose output")
}

// loadConfig applies the flags on top of file and environment settings.
func (r *RootCommand) loadConfig() (*config.Config, error) {
	flags := r.cmd.PersistentFlags()
	path, _ := flags.GetString("config")

	overrides := &config.ConfigOverrides{
		RemoteMode:   changedString(flags, "remote"),
		BaseURL:      changedString(flags, "base-url"),
		DatabasePath: changedString(flags, "db"),
		CacheBackend: changedString(flags, "cache"),
		CachePath:    changedString(flags, "cache-path"),
		LogLevel:     changedString(flags, "log-level"),
	}
	if flags.Changed("timeout") {
		timeout, _ := flags.GetDuration("timeout")
		overrides.Timeout = &timeout
	}
	if flags.Changed("verbose") {
		verbose, _ := flags.GetBool("verbose")
		overrides.Verbose = &verbose
	}
	return config.NewLoader(path).LoadWithOverrides(overrides)
}

func changedString(flags *pflag.FlagSet, name string) *string {
	if !flags.Changed(name) {
		return nil
	}
	v, _ := flags.GetString(name)
	return &v
}

// getAppTimeout returns the configured application timeout
func (r *RootCommand) getAppTimeout() time.Duration {
	if r.config != nil && r.config.Application.Timeout > 0 {
		return r.config.Application.Timeout
	}
	return 60 * time.Second // Default timeout
}

// run wraps a handler: it loads the configuration, builds and starts the
// App, runs fn under the application timeout and closes the App.
func (r *RootCommand) run(fn func(ctx context.Context, app *App, args []string) error) func(*cobra.Command, []string) error {
	return r.runWith(true, fn)
}

// runInteractive is run without the timeout, for commands that wait on
// the user.
func (r *RootCommand) runInteractive(fn func(ctx context.Context, app *App, args []string) error) func(*cobra.Command, []string) error {
	return r.runWith(false, fn)
}

func (r *RootCommand) runWith(timeout bool, fn func(ctx context.Context, app *App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := r.loadConfig()
		if err != nil {
			return err
		}
		r.config = cfg

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if timeout {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.getAppTimeout())
			defer cancel()
		}

		app, err := r.factory(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := app.Close(); err != nil {
				app.logger.Warn().Err(err).Msg("shutdown incomplete")
			}
		}()
		app.Start(ctx)

		return fn(ctx, app, args)
	}
}

// addSubcommands adds all CLI subcommands to the root command
func (r *RootCommand) addSubcommands() {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Reload all data from the remote store",
		Args:  cobra.NoArgs,
		RunE: r.run(func(ctx context.Context, app *App, args []string) error {
			return NewDataCommand(app).Sync(ctx, args)
		}),
	}

	r.cmd.AddCommand(
		syncCmd,
		r.sessionCommand(),
		r.libraryCommand(),
		r.categoryCommand(),
		r.instrumentCommand(),
		r.artistCommand(),
		r.profileCommand(),
		r.themeCommand(),
		r.statsCommand(),
		r.historyCommand(),
		r.dataCommand(),
	)
}

func (r *RootCommand) sessionCommand() *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:     "session",
		Aliases: []string{"s"},
		Short:   "Run a practice session",
		Long: `Run a practice session.

Items in the current session can be referred to by position (1, 2, ...),
by name or by a unique name prefix. Only one item is timed at a time:
playing an item pauses the one that was running.`,
		Args: cobra.NoArgs,
		RunE: r.run(func(ctx context.Context, app *App, args []string) error {
			return NewSessionCommand(app).Status(ctx, args)
		}),
	}

	handler := func(method func(*SessionCommand) func(context.Context, []string) error) func(*cobra.Command, []string) error {
		return r.run(func(ctx context.Context, app *App, args []string) error {
			return method(NewSessionCommand(app))(ctx, args)
		})
	}

	var metricsAddr string
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Live session view",
		Long: `Show the current session with running timers.

Keys: space plays or pauses the selected item, j/k move the selection,
E ends the session and q quits.`,
		Args: cobra.NoArgs,
		RunE: r.runInteractive(func(ctx context.Context, app *App, _ []string) error {
			return NewSessionCommand(app).Watch(ctx, metricsAddr)
		}),
	}
	watchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while watching")

	sessionCmd.AddCommand(
		&cobra.Command{
			Use:   "start [instrument]",
			Short: "Start a session",
			RunE:  handler(func(c *SessionCommand) func(context.Context, []string) error { return c.Start }),
		},
		&cobra.Command{
			Use:   "add [library item]",
			Short: "Add a library item to the session",
			Args:  cobra.MinimumNArgs(1),
			RunE:  handler(func(c *SessionCommand) func(context.Context, []string) error { return c.Add }),
		},
		&cobra.Command{
			Use:   "play [item]",
			Short: "Start timing an item",
			Args:  cobra.MinimumNArgs(1),
			RunE:  handler(func(c *SessionCommand) func(context.Context, []string) error { return c.Play }),
		},
		&cobra.Command{
			Use:   "pause [item]",
			Short: "Pause the running item",
			RunE:  handler(func(c *SessionCommand) func(context.Context, []string) error { return c.Pause }),
		},
		&cobra.Command{
			Use:     "remove [item]",
			Aliases: []string{"rm"},
			Short:   "Remove an item from the session",
			Args:    cobra.MinimumNArgs(1),
			RunE:    handler(func(c *SessionCommand) func(context.Context, []string) error { return c.Remove }),
		},
		&cobra.Command{
			Use:   "time [item] [duration]",
			Short: "Set the time recorded for an item",
			Long: `Set the time recorded for an item.

Examples:
  fretlog session time 1 15m
  fretlog session time "Blackbird" 1h5m`,
			Args: cobra.MinimumNArgs(2),
			RunE: handler(func(c *SessionCommand) func(context.Context, []string) error { return c.SetTime }),
		},
		&cobra.Command{
			Use:   "notes [text]",
			Short: "Replace the session notes",
			RunE:  handler(func(c *SessionCommand) func(context.Context, []string) error { return c.Notes }),
		},
		&cobra.Command{
			Use:   "end [notes]",
			Short: "Finish the session and save it",
			RunE:  handler(func(c *SessionCommand) func(context.Context, []string) error { return c.End }),
		},
		&cobra.Command{
			Use:   "cancel",
			Short: "Discard the session",
			Args:  cobra.NoArgs,
			RunE:  handler(func(c *SessionCommand) func(context.Context, []string) error { return c.Cancel }),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the current session",
			Args:  cobra.NoArgs,
			RunE:  handler(func(c *SessionCommand) func(context.Context, []string) error { return c.Status }),
		},
		watchCmd,
	)
	return sessionCmd
}

func (r *RootCommand) libraryCommand() *cobra.Command {
	libraryCmd := &cobra.Command{
		Use:     "library",
		Aliases: []string{"lib"},
		Short:   "Manage the practice library",
	}

	addFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringP("category", "c", "", "Category name or id")
		cmd.Flags().StringP("artist", "a", "", "Artist, created if new")
		cmd.Flags().IntP("rating", "r", 0, "Star rating from 0 to 5")
		cmd.Flags().StringP("notes", "n", "", "Notes")
	}
	options := func(cmd *cobra.Command) LibraryOptions {
		flags := cmd.Flags()
		opts := LibraryOptions{
			Category: changedString(flags, "category"),
			Artist:   changedString(flags, "artist"),
			Notes:    changedString(flags, "notes"),
		}
		if flags.Changed("rating") {
			rating, _ := flags.GetInt("rating")
			opts.Rating = &rating
		}
		if flags.Lookup("name") != nil {
			opts.Name = changedString(flags, "name")
		}
		return opts
	}

	listCmd := &cobra.Command{
		Use:     "list [filter]",
		Aliases: []string{"ls"},
		Short:   "List library items",
		RunE: r.run(func(ctx context.Context, app *App, args []string) error {
			return NewCatalogCommand(app).ListLibrary(ctx, args)
		}),
	}

	addCmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a library item",
		Args:  cobra.ExactArgs(1),
	}
	addFlags(addCmd)
	addCmd.RunE = r.run(func(ctx context.Context, app *App, args []string) error {
		opts := options(addCmd)
		opts.Name = &args[0]
		return NewCatalogCommand(app).AddLibrary(ctx, opts)
	})

	updateCmd := &cobra.Command{
		Use:   "update [item]",
		Short: "Edit a library item",
		Args:  cobra.ExactArgs(1),
	}
	addFlags(updateCmd)
	updateCmd.Flags().String("name", "", "New name")
	updateCmd.RunE = r.run(func(ctx context.Context, app *App, args []string) error {
		return NewCatalogCommand(app).UpdateLibrary(ctx, args[0], options(updateCmd))
	})

	showCmd := &cobra.Command{
		Use:   "show [item]",
		Short: "Show a library item and its practice time",
		Args:  cobra.MinimumNArgs(1),
		RunE: r.run(func(ctx context.Context, app *App, args []string) error {
			return NewCatalogCommand(app).ShowLibrary(ctx, args)
		}),
	}

	rmCmd := &cobra.Command{
		Use:     "rm [item]",
		Aliases: []string{"delete"},
		Short:   "Delete a library item",
		Args:    cobra.MinimumNArgs(1),
		RunE: r.run(func(ctx context.Context, app *App, args []string) error {
			return NewCatalogCommand(app).DeleteLibrary(ctx, args)
		}),
	}

	libraryCmd.AddCommand(listCmd, addCmd, updateCmd, showCmd, rmCmd)
	return libraryCmd
}

func (r *RootCommand) categoryCommand() *cobra.Command {
	categoryCmd := &cobra.Command{
		Use:     "category",
		Aliases: []string{"cat"},
		Short:   "Manage categories",
	}

	addFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringP("type", "t", "", "Song, Theory, Lesson, Ear Training, Technique or Other")
		cmd.Flags().String("icon", "", "Icon")
		cmd.Flags().String("color", "", "Color, e.g. #3b82f6")
	}
	options := func(cmd *cobra.Command) CategoryOptions {
		flags := cmd.Flags()
		opts := CategoryOptions{
			Type:  changedString(flags, "type"),
			Icon:  changedString(flags, "icon"),
			Color: changedString(flags, "color"),
		}
		if flags.Lookup("name") != nil {
			opts.Name = changedString(flags, "name")
		}
		return opts
	}

	addCmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
	}
	addFlags(addCmd)
	addCmd.RunE = r.run(func(ctx context.Context, app *App, args []string) error {
		opts := options(addCmd)
		opts.Name = &args[0]
		return NewCatalogCommand(app).AddCategory(ctx, opts)
	})

	updateCmd := &cobra.Command{
		Use:   "update [category]",
		Short: "Edit a category",
		Args:  cobra.ExactArgs(1),
	}
	addFlags(updateCmd)
	updateCmd.Flags().String("name", "", "New name")
	updateCmd.RunE = r.run(func(ctx context.Context, app *App, args []string) error {
		return NewCatalogCommand(app).UpdateCategory(ctx, args[0], options(updateCmd))
	})

	categoryCmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List categories",
			Args:    cobra.NoArgs,
			RunE: r.run(func(ctx context.Context, app *App, args []string) error {
				return NewCatalogCommand(app).ListCategories(ctx, args)
			}),
		},
		addCmd,
		updateCmd,
		&cobra.Command{
			Use:     "rm [category]",
			Aliases: []string{"delete"},
			Short:   "Delete a category",
			Args:    cobra.MinimumNArgs(1),
			RunE: r.run(func(ctx context.Context, app *App, args []string) error {
				return NewCatalogCommand(app).DeleteCategory(ctx, args)
			}),
		},
	)
	return categoryCmd
}

func (r *RootCommand) instrumentCommand() *cobra.Command {
	instrumentCmd := &cobra.Command{
		Use:     "instrument",
		Aliases: []string{"inst"},
		Short:   "Manage instruments",
	}

	var icon, name string
	addCmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add an instrument",
		Args:  cobra.ExactArgs(1),
		RunE: r.run(func(ctx context.Context, app *App, args []string) error {
			return NewCatalogCommand(app).AddInstrument(ctx, args[0], icon)
		}),
	}
	addCmd.Flags().StringVar(&icon, "icon", "", "Icon")

	updateCmd := &cobra.Command{
		Use:   "update [instrument]",
		Short: "Rename an instrument or change its icon",
		Args:  cobra.ExactArgs(1),
		RunE: r.run(func(ctx context.Context, app *App, args []string) error {
			return NewCatalogCommand(app).RenameInstrument(ctx, args[0], name, icon)
		}),
	}
	updateCmd.Flags().StringVar(&name, "name", "", "New name")
	updateCmd.Flags().StringVar(&icon, "icon", "", "New icon")

	instrumentCmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List instruments",
			Args:    cobra.NoArgs,
			RunE: r.run(func(ctx context.Context, app *App, args []string) error {
				return NewCatalogCommand(app).ListInstruments(ctx, args)
			}),
		},
		addCmd,
		updateCmd,
		&cobra.Command{
			Use:     "rm [instrument]",
			Aliases: []string{"delete"},
			Short:   "Delete an instrument",
			Args:    cobra.MinimumNArgs(1),
			RunE: r.run(func(ctx context.Context, app *App, args []string) error {
				return NewCatalogCommand(app).DeleteInstrument(ctx, args)
			}),
		},
	)
	return instrumentCmd
}

func (r *RootCommand) artistCommand() *cobra.Command {
	artistCmd := &cobra.Command{
		Use:   "artist",
		Short: "Manage artists",
	}
	artistCmd.AddCommand(
		&cobra.Command{
			Use:     "list",
			Aliases: []string{"ls"},
			Short:   "List artists",
			Args:    cobra.NoArgs,
			RunE: r.run(func(ctx context.Context, app *App, args []string) error {
				return NewCatalogCommand(app).ListArtists(ctx, args)
			}),
		},
		&cobra.Command{
			Use:   "add [name]",
			Short: "Add an artist",
			Args:  cobra.MinimumNArgs(1),
			RunE: r.run(func(ctx context.Context, app *App, args []string) error {
				return NewCatalogCommand(app).AddArtist(ctx, args)
			}),
		},
		&cobra.Command{
			Use:   "rename [artist] [new name]",
			Short: "Rename an artist",
			Args:  cobra.ExactArgs(2),
			RunE: r.run(func(ctx context.Context, app *App, args []string) error {
				return NewCatalogCommand(app).RenameArtist(ctx, args[0], args[1])
			}),
		},
		&cobra.Command{
			Use:     "rm [artist]",
			Aliases: []string{"delete"},
			Short:   "Delete an artist",
			Args:    cobra.MinimumNArgs(1),
			RunE: r.run(func(ctx context.Context, app *App, args []string) error {
				return NewCatalogCommand(app).DeleteArtist(ctx, args)
			}),
		},
	)
	return artistCmd
}

func (r *RootCommand) profileCommand() *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your profile",
		Args:  cobra.NoArgs,
		RunE: r.run(func(ctx context.Context, app *App, args []string) error {
			return NewUserCommand(app).Show(ctx, args)
		}),
	}

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Update profile fields",
		Args:  cobra.NoArgs,
	}
	setCmd.Flags().String("name", "", "Your name")
	setCmd.Flags().String("email", "", "Your email")
	setCmd.Flags().String("instrument", "", "Default instrument for new sessions")
	setCmd.RunE = r.run(func(ctx context.Context, app *App, _ []string) error {
		flags := setCmd.Flags()
		return NewUserCommand(app).Set(ctx, ProfileOptions{
			Name:       changedString(flags, "name"),
			Email:      changedString(flags, "email"),
			Instrument: changedString(flags, "instrument"),
		})
	})

	profileCmd.AddCommand(setCmd)
	return profileCmd
}

func (r *RootCommand) themeCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "theme [dark|light]",
		Short:     "Show or change the color theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"dark", "light"},
		RunE: r.run(func(ctx context.Context, app *App, args []string) error {
			return NewUserCommand(app).Theme(ctx, args)
		}),
	}
}

func (r *RootCommand) statsCommand() *cobra.Command {
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Practice statistics",
		Long: `Practice statistics.

Periods are calendar windows containing today: day, week, month, year or all.`,
		Args: cobra.NoArgs,
		RunE: r.run(func(ctx context.Context, app *App, args []string) error {
			return NewStatsCommand(app).Summary(ctx, args)
		}),
	}

	var limit int
	topCmd := &cobra.Command{
		Use:       "top [period]",
		Short:     "Most practiced items, this week by default",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: periodNames(),
		RunE: r.run(func(ctx context.Context, app *App, args []string) error {
			return NewStatsCommand(app).Top(ctx, args, limit)
		}),
	}
	topCmd.Flags().IntVarP(&limit, "limit", "l", 0, "Number of items")

	recentCmd := &cobra.Command{
		Use:   "recent",
		Short: "Recently practiced items",
		Args:  cobra.NoArgs,
		RunE: r.run(func(ctx context.Context, app *App, args []string) error {
			return NewStatsCommand(app).Recent(ctx, args, limit)
		}),
	}
	recentCmd.Flags().IntVarP(&limit, "limit", "l", 0, "Number of items")

	statsCmd.AddCommand(
		&cobra.Command{
			Use:   "summary",
			Short: "Practice time per period",
			Args:  cobra.NoArgs,
			RunE: r.run(func(ctx context.Context, app *App, args []string) error {
				return NewStatsCommand(app).Summary(ctx, args)
			}),
		},
		topCmd,
		recentCmd,
		&cobra.Command{
			Use:       "breakdown [period]",
			Short:     "Time per category, this week by default",
			Args:      cobra.MaximumNArgs(1),
			ValidArgs: periodNames(),
			RunE: r.run(func(ctx context.Context, app *App, args []string) error {
				return NewStatsCommand(app).Breakdown(ctx, args)
			}),
		},
		&cobra.Command{
			Use:   "streak",
			Short: "Consecutive practice days",
			Args:  cobra.NoArgs,
			RunE: r.run(func(ctx context.Context, app *App, args []string) error {
				return NewStatsCommand(app).Streak(ctx, args)
			}),
		},
		&cobra.Command{
			Use:   "heatmap [window]",
			Short: "Daily practice over a window, 12w by default",
			Args:  cobra.MaximumNArgs(1),
			RunE: r.run(func(ctx context.Context, app *App, args []string) error {
				return NewStatsCommand(app).Heatmap(ctx, args)
			}),
		},
	)
	return statsCmd
}

func periodNames() []string {
	names := make([]string, 0, len(stats.Periods()))
	for _, p := range stats.Periods() {
		names = append(names, string(p))
	}
	return names
}

func (r *RootCommand) historyCommand() *cobra.Command {
	var limit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Completed practice sessions",
		Long: `Completed practice sessions, newest first.

Sessions are referenced by their number in the list or by id prefix.`,
		Args: cobra.NoArgs,
		RunE: r.run(func(ctx context.Context, app *App, args []string) error {
			return NewHistoryCommand(app).List(ctx, args, limit)
		}),
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "l", 0, "Number of sessions")

	historyCmd.AddCommand(
		&cobra.Command{
			Use:   "show <session>",
			Short: "Show one session's items",
			Args:  cobra.ExactArgs(1),
			RunE: r.run(func(ctx context.Context, app *App, args []string) error {
				return NewHistoryCommand(app).Show(ctx, args)
			}),
		},
		&cobra.Command{
			Use:   "notes <session> [text...]",
			Short: "Replace a session's notes",
			Args:  cobra.MinimumNArgs(1),
			RunE: r.run(func(ctx context.Context, app *App, args []string) error {
				return NewHistoryCommand(app).Notes(ctx, args)
			}),
		},
		r.historyLogCommand(),
		&cobra.Command{
			Use:     "rm <session>",
			Aliases: []string{"remove"},
			Short:   "Delete a session from history",
			Args:    cobra.ExactArgs(1),
			RunE: r.run(func(ctx context.Context, app *App, args []string) error {
				return NewHistoryCommand(app).Delete(ctx, args)
			}),
		},
	)
	return historyCmd
}

func (r *RootCommand) historyLogCommand() *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "log <item> <duration>",
		Short: "Record practice done without the timer",
		Args:  cobra.MinimumNArgs(2),
		RunE: r.run(func(ctx context.Context, app *App, args []string) error {
			return NewHistoryCommand(app).Log(ctx, args, notes)
		}),
	}
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "Session notes")
	return cmd
}

func (r *RootCommand) dataCommand() *cobra.Command {
	dataCmd := &cobra.Command{
		Use:   "data",
		Short: "Export, import or reset all data",
	}

	var yes bool
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all practice data, keeping your profile and theme",
		Long: `Delete all categories, instruments, artists, library items and sessions.

This operation cannot be undone. You will be asked to confirm unless --yes is given.`,
		Args: cobra.NoArgs,
		RunE: r.runInteractive(func(ctx context.Context, app *App, _ []string) error {
			return NewDataCommand(app).Reset(ctx, yes)
		}),
	}
	resetCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	dataCmd.AddCommand(
		&cobra.Command{
			Use:   "export [file]",
			Short: "Export all data as JSON, or YAML for .yaml/.yml files",
			Args:  cobra.MaximumNArgs(1),
			RunE: r.run(func(ctx context.Context, app *App, args []string) error {
				path := ""
				if len(args) > 0 {
					path = args[0]
				}
				return NewDataCommand(app).Export(ctx, path)
			}),
		},
		&cobra.Command{
			Use:   "import [file]",
			Short: "Replace all data with an export",
			Args:  cobra.ExactArgs(1),
			RunE: r.run(func(ctx context.Context, app *App, args []string) error {
				return NewDataCommand(app).Import(ctx, args[0])
			}),
		},
		resetCmd,
	)
	return dataCmd
}
