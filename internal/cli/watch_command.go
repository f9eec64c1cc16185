package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"fretlog/internal/domain"
	"fretlog/internal/metrics"
	"fretlog/internal/timefmt"
	"fretlog/internal/timer"
)

type watchKeys struct {
	Quit   key.Binding
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	End    key.Binding
}

func defaultWatchKeys() watchKeys {
	return watchKeys{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "enter"),
			key.WithHelp("space", "play/pause"),
		),
		End: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "end session"),
		),
	}
}

// Messages

type tickMsg time.Time

type timerMsg struct {
	itemID  string
	state   timer.State
	elapsed time.Duration
}

type actionMsg struct {
	status string
	err    error
	done   bool
}

// watchModel is the live session view.
type watchModel struct {
	ctx      context.Context
	app      *App
	keys     watchKeys
	interval time.Duration
	selected int
	status   string
	err      error
	done     bool
}

func newWatchModel(ctx context.Context, app *App) watchModel {
	interval := app.config.Timer.TickInterval
	if interval <= 0 {
		interval = time.Second
	}
	return watchModel{ctx: ctx, app: app, keys: defaultWatchKeys(), interval: interval}
}

// Init implements tea.Model.
func (m watchModel) Init() tea.Cmd {
	return tickCmd(m.interval)
}

// Update implements tea.Model.
func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		return m, tickCmd(m.interval)

	case timerMsg:
		// Redrawn by View.
		return m, nil

	case actionMsg:
		m.status = msg.status
		m.err = msg.err
		if msg.done {
			m.done = true
			return m, tea.Quit
		}
		return m, nil
	}
	return m, nil
}

func (m watchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.items()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.selected < len(items)-1 {
			m.selected++
		}
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		if m.selected >= len(items) {
			return m, nil
		}
		return m, m.toggleCmd(items[m.selected])

	case key.Matches(msg, m.keys.End):
		return m, m.endCmd()
	}
	return m, nil
}

func (m watchModel) items() []domain.SessionItem {
	session, ok := m.app.store.CurrentSession()
	if !ok {
		return nil
	}
	return session.Items
}

func (m watchModel) toggleCmd(item domain.SessionItem) tea.Cmd {
	ctx, app := m.ctx, m.app
	return func() tea.Msg {
		if app.timer.State(item.ID) == timer.Running {
			err := app.timer.Pause(ctx, item.ID)
			return actionMsg{status: "Paused " + item.Name, err: err}
		}
		err := app.timer.Play(ctx, item.ID)
		return actionMsg{status: "Playing " + item.Name, err: err}
	}
}

func (m watchModel) endCmd() tea.Cmd {
	ctx, app := m.ctx, m.app
	return func() tea.Msg {
		session, _ := app.store.CurrentSession()
		done, err := app.timer.EndSession(ctx, session.Notes)
		if err != nil {
			return actionMsg{err: err}
		}
		if done == nil {
			return actionMsg{status: "No session is running", done: true}
		}
		return actionMsg{status: "Session saved: " + timefmt.Long(done.TotalTime), done: true}
	}
}

// View implements tea.Model.
func (m watchModel) View() string {
	s := m.app.styles()
	session, ok := m.app.store.CurrentSession()
	if !ok {
		view := s.Muted.Render("No session is running. Start one with: fretlog session start")
		if m.status != "" {
			view = s.Success.Render(m.status) + "\n" + view
		}
		return view + "\n"
	}

	if m.selected >= len(session.Items) {
		m.selected = max(len(session.Items)-1, 0)
	}
	if len(session.Items) > 0 {
		// Mark the selection by rendering a copy with the cursor prefixed.
		session.Items[m.selected].Name = "› " + session.Items[m.selected].Name
	}

	view := m.app.renderSession(session)
	if m.err != nil {
		view += "\n" + s.Danger.Render(NewErrorHandler().HandleSimple(m.err).Error())
	} else if m.status != "" {
		view += "\n" + s.Muted.Render(m.status)
	}

	help := ""
	for i, b := range []key.Binding{m.keys.Toggle, m.keys.Up, m.keys.Down, m.keys.End, m.keys.Quit} {
		if i > 0 {
			help += "  "
		}
		help += b.Help().Key + " " + b.Help().Desc
	}
	return s.Box.Render(view) + "\n" + s.Muted.Render(help) + "\n"
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Watch runs the live session view until the user quits. With metricsAddr
// set, Prometheus metrics are served for the duration.
func (c *SessionCommand) Watch(ctx context.Context, metricsAddr string) error {
	if metricsAddr != "" {
		srv := metrics.NewServer(metricsAddr, c.app.logger)
		if err := srv.Start(); err != nil {
			return c.errorHandler.Handle("start metrics server", err)
		}
		defer func() {
			if err := srv.Stop(); err != nil {
				c.app.logger.Warn().Err(err).Msg("metrics server did not stop cleanly")
			}
		}()
	}

	p := tea.NewProgram(newWatchModel(ctx, c.app), tea.WithAltScreen(), tea.WithContext(ctx), tea.WithOutput(c.app.out), tea.WithInput(c.app.in))
	detach := c.app.display.Attach(timer.DisplayFunc(func(itemID string, state timer.State, elapsed time.Duration) {
		p.Send(timerMsg{itemID: itemID, state: state, elapsed: elapsed})
	}))
	defer detach()

	final, err := p.Run()
	if err != nil {
		return c.errorHandler.Handle("watch session", err)
	}
	if m, ok := final.(watchModel); ok && m.status != "" && m.done {
		c.app.println(m.status)
	}
	return nil
}
