// Package tui is the terminal client: one session driven from the keyboard.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cymbal-labs/searchdemo/internal/state"
	"github.com/cymbal-labs/searchdemo/internal/ui"
)

// reserved is the number of rows taken by everything except the results.
const reserved = 13

// Model is the bubbletea model over one ui.Session.
type Model struct {
	session *ui.Session
	ctx     context.Context
	title   string

	styles *Styles
	keys   *KeyMap
	help   help.Model

	query   textinput.Model
	params  []textinput.Model
	focus   int
	spinner spinner.Model
	results viewport.Model

	view    ui.ResultView
	busy    bool
	notice  string
	lastErr error

	width  int
	height int
}

// New builds a model bound to session. Field inputs start from the form's
// current raw values.
func New(ctx context.Context, session *ui.Session, title string) *Model {
	if ctx == nil {
		ctx = context.Background()
	}
	if title == "" {
		title = "Search Demo"
	}

	s := DefaultStyles()

	q := textinput.New()
	q.Prompt = "Search: "
	q.Placeholder = "Ask a question"
	q.SetValue(session.Query.Value())
	q.Focus()

	params := make([]textinput.Model, 0, len(ui.Fields))
	for _, field := range ui.Fields {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 4
		in.Width = 6
		in.SetValue(session.Form.Raw(field))
		params = append(params, in)
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = s.Focused

	m := &Model{
		session: session,
		ctx:     ctx,
		title:   title,
		styles:  s,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		query:   q,
		params:  params,
		spinner: sp,
		results: viewport.New(80, 10),
		view:    session.View(),
		busy:    session.Form.Busy(),
		width:   80,
		height:  24,
	}
	m.refreshResults()
	return m
}

// Init starts the cursor blink.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input and session notifications.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetDimensions(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ResultsChanged:
		m.view = msg.View
		m.refreshResults()
		return m, nil

	case BusyChanged:
		wasBusy := m.busy
		m.busy = msg.Busy
		if !msg.Busy {
			m.lastErr = msg.Err
		}
		if msg.Busy && !wasBusy {
			return m, m.spinner.Tick
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Search):
		return m, m.submit()

	case key.Matches(msg, m.keys.Next):
		return m, m.moveFocus(1)

	case key.Matches(msg, m.keys.Prev):
		return m, m.moveFocus(-1)

	case key.Matches(msg, m.keys.Up, m.keys.Down, m.keys.PageUp, m.keys.PageDown):
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keys.Commit):
		if m.focus == 0 {
			m.session.Query.Key(ui.CommitKey)
		}
		return m, nil
	}

	m.notice = ""

	if m.focus == 0 {
		before := m.query.Value()
		var cmd tea.Cmd
		m.query, cmd = m.query.Update(msg)
		if after := m.query.Value(); after != before {
			m.session.Query.Change(after)
		}
		return m, cmd
	}

	idx := m.focus - 1
	before := m.params[idx].Value()
	var cmd tea.Cmd
	m.params[idx], cmd = m.params[idx].Update(msg)
	if after := m.params[idx].Value(); after != before {
		_ = m.session.Form.SetField(ui.Fields[idx], after)
	}
	return m, cmd
}

// submit starts a search. Validation problems are shown as a notice; the
// backend outcome arrives later as ResultsChanged and BusyChanged.
func (m *Model) submit() tea.Cmd {
	m.notice = ""
	if err := m.session.Form.Start(m.ctx, nil); err != nil {
		m.notice = err.Error()
		return nil
	}
	m.busy = true
	return m.spinner.Tick
}

func (m *Model) moveFocus(delta int) tea.Cmd {
	total := len(m.params) + 1
	m.focus = (m.focus + delta + total) % total

	m.query.Blur()
	for i := range m.params {
		m.params[i].Blur()
	}
	if m.focus == 0 {
		return m.query.Focus()
	}
	return m.params[m.focus-1].Focus()
}

func (m *Model) refreshResults() {
	m.results.SetContent(renderResults(m.view, m.styles, m.results.Width))
}

// SetDimensions resizes the inputs and the results pane.
func (m *Model) SetDimensions(width, height int) {
	m.width = width
	m.height = height
	m.query.Width = max(width-len(m.query.Prompt)-2, 10)
	m.results.Width = max(width-4, 20)
	m.results.Height = max(height-reserved, 3)
	m.help.Width = width
	m.refreshResults()
}

// View renders the whole screen.
func (m *Model) View() string {
	sections := make([]string, 0, 8)
	sections = append(sections, m.styles.Title.Render(m.title), "")

	sections = append(sections, m.query.View())

	fields := make([]string, 0, len(m.params))
	for i, field := range ui.Fields {
		label := m.styles.Label.Render(field.Label() + ":")
		if m.focus == i+1 {
			label = m.styles.Focused.Render(field.Label() + ":")
		}
		fields = append(fields, label+" "+m.params[i].View())
	}
	sections = append(sections, strings.Join(fields, "  "))

	sections = append(sections, m.statusLine())
	sections = append(sections, m.styles.Border.Render(m.results.View()))
	sections = append(sections, m.help.View(m.keys))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) statusLine() string {
	switch {
	case m.busy:
		return m.spinner.View() + " Searching..."
	case m.notice != "":
		return m.styles.Notice.Render(m.notice)
	case m.lastErr != nil:
		return m.styles.Error.Render(fmt.Sprintf("Search failed: %v", m.lastErr))
	default:
		return m.styles.Muted.Render(fmt.Sprintf("%d documents", len(m.view.Documents)))
	}
}

// Busy reports whether a search is in flight as far as the model knows.
func (m *Model) Busy() bool { return m.busy }

// Notice returns the current validation notice.
func (m *Model) Notice() string { return m.notice }

// Focus returns the index of the focused input; 0 is the query.
func (m *Model) Focus() int { return m.focus }

// ResultView returns the view currently displayed.
func (m *Model) ResultView() ui.ResultView { return m.view }

// Listen forwards session changes to send until ctx ends or the returned
// stop function is called. Observers only signal buffered channels, so store
// setters never wait on the program's event loop.
func Listen(ctx context.Context, session *ui.Session, send func(tea.Msg)) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)

	storeCh := make(chan struct{}, 1)
	busyCh := make(chan struct{}, 1)

	unsubStore := session.Store.SubscribeResponse(func(state.Snapshot) { signal(storeCh) })
	unsubBusy := session.Form.SubscribeBusy(func(bool) { signal(busyCh) })

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-storeCh:
				send(ResultsChanged{View: session.View()})
			case <-busyCh:
				send(BusyChanged{Busy: session.Form.Busy(), Err: session.Form.LastError()})
			}
		}
	}()

	return func() {
		unsubStore()
		unsubBusy()
		cancel()
		<-done
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Run starts the program on the terminal and blocks until the user quits.
func Run(ctx context.Context, session *ui.Session, title string, opts ...tea.ProgramOption) error {
	m := New(ctx, session, title)
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(m, opts...)

	stop := Listen(ctx, session, p.Send)
	defer stop()

	_, err := p.Run()
	return err
}
