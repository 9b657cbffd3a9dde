package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/hay-kot/lobby/internal/core/config"
	"github.com/hay-kot/lobby/internal/core/confirm"
	"github.com/hay-kot/lobby/internal/core/session"
	"github.com/hay-kot/lobby/internal/lobby"
	"github.com/rs/zerolog"
)

// UIState represents which overlay, if any, has focus. Open confirmations
// are tracked by the confirm flow instead.
type UIState int

const (
	stateNormal UIState = iota
	stateDetails
	statePassword
)

// Key constants for event handling.
const (
	keyEnter = "enter"
	keyEsc   = "esc"
	keyCtrlC = "ctrl+c"
)

// chrome is the number of rows used by the banner, tab bar, status and help.
const chrome = 8

// Options configures the menu.
type Options struct {
	ConfigPath string // settings are saved here; empty disables saving
	Log        zerolog.Logger
}

// Model is the Bubble Tea model for the lobby menu. It owns the client: every
// client call and every completion delivery happens inside Update, so client
// callbacks run on the program's goroutine and may mutate the model.
type Model struct {
	cfg    *config.Config
	client *lobby.Client
	opts   Options
	log    zerolog.Logger

	keys       keyMap
	help       help.Model
	state      UIState
	activeView ViewType
	width      int
	height     int
	quitting   bool

	browser  *BrowserView
	spinner  spinner.Model
	flow     confirm.Flow
	modal    Modal
	details  DetailsModal
	password textinput.Model
	target   session.Record // session awaiting a password

	hostForm     *HostForm
	settingsForm *SettingsForm

	status    string
	statusErr bool

	// joined is set once a join succeeds; the caller travels after Run.
	joined *lobby.JoinResult

	// cmds queued by callbacks during the current Update.
	cmds []tea.Cmd
}

// New creates the menu model.
func New(cfg *config.Config, client *lobby.Client, opts Options) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	pw := textinput.New()
	pw.Placeholder = "password"
	pw.EchoMode = textinput.EchoPassword
	pw.EchoCharacter = '•'

	m := &Model{
		cfg:          cfg,
		client:       client,
		opts:         opts,
		log:          opts.Log,
		keys:         newKeyMap(),
		help:         help.New(),
		browser:      NewBrowserView(),
		spinner:      s,
		password:     pw,
		hostForm:     NewHostForm(),
		settingsForm: NewSettingsForm(cfg),
	}
	m.modal = NewModal(&m.flow)

	return m
}

// Joined returns the successful join that ended the menu, if any.
func (m *Model) Joined() *lobby.JoinResult {
	return m.joined
}

// Init starts the first search and the completion pump.
func (m *Model) Init() tea.Cmd {
	m.startSearch(false)

	return tea.Batch(
		m.spinner.Tick,
		waitForCompletion(m.client.Completions()),
		m.hostForm.Form().Init(),
		m.settingsForm.Form().Init(),
		scheduleRefresh(m.cfg.Search.RefreshInterval),
	)
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.browser.SetSize(msg.Width, m.contentHeight())
		return m, nil

	case completionMsg:
		m.client.Deliver(msg.completion)
		return m, m.flush(waitForCompletion(m.client.Completions()))

	case refreshTickMsg:
		if m.state == stateNormal && !m.modal.Visible() && !m.browser.IsFiltering() {
			m.startSearch(true)
		}
		return m, scheduleRefresh(m.cfg.Search.RefreshInterval)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m, m.flush(m.handleKey(msg))
	}

	// Cursor blinks and other internal messages of the focused input.
	if m.state == statePassword {
		var cmd tea.Cmd
		m.password, cmd = m.password.Update(msg)
		return m, cmd
	}
	switch m.activeView {
	case ViewHost:
		return m, m.flush(m.updateHostForm(msg))
	case ViewSettings:
		return m, m.flush(m.updateSettingsForm(msg))
	}

	return m, nil
}

// handleKey processes key presses.
func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	keyStr := msg.String()

	if keyStr == keyCtrlC {
		m.quitting = true
		return tea.Quit
	}

	// Overlays first
	if m.modal.Visible() {
		return m.handleConfirmKey(keyStr)
	}
	switch m.state {
	case stateDetails:
		return m.handleDetailsKey(keyStr)
	case statePassword:
		return m.handlePasswordKey(msg, keyStr)
	}

	switch m.activeView {
	case ViewHost:
		return m.handleHostKey(msg, keyStr)
	case ViewSettings:
		return m.handleSettingsKey(msg, keyStr)
	}

	if m.browser.IsFiltering() {
		return m.handleFilteringKey(msg, keyStr)
	}

	return m.handleBrowseKey(msg)
}

// handleConfirmKey handles keys when a confirmation is open.
func (m *Model) handleConfirmKey(keyStr string) tea.Cmd {
	switch keyStr {
	case keyEnter:
		m.modal.Submit()
	case keyEsc:
		m.modal.Cancel()
	case "left", "right", "h", "l", "tab":
		m.modal.ToggleSelection()
	}
	return nil
}

// handleDetailsKey handles keys when the details modal is shown.
func (m *Model) handleDetailsKey(keyStr string) tea.Cmd {
	switch keyStr {
	case keyEsc, "i", "q":
		m.state = stateNormal
	case "up", "k":
		m.details.ScrollUp()
	case "down", "j":
		m.details.ScrollDown()
	case keyEnter:
		m.state = stateNormal
		m.requestJoin(m.details.Record())
	}
	return nil
}

// handlePasswordKey handles keys while the join password is entered.
func (m *Model) handlePasswordKey(msg tea.KeyMsg, keyStr string) tea.Cmd {
	switch keyStr {
	case keyEsc:
		m.state = stateNormal
		m.password.Reset()
		return nil
	case keyEnter:
		password := m.password.Value()
		m.state = stateNormal
		m.password.Reset()
		m.password.Blur()
		m.join(m.target, password)
		return nil
	}

	var cmd tea.Cmd
	m.password, cmd = m.password.Update(msg)
	return cmd
}

// handleFilteringKey handles keys when filter input is active.
func (m *Model) handleFilteringKey(msg tea.KeyMsg, keyStr string) tea.Cmd {
	switch keyStr {
	case keyEsc:
		m.browser.CancelFilter()
	case keyEnter:
		m.browser.ConfirmFilter()
		return nil
	case "backspace":
		m.browser.DeleteFilterRune()
	default:
		switch msg.Type {
		case tea.KeyRunes:
			m.browser.AddFilterRunes(msg.Runes)
		case tea.KeySpace:
			m.browser.AddFilterRunes([]rune{' '})
		default:
			return nil
		}
	}

	m.client.SetFilter(m.browser.Filter())
	m.browser.SetSearch(m.client.Search())
	return nil
}

// handleBrowseKey handles keys on the session browser.
func (m *Model) handleBrowseKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.modal.Open("Quit", "Leave the lobby?", func(r confirm.Result) {
			if r == confirm.Confirmed {
				m.quitting = true
				m.queue(tea.Quit)
			}
		})
	case key.Matches(msg, m.keys.Tab):
		m.activeView = m.activeView.next()
	case key.Matches(msg, m.keys.Up):
		m.browser.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.browser.MoveDown()
	case key.Matches(msg, m.keys.Filter):
		m.browser.StartFilter()
	case key.Matches(msg, m.keys.Refresh):
		m.startSearch(false)
	case key.Matches(msg, m.keys.Cancel):
		if m.client.Busy(session.KindFind) {
			m.client.CancelSearch()
			m.browser.SetSearch(m.client.Search())
			m.setStatus("search cancelled")
		}
	case key.Matches(msg, m.keys.Details):
		if rec, ok := m.browser.Selected(); ok {
			m.details = NewDetailsModal(rec, m.screenWidth(), m.screenHeight())
			m.state = stateDetails
		}
	case key.Matches(msg, m.keys.Join):
		if rec, ok := m.browser.Selected(); ok {
			m.requestJoin(rec)
		}
	}
	return nil
}

// handleHostKey handles keys on the host tab.
func (m *Model) handleHostKey(msg tea.KeyMsg, keyStr string) tea.Cmd {
	if keyStr != keyEsc {
		return m.updateHostForm(msg)
	}

	if !m.hostForm.Dirty() {
		m.activeView = ViewBrowse
		return nil
	}

	m.modal.Open("Discard Session", "Discard the session you started setting up?", func(r confirm.Result) {
		if r != confirm.Confirmed {
			return
		}
		m.hostForm = NewHostForm()
		m.queue(m.hostForm.Form().Init())
		m.activeView = ViewBrowse
	})
	return nil
}

// updateHostForm routes a message to the host form and submits it once
// completed.
func (m *Model) updateHostForm(msg tea.Msg) tea.Cmd {
	form, cmd := m.hostForm.Form().Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.hostForm.SetForm(f)
	}

	if m.hostForm.Completed() {
		return m.submitHost()
	}
	return cmd
}

// submitHost dispatches the completed host form. On any failure the user's
// inputs come back in a fresh form.
func (m *Model) submitHost() tea.Cmd {
	cfg := m.hostForm.Config()
	retry := m.hostForm.Retry()

	_, err := m.client.CreateSession(cfg, func(res lobby.CreateResult) {
		if res.Err != nil {
			m.setError("host "+cfg.DisplayName, res.Err)
			m.hostForm = retry
			m.queue(m.hostForm.Form().Init())
			return
		}
		m.setStatus(fmt.Sprintf("hosting %s (%s)", cfg.DisplayName, res.SessionID))
		m.startSearch(false)
	})
	if err != nil {
		m.setError("host", err)
		m.hostForm = retry
		return m.hostForm.Form().Init()
	}

	m.setStatus("creating " + cfg.DisplayName + "...")
	m.hostForm = NewHostForm()
	m.activeView = ViewBrowse
	return m.hostForm.Form().Init()
}

// handleSettingsKey handles keys on the settings tab.
func (m *Model) handleSettingsKey(msg tea.KeyMsg, keyStr string) tea.Cmd {
	if keyStr == keyEsc {
		m.settingsForm = NewSettingsForm(m.cfg)
		m.activeView = ViewBrowse
		return m.settingsForm.Form().Init()
	}
	return m.updateSettingsForm(msg)
}

// updateSettingsForm routes a message to the settings form and saves once
// completed.
func (m *Model) updateSettingsForm(msg tea.Msg) tea.Cmd {
	form, cmd := m.settingsForm.Form().Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.settingsForm.SetForm(f)
	}

	if !m.settingsForm.Completed() {
		return cmd
	}

	m.settingsForm.Apply(m.cfg)
	m.settingsForm = NewSettingsForm(m.cfg)
	m.activeView = ViewBrowse

	if m.opts.ConfigPath != "" {
		if err := m.cfg.Save(m.opts.ConfigPath); err != nil {
			m.setError("save settings", err)
			return m.settingsForm.Form().Init()
		}
	}
	m.setStatus("settings saved")
	m.startSearch(false)

	return m.settingsForm.Form().Init()
}

// startSearch dispatches a search with the configured query. Automatic
// refreshes pass ifIdle so they never supersede a search the user started.
func (m *Model) startSearch(ifIdle bool) {
	q := m.cfg.Query()
	q.IfIdle = ifIdle

	_, err := m.client.FindSessions(q, func(res lobby.FindResult) {
		m.browser.SetSearch(m.client.Search())
		if res.Err != nil {
			m.setError("search", res.Err)
			return
		}
		m.setStatus(fmt.Sprintf("found %d sessions", len(res.Records)))
	})
	m.browser.SetSearch(m.client.Search())

	if err != nil {
		if ifIdle && errors.Is(err, session.ErrAlreadyInProgress) {
			return
		}
		m.setError("search", err)
	}
}

// requestJoin asks for confirmation before joining rec.
func (m *Model) requestJoin(rec session.Record) {
	m.modal.Open("Join Session", joinSummary(rec), func(r confirm.Result) {
		if r != confirm.Confirmed {
			return
		}
		if rec.PasswordProtected {
			m.target = rec
			m.state = statePassword
			m.queue(m.password.Focus())
			return
		}
		m.join(rec, "")
	})
}

// join dispatches the join. A successful join ends the menu.
func (m *Model) join(rec session.Record, password string) {
	req := session.JoinRequest{
		Record:     rec,
		Password:   password,
		PlayerName: m.cfg.Player.Name,
	}

	_, err := m.client.JoinSession(req, func(res lobby.JoinResult) {
		if res.Err != nil {
			m.setError("join "+res.Record.DisplayName, res.Err)
			return
		}
		m.joined = &res
		m.quitting = true
		m.queue(tea.Quit)
	})
	if err != nil {
		m.setError("join", err)
		return
	}

	m.setStatus("joining " + rec.DisplayName + "...")
}

func joinSummary(r session.Record) string {
	lines := []string{
		r.DisplayName,
		subtleStyle.Render(fmt.Sprintf("%s %s %s %s %s players", r.MapName, iconDot, r.GameMode, iconDot, r.Slots())),
	}
	if r.PasswordProtected {
		lines = append(lines, subtleStyle.Render(iconLock+" password required"))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(action string, err error) {
	m.log.Warn().Err(err).Str("action", action).Msg("menu action failed")
	m.status = fmt.Sprintf("%s: %v", action, err)
	m.statusErr = true
}

func (m *Model) queue(cmd tea.Cmd) {
	if cmd != nil {
		m.cmds = append(m.cmds, cmd)
	}
}

// flush batches the commands queued by callbacks with cmd.
func (m *Model) flush(cmd tea.Cmd) tea.Cmd {
	cmds := append(m.cmds, cmd)
	m.cmds = nil
	return tea.Batch(cmds...)
}

func (m *Model) screenWidth() int {
	if m.width == 0 {
		return 80
	}
	return m.width
}

func (m *Model) screenHeight() int {
	if m.height == 0 {
		return 24
	}
	return m.height
}

func (m *Model) contentHeight() int {
	return max(m.screenHeight()-chrome, 1)
}

// View renders the menu.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	w, h := m.screenWidth(), m.screenHeight()

	mainView := lipgloss.JoinVertical(
		lipgloss.Left,
		bannerStyle.Render(banner),
		m.renderTabBar(),
		lipgloss.NewStyle().Height(m.contentHeight()).Render(m.renderContent()),
		m.renderStatus(),
		m.renderHelp(),
	)

	switch {
	case m.modal.Visible():
		return m.modal.Overlay(mainView, w, h)
	case m.state == stateDetails:
		return m.details.Overlay(w, h)
	case m.state == statePassword:
		box := lipgloss.JoinVertical(
			lipgloss.Left,
			modalTitleStyle.Render("Password for "+m.target.DisplayName),
			"",
			m.password.View(),
			modalHelpStyle.Render("enter join  esc cancel"),
		)
		return overlay(modalStyle.Render(box), w, h)
	}

	return mainView
}

func (m *Model) renderTabBar() string {
	tabs := make([]string, 0, len(viewNames))
	for i, name := range viewNames {
		if ViewType(i) == m.activeView {
			tabs = append(tabs, viewSelectedStyle.Render(name))
		} else {
			tabs = append(tabs, viewNormalStyle.Render(name))
		}
	}
	return lipgloss.NewStyle().PaddingLeft(1).Render(strings.Join(tabs, " | "))
}

func (m *Model) renderContent() string {
	switch m.activeView {
	case ViewHost:
		return m.hostForm.View()
	case ViewSettings:
		return m.settingsForm.View()
	default:
		return m.browser.View()
	}
}

func (m *Model) renderStatus() string {
	if m.activeView == ViewBrowse && m.browser.Search().Status == lobby.SearchSearching {
		return " " + m.spinner.View() + " searching..."
	}
	if m.statusErr {
		return statusErrStyle.Render(m.status)
	}
	return statusOKStyle.Render(m.status)
}

func (m *Model) renderHelp() string {
	if m.activeView == ViewBrowse {
		return helpStyle.Render(m.help.ShortHelpView(m.keys.browseHelp()))
	}
	return helpStyle.Render(m.help.ShortHelpView(formHelp()))
}
