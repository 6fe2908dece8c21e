package ui

import (
	"context"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/basket/internal/busy"
	"github.com/five82/basket/internal/session"
	"github.com/five82/basket/internal/shop"
	"github.com/five82/basket/internal/state"
)

// SessionManager is the part of the session manager the UI drives.
type SessionManager interface {
	Snapshot() session.Session
	Subscribe(fn func(session.Session)) (unsubscribe func())
	Login(ctx context.Context, creds shop.Credentials) (session.Session, error)
	Logout(ctx context.Context)
}

// ListService performs list and item operations for the current session.
type ListService interface {
	SaveList(ctx context.Context, list shop.List) (shop.List, error)
	DeleteList(ctx context.Context, id shop.ID) error
	ShareList(ctx context.Context, id shop.ID, email string) error
	Items(ctx context.Context, listID shop.ID) ([]shop.Item, error)
	SaveItem(ctx context.Context, listID shop.ID, item shop.Item) (shop.Item, error)
	DeleteItem(ctx context.Context, listID, itemID shop.ID) error
	TogglePurchased(ctx context.Context, listID, itemID shop.ID) (shop.Item, error)
}

// Overview provides the latest list snapshot.
type Overview interface {
	Snapshot() state.Snapshot
}

// BusySource is the busy tracker as seen by the UI.
type BusySource interface {
	Snapshot() busy.State
	Subscribe(fn func(busy.State)) (unsubscribe func())
}

// Refresher triggers an immediate list refresh.
type Refresher interface {
	Refresh()
}

type screen int

const (
	screenLists screen = iota
	screenItems
)

// promptKind identifies what a single-line prompt is collecting.
type promptKind int

const (
	promptNone promptKind = iota
	promptNewList
	promptRenameList
	promptShareList
	promptNewItem
	promptEditItem
	promptConfirmDelete
)

const snapshotInterval = 500 * time.Millisecond

// Messages
type (
	tickMsg   time.Time
	signalMsg struct{}

	itemsMsg struct {
		listID shop.ID
		items  []shop.Item
		err    error
	}

	opDoneMsg struct {
		status      string
		err         error
		reloadItems bool
	}

	loginDoneMsg struct {
		email string
		err   error
	}
)

// Model is the Bubble Tea model for Basket.
type Model struct {
	ctx       context.Context
	mode      string
	sessions  SessionManager
	lists     ListService
	overview  Overview
	tracker   BusySource
	refresher Refresher
	prefsPath string
	logger    *slog.Logger
	signals   <-chan struct{}

	// Data
	snapshot state.Snapshot
	session  session.Session
	busy     busy.State
	items    []shop.Item
	itemsErr error

	// Navigation
	screen     screen
	listCursor int
	itemCursor int
	listID     shop.ID
	listName   string

	// Overlays
	prompt      promptKind
	input       textinput.Model
	loginOpen   bool
	loginFocus  int
	emailInput  textinput.Model
	passInput   textinput.Model
	deleteItem  bool
	pendingName string

	// UI
	width         int
	height        int
	theme         Theme
	keys          keyMap
	help          help.Model
	spinner       spinner.Model
	showHelp      bool
	hidePurchased bool
	status        string
	statusErr     bool
}

// New creates the model from Options. signals delivers a value whenever the
// busy tracker or the session changed.
func New(opts Options, signals <-chan struct{}) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Dracula"
	}

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 254
	email.SetValue(opts.LastEmail)

	pass := textinput.New()
	pass.Placeholder = "password"
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'

	input := textinput.New()
	input.CharLimit = 200

	m := Model{
		ctx:        ctx,
		mode:       opts.Mode,
		sessions:   opts.Session,
		lists:      opts.Lists,
		overview:   opts.Overview,
		tracker:    opts.Tracker,
		refresher:  opts.Refresher,
		prefsPath:  opts.PrefsPath,
		logger:     logger,
		signals:    signals,
		theme:      GetTheme(themeName),
		keys:       defaultKeyMap(),
		help:       help.New(),
		spinner:    sp,
		emailInput: email,
		passInput:  pass,
		input:      input,

		hidePurchased: opts.HidePurchased,
	}
	m.readSignals()
	if m.overview != nil {
		m.snapshot = m.overview.Snapshot()
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		tickCmd(),
		waitForSignal(m.signals),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(snapshotInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForSignal(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return signalMsg{}
	}
}

// readSignals pulls the authoritative busy and session state.
func (m *Model) readSignals() {
	if m.tracker != nil {
		m.busy = m.tracker.Snapshot()
	}
	if m.sessions != nil {
		m.session = m.sessions.Snapshot()
	}
}

// blocked reports whether a hard busy overlay is swallowing input.
func (m Model) blocked() bool {
	return m.busy.Visible && m.busy.Mode == busy.ModeHard
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		if m.overview != nil {
			m.snapshot = m.overview.Snapshot()
		}
		if m.screen == screenItems {
			if list, ok := m.snapshot.Find(m.listID); ok {
				m.listName = list.Name
			} else if m.snapshot.HasLists {
				m.leaveItems()
				m.setStatus("List was removed")
			}
		}
		m.clampCursors()
		return m, tickCmd()

	case signalMsg:
		before := m.session
		m.readSignals()
		if before.Authenticated() != m.session.Authenticated() && m.screen == screenItems {
			// The list ids belong to the previous backend.
			m.leaveItems()
		}
		return m, waitForSignal(m.signals)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case itemsMsg:
		if msg.listID != m.listID {
			return m, nil
		}
		m.items = msg.items
		m.itemsErr = msg.err
		if msg.err != nil {
			m.setError(msg.err)
		}
		m.clampCursors()
		return m, nil

	case opDoneMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else if msg.status != "" {
			m.setStatus(msg.status)
		}
		var cmds []tea.Cmd
		if m.refresher != nil {
			m.refresher.Refresh()
		}
		if msg.reloadItems && m.screen == screenItems {
			cmds = append(cmds, m.loadItems())
		}
		return m, tea.Batch(cmds...)

	case loginDoneMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.loginOpen = false
		m.passInput.SetValue("")
		m.setStatus("Signed in as " + msg.email)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.blocked() {
		return m, nil
	}
	if m.loginOpen {
		return m.handleLoginKey(msg)
	}
	if m.prompt != promptNone {
		return m.handlePromptKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		return m, m.saveTheme(m.theme.Name)
	case key.Matches(msg, m.keys.Refresh):
		m.setStatus("Refreshing…")
		if m.refresher != nil {
			m.refresher.Refresh()
		}
		if m.screen == screenItems {
			return m, m.loadItems()
		}
		return m, nil
	case key.Matches(msg, m.keys.Login):
		if m.session.Authenticated() {
			m.setStatus("Already signed in")
			return m, nil
		}
		return m, m.openLogin()
	case key.Matches(msg, m.keys.Logout):
		if !m.session.Authenticated() {
			m.setStatus("Not signed in")
			return m, nil
		}
		return m, m.logoutCmd()
	case key.Matches(msg, m.keys.Escape):
		if m.screen == screenItems {
			m.leaveItems()
		}
		m.status = ""
		return m, nil
	}

	if m.screen == screenItems {
		return m.handleItemsKey(msg)
	}
	return m.handleListsKey(msg)
}

func (m Model) handleListsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	lists := m.snapshot.Lists
	switch {
	case key.Matches(msg, m.keys.Up):
		m.listCursor = max(0, m.listCursor-1)
	case key.Matches(msg, m.keys.Down):
		m.listCursor = min(max(0, len(lists)-1), m.listCursor+1)
	case key.Matches(msg, m.keys.Top):
		m.listCursor = 0
	case key.Matches(msg, m.keys.Bottom):
		m.listCursor = max(0, len(lists)-1)
	case key.Matches(msg, m.keys.Open):
		list, ok := m.selectedList()
		if !ok {
			return m, nil
		}
		m.screen = screenItems
		m.listID = list.ID
		m.listName = list.Name
		m.items = nil
		m.itemsErr = nil
		m.itemCursor = 0
		return m, m.loadItems()
	case key.Matches(msg, m.keys.New):
		return m, m.openPrompt(promptNewList, "Groceries", "")
	case key.Matches(msg, m.keys.Rename):
		list, ok := m.selectedList()
		if !ok {
			return m, nil
		}
		return m, m.openPrompt(promptRenameList, "", list.Name)
	case key.Matches(msg, m.keys.Share):
		if _, ok := m.selectedList(); !ok {
			return m, nil
		}
		if !m.session.Authenticated() {
			m.setStatus("Sign in to share lists")
			m.statusErr = true
			return m, nil
		}
		return m, m.openPrompt(promptShareList, "friend@example.com", "")
	case key.Matches(msg, m.keys.Delete):
		list, ok := m.selectedList()
		if !ok {
			return m, nil
		}
		m.deleteItem = false
		m.pendingName = list.Name
		m.prompt = promptConfirmDelete
	}
	return m, nil
}

func (m Model) handleItemsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	items := m.visibleItems()
	switch {
	case key.Matches(msg, m.keys.Up):
		m.itemCursor = max(0, m.itemCursor-1)
	case key.Matches(msg, m.keys.Down):
		m.itemCursor = min(max(0, len(items)-1), m.itemCursor+1)
	case key.Matches(msg, m.keys.Top):
		m.itemCursor = 0
	case key.Matches(msg, m.keys.Bottom):
		m.itemCursor = max(0, len(items)-1)
	case key.Matches(msg, m.keys.HidePurchased):
		m.hidePurchased = !m.hidePurchased
		m.clampCursors()
		return m, m.saveHidePurchased(m.hidePurchased)
	case key.Matches(msg, m.keys.Toggle):
		item, ok := m.selectedItem()
		if !ok {
			return m, nil
		}
		return m, m.toggleCmd(item)
	case key.Matches(msg, m.keys.New):
		return m, m.openPrompt(promptNewItem, "Milk 2", "")
	case key.Matches(msg, m.keys.Rename), key.Matches(msg, m.keys.Open):
		item, ok := m.selectedItem()
		if !ok {
			return m, nil
		}
		return m, m.openPrompt(promptEditItem, "", formatItemInput(item))
	case key.Matches(msg, m.keys.Delete):
		item, ok := m.selectedItem()
		if !ok {
			return m, nil
		}
		m.deleteItem = true
		m.pendingName = item.Name
		m.prompt = promptConfirmDelete
	}
	return m, nil
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Escape) {
		m.closePrompt()
		return m, nil
	}
	if m.prompt == promptConfirmDelete {
		switch msg.String() {
		case "y", "Y", "enter":
			cmd := m.deleteCmd()
			m.closePrompt()
			return m, cmd
		case "n", "N":
			m.closePrompt()
		}
		return m, nil
	}
	if key.Matches(msg, m.keys.Confirm) {
		cmd, err := m.submitPrompt()
		if err != nil {
			m.setError(err)
			return m, nil
		}
		m.closePrompt()
		return m, cmd
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.loginOpen = false
		m.passInput.SetValue("")
		return m, nil
	case key.Matches(msg, m.keys.NextField):
		return m, m.focusLogin(1 - m.loginFocus)
	case key.Matches(msg, m.keys.Confirm):
		if m.loginFocus == 0 {
			return m, m.focusLogin(1)
		}
		return m, m.loginCmd()
	}
	var cmd tea.Cmd
	if m.loginFocus == 0 {
		m.emailInput, cmd = m.emailInput.Update(msg)
	} else {
		m.passInput, cmd = m.passInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) openLogin() tea.Cmd {
	m.loginOpen = true
	m.passInput.SetValue("")
	if m.emailInput.Value() == "" {
		return m.focusLogin(0)
	}
	return m.focusLogin(1)
}

func (m *Model) focusLogin(field int) tea.Cmd {
	m.loginFocus = field
	if field == 0 {
		m.passInput.Blur()
		return m.emailInput.Focus()
	}
	m.emailInput.Blur()
	return m.passInput.Focus()
}

func (m *Model) openPrompt(kind promptKind, placeholder, value string) tea.Cmd {
	m.prompt = kind
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) closePrompt() {
	m.prompt = promptNone
	m.pendingName = ""
	m.input.Blur()
	m.input.SetValue("")
}

func (m *Model) leaveItems() {
	m.screen = screenLists
	m.listID = ""
	m.listName = ""
	m.items = nil
	m.itemsErr = nil
	m.itemCursor = 0
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.status = DescribeError(err)
	m.statusErr = true
	m.logger.Debug("ui operation failed", "error", err)
}

func (m *Model) clampCursors() {
	if n := len(m.snapshot.Lists); m.listCursor >= n {
		m.listCursor = max(0, n-1)
	}
	if n := len(m.visibleItems()); m.itemCursor >= n {
		m.itemCursor = max(0, n-1)
	}
}

func (m Model) selectedList() (shop.List, bool) {
	lists := m.snapshot.Lists
	if m.listCursor < 0 || m.listCursor >= len(lists) {
		return shop.List{}, false
	}
	return lists[m.listCursor], true
}

func (m Model) visibleItems() []shop.Item {
	if !m.hidePurchased {
		return m.items
	}
	out := make([]shop.Item, 0, len(m.items))
	for _, it := range m.items {
		if !it.Purchased {
			out = append(out, it)
		}
	}
	return out
}

func (m Model) selectedItem() (shop.Item, bool) {
	items := m.visibleItems()
	if m.itemCursor < 0 || m.itemCursor >= len(items) {
		return shop.Item{}, false
	}
	return items[m.itemCursor], true
}
