package tui

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	appStyle         = lipgloss.NewStyle().Padding(0, 1)
	shellNoticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

type route struct {
	key  string
	page Page
}

type ShellDeps struct {
	Bus     *Bus
	Nav     *Nav
	Confirm *ConfirmDialog
	AddFlow *AddProviderFlow
	Conn    Connectivity
	Logger  *slog.Logger
}

// Shell hosts the routed pages, the nav bar and the modal overlays. Only the
// active page is mounted; every page still sees non-key messages so results
// that arrive after a route change can settle.
type Shell struct {
	bus     *Bus
	nav     *Nav
	confirm *ConfirmDialog
	add     *AddProviderFlow
	conn    Connectivity
	logger  *slog.Logger

	container *Container
	routes    []route
	active    int
	live      bool
	width     int
	height    int
	notice    string
}

func NewShell(deps ShellDeps) *Shell {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := &Shell{
		bus:       deps.Bus,
		nav:       deps.Nav,
		confirm:   deps.Confirm,
		add:       deps.AddFlow,
		conn:      deps.Conn,
		logger:    deps.Logger,
		container: &Container{},
	}
	if s.add != nil {
		s.bus.Subscribe(TopicOpenAddProvider, s.add.Open)
	}
	return s
}

// Register adds a routed page. The first registered page is shown at start.
func (s *Shell) Register(key string, page Page) {
	s.routes = append(s.routes, route{key: key, page: page})
	s.nav.AddRoute(key, page.Title())
	if len(s.routes) == 1 {
		s.nav.SetActive(key)
	}
}

func (s *Shell) Active() Page {
	if len(s.routes) == 0 {
		return nil
	}
	return s.routes[s.active].page
}

func (s *Shell) Init() tea.Cmd {
	s.live = s.conn.Connected()
	s.nav.SetLive(s.live)
	cmds := []tea.Cmd{watchConnectivity(s.conn)}
	if page := s.Active(); page != nil {
		cmds = append(cmds, page.Mount(s.container, s.live))
	}
	return tea.Batch(cmds...)
}

func (s *Shell) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.nav.SetWidth(msg.Width)
		s.container.SetSize(msg.Width-2, msg.Height-3)
		modalWidth := msg.Width - 4
		if modalWidth < 32 {
			modalWidth = 32
		}
		if modalWidth > 80 {
			modalWidth = 80
		}
		s.confirm.SetWidth(modalWidth)
		if s.add != nil {
			s.add.SetWidth(modalWidth)
		}
		return s, s.broadcast(msg)

	case connectivityChangedMsg:
		return s, tea.Batch(watchConnectivity(s.conn), s.setLive(msg.live))

	case ConnectivityMsg:
		return s, s.setLive(msg.Live)

	case TopicMsg:
		return s, s.bus.Publish(msg.Topic)

	case NoticeMsg:
		s.notice = msg.Text
		return s, nil

	case ShowRouteMsg:
		return s, s.NavigateTo(msg.Route)

	case tea.KeyMsg:
		return s, s.handleKey(msg)
	}

	cmds := []tea.Cmd{s.broadcast(msg)}
	if s.add != nil {
		cmds = append(cmds, s.add.Update(msg))
	}
	return s, tea.Batch(cmds...)
}

func (s *Shell) setLive(live bool) tea.Cmd {
	if live != s.live {
		s.logger.Info("gateway connectivity changed", "live", live)
	}
	s.live = live
	s.nav.SetLive(live)
	if !live && s.add != nil && s.add.Active() {
		s.add.Close()
		s.notice = "Gateway went offline."
	}
	return s.broadcast(ConnectivityMsg{Live: live})
}

func (s *Shell) broadcast(msg tea.Msg) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(s.routes))
	for _, r := range s.routes {
		cmds = append(cmds, r.page.Update(msg))
	}
	return tea.Batch(cmds...)
}

func (s *Shell) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "ctrl+d":
		return tea.Quit
	}
	s.notice = ""

	if s.confirm.Visible {
		return s.confirm.Update(msg)
	}
	if s.add != nil && s.add.Active() {
		return s.add.Update(msg)
	}

	switch msg.String() {
	case "ctrl+right", "alt+]":
		return s.Navigate(s.active + 1)
	case "ctrl+left", "alt+[":
		return s.Navigate(s.active - 1)
	}
	if page := s.Active(); page != nil {
		return page.Update(msg)
	}
	return nil
}

// Navigate unmounts the current page and mounts the one at index i, wrapping
// around at either end.
func (s *Shell) Navigate(i int) tea.Cmd {
	n := len(s.routes)
	if n == 0 {
		return nil
	}
	i = ((i % n) + n) % n
	if i == s.active {
		return nil
	}
	s.routes[s.active].page.Unmount()
	s.active = i
	s.nav.SetActive(s.routes[i].key)
	return s.routes[i].page.Mount(s.container, s.live)
}

// NavigateTo switches to the page registered under key.
func (s *Shell) NavigateTo(key string) tea.Cmd {
	for i, r := range s.routes {
		if r.key == key {
			return s.Navigate(i)
		}
	}
	return nil
}

func (s *Shell) View() string {
	body := s.container.View()
	parts := []string{s.nav.View()}
	if s.notice != "" {
		parts = append(parts, shellNoticeStyle.Render(s.notice))
	} else {
		parts = append(parts, "")
	}
	parts = append(parts, body)
	base := appStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))

	var overlay string
	switch {
	case s.confirm.Visible:
		overlay = s.confirm.View()
	case s.add != nil && s.add.Active():
		overlay = s.add.View()
	}
	if overlay == "" {
		return base
	}
	if s.width > 0 && s.height > 0 {
		return lipgloss.Place(s.width, s.height, lipgloss.Center, lipgloss.Center, overlay)
	}
	return overlay
}
