package tui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yubzen/switchboard/internal/providers"
	"github.com/yubzen/switchboard/internal/rpc"
)

var (
	pageTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("51")).Bold(true)
	pageHintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	pageEmptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Italic(true)
	pageErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	pageNoticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	addRowStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	addRowOffStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	addRowSelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("235")).Background(lipgloss.Color("42")).Bold(true)
)

type ProvidersPageDeps struct {
	Caller  rpc.Caller
	Store   *providers.Store
	Bus     *Bus
	Confirm Confirmer
	Timeout time.Duration
	Logger  *slog.Logger
}

// ProvidersPage lists configured providers and drives their removal.
type ProvidersPage struct {
	caller  rpc.Caller
	store   *providers.Store
	bus     *Bus
	confirm Confirmer
	timeout time.Duration
	logger  *slog.Logger

	container *Container
	sub       Subscription
	mounted   bool
	live      bool
	selected  int
	spinner   spinner.Model
	pending   map[string]string
	removing  map[string]bool
	notice    string
}

func NewProvidersPage(deps ProvidersPageDeps) *ProvidersPage {
	if deps.Timeout <= 0 {
		deps.Timeout = 10 * time.Second
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return &ProvidersPage{
		caller:   deps.Caller,
		store:    deps.Store,
		bus:      deps.Bus,
		confirm:  deps.Confirm,
		timeout:  deps.Timeout,
		logger:   deps.Logger,
		spinner:  sp,
		pending:  make(map[string]string),
		removing: make(map[string]bool),
	}
}

func (p *ProvidersPage) Title() string {
	return "Providers"
}

func (p *ProvidersPage) Mount(c *Container, live bool) tea.Cmd {
	p.container = c
	p.mounted = true
	p.live = live
	p.notice = ""
	c.Render(p)
	p.sub = p.bus.Subscribe(TopicRefreshProviders, p.Refresh)
	if live {
		return p.Refresh()
	}
	return nil
}

func (p *ProvidersPage) Unmount() {
	if !p.mounted {
		return
	}
	p.bus.Unsubscribe(p.sub)
	p.sub = Subscription{}
	p.mounted = false
	p.pending = make(map[string]string)
	if p.container != nil {
		p.container.Clear()
		p.container = nil
	}
}

func (p *ProvidersPage) Mounted() bool {
	return p.mounted
}

// Refresh marks the store loading and issues providers.available.
func (p *ProvidersPage) Refresh() tea.Cmd {
	seq := p.store.Begin()
	fetch := callCmd(p.caller, p.timeout, rpc.MethodProvidersAvailable, nil, func(resp rpc.Response, err error) tea.Msg {
		return ProvidersLoadedMsg{Seq: seq, Result: providers.ListFromResponse(resp, err)}
	})
	return tea.Batch(fetch, p.spinner.Tick)
}

func (p *ProvidersPage) Update(msg tea.Msg) tea.Cmd {
	// Removals and listings settle even if the page went away meanwhile: the
	// store outlives the page and its loading flag must clear.
	switch msg := msg.(type) {
	case ProviderRemovedMsg:
		return p.removed(msg)
	case ProvidersLoadedMsg:
		if p.store.Apply(msg.Seq, msg.Result) && p.mounted {
			p.clampSelection()
		}
		return nil
	}
	if !p.mounted {
		return nil
	}
	switch msg := msg.(type) {
	case ConnectivityMsg:
		wasLive := p.live
		p.live = msg.Live
		if msg.Live && !wasLive {
			return p.Refresh()
		}
		return nil

	case ConfirmResultMsg:
		name, ok := p.pending[msg.ID]
		if !ok {
			return nil
		}
		delete(p.pending, msg.ID)
		if !msg.Accepted {
			return nil
		}
		p.removing[name] = true
		return removeKeyCmd(p.caller, p.timeout, name)

	case spinner.TickMsg:
		if !p.store.Loading() {
			return nil
		}
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return cmd

	case tea.KeyMsg:
		return p.handleKey(msg)
	}
	return nil
}

func (p *ProvidersPage) removed(msg ProviderRemovedMsg) tea.Cmd {
	delete(p.removing, msg.Name)
	if msg.Err != nil {
		p.logger.Warn("provider removal failed", "provider", msg.Name, "error", msg.Err)
		if p.mounted {
			label := msg.Name
			if prov, ok := p.store.Lookup(msg.Name); ok {
				label = prov.Label()
			}
			p.notice = fmt.Sprintf("Could not remove %s: %v", label, msg.Err)
		}
		return nil
	}
	p.logger.Info("provider removed", "provider", msg.Name)
	p.notice = ""
	return tea.Batch(p.bus.Publish(TopicRefreshModels), p.bus.Publish(TopicRefreshProviders))
}

func (p *ProvidersPage) handleKey(msg tea.KeyMsg) tea.Cmd {
	rows := p.store.Len() + 1
	switch msg.String() {
	case "up", "k":
		if p.selected > 0 {
			p.selected--
		}
	case "down", "j":
		if p.selected < rows-1 {
			p.selected++
		}
	case "r":
		return p.Refresh()
	case "a":
		return p.AddProvider()
	case "enter":
		if p.onAddRow() {
			return p.AddProvider()
		}
	case "d", "delete", "x":
		return p.removeSelected()
	}
	return nil
}

// AddProvider opens the add-provider flow; offline it does nothing.
func (p *ProvidersPage) AddProvider() tea.Cmd {
	if !p.live {
		return nil
	}
	return p.bus.Publish(TopicOpenAddProvider)
}

func (p *ProvidersPage) removeSelected() tea.Cmd {
	if p.onAddRow() {
		return nil
	}
	list := p.store.Providers()
	target := list[p.selected]
	if p.removing[target.Name] {
		return nil
	}
	id, cmd := NewProviderCard(target).Remove(p.confirm)
	p.pending[id] = target.Name
	return cmd
}

func (p *ProvidersPage) onAddRow() bool {
	return p.selected >= p.store.Len()
}

func (p *ProvidersPage) clampSelection() {
	if p.selected > p.store.Len() {
		p.selected = p.store.Len()
	}
	if p.selected < 0 {
		p.selected = 0
	}
}

func (p *ProvidersPage) View() string {
	width := 72
	if p.container != nil {
		if w, _ := p.container.Size(); w > 0 {
			width = w
		}
	}

	var b strings.Builder
	b.WriteString(pageTitleStyle.Render("Providers"))
	b.WriteString("\n")
	b.WriteString(pageHintStyle.Render("LLM backends the gateway can route to."))
	b.WriteString("\n\n")

	if err := p.store.Failure(); err != nil {
		b.WriteString(pageErrorStyle.Render(wrapToWidth("Could not load providers: "+err.Error()+" (r to retry)", width)))
		b.WriteString("\n\n")
	}

	list := p.store.Providers()
	switch {
	case p.store.Loading() && len(list) == 0:
		b.WriteString(p.spinner.View() + " Loading providers…")
	case len(list) == 0:
		b.WriteString(pageEmptyStyle.Render("No providers configured yet."))
	default:
		cards := make([]string, 0, len(list))
		for i, prov := range list {
			card := NewProviderCard(prov)
			card.Selected = i == p.selected
			card.Removing = p.removing[prov.Name]
			card.Width = width
			cards = append(cards, card.View())
		}
		b.WriteString(strings.Join(cards, "\n"))
	}
	b.WriteString("\n\n")
	b.WriteString(p.addRowView())

	if p.notice != "" {
		b.WriteString("\n\n")
		b.WriteString(pageNoticeStyle.Render(wrapToWidth(p.notice, width)))
	}
	b.WriteString("\n\n")
	b.WriteString(pageHintStyle.Render("up/down: select  d: remove  a: add provider  r: refresh"))
	return b.String()
}

func (p *ProvidersPage) addRowView() string {
	label := "+ Add Provider"
	switch {
	case !p.live:
		return addRowOffStyle.Render(label + " (gateway offline)")
	case p.onAddRow():
		return addRowSelStyle.Render(label)
	default:
		return addRowStyle.Render(label)
	}
}
