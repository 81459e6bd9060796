package tui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yubzen/switchboard/internal/providers"
	"github.com/yubzen/switchboard/internal/rpc"
)

const ModelsNavCategory = "models"

var modelPageBG = lipgloss.Color("235")

var (
	modelTabActiveStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("235")).Background(lipgloss.Color("45")).Bold(true).Padding(0, 1)
	modelTabInactiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Background(lipgloss.Color("238")).Padding(0, 1)
	modelSearchLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	modelSearchValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	modelSearchHintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	modelSearchCursor     = lipgloss.NewStyle().Foreground(lipgloss.Color("51"))
)

type ModelOption struct {
	ProviderName string
	ProviderKey  string
	ModelID      string
}

func (m ModelOption) FilterValue() string {
	return strings.TrimSpace(m.ProviderName + " " + m.ModelID)
}

func (m ModelOption) Title() string {
	return strings.TrimSpace(m.ModelID)
}

func (m ModelOption) Description() string {
	return strings.TrimSpace(m.ProviderName)
}

type modelFilterTab int

const (
	modelFilterAll modelFilterTab = iota
	modelFilterFree
)

type ModelsLoadedMsg struct {
	Seq    uint64
	Models []providers.ModelInfo
	Err    error
}

type ModelsPageDeps struct {
	Caller  rpc.Caller
	Bus     *Bus
	Nav     providers.NavCounter
	Timeout time.Duration
	Logger  *slog.Logger
}

// ModelsPage lists the models of every configured provider. It keeps its list
// current while unmounted so the count in the nav stays right.
type ModelsPage struct {
	caller  rpc.Caller
	bus     *Bus
	nav     providers.NavCounter
	timeout time.Duration
	logger  *slog.Logger

	container *Container
	mounted   bool
	live      bool

	seq      uint64
	loading  bool
	failure  error
	models   []ModelOption
	filtered []ModelOption
	list     list.Model
	query    string
	tab      modelFilterTab
}

func NewModelsPage(deps ModelsPageDeps) *ModelsPage {
	if deps.Timeout <= 0 {
		deps.Timeout = 10 * time.Second
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(1)
	delegate.Styles.NormalTitle = delegate.Styles.NormalTitle.Foreground(lipgloss.Color("252"))
	delegate.Styles.NormalDesc = delegate.Styles.NormalDesc.Foreground(lipgloss.Color("244"))
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(lipgloss.Color("213")).Bold(true)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(lipgloss.Color("183")).Bold(true)

	l := list.New(nil, delegate, 72, 14)
	l.Styles.NoItems = l.Styles.NoItems.Background(modelPageBG)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return &ModelsPage{
		caller:  deps.Caller,
		bus:     deps.Bus,
		nav:     deps.Nav,
		timeout: deps.Timeout,
		logger:  deps.Logger,
		list:    l,
	}
}

func (p *ModelsPage) Title() string {
	return "Models"
}

func (p *ModelsPage) Mount(c *Container, live bool) tea.Cmd {
	p.container = c
	p.mounted = true
	p.live = live
	c.Render(p)
	p.resize()
	if live {
		return p.Refresh()
	}
	return nil
}

func (p *ModelsPage) Unmount() {
	p.mounted = false
	if p.container != nil {
		p.container.Clear()
		p.container = nil
	}
}

// Refresh requests models.list. Only the latest request is applied.
func (p *ModelsPage) Refresh() tea.Cmd {
	p.seq++
	seq := p.seq
	p.loading = true
	return callCmd(p.caller, p.timeout, rpc.MethodModelsList, nil, func(resp rpc.Response, err error) tea.Msg {
		if err == nil {
			err = resp.Err()
		}
		var models []providers.ModelInfo
		if err == nil {
			err = resp.Decode(&models)
		}
		return ModelsLoadedMsg{Seq: seq, Models: models, Err: err}
	})
}

func (p *ModelsPage) Update(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(ModelsLoadedMsg); ok {
		p.apply(msg)
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

	case tea.WindowSizeMsg:
		p.resize()
		return nil

	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "shift+tab":
			p.toggleTab()
			return nil
		case "ctrl+r":
			return p.Refresh()
		case "ctrl+a":
			if !p.live || p.bus == nil {
				return nil
			}
			return p.bus.Publish(TopicOpenAddProvider)
		case "backspace", "ctrl+h":
			if p.query != "" {
				p.query = trimLastRune(p.query)
				p.applyFilters(p.selectedKey())
			}
			return nil
		case "ctrl+u":
			if p.query != "" {
				p.query = ""
				p.applyFilters("")
			}
			return nil
		}
		if msg.Type == tea.KeyRunes && len(msg.Runes) > 0 && !msg.Alt {
			p.query += string(msg.Runes)
			p.applyFilters(p.selectedKey())
			return nil
		}
	}

	var cmd tea.Cmd
	p.list, cmd = p.list.Update(msg)
	return cmd
}

func (p *ModelsPage) apply(msg ModelsLoadedMsg) {
	if msg.Seq != p.seq {
		return
	}
	p.loading = false
	if msg.Err != nil {
		p.logger.Warn("model list failed", "error", msg.Err)
		p.failure = msg.Err
		return
	}
	p.failure = nil
	options := make([]ModelOption, 0, len(msg.Models))
	for _, m := range msg.Models {
		options = append(options, ModelOption{ProviderName: m.DisplayName, ProviderKey: m.Provider, ModelID: m.ID})
	}
	p.SetModelOptions(options)
	if p.nav != nil {
		p.nav.Update(ModelsNavCategory, len(p.models))
	}
}

func (p *ModelsPage) Loading() bool {
	return p.loading
}

func (p *ModelsPage) Models() []ModelOption {
	return append([]ModelOption(nil), p.models...)
}

func (p *ModelsPage) SetModelOptions(models []ModelOption) {
	selected := p.selectedKey()
	p.models = append([]ModelOption(nil), models...)
	p.applyFilters(selected)
}

func (p *ModelsPage) resize() {
	if p.container == nil {
		return
	}
	width, height := p.container.Size()
	if width <= 0 || height <= 0 {
		return
	}
	innerHeight := height - 8
	if innerHeight < 6 {
		innerHeight = 6
	}
	p.list.SetWidth(width)
	p.list.SetHeight(innerHeight)
}

func (p *ModelsPage) selectedModel() (ModelOption, bool) {
	item := p.list.SelectedItem()
	if item == nil {
		return ModelOption{}, false
	}
	model, ok := item.(ModelOption)
	return model, ok
}

func (p *ModelsPage) View() string {
	title := pageTitleStyle.Render("Models")
	if p.loading && len(p.models) == 0 {
		return title + "\n\n" + pageHintStyle.Render("Loading models…")
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	if p.failure != nil {
		b.WriteString(pageErrorStyle.Render("Could not load models: " + p.failure.Error()))
		b.WriteString("\n\n")
	}
	if len(p.models) == 0 {
		b.WriteString(pageEmptyStyle.Render("No models available. Press ctrl+a to add a provider."))
		return b.String()
	}

	searchText := strings.TrimSpace(p.query)
	if searchText == "" {
		searchText = modelSearchHintStyle.Render("type to search models")
	} else {
		searchText = modelSearchValueStyle.Render(searchText)
	}
	body := p.list.View()
	if len(p.filtered) == 0 {
		body = pageEmptyStyle.Render("No models match the current filters.")
	}

	fmt.Fprintf(&b, "%s\n%s %s%s\n\n%s\n\n%s",
		p.renderTabs(),
		modelSearchLabelStyle.Render("Search:"),
		searchText,
		modelSearchCursor.Render("█"),
		body,
		pageHintStyle.Render("type: search  tab: ALL/FREE  backspace: erase  ctrl+r: refresh  ctrl+a: add provider"),
	)
	return b.String()
}

func (p *ModelsPage) toggleTab() {
	selected := p.selectedKey()
	if p.tab == modelFilterAll {
		p.tab = modelFilterFree
	} else {
		p.tab = modelFilterAll
	}
	p.applyFilters(selected)
}

func (p *ModelsPage) applyFilters(preferredKey string) {
	query := strings.ToLower(strings.TrimSpace(p.query))
	filtered := make([]ModelOption, 0, len(p.models))
	for _, model := range p.models {
		if p.tab == modelFilterFree && !isFreeModelID(model.ModelID) {
			continue
		}
		if query != "" {
			haystack := strings.ToLower(model.ModelID + " " + model.ProviderName + " " + model.ProviderKey)
			if !strings.Contains(haystack, query) {
				continue
			}
		}
		filtered = append(filtered, model)
	}

	p.filtered = filtered
	items := make([]list.Item, 0, len(filtered))
	for _, model := range filtered {
		items = append(items, model)
	}
	p.list.SetItems(items)
	if len(filtered) == 0 {
		return
	}

	if preferredKey != "" {
		for idx, option := range filtered {
			if modelOptionKey(option) == preferredKey {
				p.list.Select(idx)
				return
			}
		}
	}
	if p.list.Index() < 0 || p.list.Index() >= len(filtered) {
		p.list.Select(0)
	}
}

func (p *ModelsPage) selectedKey() string {
	selected, ok := p.selectedModel()
	if !ok {
		return ""
	}
	return modelOptionKey(selected)
}

func (p *ModelsPage) renderTabs() string {
	freeCount := 0
	for _, model := range p.models {
		if isFreeModelID(model.ModelID) {
			freeCount++
		}
	}
	allLabel := fmt.Sprintf("ALL (%d)", len(p.models))
	freeLabel := fmt.Sprintf("FREE (%d)", freeCount)
	if p.tab == modelFilterAll {
		return lipgloss.JoinHorizontal(lipgloss.Left, modelTabActiveStyle.Render(allLabel), " ", modelTabInactiveStyle.Render(freeLabel))
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, modelTabInactiveStyle.Render(allLabel), " ", modelTabActiveStyle.Render(freeLabel))
}

func modelOptionKey(option ModelOption) string {
	return strings.ToLower(strings.TrimSpace(option.ProviderKey)) + "::" + strings.ToLower(strings.TrimSpace(option.ModelID))
}

// isFreeModelID matches OpenRouter's free-tier naming.
func isFreeModelID(modelID string) bool {
	normalized := strings.ToLower(strings.TrimSpace(modelID))
	return strings.HasSuffix(normalized, " [free]") || strings.Contains(normalized, ":free")
}
