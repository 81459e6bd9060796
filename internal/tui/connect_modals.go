package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
)

var (
	connectModalBoxStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("205")).
				Background(lipgloss.Color("235")).
				Padding(1, 2)
	connectTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Bold(true)
	connectHintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	connectSelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("51")).Bold(true)
	connectItemStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	connectOffStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	connectErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

type SelectOption struct {
	Value   string
	Label   string
	Detail  string
	Enabled bool
}

// SelectModal is a single-choice picker. Typing narrows the options with a
// fuzzy match on the label; disabled options stay visible but cannot be chosen.
type SelectModal struct {
	Title    string
	Hint     string
	Visible  bool
	Selected int
	Options  []SelectOption
	MaxWidth int

	query   string
	visible []int
}

func NewSelectModal(title, hint string) *SelectModal {
	return &SelectModal{
		Title:    title,
		Hint:     hint,
		Selected: -1,
	}
}

func (m *SelectModal) SetOptions(options []SelectOption) {
	m.Options = append([]SelectOption(nil), options...)
	m.query = ""
	m.filter()
}

func (m *SelectModal) Open() {
	m.Visible = true
	m.query = ""
	m.filter()
}

func (m *SelectModal) Close() {
	m.Visible = false
}

func (m *SelectModal) SetWidth(width int) {
	m.MaxWidth = width
}

func (m *SelectModal) Query() string {
	return m.query
}

// SetQuery narrows the visible options to fuzzy matches of q, best first.
func (m *SelectModal) SetQuery(q string) {
	m.query = q
	m.filter()
}

func (m *SelectModal) filter() {
	m.visible = m.visible[:0]
	if strings.TrimSpace(m.query) == "" {
		for i := range m.Options {
			m.visible = append(m.visible, i)
		}
	} else {
		labels := make([]string, len(m.Options))
		for i, opt := range m.Options {
			labels[i] = opt.Label
		}
		for _, match := range fuzzy.Find(strings.TrimSpace(m.query), labels) {
			m.visible = append(m.visible, match.Index)
		}
	}
	m.Selected = m.firstEnabled()
}

func (m *SelectModal) firstEnabled() int {
	for pos, idx := range m.visible {
		if m.Options[idx].Enabled {
			return pos
		}
	}
	return -1
}

// Move steps the cursor over enabled options only.
func (m *SelectModal) Move(delta int) {
	if len(m.visible) == 0 || m.Selected < 0 {
		return
	}
	next := m.Selected
	for {
		next += delta
		if next < 0 || next >= len(m.visible) {
			return
		}
		if m.Options[m.visible[next]].Enabled {
			m.Selected = next
			return
		}
	}
}

func (m *SelectModal) SelectedOption() (SelectOption, bool) {
	if m.Selected < 0 || m.Selected >= len(m.visible) {
		return SelectOption{}, false
	}
	opt := m.Options[m.visible[m.Selected]]
	if !opt.Enabled {
		return SelectOption{}, false
	}
	return opt, true
}

// Update handles navigation and typing. Enter and esc are left to the owner.
func (m *SelectModal) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok || !m.Visible {
		return nil
	}
	switch key.String() {
	case "up", "ctrl+p":
		m.Move(-1)
	case "down", "ctrl+n":
		m.Move(1)
	case "backspace", "ctrl+h":
		if m.query != "" {
			m.SetQuery(trimLastRune(m.query))
		}
	case "ctrl+u":
		m.SetQuery("")
	default:
		if key.Type == tea.KeyRunes && len(key.Runes) > 0 && !key.Alt {
			m.SetQuery(m.query + string(key.Runes))
		}
	}
	return nil
}

func (m *SelectModal) View() string {
	if !m.Visible {
		return ""
	}
	contentWidth := modalContentWidth(m.MaxWidth)
	var lines []string
	for pos, idx := range m.visible {
		opt := m.Options[idx]
		prefix := "  "
		style := connectItemStyle
		if !opt.Enabled {
			style = connectOffStyle
		}
		if pos == m.Selected {
			prefix = "> "
			style = connectSelStyle
		}
		label := opt.Label
		if opt.Detail != "" {
			label += "  (" + opt.Detail + ")"
		}
		line := prefix + label
		if contentWidth > 0 {
			line = wrapWithPrefix(prefix, label, contentWidth)
		}
		lines = append(lines, style.Render(line))
	}
	if len(lines) == 0 {
		lines = append(lines, connectOffStyle.Render("  no matches"))
	}

	title := m.Title
	hint := m.Hint
	if contentWidth > 0 {
		title = wrapToWidth(title, contentWidth)
		hint = wrapToWidth(hint, contentWidth)
	}
	search := connectHintStyle.Render("type to filter")
	if m.query != "" {
		search = connectItemStyle.Render("Filter: " + m.query)
	}

	boxStyle := connectModalBoxStyle
	if m.MaxWidth > 0 {
		boxStyle = boxStyle.MaxWidth(m.MaxWidth)
	}
	return boxStyle.Render(fmt.Sprintf("%s\n%s\n\n%s\n\n%s",
		connectTitleStyle.Render(title),
		search,
		strings.Join(lines, "\n"),
		connectHintStyle.Render(hint),
	))
}

// CredentialModal collects the secret (or endpoint, for local providers)
// for one provider.
type CredentialModal struct {
	Visible      bool
	Provider     string
	Prompt       CredentialPrompt
	Saving       bool
	ErrorMessage string
	MaxWidth     int

	input textinput.Model
}

func NewCredentialModal() *CredentialModal {
	ti := textinput.New()
	ti.CharLimit = 512
	ti.Prompt = "› "
	return &CredentialModal{input: ti}
}

func (m *CredentialModal) Open(providerLabel string, prompt CredentialPrompt) tea.Cmd {
	m.Visible = true
	m.Provider = providerLabel
	m.Prompt = prompt
	m.Saving = false
	m.ErrorMessage = ""
	m.input.Reset()
	m.input.Placeholder = prompt.Placeholder
	m.input.SetValue(prompt.Initial)
	m.input.CursorEnd()
	m.input.EchoMode = textinput.EchoNormal
	if prompt.Secret {
		m.input.EchoMode = textinput.EchoPassword
	}
	return m.input.Focus()
}

func (m *CredentialModal) Close() {
	m.Visible = false
	m.Provider = ""
	m.Prompt = CredentialPrompt{}
	m.Saving = false
	m.ErrorMessage = ""
	m.input.Reset()
	m.input.Blur()
}

func (m *CredentialModal) Value() string {
	return strings.TrimSpace(m.input.Value())
}

func (m *CredentialModal) BeginSaving() {
	m.Saving = true
	m.ErrorMessage = ""
}

func (m *CredentialModal) SetError(errMsg string) {
	m.Saving = false
	m.ErrorMessage = strings.TrimSpace(errMsg)
}

func (m *CredentialModal) SetWidth(width int) {
	m.MaxWidth = width
}

func (m *CredentialModal) Update(msg tea.Msg) tea.Cmd {
	if !m.Visible || m.Saving {
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *CredentialModal) View() string {
	if !m.Visible {
		return ""
	}
	contentWidth := modalContentWidth(m.MaxWidth)
	wrap := func(text string) string {
		if contentWidth <= 0 {
			return text
		}
		return wrapToWidth(text, contentWidth)
	}

	parts := []string{
		connectTitleStyle.Render(wrap("Connect " + m.Provider)),
		connectHintStyle.Render(wrap(m.Prompt.Hint)),
		"",
		connectHintStyle.Render(m.Prompt.Label),
		m.input.View(),
	}
	switch {
	case m.Saving:
		parts = append(parts, "", connectHintStyle.Render("Saving…"))
	case m.ErrorMessage != "":
		parts = append(parts, "", connectErrStyle.Render(wrap(m.ErrorMessage)))
	}
	footer := "enter: save  esc: back"
	if m.Saving {
		footer = "esc: cancel"
	}
	parts = append(parts, "", connectHintStyle.Render(footer))

	boxStyle := connectModalBoxStyle
	if m.MaxWidth > 0 {
		boxStyle = boxStyle.MaxWidth(m.MaxWidth)
	}
	return boxStyle.Render(strings.Join(parts, "\n"))
}
