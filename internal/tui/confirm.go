package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	confirmBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("203")).
			Background(lipgloss.Color("235")).
			Padding(1, 2)
	confirmPromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Bold(true)
)

// Confirmer asks the user a yes/no question. The answer arrives later as a
// ConfirmResultMsg carrying the same id.
type Confirmer interface {
	Request(id, prompt string) tea.Cmd
}

type ConfirmResultMsg struct {
	ID       string
	Accepted bool
}

// ConfirmDialog is the modal Confirmer. Each request resolves exactly once;
// opening a new one while another is pending declines the older request.
type ConfirmDialog struct {
	Visible  bool
	id       string
	prompt   string
	MaxWidth int
}

func NewConfirmDialog() *ConfirmDialog {
	return &ConfirmDialog{}
}

func (d *ConfirmDialog) Request(id, prompt string) tea.Cmd {
	var superseded tea.Cmd
	if d.Visible {
		superseded = resolveConfirm(d.id, false)
	}
	d.Visible = true
	d.id = id
	d.prompt = strings.TrimSpace(prompt)
	return superseded
}

func (d *ConfirmDialog) Prompt() string {
	return d.prompt
}

func (d *ConfirmDialog) SetWidth(width int) {
	d.MaxWidth = width
}

func (d *ConfirmDialog) Update(msg tea.Msg) tea.Cmd {
	if !d.Visible {
		return nil
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	switch key.String() {
	case "y", "Y", "enter":
		return d.resolve(true)
	case "n", "N", "esc":
		return d.resolve(false)
	}
	return nil
}

func (d *ConfirmDialog) resolve(accepted bool) tea.Cmd {
	id := d.id
	d.Visible = false
	d.id = ""
	d.prompt = ""
	return resolveConfirm(id, accepted)
}

func resolveConfirm(id string, accepted bool) tea.Cmd {
	return func() tea.Msg {
		return ConfirmResultMsg{ID: id, Accepted: accepted}
	}
}

func (d *ConfirmDialog) View() string {
	if !d.Visible {
		return ""
	}
	prompt := d.prompt
	if d.MaxWidth > 0 {
		prompt = wrapToWidth(prompt, modalContentWidth(d.MaxWidth))
	}
	box := confirmBoxStyle
	if d.MaxWidth > 0 {
		box = box.MaxWidth(d.MaxWidth)
	}
	return box.Render(confirmPromptStyle.Render(prompt) + "\n\n" + connectHintStyle.Render("y/enter: confirm  n/esc: cancel"))
}

func modalContentWidth(maxWidth int) int {
	if maxWidth <= 0 {
		return 0
	}
	width := maxWidth - 8
	if width < 20 {
		width = 20
	}
	return width
}
