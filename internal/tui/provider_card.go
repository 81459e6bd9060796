package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/mattn/go-runewidth"

	"github.com/yubzen/switchboard/internal/providers"
	"github.com/yubzen/switchboard/internal/rpc"
)

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
	cardSelectedStyle = cardStyle.BorderForeground(lipgloss.Color("205"))
	cardTitleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Bold(true)
	cardMetaStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	cardBusyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))

	badgeStyles = map[string]lipgloss.Style{
		"OAuth":   lipgloss.NewStyle().Foreground(lipgloss.Color("235")).Background(lipgloss.Color("141")).Padding(0, 1),
		"Local":   lipgloss.NewStyle().Foreground(lipgloss.Color("235")).Background(lipgloss.Color("42")).Padding(0, 1),
		"API Key": lipgloss.NewStyle().Foreground(lipgloss.Color("235")).Background(lipgloss.Color("39")).Padding(0, 1),
	}
)

// ProviderCard renders one configured provider.
type ProviderCard struct {
	Provider providers.Provider
	Selected bool
	Removing bool
	Width    int
}

func NewProviderCard(p providers.Provider) ProviderCard {
	return ProviderCard{Provider: p}
}

func (c ProviderCard) View() string {
	inner := c.Width - 4
	if inner < 24 {
		inner = 24
	}
	badge := c.Provider.BadgeLabel()
	badgeView := badgeStyles[badge].Render(badge)
	titleWidth := inner - lipgloss.Width(badgeView) - 1
	title := runewidth.Truncate(c.Provider.Label(), titleWidth, "…")
	header := cardTitleStyle.Render(title) + strings.Repeat(" ", max(1, inner-runewidth.StringWidth(title)-lipgloss.Width(badgeView))) + badgeView

	lines := []string{header}
	if model, ok := c.Provider.ModelInfo(); ok {
		lines = append(lines, cardMetaStyle.Render(runewidth.Truncate("Model: "+model, inner, "…")))
	}
	if endpoint, ok := c.Provider.EndpointInfo(); ok {
		lines = append(lines, cardMetaStyle.Render(runewidth.Truncate("Endpoint: "+endpoint, inner, "…")))
	}
	if c.Removing {
		lines = append(lines, cardBusyStyle.Render("Removing…"))
	}

	style := cardStyle
	if c.Selected {
		style = cardSelectedStyle
	}
	return style.Width(inner + 2).Render(strings.Join(lines, "\n"))
}

// Remove starts the removal flow by asking for confirmation. The returned id
// identifies the ConfirmResultMsg that settles it.
func (c ProviderCard) Remove(confirm Confirmer) (string, tea.Cmd) {
	id := uuid.NewString()
	return id, confirm.Request(id, c.Provider.RemovePrompt())
}

// removeKeyCmd issues providers.remove_key for name.
func removeKeyCmd(caller rpc.Caller, timeout time.Duration, name string) tea.Cmd {
	params := providers.RemoveKeyRequest{Provider: name}
	return callCmd(caller, timeout, rpc.MethodProvidersRemoveKey, params, func(resp rpc.Response, err error) tea.Msg {
		if err == nil {
			err = resp.Err()
		}
		if err != nil {
			err = fmt.Errorf("remove %s: %w", name, err)
		}
		return ProviderRemovedMsg{Name: name, Err: err}
	})
}
