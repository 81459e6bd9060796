package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	navBaseStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("235")).Padding(0, 1)
	navActiveStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	navInactiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	navLiveStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	navOfflineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	navURLStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

// Nav is the shell's top bar: one tab per route with its item count, and
// the gateway connection state.
type Nav struct {
	routes []string
	titles map[string]string
	counts map[string]int
	active string
	live   bool
	url    string
	width  int
}

func NewNav(gatewayURL string) *Nav {
	return &Nav{
		titles: make(map[string]string),
		counts: make(map[string]int),
		url:    gatewayURL,
	}
}

func (n *Nav) AddRoute(route, title string) {
	if _, ok := n.titles[route]; !ok {
		n.routes = append(n.routes, route)
	}
	n.titles[route] = title
}

// Update records the item count shown next to category.
func (n *Nav) Update(category string, count int) {
	n.counts[category] = count
}

func (n *Nav) Count(category string) (int, bool) {
	c, ok := n.counts[category]
	return c, ok
}

func (n *Nav) SetActive(route string) { n.active = route }

func (n *Nav) SetLive(live bool) { n.live = live }

func (n *Nav) SetWidth(w int) { n.width = w }

func (n *Nav) View() string {
	tabs := make([]string, 0, len(n.routes))
	for _, route := range n.routes {
		label := n.titles[route]
		if c, ok := n.counts[route]; ok {
			label = fmt.Sprintf("%s (%d)", label, c)
		}
		style := navInactiveStyle
		if route == n.active {
			style = navActiveStyle
			label = "[" + label + "]"
		}
		tabs = append(tabs, style.Render(label))
	}
	left := strings.Join(tabs, "  ")

	state := navOfflineStyle.Render("● offline")
	if n.live {
		state = navLiveStyle.Render("● live")
	}
	right := state
	if n.width > 0 {
		room := n.width - lipgloss.Width(left) - lipgloss.Width(state) - 6
		if url := truncateLeft(n.url, room); url != "" {
			right = navURLStyle.Render(url) + " " + state
		}
	} else if n.url != "" {
		right = navURLStyle.Render(n.url) + " " + state
	}

	gap := 1
	if n.width > 0 {
		gap = max(1, n.width-2-lipgloss.Width(left)-lipgloss.Width(right))
	}
	return navBaseStyle.Width(n.width).Render(left + strings.Repeat(" ", gap) + right)
}
