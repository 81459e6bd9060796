package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Page is a routable screen of the shell.
type Page interface {
	Title() string
	// Mount attaches the page to c. live reports whether the gateway is
	// reachable at mount time.
	Mount(c *Container, live bool) tea.Cmd
	Unmount()
	Update(msg tea.Msg) tea.Cmd
	View() string
}

// Container is the region of the shell a mounted page renders into.
type Container struct {
	width  int
	height int
	root   Page
}

func (c *Container) SetSize(width, height int) {
	c.width = width
	c.height = height
}

func (c *Container) Size() (int, int) {
	return c.width, c.height
}

func (c *Container) Render(p Page) {
	c.root = p
}

func (c *Container) Clear() {
	c.root = nil
}

func (c *Container) Root() Page {
	return c.root
}

func (c *Container) View() string {
	if c.root == nil {
		return ""
	}
	view := c.root.View()
	if c.width <= 0 || c.height <= 0 {
		return view
	}
	return lipgloss.NewStyle().MaxWidth(c.width).MaxHeight(c.height).Render(view)
}
