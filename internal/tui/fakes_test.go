package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/yubzen/switchboard/internal/providers"
	"github.com/yubzen/switchboard/internal/rpc"
)

type recordedCall struct {
	method string
	params any
}

// fakeGateway answers calls from per-method handlers and doubles as the
// connectivity signal.
type fakeGateway struct {
	mu       sync.Mutex
	calls    []recordedCall
	handlers map[string]func(params any) (rpc.Response, error)
	live     bool
	changes  chan struct{}
}

func newFakeGateway(live bool) *fakeGateway {
	return &fakeGateway{
		handlers: make(map[string]func(any) (rpc.Response, error)),
		live:     live,
		changes:  make(chan struct{}, 1),
	}
}

func (g *fakeGateway) Call(_ context.Context, method string, params any) (rpc.Response, error) {
	g.mu.Lock()
	g.calls = append(g.calls, recordedCall{method: method, params: params})
	h := g.handlers[method]
	g.mu.Unlock()
	if h == nil {
		return rpc.NewFailure("x", rpc.CodeUnknownMethod, "no handler for "+method), nil
	}
	return h(params)
}

func (g *fakeGateway) Connected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.live
}

func (g *fakeGateway) Changes() <-chan struct{} { return g.changes }

func (g *fakeGateway) URL() string { return "ws://gateway.test/ws" }

func (g *fakeGateway) handle(method string, h func(params any) (rpc.Response, error)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handlers[method] = h
}

func (g *fakeGateway) respond(method string, payload any) {
	g.handle(method, func(any) (rpc.Response, error) {
		return rpc.NewResult("x", payload)
	})
}

func (g *fakeGateway) fail(method, code, message string) {
	g.handle(method, func(any) (rpc.Response, error) {
		return rpc.NewFailure("x", code, message), nil
	})
}

func (g *fakeGateway) count(method string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c.method == method {
			n++
		}
	}
	return n
}

func (g *fakeGateway) last(method string) (recordedCall, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := len(g.calls) - 1; i >= 0; i-- {
		if g.calls[i].method == method {
			return g.calls[i], true
		}
	}
	return recordedCall{}, false
}

type navRecorder struct {
	counts map[string]int
}

func (n *navRecorder) Update(category string, count int) {
	if n.counts == nil {
		n.counts = make(map[string]int)
	}
	n.counts[category] = count
}

func samplePayload() []providers.Provider {
	return []providers.Provider{
		{Name: "openai", DisplayName: "OpenAI", AuthType: providers.AuthAPIKey, Configured: false},
		{Name: "anthropic", DisplayName: "Anthropic", AuthType: providers.AuthAPIKey, Configured: true, Model: "claude-3-7-sonnet-latest"},
		{Name: "ollama", DisplayName: "Ollama", AuthType: providers.AuthLocal, Configured: true, BaseURL: "http://gpu:11434", DefaultBaseURL: "http://localhost:11434"},
		{Name: "openai-codex", DisplayName: "OpenAI Codex", AuthType: providers.AuthOAuth},
	}
}

// collect runs cmd and returns every message it yields, flattening batches.
// Commands that block (such as the connectivity watcher) are abandoned.
func collect(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	var msg tea.Msg
	select {
	case msg = <-done:
	case <-time.After(100 * time.Millisecond):
		return nil
	}
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(t, c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

// send delivers msg to update and pumps whatever it produces.
func send(t *testing.T, update func(tea.Msg) tea.Cmd, msg tea.Msg) {
	t.Helper()
	pump(t, update, update(msg))
}

// pump feeds the messages produced by cmd back into update until nothing is
// left. Spinner ticks are dropped so the loop settles.
func pump(t *testing.T, update func(tea.Msg) tea.Cmd, cmd tea.Cmd) {
	t.Helper()
	queue := collect(t, cmd)
	for i := 0; len(queue) > 0; i++ {
		if i > 200 {
			t.Fatal("message loop did not settle")
		}
		msg := queue[0]
		queue = queue[1:]
		if _, ok := msg.(spinner.TickMsg); ok {
			continue
		}
		queue = append(queue, collect(t, update(msg))...)
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "delete":
		return tea.KeyMsg{Type: tea.KeyDelete}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "ctrl+right":
		return tea.KeyMsg{Type: tea.KeyCtrlRight}
	case "ctrl+a":
		return tea.KeyMsg{Type: tea.KeyCtrlA}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}
