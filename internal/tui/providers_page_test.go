package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yubzen/switchboard/internal/providers"
	"github.com/yubzen/switchboard/internal/rpc"
)

type pageFixture struct {
	gw        *fakeGateway
	bus       *Bus
	nav       *navRecorder
	store     *providers.Store
	confirm   *ConfirmDialog
	page      *ProvidersPage
	container *Container
}

func newPageFixture(t *testing.T, live bool) *pageFixture {
	t.Helper()
	f := &pageFixture{
		gw:        newFakeGateway(live),
		bus:       NewBus(),
		nav:       &navRecorder{},
		confirm:   NewConfirmDialog(),
		container: &Container{},
	}
	f.store = providers.NewStore(f.nav)
	f.page = NewProvidersPage(ProvidersPageDeps{
		Caller:  f.gw,
		Store:   f.store,
		Bus:     f.bus,
		Confirm: f.confirm,
	})
	f.gw.respond(rpc.MethodProvidersAvailable, samplePayload())
	return f
}

func (f *pageFixture) mount(t *testing.T, live bool) {
	t.Helper()
	pump(t, f.page.Update, f.page.Mount(f.container, live))
}

func (f *pageFixture) counter(topic Topic) *int {
	n := 0
	f.bus.Subscribe(topic, func() tea.Cmd {
		n++
		return nil
	})
	return &n
}

func TestProvidersPageMountRefreshesWhenLive(t *testing.T) {
	f := newPageFixture(t, true)

	cmd := f.page.Mount(f.container, true)
	if !f.store.Loading() {
		t.Fatal("expected store to be loading right after mount")
	}
	if view := f.page.View(); !strings.Contains(view, "Loading providers") {
		t.Fatalf("expected loading indicator, got %q", view)
	}
	pump(t, f.page.Update, cmd)

	if f.gw.count(rpc.MethodProvidersAvailable) != 1 {
		t.Fatalf("expected one providers.available call, got %d", f.gw.count(rpc.MethodProvidersAvailable))
	}
	got := f.store.Providers()
	if len(got) != 2 || got[0].Name != "ollama" || got[1].Name != "anthropic" {
		t.Fatalf("unexpected providers: %#v", got)
	}
	if f.nav.counts[providers.NavCategory] != 2 {
		t.Fatalf("expected nav count 2, got %#v", f.nav.counts)
	}
	if f.container.Root() != Page(f.page) {
		t.Fatal("expected page rendered into the container")
	}

	view := f.page.View()
	for _, want := range []string{"Ollama", "Anthropic", "claude-3-7-sonnet-latest", "http://gpu:11434", "+ Add Provider"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view, got %q", want, view)
		}
	}
	if strings.Contains(view, "OpenAI") {
		t.Fatalf("unconfigured providers must not be listed, got %q", view)
	}
}

func TestProvidersPageRefreshesOnConnectivity(t *testing.T) {
	f := newPageFixture(t, false)
	f.mount(t, false)

	if n := f.gw.count(rpc.MethodProvidersAvailable); n != 0 {
		t.Fatalf("expected no call while offline, got %d", n)
	}

	pump(t, f.page.Update, f.page.Update(ConnectivityMsg{Live: true}))
	if n := f.gw.count(rpc.MethodProvidersAvailable); n != 1 {
		t.Fatalf("expected refresh on reconnect, got %d calls", n)
	}

	pump(t, f.page.Update, f.page.Update(ConnectivityMsg{Live: true}))
	if n := f.gw.count(rpc.MethodProvidersAvailable); n != 1 {
		t.Fatalf("staying live must not refresh again, got %d calls", n)
	}

	pump(t, f.page.Update, f.page.Update(ConnectivityMsg{Live: false}))
	pump(t, f.page.Update, f.page.Update(ConnectivityMsg{Live: true}))
	if n := f.gw.count(rpc.MethodProvidersAvailable); n != 2 {
		t.Fatalf("expected second refresh after flap, got %d calls", n)
	}
}

func TestProvidersPageRenderStates(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		f := newPageFixture(t, true)
		f.gw.respond(rpc.MethodProvidersAvailable, samplePayload()[:1])
		f.mount(t, true)
		view := f.page.View()
		if !strings.Contains(view, "No providers configured") {
			t.Fatalf("expected empty state, got %q", view)
		}
		if !strings.Contains(view, "+ Add Provider") {
			t.Fatalf("expected add row, got %q", view)
		}
	})

	t.Run("failed", func(t *testing.T) {
		f := newPageFixture(t, true)
		f.gw.fail(rpc.MethodProvidersAvailable, rpc.CodeInternal, "keyring locked")
		f.mount(t, true)
		if f.store.Status() != providers.StatusFailed {
			t.Fatalf("expected failed status, got %v", f.store.Status())
		}
		view := f.page.View()
		if !strings.Contains(view, "Could not load providers") || !strings.Contains(view, "keyring locked") {
			t.Fatalf("expected error line, got %q", view)
		}
		if !strings.Contains(view, "+ Add Provider") {
			t.Fatalf("expected add row, got %q", view)
		}
	})
}

func TestProvidersPageRemoveDeclined(t *testing.T) {
	f := newPageFixture(t, true)
	f.mount(t, true)
	models := f.counter(TopicRefreshModels)

	pump(t, f.page.Update, f.page.Update(key("down")))
	pump(t, f.page.Update, f.page.Update(key("d")))
	if !f.confirm.Visible {
		t.Fatal("expected confirmation to open")
	}
	if got := f.confirm.Prompt(); got != "Remove credentials for Anthropic?" {
		t.Fatalf("unexpected prompt %q", got)
	}

	pump(t, f.page.Update, f.confirm.Update(key("n")))
	if n := f.gw.count(rpc.MethodProvidersRemoveKey); n != 0 {
		t.Fatalf("declined removal must not call the gateway, got %d", n)
	}
	if f.store.Len() != 2 || *models != 0 {
		t.Fatalf("expected no state change, len=%d models=%d", f.store.Len(), *models)
	}
}

func TestProvidersPageRemoveAccepted(t *testing.T) {
	f := newPageFixture(t, true)
	f.mount(t, true)
	models := f.counter(TopicRefreshModels)

	f.gw.respond(rpc.MethodProvidersRemoveKey, nil)
	remaining := samplePayload()
	remaining[1].Configured = false
	f.gw.respond(rpc.MethodProvidersAvailable, remaining)

	pump(t, f.page.Update, f.page.Update(key("down")))
	pump(t, f.page.Update, f.page.Update(key("delete")))
	pump(t, f.page.Update, f.confirm.Update(key("y")))

	call, ok := f.gw.last(rpc.MethodProvidersRemoveKey)
	if !ok {
		t.Fatal("expected providers.remove_key call")
	}
	if call.params != (providers.RemoveKeyRequest{Provider: "anthropic"}) {
		t.Fatalf("unexpected params %#v", call.params)
	}
	if *models != 1 {
		t.Fatalf("expected exactly one models refresh, got %d", *models)
	}
	if n := f.gw.count(rpc.MethodProvidersAvailable); n != 2 {
		t.Fatalf("expected exactly one providers refresh after removal, got %d calls", n)
	}
	if f.store.Len() != 1 || f.nav.counts[providers.NavCategory] != 1 {
		t.Fatalf("expected one provider left, got %#v", f.store.Providers())
	}
}

func TestProvidersPageRemoveFailureKeepsList(t *testing.T) {
	f := newPageFixture(t, true)
	f.mount(t, true)
	models := f.counter(TopicRefreshModels)
	f.gw.fail(rpc.MethodProvidersRemoveKey, rpc.CodeNotFound, "anthropic: provider is not configured")

	pump(t, f.page.Update, f.page.Update(key("down")))
	pump(t, f.page.Update, f.page.Update(key("d")))
	pump(t, f.page.Update, f.confirm.Update(key("enter")))

	if n := f.gw.count(rpc.MethodProvidersRemoveKey); n != 1 {
		t.Fatalf("expected one removal attempt, got %d", n)
	}
	if *models != 0 || f.gw.count(rpc.MethodProvidersAvailable) != 1 {
		t.Fatal("failed removal must not trigger refreshes")
	}
	if f.store.Len() != 2 {
		t.Fatalf("expected list unchanged, got %#v", f.store.Providers())
	}
	if view := f.page.View(); !strings.Contains(view, "Could not remove Anthropic") {
		t.Fatalf("expected failure notice, got %q", view)
	}
}

func TestProvidersPageRemoveIgnoresAddRow(t *testing.T) {
	f := newPageFixture(t, true)
	f.mount(t, true)
	for i := 0; i < 5; i++ {
		f.page.Update(key("j"))
	}
	if cmd := f.page.Update(key("d")); cmd != nil || f.confirm.Visible {
		t.Fatal("remove on the add row must do nothing")
	}
}

func TestProvidersPageLastRefreshWins(t *testing.T) {
	f := newPageFixture(t, true)
	f.mount(t, true)

	stale := collect(t, f.page.Refresh())

	latest := samplePayload()
	latest[0].Configured = true
	f.gw.respond(rpc.MethodProvidersAvailable, latest)
	fresh := collect(t, f.page.Refresh())

	for _, msg := range append(fresh, stale...) {
		f.page.Update(msg)
	}
	if f.store.Len() != 3 {
		t.Fatalf("expected the latest response to stick, got %#v", f.store.Providers())
	}
	if f.store.Loading() {
		t.Fatal("expected loading cleared once the latest response settled")
	}
}

func TestProvidersPageUnmountUnsubscribes(t *testing.T) {
	f := newPageFixture(t, true)
	f.mount(t, true)
	if n := f.bus.Subscribers(TopicRefreshProviders); n != 1 {
		t.Fatalf("expected one subscriber after mount, got %d", n)
	}

	pending := collect(t, f.page.Refresh())
	f.page.Unmount()

	if n := f.bus.Subscribers(TopicRefreshProviders); n != 0 {
		t.Fatalf("expected no subscriber after unmount, got %d", n)
	}
	if f.container.Root() != nil {
		t.Fatal("expected container cleared")
	}
	if cmd := f.bus.Publish(TopicRefreshProviders); cmd != nil {
		t.Fatal("expected publish to reach nobody")
	}
	for _, msg := range pending {
		f.page.Update(msg)
	}
	if f.store.Loading() {
		t.Fatal("expected loading to clear once the late result settled")
	}
	if f.store.Status() != providers.StatusLoaded {
		t.Fatalf("expected loaded status after late result, got %v", f.store.Status())
	}
	if f.container.Root() != nil {
		t.Fatal("late result must not re-render into the container")
	}

	f.mount(t, true)
	if n := f.bus.Subscribers(TopicRefreshProviders); n != 1 {
		t.Fatalf("expected resubscribe on remount, got %d", n)
	}
}

func TestProvidersPageAddProviderRequiresLive(t *testing.T) {
	f := newPageFixture(t, false)
	opened := f.counter(TopicOpenAddProvider)
	f.mount(t, false)

	if cmd := f.page.Update(key("a")); cmd != nil {
		t.Fatal("expected add provider to be a no-op offline")
	}
	if *opened != 0 {
		t.Fatalf("expected no open request, got %d", *opened)
	}
	if view := f.page.View(); !strings.Contains(view, "gateway offline") {
		t.Fatalf("expected offline hint on add row, got %q", view)
	}

	pump(t, f.page.Update, f.page.Update(ConnectivityMsg{Live: true}))
	pump(t, f.page.Update, f.page.Update(key("a")))
	if *opened != 1 {
		t.Fatalf("expected add provider to open once live, got %d", *opened)
	}
}

func TestProvidersPageLateResultDoesNotStrandLoading(t *testing.T) {
	f := newPageFixture(t, true)
	f.gw.respond(rpc.MethodProvidersAvailable, []providers.Provider{})
	pending := collect(t, f.page.Mount(f.container, true))
	f.page.Unmount()
	for _, msg := range pending {
		f.page.Update(msg)
	}

	f.mount(t, false)
	if f.store.Loading() {
		t.Fatal("expected store settled before the offline remount")
	}
	if strings.Contains(f.page.View(), "Loading providers") {
		t.Fatalf("expected empty state after remount, got %q", f.page.View())
	}
	if !strings.Contains(f.page.View(), "No providers configured yet.") {
		t.Fatalf("expected empty-state message, got %q", f.page.View())
	}
}

func TestProvidersPageLateFailureSettlesAsFailed(t *testing.T) {
	f := newPageFixture(t, true)
	f.gw.fail(rpc.MethodProvidersAvailable, rpc.CodeInternal, "boom")
	pending := collect(t, f.page.Mount(f.container, true))
	f.page.Unmount()
	for _, msg := range pending {
		f.page.Update(msg)
	}
	if f.store.Loading() || f.store.Status() != providers.StatusFailed {
		t.Fatalf("expected failed status, got loading=%v status=%v", f.store.Loading(), f.store.Status())
	}
}
