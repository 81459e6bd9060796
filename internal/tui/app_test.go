package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yubzen/switchboard/internal/providers"
	"github.com/yubzen/switchboard/internal/rpc"
)

func newTestApp(t *testing.T, live bool) (*App, *fakeGateway, func(tea.Msg) tea.Cmd) {
	t.Helper()
	gw := newFakeGateway(live)
	gw.respond(rpc.MethodProvidersAvailable, samplePayload())
	gw.respond(rpc.MethodModelsList, []providers.ModelInfo{
		{ID: "llama3.2:latest", Provider: "ollama", DisplayName: "Ollama"},
		{ID: "claude-3-7-sonnet-latest", Provider: "anthropic", DisplayName: "Anthropic"},
	})
	app := NewApp(nil, gw, nil)
	update := func(msg tea.Msg) tea.Cmd {
		_, cmd := app.Shell.Update(msg)
		return cmd
	}
	return app, gw, update
}

func TestAppStartsOnProvidersAndCountsThem(t *testing.T) {
	app, gw, update := newTestApp(t, true)
	pump(t, update, app.Shell.Init())
	send(t, update, tea.WindowSizeMsg{Width: 120, Height: 40})

	if app.Shell.Active() != Page(app.Providers) {
		t.Fatal("expected providers page to be the first route")
	}
	if n := gw.count(rpc.MethodProvidersAvailable); n != 1 {
		t.Fatalf("expected one providers.available call, got %d", n)
	}
	if c, _ := app.Nav.Count(RouteProviders); c != 2 {
		t.Fatalf("expected nav count 2, got %d", c)
	}
	view := app.Shell.View()
	for _, want := range []string{"Providers (2)", "live", "Anthropic"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view, got %q", want, view)
		}
	}
}

func TestAppNavigationMountsAndUnmounts(t *testing.T) {
	app, gw, update := newTestApp(t, true)
	pump(t, update, app.Shell.Init())

	send(t, update, key("ctrl+right"))
	if app.Shell.Active() != Page(app.Models) {
		t.Fatal("expected models page after navigating right")
	}
	if app.Providers.Mounted() {
		t.Fatal("expected providers page unmounted")
	}
	if n := app.Bus.Subscribers(TopicRefreshProviders); n != 0 {
		t.Fatalf("expected providers refresh unsubscribed, got %d", n)
	}
	if n := gw.count(rpc.MethodModelsList); n != 1 {
		t.Fatalf("expected models.list on mount, got %d", n)
	}
	if c, _ := app.Nav.Count(RouteModels); c != 2 {
		t.Fatalf("expected models nav count 2, got %d", c)
	}

	send(t, update, key("ctrl+right"))
	if app.Shell.Active() != Page(app.Providers) || !app.Providers.Mounted() {
		t.Fatal("expected navigation to wrap back to providers")
	}
	if n := gw.count(rpc.MethodProvidersAvailable); n != 2 {
		t.Fatalf("expected remount to refresh, got %d calls", n)
	}
}

func TestAppConnectivityChangeRefreshes(t *testing.T) {
	app, gw, update := newTestApp(t, false)
	pump(t, update, app.Shell.Init())
	if n := gw.count(rpc.MethodProvidersAvailable); n != 0 {
		t.Fatalf("expected no call while offline, got %d", n)
	}
	if view := app.Shell.View(); !strings.Contains(view, "offline") {
		t.Fatalf("expected offline indicator, got %q", view)
	}

	send(t, update, connectivityChangedMsg{live: true})
	if n := gw.count(rpc.MethodProvidersAvailable); n != 1 {
		t.Fatalf("expected refresh when the gateway came up, got %d", n)
	}
	if app.Store.Len() != 2 {
		t.Fatalf("expected providers loaded, got %d", app.Store.Len())
	}
}

func TestAppTopicMsgPublishesOnBus(t *testing.T) {
	app, gw, update := newTestApp(t, true)
	pump(t, update, app.Shell.Init())

	send(t, update, TopicMsg{Topic: TopicRefreshProviders})
	if n := gw.count(rpc.MethodProvidersAvailable); n != 2 {
		t.Fatalf("expected external refresh to reach the page, got %d calls", n)
	}
}

func TestAppRemoveRefreshesModelsWhileUnmounted(t *testing.T) {
	app, gw, update := newTestApp(t, true)
	gw.respond(rpc.MethodProvidersRemoveKey, nil)
	pump(t, update, app.Shell.Init())

	send(t, update, key("down"))
	send(t, update, key("d"))
	if !app.Shell.confirm.Visible {
		t.Fatal("expected confirmation overlay")
	}
	if view := app.Shell.View(); !strings.Contains(view, "Remove credentials for Anthropic?") {
		t.Fatalf("expected prompt in overlay, got %q", view)
	}

	send(t, update, key("y"))
	if n := gw.count(rpc.MethodProvidersRemoveKey); n != 1 {
		t.Fatalf("expected one removal, got %d", n)
	}
	if n := gw.count(rpc.MethodModelsList); n != 1 {
		t.Fatalf("expected models list refreshed once, got %d", n)
	}
	if n := gw.count(rpc.MethodProvidersAvailable); n != 2 {
		t.Fatalf("expected providers refreshed once, got %d", n)
	}
}

func TestAppAddProviderOverlayClosesWhenOffline(t *testing.T) {
	app, _, update := newTestApp(t, true)
	pump(t, update, app.Shell.Init())

	send(t, update, key("a"))
	if !app.AddFlow.Active() {
		t.Fatal("expected add provider flow to open")
	}
	if view := app.Shell.View(); !strings.Contains(view, "Add Provider") {
		t.Fatalf("expected picker overlay, got %q", view)
	}

	send(t, update, connectivityChangedMsg{live: false})
	if app.AddFlow.Active() {
		t.Fatal("expected flow closed when the gateway dropped")
	}
	if view := app.Shell.View(); !strings.Contains(view, "Gateway went offline.") {
		t.Fatalf("expected offline notice, got %q", view)
	}
}

func TestAppNavigateToByRoute(t *testing.T) {
	app, _, update := newTestApp(t, true)
	pump(t, update, app.Shell.Init())

	pump(t, update, app.Shell.NavigateTo(RouteModels))
	if app.Shell.Active() != Page(app.Models) {
		t.Fatal("expected models page")
	}
	if !strings.Contains(app.Nav.View(), "[Models (2)]") {
		t.Fatalf("expected models tab active, got %q", app.Nav.View())
	}
	if cmd := app.Shell.NavigateTo("missing"); cmd != nil {
		t.Fatal("expected unknown route to be ignored")
	}
	if app.Shell.Active() != Page(app.Models) {
		t.Fatal("expected active page unchanged for unknown route")
	}
}

func TestAppAddFromModelsReturnsToProviders(t *testing.T) {
	app, gw, update := newTestApp(t, true)
	gw.respond(rpc.MethodProvidersSaveKey, nil)
	pump(t, update, app.Shell.Init())
	send(t, update, key("ctrl+right"))
	if app.Shell.Active() != Page(app.Models) {
		t.Fatal("expected models page")
	}

	send(t, update, key("ctrl+a"))
	if !app.AddFlow.Active() {
		t.Fatal("expected add provider flow opened from the models page")
	}
	send(t, update, key("enter"))
	if target, ok := app.AddFlow.Target(); !ok || target.Name != "ollama" {
		t.Fatalf("expected ollama endpoint step, got %#v", target)
	}
	send(t, update, key("enter"))

	if app.AddFlow.Active() {
		t.Fatal("expected flow closed after saving")
	}
	if n := gw.count(rpc.MethodProvidersSaveKey); n != 1 {
		t.Fatalf("expected one save, got %d", n)
	}
	if app.Shell.Active() != Page(app.Providers) || !app.Providers.Mounted() {
		t.Fatal("expected the shell to show the providers page after adding")
	}
	if view := app.Shell.View(); !strings.Contains(view, "Ollama connected.") {
		t.Fatalf("expected connected notice, got %q", view)
	}
}

func TestAppModelsAddIgnoredOffline(t *testing.T) {
	app, _, update := newTestApp(t, false)
	pump(t, update, app.Shell.Init())
	send(t, update, key("ctrl+right"))

	send(t, update, key("ctrl+a"))
	if app.AddFlow.Active() {
		t.Fatal("expected add provider to stay closed while offline")
	}
}
