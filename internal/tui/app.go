package tui

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yubzen/switchboard/internal/config"
	"github.com/yubzen/switchboard/internal/providers"
	"github.com/yubzen/switchboard/internal/rpc"
)

const (
	RouteProviders = providers.NavCategory
	RouteModels    = ModelsNavCategory
)

// GatewayClient is what the TUI needs from the gateway connection.
type GatewayClient interface {
	rpc.Caller
	Connectivity
	URL() string
}

// App wires the settings screens around one gateway client.
type App struct {
	Shell     *Shell
	Bus       *Bus
	Nav       *Nav
	Store     *providers.Store
	Providers *ProvidersPage
	Models    *ModelsPage
	AddFlow   *AddProviderFlow
}

func NewApp(cfg *config.Config, client GatewayClient, logger *slog.Logger) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.RequestTimeout()

	bus := NewBus()
	nav := NewNav(client.URL())
	confirm := NewConfirmDialog()
	store := providers.NewStore(nav,
		providers.WithLocale(cfg.Locale()),
		providers.WithStoreLogger(logger),
	)

	providersPage := NewProvidersPage(ProvidersPageDeps{
		Caller:  client,
		Store:   store,
		Bus:     bus,
		Confirm: confirm,
		Timeout: timeout,
		Logger:  logger,
	})
	modelsPage := NewModelsPage(ModelsPageDeps{
		Caller:  client,
		Bus:     bus,
		Nav:     nav,
		Timeout: timeout,
		Logger:  logger,
	})
	addFlow := NewAddProviderFlow(AddProviderDeps{
		Caller:  client,
		Bus:     bus,
		Timeout: timeout,
		Locale:  cfg.Locale(),
		Logger:  logger,
	})

	// The models list stays subscribed for the life of the app so its nav
	// count follows provider changes made from any page.
	bus.Subscribe(TopicRefreshModels, modelsPage.Refresh)

	shell := NewShell(ShellDeps{
		Bus:     bus,
		Nav:     nav,
		Confirm: confirm,
		AddFlow: addFlow,
		Conn:    client,
		Logger:  logger,
	})
	shell.Register(RouteProviders, providersPage)
	shell.Register(RouteModels, modelsPage)

	return &App{
		Shell:     shell,
		Bus:       bus,
		Nav:       nav,
		Store:     store,
		Providers: providersPage,
		Models:    modelsPage,
		AddFlow:   addFlow,
	}
}

// Model is the root bubbletea model.
func (a *App) Model() tea.Model {
	return a.Shell
}
