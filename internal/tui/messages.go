package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yubzen/switchboard/internal/providers"
	"github.com/yubzen/switchboard/internal/rpc"
)

// Connectivity is the live/offline signal of the gateway connection.
type Connectivity interface {
	Connected() bool
	Changes() <-chan struct{}
}

type ConnectivityMsg struct {
	Live bool
}

// connectivityChangedMsg comes from the watcher; the shell turns it into a
// ConnectivityMsg and re-arms the watcher.
type connectivityChangedMsg struct {
	live bool
}

type ProvidersLoadedMsg struct {
	Seq    uint64
	Result providers.ListResult
}

type ProviderRemovedMsg struct {
	Name string
	Err  error
}

type NoticeMsg struct {
	Text string
}

// ShowRouteMsg asks the shell to switch to the page registered under Route.
type ShowRouteMsg struct {
	Route string
}

func currentConnectivity(conn Connectivity) tea.Cmd {
	return func() tea.Msg {
		return ConnectivityMsg{Live: conn.Connected()}
	}
}

// watchConnectivity waits for the next change and reports the state at that
// moment. The shell re-arms it after every delivery.
func watchConnectivity(conn Connectivity) tea.Cmd {
	return func() tea.Msg {
		<-conn.Changes()
		return connectivityChangedMsg{live: conn.Connected()}
	}
}

// callCmd performs one RPC bounded by timeout and hands the outcome to done.
func callCmd(caller rpc.Caller, timeout time.Duration, method string, params any, done func(rpc.Response, error) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		resp, err := caller.Call(ctx, method, params)
		return done(resp, err)
	}
}
