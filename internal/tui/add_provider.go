package tui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/text/language"

	"github.com/yubzen/switchboard/internal/providers"
	"github.com/yubzen/switchboard/internal/rpc"
)

type addStep int

const (
	addClosed addStep = iota
	addLoading
	addPicking
	addEntering
)

type addOptionsMsg struct {
	seq    uint64
	result providers.ListResult
}

type providerSavedMsg struct {
	seq  uint64
	name string
	err  error
}

type AddProviderDeps struct {
	Caller  rpc.Caller
	Bus     *Bus
	Timeout time.Duration
	Locale  language.Tag
	Logger  *slog.Logger
}

// AddProviderFlow walks the user from picking a provider to a saved
// credential, then invalidates the provider and model lists.
type AddProviderFlow struct {
	caller  rpc.Caller
	bus     *Bus
	timeout time.Duration
	locale  language.Tag
	logger  *slog.Logger

	step       addStep
	seq        uint64
	available  []providers.Provider
	picker     *SelectModal
	credential *CredentialModal
	target     providers.Provider
	loadErr    string
}

func NewAddProviderFlow(deps AddProviderDeps) *AddProviderFlow {
	if deps.Timeout <= 0 {
		deps.Timeout = 10 * time.Second
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &AddProviderFlow{
		caller:     deps.Caller,
		bus:        deps.Bus,
		timeout:    deps.Timeout,
		locale:     deps.Locale,
		logger:     deps.Logger,
		picker:     NewSelectModal("Add Provider", "up/down: move  enter: choose  esc: close"),
		credential: NewCredentialModal(),
	}
}

func (f *AddProviderFlow) Active() bool {
	return f.step != addClosed
}

func (f *AddProviderFlow) SetWidth(width int) {
	f.picker.SetWidth(width)
	f.credential.SetWidth(width)
}

// Open fetches the provider list and shows the picker once it arrives.
func (f *AddProviderFlow) Open() tea.Cmd {
	f.seq++
	seq := f.seq
	f.step = addLoading
	f.loadErr = ""
	return callCmd(f.caller, f.timeout, rpc.MethodProvidersAvailable, nil, func(resp rpc.Response, err error) tea.Msg {
		return addOptionsMsg{seq: seq, result: providers.ListFromResponse(resp, err)}
	})
}

func (f *AddProviderFlow) Close() {
	f.seq++
	f.step = addClosed
	f.picker.Close()
	f.credential.Close()
	f.target = providers.Provider{}
	f.loadErr = ""
}

func (f *AddProviderFlow) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case addOptionsMsg:
		if msg.seq != f.seq || f.step != addLoading {
			return nil
		}
		if !msg.result.OK {
			f.logger.Warn("add provider: listing failed", "error", msg.result.Err)
			f.loadErr = fmt.Sprintf("Could not load providers: %v", msg.result.Err)
			f.step = addPicking
			f.picker.SetOptions(nil)
			f.picker.Open()
			return nil
		}
		f.available = append([]providers.Provider(nil), msg.result.Providers...)
		providers.SortIn(f.locale, f.available)
		f.picker.SetOptions(providerOptions(f.available))
		f.picker.Open()
		f.step = addPicking
		return nil

	case providerSavedMsg:
		if msg.seq != f.seq || f.step != addEntering {
			return nil
		}
		if msg.err != nil {
			f.logger.Warn("add provider: save failed", "provider", msg.name, "error", msg.err)
			f.credential.SetError(msg.err.Error())
			return nil
		}
		f.logger.Info("provider added", "provider", msg.name)
		label := f.target.Label()
		f.Close()
		notice := func() tea.Msg { return NoticeMsg{Text: label + " connected."} }
		show := func() tea.Msg { return ShowRouteMsg{Route: RouteProviders} }
		return tea.Batch(
			f.bus.Publish(TopicRefreshProviders),
			f.bus.Publish(TopicRefreshModels),
			notice,
			show,
		)

	case tea.KeyMsg:
		return f.handleKey(msg)
	}

	if f.step == addEntering {
		return f.credential.Update(msg)
	}
	return nil
}

func (f *AddProviderFlow) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch f.step {
	case addLoading:
		if msg.String() == "esc" {
			f.Close()
		}
		return nil

	case addPicking:
		switch msg.String() {
		case "esc":
			f.Close()
			return nil
		case "enter":
			opt, ok := f.picker.SelectedOption()
			if !ok {
				return nil
			}
			for _, p := range f.available {
				if p.Name == opt.Value {
					f.target = p
					break
				}
			}
			f.step = addEntering
			f.picker.Close()
			return f.credential.Open(f.target.Label(), credentialPrompt(f.target))
		}
		return f.picker.Update(msg)

	case addEntering:
		switch msg.String() {
		case "esc":
			f.seq++
			f.credential.Close()
			f.step = addPicking
			f.picker.Visible = true
			return nil
		case "enter":
			if f.credential.Saving {
				return nil
			}
			return f.submit()
		}
		return f.credential.Update(msg)
	}
	return nil
}

func (f *AddProviderFlow) submit() tea.Cmd {
	value := f.credential.Value()
	req := providers.SaveKeyRequest{Provider: f.target.Name, Model: f.target.Model}
	if f.target.IsLocal() {
		req.BaseURL = value
	} else {
		if value == "" {
			f.credential.SetError("An API key is required.")
			return nil
		}
		req.APIKey = value
	}

	f.credential.BeginSaving()
	f.seq++
	seq := f.seq
	name := f.target.Name
	return callCmd(f.caller, f.timeout, rpc.MethodProvidersSaveKey, req, func(resp rpc.Response, err error) tea.Msg {
		if err == nil {
			err = resp.Err()
		}
		return providerSavedMsg{seq: seq, name: name, err: err}
	})
}

func (f *AddProviderFlow) View() string {
	switch f.step {
	case addLoading:
		return connectModalBoxStyle.Render(connectTitleStyle.Render("Add Provider") + "\n\n" + connectHintStyle.Render("Loading providers…"))
	case addPicking:
		view := f.picker.View()
		if f.loadErr != "" {
			view = connectModalBoxStyle.Render(connectTitleStyle.Render("Add Provider") + "\n\n" +
				connectErrStyle.Render(wrapToWidth(f.loadErr, modalContentWidth(f.picker.MaxWidth))) + "\n\n" +
				connectHintStyle.Render("esc: close"))
		}
		return view
	case addEntering:
		return f.credential.View()
	}
	return ""
}

// Target is the provider being configured, if any.
func (f *AddProviderFlow) Target() (providers.Provider, bool) {
	if f.step != addEntering || strings.TrimSpace(f.target.Name) == "" {
		return providers.Provider{}, false
	}
	return f.target, true
}
