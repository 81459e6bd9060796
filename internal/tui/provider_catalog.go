package tui

import (
	"github.com/yubzen/switchboard/internal/providers"
)

// CredentialPrompt describes what the credential modal asks for.
type CredentialPrompt struct {
	Label       string
	Hint        string
	Placeholder string
	Initial     string
	Secret      bool
}

// credentialPrompt picks the input for p. Local providers take an endpoint
// instead of a key.
func credentialPrompt(p providers.Provider) CredentialPrompt {
	if p.IsLocal() {
		return CredentialPrompt{
			Label:       "Endpoint",
			Hint:        "Confirm where the local server listens. Leave as is for the default.",
			Placeholder: p.DefaultBaseURL,
			Initial:     p.BaseURL,
		}
	}
	return CredentialPrompt{
		Label:       "API key",
		Hint:        "Paste your " + p.Label() + " API key. It is kept in the system keyring.",
		Placeholder: "sk-…",
		Secret:      true,
	}
}

// providerOptions lists every provider the gateway offers. OAuth providers
// sign in through the auth command and are shown disabled.
func providerOptions(list []providers.Provider) []SelectOption {
	options := make([]SelectOption, 0, len(list))
	for _, p := range list {
		detail := p.BadgeLabel()
		enabled := p.AuthType != providers.AuthOAuth
		switch {
		case !enabled:
			detail += ", sign in with `switchboard auth login`"
		case p.Configured:
			detail += ", configured"
		}
		options = append(options, SelectOption{
			Value:   p.Name,
			Label:   p.Label(),
			Detail:  detail,
			Enabled: enabled,
		})
	}
	return options
}
