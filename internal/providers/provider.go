package providers

import (
	"fmt"
	"strings"
)

type AuthType string

const (
	AuthLocal  AuthType = "local"
	AuthOAuth  AuthType = "oauth"
	AuthAPIKey AuthType = "api_key"
)

// OllamaName always sorts with the local providers, whatever its auth type.
const OllamaName = "ollama"

// Provider is one entry of the providers.available payload.
type Provider struct {
	Name           string   `json:"name" yaml:"name"`
	DisplayName    string   `json:"displayName" yaml:"display_name"`
	AuthType       AuthType `json:"authType" yaml:"auth_type"`
	Configured     bool     `json:"configured" yaml:"configured"`
	Model          string   `json:"model,omitempty" yaml:"model,omitempty"`
	BaseURL        string   `json:"baseUrl,omitempty" yaml:"base_url,omitempty"`
	DefaultBaseURL string   `json:"defaultBaseUrl,omitempty" yaml:"default_base_url,omitempty"`
}

func (p Provider) IsLocal() bool {
	return p.AuthType == AuthLocal
}

// BadgeLabel maps the auth type to the badge shown on the provider card.
// Anything that is neither oauth nor local is treated as an API key.
func (p Provider) BadgeLabel() string {
	switch p.AuthType {
	case AuthOAuth:
		return "OAuth"
	case AuthLocal:
		return "Local"
	default:
		return "API Key"
	}
}

func (p Provider) ModelInfo() (string, bool) {
	model := strings.TrimSpace(p.Model)
	return model, model != ""
}

// EndpointInfo returns the custom endpoint, present only when it differs from
// the provider default.
func (p Provider) EndpointInfo() (string, bool) {
	if p.BaseURL == "" || p.BaseURL == p.DefaultBaseURL {
		return "", false
	}
	return p.BaseURL, true
}

func (p Provider) RemovePrompt() string {
	if p.IsLocal() {
		return fmt.Sprintf("Remove %s configuration?", p.Label())
	}
	return fmt.Sprintf("Remove credentials for %s?", p.Label())
}

// Label is the display name, falling back to the identifier.
func (p Provider) Label() string {
	if strings.TrimSpace(p.DisplayName) != "" {
		return p.DisplayName
	}
	return p.Name
}

func (p Provider) sortsFirst() bool {
	return p.AuthType == AuthLocal || p.Name == OllamaName
}
