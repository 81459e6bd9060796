package providers

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownProvider = errors.New("unknown provider")

type DiscoveryKind string

const (
	DiscoveryNone         DiscoveryKind = ""
	DiscoveryOpenAICompat DiscoveryKind = "openai_compat"
	DiscoveryAnthropic    DiscoveryKind = "anthropic"
	DiscoveryOllama       DiscoveryKind = "ollama"
)

// CatalogEntry describes a provider the gateway knows how to configure.
type CatalogEntry struct {
	Name           string
	DisplayName    string
	AuthType       AuthType
	DefaultBaseURL string
	Discovery      DiscoveryKind
	DefaultModel   string
	FallbackModels []string
	Aliases        []string
	OAuth          *OAuthConfig
}

// Provider projects the entry into a list item with the given settings applied.
func (e CatalogEntry) Provider(configured bool, model, baseURL string) Provider {
	if strings.TrimSpace(model) == "" {
		model = e.DefaultModel
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = e.DefaultBaseURL
	}
	return Provider{
		Name:           e.Name,
		DisplayName:    e.DisplayName,
		AuthType:       e.AuthType,
		Configured:     configured,
		Model:          model,
		BaseURL:        baseURL,
		DefaultBaseURL: e.DefaultBaseURL,
	}
}

type Catalog []CatalogEntry

func DefaultCatalog() Catalog {
	return Catalog{
		{
			Name:           OllamaName,
			DisplayName:    "Ollama",
			AuthType:       AuthLocal,
			DefaultBaseURL: "http://localhost:11434",
			Discovery:      DiscoveryOllama,
			DefaultModel:   "llama3.2",
			FallbackModels: []string{"llama3.2", "qwen2.5-coder"},
		},
		{
			Name:           "anthropic",
			DisplayName:    "Anthropic",
			AuthType:       AuthAPIKey,
			DefaultBaseURL: "https://api.anthropic.com",
			Discovery:      DiscoveryAnthropic,
			Aliases:        []string{"claude"},
			FallbackModels: []string{
				"claude-3-5-sonnet-20241022",
				"claude-3-7-sonnet-latest",
				"claude-3-opus-20240229",
			},
		},
		{
			Name:           "openai",
			DisplayName:    "OpenAI",
			AuthType:       AuthAPIKey,
			DefaultBaseURL: "https://api.openai.com/v1",
			Discovery:      DiscoveryOpenAICompat,
			Aliases:        []string{"gpt"},
			FallbackModels: []string{"gpt-4o", "gpt-4.1", "gpt-4.1-mini"},
		},
		{
			Name:           "openrouter",
			DisplayName:    "OpenRouter",
			AuthType:       AuthAPIKey,
			DefaultBaseURL: "https://openrouter.ai/api/v1",
			Discovery:      DiscoveryOpenAICompat,
			FallbackModels: []string{"openrouter/auto"},
		},
		{
			Name:           "xai",
			DisplayName:    "xAI",
			AuthType:       AuthAPIKey,
			DefaultBaseURL: "https://api.x.ai/v1",
			Discovery:      DiscoveryOpenAICompat,
			Aliases:        []string{"grok"},
			FallbackModels: []string{"grok-2-1212", "grok-beta"},
		},
		{
			Name:           "google",
			DisplayName:    "Google",
			AuthType:       AuthAPIKey,
			Aliases:        []string{"gemini"},
			FallbackModels: []string{"gemini-2.5-pro", "gemini-2.5-flash"},
		},
		{
			Name:           "openai-codex",
			DisplayName:    "OpenAI Codex",
			AuthType:       AuthOAuth,
			Aliases:        []string{"codex"},
			FallbackModels: []string{"codex-mini-latest"},
			OAuth:          &OAuthConfig{
				ClientID:    "pdlLIX2Y72MIl2rhLhTE9VV9bN905kBh",
				AuthURL:     "https://auth.openai.com/oauth/authorize",
				TokenURL:    "https://auth.openai.com/oauth/token",
				RedirectURL: "http://127.0.0.1:1455/auth/callback",
			},
		},
	}
}

// Lookup resolves a provider by name, display name or alias, case-insensitively.
func (c Catalog) Lookup(input string) (CatalogEntry, error) {
	name := strings.ToLower(strings.TrimSpace(input))
	for _, entry := range c {
		if name == entry.Name || name == strings.ToLower(entry.DisplayName) {
			return entry, nil
		}
		for _, alias := range entry.Aliases {
			if name == alias {
				return entry, nil
			}
		}
	}
	return CatalogEntry{}, fmt.Errorf("%w %q", ErrUnknownProvider, input)
}
