package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
)

// Discoverer lists the model identifiers a provider endpoint serves.
type Discoverer interface {
	ListModels(ctx context.Context) ([]string, error)
}

var ErrDiscoveryUnsupported = errors.New("provider does not support model discovery")

type AuthError struct {
	Provider string
	Msg      string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Msg)
}

// NewDiscoverer builds the lister for entry. An empty baseURL means the
// catalog default.
func NewDiscoverer(entry CatalogEntry, baseURL, key string, client *http.Client) (Discoverer, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = strings.TrimRight(entry.DefaultBaseURL, "/")
	}
	if client == nil {
		client = http.DefaultClient
	}
	switch entry.Discovery {
	case DiscoveryOpenAICompat:
		return &OpenAICompat{Provider: entry.Name, BaseURL: baseURL, Key: key, Client: client}, nil
	case DiscoveryAnthropic:
		return &Anthropic{BaseURL: baseURL, Key: key, Client: client}, nil
	case DiscoveryOllama:
		return &Ollama{BaseURL: baseURL, Client: client}, nil
	default:
		return nil, fmt.Errorf("%s: %w", entry.Name, ErrDiscoveryUnsupported)
	}
}

// DiscoverModels trims, dedupes and sorts whatever d reports.
func DiscoverModels(ctx context.Context, d Discoverer) ([]string, error) {
	raw, err := d.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(raw))
	models := make([]string, 0, len(raw))
	for _, id := range raw {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		models = append(models, id)
	}
	sort.Strings(models)
	return models, nil
}

type OpenAICompat struct {
	Provider string
	BaseURL  string
	Key      string
	Client   *http.Client
}

func (p *OpenAICompat) ListModels(ctx context.Context) ([]string, error) {
	if err := ValidateCredential(p.Key); err != nil {
		return nil, &AuthError{Provider: p.Provider, Msg: "API key not found"}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/models", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.Key)

	var result struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := fetchJSON(p.Client, req, p.Provider, &result); err != nil {
		return nil, err
	}
	models := make([]string, 0, len(result.Data))
	for _, m := range result.Data {
		models = append(models, m.ID)
	}
	return models, nil
}

type Anthropic struct {
	BaseURL string
	Key     string
	Client  *http.Client
}

func (p *Anthropic) ListModels(ctx context.Context) ([]string, error) {
	if err := ValidateCredential(p.Key); err != nil {
		return nil, &AuthError{Provider: "anthropic", Msg: "API key not found"}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/v1/models", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", p.Key)
	req.Header.Set("anthropic-version", "2023-06-01")

	var result struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := fetchJSON(p.Client, req, "anthropic", &result); err != nil {
		return nil, err
	}
	models := make([]string, 0, len(result.Data))
	for _, m := range result.Data {
		models = append(models, m.ID)
	}
	return models, nil
}

// Ollama lists locally pulled models through /api/tags.
type Ollama struct {
	BaseURL string
	Client  *http.Client
}

func (p *Ollama) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("build ollama tags request: %w", err)
	}
	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := fetchJSON(p.Client, req, OllamaName, &result); err != nil {
		return nil, err
	}
	models := make([]string, 0, len(result.Models))
	for _, m := range result.Models {
		models = append(models, m.Name)
	}
	return models, nil
}

func fetchJSON(client *http.Client, req *http.Request, provider string, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s is unreachable: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &AuthError{Provider: provider, Msg: "unauthorized: invalid API key"}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: list models failed with status %d: %s", provider, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode models: %w", provider, err)
	}
	return nil
}
