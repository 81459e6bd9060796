package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/yubzen/switchboard/internal/state"
)

var ErrNotConfigured = errors.New("provider is not configured")

// SettingsStore persists the non-secret half of a provider configuration.
type SettingsStore interface {
	SaveProviderSettings(ctx context.Context, s state.ProviderSettings) error
	ListProviderSettings(ctx context.Context) (map[string]state.ProviderSettings, error)
	DeleteProviderSettings(ctx context.Context, name string) (bool, error)
}

type SaveKeyRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"apiKey,omitempty"`
	BaseURL  string `json:"baseUrl,omitempty"`
	Model    string `json:"model,omitempty"`
}

type RemoveKeyRequest struct {
	Provider string `json:"provider"`
}

// ModelInfo is one entry of the models.list payload.
type ModelInfo struct {
	ID          string `json:"id"`
	Provider    string `json:"provider"`
	DisplayName string `json:"displayName"`
}

type RegistryOption func(*Registry)

func WithHTTPClient(client *http.Client) RegistryOption {
	return func(r *Registry) {
		if client != nil {
			r.client = client
		}
	}
}

func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithDiscoveryTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.discoveryTimeout = d
		}
	}
}

// WithRegistryLocale sets the collation used to order the models.list
// payload by provider.
func WithRegistryLocale(tag language.Tag) RegistryOption {
	return func(r *Registry) {
		r.locale = tag
	}
}

// Registry answers the gateway's provider methods from the catalog, the
// credential store and the settings store.
type Registry struct {
	catalog          Catalog
	creds            CredentialStore
	settings         SettingsStore
	client           *http.Client
	logger           *slog.Logger
	discoveryTimeout time.Duration
	locale           language.Tag

	mu sync.Mutex
}

func NewRegistry(catalog Catalog, creds CredentialStore, settings SettingsStore, opts ...RegistryOption) *Registry {
	r := &Registry{
		catalog:          catalog,
		creds:            creds,
		settings:         settings,
		client:           &http.Client{Timeout: 10 * time.Second},
		logger:           slog.Default(),
		discoveryTimeout: 8 * time.Second,
		locale:           language.Und,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Catalog() Catalog {
	return r.catalog
}

// Available lists every catalog provider, configured or not, in catalog order.
func (r *Registry) Available(ctx context.Context) ([]Provider, error) {
	settings, err := r.settings.ListProviderSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load provider settings: %w", err)
	}
	out := make([]Provider, 0, len(r.catalog))
	for _, entry := range r.catalog {
		s := settings[entry.Name]
		out = append(out, entry.Provider(r.configured(entry, s), s.Model, s.BaseURL))
	}
	return out, nil
}

func (r *Registry) configured(entry CatalogEntry, s state.ProviderSettings) bool {
	if entry.AuthType == AuthLocal {
		return s.Enabled
	}
	_, err := r.creds.Load(entry.Name)
	return err == nil
}

// SaveKey stores the credential (when the provider takes one) and the
// provider's model and endpoint settings.
func (r *Registry) SaveKey(ctx context.Context, req SaveKeyRequest) error {
	entry, err := r.catalog.Lookup(req.Provider)
	if err != nil {
		return err
	}

	if entry.AuthType == AuthOAuth {
		return fmt.Errorf("%s: %w", entry.Name, ErrOAuthProvider)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.AuthType != AuthLocal {
		if err := ValidateCredential(req.APIKey); err != nil {
			return fmt.Errorf("%s: %w", entry.Name, err)
		}
		if err := r.creds.Store(entry.Name, req.APIKey); err != nil {
			return fmt.Errorf("store %s credential: %w", entry.Name, err)
		}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(req.BaseURL), "/")
	if baseURL == entry.DefaultBaseURL {
		baseURL = ""
	}
	err = r.settings.SaveProviderSettings(ctx, state.ProviderSettings{
		Name:    entry.Name,
		Model:   req.Model,
		BaseURL: baseURL,
		Enabled: true,
	})
	if err != nil {
		return fmt.Errorf("save %s settings: %w", entry.Name, err)
	}
	r.logger.Info("provider configured", "provider", entry.Name)
	return nil
}

// RemoveKey drops a provider's configuration. For local providers that is the
// settings row; for the rest it is the credential and the settings row.
func (r *Registry) RemoveKey(ctx context.Context, name string) error {
	entry, err := r.catalog.Lookup(name)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := false
	if entry.AuthType != AuthLocal {
		switch err := r.creds.Delete(entry.Name); {
		case err == nil:
			removed = true
		case !errors.Is(err, ErrCredentialNotFound):
			return fmt.Errorf("delete %s credential: %w", entry.Name, err)
		}
	}
	deleted, err := r.settings.DeleteProviderSettings(ctx, entry.Name)
	if err != nil {
		return fmt.Errorf("delete %s settings: %w", entry.Name, err)
	}
	if !removed && !deleted {
		return fmt.Errorf("%s: %w", entry.Name, ErrNotConfigured)
	}
	r.logger.Info("provider removed", "provider", entry.Name)
	return nil
}

// Models lists models for every configured provider. Discovery runs in
// parallel; a provider whose discovery fails contributes its catalog fallback.
func (r *Registry) Models(ctx context.Context) ([]ModelInfo, error) {
	available, err := r.Available(ctx)
	if err != nil {
		return nil, err
	}

	var configured []Provider
	for _, p := range available {
		if p.Configured {
			configured = append(configured, p)
		}
	}
	SortIn(r.locale, configured)

	results := make([][]string, len(configured))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range configured {
		i, p := i, p
		g.Go(func() error {
			results[i] = r.modelsFor(gctx, p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []ModelInfo
	for i, p := range configured {
		for _, id := range results[i] {
			out = append(out, ModelInfo{ID: id, Provider: p.Name, DisplayName: p.Label()})
		}
	}
	return out, nil
}

func (r *Registry) modelsFor(ctx context.Context, p Provider) []string {
	entry, err := r.catalog.Lookup(p.Name)
	if err != nil {
		return nil
	}
	key := ""
	if entry.AuthType != AuthLocal {
		key, _ = r.creds.Load(entry.Name)
	}
	d, err := NewDiscoverer(entry, p.BaseURL, key, r.client)
	if err != nil {
		return entry.FallbackModels
	}

	ctx, cancel := context.WithTimeout(ctx, r.discoveryTimeout)
	defer cancel()
	models, err := DiscoverModels(ctx, d)
	if err != nil || len(models) == 0 {
		r.logger.Debug("model discovery fell back to catalog", "provider", p.Name, "error", err)
		return entry.FallbackModels
	}
	return models
}
