package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubDiscovery struct {
	models []string
	err    error
}

func (s stubDiscovery) ListModels(ctx context.Context) ([]string, error) {
	return s.models, s.err
}

func TestDiscoverModelsNormalizesAndSorts(t *testing.T) {
	models, err := DiscoverModels(context.Background(), stubDiscovery{
		models: []string{" gpt-4o ", "claude-3-5-sonnet", "gpt-4o", "", "claude-3-5-sonnet"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := len(models), 2; got != want {
		t.Fatalf("expected %d models, got %d", want, got)
	}
	if models[0] != "claude-3-5-sonnet" || models[1] != "gpt-4o" {
		t.Fatalf("unexpected normalized models: %#v", models)
	}
}

func TestDiscoverModelsPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	if _, err := DiscoverModels(context.Background(), stubDiscovery{err: boom}); !errors.Is(err, boom) {
		t.Fatalf("expected error to propagate, got %v", err)
	}
}

func TestOpenAICompatListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"gpt-4o"},{"id":"gpt-4.1"}]}`))
	}))
	defer srv.Close()

	entry, _ := DefaultCatalog().Lookup("openai")
	d, err := NewDiscoverer(entry, srv.URL+"/v1/", "sk-test", srv.Client())
	if err != nil {
		t.Fatalf("new discoverer: %v", err)
	}
	models, err := DiscoverModels(context.Background(), d)
	if err != nil {
		t.Fatalf("list models: %v", err)
	}
	if len(models) != 2 || models[0] != "gpt-4.1" || models[1] != "gpt-4o" {
		t.Fatalf("unexpected models: %#v", models)
	}
}

func TestOpenAICompatUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	d := &OpenAICompat{Provider: "xai", BaseURL: srv.URL, Key: "bad", Client: srv.Client()}
	_, err := d.ListModels(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) || authErr.Provider != "xai" {
		t.Fatalf("expected AuthError for xai, got %v", err)
	}
}

func TestAnthropicListModelsSendsVersionHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "sk-ant" || r.Header.Get("anthropic-version") == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"claude-3-7-sonnet-latest"}]}`))
	}))
	defer srv.Close()

	d := &Anthropic{BaseURL: srv.URL, Key: "sk-ant", Client: srv.Client()}
	models, err := d.ListModels(context.Background())
	if err != nil {
		t.Fatalf("list models: %v", err)
	}
	if len(models) != 1 || models[0] != "claude-3-7-sonnet-latest" {
		t.Fatalf("unexpected models: %#v", models)
	}
}

func TestOllamaListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3.2:latest"},{"name":"qwen2.5-coder:7b"}]}`))
	}))
	defer srv.Close()

	entry, _ := DefaultCatalog().Lookup("ollama")
	d, err := NewDiscoverer(entry, srv.URL, "", srv.Client())
	if err != nil {
		t.Fatalf("new discoverer: %v", err)
	}
	models, err := d.ListModels(context.Background())
	if err != nil {
		t.Fatalf("list models: %v", err)
	}
	if len(models) != 2 || models[0] != "llama3.2:latest" {
		t.Fatalf("unexpected models: %#v", models)
	}
}

func TestNewDiscovererWithoutDiscovery(t *testing.T) {
	entry, _ := DefaultCatalog().Lookup("google")
	if _, err := NewDiscoverer(entry, "", "key", nil); !errors.Is(err, ErrDiscoveryUnsupported) {
		t.Fatalf("expected ErrDiscoveryUnsupported, got %v", err)
	}
}

func TestMissingKeyIsAuthError(t *testing.T) {
	d := &Anthropic{BaseURL: "http://127.0.0.1:1", Client: http.DefaultClient}
	var authErr *AuthError
	if _, err := d.ListModels(context.Background()); !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError without a key, got %v", err)
	}
}
