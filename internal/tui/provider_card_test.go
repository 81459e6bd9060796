package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yubzen/switchboard/internal/providers"
)

type recordingConfirmer struct {
	id     string
	prompt string
}

func (r *recordingConfirmer) Request(id, prompt string) tea.Cmd {
	r.id = id
	r.prompt = prompt
	return nil
}

func TestProviderCardView(t *testing.T) {
	t.Parallel()

	card := NewProviderCard(providers.Provider{
		Name:           "ollama",
		DisplayName:    "Ollama",
		AuthType:       providers.AuthLocal,
		Configured:     true,
		Model:          "llama3.2",
		BaseURL:        "http://gpu:11434",
		DefaultBaseURL: "http://localhost:11434",
	})
	card.Width = 60
	view := card.View()
	for _, want := range []string{"Ollama", "Local", "Model: llama3.2", "Endpoint: http://gpu:11434"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in %q", want, view)
		}
	}

	card.Provider.BaseURL = card.Provider.DefaultBaseURL
	card.Provider.Model = ""
	view = card.View()
	if strings.Contains(view, "Endpoint:") || strings.Contains(view, "Model:") {
		t.Fatalf("default endpoint and empty model must be hidden, got %q", view)
	}
}

func TestProviderCardTruncatesLongNames(t *testing.T) {
	t.Parallel()

	card := NewProviderCard(providers.Provider{Name: "x", DisplayName: strings.Repeat("Very Long Provider ", 6), AuthType: providers.AuthAPIKey})
	card.Width = 40
	if !strings.Contains(card.View(), "…") {
		t.Fatalf("expected truncated title, got %q", card.View())
	}
}

func TestProviderCardRemoveAsksForConfirmation(t *testing.T) {
	t.Parallel()

	confirm := &recordingConfirmer{}
	card := NewProviderCard(providers.Provider{Name: "openai", DisplayName: "OpenAI", AuthType: providers.AuthAPIKey})
	id, _ := card.Remove(confirm)
	if id == "" || confirm.id != id {
		t.Fatalf("expected request id to round trip, got %q vs %q", id, confirm.id)
	}
	if confirm.prompt != "Remove credentials for OpenAI?" {
		t.Fatalf("unexpected prompt %q", confirm.prompt)
	}

	other, _ := card.Remove(confirm)
	if other == id {
		t.Fatal("expected a fresh id per request")
	}
}
