package tui

import (
	"strings"
	"testing"
)

func TestConfirmDialogResolvesOnce(t *testing.T) {
	t.Parallel()

	d := NewConfirmDialog()
	if cmd := d.Request("a", "Remove credentials for OpenAI?"); cmd != nil {
		t.Fatal("first request must not resolve anything")
	}
	if !d.Visible || !strings.Contains(d.View(), "Remove credentials for OpenAI?") {
		t.Fatalf("expected prompt visible, got %q", d.View())
	}

	cmd := d.Update(key("y"))
	if cmd == nil {
		t.Fatal("expected a result")
	}
	if got := cmd().(ConfirmResultMsg); got.ID != "a" || !got.Accepted {
		t.Fatalf("unexpected result %#v", got)
	}
	if d.Visible {
		t.Fatal("expected dialog closed")
	}
	if cmd := d.Update(key("y")); cmd != nil {
		t.Fatal("closed dialog must ignore keys")
	}
}

func TestConfirmDialogDecline(t *testing.T) {
	t.Parallel()

	for _, k := range []string{"n", "N", "esc"} {
		d := NewConfirmDialog()
		d.Request("id", "Remove?")
		cmd := d.Update(key(k))
		if cmd == nil {
			t.Fatalf("%s: expected a result", k)
		}
		if got := cmd().(ConfirmResultMsg); got.Accepted {
			t.Fatalf("%s: expected decline", k)
		}
	}
}

func TestConfirmDialogSupersededRequestIsDeclined(t *testing.T) {
	t.Parallel()

	d := NewConfirmDialog()
	d.Request("old", "first?")
	cmd := d.Request("new", "second?")
	if cmd == nil {
		t.Fatal("expected the older request to be settled")
	}
	if got := cmd().(ConfirmResultMsg); got.ID != "old" || got.Accepted {
		t.Fatalf("unexpected result %#v", got)
	}
	if d.Prompt() != "second?" {
		t.Fatalf("expected newest prompt, got %q", d.Prompt())
	}
	if cmd := d.Update(key("x")); cmd != nil {
		t.Fatal("unrelated keys must not resolve")
	}
}
