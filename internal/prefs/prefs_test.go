package prefs

import (
	"testing"

	"neuroscan/internal/store"
)

func TestThemeDefaultsToLight(t *testing.T) {
	m := New(store.NewMemoryStore())
	if m.Theme() != ThemeLight {
		t.Fatalf("expected light default, got %v", m.Theme())
	}
}

func TestToggleFlipsAndPersists(t *testing.T) {
	st := store.NewMemoryStore()
	m := New(st)

	var seen []Theme
	m.Subscribe(func(th Theme) { seen = append(seen, th) })

	if got := m.Toggle(); got != ThemeDark {
		t.Fatalf("expected dark after first toggle, got %v", got)
	}
	raw, ok, err := st.Get(store.KeyTheme)
	if err != nil || !ok || string(raw) != "dark" {
		t.Fatalf("theme not persisted: %q ok=%v err=%v", raw, ok, err)
	}
	if got := m.Toggle(); got != ThemeLight {
		t.Fatalf("expected light after second toggle, got %v", got)
	}
	if len(seen) != 2 || seen[0] != ThemeDark || seen[1] != ThemeLight {
		t.Fatalf("unexpected notifications: %v", seen)
	}
}

func TestThemeSurvivesRestart(t *testing.T) {
	st := store.NewMemoryStore()
	New(st).Toggle()

	if m := New(st); m.Theme() != ThemeDark {
		t.Fatalf("persisted theme must restore, got %v", m.Theme())
	}
}

func TestUnknownPersistedValueFallsBack(t *testing.T) {
	st := store.NewMemoryStore()
	_ = st.Set(store.KeyTheme, []byte("sepia"))
	if m := New(st); m.Theme() != ThemeLight {
		t.Fatalf("unknown value must default to light, got %v", m.Theme())
	}
}
