// Package prefs keeps per-user presentation preferences, currently the
// light/dark theme, persisted through the durable store.
package prefs

import (
	"log/slog"
	"sync"

	"neuroscan/internal/store"
)

// Theme is the two-valued display preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Manager loads the persisted theme on construction and defaults to light
// when storage is empty or unreadable.
type Manager struct {
	store store.Store

	mu    sync.Mutex
	theme Theme
	subs  []func(Theme)
}

// New restores the last-persisted theme before any rendering happens.
func New(st store.Store) *Manager {
	m := &Manager{store: st, theme: ThemeLight}
	raw, ok, err := st.Get(store.KeyTheme)
	if err != nil {
		slog.Warn("theme preference unreadable, defaulting to light", "err", err)
		return m
	}
	if ok && Theme(raw) == ThemeDark {
		m.theme = ThemeDark
	}
	return m
}

// Theme returns the active preference.
func (m *Manager) Theme() Theme {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.theme
}

// Toggle flips the preference, persists it and notifies subscribers.
func (m *Manager) Toggle() Theme {
	m.mu.Lock()
	if m.theme == ThemeLight {
		m.theme = ThemeDark
	} else {
		m.theme = ThemeLight
	}
	next := m.theme
	subs := make([]func(Theme), len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	if err := m.store.Set(store.KeyTheme, []byte(next)); err != nil {
		slog.Warn("persist theme failed", "err", err)
	}
	for _, fn := range subs {
		fn(next)
	}
	return next
}

// Subscribe registers a theme-change listener.
func (m *Manager) Subscribe(fn func(Theme)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}
