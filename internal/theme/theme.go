// Package theme keeps the branding of the branches a client works in and
// turns it into terminal styles.
package theme

import (
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/erazemk/trgovina/internal/model"
)

// Default returns the platform's own branding.
func Default() model.Theme {
	return model.Theme{
		DisplayName:    "trgovina",
		PrimaryColor:   model.DefaultPrimaryColor,
		SecondaryColor: model.DefaultSecondaryColor,
		Currency:       model.DefaultCurrency,
	}
}

// ValidColor reports whether s is a #RGB or #RRGGBB hex colour.
func ValidColor(s string) bool {
	if !strings.HasPrefix(s, "#") || (len(s) != 4 && len(s) != 7) {
		return false
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// Normalize replaces every invalid or missing field with its default.
func Normalize(t model.Theme) model.Theme {
	def := Default()
	if !ValidColor(t.PrimaryColor) {
		t.PrimaryColor = def.PrimaryColor
	}
	if !ValidColor(t.SecondaryColor) {
		t.SecondaryColor = def.SecondaryColor
	}
	if t.Currency == "" {
		t.Currency = def.Currency
	}
	if t.DisplayName == "" {
		t.DisplayName = def.DisplayName
	}
	return t
}

// Store caches one theme per branch and tracks the active one.
type Store struct {
	mu     sync.RWMutex
	themes map[int64]model.Theme
	active int64
}

func NewStore() *Store {
	return &Store{themes: make(map[int64]model.Theme)}
}

// Set caches a branch theme, normalised.
func (s *Store) Set(t model.Theme) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.themes[t.BranchID] = Normalize(t)
}

func (s *Store) Get(branchID int64) (model.Theme, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.themes[branchID]
	return t, ok
}

// Activate makes a cached theme active. It reports false, leaving the
// active theme unchanged, when the branch has none cached.
func (s *Store) Activate(branchID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.themes[branchID]; !ok {
		return false
	}
	s.active = branchID
	return true
}

// Active returns the active theme, or Default.
func (s *Store) Active() model.Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.themes[s.active]; ok && s.active != 0 {
		return t
	}
	return Default()
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.themes = make(map[int64]model.Theme)
	s.active = 0
}

// Styles are the terminal styles derived from a theme.
type Styles struct {
	Header        lipgloss.Style
	Title         lipgloss.Style
	Accent        lipgloss.Style
	Muted         lipgloss.Style
	Error         lipgloss.Style
	Notice        lipgloss.Style
	Box           lipgloss.Style
	TableHeader   lipgloss.Style
	TableSelected lipgloss.Style
}

const (
	errorColor  = lipgloss.Color("#DC2626")
	noticeColor = lipgloss.Color("#D97706")
	lightText   = lipgloss.Color("#FFFFFF")
)

// NewStyles builds styles for t. Invalid colours fall back to the defaults.
func NewStyles(t model.Theme) Styles {
	t = Normalize(t)
	primary := lipgloss.Color(t.PrimaryColor)
	secondary := lipgloss.Color(t.SecondaryColor)

	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lightText).
			Background(primary).
			Padding(0, 1),
		Title:  lipgloss.NewStyle().Bold(true).Foreground(primary),
		Accent: lipgloss.NewStyle().Foreground(primary),
		Muted:  lipgloss.NewStyle().Foreground(secondary),
		Error:  lipgloss.NewStyle().Bold(true).Foreground(errorColor),
		Notice: lipgloss.NewStyle().Foreground(noticeColor),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(secondary).
			Padding(0, 1),
		TableHeader: lipgloss.NewStyle().
			Bold(true).
			Foreground(primary).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(secondary),
		TableSelected: lipgloss.NewStyle().
			Bold(true).
			Foreground(lightText).
			Background(primary),
	}
}

// Table returns bubbles table styles in the theme's colours.
func (s Styles) Table() table.Styles {
	ts := table.DefaultStyles()
	ts.Header = s.TableHeader.Padding(0, 1)
	ts.Selected = s.TableSelected
	return ts
}
