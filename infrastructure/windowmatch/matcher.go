// Package windowmatch decides which OS window belongs to an application.
package windowmatch

import (
	"strings"
	"sync"

	"desktop_automation/domain/interfaces"
)

// Substring matches titles containing the application name, ignoring case
type Substring struct {
	Name string
}

var _ interfaces.WindowMatcher = Substring{}

// Matches - reports whether title contains the name
func (s Substring) Matches(title string) bool {
	name := strings.ToLower(strings.TrimSpace(s.Name))
	if name == "" {
		return false
	}
	return strings.Contains(strings.ToLower(title), name)
}

// Spotify matches the player window. While a track plays the window title is
// "Artist - Song" and no longer names the application.
type Spotify struct{}

var _ interfaces.WindowMatcher = Spotify{}

var titleExclusions = []string{"cursor", "code", "editor", "functional_automation"}

// Matches - reports whether title looks like the Spotify window
func (Spotify) Matches(title string) bool {
	t := strings.ToLower(strings.TrimSpace(title))
	if t == "" {
		return false
	}
	if strings.Contains(t, "spotify") {
		return true
	}
	if !strings.Contains(t, " - ") || len(t) <= 10 {
		return false
	}
	for _, x := range titleExclusions {
		if strings.Contains(t, x) {
			return false
		}
	}
	return true
}

// Registry maps application names to their matchers
type Registry struct {
	mu       sync.RWMutex
	matchers map[string]interfaces.WindowMatcher
}

// NewRegistry - creates a registry with the built-in matchers
func NewRegistry() *Registry {
	r := &Registry{matchers: make(map[string]interfaces.WindowMatcher)}
	r.Register("spotify", Spotify{})
	return r
}

// Register - sets the matcher used for appName
func (r *Registry) Register(appName string, m interfaces.WindowMatcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matchers[strings.ToLower(appName)] = m
}

// For - returns the matcher of appName, a Substring matcher when none is registered
func (r *Registry) For(appName string) interfaces.WindowMatcher {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.matchers[strings.ToLower(appName)]; ok {
		return m
	}
	return Substring{Name: appName}
}
