package interfaces

import (
	"time"

	"desktop_automation/domain/entities"
)

// WindowController defines the interface for OS window access.
// Every call re-queries the OS; handles are snapshots and must not be kept
// across a retry boundary.
type WindowController interface {
	// Find looks up the window of an application by name
	Find(appName string) (entities.WindowHandle, bool)

	// Focus brings the window to the foreground
	Focus(handle entities.WindowHandle) bool

	// Maximize maximizes the window
	Maximize(handle entities.WindowHandle) bool

	// IsMaximized checks whether the window covers the screen
	IsMaximized(handle entities.WindowHandle) bool

	// Launch starts an application and waits startupDelay
	Launch(path string, args []string, startupDelay time.Duration) bool

	// ScreenSize returns the primary display size
	ScreenSize() (int, int)
}

// WindowMatcher decides whether a window title belongs to an application
type WindowMatcher interface {
	Matches(title string) bool
}

// InputDevice sends synthetic keyboard and mouse input
type InputDevice interface {
	TypeText(text string) error
	Hotkey(keys ...string) error
	Press(key string) error
	Click(x, y int) error
	DoubleClick(x, y int) error
}
