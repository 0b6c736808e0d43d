package desktop

import (
	"os/exec"
	"strings"
	"time"

	"desktop_automation/domain/entities"
	"desktop_automation/domain/interfaces"
	"desktop_automation/infrastructure/windowmatch"

	"github.com/go-vgo/robotgo"
	"github.com/sirupsen/logrus"
)

// Settle times between window operations.
const (
	restoreSettle  = time.Second
	maximizeSettle = time.Second
	activateSettle = 500 * time.Millisecond
)

// Windows finds and manages top-level windows. Nothing is cached: each call
// lists processes again.
type Windows struct {
	matchers *windowmatch.Registry
	input    interfaces.InputDevice
	logger   *logrus.Logger
}

var _ interfaces.WindowController = (*Windows)(nil)

// NewWindows - creates new robotgo window controller
func NewWindows(matchers *windowmatch.Registry, input interfaces.InputDevice, logger *logrus.Logger) *Windows {
	if matchers == nil {
		matchers = windowmatch.NewRegistry()
	}
	return &Windows{
		matchers: matchers,
		input:    input,
		logger:   logger,
	}
}

// Find - looks up the main window of an application
func (w *Windows) Find(appName string) (handle entities.WindowHandle, found bool) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Errorf("  [ERROR] Window lookup for '%s' panicked: %v", appName, r)
			handle, found = entities.WindowHandle{}, false
		}
	}()

	w.logger.Infof("  [SEARCH] Looking for window: '%s'", appName)
	processes, err := robotgo.Process()
	if err != nil {
		w.logger.Warnf("  [ERROR] Failed to list processes: %v", err)
		return entities.WindowHandle{}, false
	}

	matcher := w.matchers.For(appName)
	var candidates []entities.WindowHandle
	for _, p := range processes {
		title := strings.TrimSpace(robotgo.GetTitle(p.Pid))
		if title == "" || !matcher.Matches(title) {
			continue
		}
		h := w.snapshot(p.Pid, title)
		if h.Minimized {
			w.logger.Infof("  [RESTORE] '%s' is minimized, restoring...", title)
			robotgo.MinWindow(p.Pid, false)
			time.Sleep(restoreSettle)
			h = w.snapshot(p.Pid, title)
		}
		candidates = append(candidates, h)
	}

	screenW, screenH := w.ScreenSize()
	handle, found = windowmatch.Pick(candidates, screenW, screenH)
	if !found {
		w.logger.Warnf("  [NOT FOUND] No window found for '%s'", appName)
		return handle, false
	}
	if !windowmatch.OnScreen(handle.Bounds, screenW, screenH) {
		w.logger.Warnf("  [WARN] Window '%s' is outside the primary screen at (%d, %d)", handle.Title, handle.Bounds.X, handle.Bounds.Y)
	}
	w.logger.WithFields(logrus.Fields{
		"pid":    handle.PID,
		"bounds": handle.Bounds,
	}).Infof("  [FOUND] Window: '%s'", handle.Title)
	return handle, true
}

func (w *Windows) snapshot(pid int, title string) entities.WindowHandle {
	x, y, width, height := robotgo.GetBounds(pid)
	b := entities.Bounds{X: x, Y: y, W: width, H: height}
	return entities.WindowHandle{
		PID:       pid,
		Title:     title,
		Bounds:    b,
		Minimized: windowmatch.LooksMinimized(b),
	}
}

// Focus - brings the window to the foreground
func (w *Windows) Focus(handle entities.WindowHandle) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Errorf("  [ERROR] Focus panicked: %v", r)
			ok = false
		}
	}()

	if handle.PID == 0 {
		return false
	}
	if err := robotgo.ActivePid(handle.PID); err != nil {
		w.logger.Warnf("  [WARN] Could not focus '%s': %v", handle.Title, err)
		return false
	}
	time.Sleep(activateSettle)
	return true
}

// Maximize - maximizes the window, falling back to the keyboard shortcut and
// then to a double click on the title bar
func (w *Windows) Maximize(handle entities.WindowHandle) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Errorf("  [ERROR] Maximize panicked: %v", r)
			ok = false
		}
	}()

	if handle.PID == 0 {
		return false
	}
	w.logger.Infof("  [MAXIMIZE] Maximizing window: '%s'", handle.Title)
	w.Focus(handle)

	robotgo.MaxWindow(handle.PID)
	time.Sleep(maximizeSettle)
	if w.IsMaximized(handle) {
		w.logger.Info("  [OK] Window maximized")
		return true
	}

	w.logger.Info("  [FALLBACK] Trying win+up...")
	if err := w.input.Hotkey("win", "up"); err != nil {
		w.logger.Warnf("  [WARN] win+up failed: %v", err)
	}
	time.Sleep(maximizeSettle)
	if w.IsMaximized(handle) {
		w.logger.Info("  [OK] Window maximized via win+up")
		return true
	}

	w.logger.Info("  [FALLBACK] Trying double-click title bar...")
	bar := handle.TitleBar()
	if err := w.input.DoubleClick(bar.X, bar.Y); err != nil {
		w.logger.Warnf("  [WARN] Title bar double-click failed: %v", err)
	}
	time.Sleep(maximizeSettle)
	if w.IsMaximized(handle) {
		w.logger.Info("  [OK] Window maximized via double-click")
		return true
	}

	w.logger.Warnf("  [FAIL] Could not maximize '%s'", handle.Title)
	return false
}

// IsMaximized - re-reads the window bounds and compares them to the screen
func (w *Windows) IsMaximized(handle entities.WindowHandle) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	if handle.PID == 0 {
		return false
	}
	x, y, width, height := robotgo.GetBounds(handle.PID)
	screenW, screenH := w.ScreenSize()
	ok = windowmatch.CoversScreen(entities.Bounds{X: x, Y: y, W: width, H: height}, screenW, screenH)
	w.logger.Debugf("  [CHECK] Window %dx%d on %dx%d screen, maximized=%v", width, height, screenW, screenH, ok)
	return ok
}

// Launch - starts the application and waits startupDelay
func (w *Windows) Launch(path string, args []string, startupDelay time.Duration) bool {
	if path == "" {
		w.logger.Warn("  [FAIL] No application path configured")
		return false
	}
	w.logger.Infof("  [LAUNCH] Starting %s", path)
	cmd := exec.Command(path, args...)
	if err := cmd.Start(); err != nil {
		w.logger.Warnf("  [FAIL] Could not launch %s: %v", path, err)
		return false
	}
	// the child outlives the run; reap it in the background
	go func() { _ = cmd.Wait() }()
	time.Sleep(startupDelay)
	return true
}

// ScreenSize - returns the primary display size
func (w *Windows) ScreenSize() (width, height int) {
	defer func() {
		if r := recover(); r != nil {
			width, height = 0, 0
		}
	}()
	return robotgo.GetScreenSize()
}
