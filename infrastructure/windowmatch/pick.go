package windowmatch

import "desktop_automation/domain/entities"

// Minimum window side for a candidate to count as a usable main window.
const minUsableSide = 200

// minimizedCoord is where Windows parks minimized windows.
const minimizedCoord = -32000

// maximizedRatio is the share of the screen a maximized window must cover.
const maximizedRatio = 0.95

// LooksMinimized reports whether bounds describe a minimized window.
func LooksMinimized(b entities.Bounds) bool {
	return b.X <= minimizedCoord || b.Y <= minimizedCoord || b.W <= 0 || b.H <= 0
}

// OnScreen reports whether the top-left corner of b lies on the primary screen.
func OnScreen(b entities.Bounds, screenW, screenH int) bool {
	return b.X >= 0 && b.X < screenW && b.Y >= 0 && b.Y < screenH
}

// Usable reports whether a window is large enough to be a main window.
func Usable(b entities.Bounds) bool {
	return b.W > minUsableSide && b.H > minUsableSide
}

// CoversScreen reports whether b covers at least 95% of the screen in both directions.
func CoversScreen(b entities.Bounds, screenW, screenH int) bool {
	if screenW <= 0 || screenH <= 0 {
		return false
	}
	return float64(b.W)/float64(screenW) >= maximizedRatio &&
		float64(b.H)/float64(screenH) >= maximizedRatio
}

// Pick - chooses the best window among matching candidates: a usable window
// on the primary screen first, then any usable window, then the first one.
func Pick(candidates []entities.WindowHandle, screenW, screenH int) (entities.WindowHandle, bool) {
	if len(candidates) == 0 {
		return entities.WindowHandle{}, false
	}
	for _, c := range candidates {
		if !c.Minimized && Usable(c.Bounds) && OnScreen(c.Bounds, screenW, screenH) {
			return c, true
		}
	}
	for _, c := range candidates {
		if !c.Minimized && Usable(c.Bounds) {
			return c, true
		}
	}
	return candidates[0], true
}
