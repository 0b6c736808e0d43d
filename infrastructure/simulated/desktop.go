// Package simulated provides an in-memory desktop: screen, windows and input
// devices that record what was done to them. It backs dry runs and tests.
package simulated

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"desktop_automation/domain/entities"
	"desktop_automation/domain/interfaces"
	"desktop_automation/infrastructure/vision"
)

const (
	defaultWidth  = 1920
	defaultHeight = 1080
	paintStep     = 40
)

// Desktop is a scripted screen plus window manager plus input device.
//
// Without scripted frames the screen is a uniform image whose shade changes
// after every input event, so captures are stable while idle and differ
// across a click.
type Desktop struct {
	mu sync.Mutex

	Width, Height int

	// Frames, when set, are returned by successive captures; the last repeats
	Frames     []image.Image
	CaptureErr error

	// Templates maps a template path to the point it is found at
	Templates map[string]entities.Point
	// Texts are the OCR words visible on screen
	Texts []entities.TextMatch
	// Crops is returned by SmartCrop
	Crops []entities.Region

	// Windows maps lower-cased app names to their windows
	Windows map[string]entities.WindowHandle
	// Permissive finds every template, text and window that is not scripted
	Permissive bool

	FocusFails    bool
	MaximizeFails bool
	// LaunchFunc decides whether a launch succeeds; nil always succeeds
	LaunchFunc func(path string, args []string) bool
	// OnInput runs after every recorded input event
	OnInput  func(event string)
	InputErr error

	Events    []string
	Launches  []string
	Saved     []string
	captures  int
	paint     int
	maximized map[int]bool
}

var (
	_ interfaces.ScreenProbe      = (*Desktop)(nil)
	_ interfaces.WindowController = (*Desktop)(nil)
	_ interfaces.InputDevice      = (*Desktop)(nil)
)

// NewDesktop - creates an empty simulated desktop
func NewDesktop() *Desktop {
	return &Desktop{
		Width:     defaultWidth,
		Height:    defaultHeight,
		Templates: make(map[string]entities.Point),
		Windows:   make(map[string]entities.WindowHandle),
		maximized: make(map[int]bool),
	}
}

// AddWindow registers a window for appName and returns its handle.
func (d *Desktop) AddWindow(appName string, h entities.WindowHandle) entities.WindowHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	if h.PID == 0 {
		h.PID = 1000 + len(d.Windows)
	}
	if h.Title == "" {
		h.Title = appName
	}
	d.Windows[strings.ToLower(appName)] = h
	return h
}

// RemoveWindow forgets the window of appName.
func (d *Desktop) RemoveWindow(appName string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.Windows, strings.ToLower(appName))
}

// Recorded returns a copy of the input events seen so far.
func (d *Desktop) Recorded() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.Events...)
}

// Captures returns how many screenshots were taken.
func (d *Desktop) Captures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.captures
}

// Capture - returns the next scripted frame or the painted screen
func (d *Desktop) Capture() (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.CaptureErr != nil {
		return nil, d.CaptureErr
	}
	d.captures++
	if len(d.Frames) > 0 {
		i := min(d.captures-1, len(d.Frames)-1)
		return d.Frames[i], nil
	}
	return Solid(d.Width, d.Height, uint8((d.paint*paintStep)%256)), nil
}

// FindTemplate - looks up a scripted template location
func (d *Desktop) FindTemplate(img image.Image, templatePath string, threshold float64, region *entities.Region) (entities.Point, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.Templates[templatePath]
	if !ok {
		if !d.Permissive {
			return entities.Point{}, false, nil
		}
		p = entities.Point{X: d.Width / 2, Y: d.Height / 2}
		if region != nil {
			p = region.Center()
		}
	}
	if region != nil && !inside(*region, p) {
		return entities.Point{}, false, nil
	}
	return p, true, nil
}

// FindText - returns scripted words containing text at or above threshold
func (d *Desktop) FindText(img image.Image, text string, region *entities.Region, threshold float64) ([]entities.TextMatch, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(text))
	var matches []entities.TextMatch
	for _, m := range d.Texts {
		if !strings.Contains(strings.ToLower(m.Text), needle) || m.Confidence < threshold {
			continue
		}
		if region != nil && !inside(*region, m.Center()) {
			continue
		}
		matches = append(matches, m)
	}

	if len(matches) == 0 && len(d.Texts) == 0 && d.Permissive {
		box := entities.Region{X: d.Width/2 - 40, Y: d.Height/2 - 10, W: 80, H: 20}
		if region != nil {
			c := region.Center()
			box = entities.Region{X: c.X - 40, Y: c.Y - 10, W: 80, H: 20}
		}
		matches = append(matches, entities.TextMatch{Text: text, Box: box, Confidence: 1})
	}
	return matches, nil
}

// RecognizeText - joins scripted words reaching minConfidence
func (d *Desktop) RecognizeText(img image.Image, region *entities.Region, minConfidence float64) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var parts []string
	for _, m := range d.Texts {
		if m.Confidence < minConfidence {
			continue
		}
		if region != nil && !inside(*region, m.Center()) {
			continue
		}
		parts = append(parts, m.Text)
	}
	return strings.Join(parts, " "), nil
}

// SmartCrop - returns the scripted crop regions
func (d *Desktop) SmartCrop(img image.Image, hint entities.TextHint) []entities.Region {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]entities.Region(nil), d.Crops...)
}

// Differs - compares images by mean grayscale difference
func (d *Desktop) Differs(a, b image.Image, threshold float64) bool {
	return vision.Differs(a, b, threshold)
}

// SaveDiagnostic - records the screenshot name without touching disk
func (d *Desktop) SaveDiagnostic(img image.Image, name string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Saved = append(d.Saved, name)
	return filepath.Join("simulated", name), nil
}

// Find - looks up the window registered for appName
func (d *Desktop) Find(appName string) (entities.WindowHandle, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if h, ok := d.Windows[strings.ToLower(appName)]; ok {
		return h, true
	}
	if d.Permissive && appName != "" {
		return entities.WindowHandle{
			PID:    1,
			Title:  appName,
			Bounds: entities.Bounds{W: d.Width, H: d.Height},
		}, true
	}
	return entities.WindowHandle{}, false
}

// Focus - records a focus request
func (d *Desktop) Focus(handle entities.WindowHandle) bool {
	d.record(fmt.Sprintf("focus:%d", handle.PID))
	return !d.FocusFails
}

// Maximize - marks the window as maximized
func (d *Desktop) Maximize(handle entities.WindowHandle) bool {
	d.record(fmt.Sprintf("maximize:%d", handle.PID))
	if d.MaximizeFails {
		return false
	}
	d.mu.Lock()
	d.maximized[handle.PID] = true
	d.mu.Unlock()
	return true
}

// IsMaximized - reports whether Maximize succeeded for the window
func (d *Desktop) IsMaximized(handle entities.WindowHandle) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.maximized[handle.PID] {
		return true
	}
	return d.Permissive || (handle.Bounds.W >= d.Width && handle.Bounds.H >= d.Height)
}

// ScreenSize - returns the simulated screen size
func (d *Desktop) ScreenSize() (int, int) {
	return d.Width, d.Height
}

// Launch - records the launch and waits startupDelay
func (d *Desktop) Launch(path string, args []string, startupDelay time.Duration) bool {
	d.mu.Lock()
	d.Launches = append(d.Launches, path)
	launch := d.LaunchFunc
	d.mu.Unlock()

	ok := launch == nil || launch(path, args)
	time.Sleep(startupDelay)
	return ok
}

// TypeText - records typed text
func (d *Desktop) TypeText(text string) error {
	return d.input("type:" + text)
}

// Hotkey - records a key combination
func (d *Desktop) Hotkey(keys ...string) error {
	return d.input("hotkey:" + strings.Join(keys, "+"))
}

// Press - records a single key press
func (d *Desktop) Press(key string) error {
	return d.input("press:" + key)
}

// Click - records a click
func (d *Desktop) Click(x, y int) error {
	return d.input(fmt.Sprintf("click:%d,%d", x, y))
}

// DoubleClick - records a double click
func (d *Desktop) DoubleClick(x, y int) error {
	return d.input(fmt.Sprintf("doubleclick:%d,%d", x, y))
}

func (d *Desktop) input(event string) error {
	d.mu.Lock()
	if d.InputErr != nil {
		err := d.InputErr
		d.mu.Unlock()
		return err
	}
	d.Events = append(d.Events, event)
	d.paint++
	hook := d.OnInput
	d.mu.Unlock()

	if hook != nil {
		hook(event)
	}
	return nil
}

func (d *Desktop) record(event string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Events = append(d.Events, event)
}

// Solid returns a uniform grayscale image.
func Solid(w, h int, shade uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = shade
	}
	return g
}

func inside(r entities.Region, p entities.Point) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X < r.X+r.W && p.Y < r.Y+r.H
}
