// Package desktop drives the real desktop through robotgo: keyboard and mouse
// input, window lookup and management, and screen capture.
package desktop

import (
	"fmt"
	"image"
	"strings"

	"desktop_automation/domain/interfaces"
	"desktop_automation/infrastructure/keymap"
	"desktop_automation/infrastructure/vision"

	"github.com/go-vgo/robotgo"
	"github.com/sirupsen/logrus"
)

// Input sends synthetic keyboard and mouse events
type Input struct {
	logger *logrus.Logger
}

var _ interfaces.InputDevice = (*Input)(nil)

// NewInput - creates new robotgo input device
func NewInput(logger *logrus.Logger) *Input {
	return &Input{logger: logger}
}

// TypeText - types text into the focused window
func (i *Input) TypeText(text string) (err error) {
	defer guard("type text", &err)
	robotgo.TypeStr(text)
	return nil
}

// Hotkey - taps the last key while holding the others
func (i *Input) Hotkey(keys ...string) (err error) {
	defer guard("hotkey", &err)
	if len(keys) == 0 {
		return fmt.Errorf("no keys specified")
	}
	key, mods := keymap.Combo(keys)
	held := make([]interface{}, len(mods))
	for n, m := range mods {
		held[n] = m
	}
	i.logger.Debugf("  [KEY] %s", strings.Join(keys, "+"))
	return robotgo.KeyTap(key, held...)
}

// Press - taps a single key
func (i *Input) Press(key string) (err error) {
	defer guard("key press", &err)
	if key == "" {
		return fmt.Errorf("no key specified")
	}
	return robotgo.KeyTap(keymap.Key(key))
}

// Click - moves the pointer and left-clicks
func (i *Input) Click(x, y int) (err error) {
	defer guard("click", &err)
	robotgo.Move(x, y)
	robotgo.Click("left", false)
	return nil
}

// DoubleClick - moves the pointer and double-clicks
func (i *Input) DoubleClick(x, y int) (err error) {
	defer guard("double click", &err)
	robotgo.Move(x, y)
	robotgo.Click("left", true)
	return nil
}

// ScreenCapturer captures the primary display
type ScreenCapturer struct{}

var _ vision.Capturer = ScreenCapturer{}

// Capture - takes a full screenshot
func (ScreenCapturer) Capture() (img image.Image, err error) {
	defer guard("screen capture", &err)
	img, err = robotgo.CaptureImg()
	if err != nil {
		return nil, fmt.Errorf("failed to capture screen: %w", err)
	}
	return img, nil
}

// guard converts a panic from the native backend into an error.
func guard(op string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s panicked: %v", op, r)
	}
}
