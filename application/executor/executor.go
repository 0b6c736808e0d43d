// Package executor translates declarative actions into single UI operations.
package executor

import (
	"fmt"
	"time"

	"desktop_automation/application/verification"
	"desktop_automation/domain/entities"
	"desktop_automation/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// Timing holds the settle delays applied after each OS operation
type Timing struct {
	Input            time.Duration
	Click            time.Duration
	Close            time.Duration
	ClickStability   time.Duration
	StabilityPoll    time.Duration
	DialogKeystrokes time.Duration
}

// DefaultTiming returns the settle delays used against a live desktop.
func DefaultTiming() Timing {
	return Timing{
		Input:            500 * time.Millisecond,
		Click:            500 * time.Millisecond,
		Close:            500 * time.Millisecond,
		ClickStability:   2 * time.Second,
		StabilityPoll:    500 * time.Millisecond,
		DialogKeystrokes: 300 * time.Millisecond,
	}
}

type Executor struct {
	probe    interfaces.ScreenProbe
	windows  interfaces.WindowController
	input    interfaces.InputDevice
	verifier *verification.Engine
	timing   Timing
	logger   *logrus.Logger
}

// NewExecutor - creates new action executor
func NewExecutor(probe interfaces.ScreenProbe, windows interfaces.WindowController, input interfaces.InputDevice, verifier *verification.Engine, timing Timing, logger *logrus.Logger) *Executor {
	return &Executor{
		probe:    probe,
		windows:  windows,
		input:    input,
		verifier: verifier,
		timing:   timing,
		logger:   logger,
	}
}

// Execute - runs a single action and reports whether it succeeded.
// No panic or error escapes; every failure becomes false.
func (e *Executor) Execute(action entities.Action) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Errorf("  [ERROR] Action '%s' panicked: %v", action.Type, r)
			ok = false
		}
	}()

	var err error
	switch action.Type {
	case entities.ActionTypeText:
		err = e.typeText(action)
	case entities.ActionHotkey:
		err = e.hotkey(action)
	case entities.ActionKeyPress:
		err = e.keyPress(action)
	case entities.ActionWait:
		time.Sleep(action.WaitDuration())
	case entities.ActionClickImage:
		err = e.clickImage(action)
	case entities.ActionClickText:
		err = e.clickText(action)
	case entities.ActionVerifyText:
		err = e.verifyText(action)
	case entities.ActionWaitForText:
		err = e.waitForText(action)
	case entities.ActionCloseWindow:
		err = e.closeWindow(action)
	default:
		e.logger.Warnf("  Unknown action type: %s", action.Type)
		return false
	}

	if err != nil {
		e.logger.Warnf("  [FAIL] %s: %v", action.Type, err)
		return false
	}
	return true
}

func (e *Executor) typeText(action entities.Action) error {
	if action.Text == "" {
		return fmt.Errorf("no text specified")
	}
	if err := e.input.TypeText(action.Text); err != nil {
		return fmt.Errorf("failed to type text: %w", err)
	}
	time.Sleep(e.timing.Input)
	return nil
}

func (e *Executor) hotkey(action entities.Action) error {
	if len(action.Keys) == 0 {
		return fmt.Errorf("no keys specified")
	}
	if err := e.input.Hotkey(action.Keys...); err != nil {
		return fmt.Errorf("failed to send hotkey %v: %w", action.Keys, err)
	}
	time.Sleep(e.timing.Input)
	return nil
}

func (e *Executor) keyPress(action entities.Action) error {
	if action.Key == "" {
		return fmt.Errorf("no key specified")
	}
	if err := e.input.Press(action.Key); err != nil {
		return fmt.Errorf("failed to press %s: %w", action.Key, err)
	}
	time.Sleep(e.timing.Input)
	return nil
}

func (e *Executor) clickImage(action entities.Action) error {
	if action.Template == "" {
		return fmt.Errorf("no template path specified")
	}

	// best effort: an unstable screen is logged, not fatal
	if !e.verifier.ScreenStable(e.timing.ClickStability, e.timing.StabilityPoll) {
		e.logger.Warn("  Screen is not stable, clicking anyway")
	}

	img, err := e.probe.Capture()
	if err != nil {
		return fmt.Errorf("failed to take screenshot: %w", err)
	}

	location, found, err := e.probe.FindTemplate(img, action.Template, action.ConfidenceOr(), nil)
	if err != nil {
		return fmt.Errorf("template match failed: %w", err)
	}
	if !found {
		return fmt.Errorf("template %s not found at confidence %.2f", action.Template, action.ConfidenceOr())
	}

	return e.clickAt(entities.Point{X: location.X + action.OffsetX, Y: location.Y + action.OffsetY}, e.timing.Click)
}

func (e *Executor) verifyText(action entities.Action) error {
	if action.Text == "" {
		return fmt.Errorf("no text specified")
	}
	if !e.verifier.TextPresent(action.Text, action.Region, action.ConfidenceOr()) {
		return fmt.Errorf("text '%s' not present", action.Text)
	}
	return nil
}

func (e *Executor) waitForText(action entities.Action) error {
	if action.Text == "" {
		return fmt.Errorf("no text specified")
	}
	if !e.verifier.WaitForText(action.Text, action.Region, action.ConfidenceOr(), action.TextTimeout(), action.PollInterval()) {
		return fmt.Errorf("text '%s' did not appear within %s", action.Text, action.TextTimeout())
	}
	return nil
}

func (e *Executor) closeWindow(action entities.Action) error {
	appName := action.AppName
	if appName == "" {
		return fmt.Errorf("no app name specified")
	}

	handle, ok := e.windows.Find(appName)
	if !ok {
		return fmt.Errorf("window %s not found", appName)
	}

	target := handle.CloseButton()
	e.logger.Infof("  Clicking close button at (%d, %d)", target.X, target.Y)
	if err := e.clickAt(target, e.timing.Close); err != nil {
		return err
	}

	if action.DismissSaveDialog {
		// "Don't save" is the second button of the confirmation dialog
		if err := e.input.Press("tab"); err != nil {
			return fmt.Errorf("failed to focus dialog button: %w", err)
		}
		time.Sleep(e.timing.DialogKeystrokes)
		if err := e.input.Press("enter"); err != nil {
			return fmt.Errorf("failed to confirm dialog: %w", err)
		}
		time.Sleep(e.timing.DialogKeystrokes)
	}
	return nil
}

func (e *Executor) clickAt(p entities.Point, settle time.Duration) error {
	if err := e.input.Click(p.X, p.Y); err != nil {
		return fmt.Errorf("failed to click at (%d, %d): %w", p.X, p.Y, err)
	}
	time.Sleep(settle)
	e.logger.Debugf("  Clicked at (%d, %d)", p.X, p.Y)
	return nil
}
