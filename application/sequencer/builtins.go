package sequencer

import (
	"context"
	"fmt"
	"time"

	"desktop_automation/application/orchestrator"
	"desktop_automation/application/verification"
	"desktop_automation/domain/entities"
	"desktop_automation/domain/interfaces"

	"github.com/sirupsen/logrus"
)

const (
	defaultHandlerApp     = "Spotify"
	defaultPreviousButton = "templates/spotify_previous.png"

	// The player bar sits along the bottom edge; previous is just left of play.
	playerBarOffsetY = 55
	previousOffsetX  = -40
)

// Builtins holds the dependencies of the built-in objective handlers
type Builtins struct {
	Runner   ObjectiveRunner
	Preparer *Preparer
	// Apps resolves an app name to its launch configuration
	Apps    func(name string) (entities.AppConfig, bool)
	Probe   interfaces.ScreenProbe
	Windows interfaces.WindowController
	Input   interfaces.InputDevice
	Logger  *logrus.Logger

	PreviousButton string
	Settle         time.Duration
}

// Register - binds the built-in handlers by objective id
func (b *Builtins) Register(r *HandlerRegistry) {
	r.Register("spotify_play", HandlerFunc(b.play))
	r.Register("spotify_pause", b.passthrough("spotify_pause"))
	r.Register("spotify_next_track", b.passthrough("spotify_next_track"))
	r.Register("spotify_previous_track", HandlerFunc(b.previousTrack))
}

func (b *Builtins) passthrough(id string) Handler {
	return HandlerFunc(func(ctx context.Context, objective entities.Objective, sessionID string) orchestrator.Result {
		b.Logger.Infof("[HANDLER] %s invoked", id)
		return b.Runner.RunObjective(ctx, objective, sessionID)
	})
}

// play makes sure the player is running before the generic action loop.
func (b *Builtins) play(ctx context.Context, objective entities.Objective, sessionID string) orchestrator.Result {
	b.Logger.Info("[HANDLER] spotify_play invoked - checking process")

	if b.Preparer != nil {
		if err := b.Preparer.EnsureRunning(ctx, b.app(appOf(objective))); err != nil {
			return orchestrator.Result{
				Reason:      entities.ReasonPreparationFailed,
				Message:     err.Error(),
				FailedIndex: -1,
			}
		}
	}
	return b.Runner.RunObjective(ctx, objective, sessionID)
}

type tier struct {
	name string
	run  func() bool
}

// previousTrack tries each way of skipping back until one works: the button
// template, a click where the button usually is, the configured actions and
// finally the keyboard shortcut. A screenshot is kept for every failed tier.
func (b *Builtins) previousTrack(ctx context.Context, objective entities.Objective, sessionID string) orchestrator.Result {
	b.Logger.Info("[HANDLER] spotify_previous_track invoked")
	appName := appOf(objective)
	b.focus(appName)

	tiers := []tier{
		{"template", func() bool { return b.clickPreviousTemplate(objective) }},
		{"approximate", func() bool { return b.clickPreviousApprox(appName) }},
		{"actions", func() bool {
			return len(objective.Actions) > 0 && b.Runner.RunObjective(ctx, objective, sessionID).OK
		}},
		{"hotkey", func() bool {
			if err := b.Input.Hotkey(orchestrator.PrimaryModifier(), "left"); err != nil {
				b.Logger.Warnf("  [FAIL] Previous track hotkey: %v", err)
				return false
			}
			return true
		}},
	}

	for _, t := range tiers {
		if err := ctx.Err(); err != nil {
			return orchestrator.Result{Reason: entities.ReasonCancelled, Message: err.Error(), FailedIndex: -1}
		}
		b.Logger.Infof("  [PREVIOUS] Trying %s", t.name)
		if t.run() {
			b.Logger.Infof("  [OK] Previous track via %s", t.name)
			return orchestrator.Result{OK: true, FailedIndex: -1}
		}
		b.diagnostic("previous_track_" + t.name + "_failed")
	}

	return orchestrator.Result{
		Reason:      entities.ReasonExecutionFailed,
		Message:     "every previous-track strategy failed",
		FailedIndex: -1,
	}
}

func (b *Builtins) clickPreviousTemplate(objective entities.Objective) bool {
	template := b.PreviousButton
	if template == "" {
		template = defaultPreviousButton
	}
	for _, a := range objective.Actions {
		if a.Type == entities.ActionClickImage && a.Template != "" {
			template = a.Template
			break
		}
	}

	img, err := b.Probe.Capture()
	if err != nil {
		b.Logger.Warnf("  [FAIL] Screenshot failed: %v", err)
		return false
	}
	p, found, err := b.Probe.FindTemplate(img, template, entities.DefaultConfidence, nil)
	if err != nil {
		b.Logger.Warnf("  [FAIL] Template %s: %v", template, err)
		return false
	}
	if !found {
		return false
	}
	return b.click(p)
}

func (b *Builtins) clickPreviousApprox(appName string) bool {
	left, top, width, height := 0, 0, 0, 0
	if h, ok := b.Windows.Find(appName); ok && h.Bounds.W > 0 && h.Bounds.H > 0 {
		left, top, width, height = h.Bounds.X, h.Bounds.Y, h.Bounds.W, h.Bounds.H
	} else {
		width, height = b.Windows.ScreenSize()
	}
	if width <= 0 || height <= 0 {
		return false
	}
	target := entities.Point{X: left + width/2 + previousOffsetX, Y: top + height - playerBarOffsetY}

	before, err := b.Probe.Capture()
	if err != nil {
		return false
	}
	if !b.click(target) {
		return false
	}
	after, err := b.Probe.Capture()
	if err != nil {
		return false
	}
	// a blind click only counts when something visibly happened
	return b.Probe.Differs(before, after, verification.ChangeThreshold)
}

func (b *Builtins) click(p entities.Point) bool {
	if err := b.Input.Click(p.X, p.Y); err != nil {
		b.Logger.Warnf("  [FAIL] Click at (%d, %d): %v", p.X, p.Y, err)
		return false
	}
	time.Sleep(b.Settle)
	return true
}

func (b *Builtins) focus(appName string) {
	if h, ok := b.Windows.Find(appName); ok {
		b.Windows.Focus(h)
	}
}

func (b *Builtins) diagnostic(name string) {
	img, err := b.Probe.Capture()
	if err != nil {
		b.Logger.Debugf("  [DIAG] capture failed: %v", err)
		return
	}
	path, err := b.Probe.SaveDiagnostic(img, fmt.Sprintf("%s_%s.png", name, time.Now().Format("20060102_150405")))
	if err != nil {
		b.Logger.Warnf("  [DIAG] Failed to save %s: %v", name, err)
		return
	}
	b.Logger.Infof("  [DIAG] Saved %s", path)
}

func (b *Builtins) app(name string) entities.AppConfig {
	if b.Apps != nil {
		if app, ok := b.Apps(name); ok {
			return app
		}
	}
	return entities.AppConfig{Name: name}
}

func appOf(objective entities.Objective) string {
	if objective.App != "" {
		return objective.App
	}
	return defaultHandlerApp
}
