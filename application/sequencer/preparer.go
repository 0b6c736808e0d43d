package sequencer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"desktop_automation/domain/entities"
	"desktop_automation/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// ErrPreparationFailed wraps every failure to launch, maximize or verify an app
var ErrPreparationFailed = errors.New("preparation failed")

// PrepPolicy bounds the launch and maximize retries of a preparation
type PrepPolicy struct {
	LaunchAttempts   int
	LaunchBackoff    time.Duration
	MaximizeAttempts int
	MaximizeBackoff  time.Duration
}

// DefaultPrepPolicy returns three launch attempts 2s apart and three maximize
// attempts 1s apart.
func DefaultPrepPolicy() PrepPolicy {
	return PrepPolicy{
		LaunchAttempts:   3,
		LaunchBackoff:    2 * time.Second,
		MaximizeAttempts: 3,
		MaximizeBackoff:  time.Second,
	}
}

// Preparer gets an application open, maximized and ready for automation
type Preparer struct {
	windows  interfaces.WindowController
	notifier interfaces.Notifier
	policy   PrepPolicy
	logger   *logrus.Logger
}

// NewPreparer - creates new application preparer
func NewPreparer(windows interfaces.WindowController, notifier interfaces.Notifier, policy PrepPolicy, logger *logrus.Logger) *Preparer {
	return &Preparer{
		windows:  windows,
		notifier: notifier,
		policy:   policy,
		logger:   logger,
	}
}

// Prepare - launches the app if needed, maximizes it and verifies it is ready.
// A failure sends one notification and wraps ErrPreparationFailed.
func (p *Preparer) Prepare(ctx context.Context, app entities.AppConfig) error {
	p.logger.Infof("Preparing %s for automation...", app.Name)

	err := p.launch(ctx, app)
	if err == nil {
		err = p.maximize(ctx, app.Name)
	}
	if err == nil {
		err = p.verifyReady(app.Name)
	}
	if err != nil {
		return p.failed(app.Name, err)
	}

	p.logger.Infof("[OK] %s prepared successfully", app.Name)
	return nil
}

// EnsureRunning - launches the app when no window of it exists
func (p *Preparer) EnsureRunning(ctx context.Context, app entities.AppConfig) error {
	if err := p.launch(ctx, app); err != nil {
		return p.failed(app.Name, err)
	}
	return nil
}

func (p *Preparer) failed(appName string, err error) error {
	p.logger.Errorf("[FAIL] %v", err)
	p.notifier.NotifyError(err.Error(), appName)
	return fmt.Errorf("%w: %s: %v", ErrPreparationFailed, appName, err)
}

func (p *Preparer) launch(ctx context.Context, app entities.AppConfig) error {
	p.logger.Infof("Checking if %s is already open...", app.Name)
	if _, ok := p.windows.Find(app.Name); ok {
		p.logger.Infof("[OK] %s is already open", app.Name)
		return nil
	}

	p.logger.Infof("%s not found, launching...", app.Name)
	attempts := max(p.policy.LaunchAttempts, 1)
	delay := entities.Seconds(app.StartupDelaySeconds())
	for attempt := 1; attempt <= attempts; attempt++ {
		p.logger.Infof("  Launch attempt %d/%d", attempt, attempts)
		if p.windows.Launch(app.Path, app.Args, delay) {
			if _, ok := p.windows.Find(app.Name); ok {
				p.logger.Infof("[OK] %s successfully launched on attempt %d", app.Name, attempt)
				return nil
			}
			p.logger.Warnf("[FAIL] %s not found after launch attempt %d", app.Name, attempt)
		}

		if attempt < attempts {
			if err := wait(ctx, p.policy.LaunchBackoff); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("failed to launch %s after %d attempts", app.Name, attempts)
}

func (p *Preparer) maximize(ctx context.Context, appName string) error {
	p.logger.Infof("Maximizing %s...", appName)
	attempts := max(p.policy.MaximizeAttempts, 1)
	for attempt := 1; attempt <= attempts; attempt++ {
		p.logger.Infof("  Maximize attempt %d/%d", attempt, attempts)

		// the window can move or close between attempts
		handle, ok := p.windows.Find(appName)
		if !ok {
			return fmt.Errorf("%s window not found", appName)
		}
		if p.windows.Maximize(handle) && p.windows.IsMaximized(handle) {
			p.logger.Infof("[OK] %s successfully maximized on attempt %d", appName, attempt)
			return nil
		}

		if attempt < attempts {
			if err := wait(ctx, p.policy.MaximizeBackoff); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("failed to maximize %s after %d attempts", appName, attempts)
}

func (p *Preparer) verifyReady(appName string) error {
	handle, ok := p.windows.Find(appName)
	if !ok {
		return fmt.Errorf("%s window not found", appName)
	}
	if !p.windows.IsMaximized(handle) {
		return fmt.Errorf("%s is not maximized", appName)
	}
	p.logger.Infof("[OK] %s is ready (open and maximized)", appName)
	return nil
}

// wait sleeps for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
