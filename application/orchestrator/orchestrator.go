// Package orchestrator runs an objective's actions under a bounded retry
// budget, verifies each one and recovers from failures with an error strategy.
package orchestrator

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"desktop_automation/application/verification"
	"desktop_automation/domain/entities"
	"desktop_automation/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// ActionExecutor performs one action and reports success
type ActionExecutor interface {
	Execute(action entities.Action) bool
}

// Result is the outcome of one objective run
type Result struct {
	OK      bool
	Reason  entities.FailureReason
	Message string
	// History holds the actions that completed, in order
	History []entities.Action
	// FailedIndex is the index of the failing action, -1 when none failed
	FailedIndex int
}

type Orchestrator struct {
	executor ActionExecutor
	verifier *verification.Engine
	probe    interfaces.ScreenProbe
	windows  interfaces.WindowController
	input    interfaces.InputDevice
	store    interfaces.CheckpointStore
	notifier interfaces.Notifier
	policy   Policy
	observer StateObserver
	apps     AppResolver
	logger   *logrus.Logger
}

// AppResolver looks up an app configuration by name; an empty name means the
// default app
type AppResolver func(name string) (entities.AppConfig, bool)

// NewOrchestrator - creates new objective orchestrator
func NewOrchestrator(
	executor ActionExecutor,
	verifier *verification.Engine,
	probe interfaces.ScreenProbe,
	windows interfaces.WindowController,
	input interfaces.InputDevice,
	store interfaces.CheckpointStore,
	notifier interfaces.Notifier,
	policy Policy,
	logger *logrus.Logger,
) *Orchestrator {
	return &Orchestrator{
		executor: executor,
		verifier: verifier,
		probe:    probe,
		windows:  windows,
		input:    input,
		store:    store,
		notifier: notifier,
		policy:   policy,
		logger:   logger,
	}
}

// SetObserver - installs a hook receiving every action state transition
func (o *Orchestrator) SetObserver(observer StateObserver) {
	o.observer = observer
}

// SetAppResolver - installs the lookup that fills the context's app config.
// Objectives without an app then run against the resolved default app.
func (o *Orchestrator) SetAppResolver(resolve AppResolver) {
	o.apps = resolve
}

func (o *Orchestrator) resolveApp(name string) *entities.AppConfig {
	if o.apps == nil {
		return nil
	}
	app, ok := o.apps(name)
	if !ok {
		return nil
	}
	return &app
}

// RunObjective - executes every action of the objective in order
func (o *Orchestrator) RunObjective(ctx context.Context, objective entities.Objective, sessionID string) Result {
	ectx := entities.NewExecutionContext(objective, sessionID, o.resolveApp(objective.App))

	o.logger.WithFields(logrus.Fields{
		"objective": objective.ID,
		"actions":   len(objective.Actions),
	}).Infof("Executing objective: %s", objective.Name)

	for i, action := range objective.Actions {
		o.logger.Infof("Action %d/%d: %s", i+1, len(objective.Actions), action.Type)

		reason, err := o.runAction(ctx, i, action, ectx)
		if err != nil {
			return o.fail(objective, i, action, ectx, reason, err)
		}

		o.transition(i, action, StateCompleted)
		ectx.History = append(ectx.History, action)
		o.checkpoint(ectx, i+1)
	}

	o.logger.Infof("[OK] Objective '%s' completed", objective.Name)
	return Result{OK: true, History: copyHistory(ectx.History), FailedIndex: -1}
}

// runAction drives one action through its prerequisites and attempt budget.
func (o *Orchestrator) runAction(ctx context.Context, index int, action entities.Action, ectx *entities.ExecutionContext) (entities.FailureReason, error) {
	o.transition(index, action, StatePending)
	if !o.verifier.VerifyPrerequisites(action.Prerequisites, ectx) {
		return entities.ReasonPrerequisitesNotMet, fmt.Errorf("prerequisites not met for %s", action.Type)
	}

	attempts := o.policy.attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return entities.ReasonCancelled, fmt.Errorf("objective cancelled: %w", err)
		}

		o.logger.WithFields(logrus.Fields{
			"action":  action.Type,
			"attempt": attempt,
			"of":      attempts,
		}).Debug("  Attempting action")

		lastErr = o.attempt(index, action, ectx)
		if lastErr == nil {
			return entities.ReasonNone, nil
		}
		o.logger.Warnf("  [FAIL] Attempt %d/%d: %v", attempt, attempts, lastErr)

		if attempt < attempts {
			o.transition(index, action, StateRetrying)
			o.logger.Infof("  Retrying in %s...", o.policy.Backoff)
			if err := sleep(ctx, o.policy.Backoff); err != nil {
				return entities.ReasonCancelled, fmt.Errorf("objective cancelled: %w", err)
			}
		}
	}
	return entities.ReasonExecutionFailed, fmt.Errorf("%s failed after %d attempts: %w", action.Type, attempts, lastErr)
}

// attempt performs a single execution and verification pass.
func (o *Orchestrator) attempt(index int, action entities.Action, ectx *entities.ExecutionContext) error {
	o.transition(index, action, StateExecuting)

	if !o.verifier.ScreenStable(o.policy.StabilityTimeout, o.policy.StabilityInterval) {
		o.logger.Debug("  Screen not stable, proceeding anyway")
	}
	o.focus(ectx.AppName)

	before, err := o.probe.Capture()
	if err != nil {
		o.logger.Warnf("  [WARN] Failed to capture screen before action: %v", err)
		before = nil
	}
	ectx.PreviousScreenshot = before

	if !o.executor.Execute(action) {
		return fmt.Errorf("execution of %s failed", action.Type)
	}

	if action.Type.IsClick() && before != nil {
		if after, err := o.probe.Capture(); err == nil && !o.probe.Differs(before, after, verification.ChangeThreshold) {
			if o.policy.StrictScreenChange {
				return fmt.Errorf("screen did not change after %s", action.Type)
			}
			o.logger.Warnf("  [WARN] Screen did not change after %s", action.Type)
		}
	}

	if action.Verification != nil {
		o.transition(index, action, StateVerifying)
		if !o.verifier.VerifyCompletion(action.Verification, ectx) {
			return fmt.Errorf("verification %s failed", action.Verification.Type)
		}
	}
	return nil
}

// focus brings the app window forward, best effort.
func (o *Orchestrator) focus(appName string) {
	if appName == "" {
		return
	}
	handle, ok := o.windows.Find(appName)
	if !ok {
		o.logger.Debugf("  Window for %s not found, skipping focus", appName)
		return
	}
	if o.windows.Focus(handle) {
		time.Sleep(o.policy.FocusDelay)
	}
}

// fail applies the failing action's error strategy and builds the result.
func (o *Orchestrator) fail(objective entities.Objective, index int, action entities.Action, ectx *entities.ExecutionContext, reason entities.FailureReason, cause error) Result {
	o.transition(index, action, StateFailed)
	result := Result{
		Reason:      reason,
		Message:     cause.Error(),
		History:     copyHistory(ectx.History),
		FailedIndex: index,
	}

	if reason == entities.ReasonCancelled {
		o.logger.Warnf("[FAIL] Objective '%s' cancelled at action %d", objective.Name, index+1)
		return result
	}

	o.logger.Errorf("[FAIL] Objective '%s' failed at action %d: %v", objective.Name, index+1, cause)
	message := fmt.Sprintf("Objective '%s' failed at action %d (%s): %s", objective.Name, index+1, action.Type, reason)

	switch action.Strategy() {
	case entities.StrategyRetryPrevious:
		o.logger.Info("  [STRATEGY] Retrying previous action...")
		if len(ectx.History) == 0 {
			o.logger.Warn("  [WARN] No previous action to retry")
			return result
		}
		previous := ectx.History[len(ectx.History)-1]
		o.logger.Infof("  Retrying: %s", previous.Type)
		if o.executor.Execute(previous) {
			result.OK = true
			result.Reason = entities.ReasonNone
		}
		return result

	case entities.StrategyEmailDev:
		o.logger.Info("  [STRATEGY] Notifying developer...")
		o.notifier.NotifyError(message, objective.Name)

	default:
		o.logger.Info("  [STRATEGY] Rolling back all actions...")
		o.Rollback(ectx.History)
		o.notifier.NotifyError(message, objective.Name)
	}
	return result
}

// Rollback - applies a best-effort inverse of each action in reverse order
func (o *Orchestrator) Rollback(history []entities.Action) {
	if len(history) == 0 {
		o.logger.Info("  No actions to roll back")
		return
	}

	for i := len(history) - 1; i >= 0; i-- {
		o.reverse(history[i])
		if i > 0 {
			time.Sleep(o.policy.RollbackSettle)
		}
	}
	o.logger.Infof("  [OK] Rolled back %d action(s)", len(history))
}

func (o *Orchestrator) reverse(action entities.Action) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Errorf("  [ERROR] Rollback of %s panicked: %v", action.Type, r)
		}
	}()

	if !action.Reversible() {
		o.logger.Warnf("  [ROLLBACK] Cannot reverse %s automatically", action.Type)
		return
	}

	var err error
	switch action.Type {
	case entities.ActionTypeText:
		o.logger.Info("  [ROLLBACK] Clearing typed text")
		if err = o.input.Hotkey(PrimaryModifier(), "a"); err == nil {
			err = o.input.Press("backspace")
		}
	case entities.ActionHotkey:
		o.logger.Info("  [ROLLBACK] Undoing hotkey")
		err = o.input.Hotkey(PrimaryModifier(), "z")
	case entities.ActionClickImage, entities.ActionClickText:
		o.logger.Info("  [ROLLBACK] Dismissing click result")
		err = o.input.Press("escape")
	}
	if err != nil {
		o.logger.Warnf("  [ROLLBACK] Failed to reverse %s: %v", action.Type, err)
	}
}

// PrimaryModifier returns the platform shortcut modifier: cmd on macOS, ctrl elsewhere.
func PrimaryModifier() string {
	if runtime.GOOS == "darwin" {
		return "cmd"
	}
	return "ctrl"
}

func (o *Orchestrator) checkpoint(ectx *entities.ExecutionContext, index int) {
	if o.store == nil {
		return
	}
	cp := entities.Checkpoint{
		SessionID:   ectx.SessionID,
		ObjectiveID: ectx.ObjectiveID,
		ActionIndex: index,
		History:     copyHistory(ectx.History),
		Timestamp:   time.Now(),
	}
	if err := o.store.Save(cp); err != nil {
		o.logger.Warnf("  [WARN] Failed to save checkpoint: %v", err)
	}
}

func (o *Orchestrator) transition(index int, action entities.Action, state State) {
	if o.observer != nil {
		o.observer(index, string(action.Type), state)
	}
}

func copyHistory(history []entities.Action) []entities.Action {
	return append([]entities.Action{}, history...)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
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
