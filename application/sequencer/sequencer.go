// Package sequencer runs objectives one after another, dispatching each to an
// objective-specific handler or to the generic orchestrator path.
package sequencer

import (
	"context"
	"fmt"
	"time"

	"desktop_automation/application/orchestrator"
	"desktop_automation/domain/entities"
	"desktop_automation/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// ObjectiveRunner executes one objective through the generic action loop
type ObjectiveRunner interface {
	RunObjective(ctx context.Context, objective entities.Objective, sessionID string) orchestrator.Result
}

var _ ObjectiveRunner = (*orchestrator.Orchestrator)(nil)

// Report summarizes a sequence run
type Report struct {
	OK          bool
	Reason      entities.FailureReason
	Completed   []string
	FailedID    string
	Unsupported []entities.UnsupportedObjective
}

type Sequencer struct {
	runner   ObjectiveRunner
	handlers *HandlerRegistry
	store    interfaces.CheckpointStore
	notifier interfaces.Notifier
	logger   *logrus.Logger
}

// NewSequencer - creates new objective sequencer
func NewSequencer(runner ObjectiveRunner, handlers *HandlerRegistry, store interfaces.CheckpointStore, notifier interfaces.Notifier, logger *logrus.Logger) *Sequencer {
	if handlers == nil {
		handlers = NewHandlerRegistry()
	}
	return &Sequencer{
		runner:   runner,
		handlers: handlers,
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// Run - executes the supported objectives in order and stops at the first failure
func (s *Sequencer) Run(ctx context.Context, objectives []entities.Objective, sessionID string) bool {
	return s.RunReport(ctx, objectives, sessionID).OK
}

// RunReport - like Run, returning what completed and what failed
func (s *Sequencer) RunReport(ctx context.Context, objectives []entities.Objective, sessionID string) Report {
	if sessionID == "" {
		sessionID = entities.SessionID(time.Now())
	}

	supported, unsupported := Partition(objectives)
	report := Report{Unsupported: unsupported}
	if len(unsupported) > 0 {
		s.logger.Infof("Skipping %d unsupported objective(s)", len(unsupported))
		s.notifier.NotifyUnsupported(unsupported)
	}

	if len(supported) == 0 {
		s.logger.Info("No supported objectives to execute")
		report.OK = true
		return report
	}

	s.logger.WithField("session", sessionID).Infof("Starting workflow for %d objective(s)", len(supported))
	for i, objective := range supported {
		if err := ctx.Err(); err != nil {
			s.logger.Warnf("[FAIL] Sequence cancelled before '%s'", objective.Name)
			report.Reason = entities.ReasonCancelled
			report.FailedID = objective.ID
			return report
		}

		s.logger.Infof("[%d/%d] Starting: %s", i+1, len(supported), objective.Name)
		s.checkpoint(sessionID, objective.ID)

		result := s.dispatch(ctx, objective, sessionID)
		if !result.OK {
			s.logger.Errorf("[FAIL] Objective '%s' failed", objective.Name)
			report.Reason = entities.ReasonSequenceAborted
			report.FailedID = objective.ID
			if result.Reason != entities.ReasonCancelled {
				s.notifier.NotifyError(failureMessage(result), objective.Name)
			}
			return report
		}

		report.Completed = append(report.Completed, objective.ID)
		s.logger.Infof("[OK] Objective '%s' completed successfully", objective.Name)
	}

	s.logger.Infof("[OK] All %d objectives completed successfully", len(supported))
	report.OK = true
	return report
}

func (s *Sequencer) dispatch(ctx context.Context, objective entities.Objective, sessionID string) (result orchestrator.Result) {
	handler, ok := s.handlers.Lookup(objective.ID)
	if !ok {
		return s.runner.RunObjective(ctx, objective, sessionID)
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("  [ERROR] Handler for '%s' panicked: %v", objective.ID, r)
			result = orchestrator.Result{
				Reason:      entities.ReasonExecutionFailed,
				Message:     fmt.Sprintf("handler panicked: %v", r),
				FailedIndex: -1,
			}
		}
	}()

	s.logger.Infof("  [DISPATCH] Found handler for objective id '%s' - delegating", objective.ID)
	return handler.Handle(ctx, objective, sessionID)
}

func (s *Sequencer) checkpoint(sessionID, objectiveID string) {
	if s.store == nil {
		return
	}
	cp := entities.Checkpoint{
		SessionID:   sessionID,
		ObjectiveID: objectiveID,
		ActionIndex: 0,
		History:     []entities.Action{},
		Timestamp:   time.Now(),
	}
	if err := s.store.Save(cp); err != nil {
		s.logger.Warnf("  [WARN] Failed to save checkpoint: %v", err)
	}
}

// Partition splits objectives into supported ones and reporting records for the rest.
func Partition(objectives []entities.Objective) ([]entities.Objective, []entities.UnsupportedObjective) {
	var supported []entities.Objective
	var unsupported []entities.UnsupportedObjective
	for _, o := range objectives {
		if o.Supported {
			supported = append(supported, o)
		} else {
			unsupported = append(unsupported, o.AsUnsupported())
		}
	}
	return supported, unsupported
}

func failureMessage(result orchestrator.Result) string {
	reason := result.Reason
	if reason == entities.ReasonNone {
		reason = entities.ReasonExecutionFailed
	}
	if result.Message == "" {
		return fmt.Sprintf("Objective failed: %s", reason)
	}
	return fmt.Sprintf("Objective failed (%s): %s", reason, result.Message)
}
