package entities

import (
	"image"
	"time"
)

// FailureReason classifies why an objective or sequence did not complete
type FailureReason string

const (
	ReasonNone                FailureReason = ""
	ReasonPrerequisitesNotMet FailureReason = "prerequisites_not_met"
	ReasonExecutionFailed     FailureReason = "execution_failed"
	ReasonPreparationFailed   FailureReason = "preparation_failed"
	ReasonSequenceAborted     FailureReason = "sequence_aborted"
	ReasonCancelled           FailureReason = "cancelled"
)

// ExecutionContext is the ephemeral per-objective record an orchestrator run owns.
// It holds the app name, never a window handle: windows are re-resolved on
// every lookup.
type ExecutionContext struct {
	AppName              string
	ObjectiveID          string
	ObjectiveName        string
	SessionID            string
	App                  *AppConfig
	History              []Action
	PreviousScreenshot   image.Image
	ExpectedPage         *PageExpectation
	PrerequisiteTemplate string
}

// NewExecutionContext creates a context with empty history for an objective.
func NewExecutionContext(objective Objective, sessionID string, app *AppConfig) *ExecutionContext {
	appName := objective.App
	if appName == "" && app != nil {
		appName = app.Name
	}
	return &ExecutionContext{
		AppName:              appName,
		ObjectiveID:          objective.ID,
		ObjectiveName:        objective.Name,
		SessionID:            sessionID,
		App:                  app,
		History:              []Action{},
		ExpectedPage:         objective.ExpectedPage,
		PrerequisiteTemplate: objective.PrerequisiteTemplate,
	}
}

// Checkpoint is the persisted progress snapshot of a session
type Checkpoint struct {
	SessionID   string    `json:"session_id"`
	ObjectiveID string    `json:"objective_id"`
	ActionIndex int       `json:"action_index"`
	History     []Action  `json:"history"`
	Timestamp   time.Time `json:"timestamp"`
}

// SessionID derives a session identifier from a timestamp.
func SessionID(t time.Time) string {
	return t.Format("20060102_150405")
}

// Bounds is a window rectangle in screen coordinates
type Bounds struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// WindowHandle is a snapshot of a live OS window at lookup time
type WindowHandle struct {
	PID       int    `json:"pid"`
	Title     string `json:"title"`
	Bounds    Bounds `json:"bounds"`
	Minimized bool   `json:"minimized"`
}

// CloseButton returns the heuristic close-button position: 15 units in from
// the top-right corner.
func (h WindowHandle) CloseButton() Point {
	return Point{X: h.Bounds.X + h.Bounds.W - 15, Y: h.Bounds.Y + 15}
}

// TitleBar returns a point in the middle of the title bar.
func (h WindowHandle) TitleBar() Point {
	return Point{X: h.Bounds.X + h.Bounds.W/2, Y: h.Bounds.Y + 10}
}
