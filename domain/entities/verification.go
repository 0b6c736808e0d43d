package entities

import "time"

// PrerequisiteKind is a condition checked before an action runs
type PrerequisiteKind string

const (
	PrereqAppMaximized   PrerequisiteKind = "app_maximized"
	PrereqPageLoaded     PrerequisiteKind = "page_loaded"
	PrereqCorrectPage    PrerequisiteKind = "correct_page"
	PrereqSearchComplete PrerequisiteKind = "search_complete"
	PrereqElementPresent PrerequisiteKind = "element_present"
)

// VerificationType selects how an action's completion is checked
type VerificationType string

const (
	VerifyTemplateMatch     VerificationType = "template_match"
	VerifyScreenChange      VerificationType = "screen_change"
	VerifyElementAtLocation VerificationType = "element_at_location"
	VerifyOCRText           VerificationType = "ocr_text"
	VerifyWait              VerificationType = "wait"
)

// VerificationSpec describes the completion check run after an action
type VerificationSpec struct {
	Type             VerificationType `json:"type" yaml:"type"`
	Template         string           `json:"template,omitempty" yaml:"template,omitempty"`
	Threshold        *float64         `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Timeout          *float64         `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Location         *Region          `json:"location,omitempty" yaml:"location,omitempty"`
	Region           *Region          `json:"region,omitempty" yaml:"region,omitempty"`
	Text             string           `json:"text,omitempty" yaml:"text,omitempty"`
	FallbackTemplate string           `json:"fallback_template,omitempty" yaml:"fallback_template,omitempty"`
	Duration         *float64         `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// ThresholdOr returns the match threshold, 0.8 when unset.
func (v VerificationSpec) ThresholdOr() float64 {
	if v.Threshold == nil {
		return DefaultConfidence
	}
	return *v.Threshold
}

// TimeoutOr returns the template wait timeout, 5 seconds when unset.
func (v VerificationSpec) TimeoutOr() time.Duration {
	if v.Timeout == nil {
		return 5 * time.Second
	}
	return Seconds(*v.Timeout)
}

// WaitDuration returns the sleep of a wait verification, 1 second when unset.
func (v VerificationSpec) WaitDuration() time.Duration {
	if v.Duration == nil {
		return time.Second
	}
	return Seconds(*v.Duration)
}

// ErrorStrategy selects how an objective recovers from a failed action
type ErrorStrategy string

const (
	StrategyRetryPrevious ErrorStrategy = "retry_previous"
	StrategyEmailDev      ErrorStrategy = "email_dev"
	StrategyRollbackAll   ErrorStrategy = "rollback_all"
)

// PageExpectation describes how correct_page identifies the expected page
type PageExpectation struct {
	Title    string  `json:"title,omitempty" yaml:"title,omitempty"`
	Text     string  `json:"text,omitempty" yaml:"text,omitempty"`
	Region   *Region `json:"region,omitempty" yaml:"region,omitempty"`
	Template string  `json:"template,omitempty" yaml:"template,omitempty"`
}
