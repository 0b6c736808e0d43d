package entities

import "time"

// ActionType represents the type of UI operation an action performs
type ActionType string

const (
	ActionTypeText    ActionType = "type_text"
	ActionHotkey      ActionType = "hotkey"
	ActionKeyPress    ActionType = "key_press"
	ActionWait        ActionType = "wait"
	ActionClickImage  ActionType = "click_image"
	ActionClickText   ActionType = "click_text"
	ActionVerifyText  ActionType = "verify_text"
	ActionWaitForText ActionType = "wait_for_text"
	ActionCloseWindow ActionType = "close_window"
)

// Known reports whether t is one of the canonical action types.
func (t ActionType) Known() bool {
	switch t {
	case ActionTypeText, ActionHotkey, ActionKeyPress, ActionWait,
		ActionClickImage, ActionClickText, ActionVerifyText, ActionWaitForText,
		ActionCloseWindow:
		return true
	}
	return false
}

// IsClick reports whether the action is expected to visibly change the screen.
func (t ActionType) IsClick() bool {
	return t == ActionClickImage || t == ActionClickText || t == ActionCloseWindow
}

// TextHint is a directional hint used to prioritize OCR crop regions
type TextHint string

const (
	HintNone   TextHint = ""
	HintTop    TextHint = "top"
	HintBottom TextHint = "bottom"
	HintLeft   TextHint = "left"
	HintRight  TextHint = "right"
)

const (
	DefaultConfidence    = 0.8
	DefaultTextTimeout   = 10.0
	DefaultCheckInterval = 0.5
	DefaultWaitDuration  = 1.0
)

// Action is one atomic UI operation loaded from an objective file.
// Actions are configuration values and are never mutated during execution.
type Action struct {
	Type ActionType `json:"type" yaml:"type"`

	Text     string   `json:"text,omitempty" yaml:"text,omitempty"`
	Keys     []string `json:"keys,omitempty" yaml:"keys,omitempty"`
	Key      string   `json:"key,omitempty" yaml:"key,omitempty"`
	Duration *float64 `json:"duration,omitempty" yaml:"duration,omitempty"`

	Template   string   `json:"template,omitempty" yaml:"template,omitempty"`
	Confidence *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	OffsetX    int      `json:"offset_x,omitempty" yaml:"offset_x,omitempty"`
	OffsetY    int      `json:"offset_y,omitempty" yaml:"offset_y,omitempty"`

	Region        *Region  `json:"region,omitempty" yaml:"region,omitempty"`
	UseSmartCrop  *bool    `json:"use_smart_crop,omitempty" yaml:"use_smart_crop,omitempty"`
	TextHint      TextHint `json:"text_hint,omitempty" yaml:"text_hint,omitempty"`
	Timeout       *float64 `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	CheckInterval *float64 `json:"check_interval,omitempty" yaml:"check_interval,omitempty"`

	AppName           string `json:"app_name,omitempty" yaml:"app_name,omitempty"`
	DismissSaveDialog bool   `json:"dismiss_save_dialog,omitempty" yaml:"dismiss_save_dialog,omitempty"`

	Prerequisites []PrerequisiteKind `json:"prerequisites,omitempty" yaml:"prerequisites,omitempty"`
	Verification  *VerificationSpec  `json:"verification,omitempty" yaml:"verification,omitempty"`
	ErrorStrategy ErrorStrategy      `json:"error_strategy,omitempty" yaml:"error_strategy,omitempty"`
}

// Strategy returns the error strategy, falling back to rollback_all.
func (a Action) Strategy() ErrorStrategy {
	if a.ErrorStrategy == "" {
		return StrategyRollbackAll
	}
	return a.ErrorStrategy
}

// Reversible reports whether the action has a defined semantic inverse.
func (a Action) Reversible() bool {
	switch a.Type {
	case ActionTypeText, ActionHotkey, ActionClickImage, ActionClickText:
		return true
	}
	return false
}

// ConfidenceOr returns the configured confidence or the default threshold.
func (a Action) ConfidenceOr() float64 {
	if a.Confidence == nil {
		return DefaultConfidence
	}
	return *a.Confidence
}

// WaitDuration returns the wait duration, one second when unset.
func (a Action) WaitDuration() time.Duration {
	if a.Duration == nil {
		return Seconds(DefaultWaitDuration)
	}
	return Seconds(*a.Duration)
}

// TextTimeout returns the wait_for_text timeout.
func (a Action) TextTimeout() time.Duration {
	if a.Timeout == nil {
		return Seconds(DefaultTextTimeout)
	}
	return Seconds(*a.Timeout)
}

// PollInterval returns the wait_for_text check interval.
func (a Action) PollInterval() time.Duration {
	if a.CheckInterval == nil || *a.CheckInterval <= 0 {
		return Seconds(DefaultCheckInterval)
	}
	return Seconds(*a.CheckInterval)
}

// SmartCrop reports whether smart cropping is enabled (default true).
func (a Action) SmartCrop() bool {
	return a.UseSmartCrop == nil || *a.UseSmartCrop
}

// Seconds converts a configuration value in seconds to a time.Duration.
func Seconds(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}

// Float returns a pointer to v. Intended for building actions in code.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
