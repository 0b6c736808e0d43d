package entities

// Objective is a named, ordered list of actions representing one automation goal
type Objective struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	App       string   `json:"app,omitempty" yaml:"app,omitempty"`
	Actions   []Action `json:"actions" yaml:"actions"`
	Supported bool     `json:"supported" yaml:"supported"`
	Reason    string   `json:"reason,omitempty" yaml:"reason,omitempty"`

	ExpectedPage         *PageExpectation `json:"expected_page,omitempty" yaml:"expected_page,omitempty"`
	PrerequisiteTemplate string           `json:"prerequisite_template,omitempty" yaml:"prerequisite_template,omitempty"`
}

// UnsupportedObjective is the reporting record for an objective that is never executed
type UnsupportedObjective struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	App    string `json:"app,omitempty" yaml:"app,omitempty"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// AsUnsupported converts an objective into its reporting record.
func (o Objective) AsUnsupported() UnsupportedObjective {
	reason := o.Reason
	if reason == "" {
		reason = "Not supported in current system"
	}
	return UnsupportedObjective{ID: o.ID, Name: o.Name, App: o.App, Reason: reason}
}

// ObjectiveStatus represents the status of an objective in a run
type ObjectiveStatus string

const (
	ObjectiveStatusPending     ObjectiveStatus = "pending"
	ObjectiveStatusInProgress  ObjectiveStatus = "in_progress"
	ObjectiveStatusCompleted   ObjectiveStatus = "completed"
	ObjectiveStatusFailed      ObjectiveStatus = "failed"
	ObjectiveStatusUnsupported ObjectiveStatus = "unsupported"
)

// AppConfig describes how to launch and identify an application
type AppConfig struct {
	Name                  string   `json:"name" yaml:"name"`
	Path                  string   `json:"path" yaml:"path"`
	StartupDelay          *float64 `json:"startup_delay,omitempty" yaml:"startup_delay,omitempty"`
	Args                  []string `json:"args,omitempty" yaml:"args,omitempty"`
	VerificationTemplates []string `json:"verification_templates,omitempty" yaml:"verification_templates,omitempty"`
}

// StartupDelaySeconds returns the launch settle time, 2 seconds when unset.
func (a AppConfig) StartupDelaySeconds() float64 {
	if a.StartupDelay == nil {
		return 2
	}
	return *a.StartupDelay
}
