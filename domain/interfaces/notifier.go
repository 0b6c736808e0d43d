package interfaces

import "desktop_automation/domain/entities"

// Notifier delivers failure reports to a developer
type Notifier interface {
	// NotifyError sends an error report about an objective (or app) by name
	NotifyError(message, subject string)

	// NotifyUnsupported sends one batched report of objectives that will not run
	NotifyUnsupported(objectives []entities.UnsupportedObjective)
}
