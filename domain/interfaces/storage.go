package interfaces

import "desktop_automation/domain/entities"

// CheckpointStore persists session progress
type CheckpointStore interface {
	// Save overwrites the checkpoint of the session
	Save(checkpoint entities.Checkpoint) error

	// Load returns the last checkpoint of a session, nil when none exists
	Load(sessionID string) (*entities.Checkpoint, error)
}

// Journal is an append-only record of every checkpoint written
type Journal interface {
	Record(checkpoint entities.Checkpoint) error
	Entries(sessionID string) ([]entities.Checkpoint, error)
}
