package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"desktop_automation/domain/entities"
	"desktop_automation/domain/interfaces"
)

type checkpointState struct {
	dir string
}

var _ interfaces.CheckpointStore = (*checkpointState)(nil)

// DefaultCheckpointDir returns ~/.desktop_automation/checkpoints.
func DefaultCheckpointDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".desktop_automation", "checkpoints")
	}
	return filepath.Join(homeDir, ".desktop_automation", "checkpoints")
}

// NewCheckpointState - creates new file-per-session checkpoint storage
func NewCheckpointState(dir string) (interfaces.CheckpointStore, error) {
	if dir == "" {
		dir = DefaultCheckpointDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &checkpointState{dir: dir}, nil
}

// Save - overwrites the session checkpoint file
func (s *checkpointState) Save(checkpoint entities.Checkpoint) error {
	if checkpoint.SessionID == "" {
		return fmt.Errorf("checkpoint has no session id")
	}
	if checkpoint.History == nil {
		checkpoint.History = []entities.Action{}
	}

	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := os.WriteFile(s.path(checkpoint.SessionID), data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

// Load - reads the session checkpoint file
func (s *checkpointState) Load(sessionID string) (*entities.Checkpoint, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var checkpoint entities.Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return &checkpoint, nil
}

func (s *checkpointState) path(sessionID string) string {
	return filepath.Join(s.dir, filepath.Base(sessionID)+".json")
}
