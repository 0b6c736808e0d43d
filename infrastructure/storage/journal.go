package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"desktop_automation/domain/entities"
	"desktop_automation/domain/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Journal keeps every checkpoint ever written in a SQLite database
type Journal struct {
	db *sql.DB
}

var _ interfaces.Journal = (*Journal)(nil)

// OpenJournal - opens (creating if needed) the journal database at path
func OpenJournal(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return j, nil
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS checkpoints (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		objective_id TEXT NOT NULL,
		action_index INTEGER NOT NULL,
		history TEXT NOT NULL,
		recorded_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_checkpoints_session ON checkpoints(session_id, recorded_at);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Close - closes the database
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record - appends a checkpoint row
func (j *Journal) Record(checkpoint entities.Checkpoint) error {
	history := checkpoint.History
	if history == nil {
		history = []entities.Action{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	ts := checkpoint.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err = j.db.Exec(
		`INSERT INTO checkpoints (id, session_id, objective_id, action_index, history, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), checkpoint.SessionID, checkpoint.ObjectiveID, checkpoint.ActionIndex, string(data), ts.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert checkpoint: %w", err)
	}
	return nil
}

// Entries - returns the checkpoints of a session in the order they were recorded
func (j *Journal) Entries(sessionID string) ([]entities.Checkpoint, error) {
	rows, err := j.db.Query(
		`SELECT session_id, objective_id, action_index, history, recorded_at FROM checkpoints WHERE session_id = ? ORDER BY recorded_at, rowid`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query checkpoints: %w", err)
	}
	defer rows.Close()

	var entries []entities.Checkpoint
	for rows.Next() {
		var (
			cp      entities.Checkpoint
			history string
		)
		if err := rows.Scan(&cp.SessionID, &cp.ObjectiveID, &cp.ActionIndex, &history, &cp.Timestamp); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		if err := json.Unmarshal([]byte(history), &cp.History); err != nil {
			return nil, fmt.Errorf("decode history: %w", err)
		}
		entries = append(entries, cp)
	}
	return entries, rows.Err()
}

// Sessions - lists recorded session ids, most recent first
func (j *Journal) Sessions() ([]string, error) {
	rows, err := j.db.Query(`SELECT session_id FROM checkpoints GROUP BY session_id ORDER BY MAX(recorded_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, id)
	}
	return sessions, rows.Err()
}

// JournalingStore saves checkpoints to a primary store and mirrors them into a journal
type JournalingStore struct {
	primary interfaces.CheckpointStore
	journal interfaces.Journal
	logger  *logrus.Logger
}

var _ interfaces.CheckpointStore = (*JournalingStore)(nil)

// NewJournalingStore - creates a store that fans out to primary and journal
func NewJournalingStore(primary interfaces.CheckpointStore, journal interfaces.Journal, logger *logrus.Logger) *JournalingStore {
	return &JournalingStore{primary: primary, journal: journal, logger: logger}
}

// Save - writes the primary checkpoint; journal failures are only logged
func (s *JournalingStore) Save(checkpoint entities.Checkpoint) error {
	if err := s.primary.Save(checkpoint); err != nil {
		return err
	}
	if err := s.journal.Record(checkpoint); err != nil {
		s.logger.Warnf("  [WARN] Failed to journal checkpoint: %v", err)
	}
	return nil
}

// Load - reads from the primary store
func (s *JournalingStore) Load(sessionID string) (*entities.Checkpoint, error) {
	return s.primary.Load(sessionID)
}
