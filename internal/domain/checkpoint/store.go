package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const fileName = "checkpoint.json"

// Store reads and writes checkpoint files under
// <root>/<project_id>/<run_id>/checkpoint.json.
type Store struct {
	root string
	now  func() time.Time
}

// NewStore returns a store rooted at the given directory.
func NewStore(root string) *Store {
	return &Store{root: root, now: time.Now}
}

// Path returns the checkpoint file location for a project and run.
func (s *Store) Path(projectID int64, runID string) string {
	return filepath.Join(s.root, strconv.FormatInt(projectID, 10), runID, fileName)
}

// Load returns the stored checkpoint, or a fresh one when no file
// exists yet.
func (s *Store) Load(projectID int64, runID string) (*Checkpoint, error) {
	data, err := os.ReadFile(s.Path(projectID, runID))
	if errors.Is(err, fs.ErrNotExist) {
		return New(projectID, runID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse checkpoint: %w", err)
	}
	if c.PartialState == nil {
		c.PartialState = map[string]json.RawMessage{}
	}
	if c.CompletedComponents == nil {
		c.CompletedComponents = []string{}
	}
	return &c, nil
}

// Save stamps the checkpoint and writes it atomically so a crash never
// leaves a torn file behind.
func (s *Store) Save(c *Checkpoint) error {
	c.LastCheckpointAt = s.now().UTC()

	path := s.Path(c.ProjectID, c.RunID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), fileName+".*")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}

// Delete removes the checkpoint so the next run starts fresh.
func (s *Store) Delete(projectID int64, runID string) error {
	err := os.Remove(s.Path(projectID, runID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}
