package model

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/enroll-data/footfall.report/internal/fsutil"
	"github.com/enroll-data/footfall.report/internal/monitoring"
)

// Artifact wraps a trained model with its identity and evaluation. One JSON
// file per artifact; current.json always points at the serving model.
type Artifact struct {
	ID      string  `json:"id"`
	Model   *GBT    `json:"model"`
	Metrics Metrics `json:"metrics"`
}

// Store persists model artifacts under a single directory. Every trained
// model is kept under its own ID; promotion to current.json is an atomic
// rename, so a serving process never reads a half-written model.
type Store struct {
	dir  string
	fsys fsutil.FileSystem
}

const currentName = "current.json"

// NewStore opens (creating if needed) an artifact store rooted at dir.
func NewStore(dir string, fsys fsutil.FileSystem) (*Store, error) {
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create model dir %s: %w", dir, err)
	}
	return &Store{dir: dir, fsys: fsys}, nil
}

// Save assigns the model a fresh artifact ID, writes it under that ID, and
// promotes it to the current artifact. Returns the stored artifact.
func (s *Store) Save(m *GBT, metrics Metrics) (*Artifact, error) {
	art := &Artifact{ID: uuid.NewString(), Model: m, Metrics: metrics}
	data, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return nil, err
	}

	versioned := filepath.Join(s.dir, art.ID+".json")
	if err := s.fsys.WriteFile(versioned, data, 0644); err != nil {
		return nil, fmt.Errorf("write model artifact: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.fsys, filepath.Join(s.dir, currentName), data, 0644); err != nil {
		return nil, fmt.Errorf("promote model artifact: %w", err)
	}
	monitoring.Logf("saved model artifact %s (mae %.2f, r2 %.3f)", art.ID, metrics.MAE, metrics.R2)
	return art, nil
}

// LoadCurrent reads the serving artifact.
func (s *Store) LoadCurrent() (*Artifact, error) {
	return s.load(filepath.Join(s.dir, currentName))
}

// Load reads a specific artifact by ID.
func (s *Store) Load(id string) (*Artifact, error) {
	return s.load(filepath.Join(s.dir, id+".json"))
}

// HasCurrent reports whether a serving artifact exists.
func (s *Store) HasCurrent() bool {
	return s.fsys.Exists(filepath.Join(s.dir, currentName))
}

func (s *Store) load(path string) (*Artifact, error) {
	data, err := s.fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("parse model artifact %s: %w", path, err)
	}
	if art.Model == nil || len(art.Model.Stumps) == 0 {
		return nil, fmt.Errorf("model artifact %s: %w", path, ErrUntrained)
	}
	return &art, nil
}
