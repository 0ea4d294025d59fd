// Package config loads the pipeline configuration: holiday calendar
// overrides, synthetic generator settings, and model hyperparameters.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/enroll-data/footfall.report/internal/schema"
)

// PipelineConfig is the root configuration. All fields are optional
// pointers; omitted fields fall back to the Get* defaults, so partial
// configs are safe.
type PipelineConfig struct {
	// Holidays overrides the built-in holiday calendar (YYYY-MM-DD each).
	Holidays []string `json:"holidays,omitempty"`

	// Synthetic generator params
	GeneratorSeed  *int64  `json:"generator_seed,omitempty"`
	GeneratorStart *string `json:"generator_start,omitempty"` // YYYY-MM-DD
	GeneratorEnd   *string `json:"generator_end,omitempty"`   // YYYY-MM-DD

	// Model params
	ModelRounds  *int     `json:"model_rounds,omitempty"`
	LearningRate *float64 `json:"learning_rate,omitempty"`
	MinLeaf      *int     `json:"min_leaf,omitempty"`

	// ModelsDir is where trained artifacts are kept.
	ModelsDir *string `json:"models_dir,omitempty"`
}

// EmptyPipelineConfig returns a config with every field unset.
func EmptyPipelineConfig() *PipelineConfig {
	return &PipelineConfig{}
}

// LoadPipelineConfig loads a PipelineConfig from a JSON file. The file must
// have a .json extension and stay under the max file size.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyPipelineConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *PipelineConfig) Validate() error {
	for _, h := range c.Holidays {
		if _, err := time.Parse(schema.DateLayout, h); err != nil {
			return fmt.Errorf("invalid holiday %q: want %s", h, schema.DateLayout)
		}
	}
	if c.GeneratorStart != nil {
		if _, err := time.Parse(schema.DateLayout, *c.GeneratorStart); err != nil {
			return fmt.Errorf("invalid generator_start %q: want %s", *c.GeneratorStart, schema.DateLayout)
		}
	}
	if c.GeneratorEnd != nil {
		if _, err := time.Parse(schema.DateLayout, *c.GeneratorEnd); err != nil {
			return fmt.Errorf("invalid generator_end %q: want %s", *c.GeneratorEnd, schema.DateLayout)
		}
	}
	if c.ModelRounds != nil && *c.ModelRounds <= 0 {
		return fmt.Errorf("model_rounds must be positive, got %d", *c.ModelRounds)
	}
	if c.LearningRate != nil && (*c.LearningRate <= 0 || *c.LearningRate > 1) {
		return fmt.Errorf("learning_rate must be in (0, 1], got %f", *c.LearningRate)
	}
	if c.MinLeaf != nil && *c.MinLeaf <= 0 {
		return fmt.Errorf("min_leaf must be positive, got %d", *c.MinLeaf)
	}
	return nil
}

// GetGeneratorSeed returns the generator seed or the default.
func (c *PipelineConfig) GetGeneratorSeed() int64 {
	if c.GeneratorSeed == nil {
		return 42
	}
	return *c.GeneratorSeed
}

// GetGeneratorStart returns the generator start date or the default.
func (c *PipelineConfig) GetGeneratorStart() time.Time {
	return c.dateOrDefault(c.GeneratorStart, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
}

// GetGeneratorEnd returns the generator end date or the default.
func (c *PipelineConfig) GetGeneratorEnd() time.Time {
	return c.dateOrDefault(c.GeneratorEnd, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))
}

func (c *PipelineConfig) dateOrDefault(s *string, def time.Time) time.Time {
	if s == nil || *s == "" {
		return def
	}
	t, err := time.Parse(schema.DateLayout, *s)
	if err != nil {
		return def
	}
	return t
}

// GetModelRounds returns the boosting round count or the default.
func (c *PipelineConfig) GetModelRounds() int {
	if c.ModelRounds == nil {
		return 300
	}
	return *c.ModelRounds
}

// GetLearningRate returns the learning rate or the default.
func (c *PipelineConfig) GetLearningRate() float64 {
	if c.LearningRate == nil {
		return 0.1
	}
	return *c.LearningRate
}

// GetMinLeaf returns the minimum leaf size or the default.
func (c *PipelineConfig) GetMinLeaf() int {
	if c.MinLeaf == nil {
		return 5
	}
	return *c.MinLeaf
}

// GetModelsDir returns the artifact directory or the default.
func (c *PipelineConfig) GetModelsDir() string {
	if c.ModelsDir == nil || *c.ModelsDir == "" {
		return "models"
	}
	return *c.ModelsDir
}
