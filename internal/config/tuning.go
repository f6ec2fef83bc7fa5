// Package config loads and validates the wandering-engine tuning file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Tuning represents the engine tuning parameters. All fields are
// optional pointers so a partial JSON file only overrides what it names;
// the Get* accessors supply defaults for everything else. The same
// schema is accepted by the /api/params endpoint for runtime inspection.
type Tuning struct {
	// Ingestion params
	BufferCapacity      *int     `json:"buffer_capacity,omitempty"`
	AccuracyFloorMeters *float64 `json:"accuracy_floor_meters,omitempty"`

	// Analysis params
	MinPointsForAnalysis *int    `json:"min_points_for_analysis,omitempty"`
	AnalysisWindow       *int    `json:"analysis_window,omitempty"`
	AnalysisInterval     *string `json:"analysis_interval,omitempty"` // duration string like "5s"

	// Classifier thresholds
	CirclingRatioThreshold      *float64 `json:"circling_ratio_threshold,omitempty"`
	MinCirclingDistanceMeters   *float64 `json:"min_circling_distance_meters,omitempty"`
	PacingReversalThreshold     *int     `json:"pacing_reversal_threshold,omitempty"`
	PacingReversalDegrees       *float64 `json:"pacing_reversal_degrees,omitempty"`
	LostDistanceThresholdMeters *float64 `json:"lost_distance_threshold_meters,omitempty"`
}

// Default values applied by the Get* accessors.
const (
	DefaultBufferCapacity              = 100
	DefaultAccuracyFloorMeters         = 50.0
	DefaultMinPointsForAnalysis        = 10
	DefaultAnalysisWindow              = 30
	DefaultAnalysisInterval            = 5 * time.Second
	DefaultCirclingRatioThreshold      = 0.3
	DefaultMinCirclingDistanceMeters   = 50.0
	DefaultPacingReversalThreshold     = 2
	DefaultPacingReversalDegrees       = 150.0
	DefaultLostDistanceThresholdMeters = 1000.0
)

// EmptyTuning returns a Tuning with all fields unset, so every accessor
// falls through to its default.
func EmptyTuning() *Tuning {
	return &Tuning{}
}

// LoadTuning loads a Tuning from a JSON file. The file must have a .json
// extension and stay under the max file size. Fields omitted from the
// JSON retain their defaults, so partial configs are safe.
func LoadTuning(path string) (*Tuning, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuning()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate rejects values that would produce meaningless classifications.
// A nonsensical threshold must fail here, at construction time, rather
// than silently degrade the classifier.
func (c *Tuning) Validate() error {
	if c.BufferCapacity != nil && *c.BufferCapacity <= 0 {
		return fmt.Errorf("buffer_capacity must be positive, got %d", *c.BufferCapacity)
	}
	if c.AccuracyFloorMeters != nil && *c.AccuracyFloorMeters <= 0 {
		return fmt.Errorf("accuracy_floor_meters must be positive, got %f", *c.AccuracyFloorMeters)
	}
	if c.MinPointsForAnalysis != nil && *c.MinPointsForAnalysis < 2 {
		return fmt.Errorf("min_points_for_analysis must be at least 2, got %d", *c.MinPointsForAnalysis)
	}
	if c.AnalysisWindow != nil && *c.AnalysisWindow < 2 {
		return fmt.Errorf("analysis_window must be at least 2, got %d", *c.AnalysisWindow)
	}
	if c.AnalysisInterval != nil && *c.AnalysisInterval != "" {
		d, err := time.ParseDuration(*c.AnalysisInterval)
		if err != nil {
			return fmt.Errorf("invalid analysis_interval %q: %w", *c.AnalysisInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("analysis_interval must be positive, got %s", d)
		}
	}
	if c.CirclingRatioThreshold != nil {
		if *c.CirclingRatioThreshold <= 0 || *c.CirclingRatioThreshold > 1 {
			return fmt.Errorf("circling_ratio_threshold must be in (0, 1], got %f", *c.CirclingRatioThreshold)
		}
	}
	if c.MinCirclingDistanceMeters != nil && *c.MinCirclingDistanceMeters < 0 {
		return fmt.Errorf("min_circling_distance_meters must be non-negative, got %f", *c.MinCirclingDistanceMeters)
	}
	if c.PacingReversalThreshold != nil && *c.PacingReversalThreshold < 1 {
		return fmt.Errorf("pacing_reversal_threshold must be at least 1, got %d", *c.PacingReversalThreshold)
	}
	if c.PacingReversalDegrees != nil {
		if *c.PacingReversalDegrees <= 0 || *c.PacingReversalDegrees > 180 {
			return fmt.Errorf("pacing_reversal_degrees must be in (0, 180], got %f", *c.PacingReversalDegrees)
		}
	}
	if c.LostDistanceThresholdMeters != nil && *c.LostDistanceThresholdMeters < 0 {
		return fmt.Errorf("lost_distance_threshold_meters must be non-negative, got %f", *c.LostDistanceThresholdMeters)
	}
	return nil
}

// GetBufferCapacity returns the buffer_capacity value or the default.
func (c *Tuning) GetBufferCapacity() int {
	if c.BufferCapacity == nil {
		return DefaultBufferCapacity
	}
	return *c.BufferCapacity
}

// GetAccuracyFloorMeters returns the accuracy_floor_meters value or the default.
func (c *Tuning) GetAccuracyFloorMeters() float64 {
	if c.AccuracyFloorMeters == nil {
		return DefaultAccuracyFloorMeters
	}
	return *c.AccuracyFloorMeters
}

// GetMinPointsForAnalysis returns the min_points_for_analysis value or the default.
func (c *Tuning) GetMinPointsForAnalysis() int {
	if c.MinPointsForAnalysis == nil {
		return DefaultMinPointsForAnalysis
	}
	return *c.MinPointsForAnalysis
}

// GetAnalysisWindow returns the analysis_window value or the default.
func (c *Tuning) GetAnalysisWindow() int {
	if c.AnalysisWindow == nil {
		return DefaultAnalysisWindow
	}
	return *c.AnalysisWindow
}

// GetAnalysisInterval parses and returns the analysis_interval as a
// time.Duration.
func (c *Tuning) GetAnalysisInterval() time.Duration {
	if c.AnalysisInterval == nil || *c.AnalysisInterval == "" {
		return DefaultAnalysisInterval
	}
	d, err := time.ParseDuration(*c.AnalysisInterval)
	if err != nil {
		return DefaultAnalysisInterval
	}
	return d
}

// GetCirclingRatioThreshold returns the circling_ratio_threshold value or the default.
func (c *Tuning) GetCirclingRatioThreshold() float64 {
	if c.CirclingRatioThreshold == nil {
		return DefaultCirclingRatioThreshold
	}
	return *c.CirclingRatioThreshold
}

// GetMinCirclingDistanceMeters returns the min_circling_distance_meters value or the default.
func (c *Tuning) GetMinCirclingDistanceMeters() float64 {
	if c.MinCirclingDistanceMeters == nil {
		return DefaultMinCirclingDistanceMeters
	}
	return *c.MinCirclingDistanceMeters
}

// GetPacingReversalThreshold returns the pacing_reversal_threshold value or the default.
func (c *Tuning) GetPacingReversalThreshold() int {
	if c.PacingReversalThreshold == nil {
		return DefaultPacingReversalThreshold
	}
	return *c.PacingReversalThreshold
}

// GetPacingReversalDegrees returns the pacing_reversal_degrees value or the default.
func (c *Tuning) GetPacingReversalDegrees() float64 {
	if c.PacingReversalDegrees == nil {
		return DefaultPacingReversalDegrees
	}
	return *c.PacingReversalDegrees
}

// GetLostDistanceThresholdMeters returns the lost_distance_threshold_meters value or the default.
func (c *Tuning) GetLostDistanceThresholdMeters() float64 {
	if c.LostDistanceThresholdMeters == nil {
		return DefaultLostDistanceThresholdMeters
	}
	return *c.LostDistanceThresholdMeters
}
