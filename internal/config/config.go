package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultEnvFile is the dotenv file read by LoadEnv when no path is given.
const DefaultEnvFile = ".env"

// Config holds evaluation defaults shared by every command. Fields are
// pointers so a partial JSON file or environment only overrides what it
// names; the Get* accessors supply defaults for the rest.
type Config struct {
	// Matching tolerances
	TimeTolerance     *int     `json:"t_tolerance,omitempty" env:"CELLTRACK_T_TOLERANCE"`
	PositionTolerance *float64 `json:"pos_tolerance,omitempty" env:"CELLTRACK_POS_TOLERANCE"`

	// Table conversion
	FrameInterval *float64 `json:"frame_interval,omitempty" env:"CELLTRACK_FRAME_INTERVAL"` // minutes
	Colony        *string  `json:"colony,omitempty" env:"CELLTRACK_COLONY"`
	Treatment     *string  `json:"treatment,omitempty" env:"CELLTRACK_TREATMENT"`

	// Analysis
	Bins    *int `json:"bins,omitempty" env:"CELLTRACK_BINS"`
	Workers *int `json:"workers,omitempty" env:"CELLTRACK_WORKERS"`

	// DB is the evaluation store path. Empty disables persistence.
	DB *string `json:"db,omitempty" env:"CELLTRACK_DB"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// Empty returns a Config with every field unset.
func Empty() *Config {
	return &Config{}
}

// Defaults returns a Config with every field set to its default.
func Defaults() *Config {
	return &Config{
		TimeTolerance:     ptrInt(2),
		PositionTolerance: ptrFloat64(20),
		FrameInterval:     ptrFloat64(30),
		Colony:            ptrString("1a"),
		Treatment:         ptrString("None"),
		Bins:              ptrInt(20),
		Workers:           ptrInt(4),
		DB:                ptrString(""),
	}
}

// Load reads a Config from a JSON file. The file must have a .json
// extension and be at most 1MB. Omitted fields stay nil.
func Load(path string) (*Config, error) {
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

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadEnv loads dotenv files (DefaultEnvFile when none are given) into the
// process environment and overlays CELLTRACK_* variables onto c. Missing
// dotenv files are ignored; variables already set in the environment win
// over the files.
func (c *Config) LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{DefaultEnvFile}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}

	var overlay Config
	if err := env.Parse(&overlay); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	c.Merge(&overlay)
	return c.Validate()
}

// Merge copies every field set in o onto c.
func (c *Config) Merge(o *Config) {
	if o == nil {
		return
	}
	if o.TimeTolerance != nil {
		c.TimeTolerance = o.TimeTolerance
	}
	if o.PositionTolerance != nil {
		c.PositionTolerance = o.PositionTolerance
	}
	if o.FrameInterval != nil {
		c.FrameInterval = o.FrameInterval
	}
	if o.Colony != nil {
		c.Colony = o.Colony
	}
	if o.Treatment != nil {
		c.Treatment = o.Treatment
	}
	if o.Bins != nil {
		c.Bins = o.Bins
	}
	if o.Workers != nil {
		c.Workers = o.Workers
	}
	if o.DB != nil {
		c.DB = o.DB
	}
}

// Resolve builds the effective configuration: defaults, then the JSON file
// at path (skipped when empty), then the environment.
func Resolve(path string, envFiles ...string) (*Config, error) {
	cfg := Empty()
	if path != "" {
		fileCfg, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg.Merge(fileCfg)
	}
	if err := cfg.LoadEnv(envFiles...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the set values are in range.
func (c *Config) Validate() error {
	if c.TimeTolerance != nil && *c.TimeTolerance < 0 {
		return fmt.Errorf("t_tolerance must be non-negative, got %d", *c.TimeTolerance)
	}
	if c.PositionTolerance != nil && *c.PositionTolerance < 0 {
		return fmt.Errorf("pos_tolerance must be non-negative, got %f", *c.PositionTolerance)
	}
	if c.FrameInterval != nil && *c.FrameInterval <= 0 {
		return fmt.Errorf("frame_interval must be positive, got %f", *c.FrameInterval)
	}
	if c.Bins != nil && *c.Bins < 1 {
		return fmt.Errorf("bins must be at least 1, got %d", *c.Bins)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	return nil
}

// GetTimeTolerance returns the t_tolerance value or the default.
func (c *Config) GetTimeTolerance() int {
	if c.TimeTolerance == nil {
		return 2
	}
	return *c.TimeTolerance
}

// GetPositionTolerance returns the pos_tolerance value or the default.
func (c *Config) GetPositionTolerance() float64 {
	if c.PositionTolerance == nil {
		return 20
	}
	return *c.PositionTolerance
}

// GetFrameInterval returns the frame interval in minutes.
func (c *Config) GetFrameInterval() float64 {
	if c.FrameInterval == nil {
		return 30
	}
	return *c.FrameInterval
}

func (c *Config) GetColony() string {
	if c.Colony == nil {
		return "1a"
	}
	return *c.Colony
}

func (c *Config) GetTreatment() string {
	if c.Treatment == nil {
		return "None"
	}
	return *c.Treatment
}

func (c *Config) GetBins() int {
	if c.Bins == nil {
		return 20
	}
	return *c.Bins
}

func (c *Config) GetWorkers() int {
	if c.Workers == nil {
		return 4
	}
	return *c.Workers
}

// GetDB returns the store path, empty when persistence is disabled.
func (c *Config) GetDB() string {
	if c.DB == nil {
		return ""
	}
	return *c.DB
}
