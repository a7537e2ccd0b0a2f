package scoring

import (
	"fmt"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/janelia-cellmap/cellmap-eval/cmeval"
)

// DefaultGroundTruth is the ground-truth store path used when no config
// file or flag overrides it.
const DefaultGroundTruth = "truth.zarr"

// Config is the parsed TOML configuration for the scorer.
type Config struct {
	Scoring ScoringConfig    `toml:"scoring"`
	Logging cmeval.LogConfig `toml:"logging"`
}

type ScoringConfig struct {
	// GroundTruth is the path of the ground-truth Zarr-2 store.
	GroundTruth string `toml:"ground_truth"`

	// Workers bounds how many volumes are scored concurrently.
	// Zero means one worker per logical CPU.
	Workers int `toml:"workers"`
}

// DefaultConfig returns the configuration used when no TOML file is given.
func DefaultConfig() *Config {
	return &Config{
		Scoring: ScoringConfig{GroundTruth: DefaultGroundTruth},
	}
}

// LoadConfig parses a TOML config file.  Relative paths within the file
// are converted to absolute paths with respect to the file's directory.
func LoadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, fmt.Errorf("could not decode TOML config %s: %v", path, err)
	}
	configDir := filepath.Dir(path)
	var err error
	if c.Scoring.GroundTruth != "" {
		c.Scoring.GroundTruth, err = cmeval.ConvertToAbsolute(c.Scoring.GroundTruth, configDir)
		if err != nil {
			return nil, err
		}
	}
	if c.Logging.Logfile != "" {
		c.Logging.Logfile, err = cmeval.ConvertToAbsolute(c.Logging.Logfile, configDir)
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Config) workers() int {
	if c.Scoring.Workers > 0 {
		return c.Scoring.Workers
	}
	if cmeval.NumCPU > 1 {
		return cmeval.NumCPU
	}
	return 1
}
