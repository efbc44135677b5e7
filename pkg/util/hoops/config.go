package hoops

import "fmt"

// HoopsConfig contains all configurable parameters for a single pipeline run
// The pipeline never reads the package global after construction; every stage
// receives the config value it was invoked with, so a run is reproducible from
// its config alone
type HoopsConfig struct {
	// Filesystem and cache parameters
	HoopsAssetsPath string // The base directory of assets relating to hoops
	DataPath        string // The directory containing the raw season csv files
	ProcessedPath   string // The directory in which processed csv exports are written
	HoopsDbPath     string // The location of the hoops sqlite database

	// === DATASET SELECTION ===

	Year   int  // The season year to process (0 means all seasons in the raw files)
	Womens bool // Use the women's files (W prefix) instead of the men's (M prefix)

	// === FEATURE ENGINEERING PARAMETERS ===

	// Ranking system selector. Empty means the median across all systems,
	// one entry means that system's ordinal ranks, several entries means the
	// median across those systems
	RankingSystems []string

	// Trailing window, in games, for the rolling statistics (default: 5)
	WindowSize int

	// Seed for the outcome symmetrizer. Nil means derive a seed from the
	// clock; the derived seed is logged so the run can be reproduced
	RandomSeed *int64

	// === ORDINAL RANKINGS FALLBACK ===

	// URL of a composite ordinal-rankings page to scrape when the raw
	// directory has no ordinals file. Empty disables the fallback
	OrdinalsURL string
}

// DefaultHoopsConfig returns the default configuration with all standard values
func DefaultHoopsConfig() *HoopsConfig {
	hoopsAssetsPath := ".hoops/"
	return &HoopsConfig{
		HoopsAssetsPath: hoopsAssetsPath,
		DataPath:        hoopsAssetsPath + "raw/",
		ProcessedPath:   hoopsAssetsPath + "preprocessed/",
		HoopsDbPath:     hoopsAssetsPath + "hoops.db",

		Year:   2024,
		Womens: false,

		RankingSystems: []string{"SEL"},
		WindowSize:     5,
		RandomSeed:     nil,

		OrdinalsURL: "https://masseyratings.com/cb/compare.htm",
	}
}

// Global configuration instance, used as the CLI's default source
var Config *HoopsConfig

// init initializes the global configuration with default values
func init() {
	Config = DefaultHoopsConfig()
}

// UpdateConfig allows updating the global configuration
func UpdateConfig(newConfig *HoopsConfig) {
	Config = newConfig
}

// ValidateConfig ensures all configuration values are within reasonable ranges
func ValidateConfig(config *HoopsConfig) error {
	if config == nil {
		return fmt.Errorf("config must not be nil")
	}

	if config.WindowSize < 1 {
		return fmt.Errorf("WindowSize must be at least 1 game, got: %d", config.WindowSize)
	}

	if config.Year < 0 {
		return fmt.Errorf("Year must be 0 (all seasons) or a season year, got: %d", config.Year)
	}

	for _, system := range config.RankingSystems {
		if system == "" {
			return fmt.Errorf("RankingSystems must not contain empty system names")
		}
	}

	return nil
}

// GenderPrefix returns the raw file prefix for the configured gender
func (c *HoopsConfig) GenderPrefix() string {
	if c.Womens {
		return "W"
	}
	return "M"
}

// SystemLabel returns a stable label for the configured ranking selector,
// used in processed dataset names and cache keys
func (c *HoopsConfig) SystemLabel() string {
	switch len(c.RankingSystems) {
	case 0:
		return "MEDIAN"
	case 1:
		return c.RankingSystems[0]
	default:
		return "MEDIAN"
	}
}
