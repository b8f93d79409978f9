package app

import (
	coreconfig "github.com/m3rciful/pagebot/core/config"
	coredatabase "github.com/m3rciful/pagebot/core/database"
)

// Config is the pagebot configuration file: the core sections plus the database.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	// DefaultBook is opened by /pages without an argument.
	DefaultBook string `yaml:"default_book" envconfig:"PAGEBOT_DEFAULT_BOOK"`
}

// CoreConfig implements cmd.ConfigCarrier.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// LoadConfig reads path, applies the environment and validates the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := cfg.Database.Normalize(); err != nil {
		return nil, err
	}
	if cfg.DefaultBook == "" {
		cfg.DefaultBook = GuideBook
	}
	return &cfg, nil
}
