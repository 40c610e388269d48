/*
Package config contains configuration of the trie CLI: storage backend,
logging and trie parameters. It's loaded from a YAML file.
*/
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nspcc-dev/mptrie/pkg/core/storage/dbconfig"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the default configuration file path.
const DefaultConfigPath = "./config/mptrie.yml"

// Version is the version of the tool, set at build time.
var Version string

// Config is the top-level configuration structure.
type Config struct {
	ApplicationConfiguration ApplicationConfiguration `yaml:"ApplicationConfiguration"`
	TrieConfiguration        TrieConfiguration        `yaml:"TrieConfiguration"`
}

// Default returns configuration with all the defaults set, it uses in-memory
// storage.
func Default() Config {
	return Config{
		ApplicationConfiguration: ApplicationConfiguration{
			DBConfiguration: dbconfig.DBConfiguration{
				Type: dbconfig.InMemoryDB,
			},
		},
		TrieConfiguration: TrieConfiguration{
			Hash:      DefaultHash,
			CacheSize: DefaultCacheSize,
		},
	}
}

// LoadFile loads configuration from the given file. Options not set in the
// file have their default values, unknown options are an error.
func LoadFile(configPath string) (Config, error) {
	configData, err := os.ReadFile(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config: %w", err)
	}
	return Load(configData)
}

// Load parses configuration from YAML data, see LoadFile.
func Load(configData []byte) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(configData))
	decoder.KnownFields(true)
	err := decoder.Decode(&cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration for consistency.
func (c Config) Validate() error {
	if err := c.ApplicationConfiguration.Validate(); err != nil {
		return err
	}
	return c.TrieConfiguration.Validate()
}
