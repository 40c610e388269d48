package config

import (
	"fmt"

	"github.com/nspcc-dev/mptrie/pkg/core/storage/dbconfig"
	"go.uber.org/zap/zapcore"
)

// ApplicationConfiguration contains settings of the tool itself.
type ApplicationConfiguration struct {
	// LogLevel is one of zap levels, info if not set.
	LogLevel string `yaml:"LogLevel"`
	// LogPath is a file to write logs to, stderr is used if not set.
	LogPath         string                   `yaml:"LogPath"`
	DBConfiguration dbconfig.DBConfiguration `yaml:"DBConfiguration"`
}

// Validate checks ApplicationConfiguration for consistency.
func (a ApplicationConfiguration) Validate() error {
	if a.LogLevel != "" {
		if _, err := zapcore.ParseLevel(a.LogLevel); err != nil {
			return fmt.Errorf("log setting: %w", err)
		}
	}
	db := a.DBConfiguration
	switch db.Type {
	case dbconfig.InMemoryDB:
	case dbconfig.LevelDB:
		if db.LevelDBOptions.DataDirectoryPath == "" {
			return fmt.Errorf("%s: empty DataDirectoryPath", db.Type)
		}
	case dbconfig.BoltDB:
		if db.BoltDBOptions.FilePath == "" {
			return fmt.Errorf("%s: empty FilePath", db.Type)
		}
	case dbconfig.BadgerDB:
		if db.BadgerDBOptions.Dir == "" {
			return fmt.Errorf("%s: empty Dir", db.Type)
		}
	case dbconfig.RedisDB:
		if db.RedisDBOptions.Addr == "" {
			return fmt.Errorf("%s: empty Addr", db.Type)
		}
	default:
		return fmt.Errorf("unknown storage type %q", db.Type)
	}
	return nil
}
