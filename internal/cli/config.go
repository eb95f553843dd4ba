package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/sqlbridge/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	// Environment prefix for config keys, e.g. SQLBRIDGE_WORKERS.
	envPrefix = "SQLBRIDGE"

	cfgKeyDatabase    = "database"
	cfgKeyWorkers     = "workers"
	cfgKeyQueueDepth  = "queue_depth"
	cfgKeyLoopBuffer  = "loop_buffer"
	cfgKeyRowCapacity = "row_capacity"
	cfgKeyTaskTimeout = "task_timeout"
	cfgKeyLogLevel    = "log_level"
)

// configFile holds the structure written to config.yaml.
type configFile struct {
	Database    string `yaml:"database,omitempty"`
	Workers     int    `yaml:"workers"`
	QueueDepth  int    `yaml:"queue_depth"`
	LoopBuffer  int    `yaml:"loop_buffer"`
	RowCapacity int    `yaml:"row_capacity"`
	TaskTimeout string `yaml:"task_timeout"`
	LogLevel    string `yaml:"log_level"`
}

// settings is the effective configuration of one command run.
type settings struct {
	database string
	bridge   types.Config
}

// loadSettings reads config.yaml from configDir using Viper, on top of the
// bridge defaults. A missing config.yaml is not an error.
func loadSettings(configDir string) (settings, error) {
	d := types.DefaultConfig()

	v := viper.New()
	v.SetDefault(cfgKeyWorkers, d.Workers)
	v.SetDefault(cfgKeyQueueDepth, d.QueueDepth)
	v.SetDefault(cfgKeyLoopBuffer, d.LoopBuffer)
	v.SetDefault(cfgKeyRowCapacity, d.RowCapacity)
	v.SetDefault(cfgKeyTaskTimeout, d.TaskTimeout)
	v.SetDefault(cfgKeyLogLevel, d.LogLevel)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := types.Config{
		Workers:     v.GetInt(cfgKeyWorkers),
		QueueDepth:  v.GetInt(cfgKeyQueueDepth),
		LoopBuffer:  v.GetInt(cfgKeyLoopBuffer),
		RowCapacity: v.GetInt(cfgKeyRowCapacity),
		TaskTimeout: v.GetDuration(cfgKeyTaskTimeout),
		LogLevel:    v.GetString(cfgKeyLogLevel),
	}
	if err := cfg.Validate(); err != nil {
		return settings{}, fmt.Errorf("config %s: %w", filepath.Join(configDir, configFileExt), err)
	}

	return settings{database: v.GetString(cfgKeyDatabase), bridge: cfg}, nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. If it already exists, the function reports false.
func writeConfigIfMissing(path, database string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	d := types.DefaultConfig()
	cfg := configFile{
		Database:    database,
		Workers:     d.Workers,
		QueueDepth:  d.QueueDepth,
		LoopBuffer:  d.LoopBuffer,
		RowCapacity: d.RowCapacity,
		TaskTimeout: d.TaskTimeout.String(),
		LogLevel:    d.LogLevel,
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# sqlbridge configuration\n# task_timeout of 0s disables the per-task timeout.\n\n")
	return true, os.WriteFile(path, append(header, data...), 0o644)
}
