package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/zjy-dev/linecov/internal/discover"
)

// DefaultConfigName is the base name of the config file, without extension.
const DefaultConfigName = "linecov"

// EnvPrefix prefixes environment overrides, e.g. LINECOV_GCOV_PATH.
const EnvPrefix = "LINECOV"

// Config holds the settings shared by all commands.
type Config struct {
	// Jobs caps concurrent tool processes; 0 means one per CPU.
	Jobs int `mapstructure:"jobs"`
	// Sliding keeps the process pool full instead of running wavefronts.
	Sliding  bool   `mapstructure:"sliding"`
	LogLevel string `mapstructure:"log_level"`
	Color    bool   `mapstructure:"color"`
	// Root is the directory searched for artifacts.
	Root string     `mapstructure:"root"`
	Gcov GcovConfig `mapstructure:"gcov"`
	LLVM LLVMConfig `mapstructure:"llvm"`
}

// GcovConfig configures the gcov tool.
type GcovConfig struct {
	Path      string   `mapstructure:"path"`
	Args      []string `mapstructure:"args"`
	Artifacts []string `mapstructure:"artifacts"`
}

// LLVMConfig configures the llvm-cov tool.
type LLVMConfig struct {
	Path      string   `mapstructure:"path"`
	Args      []string `mapstructure:"args"`
	Profdata  string   `mapstructure:"profdata"`
	Artifacts []string `mapstructure:"artifacts"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("jobs", 0)
	v.SetDefault("sliding", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("color", false)
	v.SetDefault("root", ".")
	v.SetDefault("gcov.path", "gcov")
	v.SetDefault("gcov.args", []string{"--stdout", "--json-format"})
	v.SetDefault("gcov.artifacts", []string{discover.DefaultGcovPattern})
	v.SetDefault("llvm.path", "llvm-cov")
	v.SetDefault("llvm.args", []string{})
	v.SetDefault("llvm.profdata", "default.profdata")
	v.SetDefault("llvm.artifacts", []string{})
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads a configuration file from ".", "configs" or "../configs" into a struct.
// The configName parameter should be the base name of the file without the extension (e.g., "linecov").
// The result parameter should be a pointer to a struct that the configuration will be unmarshaled into.
func Load(configName string, result interface{}) error {
	v := newViper()
	v.SetConfigName(configName)
	v.AddConfigPath(".")
	v.AddConfigPath("configs")
	v.AddConfigPath("../configs")
	return read(v, result)
}

func read(v *viper.Viper, result interface{}) error {
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return unmarshal(v, result)
}

func unmarshal(v *viper.Viper, result interface{}) error {
	if err := v.Unmarshal(result); err != nil {
		return fmt.Errorf("failed to unmarshal config data: %w", err)
	}
	return nil
}

// LoadConfig returns the effective configuration. With an explicit
// configFile that file must exist; otherwise linecov.yaml is looked up with
// Load and defaults apply when none is found. Environment variables override
// file values.
func LoadConfig(configFile string) (*Config, error) {
	var cfg Config
	if configFile != "" {
		v := newViper()
		v.SetConfigFile(configFile)
		if err := read(v, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	err := Load(DefaultConfigName, &cfg)
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		err = unmarshal(newViper(), &cfg)
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
