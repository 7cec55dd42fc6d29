// Package config loads epubnorm settings from an optional YAML file,
// EPUBNORM_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/adammathes/epubnorm/pkg/epub"
)

// EnvPrefix is prepended to every environment override, e.g. EPUBNORM_VERBOSE.
const EnvPrefix = "EPUBNORM"

// FileName is the config file searched for in the working and home directories.
const FileName = ".epubnorm"

// Config holds the settings shared by every command.
type Config struct {
	Verbose  bool   `mapstructure:"verbose"`
	Journal  string `mapstructure:"journal"`
	Verify   bool   `mapstructure:"verify"`
	Compress bool   `mapstructure:"compress"`
	Backup   bool   `mapstructure:"backup"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Journal: epub.DefaultJournal,
		Verify:  true,
		Backup:  true,
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("journal", d.Journal)
	v.SetDefault("verify", d.Verify)
	v.SetDefault("compress", d.Compress)
	v.SetDefault("backup", d.Backup)
}

// Load reads configPath when set, otherwise looks for .epubnorm.yaml in
// the working directory and then the home directory. A missing file is
// not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	return &cfg, nil
}
