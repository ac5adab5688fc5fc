package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"uac-triage/collectors/uac"
	"uac-triage/core/internal/evidence"
	"uac-triage/rules"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Paths     []string      `mapstructure:"paths"`
	Output    string        `mapstructure:"output"`
	RunPrefix string        `mapstructure:"run_prefix"`
	RunID     string        `mapstructure:"run_id"`
	Parse     bool          `mapstructure:"parse"`
	CopyMode  string        `mapstructure:"copy_mode"`
	Workers   int           `mapstructure:"workers"`
	SkipDirs  []string      `mapstructure:"skip_dirs"`
	IOCFile   string        `mapstructure:"ioc_file"`
	Rules     RulesConfig   `mapstructure:"rules"`
	Logging   LoggingConfig `mapstructure:"logging"`
}

type RulesConfig struct {
	Mode       string              `mapstructure:"mode"`
	File       string              `mapstructure:"file"`
	Categories map[string][]string `mapstructure:"categories"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"output":     "output",
	"run-prefix": "run_prefix",
	"run-id":     "run_id",
	"copy-mode":  "copy_mode",
	"workers":    "workers",
	"skip-dir":   "skip_dirs",
	"ioc-file":   "ioc_file",
	"rules-file": "rules.file",
	"rules-mode": "rules.mode",
	"log-level":  "logging.level",
	"log-format": "logging.format",
}

// Load resolves configuration from defaults, an optional YAML file,
// UACTRIAGE_* environment variables and flags, in increasing precedence.
// flags may be nil.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("output", "./uac_organized")
	v.SetDefault("run_prefix", "uac_triage")
	v.SetDefault("run_id", "")
	v.SetDefault("parse", true)
	v.SetDefault("copy_mode", string(evidence.CopyModeCopy))
	v.SetDefault("workers", 1)
	v.SetDefault("skip_dirs", uac.DefaultSkipDirs)
	v.SetDefault("ioc_file", "")
	v.SetDefault("rules.mode", string(rules.MergeExtend))
	v.SetDefault("rules.file", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("uac-triage")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "uac-triage"))
		}
	}

	v.SetEnvPrefix("UACTRIAGE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if flags != nil {
		if f := flags.Lookup("path"); f != nil && f.Changed {
			paths, err := flags.GetStringArray("path")
			if err != nil {
				return nil, err
			}
			cfg.Paths = paths
		}
		if f := flags.Lookup("no-parse"); f != nil && f.Changed {
			noParse, err := flags.GetBool("no-parse")
			if err != nil {
				return nil, err
			}
			cfg.Parse = !noParse
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := evidence.ParseCopyMode(c.CopyMode); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalid, c.Workers)
	}
	switch rules.MergeMode(c.Rules.Mode) {
	case "", rules.MergeExtend, rules.MergeReplace:
	default:
		return fmt.Errorf("%w: rules.mode must be extend or replace, got %q", ErrInvalid, c.Rules.Mode)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: logging.format must be text or json, got %q", ErrInvalid, c.Logging.Format)
	}
	if c.RunPrefix == "" || strings.ContainsAny(c.RunPrefix, `/\`) {
		return fmt.Errorf("%w: run_prefix %q", ErrInvalid, c.RunPrefix)
	}
	return nil
}

// RuleSet merges the built-in rules with the rules file and the inline
// categories.
func (c *Config) RuleSet() (*rules.RuleSet, error) {
	extra := make(map[rules.Category][]string)

	if c.Rules.File != "" {
		fromFile, err := rules.LoadFile(c.Rules.File)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		for cat, ps := range fromFile {
			extra[cat] = append(extra[cat], ps...)
		}
	}
	inline, err := rules.Normalize(c.Rules.Categories)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	for cat, ps := range inline {
		extra[cat] = append(extra[cat], ps...)
	}

	merged, err := rules.Merge(rules.DefaultRules(), extra, rules.MergeMode(c.Rules.Mode))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	rs, err := rules.NewRuleSet(merged)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return rs, nil
}
