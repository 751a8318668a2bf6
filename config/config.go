package config

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	FileName          = "config.yaml"
	MapFileName       = "file_map.json"
	NameCacheFileName = "name_cache.json"
	JournalFileName   = "journal.db"
	LogFileName       = "missile.log"

	DefaultPort        = 22
	DefaultWorkers     = 4
	DefaultMaxFileSize = 10 * 1024 * 1024
)

// RepositoryConfig lists the remote roots searched for one repository.
type RepositoryConfig struct {
	ID    string   `mapstructure:"id" yaml:"id"`
	Roots []string `mapstructure:"roots" yaml:"roots"`
}

// Config is the merged configuration: flags, then environment, then
// config.yaml, then defaults.
type Config struct {
	Host                  string `mapstructure:"host" yaml:"host,omitempty"`
	Port                  int    `mapstructure:"port" yaml:"port,omitempty"`
	Username              string `mapstructure:"username" yaml:"username,omitempty"`
	Password              string `mapstructure:"password" yaml:"password,omitempty"`
	KnownHosts            string `mapstructure:"known_hosts" yaml:"known_hosts,omitempty"`
	InsecureIgnoreHostKey bool   `mapstructure:"insecure_ignore_host_key" yaml:"insecure_ignore_host_key,omitempty"`

	Selector    string   `mapstructure:"selector" yaml:"selector,omitempty"`
	Workers     int      `mapstructure:"workers" yaml:"workers,omitempty"`
	Exclude     []string `mapstructure:"exclude" yaml:"exclude,omitempty"`
	Ignore      []string `mapstructure:"ignore" yaml:"ignore,omitempty"`
	MaxFileSize int64    `mapstructure:"max_file_size" yaml:"max_file_size,omitempty"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level,omitempty"`
	LogFile  string `mapstructure:"log_file" yaml:"log_file,omitempty"`

	Repositories []RepositoryConfig `mapstructure:"repositories" yaml:"repositories,omitempty"`

	// Dir is the directory holding config.yaml and the persisted state.
	Dir string `mapstructure:"-" yaml:"-"`
}

// envKeys binds the connection settings to their environment variables.
var envKeys = map[string]string{
	"host":     "REMOTE_HOST",
	"port":     "REMOTE_PORT",
	"username": "REMOTE_USERNAME",
	"password": "REMOTE_PASSWORD",
}

// flagKeys maps config keys to command-line flag names.
var flagKeys = map[string]string{
	"host":                     "host",
	"port":                     "port",
	"username":                 "username",
	"password":                 "password",
	"known_hosts":              "known-hosts",
	"insecure_ignore_host_key": "insecure-ignore-host-key",
	"selector":                 "selector",
	"workers":                  "workers",
	"exclude":                  "exclude",
	"ignore":                   "ignore",
	"max_file_size":            "max-file-size",
	"log_level":                "log-level",
	"log_file":                 "log-file",
}

// RegisterFlags defines the flags Load binds.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("host", "", "Remote host (env REMOTE_HOST)")
	flags.Int("port", DefaultPort, "Remote SSH port (env REMOTE_PORT)")
	flags.String("username", "", "Remote user (env REMOTE_USERNAME)")
	flags.String("password", "", "Remote password (env REMOTE_PASSWORD)")
	flags.String("known-hosts", "", "known_hosts file used to verify the host key (default ~/.ssh/known_hosts)")
	flags.Bool("insecure-ignore-host-key", false, "Skip host key verification")
	flags.String("selector", "auto", "Manual selection UI: auto, fzf or builtin")
	flags.Int("workers", DefaultWorkers, "Concurrent candidate downloads")
	flags.StringSlice("exclude", nil, "Remote glob patterns left out of the index (repeatable)")
	flags.StringSlice("ignore", nil, "Local gitignore-style patterns never synced (repeatable)")
	flags.Int64("max-file-size", DefaultMaxFileSize, "Skip local files larger than this many bytes")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-file", "", "Log file path (default <config dir>/missile.log)")
}

// DefaultDir returns ~/.config/missile.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "missile"), nil
}

// Load reads dir/config.yaml and merges environment and flags over it.
// A missing config file is not an error. flags may be nil.
func Load(dir string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetDefault("port", DefaultPort)
	v.SetDefault("selector", "auto")
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("max_file_size", DefaultMaxFileSize)
	v.SetDefault("log_level", "info")

	v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}
	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag --%s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading %s: %w", filepath.Join(dir, FileName), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	cfg.Dir = dir
	if cfg.KnownHosts == "" {
		cfg.KnownHosts = "~/.ssh/known_hosts"
	}
	cfg.KnownHosts = expandHome(cfg.KnownHosts)
	cfg.LogFile = expandHome(cfg.LogFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings every command depends on.
func (c *Config) Validate() error {
	switch c.Selector {
	case "auto", "fzf", "builtin":
	default:
		return &ConfigError{Field: "selector", Message: fmt.Sprintf("unknown selector %q (must be auto, fzf or builtin)", c.Selector)}
	}
	if c.Workers < 1 {
		return &ConfigError{Field: "workers", Message: "must be at least 1"}
	}
	if c.MaxFileSize < 0 {
		return &ConfigError{Field: "max_file_size", Message: "must not be negative"}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return &ConfigError{Field: "log_level", Message: fmt.Sprintf("unknown level %q", c.LogLevel)}
	}
	for i, repo := range c.Repositories {
		if repo.ID == "" {
			return &ConfigError{Field: fmt.Sprintf("repositories[%d].id", i), Message: "required"}
		}
		for _, root := range repo.Roots {
			if !path.IsAbs(root) {
				return &ConfigError{Field: fmt.Sprintf("repositories[%d].roots", i), Message: fmt.Sprintf("remote root %q must be absolute", root)}
			}
		}
	}
	return nil
}

// ValidateConnection fails on the first missing connection setting.
func (c *Config) ValidateConnection() error {
	required := []struct {
		field, flag, env, value string
	}{
		{"host", "host", "REMOTE_HOST", c.Host},
		{"username", "username", "REMOTE_USERNAME", c.Username},
		{"password", "password", "REMOTE_PASSWORD", c.Password},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ConfigError{Field: r.field, Message: fmt.Sprintf("required: pass --%s or set %s", r.flag, r.env)}
		}
	}
	if c.Port < 1 || c.Port > 65535 {
		return &ConfigError{Field: "port", Message: fmt.Sprintf("%d is not a valid port (pass --port or set REMOTE_PORT)", c.Port)}
	}
	return nil
}

// RootsFor returns the remote roots configured for a repository.
func (c *Config) RootsFor(id string) []string {
	for _, repo := range c.Repositories {
		if repo.ID == id {
			return slices.Clone(repo.Roots)
		}
	}
	return nil
}

func (c *Config) MapFile() string       { return filepath.Join(c.Dir, MapFileName) }
func (c *Config) NameCacheFile() string { return filepath.Join(c.Dir, NameCacheFileName) }
func (c *Config) JournalFile() string   { return filepath.Join(c.Dir, JournalFileName) }

// LogFilePath returns the configured log file or the default one in Dir.
func (c *Config) LogFilePath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(c.Dir, LogFileName)
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
