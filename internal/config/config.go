package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when no path is given
const DefaultPath = "config/config.yaml"

type Config struct {
	Server     Server     `yaml:"server"`
	Gem        Gem        `yaml:"gem"`
	Connection Connection `yaml:"connection"`
	Watch      Watch      `yaml:"watch"`
	Storage    Storage    `yaml:"storage"`
	RateLimit  RateLimit  `yaml:"rate_limit"`
	Log        Log        `yaml:"log"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Gem struct {
	Binary        string        `yaml:"binary"`         // gem executable
	Timeout       time.Duration `yaml:"timeout"`        // per query, 0 disables
	MaxConcurrent int64         `yaml:"max_concurrent"` // concurrent gem processes
}

type Connection struct {
	Timeout time.Duration `yaml:"timeout"`
}

type Watch struct {
	Interval time.Duration  `yaml:"interval"`
	Packages []WatchPackage `yaml:"packages"`
}

type WatchPackage struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	Gem  string `yaml:"gem"`
}

type Storage struct {
	Path string `yaml:"path"`
}

type RateLimit struct {
	RPS   int `yaml:"rps"`
	Burst int `yaml:"burst"`
}

type Log struct {
	Level      string `yaml:"level"`       // debug, info, warn, error
	Filename   string `yaml:"filename"`    // log file path
	MaxSize    int    `yaml:"max_size"`    // megabytes
	MaxBackups int    `yaml:"max_backups"` // number of backups
	MaxAge     int    `yaml:"max_age"`     // days
	Compress   bool   `yaml:"compress"`    // compress rotated files
}

// LoadFromFile loads the configuration from the specified file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, applies defaults and validates it
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Gem.Binary == "" {
		c.Gem.Binary = "gem"
	}
	if c.Gem.MaxConcurrent == 0 {
		c.Gem.MaxConcurrent = 4
	}
	if c.Connection.Timeout == 0 {
		c.Connection.Timeout = 10 * time.Second
	}
	if c.Watch.Interval == 0 {
		c.Watch.Interval = 30 * time.Minute
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "data"
	}
	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = 10
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Filename == "" {
		c.Log.Filename = "logs/gem-poller.log"
	}
}

func (c *Config) validate() error {
	if c.Gem.MaxConcurrent < 0 {
		return fmt.Errorf("invalid gem.max_concurrent: %d", c.Gem.MaxConcurrent)
	}
	if c.Gem.Timeout < 0 {
		return fmt.Errorf("invalid gem.timeout: %s", c.Gem.Timeout)
	}
	seen := make(map[string]bool, len(c.Watch.Packages))
	for i, p := range c.Watch.Packages {
		if p.Name == "" || p.URL == "" || p.Gem == "" {
			return fmt.Errorf("invalid watch.packages[%d]: name, url and gem are required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate watch package name: %s", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}
