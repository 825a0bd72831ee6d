package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type Config struct {
	CacheDir        string       `toml:"cache_dir"`
	StateDB         string       `toml:"state_db"`
	BottlesDataPath string       `toml:"bottles_data_path"`
	MaxParallel     int          `toml:"max_parallel"`
	Repositories    []Repository `toml:"repositories"`
}

// Repository is one configured catalogue source. Credential fields apply
// to the transport named by the URI scheme.
type Repository struct {
	Name         string `toml:"name"`
	URI          string `toml:"uri"`
	Token        string `toml:"token,omitempty"`
	IdentityFile string `toml:"identity_file,omitempty"`
	CACert       string `toml:"ca_cert,omitempty"`
	Insecure     bool   `toml:"insecure,omitempty"`
	SMBUser      string `toml:"smb_user,omitempty"`
	SMBPassword  string `toml:"smb_password,omitempty"`
}

func DefaultConfig() *Config {
	base := baseDir()
	return &Config{
		CacheDir:    filepath.Join(base, "cache"),
		StateDB:     filepath.Join(base, "installed.db"),
		MaxParallel: 4,
	}
}

// Load reads config.toml, writing defaults on first run.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path := configPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := Save(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if cfg.MaxParallel < 1 {
		cfg.MaxParallel = 1
	}
	return cfg, nil
}

func Save(cfg *Config) error {
	path := configPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// Repo returns the configured repository with the given name.
func (c *Config) Repo(name string) (Repository, bool) {
	for _, r := range c.Repositories {
		if r.Name == name {
			return r, true
		}
	}
	return Repository{}, false
}

// AddRepo appends a repository, rejecting duplicate names.
func (c *Config) AddRepo(r Repository) error {
	if _, ok := c.Repo(r.Name); ok {
		return fmt.Errorf("repository %q already exists", r.Name)
	}
	c.Repositories = append(c.Repositories, r)
	return nil
}

// RemoveRepo deletes the repository with the given name.
func (c *Config) RemoveRepo(name string) error {
	for i, r := range c.Repositories {
		if r.Name == name {
			c.Repositories = append(c.Repositories[:i], c.Repositories[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("repository %q not found", name)
}

func baseDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cellar")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "cellar")
}

func configPath() string {
	return filepath.Join(baseDir(), "config.toml")
}
