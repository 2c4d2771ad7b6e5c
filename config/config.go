package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"markestedt/pasteimagepath/platform"
)

const appName = "pasteimagepath"

type Config struct {
	LogLevel string        `toml:"log_level"`
	Hotkey   HotkeyConfig  `toml:"hotkey"`
	Paste    PasteConfig   `toml:"paste"`
	Storage  StorageConfig `toml:"storage"`
	History  HistoryConfig `toml:"history"`
	Tray     TrayConfig    `toml:"tray"`
	Web      WebConfig     `toml:"web"`

	path string
}

type HotkeyConfig struct {
	KeyCode   int    `toml:"key_code"`
	Modifiers uint32 `toml:"modifiers"`
}

type PasteConfig struct {
	InsertSpaceBeforePath bool `toml:"insert_space_before_path"`
	QuotePaths            bool `toml:"quote_paths"`
}

type StorageConfig struct {
	ScratchDir string `toml:"scratch_dir"`
}

type HistoryConfig struct {
	Enabled bool `toml:"enabled"`
}

type TrayConfig struct {
	Enabled bool `toml:"enabled"`
}

type WebConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// Default configuration
func defaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Hotkey: HotkeyConfig{
			KeyCode:   platform.DefaultBinding.KeyCode,
			Modifiers: uint32(platform.DefaultBinding.Modifiers),
		},
		Paste: PasteConfig{
			InsertSpaceBeforePath: true,
			QuotePaths:            false,
		},
		Storage: StorageConfig{
			ScratchDir: "",
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Tray: TrayConfig{
			Enabled: true,
		},
		Web: WebConfig{
			Enabled: true,
			Port:    7331,
		},
	}
}

// Dir returns the directory holding the config file and the history database
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config dir: %w", err)
	}
	return filepath.Join(base, appName), nil
}

// ConfigPath returns the path to the configuration file
func ConfigPath() (string, error) {
	configDir, err := Dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(configDir, "config.toml"), nil
}

// Load loads the configuration from the TOML file at path, or from
// ConfigPath when path is empty. A missing file is created with defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return nil, err
		}
	}

	// If config doesn't exist, create it with defaults
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := defaultConfig()
		cfg.path = path
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	// Load existing config
	cfg := defaultConfig()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.path = path

	// a partial hotkey is treated as no hotkey at all
	if !md.IsDefined("hotkey", "key_code") || !md.IsDefined("hotkey", "modifiers") || cfg.Binding().Validate() != nil {
		cfg.SetBinding(platform.DefaultBinding)
	}

	return cfg, nil
}

// Path returns the file the config was loaded from
func (c *Config) Path() string {
	return c.path
}

// Save writes the configuration back to its file
func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("config has no file path")
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return save(c.path, c)
}

// save writes the configuration to the TOML file
func save(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Binding returns the configured hotkey
func (c *Config) Binding() platform.Binding {
	return platform.Binding{KeyCode: c.Hotkey.KeyCode, Modifiers: platform.Modifiers(c.Hotkey.Modifiers)}
}

// SetBinding updates the configured hotkey
func (c *Config) SetBinding(b platform.Binding) {
	c.Hotkey.KeyCode = b.KeyCode
	c.Hotkey.Modifiers = uint32(b.Modifiers)
}

// Store is the mutex-guarded runtime view of a Config. Every change is
// written to disk immediately.
type Store struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewStore wraps cfg
func NewStore(cfg *Config) *Store {
	return &Store{cfg: cfg}
}

// Snapshot returns a copy of the current configuration
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.cfg
}

// Update applies fn to the configuration and saves it. On a save failure
// the previous values are kept.
func (s *Store) Update(fn func(c *Config)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := *s.cfg
	fn(s.cfg)
	s.cfg.path = prev.path
	if err := s.cfg.Save(); err != nil {
		*s.cfg = prev
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func (s *Store) InsertSpaceBeforePath() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Paste.InsertSpaceBeforePath
}

func (s *Store) SetInsertSpaceBeforePath(enabled bool) error {
	return s.Update(func(c *Config) { c.Paste.InsertSpaceBeforePath = enabled })
}

func (s *Store) QuotePaths() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Paste.QuotePaths
}

func (s *Store) SetQuotePaths(enabled bool) error {
	return s.Update(func(c *Config) { c.Paste.QuotePaths = enabled })
}

func (s *Store) Binding() platform.Binding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Binding()
}

func (s *Store) SaveBinding(b platform.Binding) error {
	return s.Update(func(c *Config) { c.SetBinding(b) })
}
