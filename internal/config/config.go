package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`
	Server   struct {
		Host               string `json:"host"`
		Port               int    `json:"port"`
		MaxFrameBytes      int    `json:"max_frame_bytes"`
		ReadTimeoutSeconds int    `json:"read_timeout_seconds"`
	} `json:"server"`
	Host struct {
		QueueSize int `json:"queue_size"`
	} `json:"host"`
	Session struct {
		File       string `json:"file"`
		Watch      bool   `json:"watch"`
		SaveOnExit bool   `json:"save_on_exit"`
	} `json:"session"`
	Client struct {
		DialAttempts int `json:"dial_attempts"`
	} `json:"client"`
}

// DefaultPath returns ~/.livectl/config.json.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".livectl", "config.json")
}

// Default returns a Config populated with default values.
func Default() *Config {
	cfg := &Config{
		DataDir:  filepath.Join(os.Getenv("HOME"), ".livectl"),
		LogLevel: "info",
	}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 9877
	cfg.Server.MaxFrameBytes = 1 << 20
	cfg.Host.QueueSize = 64
	cfg.Session.SaveOnExit = true
	cfg.Client.DialAttempts = 5
	return cfg
}

// Load reads the config at path and applies LIVECTL_* environment
// overrides. Use it for anything that runs with the config.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads the config at path over the defaults, ignoring the
// environment. A missing file is created with the defaults. Use it when the
// result is written back to the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}
	return cfg, nil
}

// envVars lists the environment variables that take precedence over the
// file, by the config key each one replaces.
var envVars = []struct {
	name, key string
}{
	{"LIVECTL_HOST", "server.host"},
	{"LIVECTL_PORT", "server.port"},
	{"LIVECTL_LOG_LEVEL", "log_level"},
}

// EnvOverrides returns the config keys currently replaced by a set
// environment variable, mapped to the variable's name.
func EnvOverrides() map[string]string {
	out := make(map[string]string)
	for _, ev := range envVars {
		if os.Getenv(ev.name) != "" {
			out[ev.key] = ev.name
		}
	}
	return out
}

func applyEnv(cfg *Config) error {
	if host := os.Getenv("LIVECTL_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("LIVECTL_PORT"); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid LIVECTL_PORT %q: %w", port, err)
		}
		cfg.Server.Port = n
	}
	if level := os.Getenv("LIVECTL_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	return nil
}

// SessionPath returns the session snapshot path, defaulting to session.yaml
// in the data dir. Relative paths are resolved against the data dir.
func (c *Config) SessionPath() string {
	if c.Session.File == "" {
		return filepath.Join(c.DataDir, "session.yaml")
	}
	if filepath.IsAbs(c.Session.File) {
		return c.Session.File
	}
	return filepath.Join(c.DataDir, c.Session.File)
}

// PIDPath returns the daemon PID file path.
func (c *Config) PIDPath() string {
	return filepath.Join(c.DataDir, "livectl.pid")
}

// ReadTimeout returns server.read_timeout_seconds as a duration; zero disables it.
func (c *Config) ReadTimeout() time.Duration {
	if c.Server.ReadTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Server.ReadTimeoutSeconds) * time.Second
}

// Addr returns host:port for clients.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// Save writes cfg to path atomically, creating the parent directory.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeAtomic(path, append(data, '\n'))
}

func writeAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// ToMap round-trips cfg through JSON into a generic nested map.
func ToMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListValues returns cfg as a flat map of dot-separated keys.
func ListValues(cfg *Config) (map[string]any, error) {
	m, err := ToMap(cfg)
	if err != nil {
		return nil, err
	}
	return Flatten(m), nil
}

// GetValue loads the config at path and returns the value for a dot-separated key.
func GetValue(path, key string) (any, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	flat, err := ListValues(cfg)
	if err != nil {
		return nil, err
	}
	v, ok := flat[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return v, nil
}

// SetValue sets a dot-separated key in the config file at path. The value is
// parsed as JSON when possible (numbers, booleans) and stored as a string
// otherwise. Only keys Config knows are accepted, and the file is left
// untouched if the result would not load.
func SetValue(path, key, value string) error {
	known, err := ListValues(Default())
	if err != nil {
		return err
	}
	if _, ok := known[key]; !ok {
		return fmt.Errorf("unknown config key: %s", key)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	var parsed any
	if err := json.Unmarshal([]byte(value), &parsed); err != nil {
		parsed = value
	}

	flat := Flatten(m)
	flat[key] = parsed
	nested, err := Unflatten(flat)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(nested, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := json.Unmarshal(out, Default()); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return writeAtomic(path, append(out, '\n'))
}
