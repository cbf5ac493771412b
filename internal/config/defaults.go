package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	EnvConfig   = "DOLIST_CONFIG"
	appDirName  = "dolist"
	defaultFile = "config.yaml"
)

// Dir is $XDG_CONFIG_HOME/dolist, falling back to ~/.config/dolist.
func Dir() string {
	if x := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); x != "" {
		return filepath.Join(x, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "." + appDirName
	}
	return filepath.Join(home, ".config", appDirName)
}

// DefaultPath is $DOLIST_CONFIG when set, else Dir()/config.yaml.
func DefaultPath() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfig)); p != "" {
		return p
	}
	return filepath.Join(Dir(), defaultFile)
}

// Default is used when no config file exists.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Console: true},
		Storage: StorageConfig{Driver: "sqlite", Path: filepath.Join(Dir(), "tasks.db")},
	}
}

// ExpandPath resolves a leading ~ and makes relative paths relative to base.
func ExpandPath(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	if !filepath.IsAbs(p) && base != "" {
		p = filepath.Join(base, p)
	}
	return p
}
