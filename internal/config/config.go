// Package config provides layered configuration (defaults -> file -> env)
// for the memoryd daemon and CLI, backed by viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var v *viper.Viper

// Initialize sets up the viper configuration singleton. Should be called
// once at process startup, before any Get* call.
//
// Precedence for the config file, highest to lowest:
//  1. project-local .claude/memoryd.yaml, found by walking up from cwd
//  2. user config directory config.yaml (os.UserConfigDir()/memoryd/config.yaml)
//
// Environment variables (MEMORYD_*) and explicit Set calls always take
// precedence over whichever file was found.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	configFileSet := false

	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			configPath := filepath.Join(dir, ".claude", "memoryd.yaml")
			if _, statErr := os.Stat(configPath); statErr == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
				break
			}
		}
	}

	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "memoryd", "config.yaml")
			if _, statErr := os.Stat(configPath); statErr == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	v.SetEnvPrefix("MEMORYD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	homeDir, _ := os.UserHomeDir()

	v.SetDefault("store.global-path", filepath.Join(homeDir, ".claude", "memory.sqlite3"))
	v.SetDefault("store.busy-timeout-ms", 5000)
	v.SetDefault("store.migration-lock-ms", 10000)

	v.SetDefault("ingest.budget-seconds", 10)
	v.SetDefault("ingest.batch-size", 200)

	v.SetDefault("sweeper.budget-seconds", 5)
	v.SetDefault("sweeper.ttl-proposed", "336h")  // 14 days
	v.SetDefault("sweeper.ttl-disputed", "720h")  // 30 days
	v.SetDefault("sweeper.ttl-content", "720h")   // 30 days
	v.SetDefault("sweeper.stuck-after", "30m")

	v.SetDefault("recall.default-limit", 20)
	v.SetDefault("recall.scope", "all")

	v.SetDefault("watch.debounce-ms", 500)

	v.SetDefault("render.max-width", 100)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.dir", filepath.Join(homeDir, ".claude", "logs"))
	v.SetDefault("log.max-size-mb", 50)
	v.SetDefault("log.max-backups", 5)
	v.SetDefault("log.max-age-days", 30)
}

// GetString retrieves a string configuration value.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetInt retrieves an integer configuration value.
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetBool retrieves a boolean configuration value.
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetDuration retrieves a duration configuration value.
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set overrides a configuration value, taking precedence over file and
// environment for the remainder of the process.
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// ConfigFileUsed returns the path of the config file actually loaded, or
// "" if none was found (defaults/env only).
func ConfigFileUsed() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}
