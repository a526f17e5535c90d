/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
}

// CanvasConfig tunes the drawing surface.
type CanvasConfig struct {
	MinZoom      float64 `yaml:"min_zoom"`
	MaxZoom      float64 `yaml:"max_zoom"`
	ZoomStep     float64 `yaml:"zoom_step"`
	HistoryLimit int     `yaml:"history_limit"`
	// HistoryMaxBytes caps the memory held by undo snapshots; 0 disables it.
	HistoryMaxBytes int     `yaml:"history_max_bytes"`
	EraserFactor    float64 `yaml:"eraser_factor"`
	Background      string  `yaml:"background"`
	Color           string  `yaml:"color"`
	StrokeWidth     float64 `yaml:"stroke_width"`
	Roughness       float64 `yaml:"roughness"`
	FontFile        string  `yaml:"font_file"`
}

type ExportConfig struct {
	Format string  `yaml:"format"` // png | pdf | svg
	DPR    float64 `yaml:"dpr"`
	OutDir string  `yaml:"out_dir"`
}

// StoreConfig selects the scene store. The password is not stored on disk;
// it lives in the OS keychain.
type StoreConfig struct {
	Driver string `yaml:"driver"` // sqlite | pgx
	DSN    string `yaml:"dsn"`
	Path   string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Canvas        CanvasConfig  `yaml:"canvas"`
	Export        ExportConfig  `yaml:"export"`
	Store         StoreConfig   `yaml:"store"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "system"},
		Canvas: CanvasConfig{
			MinZoom: 50, MaxZoom: 400, ZoomStep: 10,
			HistoryLimit: 100, EraserFactor: 5,
			Background: "#ffffff", Color: "#000000", StrokeWidth: 2,
		},
		Export:  ExportConfig{Format: "png", DPR: 1, OutDir: "."},
		Store:   StoreConfig{Driver: "sqlite", Path: "sketchboard.db"},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigDir      = "SKB_CONFIG_DIR"
	EnvTelemetryOptIn = "SKB_TELEMETRY_OPT_IN"
	EnvTheme          = "SKB_THEME"
	EnvBackground     = "SKB_BACKGROUND"
	EnvHistoryLimit   = "SKB_HISTORY_LIMIT"
	EnvExportFormat   = "SKB_EXPORT_FORMAT"
	EnvExportDPR      = "SKB_EXPORT_DPR"
	EnvStoreDriver    = "SKB_STORE_DRIVER"
	EnvStoreDSN       = "SKB_STORE_DSN"
	EnvStorePath      = "SKB_STORE_PATH"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "SKB_LOG_LEVEL"
	EnvLogFormat = "SKB_LOG_FORMAT"
	EnvLogSource = "SKB_LOG_SOURCE"
	EnvLogFile   = "SKB_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService  = "Sketchboard"
	keyringPassword = "store_password"
)

// SecretStore abstracts the keyring, so we can stub it in tests.
type SecretStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements SecretStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var secretStore SecretStore = osKeyring{}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	if d := strings.TrimSpace(os.Getenv(EnvConfigDir)); d != "" {
		return filepath.Join(d, "config.yaml"), nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Sketchboard")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Sketchboard")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "sketchboard")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads user config file (if present), applies defaults, and merges environment overrides.
// It also loads the store password from keyring (not kept inside the struct; returned separately).
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	}
	applyEnvOverrides(&cfg)
	// a missing keychain entry is not an error
	secret, _ := secretStore.Get(keyringService, keyringPassword)
	return cfg, secret, nil
}

// Save writes the user config YAML and persists the password into OS keyring (if non-empty).
func Save(cfg AppConfig, password string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if password != "" {
		if err := secretStore.Set(keyringService, keyringPassword, password); err != nil {
			return fmt.Errorf("store password in keychain: %w", err)
		}
	}
	return nil
}

// ForgetPassword removes the stored password from the keychain.
func ForgetPassword() error {
	err := secretStore.Delete(keyringService, keyringPassword)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	// canvas
	c, s := &dst.Canvas, src.Canvas
	if s.MinZoom > 0 {
		c.MinZoom = s.MinZoom
	}
	if s.MaxZoom > 0 {
		c.MaxZoom = s.MaxZoom
	}
	if s.ZoomStep > 0 {
		c.ZoomStep = s.ZoomStep
	}
	if s.HistoryLimit > 0 {
		c.HistoryLimit = s.HistoryLimit
	}
	if s.HistoryMaxBytes > 0 {
		c.HistoryMaxBytes = s.HistoryMaxBytes
	}
	if s.EraserFactor > 0 {
		c.EraserFactor = s.EraserFactor
	}
	if strings.TrimSpace(s.Background) != "" {
		c.Background = strings.TrimSpace(s.Background)
	}
	if strings.TrimSpace(s.Color) != "" {
		c.Color = strings.TrimSpace(s.Color)
	}
	if s.StrokeWidth > 0 {
		c.StrokeWidth = s.StrokeWidth
	}
	if s.Roughness > 0 {
		c.Roughness = s.Roughness
	}
	if strings.TrimSpace(s.FontFile) != "" {
		c.FontFile = strings.TrimSpace(s.FontFile)
	}
	// export
	if strings.TrimSpace(src.Export.Format) != "" {
		dst.Export.Format = strings.ToLower(strings.TrimSpace(src.Export.Format))
	}
	if src.Export.DPR > 0 {
		dst.Export.DPR = src.Export.DPR
	}
	if strings.TrimSpace(src.Export.OutDir) != "" {
		dst.Export.OutDir = strings.TrimSpace(src.Export.OutDir)
	}
	// store
	if strings.TrimSpace(src.Store.Driver) != "" {
		dst.Store.Driver = strings.ToLower(strings.TrimSpace(src.Store.Driver))
	}
	if strings.TrimSpace(src.Store.DSN) != "" {
		dst.Store.DSN = strings.TrimSpace(src.Store.DSN)
	}
	if strings.TrimSpace(src.Store.Path) != "" {
		dst.Store.Path = strings.TrimSpace(src.Store.Path)
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTheme)); v != "" {
		cfg.General.Theme = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackground)); v != "" {
		cfg.Canvas.Background = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvHistoryLimit)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Canvas.HistoryLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportFormat)); v != "" {
		cfg.Export.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportDPR)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Export.DPR = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoreDriver)); v != "" {
		cfg.Store.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoreDSN)); v != "" {
		cfg.Store.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorePath)); v != "" {
		cfg.Store.Path = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envKeys = map[string]string{
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"general.theme":            EnvTheme,
	"canvas.background":        EnvBackground,
	"canvas.history_limit":     EnvHistoryLimit,
	"export.format":            EnvExportFormat,
	"export.dpr":               EnvExportDPR,
	"store.driver":             EnvStoreDriver,
	"store.dsn":                EnvStoreDSN,
	"store.path":               EnvStorePath,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	if env, ok := envKeys[key]; ok && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}

// StoreDSN returns the driver DSN with the keychain password injected for
// postgres URLs that carry a user but no password. sqlite uses Path.
func (s StoreConfig) StoreDSN(password string) string {
	if s.Driver != "pgx" && s.Driver != "postgres" {
		if s.DSN != "" {
			return s.DSN
		}
		return s.Path
	}
	u, err := url.Parse(s.DSN)
	if err != nil || u.User == nil || password == "" {
		return s.DSN
	}
	if _, has := u.User.Password(); has {
		return s.DSN
	}
	u.User = url.UserPassword(u.User.Username(), password)
	return u.String()
}
