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
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"
)

func isolate(t *testing.T) string {
	t.Helper()
	keyring.MockInit()
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	return dir
}

func TestEnvOverridesTelemetry(t *testing.T) {
	isolate(t)
	t.Setenv(EnvTelemetryOptIn, "true")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.General.TelemetryOptIn {
		t.Fatalf("General.TelemetryOptIn expected true from env override")
	}
	if env, ok := EnvOverrideFor("general.telemetry_opt_in"); !ok || env != EnvTelemetryOptIn {
		t.Fatalf("EnvOverrideFor = %q %v", env, ok)
	}
}

func TestEnvOverridesStoreAndExport(t *testing.T) {
	isolate(t)
	t.Setenv(EnvStoreDriver, "PGX")
	t.Setenv(EnvStoreDSN, "postgres://u@db/scenes")
	t.Setenv(EnvExportDPR, "2")
	t.Setenv(EnvHistoryLimit, "not-a-number")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Store.Driver != "pgx" || cfg.Store.DSN != "postgres://u@db/scenes" || cfg.Export.DPR != 2 {
		t.Fatalf("overrides not applied: %#v %#v", cfg.Store, cfg.Export)
	}
	if cfg.Canvas.HistoryLimit != 100 {
		t.Fatalf("invalid history limit override applied: %d", cfg.Canvas.HistoryLimit)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "debug"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "C:/tmp/skb.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "C:/tmp/skb.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestMergeKeepsDefaultsForZeroCanvasFields(t *testing.T) {
	dst := Defaults()
	var src AppConfig
	src.Canvas.MaxZoom = 800
	mergeInto(&dst, &src)
	if dst.Canvas.MaxZoom != 800 || dst.Canvas.MinZoom != 50 || dst.Canvas.StrokeWidth != 2 {
		t.Fatalf("canvas merge: %#v", dst.Canvas)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "X:/skb.log")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "X:/skb.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestSaveLoadRoundTripWithKeychain(t *testing.T) {
	dir := isolate(t)
	cfg := Defaults()
	cfg.Canvas.Background = "#fafafa"
	cfg.Store.Driver = "pgx"
	if err := Save(cfg, "s3cret"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Fatalf("config file missing: %v", err)
	}
	got, pw, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Canvas.Background != "#fafafa" || got.Store.Driver != "pgx" || pw != "s3cret" {
		t.Fatalf("round trip: %#v pw=%q", got.Canvas, pw)
	}
	if err := ForgetPassword(); err != nil {
		t.Fatalf("ForgetPassword: %v", err)
	}
	if err := ForgetPassword(); err != nil {
		t.Fatalf("second ForgetPassword: %v", err)
	}
	if _, pw, _ = Load(); pw != "" {
		t.Fatalf("password still present: %q", pw)
	}
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("canvas: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestStoreDSNInjectsPassword(t *testing.T) {
	s := StoreConfig{Driver: "pgx", DSN: "postgres://alice@db:5432/scenes"}
	if got := s.StoreDSN("pw"); got != "postgres://alice:pw@db:5432/scenes" {
		t.Fatalf("dsn %q", got)
	}
	s.DSN = "postgres://alice:other@db/scenes"
	if got := s.StoreDSN("pw"); got != s.DSN {
		t.Fatalf("explicit password overwritten: %q", got)
	}
	lite := StoreConfig{Driver: "sqlite", Path: "x.db"}
	if lite.StoreDSN("pw") != "x.db" {
		t.Fatalf("sqlite dsn %q", lite.StoreDSN("pw"))
	}
}
