/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sketchboard/internal/config"
	"sketchboard/internal/engine"
	applog "sketchboard/internal/log"
)

func pointer(x, y float64) engine.PointerEvent { return engine.PointerEvent{X: x, Y: y} }

func newCLI(t *testing.T) (*cli, *bytes.Buffer) {
	t.Helper()
	cfg := config.Defaults()
	cfg.Store.Path = filepath.Join(t.TempDir(), "scenes.db")
	cfg.Export.OutDir = t.TempDir()
	var out bytes.Buffer
	return &cli{out: &out, cfg: cfg, log: applog.WithComponent("cli")}, &out
}

// writeScene saves a demo-like scene file through the session layer.
func writeScene(t *testing.T, c *cli) string {
	t.Helper()
	s, _, err := c.newSession()
	if err != nil {
		t.Fatal(err)
	}
	e := s.Engine()
	e.SetTool(engine.ToolRectangle)
	drag := func(x0, y0, x1, y1 float64) {
		e.PointerDown(pointer(x0, y0))
		e.PointerMove(pointer((x0+x1)/2, (y0+y1)/2))
		e.PointerUp(pointer(x1, y1))
	}
	drag(10, 10, 120, 90)
	drag(200, 40, 260, 160)
	path := filepath.Join(t.TempDir(), "board.json")
	if err := s.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersionAndUsage(t *testing.T) {
	c, out := newCLI(t)
	if code := c.run([]string{"--version"}); code != 0 || !strings.Contains(out.String(), "Sketchboard") {
		t.Fatalf("version: %d %q", code, out.String())
	}
	out.Reset()
	if code := c.run(nil); code != 0 || !strings.Contains(out.String(), "Usage:") {
		t.Fatalf("usage: %d", code)
	}
	if code := c.run([]string{"bogus"}); code != 2 {
		t.Fatalf("unknown command exit %d", code)
	}
	if code := c.run([]string{"render", "only-one"}); code != 2 {
		t.Fatalf("missing args exit %d", code)
	}
}

func TestDemoWritesPNG(t *testing.T) {
	c, out := newCLI(t)
	png := filepath.Join(t.TempDir(), "demo.png")
	if code := c.run([]string{"demo", png}); code != 0 {
		t.Fatalf("demo failed: %s", out.String())
	}
	b, err := os.ReadFile(png)
	if err != nil || !bytes.HasPrefix(b, []byte("\x89PNG")) {
		t.Fatalf("demo output: %v", err)
	}
	if !strings.Contains(out.String(), "5 shapes") {
		t.Fatalf("demo summary %q", out.String())
	}
}

func TestRenderValidateBatch(t *testing.T) {
	c, out := newCLI(t)
	scene := writeScene(t, c)
	svg := filepath.Join(t.TempDir(), "board.svg")
	if code := c.run([]string{"render", scene, svg}); code != 0 {
		t.Fatalf("render: %s", out.String())
	}
	if b, _ := os.ReadFile(svg); !bytes.Contains(b, []byte("<svg")) {
		t.Fatalf("svg not written")
	}
	out.Reset()
	if code := c.run([]string{"validate", scene}); code != 0 || !strings.Contains(out.String(), "2 shapes, 0 invalid") {
		t.Fatalf("validate: %d %q", code, out.String())
	}
	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`{"version":1,"shapes":[{"id":"x","type":"blob"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if code := c.run([]string{"validate", bad}); code != 1 {
		t.Fatalf("bad scene validated")
	}
	out.Reset()
	dir := t.TempDir()
	if code := c.run([]string{"batch", scene, "print", dir}); code != 0 {
		t.Fatalf("batch: %s", out.String())
	}
	for _, f := range []string{filepath.Join(dir, "pdf", "board.pdf"), filepath.Join(dir, "png", "board.png")} {
		if _, err := os.Stat(f); err != nil {
			t.Fatalf("batch output %s: %v", f, err)
		}
	}
}

func TestStoreCommands(t *testing.T) {
	c, out := newCLI(t)
	scene := writeScene(t, c)
	for i := 0; i < 3; i++ {
		if code := c.run([]string{"store", "put", "board", scene}); code != 0 {
			t.Fatalf("put: %s", out.String())
		}
	}
	out.Reset()
	if code := c.run([]string{"store", "list"}); code != 0 || !strings.Contains(out.String(), "board") {
		t.Fatalf("list: %q", out.String())
	}
	got := filepath.Join(t.TempDir(), "got.json")
	if code := c.run([]string{"store", "get", "board", got, "2"}); code != 0 {
		t.Fatalf("get: %s", out.String())
	}
	if _, err := os.Stat(got); err != nil {
		t.Fatalf("get output: %v", err)
	}
	out.Reset()
	if code := c.run([]string{"store", "prune", "board", "1"}); code != 0 || !strings.Contains(out.String(), "Removed 2") {
		t.Fatalf("prune: %q", out.String())
	}
	out.Reset()
	if code := c.run([]string{"store", "log", "board"}); code != 0 || strings.Count(out.String(), "\n") != 2 {
		t.Fatalf("log: %q", out.String())
	}
	if code := c.run([]string{"store", "get", "missing", got}); code != 1 {
		t.Fatalf("missing scene exit %d", code)
	}
}

func TestWatchReexportsOnChange(t *testing.T) {
	c, _ := newCLI(t)
	scene := writeScene(t, c)
	png := filepath.Join(t.TempDir(), "watch.png")
	done := make(chan error, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.watchContext(ctx, scene, png, func(err error) { done <- err }) }()

	wait := func() error {
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatalf("no export within timeout")
			return nil
		}
	}
	if err := wait(); err != nil {
		t.Fatalf("initial export: %v", err)
	}
	// give the watcher a moment to register before touching the file
	time.Sleep(100 * time.Millisecond)
	data, err := os.ReadFile(scene)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(scene, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := wait(); err != nil {
		t.Fatalf("re-export: %v", err)
	}
}

func TestConfigPrintsYAML(t *testing.T) {
	c, out := newCLI(t)
	t.Setenv(config.EnvConfigDir, t.TempDir())
	if code := c.run([]string{"config"}); code != 0 {
		t.Fatalf("config exit %d", code)
	}
	if !strings.Contains(out.String(), "canvas:") || !strings.Contains(out.String(), "store:") {
		t.Fatalf("config output %q", out.String())
	}
}
