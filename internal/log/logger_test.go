/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func lastJSON(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var last string
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no log lines in %q", b)
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal %q: %v", last, err)
	}
	return m
}

// Config supplies the level, the environment switches the format, and the
// result writes JSON to the injected Output writer.
func TestConfigLevelWithEnvFormat(t *testing.T) {
	var buf bytes.Buffer
	t.Setenv("SKB_LOG_FORMAT", "json")
	opts := Merge(FromConfig("warn", "console", "", false), EnvOverrides())
	opts.Output = &buf
	Init(opts)
	t.Cleanup(func() { Init(Options{}) })

	l := WithOperation(WithComponent("session"), "save")
	l.Info("filtered")
	if buf.Len() != 0 {
		t.Fatalf("info passed a warn level: %q", buf.String())
	}
	l.Warn("scene recovered", "dropped", 2)
	m := lastJSON(t, buf.Bytes())
	if m["level"] != "WARN" || m["msg"] != "scene recovered" {
		t.Fatalf("record %v", m)
	}
	if m["app"] != "sketchboard" || m["component"] != "session" || m["op"] != "save" || m["dropped"] != float64(2) {
		t.Fatalf("attrs %v", m)
	}
}

// The rotating file sink receives JSON with the scene tag while the console
// stays human readable.
func TestFileSinkCarriesScene(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "skb.log")
	Init(Options{Level: "debug", Format: "console", Output: &buf, File: path})
	t.Cleanup(func() { Init(Options{}) })

	ctx := ContextWithScene(context.Background(), "board")
	WithComponent("engine").DebugContext(ctx, "frame painted", "layers", 2)

	if out := buf.String(); !strings.Contains(out, "DBG") || !strings.Contains(out, "scene=board") {
		t.Fatalf("console line %q", out)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	m := lastJSON(t, b)
	if m["scene"] != "board" || m["component"] != "engine" || m["layers"] != float64(2) {
		t.Fatalf("file record %v", m)
	}
}
