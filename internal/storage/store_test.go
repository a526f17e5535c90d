/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(context.Background(), "sqlite", filepath.Join(t.TempDir(), "store", "scenes.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStorePutLatestRevisions(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if _, _, err := s.Latest(ctx, "board"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	doc := sampleDoc()
	r1, err := s.Put(ctx, "board", doc)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	doc.Name = "v2"
	doc.Shapes = doc.Shapes[:1]
	r2, err := s.Put(ctx, "board", doc)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if r1.Rev != 1 || r2.Rev != 2 || r2.Shapes != 1 {
		t.Fatalf("revisions: %#v %#v", r1, r2)
	}

	got, rev, err := s.Latest(ctx, "board")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if rev.Rev != 2 || got.Name != "v2" || len(got.Shapes) != 1 {
		t.Fatalf("latest: %#v %#v", rev, got)
	}
	old, _, err := s.Get(ctx, "board", 1)
	if err != nil || len(old.Shapes) != 2 {
		t.Fatalf("Get rev 1: %v %#v", err, old)
	}

	revs, err := s.Revisions(ctx, "board", 0)
	if err != nil {
		t.Fatalf("Revisions: %v", err)
	}
	if len(revs) != 2 || revs[0].Rev != 2 || revs[0].Size == 0 || revs[0].At.IsZero() {
		t.Fatalf("revisions list: %#v", revs)
	}

	if _, err := s.Put(ctx, "other", sampleDoc()); err != nil {
		t.Fatalf("Put other: %v", err)
	}
	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Name != "board" || list[0].Revisions != 2 || list[0].Latest != 2 || list[1].Name != "other" {
		t.Fatalf("list: %#v", list)
	}
	if _, err := s.Put(ctx, " ", doc); err == nil {
		t.Fatalf("expected error for blank name")
	}
}

func TestStorePrune(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	for i := 0; i < 5; i++ {
		if _, err := s.Put(ctx, "board", sampleDoc()); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	n, err := s.Prune(ctx, "board", 2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 3 {
		t.Fatalf("pruned %d, want 3", n)
	}
	revs, _ := s.Revisions(ctx, "board", 10)
	if len(revs) != 2 || revs[0].Rev != 5 || revs[1].Rev != 4 {
		t.Fatalf("kept: %#v", revs)
	}
	if n, _ := s.Prune(ctx, "board", 0); n != 0 {
		t.Fatalf("keep 0 must be a no-op")
	}
	// numbering continues after pruning
	r, _ := s.Put(ctx, "board", sampleDoc())
	if r.Rev != 6 {
		t.Fatalf("next rev %d", r.Rev)
	}
}

func TestStoreMigrationsAndReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "scenes.db")
	s, err := OpenStore(ctx, "", path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	if v, err := s.SchemaVersion(ctx); err != nil || v != storeSchemaVersion {
		t.Fatalf("schema version %d %v", v, err)
	}
	if _, err := s.Put(ctx, "keep", sampleDoc()); err != nil {
		t.Fatalf("Put: %v", err)
	}
	_ = s.Close()

	s, err = OpenStore(ctx, "sqlite", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s.Close() }()
	if _, r, err := s.Latest(ctx, "keep"); err != nil || r.Rev != 1 {
		t.Fatalf("data lost across reopen: %v %#v", err, r)
	}
}

func TestDriverAndRebind(t *testing.T) {
	for in, want := range map[string]string{"": "sqlite", "SQLite": "sqlite", "postgres": "pgx", "pgx": "pgx"} {
		if got, err := Driver(in); err != nil || got != want {
			t.Fatalf("Driver(%q) = %q %v", in, got, err)
		}
	}
	if _, err := Driver("mysql"); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	pg := &Store{driver: "pgx"}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Fatalf("rebind %q", got)
	}
	lite := &Store{driver: "sqlite"}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite rebind %q", got)
	}
	if SQLiteDSN(":memory:") != ":memory:" || SQLiteDSN("file:x.db") != "file:x.db" {
		t.Fatalf("dsn passthrough")
	}
	if _, err := OpenStore(context.Background(), "sqlite", ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}
