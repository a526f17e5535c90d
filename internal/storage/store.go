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
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	applog "sketchboard/internal/log"
	"sketchboard/internal/version"

	// PostgreSQL driver registered as "pgx"
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// storeSchemaVersion tracks the scene store schema.
// Bump this when you perform breaking schema changes and add migrations.
const storeSchemaVersion = 2

// ErrNotFound is returned when a scene has no stored revision.
var ErrNotFound = errors.New("scene not found")

// Revision describes one stored version of a scene.
type Revision struct {
	Name   string
	Rev    int
	At     time.Time
	Shapes int
	Size   int
}

// Entry summarizes a stored scene.
type Entry struct {
	Name      string
	Revisions int
	Latest    int
}

// Store keeps named scene revisions in SQLite or PostgreSQL.
type Store struct {
	db     *sql.DB
	driver string
	log    *slog.Logger
}

// Driver normalizes a configured driver name to a database/sql driver.
func Driver(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sqlite", "sqlite3":
		return "sqlite", nil
	case "pgx", "postgres", "postgresql":
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported store driver %q", name)
	}
}

// SQLiteDSN turns a file path into a SQLite URI with shared cache and a busy timeout.
func SQLiteDSN(path string) string {
	if strings.HasPrefix(path, "file:") || path == ":memory:" {
		return path
	}
	// Convert to forward slashes for SQLite URI.
	return fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
}

// OpenStore opens (and migrates) the scene store. For sqlite, dsn may be a
// plain file path.
func OpenStore(ctx context.Context, driver, dsn string) (*Store, error) {
	drv, err := Driver(driver)
	if err != nil {
		return nil, err
	}
	l := applog.WithOperation(applog.WithComponent("storage"), "store_open").With(slog.String("driver", drv))
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("store dsn is required")
	}
	if drv == "sqlite" {
		if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
			if dir := filepath.Dir(dsn); dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("create store dir: %w", err)
				}
			}
		}
		dsn = SQLiteDSN(dsn)
	}
	db, err := sql.Open(drv, dsn)
	if err != nil {
		l.Error("store open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open %s: %w", drv, err)
	}
	s := &Store{db: db, driver: drv, log: l}
	if drv == "sqlite" {
		// Embedded usage: a single connection avoids SQLITE_BUSY between writers.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		l.Error("store ping failed", slog.Any("err", err))
		return nil, fmt.Errorf("ping %s: %w", drv, err)
	}
	if err := s.ensureVersion(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	l.Info("scene store ready")
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(q string) string {
	if s.driver != "pgx" {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(q), args...)
}

func (s *Store) ensureVersion(ctx context.Context) error {
	// language=SQL
	ddl := `CREATE TABLE IF NOT EXISTS version (
		id          INTEGER PRIMARY KEY CHECK(id=1),
		schema      INTEGER NOT NULL,
		app         TEXT,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create version table: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	var cur int
	err := s.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Fresh store: start at 0 so every migration runs.
		if _, err := s.exec(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 0, ?, ?, ?)`, version.String(), now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := s.exec(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, version.String(), now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

func (s *Store) migrationSteps(step int) []string {
	switch step {
	case 1:
		id := "INTEGER PRIMARY KEY AUTOINCREMENT"
		blob := "BLOB"
		if s.driver == "pgx" {
			id, blob = "BIGSERIAL PRIMARY KEY", "BYTEA"
		}
		return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS scene_revisions (
			id      %s,
			name    TEXT NOT NULL,
			rev     INTEGER NOT NULL,
			ts      TEXT NOT NULL,
			shapes  INTEGER NOT NULL,
			doc     %s NOT NULL,
			UNIQUE(name, rev)
		)`, id, blob)}
	case 2:
		return []string{`CREATE INDEX IF NOT EXISTS idx_scene_revisions_name ON scene_revisions(name, rev)`}
	}
	return nil
}

// migrate applies incremental schema migrations up to storeSchemaVersion.
func (s *Store) migrate(ctx context.Context) error {
	var cur int
	if err := s.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > storeSchemaVersion {
		s.log.Warn("store schema is newer than this build", slog.Int("schema", cur))
		return nil
	}
	for cur < storeSchemaVersion {
		next := cur + 1
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range s.migrationSteps(next) {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, s.rebind(`UPDATE version SET schema=?, updated_at=? WHERE id=1`), next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		s.log.Debug("store migrated", slog.Int("schema", next))
		cur = next
	}
	return nil
}

// SchemaVersion reports the applied store schema.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var cur int
	err := s.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	return cur, err
}

// language=SQL
const nextRevSQL = `SELECT COALESCE(MAX(rev), 0) + 1 FROM scene_revisions WHERE name = ?`

// language=SQL
const insertRevisionSQL = `INSERT INTO scene_revisions(name, rev, ts, shapes, doc) VALUES (?, ?, ?, ?, ?)`

// language=SQL
const selectLatestSQL = `SELECT rev, ts, shapes, doc FROM scene_revisions WHERE name = ? ORDER BY rev DESC LIMIT 1`

// language=SQL
const selectRevisionSQL = `SELECT rev, ts, shapes, doc FROM scene_revisions WHERE name = ? AND rev = ?`

// language=SQL
const listRevisionsSQL = `SELECT rev, ts, shapes, LENGTH(doc) FROM scene_revisions WHERE name = ? ORDER BY rev DESC LIMIT ?`

// language=SQL
const listScenesSQL = `SELECT name, COUNT(*), MAX(rev) FROM scene_revisions GROUP BY name ORDER BY name`

// language=SQL
const pruneRevisionsSQL = `DELETE FROM scene_revisions WHERE name = ? AND rev NOT IN (
	SELECT rev FROM scene_revisions WHERE name = ? ORDER BY rev DESC LIMIT ?
)`

// Put stores doc as the next revision of name.
func (s *Store) Put(ctx context.Context, name string, doc SceneDoc) (Revision, error) {
	if strings.TrimSpace(name) == "" {
		return Revision{}, errors.New("scene name is required")
	}
	data, err := MarshalScene(doc)
	if err != nil {
		return Revision{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Revision{}, fmt.Errorf("begin put: %w", err)
	}
	var rev int
	if err := tx.QueryRowContext(ctx, s.rebind(nextRevSQL), name).Scan(&rev); err != nil {
		_ = tx.Rollback()
		return Revision{}, fmt.Errorf("next revision: %w", err)
	}
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, s.rebind(insertRevisionSQL), name, rev, now.Format(time.RFC3339Nano), len(doc.Shapes), data); err != nil {
		_ = tx.Rollback()
		return Revision{}, fmt.Errorf("insert revision: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Revision{}, fmt.Errorf("commit put: %w", err)
	}
	r := Revision{Name: name, Rev: rev, At: now, Shapes: len(doc.Shapes), Size: len(data)}
	s.log.Info("scene stored", slog.String("name", name), slog.Int("rev", rev), slog.Int("shapes", r.Shapes))
	return r, nil
}

// Latest returns the newest revision of name.
func (s *Store) Latest(ctx context.Context, name string) (SceneDoc, Revision, error) {
	return s.scanDoc(name, s.db.QueryRowContext(ctx, s.rebind(selectLatestSQL), name))
}

// Get returns a specific revision of name.
func (s *Store) Get(ctx context.Context, name string, rev int) (SceneDoc, Revision, error) {
	return s.scanDoc(name, s.db.QueryRowContext(ctx, s.rebind(selectRevisionSQL), name, rev))
}

func (s *Store) scanDoc(name string, row *sql.Row) (SceneDoc, Revision, error) {
	var (
		r     = Revision{Name: name}
		tsStr string
		blob  []byte
	)
	err := row.Scan(&r.Rev, &tsStr, &r.Shapes, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return SceneDoc{}, Revision{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return SceneDoc{}, Revision{}, err
	}
	r.At, _ = time.Parse(time.RFC3339Nano, tsStr)
	r.Size = len(blob)
	doc, err := ParseScene(blob)
	if err != nil {
		return SceneDoc{}, r, fmt.Errorf("parse stored scene %s@%d: %w", name, r.Rev, err)
	}
	return doc, r, nil
}

// Revisions returns up to limit most recent revisions of name, newest first.
func (s *Store) Revisions(ctx context.Context, name string, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(listRevisionsSQL), name, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Revision
	for rows.Next() {
		r := Revision{Name: name}
		var tsStr string
		if err := rows.Scan(&r.Rev, &tsStr, &r.Shapes, &r.Size); err != nil {
			return nil, err
		}
		r.At, _ = time.Parse(time.RFC3339Nano, tsStr)
		out = append(out, r)
	}
	return out, rows.Err()
}

// List returns every stored scene with its revision count.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, listScenesSQL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Name, &e.Revisions, &e.Latest); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune keeps at most keepLast revisions of name and deletes older ones.
func (s *Store) Prune(ctx context.Context, name string, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	res, err := s.exec(ctx, pruneRevisionsSQL, name, name, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
