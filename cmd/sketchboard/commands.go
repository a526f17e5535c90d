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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"sketchboard/internal/config"
	"sketchboard/internal/engine"
	"sketchboard/internal/session"
	"sketchboard/internal/storage"
	"sketchboard/internal/ui"
)

// newSession builds an engine and session from the configuration.
func (c *cli) newSession() (*session.Session, engine.Options, error) {
	opt, err := session.EngineOptions(c.cfg.Canvas)
	if err != nil {
		return nil, opt, err
	}
	exp := session.ExportOptions(c.cfg.Export)
	exp.Faces = opt.Faces
	eng := engine.New(opt)
	// headless commands render at a fixed viewport
	eng.SetViewport(1280, 800, 1)
	c.sess = session.New(eng, session.Options{Export: exp})
	return c.sess, opt, nil
}

func (c *cli) openScene(path string) (*session.Session, error) {
	s, _, err := c.newSession()
	if err != nil {
		return nil, err
	}
	dropped, err := s.Open(path)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		fmt.Fprintf(c.out, "Skipped %d invalid shapes\n", dropped)
	}
	return s, nil
}

func (c *cli) render(scene, out string) error {
	s, err := c.openScene(scene)
	if err != nil {
		return err
	}
	if err := s.Export(out); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Exported", out)
	return nil
}

func (c *cli) validate(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read scene: %w", err)
	}
	if err := storage.ValidateSceneJSON(data); err != nil {
		return err
	}
	doc, err := storage.ParseScene(data)
	if err != nil {
		return err
	}
	s, _, err := c.newSession()
	if err != nil {
		return err
	}
	dropped := s.Load(doc)
	fmt.Fprintf(c.out, "%s: %d shapes, %d invalid\n", path, len(doc.Shapes), dropped)
	if dropped > 0 {
		return fmt.Errorf("%d shapes failed validation", dropped)
	}
	return nil
}

func (c *cli) batch(scene, preset, dir string) error {
	s, err := c.openScene(scene)
	if err != nil {
		return err
	}
	files, err := s.Batch(preset, dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Fprintln(c.out, f)
	}
	return nil
}

// watch re-exports scene to out on every change until interrupted.
func (c *cli) watch(scene, out string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return c.watchContext(ctx, scene, out, nil)
}

// watchContext is watch with an explicit context. rendered, if set, is
// called after each export attempt.
func (c *cli) watchContext(ctx context.Context, scene, out string, rendered func(error)) error {
	l := c.log.With(slog.String("scene", scene))
	abs, err := filepath.Abs(scene)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	// watch the directory; editors often replace files by rename
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	export := func() {
		err := c.render(abs, out)
		if err != nil {
			l.Warn("re-export failed", slog.Any("err", err))
		}
		if rendered != nil {
			rendered(err)
		}
	}
	export()
	fmt.Fprintln(c.out, "Watching", abs)

	const settle = 150 * time.Millisecond
	var timer *time.Timer
	fire := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// coalesce bursts of writes into one export
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(settle, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			export()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.Warn("watch error", slog.Any("err", err))
		}
	}
}

func (c *cli) openStore(ctx context.Context) (*storage.Store, error) {
	dsn := c.cfg.Store.StoreDSN(c.password)
	return storage.OpenStore(ctx, c.cfg.Store.Driver, dsn)
}

func (c *cli) store(args []string) error {
	ctx := context.Background()
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	switch args[0] {
	case "put":
		if len(args) < 3 {
			return errors.New("store put requires <name> and <scene.json>")
		}
		s, err := c.openScene(args[2])
		if err != nil {
			return err
		}
		r, err := s.Put(ctx, st, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Stored %s revision %d (%d shapes)\n", r.Name, r.Rev, r.Shapes)
	case "get":
		if len(args) < 3 {
			return errors.New("store get requires <name> and <out.json>")
		}
		rev := 0
		if len(args) > 3 {
			if rev, err = strconv.Atoi(args[3]); err != nil {
				return fmt.Errorf("invalid revision %q", args[3])
			}
		}
		s, _, err := c.newSession()
		if err != nil {
			return err
		}
		r, err := s.Get(ctx, st, args[1], rev)
		if err != nil {
			return err
		}
		if err := s.SaveAs(args[2]); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Wrote %s revision %d to %s\n", r.Name, r.Rev, args[2])
	case "list":
		entries, err := st.List(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tREVISIONS\tLATEST")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%d\t%d\n", e.Name, e.Revisions, e.Latest)
		}
		return tw.Flush()
	case "log":
		if len(args) < 2 {
			return errors.New("store log requires <name>")
		}
		limit := 20
		if len(args) > 2 {
			if limit, err = strconv.Atoi(args[2]); err != nil {
				return fmt.Errorf("invalid limit %q", args[2])
			}
		}
		revs, err := st.Revisions(ctx, args[1], limit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "REV\tSAVED\tSHAPES\tBYTES")
		for _, r := range revs {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", r.Rev, r.At.Local().Format(time.DateTime), r.Shapes, r.Size)
		}
		return tw.Flush()
	case "prune":
		if len(args) < 3 {
			return errors.New("store prune requires <name> and <keep>")
		}
		keep, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid keep count %q", args[2])
		}
		n, err := st.Prune(ctx, args[1], keep)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Removed %d revisions of %s\n", n, args[1])
	default:
		return fmt.Errorf("unknown store command %q", args[0])
	}
	return nil
}

func (c *cli) printConfig() error {
	if p, err := config.ConfigPath(); err == nil {
		fmt.Fprintln(c.out, "# "+p)
	}
	b, err := yaml.Marshal(c.cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = c.out.Write(b)
	return err
}

func (c *cli) ui(scene string) error {
	opt, err := session.EngineOptions(c.cfg.Canvas)
	if err != nil {
		return err
	}
	exp := session.ExportOptions(c.cfg.Export)
	exp.Faces = opt.Faces
	return ui.Run(scene, ui.Options{Engine: opt, Export: exp})
}
