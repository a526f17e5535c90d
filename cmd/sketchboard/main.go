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
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"sketchboard/internal/config"
	"sketchboard/internal/crash"
	applog "sketchboard/internal/log"
	"sketchboard/internal/session"
	"sketchboard/internal/storage"
	"sketchboard/internal/telemetry"
	"sketchboard/internal/version"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "Sketchboard - a hand-drawn style whiteboard")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  sketchboard version|-v|--version                 Show version")
	fmt.Fprintln(w, "  sketchboard demo <out.(png|svg|pdf)>             Draw a sample scene and export it")
	fmt.Fprintln(w, "  sketchboard render <scene.json> <out.(png|svg|pdf)>  Export a scene file")
	fmt.Fprintln(w, "  sketchboard validate <scene.json>                Check a scene file against the schema")
	fmt.Fprintln(w, "  sketchboard batch <scene.json> <web|print> [dir]  Export a scene with a preset")
	fmt.Fprintln(w, "  sketchboard watch <scene.json> <out.png>         Re-export whenever the scene changes")
	fmt.Fprintln(w, "  sketchboard store put <name> <scene.json>        Store a scene as a new revision")
	fmt.Fprintln(w, "  sketchboard store get <name> <out.json> [rev]    Write a stored revision to a file")
	fmt.Fprintln(w, "  sketchboard store list                           List stored scenes")
	fmt.Fprintln(w, "  sketchboard store log <name> [limit]             Show revisions of a scene")
	fmt.Fprintln(w, "  sketchboard store prune <name> <keep>            Drop all but the newest revisions")
	fmt.Fprintln(w, "  sketchboard config                               Print the effective configuration")
	fmt.Fprintln(w, "  sketchboard ui [<scene.json>]                    Launch desktop UI (build with -tags fyne)")
}

func main() {
	cfg, pw, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Warning:", err)
	}
	// config file values first, environment on top
	applog.Init(applog.Merge(
		applog.FromConfig(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.File, cfg.Logging.Source),
		applog.EnvOverrides(),
	))
	telemetry.NewDefault(telemetry.FromEnv().WithOptIn(cfg.General.TelemetryOptIn))

	c := &cli{out: os.Stdout, cfg: cfg, password: pw, log: applog.WithComponent("cli")}
	defer crash.RecoverFunc(c.handle)

	code := c.run(os.Args[1:])
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	telemetry.Flush(ctx)
	cancel()
	if code != 0 {
		os.Exit(code)
	}
}

// cli carries what the subcommands share.
type cli struct {
	out      io.Writer
	cfg      config.AppConfig
	password string
	log      *slog.Logger
	sess     *session.Session
}

// handle exposes the open scene to crash autosave.
func (c *cli) handle() *storage.SceneHandle {
	if c.sess == nil {
		return nil
	}
	return c.sess.Handle()
}

func (c *cli) run(args []string) int {
	c.log.Debug("start", slog.Int("args", len(args)))
	if len(args) == 0 {
		usage(c.out)
		return 0
	}
	var err error
	switch args[0] {
	case "version", "--version", "-v":
		fmt.Fprintln(c.out, "Sketchboard")
		fmt.Fprintln(c.out, version.String())
		return 0
	case "demo":
		if len(args) < 2 {
			return c.usageErr("demo requires <out>")
		}
		err = c.demo(args[1])
	case "render":
		if len(args) < 3 {
			return c.usageErr("render requires <scene.json> and <out>")
		}
		err = c.render(args[1], args[2])
	case "validate":
		if len(args) < 2 {
			return c.usageErr("validate requires <scene.json>")
		}
		err = c.validate(args[1])
	case "batch":
		if len(args) < 3 {
			return c.usageErr("batch requires <scene.json> and <web|print>")
		}
		dir := c.cfg.Export.OutDir
		if len(args) > 3 {
			dir = args[3]
		}
		err = c.batch(args[1], args[2], dir)
	case "watch":
		if len(args) < 3 {
			return c.usageErr("watch requires <scene.json> and <out>")
		}
		err = c.watch(args[1], args[2])
	case "store":
		if len(args) < 2 {
			return c.usageErr("store requires a subcommand")
		}
		err = c.store(args[1:])
	case "config":
		err = c.printConfig()
	case "ui":
		var scene string
		if len(args) > 1 {
			scene = args[1]
		}
		err = c.ui(scene)
	default:
		return c.usageErr("unknown command " + args[0])
	}
	if err != nil {
		c.log.Error("command failed", slog.String("cmd", args[0]), slog.Any("err", err))
		fmt.Fprintln(c.out, "Error:", err)
		return 1
	}
	return 0
}

func (c *cli) usageErr(msg string) int {
	fmt.Fprintln(c.out, msg)
	usage(c.out)
	return 2
}
