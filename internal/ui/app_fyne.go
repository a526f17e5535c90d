//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"sketchboard/internal/crash"
	"sketchboard/internal/engine"
	"sketchboard/internal/export"
	applog "sketchboard/internal/log"
	"sketchboard/internal/session"
	"sketchboard/internal/version"
)

// Run starts the desktop editor. A non-empty scenePath is opened at startup.
func Run(scenePath string, opt Options) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	eng := engine.New(opt.Engine)
	sess := session.New(eng, session.Options{Export: opt.Export})
	defer crash.RecoverFunc(sess.Handle)

	fyneApp := app.NewWithID("sketchboard")
	w := fyneApp.NewWindow(WindowTitle(sess.Title(), false))
	// restore window size from preferences
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1200)
	winH := prefs.IntWithFallback("window.height", 800)
	if winW < 640 {
		winW = 640
	}
	if winH < 480 {
		winH = 480
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	board := NewBoard(eng)

	// text editing bar, shown while the engine has an open editor
	textEntry := widget.NewMultiLineEntry()
	textEntry.SetMinRowsVisible(2)
	textEntry.OnChanged = func(s string) { eng.SetTextValue(s) }
	var refresh func()
	textDone := widget.NewButton("Done", func() {
		eng.CommitText(textEntry.Text)
		board.changed()
	})
	textCancel := widget.NewButton("Cancel", func() {
		eng.CancelText()
		board.changed()
	})
	textBar := container.NewBorder(nil, nil, widget.NewLabel("Text"), container.NewHBox(textCancel, textDone), textEntry)
	textBar.Hide()

	// tool buttons
	toolButtons := map[engine.Tool]*widget.Button{}
	var insertImage func()
	toolRow := container.NewHBox()
	for _, t := range engine.Tools {
		btn := widget.NewButton(ToolLabel(t), func() {
			if t == engine.ToolImage {
				insertImage()
				return
			}
			eng.SetTool(t)
			board.changed()
		})
		toolButtons[t] = btn
		toolRow.Add(btn)
	}

	style := eng.State().Style
	colorSelect := widget.NewSelect(Palette, func(c string) {
		st := eng.State().Style
		st.Color = c
		eng.SetStyle(st)
		board.changed()
	})
	colorSelect.SetSelected(style.Color)
	widthSlider := widget.NewSlider(1, 20)
	widthSlider.Step = 1
	widthSlider.SetValue(style.StrokeWidth)
	widthSlider.OnChangeEnded = func(v float64) {
		st := eng.State().Style
		st.StrokeWidth = v
		eng.SetStyle(st)
		board.changed()
	}
	roughSlider := widget.NewSlider(0, 3)
	roughSlider.Step = 0.5
	roughSlider.SetValue(style.Roughness)
	roughSlider.OnChangeEnded = func(v float64) {
		st := eng.State().Style
		st.Roughness = v
		eng.SetStyle(st)
		board.changed()
	}
	zoomLabel := widget.NewLabel("100%")
	undoBtn := widget.NewButton("Undo", func() { eng.Undo(); board.changed() })
	redoBtn := widget.NewButton("Redo", func() { eng.Redo(); board.changed() })
	styleRow := container.NewHBox(
		widget.NewLabel("Color"), colorSelect,
		widget.NewLabel("Width"), container.NewGridWrap(fyne.NewSize(120, 36), widthSlider),
		widget.NewLabel("Rough"), container.NewGridWrap(fyne.NewSize(90, 36), roughSlider),
		widget.NewSeparator(),
		widget.NewButton("-", func() { eng.ZoomOut(); board.changed() }),
		zoomLabel,
		widget.NewButton("+", func() { eng.ZoomIn(); board.changed() }),
		widget.NewSeparator(),
		undoBtn, redoBtn,
	)

	var lastNotice uint64
	editing := false
	refresh = func() {
		st := eng.State()
		w.SetTitle(WindowTitle(sess.Title(), sess.Dirty()))
		status.SetText(StatusLine(st))
		zoomLabel.SetText(fmt.Sprintf("%.0f%%", st.Zoom))
		for t, btn := range toolButtons {
			imp := widget.MediumImportance
			if t == st.Tool {
				imp = widget.HighImportance
			}
			if btn.Importance != imp {
				btn.Importance = imp
				btn.Refresh()
			}
		}
		if st.CanUndo {
			undoBtn.Enable()
		} else {
			undoBtn.Disable()
		}
		if st.CanRedo {
			redoBtn.Enable()
		} else {
			redoBtn.Disable()
		}
		switch {
		case st.Editing != nil && !editing:
			editing = true
			textEntry.SetText(st.Editing.Value)
			textBar.Show()
			w.Canvas().Focus(textEntry)
		case st.Editing == nil && editing:
			editing = false
			textBar.Hide()
			w.Canvas().Focus(board)
		}
		if n := st.Notice; n != nil && n.ID != lastNotice {
			lastNotice = n.ID
			dialog.ShowInformation("Sketchboard", n.Message, w)
			eng.DismissNotice(n.ID)
		}
	}
	board.OnChanged = refresh

	// focus returning to the window revalidates the scene
	fyneApp.Lifecycle().SetOnEnteredForeground(func() {
		if dropped := eng.Revalidate(); dropped > 0 {
			l.Warn("invalid shapes removed", slog.Int("dropped", dropped))
		}
		board.changed()
	})

	// Scene file actions
	confirmDiscard := func(title string, then func()) {
		if !sess.Dirty() {
			then()
			return
		}
		dialog.ShowConfirm(title, "The scene has unsaved changes. Discard them?", func(ok bool) {
			if ok {
				then()
			}
		}, w)
	}
	var rebuildRecent func()
	openPath := func(path string) {
		dropped, err := sess.Open(path)
		if err != nil {
			l.Error("open scene failed", slog.String("path", path), slog.Any("err", err))
			dialog.ShowError(err, w)
			return
		}
		addRecentScene(prefs, path)
		rebuildRecent()
		msg := "Opened " + filepath.Base(path)
		if dropped > 0 {
			msg += fmt.Sprintf(" (%d invalid shapes skipped)", dropped)
		}
		status.SetText(msg)
		board.changed()
	}
	var saveAs func(after func())
	saveAs = func(after func()) {
		save := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if uc == nil {
				return
			}
			path := uc.URI().Path()
			_ = uc.Close()
			if filepath.Ext(path) == "" {
				path += ".json"
			}
			if err := sess.SaveAs(path); err != nil {
				l.Error("save as failed", slog.Any("err", err))
				dialog.ShowError(err, w)
				return
			}
			addRecentScene(prefs, path)
			rebuildRecent()
			refresh()
			if after != nil {
				after()
			}
		}, w)
		save.SetFileName(sess.Title() + ".json")
		save.SetFilter(fstorage.NewExtensionFileFilter([]string{".json"}))
		save.Show()
	}
	save := func() {
		err := sess.Save()
		if errors.Is(err, session.ErrNoPath) {
			saveAs(nil)
			return
		}
		if err != nil {
			l.Error("save failed", slog.Any("err", err))
			dialog.ShowError(err, w)
			return
		}
		status.SetText("Saved " + sess.Path())
		refresh()
	}

	insertImage = func() {
		fd := dialog.NewFileOpen(func(ur fyne.URIReadCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if ur == nil {
				return
			}
			data, rerr := io.ReadAll(ur)
			_ = ur.Close()
			if rerr != nil {
				dialog.ShowError(rerr, w)
				return
			}
			// decode failures surface as an engine notice
			if _, err := eng.InsertImage(data, eng.ViewCenter()); err != nil {
				l.Warn("insert image failed", slog.Any("err", err))
			}
			board.changed()
		}, w)
		fd.SetFilter(fstorage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp", ".tif", ".tiff"}))
		fd.Show()
	}

	// Build menus
	newItem := fyne.NewMenuItem("New", func() {
		confirmDiscard("New Scene", func() {
			sess.Reset()
			status.SetText("New scene")
			board.changed()
		})
	})
	openItem := fyne.NewMenuItem("Open…", func() {
		confirmDiscard("Open Scene", func() {
			fd := dialog.NewFileOpen(func(ur fyne.URIReadCloser, err error) {
				if err != nil {
					dialog.ShowError(err, w)
					return
				}
				if ur == nil {
					return
				}
				path := ur.URI().Path()
				_ = ur.Close()
				openPath(path)
			}, w)
			fd.SetFilter(fstorage.NewExtensionFileFilter([]string{".json"}))
			fd.Show()
		})
	})
	recentItem := fyne.NewMenuItem("Open Recent", nil)
	rebuildRecent = func() {
		var items []*fyne.MenuItem
		for _, p := range loadRecentScenes(prefs) {
			items = append(items, fyne.NewMenuItem(p, func() {
				confirmDiscard("Open Scene", func() { openPath(p) })
			}))
		}
		if len(items) == 0 {
			none := fyne.NewMenuItem("(none)", nil)
			none.Disabled = true
			items = append(items, none)
		}
		recentItem.ChildMenu = fyne.NewMenu("Open Recent", items...)
		if m := w.MainMenu(); m != nil {
			m.Refresh()
		}
	}
	rebuildRecent()
	saveItem := fyne.NewMenuItem("Save", save)
	saveAsItem := fyne.NewMenuItem("Save As…", func() { saveAs(nil) })
	newItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyN, Modifier: fyne.KeyModifierShortcutDefault}
	openItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierShortcutDefault}
	saveItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierShortcutDefault}
	fileMenu := fyne.NewMenu("File", newItem, openItem, recentItem, fyne.NewMenuItemSeparator(), saveItem, saveAsItem)

	undoItem := fyne.NewMenuItem("Undo", func() { eng.Undo(); board.changed() })
	redoItem := fyne.NewMenuItem("Redo", func() { eng.Redo(); board.changed() })
	deleteItem := fyne.NewMenuItem("Delete Selected", func() { eng.DeleteSelected(); board.changed() })
	clearItem := fyne.NewMenuItem("Clear Canvas", func() {
		dialog.ShowConfirm("Clear Canvas", "Remove all shapes? This can be undone.", func(ok bool) {
			if ok {
				eng.Clear()
				board.changed()
			}
		}, w)
	})
	undoItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault}
	redoItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierShortcutDefault}
	editMenu := fyne.NewMenu("Edit", undoItem, redoItem, fyne.NewMenuItemSeparator(), deleteItem, clearItem)

	zoomInItem := fyne.NewMenuItem("Zoom In", func() { eng.ZoomIn(); board.changed() })
	zoomOutItem := fyne.NewMenuItem("Zoom Out", func() { eng.ZoomOut(); board.changed() })
	zoomResetItem := fyne.NewMenuItem("Actual Size", func() { eng.ResetZoom(); board.changed() })
	zoomInItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyEqual, Modifier: fyne.KeyModifierShortcutDefault}
	zoomOutItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyMinus, Modifier: fyne.KeyModifierShortcutDefault}
	zoomResetItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.Key0, Modifier: fyne.KeyModifierShortcutDefault}
	viewMenu := fyne.NewMenu("View", zoomInItem, zoomOutItem, zoomResetItem)

	insertMenu := fyne.NewMenu("Insert", fyne.NewMenuItem("Image…", func() { insertImage() }))

	// Export menu
	exportItem := func(label, ext string) *fyne.MenuItem {
		return fyne.NewMenuItem(label, func() {
			fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
				if err != nil {
					dialog.ShowError(err, w)
					return
				}
				if uc == nil {
					return
				}
				out := uc.URI().Path()
				_ = uc.Close()
				if !strings.EqualFold(filepath.Ext(out), ext) {
					out += ext
				}
				start := time.Now()
				if err := sess.Export(out); err != nil {
					l.Error("export failed", slog.String("path", out), slog.Any("err", err))
					dialog.ShowError(err, w)
					return
				}
				l.Info("exported", slog.String("path", out), slog.Duration("took", time.Since(start)))
				dialog.ShowInformation("Export", "Exported to "+out, w)
			}, w)
			fd.SetFileName(sess.Title() + ext)
			fd.SetFilter(fstorage.NewExtensionFileFilter([]string{ext}))
			fd.Show()
		})
	}
	presetItem := func(preset export.PresetName) *fyne.MenuItem {
		return fyne.NewMenuItem(fmt.Sprintf("Export %s Preset…", capitalize(string(preset))), func() {
			fd := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
				if err != nil {
					dialog.ShowError(err, w)
					return
				}
				if uri == nil {
					return
				}
				files, err := sess.Batch(string(preset), uri.Path())
				if err != nil {
					dialog.ShowError(err, w)
					return
				}
				dialog.ShowInformation("Export", fmt.Sprintf("Wrote %d files:\n%s", len(files), strings.Join(files, "\n")), w)
			}, w)
			fd.Show()
		})
	}
	exportMenu := fyne.NewMenu("Export",
		exportItem("PNG…", ".png"), exportItem("SVG…", ".svg"), exportItem("PDF…", ".pdf"),
		fyne.NewMenuItemSeparator(),
		presetItem(export.PresetWeb), presetItem(export.PresetPrint))

	aboutItem := fyne.NewMenuItem("About Sketchboard", func() {
		exe, _ := os.Executable()
		info := fmt.Sprintf("Sketchboard\nVersion: %s\nOS: %s\nArch: %s\nGo: %s\nExecutable: %s",
			version.String(), runtime.GOOS, runtime.GOARCH, runtime.Version(), exe)
		dialog.ShowInformation("About", info, w)
	})
	helpMenu := fyne.NewMenu("Help", aboutItem)

	w.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, viewMenu, insertMenu, exportMenu, helpMenu))

	// persist preferences on close
	w.SetCloseIntercept(func() {
		confirmDiscard("Quit", func() {
			sz := w.Canvas().Size()
			prefs.SetInt("window.width", int(sz.Width))
			prefs.SetInt("window.height", int(sz.Height))
			w.Close()
		})
	})

	top := container.NewVBox(toolRow, styleRow, widget.NewSeparator())
	bottom := container.NewVBox(textBar, status)
	w.SetContent(container.NewBorder(top, bottom, nil, nil, board))

	if scenePath != "" {
		openPath(scenePath)
	}
	refresh()
	w.Canvas().Focus(board)

	w.ShowAndRun()
	return nil
}
