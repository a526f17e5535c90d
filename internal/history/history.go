/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package history

import (
	"sync"
)

// DefaultMaxCommands is the depth cap used when Config leaves it unset.
const DefaultMaxCommands = 100

// Config controls depth and memory caps.
type Config struct {
	// MaxCommands bounds the number of commands kept; the oldest is evicted first.
	MaxCommands int
	// MaxBytes is a soft cap on the estimated payload size (image bytes and
	// points); 0 disables it. The newest command is always kept.
	MaxBytes int
}

// History is a bounded linear undo/redo stack of plain-data commands.
// Executing a command while not at the head drops the redo future.
// It is safe for concurrent use.
type History struct {
	cfg Config
	mu  sync.Mutex
	// cmds[:head] can be undone, cmds[head:] redone
	cmds       []Command
	head       int
	totalBytes int
	evicted    int
}

func New(cfg Config) *History {
	if cfg.MaxCommands <= 0 {
		cfg.MaxCommands = DefaultMaxCommands
	}
	if cfg.MaxBytes < 0 {
		cfg.MaxBytes = 0
	}
	return &History{cfg: cfg}
}

// Execute records c as the newest command. The caller has already applied it.
func (h *History) Execute(c Command) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, f := range h.cmds[h.head:] {
		h.totalBytes -= f.size()
	}
	h.cmds = append(h.cmds[:h.head:h.head], c)
	h.head = len(h.cmds)
	h.totalBytes += c.size()
	h.enforceCapsLocked()
}

// Undo moves the head back and returns the command to revert.
func (h *History) Undo() (Command, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.head == 0 {
		return Command{}, false
	}
	h.head--
	return h.cmds[h.head], true
}

// Redo moves the head forward and returns the command to re-apply.
func (h *History) Redo() (Command, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.head >= len(h.cmds) {
		return Command{}, false
	}
	c := h.cmds[h.head]
	h.head++
	return c, true
}

func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.head > 0
}

func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.head < len(h.cmds)
}

// Clear drops every command.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cmds = nil
	h.head = 0
	h.totalBytes = 0
}

// Len is the number of stored commands, undoable and redoable.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.cmds)
}

// Commands returns a copy of the stored commands, oldest first.
func (h *History) Commands() []Command {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Command(nil), h.cmds...)
}

// Stats reports sizes for diagnostics.
type Stats struct {
	Undoable   int
	Redoable   int
	TotalBytes int
	Evicted    int
}

func (h *History) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{Undoable: h.head, Redoable: len(h.cmds) - h.head, TotalBytes: h.totalBytes, Evicted: h.evicted}
}

func (h *History) enforceCapsLocked() {
	drop := 0
	if over := len(h.cmds) - h.cfg.MaxCommands; over > 0 {
		drop = over
	}
	bytes := h.totalBytes
	for i := 0; i < drop; i++ {
		bytes -= h.cmds[i].size()
	}
	// memory cap: evict oldest but keep the newest command
	for h.cfg.MaxBytes > 0 && bytes > h.cfg.MaxBytes && drop < len(h.cmds)-1 {
		bytes -= h.cmds[drop].size()
		drop++
	}
	if drop == 0 {
		return
	}
	h.cmds = append([]Command(nil), h.cmds[drop:]...)
	h.head -= drop
	if h.head < 0 {
		h.head = 0
	}
	h.totalBytes = bytes
	h.evicted += drop
}
