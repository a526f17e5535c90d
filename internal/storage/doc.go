/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package storage persists scenes.
// A scene is a single JSON document (shapes plus camera) written with transactional saves and timestamped
// backups in a backups/ folder next to it. Open falls back to the newest backup when the document is unreadable.
// The optional scene store keeps named revisions of scene documents in SQLite (default) or PostgreSQL.
package storage
