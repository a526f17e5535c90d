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
	"errors"
	"os"
	"path/filepath"
	"testing"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

func TestSavedSceneConformsToSchema(t *testing.T) {
	h, err := CreateScene(filepath.Join(t.TempDir(), "scene.json"), sampleDoc())
	if err != nil {
		t.Fatalf("CreateScene error: %v", err)
	}
	data, err := os.ReadFile(h.Path)
	if err != nil {
		t.Fatalf("read scene: %v", err)
	}

	schemaLoader := gojsonschema.NewBytesLoader(SceneSchema())
	docLoader := gojsonschema.NewBytesLoader(data)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		t.Fatalf("schema validate error: %v", err)
	}
	if !result.Valid() {
		for _, e := range result.Errors() {
			t.Logf("schema error: %s", e)
		}
		t.Fatalf("scene does not conform to schema")
	}
	if err := ValidateSceneJSON(data); err != nil {
		t.Fatalf("ValidateSceneJSON: %v", err)
	}
}

func TestSchemaRejectsBadDocuments(t *testing.T) {
	cases := map[string]string{
		"missing shapes":  `{"version":1}`,
		"unknown kind":    `{"version":1,"shapes":[{"id":"a","type":"star","points":[{"x":0,"y":0}],"color":"#000","strokeWidth":1}]}`,
		"zero stroke":     `{"version":1,"shapes":[{"id":"a","type":"line","points":[{"x":0,"y":0}],"color":"#000","strokeWidth":0}]}`,
		"empty points":    `{"version":1,"shapes":[{"id":"a","type":"line","points":[],"color":"#000","strokeWidth":1}]}`,
		"point without y": `{"version":1,"shapes":[{"id":"a","type":"line","points":[{"x":0}],"color":"#000","strokeWidth":1}]}`,
		"negative zoom":   `{"version":1,"camera":{"zoom":-1},"shapes":[]}`,
		"not an object":   `[1,2,3]`,
		"negative rough":  `{"version":1,"shapes":[{"id":"a","type":"pencil","points":[{"x":0,"y":0}],"color":"#000","strokeWidth":1,"roughness":-2}]}`,
	}
	for name, doc := range cases {
		err := ValidateSceneJSON([]byte(doc))
		if !errors.Is(err, ErrSchema) {
			t.Fatalf("%s: expected ErrSchema, got %v", name, err)
		}
	}
	if err := ValidateSceneJSON([]byte(`{"version":1,"shapes":[]}`)); err != nil {
		t.Fatalf("minimal doc rejected: %v", err)
	}
}
