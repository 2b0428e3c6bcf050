// Copyright 2026 The TSI Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
)

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
)

// Schema returns the JSON Schema describing a single-version recipe
// file, generated once from the Package struct tags. It is exposed so
// external tooling (editors, docs generators) can describe the recipe
// format without hand-maintaining a second copy of it; the core itself
// never needs to deserialize the schema, only to emit it.
func Schema() *jsonschema.Schema {
	schemaOnce.Do(func() {
		r := &jsonschema.Reflector{ExpandedStruct: true}
		schema = r.Reflect(&Package{})
	})
	return schema
}

// knownArrayFields lists the recipe keys spec.md §6 documents as JSON
// arrays, so Validate can catch the common authoring mistake of typing
// one of these as a bare string or object instead.
var knownArrayFields = []string{
	"dependencies", "build_dependencies",
	"configure_args", "cmake_args", "make_args",
	"patches", "build_commands",
}

// Validate performs a shape check beyond ParseManifest's bare JSON
// decode: every recognized array-typed key, if present, must actually
// decode as a JSON array. This catches malformed recipes earlier and
// with a clearer message than the field-level error ParseManifest
// would otherwise produce.
func Validate(data []byte) error {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.Wrap(ErrMalformedManifest, err.Error())
	}

	if rawVersions, hasVersions := doc["versions"]; hasVersions && rawVersions != nil {
		versions, ok := rawVersions.([]any)
		if !ok {
			return errors.Wrap(ErrMalformedManifest, `"versions" must be an array`)
		}
		for _, v := range versions {
			vm, ok := v.(map[string]any)
			if !ok {
				// Not checked here: a null entry is skipped by
				// ParseManifest, any other non-object entry fails its
				// JSON decode and rejects the whole file there.
				continue
			}
			if err := validateFieldShapes(vm); err != nil {
				return err
			}
		}
		return nil
	}

	return validateFieldShapes(doc)
}

func validateFieldShapes(doc map[string]any) error {
	for _, key := range knownArrayFields {
		v, ok := doc[key]
		if !ok || v == nil {
			continue
		}
		if _, ok := v.([]any); !ok {
			return errors.Wrapf(ErrMalformedManifest, "field %q must be an array", key)
		}
	}
	if v, ok := doc["env"]; ok && v != nil {
		if _, ok := v.(map[string]any); !ok {
			return errors.Wrap(ErrMalformedManifest, `field "env" must be an object`)
		}
	}
	return nil
}
