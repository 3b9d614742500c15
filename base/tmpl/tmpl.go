// Copyright 2025 Google LLC
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

// Package tmpl provides helper functions for text templates.
package tmpl

import (
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

// New parses a template known when the program is written.
// It panics if the template cannot be parsed.
func New(name string, funcs template.FuncMap, src string) *template.Template {
	return template.Must(template.New(name).Funcs(funcs).Parse(src))
}

// IterateTmpl executes a template for every element of a slice.
// The result is the concatenation of all the outputs.
func IterateTmpl[T any](objs []T, tmpl *template.Template) (string, error) {
	var buf strings.Builder
	for i, obj := range objs {
		if err := tmpl.Execute(&buf, obj); err != nil {
			return "", errors.Wrapf(err, "cannot execute template %s on element %d", tmpl.Name(), i)
		}
	}
	return buf.String(), nil
}
