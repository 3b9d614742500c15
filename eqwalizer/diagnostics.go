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

package eqwalizer

import (
	"maps"

	"github.com/elp-tools/eqwalizer/build/ast"
	"github.com/elp-tools/eqwalizer/ipc"
)

// Diagnostics is the result of typechecking modules.
type Diagnostics interface {
	diagnostics()
}

type (
	// Report lists the diagnostics and type information of typechecked modules.
	Report struct {
		Errors   map[ast.ModuleName][]ipc.Diagnostic
		TypeInfo map[ast.ModuleName][]ipc.TypeInfo
	}

	// NoAST is returned when the forms of a module cannot be parsed.
	NoAST struct {
		Module ast.ModuleName
	}

	// Failure is returned when a module or the session could not be processed.
	Failure struct {
		Message string
	}
)

func (*Report) diagnostics()  {}
func (*NoAST) diagnostics()   {}
func (*Failure) diagnostics() {}

// Count returns the number of diagnostics in the report.
func (r *Report) Count() int {
	n := 0
	for _, diags := range r.Errors {
		n += len(diags)
	}
	return n
}

func reportFrom(done *ipc.Done) *Report {
	return &Report{Errors: done.Diagnostics, TypeInfo: done.TypeInfo}
}

func merge[V any](a, b map[ast.ModuleName]V) map[ast.ModuleName]V {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	r := make(map[ast.ModuleName]V, len(a)+len(b))
	maps.Copy(r, a)
	maps.Copy(r, b)
	return r
}

// Combine the diagnostics of two sets of modules.
//
// A failure absorbs everything it is combined with. A module without
// forms absorbs reports. Of two modules without forms, the module with
// the greater name is kept. Reports are merged: for a module present in
// both, the entries of b replace the entries of a.
// A nil value is an empty report. Neither a nor b is modified.
func Combine(a, b Diagnostics) Diagnostics {
	if a == nil {
		a = &Report{}
	}
	if b == nil {
		b = &Report{}
	}
	switch aT := a.(type) {
	case *Failure:
		return aT
	case *NoAST:
		switch bT := b.(type) {
		case *Failure:
			return bT
		case *NoAST:
			if bT.Module > aT.Module {
				return bT
			}
		}
		return aT
	case *Report:
		bT, ok := b.(*Report)
		if !ok {
			return b
		}
		return &Report{
			Errors:   merge(aT.Errors, bT.Errors),
			TypeInfo: merge(aT.TypeInfo, bT.TypeInfo),
		}
	}
	return a
}
