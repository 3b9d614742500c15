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

// Package stub defines the declarations of a module needed to typecheck
// other modules.
//
// A stub is a snapshot: every stage of the pipeline derives a new stub from
// the stub of the previous stage and never modifies its input.
package stub

import (
	"github.com/elp-tools/eqwalizer/build/ast"
	"golang.org/x/exp/maps"
)

// ModuleStub is the stub of a module.
// Keys are always local to the module.
type ModuleStub struct {
	Module            ast.ModuleName
	Exports           map[ast.Id]struct{}
	Imports           map[ast.Id]ast.ModuleName
	ExportTypes       map[ast.Id]struct{}
	PrivateOpaques    map[ast.Id]*ast.TypeDecl
	PublicOpaques     map[ast.Id]*ast.OpaqueTypeDecl
	Types             map[ast.Id]*ast.TypeDecl
	Specs             map[ast.Id]*ast.FunSpec
	OverloadedSpecs   map[ast.Id]*ast.OverloadedFunSpec
	Records           map[ast.AtomName]*ast.RecDecl
	Callbacks         []*ast.Callback
	OptionalCallbacks map[ast.Id]struct{}
	InvalidForms      []*ast.InvalidForm
}

// New returns an empty stub for a module.
func New(module ast.ModuleName) *ModuleStub {
	return &ModuleStub{
		Module:            module,
		Exports:           make(map[ast.Id]struct{}),
		Imports:           make(map[ast.Id]ast.ModuleName),
		ExportTypes:       make(map[ast.Id]struct{}),
		PrivateOpaques:    make(map[ast.Id]*ast.TypeDecl),
		PublicOpaques:     make(map[ast.Id]*ast.OpaqueTypeDecl),
		Types:             make(map[ast.Id]*ast.TypeDecl),
		Specs:             make(map[ast.Id]*ast.FunSpec),
		OverloadedSpecs:   make(map[ast.Id]*ast.OverloadedFunSpec),
		Records:           make(map[ast.AtomName]*ast.RecDecl),
		OptionalCallbacks: make(map[ast.Id]struct{}),
	}
}

// Clone returns a copy of the stub that can be modified without changing s.
// Declarations are shared: they are immutable.
func (s *ModuleStub) Clone() *ModuleStub {
	return &ModuleStub{
		Module:            s.Module,
		Exports:           maps.Clone(s.Exports),
		Imports:           maps.Clone(s.Imports),
		ExportTypes:       maps.Clone(s.ExportTypes),
		PrivateOpaques:    maps.Clone(s.PrivateOpaques),
		PublicOpaques:     maps.Clone(s.PublicOpaques),
		Types:             maps.Clone(s.Types),
		Specs:             maps.Clone(s.Specs),
		OverloadedSpecs:   maps.Clone(s.OverloadedSpecs),
		Records:           maps.Clone(s.Records),
		Callbacks:         append([]*ast.Callback{}, s.Callbacks...),
		OptionalCallbacks: maps.Clone(s.OptionalCallbacks),
		InvalidForms:      append([]*ast.InvalidForm{}, s.InvalidForms...),
	}
}

// Build partitions the forms of a module that do not require type expansion.
// The result is the seed of the expansion of the module.
func Build(module ast.ModuleName, forms ast.AST) *ModuleStub {
	s := New(module)
	for _, form := range forms {
		switch formT := form.(type) {
		case *ast.Export:
			for _, id := range formT.Funs {
				s.Exports[id] = struct{}{}
			}
		case *ast.Import:
			for _, id := range formT.Funs {
				s.Imports[id] = formT.Module
			}
		case *ast.ExportType:
			for _, id := range formT.Types {
				s.ExportTypes[id] = struct{}{}
			}
		case *ast.OptionalCallbacks:
			for _, id := range formT.Ids {
				s.OptionalCallbacks[id] = struct{}{}
			}
		case *ast.InvalidForm:
			s.InvalidForms = append(s.InvalidForms, formT)
		}
	}
	return s
}

// AddInvalid records a declaration that has been rejected.
func (s *ModuleStub) AddInvalid(form *ast.InvalidForm) {
	s.InvalidForms = append(s.InvalidForms, form)
}

// LookupType returns the declaration of a type visible from within the module,
// including the definition of opaque types.
func (s *ModuleStub) LookupType(id ast.Id) (*ast.TypeDecl, bool) {
	if decl, ok := s.Types[id]; ok {
		return decl, true
	}
	decl, ok := s.PrivateOpaques[id]
	return decl, ok
}

// IsOpaque returns true if a type of the module is opaque.
func (s *ModuleStub) IsOpaque(id ast.Id) bool {
	_, ok := s.PrivateOpaques[id]
	return ok
}

// Declarations returns the number of type, spec, record and callback declarations.
func (s *ModuleStub) Declarations() int {
	return len(s.Types) + len(s.PrivateOpaques) + len(s.Specs) + len(s.OverloadedSpecs) + len(s.Records) + len(s.Callbacks)
}
