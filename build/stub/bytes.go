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

package stub

import (
	"slices"

	"github.com/elp-tools/eqwalizer/build/ast"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
)

// wireStub is the serialized form of a stub.
// Maps are encoded as arrays sorted by key so that the encoding of a stub
// does not depend on the iteration order of maps.
type wireStub struct {
	Module            ast.ModuleName           `json:"module"`
	Exports           []ast.Id                 `json:"exports"`
	Imports           []wireImport             `json:"imports"`
	ExportTypes       []ast.Id                 `json:"export_types"`
	PrivateOpaques    []*ast.TypeDecl          `json:"private_opaques"`
	PublicOpaques     []*ast.OpaqueTypeDecl    `json:"public_opaques"`
	Types             []*ast.TypeDecl          `json:"types"`
	Specs             []*ast.FunSpec           `json:"specs"`
	OverloadedSpecs   []*ast.OverloadedFunSpec `json:"overloaded_specs"`
	Records           []*ast.RecDecl           `json:"records"`
	Callbacks         []*ast.Callback          `json:"callbacks"`
	OptionalCallbacks []ast.Id                 `json:"optional_callbacks"`
	InvalidForms      []*ast.InvalidForm       `json:"invalid_forms"`
}

type wireImport struct {
	Id     ast.Id         `json:"id"`
	Module ast.ModuleName `json:"module"`
}

func sortedIds[V any](m map[ast.Id]V) []ast.Id {
	keys := maps.Keys(m)
	slices.SortFunc(keys, ast.Id.Compare)
	return keys
}

func sortedValues[V any](m map[ast.Id]V) []V {
	vals := make([]V, 0, len(m))
	for _, id := range sortedIds(m) {
		vals = append(vals, m[id])
	}
	return vals
}

// ToBytes serializes the stub.
// The output is deterministic: equal stubs have the same serialization.
func (s *ModuleStub) ToBytes() ([]byte, error) {
	w := wireStub{
		Module:            s.Module,
		Exports:           sortedIds(s.Exports),
		ExportTypes:       sortedIds(s.ExportTypes),
		PrivateOpaques:    sortedValues(s.PrivateOpaques),
		PublicOpaques:     sortedValues(s.PublicOpaques),
		Types:             sortedValues(s.Types),
		Specs:             sortedValues(s.Specs),
		OverloadedSpecs:   sortedValues(s.OverloadedSpecs),
		Callbacks:         append([]*ast.Callback{}, s.Callbacks...),
		OptionalCallbacks: sortedIds(s.OptionalCallbacks),
		InvalidForms:      append([]*ast.InvalidForm{}, s.InvalidForms...),
	}
	w.Imports = make([]wireImport, 0, len(s.Imports))
	for _, id := range sortedIds(s.Imports) {
		w.Imports = append(w.Imports, wireImport{Id: id, Module: s.Imports[id]})
	}
	recNames := maps.Keys(s.Records)
	slices.Sort(recNames)
	w.Records = make([]*ast.RecDecl, len(recNames))
	for i, name := range recNames {
		w.Records[i] = s.Records[name]
	}
	data, err := ast.Marshal(w)
	if err != nil {
		return nil, errors.WithMessagef(err, "cannot serialize the stub of module %s", s.Module)
	}
	return data, nil
}

// FromBytes decodes a stub serialized by ToBytes.
func FromBytes(data []byte) (*ModuleStub, error) {
	var w wireStub
	if err := ast.Unmarshal(data, &w); err != nil {
		return nil, errors.WithMessage(err, "cannot decode module stub")
	}
	s := New(w.Module)
	for _, id := range w.Exports {
		s.Exports[id] = struct{}{}
	}
	for _, imp := range w.Imports {
		s.Imports[imp.Id] = imp.Module
	}
	for _, id := range w.ExportTypes {
		s.ExportTypes[id] = struct{}{}
	}
	for _, decl := range w.PrivateOpaques {
		s.PrivateOpaques[decl.Id] = decl
	}
	for _, decl := range w.PublicOpaques {
		s.PublicOpaques[decl.Id] = decl
	}
	for _, decl := range w.Types {
		s.Types[decl.Id] = decl
	}
	for _, spec := range w.Specs {
		s.Specs[spec.Id] = spec
	}
	for _, spec := range w.OverloadedSpecs {
		s.OverloadedSpecs[spec.Id] = spec
	}
	for _, rec := range w.Records {
		s.Records[rec.Name] = rec
	}
	s.Callbacks = w.Callbacks
	for _, id := range w.OptionalCallbacks {
		s.OptionalCallbacks[id] = struct{}{}
	}
	s.InvalidForms = w.InvalidForms
	return s, nil
}
