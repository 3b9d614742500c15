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

package stub_test

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/elp-tools/eqwalizer/build/ast"
	"github.com/elp-tools/eqwalizer/build/stub"
)

var loc = ast.Pos{Start: 3, End: 5}

func sampleStub() *stub.ModuleStub {
	s := stub.New("m")
	for _, name := range []ast.AtomName{"f", "g", "h"} {
		s.Exports[ast.Id{Name: name, Arity: 1}] = struct{}{}
	}
	s.Imports[ast.Id{Name: "map", Arity: 2}] = "lists"
	s.ExportTypes[ast.Id{Name: "t", Arity: 1}] = struct{}{}
	s.Types[ast.Id{Name: "t", Arity: 1}] = &ast.TypeDecl{
		Location: loc,
		Id:       ast.Id{Name: "t", Arity: 1},
		Params:   []*ast.VarType{{Name: "X"}},
		Body: &ast.UnionType{Tys: []ast.Type{
			&ast.VarType{Name: "X"},
			&ast.ListType{T: &ast.RemoteType{
				Id:     ast.RemoteId{Module: "m", Name: "t", Arity: 1},
				ArgTys: []ast.Type{&ast.VarType{Name: "X"}},
			}},
		}},
	}
	s.PrivateOpaques[ast.Id{Name: "o", Arity: 0}] = &ast.TypeDecl{
		Location: loc,
		Id:       ast.Id{Name: "o", Arity: 0},
		Body:     &ast.TupleType{ArgTys: []ast.Type{&ast.AtomType{}, &ast.NumberType{}}},
	}
	s.PublicOpaques[ast.Id{Name: "o", Arity: 0}] = &ast.OpaqueTypeDecl{Location: loc, Id: ast.Id{Name: "o", Arity: 0}}
	s.Specs[ast.Id{Name: "f", Arity: 1}] = &ast.FunSpec{
		Location: loc,
		Id:       ast.Id{Name: "f", Arity: 1},
		Ty:       &ast.FunType{ArgTys: []ast.Type{&ast.AnyType{}}, ResTy: &ast.AtomLitType{Atom: "ok"}},
	}
	s.OverloadedSpecs[ast.Id{Name: "g", Arity: 1}] = &ast.OverloadedFunSpec{
		Location: loc,
		Id:       ast.Id{Name: "g", Arity: 1},
		Tys: []*ast.FunType{
			{ArgTys: []ast.Type{&ast.AtomType{}}, ResTy: &ast.AtomType{}},
			{ArgTys: []ast.Type{&ast.BinaryType{}}, ResTy: &ast.BinaryType{}},
		},
	}
	s.Records["r"] = &ast.RecDecl{
		Location: loc,
		Name:     "r",
		Fields: []ast.RecField{
			{Name: "a", Tp: &ast.NumberType{}, DefaultValue: &ast.AtomLit{Location: loc, S: "undefined"}},
		},
	}
	s.Callbacks = []*ast.Callback{{
		Location: loc,
		Id:       ast.Id{Name: "init", Arity: 1},
		Tys:      []*ast.FunType{{ArgTys: []ast.Type{&ast.AnyType{}}, ResTy: &ast.DynamicType{}}},
	}}
	s.OptionalCallbacks[ast.Id{Name: "init", Arity: 1}] = struct{}{}
	s.AddInvalid(&ast.InvalidForm{
		Location: loc,
		Kind:     ast.InvalidFunSpec,
		Id:       ast.Id{Name: "h", Arity: 1},
		Reason:   ast.Invalid{Kind: ast.UnknownId, Name: "u/0"},
	})
	return s
}

func TestRoundTrip(t *testing.T) {
	s := sampleStub()
	data, err := s.ToBytes()
	if err != nil {
		t.Fatalf("cannot serialize stub: %+v", err)
	}
	got, err := stub.FromBytes(data)
	if err != nil {
		t.Fatalf("cannot deserialize stub: %+v\n%s", err, data)
	}
	if diff := cmp.Diff(s, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDeterministic(t *testing.T) {
	first, err := sampleStub().ToBytes()
	if err != nil {
		t.Fatal(err)
	}
	for range 10 {
		other, err := sampleStub().ToBytes()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(first, other) {
			t.Fatalf("serialization depends on map order:\n%s\n%s", first, other)
		}
	}
}

func TestClone(t *testing.T) {
	s := sampleStub()
	clone := s.Clone()
	delete(clone.Types, ast.Id{Name: "t", Arity: 1})
	clone.AddInvalid(&ast.InvalidForm{Kind: ast.InvalidTypeDecl, Id: ast.Id{Name: "t", Arity: 1}})
	if _, ok := s.Types[ast.Id{Name: "t", Arity: 1}]; !ok {
		t.Errorf("deleting a type from a clone modified the original stub")
	}
	if len(s.InvalidForms) != 1 {
		t.Errorf("adding an invalid form to a clone modified the original stub")
	}
}

func TestBuild(t *testing.T) {
	forms := ast.AST{
		&ast.Module{Location: loc, Name: "m"},
		&ast.Export{Location: loc, Funs: []ast.Id{{Name: "f", Arity: 0}}},
		&ast.Import{Location: loc, Module: "lists", Funs: []ast.Id{{Name: "map", Arity: 2}}},
		&ast.ExportType{Location: loc, Types: []ast.Id{{Name: "t", Arity: 0}}},
		&ast.OptionalCallbacks{Location: loc, Ids: []ast.Id{{Name: "cb", Arity: 0}}},
		&ast.InvalidForm{Location: loc, Kind: ast.InvalidTypeDecl, Id: ast.Id{Name: "u", Arity: 0}},
	}
	got := stub.Build("m", forms)
	want := stub.New("m")
	want.Exports[ast.Id{Name: "f", Arity: 0}] = struct{}{}
	want.Imports[ast.Id{Name: "map", Arity: 2}] = "lists"
	want.ExportTypes[ast.Id{Name: "t", Arity: 0}] = struct{}{}
	want.OptionalCallbacks[ast.Id{Name: "cb", Arity: 0}] = struct{}{}
	want.InvalidForms = []*ast.InvalidForm{forms[5].(*ast.InvalidForm)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected stub (-want +got):\n%s", diff)
	}
}
