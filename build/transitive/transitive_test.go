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

package transitive_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/elp-tools/eqwalizer/build/ast"
	"github.com/elp-tools/eqwalizer/build/stub"
	"github.com/elp-tools/eqwalizer/build/transitive"
	"github.com/pkg/errors"
)

var errBroken = errors.New("broken module")

type fakeDB map[ast.ModuleName]*stub.ModuleStub

func (db fakeDB) CovariantStub(ctx context.Context, project ast.ProjectID, module ast.ModuleName) (*stub.ModuleStub, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if module == "broken" {
		return nil, errBroken
	}
	s, ok := db[module]
	if !ok {
		return nil, ast.NotFound(module)
	}
	return s, nil
}

func ref(module ast.ModuleName, name ast.AtomName) ast.Type {
	return &ast.RemoteType{Id: ast.RemoteId{Module: module, Name: name}}
}

func id(name ast.AtomName) ast.Id {
	return ast.Id{Name: name}
}

func addType(s *stub.ModuleStub, name ast.AtomName, body ast.Type) {
	s.Types[id(name)] = &ast.TypeDecl{Id: id(name), Body: body}
}

func otherModule() *stub.ModuleStub {
	other := stub.New("other")
	addType(other, "ok", &ast.AtomType{})
	addType(other, "bad", ref("missing", "t"))
	other.PrivateOpaques[id("opq")] = &ast.TypeDecl{Id: id("opq"), Body: &ast.AtomType{}}
	other.PublicOpaques[id("opq")] = &ast.OpaqueTypeDecl{Id: id("opq")}
	other.PrivateOpaques[id("hidden")] = &ast.TypeDecl{Id: id("hidden"), Body: &ast.AtomType{}}
	return other
}

func TestCheck(t *testing.T) {
	s := stub.New("m")
	addType(s, "good", ref("other", "ok"))
	addType(s, "uses_bad", ref("other", "bad"))
	addType(s, "uses_opq", ref("other", "opq"))
	addType(s, "chain", ref("m", "uses_bad"))
	addType(s, "cyc", &ast.ListType{T: ref("m", "cyc")})
	addType(s, "rec_ref", &ast.RecordType{Name: "r"})
	addType(s, "rec_missing", &ast.RecordType{Name: "nope"})
	s.Records["r"] = &ast.RecDecl{Name: "r", Fields: []ast.RecField{{Name: "f", Tp: ref("other", "ok")}}}
	f := ast.Id{Name: "f", Arity: 1}
	s.Specs[f] = &ast.FunSpec{Id: f, Ty: &ast.FunType{
		ArgTys: []ast.Type{ref("m", "chain")},
		ResTy:  &ast.AtomLitType{Atom: "ok"},
	}}
	s.Callbacks = []*ast.Callback{
		{Id: id("cb"), Tys: []*ast.FunType{{ResTy: ref("other", "hidden")}}},
		{Id: id("fine"), Tys: []*ast.FunType{{ResTy: ref("m", "good")}}},
	}

	checker := transitive.New(context.Background(), fakeDB{"other": otherModule()}, 0)
	got, err := checker.Check(s)
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	wantInvalid := []*ast.InvalidForm{
		{Kind: ast.InvalidTypeDecl, Id: id("chain"), Reason: ast.Invalid{Kind: ast.TransitiveInvalid, Refs: []string{"m:uses_bad/0"}}},
		{Kind: ast.InvalidTypeDecl, Id: id("rec_missing"), Reason: ast.Invalid{Kind: ast.TransitiveInvalid, Refs: []string{"m:#nope"}}},
		{Kind: ast.InvalidTypeDecl, Id: id("uses_bad"), Reason: ast.Invalid{Kind: ast.TransitiveInvalid, Refs: []string{"other:bad/0"}}},
		{Kind: ast.InvalidFunSpec, Id: f, Reason: ast.Invalid{Kind: ast.TransitiveInvalid, Refs: []string{"m:chain/0"}}},
		{Kind: ast.InvalidCallback, Id: id("cb"), Reason: ast.Invalid{Kind: ast.TransitiveInvalid, Refs: []string{"other:hidden/0"}}},
	}
	if diff := cmp.Diff(wantInvalid, got.InvalidForms); diff != "" {
		t.Errorf("unexpected invalid forms (-want +got):\n%s", diff)
	}
	var gotTypes []ast.AtomName
	for id := range got.Types {
		gotTypes = append(gotTypes, id.Name)
	}
	wantTypes := []ast.AtomName{"cyc", "good", "rec_ref", "uses_opq"}
	if diff := cmp.Diff(wantTypes, gotTypes, cmpSorted); diff != "" {
		t.Errorf("unexpected valid types (-want +got):\n%s", diff)
	}
	if len(got.Specs) != 0 {
		t.Errorf("invalid spec has not been removed")
	}
	if len(got.Callbacks) != 1 || got.Callbacks[0].Id != id("fine") {
		t.Errorf("unexpected callbacks: %v", got.Callbacks)
	}
	if _, ok := got.Records["r"]; !ok {
		t.Errorf("valid record has been removed")
	}
	if len(s.Types) != 7 || len(s.InvalidForms) != 0 {
		t.Errorf("check modified its input")
	}
	if diff := cmp.Diff([]ast.ModuleName{"m", "other"}, checker.Reachable()); diff != "" {
		t.Errorf("unexpected reachable modules (-want +got):\n%s", diff)
	}
}

func TestCycleThroughInvalid(t *testing.T) {
	s := stub.New("m")
	addType(s, "a", &ast.TupleType{ArgTys: []ast.Type{ref("m", "b"), ref("nowhere", "t")}})
	addType(s, "b", &ast.ListType{T: ref("m", "a")})
	got, err := transitive.New(context.Background(), fakeDB{}, 0).Check(s)
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	if len(got.Types) != 0 {
		t.Errorf("got %d valid types but want 0", len(got.Types))
	}
}

func TestTransitiveCheckError(t *testing.T) {
	s := stub.New("m")
	addType(s, "x", ref("broken", "t"))
	_, err := transitive.New(context.Background(), fakeDB{}, 0).Check(s)
	var tErr *ast.TransitiveCheckError
	if !errors.As(err, &tErr) {
		t.Fatalf("got error %v but want a transitive check error", err)
	}
	want := ast.RemoteId{Module: "broken", Name: "t"}
	if tErr.Ref != want || tErr.Err != errBroken {
		t.Errorf("got error %v at %s but want error %v at %s", tErr.Err, tErr.Ref, errBroken, want)
	}
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := stub.New("m")
	addType(s, "x", ref("other", "ok"))
	_, err := transitive.New(ctx, fakeDB{"other": otherModule()}, 0).Check(s)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got error %v but want %v", err, context.Canceled)
	}
}

var cmpSorted = cmpopts.SortSlices(func(a, b ast.AtomName) bool { return a < b })
