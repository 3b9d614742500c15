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

package ast_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/elp-tools/eqwalizer/build/ast"
)

func TestAtomNameString(t *testing.T) {
	tests := []struct {
		name ast.AtomName
		want string
	}{
		{name: "foo", want: "foo"},
		{name: "foo_Bar@1", want: "foo_Bar@1"},
		{name: "Elixir.Foo", want: "'Elixir.Foo'"},
		{name: "foo-bar", want: "'foo-bar'"},
		{name: "_x", want: "'_x'"},
		{name: "", want: "''"},
	}
	for _, test := range tests {
		if got := test.name.String(); got != test.want {
			t.Errorf("%q: got %s but want %s", test.name.Unquoted(), got, test.want)
		}
	}
}

func TestIdOrdering(t *testing.T) {
	ids := []ast.Id{
		{Name: "b", Arity: 0},
		{Name: "a", Arity: 2},
		{Name: "a", Arity: 1},
	}
	slices.SortFunc(ids, ast.Id.Compare)
	want := []ast.Id{
		{Name: "a", Arity: 1},
		{Name: "a", Arity: 2},
		{Name: "b", Arity: 0},
	}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("unexpected order (-want +got):\n%s", diff)
	}
	rid := ast.Id{Name: "t", Arity: 1}.Remote("Elixir.M")
	if got, want := rid.String(), "'Elixir.M':t/1"; got != want {
		t.Errorf("got %s but want %s", got, want)
	}
	if rid.Local() != (ast.Id{Name: "t", Arity: 1}) {
		t.Errorf("unexpected local identifier %s", rid.Local())
	}
}

func intPtr(i int) *int {
	return &i
}

func sampleModule() ast.AST {
	loc := ast.Pos{Start: 1, End: 10}
	return ast.AST{
		&ast.Module{Location: loc, Name: "sample"},
		&ast.Export{Location: loc, Funs: []ast.Id{{Name: "f", Arity: 1}}},
		&ast.ExternalTypeDecl{
			Location: loc,
			Id:       ast.Id{Name: "t", Arity: 1},
			Params:   []string{"X"},
			Body: &ast.UnionExtType{
				Location: loc,
				Tys: []ast.ExtType{
					&ast.VarExtType{Location: loc, Name: "X"},
					&ast.LocalExtType{Location: loc, Id: ast.Id{Name: "integer", Arity: 0}},
				},
			},
		},
		&ast.FunDecl{
			Location: loc,
			Id:       ast.Id{Name: "f", Arity: 1},
			Clauses: []ast.Clause{{
				Location: loc,
				Pats:     []ast.Pat{&ast.PatVar{Location: loc, N: "X"}},
				Guards: []ast.Guard{{Tests: []ast.Test{
					&ast.TestCall{
						Location: loc,
						Id:       ast.Id{Name: "is_integer", Arity: 1},
						Args:     []ast.Test{ast.NewTestVar(loc, "X")},
					},
				}}},
				Body: ast.Body{Exprs: []ast.Expr{
					&ast.BinOp{
						Location: loc,
						Op:       "+",
						Arg1:     &ast.Var{Location: loc, N: "X"},
						Arg2:     &ast.IntLit{Location: loc, Value: intPtr(1)},
					},
				}},
			}},
		},
	}
}

func TestFormsRoundTrip(t *testing.T) {
	forms := sampleModule()
	data, err := ast.MarshalForms(forms)
	if err != nil {
		t.Fatalf("cannot marshal forms: %+v", err)
	}
	got, err := ast.UnmarshalForms(data)
	if err != nil {
		t.Fatalf("cannot unmarshal forms: %+v\n%s", err, data)
	}
	if diff := cmp.Diff(forms, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestTypeRoundTrip(t *testing.T) {
	var want ast.Type = &ast.FunType{
		ArgTys: []ast.Type{&ast.AtomLitType{Atom: "ok"}, &ast.AnyType{}},
		ResTy: &ast.RemoteType{
			Id:     ast.RemoteId{Module: "m", Name: "t", Arity: 1},
			ArgTys: []ast.Type{&ast.VarType{Name: "X"}},
		},
	}
	data, err := ast.Marshal(want)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"tag":"FunType"`) {
		t.Errorf("missing tag in %s", data)
	}
	var got ast.Type
	if err := ast.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if got.String() != "fun((ok, term()) -> m:t(X))" {
		t.Errorf("unexpected string representation: %s", got.String())
	}
}

func TestUnmarshalErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{src: `[{"tag":"NotAForm","content":{}}]`, want: "unknown tag"},
		{src: `[{"tag":"Var","content":{}}]`, want: "not a variant"},
		{src: `[{"tag":"Module","content":{"name":3}}]`, want: "cannot unmarshal"},
		{src: `{`, want: "unexpected end"},
	}
	for _, test := range tests {
		_, err := ast.UnmarshalForms([]byte(test.src))
		if err == nil {
			t.Errorf("%s: expected an error", test.src)
			continue
		}
		if !strings.Contains(err.Error(), test.want) {
			t.Errorf("%s: got error %q but want an error containing %q", test.src, err.Error(), test.want)
		}
	}
}

func TestSubst(t *testing.T) {
	body := &ast.TupleType{ArgTys: []ast.Type{&ast.VarType{Name: "X"}, &ast.VarType{Name: "Y"}}}
	sub := ast.Bind([]*ast.VarType{{Name: "X"}}, []ast.Type{&ast.AtomType{}})
	got := ast.Subst(body, sub)
	want := &ast.TupleType{ArgTys: []ast.Type{&ast.AtomType{}, &ast.VarType{Name: "Y"}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected substitution (-want +got):\n%s", diff)
	}
	if _, ok := body.ArgTys[0].(*ast.VarType); !ok {
		t.Errorf("substitution modified its input")
	}
}

func TestMarshalVariant(t *testing.T) {
	var want ast.Pat = &ast.PatTuple{
		Location: ast.Pos{Start: 2, End: 8},
		Elems:    []ast.Pat{&ast.PatVar{Location: ast.Pos{Start: 3, End: 4}, N: "X"}, &ast.PatNil{}},
	}
	data, err := ast.Marshal(want)
	if err != nil {
		t.Fatal(err)
	}
	var got ast.Pat
	if err := ast.Unmarshal(data, &got); err != nil {
		t.Fatalf("cannot decode %s: %v", data, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	data, err = ast.Marshal((*ast.PatVar)(nil))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "null" {
		t.Errorf("got %s but want null", data)
	}
}
