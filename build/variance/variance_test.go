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

package variance_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/elp-tools/eqwalizer/build/ast"
	"github.com/elp-tools/eqwalizer/build/stub"
	"github.com/elp-tools/eqwalizer/build/variance"
	"github.com/pkg/errors"
)

type fakeDB map[ast.ModuleName]*stub.ModuleStub

func (db fakeDB) ContractiveStub(ctx context.Context, project ast.ProjectID, module ast.ModuleName) (*stub.ModuleStub, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, ok := db[module]
	if !ok {
		return nil, ast.NotFound(module)
	}
	return s, nil
}

func v(name string) *ast.VarType {
	return &ast.VarType{Name: name}
}

func ref(module ast.ModuleName, name ast.AtomName, args ...ast.Type) ast.Type {
	return &ast.RemoteType{Id: ast.RemoteId{Module: module, Name: name, Arity: len(args)}, ArgTys: args}
}

func fun(res ast.Type, args ...ast.Type) ast.Type {
	return &ast.FunType{ArgTys: args, ResTy: res}
}

func decl(name ast.AtomName, params []string, body ast.Type) *ast.TypeDecl {
	vars := make([]*ast.VarType, len(params))
	for i, p := range params {
		vars[i] = v(p)
	}
	return &ast.TypeDecl{Id: ast.Id{Name: name, Arity: len(params)}, Params: vars, Body: body}
}

func opaqueStub(module ast.ModuleName, decls ...*ast.TypeDecl) *stub.ModuleStub {
	s := stub.New(module)
	for _, d := range decls {
		s.PrivateOpaques[d.Id] = d
	}
	return s
}

func otherModule() fakeDB {
	other := stub.New("other")
	pred := decl("pred", []string{"Y"}, fun(&ast.AtomLitType{Atom: "ok"}, v("Y")))
	other.Types[pred.Id] = pred
	opq := ast.Id{Name: "opq", Arity: 1}
	other.PublicOpaques[opq] = &ast.OpaqueTypeDecl{Id: opq}
	return fakeDB{"other": other}
}

func TestVarianceCheck(t *testing.T) {
	s := opaqueStub("m",
		decl("box", []string{"X"}, &ast.TupleType{ArgTys: []ast.Type{v("X")}}),
		decl("cell", []string{"X"}, fun(v("X"), v("X"))),
		decl("ext", []string{"X"}, ref("other", "opq", v("X"))),
		decl("loop", []string{"X"}, &ast.UnionType{Tys: []ast.Type{
			v("X"),
			fun(&ast.AtomLitType{Atom: "ok"}, ref("m", "loop", v("X"))),
		}}),
		decl("nested", []string{"X"}, ref("other", "pred", v("X"))),
		decl("phantom", []string{"X"}, &ast.AtomType{}),
		decl("sink", []string{"X"}, fun(&ast.AtomLitType{Atom: "ok"}, v("X"))),
	)
	_, err := variance.New(context.Background(), otherModule(), 0).Check(s)
	var vErr *ast.VarianceCheckError
	if !errors.As(err, &vErr) {
		t.Fatalf("got error %v but want a variance check error", err)
	}
	want := []ast.Id{
		{Name: "cell", Arity: 1},
		{Name: "loop", Arity: 1},
		{Name: "nested", Arity: 1},
		{Name: "sink", Arity: 1},
	}
	if diff := cmp.Diff(want, vErr.Ids); diff != "" {
		t.Errorf("unexpected offenders (-want +got):\n%s", diff)
	}
	for _, want := range []string{
		"opaque type loop/1: m:0-0: parameter X is invariant",
		"opaque type sink/1: m:0-0: parameter X is contravariant",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error message does not contain %q:\n%s", want, err.Error())
		}
	}
}

func TestCovariantOpaques(t *testing.T) {
	s := opaqueStub("m",
		decl("box", []string{"X"}, &ast.ListType{T: v("X")}),
		decl("producer", []string{"X"}, fun(v("X"))),
	)
	got, err := variance.New(context.Background(), fakeDB{}, 0).Check(s)
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
	if got == s {
		t.Errorf("checker returned its input instead of a new snapshot")
	}
	if len(got.PrivateOpaques) != 2 {
		t.Errorf("got %d opaque types but want 2", len(got.PrivateOpaques))
	}
}

func TestInfer(t *testing.T) {
	tests := []struct {
		decl *ast.TypeDecl
		want []variance.Variance
	}{
		{
			decl: decl("f", []string{"A", "B"}, fun(v("B"), v("A"))),
			want: []variance.Variance{variance.Contravariant, variance.Covariant},
		},
		{
			decl: decl("rec", []string{"X"}, &ast.UnionType{Tys: []ast.Type{
				&ast.NilType{},
				&ast.TupleType{ArgTys: []ast.Type{v("X"), ref("m", "rec", v("X"))}},
			}}),
			want: []variance.Variance{variance.Covariant},
		},
		{
			decl: decl("loop", []string{"X"}, &ast.UnionType{Tys: []ast.Type{
				v("X"),
				fun(&ast.AtomLitType{Atom: "ok"}, ref("m", "loop", v("X"))),
			}}),
			want: []variance.Variance{variance.Invariant},
		},
		{
			decl: decl("pair", []string{"X"}, fun(ref("m", "pair", v("X")), ref("m", "pair", v("X")))),
			want: []variance.Variance{variance.Constant},
		},
		{
			decl: decl("twice", []string{"X"}, fun(&ast.AnyType{}, fun(&ast.AnyType{}, v("X")))),
			want: []variance.Variance{variance.Covariant},
		},
		{
			decl: decl("unused", []string{"X"}, &ast.BinaryType{}),
			want: []variance.Variance{variance.Constant},
		},
	}
	checker := variance.New(context.Background(), otherModule(), 0)
	for _, test := range tests {
		s := stub.New("m")
		s.Types[test.decl.Id] = test.decl
		got, err := checker.Infer(s, test.decl)
		if err != nil {
			t.Errorf("%s: unexpected error: %+v", test.decl.Id, err)
			continue
		}
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("%s: unexpected variances (-want +got):\n%s", test.decl.Id, diff)
		}
	}
}

func TestVarianceOperators(t *testing.T) {
	if got := variance.Covariant.Join(variance.Contravariant); got != variance.Invariant {
		t.Errorf("covariant join contravariant = %s", got)
	}
	if got := variance.Constant.Join(variance.Contravariant); got != variance.Contravariant {
		t.Errorf("constant join contravariant = %s", got)
	}
	if got := variance.Contravariant.Compose(variance.Contravariant); got != variance.Covariant {
		t.Errorf("contravariant compose contravariant = %s", got)
	}
	if got := variance.Invariant.Compose(variance.Constant); got != variance.Constant {
		t.Errorf("invariant compose constant = %s", got)
	}
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := opaqueStub("m", decl("o", []string{"X"}, ref("other", "pred", v("X"))))
	_, err := variance.New(ctx, otherModule(), 0).Check(s)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got error %v but want %v", err, context.Canceled)
	}
}
