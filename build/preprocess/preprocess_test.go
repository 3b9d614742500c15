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

package preprocess_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/elp-tools/eqwalizer/build/ast"
	"github.com/elp-tools/eqwalizer/build/preprocess"
)

var loc = ast.Pos{Start: 10, End: 20}

func intPtr(i int) *int {
	return &i
}

func partition(pred ast.Expr, list ast.Expr) ast.Expr {
	return &ast.RemoteCall{
		Location: loc,
		Id:       ast.RemoteId{Module: "lists", Name: "partition", Arity: 2},
		Args:     []ast.Expr{pred, list},
	}
}

func module(body ...ast.Expr) ast.AST {
	return ast.AST{
		&ast.Module{Location: loc, Name: "m"},
		&ast.FunDecl{
			Location: loc,
			Id:       ast.Id{Name: "f", Arity: 1},
			Clauses: []ast.Clause{{
				Location: loc,
				Pats:     []ast.Pat{ast.NewPatVar(loc, "L")},
				Body:     ast.Body{Exprs: body},
			}},
		},
	}
}

func listVar() ast.Expr {
	return &ast.Var{Location: loc, N: "L"}
}

func boolLambda(name string, pat ast.Pat, test ast.Test) ast.Expr {
	return &ast.Lambda{
		Location: loc,
		Clauses: []ast.Clause{
			{
				Location: loc,
				Pats:     []ast.Pat{pat},
				Guards:   []ast.Guard{{Tests: []ast.Test{test}}},
				Body:     ast.Body{Exprs: []ast.Expr{ast.AtomTrue(loc)}},
			},
			{
				Location: loc,
				Pats:     []ast.Pat{ast.NewPatVar(loc, name)},
				Body:     ast.Body{Exprs: []ast.Expr{ast.AtomFalse(loc)}},
			},
		},
	}
}

func TestPreprocess(t *testing.T) {
	tests := []struct {
		desc string
		in   ast.AST
		want ast.AST
	}{
		{
			desc: "fun erlang:is_atom/1",
			in: module(partition(
				&ast.RemoteFun{Location: loc, Id: ast.RemoteId{Module: "erlang", Name: "is_atom", Arity: 1}},
				listVar(),
			)),
			want: module(partition(
				boolLambda("$pp0", ast.NewPatVar(loc, "$pp0"), &ast.TestCall{
					Location: loc,
					Id:       ast.Id{Name: "is_atom", Arity: 1},
					Args:     []ast.Test{ast.NewTestVar(loc, "$pp0")},
				}),
				listVar(),
			)),
		},
		{
			desc: "fun(X) -> X > 0 end",
			in: module(partition(
				&ast.Lambda{
					Location: loc,
					Clauses: []ast.Clause{{
						Location: loc,
						Pats:     []ast.Pat{ast.NewPatVar(loc, "X")},
						Body: ast.Body{Exprs: []ast.Expr{&ast.BinOp{
							Location: loc,
							Op:       ">",
							Arg1:     &ast.Var{Location: loc, N: "X"},
							Arg2:     &ast.IntLit{Location: loc, Value: intPtr(0)},
						}}},
					}},
				},
				listVar(),
			)),
			want: module(partition(
				boolLambda("$pp0", ast.NewPatVar(loc, "X"), &ast.TestBinOp{
					Location: loc,
					Op:       ">",
					Arg1:     ast.NewTestVar(loc, "X"),
					Arg2:     &ast.TestNumber{Location: loc, Lit: intPtr(0)},
				}),
				listVar(),
			)),
		},
		{
			desc: "fresh name does not shadow the lambda argument",
			in: module(partition(
				&ast.Lambda{
					Location: loc,
					Clauses: []ast.Clause{{
						Location: loc,
						Pats:     []ast.Pat{ast.NewPatVar(loc, "$pp0")},
						Body: ast.Body{Exprs: []ast.Expr{&ast.BinOp{
							Location: loc,
							Op:       ">",
							Arg1:     &ast.Var{Location: loc, N: "$pp0"},
							Arg2:     &ast.IntLit{Location: loc, Value: intPtr(0)},
						}}},
					}},
				},
				listVar(),
			)),
			want: module(partition(
				boolLambda("$pp1", ast.NewPatVar(loc, "$pp0"), &ast.TestBinOp{
					Location: loc,
					Op:       ">",
					Arg1:     ast.NewTestVar(loc, "$pp0"),
					Arg2:     &ast.TestNumber{Location: loc, Lit: intPtr(0)},
				}),
				listVar(),
			)),
		},
		{
			desc: "nested partitions use fresh names",
			in: module(partition(
				&ast.RemoteFun{Location: loc, Id: ast.RemoteId{Module: "erlang", Name: "is_list", Arity: 1}},
				partition(
					&ast.RemoteFun{Location: loc, Id: ast.RemoteId{Module: "erlang", Name: "is_pid", Arity: 1}},
					listVar(),
				),
			)),
			want: module(partition(
				boolLambda("$pp0", ast.NewPatVar(loc, "$pp0"), &ast.TestCall{
					Location: loc,
					Id:       ast.Id{Name: "is_list", Arity: 1},
					Args:     []ast.Test{ast.NewTestVar(loc, "$pp0")},
				}),
				partition(
					boolLambda("$pp1", ast.NewPatVar(loc, "$pp1"), &ast.TestCall{
						Location: loc,
						Id:       ast.Id{Name: "is_pid", Arity: 1},
						Args:     []ast.Test{ast.NewTestVar(loc, "$pp1")},
					}),
					listVar(),
				),
			)),
		},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			got := preprocess.Preprocess(test.in)
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("unexpected rewrite (-want +got):\n%s", diff)
			}
			again := preprocess.Preprocess(got)
			if diff := cmp.Diff(got, again); diff != "" {
				t.Errorf("preprocessing is not idempotent (-first +second):\n%s", diff)
			}
		})
	}
}

func TestIdentity(t *testing.T) {
	tests := []struct {
		desc string
		in   ast.AST
	}{
		{
			desc: "predicate of another module",
			in: module(partition(
				&ast.RemoteFun{Location: loc, Id: ast.RemoteId{Module: "m", Name: "is_atom", Arity: 1}},
				listVar(),
			)),
		},
		{
			desc: "predicate with two arguments",
			in: module(partition(
				&ast.RemoteFun{Location: loc, Id: ast.RemoteId{Module: "erlang", Name: "is_record", Arity: 2}},
				listVar(),
			)),
		},
		{
			desc: "lambda body is not a test",
			in: module(partition(
				&ast.Lambda{
					Location: loc,
					Clauses: []ast.Clause{{
						Location: loc,
						Pats:     []ast.Pat{ast.NewPatVar(loc, "X")},
						Body: ast.Body{Exprs: []ast.Expr{&ast.LocalCall{
							Location: loc,
							Id:       ast.Id{Name: "g", Arity: 1},
							Args:     []ast.Expr{&ast.Var{Location: loc, N: "X"}},
						}}},
					}},
				},
				listVar(),
			)),
		},
		{
			desc: "lambda with a body of two expressions",
			in: module(partition(
				&ast.Lambda{
					Location: loc,
					Clauses: []ast.Clause{{
						Location: loc,
						Pats:     []ast.Pat{ast.NewPatVar(loc, "X")},
						Body: ast.Body{Exprs: []ast.Expr{
							&ast.Var{Location: loc, N: "X"},
							ast.AtomTrue(loc),
						}},
					}},
				},
				listVar(),
			)),
		},
		{
			desc: "other remote call",
			in: module(&ast.RemoteCall{
				Location: loc,
				Id:       ast.RemoteId{Module: "lists", Name: "filter", Arity: 2},
				Args: []ast.Expr{
					&ast.RemoteFun{Location: loc, Id: ast.RemoteId{Module: "erlang", Name: "is_atom", Arity: 1}},
					listVar(),
				},
			}),
		},
		{
			desc: "unknown operator",
			in: module(partition(
				&ast.Lambda{
					Location: loc,
					Clauses: []ast.Clause{{
						Location: loc,
						Pats:     []ast.Pat{ast.NewPatVar(loc, "X")},
						Body: ast.Body{Exprs: []ast.Expr{&ast.BinOp{
							Location: loc,
							Op:       "++",
							Arg1:     &ast.Var{Location: loc, N: "X"},
							Arg2:     &ast.NilLit{Location: loc},
						}}},
					}},
				},
				listVar(),
			)),
		},
	}
	for _, test := range tests {
		t.Run(test.desc, func(t *testing.T) {
			got := preprocess.Preprocess(test.in)
			if diff := cmp.Diff(test.in, got); diff != "" {
				t.Errorf("expression should not be rewritten (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAsTest(t *testing.T) {
	call := &ast.RemoteCall{
		Location: loc,
		Id:       ast.RemoteId{Module: "erlang", Name: "is_record", Arity: 2},
		Args: []ast.Expr{
			&ast.Var{Location: loc, N: "X"},
			&ast.AtomLit{Location: loc, S: "r"},
		},
	}
	got, ok := preprocess.AsTest(&ast.UnOp{Location: loc, Op: "not", Arg: call})
	if !ok {
		t.Fatalf("expression cannot be converted into a test")
	}
	want := &ast.TestUnOp{
		Location: loc,
		Op:       "not",
		Arg: &ast.TestCall{
			Location: loc,
			Id:       ast.Id{Name: "is_record", Arity: 2},
			Args: []ast.Test{
				ast.NewTestVar(loc, "X"),
				&ast.TestAtom{Location: loc, S: "r"},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected test (-want +got):\n%s", diff)
	}
	if _, ok := preprocess.AsTest(&ast.Tuple{Location: loc, Elems: []ast.Expr{&ast.FloatLit{Location: loc}}}); ok {
		t.Errorf("a tuple with a float is not a test")
	}
}
