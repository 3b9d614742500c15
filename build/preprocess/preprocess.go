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

// Package preprocess normalizes function bodies before they are sent to
// the typechecker.
//
// Predicates passed to lists:partition/2 are rewritten into two-clause
// lambdas of the shape
//
//	fun(X) when Test -> true; (_) -> false end
//
// so that the typechecker can refine the partitioned elements by the test.
package preprocess

import (
	"github.com/elp-tools/eqwalizer/base/uname"
	"github.com/elp-tools/eqwalizer/build/ast"
)

const freshPrefix = "$pp"

var predicates = map[ast.Id]bool{
	{Name: "is_atom", Arity: 1}:      true,
	{Name: "is_binary", Arity: 1}:    true,
	{Name: "is_bitstring", Arity: 1}: true,
	{Name: "is_boolean", Arity: 1}:   true,
	{Name: "is_float", Arity: 1}:     true,
	{Name: "is_function", Arity: 1}:  true,
	{Name: "is_integer", Arity: 1}:   true,
	{Name: "is_list", Arity: 1}:      true,
	{Name: "is_number", Arity: 1}:    true,
	{Name: "is_pid", Arity: 1}:       true,
	{Name: "is_port", Arity: 1}:      true,
	{Name: "is_reference", Arity: 1}: true,
	{Name: "is_map", Arity: 1}:       true,
	{Name: "is_tuple", Arity: 1}:     true,
	{Name: "is_record", Arity: 2}:    true,
	{Name: "is_function", Arity: 2}:  true,
	{Name: "is_record", Arity: 3}:    true,
}

var binOps = map[string]bool{
	"/": true, "*": true, "-": true, "+": true,
	"div": true, "rem": true,
	"band": true, "bor": true, "bxor": true, "bsl": true, "bsr": true,
	"or": true, "xor": true, "and": true,
	">=": true, ">": true, "=<": true, "<": true,
	"/=": true, "=/=": true, "==": true, "=:=": true,
	"andalso": true, "orelse": true,
}

var unOps = map[string]bool{
	"bnot": true, "+": true, "-": true, "not": true,
}

// IsPredicate returns true if a function of the erlang module can be
// used as a guard test on its argument.
func IsPredicate(id ast.RemoteId) bool {
	return id.Module == "erlang" && predicates[id.Local()]
}

func isPartition(id ast.RemoteId) bool {
	return id.Module == "lists" && id.Name == "partition" && id.Arity == 2
}

// AsTest converts an expression into an equivalent guard test.
// It returns false if the expression cannot be used in a guard.
func AsTest(expr ast.Expr) (ast.Test, bool) {
	switch exprT := expr.(type) {
	case *ast.Var:
		return &ast.TestVar{Location: exprT.Location, V: exprT.N}, true
	case *ast.AtomLit:
		return &ast.TestAtom{Location: exprT.Location, S: exprT.S}, true
	case *ast.IntLit:
		return &ast.TestNumber{Location: exprT.Location, Lit: exprT.Value}, true
	case *ast.RemoteCall:
		if !IsPredicate(exprT.Id) {
			return nil, false
		}
		args, ok := asTests(exprT.Args)
		if !ok {
			return nil, false
		}
		return &ast.TestCall{Location: exprT.Location, Id: exprT.Id.Local(), Args: args}, true
	case *ast.Tuple:
		elems, ok := asTests(exprT.Elems)
		if !ok {
			return nil, false
		}
		return &ast.TestTuple{Location: exprT.Location, Elems: elems}, true
	case *ast.UnOp:
		if !unOps[exprT.Op] {
			return nil, false
		}
		arg, ok := AsTest(exprT.Arg)
		if !ok {
			return nil, false
		}
		return &ast.TestUnOp{Location: exprT.Location, Op: exprT.Op, Arg: arg}, true
	case *ast.BinOp:
		if !binOps[exprT.Op] {
			return nil, false
		}
		arg1, ok := AsTest(exprT.Arg1)
		if !ok {
			return nil, false
		}
		arg2, ok := AsTest(exprT.Arg2)
		if !ok {
			return nil, false
		}
		return &ast.TestBinOp{Location: exprT.Location, Op: exprT.Op, Arg1: arg1, Arg2: arg2}, true
	}
	return nil, false
}

func asTests(exprs []ast.Expr) ([]ast.Test, bool) {
	tests := make([]ast.Test, len(exprs))
	for i, expr := range exprs {
		test, ok := AsTest(expr)
		if !ok {
			return nil, false
		}
		tests[i] = test
	}
	return tests, true
}

// preprocessor is the state of one pass over a module.
type preprocessor struct {
	names *uname.Unique
	fresh *uname.Root
}

var _ ast.Transformer = (*preprocessor)(nil)

// Preprocess returns a copy of a module with all the predicates passed
// to lists:partition/2 rewritten as boolean lambdas.
// Forms and expressions that do not need to be rewritten are returned as is.
func Preprocess(forms ast.AST) ast.AST {
	names := uname.New()
	pp := &preprocessor{names: names, fresh: names.Root(freshPrefix)}
	return ast.TransformAST(pp, forms)
}

func (pp *preprocessor) TransformExpr(expr ast.Expr) ast.Expr {
	call, ok := expr.(*ast.RemoteCall)
	if !ok || !isPartition(call.Id) || len(call.Args) != 2 {
		return ast.WalkExpr(pp, expr)
	}
	return &ast.RemoteCall{
		Location: call.Location,
		Id:       call.Id,
		Args: []ast.Expr{
			pp.partitionPredicate(call.Location, call.Args[0]),
			pp.TransformExpr(call.Args[1]),
		},
	}
}

func (pp *preprocessor) partitionPredicate(location ast.Pos, expr ast.Expr) ast.Expr {
	switch exprT := expr.(type) {
	case *ast.RemoteFun:
		if exprT.Id.Arity != 1 || !IsPredicate(exprT.Id) {
			return expr
		}
		return pp.etaExpand(location, exprT.Id.Name)
	case *ast.Lambda:
		if len(exprT.Clauses) != 1 {
			return expr
		}
		clause := exprT.Clauses[0]
		if len(clause.Pats) != 1 || len(clause.Body.Exprs) != 1 {
			return expr
		}
		test, ok := AsTest(clause.Body.Exprs[0])
		if !ok {
			return expr
		}
		pp.registerVars(clause.Pats[0])
		return &ast.Lambda{
			Location: exprT.Location,
			Name:     exprT.Name,
			Clauses: []ast.Clause{
				{
					Location: clause.Location,
					Pats:     []ast.Pat{clause.Pats[0]},
					Guards:   []ast.Guard{{Tests: []ast.Test{test}}},
					Body:     ast.Body{Exprs: []ast.Expr{ast.AtomTrue(clause.Location)}},
				},
				{
					Location: clause.Location,
					Pats:     []ast.Pat{ast.NewPatVar(clause.Location, pp.fresh.Next())},
					Body:     ast.Body{Exprs: []ast.Expr{ast.AtomFalse(clause.Location)}},
				},
			},
		}
	}
	return expr
}

// registerVars reserves the names bound by a pattern so that the
// catch-all clause never shadows them.
func (pp *preprocessor) registerVars(pat ast.Pat) {
	switch patT := pat.(type) {
	case *ast.PatVar:
		pp.names.Register(patT.N)
	case *ast.PatTuple:
		for _, elem := range patT.Elems {
			pp.registerVars(elem)
		}
	case *ast.PatCons:
		pp.registerVars(patT.H)
		pp.registerVars(patT.T)
	case *ast.PatMatch:
		pp.registerVars(patT.Pat)
		pp.registerVars(patT.Arg)
	}
}

// etaExpand builds fun(V) when Pred(V) -> true; (V) -> false end.
func (pp *preprocessor) etaExpand(location ast.Pos, predicate ast.AtomName) *ast.Lambda {
	v := pp.fresh.Next()
	test := &ast.TestCall{
		Location: location,
		Id:       ast.Id{Name: predicate, Arity: 1},
		Args:     []ast.Test{ast.NewTestVar(location, v)},
	}
	return &ast.Lambda{
		Location: location,
		Clauses: []ast.Clause{
			{
				Location: location,
				Pats:     []ast.Pat{ast.NewPatVar(location, v)},
				Guards:   []ast.Guard{{Tests: []ast.Test{test}}},
				Body:     ast.Body{Exprs: []ast.Expr{ast.AtomTrue(location)}},
			},
			{
				Location: location,
				Pats:     []ast.Pat{ast.NewPatVar(location, v)},
				Body:     ast.Body{Exprs: []ast.Expr{ast.AtomFalse(location)}},
			},
		},
	}
}
