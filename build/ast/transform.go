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

package ast

// Transformer rewrites expressions.
//
// Implementations handle the expressions they are interested in and call
// WalkExpr for all the others so that their children are visited.
// A transformer never modifies its input: rewritten nodes are new nodes.
type Transformer interface {
	TransformExpr(Expr) Expr
}

// TransformAST applies a transformer to all the expressions of a module.
func TransformAST(t Transformer, forms AST) AST {
	r := make(AST, len(forms))
	for i, form := range forms {
		r[i] = transformForm(t, form)
	}
	return r
}

func transformForm(t Transformer, form Form) Form {
	switch formT := form.(type) {
	case *FunDecl:
		return &FunDecl{
			Location: formT.Location,
			Id:       formT.Id,
			Clauses:  TransformClauses(t, formT.Clauses),
		}
	case *ExternalRecDecl:
		fields := make([]ExternalRecField, len(formT.Fields))
		for i, field := range formT.Fields {
			fields[i] = field
			if field.DefaultValue != nil {
				fields[i].DefaultValue = t.TransformExpr(field.DefaultValue)
			}
		}
		return &ExternalRecDecl{
			Location: formT.Location,
			Name:     formT.Name,
			Fields:   fields,
		}
	}
	return form
}

func transformExprs(t Transformer, exprs []Expr) []Expr {
	if exprs == nil {
		return nil
	}
	r := make([]Expr, len(exprs))
	for i, expr := range exprs {
		r[i] = t.TransformExpr(expr)
	}
	return r
}

func transformBody(t Transformer, body Body) Body {
	return Body{Exprs: transformExprs(t, body.Exprs)}
}

// TransformClauses applies a transformer to the bodies of clauses.
// Patterns and guards are not expressions and are kept as is.
func TransformClauses(t Transformer, clauses []Clause) []Clause {
	if clauses == nil {
		return nil
	}
	r := make([]Clause, len(clauses))
	for i, clause := range clauses {
		r[i] = Clause{
			Location: clause.Location,
			Pats:     clause.Pats,
			Guards:   clause.Guards,
			Body:     transformBody(t, clause.Body),
		}
	}
	return r
}

func transformQualifiers(t Transformer, quals []Qualifier) []Qualifier {
	if quals == nil {
		return nil
	}
	r := make([]Qualifier, len(quals))
	for i, qual := range quals {
		switch qualT := qual.(type) {
		case *LGenerate:
			r[i] = &LGenerate{Pat: qualT.Pat, Expr: t.TransformExpr(qualT.Expr)}
		case *Filter:
			r[i] = &Filter{Expr: t.TransformExpr(qualT.Expr)}
		default:
			r[i] = qual
		}
	}
	return r
}

// WalkExpr returns a copy of an expression with all its children
// rewritten by a transformer. Leaves are returned as is.
func WalkExpr(t Transformer, expr Expr) Expr {
	switch exprT := expr.(type) {
	case *Tuple:
		return &Tuple{Location: exprT.Location, Elems: transformExprs(t, exprT.Elems)}
	case *Cons:
		return &Cons{Location: exprT.Location, H: t.TransformExpr(exprT.H), T: t.TransformExpr(exprT.T)}
	case *Block:
		return &Block{Location: exprT.Location, Body: transformBody(t, exprT.Body)}
	case *Match:
		return &Match{Location: exprT.Location, Pat: exprT.Pat, Expr: t.TransformExpr(exprT.Expr)}
	case *Case:
		return &Case{
			Location: exprT.Location,
			Expr:     t.TransformExpr(exprT.Expr),
			Clauses:  TransformClauses(t, exprT.Clauses),
		}
	case *If:
		return &If{Location: exprT.Location, Clauses: TransformClauses(t, exprT.Clauses)}
	case *LocalCall:
		return &LocalCall{Location: exprT.Location, Id: exprT.Id, Args: transformExprs(t, exprT.Args)}
	case *RemoteCall:
		return &RemoteCall{Location: exprT.Location, Id: exprT.Id, Args: transformExprs(t, exprT.Args)}
	case *DynCall:
		return &DynCall{
			Location: exprT.Location,
			F:        t.TransformExpr(exprT.F),
			Args:     transformExprs(t, exprT.Args),
		}
	case *Lambda:
		return &Lambda{
			Location: exprT.Location,
			Clauses:  TransformClauses(t, exprT.Clauses),
			Name:     exprT.Name,
		}
	case *UnOp:
		return &UnOp{Location: exprT.Location, Op: exprT.Op, Arg: t.TransformExpr(exprT.Arg)}
	case *BinOp:
		return &BinOp{
			Location: exprT.Location,
			Op:       exprT.Op,
			Arg1:     t.TransformExpr(exprT.Arg1),
			Arg2:     t.TransformExpr(exprT.Arg2),
		}
	case *LComprehension:
		return &LComprehension{
			Location:   exprT.Location,
			Template:   t.TransformExpr(exprT.Template),
			Qualifiers: transformQualifiers(t, exprT.Qualifiers),
		}
	case *Catch:
		return &Catch{Location: exprT.Location, Expr: t.TransformExpr(exprT.Expr)}
	case *TryCatch:
		var after *Body
		if exprT.AfterBody != nil {
			body := transformBody(t, *exprT.AfterBody)
			after = &body
		}
		return &TryCatch{
			Location:     exprT.Location,
			TryBody:      transformBody(t, exprT.TryBody),
			CatchClauses: TransformClauses(t, exprT.CatchClauses),
			AfterBody:    after,
		}
	case *Receive:
		return &Receive{Location: exprT.Location, Clauses: TransformClauses(t, exprT.Clauses)}
	case *RecordCreate:
		var fields []RecordField
		if exprT.Fields != nil {
			fields = make([]RecordField, len(exprT.Fields))
			for i, field := range exprT.Fields {
				fields[i] = RecordField{Name: field.Name, Value: t.TransformExpr(field.Value)}
			}
		}
		return &RecordCreate{Location: exprT.Location, RecName: exprT.RecName, Fields: fields}
	case *RecordSelect:
		return &RecordSelect{
			Location:  exprT.Location,
			Expr:      t.TransformExpr(exprT.Expr),
			RecName:   exprT.RecName,
			FieldName: exprT.FieldName,
		}
	case *MapCreate:
		var kvs []KV
		if exprT.KV != nil {
			kvs = make([]KV, len(exprT.KV))
			for i, kv := range exprT.KV {
				kvs[i] = KV{K: t.TransformExpr(kv.K), V: t.TransformExpr(kv.V)}
			}
		}
		return &MapCreate{Location: exprT.Location, KV: kvs}
	}
	return expr
}
