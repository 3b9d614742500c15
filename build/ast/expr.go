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

type (
	// Expr is an Erlang expression.
	Expr interface {
		Node
		expr()
	}

	// Qualifier of a comprehension.
	Qualifier interface {
		Node
		qualifier()
	}
)

type (
	// Body is a sequence of expressions.
	Body struct {
		Exprs []Expr `json:"exprs"`
	}

	// Clause of a function, a case, a lambda, etc.
	Clause struct {
		Location Pos     `json:"location"`
		Pats     []Pat   `json:"pats"`
		Guards   []Guard `json:"guards"`
		Body     Body    `json:"body"`
	}

	// Var is a variable.
	Var struct {
		Location Pos    `json:"location"`
		N        string `json:"n"`
	}

	// AtomLit is an atom literal.
	AtomLit struct {
		Location Pos      `json:"location"`
		S        AtomName `json:"s"`
	}

	// IntLit is an integer literal.
	// Value is nil when the literal does not fit.
	IntLit struct {
		Location Pos  `json:"location"`
		Value    *int `json:"value"`
	}

	// FloatLit is a float literal.
	FloatLit struct {
		Location Pos `json:"location"`
	}

	// StringLit is a string literal.
	StringLit struct {
		Location Pos  `json:"location"`
		Empty    bool `json:"empty"`
	}

	// NilLit is the empty list.
	NilLit struct {
		Location Pos `json:"location"`
	}

	// Tuple expression.
	Tuple struct {
		Location Pos    `json:"location"`
		Elems    []Expr `json:"elems"`
	}

	// Cons builds a list from a head and a tail.
	Cons struct {
		Location Pos  `json:"location"`
		H        Expr `json:"h"`
		T        Expr `json:"t"`
	}

	// Block is a begin ... end block.
	Block struct {
		Location Pos  `json:"location"`
		Body     Body `json:"body"`
	}

	// Match is a pattern match expression.
	Match struct {
		Location Pos  `json:"location"`
		Pat      Pat  `json:"pat"`
		Expr     Expr `json:"expr"`
	}

	// Case expression.
	Case struct {
		Location Pos      `json:"location"`
		Expr     Expr     `json:"expr"`
		Clauses  []Clause `json:"clauses"`
	}

	// If expression.
	If struct {
		Location Pos      `json:"location"`
		Clauses  []Clause `json:"clauses"`
	}

	// LocalCall calls a function of the current module.
	LocalCall struct {
		Location Pos    `json:"location"`
		Id       Id     `json:"id"`
		Args     []Expr `json:"args"`
	}

	// RemoteCall calls a function of a given module.
	RemoteCall struct {
		Location Pos      `json:"location"`
		Id       RemoteId `json:"id"`
		Args     []Expr   `json:"args"`
	}

	// DynCall calls a function value.
	DynCall struct {
		Location Pos    `json:"location"`
		F        Expr   `json:"f"`
		Args     []Expr `json:"args"`
	}

	// LocalFun is a reference to a local function: fun f/1.
	LocalFun struct {
		Location Pos `json:"location"`
		Id       Id  `json:"id"`
	}

	// RemoteFun is a reference to a remote function: fun m:f/1.
	RemoteFun struct {
		Location Pos      `json:"location"`
		Id       RemoteId `json:"id"`
	}

	// Lambda is an anonymous function, optionally named.
	Lambda struct {
		Location Pos      `json:"location"`
		Clauses  []Clause `json:"clauses"`
		Name     *string  `json:"name"`
	}

	// UnOp is a unary operator application.
	UnOp struct {
		Location Pos    `json:"location"`
		Op       string `json:"op"`
		Arg      Expr   `json:"arg"`
	}

	// BinOp is a binary operator application.
	BinOp struct {
		Location Pos    `json:"location"`
		Op       string `json:"op"`
		Arg1     Expr   `json:"arg_1"`
		Arg2     Expr   `json:"arg_2"`
	}

	// LComprehension is a list comprehension.
	LComprehension struct {
		Location   Pos         `json:"location"`
		Template   Expr        `json:"template"`
		Qualifiers []Qualifier `json:"qualifiers"`
	}

	// LGenerate is a list generator qualifier.
	LGenerate struct {
		Pat  Pat  `json:"pat"`
		Expr Expr `json:"expr"`
	}

	// Filter is a boolean filter qualifier.
	Filter struct {
		Expr Expr `json:"expr"`
	}

	// Catch expression.
	Catch struct {
		Location Pos  `json:"location"`
		Expr     Expr `json:"expr"`
	}

	// TryCatch is a try ... catch ... after expression.
	TryCatch struct {
		Location     Pos      `json:"location"`
		TryBody      Body     `json:"try_body"`
		CatchClauses []Clause `json:"catch_clauses"`
		AfterBody    *Body    `json:"after_body"`
	}

	// Receive expression.
	Receive struct {
		Location Pos      `json:"location"`
		Clauses  []Clause `json:"clauses"`
	}

	// RecordField is a field assignment in a record creation.
	RecordField struct {
		Name  AtomName `json:"name"`
		Value Expr     `json:"value"`
	}

	// RecordCreate creates a record.
	RecordCreate struct {
		Location Pos           `json:"location"`
		RecName  AtomName      `json:"rec_name"`
		Fields   []RecordField `json:"fields"`
	}

	// RecordSelect selects the field of a record.
	RecordSelect struct {
		Location  Pos      `json:"location"`
		Expr      Expr     `json:"expr"`
		RecName   AtomName `json:"rec_name"`
		FieldName AtomName `json:"field_name"`
	}

	// KV is a key-value pair in a map.
	KV struct {
		K Expr `json:"k"`
		V Expr `json:"v"`
	}

	// MapCreate creates a map.
	MapCreate struct {
		Location Pos  `json:"location"`
		KV       []KV `json:"kv"`
	}
)

// AtomTrue returns the atom true at a location.
func AtomTrue(location Pos) Expr {
	return &AtomLit{Location: location, S: "true"}
}

// AtomFalse returns the atom false at a location.
func AtomFalse(location Pos) Expr {
	return &AtomLit{Location: location, S: "false"}
}

func (*Var) node()            {}
func (*AtomLit) node()        {}
func (*IntLit) node()         {}
func (*FloatLit) node()       {}
func (*StringLit) node()      {}
func (*NilLit) node()         {}
func (*Tuple) node()          {}
func (*Cons) node()           {}
func (*Block) node()          {}
func (*Match) node()          {}
func (*Case) node()           {}
func (*If) node()             {}
func (*LocalCall) node()      {}
func (*RemoteCall) node()     {}
func (*DynCall) node()        {}
func (*LocalFun) node()       {}
func (*RemoteFun) node()      {}
func (*Lambda) node()         {}
func (*UnOp) node()           {}
func (*BinOp) node()          {}
func (*LComprehension) node() {}
func (*LGenerate) node()      {}
func (*Filter) node()         {}
func (*Catch) node()          {}
func (*TryCatch) node()       {}
func (*Receive) node()        {}
func (*RecordCreate) node()   {}
func (*RecordSelect) node()   {}
func (*MapCreate) node()      {}

func (*Var) expr()            {}
func (*AtomLit) expr()        {}
func (*IntLit) expr()         {}
func (*FloatLit) expr()       {}
func (*StringLit) expr()      {}
func (*NilLit) expr()         {}
func (*Tuple) expr()          {}
func (*Cons) expr()           {}
func (*Block) expr()          {}
func (*Match) expr()          {}
func (*Case) expr()           {}
func (*If) expr()             {}
func (*LocalCall) expr()      {}
func (*RemoteCall) expr()     {}
func (*DynCall) expr()        {}
func (*LocalFun) expr()       {}
func (*RemoteFun) expr()      {}
func (*Lambda) expr()         {}
func (*UnOp) expr()           {}
func (*BinOp) expr()          {}
func (*LComprehension) expr() {}
func (*Catch) expr()          {}
func (*TryCatch) expr()       {}
func (*Receive) expr()        {}
func (*RecordCreate) expr()   {}
func (*RecordSelect) expr()   {}
func (*MapCreate) expr()      {}

func (*LGenerate) qualifier() {}
func (*Filter) qualifier()    {}
