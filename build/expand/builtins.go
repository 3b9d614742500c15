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

package expand

import "github.com/elp-tools/eqwalizer/build/ast"

func union(tys ...ast.Type) ast.Type {
	return &ast.UnionType{Tys: tys}
}

func anyList() ast.Type {
	return &ast.ListType{T: &ast.AnyType{}}
}

// builtins maps the built-in types to their definition.
// Parameterized built-ins receive their expanded arguments.
var builtins = map[ast.Id]func(args []ast.Type) ast.Type{
	{Name: "any", Arity: 0}:       func([]ast.Type) ast.Type { return &ast.AnyType{} },
	{Name: "term", Arity: 0}:      func([]ast.Type) ast.Type { return &ast.AnyType{} },
	{Name: "none", Arity: 0}:      func([]ast.Type) ast.Type { return &ast.NoneType{} },
	{Name: "no_return", Arity: 0}: func([]ast.Type) ast.Type { return &ast.NoneType{} },
	{Name: "dynamic", Arity: 0}:   func([]ast.Type) ast.Type { return &ast.DynamicType{} },

	{Name: "atom", Arity: 0}:   func([]ast.Type) ast.Type { return &ast.AtomType{} },
	{Name: "module", Arity: 0}: func([]ast.Type) ast.Type { return &ast.AtomType{} },
	{Name: "node", Arity: 0}:   func([]ast.Type) ast.Type { return &ast.AtomType{} },
	{Name: "boolean", Arity: 0}: func([]ast.Type) ast.Type {
		return union(&ast.AtomLitType{Atom: "false"}, &ast.AtomLitType{Atom: "true"})
	},

	{Name: "binary", Arity: 0}:             func([]ast.Type) ast.Type { return &ast.BinaryType{} },
	{Name: "bitstring", Arity: 0}:          func([]ast.Type) ast.Type { return &ast.BinaryType{} },
	{Name: "nonempty_binary", Arity: 0}:    func([]ast.Type) ast.Type { return &ast.BinaryType{} },
	{Name: "nonempty_bitstring", Arity: 0}: func([]ast.Type) ast.Type { return &ast.BinaryType{} },

	{Name: "number", Arity: 0}:          func([]ast.Type) ast.Type { return &ast.NumberType{} },
	{Name: "integer", Arity: 0}:         func([]ast.Type) ast.Type { return &ast.NumberType{} },
	{Name: "float", Arity: 0}:           func([]ast.Type) ast.Type { return &ast.NumberType{} },
	{Name: "non_neg_integer", Arity: 0}: func([]ast.Type) ast.Type { return &ast.NumberType{} },
	{Name: "pos_integer", Arity: 0}:     func([]ast.Type) ast.Type { return &ast.NumberType{} },
	{Name: "neg_integer", Arity: 0}:     func([]ast.Type) ast.Type { return &ast.NumberType{} },
	{Name: "char", Arity: 0}:            func([]ast.Type) ast.Type { return &ast.NumberType{} },
	{Name: "byte", Arity: 0}:            func([]ast.Type) ast.Type { return &ast.NumberType{} },
	{Name: "arity", Arity: 0}:           func([]ast.Type) ast.Type { return &ast.NumberType{} },

	{Name: "pid", Arity: 0}:       func([]ast.Type) ast.Type { return &ast.PidType{} },
	{Name: "port", Arity: 0}:      func([]ast.Type) ast.Type { return &ast.PortType{} },
	{Name: "reference", Arity: 0}: func([]ast.Type) ast.Type { return &ast.ReferenceType{} },
	{Name: "identifier", Arity: 0}: func([]ast.Type) ast.Type {
		return union(&ast.PidType{}, &ast.PortType{}, &ast.ReferenceType{})
	},

	{Name: "function", Arity: 0}: func([]ast.Type) ast.Type { return &ast.AnyFunType{} },
	{Name: "tuple", Arity: 0}:    func([]ast.Type) ast.Type { return &ast.AnyTupleType{} },
	{Name: "nil", Arity: 0}:      func([]ast.Type) ast.Type { return &ast.NilType{} },

	{Name: "list", Arity: 0}:                func([]ast.Type) ast.Type { return anyList() },
	{Name: "nonempty_list", Arity: 0}:       func([]ast.Type) ast.Type { return anyList() },
	{Name: "maybe_improper_list", Arity: 0}: func([]ast.Type) ast.Type { return anyList() },
	{Name: "iolist", Arity: 0}:              func([]ast.Type) ast.Type { return anyList() },
	{Name: "list", Arity: 1}:                func(args []ast.Type) ast.Type { return &ast.ListType{T: args[0]} },
	{Name: "nonempty_list", Arity: 1}:       func(args []ast.Type) ast.Type { return &ast.ListType{T: args[0]} },
	{Name: "string", Arity: 0}:              func([]ast.Type) ast.Type { return &ast.ListType{T: &ast.NumberType{}} },
	{Name: "nonempty_string", Arity: 0}:     func([]ast.Type) ast.Type { return &ast.ListType{T: &ast.NumberType{}} },
	{Name: "iodata", Arity: 0}:              func([]ast.Type) ast.Type { return union(&ast.BinaryType{}, anyList()) },

	{Name: "map", Arity: 0}: func([]ast.Type) ast.Type {
		return &ast.MapType{KType: &ast.AnyType{}, VType: &ast.AnyType{}}
	},
	{Name: "mfa", Arity: 0}: func([]ast.Type) ast.Type {
		return &ast.TupleType{ArgTys: []ast.Type{&ast.AtomType{}, &ast.AtomType{}, &ast.NumberType{}}}
	},
	{Name: "timeout", Arity: 0}: func([]ast.Type) ast.Type {
		return union(&ast.AtomLitType{Atom: "infinity"}, &ast.NumberType{})
	},
}

// IsBuiltin returns true if a type is a built-in type.
func IsBuiltin(id ast.Id) bool {
	_, ok := builtins[id]
	return ok
}
