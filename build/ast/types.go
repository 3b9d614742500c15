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

import (
	"fmt"
	"strings"
)

// ExtType is a type as written in the source, before expansion.
type ExtType interface {
	Node
	extType()
}

type (
	// AtomLitExtType is an atom literal type.
	AtomLitExtType struct {
		Location Pos      `json:"location"`
		Atom     AtomName `json:"atom"`
	}

	// IntLitExtType is an integer literal type.
	IntLitExtType struct {
		Location Pos `json:"location"`
	}

	// FunExtType is a function type.
	FunExtType struct {
		Location Pos       `json:"location"`
		ArgTys   []ExtType `json:"arg_tys"`
		ResTy    ExtType   `json:"res_ty"`
	}

	// AnyArityFunExtType is fun((...) -> T).
	AnyArityFunExtType struct {
		Location Pos     `json:"location"`
		ResTy    ExtType `json:"res_ty"`
	}

	// TupleExtType is a tuple type.
	TupleExtType struct {
		Location Pos       `json:"location"`
		ArgTys   []ExtType `json:"arg_tys"`
	}

	// ListExtType is a list type.
	ListExtType struct {
		Location Pos     `json:"location"`
		T        ExtType `json:"t"`
	}

	// AnyListExtType is the type [].
	AnyListExtType struct {
		Location Pos `json:"location"`
	}

	// UnionExtType is a union of types.
	UnionExtType struct {
		Location Pos       `json:"location"`
		Tys      []ExtType `json:"tys"`
	}

	// LocalExtType references a local or built-in type.
	LocalExtType struct {
		Location Pos       `json:"location"`
		Id       Id        `json:"id"`
		Args     []ExtType `json:"args"`
	}

	// RemoteExtType references a type of another module.
	RemoteExtType struct {
		Location Pos       `json:"location"`
		Id       RemoteId  `json:"id"`
		Args     []ExtType `json:"args"`
	}

	// VarExtType is a type variable.
	VarExtType struct {
		Location Pos    `json:"location"`
		Name     string `json:"name"`
	}

	// RecordExtType references a record.
	RecordExtType struct {
		Location Pos      `json:"location"`
		Name     AtomName `json:"name"`
	}

	// MapExtType is a map type.
	MapExtType struct {
		Location Pos     `json:"location"`
		KeyTy    ExtType `json:"key_ty"`
		ValTy    ExtType `json:"val_ty"`
	}
)

func (*AtomLitExtType) node()     {}
func (*IntLitExtType) node()      {}
func (*FunExtType) node()         {}
func (*AnyArityFunExtType) node() {}
func (*TupleExtType) node()       {}
func (*ListExtType) node()        {}
func (*AnyListExtType) node()     {}
func (*UnionExtType) node()       {}
func (*LocalExtType) node()       {}
func (*RemoteExtType) node()      {}
func (*VarExtType) node()         {}
func (*RecordExtType) node()      {}
func (*MapExtType) node()         {}

func (*AtomLitExtType) extType()     {}
func (*IntLitExtType) extType()      {}
func (*FunExtType) extType()         {}
func (*AnyArityFunExtType) extType() {}
func (*TupleExtType) extType()       {}
func (*ListExtType) extType()        {}
func (*AnyListExtType) extType()     {}
func (*UnionExtType) extType()       {}
func (*LocalExtType) extType()       {}
func (*RemoteExtType) extType()      {}
func (*VarExtType) extType()         {}
func (*RecordExtType) extType()      {}
func (*MapExtType) extType()         {}

// Type is an expanded type.
// References to user types are always qualified by their module.
type Type interface {
	Node
	fmt.Stringer
	ty()
}

type (
	// AtomLitType is an atom literal type.
	AtomLitType struct {
		Atom AtomName `json:"atom"`
	}

	// AnyType is term().
	AnyType struct{}

	// DynamicType is dynamic().
	DynamicType struct{}

	// NoneType is none().
	NoneType struct{}

	// AtomType is atom().
	AtomType struct{}

	// BinaryType is binary().
	BinaryType struct{}

	// NumberType is number().
	NumberType struct{}

	// PidType is pid().
	PidType struct{}

	// PortType is port().
	PortType struct{}

	// ReferenceType is reference().
	ReferenceType struct{}

	// AnyFunType is function().
	AnyFunType struct{}

	// AnyTupleType is tuple().
	AnyTupleType struct{}

	// NilType is [].
	NilType struct{}

	// FunType is a function type.
	FunType struct {
		ArgTys []Type `json:"arg_tys"`
		ResTy  Type   `json:"res_ty"`
	}

	// TupleType is a tuple type.
	TupleType struct {
		ArgTys []Type `json:"arg_tys"`
	}

	// ListType is a list type.
	ListType struct {
		T Type `json:"t"`
	}

	// UnionType is a union of types.
	UnionType struct {
		Tys []Type `json:"tys"`
	}

	// RemoteType references a user type.
	RemoteType struct {
		Id     RemoteId `json:"id"`
		ArgTys []Type   `json:"arg_tys"`
	}

	// VarType is a type variable.
	VarType struct {
		Name string `json:"name"`
	}

	// RecordType references a record of the module declaring the type.
	RecordType struct {
		Name AtomName `json:"name"`
	}

	// MapType is a map type.
	MapType struct {
		KType Type `json:"k_type"`
		VType Type `json:"v_type"`
	}
)

func (*AtomLitType) node()   {}
func (*AnyType) node()       {}
func (*DynamicType) node()   {}
func (*NoneType) node()      {}
func (*AtomType) node()      {}
func (*BinaryType) node()    {}
func (*NumberType) node()    {}
func (*PidType) node()       {}
func (*PortType) node()      {}
func (*ReferenceType) node() {}
func (*AnyFunType) node()    {}
func (*AnyTupleType) node()  {}
func (*NilType) node()       {}
func (*FunType) node()       {}
func (*TupleType) node()     {}
func (*ListType) node()      {}
func (*UnionType) node()     {}
func (*RemoteType) node()    {}
func (*VarType) node()       {}
func (*RecordType) node()    {}
func (*MapType) node()       {}

func (*AtomLitType) ty()   {}
func (*AnyType) ty()       {}
func (*DynamicType) ty()   {}
func (*NoneType) ty()      {}
func (*AtomType) ty()      {}
func (*BinaryType) ty()    {}
func (*NumberType) ty()    {}
func (*PidType) ty()       {}
func (*PortType) ty()      {}
func (*ReferenceType) ty() {}
func (*AnyFunType) ty()    {}
func (*AnyTupleType) ty()  {}
func (*NilType) ty()       {}
func (*FunType) ty()       {}
func (*TupleType) ty()     {}
func (*ListType) ty()      {}
func (*UnionType) ty()     {}
func (*RemoteType) ty()    {}
func (*VarType) ty()       {}
func (*RecordType) ty()    {}
func (*MapType) ty()       {}

func typesString(tys []Type, sep string) string {
	ss := make([]string, len(tys))
	for i, t := range tys {
		ss[i] = t.String()
	}
	return strings.Join(ss, sep)
}

func (t *AtomLitType) String() string { return t.Atom.String() }
func (*AnyType) String() string       { return "term()" }
func (*DynamicType) String() string   { return "dynamic()" }
func (*NoneType) String() string      { return "none()" }
func (*AtomType) String() string      { return "atom()" }
func (*BinaryType) String() string    { return "binary()" }
func (*NumberType) String() string    { return "number()" }
func (*PidType) String() string       { return "pid()" }
func (*PortType) String() string      { return "port()" }
func (*ReferenceType) String() string { return "reference()" }
func (*AnyFunType) String() string    { return "fun()" }
func (*AnyTupleType) String() string  { return "tuple()" }
func (*NilType) String() string       { return "[]" }

func (t *FunType) String() string {
	return fmt.Sprintf("fun((%s) -> %s)", typesString(t.ArgTys, ", "), t.ResTy)
}

func (t *TupleType) String() string {
	return "{" + typesString(t.ArgTys, ", ") + "}"
}

func (t *ListType) String() string {
	return "[" + t.T.String() + "]"
}

func (t *UnionType) String() string {
	return typesString(t.Tys, " | ")
}

func (t *RemoteType) String() string {
	return fmt.Sprintf("%s:%s(%s)", AtomName(t.Id.Module), t.Id.Name, typesString(t.ArgTys, ", "))
}

func (t *VarType) String() string {
	return t.Name
}

func (t *RecordType) String() string {
	return "#" + t.Name.String() + "{}"
}

func (t *MapType) String() string {
	return fmt.Sprintf("#{%s => %s}", t.KType, t.VType)
}

// Children returns the types directly nested in a type.
func Children(t Type) []Type {
	switch tT := t.(type) {
	case *FunType:
		return append(append([]Type{}, tT.ArgTys...), tT.ResTy)
	case *TupleType:
		return tT.ArgTys
	case *ListType:
		return []Type{tT.T}
	case *UnionType:
		return tT.Tys
	case *RemoteType:
		return tT.ArgTys
	case *MapType:
		return []Type{tT.KType, tT.VType}
	}
	return nil
}

// Inspect calls f for t and all its nested types, depth-first.
// Nested types are not visited if f returns false.
func Inspect(t Type, f func(Type) bool) {
	if t == nil || !f(t) {
		return
	}
	for _, child := range Children(t) {
		Inspect(child, f)
	}
}

func substAll(tys []Type, sub map[string]Type) []Type {
	if tys == nil {
		return nil
	}
	r := make([]Type, len(tys))
	for i, t := range tys {
		r[i] = Subst(t, sub)
	}
	return r
}

// Subst replaces type variables by types.
// Variables not in sub are left unchanged. t is never modified.
func Subst(t Type, sub map[string]Type) Type {
	switch tT := t.(type) {
	case *VarType:
		if r, ok := sub[tT.Name]; ok {
			return r
		}
		return tT
	case *FunType:
		return &FunType{ArgTys: substAll(tT.ArgTys, sub), ResTy: Subst(tT.ResTy, sub)}
	case *TupleType:
		return &TupleType{ArgTys: substAll(tT.ArgTys, sub)}
	case *ListType:
		return &ListType{T: Subst(tT.T, sub)}
	case *UnionType:
		return &UnionType{Tys: substAll(tT.Tys, sub)}
	case *RemoteType:
		return &RemoteType{Id: tT.Id, ArgTys: substAll(tT.ArgTys, sub)}
	case *MapType:
		return &MapType{KType: Subst(tT.KType, sub), VType: Subst(tT.VType, sub)}
	}
	return t
}

// Bind returns the substitution of the parameters of a declaration by arguments.
func Bind(params []*VarType, args []Type) map[string]Type {
	sub := make(map[string]Type, len(params))
	for i, param := range params {
		if i >= len(args) {
			break
		}
		sub[param.Name] = args[i]
	}
	return sub
}
