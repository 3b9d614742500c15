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

// Form is a top-level declaration of a module.
type Form interface {
	Node
	form()
}

type (
	// Module declares the name of the module.
	Module struct {
		Location Pos        `json:"location"`
		Name     ModuleName `json:"name"`
	}

	// Export lists exported functions.
	Export struct {
		Location Pos  `json:"location"`
		Funs     []Id `json:"funs"`
	}

	// Import lists functions imported from another module.
	Import struct {
		Location Pos        `json:"location"`
		Module   ModuleName `json:"module"`
		Funs     []Id       `json:"funs"`
	}

	// ExportType lists exported types.
	ExportType struct {
		Location Pos  `json:"location"`
		Types    []Id `json:"types"`
	}

	// FunDecl is a function declaration.
	FunDecl struct {
		Location Pos      `json:"location"`
		Id       Id       `json:"id"`
		Clauses  []Clause `json:"clauses"`
	}

	// File marks the start of a file, included or not.
	File struct {
		Location Pos    `json:"location"`
		File     string `json:"file"`
		Start    int    `json:"start"`
	}

	// Fixme is an eqWAlizer suppression comment.
	Fixme struct {
		Comment     Pos  `json:"comment"`
		Suppression Pos  `json:"suppression"`
		IsIgnore    bool `json:"is_ignore"`
	}

	// ElpMetadata carries metadata computed by the host.
	ElpMetadata struct {
		Location Pos     `json:"location"`
		Fixmes   []Fixme `json:"fixmes"`
	}

	// Behaviour declares a behaviour implemented by the module.
	Behaviour struct {
		Location Pos    `json:"location"`
		Name     string `json:"name"`
	}

	// EqwalizerNowarnFunction disables warnings for a function.
	EqwalizerNowarnFunction struct {
		Location Pos `json:"location"`
		Id       Id  `json:"id"`
	}

	// EqwalizerUnlimitedRefinement enables unlimited refinement for a function.
	EqwalizerUnlimitedRefinement struct {
		Location Pos `json:"location"`
		Id       Id  `json:"id"`
	}

	// TypingAttribute lists the typecheckers enabled for the module.
	TypingAttribute struct {
		Location Pos      `json:"location"`
		Names    []string `json:"names"`
	}

	// OptionalCallbacks lists the optional callbacks of a behaviour.
	OptionalCallbacks struct {
		Location Pos  `json:"location"`
		Ids      []Id `json:"ids"`
	}

	// ExternalTypeDecl is a type alias as written in the source.
	ExternalTypeDecl struct {
		Location Pos      `json:"location"`
		Id       Id       `json:"id"`
		Params   []string `json:"params"`
		Body     ExtType  `json:"body"`
	}

	// ExternalOpaqueDecl is an opaque type as written in the source.
	ExternalOpaqueDecl struct {
		Location Pos      `json:"location"`
		Id       Id       `json:"id"`
		Params   []string `json:"params"`
		Body     ExtType  `json:"body"`
	}

	// ExternalFunSpec is a function specification as written in the source.
	// More than one type makes the specification overloaded.
	ExternalFunSpec struct {
		Location Pos           `json:"location"`
		Id       Id            `json:"id"`
		Types    []*FunExtType `json:"types"`
	}

	// ExternalCallback is a behaviour callback as written in the source.
	ExternalCallback struct {
		Location Pos           `json:"location"`
		Id       Id            `json:"id"`
		Types    []*FunExtType `json:"types"`
	}

	// ExternalRecField is a record field as written in the source.
	ExternalRecField struct {
		Name         AtomName `json:"name"`
		Type         ExtType  `json:"type"`
		DefaultValue Expr     `json:"default_value"`
	}

	// ExternalRecDecl is a record declaration as written in the source.
	ExternalRecDecl struct {
		Location Pos                `json:"location"`
		Name     AtomName           `json:"name"`
		Fields   []ExternalRecField `json:"fields"`
	}
)

// Declarations after type expansion.
type (
	// TypeDecl is an expanded type alias.
	TypeDecl struct {
		Location Pos        `json:"location"`
		Id       Id         `json:"id"`
		Params   []*VarType `json:"params"`
		Body     Type       `json:"body"`
	}

	// OpaqueTypeDecl is the view on an opaque type from outside its module.
	OpaqueTypeDecl struct {
		Location Pos `json:"location"`
		Id       Id  `json:"id"`
	}

	// FunSpec is an expanded function specification.
	FunSpec struct {
		Location Pos      `json:"location"`
		Id       Id       `json:"id"`
		Ty       *FunType `json:"ty"`
	}

	// OverloadedFunSpec is an expanded specification with several clauses.
	OverloadedFunSpec struct {
		Location Pos        `json:"location"`
		Id       Id         `json:"id"`
		Tys      []*FunType `json:"tys"`
	}

	// Callback is an expanded behaviour callback.
	Callback struct {
		Location Pos        `json:"location"`
		Id       Id         `json:"id"`
		Tys      []*FunType `json:"tys"`
	}

	// RecField is an expanded record field.
	RecField struct {
		Name         AtomName `json:"name"`
		Tp           Type     `json:"tp"`
		DefaultValue Expr     `json:"default_value"`
	}

	// RecDecl is an expanded record declaration.
	RecDecl struct {
		Location Pos        `json:"location"`
		Name     AtomName   `json:"name"`
		Fields   []RecField `json:"fields"`
	}
)

// InvalidKind is the kind of declaration an invalid form replaces.
type InvalidKind string

// Kinds of invalid forms.
const (
	InvalidTypeDecl InvalidKind = "InvalidTypeDecl"
	InvalidFunSpec  InvalidKind = "InvalidFunSpec"
	InvalidRecDecl  InvalidKind = "InvalidRecDecl"
	InvalidCallback InvalidKind = "InvalidCallback"
	InvalidFunDecl  InvalidKind = "InvalidFunDecl"
)

// ReasonKind is the reason why a form is invalid.
type ReasonKind string

// Reasons for a form to be invalid.
const (
	UnknownId             ReasonKind = "UnknownId"
	UnboundVar            ReasonKind = "UnboundVar"
	RepeatedTyVarInTyDecl ReasonKind = "RepeatedTyVarInTyDecl"
	TransitiveInvalid     ReasonKind = "TransitiveInvalid"
	BadArity              ReasonKind = "BadArity"
)

// Invalid describes why a declaration has been rejected.
type Invalid struct {
	Kind ReasonKind `json:"kind"`
	// Name is the unknown identifier or the unbound variable, if any.
	Name string `json:"name"`
	// Refs are the invalid references of a transitively invalid form.
	Refs []string `json:"refs"`
}

// InvalidForm replaces a declaration that could not be processed.
// Invalid forms accumulate in stubs instead of failing the whole module.
type InvalidForm struct {
	Location Pos         `json:"location"`
	Kind     InvalidKind `json:"kind"`
	Id       Id          `json:"id"`
	Name     AtomName    `json:"name"`
	Reason   Invalid     `json:"reason"`
}

func (*Module) node()                       {}
func (*Export) node()                       {}
func (*Import) node()                       {}
func (*ExportType) node()                   {}
func (*FunDecl) node()                      {}
func (*File) node()                         {}
func (*ElpMetadata) node()                  {}
func (*Behaviour) node()                    {}
func (*EqwalizerNowarnFunction) node()      {}
func (*EqwalizerUnlimitedRefinement) node() {}
func (*TypingAttribute) node()              {}
func (*OptionalCallbacks) node()            {}
func (*ExternalTypeDecl) node()             {}
func (*ExternalOpaqueDecl) node()           {}
func (*ExternalFunSpec) node()              {}
func (*ExternalCallback) node()             {}
func (*ExternalRecDecl) node()              {}
func (*TypeDecl) node()                     {}
func (*OpaqueTypeDecl) node()               {}
func (*FunSpec) node()                      {}
func (*OverloadedFunSpec) node()            {}
func (*Callback) node()                     {}
func (*RecDecl) node()                      {}
func (*InvalidForm) node()                  {}

func (*Module) form()                       {}
func (*Export) form()                       {}
func (*Import) form()                       {}
func (*ExportType) form()                   {}
func (*FunDecl) form()                      {}
func (*File) form()                         {}
func (*ElpMetadata) form()                  {}
func (*Behaviour) form()                    {}
func (*EqwalizerNowarnFunction) form()      {}
func (*EqwalizerUnlimitedRefinement) form() {}
func (*TypingAttribute) form()              {}
func (*OptionalCallbacks) form()            {}
func (*ExternalTypeDecl) form()             {}
func (*ExternalOpaqueDecl) form()           {}
func (*ExternalFunSpec) form()              {}
func (*ExternalCallback) form()             {}
func (*ExternalRecDecl) form()              {}
func (*TypeDecl) form()                     {}
func (*OpaqueTypeDecl) form()               {}
func (*FunSpec) form()                      {}
func (*OverloadedFunSpec) form()            {}
func (*Callback) form()                     {}
func (*RecDecl) form()                      {}
func (*InvalidForm) form()                  {}
