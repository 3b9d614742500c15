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

// Package ast is the tree exchanged with the eqWAlizer typechecker.
//
// The tree is produced by the conversion layer from the serialized forms
// of the upstream compiler and is consumed, read-only, by every stage of
// the stub pipeline. Nodes are never mutated once constructed: stages build
// new nodes when they need a different shape.
package ast

import (
	"cmp"
	"fmt"
	"unicode"
)

type (
	// Node in the tree.
	Node interface {
		// node marks a structure as a node structure.
		// It prevents external implementations of the interface.
		node()
	}

	// ProjectID identifies a project loaded by the host.
	ProjectID uint32

	// ModuleName is the name of an Erlang module.
	ModuleName string

	// AtomName is an Erlang atom, stored unquoted.
	AtomName string

	// Pos is a byte range in a source file.
	Pos struct {
		Start int `json:"start_byte"`
		End   int `json:"end_byte"`
	}

	// Id identifies a function or a type within a module.
	Id struct {
		Name  AtomName `json:"name"`
		Arity int      `json:"arity"`
	}

	// RemoteId identifies a function or a type in a given module.
	RemoteId struct {
		Module ModuleName `json:"module"`
		Name   AtomName   `json:"name"`
		Arity  int        `json:"arity"`
	}
)

// AST is the ordered list of top-level forms of a module.
type AST []Form

// String returns the module name.
func (m ModuleName) String() string {
	return string(m)
}

func isUnquotedAtom(s string) bool {
	for i, r := range s {
		if i == 0 {
			if !unicode.IsLower(r) {
				return false
			}
			continue
		}
		if r != '_' && r != '@' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

// String returns the atom as it would be written in Erlang source,
// quoted when required.
func (a AtomName) String() string {
	if isUnquotedAtom(string(a)) {
		return string(a)
	}
	return "'" + string(a) + "'"
}

// Unquoted returns the raw atom name.
// Only use it when the name must not be quoted, for example to build
// the file name of a module.
func (a AtomName) Unquoted() string {
	return string(a)
}

// String representation of the identifier.
func (id Id) String() string {
	return fmt.Sprintf("%s/%d", id.Name, id.Arity)
}

// Compare returns -1, 0, or 1 depending on the order of two identifiers.
func (id Id) Compare(other Id) int {
	if c := cmp.Compare(id.Name, other.Name); c != 0 {
		return c
	}
	return cmp.Compare(id.Arity, other.Arity)
}

// Remote returns the identifier qualified with a module.
func (id Id) Remote(module ModuleName) RemoteId {
	return RemoteId{Module: module, Name: id.Name, Arity: id.Arity}
}

// String representation of the identifier.
func (id RemoteId) String() string {
	return fmt.Sprintf("%s:%s/%d", AtomName(id.Module), id.Name, id.Arity)
}

// Local drops the module of the identifier.
func (id RemoteId) Local() Id {
	return Id{Name: id.Name, Arity: id.Arity}
}

// Compare returns -1, 0, or 1 depending on the order of two identifiers.
func (id RemoteId) Compare(other RemoteId) int {
	if c := cmp.Compare(id.Module, other.Module); c != 0 {
		return c
	}
	return id.Local().Compare(other.Local())
}
