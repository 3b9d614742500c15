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

package stub

import "github.com/elp-tools/eqwalizer/build/ast"

// Loader returns the stub of another module at the same stage of the pipeline.
type Loader func(module ast.ModuleName) (*ModuleStub, error)

// Resolution is the result of resolving a type reference.
type Resolution struct {
	// Decl is the declaration of the type, if visible.
	// It is nil for opaque types of other modules.
	Decl *ast.TypeDecl
	// Opaque is true if the type is an opaque type.
	Opaque bool
}

// Found returns true if the reference points to a type.
func (r Resolution) Found() bool {
	return r.Decl != nil || r.Opaque
}

// ResolveType resolves a type referenced from the module of s.
// The definition of opaque types is only visible within their own module.
// Stubs of other modules are obtained from load.
func (s *ModuleStub) ResolveType(load Loader, id ast.RemoteId) (Resolution, error) {
	if id.Module == s.Module {
		decl, ok := s.LookupType(id.Local())
		if !ok {
			return Resolution{}, nil
		}
		return Resolution{Decl: decl, Opaque: s.IsOpaque(id.Local())}, nil
	}
	other, err := load(id.Module)
	if err != nil {
		return Resolution{}, err
	}
	if decl, ok := other.Types[id.Local()]; ok {
		return Resolution{Decl: decl}, nil
	}
	if _, ok := other.PublicOpaques[id.Local()]; ok {
		return Resolution{Opaque: true}, nil
	}
	return Resolution{}, nil
}
