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

// Package convert converts the serialized forms of the upstream compiler
// into the tree consumed by the stub pipeline.
package convert

import (
	"github.com/elp-tools/eqwalizer/base/iter"
	"github.com/elp-tools/eqwalizer/build/ast"
	"github.com/elp-tools/eqwalizer/build/preprocess"
	"github.com/pkg/errors"
)

// FromBytes decodes the forms of a module.
//
// Declarations that are structurally invalid are replaced by invalid forms
// instead of failing the conversion. If stubOnly is true, function bodies and
// other forms that are not part of the stub of the module are dropped.
// Otherwise, function bodies are preprocessed.
func FromBytes(data []byte, stubOnly bool) (ast.AST, error) {
	forms, err := ast.UnmarshalForms(data)
	if err != nil {
		return nil, errors.Wrap(ast.ErrParse, err.Error())
	}
	if _, err := ModuleName(forms); err != nil {
		return nil, err
	}
	forms = validate(forms)
	if stubOnly {
		return collect(iter.Filter(isStubForm, forms)), nil
	}
	return preprocess.Preprocess(forms), nil
}

// ToBytes serializes forms.
func ToBytes(forms ast.AST) ([]byte, error) {
	return ast.MarshalForms(forms)
}

// ModuleName returns the name of the module declared by the forms.
func ModuleName(forms ast.AST) (ast.ModuleName, error) {
	for _, form := range forms {
		if mod, ok := form.(*ast.Module); ok {
			return mod.Name, nil
		}
	}
	return "", errors.Wrap(ast.ErrParse, "missing module declaration")
}

func collect(seq func(func(ast.Form) bool)) ast.AST {
	forms := ast.AST{}
	for form := range seq {
		forms = append(forms, form)
	}
	return forms
}

// IsNonStubForm returns true for the forms sent to the typechecker with
// the function bodies of a module, as opposed to its stub.
func IsNonStubForm(form ast.Form) bool {
	switch form.(type) {
	case *ast.Module,
		*ast.FunDecl,
		*ast.File,
		*ast.ElpMetadata,
		*ast.Behaviour,
		*ast.EqwalizerNowarnFunction,
		*ast.EqwalizerUnlimitedRefinement:
		return true
	}
	return false
}

// NonStubForms filters the forms of a module for which IsNonStubForm is true.
func NonStubForms(forms ast.AST) ast.AST {
	return collect(iter.Filter(IsNonStubForm, forms))
}

func isStubForm(form ast.Form) bool {
	switch form.(type) {
	case *ast.FunDecl,
		*ast.ElpMetadata,
		*ast.EqwalizerNowarnFunction,
		*ast.EqwalizerUnlimitedRefinement:
		return false
	}
	return true
}

// TypeIDs returns the identifiers of the types declared by a module.
func TypeIDs(forms ast.AST) map[ast.Id]struct{} {
	ids := make(map[ast.Id]struct{})
	for _, form := range forms {
		switch formT := form.(type) {
		case *ast.ExternalTypeDecl:
			ids[formT.Id] = struct{}{}
		case *ast.ExternalOpaqueDecl:
			ids[formT.Id] = struct{}{}
		}
	}
	return ids
}

// ExportedTypeIDs returns the identifiers of the types exported by a module.
func ExportedTypeIDs(forms ast.AST) map[ast.Id]struct{} {
	ids := make(map[ast.Id]struct{})
	for _, form := range forms {
		export, ok := form.(*ast.ExportType)
		if !ok {
			continue
		}
		for _, id := range export.Types {
			ids[id] = struct{}{}
		}
	}
	return ids
}
