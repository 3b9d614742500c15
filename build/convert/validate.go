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

package convert

import "github.com/elp-tools/eqwalizer/build/ast"

// validate replaces declarations that cannot be processed by invalid forms.
func validate(forms ast.AST) ast.AST {
	r := make(ast.AST, len(forms))
	for i, form := range forms {
		r[i] = validateForm(form)
	}
	return r
}

func validateForm(form ast.Form) ast.Form {
	switch formT := form.(type) {
	case *ast.ExternalTypeDecl:
		return validateTypeDecl(formT, formT.Location, formT.Id, formT.Params)
	case *ast.ExternalOpaqueDecl:
		return validateTypeDecl(formT, formT.Location, formT.Id, formT.Params)
	case *ast.FunDecl:
		for _, clause := range formT.Clauses {
			if len(clause.Pats) == formT.Id.Arity {
				continue
			}
			return &ast.InvalidForm{
				Location: clause.Location,
				Kind:     ast.InvalidFunDecl,
				Id:       formT.Id,
				Reason:   ast.Invalid{Kind: ast.BadArity, Name: formT.Id.String()},
			}
		}
	case *ast.ExternalFunSpec:
		if invalid := validateFunTypes(formT.Location, ast.InvalidFunSpec, formT.Id, formT.Types); invalid != nil {
			return invalid
		}
	case *ast.ExternalCallback:
		if invalid := validateFunTypes(formT.Location, ast.InvalidCallback, formT.Id, formT.Types); invalid != nil {
			return invalid
		}
	}
	return form
}

func validateTypeDecl(form ast.Form, location ast.Pos, id ast.Id, params []string) ast.Form {
	if len(params) != id.Arity {
		return &ast.InvalidForm{
			Location: location,
			Kind:     ast.InvalidTypeDecl,
			Id:       id,
			Reason:   ast.Invalid{Kind: ast.BadArity, Name: id.String()},
		}
	}
	seen := make(map[string]bool, len(params))
	for _, param := range params {
		if seen[param] {
			return &ast.InvalidForm{
				Location: location,
				Kind:     ast.InvalidTypeDecl,
				Id:       id,
				Reason:   ast.Invalid{Kind: ast.RepeatedTyVarInTyDecl, Name: param},
			}
		}
		seen[param] = true
	}
	return form
}

func validateFunTypes(location ast.Pos, kind ast.InvalidKind, id ast.Id, tys []*ast.FunExtType) *ast.InvalidForm {
	for _, ty := range tys {
		if ty != nil && len(ty.ArgTys) == id.Arity {
			continue
		}
		return &ast.InvalidForm{
			Location: location,
			Kind:     kind,
			Id:       id,
			Reason:   ast.Invalid{Kind: ast.BadArity, Name: id.String()},
		}
	}
	return nil
}
