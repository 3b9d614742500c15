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

// Package expand converts the declarations of a module as written in the
// source into expanded declarations.
//
// References to user types are qualified by their module and checked
// against the types exported by that module. Declarations referencing
// unknown types or unbound type variables are replaced by invalid forms.
package expand

import (
	"context"

	"github.com/elp-tools/eqwalizer/build/ast"
	"github.com/elp-tools/eqwalizer/build/convert"
	"github.com/elp-tools/eqwalizer/build/stub"
	"github.com/pkg/errors"
)

// Database gives access to the types of other modules.
type Database interface {
	ExportedTypeIDs(ctx context.Context, project ast.ProjectID, module ast.ModuleName) (map[ast.Id]struct{}, error)
}

// Expander accumulates the expanded declarations of a module in a stub.
type Expander struct {
	ctx     context.Context
	db      Database
	project ast.ProjectID
	module  ast.ModuleName

	localTypes map[ast.Id]struct{}
	records    map[ast.AtomName]struct{}
	stub       *stub.ModuleStub
}

// New returns an expander for the stub forms of a module.
// The stub of the expander is seeded with the declarations of the forms
// that do not require any expansion.
func New(ctx context.Context, db Database, project ast.ProjectID, module ast.ModuleName, forms ast.AST) *Expander {
	exp := &Expander{
		ctx:        ctx,
		db:         db,
		project:    project,
		module:     module,
		localTypes: convert.TypeIDs(forms),
		records:    make(map[ast.AtomName]struct{}),
		stub:       stub.Build(module, forms),
	}
	for _, form := range forms {
		if rec, ok := form.(*ast.ExternalRecDecl); ok {
			exp.records[rec.Name] = struct{}{}
		}
	}
	return exp
}

// Stub returns the stub built by the expander.
func (exp *Expander) Stub() *stub.ModuleStub {
	return exp.stub
}

// invalidError marks a declaration as invalid.
// It never escapes the package: it is converted into an invalid form.
type invalidError struct {
	reason ast.Invalid
}

func (err *invalidError) Error() string {
	return string(err.reason.Kind) + " " + err.reason.Name
}

func invalid(kind ast.ReasonKind, name string) error {
	return &invalidError{reason: ast.Invalid{Kind: kind, Name: name}}
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Expand all the declarations of forms into the stub.
// An error is returned only when the types of another module cannot be
// computed for a reason other than the module not existing.
func (exp *Expander) Expand(forms ast.AST) error {
	for _, form := range forms {
		if err := exp.expandForm(form); err != nil {
			return err
		}
	}
	return nil
}

func (exp *Expander) expandForm(form ast.Form) error {
	switch formT := form.(type) {
	case *ast.ExternalTypeDecl:
		decl, err := exp.typeDecl(formT.Location, formT.Id, formT.Params, formT.Body)
		if err != nil {
			return exp.reject(err, formT.Location, ast.InvalidTypeDecl, formT.Id, "")
		}
		exp.stub.Types[formT.Id] = decl
	case *ast.ExternalOpaqueDecl:
		decl, err := exp.typeDecl(formT.Location, formT.Id, formT.Params, formT.Body)
		if err != nil {
			return exp.reject(err, formT.Location, ast.InvalidTypeDecl, formT.Id, "")
		}
		exp.stub.PrivateOpaques[formT.Id] = decl
		if _, exported := exp.stub.ExportTypes[formT.Id]; exported {
			exp.stub.PublicOpaques[formT.Id] = &ast.OpaqueTypeDecl{Location: formT.Location, Id: formT.Id}
		}
	case *ast.ExternalFunSpec:
		tys, err := exp.funTypes(formT.Types)
		if err != nil {
			return exp.reject(err, formT.Location, ast.InvalidFunSpec, formT.Id, "")
		}
		if len(tys) == 1 {
			exp.stub.Specs[formT.Id] = &ast.FunSpec{Location: formT.Location, Id: formT.Id, Ty: tys[0]}
		} else {
			exp.stub.OverloadedSpecs[formT.Id] = &ast.OverloadedFunSpec{Location: formT.Location, Id: formT.Id, Tys: tys}
		}
	case *ast.ExternalCallback:
		tys, err := exp.funTypes(formT.Types)
		if err != nil {
			return exp.reject(err, formT.Location, ast.InvalidCallback, formT.Id, "")
		}
		exp.stub.Callbacks = append(exp.stub.Callbacks, &ast.Callback{Location: formT.Location, Id: formT.Id, Tys: tys})
	case *ast.ExternalRecDecl:
		decl, err := exp.recDecl(formT)
		if err != nil {
			return exp.reject(err, formT.Location, ast.InvalidRecDecl, ast.Id{}, formT.Name)
		}
		exp.stub.Records[formT.Name] = decl
	}
	return nil
}

// reject records an invalid declaration or returns err if the declaration
// could not be processed.
func (exp *Expander) reject(err error, location ast.Pos, kind ast.InvalidKind, id ast.Id, name ast.AtomName) error {
	var inv *invalidError
	if !errors.As(err, &inv) {
		return err
	}
	exp.stub.AddInvalid(&ast.InvalidForm{
		Location: location,
		Kind:     kind,
		Id:       id,
		Name:     name,
		Reason:   inv.reason,
	})
	return nil
}

func (exp *Expander) typeDecl(location ast.Pos, id ast.Id, params []string, body ast.ExtType) (*ast.TypeDecl, error) {
	bound := make(map[string]bool, len(params))
	vars := make([]*ast.VarType, len(params))
	for i, param := range params {
		bound[param] = true
		vars[i] = &ast.VarType{Name: param}
	}
	conv := converter{exp: exp, bound: bound}
	ty, err := conv.convert(body)
	if err != nil {
		return nil, err
	}
	return &ast.TypeDecl{Location: location, Id: id, Params: vars, Body: ty}, nil
}

func (exp *Expander) funTypes(tys []*ast.FunExtType) ([]*ast.FunType, error) {
	// Specifications quantify over their free variables.
	conv := converter{exp: exp}
	r := make([]*ast.FunType, len(tys))
	for i, ty := range tys {
		fun, err := conv.convert(ty)
		if err != nil {
			return nil, err
		}
		r[i] = fun.(*ast.FunType)
	}
	return r, nil
}

func (exp *Expander) recDecl(rec *ast.ExternalRecDecl) (*ast.RecDecl, error) {
	conv := converter{exp: exp, bound: map[string]bool{}}
	fields := make([]ast.RecField, len(rec.Fields))
	for i, field := range rec.Fields {
		var tp ast.Type = &ast.AnyType{}
		if field.Type != nil {
			var err error
			if tp, err = conv.convert(field.Type); err != nil {
				return nil, err
			}
		}
		fields[i] = ast.RecField{Name: field.Name, Tp: tp, DefaultValue: field.DefaultValue}
	}
	return &ast.RecDecl{Location: rec.Location, Name: rec.Name, Fields: fields}, nil
}
