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

import (
	"github.com/elp-tools/eqwalizer/build/ast"
	"github.com/pkg/errors"
)

// converter converts the types of a declaration.
type converter struct {
	exp *Expander
	// bound are the type variables of the declaration.
	// All variables are accepted if bound is nil.
	bound map[string]bool
}

func (conv converter) convertAll(tys []ast.ExtType) ([]ast.Type, error) {
	r := make([]ast.Type, len(tys))
	for i, ty := range tys {
		var err error
		if r[i], err = conv.convert(ty); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (conv converter) convert(ty ast.ExtType) (ast.Type, error) {
	switch tyT := ty.(type) {
	case *ast.AtomLitExtType:
		return &ast.AtomLitType{Atom: tyT.Atom}, nil
	case *ast.IntLitExtType:
		return &ast.NumberType{}, nil
	case *ast.FunExtType:
		args, err := conv.convertAll(tyT.ArgTys)
		if err != nil {
			return nil, err
		}
		res, err := conv.convert(tyT.ResTy)
		if err != nil {
			return nil, err
		}
		return &ast.FunType{ArgTys: args, ResTy: res}, nil
	case *ast.AnyArityFunExtType:
		if _, err := conv.convert(tyT.ResTy); err != nil {
			return nil, err
		}
		return &ast.AnyFunType{}, nil
	case *ast.TupleExtType:
		args, err := conv.convertAll(tyT.ArgTys)
		if err != nil {
			return nil, err
		}
		return &ast.TupleType{ArgTys: args}, nil
	case *ast.ListExtType:
		elem, err := conv.convert(tyT.T)
		if err != nil {
			return nil, err
		}
		return &ast.ListType{T: elem}, nil
	case *ast.AnyListExtType:
		return &ast.NilType{}, nil
	case *ast.UnionExtType:
		tys, err := conv.convertAll(tyT.Tys)
		if err != nil {
			return nil, err
		}
		return &ast.UnionType{Tys: tys}, nil
	case *ast.LocalExtType:
		return conv.local(tyT)
	case *ast.RemoteExtType:
		return conv.remote(tyT)
	case *ast.VarExtType:
		if tyT.Name == "_" {
			return &ast.AnyType{}, nil
		}
		if conv.bound != nil && !conv.bound[tyT.Name] {
			return nil, invalid(ast.UnboundVar, tyT.Name)
		}
		return &ast.VarType{Name: tyT.Name}, nil
	case *ast.RecordExtType:
		if _, ok := conv.exp.records[tyT.Name]; !ok {
			return nil, invalid(ast.UnknownId, "#"+tyT.Name.String())
		}
		return &ast.RecordType{Name: tyT.Name}, nil
	case *ast.MapExtType:
		k, err := conv.convert(tyT.KeyTy)
		if err != nil {
			return nil, err
		}
		v, err := conv.convert(tyT.ValTy)
		if err != nil {
			return nil, err
		}
		return &ast.MapType{KType: k, VType: v}, nil
	}
	return nil, errors.Errorf("type %T not supported", ty)
}

func (conv converter) local(ty *ast.LocalExtType) (ast.Type, error) {
	args, err := conv.convertAll(ty.Args)
	if err != nil {
		return nil, err
	}
	if _, ok := conv.exp.localTypes[ty.Id]; ok {
		return &ast.RemoteType{Id: ty.Id.Remote(conv.exp.module), ArgTys: args}, nil
	}
	if builtin, ok := builtins[ty.Id]; ok {
		return builtin(args), nil
	}
	return nil, invalid(ast.UnknownId, ty.Id.String())
}

func (conv converter) remote(ty *ast.RemoteExtType) (ast.Type, error) {
	args, err := conv.convertAll(ty.Args)
	if err != nil {
		return nil, err
	}
	rt := &ast.RemoteType{Id: ty.Id, ArgTys: args}
	exp := conv.exp
	if ty.Id.Module == exp.module {
		if _, ok := exp.localTypes[ty.Id.Local()]; !ok {
			return nil, invalid(ast.UnknownId, ty.Id.String())
		}
		return rt, nil
	}
	exported, err := exp.db.ExportedTypeIDs(exp.ctx, exp.project, ty.Id.Module)
	if ast.IsModuleNotFound(err) {
		return nil, invalid(ast.UnknownId, ty.Id.String())
	}
	if isCanceled(err) {
		return nil, err
	}
	if err != nil {
		return nil, &ast.TypeConversionError{Module: exp.module, Pos: ty.Location, Err: err}
	}
	if _, ok := exported[ty.Id.Local()]; !ok {
		return nil, invalid(ast.UnknownId, ty.Id.String())
	}
	return rt, nil
}
