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

// Package variance infers the variance of the parameters of type
// declarations and checks that opaque types are covariant.
package variance

import (
	"context"
	"slices"

	"github.com/elp-tools/eqwalizer/base/iter"
	"github.com/elp-tools/eqwalizer/build/ast"
	"github.com/elp-tools/eqwalizer/build/fmterr"
	"github.com/elp-tools/eqwalizer/build/stub"
	"github.com/pkg/errors"
)

// Variance of a type parameter.
type Variance int

const (
	// Constant parameters do not occur in the type.
	Constant Variance = iota
	// Covariant parameters only occur in positive positions.
	Covariant
	// Contravariant parameters only occur in negative positions.
	Contravariant
	// Invariant parameters occur in both positive and negative positions.
	Invariant
)

func (v Variance) String() string {
	switch v {
	case Constant:
		return "constant"
	case Covariant:
		return "covariant"
	case Contravariant:
		return "contravariant"
	case Invariant:
		return "invariant"
	}
	return "unknown"
}

// Join returns the variance of a parameter occurring with both variances.
func (v Variance) Join(other Variance) Variance {
	switch {
	case v == other:
		return v
	case v == Constant:
		return other
	case other == Constant:
		return v
	}
	return Invariant
}

// Flip returns the variance of an occurrence in a negative position.
func (v Variance) Flip() Variance {
	switch v {
	case Covariant:
		return Contravariant
	case Contravariant:
		return Covariant
	}
	return v
}

// Compose returns the variance of a parameter occurring with variance
// inner in an argument of a type whose parameter has variance outer.
func (v Variance) Compose(inner Variance) Variance {
	switch v {
	case Constant:
		return Constant
	case Covariant:
		return inner
	case Contravariant:
		return inner.Flip()
	}
	if inner == Constant {
		return Constant
	}
	return Invariant
}

// Database gives access to the contractive stubs of other modules.
type Database interface {
	ContractiveStub(ctx context.Context, project ast.ProjectID, module ast.ModuleName) (*stub.ModuleStub, error)
}

// Checker checks the variance of the opaque types of a module.
type Checker struct {
	ctx     context.Context
	db      Database
	project ast.ProjectID
}

// New returns a new variance checker.
func New(ctx context.Context, db Database, project ast.ProjectID) *Checker {
	return &Checker{ctx: ctx, db: db, project: project}
}

// Check returns a copy of s if the parameters of all its opaque types are
// covariant or constant.
func (c *Checker) Check(s *stub.ModuleStub) (*stub.ModuleStub, error) {
	inf := c.newInference(s)
	var errs fmterr.Errors
	app := errs.NewAppender(s.Module)
	var offenders []ast.Id
	for _, id := range iter.SortedKeys(s.PrivateOpaques, ast.Id.Compare) {
		decl := s.PrivateOpaques[id]
		variances, err := inf.declVariances(id.Remote(s.Module), decl)
		if err != nil {
			return nil, err
		}
		errs.Push(fmterr.PrefixWith("opaque type %s: ", id))
		offending := false
		for i, v := range variances {
			if v == Covariant || v == Constant {
				continue
			}
			offending = true
			app.Appendf(decl.Location, "parameter %s is %s", decl.Params[i].Name, v)
		}
		errs.Pop()
		if offending {
			offenders = append(offenders, id)
		}
	}
	if len(offenders) > 0 {
		return nil, &ast.VarianceCheckError{Module: s.Module, Ids: offenders, Err: errs.ToError()}
	}
	return s.Clone(), nil
}

// Infer returns the variance of every parameter of a type declaration of s.
func (c *Checker) Infer(s *stub.ModuleStub, decl *ast.TypeDecl) ([]Variance, error) {
	return c.newInference(s).declVariances(decl.Id.Remote(s.Module), decl)
}

type inference struct {
	checker *Checker
	stub    *stub.ModuleStub
	// memo of the variances of already inferred declarations.
	memo map[ast.RemoteId][]Variance
	// assumed variances of the declarations being inferred.
	// Inference iterates from constant until the assumption is stable.
	assumed map[ast.RemoteId][]Variance
}

func (c *Checker) newInference(s *stub.ModuleStub) *inference {
	return &inference{
		checker: c,
		stub:    s,
		memo:    make(map[ast.RemoteId][]Variance),
		assumed: make(map[ast.RemoteId][]Variance),
	}
}

func (inf *inference) load(module ast.ModuleName) (*stub.ModuleStub, error) {
	return inf.checker.db.ContractiveStub(inf.checker.ctx, inf.checker.project, module)
}

func (inf *inference) declVariances(id ast.RemoteId, decl *ast.TypeDecl) ([]Variance, error) {
	if vs, ok := inf.memo[id]; ok {
		return vs, nil
	}
	if vs, ok := inf.assumed[id]; ok {
		return vs, nil
	}
	vs := make([]Variance, len(decl.Params))
	defer delete(inf.assumed, id)
	for {
		inf.assumed[id] = vs
		next := make([]Variance, len(decl.Params))
		for i, param := range decl.Params {
			v, err := inf.occurrence(param.Name, decl.Body, Covariant)
			if err != nil {
				return nil, err
			}
			next[i] = v
		}
		if slices.Equal(vs, next) {
			break
		}
		vs = next
	}
	// Results depending on a declaration still in progress are not final.
	if len(inf.assumed) == 1 {
		inf.memo[id] = vs
	}
	return vs, nil
}

// refVariances returns the variances of the parameters of a referenced type.
// Parameters of types that cannot be resolved, including opaque types of
// other modules, are considered covariant.
func (inf *inference) refVariances(ref *ast.RemoteType) ([]Variance, error) {
	covariant := func() []Variance {
		vs := make([]Variance, len(ref.ArgTys))
		for i := range vs {
			vs[i] = Covariant
		}
		return vs
	}
	if vs, ok := inf.assumed[ref.Id]; ok && len(vs) == len(ref.ArgTys) {
		return vs, nil
	}
	res, err := inf.stub.ResolveType(inf.load, ref.Id)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return covariant(), nil
	}
	if res.Decl == nil || len(res.Decl.Params) != len(ref.ArgTys) {
		return covariant(), nil
	}
	return inf.declVariances(ref.Id, res.Decl)
}

// occurrence returns the variance of the occurrences of a type variable in t,
// t being in a position of variance pos.
func (inf *inference) occurrence(name string, t ast.Type, pos Variance) (Variance, error) {
	switch tT := t.(type) {
	case *ast.VarType:
		if tT.Name == name {
			return pos, nil
		}
		return Constant, nil
	case *ast.FunType:
		v := Constant
		for _, arg := range tT.ArgTys {
			argV, err := inf.occurrence(name, arg, pos.Flip())
			if err != nil {
				return Constant, err
			}
			v = v.Join(argV)
		}
		resV, err := inf.occurrence(name, tT.ResTy, pos)
		if err != nil {
			return Constant, err
		}
		return v.Join(resV), nil
	case *ast.RemoteType:
		vs, err := inf.refVariances(tT)
		if err != nil {
			return Constant, err
		}
		v := Constant
		for i, arg := range tT.ArgTys {
			argV, err := inf.occurrence(name, arg, pos.Compose(vs[i]))
			if err != nil {
				return Constant, err
			}
			v = v.Join(argV)
		}
		return v, nil
	}
	v := Constant
	for _, child := range ast.Children(t) {
		childV, err := inf.occurrence(name, child, pos)
		if err != nil {
			return Constant, err
		}
		v = v.Join(childV)
	}
	return v, nil
}
