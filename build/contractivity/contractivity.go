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

// Package contractivity checks that recursive type aliases are productive.
//
// A type alias is contractive if unfolding its definition never reaches the
// alias itself without going through a type constructor first. For example,
// t() :: t() and t() :: u(), u() :: t() are not contractive whereas
// t() :: [t()] and t() :: atom() | {t()} are.
package contractivity

import (
	"context"

	"github.com/elp-tools/eqwalizer/base/iter"
	"github.com/elp-tools/eqwalizer/build/ast"
	"github.com/elp-tools/eqwalizer/build/fmterr"
	"github.com/elp-tools/eqwalizer/build/stub"
	"github.com/pkg/errors"
)

// Database gives access to the expanded stubs of other modules.
type Database interface {
	ExpandedStub(ctx context.Context, project ast.ProjectID, module ast.ModuleName) (*stub.ModuleStub, error)
}

// Checker checks the contractivity of the types of a module.
type Checker struct {
	ctx     context.Context
	db      Database
	project ast.ProjectID
}

// New returns a new contractivity checker.
func New(ctx context.Context, db Database, project ast.ProjectID) *Checker {
	return &Checker{ctx: ctx, db: db, project: project}
}

// Check returns a copy of s if all its type declarations are contractive.
func (c *Checker) Check(s *stub.ModuleStub) (*stub.ModuleStub, error) {
	var errs fmterr.Errors
	app := errs.NewAppender(s.Module)
	var offenders []ast.Id
	ids := iter.All(iter.SortedKeys(s.Types, ast.Id.Compare), iter.SortedKeys(s.PrivateOpaques, ast.Id.Compare))
	for id := range ids {
		decl, _ := s.LookupType(id)
		unfolder := &unfolder{checker: c, stub: s, target: id.Remote(s.Module), visited: make(map[ast.RemoteId]bool)}
		reached, err := unfolder.reaches(decl.Body)
		if err != nil {
			return nil, err
		}
		if !reached {
			continue
		}
		offenders = append(offenders, id)
		app.Appendf(decl.Location, "type %s is not contractive", id)
	}
	if len(offenders) > 0 {
		return nil, &ast.ContractivityError{Module: s.Module, Ids: offenders, Err: errs.ToError()}
	}
	return s.Clone(), nil
}

type unfolder struct {
	checker *Checker
	stub    *stub.ModuleStub
	target  ast.RemoteId
	visited map[ast.RemoteId]bool
}

func (u *unfolder) load(module ast.ModuleName) (*stub.ModuleStub, error) {
	return u.checker.db.ExpandedStub(u.checker.ctx, u.checker.project, module)
}

// reaches returns true if the target type can be reached by unfolding
// aliases of t without going through a type constructor.
func (u *unfolder) reaches(t ast.Type) (bool, error) {
	ref, ok := t.(*ast.RemoteType)
	if !ok {
		return false, nil
	}
	if ref.Id == u.target {
		return true, nil
	}
	if u.visited[ref.Id] {
		return false, nil
	}
	u.visited[ref.Id] = true
	res, err := u.stub.ResolveType(u.load, ref.Id)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false, err
		}
		// Errors of other modules are reported when the module is checked transitively.
		return false, nil
	}
	if res.Decl == nil {
		return false, nil
	}
	return u.reaches(ast.Subst(res.Decl.Body, ast.Bind(res.Decl.Params, ref.ArgTys)))
}
