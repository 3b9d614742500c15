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

// Package transitive removes the declarations of a stub referencing,
// directly or through other declarations, types or records that do not exist.
package transitive

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/elp-tools/eqwalizer/base/iter"
	"github.com/elp-tools/eqwalizer/base/ordered"
	"github.com/elp-tools/eqwalizer/build/ast"
	"github.com/elp-tools/eqwalizer/build/stub"
	"github.com/pkg/errors"
)

// Database gives access to the covariant stubs of other modules.
type Database interface {
	CovariantStub(ctx context.Context, project ast.ProjectID, module ast.ModuleName) (*stub.ModuleStub, error)
}

// ref is a reference to a type or to a record of a module.
type ref struct {
	module ast.ModuleName
	id     ast.Id
	record bool
}

func typeRef(id ast.RemoteId) ref {
	return ref{module: id.Module, id: id.Local()}
}

func recordRef(module ast.ModuleName, name ast.AtomName) ref {
	return ref{module: module, id: ast.Id{Name: name}, record: true}
}

func (r ref) String() string {
	if r.record {
		return fmt.Sprintf("%s:#%s", ast.AtomName(r.module), r.id.Name)
	}
	return r.id.Remote(r.module).String()
}

// Checker checks the declarations of a stub transitively.
type Checker struct {
	ctx     context.Context
	db      Database
	project ast.ProjectID

	stub       *stub.ModuleStub
	reachable  *ordered.Map[ast.ModuleName, *stub.ModuleStub]
	valid      map[ref]bool
	inProgress map[ref]bool
}

// New returns a new transitive checker.
func New(ctx context.Context, db Database, project ast.ProjectID) *Checker {
	return &Checker{ctx: ctx, db: db, project: project}
}

// Reachable returns the modules reached by the last check, in the order
// they have been reached. The checked module is always first.
func (c *Checker) Reachable() []ast.ModuleName {
	if c.reachable == nil {
		return nil
	}
	return slices.Collect(c.reachable.Keys())
}

// Check returns a copy of s in which declarations with invalid references
// have been replaced by invalid forms.
func (c *Checker) Check(s *stub.ModuleStub) (*stub.ModuleStub, error) {
	c.stub = s
	c.reachable = ordered.NewMap[ast.ModuleName, *stub.ModuleStub]()
	c.reachable.Store(s.Module, s)
	c.valid = make(map[ref]bool)
	c.inProgress = make(map[ref]bool)

	out := s.Clone()
	for _, id := range iter.SortedKeys(s.Types, ast.Id.Compare) {
		decl := s.Types[id]
		invalid, err := c.invalidRefs(decl.Body)
		if err != nil {
			return nil, err
		}
		if len(invalid) == 0 {
			continue
		}
		delete(out.Types, id)
		out.AddInvalid(&ast.InvalidForm{Location: decl.Location, Kind: ast.InvalidTypeDecl, Id: id, Reason: transitiveInvalid(invalid)})
	}
	for _, id := range iter.SortedKeys(s.PrivateOpaques, ast.Id.Compare) {
		decl := s.PrivateOpaques[id]
		invalid, err := c.invalidRefs(decl.Body)
		if err != nil {
			return nil, err
		}
		if len(invalid) == 0 {
			continue
		}
		delete(out.PrivateOpaques, id)
		delete(out.PublicOpaques, id)
		out.AddInvalid(&ast.InvalidForm{Location: decl.Location, Kind: ast.InvalidTypeDecl, Id: id, Reason: transitiveInvalid(invalid)})
	}
	for _, id := range iter.SortedKeys(s.Specs, ast.Id.Compare) {
		spec := s.Specs[id]
		invalid, err := c.invalidRefs(spec.Ty)
		if err != nil {
			return nil, err
		}
		if len(invalid) == 0 {
			continue
		}
		delete(out.Specs, id)
		out.AddInvalid(&ast.InvalidForm{Location: spec.Location, Kind: ast.InvalidFunSpec, Id: id, Reason: transitiveInvalid(invalid)})
	}
	for _, id := range iter.SortedKeys(s.OverloadedSpecs, ast.Id.Compare) {
		spec := s.OverloadedSpecs[id]
		invalid, err := c.invalidRefs(funTypes(spec.Tys)...)
		if err != nil {
			return nil, err
		}
		if len(invalid) == 0 {
			continue
		}
		delete(out.OverloadedSpecs, id)
		out.AddInvalid(&ast.InvalidForm{Location: spec.Location, Kind: ast.InvalidFunSpec, Id: id, Reason: transitiveInvalid(invalid)})
	}
	for _, name := range iter.SortedKeys(s.Records, cmp.Compare[ast.AtomName]) {
		rec := s.Records[name]
		invalid, err := c.invalidRefs(fieldTypes(rec)...)
		if err != nil {
			return nil, err
		}
		if len(invalid) == 0 {
			continue
		}
		delete(out.Records, name)
		out.AddInvalid(&ast.InvalidForm{Location: rec.Location, Kind: ast.InvalidRecDecl, Name: name, Reason: transitiveInvalid(invalid)})
	}
	out.Callbacks = nil
	for _, cb := range s.Callbacks {
		invalid, err := c.invalidRefs(funTypes(cb.Tys)...)
		if err != nil {
			return nil, err
		}
		if len(invalid) == 0 {
			out.Callbacks = append(out.Callbacks, cb)
			continue
		}
		out.AddInvalid(&ast.InvalidForm{Location: cb.Location, Kind: ast.InvalidCallback, Id: cb.Id, Reason: transitiveInvalid(invalid)})
	}
	return out, nil
}

func transitiveInvalid(refs []ref) ast.Invalid {
	strs := make([]string, len(refs))
	for i, r := range refs {
		strs[i] = r.String()
	}
	return ast.Invalid{Kind: ast.TransitiveInvalid, Refs: strs}
}

func funTypes(tys []*ast.FunType) []ast.Type {
	r := make([]ast.Type, len(tys))
	for i, t := range tys {
		r[i] = t
	}
	return r
}

func fieldTypes(rec *ast.RecDecl) []ast.Type {
	r := make([]ast.Type, len(rec.Fields))
	for i, field := range rec.Fields {
		r[i] = field.Tp
	}
	return r
}

// refs returns the references of types declared in a module, in order of
// occurrence and without duplicates.
func refs(module ast.ModuleName, tys ...ast.Type) []ref {
	seen := make(map[ref]bool)
	var r []ref
	for _, t := range tys {
		ast.Inspect(t, func(t ast.Type) bool {
			var next ref
			switch tT := t.(type) {
			case *ast.RemoteType:
				next = typeRef(tT.Id)
			case *ast.RecordType:
				next = recordRef(module, tT.Name)
			default:
				return true
			}
			if !seen[next] {
				seen[next] = true
				r = append(r, next)
			}
			return true
		})
	}
	return r
}

func (c *Checker) invalidRefs(tys ...ast.Type) ([]ref, error) {
	return c.invalidRefsIn(c.stub.Module, tys...)
}

func (c *Checker) invalidRefsIn(module ast.ModuleName, tys ...ast.Type) ([]ref, error) {
	var invalid []ref
	for _, r := range refs(module, tys...) {
		ok, err := c.isValid(r)
		if err != nil {
			return nil, err
		}
		if !ok {
			invalid = append(invalid, r)
		}
	}
	return invalid, nil
}

func (c *Checker) load(module ast.ModuleName, at ref) (*stub.ModuleStub, bool, error) {
	if s, ok := c.reachable.Load(module); ok {
		return s, true, nil
	}
	s, err := c.db.CovariantStub(c.ctx, c.project, module)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return nil, false, err
	case ast.IsModuleNotFound(err):
		return nil, false, nil
	default:
		return nil, false, &ast.TransitiveCheckError{
			Module: c.stub.Module,
			Ref:    at.id.Remote(at.module),
			Err:    err,
		}
	}
	c.reachable.Store(module, s)
	return s, true, nil
}

// lookup returns the types a reference depends on, if the reference exists.
// Opaque types of other modules must be exported.
func (c *Checker) lookup(r ref) ([]ast.Type, bool, error) {
	s, ok, err := c.load(r.module, r)
	if !ok || err != nil {
		return nil, false, err
	}
	if r.record {
		rec, ok := s.Records[r.id.Name]
		if !ok {
			return nil, false, nil
		}
		return fieldTypes(rec), true, nil
	}
	if r.module != c.stub.Module {
		if _, ok := s.Types[r.id]; !ok {
			if _, ok := s.PublicOpaques[r.id]; !ok {
				return nil, false, nil
			}
		}
	}
	decl, ok := s.LookupType(r.id)
	if !ok {
		return nil, false, nil
	}
	return []ast.Type{decl.Body}, true, nil
}

// isValid returns true if a reference exists and all the references
// it depends on are valid.
// References on a cycle are assumed valid while the cycle is being checked.
func (c *Checker) isValid(r ref) (bool, error) {
	if valid, ok := c.valid[r]; ok {
		return valid, nil
	}
	if c.inProgress[r] {
		return true, nil
	}
	tys, ok, err := c.lookup(r)
	if err != nil {
		return false, err
	}
	if !ok {
		c.valid[r] = false
		return false, nil
	}
	c.inProgress[r] = true
	invalid, err := c.invalidRefsIn(r.module, tys...)
	delete(c.inProgress, r)
	if err != nil {
		return false, err
	}
	valid := len(invalid) == 0
	// A valid result may depend on the assumption made for a cycle.
	if !valid || len(c.inProgress) == 0 {
		c.valid[r] = valid
	}
	return valid, nil
}
