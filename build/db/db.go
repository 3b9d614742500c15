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

// Package db derives the stubs of modules, memoizing every stage of the
// derivation per project and module.
//
// Stages read the stubs of other modules at earlier stages only:
//
//	converted stub -> expanded -> contractive -> covariant -> transitive
//
// so that computing a stage never waits on itself.
package db

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/elp-tools/eqwalizer/build/ast"
	"github.com/elp-tools/eqwalizer/build/contractivity"
	"github.com/elp-tools/eqwalizer/build/convert"
	"github.com/elp-tools/eqwalizer/build/expand"
	"github.com/elp-tools/eqwalizer/build/stub"
	"github.com/elp-tools/eqwalizer/build/transitive"
	"github.com/elp-tools/eqwalizer/build/variance"
)

// Option configures a database.
type Option func(*Database)

// WithLogger sets the logger of the database.
func WithLogger(logger *slog.Logger) Option {
	return func(db *Database) { db.logger = logger }
}

// WithReadFile sets the function reading compiled module files.
// By default, files are read with os.ReadFile.
func WithReadFile(readFile func(string) ([]byte, error)) Option {
	return func(db *Database) { db.readFile = readFile }
}

// Database computes and memoizes the stubs of modules.
// It is safe for concurrent use.
type Database struct {
	storage  Storage
	logger   *slog.Logger
	readFile func(string) ([]byte, error)

	fromBeam            *query[bool]
	convertedAST        *query[ast.AST]
	convertedASTBytes   *query[[]byte]
	convertedStub       *query[ast.AST]
	typeIDs             *query[map[ast.Id]struct{}]
	exportedTypeIDs     *query[map[ast.Id]struct{}]
	expandedStub        *query[*stub.ModuleStub]
	contractiveStub     *query[*stub.ModuleStub]
	covariantStub       *query[*stub.ModuleStub]
	transitiveStub      *query[*stub.ModuleStub]
	transitiveStubBytes *query[[]byte]
	queries             []resetter

	mut sync.Mutex
	// dependents maps a key to the keys whose stubs have been derived
	// from one of its stubs.
	dependents map[Key]map[Key]struct{}
}

// New returns a new database reading modules from a storage.
func New(storage Storage, opts ...Option) *Database {
	db := &Database{
		storage:             storage,
		logger:              slog.Default(),
		readFile:            os.ReadFile,
		fromBeam:            newQuery[bool]("from_beam"),
		convertedAST:        newQuery[ast.AST]("converted_ast"),
		convertedASTBytes:   newQuery[[]byte]("converted_ast_bytes"),
		convertedStub:       newQuery[ast.AST]("converted_stub"),
		typeIDs:             newQuery[map[ast.Id]struct{}]("type_ids"),
		exportedTypeIDs:     newQuery[map[ast.Id]struct{}]("exported_type_ids"),
		expandedStub:        newQuery[*stub.ModuleStub]("expanded_stub"),
		contractiveStub:     newQuery[*stub.ModuleStub]("contractive_stub"),
		covariantStub:       newQuery[*stub.ModuleStub]("covariant_stub"),
		transitiveStub:      newQuery[*stub.ModuleStub]("transitive_stub"),
		transitiveStubBytes: newQuery[[]byte]("transitive_stub_bytes"),
		dependents:          make(map[Key]map[Key]struct{}),
	}
	db.queries = []resetter{
		db.fromBeam, db.convertedAST, db.convertedASTBytes, db.convertedStub,
		db.typeIDs, db.exportedTypeIDs, db.expandedStub, db.contractiveStub,
		db.covariantStub, db.transitiveStub, db.transitiveStubBytes,
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Storage returns the storage of the database.
func (db *Database) Storage() Storage {
	return db.storage
}

// Stats returns the number of computations done by each stage.
func (db *Database) Stats() map[string]int {
	stats := make(map[string]int, len(db.queries))
	for _, q := range db.queries {
		stats[q.name()] = q.computed()
	}
	return stats
}

func (db *Database) addDependency(from, to Key) {
	if from == to {
		return
	}
	db.mut.Lock()
	defer db.mut.Unlock()
	deps := db.dependents[to]
	if deps == nil {
		deps = make(map[Key]struct{})
		db.dependents[to] = deps
	}
	deps[from] = struct{}{}
}

// ResetModule forces the derivation of all the stages of a module, and of the
// modules derived from it, next time they are queried.
func (db *Database) ResetModule(project ast.ProjectID, module ast.ModuleName) {
	db.mut.Lock()
	toReset := []Key{{Project: project, Module: module}}
	seen := map[Key]bool{toReset[0]: true}
	for i := 0; i < len(toReset); i++ {
		for dep := range db.dependents[toReset[i]] {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			toReset = append(toReset, dep)
		}
	}
	db.mut.Unlock()

	for _, key := range toReset {
		db.logger.Debug("reset module", "project", key.Project, "module", string(key.Module))
		for _, q := range db.queries {
			q.reset(key)
		}
	}
}

// Clear all memoized results.
func (db *Database) Clear() {
	for _, q := range db.queries {
		q.clear()
	}
	db.mut.Lock()
	defer db.mut.Unlock()
	db.dependents = make(map[Key]map[Key]struct{})
}

func (db *Database) trace(stage string, key Key) {
	db.logger.Debug("compute", "stage", stage, "project", key.Project, "module", string(key.Module))
}

// FromBeam returns true if the stub of a module is read from its compiled file.
func (db *Database) FromBeam(project ast.ProjectID, module ast.ModuleName) bool {
	key := Key{Project: project, Module: module}
	r, _ := db.fromBeam.get(context.Background(), key, func() (bool, error) {
		app, ok := db.storage.ModuleApp(project, module)
		return ok && app.Type == Otp, nil
	})
	return r
}

// ConvertedAST returns all the forms of a module, with function bodies
// preprocessed.
func (db *Database) ConvertedAST(ctx context.Context, project ast.ProjectID, module ast.ModuleName) (ast.AST, error) {
	key := Key{Project: project, Module: module}
	return db.convertedAST.get(ctx, key, func() (ast.AST, error) {
		db.trace("converted_ast", key)
		data, err := db.storage.ErlASTBytes(ctx, project, module)
		if err != nil {
			return nil, err
		}
		return convert.FromBytes(data, false)
	})
}

// ConvertedASTBytes returns the serialized forms of a module that are not
// part of its stub.
func (db *Database) ConvertedASTBytes(ctx context.Context, project ast.ProjectID, module ast.ModuleName) ([]byte, error) {
	key := Key{Project: project, Module: module}
	return db.convertedASTBytes.get(ctx, key, func() ([]byte, error) {
		forms, err := db.ConvertedAST(ctx, project, module)
		if err != nil {
			return nil, err
		}
		return convert.ToBytes(convert.NonStubForms(forms))
	})
}

// ConvertedStub returns the stub forms of a module.
// Modules of Erlang distribution applications are read from their compiled file.
func (db *Database) ConvertedStub(ctx context.Context, project ast.ProjectID, module ast.ModuleName) (ast.AST, error) {
	key := Key{Project: project, Module: module}
	return db.convertedStub.get(ctx, key, func() (ast.AST, error) {
		db.trace("converted_stub", key)
		if !db.FromBeam(project, module) {
			data, err := db.storage.ErlASTBytes(ctx, project, module)
			if err != nil {
				return nil, err
			}
			return convert.FromBytes(data, true)
		}
		app, _ := db.storage.ModuleApp(project, module)
		path, ok := BeamPath(app, module)
		if !ok {
			return nil, ast.NotFound(module)
		}
		data, err := db.readFile(path)
		if err != nil {
			db.logger.Debug("cannot read BEAM file", "path", path, "error", err)
			return nil, &ast.BEAMNotFoundError{Path: path}
		}
		return convert.FromBeam(data)
	})
}

// TypeIDs returns the identifiers of the types declared by a module.
func (db *Database) TypeIDs(ctx context.Context, project ast.ProjectID, module ast.ModuleName) (map[ast.Id]struct{}, error) {
	key := Key{Project: project, Module: module}
	return db.typeIDs.get(ctx, key, func() (map[ast.Id]struct{}, error) {
		forms, err := db.ConvertedStub(ctx, project, module)
		if err != nil {
			return nil, err
		}
		return convert.TypeIDs(forms), nil
	})
}

// ExportedTypeIDs returns the identifiers of the types exported by a module.
func (db *Database) ExportedTypeIDs(ctx context.Context, project ast.ProjectID, module ast.ModuleName) (map[ast.Id]struct{}, error) {
	key := Key{Project: project, Module: module}
	return db.exportedTypeIDs.get(ctx, key, func() (map[ast.Id]struct{}, error) {
		forms, err := db.ConvertedStub(ctx, project, module)
		if err != nil {
			return nil, err
		}
		return convert.ExportedTypeIDs(forms), nil
	})
}

// ExpandedStub returns the stub of a module with all its types expanded.
func (db *Database) ExpandedStub(ctx context.Context, project ast.ProjectID, module ast.ModuleName) (*stub.ModuleStub, error) {
	key := Key{Project: project, Module: module}
	return db.expandedStub.get(ctx, key, func() (*stub.ModuleStub, error) {
		db.trace("expanded_stub", key)
		forms, err := db.ConvertedStub(ctx, project, module)
		if err != nil {
			return nil, err
		}
		exp := expand.New(ctx, db.tracker(key), project, module, forms)
		if err := exp.Expand(forms); err != nil {
			return nil, err
		}
		return exp.Stub(), nil
	})
}

// ContractiveStub returns the expanded stub of a module once its types
// have been checked for contractivity.
func (db *Database) ContractiveStub(ctx context.Context, project ast.ProjectID, module ast.ModuleName) (*stub.ModuleStub, error) {
	key := Key{Project: project, Module: module}
	return db.contractiveStub.get(ctx, key, func() (*stub.ModuleStub, error) {
		db.trace("contractive_stub", key)
		s, err := db.ExpandedStub(ctx, project, module)
		if err != nil {
			return nil, err
		}
		return contractivity.New(ctx, db.tracker(key), project).Check(s)
	})
}

// CovariantStub returns the contractive stub of a module once the variance
// of its opaque types has been checked.
func (db *Database) CovariantStub(ctx context.Context, project ast.ProjectID, module ast.ModuleName) (*stub.ModuleStub, error) {
	key := Key{Project: project, Module: module}
	return db.covariantStub.get(ctx, key, func() (*stub.ModuleStub, error) {
		db.trace("covariant_stub", key)
		s, err := db.ContractiveStub(ctx, project, module)
		if err != nil {
			return nil, err
		}
		return variance.New(ctx, db.tracker(key), project).Check(s)
	})
}

// TransitiveStub returns the covariant stub of a module without the
// declarations depending on invalid declarations.
func (db *Database) TransitiveStub(ctx context.Context, project ast.ProjectID, module ast.ModuleName) (*stub.ModuleStub, error) {
	key := Key{Project: project, Module: module}
	return db.transitiveStub.get(ctx, key, func() (*stub.ModuleStub, error) {
		db.trace("transitive_stub", key)
		s, err := db.CovariantStub(ctx, project, module)
		if err != nil {
			return nil, err
		}
		checker := transitive.New(ctx, db.tracker(key), project)
		r, err := checker.Check(s)
		if err != nil {
			return nil, err
		}
		db.logger.Debug("transitive stub", "module", string(module), "reachable", len(checker.Reachable()))
		return r, nil
	})
}

// TransitiveStubBytes returns the serialized transitive stub of a module.
func (db *Database) TransitiveStubBytes(ctx context.Context, project ast.ProjectID, module ast.ModuleName) ([]byte, error) {
	key := Key{Project: project, Module: module}
	return db.transitiveStubBytes.get(ctx, key, func() ([]byte, error) {
		s, err := db.TransitiveStub(ctx, project, module)
		if err != nil {
			return nil, err
		}
		return s.ToBytes()
	})
}
