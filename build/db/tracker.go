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

package db

import (
	"context"

	"github.com/elp-tools/eqwalizer/build/ast"
	"github.com/elp-tools/eqwalizer/build/contractivity"
	"github.com/elp-tools/eqwalizer/build/expand"
	"github.com/elp-tools/eqwalizer/build/stub"
	"github.com/elp-tools/eqwalizer/build/transitive"
	"github.com/elp-tools/eqwalizer/build/variance"
)

// tracker records the modules read while deriving the stub of a module.
type tracker struct {
	db   *Database
	from Key
}

var (
	_ expand.Database        = tracker{}
	_ contractivity.Database = tracker{}
	_ variance.Database      = tracker{}
	_ transitive.Database    = tracker{}
)

func (db *Database) tracker(from Key) tracker {
	return tracker{db: db, from: from}
}

func (t tracker) record(project ast.ProjectID, module ast.ModuleName) {
	t.db.addDependency(t.from, Key{Project: project, Module: module})
}

func (t tracker) ExportedTypeIDs(ctx context.Context, project ast.ProjectID, module ast.ModuleName) (map[ast.Id]struct{}, error) {
	t.record(project, module)
	return t.db.ExportedTypeIDs(ctx, project, module)
}

func (t tracker) ExpandedStub(ctx context.Context, project ast.ProjectID, module ast.ModuleName) (*stub.ModuleStub, error) {
	t.record(project, module)
	return t.db.ExpandedStub(ctx, project, module)
}

func (t tracker) ContractiveStub(ctx context.Context, project ast.ProjectID, module ast.ModuleName) (*stub.ModuleStub, error) {
	t.record(project, module)
	return t.db.ContractiveStub(ctx, project, module)
}

func (t tracker) CovariantStub(ctx context.Context, project ast.ProjectID, module ast.ModuleName) (*stub.ModuleStub, error) {
	t.record(project, module)
	return t.db.CovariantStub(ctx, project, module)
}
