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

package eqwalizer

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	gxsync "github.com/elp-tools/eqwalizer/base/sync"
	"github.com/elp-tools/eqwalizer/build/ast"
	"github.com/elp-tools/eqwalizer/build/db"
	"github.com/elp-tools/eqwalizer/ipc"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Progress is notified when the typechecker starts and finishes checking modules.
type Progress interface {
	EqwalizingStart(module ast.ModuleName)
	EqwalizingDone(module ast.ModuleName)
}

type nopProgress struct{}

func (nopProgress) EqwalizingStart(ast.ModuleName) {}
func (nopProgress) EqwalizingDone(ast.ModuleName)  {}

// HostOption configures a host.
type HostOption func(*Host)

// WithProgress sets the progress reporter of a host.
func WithProgress(p Progress) HostOption {
	return func(h *Host) {
		h.progress = p
	}
}

// WithHostLogger sets the logger of a host.
func WithHostLogger(logger *slog.Logger) HostOption {
	return func(h *Host) {
		h.logger = logger
	}
}

// Host answers the requests of the typechecker from a database.
// It also keeps track of the connection with the typechecker of the modules
// being processed.
type Host struct {
	db       *db.Database
	progress Progress
	logger   *slog.Logger
	handles  gxsync.Map[ast.ModuleName, *ipc.Handle]
}

// NewHost returns a host serving requests from a database.
func NewHost(database *db.Database, opts ...HostOption) *Host {
	h := &Host{
		db:       database,
		progress: nopProgress{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Database returns the database of the host.
func (h *Host) Database() *db.Database {
	return h.db
}

// SetModuleHandle installs the connection with the typechecker for a module.
// A nil handle uninstalls the current connection.
func (h *Host) SetModuleHandle(module ast.ModuleName, handle *ipc.Handle) {
	if handle == nil {
		h.handles.Delete(module)
		return
	}
	h.handles.Store(module, handle)
}

// ModuleHandle returns the connection with the typechecker for a module.
func (h *Host) ModuleHandle(module ast.ModuleName) (*ipc.Handle, bool) {
	return h.handles.Load(module)
}

// astBytes returns the forms of a module in the format requested by the typechecker.
func (h *Host) astBytes(ctx context.Context, project ast.ProjectID, module ast.ModuleName, format ipc.ASTFormat) ([]byte, error) {
	switch format {
	case ipc.ConvertedForms:
		return h.db.ConvertedASTBytes(ctx, project, module)
	case ipc.TransitiveStub:
		return h.db.TransitiveStubBytes(ctx, project, module)
	}
	return nil, errors.Errorf("unknown AST format %q", format)
}

type asyncErrors struct {
	locker sync.Mutex
	errs   error
}

func (ae *asyncErrors) add(err error) {
	ae.locker.Lock()
	defer ae.locker.Unlock()
	ae.errs = multierr.Append(ae.errs, err)
}

func (ae *asyncErrors) errors() error {
	ae.locker.Lock()
	defer ae.locker.Unlock()
	errs := ae.errs
	ae.errs = nil
	return errs
}

// Prefetch computes the transitive stubs of modules concurrently so that
// they are memoized when the typechecker requests them.
// The errors of all the modules are returned.
func (h *Host) Prefetch(ctx context.Context, project ast.ProjectID, modules []ast.ModuleName) error {
	toLoad := make(chan ast.ModuleName, len(modules))
	for _, module := range modules {
		toLoad <- module
	}
	close(toLoad)
	var errs asyncErrors
	var wg sync.WaitGroup
	for range min(runtime.NumCPU(), len(modules)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for module := range toLoad {
				if _, err := h.db.TransitiveStubBytes(ctx, project, module); err != nil {
					errs.add(errors.WithMessagef(err, "prefetching %s", module))
				}
			}
		}()
	}
	wg.Wait()
	return errs.errors()
}
