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

// Package eqwalizer drives the eqWAlizer typechecker.
//
// The typechecker is run as a separate process. It requests the forms of
// the modules it checks and of their dependencies, which are computed by a
// Host, and finally reports its diagnostics.
package eqwalizer

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/elp-tools/eqwalizer/build/ast"
	"github.com/elp-tools/eqwalizer/ipc"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Eqwalizer runs the typechecker.
type Eqwalizer struct {
	Mode   Mode
	Config Config
	// Exe is the typechecker executable. Nothing is checked if nil.
	Exe *Exe
	IPC ipc.Options
}

func (e *Eqwalizer) command(modules []ast.ModuleName) []string {
	args := make([]string, 0, len(modules)+1)
	args = append(args, "ipc")
	for _, module := range modules {
		args = append(args, string(module))
	}
	return args
}

// Typecheck runs the typechecker on some modules of a project.
// Results are never memoized: every call starts a new process.
// Errors are reported as a Failure.
func (e *Eqwalizer) Typecheck(ctx context.Context, host *Host, project ast.ProjectID, modules []ast.ModuleName) Diagnostics {
	if e.Exe == nil {
		host.logger.Warn("no eqWAlizer executable: modules are not checked", "modules", len(modules))
		return &Report{}
	}
	cmd := e.Exe.Command(e.command(modules)...)
	cmd.Env = append(os.Environ(), e.Config.Env()...)
	cmd.Env = append(cmd.Env, ModeEnv+"="+e.Mode.EnvValue())
	opts := e.IPC
	if opts.Logger == nil {
		opts.Logger = host.logger
	}
	h, err := ipc.FromCommand(ctx, cmd, opts)
	if err != nil {
		return &Failure{Message: err.Error()}
	}
	defer h.Close()
	diags, err := Drive(ctx, host, project, h)
	if err != nil {
		return &Failure{Message: err.Error()}
	}
	return diags
}

// Drive a session with the typechecker until it is done.
//
// The typechecker announces every module it checks. The connection is then
// lent to ModuleDiagnostics until the module is done. The session stops as
// soon as a module fails or has no forms.
func Drive(ctx context.Context, host *Host, project ast.ProjectID, h *ipc.Handle) (Diagnostics, error) {
	var diags Diagnostics = &Report{}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h.Lock()
		msg, err := h.Receive()
		h.Unlock()
		if err != nil {
			return nil, err
		}
		switch msgT := msg.(type) {
		case *ipc.EnteringModule:
			host.SetModuleHandle(msgT.Module, h)
			delta := ModuleDiagnostics(ctx, host, project, msgT.Module)
			host.SetModuleHandle(msgT.Module, nil)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			diags = Combine(diags, delta)
			if _, ok := diags.(*Report); !ok {
				return diags, nil
			}
			h.Lock()
			err := h.Send(&ipc.ELPExitingModule{})
			h.Unlock()
			if err != nil {
				return nil, err
			}
		case *ipc.Done:
			return Combine(diags, reportFrom(msgT)), nil
		default:
			host.logger.Warn("unexpected message from eqWAlizer", "message", fmt.Sprintf("%T", msg))
		}
	}
}

// ModuleDiagnostics answers the requests of the typechecker for a module
// until the typechecker reports the diagnostics of the module.
// The connection with the typechecker must have been installed with
// Host.SetModuleHandle.
func ModuleDiagnostics(ctx context.Context, host *Host, project ast.ProjectID, module ast.ModuleName) Diagnostics {
	diags, err := moduleDiagnostics(ctx, host, project, module)
	if err != nil {
		return &Failure{Message: fmt.Sprintf("eqWAlizing module %s:\n%v", module, err)}
	}
	return diags
}

func moduleDiagnostics(ctx context.Context, host *Host, project ast.ProjectID, module ast.ModuleName) (Diagnostics, error) {
	h, ok := host.ModuleHandle(module)
	if !ok {
		return nil, errors.Errorf("no eqWAlizer handle for module %s", module)
	}
	h.Lock()
	defer h.Unlock()
	if err := h.Send(&ipc.ELPEnteringModule{}); err != nil {
		return nil, err
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg, err := h.Receive()
		if err != nil {
			return nil, err
		}
		switch msgT := msg.(type) {
		case *ipc.GetAstBytes:
			diags, err := replyAST(ctx, host, project, h, msgT)
			if err != nil || diags != nil {
				return diags, err
			}
		case *ipc.EqwalizingStart:
			host.progress.EqwalizingStart(msgT.Module)
		case *ipc.EqwalizingDone:
			host.progress.EqwalizingDone(msgT.Module)
		case *ipc.Dependencies:
			if err := host.Prefetch(ctx, project, msgT.Modules); err != nil {
				host.logger.Debug("prefetching dependencies failed",
					"module", string(module),
					"errors", len(multierr.Errors(err)),
					"error", ipc.LimitLoggedString(err.Error()),
				)
			}
		case *ipc.Done:
			return reportFrom(msgT), nil
		default:
			host.logger.Warn("unexpected message from eqWAlizer",
				"module", string(module),
				"message", fmt.Sprintf("%T", msg),
			)
		}
	}
}

// replyAST sends the forms requested by the typechecker.
// It returns non-nil diagnostics if the module cannot be processed further.
func replyAST(ctx context.Context, host *Host, project ast.ProjectID, h *ipc.Handle, req *ipc.GetAstBytes) (Diagnostics, error) {
	data, err := host.astBytes(ctx, project, req.Module, req.Format)
	if err == nil && uint64(len(data)) > math.MaxUint32 {
		err = errors.Errorf("forms of module %s do not fit in %d bytes", req.Module, uint32(math.MaxUint32))
	}
	switch {
	case err == nil:
		host.logger.Debug("sending forms", "module", string(req.Module), "format", string(req.Format), "size", len(data))
		if err := h.Send(&ipc.GetAstBytesReply{AstBytesLen: uint32(len(data))}); err != nil {
			return nil, err
		}
		if err := h.ReceiveNewline(); err != nil {
			return nil, err
		}
		return nil, h.SendBytes(data)
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case ast.IsModuleNotFound(err):
		host.logger.Debug("module not found", "module", string(req.Module))
		if err := h.Send(&ipc.GetAstBytesReply{AstBytesLen: 0}); err != nil {
			return nil, err
		}
		return nil, h.ReceiveNewline()
	case ast.IsParseError(err):
		host.logger.Debug("module without forms", "module", string(req.Module), "error", err)
		if err := h.Send(&ipc.CannotCompleteRequest{}); err != nil {
			return nil, err
		}
		return &NoAST{Module: req.Module}, nil
	default:
		host.logger.Warn("cannot compute forms", "module", string(req.Module), "error", err)
		if err := h.Send(&ipc.CannotCompleteRequest{}); err != nil {
			return nil, err
		}
		return &Failure{Message: err.Error()}, nil
	}
}
