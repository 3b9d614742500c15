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

package fmterr

import (
	"fmt"
	"runtime/debug"

	"github.com/elp-tools/eqwalizer/build/ast"
	"github.com/pkg/errors"
)

type (
	// ErrorWithPos is an error attached to a position in a module.
	ErrorWithPos interface {
		error
		Module() ast.ModuleName
		Pos() ast.Pos
		Err() error
	}

	errorWithPos struct {
		module ast.ModuleName
		pos    ast.Pos
		err    error
	}
)

// Position adds position information to an error.
func Position(module ast.ModuleName, pos ast.Pos, err error) ErrorWithPos {
	return errorWithPos{
		module: module,
		pos:    pos,
		err:    err,
	}
}

// Errorf returns a formatted error at a position.
func Errorf(module ast.ModuleName, pos ast.Pos, format string, a ...any) error {
	return Position(module, pos, errors.Errorf(format, a...))
}

// Error returns a string description of the error.
func (err errorWithPos) Error() (s string) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		s = fmt.Sprintf("recovered from panic when building error message: %T:\n%v", err.err, string(debug.Stack()))
	}()
	return PosString(err.module, err.pos) + " " + err.err.Error()
}

// Unwrap the error.
func (err errorWithPos) Unwrap() error {
	return err.err
}

// Format writes the error into the state of the formatter.
func (err errorWithPos) Format(s fmt.State, verb rune) {
	format(err, s, verb)
}

func (err errorWithPos) Module() ast.ModuleName {
	return err.module
}

func (err errorWithPos) Pos() ast.Pos {
	return err.pos
}

func (err errorWithPos) Err() error {
	return err.err
}

// PosString returns a position as a string that can be used for an error.
func PosString(module ast.ModuleName, pos ast.Pos) string {
	return fmt.Sprintf("%s:%d-%d:", module, pos.Start, pos.End)
}
