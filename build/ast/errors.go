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

package ast

import (
	"fmt"

	"github.com/elp-tools/eqwalizer/base/stringseq"
	"github.com/pkg/errors"
)

// ErrParse is returned when bytes do not decode to a valid AST.
// It is an expected failure: the source of a module may currently have
// a syntax error.
var ErrParse = errors.New("parse error")

type (
	// ModuleNotFoundError is returned when no file can be found for a module.
	ModuleNotFoundError struct {
		Module ModuleName
	}

	// BEAMNotFoundError is returned when the compiled file of a module
	// cannot be read.
	BEAMNotFoundError struct {
		Path string
	}

	// TypeConversionError is returned when the types of a stub cannot be expanded.
	TypeConversionError struct {
		Module ModuleName
		Pos    Pos
		Err    error
	}

	// ContractivityError lists recursive type aliases that never make progress.
	ContractivityError struct {
		Module ModuleName
		Ids    []Id
		Err    error
	}

	// VarianceCheckError lists opaque types with non-covariant parameters.
	VarianceCheckError struct {
		Module ModuleName
		Ids    []Id
		Err    error
	}

	// TransitiveCheckError is returned when the transitive closure of a stub
	// cannot be computed.
	TransitiveCheckError struct {
		Module ModuleName
		Ref    RemoteId
		Err    error
	}
)

// Stage errors deliberately do not implement Unwrap: an error of another
// module (for instance a parse error) must be reported as an error of this
// stage, not be classified as the inner error.

// NotFound returns an error for a module that does not exist.
func NotFound(module ModuleName) error {
	return &ModuleNotFoundError{Module: module}
}

func (err *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("module %s not found", err.Module)
}

func (err *BEAMNotFoundError) Error() string {
	return fmt.Sprintf("BEAM file %s not found", err.Path)
}

func (err *TypeConversionError) Error() string {
	return fmt.Sprintf("type conversion error in module %s at %d: %v", err.Module, err.Pos.Start, err.Err)
}

// Cause returns the error from which the conversion failed.
func (err *TypeConversionError) Cause() error {
	return err.Err
}

func (err *ContractivityError) Error() string {
	return fmt.Sprintf("non-contractive types in module %s [%s]: %v", err.Module, stringseq.JoinStringer(err.Ids, ", "), err.Err)
}

func (err *VarianceCheckError) Error() string {
	return fmt.Sprintf("variance check failed in module %s [%s]: %v", err.Module, stringseq.JoinStringer(err.Ids, ", "), err.Err)
}

func (err *TransitiveCheckError) Error() string {
	return fmt.Sprintf("transitive check of module %s failed at %s: %v", err.Module, err.Ref, err.Err)
}

// IsParseError returns true if err is a parse error of the module itself.
// Parse errors of other modules wrapped by a stage error do not count.
func IsParseError(err error) bool {
	return errors.Is(err, ErrParse)
}

// IsModuleNotFound returns true if err reports a missing module.
func IsModuleNotFound(err error) bool {
	var notFound *ModuleNotFoundError
	return errors.As(err, &notFound)
}
