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
	"fmt"
	"path/filepath"
	"sync"

	"github.com/elp-tools/eqwalizer/build/ast"
)

// AppType is the kind of application a module belongs to.
type AppType int

const (
	// App is an application of the project.
	App AppType = iota
	// Otp is an application of the Erlang distribution. Its modules are
	// read from their compiled files.
	Otp
	// Dep is a third-party dependency of the project.
	Dep
)

func (t AppType) String() string {
	switch t {
	case App:
		return "app"
	case Otp:
		return "otp"
	case Dep:
		return "dep"
	}
	return fmt.Sprintf("AppType(%d)", int(t))
}

// AppData describes the application of a module.
type AppData struct {
	Name string
	Type AppType
	// Ebin is the directory of the compiled files of the application.
	// Empty if unknown.
	Ebin string
}

// Storage gives access to the sources of the modules of projects.
type Storage interface {
	// ErlASTBytes returns the serialized forms of a module.
	// It returns an ast.ModuleNotFoundError if the module does not exist.
	ErlASTBytes(ctx context.Context, project ast.ProjectID, module ast.ModuleName) ([]byte, error)
	// ModuleApp returns the application of a module.
	ModuleApp(project ast.ProjectID, module ast.ModuleName) (*AppData, bool)
}

// BeamPath returns the path of the compiled file of a module.
// The compiler does not quote module names such as 'Elixir.Foo' in file names.
func BeamPath(app *AppData, module ast.ModuleName) (string, bool) {
	if app == nil || app.Ebin == "" {
		return "", false
	}
	return filepath.Join(app.Ebin, string(module)+".beam"), true
}

type memModule struct {
	app  *AppData
	data []byte
}

// MemStorage stores modules in memory.
type MemStorage struct {
	mut     sync.Mutex
	modules map[Key]memModule
}

var _ Storage = (*MemStorage)(nil)

// NewMemStorage returns an empty storage.
func NewMemStorage() *MemStorage {
	return &MemStorage{modules: make(map[Key]memModule)}
}

// Store the serialized forms of a module.
// Storing a module again replaces its content.
func (s *MemStorage) Store(project ast.ProjectID, module ast.ModuleName, app *AppData, data []byte) {
	s.mut.Lock()
	defer s.mut.Unlock()
	s.modules[Key{Project: project, Module: module}] = memModule{app: app, data: data}
}

// ErlASTBytes returns the bytes stored for a module.
func (s *MemStorage) ErlASTBytes(ctx context.Context, project ast.ProjectID, module ast.ModuleName) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mut.Lock()
	defer s.mut.Unlock()
	mod, ok := s.modules[Key{Project: project, Module: module}]
	if !ok || mod.data == nil {
		return nil, ast.NotFound(module)
	}
	return mod.data, nil
}

// ModuleApp returns the application given when the module was stored.
func (s *MemStorage) ModuleApp(project ast.ProjectID, module ast.ModuleName) (*AppData, bool) {
	s.mut.Lock()
	defer s.mut.Unlock()
	mod, ok := s.modules[Key{Project: project, Module: module}]
	if !ok || mod.app == nil {
		return nil, false
	}
	return mod.app, true
}
