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

// Package localfs reads the modules of projects from a filesystem.
//
// The modules of an application are the serialized forms found in its
// source directories, one <module>.json file per module. The modules of
// Erlang distribution applications are the <module>.beam files of their
// ebin directory.
package localfs

import (
	"context"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/elp-tools/eqwalizer/build/ast"
	"github.com/elp-tools/eqwalizer/build/db"
	"github.com/pkg/errors"
)

const (
	formsExt = ".json"
	beamExt  = ".beam"
)

type moduleFile struct {
	app *db.AppData
	// path of the serialized forms in the filesystem, empty for modules
	// only available as compiled files.
	path string
}

// Storage reads modules from a filesystem rooted at the project root.
type Storage struct {
	fsys fs.FS
	root string

	mut      sync.Mutex
	projects []*Project
	modules  map[db.Key]moduleFile
}

var _ db.Storage = (*Storage)(nil)

// New returns a storage reading files from fsys.
// root is the path of fsys in the OS filesystem: it prefixes the ebin
// directories given to the database.
func New(fsys fs.FS, root string) *Storage {
	return &Storage{
		fsys:    fsys,
		root:    root,
		modules: make(map[db.Key]moduleFile),
	}
}

// isFile returns true if a directory entry is a file with a given extension.
func isFile(entry fs.DirEntry, ext string) bool {
	return !entry.IsDir() && strings.HasSuffix(entry.Name(), ext)
}

func (s *Storage) scan(app *db.AppData, dir, ext string, register func(ast.ModuleName, string)) error {
	entries, err := fs.ReadDir(s.fsys, dir)
	if err != nil {
		return errors.Wrapf(err, "cannot read directory %s of application %s", dir, app.Name)
	}
	for _, entry := range entries {
		if !isFile(entry, ext) {
			continue
		}
		module := ast.ModuleName(strings.TrimSuffix(entry.Name(), ext))
		register(module, path.Join(dir, entry.Name()))
	}
	return nil
}

// Add indexes the modules of a project and returns the identifier of the project.
// A module declared by more than one application belongs to the first one.
func (s *Storage) Add(proj *Project) (ast.ProjectID, error) {
	s.mut.Lock()
	defer s.mut.Unlock()

	id := ast.ProjectID(len(s.projects))
	modules := make(map[db.Key]moduleFile)
	for _, app := range proj.Apps {
		data := &db.AppData{Name: app.Name, Type: app.Type}
		if app.Ebin != "" {
			data.Ebin = filepath.Join(s.root, filepath.FromSlash(app.Ebin))
		}
		register := func(module ast.ModuleName, file string) {
			key := db.Key{Project: id, Module: module}
			if _, ok := modules[key]; ok {
				return
			}
			modules[key] = moduleFile{app: data, path: file}
		}
		if app.Type == db.Otp {
			if app.Ebin == "" {
				return 0, errors.Errorf("application %s: missing ebin directory", app.Name)
			}
			if err := s.scan(data, app.Ebin, beamExt, func(module ast.ModuleName, _ string) {
				register(module, "")
			}); err != nil {
				return 0, err
			}
			continue
		}
		for _, dir := range app.SrcDirs {
			if err := s.scan(data, dir, formsExt, register); err != nil {
				return 0, err
			}
		}
	}
	s.projects = append(s.projects, proj)
	for key, file := range modules {
		s.modules[key] = file
	}
	return id, nil
}

// Project returns a project given its identifier.
func (s *Storage) Project(id ast.ProjectID) (*Project, bool) {
	s.mut.Lock()
	defer s.mut.Unlock()
	if int(id) >= len(s.projects) {
		return nil, false
	}
	return s.projects[id], true
}

// Modules returns the modules of a project belonging to applications of a given type.
func (s *Storage) Modules(id ast.ProjectID, tp db.AppType) []ast.ModuleName {
	s.mut.Lock()
	defer s.mut.Unlock()
	var modules []ast.ModuleName
	for key, file := range s.modules {
		if key.Project == id && file.app.Type == tp {
			modules = append(modules, key.Module)
		}
	}
	return modules
}

func (s *Storage) lookup(project ast.ProjectID, module ast.ModuleName) (moduleFile, bool) {
	s.mut.Lock()
	defer s.mut.Unlock()
	file, ok := s.modules[db.Key{Project: project, Module: module}]
	return file, ok
}

// ErlASTBytes reads the serialized forms of a module.
func (s *Storage) ErlASTBytes(ctx context.Context, project ast.ProjectID, module ast.ModuleName) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, ok := s.lookup(project, module)
	if !ok || file.path == "" {
		return nil, ast.NotFound(module)
	}
	data, err := fs.ReadFile(s.fsys, file.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ast.NotFound(module)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read module %s", module)
	}
	return data, nil
}

// ModuleApp returns the application of a module.
func (s *Storage) ModuleApp(project ast.ProjectID, module ast.ModuleName) (*db.AppData, bool) {
	file, ok := s.lookup(project, module)
	if !ok {
		return nil, false
	}
	return file.app, true
}

// ReadFile reads a file given its path in the OS filesystem.
// The path must be in the directory tree of the storage root.
func (s *Storage) ReadFile(name string) ([]byte, error) {
	rel, err := filepath.Rel(s.root, name)
	if err != nil || !filepath.IsLocal(rel) {
		return nil, errors.Errorf("%s is outside of %s", name, s.root)
	}
	return fs.ReadFile(s.fsys, filepath.ToSlash(rel))
}
