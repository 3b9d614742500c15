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

package localfs

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/elp-tools/eqwalizer/build/db"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Settings are the typechecker options of a project.
// Unset options keep the default of the typechecker.
type Settings struct {
	TolerateErrors              *bool `yaml:"tolerate_errors"`
	Eqwater                     *bool `yaml:"eqwater"`
	ClauseCoverage              *bool `yaml:"clause_coverage"`
	ReportBadMaps               *bool `yaml:"report_bad_maps"`
	OverloadedSpecDynamicResult *bool `yaml:"overloaded_spec_dynamic_result"`
	ReportDynamicLambdas        *bool `yaml:"report_dynamic_lambdas"`
}

// App is an application of a project.
type App struct {
	Name string
	Type db.AppType
	// SrcDirs are the directories of the serialized forms of the modules,
	// relative to the project root.
	SrcDirs []string
	// Ebin is the directory of the compiled files, relative to the project root.
	Ebin string
}

// Project describes the applications of a project.
type Project struct {
	// Path of the project file.
	Path string
	// Root is the directory of the project file.
	Root      string
	Name      string
	Apps      []*App
	Eqwalizer Settings
}

type appDisk struct {
	Name    string   `yaml:"name"`
	Type    string   `yaml:"type"`
	SrcDirs []string `yaml:"src_dirs"`
	Ebin    string   `yaml:"ebin"`
}

type projectDisk struct {
	Name      string    `yaml:"name"`
	Apps      []appDisk `yaml:"apps"`
	Eqwalizer Settings  `yaml:"eqwalizer"`
}

func parseAppType(s string) (db.AppType, error) {
	switch strings.TrimSpace(s) {
	case "", "app":
		return db.App, nil
	case "otp":
		return db.Otp, nil
	case "dep":
		return db.Dep, nil
	}
	return db.App, errors.Errorf("unknown application type %q", s)
}

// cleanDir checks that a directory is local to the project root.
func cleanDir(dir string) (string, error) {
	dir = path.Clean(filepath.ToSlash(strings.TrimSpace(dir)))
	if !filepath.IsLocal(dir) {
		return "", errors.Errorf("directory %s is not within the project", dir)
	}
	return dir, nil
}

func (raw *appDisk) toApp() (*App, error) {
	if raw.Name == "" {
		return nil, errors.Errorf("application without a name")
	}
	tp, err := parseAppType(raw.Type)
	if err != nil {
		return nil, errors.WithMessagef(err, "application %s", raw.Name)
	}
	app := &App{Name: raw.Name, Type: tp}
	for _, dir := range raw.SrcDirs {
		clean, err := cleanDir(dir)
		if err != nil {
			return nil, errors.WithMessagef(err, "application %s", raw.Name)
		}
		app.SrcDirs = append(app.SrcDirs, clean)
	}
	if raw.Ebin != "" {
		if app.Ebin, err = cleanDir(raw.Ebin); err != nil {
			return nil, errors.WithMessagef(err, "application %s", raw.Name)
		}
	}
	return app, nil
}

// ParseProject parses the content of a project file.
// Unknown fields are rejected.
func ParseProject(data []byte) (*Project, error) {
	var raw projectDisk
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "cannot parse project file")
	}
	proj := &Project{Name: raw.Name, Eqwalizer: raw.Eqwalizer}
	names := make(map[string]bool)
	for i := range raw.Apps {
		app, err := raw.Apps[i].toApp()
		if err != nil {
			return nil, err
		}
		if names[app.Name] {
			return nil, errors.Errorf("application %s declared more than once", app.Name)
		}
		names[app.Name] = true
		proj.Apps = append(proj.Apps, app)
	}
	return proj, nil
}

// LoadProject reads and parses a project file.
func LoadProject(path string) (*Project, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot resolve %s", path)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	proj, err := ParseProject(data)
	if err != nil {
		return nil, errors.WithMessage(err, abs)
	}
	proj.Path = abs
	proj.Root = filepath.Dir(abs)
	return proj, nil
}
