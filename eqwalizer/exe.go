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
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// PathEnv is the environment variable giving the path of the typechecker.
const PathEnv = "ELP_EQWALIZER_PATH"

// Exe is the typechecker executable.
type Exe struct {
	path string
	cmd  string
	args []string
	// tempFile is removed when the executable is closed.
	tempFile string
}

// NewExe returns the executable at a given path.
// Java archives (.jar) are run with the java launcher. Other executables
// must not have an extension.
func NewExe(path string) (*Exe, error) {
	switch ext := strings.TrimPrefix(filepath.Ext(path), "."); ext {
	case "jar":
		return &Exe{path: path, cmd: "java", args: []string{"-Xss20M", "-jar", path}}, nil
	case "":
		return &Exe{path: path, cmd: path}, nil
	default:
		return nil, errors.Errorf("unknown eqWAlizer executable %s: extension %q not supported", path, ext)
	}
}

// ExeFromEnv returns the executable given by the ELP_EQWALIZER_PATH
// environment variable. It returns nil if the variable is not set.
func ExeFromEnv() (*Exe, error) {
	path := os.Getenv(PathEnv)
	if path == "" {
		return nil, nil
	}
	return NewExe(path)
}

// MaterializeExe writes an embedded executable to a temporary file.
// ext is the extension of the executable, without the leading dot.
// The file is removed when the executable is closed.
func MaterializeExe(data []byte, ext string) (exe *Exe, err error) {
	pattern := "eqwalizer*"
	if ext != "" {
		pattern += "." + ext
	}
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, errors.Wrap(err, "cannot create eqWAlizer executable")
	}
	defer func() {
		if err != nil {
			os.Remove(f.Name())
		}
	}()
	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "cannot write eqWAlizer executable")
	}
	if err := f.Close(); err != nil {
		return nil, errors.Wrap(err, "cannot write eqWAlizer executable")
	}
	if err := os.Chmod(f.Name(), 0o755); err != nil {
		return nil, errors.Wrap(err, "cannot make eqWAlizer executable")
	}
	exe, err = NewExe(f.Name())
	if err != nil {
		return nil, err
	}
	exe.tempFile = f.Name()
	return exe, nil
}

// Path returns the path of the executable.
func (e *Exe) Path() string {
	return e.path
}

// Command returns a command running the typechecker with some arguments.
func (e *Exe) Command(args ...string) *exec.Cmd {
	return exec.Command(e.cmd, append(append([]string{}, e.args...), args...)...)
}

// Close removes the executable if it has been materialized.
func (e *Exe) Close() error {
	if e.tempFile == "" {
		return nil
	}
	err := os.Remove(e.tempFile)
	e.tempFile = ""
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
