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
	"fmt"
	"strconv"
)

// Mode is the context in which the typechecker is run.
type Mode int

const (
	// Cli is a batch run from the command line.
	Cli Mode = iota
	// Server is a run from a long-running language server.
	Server
	// Shell is a run from an interactive shell.
	Shell
)

// ModeEnv is the environment variable giving the mode to the typechecker.
const ModeEnv = "EQWALIZER_MODE"

// EnvValue returns the value of the mode environment variable.
func (m Mode) EnvValue() string {
	switch m {
	case Cli:
		return "elp_cli"
	case Server:
		return "elp_ide"
	case Shell:
		return "shell"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func (m Mode) String() string {
	switch m {
	case Cli:
		return "cli"
	case Server:
		return "server"
	case Shell:
		return "shell"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses the name of a mode as returned by String.
func ParseMode(s string) (Mode, error) {
	for _, m := range []Mode{Cli, Server, Shell} {
		if m.String() == s {
			return m, nil
		}
	}
	return Cli, fmt.Errorf("unknown mode %q: want cli, server or shell", s)
}

// Config are the options of the typechecker.
// Unset options keep the default of the typechecker.
type Config struct {
	TolerateErrors              *bool
	OccurrenceTyping            *bool
	ClauseCoverage              *bool
	ReportBadMaps               *bool
	OverloadedSpecDynamicResult *bool
	ReportDynamicLambdas        *bool
}

func boolPtr(b bool) *bool {
	return &b
}

// DefaultTestConfig returns the configuration used to test the typechecker.
func DefaultTestConfig() Config {
	return Config{
		TolerateErrors:              boolPtr(false),
		OccurrenceTyping:            boolPtr(true),
		ClauseCoverage:              boolPtr(false),
		ReportBadMaps:               boolPtr(false),
		OverloadedSpecDynamicResult: boolPtr(false),
		ReportDynamicLambdas:        boolPtr(false),
	}
}

// Env returns the environment variables passing the set options to the typechecker.
func (c Config) Env() []string {
	vars := []struct {
		name string
		val  *bool
	}{
		{"EQWALIZER_TOLERATE_ERRORS", c.TolerateErrors},
		{"EQWALIZER_EQWATER", c.OccurrenceTyping},
		{"EQWALIZER_CLAUSE_COVERAGE", c.ClauseCoverage},
		{"EQWALIZER_REPORT_BAD_MAPS", c.ReportBadMaps},
		{"EQWALIZER_OVERLOADED_SPEC_DYNAMIC_RESULT", c.OverloadedSpecDynamicResult},
		{"EQWALIZER_REPORT_DYNAMIC_LAMBDAS", c.ReportDynamicLambdas},
	}
	var env []string
	for _, v := range vars {
		if v.val == nil {
			continue
		}
		env = append(env, v.name+"="+strconv.FormatBool(*v.val))
	}
	return env
}
