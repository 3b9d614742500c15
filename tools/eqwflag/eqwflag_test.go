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

package eqwflag_test

import (
	"flag"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/elp-tools/eqwalizer/eqwalizer"
	"github.com/elp-tools/eqwalizer/tools/eqwflag"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestStringList(t *testing.T) {
	fs := newFlagSet()
	list := eqwflag.StringListVar(fs, "modules", "modules to check")
	if err := fs.Parse([]string{"-modules", "a, b,,c", "-modules=d"}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, *list); diff != "" {
		t.Errorf("unexpected list (-want +got):\n%s", diff)
	}
	if got := fs.Lookup("modules").Value.String(); got != "a,b,c,d" {
		t.Errorf("got flag value %q", got)
	}
}

func TestMode(t *testing.T) {
	fs := newFlagSet()
	mode := eqwflag.ModeVar(fs, "mode", eqwalizer.Cli, "mode of eqWAlizer")
	if *mode != eqwalizer.Cli {
		t.Errorf("got default mode %s", *mode)
	}
	if err := fs.Parse([]string{"-mode", "server"}); err != nil {
		t.Fatal(err)
	}
	if *mode != eqwalizer.Server {
		t.Errorf("got mode %s but want %s", *mode, eqwalizer.Server)
	}
	bad := newFlagSet()
	eqwflag.ModeVar(bad, "mode", eqwalizer.Cli, "mode of eqWAlizer")
	if err := bad.Parse([]string{"-mode", "batch"}); err == nil {
		t.Errorf("expected an error for an unknown mode")
	}
}
