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

// Package eqwflag provides flag types for eqWAlizer tools.
package eqwflag

import (
	"flag"
	"strings"

	"github.com/elp-tools/eqwalizer/eqwalizer"
)

type stringList struct {
	list *[]string
}

func (sl *stringList) String() string {
	if sl.list == nil {
		return ""
	}
	return strings.Join(*sl.list, ",")
}

func (sl *stringList) Set(values string) error {
	for _, value := range strings.Split(values, ",") {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		*sl.list = append(*sl.list, value)
	}
	return nil
}

// StringListVar defines a flag in a flag set to pass a list of strings.
// Values are separated by commas and the flag can be repeated.
func StringListVar(fs *flag.FlagSet, name, doc string) *[]string {
	var list []string
	sList := stringList{&list}
	fs.Var(&sList, name, doc)
	return sList.list
}

// StringList returns a flag to pass a list of string from the command line.
func StringList(name, doc string) *[]string {
	return StringListVar(flag.CommandLine, name, doc)
}

type modeValue struct {
	mode *eqwalizer.Mode
}

func (m modeValue) String() string {
	if m.mode == nil {
		return ""
	}
	return m.mode.String()
}

func (m modeValue) Set(value string) error {
	mode, err := eqwalizer.ParseMode(value)
	if err != nil {
		return err
	}
	*m.mode = mode
	return nil
}

// ModeVar defines a flag in a flag set to select the mode of eqWAlizer.
func ModeVar(fs *flag.FlagSet, name string, value eqwalizer.Mode, doc string) *eqwalizer.Mode {
	mode := value
	fs.Var(modeValue{&mode}, name, doc)
	return &mode
}

// Mode returns a flag to select the mode of eqWAlizer from the command line.
func Mode(name string, value eqwalizer.Mode, doc string) *eqwalizer.Mode {
	return ModeVar(flag.CommandLine, name, value, doc)
}
