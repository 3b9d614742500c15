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

// Package uname provides unique names.
package uname

import "fmt"

// Unique generates unique names.
type Unique struct {
	names map[string]bool
}

// New name generator.
func New() *Unique {
	return &Unique{names: make(map[string]bool)}
}

// Register a name as being used.
// Names generated afterwards will never be equal to a registered name.
func (n *Unique) Register(name string) {
	n.names[name] = true
}

// Root returns a sequence of names sharing the same prefix.
func (n *Unique) Root(prefix string) *Root {
	return &Root{unique: n, prefix: prefix}
}

// Root generates names by appending a monotonic index to a prefix.
type Root struct {
	unique *Unique
	prefix string
	next   int
}

// Next returns the next name of the sequence.
func (r *Root) Next() string {
	for {
		name := fmt.Sprintf("%s%d", r.prefix, r.next)
		r.next++
		if r.unique.names[name] {
			continue
		}
		r.unique.names[name] = true
		return name
	}
}
