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

type (
	// Pat is a pattern.
	Pat interface {
		Node
		pat()
	}

	// Test is a guard test.
	Test interface {
		Node
		test()
	}

	// Guard is a conjunction of tests.
	Guard struct {
		Tests []Test `json:"tests"`
	}
)

// Patterns.
type (
	// PatVar binds a variable.
	PatVar struct {
		Location Pos    `json:"location"`
		N        string `json:"n"`
	}

	// PatWild is the wildcard pattern.
	PatWild struct {
		Location Pos `json:"location"`
	}

	// PatAtom matches an atom.
	PatAtom struct {
		Location Pos      `json:"location"`
		S        AtomName `json:"s"`
	}

	// PatInt matches an integer.
	PatInt struct {
		Location Pos `json:"location"`
	}

	// PatString matches a string.
	PatString struct {
		Location Pos `json:"location"`
	}

	// PatNil matches the empty list.
	PatNil struct {
		Location Pos `json:"location"`
	}

	// PatTuple matches a tuple.
	PatTuple struct {
		Location Pos   `json:"location"`
		Elems    []Pat `json:"elems"`
	}

	// PatCons matches a non-empty list.
	PatCons struct {
		Location Pos `json:"location"`
		H        Pat `json:"h"`
		T        Pat `json:"t"`
	}

	// PatMatch matches two patterns against the same value.
	PatMatch struct {
		Location Pos `json:"location"`
		Pat      Pat `json:"pat"`
		Arg      Pat `json:"arg"`
	}
)

// Guard tests.
type (
	// TestVar tests a variable.
	TestVar struct {
		Location Pos    `json:"location"`
		V        string `json:"v"`
	}

	// TestAtom is an atom in a guard.
	TestAtom struct {
		Location Pos      `json:"location"`
		S        AtomName `json:"s"`
	}

	// TestNumber is an integer in a guard.
	TestNumber struct {
		Location Pos  `json:"location"`
		Lit      *int `json:"lit"`
	}

	// TestNil is the empty list in a guard.
	TestNil struct {
		Location Pos `json:"location"`
	}

	// TestTuple is a tuple in a guard.
	TestTuple struct {
		Location Pos    `json:"location"`
		Elems    []Test `json:"elems"`
	}

	// TestCall calls a guard built-in function.
	TestCall struct {
		Location Pos    `json:"location"`
		Id       Id     `json:"id"`
		Args     []Test `json:"args"`
	}

	// TestUnOp is a unary operator in a guard.
	TestUnOp struct {
		Location Pos    `json:"location"`
		Op       string `json:"op"`
		Arg      Test   `json:"arg"`
	}

	// TestBinOp is a binary operator in a guard.
	TestBinOp struct {
		Location Pos    `json:"location"`
		Op       string `json:"op"`
		Arg1     Test   `json:"arg_1"`
		Arg2     Test   `json:"arg_2"`
	}
)

// NewPatVar returns a variable pattern.
func NewPatVar(location Pos, name string) Pat {
	return &PatVar{Location: location, N: name}
}

// NewTestVar returns a variable test.
func NewTestVar(location Pos, name string) Test {
	return &TestVar{Location: location, V: name}
}

func (*PatVar) node()    {}
func (*PatWild) node()   {}
func (*PatAtom) node()   {}
func (*PatInt) node()    {}
func (*PatString) node() {}
func (*PatNil) node()    {}
func (*PatTuple) node()  {}
func (*PatCons) node()   {}
func (*PatMatch) node()  {}

func (*PatVar) pat()    {}
func (*PatWild) pat()   {}
func (*PatAtom) pat()   {}
func (*PatInt) pat()    {}
func (*PatString) pat() {}
func (*PatNil) pat()    {}
func (*PatTuple) pat()  {}
func (*PatCons) pat()   {}
func (*PatMatch) pat()  {}

func (*TestVar) node()    {}
func (*TestAtom) node()   {}
func (*TestNumber) node() {}
func (*TestNil) node()    {}
func (*TestTuple) node()  {}
func (*TestCall) node()   {}
func (*TestUnOp) node()   {}
func (*TestBinOp) node()  {}

func (*TestVar) test()    {}
func (*TestAtom) test()   {}
func (*TestNumber) test() {}
func (*TestNil) test()    {}
func (*TestTuple) test()  {}
func (*TestCall) test()   {}
func (*TestUnOp) test()   {}
func (*TestBinOp) test()  {}
