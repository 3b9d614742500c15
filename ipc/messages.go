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

package ipc

import (
	"encoding/json"

	"github.com/elp-tools/eqwalizer/build/ast"
	"github.com/pkg/errors"
)

// ASTFormat is the format of the forms requested by the typechecker.
type ASTFormat string

const (
	// ConvertedForms requests the forms of a module that are not in its stub.
	ConvertedForms ASTFormat = "ConvertedForms"
	// TransitiveStub requests the transitive stub of a module.
	TransitiveStub ASTFormat = "TransitiveStub"
)

// MsgFrom is a message sent by the typechecker.
type MsgFrom interface {
	msgFrom()
}

type (
	// EnteringModule is sent when the typechecker starts processing a module.
	EnteringModule struct {
		Module ast.ModuleName `json:"module"`
	}

	// GetAstBytes requests the forms of a module.
	GetAstBytes struct {
		Module ast.ModuleName `json:"module"`
		Format ASTFormat      `json:"format"`
	}

	// EqwalizingStart is sent when the typechecker starts checking a module.
	EqwalizingStart struct {
		Module ast.ModuleName `json:"module"`
	}

	// EqwalizingDone is sent when the typechecker is done checking a module.
	EqwalizingDone struct {
		Module ast.ModuleName `json:"module"`
	}

	// Dependencies lists modules the typechecker is going to request.
	Dependencies struct {
		Modules []ast.ModuleName `json:"modules"`
	}

	// Done carries the result of the typechecker.
	Done struct {
		Diagnostics map[ast.ModuleName][]Diagnostic `json:"diagnostics"`
		TypeInfo    map[ast.ModuleName][]TypeInfo   `json:"type_info"`
	}
)

func (*EnteringModule) msgFrom()  {}
func (*GetAstBytes) msgFrom()     {}
func (*EqwalizingStart) msgFrom() {}
func (*EqwalizingDone) msgFrom()  {}
func (*Dependencies) msgFrom()    {}
func (*Done) msgFrom()            {}

// MsgTo is a message sent to the typechecker.
type MsgTo interface {
	msgTo()
}

type (
	// ELPEnteringModule acknowledges EnteringModule.
	ELPEnteringModule struct{}

	// ELPExitingModule is sent once a module has been processed.
	ELPExitingModule struct{}

	// GetAstBytesReply gives the length of the bytes following the reply.
	GetAstBytesReply struct {
		AstBytesLen uint32 `json:"ast_bytes_len"`
	}

	// CannotCompleteRequest is sent when the forms of a module cannot be computed.
	CannotCompleteRequest struct{}
)

func (*ELPEnteringModule) msgTo()     {}
func (*ELPExitingModule) msgTo()      {}
func (*GetAstBytesReply) msgTo()      {}
func (*CannotCompleteRequest) msgTo() {}

// Diagnostic is an error reported by the typechecker.
type Diagnostic struct {
	Range       ast.Pos         `json:"range"`
	Message     string          `json:"message"`
	URI         string          `json:"uri"`
	Code        string          `json:"code"`
	Expression  *string         `json:"expression"`
	Explanation *string         `json:"explanation"`
	Diagnostic  json.RawMessage `json:"diagnostic,omitempty"`
}

// TypeInfo is the type inferred at a position.
// It is encoded as a [position, type] pair.
type TypeInfo struct {
	Pos  ast.Pos
	Type ast.Type
}

var (
	_ json.Marshaler   = TypeInfo{}
	_ json.Unmarshaler = (*TypeInfo)(nil)
)

// MarshalJSON encodes the type information as a pair.
func (ti TypeInfo) MarshalJSON() ([]byte, error) {
	pos, err := json.Marshal(ti.Pos)
	if err != nil {
		return nil, err
	}
	tp, err := ast.Marshal(&ti.Type)
	if err != nil {
		return nil, err
	}
	return json.Marshal([]json.RawMessage{pos, tp})
}

// UnmarshalJSON decodes a [position, type] pair.
func (ti *TypeInfo) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return errors.Errorf("type information has %d elements instead of 2", len(pair))
	}
	if err := json.Unmarshal(pair[0], &ti.Pos); err != nil {
		return errors.Wrap(err, "type information position")
	}
	return ast.Unmarshal(pair[1], &ti.Type)
}

type envelope struct {
	Tag     string          `json:"tag"`
	Content json.RawMessage `json:"content,omitempty"`
}

func tagOf(msg MsgTo) string {
	switch msg.(type) {
	case *ELPEnteringModule:
		return "ELPEnteringModule"
	case *ELPExitingModule:
		return "ELPExitingModule"
	case *GetAstBytesReply:
		return "GetAstBytesReply"
	case *CannotCompleteRequest:
		return "CannotCompleteRequest"
	}
	return ""
}

// Encode a message sent to the typechecker.
// The content of messages without fields is omitted.
func Encode(msg MsgTo) ([]byte, error) {
	tag := tagOf(msg)
	if tag == "" {
		return nil, errors.Errorf("cannot encode message %T", msg)
	}
	env := envelope{Tag: tag}
	if reply, ok := msg.(*GetAstBytesReply); ok {
		content, err := json.Marshal(reply)
		if err != nil {
			return nil, err
		}
		env.Content = content
	}
	return json.Marshal(env)
}

// Decode a message sent by the typechecker.
func Decode(data []byte) (MsgFrom, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(err, "cannot decode message envelope")
	}
	var msg MsgFrom
	switch env.Tag {
	case "EnteringModule":
		msg = &EnteringModule{}
	case "GetAstBytes":
		msg = &GetAstBytes{}
	case "EqwalizingStart":
		msg = &EqwalizingStart{}
	case "EqwalizingDone":
		msg = &EqwalizingDone{}
	case "Dependencies":
		msg = &Dependencies{}
	case "Done":
		msg = &Done{}
	default:
		return nil, errors.Errorf("unknown message tag %q", env.Tag)
	}
	if len(env.Content) == 0 {
		return nil, errors.Errorf("message %s without content", env.Tag)
	}
	if err := json.Unmarshal(env.Content, msg); err != nil {
		return nil, errors.Wrapf(err, "cannot decode message %s", env.Tag)
	}
	if get, ok := msg.(*GetAstBytes); ok && get.Format != ConvertedForms && get.Format != TransitiveStub {
		return nil, errors.Errorf("unknown AST format %q", get.Format)
	}
	return msg, nil
}
