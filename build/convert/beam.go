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

package convert

import (
	"bytes"
	"encoding/binary"

	"github.com/elp-tools/eqwalizer/build/ast"
	"github.com/pkg/errors"
)

// Chunk of a BEAM file holding the serialized abstract forms.
const abstractChunk = "Abst"

var (
	iffHeader  = []byte("FOR1")
	beamHeader = []byte("BEAM")
)

// FromBeam extracts the stub of a module from the abstract forms embedded
// in its compiled file.
//
// A BEAM file is an IFF container: "FOR1", the size of the rest of the file
// as a big-endian uint32, "BEAM", then a sequence of chunks. Each chunk is a
// 4 bytes identifier, the size of its payload as a big-endian uint32 and
// the payload padded to a multiple of 4 bytes.
func FromBeam(data []byte) (ast.AST, error) {
	chunk, err := findChunk(data, abstractChunk)
	if err != nil {
		return nil, err
	}
	return FromBytes(chunk, true)
}

func findChunk(data []byte, id string) ([]byte, error) {
	if len(data) < 12 || !bytes.Equal(data[:4], iffHeader) || !bytes.Equal(data[8:12], beamHeader) {
		return nil, errors.Wrap(ast.ErrParse, "not a BEAM file")
	}
	size := int(binary.BigEndian.Uint32(data[4:8]))
	if size+8 > len(data) || size < 4 {
		return nil, errors.Wrapf(ast.ErrParse, "BEAM file truncated: container of %d bytes in a file of %d bytes", size, len(data))
	}
	rest := data[12 : size+8]
	for len(rest) >= 8 {
		chunkID := string(rest[:4])
		chunkSize := int(binary.BigEndian.Uint32(rest[4:8]))
		rest = rest[8:]
		if chunkSize > len(rest) {
			return nil, errors.Wrapf(ast.ErrParse, "BEAM chunk %s truncated", chunkID)
		}
		if chunkID == id {
			return rest[:chunkSize], nil
		}
		padded := (chunkSize + 3) &^ 3
		if padded > len(rest) {
			padded = len(rest)
		}
		rest = rest[padded:]
	}
	return nil, errors.Wrapf(ast.ErrParse, "BEAM file has no %s chunk", id)
}

// BeamChunk encodes a chunk of a BEAM file.
type BeamChunk struct {
	ID      string
	Payload []byte
}

// EncodeBeam builds a BEAM container from a list of chunks.
func EncodeBeam(chunks ...BeamChunk) []byte {
	var body bytes.Buffer
	body.Write(beamHeader)
	for _, chunk := range chunks {
		id := []byte(chunk.ID + "    ")[:4]
		body.Write(id)
		body.Write(binary.BigEndian.AppendUint32(nil, uint32(len(chunk.Payload))))
		body.Write(chunk.Payload)
		for i := len(chunk.Payload); i%4 != 0; i++ {
			body.WriteByte(0)
		}
	}
	var out bytes.Buffer
	out.Write(iffHeader)
	out.Write(binary.BigEndian.AppendUint32(nil, uint32(body.Len())))
	out.Write(body.Bytes())
	return out.Bytes()
}
