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

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

// Sum types are encoded as {"tag": <variant>, "content": <fields>},
// the same convention as the control messages exchanged with eqWAlizer.
// Fields are named after their json struct tag.

type envelope struct {
	Tag     string          `json:"tag"`
	Content json.RawMessage `json:"content"`
}

type codecRegistry struct {
	byTag  map[string]reflect.Type
	byType map[reflect.Type]string
	sums   map[reflect.Type]bool
}

var registry = codecRegistry{
	byTag:  make(map[string]reflect.Type),
	byType: make(map[reflect.Type]string),
	sums:   make(map[reflect.Type]bool),
}

func register[I any](variants ...I) {
	registry.sums[reflect.TypeFor[I]()] = true
	for _, variant := range variants {
		tp := reflect.TypeOf(variant)
		tag := tp.Elem().Name()
		registry.byTag[tag] = tp
		registry.byType[tp] = tag
	}
}

func init() {
	register[Form](
		&Module{}, &Export{}, &Import{}, &ExportType{}, &FunDecl{}, &File{},
		&ElpMetadata{}, &Behaviour{}, &EqwalizerNowarnFunction{},
		&EqwalizerUnlimitedRefinement{}, &TypingAttribute{}, &OptionalCallbacks{},
		&ExternalTypeDecl{}, &ExternalOpaqueDecl{}, &ExternalFunSpec{},
		&ExternalCallback{}, &ExternalRecDecl{}, &TypeDecl{}, &OpaqueTypeDecl{},
		&FunSpec{}, &OverloadedFunSpec{}, &Callback{}, &RecDecl{}, &InvalidForm{},
	)
	register[Expr](
		&Var{}, &AtomLit{}, &IntLit{}, &FloatLit{}, &StringLit{}, &NilLit{},
		&Tuple{}, &Cons{}, &Block{}, &Match{}, &Case{}, &If{}, &LocalCall{},
		&RemoteCall{}, &DynCall{}, &LocalFun{}, &RemoteFun{}, &Lambda{},
		&UnOp{}, &BinOp{}, &LComprehension{}, &Catch{}, &TryCatch{}, &Receive{},
		&RecordCreate{}, &RecordSelect{}, &MapCreate{},
	)
	register[Qualifier](&LGenerate{}, &Filter{})
	register[Pat](
		&PatVar{}, &PatWild{}, &PatAtom{}, &PatInt{}, &PatString{}, &PatNil{},
		&PatTuple{}, &PatCons{}, &PatMatch{},
	)
	register[Test](
		&TestVar{}, &TestAtom{}, &TestNumber{}, &TestNil{}, &TestTuple{},
		&TestCall{}, &TestUnOp{}, &TestBinOp{},
	)
	register[ExtType](
		&AtomLitExtType{}, &IntLitExtType{}, &FunExtType{}, &AnyArityFunExtType{},
		&TupleExtType{}, &ListExtType{}, &AnyListExtType{}, &UnionExtType{},
		&LocalExtType{}, &RemoteExtType{}, &VarExtType{}, &RecordExtType{},
		&MapExtType{},
	)
	register[Type](
		&AtomLitType{}, &AnyType{}, &DynamicType{}, &NoneType{}, &AtomType{},
		&BinaryType{}, &NumberType{}, &PidType{}, &PortType{}, &ReferenceType{},
		&AnyFunType{}, &AnyTupleType{}, &NilType{}, &FunType{}, &TupleType{},
		&ListType{}, &UnionType{}, &RemoteType{}, &VarType{}, &RecordType{},
		&MapType{},
	)
}

var (
	marshalerType   = reflect.TypeFor[json.Marshaler]()
	unmarshalerType = reflect.TypeFor[json.Unmarshaler]()
)

func fieldName(field reflect.StructField) string {
	tag, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if tag == "" {
		return field.Name
	}
	return tag
}

// Marshal encodes a value, with any node it contains, as JSON.
// A variant passed directly is encoded with its tag so that it can be
// decoded into its sum type.
func Marshal(v any) ([]byte, error) {
	tree, err := encodeTop(reflect.ValueOf(v))
	if err != nil {
		return nil, err
	}
	return json.Marshal(tree)
}

func encodeTop(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	tag, ok := registry.byType[v.Type()]
	if !ok || v.IsNil() {
		return encode(v)
	}
	content, err := encodeStruct(v.Elem())
	if err != nil {
		return nil, err
	}
	return map[string]any{"tag": tag, "content": content}, nil
}

func encode(v reflect.Value) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	if v.Kind() != reflect.Interface && v.Type().Implements(marshalerType) {
		if v.Kind() == reflect.Pointer && v.IsNil() {
			return nil, nil
		}
		return v.Interface(), nil
	}
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		if !registry.sums[v.Type()] {
			return encode(v.Elem())
		}
		elem := v.Elem()
		tag, ok := registry.byType[elem.Type()]
		if !ok {
			return nil, errors.Errorf("type %s is not a registered variant of %s", elem.Type(), v.Type())
		}
		if elem.IsNil() {
			return nil, errors.Errorf("nil %s variant of %s", tag, v.Type())
		}
		content, err := encodeStruct(elem.Elem())
		if err != nil {
			return nil, err
		}
		return map[string]any{"tag": tag, "content": content}, nil
	case reflect.Pointer:
		if v.IsNil() {
			return nil, nil
		}
		return encode(v.Elem())
	case reflect.Struct:
		return encodeStruct(v)
	case reflect.Slice:
		if v.IsNil() {
			return nil, nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Interface(), nil
		}
		items := make([]any, v.Len())
		for i := range items {
			item, err := encode(v.Index(i))
			if err != nil {
				return nil, errors.Wrapf(err, "element %d", i)
			}
			items[i] = item
		}
		return items, nil
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, errors.Errorf("map key type %s not supported", v.Type().Key())
		}
		m := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			val, err := encode(iter.Value())
			if err != nil {
				return nil, err
			}
			m[iter.Key().String()] = val
		}
		return m, nil
	}
	return v.Interface(), nil
}

func encodeStruct(v reflect.Value) (map[string]any, error) {
	fields := make(map[string]any, v.NumField())
	tp := v.Type()
	for i := range tp.NumField() {
		field := tp.Field(i)
		if !field.IsExported() {
			continue
		}
		val, err := encode(v.Field(i))
		if err != nil {
			return nil, errors.Wrapf(err, "field %s.%s", tp.Name(), field.Name)
		}
		fields[fieldName(field)] = val
	}
	return fields, nil
}

// Unmarshal decodes JSON produced by Marshal into the value pointed to by v.
// Unknown variant tags are rejected.
func Unmarshal(data []byte, v any) error {
	ptr := reflect.ValueOf(v)
	if ptr.Kind() != reflect.Pointer || ptr.IsNil() {
		return errors.Errorf("cannot unmarshal into non-pointer %T", v)
	}
	return decode(data, ptr.Elem())
}

func isNull(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}

func decode(data json.RawMessage, v reflect.Value) error {
	if isNull(data) {
		v.SetZero()
		return nil
	}
	if v.Kind() != reflect.Interface && v.Addr().Type().Implements(unmarshalerType) {
		return json.Unmarshal(data, v.Addr().Interface())
	}
	switch v.Kind() {
	case reflect.Interface:
		if !registry.sums[v.Type()] {
			return json.Unmarshal(data, v.Addr().Interface())
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return errors.Wrapf(err, "cannot decode %s", v.Type())
		}
		tp, ok := registry.byTag[env.Tag]
		if !ok {
			return errors.Errorf("unknown tag %q for %s", env.Tag, v.Type())
		}
		if !tp.Implements(v.Type()) {
			return errors.Errorf("tag %q is not a variant of %s", env.Tag, v.Type())
		}
		variant := reflect.New(tp.Elem())
		if err := decodeStruct(env.Content, variant.Elem()); err != nil {
			return errors.WithMessagef(err, "%s", env.Tag)
		}
		v.Set(variant)
		return nil
	case reflect.Pointer:
		elem := reflect.New(v.Type().Elem())
		if err := decode(data, elem.Elem()); err != nil {
			return err
		}
		v.Set(elem)
		return nil
	case reflect.Struct:
		return decodeStruct(data, v)
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return json.Unmarshal(data, v.Addr().Interface())
		}
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return errors.Wrapf(err, "cannot decode %s", v.Type())
		}
		slice := reflect.MakeSlice(v.Type(), len(items), len(items))
		for i, item := range items {
			if err := decode(item, slice.Index(i)); err != nil {
				return errors.WithMessagef(err, "element %d", i)
			}
		}
		v.Set(slice)
		return nil
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return errors.Errorf("map key type %s not supported", v.Type().Key())
		}
		var items map[string]json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return errors.Wrapf(err, "cannot decode %s", v.Type())
		}
		m := reflect.MakeMapWithSize(v.Type(), len(items))
		for key, item := range items {
			val := reflect.New(v.Type().Elem()).Elem()
			if err := decode(item, val); err != nil {
				return errors.WithMessagef(err, "key %q", key)
			}
			m.SetMapIndex(reflect.ValueOf(key).Convert(v.Type().Key()), val)
		}
		v.Set(m)
		return nil
	}
	return json.Unmarshal(data, v.Addr().Interface())
}

func decodeStruct(data json.RawMessage, v reflect.Value) error {
	var fields map[string]json.RawMessage
	if !isNull(data) {
		if err := json.Unmarshal(data, &fields); err != nil {
			return errors.Wrapf(err, "cannot decode %s", v.Type())
		}
	}
	tp := v.Type()
	for i := range tp.NumField() {
		field := tp.Field(i)
		if !field.IsExported() {
			continue
		}
		raw, ok := fields[fieldName(field)]
		if !ok {
			continue
		}
		if err := decode(raw, v.Field(i)); err != nil {
			return errors.WithMessagef(err, "field %s", fieldName(field))
		}
	}
	return nil
}

// MarshalForms encodes a list of forms.
func MarshalForms(forms AST) ([]byte, error) {
	return Marshal([]Form(forms))
}

// UnmarshalForms decodes a list of forms.
func UnmarshalForms(data []byte) (AST, error) {
	var forms []Form
	if err := Unmarshal(data, &forms); err != nil {
		return nil, err
	}
	return forms, nil
}
