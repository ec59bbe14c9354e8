// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package lang contains the typed program representation consumed by the reference checker: types, function
// signatures with their reference tags, statements and expressions.
package lang

import "fmt"

// Pos is a source position. The zero Pos is valid and prints as "-".
type Pos struct {
	File string
	Line int
	Col  int
}

func (p Pos) String() string {
	if p.Line == 0 {
		if p.File == "" {
			return "-"
		}
		return p.File
	}
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// IsValid returns true if the position carries a line number
func (p Pos) IsValid() bool {
	return p.Line > 0
}

// A Type exposes the facts about a type that the reference checker needs. Everything else about types (layout,
// overloads, templates) belongs to the type system.
type Type interface {
	fmt.Stringer

	// HasDestructor returns true when leaving a scope holding a value of that type must run a destructor
	HasDestructor() bool

	// ReferenceTagCount returns the number of reference tags the type carries, i.e. whether values of that type hold
	// references inside them. Zero for types without reference fields.
	ReferenceTagCount() int

	// IsCopyConstructible returns true if a value of that type can be copied
	IsCopyConstructible() bool
}

// TypeDesc is a plain description of a type, used by the fixture loader and tests.
type TypeDesc struct {
	Name          string
	Destructor    bool
	ReferenceTags int
	NoCopy        bool
}

func (t *TypeDesc) String() string            { return t.Name }
func (t *TypeDesc) HasDestructor() bool       { return t.Destructor }
func (t *TypeDesc) ReferenceTagCount() int    { return t.ReferenceTags }
func (t *TypeDesc) IsCopyConstructible() bool { return !t.NoCopy }

// Builtin types that do not need to be declared in fixtures
var (
	Void = &TypeDesc{Name: "void"}
	Bool = &TypeDesc{Name: "bool"}
	I32  = &TypeDesc{Name: "i32"}
	I64  = &TypeDesc{Name: "i64"}
	U32  = &TypeDesc{Name: "u32"}
	U64  = &TypeDesc{Name: "u64"}
	F32  = &TypeDesc{Name: "f32"}
	F64  = &TypeDesc{Name: "f64"}
	Char = &TypeDesc{Name: "char8"}
)

// Builtins returns the builtin types indexed by name
func Builtins() map[string]Type {
	m := map[string]Type{}
	for _, t := range []*TypeDesc{Void, Bool, I32, I64, U32, U64, F32, F64, Char} {
		m[t.Name] = t
	}
	return m
}

// IsVoid returns true if t is nil or the void type
func IsVoid(t Type) bool {
	return t == nil || t.String() == Void.Name
}
