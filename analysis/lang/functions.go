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

package lang

import (
	"fmt"
	"strings"
)

// FuncKind distinguishes the special member functions that get implicit reference pollution
type FuncKind int

const (
	Regular FuncKind = iota
	CopyConstructor
	CopyAssignment
)

func (k FuncKind) String() string {
	switch k {
	case CopyConstructor:
		return "copy-constructor"
	case CopyAssignment:
		return "copy-assignment"
	default:
		return "regular"
	}
}

// A Param is a function parameter with its reference tags.
type Param struct {
	Name string
	Type Type

	// Reference is true for parameters passed by reference
	Reference bool

	// Mutable is the mutability of the reference, or of the value for value parameters
	Mutable bool

	// Tag is the reference tag of the parameter itself (only for reference parameters). Empty when untagged.
	Tag string

	// InnerTags are the tags of the references inside the parameter's type, one per reference tag of the type.
	InnerTags []string

	// Continuous marks the last inner tag as repeating for all the remaining reference tags of the type
	Continuous bool

	Pos Pos
}

// PollutionDecl is a declared reference pollution `Dst <- Src`: after the call, the inner references of Dst may
// reach what Src reaches.
type PollutionDecl struct {
	Dst        string
	Src        string
	SrcMutable bool
	Pos        Pos
}

func (p PollutionDecl) String() string {
	m := "imut"
	if p.SrcMutable {
		m = "mut"
	}
	return fmt.Sprintf("'%s <- %s %s'", p.Dst, m, p.Src)
}

// ParsePollution parses a pollution declaration of the form "a <- b", "a <- mut b" or "a <- imut b".
// Tags may be written with or without a leading apostrophe. Without a mutability keyword the source is mutable.
func ParsePollution(s string) (PollutionDecl, error) {
	dst, src, found := strings.Cut(s, "<-")
	if !found {
		return PollutionDecl{}, fmt.Errorf("invalid pollution %q: expected \"a <- b\"", s)
	}
	dst = trimTag(dst)
	fields := strings.Fields(src)
	p := PollutionDecl{Dst: dst, SrcMutable: true}
	switch {
	case len(fields) == 1:
		p.Src = trimTag(fields[0])
	case len(fields) == 2 && (fields[0] == "mut" || fields[0] == "imut"):
		p.SrcMutable = fields[0] == "mut"
		p.Src = trimTag(fields[1])
	default:
		return PollutionDecl{}, fmt.Errorf("invalid pollution source in %q", s)
	}
	if p.Dst == "" || p.Src == "" {
		return PollutionDecl{}, fmt.Errorf("invalid pollution %q: empty tag", s)
	}
	return p, nil
}

func trimTag(s string) string {
	return strings.Trim(strings.TrimSpace(s), "'")
}

// A Signature is the declared interface of a function: parameters, return type and reference annotations.
type Signature struct {
	Name   string
	Kind   FuncKind
	Params []Param

	// Result is the return type, nil or Void for functions returning nothing
	Result Type

	// ReturnsReference is true if the function returns a reference, ReturnMutable gives its mutability
	ReturnsReference bool
	ReturnMutable    bool

	// ReturnTag is the tag of the returned reference; empty means the default mapping
	ReturnTag string

	// ReturnInnerTags are the tags of the references inside a returned value. With ReturnContinuous, the last tag
	// repeats for the remaining reference tags of the result type.
	ReturnInnerTags  []string
	ReturnContinuous bool

	Pollution []PollutionDecl

	Pos Pos
}

// ReturnsValue returns true if the function returns a non-void value
func (s *Signature) ReturnsValue() bool {
	return s.ReturnsReference || !IsVoid(s.Result)
}

func (s *Signature) String() string {
	var b strings.Builder
	b.WriteString("fn ")
	b.WriteString(s.Name)
	b.WriteString("(")
	for i, p := range s.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Type.String())
		if p.Reference {
			b.WriteString(" &")
			b.WriteString(mutString(p.Mutable))
			if p.Tag != "" {
				b.WriteString(" '" + p.Tag)
			}
		} else if p.Mutable {
			b.WriteString(" mut")
		}
		b.WriteString(" " + p.Name)
	}
	b.WriteString(")")
	if s.ReturnsValue() {
		b.WriteString(" : ")
		b.WriteString(s.Result.String())
		if s.ReturnsReference {
			b.WriteString(" &" + mutString(s.ReturnMutable))
		}
	}
	return b.String()
}

func mutString(m bool) string {
	if m {
		return "mut"
	}
	return "imut"
}

// A Function is a signature with a body
type Function struct {
	Sig  *Signature
	Body *Block

	// Unsafe is true for functions declared unsafe; their whole body is an unsafe block
	Unsafe bool

	Pos Pos
}

// Name returns the name of the function
func (f *Function) Name() string {
	if f.Sig == nil {
		return ""
	}
	return f.Sig.Name
}
