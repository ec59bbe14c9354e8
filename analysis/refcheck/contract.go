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

package refcheck

import (
	"fmt"
	"sort"
	"strings"

	"github.com/awslabs/ar-refcheck/analysis/lang"
	"golang.org/x/exp/slices"
)

// ArgReference is the tag index that designates the reference of a parameter passed by reference, as opposed to
// the references stored inside its value
const ArgReference = -1

// A TagRef designates either the reference of parameter Arg (Tag is ArgReference) or the reference with index Tag
// inside the value of parameter Arg
type TagRef struct {
	Arg int
	Tag int
}

func (r TagRef) String() string {
	if r.Tag == ArgReference {
		return fmt.Sprintf("arg%d", r.Arg)
	}
	return fmt.Sprintf("arg%d.%d", r.Arg, r.Tag)
}

func (r TagRef) less(o TagRef) bool {
	return r.Arg < o.Arg || (r.Arg == o.Arg && r.Tag < o.Tag)
}

// A Pollution allows a function to make the inner references of Dst reach what Src reaches
type Pollution struct {
	Dst        TagRef
	Src        TagRef
	SrcMutable bool
}

func (p Pollution) String() string {
	m := "imut"
	if p.SrcMutable {
		m = "mut"
	}
	return fmt.Sprintf("%s <- %s %s", p.Dst, m, p.Src)
}

// A Contract is the reference behavior of a function as declared by its signature: which parameters the result may
// refer to, and which parameters may be polluted with references to other parameters.
type Contract struct {
	Name   string
	Params []lang.Param

	ReturnsReference bool
	ReturnMutable    bool
	ReturnType       lang.Type

	// ReturnReferences are the parameter references the result may refer to, sorted
	ReturnReferences []TagRef

	// Pollution is sorted by destination then source
	Pollution []Pollution
}

// AllowsReturn returns true if the result may refer to r
func (c *Contract) AllowsReturn(r TagRef) bool {
	return slices.Contains(c.ReturnReferences, r)
}

// AllowsPollution returns true if the function may store in dst references to what src reaches, regardless of
// mutability
func (c *Contract) AllowsPollution(dst, src TagRef) bool {
	for _, p := range c.Pollution {
		if p.Dst == dst && p.Src == src {
			return true
		}
	}
	return false
}

// ReturnsInnerReferences returns true if the function returns a value that holds references
func (c *Contract) ReturnsInnerReferences() bool {
	return !c.ReturnsReference && c.ReturnType != nil && c.ReturnType.ReferenceTagCount() > 0
}

func (c *Contract) String() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteString(": return")
	for _, r := range c.ReturnReferences {
		b.WriteString(" " + r.String())
	}
	if len(c.Pollution) > 0 {
		b.WriteString("; pollution")
		for _, p := range c.Pollution {
			b.WriteString(" " + p.String())
		}
	}
	return b.String()
}

// DeriveContract computes the contract of a function from the reference tags of its signature. Errors in the tags
// are returned as diagnostics; the contract is still usable, without the erroneous parts.
func DeriveContract(sig *lang.Signature) (*Contract, []Diagnostic) {
	d := &contractDeriver{sig: sig}
	c := &Contract{
		Name:             sig.Name,
		Params:           sig.Params,
		ReturnsReference: sig.ReturnsReference,
		ReturnMutable:    sig.ReturnMutable,
		ReturnType:       sig.Result,
	}
	for i := range sig.Params {
		d.checkTagCount(sig.Params[i])
	}
	c.ReturnReferences = d.returnReferences()
	c.Pollution = d.pollution()
	return c, d.diagnostics
}

type contractDeriver struct {
	sig         *lang.Signature
	diagnostics []Diagnostic
}

func (d *contractDeriver) report(kind DiagnosticKind, pos lang.Pos, format string, args ...any) {
	if !pos.IsValid() {
		pos = d.sig.Pos
	}
	d.diagnostics = append(d.diagnostics, Diagnostic{Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...)})
}

func (d *contractDeriver) checkTagCount(p lang.Param) {
	if len(p.InnerTags) == 0 || p.Type == nil {
		return
	}
	if !validTagCount(p.InnerTags, p.Continuous, p.Type.ReferenceTagCount()) {
		d.report(InvalidReferenceTagCount, p.Pos, "%d reference tags given for %s, expected %d",
			len(p.InnerTags), p.Name, p.Type.ReferenceTagCount())
	}
}

func validTagCount(tags []string, continuous bool, count int) bool {
	if continuous && len(tags) > 0 {
		return len(tags)-1 <= count
	}
	return len(tags) == count
}

// expandTags returns the tag of each of the count references inside a value
func expandTags(tags []string, continuous bool, count int) []string {
	if !continuous || len(tags) == 0 {
		return tags
	}
	regular := len(tags) - 1
	res := slices.Clone(tags[:regular])
	for i := regular; i < count; i++ {
		res = append(res, tags[regular])
	}
	return res
}

func innerTagsOf(p lang.Param) []string {
	count := 0
	if p.Type != nil {
		count = p.Type.ReferenceTagCount()
	}
	return expandTags(p.InnerTags, p.Continuous, count)
}

// references returns the parameter references named by tag, and whether the tag is declared at all
func (d *contractDeriver) references(tag string) ([]TagRef, bool) {
	var res []TagRef
	declared := false
	for i, p := range d.sig.Params {
		if p.Reference && p.Tag == tag {
			res = append(res, TagRef{Arg: i, Tag: ArgReference})
		}
		for j, t := range innerTagsOf(p) {
			if t == tag {
				res = append(res, TagRef{Arg: i, Tag: j})
			}
		}
		if slices.Contains(p.InnerTags, tag) {
			declared = true
		}
	}
	return res, declared || len(res) > 0
}

func (d *contractDeriver) returnReferences() []TagRef {
	sig := d.sig
	set := map[TagRef]bool{}
	switch {
	case sig.ReturnsReference && sig.ReturnTag != "":
		refs, declared := d.references(sig.ReturnTag)
		if !declared {
			d.report(NameNotFound, sig.Pos, "return reference tag %q not found in parameters", sig.ReturnTag)
		}
		for _, r := range refs {
			set[r] = true
		}
	case !sig.ReturnsReference && len(sig.ReturnInnerTags) > 0 && sig.Result != nil:
		count := sig.Result.ReferenceTagCount()
		if !validTagCount(sig.ReturnInnerTags, sig.ReturnContinuous, count) {
			d.report(InvalidReferenceTagCount, sig.Pos, "%d reference tags given for the result, expected %d",
				len(sig.ReturnInnerTags), count)
		}
		for _, tag := range expandTags(sig.ReturnInnerTags, sig.ReturnContinuous, count) {
			refs, declared := d.references(tag)
			if !declared {
				d.report(NameNotFound, sig.Pos, "result reference tag %q not found in parameters", tag)
			}
			for _, r := range refs {
				set[r] = true
			}
		}
	}

	// without tags, the result may refer to any reference parameter, but not to their inner references
	returnsRefs := sig.ReturnsReference || (sig.Result != nil && sig.Result.ReferenceTagCount() > 0)
	if returnsRefs && len(set) == 0 {
		for i, p := range sig.Params {
			if p.Reference {
				set[TagRef{Arg: i, Tag: ArgReference}] = true
			}
		}
	}
	return sortedTagRefs(set)
}

func (d *contractDeriver) pollution() []Pollution {
	sig := d.sig
	var res []Pollution
	switch sig.Kind {
	case lang.CopyConstructor, lang.CopyAssignment:
		if len(sig.Pollution) > 0 {
			kind := ExplicitReferencePollutionForCopyConstructor
			if sig.Kind == lang.CopyAssignment {
				kind = ExplicitReferencePollutionForCopyAssignmentOperator
			}
			d.report(kind, sig.Pollution[0].Pos, "explicit reference pollution for %s", sig.Kind)
		}
		if len(sig.Params) >= 2 && sig.Params[0].Type != nil && sig.Params[0].Type.ReferenceTagCount() > 0 {
			res = append(res, Pollution{
				Dst:        TagRef{Arg: 0, Tag: 0},
				Src:        TagRef{Arg: 1, Tag: 0},
				SrcMutable: true,
			})
		}
		return res
	}

	seen := map[Pollution]bool{}
	for _, decl := range sig.Pollution {
		if decl.Dst == decl.Src {
			d.report(SelfReferencePollution, decl.Pos, "self reference pollution %s", decl)
			continue
		}
		dsts, dstDeclared := d.references(decl.Dst)
		srcs, srcDeclared := d.references(decl.Src)
		if !dstDeclared {
			d.report(NameNotFound, decl.Pos, "pollution tag %q not found in parameters", decl.Dst)
		}
		if !srcDeclared {
			d.report(NameNotFound, decl.Pos, "pollution tag %q not found in parameters", decl.Src)
		}
		for _, dst := range dsts {
			if dst.Tag == ArgReference {
				d.report(ArgReferencePollution, decl.Pos, "pollution %s of the reference of parameter %s",
					decl, sig.Params[dst.Arg].Name)
				continue
			}
			for _, src := range srcs {
				p := Pollution{Dst: dst, Src: src, SrcMutable: decl.SrcMutable}
				if !seen[p] {
					seen[p] = true
					res = append(res, p)
				}
			}
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Dst != res[j].Dst {
			return res[i].Dst.less(res[j].Dst)
		}
		if res[i].Src != res[j].Src {
			return res[i].Src.less(res[j].Src)
		}
		return !res[i].SrcMutable && res[j].SrcMutable
	})
	return res
}

func sortedTagRefs(set map[TagRef]bool) []TagRef {
	res := make([]TagRef, 0, len(set))
	for r := range set {
		res = append(res, r)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].less(res[j]) })
	return res
}
