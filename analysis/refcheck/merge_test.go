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
	"testing"

	"golang.org/x/exp/slices"
)

func TestMergeMovedInOneBranch(t *testing.T) {
	_, base := newTestGraph()
	x := addNode(t, base, KindVariable, "x")
	y := addNode(t, base, KindVariable, "y")

	moved := base.Clone()
	if err := moved.MoveNode(x); err != nil {
		t.Fatal(err)
	}
	merged, compensations, violations := Merge([]*AliasGraph{moved, base.Clone()})

	if !merged.IsMoved(x) {
		t.Errorf("x moved in one branch should be moved after the merge")
	}
	if merged.IsMoved(y) {
		t.Errorf("y moved in no branch should not be moved after the merge")
	}
	if len(violations) != 0 {
		t.Errorf("unexpected violations %v", violations)
	}
	expected := []Compensation{{Branch: 1, Node: x}}
	if !slices.Equal(compensations, expected) {
		t.Errorf("expected compensations %v, got %v", expected, compensations)
	}
}

func TestMergeUnionOfImmutableLinks(t *testing.T) {
	_, base := newTestGraph()
	x := addNode(t, base, KindVariable, "x")
	r1 := addNode(t, base, KindImmutableReference, "r1")
	r2 := addNode(t, base, KindImmutableReference, "r2")

	b1, b2 := base.Clone(), base.Clone()
	mustLink(t, b1, x, r1)
	mustLink(t, b2, x, r2)
	merged, _, violations := Merge([]*AliasGraph{b1, b2})

	if len(violations) != 0 {
		t.Errorf("immutable links from different branches do not conflict, got %v", violations)
	}
	if out := merged.Outgoing(x); !slices.Equal(out, []NodeID{r1, r2}) {
		t.Errorf("expected union of links [r1 r2], got %v", out)
	}
}

func TestMergeMutableLinkInOneBranch(t *testing.T) {
	_, base := newTestGraph()
	x := addNode(t, base, KindVariable, "x")
	r := addNode(t, base, KindMutableReference, "r")

	b1, b2 := base.Clone(), base.Clone()
	mustLink(t, b1, x, r)
	_, _, violations := Merge([]*AliasGraph{b1, b2})
	if len(violations) != 1 || violations[0].Kind != ReferenceProtectionError || violations[0].Node != x {
		t.Errorf("expected one ReferenceProtectionError on x, got %v", violations)
	}
}

func TestMergeMutableLinkToBranchReference(t *testing.T) {
	_, base := newTestGraph()
	x := addNode(t, base, KindVariable, "x")

	b1, b2 := base.Clone(), base.Clone()
	r := addNode(t, b1, KindMutableReference, "r")
	mustLink(t, b1, x, r)
	merged, _, violations := Merge([]*AliasGraph{b1, b2})
	if len(violations) != 0 {
		t.Errorf("a reference that only exists in one branch does not conflict, got %v", violations)
	}
	if out := merged.Outgoing(x); !slices.Equal(out, []NodeID{r}) {
		t.Errorf("expected x to stay referenced by r, got %v", out)
	}
}

func TestMergeMutableInnerReferencesOfDifferentSources(t *testing.T) {
	reg, base := newTestGraph()
	s := addNode(t, base, KindVariable, "s")
	x := addNode(t, base, KindVariable, "x")
	y := addNode(t, base, KindVariable, "y")

	b1, b2 := base.Clone(), base.Clone()
	i1 := reg.NewInnerNode(s, KindMutableReference)
	i2 := reg.NewInnerNode(s, KindMutableReference)
	if err := b1.SetInnerReference(s, i1); err != nil {
		t.Fatal(err)
	}
	if err := b2.SetInnerReference(s, i2); err != nil {
		t.Fatal(err)
	}
	mustLink(t, b1, x, i1)
	mustLink(t, b2, y, i2)

	merged, _, violations := Merge([]*AliasGraph{b1, b2})
	if len(violations) != 0 {
		t.Errorf("each source is referenced once by the unified inner reference, got %v", violations)
	}
	if in := merged.Incoming(i1); !slices.Equal(in, []NodeID{x, y}) {
		t.Errorf("expected the unified inner reference to refer to [x y], got %v", in)
	}
}

func TestMergeSameMutableLink(t *testing.T) {
	_, base := newTestGraph()
	x := addNode(t, base, KindVariable, "x")
	r := addNode(t, base, KindMutableReference, "r")
	mustLink(t, base, x, r)

	merged, _, violations := Merge([]*AliasGraph{base.Clone(), base.Clone(), base.Clone()})
	if len(violations) != 0 {
		t.Errorf("the same mutable link in every branch is not a conflict, got %v", violations)
	}
	if !merged.Equal(base) {
		t.Errorf("merging identical branches should give the same graph:\n%s\n%s", merged, base)
	}
}

func TestMergeTwoMutableLinks(t *testing.T) {
	_, base := newTestGraph()
	x := addNode(t, base, KindVariable, "x")
	r1 := addNode(t, base, KindMutableReference, "r1")
	r2 := addNode(t, base, KindMutableReference, "r2")

	b1, b2 := base.Clone(), base.Clone()
	mustLink(t, b1, x, r1)
	mustLink(t, b2, x, r2)
	_, _, violations := Merge([]*AliasGraph{b1, b2})
	if len(violations) != 1 {
		t.Errorf("expected exactly one violation for x, got %v", violations)
	}
}

func TestMergeUnifiesInnerReferences(t *testing.T) {
	reg, base := newTestGraph()
	s := addNode(t, base, KindVariable, "s")
	v := addNode(t, base, KindVariable, "v")
	w := addNode(t, base, KindVariable, "w")

	b1, b2 := base.Clone(), base.Clone()
	i1 := reg.NewInnerNode(s, KindImmutableReference)
	i2 := reg.NewInnerNode(s, KindMutableReference)
	if err := b1.SetInnerReference(s, i1); err != nil {
		t.Fatal(err)
	}
	if err := b2.SetInnerReference(s, i2); err != nil {
		t.Fatal(err)
	}
	mustLink(t, b1, v, i1)
	mustLink(t, b2, w, i2)

	merged, _, _ := Merge([]*AliasGraph{b1, b2})
	inner, ok := merged.InnerReference(s)
	if !ok || inner != i2 {
		t.Fatalf("expected the mutable inner reference %d, got %d", i2, inner)
	}
	if merged.Contains(i1) {
		t.Errorf("the replaced inner reference should not be in the merged graph")
	}
	if in := merged.Incoming(i2); !slices.Equal(in, []NodeID{v, w}) {
		t.Errorf("expected the unified inner reference to refer to [v w], got %v", in)
	}
	if p := merged.Validate(); len(p) != 0 {
		t.Errorf("unexpected problems: %v", p)
	}
}

func TestCheckLoop(t *testing.T) {
	_, before := newTestGraph()
	x := addNode(t, before, KindVariable, "x")
	y := addNode(t, before, KindVariable, "y")
	z := addNode(t, before, KindVariable, "z")
	w := addNode(t, before, KindVariable, "w")
	rm := addNode(t, before, KindMutableReference, "rm")
	ri := addNode(t, before, KindImmutableReference, "ri")

	if v := CheckLoop(before, before.Clone()); len(v) != 0 {
		t.Errorf("an unchanged graph has no violations, got %v", v)
	}

	after := before.Clone()
	if err := after.MoveNode(x); err != nil {
		t.Fatal(err)
	}
	mustLink(t, after, y, rm)
	mustLink(t, after, z, ri)
	addNode(t, after, KindVariable, "tmp")

	kinds := map[NodeID]DiagnosticKind{}
	for _, v := range CheckLoop(before, after) {
		kinds[v.Node] = v.Kind
	}
	expected := map[NodeID]DiagnosticKind{
		x: OuterVariableMoveInsideLoop,
		y: MutableReferencePollutionOfOuterLoopVariable,
		z: OuterLoopVariableAliasingChanged,
	}
	if len(kinds) != len(expected) {
		t.Errorf("expected %v, got %v", expected, kinds)
	}
	for n, k := range expected {
		if kinds[n] != k {
			t.Errorf("node %d: expected %s, got %s", n, k, kinds[n])
		}
	}
	if _, ok := kinds[w]; ok {
		t.Errorf("w did not change")
	}
}
