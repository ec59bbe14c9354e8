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
	"errors"
	"strings"
	"testing"

	"golang.org/x/exp/slices"
)

func newTestGraph() (*Registry, *AliasGraph) {
	reg := NewRegistry()
	return reg, NewAliasGraph(reg)
}

func addNode(t *testing.T, g *AliasGraph, kind NodeKind, name string) NodeID {
	id := g.Registry().NewNode(kind, name)
	if err := g.AddNode(id); err != nil {
		t.Fatalf("failed to add node %s: %v", name, err)
	}
	return id
}

func mustLink(t *testing.T, g *AliasGraph, from, to NodeID) {
	if err := g.Link(from, to); err != nil {
		t.Fatalf("failed to link %d -> %d: %v", from, to, err)
	}
}

func errorKind(err error) DiagnosticKind {
	var ge *GraphError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return -1
}

func TestAddNodeTwice(t *testing.T) {
	_, g := newTestGraph()
	x := addNode(t, g, KindVariable, "x")
	if err := g.AddNode(x); errorKind(err) != InternalInconsistency {
		t.Errorf("expected InternalInconsistency when adding a node twice, got %v", err)
	}
	if err := g.AddNode(42); errorKind(err) != InternalInconsistency {
		t.Errorf("expected InternalInconsistency when adding an unknown node, got %v", err)
	}
}

func TestLinkExclusivityQueries(t *testing.T) {
	_, g := newTestGraph()
	x := addNode(t, g, KindVariable, "x")
	y := addNode(t, g, KindVariable, "y")
	a := addNode(t, g, KindMutableReference, "a")
	b := addNode(t, g, KindImmutableReference, "b")

	mustLink(t, g, x, a)
	mustLink(t, g, y, b)

	if !g.HasOutgoingLinks(x) || !g.HasOutgoingMutableLinks(x) {
		t.Errorf("x should have a mutable outgoing link")
	}
	if !g.HasOutgoingLinks(y) || g.HasOutgoingMutableLinks(y) {
		t.Errorf("y should only have an immutable outgoing link")
	}
	if g.HasOutgoingLinks(a) {
		t.Errorf("nothing refers to a")
	}
	if out := g.Outgoing(x); !slices.Equal(out, []NodeID{a}) {
		t.Errorf("expected outgoing [a], got %v", out)
	}
	if in := g.Incoming(b); !slices.Equal(in, []NodeID{y}) {
		t.Errorf("expected incoming [y], got %v", in)
	}
	if err := g.Link(a, x); errorKind(err) != InternalInconsistency {
		t.Errorf("linking to a variable should fail, got %v", err)
	}

	g.Unlink(x, a)
	if g.HasOutgoingLinks(x) || len(g.Incoming(a)) != 0 {
		t.Errorf("unlink should remove both directions")
	}
	if p := g.Validate(); len(p) != 0 {
		t.Errorf("unexpected problems: %v", p)
	}
}

func TestRemoveNodeRelinks(t *testing.T) {
	_, g := newTestGraph()
	x := addNode(t, g, KindVariable, "x")
	r1 := addNode(t, g, KindMutableReference, "r1")
	r2 := addNode(t, g, KindImmutableReference, "r2")
	mustLink(t, g, x, r1)
	mustLink(t, g, r1, r2)

	if err := g.RemoveNode(r1); err != nil {
		t.Fatalf("unexpected error removing a reference: %v", err)
	}
	if g.Contains(r1) {
		t.Errorf("r1 should be removed")
	}
	if out := g.Outgoing(x); !slices.Equal(out, []NodeID{r2}) {
		t.Errorf("r2 should refer to x after removing r1, got %v", out)
	}
	if p := g.Validate(); len(p) != 0 {
		t.Errorf("unexpected problems: %v", p)
	}
}

func TestRemoveReferencedVariable(t *testing.T) {
	_, g := newTestGraph()
	x := addNode(t, g, KindVariable, "x")
	r := addNode(t, g, KindImmutableReference, "r")
	mustLink(t, g, x, r)

	err := g.RemoveNode(x)
	if errorKind(err) != DestroyedVariableStillHaveReferences {
		t.Errorf("expected DestroyedVariableStillHaveReferences, got %v", err)
	}
	if g.Contains(x) || len(g.Incoming(r)) != 0 {
		t.Errorf("the node should be removed anyway")
	}
	if err := g.RemoveNode(x); errorKind(err) != InternalInconsistency {
		t.Errorf("removing a missing node should be an internal inconsistency, got %v", err)
	}
}

func TestRemoveNodeRemovesInnerReference(t *testing.T) {
	reg, g := newTestGraph()
	s := addNode(t, g, KindVariable, "s")
	v := addNode(t, g, KindVariable, "v")
	inner := reg.NewInnerNode(s, KindImmutableReference)
	if err := g.SetInnerReference(s, inner); err != nil {
		t.Fatal(err)
	}
	mustLink(t, g, v, inner)

	if err := g.RemoveNode(s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Contains(inner) || g.HasOutgoingLinks(v) {
		t.Errorf("inner reference of s should be removed with s")
	}
}

func TestMoveNode(t *testing.T) {
	_, g := newTestGraph()
	x := addNode(t, g, KindVariable, "x")
	y := addNode(t, g, KindVariable, "y")
	r := addNode(t, g, KindImmutableReference, "r")
	mustLink(t, g, y, r)

	if err := g.MoveNode(x); err != nil {
		t.Fatalf("unexpected error moving x: %v", err)
	}
	if !g.IsMoved(x) {
		t.Errorf("x should be moved")
	}
	if err := g.MoveNode(x); errorKind(err) != AccessingMovedVariable {
		t.Errorf("expected AccessingMovedVariable, got %v", err)
	}
	if err := g.MoveNode(y); errorKind(err) != MovedVariableStillHaveReferences {
		t.Errorf("expected MovedVariableStillHaveReferences, got %v", err)
	}
	if g.IsMoved(y) {
		t.Errorf("a failed move should not change the graph")
	}
	if err := g.MoveNode(r); errorKind(err) != InternalInconsistency {
		t.Errorf("moving a reference should fail, got %v", err)
	}
	if g.IsMoved(99) {
		t.Errorf("unknown nodes are not moved")
	}
}

func TestClonePersistence(t *testing.T) {
	reg, g := newTestGraph()
	x := addNode(t, g, KindVariable, "x")
	c := g.Clone()
	r := reg.NewNode(KindMutableReference, "r")
	if err := c.AddNode(r); err != nil {
		t.Fatal(err)
	}
	mustLink(t, c, x, r)
	if err := c.RemoveNode(r); err != nil {
		t.Fatal(err)
	}
	if err := c.MoveNode(x); err != nil {
		t.Fatal(err)
	}

	if g.Contains(r) || g.IsMoved(x) || g.HasOutgoingLinks(x) {
		t.Errorf("modifying a clone should not modify the original graph")
	}
	if g.Equal(c) {
		t.Errorf("graphs should differ")
	}
	if !g.Equal(g.Clone()) {
		t.Errorf("a clone should be equal to its original")
	}
}

func TestReachableVariables(t *testing.T) {
	_, g := newTestGraph()
	x := addNode(t, g, KindVariable, "x")
	y := addNode(t, g, KindVariable, "y")
	z := addNode(t, g, KindVariable, "z")
	r1 := addNode(t, g, KindMutableReference, "r1")
	r2 := addNode(t, g, KindImmutableReference, "r2")
	mustLink(t, g, x, r1)
	mustLink(t, g, r1, r2)
	mustLink(t, g, y, r2)

	if vs := g.ReachableVariables(r2); !slices.Equal(vs, []NodeID{x, y}) {
		t.Errorf("expected r2 to reach [x y], got %v", vs)
	}
	if vs := g.ReachableVariables(r1); !slices.Equal(vs, []NodeID{x}) {
		t.Errorf("expected r1 to reach [x], got %v", vs)
	}
	if vs := g.ReachableVariables(z); !slices.Equal(vs, []NodeID{z}) {
		t.Errorf("a variable reaches itself, got %v", vs)
	}
}

func TestReachableInnerReferences(t *testing.T) {
	reg, g := newTestGraph()
	s := addNode(t, g, KindVariable, "s")
	v := addNode(t, g, KindVariable, "v")
	r := addNode(t, g, KindImmutableReference, "r")
	sInner := reg.NewInnerNode(s, KindMutableReference)
	vInner := reg.NewInnerNode(v, KindImmutableReference)
	if err := g.SetInnerReference(s, sInner); err != nil {
		t.Fatal(err)
	}
	mustLink(t, g, s, r)

	if irs := g.ReachableInnerReferences(r); !slices.Equal(irs, []NodeID{sInner}) {
		t.Errorf("expected [%d], got %v", sInner, irs)
	}
	if err := g.SetInnerReference(v, vInner); err != nil {
		t.Fatal(err)
	}
	mustLink(t, g, v, sInner)
	if irs := g.ReachableInnerReferences(r); !slices.Equal(irs, []NodeID{sInner, vInner}) {
		t.Errorf("expected [%d %d], got %v", sInner, vInner, irs)
	}
	if err := g.SetInnerReference(s, vInner); errorKind(err) != InternalInconsistency {
		t.Errorf("a node has at most one inner reference, got %v", err)
	}
}

func TestGraphviz(t *testing.T) {
	_, g := newTestGraph()
	x := addNode(t, g, KindVariable, "x")
	r := addNode(t, g, KindMutableReference, "r")
	mustLink(t, g, x, r)
	out := g.Graphviz()
	for _, expected := range []string{"digraph", `"x"`, `"r"`, "n0 -> n1"} {
		if !strings.Contains(out, expected) {
			t.Errorf("expected %q in\n%s", expected, out)
		}
	}
}
