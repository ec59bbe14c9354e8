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
	"bytes"
	"fmt"

	"github.com/awslabs/ar-refcheck/internal/graphutil"
	"github.com/benbjohnson/immutable"
	"golang.org/x/exp/slices"
	"golang.org/x/tools/container/intsets"
)

// nodeState is the state of a live node in one snapshot. The slices are shared between snapshots and must never be
// modified in place.
type nodeState struct {
	moved bool

	// inner is the inner reference node of this node, or NoNode
	inner NodeID

	// out are the references that refer to this node, sorted
	out []NodeID

	// in are the nodes this reference refers to, sorted
	in []NodeID
}

type nodeIDComparer struct{}

func (nodeIDComparer) Compare(a, b NodeID) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// An AliasGraph is the reference-safety state at one program point: the set of live nodes, whether they have been
// moved, and the links between them. A link (from, to) means that the reference `to` refers to `from`; the outgoing
// links of a node are the references that currently point to it.
//
// The graph is persistent: Clone is O(1) and the clones share structure with the original. All the mutating methods
// only affect the receiver.
type AliasGraph struct {
	reg   *Registry
	nodes *immutable.SortedMap[NodeID, nodeState]
}

// NewAliasGraph returns an empty graph for nodes of the registry reg
func NewAliasGraph(reg *Registry) *AliasGraph {
	return &AliasGraph{
		reg:   reg,
		nodes: immutable.NewSortedMap[NodeID, nodeState](nodeIDComparer{}),
	}
}

// Registry returns the registry the nodes of the graph belong to
func (g *AliasGraph) Registry() *Registry {
	return g.reg
}

// Clone returns a copy of the graph. Modifying the copy does not modify g.
func (g *AliasGraph) Clone() *AliasGraph {
	return &AliasGraph{reg: g.reg, nodes: g.nodes}
}

// Len returns the number of live nodes
func (g *AliasGraph) Len() int {
	return g.nodes.Len()
}

// Contains returns true if the node is live in the graph
func (g *AliasGraph) Contains(id NodeID) bool {
	_, ok := g.nodes.Get(id)
	return ok
}

// Nodes returns the live nodes in increasing order
func (g *AliasGraph) Nodes() []NodeID {
	res := make([]NodeID, 0, g.nodes.Len())
	g.forEach(func(id NodeID, _ nodeState) { res = append(res, id) })
	return res
}

func (g *AliasGraph) forEach(f func(NodeID, nodeState)) {
	itr := g.nodes.Iterator()
	for !itr.Done() {
		id, st, _ := itr.Next()
		f(id, st)
	}
}

func (g *AliasGraph) state(id NodeID) (nodeState, bool) {
	return g.nodes.Get(id)
}

func (g *AliasGraph) setState(id NodeID, st nodeState) {
	g.nodes = g.nodes.Set(id, st)
}

// AddNode adds a fresh node, not moved and without links
func (g *AliasGraph) AddNode(id NodeID) error {
	if !g.reg.valid(id) {
		return newGraphError(InternalInconsistency, id, "node %d does not belong to the registry", id)
	}
	if g.Contains(id) {
		return newGraphError(InternalInconsistency, id, "node %s already in graph", g.reg.Node(id))
	}
	g.setState(id, nodeState{inner: NoNode})
	return nil
}

// RemoveNode removes the node from the graph. Its inner reference is removed first. Every reference that referred
// to the node is linked to the nodes the removed node referred to, such that removing an intermediate reference
// preserves what other references alias.
// Removing a variable that still has outgoing links returns a DestroyedVariableStillHaveReferences error; the node is
// removed regardless.
func (g *AliasGraph) RemoveNode(id NodeID) error {
	st, ok := g.state(id)
	if !ok {
		return newGraphError(InternalInconsistency, id, "removing node %s not in graph", g.reg.Node(id))
	}
	var err error
	if g.reg.Kind(id) == KindVariable && !st.moved && len(st.out) > 0 {
		err = newGraphError(DestroyedVariableStillHaveReferences, id,
			"destroyed variable %q still has references", g.reg.Name(id))
	}
	if st.inner != NoNode && g.Contains(st.inner) {
		g.RemoveNode(st.inner)
		st, _ = g.state(id)
	}

	for _, from := range st.in {
		for _, to := range st.out {
			if from != to {
				g.addLink(from, to)
			}
		}
	}
	g.dropLinks(id)

	if owner, isInner := g.reg.OwnerOf(id); isInner {
		if ost, ok := g.state(owner); ok && ost.inner == id {
			ost.inner = NoNode
			g.setState(owner, ost)
		}
	}
	g.nodes = g.nodes.Delete(id)
	return err
}

// Link records that the reference `to` now refers to `from`. The caller must check exclusivity before linking.
func (g *AliasGraph) Link(from, to NodeID) error {
	if !g.Contains(from) || !g.Contains(to) {
		return newGraphError(InternalInconsistency, from, "linking %s to %s: node not in graph",
			g.reg.Node(from), g.reg.Node(to))
	}
	if !g.reg.Kind(to).IsReference() {
		return newGraphError(InternalInconsistency, to, "linking to %s which is not a reference", g.reg.Node(to))
	}
	if from == to {
		return newGraphError(InternalInconsistency, from, "linking %s to itself", g.reg.Node(from))
	}
	g.addLink(from, to)
	return nil
}

func (g *AliasGraph) addLink(from, to NodeID) {
	fst, _ := g.state(from)
	if slices.Contains(fst.out, to) {
		return
	}
	fst.out = insertSorted(fst.out, to)
	g.setState(from, fst)
	tst, _ := g.state(to)
	tst.in = insertSorted(tst.in, from)
	g.setState(to, tst)
}

// Unlink removes the link (from, to) if it exists
func (g *AliasGraph) Unlink(from, to NodeID) {
	fst, ok := g.state(from)
	if !ok || !slices.Contains(fst.out, to) {
		return
	}
	fst.out = removeSorted(fst.out, to)
	g.setState(from, fst)
	if tst, ok := g.state(to); ok {
		tst.in = removeSorted(tst.in, from)
		g.setState(to, tst)
	}
}

// UnlinkAll removes all the links from and to the node
func (g *AliasGraph) UnlinkAll(id NodeID) {
	if g.Contains(id) {
		g.dropLinks(id)
	}
}

func (g *AliasGraph) dropLinks(id NodeID) {
	st, _ := g.state(id)
	for _, from := range st.in {
		g.Unlink(from, id)
	}
	for _, to := range st.out {
		g.Unlink(id, to)
	}
}

// HasOutgoingLinks returns true if some reference refers to the node. A new mutable reference to the node can only be
// created when this is false.
func (g *AliasGraph) HasOutgoingLinks(id NodeID) bool {
	st, ok := g.state(id)
	return ok && len(st.out) > 0
}

// HasOutgoingMutableLinks returns true if some mutable reference refers to the node. A new immutable reference to
// the node can only be created when this is false.
func (g *AliasGraph) HasOutgoingMutableLinks(id NodeID) bool {
	st, ok := g.state(id)
	if !ok {
		return false
	}
	for _, to := range st.out {
		if g.reg.Kind(to) == KindMutableReference {
			return true
		}
	}
	return false
}

// Outgoing returns the references that refer to the node
func (g *AliasGraph) Outgoing(id NodeID) []NodeID {
	st, _ := g.state(id)
	return slices.Clone(st.out)
}

// Incoming returns the nodes the reference refers to
func (g *AliasGraph) Incoming(id NodeID) []NodeID {
	st, _ := g.state(id)
	return slices.Clone(st.in)
}

// IsMoved returns true if the node has been moved. Unknown nodes are not moved.
func (g *AliasGraph) IsMoved(id NodeID) bool {
	st, ok := g.state(id)
	return ok && st.moved
}

// MoveNode marks the variable as moved. Moving an already moved variable returns an AccessingMovedVariable error, and
// moving a variable that some reference refers to returns a MovedVariableStillHaveReferences error; in both cases
// the graph is unchanged.
// After a move the node has no inner reference and no links.
func (g *AliasGraph) MoveNode(id NodeID) error {
	st, ok := g.state(id)
	if !ok {
		return newGraphError(InternalInconsistency, id, "moving node %s not in graph", g.reg.Node(id))
	}
	if g.reg.Kind(id) != KindVariable {
		return newGraphError(InternalInconsistency, id, "moving %s which is not a variable", g.reg.Node(id))
	}
	if st.moved {
		return newGraphError(AccessingMovedVariable, id, "variable %q already moved", g.reg.Name(id))
	}
	if len(st.out) > 0 {
		return newGraphError(MovedVariableStillHaveReferences, id,
			"moved variable %q still has references", g.reg.Name(id))
	}
	g.consume(id)
	return nil
}

// consume marks the node as moved without checking anything, and drops its inner reference and links. Used for
// temporaries that have been destroyed before the end of their frame.
func (g *AliasGraph) consume(id NodeID) {
	st, ok := g.state(id)
	if !ok {
		return
	}
	if st.inner != NoNode && g.Contains(st.inner) {
		g.RemoveNode(st.inner)
	}
	g.dropLinks(id)
	st, _ = g.state(id)
	st.moved = true
	st.inner = NoNode
	g.setState(id, st)
}

// InnerReference returns the inner reference node of the node, if it has one
func (g *AliasGraph) InnerReference(id NodeID) (NodeID, bool) {
	st, ok := g.state(id)
	if !ok || st.inner == NoNode {
		return NoNode, false
	}
	return st.inner, true
}

// SetInnerReference adds the node inner to the graph as the inner reference of id. A node has at most one inner
// reference.
func (g *AliasGraph) SetInnerReference(id NodeID, inner NodeID) error {
	st, ok := g.state(id)
	if !ok {
		return newGraphError(InternalInconsistency, id, "setting inner reference of %s not in graph", g.reg.Node(id))
	}
	if st.inner != NoNode {
		return newGraphError(InternalInconsistency, id, "%s already has an inner reference", g.reg.Node(id))
	}
	if !g.reg.Kind(inner).IsReference() {
		return newGraphError(InternalInconsistency, inner, "inner reference %s is not a reference", g.reg.Node(inner))
	}
	if err := g.AddNode(inner); err != nil {
		return err
	}
	st.inner = inner
	g.setState(id, st)
	return nil
}

// sourcesView is the graph seen as a graph.Iterator where each node is adjacent to the nodes it refers to
type sourcesView struct {
	g *AliasGraph
}

func (v sourcesView) Order() int {
	return v.g.reg.Len()
}

func (v sourcesView) Visit(n int, do func(w int, c int64) bool) bool {
	st, ok := v.g.state(NodeID(n))
	if !ok {
		return false
	}
	for _, w := range st.in {
		if do(int(w), 1) {
			return true
		}
	}
	return false
}

// ReachableVariables returns all the variables the node may alias: the node itself if it is a variable, and all the
// variables reachable by following the links backwards, transitively. The result is sorted.
func (g *AliasGraph) ReachableVariables(id NodeID) []NodeID {
	if !g.Contains(id) {
		return nil
	}
	var res []NodeID
	if g.reg.Kind(id) == KindVariable {
		res = append(res, id)
	}
	for _, w := range graphutil.ReachableFrom(sourcesView{g}, int(id)) {
		if NodeID(w) != id && g.reg.Kind(NodeID(w)) == KindVariable {
			res = append(res, NodeID(w))
		}
	}
	slices.Sort(res)
	return res
}

// ReachableInnerReferences returns the inner reference nodes reachable from the node: its own inner reference, and
// the inner references of every node it refers to, transitively. The result is sorted.
func (g *AliasGraph) ReachableInnerReferences(id NodeID) []NodeID {
	if !g.Contains(id) {
		return nil
	}
	var visited, result intsets.Sparse
	stack := []NodeID{id}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visited.Insert(int(n)) {
			continue
		}
		st, ok := g.state(n)
		if !ok {
			continue
		}
		if st.inner != NoNode {
			result.Insert(int(st.inner))
			stack = append(stack, st.inner)
		}
		stack = append(stack, st.in...)
	}
	return toNodeIDs(&result)
}

// Equal returns true if the two graphs have the same live nodes with the same states
func (g *AliasGraph) Equal(o *AliasGraph) bool {
	if g.nodes.Len() != o.nodes.Len() {
		return false
	}
	eq := true
	g.forEach(func(id NodeID, st nodeState) {
		ost, ok := o.state(id)
		if !ok || ost.moved != st.moved || ost.inner != st.inner ||
			!slices.Equal(ost.out, st.out) || !slices.Equal(ost.in, st.in) {
			eq = false
		}
	})
	return eq
}

// Validate returns the list of invariant violations of the graph: links to nodes that are not live, inconsistent
// link sets, and cycles of references. An empty result means the graph is well-formed.
func (g *AliasGraph) Validate() []string {
	var problems []string
	g.forEach(func(id NodeID, st nodeState) {
		for _, to := range st.out {
			tst, ok := g.state(to)
			if !ok || !slices.Contains(tst.in, id) {
				problems = append(problems, fmt.Sprintf("link %s -> %s is not mirrored", g.reg.Node(id), g.reg.Node(to)))
			}
		}
		for _, from := range st.in {
			if !g.Contains(from) {
				problems = append(problems, fmt.Sprintf("%s refers to dead node %d", g.reg.Node(id), from))
			}
		}
		if st.moved && (len(st.out) > 0 || len(st.in) > 0) {
			problems = append(problems, fmt.Sprintf("moved node %s has links", g.reg.Node(id)))
		}
	})
	for _, c := range graphutil.Cycles(sourcesView{g}) {
		problems = append(problems, fmt.Sprintf("reference cycle through %v", c))
	}
	return problems
}

// String returns a debug representation of the graph, one live node per line
func (g *AliasGraph) String() string {
	var b bytes.Buffer
	g.forEach(func(id NodeID, st nodeState) {
		b.WriteString(g.reg.Node(id).String())
		if st.moved {
			b.WriteString(" moved")
		}
		if st.inner != NoNode {
			fmt.Fprintf(&b, " inner=%d", st.inner)
		}
		if len(st.out) > 0 {
			fmt.Fprintf(&b, " out=%v", st.out)
		}
		b.WriteString("\n")
	})
	return b.String()
}

func insertSorted(s []NodeID, x NodeID) []NodeID {
	res := make([]NodeID, 0, len(s)+1)
	inserted := false
	for _, y := range s {
		if !inserted && x < y {
			res = append(res, x)
			inserted = true
		}
		res = append(res, y)
	}
	if !inserted {
		res = append(res, x)
	}
	return res
}

func removeSorted(s []NodeID, x NodeID) []NodeID {
	res := make([]NodeID, 0, len(s))
	for _, y := range s {
		if y != x {
			res = append(res, y)
		}
	}
	return res
}

func toNodeIDs(s *intsets.Sparse) []NodeID {
	ints := s.AppendTo(nil)
	res := make([]NodeID, len(ints))
	for i, x := range ints {
		res[i] = NodeID(x)
	}
	return res
}
