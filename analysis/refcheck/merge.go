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

	"golang.org/x/exp/slices"
	"golang.org/x/tools/container/intsets"
)

// A Compensation is a node that is moved in some branches of a merge but still alive at the end of branch Branch.
// The value must be destroyed at the end of that branch, since it will be considered moved after the join.
type Compensation struct {
	Branch int
	Node   NodeID
}

// A Violation is a rule violation detected by comparing snapshots, attached to one node
type Violation struct {
	Kind DiagnosticKind
	Node NodeID
	Msg  string
}

type link struct {
	from, to NodeID
}

// Merge reconciles the snapshots of sibling branches that join at the same program point. The result contains the
// union of the nodes and links of the branches. A node moved in any branch is moved in the result; for every branch
// where such a node is still alive, a Compensation is returned. Inner references that the branches attached
// independently to the same node are unified, the mutable one being kept when kinds differ.
// Merge returns a ReferenceProtectionError violation for every node that would be referred to by more than one
// mutable reference, or by mutable and immutable references, after the join; and for every node that is referred to
// mutably in one branch but not in another branch where both the node and the reference are alive. A reference
// created by a single branch, like an inner reference unified at the join, holds no link in the other branches.
// The branches are not modified.
func Merge(branches []*AliasGraph) (*AliasGraph, []Compensation, []Violation) {
	if len(branches) == 0 {
		panic("merge of zero branches")
	}
	if len(branches) == 1 {
		return branches[0].Clone(), nil, nil
	}
	reg := branches[0].reg

	var all, moved intsets.Sparse
	for _, b := range branches {
		b.forEach(func(id NodeID, st nodeState) {
			all.Insert(int(id))
			if st.moved {
				moved.Insert(int(id))
			}
		})
	}

	replace := unifyInnerReferences(reg, branches, &moved)

	var compensations []Compensation
	for i, b := range branches {
		b.forEach(func(id NodeID, st nodeState) {
			if !st.moved && moved.Has(int(id)) {
				compensations = append(compensations, Compensation{Branch: i, Node: id})
			}
		})
	}

	merged := NewAliasGraph(reg)
	for _, x := range all.AppendTo(nil) {
		id := NodeID(x)
		if _, replaced := replace[id]; replaced {
			continue
		}
		if owner, isInner := reg.OwnerOf(id); isInner && moved.Has(int(owner)) {
			continue
		}
		st := nodeState{inner: NoNode, moved: moved.Has(x)}
		if !st.moved {
			for _, b := range branches {
				if bst, ok := b.state(id); ok && bst.inner != NoNode {
					st.inner = mapNode(replace, bst.inner)
					break
				}
			}
		}
		merged.setState(id, st)
	}

	// links of each branch, after replacement of the unified inner references, with the reference node each link
	// had in the branch
	branchLinks := make([]map[link]NodeID, len(branches))
	for i, b := range branches {
		branchLinks[i] = map[link]NodeID{}
		b.forEach(func(id NodeID, st nodeState) {
			from := mapNode(replace, id)
			for _, to := range st.out {
				l := link{from, mapNode(replace, to)}
				if l.from == l.to || !isAlive(merged, l.from) || !isAlive(merged, l.to) {
					continue
				}
				branchLinks[i][l] = to
				merged.addLink(l.from, l.to)
			}
		})
	}

	var violations []Violation
	var reported intsets.Sparse
	report := func(id NodeID, msg string) {
		if reported.Insert(int(id)) {
			violations = append(violations, Violation{Kind: ReferenceProtectionError, Node: id, Msg: msg})
		}
	}

	merged.forEach(func(id NodeID, st nodeState) {
		mut, imut := 0, 0
		for _, to := range st.out {
			if reg.Kind(to) == KindMutableReference {
				mut++
			} else {
				imut++
			}
		}
		if mut > 1 || (mut > 0 && imut > 0) {
			report(id, fmt.Sprintf("%q would be referenced by %d mutable and %d immutable references after the join",
				reg.Name(id), mut, imut))
		}
	})

	for i := range branches {
		for l, to := range branchLinks[i] {
			if reg.Kind(l.to) != KindMutableReference {
				continue
			}
			for j, other := range branches {
				if j == i || !isAlive(other, l.from) || !isAlive(other, to) {
					continue
				}
				if _, ok := branchLinks[j][l]; ok {
					continue
				}
				report(l.from, fmt.Sprintf("%q is referenced mutably in one branch but not in another",
					reg.Name(l.from)))
			}
		}
	}
	sort.Slice(violations, func(i, j int) bool { return violations[i].Node < violations[j].Node })

	return merged, compensations, violations
}

// unifyInnerReferences returns the replacement of inner reference nodes created independently by different branches
// for the same owner. The replacement node is mutable if any of the replaced nodes is mutable.
func unifyInnerReferences(reg *Registry, branches []*AliasGraph, moved *intsets.Sparse) map[NodeID]NodeID {
	inners := map[NodeID][]NodeID{}
	var owners []NodeID
	for _, b := range branches {
		b.forEach(func(id NodeID, st nodeState) {
			if st.inner == NoNode || moved.Has(int(id)) {
				return
			}
			if _, ok := inners[id]; !ok {
				owners = append(owners, id)
			}
			if !slices.Contains(inners[id], st.inner) {
				inners[id] = append(inners[id], st.inner)
			}
		})
	}
	replace := map[NodeID]NodeID{}
	for _, owner := range owners {
		candidates := inners[owner]
		if len(candidates) < 2 {
			continue
		}
		canonical := candidates[0]
		for _, c := range candidates {
			if reg.Kind(c) == KindMutableReference {
				canonical = c
				break
			}
		}
		for _, c := range candidates {
			if c != canonical {
				replace[c] = canonical
			}
		}
	}
	return replace
}

func mapNode(replace map[NodeID]NodeID, id NodeID) NodeID {
	if r, ok := replace[id]; ok {
		return r
	}
	return id
}

func isAlive(g *AliasGraph, id NodeID) bool {
	st, ok := g.state(id)
	return ok && !st.moved
}

// CheckLoop compares the snapshot before a loop body with the snapshot after one pass of the body. Every node alive
// before the loop must be in the same state after it, since the body may run any number of times:
//   - a node moved by the body is an OuterVariableMoveInsideLoop violation,
//   - a node that gained a mutable reference is a MutableReferencePollutionOfOuterLoopVariable violation,
//   - any other change of the references to the node is an OuterLoopVariableAliasingChanged violation.
//
// The check is a single pass: the body is not analyzed again with the state of the end of the first pass.
func CheckLoop(before, after *AliasGraph) []Violation {
	reg := before.reg
	var violations []Violation
	before.forEach(func(id NodeID, st nodeState) {
		ast, ok := after.state(id)
		if st.moved || !ok {
			return
		}
		if ast.moved {
			violations = append(violations, Violation{Kind: OuterVariableMoveInsideLoop, Node: id,
				Msg: fmt.Sprintf("outer variable %q moved inside loop", reg.Name(id))})
			return
		}
		for _, to := range ast.out {
			if reg.Kind(to) == KindMutableReference && !slices.Contains(st.out, to) {
				violations = append(violations, Violation{Kind: MutableReferencePollutionOfOuterLoopVariable,
					Node: id, Msg: fmt.Sprintf("outer variable %q gained a mutable reference inside loop", reg.Name(id))})
				return
			}
		}
		if !slices.Equal(st.out, ast.out) {
			violations = append(violations, Violation{Kind: OuterLoopVariableAliasingChanged, Node: id,
				Msg: fmt.Sprintf("references to outer variable %q changed inside loop", reg.Name(id))})
		}
	})
	return violations
}
