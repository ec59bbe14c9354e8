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
	"github.com/awslabs/ar-refcheck/analysis/lang"
	"golang.org/x/exp/slices"
)

func (s *functionState) DoVarRef(e *lang.VarRef) exprValue {
	b, ok := s.lookup(e.Name)
	if !ok {
		s.report(NameNotFound, e.Pos, nil, "%q not found", e.Name)
		return noValue(nil)
	}
	if s.graph.IsMoved(b.node) {
		s.report(AccessingMovedVariable, e.Pos, []NodeID{b.node}, "accessing moved variable %q", e.Name)
		return noValue(b.typ)
	}
	cat := catImmutRef
	if b.kind == lang.DeclMutableRef || (b.kind == lang.DeclValue && b.mutable) {
		cat = catMutRef
	}
	return exprValue{node: b.node, cat: cat, typ: b.typ}
}

func (s *functionState) DoMove(e *lang.Move) exprValue {
	b, ok := s.lookup(e.Name)
	if !ok {
		s.report(NameNotFound, e.Pos, nil, "%q not found", e.Name)
		return noValue(nil)
	}
	if b.kind.IsReference() {
		s.report(ExpectedVariable, e.Pos, []NodeID{b.node}, "moving reference %q, expected a variable", e.Name)
		return noValue(b.typ)
	}
	if s.graph.IsMoved(b.node) {
		s.report(AccessingMovedVariable, e.Pos, []NodeID{b.node}, "moving already moved variable %q", e.Name)
		return noValue(b.typ)
	}
	if s.graph.HasOutgoingLinks(b.node) {
		s.report(MovedVariableStillHaveReferences, e.Pos, []NodeID{b.node}, "moved variable %q still has references",
			e.Name)
		return noValue(b.typ)
	}
	tmp := s.newTemporary(KindVariable, "_moved_"+e.Name, b.typ, e.Pos)
	if inner, ok := s.graph.InnerReference(b.node); ok {
		tmpInner := s.reg.NewInnerNode(tmp, s.reg.Kind(inner))
		if s.check(s.graph.SetInnerReference(tmp, tmpInner), e.Pos) {
			s.check(s.graph.Link(inner, tmpInner), e.Pos)
		}
	}
	s.check(s.graph.MoveNode(b.node), e.Pos)
	return exprValue{node: tmp, cat: catValue, typ: b.typ}
}

func (s *functionState) DoLiteral(e *lang.Literal) exprValue {
	return noValue(e.Type)
}

func (s *functionState) DoMember(e *lang.Member) exprValue {
	base := s.eval(e.X)
	if base.node == NoNode {
		return noValue(e.Type)
	}
	if !e.Reference {
		return exprValue{node: base.node, cat: base.cat, typ: e.Type}
	}
	r := s.newTemporary(referenceKind(e.Mutable), "."+e.Field, nil, e.Pos)
	for _, inner := range s.graph.ReachableInnerReferences(base.node) {
		s.linkProtected(inner, r, e.Pos)
	}
	cat := catImmutRef
	if e.Mutable && base.cat != catImmutRef {
		cat = catMutRef
	}
	return exprValue{node: r, cat: cat, typ: e.Type}
}

func (s *functionState) DoLogical(e *lang.Logical) exprValue {
	s.eval(e.L)
	leftOnly := s.graph.Clone()
	s.eval(e.R)
	s.merge([]branchState{{graph: leftOnly, pos: e.Pos}, {graph: s.graph, pos: e.Pos}}, e.Pos)
	return noValue(lang.Bool)
}

func (s *functionState) DoSelect(e *lang.Select) exprValue {
	s.eval(e.Cond)
	if e.Kind.IsReference() {
		return s.referenceSelect(e)
	}

	// The result is in the graph of both branches, each branch moving its value into it before the join. It joins
	// the frame only after the merge: the calls of the branches must not destroy it.
	res := s.newNode(KindVariable, "select_result", e.Type)
	base := s.graph
	var branches []branchState
	for _, x := range []lang.Expr{e.Then, e.Else} {
		s.graph = base.Clone()
		s.initializeValue(res, s.eval(x), e.Type, e.Pos)
		branches = append(branches, branchState{graph: s.graph, pos: x.Position()})
	}
	s.merge(branches, e.Pos)
	s.stack.Register(res, e.Type, e.Pos)
	return exprValue{node: res, cat: catValue, typ: e.Type}
}

func (s *functionState) referenceSelect(e *lang.Select) exprValue {
	kind, cat := KindImmutableReference, catImmutRef
	if e.Kind == lang.DeclMutableRef {
		kind, cat = KindMutableReference, catMutRef
	}

	base := s.graph
	s.graph = base.Clone()
	then := s.eval(e.Then)
	thenState := s.graph
	s.graph = base.Clone()
	els := s.eval(e.Else)
	s.merge([]branchState{{graph: thenState, pos: e.Then.Position()}, {graph: s.graph, pos: e.Else.Position()}},
		e.Pos)

	// both branches are checked against the joined state before any of them is linked
	var sources []NodeID
	for _, v := range []exprValue{then, els} {
		switch {
		case v.cat == catValue:
			s.report(ExpectedReferenceValue, e.Pos, nil, "branch of reference select is not a reference")
		case cat == catMutRef && v.cat == catImmutRef:
			s.report(BindingConstReferenceToNonconstReference, e.Pos, []NodeID{v.node},
				"immutable %q in mutable reference select", s.reg.Name(v.node))
		case v.node != NoNode && !slices.Contains(sources, v.node):
			if s.checkProtection(v.node, cat == catMutRef, e.Pos) {
				sources = append(sources, v.node)
			}
		}
	}
	res := s.newTemporary(kind, "select_result", e.Type, e.Pos)
	for _, src := range sources {
		s.check(s.graph.Link(src, res), e.Pos)
	}
	return exprValue{node: res, cat: cat, typ: e.Type}
}

func (s *functionState) DoCast(e *lang.Cast) exprValue {
	x := s.eval(e.X)
	if s.unsafeDepth == 0 {
		if e.Unsafe {
			s.report(UnsafeReferenceCastOutsideUnsafeBlock, e.Pos, nil, "unsafe reference cast outside unsafe block")
		} else if e.Mutable {
			s.report(MutableReferenceCastOutsideUnsafeBlock, e.Pos, nil, "mutable reference cast outside unsafe block")
		}
	}
	res := exprValue{node: x.node, cat: x.cat, typ: e.Type}
	if x.cat != catValue {
		res.cat = catImmutRef
		if e.Mutable {
			res.cat = catMutRef
		}
	}
	return res
}
