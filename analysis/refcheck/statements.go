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
)

// DoBlock checks the statements of a block in a new frame. Statements after a statement that terminates the path
// are not checked.
func (s *functionState) DoBlock(b *lang.Block) {
	s.stack.Push()
	s.pushNames()
	for _, st := range b.Stmts {
		if s.terminated {
			break
		}
		lang.StmtSwitch(s, st)
		if s.logger.LogsTrace() {
			s.logger.Tracef("%s: after %T\n%s", st.Position(), st, s.graph.Graphviz())
			for _, problem := range s.graph.Validate() {
				s.logger.Warnf("%s: inconsistent alias graph: %s", st.Position(), problem)
			}
		}
	}
	f := s.stack.Pop()
	s.popNames()
	if s.terminated {
		release(s.graph, f)
	} else {
		s.unwind([]*Frame{f}, b.End, ScopeExit)
	}
}

// inTemporaryFrame runs f in a frame for the temporaries of one statement, destroyed when f returns
func (s *functionState) inTemporaryFrame(pos lang.Pos, f func()) {
	s.stack.Push()
	f()
	frame := s.stack.Pop()
	if s.terminated {
		release(s.graph, frame)
	} else {
		s.unwind([]*Frame{frame}, pos, Temporary)
	}
}

func (s *functionState) eval(e lang.Expr) exprValue {
	return lang.ExprSwitch[exprValue](s, e)
}

func (s *functionState) DoVarDecl(d *lang.VarDecl) {
	s.inTemporaryFrame(d.Pos, func() {
		var node NodeID
		if d.Kind.IsReference() {
			node = s.declareReference(d)
		} else {
			node = s.declareValue(d)
		}
		s.stack.RegisterBelow(node, d.Type, d.Pos)
		s.bind(d.Name, binding{node: node, kind: d.Kind, mutable: d.Mutable, typ: d.Type})
	})
}

func (s *functionState) declareReference(d *lang.VarDecl) NodeID {
	mutable := d.Kind == lang.DeclMutableRef
	var init exprValue
	if d.Init != nil {
		init = s.eval(d.Init)
	} else {
		init = noValue(d.Type)
	}
	node := s.newNode(referenceKind(mutable), d.Name, d.Type)
	switch {
	case init.cat == catValue:
		s.report(ExpectedReferenceValue, d.Pos, []NodeID{node}, "reference %q must be initialized with a reference",
			d.Name)
	case mutable && init.cat == catImmutRef:
		s.report(BindingConstReferenceToNonconstReference, d.Pos, []NodeID{node},
			"binding immutable reference to mutable reference %q", d.Name)
	case init.node != NoNode:
		s.linkProtected(init.node, node, d.Pos)
	}
	return node
}

func (s *functionState) declareValue(d *lang.VarDecl) NodeID {
	var init exprValue
	if d.Init != nil {
		init = s.eval(d.Init)
	} else {
		init = noValue(d.Type)
	}
	node := s.newNode(KindVariable, d.Name, d.Type)
	s.initializeValue(node, init, d.Type, d.Pos)
	return node
}

// initializeValue copies or moves src into the variable dst, with the references src holds inside
func (s *functionState) initializeValue(dst NodeID, src exprValue, typ lang.Type, pos lang.Pos) {
	if src.node == NoNode || !s.graph.Contains(src.node) {
		return
	}
	sources := s.graph.ReachableInnerReferences(src.node)
	if src.isTemporary() {
		s.linkInnerReferences(dst, sources, pos)
		s.check(s.graph.MoveNode(src.node), pos)
		return
	}
	if typ != nil && !typ.IsCopyConstructible() {
		s.report(CopyOfNonCopyableType, pos, []NodeID{src.node}, "copying %q of non copyable type %s",
			s.reg.Name(src.node), typ)
		return
	}
	if !s.checkProtection(src.node, false, pos) {
		return
	}
	if typ != nil && typ.ReferenceTagCount() > 0 {
		s.linkInnerReferences(dst, sources, pos)
	}
}

func (s *functionState) DoAssign(a *lang.Assign) {
	s.inTemporaryFrame(a.Pos, func() {
		src := s.eval(a.Src)
		lock := NoNode
		if src.node != NoNode && !src.isTemporary() {
			lock = s.newNode(KindImmutableReference, "assignment source lock", nil)
			s.linkProtected(src.node, lock, a.Pos)
			if src.typ != nil && !src.typ.HasDestructor() && src.typ.ReferenceTagCount() == 0 {
				// plain content is read before the destination is evaluated
				s.check(s.graph.RemoveNode(lock), a.Pos)
				lock = NoNode
			}
		}
		dst := s.eval(a.Dst)
		switch {
		case dst.cat == catValue:
			s.report(ExpectedReferenceValue, a.Pos, nil, "assignment to a value")
		case dst.cat == catImmutRef:
			s.report(BindingConstReferenceToNonconstReference, a.Pos, []NodeID{dst.node},
				"assignment through immutable reference %q", s.reg.Name(dst.node))
		case dst.node != NoNode && s.graph.HasOutgoingLinks(dst.node):
			s.report(ReferenceProtectionError, a.Pos, []NodeID{dst.node},
				"assignment to %q which is referenced", s.reg.Name(dst.node))
		case dst.node != NoNode && src.node != NoNode:
			if !src.isTemporary() && src.typ != nil && !src.typ.IsCopyConstructible() {
				s.report(CopyOfNonCopyableType, a.Pos, []NodeID{src.node}, "copying %q of non copyable type %s",
					s.reg.Name(src.node), src.typ)
			}
			if dst.typ != nil && dst.typ.ReferenceTagCount() > 0 {
				s.linkInnerReferences(dst.node, s.graph.ReachableInnerReferences(src.node), a.Pos)
			}
			if src.isTemporary() {
				s.check(s.graph.MoveNode(src.node), a.Pos)
			}
		}
		if lock != NoNode && s.graph.Contains(lock) {
			s.check(s.graph.RemoveNode(lock), a.Pos)
		}
	})
}

func (s *functionState) DoExprStmt(e *lang.ExprStmt) {
	s.inTemporaryFrame(e.Pos, func() {
		s.eval(e.X)
	})
}

func (s *functionState) DoReturn(r *lang.Return) {
	s.stack.Push()
	switch {
	case r.Value == nil:
	case s.contract.ReturnsReference:
		s.returnReference(r)
	default:
		s.returnValue(r)
	}
	s.checkPollution(r.Pos)
	s.unwind(s.stack.AllFrames(), r.Pos, Return)
	s.stack.Pop()
	s.terminated = true
}

func (s *functionState) returnReference(r *lang.Return) {
	val := s.eval(r.Value)
	switch {
	case val.cat == catValue:
		s.report(ExpectedReferenceValue, r.Pos, nil, "returning a value from a function returning a reference")
		return
	case s.contract.ReturnMutable && val.cat == catImmutRef:
		s.report(BindingConstReferenceToNonconstReference, r.Pos, []NodeID{val.node},
			"returning immutable reference %q as a mutable reference", s.reg.Name(val.node))
	}
	if val.node == NoNode {
		return
	}
	s.checkEscape(val.node, r.Pos)
}

func (s *functionState) returnValue(r *lang.Return) {
	val := s.eval(r.Value)
	if val.node == NoNode {
		return
	}
	if s.contract.ReturnsInnerReferences() {
		for _, inner := range s.graph.ReachableInnerReferences(val.node) {
			s.checkEscape(inner, r.Pos)
		}
	}
	if val.isTemporary() {
		s.check(s.graph.MoveNode(val.node), r.Pos)
	} else if val.typ != nil && !val.typ.IsCopyConstructible() {
		s.report(CopyOfNonCopyableType, r.Pos, []NodeID{val.node}, "returning a copy of %q of non copyable type %s",
			s.reg.Name(val.node), val.typ)
	}
}

// checkEscape reports every variable node may refer to that the function is not allowed to return
func (s *functionState) checkEscape(node NodeID, pos lang.Pos) {
	for _, v := range s.graph.ReachableVariables(node) {
		if !s.allowed.Has(int(v)) {
			s.report(ReturningUnallowedReference, pos, []NodeID{v}, "returning unallowed reference to %q",
				s.reg.Name(v))
		}
	}
}

func (s *functionState) DoIf(st *lang.If) {
	var live []branchState
	conditionState := s.graph
	for _, br := range st.Branches {
		s.graph = conditionState.Clone()
		if br.Cond != nil {
			s.inTemporaryFrame(br.Pos, func() {
				s.eval(br.Cond)
			})
			conditionState = s.graph
			s.graph = conditionState.Clone()
		}
		s.terminated = false
		s.DoBlock(br.Body)
		if !s.terminated {
			live = append(live, branchState{graph: s.graph, pos: br.Body.End})
		}
	}
	if !st.HasElse() {
		live = append(live, branchState{graph: conditionState, pos: st.End})
	}
	s.terminated = len(live) == 0
	if s.terminated {
		s.graph = conditionState
		return
	}
	s.merge(live, st.Pos)
}

func (s *functionState) DoStaticIf(st *lang.StaticIf) {
	for _, br := range st.Branches {
		if br.Else || br.Cond {
			s.DoBlock(br.Body)
			return
		}
	}
}

func (s *functionState) DoWhile(w *lang.While) {
	before := s.graph.Clone()
	s.inTemporaryFrame(w.Pos, func() {
		s.eval(w.Cond)
	})
	afterCondition := s.graph.Clone()

	s.stack.EnterLoop()
	s.DoBlock(w.Body)
	loop := s.stack.ExitLoop()
	if !s.terminated {
		loop.continueStates = append(loop.continueStates, branchState{graph: s.graph, pos: w.Body.End})
	}
	for _, st := range loop.continueStates {
		s.reportViolations(CheckLoop(before, st.graph), st.pos)
	}
	s.terminated = false
	s.graph = afterCondition
	s.merge(append(loop.breakStates, branchState{graph: afterCondition, pos: w.Pos}), w.Pos)
}

func (s *functionState) DoFor(f *lang.For) {
	s.stack.Push()
	s.pushNames()
	if f.Init != nil {
		lang.StmtSwitch(s, f.Init)
	}
	before := s.graph.Clone()
	if f.Cond != nil {
		s.inTemporaryFrame(f.Pos, func() {
			s.eval(f.Cond)
		})
	}
	afterCondition := s.graph.Clone()

	s.stack.EnterLoop()
	s.DoBlock(f.Body)
	loop := s.stack.ExitLoop()
	if !s.terminated {
		loop.continueStates = append(loop.continueStates, branchState{graph: s.graph, pos: f.Body.End})
	}
	s.terminated = false
	if len(loop.continueStates) > 0 {
		s.merge(loop.continueStates, f.Body.End)
		if f.Step != nil {
			lang.StmtSwitch(s, f.Step)
		}
		s.reportViolations(CheckLoop(before, s.graph), f.Body.End)
	}
	s.graph = afterCondition
	s.merge(append(loop.breakStates, branchState{graph: afterCondition, pos: f.Pos}), f.Pos)

	frame := s.stack.Pop()
	s.popNames()
	s.unwind([]*Frame{frame}, f.Body.End, ScopeExit)
}

func (s *functionState) DoBreak(b *lang.Break) {
	loop := s.stack.currentLoop()
	if loop == nil {
		s.report(BreakOutsideLoop, b.Pos, nil, "break outside loop")
		return
	}
	s.unwind(s.stack.LoopFrames(), b.Pos, Break)
	loop.breakStates = append(loop.breakStates, branchState{graph: s.graph.Clone(), pos: b.Pos})
	s.terminated = true
}

func (s *functionState) DoContinue(c *lang.Continue) {
	loop := s.stack.currentLoop()
	if loop == nil {
		s.report(ContinueOutsideLoop, c.Pos, nil, "continue outside loop")
		return
	}
	s.unwind(s.stack.LoopFrames(), c.Pos, Continue)
	loop.continueStates = append(loop.continueStates, branchState{graph: s.graph.Clone(), pos: c.Pos})
	s.terminated = true
}

func (s *functionState) DoUnsafeBlock(u *lang.UnsafeBlock) {
	s.unsafeDepth++
	s.DoBlock(u.Body)
	s.unsafeDepth--
}
