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

	"github.com/awslabs/ar-refcheck/analysis/lang"
)

// DestroyReason tells why a destruction event is emitted
type DestroyReason int

const (
	ScopeExit DestroyReason = iota
	Return
	Break
	Continue
	Temporary
	BranchMoveCompensation
)

func (r DestroyReason) String() string {
	switch r {
	case ScopeExit:
		return "scope-exit"
	case Return:
		return "return"
	case Break:
		return "break"
	case Continue:
		return "continue"
	case Temporary:
		return "temporary"
	case BranchMoveCompensation:
		return "branch-move-compensation"
	default:
		return fmt.Sprintf("DestroyReason(%d)", int(r))
	}
}

// A DestroyEvent tells the code generator to run the destructor of a value at some program point. Events are
// produced in the order the destructors must run.
type DestroyEvent struct {
	Node   NodeID
	Name   string
	Type   lang.Type
	Pos    lang.Pos
	Reason DestroyReason
}

func (e DestroyEvent) String() string {
	return fmt.Sprintf("%s: destroy %s %s (%s)", e.Pos, e.Type, e.Name, e.Reason)
}

type frameEntry struct {
	node NodeID
	typ  lang.Type
	pos  lang.Pos
}

// A Frame holds the nodes declared directly in one lexical block, in declaration order
type Frame struct {
	entries []frameEntry
}

// Nodes returns the nodes of the frame in registration order
func (f *Frame) Nodes() []NodeID {
	res := make([]NodeID, len(f.entries))
	for i, e := range f.entries {
		res[i] = e.node
	}
	return res
}

// Len returns the number of nodes registered in the frame
func (f *Frame) Len() int {
	return len(f.entries)
}

// A branchState is the graph at the end of a path that joins others, with the position where the path ends
type branchState struct {
	graph *AliasGraph
	pos   lang.Pos
}

// A loopRecord is an active loop: the depth of the scope stack when the loop was entered, and the states at each
// break and continue of the body.
type loopRecord struct {
	depth          int
	breakStates    []branchState
	continueStates []branchState
}

// A ScopeStack is the stack of frames of the lexical blocks enclosing the current program point, with the loops
// they belong to.
type ScopeStack struct {
	frames []*Frame
	loops  []*loopRecord
}

// NewScopeStack returns an empty stack
func NewScopeStack() *ScopeStack {
	return &ScopeStack{}
}

// Push opens a new innermost frame
func (s *ScopeStack) Push() *Frame {
	f := &Frame{}
	s.frames = append(s.frames, f)
	return f
}

// Pop closes the innermost frame and returns it
func (s *ScopeStack) Pop() *Frame {
	if len(s.frames) == 0 {
		panic("pop of empty scope stack")
	}
	f := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	return f
}

// Top returns the innermost frame
func (s *ScopeStack) Top() *Frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

// Depth returns the number of frames
func (s *ScopeStack) Depth() int {
	return len(s.frames)
}

// Register adds the node to the innermost frame
func (s *ScopeStack) Register(node NodeID, typ lang.Type, pos lang.Pos) {
	f := s.Top()
	f.entries = append(f.entries, frameEntry{node: node, typ: typ, pos: pos})
}

// RegisterBelow adds the node to the frame under the innermost one. Used for variables declared by a statement that
// evaluates in its own temporary frame.
func (s *ScopeStack) RegisterBelow(node NodeID, typ lang.Type, pos lang.Pos) {
	if len(s.frames) < 2 {
		s.Register(node, typ, pos)
		return
	}
	f := s.frames[len(s.frames)-2]
	f.entries = append(f.entries, frameEntry{node: node, typ: typ, pos: pos})
}

// EnterLoop records that the frames pushed from now on belong to a loop body
func (s *ScopeStack) EnterLoop() {
	s.loops = append(s.loops, &loopRecord{depth: len(s.frames)})
}

// ExitLoop ends the innermost loop and returns its record
func (s *ScopeStack) ExitLoop() *loopRecord {
	l := s.loops[len(s.loops)-1]
	s.loops = s.loops[:len(s.loops)-1]
	return l
}

// InLoop returns true if the current program point is inside a loop body
func (s *ScopeStack) InLoop() bool {
	return len(s.loops) > 0
}

func (s *ScopeStack) currentLoop() *loopRecord {
	if len(s.loops) == 0 {
		return nil
	}
	return s.loops[len(s.loops)-1]
}

// LoopFrames returns the frames entered since the innermost loop started, innermost first. These are the frames a
// break or a continue leaves.
func (s *ScopeStack) LoopFrames() []*Frame {
	l := s.currentLoop()
	if l == nil {
		return nil
	}
	return s.framesAbove(l.depth)
}

// AllFrames returns every frame, innermost first. These are the frames a return leaves.
func (s *ScopeStack) AllFrames() []*Frame {
	return s.framesAbove(0)
}

func (s *ScopeStack) framesAbove(depth int) []*Frame {
	var res []*Frame
	for i := len(s.frames) - 1; i >= depth; i-- {
		res = append(res, s.frames[i])
	}
	return res
}

// Unwind removes the nodes of the frames from the graph, visiting frames in the given order and each frame in
// reverse registration order. It returns a destruction event, at pos, for every variable that is not moved and whose
// type has a destructor, and a violation for every variable that is still referenced when it is removed.
// Nodes that are not in the graph anymore are skipped.
func Unwind(g *AliasGraph, frames []*Frame, pos lang.Pos, reason DestroyReason) ([]DestroyEvent, []Violation) {
	var events []DestroyEvent
	var violations []Violation
	for _, f := range frames {
		for i := len(f.entries) - 1; i >= 0; i-- {
			e := f.entries[i]
			if !g.Contains(e.node) {
				continue
			}
			if !g.IsMoved(e.node) && g.reg.Kind(e.node) == KindVariable && e.typ != nil && e.typ.HasDestructor() {
				events = append(events, DestroyEvent{
					Node:   e.node,
					Name:   g.reg.Name(e.node),
					Type:   e.typ,
					Pos:    pos,
					Reason: reason,
				})
			}
			if err := g.RemoveNode(e.node); err != nil {
				violations = append(violations, violationOf(err, e.node))
			}
		}
	}
	return events, violations
}

// release removes the nodes of the frames without any check. Used on paths that have already returned.
func release(g *AliasGraph, frames ...*Frame) {
	for _, f := range frames {
		for i := len(f.entries) - 1; i >= 0; i-- {
			if n := f.entries[i].node; g.Contains(n) {
				_ = g.RemoveNode(n)
			}
		}
	}
}

func violationOf(err error, node NodeID) Violation {
	if ge, ok := err.(*GraphError); ok {
		return Violation{Kind: ge.Kind, Node: ge.Node, Msg: ge.Msg}
	}
	return Violation{Kind: InternalInconsistency, Node: node, Msg: err.Error()}
}
