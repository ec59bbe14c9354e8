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
	"sync"
	"time"

	"github.com/awslabs/ar-refcheck/analysis/config"
	"github.com/awslabs/ar-refcheck/analysis/lang"
	"github.com/awslabs/ar-refcheck/internal/funcutil"
	"golang.org/x/exp/slices"
	"golang.org/x/tools/container/intsets"
)

// A Verifier checks function bodies against the reference-safety rules. A Verifier can check functions
// concurrently: each function is checked with its own registry, graph and scope stack, and only the contract cache
// is shared.
type Verifier struct {
	Config *config.Config
	Logger *config.LogGroup

	mu        sync.Mutex
	contracts map[*lang.Signature]contractEntry
}

type contractEntry struct {
	contract    *Contract
	diagnostics []Diagnostic
}

// NewVerifier returns a verifier using the options in cfg. A nil cfg means the default config.
func NewVerifier(cfg *config.Config, logger *config.LogGroup) *Verifier {
	if cfg == nil {
		cfg = config.NewDefault()
	}
	if logger == nil {
		logger = config.NewLogGroup(cfg)
	}
	return &Verifier{
		Config:    cfg,
		Logger:    logger,
		contracts: map[*lang.Signature]contractEntry{},
	}
}

// Contract returns the contract of the signature, derived once per signature
func (v *Verifier) Contract(sig *lang.Signature) (*Contract, []Diagnostic) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if e, ok := v.contracts[sig]; ok {
		return e.contract, e.diagnostics
	}
	c, diags := DeriveContract(sig)
	v.contracts[sig] = contractEntry{contract: c, diagnostics: diags}
	return c, diags
}

// VerifyAll verifies the functions, using up to Config.Parallelism goroutines. The results are in the same order as
// the functions.
func (v *Verifier) VerifyAll(fns []*lang.Function) []*Result {
	start := time.Now()
	results := funcutil.MapParallel(fns, v.Verify, v.Config.Parallelism)
	v.Logger.Debugf("verified %d functions in %3.4f s", len(fns), time.Since(start).Seconds())
	return results
}

// Verify checks the body of fn and returns the diagnostics and destruction events of the function.
func (v *Verifier) Verify(fn *lang.Function) *Result {
	contract, contractDiags := v.Contract(fn.Sig)
	s := newFunctionState(v, fn, contract)
	v.Logger.Debugf("verifying %s", fn.Sig)
	for _, d := range contractDiags {
		s.result.add(d)
	}
	s.seedArguments()
	if fn.Unsafe {
		s.unsafeDepth++
	}
	body := fn.Body
	if body == nil {
		body = &lang.Block{Pos: fn.Pos, End: fn.Pos}
	}
	s.DoBlock(body)

	if !s.terminated {
		if fn.Sig.ReturnsValue() {
			s.report(NoReturnInFunctionReturningNonVoid, body.End, nil,
				"function %s returning a value reaches its end without return", fn.Name())
		}
		s.checkPollution(body.End)
		s.unwind(s.stack.AllFrames(), body.End, ScopeExit)
		s.result.Graph = s.graph
	}
	if v.Logger.LogsDebug() {
		v.Logger.Debugf("%s: %d diagnostics, %d destructions", fn.Name(), len(s.result.Diagnostics),
			len(s.result.Destructions))
	}
	return s.result
}

type valueCategory int

const (
	catValue valueCategory = iota
	catImmutRef
	catMutRef
)

// exprValue is the result of an expression: the node of its storage, if any, and whether it is a temporary value
// or a reference to a location
type exprValue struct {
	node NodeID
	cat  valueCategory
	typ  lang.Type
}

func noValue(t lang.Type) exprValue {
	return exprValue{node: NoNode, cat: catValue, typ: t}
}

// isTemporary returns true for values without a name, that can be moved from
func (e exprValue) isTemporary() bool {
	return e.cat == catValue && e.node != NoNode
}

type binding struct {
	node    NodeID
	kind    lang.DeclKind
	mutable bool
	typ     lang.Type
}

type argument struct {
	node NodeID

	// innerVariable stands for everything the inner references of the argument may refer to
	innerVariable NodeID
}

// functionState is the state of the verification of one function body
type functionState struct {
	v        *Verifier
	logger   *config.LogGroup
	fn       *lang.Function
	contract *Contract

	reg   *Registry
	graph *AliasGraph
	stack *ScopeStack
	names []map[string]binding
	types map[NodeID]lang.Type

	args    []argument
	allowed intsets.Sparse

	unsafeDepth int

	// terminated is true when the current path has returned, or left the loop body
	terminated bool

	result *Result
}

func newFunctionState(v *Verifier, fn *lang.Function, contract *Contract) *functionState {
	reg := NewRegistry()
	return &functionState{
		v:        v,
		logger:   v.Logger,
		fn:       fn,
		contract: contract,
		reg:      reg,
		graph:    NewAliasGraph(reg),
		stack:    NewScopeStack(),
		types:    map[NodeID]lang.Type{},
		result: &Result{
			Function:       fn.Name(),
			Contract:       contract,
			maxDiagnostics: v.Config.MaxDiagnostics,
		},
	}
}

// seedArguments creates the nodes of the parameters in the outermost frame
func (s *functionState) seedArguments() {
	s.stack.Push()
	s.pushNames()
	for _, p := range s.fn.Sig.Params {
		node := s.newNode(KindVariable, p.Name, p.Type)
		arg := argument{node: node, innerVariable: NoNode}
		if !p.Reference {
			s.stack.Register(node, p.Type, p.Pos)
		}
		if p.Type != nil && p.Type.ReferenceTagCount() > 0 {
			arg.innerVariable = s.newNode(KindVariable, p.Name+" inner variable", nil)
			inner := s.reg.NewInnerNode(node, KindMutableReference)
			s.check(s.graph.SetInnerReference(node, inner), p.Pos)
			s.check(s.graph.Link(arg.innerVariable, inner), p.Pos)
		}
		s.args = append(s.args, arg)

		kind := lang.DeclValue
		if p.Reference {
			kind = lang.DeclImmutableRef
			if p.Mutable {
				kind = lang.DeclMutableRef
			}
		}
		s.bind(p.Name, binding{node: node, kind: kind, mutable: p.Mutable, typ: p.Type})
	}

	for _, r := range s.contract.ReturnReferences {
		if r.Arg >= len(s.args) {
			continue
		}
		if r.Tag == ArgReference {
			s.allowed.Insert(int(s.args[r.Arg].node))
		} else if iv := s.args[r.Arg].innerVariable; iv != NoNode {
			s.allowed.Insert(int(iv))
		}
	}
}

// newNode creates a node and adds it to the current graph
func (s *functionState) newNode(kind NodeKind, name string, typ lang.Type) NodeID {
	id := s.reg.NewNode(kind, name)
	_ = s.graph.AddNode(id)
	if typ != nil {
		s.types[id] = typ
	}
	return id
}

// newTemporary creates a node registered in the innermost frame
func (s *functionState) newTemporary(kind NodeKind, name string, typ lang.Type, pos lang.Pos) NodeID {
	id := s.newNode(kind, name, typ)
	s.stack.Register(id, typ, pos)
	return id
}

func (s *functionState) pushNames() {
	s.names = append(s.names, map[string]binding{})
}

func (s *functionState) popNames() {
	s.names = s.names[:len(s.names)-1]
}

func (s *functionState) bind(name string, b binding) {
	s.names[len(s.names)-1][name] = b
}

func (s *functionState) lookup(name string) (binding, bool) {
	for i := len(s.names) - 1; i >= 0; i-- {
		if b, ok := s.names[i][name]; ok {
			return b, true
		}
	}
	return binding{}, false
}

func (s *functionState) report(kind DiagnosticKind, pos lang.Pos, nodes []NodeID, format string, args ...any) {
	d := Diagnostic{Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...)}
	for _, n := range nodes {
		d.Nodes = append(d.Nodes, s.reg.Name(n))
	}
	s.logger.Tracef("%s", d)
	s.result.add(d)
}

func (s *functionState) reportViolations(vs []Violation, pos lang.Pos) {
	for _, v := range vs {
		s.report(v.Kind, pos, []NodeID{v.Node}, "%s", v.Msg)
	}
}

// check reports the error of a graph operation, if any
func (s *functionState) check(err error, pos lang.Pos) bool {
	if err == nil {
		return true
	}
	v := violationOf(err, NoNode)
	var nodes []NodeID
	if v.Node != NoNode {
		nodes = []NodeID{v.Node}
	}
	s.report(v.Kind, pos, nodes, "%s", v.Msg)
	return false
}

// checkProtection reports a ReferenceProtectionError if a new reference with the given mutability cannot refer to
// node, and returns false in that case
func (s *functionState) checkProtection(node NodeID, mutable bool, pos lang.Pos) bool {
	if !s.graph.Contains(node) {
		return false
	}
	if mutable && s.graph.HasOutgoingLinks(node) {
		s.report(ReferenceProtectionError, pos, []NodeID{node},
			"cannot create a mutable reference to %q, it is already referenced", s.reg.Name(node))
		return false
	}
	if !mutable && s.graph.HasOutgoingMutableLinks(node) {
		s.report(ReferenceProtectionError, pos, []NodeID{node},
			"cannot create an immutable reference to %q, it is mutably referenced", s.reg.Name(node))
		return false
	}
	return true
}

// linkProtected links from to the reference to after checking that to may refer to from
func (s *functionState) linkProtected(from, to NodeID, pos lang.Pos) {
	if from == to || !s.graph.Contains(to) {
		return
	}
	if s.checkProtection(from, s.reg.Kind(to) == KindMutableReference, pos) {
		s.check(s.graph.Link(from, to), pos)
	}
}

// linkInnerReferences makes the inner reference of every variable node may refer to, refer to the sources. Missing
// inner references are created, mutable if any source is mutable.
func (s *functionState) linkInnerReferences(node NodeID, sources []NodeID, pos lang.Pos) {
	if len(sources) == 0 || !s.graph.Contains(node) {
		return
	}
	mutable := false
	for _, src := range sources {
		if s.reg.Kind(src) == KindMutableReference {
			mutable = true
		}
	}
	for _, v := range s.graph.ReachableVariables(node) {
		if s.graph.IsMoved(v) {
			continue
		}
		inner, ok := s.graph.InnerReference(v)
		if !ok {
			inner = s.reg.NewInnerNode(v, referenceKind(mutable))
			if !s.check(s.graph.SetInnerReference(v, inner), pos) {
				continue
			}
		} else if mutable && s.reg.Kind(inner) == KindImmutableReference {
			s.report(InnerReferenceMutabilityChanging, pos, []NodeID{v},
				"inner reference of %q is immutable and cannot become mutable", s.reg.Name(v))
			continue
		}
		for _, src := range sources {
			if src != inner && !slices.Contains(s.graph.Incoming(inner), src) {
				s.linkProtected(src, inner, pos)
			}
		}
	}
}

// destroyUnusedTemporaries destroys the values registered in the innermost frame from index start that nothing
// refers to anymore
func (s *functionState) destroyUnusedTemporaries(start int, pos lang.Pos) {
	f := s.stack.Top()
	if f == nil || start >= len(f.entries) {
		return
	}
	for _, e := range f.entries[start:] {
		if !s.graph.Contains(e.node) || s.graph.IsMoved(e.node) || s.graph.HasOutgoingLinks(e.node) {
			continue
		}
		if s.reg.Kind(e.node) != KindVariable {
			continue
		}
		if e.typ != nil && e.typ.HasDestructor() {
			s.result.Destructions = append(s.result.Destructions, DestroyEvent{
				Node:   e.node,
				Name:   s.reg.Name(e.node),
				Type:   e.typ,
				Pos:    pos,
				Reason: Temporary,
			})
		}
		s.graph.consume(e.node)
	}
}

// unwind destroys the nodes of the frames in the current graph
func (s *functionState) unwind(frames []*Frame, pos lang.Pos, reason DestroyReason) {
	events, violations := Unwind(s.graph, frames, pos, reason)
	s.result.Destructions = append(s.result.Destructions, events...)
	s.reportViolations(violations, pos)
}

// merge replaces the current graph by the merge of the states. Values moved in only some of the states are
// destroyed at the end of the other paths.
func (s *functionState) merge(states []branchState, pos lang.Pos) {
	graphs := make([]*AliasGraph, len(states))
	for i, st := range states {
		graphs[i] = st.graph
	}
	merged, compensations, violations := Merge(graphs)
	for _, c := range compensations {
		st := states[c.Branch]
		if typ := s.types[c.Node]; typ != nil && typ.HasDestructor() && s.reg.Kind(c.Node) == KindVariable {
			s.result.Destructions = append(s.result.Destructions, DestroyEvent{
				Node:   c.Node,
				Name:   s.reg.Name(c.Node),
				Type:   typ,
				Pos:    st.pos,
				Reason: BranchMoveCompensation,
			})
		}
		if st.graph.HasOutgoingLinks(c.Node) {
			s.report(DestroyedVariableStillHaveReferences, st.pos, []NodeID{c.Node},
				"variable %q moved in another branch still has references", s.reg.Name(c.Node))
		}
	}
	s.reportViolations(violations, pos)
	s.graph = merged
}

// checkPollution checks that the inner references of the reference arguments only refer to what the contract
// allows
func (s *functionState) checkPollution(pos lang.Pos) {
	for i, p := range s.fn.Sig.Params {
		if !p.Reference {
			continue
		}
		inner, ok := s.graph.InnerReference(s.args[i].node)
		if !ok {
			continue
		}
		for _, v := range s.graph.ReachableVariables(inner) {
			if v == s.args[i].innerVariable {
				continue
			}
			src, found := s.argumentTag(v)
			if !found || !s.allowsPollution(i, src) {
				s.report(UnallowedReferencePollution, pos, []NodeID{s.args[i].node, v},
					"unallowed pollution of %q with a reference to %q", p.Name, s.reg.Name(v))
			}
		}
	}
	for i, a := range s.args {
		if a.innerVariable == NoNode {
			continue
		}
		if _, ok := s.graph.InnerReference(a.innerVariable); ok {
			s.report(ReferencePollutionForArgReference, pos, []NodeID{a.innerVariable},
				"pollution of the references inside %q", s.fn.Sig.Params[i].Name)
		}
	}
}

func (s *functionState) argumentTag(v NodeID) (TagRef, bool) {
	for j, a := range s.args {
		if v == a.node && s.fn.Sig.Params[j].Reference {
			return TagRef{Arg: j, Tag: ArgReference}, true
		}
		if v == a.innerVariable {
			return TagRef{Arg: j, Tag: 0}, true
		}
	}
	return TagRef{}, false
}

func (s *functionState) allowsPollution(dst int, src TagRef) bool {
	for _, p := range s.contract.Pollution {
		if p.Dst.Arg == dst && p.Src.Arg == src.Arg && (p.Src.Tag == ArgReference) == (src.Tag == ArgReference) {
			return true
		}
	}
	return false
}
