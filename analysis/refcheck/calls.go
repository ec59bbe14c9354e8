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

// DoCall checks a call against the contract of the callee. Each reference argument is locked by a reference node
// with the mutability of the parameter for the duration of the call, and each value argument is copied or moved
// into an argument node. The result refers to the arguments the contract allows it to return, and the pollution of
// the contract is applied to the inner references of the destination arguments. The argument nodes are then
// removed, leaving the result linked directly to the storage of the arguments.
func (s *functionState) DoCall(c *lang.Call) exprValue {
	sig := c.Callee
	contract, _ := s.v.Contract(sig)
	if len(c.Args) != len(sig.Params) {
		s.report(ArgumentCountMismatch, c.Pos, nil, "%d arguments given to %s, expected %d",
			len(c.Args), sig.Name, len(sig.Params))
		for _, a := range c.Args {
			s.eval(a)
		}
		return noValue(sig.Result)
	}

	// temporaries registered before the call are not its own
	start := 0
	if f := s.stack.Top(); f != nil {
		start = f.Len()
	}
	argNodes := make([]NodeID, len(c.Args))
	for i, a := range c.Args {
		p := sig.Params[i]
		val := s.eval(a)
		if p.Reference {
			argNodes[i] = s.referenceArgument(i, p, val, a.Position())
		} else {
			argNodes[i] = s.valueArgument(i, p, val, a.Position())
		}
		s.destroyUnusedTemporaries(start, a.Position())
	}

	res := s.callResult(contract, argNodes, c.Pos)
	s.applyPollution(contract, argNodes, c.Pos)

	for _, n := range argNodes {
		if s.graph.Contains(n) {
			s.check(s.graph.RemoveNode(n), c.Pos)
		}
	}
	s.destroyUnusedTemporaries(start, c.Pos)

	s.stack.Register(res.node, res.typ, c.Pos)
	return res
}

func (s *functionState) referenceArgument(i int, p lang.Param, val exprValue, pos lang.Pos) NodeID {
	lock := s.newNode(referenceKind(p.Mutable), fmt.Sprintf("reference_arg %d", i), nil)
	switch {
	case val.cat == catValue && p.Mutable:
		s.report(ExpectedReferenceValue, pos, nil, "argument %d of mutable reference parameter %s is not a reference",
			i, p.Name)
	case val.cat == catImmutRef && p.Mutable:
		s.report(BindingConstReferenceToNonconstReference, pos, []NodeID{val.node},
			"passing immutable %q as mutable reference parameter %s", s.reg.Name(val.node), p.Name)
	case val.node != NoNode:
		s.linkProtected(val.node, lock, pos)
	}
	return lock
}

func (s *functionState) valueArgument(i int, p lang.Param, val exprValue, pos lang.Pos) NodeID {
	arg := s.newNode(KindVariable, fmt.Sprintf("value_arg_%d", i), p.Type)
	s.initializeValue(arg, val, p.Type, pos)
	return arg
}

// callResult creates the node of the result of a call, referring to the arguments the contract allows
func (s *functionState) callResult(contract *Contract, argNodes []NodeID, pos lang.Pos) exprValue {
	var sources []NodeID
	for _, r := range contract.ReturnReferences {
		if r.Arg >= len(argNodes) || !s.graph.Contains(argNodes[r.Arg]) {
			continue
		}
		if r.Tag == ArgReference {
			if contract.Params[r.Arg].Reference {
				sources = appendUnique(sources, argNodes[r.Arg])
			}
			continue
		}
		for _, inner := range s.graph.ReachableInnerReferences(argNodes[r.Arg]) {
			sources = appendUnique(sources, inner)
		}
	}

	if contract.ReturnsReference {
		res := s.newNode(referenceKind(contract.ReturnMutable), "fn_result", nil)
		for _, src := range sources {
			s.linkProtected(src, res, pos)
		}
		cat := catImmutRef
		if contract.ReturnMutable {
			cat = catMutRef
		}
		return exprValue{node: res, cat: cat, typ: contract.ReturnType}
	}

	res := s.newNode(KindVariable, "fn_result", contract.ReturnType)
	if contract.ReturnsInnerReferences() {
		s.linkInnerReferences(res, sources, pos)
	}
	return exprValue{node: res, cat: catValue, typ: contract.ReturnType}
}

// applyPollution links the inner references of the destination of each pollution of the contract to its source
func (s *functionState) applyPollution(contract *Contract, argNodes []NodeID, pos lang.Pos) {
	for _, p := range contract.Pollution {
		if p.Dst.Arg >= len(argNodes) || p.Src.Arg >= len(argNodes) || !contract.Params[p.Dst.Arg].Reference {
			continue
		}
		dst, src := argNodes[p.Dst.Arg], argNodes[p.Src.Arg]
		if !s.graph.Contains(dst) || !s.graph.Contains(src) {
			continue
		}
		var sources []NodeID
		if p.Src.Tag == ArgReference {
			if contract.Params[p.Src.Arg].Reference {
				sources = []NodeID{src}
			}
		} else {
			sources = s.graph.ReachableInnerReferences(src)
		}
		s.linkInnerReferences(dst, sources, pos)
	}
}

func appendUnique(s []NodeID, x NodeID) []NodeID {
	for _, y := range s {
		if y == x {
			return s
		}
	}
	return append(s, x)
}
