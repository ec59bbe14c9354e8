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

	"github.com/awslabs/ar-refcheck/analysis/lang"
)

var (
	ptrHolder = &lang.TypeDesc{Name: "R", ReferenceTags: 1}
	unique    = &lang.TypeDesc{Name: "U", NoCopy: true}
	condSig   = &lang.Signature{Name: "f", Params: []lang.Param{{Name: "cond", Type: lang.Bool}}}
)

func callAt(line int, sig *lang.Signature, args ...lang.Expr) *lang.Call {
	return &lang.Call{Callee: sig, Args: args, Pos: at(line)}
}

func valueSelect(line int, typ lang.Type, then, els lang.Expr) *lang.Select {
	return &lang.Select{Cond: ref("cond"), Then: then, Else: els, Type: typ, Pos: at(line)}
}

func TestSelectOfCallResults(t *testing.T) {
	g := &lang.Signature{Name: "g", Result: lang.I32}
	res := verify(function(condSig, body(
		varDecl(1, "r", lang.I32, valueSelect(1, lang.I32, callAt(1, g), callAt(1, g))),
		varDecl(2, "s", lang.I32, ref("r")),
	)))
	expectKinds(t, res)

	returning := &lang.Signature{Name: "f", Params: condSig.Params, Result: lang.I32}
	res = verify(function(returning, body(
		&lang.Return{Value: valueSelect(1, lang.I32, callAt(1, g), callAt(1, g)), Pos: at(1)},
	)))
	expectKinds(t, res)

	// the select is itself a temporary of the outer call
	h := &lang.Signature{Name: "h", Params: []lang.Param{{Name: "n", Type: lang.I32}}}
	res = verify(function(condSig, body(
		&lang.ExprStmt{X: callAt(1, h, valueSelect(1, lang.I32, callAt(1, g), zero())), Pos: at(1)},
	)))
	expectKinds(t, res)
}

func TestSelectOfCallResultsWithDestructor(t *testing.T) {
	mk := &lang.Signature{Name: "mk", Result: vec}
	res := verify(function(condSig, body(
		varDecl(1, "v", vec, valueSelect(1, vec, callAt(1, mk), callAt(1, mk))),
	)))
	expectKinds(t, res)
	var names []string
	for _, e := range res.Destructions {
		names = append(names, e.Name)
	}
	if len(names) != 1 || names[0] != "v" {
		t.Errorf("only v should be destroyed, got %v", res.Destructions)
	}
}

func TestSelectOfMutableInnerReferences(t *testing.T) {
	mkM := &lang.Signature{
		Name:            "mkM",
		Params:          []lang.Param{refParam("a", true, "a")},
		Result:          ptrHolder,
		ReturnInnerTags: []string{"a"},
	}
	decls := func() []lang.Stmt {
		return []lang.Stmt{
			varDecl(1, "x", lang.I32, zero()),
			varDecl(2, "y", lang.I32, zero()),
			varDecl(3, "r", ptrHolder, valueSelect(3, ptrHolder, callAt(3, mkM, ref("x")), callAt(3, mkM, ref("y")))),
		}
	}
	res := verify(function(condSig, body(decls()...)))
	expectKinds(t, res)

	// x and y stay mutably referenced by r
	res = verify(function(condSig, body(append(decls(), refDecl(4, "q", false, ref("x")))...)))
	expectKinds(t, res, ReferenceProtectionError)
	if len(res.Diagnostics) == 1 && res.Diagnostics[0].Pos != at(4) {
		t.Errorf("expected the error at the declaration of q, got %s", res.Diagnostics[0].Pos)
	}
	res = verify(function(condSig, body(append(decls(), refDecl(4, "q", true, ref("y")))...)))
	expectKinds(t, res, ReferenceProtectionError)
}

func TestSelectOfReferences(t *testing.T) {
	refSelect := func(mutable bool, then, els string) *lang.Select {
		kind := lang.DeclImmutableRef
		if mutable {
			kind = lang.DeclMutableRef
		}
		return &lang.Select{Cond: ref("cond"), Then: ref(then), Else: ref(els), Type: lang.I32, Kind: kind, Pos: at(3)}
	}
	decls := []lang.Stmt{varDecl(1, "x", lang.I32, zero()), varDecl(2, "y", lang.I32, zero())}
	withDecls := func(stmts ...lang.Stmt) *lang.Block {
		return body(append(append([]lang.Stmt{}, decls...), stmts...)...)
	}

	res := verify(function(condSig, withDecls(
		refDecl(3, "r", true, refSelect(true, "x", "y")),
		refDecl(4, "q", false, ref("y")),
	)))
	expectKinds(t, res, ReferenceProtectionError)

	res = verify(function(condSig, withDecls(
		refDecl(3, "r", false, refSelect(false, "x", "y")),
		refDecl(4, "q", false, ref("y")),
	)))
	expectKinds(t, res)

	res = verify(function(condSig, withDecls(
		refDecl(2, "c", false, ref("x")),
		refDecl(3, "r", true, refSelect(true, "c", "y")),
	)))
	expectKinds(t, res, BindingConstReferenceToNonconstReference)

	res = verify(function(condSig, withDecls(
		refDecl(3, "r", false, &lang.Select{Cond: ref("cond"), Then: ref("x"), Else: zero(), Type: lang.I32,
			Kind: lang.DeclImmutableRef, Pos: at(3)}),
	)))
	expectKinds(t, res, ExpectedReferenceValue)
}

func TestLogicalMoveInRightOperand(t *testing.T) {
	sink := &lang.Signature{Name: "sink", Params: []lang.Param{{Name: "v", Type: vec}}, Result: lang.Bool}
	logical := &lang.Logical{Op: lang.And, L: ref("cond"), R: callAt(2, sink, &lang.Move{Name: "v", Pos: at(2)}),
		Pos: at(2)}
	res := verify(function(condSig, body(
		varDecl(1, "v", vec, nil),
		varDecl(2, "b", lang.Bool, logical),
	)))
	expectKinds(t, res)
	var reasons []DestroyReason
	for _, e := range res.Destructions {
		if e.Name == "v" {
			reasons = append(reasons, e.Reason)
		}
	}
	if len(reasons) != 1 || reasons[0] != BranchMoveCompensation {
		t.Errorf("v should be destroyed once when the right operand is skipped, got %v", res.Destructions)
	}

	res = verify(function(condSig, body(
		varDecl(1, "v", vec, nil),
		varDecl(2, "b", lang.Bool, logical),
		varDecl(3, "w", vec, ref("v")),
	)))
	expectKinds(t, res, AccessingMovedVariable)
}

func TestMoveOfReferencedVariable(t *testing.T) {
	res := verify(function(&lang.Signature{Name: "f"}, body(
		varDecl(1, "v", vec, nil),
		&lang.VarDecl{Name: "r", Type: vec, Kind: lang.DeclImmutableRef, Init: ref("v"), Pos: at(2)},
		moveStmt(3, "v"),
		varDecl(4, "w", vec, ref("v")),
	)))
	expectKinds(t, res, MovedVariableStillHaveReferences)
	for _, e := range res.Destructions {
		if e.Reason == Temporary {
			t.Errorf("a failed move leaves no temporary to destroy, got %s", e)
		}
	}
}

func TestMoveOfReference(t *testing.T) {
	res := verify(function(&lang.Signature{Name: "f"}, body(
		varDecl(1, "x", lang.I32, zero()),
		refDecl(2, "r", false, ref("x")),
		moveStmt(3, "r"),
	)))
	expectKinds(t, res, ExpectedVariable)
}

func TestCopyOfNonCopyableType(t *testing.T) {
	res := verify(function(&lang.Signature{Name: "f"}, body(
		varDecl(1, "a", unique, nil),
		varDecl(2, "b", unique, ref("a")),
	)))
	expectKinds(t, res, CopyOfNonCopyableType)

	res = verify(function(&lang.Signature{Name: "f"}, body(
		varDecl(1, "a", unique, nil),
		varDecl(2, "b", unique, &lang.Move{Name: "a", Pos: at(2)}),
	)))
	expectKinds(t, res)
}

func TestReferenceMember(t *testing.T) {
	member := func(base string, mutable bool) *lang.Member {
		return &lang.Member{X: ref(base), Field: "ptr", Type: lang.I32, Reference: true, Mutable: mutable, Pos: at(3)}
	}
	res := verify(function(&lang.Signature{Name: "f"}, body(
		varDecl(1, "h", ptrHolder, nil),
		refDecl(3, "m", true, member("h", true)),
	)))
	expectKinds(t, res)

	res = verify(function(&lang.Signature{Name: "f"}, body(
		varDecl(1, "h", ptrHolder, nil),
		&lang.VarDecl{Name: "a", Type: ptrHolder, Kind: lang.DeclImmutableRef, Init: ref("h"), Pos: at(2)},
		refDecl(3, "m", true, member("a", true)),
	)))
	expectKinds(t, res, BindingConstReferenceToNonconstReference)
}

func TestReferenceMemberExclusivity(t *testing.T) {
	store := &lang.Signature{
		Name: "store",
		Params: []lang.Param{
			{Name: "dst", Type: ptrHolder, Reference: true, Mutable: true, InnerTags: []string{"x"}},
			refParam("src", false, "y"),
		},
		Pollution: []lang.PollutionDecl{{Dst: "x", Src: "y"}},
	}
	member := func(line int, mutable bool) *lang.Member {
		return &lang.Member{X: ref("h"), Field: "ptr", Type: lang.I32, Reference: true, Mutable: mutable, Pos: at(line)}
	}
	stored := func(stmts ...lang.Stmt) *lang.Block {
		return body(append([]lang.Stmt{
			varDecl(1, "v", lang.I32, zero()),
			varDecl(2, "h", ptrHolder, nil),
			&lang.ExprStmt{X: callAt(3, store, ref("h"), ref("v")), Pos: at(3)},
		}, stmts...)...)
	}

	res := verify(function(&lang.Signature{Name: "f"}, stored(refDecl(5, "q", true, member(5, true)))))
	expectKinds(t, res)

	res = verify(function(&lang.Signature{Name: "f"}, stored(
		refDecl(4, "p", false, member(4, false)),
		refDecl(5, "q", true, member(5, true)),
	)))
	expectKinds(t, res, ReferenceProtectionError)
	if len(res.Diagnostics) == 1 && res.Diagnostics[0].Pos != at(5) {
		t.Errorf("expected the error at the declaration of q, got %s", res.Diagnostics[0].Pos)
	}
}
