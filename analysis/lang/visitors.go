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

package lang

import "fmt"

// A StmtOp contains the methods necessary to implement an exhaustive switch on Stmt. Adding a statement kind adds a
// method here, and every implementation must handle it.
type StmtOp interface {
	DoBlock(*Block)
	DoVarDecl(*VarDecl)
	DoAssign(*Assign)
	DoExprStmt(*ExprStmt)
	DoReturn(*Return)
	DoIf(*If)
	DoStaticIf(*StaticIf)
	DoWhile(*While)
	DoFor(*For)
	DoBreak(*Break)
	DoContinue(*Continue)
	DoUnsafeBlock(*UnsafeBlock)
}

// StmtSwitch applies the method of op corresponding to the kind of s.
//
//gocyclo:ignore
func StmtSwitch(op StmtOp, s Stmt) {
	switch st := s.(type) {
	case *Block:
		op.DoBlock(st)
	case *VarDecl:
		op.DoVarDecl(st)
	case *Assign:
		op.DoAssign(st)
	case *ExprStmt:
		op.DoExprStmt(st)
	case *Return:
		op.DoReturn(st)
	case *If:
		op.DoIf(st)
	case *StaticIf:
		op.DoStaticIf(st)
	case *While:
		op.DoWhile(st)
	case *For:
		op.DoFor(st)
	case *Break:
		op.DoBreak(st)
	case *Continue:
		op.DoContinue(st)
	case *UnsafeBlock:
		op.DoUnsafeBlock(st)
	default:
		panic(fmt.Sprintf("unexpected statement %T", s))
	}
}

// An ExprOp contains the methods necessary to implement an exhaustive switch on Expr, each returning an R.
type ExprOp[R any] interface {
	DoVarRef(*VarRef) R
	DoMove(*Move) R
	DoCall(*Call) R
	DoLiteral(*Literal) R
	DoMember(*Member) R
	DoLogical(*Logical) R
	DoSelect(*Select) R
	DoCast(*Cast) R
}

// ExprSwitch applies the method of op corresponding to the kind of e and returns its result.
//
//gocyclo:ignore
func ExprSwitch[R any](op ExprOp[R], e Expr) R {
	switch ex := e.(type) {
	case *VarRef:
		return op.DoVarRef(ex)
	case *Move:
		return op.DoMove(ex)
	case *Call:
		return op.DoCall(ex)
	case *Literal:
		return op.DoLiteral(ex)
	case *Member:
		return op.DoMember(ex)
	case *Logical:
		return op.DoLogical(ex)
	case *Select:
		return op.DoSelect(ex)
	case *Cast:
		return op.DoCast(ex)
	default:
		panic(fmt.Sprintf("unexpected expression %T", e))
	}
}

// Inspect calls f on every statement of the block, recursively, in source order. Nested blocks of compound
// statements are visited after the statement itself.
func Inspect(b *Block, f func(Stmt)) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		inspectStmt(s, f)
	}
}

func inspectStmt(s Stmt, f func(Stmt)) {
	if s == nil {
		return
	}
	f(s)
	switch st := s.(type) {
	case *Block:
		Inspect(st, f)
	case *If:
		for _, br := range st.Branches {
			Inspect(br.Body, f)
		}
	case *StaticIf:
		for _, br := range st.Branches {
			Inspect(br.Body, f)
		}
	case *While:
		Inspect(st.Body, f)
	case *For:
		inspectStmt(st.Init, f)
		inspectStmt(st.Step, f)
		Inspect(st.Body, f)
	case *UnsafeBlock:
		Inspect(st.Body, f)
	}
}
