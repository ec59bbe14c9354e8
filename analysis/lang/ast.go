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

// Stmt is the closed set of statements. Only types of this package implement it.
type Stmt interface {
	Position() Pos
	stmt()
}

// Expr is the closed set of expressions. Only types of this package implement it.
type Expr interface {
	Position() Pos
	expr()
}

// DeclKind is the kind of binding a variable declaration introduces
type DeclKind int

const (
	DeclValue DeclKind = iota
	DeclImmutableRef
	DeclMutableRef
)

func (k DeclKind) String() string {
	switch k {
	case DeclImmutableRef:
		return "&imut"
	case DeclMutableRef:
		return "&mut"
	default:
		return "value"
	}
}

// IsReference returns true for reference bindings
func (k DeclKind) IsReference() bool {
	return k != DeclValue
}

// Block is a lexical block
type Block struct {
	Stmts []Stmt
	Pos   Pos

	// End is the position of the closing brace, where destructors of the block run
	End Pos
}

// VarDecl declares a variable or a reference binding. Init may be nil for default-initialized values.
type VarDecl struct {
	Name    string
	Type    Type
	Kind    DeclKind
	Mutable bool
	Init    Expr
	Pos     Pos
}

// Assign is `Dst = Src`
type Assign struct {
	Dst Expr
	Src Expr
	Pos Pos
}

// ExprStmt evaluates an expression and discards its result
type ExprStmt struct {
	X   Expr
	Pos Pos
}

// Return returns from the function. Value is nil for functions returning nothing.
type Return struct {
	Value Expr
	Pos   Pos
}

// IfBranch is one arm of an if. A nil Cond is the final else.
type IfBranch struct {
	Cond Expr
	Body *Block
	Pos  Pos
}

// If is an if / else if / else chain
type If struct {
	Branches []IfBranch
	Pos      Pos
	End      Pos
}

// HasElse returns true if the chain ends with an unconditional branch
func (s *If) HasElse() bool {
	return len(s.Branches) > 0 && s.Branches[len(s.Branches)-1].Cond == nil
}

// StaticBranch is one arm of a static if, with a condition known at compile time. Else branches have Else set.
type StaticBranch struct {
	Cond bool
	Else bool
	Body *Block
	Pos  Pos
}

// StaticIf is an if whose conditions are compile-time constants: only the selected branch is checked.
type StaticIf struct {
	Branches []StaticBranch
	Pos      Pos
}

// While is a loop with a condition evaluated before each iteration
type While struct {
	Cond Expr
	Body *Block
	Pos  Pos
}

// For is a C-style loop. Init, Cond and Step are optional.
type For struct {
	Init Stmt
	Cond Expr
	Step Stmt
	Body *Block
	Pos  Pos
}

// Break exits the innermost loop
type Break struct {
	Pos Pos
}

// Continue jumps to the next iteration of the innermost loop
type Continue struct {
	Pos Pos
}

// UnsafeBlock is a block in which unsafe casts are allowed
type UnsafeBlock struct {
	Body *Block
	Pos  Pos
}

func (s *Block) Position() Pos       { return s.Pos }
func (s *VarDecl) Position() Pos     { return s.Pos }
func (s *Assign) Position() Pos      { return s.Pos }
func (s *ExprStmt) Position() Pos    { return s.Pos }
func (s *Return) Position() Pos      { return s.Pos }
func (s *If) Position() Pos          { return s.Pos }
func (s *StaticIf) Position() Pos    { return s.Pos }
func (s *While) Position() Pos       { return s.Pos }
func (s *For) Position() Pos         { return s.Pos }
func (s *Break) Position() Pos       { return s.Pos }
func (s *Continue) Position() Pos    { return s.Pos }
func (s *UnsafeBlock) Position() Pos { return s.Pos }

func (*Block) stmt()       {}
func (*VarDecl) stmt()     {}
func (*Assign) stmt()      {}
func (*ExprStmt) stmt()    {}
func (*Return) stmt()      {}
func (*If) stmt()          {}
func (*StaticIf) stmt()    {}
func (*While) stmt()       {}
func (*For) stmt()         {}
func (*Break) stmt()       {}
func (*Continue) stmt()    {}
func (*UnsafeBlock) stmt() {}

// VarRef names a variable or a parameter
type VarRef struct {
	Name string
	Pos  Pos
}

// Move is the explicit move operator `move(x)`
type Move struct {
	Name string
	Pos  Pos
}

// Call calls the function whose signature is Callee
type Call struct {
	Callee *Signature
	Args   []Expr
	Pos    Pos
}

// Literal is a constant value of some type
type Literal struct {
	Type  Type
	Value string
	Pos   Pos
}

// Member accesses the field of a value. When Reference is true the field is itself a reference stored in the value,
// whose mutability is given by Mutable.
type Member struct {
	X         Expr
	Field     string
	Type      Type
	Reference bool
	Mutable   bool
	Pos       Pos
}

// LogicalOp is a lazy boolean operator
type LogicalOp int

const (
	And LogicalOp = iota
	Or
)

func (o LogicalOp) String() string {
	if o == Or {
		return "||"
	}
	return "&&"
}

// Logical is `L && R` or `L || R`; R is not always evaluated
type Logical struct {
	Op  LogicalOp
	L   Expr
	R   Expr
	Pos Pos
}

// Select is the ternary operator. The result is a reference when Kind is a reference kind.
type Select struct {
	Cond Expr
	Then Expr
	Else Expr
	Type Type
	Kind DeclKind
	Pos  Pos
}

// Cast is a reference cast. Mutable requests a mutable reference; Unsafe marks a reinterpreting cast.
type Cast struct {
	X       Expr
	Type    Type
	Mutable bool
	Unsafe  bool
	Pos     Pos
}

func (e *VarRef) Position() Pos  { return e.Pos }
func (e *Move) Position() Pos    { return e.Pos }
func (e *Call) Position() Pos    { return e.Pos }
func (e *Literal) Position() Pos { return e.Pos }
func (e *Member) Position() Pos  { return e.Pos }
func (e *Logical) Position() Pos { return e.Pos }
func (e *Select) Position() Pos  { return e.Pos }
func (e *Cast) Position() Pos    { return e.Pos }

func (*VarRef) expr()  {}
func (*Move) expr()    {}
func (*Call) expr()    {}
func (*Literal) expr() {}
func (*Member) expr()  {}
func (*Logical) expr() {}
func (*Select) expr()  {}
func (*Cast) expr()    {}
