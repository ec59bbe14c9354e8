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

package loader

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/awslabs/ar-refcheck/analysis/config"
	"github.com/awslabs/ar-refcheck/analysis/lang"
	"github.com/awslabs/ar-refcheck/analysis/refcheck"
)

const sample = `types:
  - name: Vec
    destructor: true
functions:
  - name: main
    body:
      - {decl: x, type: i32, mut: true, init: 0}
      - {decl: r, type: i32, ref: mut, init: {call: id, args: [x]}}
      - if: {and: [true, false]}
        then: [{expr: move(x)}]
        else:
          - if: c
            then: [break]
            else: [continue]
      - {for: {init: {decl: i, type: i32, init: 0}, cond: i}, body: [{unsafe: []}]}
      - {return: {cast: r, type: i64, unsafe: true}}
    expect: [ReferenceProtectionError]
  - name: id
    kind: regular
    params:
      - {name: a, type: i32, ref: mut, tag: a}
      - {name: v, type: Vec, mut: true}
    returns: {type: i32, ref: mut, tag: a}
    pollution: ["x <- imut y"]
    body:
      - {return: a}
`

func TestParse(t *testing.T) {
	fx, err := Parse("sample.yaml", []byte(sample), nil)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if len(fx.Functions) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(fx.Functions))
	}
	main, id := fx.Functions[0], fx.Functions[1]

	if len(main.Body.Stmts) != 5 {
		t.Fatalf("expected 5 statements in main, got %d", len(main.Body.Stmts))
	}
	decl, ok := main.Body.Stmts[1].(*lang.VarDecl)
	if !ok || decl.Kind != lang.DeclMutableRef || decl.Pos.Line != 8 {
		t.Errorf("unexpected declaration of r: %+v", main.Body.Stmts[1])
	} else if call, ok := decl.Init.(*lang.Call); !ok || call.Callee != id.Sig || len(call.Args) != 1 {
		t.Errorf("the call to id should be resolved, got %+v", decl.Init)
	}

	ifStmt, ok := main.Body.Stmts[2].(*lang.If)
	if !ok {
		t.Fatalf("expected an if, got %T", main.Body.Stmts[2])
	}
	if len(ifStmt.Branches) != 3 || !ifStmt.HasElse() {
		t.Errorf("expected the else if chain to be flattened in 3 branches, got %d", len(ifStmt.Branches))
	}
	if _, ok := ifStmt.Branches[0].Cond.(*lang.Logical); !ok {
		t.Errorf("expected a logical condition, got %T", ifStmt.Branches[0].Cond)
	}
	if _, ok := ifStmt.Branches[1].Body.Stmts[0].(*lang.Break); !ok {
		t.Errorf("expected a break in the second branch")
	}

	forStmt, ok := main.Body.Stmts[3].(*lang.For)
	if !ok || forStmt.Init == nil || forStmt.Cond == nil || forStmt.Step != nil {
		t.Errorf("unexpected for statement %+v", main.Body.Stmts[3])
	}
	if ret, ok := main.Body.Stmts[4].(*lang.Return); !ok {
		t.Errorf("expected a return, got %T", main.Body.Stmts[4])
	} else if cast, ok := ret.Value.(*lang.Cast); !ok || !cast.Unsafe || cast.Type != lang.I64 {
		t.Errorf("unexpected returned value %+v", ret.Value)
	}

	sig := id.Sig
	if !sig.ReturnsReference || !sig.ReturnMutable || sig.ReturnTag != "a" || sig.Result != lang.I32 {
		t.Errorf("unexpected signature %s", sig)
	}
	if len(sig.Params) != 2 || !sig.Params[0].Reference || sig.Params[1].Reference || !sig.Params[1].Mutable {
		t.Errorf("unexpected parameters %+v", sig.Params)
	}
	if sig.Params[1].Type != fx.Types["Vec"] || !fx.Types["Vec"].HasDestructor() {
		t.Errorf("the declared type Vec should be used")
	}
	if len(sig.Pollution) != 1 || sig.Pollution[0].SrcMutable || sig.Pollution[0].Src != "y" {
		t.Errorf("unexpected pollution %v", sig.Pollution)
	}

	if kinds := fx.Expect["main"]; len(kinds) != 1 || kinds[0] != refcheck.ReferenceProtectionError {
		t.Errorf("unexpected expectations %v", fx.Expect)
	}
	if _, ok := fx.Expect["id"]; ok {
		t.Errorf("id has no expect list")
	}
	if !fx.Function("id").IsSome() || fx.Function("nope").IsSome() {
		t.Errorf("function lookup failed")
	}
}

func TestParseConfigTypes(t *testing.T) {
	cfg := config.NewDefault()
	cfg.Types = []config.TypeSpec{{Name: "Holder", ReferenceTags: 1}}
	fx, err := Parse("f.yaml", []byte(`
functions:
  - name: f
    params:
      - {name: h, type: Holder, ref: imut, inner: [x]}
`), cfg)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if fx.Functions[0].Sig.Params[0].Type.ReferenceTagCount() != 1 {
		t.Errorf("the type of the config should be visible")
	}
	if len(fx.Functions[0].Body.Stmts) != 0 {
		t.Errorf("a function without body has an empty body")
	}
}

func TestParseErrors(t *testing.T) {
	for _, test := range []struct {
		name    string
		content string
		message string
	}{
		{"unknown function", `
functions:
  - name: f
    body:
      - {expr: {call: g}}`, "unknown function g"},
		{"unknown type", `
functions:
  - name: f
    params: [{name: a, type: T}]`, "unknown type T"},
		{"duplicate function", `
functions:
  - name: f
  - name: f`, "declared twice"},
		{"builtin redeclared", `
types: [{name: i32}]`, "declared twice"},
		{"invalid ref", `
functions:
  - name: f
    params: [{name: a, type: i32, ref: shared}]`, "invalid reference kind"},
		{"invalid statement", `
functions:
  - name: f
    body: [{goto: x}]`, "unknown statement"},
		{"invalid pollution", `
functions:
  - name: f
    pollution: ["x y"]`, "invalid pollution"},
		{"unknown diagnostic", `
functions:
  - name: f
    expect: [NoSuchDiagnostic]`, "unknown diagnostic kind"},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse("bad.yaml", []byte(test.content), nil)
			if err == nil || !strings.Contains(err.Error(), test.message) {
				t.Errorf("expected an error containing %q, got %v", test.message, err)
			}
		})
	}
}

func TestErrorPosition(t *testing.T) {
	_, err := Parse("bad.yaml", []byte("functions:\n  - name: f\n    body:\n      - {decl: x, type: Nope}\n"), nil)
	if err == nil || !strings.HasPrefix(err.Error(), "bad.yaml:4:") {
		t.Errorf("expected an error at line 4, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	fx, err := Load(filepath.Join("testdata", "loops.yaml"), nil)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	fn := fx.Function("loops").ValueOr(nil)
	if fn == nil {
		t.Fatalf("loops not found")
	}
	if fn.Pos.Line != 5 || fn.Body.End.Line != 19 {
		t.Errorf("unexpected positions %s, end %s", fn.Pos, fn.Body.End)
	}
	while, ok := fn.Body.Stmts[1].(*lang.While)
	if !ok || while.Pos.Line != 8 || len(while.Body.Stmts) != 2 || while.Body.End.Line != 13 {
		t.Fatalf("unexpected while %+v", fn.Body.Stmts[1])
	}
	static, ok := while.Body.Stmts[1].(*lang.StaticIf)
	if !ok || len(static.Branches) != 2 || static.Branches[0].Cond || !static.Branches[1].Else {
		t.Errorf("unexpected static if %+v", while.Body.Stmts[1])
	}
	forStmt, ok := fn.Body.Stmts[2].(*lang.For)
	if !ok {
		t.Fatalf("expected a for, got %T", fn.Body.Stmts[2])
	}
	if _, ok := forStmt.Step.(*lang.Assign); !ok {
		t.Errorf("expected an assignment as step, got %T", forStmt.Step)
	}
	if init, ok := forStmt.Init.(*lang.VarDecl); !ok || !init.Mutable || init.Pos.Line != 15 {
		t.Errorf("unexpected init %+v", forStmt.Init)
	}
	stmt, ok := forStmt.Body.Stmts[0].(*lang.ExprStmt)
	if !ok {
		t.Fatalf("expected an expression statement, got %T", forStmt.Body.Stmts[0])
	}
	if sel, ok := stmt.X.(*lang.Select); !ok || sel.Kind != lang.DeclImmutableRef || sel.Type != fx.Types["Vec"] {
		t.Errorf("unexpected select %+v", stmt.X)
	}
}
