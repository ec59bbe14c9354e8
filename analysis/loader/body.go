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
	"fmt"
	"regexp"
	"strconv"

	"github.com/awslabs/ar-refcheck/analysis/lang"
	"gopkg.in/yaml.v3"
)

var (
	movePattern  = regexp.MustCompile(`^move\(\s*([A-Za-z_][A-Za-z0-9_]*)\s*\)$`)
	identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// statementKeys are the keys that select the kind of a statement, in order of precedence
var statementKeys = []string{
	"decl", "assign", "expr", "return", "if", "static-if", "while", "for", "break", "continue", "block", "unsafe",
}

// fields returns the values of a mapping by key
func (d *decoder) fields(n *yaml.Node) (map[string]*yaml.Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, d.errorf(n, "expected a mapping")
	}
	res := map[string]*yaml.Node{}
	for i := 0; i+1 < len(n.Content); i += 2 {
		res[n.Content[i].Value] = n.Content[i+1]
	}
	return res, nil
}

func isNull(n *yaml.Node) bool {
	return n == nil || n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

// lastLine returns the last line spanned by the node
func lastLine(n *yaml.Node) int {
	line := n.Line
	for _, c := range n.Content {
		if l := lastLine(c); l > line {
			line = l
		}
	}
	return line
}

// block decodes a sequence of statements. The end of the block is the last line it spans, or the position at for
// empty blocks.
func (d *decoder) block(n *yaml.Node, at lang.Pos) (*lang.Block, error) {
	b := &lang.Block{Pos: at, End: at}
	if isNull(n) {
		return b, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, d.errorf(n, "expected a list of statements")
	}
	b.Pos = d.pos(n)
	b.End = lang.Pos{File: d.file, Line: lastLine(n)}
	for _, sn := range n.Content {
		st, err := d.statement(sn)
		if err != nil {
			return nil, err
		}
		b.Stmts = append(b.Stmts, st)
	}
	return b, nil
}

func (d *decoder) statement(n *yaml.Node) (lang.Stmt, error) {
	pos := d.pos(n)
	if n.Kind == yaml.ScalarNode {
		switch n.Value {
		case "break":
			return &lang.Break{Pos: pos}, nil
		case "continue":
			return &lang.Continue{Pos: pos}, nil
		case "return":
			return &lang.Return{Pos: pos}, nil
		}
		return nil, d.errorf(n, "invalid statement %q", n.Value)
	}
	f, err := d.fields(n)
	if err != nil {
		return nil, err
	}
	for _, key := range statementKeys {
		v, ok := f[key]
		if !ok {
			continue
		}
		switch key {
		case "decl":
			return d.varDecl(n, f)
		case "assign":
			return d.assign(n, f)
		case "expr":
			x, err := d.expr(v)
			if err != nil {
				return nil, err
			}
			return &lang.ExprStmt{X: x, Pos: pos}, nil
		case "return":
			r := &lang.Return{Pos: pos}
			if !isNull(v) {
				if r.Value, err = d.expr(v); err != nil {
					return nil, err
				}
			}
			return r, nil
		case "if":
			return d.ifStmt(n, f)
		case "static-if":
			return d.staticIf(n, f)
		case "while":
			return d.while(n, f)
		case "for":
			return d.forStmt(n, f)
		case "break":
			return &lang.Break{Pos: pos}, nil
		case "continue":
			return &lang.Continue{Pos: pos}, nil
		case "block":
			return d.block(v, pos)
		case "unsafe":
			b, err := d.block(v, pos)
			if err != nil {
				return nil, err
			}
			return &lang.UnsafeBlock{Body: b, Pos: pos}, nil
		}
	}
	return nil, d.errorf(n, "unknown statement")
}

func (d *decoder) boolField(f map[string]*yaml.Node, key string) (bool, error) {
	v, ok := f[key]
	if !ok {
		return false, nil
	}
	var b bool
	if err := v.Decode(&b); err != nil {
		return false, d.errorf(v, "%s must be a boolean", key)
	}
	return b, nil
}

func (d *decoder) stringField(f map[string]*yaml.Node, key string) string {
	if v, ok := f[key]; ok && v.Kind == yaml.ScalarNode {
		return v.Value
	}
	return ""
}

func (d *decoder) varDecl(n *yaml.Node, f map[string]*yaml.Node) (lang.Stmt, error) {
	decl := &lang.VarDecl{Name: f["decl"].Value, Pos: d.pos(n)}
	if !identPattern.MatchString(decl.Name) {
		return nil, d.errorf(f["decl"], "invalid variable name %q", decl.Name)
	}
	var err error
	if decl.Type, err = d.typ(n, d.stringField(f, "type")); err != nil {
		return nil, err
	}
	isRef, mutable, err := d.mutability(n, d.stringField(f, "ref"))
	if err != nil {
		return nil, err
	}
	switch {
	case isRef && mutable:
		decl.Kind = lang.DeclMutableRef
	case isRef:
		decl.Kind = lang.DeclImmutableRef
	}
	if decl.Mutable, err = d.boolField(f, "mut"); err != nil {
		return nil, err
	}
	decl.Mutable = decl.Mutable || mutable
	if init, ok := f["init"]; ok {
		if decl.Init, err = d.expr(init); err != nil {
			return nil, err
		}
	}
	return decl, nil
}

func (d *decoder) assign(n *yaml.Node, f map[string]*yaml.Node) (lang.Stmt, error) {
	value, ok := f["value"]
	if !ok {
		return nil, d.errorf(n, "assignment without a value")
	}
	dst, err := d.expr(f["assign"])
	if err != nil {
		return nil, err
	}
	src, err := d.expr(value)
	if err != nil {
		return nil, err
	}
	return &lang.Assign{Dst: dst, Src: src, Pos: d.pos(n)}, nil
}

func (d *decoder) ifStmt(n *yaml.Node, f map[string]*yaml.Node) (*lang.If, error) {
	pos := d.pos(n)
	s := &lang.If{Pos: pos, End: lang.Pos{File: d.file, Line: lastLine(n)}}
	cond, err := d.expr(f["if"])
	if err != nil {
		return nil, err
	}
	then, err := d.block(f["then"], pos)
	if err != nil {
		return nil, err
	}
	s.Branches = append(s.Branches, lang.IfBranch{Cond: cond, Body: then, Pos: pos})

	els, ok := f["else"]
	if !ok {
		return s, nil
	}
	// else if
	if els.Kind == yaml.SequenceNode && len(els.Content) == 1 && els.Content[0].Kind == yaml.MappingNode {
		if ef, err := d.fields(els.Content[0]); err == nil {
			if _, isIf := ef["if"]; isIf {
				inner, err := d.ifStmt(els.Content[0], ef)
				if err != nil {
					return nil, err
				}
				s.Branches = append(s.Branches, inner.Branches...)
				return s, nil
			}
		}
	}
	elseBody, err := d.block(els, d.pos(els))
	if err != nil {
		return nil, err
	}
	s.Branches = append(s.Branches, lang.IfBranch{Body: elseBody, Pos: d.pos(els)})
	return s, nil
}

func (d *decoder) staticIf(n *yaml.Node, f map[string]*yaml.Node) (lang.Stmt, error) {
	pos := d.pos(n)
	var cond bool
	if err := f["static-if"].Decode(&cond); err != nil {
		return nil, d.errorf(n, "static-if condition must be a boolean")
	}
	then, err := d.block(f["then"], pos)
	if err != nil {
		return nil, err
	}
	s := &lang.StaticIf{Pos: pos, Branches: []lang.StaticBranch{{Cond: cond, Body: then, Pos: pos}}}
	if els, ok := f["else"]; ok {
		elseBody, err := d.block(els, d.pos(els))
		if err != nil {
			return nil, err
		}
		s.Branches = append(s.Branches, lang.StaticBranch{Else: true, Body: elseBody, Pos: d.pos(els)})
	}
	return s, nil
}

func (d *decoder) while(n *yaml.Node, f map[string]*yaml.Node) (lang.Stmt, error) {
	pos := d.pos(n)
	cond, err := d.expr(f["while"])
	if err != nil {
		return nil, err
	}
	body, err := d.block(f["body"], pos)
	if err != nil {
		return nil, err
	}
	return &lang.While{Cond: cond, Body: body, Pos: pos}, nil
}

func (d *decoder) forStmt(n *yaml.Node, f map[string]*yaml.Node) (lang.Stmt, error) {
	pos := d.pos(n)
	s := &lang.For{Pos: pos}
	if header := f["for"]; !isNull(header) {
		hf, err := d.fields(header)
		if err != nil {
			return nil, err
		}
		if v, ok := hf["init"]; ok && !isNull(v) {
			if s.Init, err = d.statement(v); err != nil {
				return nil, err
			}
		}
		if v, ok := hf["cond"]; ok && !isNull(v) {
			if s.Cond, err = d.expr(v); err != nil {
				return nil, err
			}
		}
		if v, ok := hf["step"]; ok && !isNull(v) {
			if s.Step, err = d.statement(v); err != nil {
				return nil, err
			}
		}
	}
	body, err := d.block(f["body"], pos)
	if err != nil {
		return nil, err
	}
	s.Body = body
	return s, nil
}

func (d *decoder) expr(n *yaml.Node) (lang.Expr, error) {
	if isNull(n) {
		if n == nil {
			return nil, fmt.Errorf("%s: missing expression", d.file)
		}
		return nil, d.errorf(n, "missing expression")
	}
	pos := d.pos(n)
	if n.Kind == yaml.ScalarNode {
		return d.scalarExpr(n)
	}
	f, err := d.fields(n)
	if err != nil {
		return nil, err
	}
	switch {
	case f["call"] != nil:
		sig, ok := d.sigs[f["call"].Value]
		if !ok {
			return nil, d.errorf(n, "unknown function %s", f["call"].Value)
		}
		c := &lang.Call{Callee: sig, Pos: pos}
		if args, ok := f["args"]; ok {
			if args.Kind != yaml.SequenceNode {
				return nil, d.errorf(args, "args must be a list")
			}
			for _, an := range args.Content {
				a, err := d.expr(an)
				if err != nil {
					return nil, err
				}
				c.Args = append(c.Args, a)
			}
		}
		return c, nil
	case f["move"] != nil:
		return &lang.Move{Name: f["move"].Value, Pos: pos}, nil
	case f["member"] != nil:
		x, err := d.expr(f["member"])
		if err != nil {
			return nil, err
		}
		t, err := d.typ(n, d.stringField(f, "type"))
		if err != nil {
			return nil, err
		}
		isRef, mutable, err := d.mutability(n, d.stringField(f, "ref"))
		if err != nil {
			return nil, err
		}
		return &lang.Member{X: x, Field: d.stringField(f, "field"), Type: t, Reference: isRef, Mutable: mutable,
			Pos: pos}, nil
	case f["and"] != nil || f["or"] != nil:
		op, operands := lang.And, f["and"]
		if operands == nil {
			op, operands = lang.Or, f["or"]
		}
		if operands.Kind != yaml.SequenceNode || len(operands.Content) != 2 {
			return nil, d.errorf(operands, "%s expects two operands", op)
		}
		l, err := d.expr(operands.Content[0])
		if err != nil {
			return nil, err
		}
		r, err := d.expr(operands.Content[1])
		if err != nil {
			return nil, err
		}
		return &lang.Logical{Op: op, L: l, R: r, Pos: pos}, nil
	case f["select"] != nil:
		return d.selectExpr(n, f)
	case f["cast"] != nil:
		x, err := d.expr(f["cast"])
		if err != nil {
			return nil, err
		}
		t, err := d.typ(n, d.stringField(f, "type"))
		if err != nil {
			return nil, err
		}
		c := &lang.Cast{X: x, Type: t, Pos: pos}
		if c.Mutable, err = d.boolField(f, "mut"); err != nil {
			return nil, err
		}
		if c.Unsafe, err = d.boolField(f, "unsafe"); err != nil {
			return nil, err
		}
		return c, nil
	case f["lit"] != nil:
		t, err := d.typ(n, d.stringField(f, "type"))
		if err != nil {
			return nil, err
		}
		return &lang.Literal{Type: t, Value: f["lit"].Value, Pos: pos}, nil
	}
	return nil, d.errorf(n, "unknown expression")
}

func (d *decoder) scalarExpr(n *yaml.Node) (lang.Expr, error) {
	pos := d.pos(n)
	switch n.ShortTag() {
	case "!!int":
		if _, err := strconv.ParseInt(n.Value, 0, 64); err != nil {
			return nil, d.errorf(n, "invalid integer %s", n.Value)
		}
		return &lang.Literal{Type: lang.I32, Value: n.Value, Pos: pos}, nil
	case "!!float":
		return &lang.Literal{Type: lang.F64, Value: n.Value, Pos: pos}, nil
	case "!!bool":
		return &lang.Literal{Type: lang.Bool, Value: n.Value, Pos: pos}, nil
	}
	if m := movePattern.FindStringSubmatch(n.Value); m != nil {
		return &lang.Move{Name: m[1], Pos: pos}, nil
	}
	if !identPattern.MatchString(n.Value) {
		return nil, d.errorf(n, "invalid expression %q", n.Value)
	}
	return &lang.VarRef{Name: n.Value, Pos: pos}, nil
}

func (d *decoder) selectExpr(n *yaml.Node, f map[string]*yaml.Node) (lang.Expr, error) {
	pos := d.pos(n)
	if f["then"] == nil || f["else"] == nil {
		return nil, d.errorf(n, "select needs a then and an else expression")
	}
	cond, err := d.expr(f["select"])
	if err != nil {
		return nil, err
	}
	then, err := d.expr(f["then"])
	if err != nil {
		return nil, err
	}
	els, err := d.expr(f["else"])
	if err != nil {
		return nil, err
	}
	t, err := d.typ(n, d.stringField(f, "type"))
	if err != nil {
		return nil, err
	}
	isRef, mutable, err := d.mutability(n, d.stringField(f, "ref"))
	if err != nil {
		return nil, err
	}
	s := &lang.Select{Cond: cond, Then: then, Else: els, Type: t, Pos: pos}
	switch {
	case isRef && mutable:
		s.Kind = lang.DeclMutableRef
	case isRef:
		s.Kind = lang.DeclImmutableRef
	}
	return s, nil
}
