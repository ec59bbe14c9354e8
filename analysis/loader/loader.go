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
	"os"

	"github.com/awslabs/ar-refcheck/analysis/config"
	"github.com/awslabs/ar-refcheck/analysis/lang"
	"github.com/awslabs/ar-refcheck/analysis/refcheck"
	"github.com/awslabs/ar-refcheck/internal/funcutil"
	"gopkg.in/yaml.v3"
)

// A Fixture is the content of a fixture file
type Fixture struct {
	File string

	// Types are all the types visible in the fixture: builtins, types of the config and types of the file
	Types map[string]lang.Type

	// Functions are in declaration order
	Functions []*lang.Function

	// Expect maps function names to the kinds of the diagnostics the function is expected to produce, in order.
	// Functions without an expect entry are not in the map.
	Expect map[string][]refcheck.DiagnosticKind
}

// Function returns the function with the given name
func (f *Fixture) Function(name string) funcutil.Optional[*lang.Function] {
	for _, fn := range f.Functions {
		if fn.Name() == name {
			return funcutil.Some(fn)
		}
	}
	return funcutil.None[*lang.Function]()
}

type fixtureFile struct {
	Types     []config.TypeSpec `yaml:"types"`
	Functions []yaml.Node       `yaml:"functions"`
}

type functionSpec struct {
	Name      string      `yaml:"name"`
	Kind      string      `yaml:"kind"`
	Unsafe    bool        `yaml:"unsafe"`
	Params    []yaml.Node `yaml:"params"`
	Returns   *returnSpec `yaml:"returns"`
	Pollution []string    `yaml:"pollution"`
	Body      yaml.Node   `yaml:"body"`
	Expect    []string    `yaml:"expect"`
}

type paramSpec struct {
	Name       string   `yaml:"name"`
	Type       string   `yaml:"type"`
	Ref        string   `yaml:"ref"`
	Mut        bool     `yaml:"mut"`
	Tag        string   `yaml:"tag"`
	Inner      []string `yaml:"inner"`
	Continuous bool     `yaml:"continuous"`
}

type returnSpec struct {
	Type       string   `yaml:"type"`
	Ref        string   `yaml:"ref"`
	Tag        string   `yaml:"tag"`
	Inner      []string `yaml:"inner"`
	Continuous bool     `yaml:"continuous"`
}

// Load reads the fixture in filename. The types of cfg are visible in the fixture; cfg may be nil.
func Load(filename string, cfg *config.Config) (*Fixture, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read fixture: %w", err)
	}
	return Parse(filename, b, cfg)
}

// Parse reads a fixture from the content b of the file filename
func Parse(filename string, b []byte, cfg *config.Config) (*Fixture, error) {
	var file fixtureFile
	if err := yaml.Unmarshal(b, &file); err != nil {
		return nil, fmt.Errorf("could not unmarshal fixture %s: %w", filename, err)
	}
	d := &decoder{
		file:  filename,
		types: lang.Builtins(),
		sigs:  map[string]*lang.Signature{},
	}
	if cfg != nil {
		if err := d.declareTypes(cfg.Types, true); err != nil {
			return nil, err
		}
	}
	if err := d.declareTypes(file.Types, false); err != nil {
		return nil, err
	}

	fixture := &Fixture{File: filename, Types: d.types, Expect: map[string][]refcheck.DiagnosticKind{}}

	// signatures first, such that calls can be resolved in any order
	specs := make([]functionSpec, len(file.Functions))
	for i := range file.Functions {
		n := &file.Functions[i]
		if err := n.Decode(&specs[i]); err != nil {
			return nil, d.errorf(n, "invalid function: %v", err)
		}
		sig, err := d.signature(n, &specs[i])
		if err != nil {
			return nil, err
		}
		if _, dup := d.sigs[sig.Name]; dup {
			return nil, d.errorf(n, "function %s declared twice", sig.Name)
		}
		d.sigs[sig.Name] = sig
		fixture.Functions = append(fixture.Functions, &lang.Function{Sig: sig, Unsafe: specs[i].Unsafe, Pos: sig.Pos})
	}

	for i, fn := range fixture.Functions {
		spec := &specs[i]
		body, err := d.block(&spec.Body, fn.Pos)
		if err != nil {
			return nil, err
		}
		fn.Body = body
		if spec.Expect != nil {
			kinds := []refcheck.DiagnosticKind{}
			for _, name := range spec.Expect {
				k, err := refcheck.ParseDiagnosticKind(name)
				if err != nil {
					return nil, d.errorf(&file.Functions[i], "%v", err)
				}
				kinds = append(kinds, k)
			}
			fixture.Expect[fn.Name()] = kinds
		}
	}
	return fixture, nil
}

type decoder struct {
	file  string
	types map[string]lang.Type
	sigs  map[string]*lang.Signature

	// configTypes are the names declared by the config, that fixtures may redeclare
	configTypes map[string]bool
}

func (d *decoder) pos(n *yaml.Node) lang.Pos {
	return lang.Pos{File: d.file, Line: n.Line, Col: n.Column}
}

func (d *decoder) errorf(n *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("%s: %s", d.pos(n), fmt.Sprintf(format, args...))
}

func (d *decoder) declareTypes(specs []config.TypeSpec, fromConfig bool) error {
	if d.configTypes == nil {
		d.configTypes = map[string]bool{}
	}
	declared := map[string]bool{}
	for _, ts := range specs {
		if ts.Name == "" {
			return fmt.Errorf("%s: type without a name", d.file)
		}
		if _, exists := d.types[ts.Name]; (exists && !d.configTypes[ts.Name]) || declared[ts.Name] {
			return fmt.Errorf("%s: type %s declared twice", d.file, ts.Name)
		}
		if ts.ReferenceTags < 0 {
			return fmt.Errorf("%s: type %s has a negative number of reference tags", d.file, ts.Name)
		}
		declared[ts.Name] = true
		if fromConfig {
			d.configTypes[ts.Name] = true
		}
		d.types[ts.Name] = &lang.TypeDesc{
			Name:          ts.Name,
			Destructor:    ts.Destructor,
			ReferenceTags: ts.ReferenceTags,
			NoCopy:        ts.NoCopy,
		}
	}
	return nil
}

func (d *decoder) typ(n *yaml.Node, name string) (lang.Type, error) {
	if name == "" {
		return nil, d.errorf(n, "missing type")
	}
	t, ok := d.types[name]
	if !ok {
		return nil, d.errorf(n, "unknown type %s", name)
	}
	return t, nil
}

// mutability decodes the value of a `ref` key: whether there is a reference, and whether it is mutable
func (d *decoder) mutability(n *yaml.Node, ref string) (isRef bool, mutable bool, err error) {
	switch ref {
	case "":
		return false, false, nil
	case "mut":
		return true, true, nil
	case "imut":
		return true, false, nil
	default:
		return false, false, d.errorf(n, "invalid reference kind %q, expected mut or imut", ref)
	}
}

func (d *decoder) signature(n *yaml.Node, spec *functionSpec) (*lang.Signature, error) {
	if spec.Name == "" {
		return nil, d.errorf(n, "function without a name")
	}
	sig := &lang.Signature{Name: spec.Name, Result: lang.Void, Pos: d.pos(n)}
	switch spec.Kind {
	case "", "regular":
	case "copy-constructor":
		sig.Kind = lang.CopyConstructor
	case "copy-assignment":
		sig.Kind = lang.CopyAssignment
	default:
		return nil, d.errorf(n, "invalid function kind %q", spec.Kind)
	}

	for i := range spec.Params {
		pn := &spec.Params[i]
		var ps paramSpec
		if err := pn.Decode(&ps); err != nil {
			return nil, d.errorf(pn, "invalid parameter: %v", err)
		}
		t, err := d.typ(pn, ps.Type)
		if err != nil {
			return nil, err
		}
		isRef, mutable, err := d.mutability(pn, ps.Ref)
		if err != nil {
			return nil, err
		}
		if !isRef {
			mutable = ps.Mut
			if ps.Tag != "" {
				return nil, d.errorf(pn, "value parameter %s cannot have a reference tag", ps.Name)
			}
		}
		sig.Params = append(sig.Params, lang.Param{
			Name:       ps.Name,
			Type:       t,
			Reference:  isRef,
			Mutable:    mutable,
			Tag:        ps.Tag,
			InnerTags:  ps.Inner,
			Continuous: ps.Continuous,
			Pos:        d.pos(pn),
		})
	}

	if r := spec.Returns; r != nil {
		t, err := d.typ(n, r.Type)
		if err != nil {
			return nil, err
		}
		isRef, mutable, err := d.mutability(n, r.Ref)
		if err != nil {
			return nil, err
		}
		sig.Result = t
		sig.ReturnsReference = isRef
		sig.ReturnMutable = mutable
		sig.ReturnTag = r.Tag
		sig.ReturnInnerTags = r.Inner
		sig.ReturnContinuous = r.Continuous
	}

	for _, s := range spec.Pollution {
		p, err := lang.ParsePollution(s)
		if err != nil {
			return nil, d.errorf(n, "%v", err)
		}
		p.Pos = sig.Pos
		sig.Pollution = append(sig.Pollution, p)
	}
	return sig, nil
}
