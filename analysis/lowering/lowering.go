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

// Package lowering emits the destructor calls computed by the reference checker as an LLVM module. Each verified
// function becomes an LLVM function that allocates a slot per destroyed value and calls the destructor of its type
// at every destruction point, in order.
package lowering

import (
	"fmt"
	"os"

	"github.com/awslabs/ar-refcheck/analysis/refcheck"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
)

var slotType = types.I8

// DestructorName returns the name of the LLVM function that destroys values of the type named typeName
func DestructorName(typeName string) string {
	return typeName + ".destroy"
}

type lowerer struct {
	module      *ir.Module
	destructors map[string]*ir.Func
}

// Lower builds the module of the results. Functions that have diagnostics are skipped: the destruction events of a
// function that does not verify are meaningless.
func Lower(results []*refcheck.Result) *ir.Module {
	l := &lowerer{module: ir.NewModule(), destructors: map[string]*ir.Func{}}
	for _, res := range results {
		if res == nil || res.HasErrors() {
			continue
		}
		l.function(res)
	}
	return l.module
}

func (l *lowerer) destructor(typeName string) *ir.Func {
	if f, ok := l.destructors[typeName]; ok {
		return f
	}
	f := l.module.NewFunc(DestructorName(typeName), types.Void, ir.NewParam("self", types.NewPointer(slotType)))
	l.destructors[typeName] = f
	return f
}

func (l *lowerer) function(res *refcheck.Result) {
	f := l.module.NewFunc(res.Function, types.Void)
	entry := f.NewBlock("entry")
	slots := map[refcheck.NodeID]*ir.InstAlloca{}
	for _, e := range res.Destructions {
		if _, ok := slots[e.Node]; ok {
			continue
		}
		slot := entry.NewAlloca(slotType)
		slot.LocalName = fmt.Sprintf("%s.%d", e.Name, e.Node)
		slots[e.Node] = slot
	}

	// one block per destruction point
	current := entry
	for i, e := range res.Destructions {
		if i == 0 || e.Pos != res.Destructions[i-1].Pos {
			next := f.NewBlock(fmt.Sprintf("destroy.%d", i))
			current.NewBr(next)
			current = next
		}
		current.NewCall(l.destructor(e.Type.String()), slots[e.Node])
	}
	current.NewRet(nil)
}

// WriteFile writes the module in textual LLVM IR
func WriteFile(filename string, m *ir.Module) error {
	if err := os.WriteFile(filename, []byte(m.String()), 0600); err != nil {
		return fmt.Errorf("could not write llvm module: %w", err)
	}
	return nil
}
