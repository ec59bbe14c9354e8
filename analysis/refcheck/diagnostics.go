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
	"strings"

	"github.com/awslabs/ar-refcheck/analysis/lang"
)

// DiagnosticKind identifies the rule a diagnostic reports the violation of
type DiagnosticKind int

const (
	InternalInconsistency DiagnosticKind = iota
	ReferenceProtectionError
	AccessingMovedVariable
	MovedVariableStillHaveReferences
	DestroyedVariableStillHaveReferences
	ReturningUnallowedReference
	UnallowedReferencePollution
	ReferencePollutionForArgReference
	OuterVariableMoveInsideLoop
	MutableReferencePollutionOfOuterLoopVariable
	OuterLoopVariableAliasingChanged
	ExpectedReferenceValue
	ExpectedVariable
	BindingConstReferenceToNonconstReference
	CopyOfNonCopyableType
	NameNotFound
	InvalidReferenceTagCount
	SelfReferencePollution
	ArgReferencePollution
	ExplicitReferencePollutionForCopyConstructor
	ExplicitReferencePollutionForCopyAssignmentOperator
	InnerReferenceMutabilityChanging
	BreakOutsideLoop
	ContinueOutsideLoop
	UnsafeReferenceCastOutsideUnsafeBlock
	MutableReferenceCastOutsideUnsafeBlock
	NoReturnInFunctionReturningNonVoid
	ArgumentCountMismatch
	numDiagnosticKinds
)

var diagnosticNames = [numDiagnosticKinds]string{
	"InternalInconsistency",
	"ReferenceProtectionError",
	"AccessingMovedVariable",
	"MovedVariableStillHaveReferences",
	"DestroyedVariableStillHaveReferences",
	"ReturningUnallowedReference",
	"UnallowedReferencePollution",
	"ReferencePollutionForArgReference",
	"OuterVariableMoveInsideLoop",
	"MutableReferencePollutionOfOuterLoopVariable",
	"OuterLoopVariableAliasingChanged",
	"ExpectedReferenceValue",
	"ExpectedVariable",
	"BindingConstReferenceToNonconstReference",
	"CopyOfNonCopyableType",
	"NameNotFound",
	"InvalidReferenceTagCount",
	"SelfReferencePollution",
	"ArgReferencePollution",
	"ExplicitReferencePollutionForCopyConstructor",
	"ExplicitReferencePollutionForCopyAssignmentOperator",
	"InnerReferenceMutabilityChanging",
	"BreakOutsideLoop",
	"ContinueOutsideLoop",
	"UnsafeReferenceCastOutsideUnsafeBlock",
	"MutableReferenceCastOutsideUnsafeBlock",
	"NoReturnInFunctionReturningNonVoid",
	"ArgumentCountMismatch",
}

func (k DiagnosticKind) String() string {
	if k < 0 || k >= numDiagnosticKinds {
		return fmt.Sprintf("DiagnosticKind(%d)", int(k))
	}
	return diagnosticNames[k]
}

// ParseDiagnosticKind returns the kind with the given name
func ParseDiagnosticKind(s string) (DiagnosticKind, error) {
	for i, name := range diagnosticNames {
		if strings.EqualFold(name, s) {
			return DiagnosticKind(i), nil
		}
	}
	return InternalInconsistency, fmt.Errorf("unknown diagnostic kind %q", s)
}

// A Diagnostic is one violation of the reference-safety rules
type Diagnostic struct {
	Kind DiagnosticKind
	Pos  lang.Pos

	// Nodes are the names of the nodes involved, when the diagnostic is about specific variables or references
	Nodes []string

	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Kind, d.Message)
}

// A GraphError is returned by the alias graph operations that detect a rule violation
type GraphError struct {
	Kind DiagnosticKind
	Node NodeID
	Msg  string
}

func newGraphError(kind DiagnosticKind, node NodeID, format string, args ...any) *GraphError {
	return &GraphError{Kind: kind, Node: node, Msg: fmt.Sprintf(format, args...)}
}

func (e *GraphError) Error() string {
	return e.Kind.String() + ": " + e.Msg
}

// A Result is the outcome of checking one function
type Result struct {
	Function string
	Contract *Contract

	// Diagnostics are sorted by position of discovery
	Diagnostics []Diagnostic

	// Destructions are the destruction events, in the order the code generator must emit them
	Destructions []DestroyEvent

	// Graph is the alias graph when the function returns normally. It is nil if every path returns explicitly.
	Graph *AliasGraph

	// Truncated is set when diagnostics were dropped because of the per-function limit
	Truncated bool

	maxDiagnostics int
}

// HasErrors returns true if at least one diagnostic has been reported
func (r *Result) HasErrors() bool {
	return len(r.Diagnostics) > 0
}

// Count returns the number of diagnostics of the given kind
func (r *Result) Count(kind DiagnosticKind) int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// Kinds returns the kinds of the diagnostics, in order
func (r *Result) Kinds() []DiagnosticKind {
	res := make([]DiagnosticKind, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		res[i] = d.Kind
	}
	return res
}

func (r *Result) add(d Diagnostic) {
	if r.maxDiagnostics > 0 && len(r.Diagnostics) >= r.maxDiagnostics {
		r.Truncated = true
		return
	}
	r.Diagnostics = append(r.Diagnostics, d)
}
