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

/*
Package refcheck implements the reference-safety verification of function bodies.

The verifier tracks, for every variable and every reference of a function, which references may alias which
storage, whether a value has been moved away, and whether a reference may escape through the result or through the
arguments of the function. The state at one program point is an [AliasGraph]: nodes are variables, references, and
the "inner references" stored inside values whose type holds references; a link (x, r) records that reference r
refers to x.

The rules are:
  - a node referred to by a mutable reference cannot be referred to by any other reference,
  - a moved variable cannot be used,
  - a variable cannot be destroyed while a reference refers to it,
  - the result and the reference arguments of a function may only refer to what its [Contract] allows.

Snapshots of the graph are persistent and cloning them is cheap. Alternative branches are checked on clones and
reconciled by [Merge]; loop bodies are checked once and compared with the state before the loop by [CheckLoop].

Use a [Verifier] to check functions:

	v := refcheck.NewVerifier(cfg, logger)
	for _, res := range v.VerifyAll(functions) {
		for _, d := range res.Diagnostics {
			fmt.Println(d)
		}
	}

Each [Result] also lists the destruction events of the function, which tell the code generator where the
destructors of values must run.
*/
package refcheck
