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
Package loader reads reference checker fixtures: yaml files declaring types and functions with their signatures,
reference tags and bodies.

A fixture looks like:

	types:
	  - name: Vec
	    destructor: true
	functions:
	  - name: id
	    params:
	      - {name: a, type: i32, ref: mut, tag: a}
	    returns: {type: i32, ref: mut, tag: a}
	    body:
	      - return: a
	  - name: main
	    body:
	      - {decl: x, type: i32, mut: true, init: 0}
	      - {decl: r, type: i32, ref: mut, init: {call: id, args: [x]}}
	      - {decl: q, type: i32, ref: imut, init: x} # @Diag(ReferenceProtectionError)
	    expect: [ReferenceProtectionError]

# Statements

Each statement is a mapping whose first key gives its kind:

	{decl: x, type: T, mut: bool, ref: mut|imut, init: EXPR}
	{assign: EXPR, value: EXPR}
	{expr: EXPR}
	{return: EXPR}                  the value is optional
	{if: EXPR, then: [...], else: [...]}
	{static-if: bool, then: [...], else: [...]}
	{while: EXPR, body: [...]}
	{for: {init: STMT, cond: EXPR, step: STMT}, body: [...]}
	{block: [...]}
	{unsafe: [...]}
	break, continue, return

An else branch holding a single if statement continues the chain of the enclosing if.

# Expressions

Scalars are literals (integers, floats and booleans), `move(x)`, or variable names. Other expressions are mappings:

	{call: f, args: [...]}
	{move: x}
	{member: EXPR, field: f, type: T, ref: mut|imut}
	{and: [EXPR, EXPR]} and {or: [EXPR, EXPR]}
	{select: EXPR, then: EXPR, else: EXPR, type: T, ref: mut|imut}
	{cast: EXPR, type: T, mut: bool, unsafe: bool}
	{lit: value, type: T}

Functions can call any function of the same fixture, declared before or after them.
*/
package loader
