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

package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/awslabs/ar-refcheck/analysis/lang"
	"github.com/awslabs/ar-refcheck/analysis/refcheck"
)

// Statistics summarizes the size of the checked functions and the diagnostics found
type Statistics struct {
	NumberOfFunctions         uint
	NumberOfNonemptyFunctions uint
	NumberOfStatements        uint
	NumberOfLoops             uint
	NumberOfDestructions      uint
	DiagnosticsByKind         map[string]uint
}

// Stats computes the statistics of the functions and of their results
func Stats(fns []*lang.Function, results []*refcheck.Result) Statistics {
	s := Statistics{DiagnosticsByKind: map[string]uint{}}
	for _, fn := range fns {
		s.NumberOfFunctions++
		if fn.Body == nil || len(fn.Body.Stmts) == 0 {
			continue
		}
		s.NumberOfNonemptyFunctions++
		lang.Inspect(fn.Body, func(st lang.Stmt) {
			s.NumberOfStatements++
			switch st.(type) {
			case *lang.While, *lang.For:
				s.NumberOfLoops++
			}
		})
	}
	for _, res := range results {
		if res == nil {
			continue
		}
		s.NumberOfDestructions += uint(len(res.Destructions))
		for _, d := range res.Diagnostics {
			s.DiagnosticsByKind[d.Kind.String()]++
		}
	}
	return s
}

// WriteStats prints the statistics, one per line
func WriteStats(w io.Writer, s Statistics) error {
	kinds := make([]string, 0, len(s.DiagnosticsByKind))
	for k := range s.DiagnosticsByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	_, err := fmt.Fprintf(w, "%d functions, %d non-empty\n%d statements, %d loops\n%d destructions\n",
		s.NumberOfFunctions, s.NumberOfNonemptyFunctions, s.NumberOfStatements, s.NumberOfLoops,
		s.NumberOfDestructions)
	if err != nil {
		return err
	}
	for _, k := range kinds {
		if _, err := fmt.Fprintf(w, "%5d %s\n", s.DiagnosticsByKind[k], k); err != nil {
			return err
		}
	}
	return nil
}
