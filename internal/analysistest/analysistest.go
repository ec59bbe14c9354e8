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

// Package analysistest contains helpers to load reference checker fixtures in tests and compare the diagnostics
// with the annotations of the fixtures.
package analysistest

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/awslabs/ar-refcheck/analysis/config"
	"github.com/awslabs/ar-refcheck/analysis/loader"
	"github.com/awslabs/ar-refcheck/analysis/refcheck"
	"golang.org/x/exp/slices"
	"golang.org/x/tools/txtar"
)

// A Test is a fixture loaded for a test, with the diagnostics annotated in its source
type Test struct {
	Fixture     *loader.Fixture
	Config      *config.Config
	Annotations map[LPos][]string
}

// LoadTest loads the fixture file in dir, with the config.yaml of dir if there is one.
func LoadTest(t *testing.T, dir string, file string) *Test {
	t.Helper()
	cfg := config.NewDefault()
	configFile := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configFile); err == nil {
		cfg, err = config.Load(configFile)
		if err != nil {
			t.Fatalf("error loading config %s: %v", configFile, err)
		}
	}
	filename := filepath.Join(dir, file)
	content, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("error reading fixture: %v", err)
	}
	fixture, err := loader.Parse(filename, content, cfg)
	if err != nil {
		t.Fatalf("error loading fixture: %v", err)
	}
	return &Test{Fixture: fixture, Config: cfg, Annotations: GetExpectedDiagnostics(filename, content)}
}

// LoadArchive loads a txtar archive holding a fixture.yaml and optionally a config.yaml. The positions of the
// fixture are in the file name archive/fixture.yaml, with lines counted from the start of the fixture section.
func LoadArchive(t *testing.T, archive string) *Test {
	t.Helper()
	ar, err := txtar.ParseFile(archive)
	if err != nil {
		t.Fatalf("error reading archive %s: %v", archive, err)
	}
	cfg := config.NewDefault()
	var content []byte
	for _, f := range ar.Files {
		switch f.Name {
		case "config.yaml":
			cfg, err = config.Parse(filepath.Join(archive, f.Name), f.Data)
			if err != nil {
				t.Fatalf("error parsing config of %s: %v", archive, err)
			}
		case "fixture.yaml":
			content = f.Data
		}
	}
	if content == nil {
		t.Fatalf("archive %s has no fixture.yaml", archive)
	}
	filename := filepath.Join(archive, "fixture.yaml")
	fixture, err := loader.Parse(filename, content, cfg)
	if err != nil {
		t.Fatalf("error parsing fixture of %s: %v", archive, err)
	}
	return &Test{Fixture: fixture, Config: cfg, Annotations: GetExpectedDiagnostics(filename, content)}
}

// Check verifies the functions of the fixture and compares the results with the annotations and the expect lists
// of the fixture
func (tt *Test) Check(t *testing.T) []*refcheck.Result {
	t.Helper()
	v := refcheck.NewVerifier(tt.Config, nil)
	results := v.VerifyAll(tt.Fixture.Functions)
	CheckAnnotations(t, tt.Annotations, results)
	CheckExpectations(t, tt.Fixture, results)
	return results
}

// DiagRegex matches annotations of the form "# @Diag(Kind1, Kind2)" at the end of a fixture line
var DiagRegex = regexp.MustCompile(`#.*@Diag\(((?:\s*\w+\s*,?)+)\)`)

// LPos is a position without column
type LPos struct {
	Filename string
	Line     int
}

func (p LPos) String() string {
	return fmt.Sprintf("%s:%d", p.Filename, p.Line)
}

// GetExpectedDiagnostics returns the diagnostic kinds annotated on each line of the fixture content, sorted
func GetExpectedDiagnostics(filename string, content []byte) map[LPos][]string {
	res := map[LPos][]string{}
	scanner := bufio.NewScanner(bytes.NewReader(content))
	line := 0
	for scanner.Scan() {
		line++
		a := DiagRegex.FindStringSubmatch(scanner.Text())
		if len(a) <= 1 {
			continue
		}
		pos := LPos{Filename: filename, Line: line}
		for _, kind := range strings.Split(a[1], ",") {
			if k := strings.TrimSpace(kind); k != "" {
				res[pos] = append(res[pos], k)
			}
		}
		slices.Sort(res[pos])
	}
	return res
}

// GetReportedDiagnostics returns the diagnostic kinds of the results on each line, sorted
func GetReportedDiagnostics(results []*refcheck.Result) map[LPos][]string {
	res := map[LPos][]string{}
	for _, r := range results {
		for _, d := range r.Diagnostics {
			pos := RemoveColumn(d)
			res[pos] = append(res[pos], d.Kind.String())
		}
	}
	for pos := range res {
		slices.Sort(res[pos])
	}
	return res
}

// RemoveColumn returns the position of the diagnostic without its column
func RemoveColumn(d refcheck.Diagnostic) LPos {
	return LPos{Filename: d.Pos.File, Line: d.Pos.Line}
}

// CheckAnnotations reports a test error for every line where the annotated and the reported diagnostics differ
func CheckAnnotations(t *testing.T, expected map[LPos][]string, results []*refcheck.Result) {
	t.Helper()
	reported := GetReportedDiagnostics(results)
	for pos, kinds := range expected {
		if !slices.Equal(kinds, reported[pos]) {
			t.Errorf("%s: expected %v, got %v", pos, kinds, reported[pos])
		}
	}
	for pos, kinds := range reported {
		if _, ok := expected[pos]; !ok {
			t.Errorf("%s: unexpected %v", pos, kinds)
		}
	}
}

// CheckExpectations reports a test error for every function of the fixture whose diagnostics differ from its
// expect list
func CheckExpectations(t *testing.T, fixture *loader.Fixture, results []*refcheck.Result) {
	t.Helper()
	for _, r := range results {
		expected, ok := fixture.Expect[r.Function]
		if !ok {
			continue
		}
		if !slices.Equal(expected, r.Kinds()) {
			t.Errorf("%s: expected %v, got %v", r.Function, expected, r.Diagnostics)
		}
	}
}
