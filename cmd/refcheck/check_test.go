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

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/awslabs/ar-refcheck/analysis/config"
)

const fixture = `functions:
  - name: clean
    body:
      - {decl: x, type: i32, init: 0}
  - name: aliasing
    body:
      - {decl: x, type: i32, mut: true, init: 0}
      - {decl: a, type: i32, ref: mut, init: x}
      - {decl: b, type: i32, ref: mut, init: x}
`

func writeFixture(t *testing.T, content string) string {
	dir := t.TempDir()
	file := filepath.Join(dir, "fixture.yaml")
	if err := os.WriteFile(file, []byte(content), 0600); err != nil {
		t.Fatalf("could not write fixture: %v", err)
	}
	return file
}

func TestCheckAll(t *testing.T) {
	file := writeFixture(t, fixture)
	var out bytes.Buffer
	c := &checker{
		out: &out,
		overrides: func(cfg *config.Config) {
			cfg.ReportFormat = config.FormatYaml
			cfg.DumpGraphs = true
			cfg.EmitLLVM = true
		},
	}
	if code := c.checkAll([]string{file}); code != exitDiagnostics {
		t.Errorf("expected exit code %d, got %d", exitDiagnostics, code)
	}
	if !strings.Contains(out.String(), "kind: ReferenceProtectionError") {
		t.Errorf("expected the protection error in the report:\n%s", out.String())
	}
	dir := filepath.Dir(file)
	for _, name := range []string{"fixture.clean.dot", "fixture.aliasing.dot", "fixture.ll"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to be written: %v", name, err)
		}
	}
}

func TestCheckAllClean(t *testing.T) {
	file := writeFixture(t, "functions:\n  - name: f\n    body: [{decl: x, type: i32, init: 0}]\n")
	var stats bytes.Buffer
	c := &checker{out: &bytes.Buffer{}, stats: &stats}
	if code := c.checkAll([]string{file}); code != exitOk {
		t.Errorf("expected exit code %d, got %d", exitOk, code)
	}
	if !strings.HasPrefix(stats.String(), "1 functions, 1 non-empty\n1 statements") {
		t.Errorf("unexpected statistics %q", stats.String())
	}
}

func TestCheckAllErrors(t *testing.T) {
	c := &checker{out: &bytes.Buffer{}}
	if code := c.checkAll([]string{filepath.Join(t.TempDir(), "missing.yaml")}); code != exitError {
		t.Errorf("expected exit code %d for a missing fixture, got %d", exitError, code)
	}
	c.overrides = func(cfg *config.Config) { cfg.ReportFormat = "xml" }
	if code := c.checkAll([]string{writeFixture(t, fixture)}); code != exitError {
		t.Errorf("expected exit code %d for an invalid format, got %d", exitError, code)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	file := writeFixture(t, fixture)
	if p := defaultConfigPath(file); p != "" {
		t.Errorf("expected no config, got %s", p)
	}
	cfgFile := filepath.Join(filepath.Dir(file), "config.yaml")
	if err := os.WriteFile(cfgFile, []byte("report-format: yaml\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if p := defaultConfigPath(file); p != cfgFile {
		t.Errorf("expected %s, got %s", cfgFile, p)
	}
}
