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

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewDefault(t *testing.T) {
	c := NewDefault()
	if c.ReportFormat != FormatText || c.Parallelism != 1 || c.LogLevel != int(InfoLevel) {
		t.Errorf("unexpected default options %+v", c.Options)
	}
	if c.SourceFile() != "" || len(c.Types) != 0 {
		t.Errorf("default config should not have a source file or types")
	}
}

func TestLoadFullConfig(t *testing.T) {
	name := filepath.Join("testdata", "full.yaml")
	c, err := Load(name)
	if err != nil {
		t.Fatalf("failed to load %s: %v", name, err)
	}
	if c.ReportFormat != FormatYaml || !c.ReportDestructions || c.MaxDiagnostics != 20 || c.Parallelism != 8 {
		t.Errorf("unexpected options %+v", c.Options)
	}
	if c.LogLevel != int(DebugLevel) || !c.SilenceWarn {
		t.Errorf("unexpected logging options %+v", c.Options)
	}
	if len(c.Types) != 2 {
		t.Fatalf("expected 2 types, got %d", len(c.Types))
	}
	if vec := c.Types[0]; vec.Name != "Vec" || !vec.Destructor || vec.ReferenceTags != 0 {
		t.Errorf("unexpected type %+v", vec)
	}
	if span := c.Types[1]; span.Name != "Span" || span.ReferenceTags != 1 || !span.NoCopy {
		t.Errorf("unexpected type %+v", span)
	}
	if c.SourceFile() != name {
		t.Errorf("expected source file %s, got %s", name, c.SourceFile())
	}
	if c.RelPath("fixture.yaml") != filepath.Join("testdata", "fixture.yaml") {
		t.Errorf("paths should be relative to the config file, got %s", c.RelPath("fixture.yaml"))
	}
}

func TestLoadNonExistentFileReturnsError(t *testing.T) {
	c, err := Load(filepath.Join("testdata", "does_not_exist.yaml"))
	if c != nil || err == nil {
		t.Errorf("expected error and nil value when trying to load non existent file")
	}
}

func TestLoadInvalidFilesReturnError(t *testing.T) {
	for _, name := range []string{"bad_format.yaml", "bad_report_format.yaml", "negative_tags.yaml"} {
		c, err := Load(filepath.Join("testdata", name))
		if c != nil || err == nil {
			t.Errorf("%s: expected error and nil value", name)
		}
	}
}

func TestParseDefaults(t *testing.T) {
	c, err := Parse("empty.yaml", []byte("max-diagnostics: 3\n"))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if c.LogLevel != int(InfoLevel) || c.Parallelism != 1 || c.ReportFormat != FormatText {
		t.Errorf("unset options should have their default value, got %+v", c.Options)
	}
}

func TestParseWithReports(t *testing.T) {
	dir := t.TempDir()
	reports := filepath.Join(dir, "reports")
	c, err := Parse(filepath.Join(dir, "config.yaml"), []byte("dump-graphs: true\nreports-dir: "+reports+"\n"))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if info, err := os.Stat(c.ReportsDir); err != nil || !info.IsDir() {
		t.Errorf("expected reports dir %s to be created", c.ReportsDir)
	}

	// without a reports dir, one is created next to the config file
	c, err = Parse(filepath.Join(dir, "config.yaml"), []byte("emit-llvm: true\n"))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if filepath.Dir(c.ReportsDir) != dir || !strings.HasSuffix(c.ReportsDir, "-report") {
		t.Errorf("unexpected reports dir %s", c.ReportsDir)
	}
}

func TestGlobalConfig(t *testing.T) {
	defer SetGlobalConfig("")
	SetGlobalConfig("")
	if c, err := LoadGlobal(); err != nil || c.SourceFile() != "" {
		t.Errorf("expected the default config, got %v, %v", c, err)
	}
	SetGlobalConfig(filepath.Join("testdata", "full.yaml"))
	if c, err := LoadGlobal(); err != nil || c.ReportFormat != FormatYaml {
		t.Errorf("expected the config of full.yaml, got %v, %v", c, err)
	}
}

func TestLogGroup(t *testing.T) {
	c := NewDefault()
	c.LogLevel = int(WarnLevel)
	l := NewLogGroup(c)
	var buf bytes.Buffer
	l.SetAllOutput(&buf)
	l.SetAllFlags(0)

	l.Infof("hidden")
	l.Warnf("shown %d", 1)
	l.Errorf("shown %d", 2)
	if buf.String() != "[WARN] shown 1\n[ERROR] shown 2\n" {
		t.Errorf("unexpected log output %q", buf.String())
	}
	if l.LogsDebug() || !l.Logs(WarnLevel) {
		t.Errorf("unexpected log levels")
	}

	c.SilenceWarn = true
	l = NewLogGroup(c)
	buf.Reset()
	l.SetAllOutput(&buf)
	l.Warnf("silenced")
	if buf.Len() != 0 {
		t.Errorf("warnings should be silenced, got %q", buf.String())
	}
}
