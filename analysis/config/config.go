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
	"fmt"
	"os"
	"path"

	"gopkg.in/yaml.v3"
)

var (
	// The global config file
	configFile string
)

// SetGlobalConfig sets the global config filename
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file that has been set by SetGlobalConfig. If no file has been set, the default
// config is returned.
func LoadGlobal() (*Config, error) {
	if configFile == "" {
		return NewDefault(), nil
	}
	return Load(configFile)
}

// Config contains the options of the reference checker and of the tools around it.
// If some field is not defined in the config file, it will be empty/zero in the struct.
// private fields are not populated from a yaml file, but computed after initialization
type Config struct {
	Options

	sourceFile string

	// Types lists additional types that are visible to every fixture, on top of the builtin types
	Types []TypeSpec `yaml:"types"`
}

// TypeSpec describes a type by the facts the reference checker needs
type TypeSpec struct {
	Name string `yaml:"name"`

	// Destructor is true if values of the type must be destroyed
	Destructor bool `yaml:"destructor"`

	// ReferenceTags is the number of references the type holds inside its values
	ReferenceTags int `yaml:"reference-tags"`

	// NoCopy is true for types that cannot be copy-constructed
	NoCopy bool `yaml:"no-copy"`
}

// Options are the top-level options of the config file
type Options struct {
	// ReportsDir is the directory where graph dumps and LLVM modules are written. If the config file does not specify
	// a ReportsDir but sets DumpGraphs or EmitLLVM, a directory is created next to the config file.
	ReportsDir string `yaml:"reports-dir"`

	// ReportFormat is the format of the diagnostics report: text, yaml or msgpack
	ReportFormat string `yaml:"report-format"`

	// ReportDestructions adds the destruction events of each function to the report
	ReportDestructions bool `yaml:"report-destructions"`

	// DumpGraphs writes the final alias graph of each function in the reports directory, in dot format
	DumpGraphs bool `yaml:"dump-graphs"`

	// EmitLLVM writes an LLVM module with the destructor calls of each fixture in the reports directory
	EmitLLVM bool `yaml:"emit-llvm"`

	// MaxDiagnostics sets a limit for the number of diagnostics recorded per function. If MaxDiagnostics > 0, then at
	// most MaxDiagnostics will be recorded. Otherwise it is ignored.
	MaxDiagnostics int `yaml:"max-diagnostics"`

	// Parallelism is the number of functions verified concurrently. Values <= 0 mean 1.
	Parallelism int `yaml:"parallelism"`

	// Loglevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`

	// Suppress warnings
	SilenceWarn bool `yaml:"silence-warn"`
}

// NewDefault returns a default config.
func NewDefault() *Config {
	return &Config{
		sourceFile: "",
		Types:      nil,
		Options: Options{
			ReportsDir:         "",
			ReportFormat:       FormatText,
			ReportDestructions: false,
			DumpGraphs:         false,
			EmitLLVM:           false,
			MaxDiagnostics:     0,
			Parallelism:        1,
			LogLevel:           int(InfoLevel),
			SilenceWarn:        false,
		},
	}
}

// Load reads a configuration from a file
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	return Parse(filename, b)
}

// Parse reads a configuration from the content b of the file filename. The file name is used to resolve relative
// paths.
func Parse(filename string, b []byte) (*Config, error) {
	cfg := NewDefault()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file %s: %w", filename, err)
	}

	cfg.sourceFile = filename

	if cfg.DumpGraphs || cfg.EmitLLVM {
		if err := setReportsDir(cfg, filename); err != nil {
			return nil, err
		}
	}

	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}

	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}

	if cfg.ReportFormat == "" {
		cfg.ReportFormat = FormatText
	}
	if !IsReportFormat(cfg.ReportFormat) {
		return nil, fmt.Errorf("invalid report-format %q in %s", cfg.ReportFormat, filename)
	}

	for _, ts := range cfg.Types {
		if ts.Name == "" {
			return nil, fmt.Errorf("type without a name in %s", filename)
		}
		if ts.ReferenceTags < 0 {
			return nil, fmt.Errorf("type %s has a negative number of reference tags", ts.Name)
		}
	}

	return cfg, nil
}

func setReportsDir(c *Config, filename string) error {
	if c.ReportsDir == "" {
		tmpdir, err := os.MkdirTemp(path.Dir(filename), "*-report")
		if err != nil {
			return fmt.Errorf("could not create temp dir for reports")
		}
		c.ReportsDir = tmpdir
	} else {
		err := os.Mkdir(c.ReportsDir, 0750)
		if err != nil {
			if !os.IsExist(err) {
				return fmt.Errorf("could not create directory %s", c.ReportsDir)
			}
		}
	}
	return nil
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	return path.Join(path.Dir(c.sourceFile), filename)
}

// SourceFile returns the name of the file the config has been loaded from, or the empty string for default configs
func (c Config) SourceFile() string {
	return c.sourceFile
}

// IsReportFormat returns true if s names a supported report format
func IsReportFormat(s string) bool {
	switch s {
	case FormatText, FormatYaml, FormatMsgpack:
		return true
	}
	return false
}
