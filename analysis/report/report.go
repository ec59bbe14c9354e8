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

// Package report formats the results of the reference checker: a colored text listing for humans, and yaml or
// msgpack documents for the tools that consume the diagnostics.
package report

import (
	"fmt"
	"io"

	"github.com/awslabs/ar-refcheck/analysis/config"
	"github.com/awslabs/ar-refcheck/analysis/lang"
	"github.com/awslabs/ar-refcheck/analysis/refcheck"
	"github.com/awslabs/ar-refcheck/internal/formatutil"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// A Record is one diagnostic
type Record struct {
	Function string   `yaml:"function" msgpack:"function"`
	File     string   `yaml:"file,omitempty" msgpack:"file"`
	Line     int      `yaml:"line" msgpack:"line"`
	Col      int      `yaml:"col" msgpack:"col"`
	Kind     string   `yaml:"kind" msgpack:"kind"`
	Message  string   `yaml:"message" msgpack:"message"`
	Nodes    []string `yaml:"nodes,omitempty" msgpack:"nodes,omitempty"`
}

// A Destruction is one destructor call the code generator must emit
type Destruction struct {
	Function string `yaml:"function" msgpack:"function"`
	Name     string `yaml:"name" msgpack:"name"`
	Type     string `yaml:"type" msgpack:"type"`
	Reason   string `yaml:"reason" msgpack:"reason"`
	File     string `yaml:"file,omitempty" msgpack:"file"`
	Line     int    `yaml:"line" msgpack:"line"`
	Col      int    `yaml:"col" msgpack:"col"`
}

// A Report gathers the diagnostics of several functions
type Report struct {
	Functions    int           `yaml:"functions" msgpack:"functions"`
	Diagnostics  []Record      `yaml:"diagnostics" msgpack:"diagnostics"`
	Destructions []Destruction `yaml:"destructions,omitempty" msgpack:"destructions,omitempty"`

	// Truncated lists the functions that reported more diagnostics than the configured maximum
	Truncated []string `yaml:"truncated,omitempty" msgpack:"truncated,omitempty"`
}

// New builds the report of the results. Destruction events are only included if destructions is true.
func New(results []*refcheck.Result, destructions bool) *Report {
	r := &Report{Functions: len(results), Diagnostics: []Record{}}
	for _, res := range results {
		if res == nil {
			continue
		}
		for _, d := range res.Diagnostics {
			r.Diagnostics = append(r.Diagnostics, Record{
				Function: res.Function,
				File:     d.Pos.File,
				Line:     d.Pos.Line,
				Col:      d.Pos.Col,
				Kind:     d.Kind.String(),
				Message:  d.Message,
				Nodes:    d.Nodes,
			})
		}
		if res.Truncated {
			r.Truncated = append(r.Truncated, res.Function)
		}
		if !destructions {
			continue
		}
		for _, e := range res.Destructions {
			r.Destructions = append(r.Destructions, Destruction{
				Function: res.Function,
				Name:     e.Name,
				Type:     typeName(e.Type),
				Reason:   e.Reason.String(),
				File:     e.Pos.File,
				Line:     e.Pos.Line,
				Col:      e.Pos.Col,
			})
		}
	}
	return r
}

func typeName(t lang.Type) string {
	if t == nil {
		return ""
	}
	return t.String()
}

// Write writes the report in the given format, one of the report formats of the config package
func Write(w io.Writer, format string, r *Report) error {
	switch format {
	case config.FormatText, "":
		return writeText(w, r)
	case config.FormatYaml:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("could not encode report: %w", err)
		}
		return enc.Close()
	case config.FormatMsgpack:
		if err := msgpack.NewEncoder(w).Encode(r); err != nil {
			return fmt.Errorf("could not encode report: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// ReadMsgpack decodes a report written with the msgpack format
func ReadMsgpack(rd io.Reader) (*Report, error) {
	r := &Report{}
	if err := msgpack.NewDecoder(rd).Decode(r); err != nil {
		return nil, fmt.Errorf("could not decode report: %w", err)
	}
	return r, nil
}

func position(file string, line, col int) string {
	return lang.Pos{File: file, Line: line, Col: col}.String()
}

func writeText(w io.Writer, r *Report) error {
	for _, d := range r.Diagnostics {
		_, err := fmt.Fprintf(w, "%s: %s %s in %s: %s\n",
			formatutil.Bold(position(d.File, d.Line, d.Col)),
			formatutil.Red("error:"),
			formatutil.Cyan(d.Kind),
			formatutil.Sanitize(d.Function),
			formatutil.Sanitize(d.Message))
		if err != nil {
			return err
		}
	}
	for _, fn := range r.Truncated {
		if _, err := fmt.Fprintf(w, "%s too many diagnostics in %s, some were dropped\n",
			formatutil.Yellow("warning:"), formatutil.Sanitize(fn)); err != nil {
			return err
		}
	}
	for _, e := range r.Destructions {
		if _, err := fmt.Fprintln(w, formatutil.Faint(fmt.Sprintf("%s: destroy %s %s (%s) in %s",
			position(e.File, e.Line, e.Col), e.Type, formatutil.Sanitize(e.Name), e.Reason,
			formatutil.Sanitize(e.Function)))); err != nil {
			return err
		}
	}
	summary := fmt.Sprintf("%d diagnostic(s) in %d function(s)", len(r.Diagnostics), r.Functions)
	if len(r.Diagnostics) == 0 {
		summary = formatutil.Green(summary)
	} else {
		summary = formatutil.Red(summary)
	}
	_, err := fmt.Fprintln(w, summary)
	return err
}
