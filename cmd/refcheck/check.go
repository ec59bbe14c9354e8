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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/awslabs/ar-refcheck/analysis/config"
	"github.com/awslabs/ar-refcheck/analysis/loader"
	"github.com/awslabs/ar-refcheck/analysis/lowering"
	"github.com/awslabs/ar-refcheck/analysis/refcheck"
	"github.com/awslabs/ar-refcheck/analysis/report"
	"github.com/awslabs/ar-refcheck/internal/formatutil"
)

// Exit codes
const (
	exitOk          = 0
	exitDiagnostics = 1
	exitError       = 2
)

// checker checks fixture files with the options of a config file and of the command line
type checker struct {
	// configPath is the config file, or the empty string for the default config
	configPath string

	// overrides applies the command line options to the loaded config
	overrides func(*config.Config)

	out io.Writer

	// stats receives the statistics of each fixture, if not nil
	stats io.Writer
}

// defaultConfigPath returns the config.yaml next to the fixture, if there is one
func defaultConfigPath(fixture string) string {
	p := filepath.Join(filepath.Dir(fixture), "config.yaml")
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

func (c *checker) loadConfig() (*config.Config, error) {
	cfg := config.NewDefault()
	if c.configPath != "" {
		config.SetGlobalConfig(c.configPath)
		loaded, err := config.LoadGlobal()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if c.overrides != nil {
		c.overrides(cfg)
	}
	if !config.IsReportFormat(cfg.ReportFormat) {
		return nil, fmt.Errorf("invalid report format %q", cfg.ReportFormat)
	}
	return cfg, nil
}

// checkAll checks the fixtures and returns the exit code of the tool
func (c *checker) checkAll(files []string) int {
	cfg, err := c.loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		return exitError
	}
	logger := config.NewLogGroup(cfg)
	logger.SetAllOutput(os.Stderr)

	code := exitOk
	for _, file := range files {
		found, err := c.checkFile(cfg, logger, file)
		if err != nil {
			logger.Errorf("%s: %v", file, err)
			return exitError
		}
		if found {
			code = exitDiagnostics
		}
	}
	return code
}

// checkFile checks one fixture, writes its report and the requested artifacts. It returns true if some diagnostic
// has been reported.
func (c *checker) checkFile(cfg *config.Config, logger *config.LogGroup, file string) (bool, error) {
	fixture, err := loader.Load(file, cfg)
	if err != nil {
		return false, err
	}
	start := time.Now()
	results := refcheck.NewVerifier(cfg, logger).VerifyAll(fixture.Functions)
	logger.Infof("%s", formatutil.Faint(fmt.Sprintf("%s: %d function(s) checked in %3.4f s", file, len(results),
		time.Since(start).Seconds())))

	if c.stats != nil {
		if err := report.WriteStats(c.stats, report.Stats(fixture.Functions, results)); err != nil {
			return false, err
		}
	}

	r := report.New(results, cfg.ReportDestructions)
	if err := report.Write(c.out, cfg.ReportFormat, r); err != nil {
		return false, err
	}

	if cfg.DumpGraphs || cfg.EmitLLVM {
		dir, err := outputDir(cfg, file)
		if err != nil {
			return false, err
		}
		base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		if cfg.DumpGraphs {
			if err := dumpGraphs(dir, base, results, logger); err != nil {
				return false, err
			}
		}
		if cfg.EmitLLVM {
			ll := filepath.Join(dir, base+".ll")
			if err := lowering.WriteFile(ll, lowering.Lower(results)); err != nil {
				return false, err
			}
			logger.Infof("wrote %s", ll)
		}
	}
	return len(r.Diagnostics) > 0, nil
}

func outputDir(cfg *config.Config, file string) (string, error) {
	if cfg.ReportsDir == "" {
		return filepath.Dir(file), nil
	}
	if err := os.MkdirAll(cfg.ReportsDir, 0750); err != nil {
		return "", fmt.Errorf("could not create directory %s: %w", cfg.ReportsDir, err)
	}
	return cfg.ReportsDir, nil
}

func dumpGraphs(dir string, base string, results []*refcheck.Result, logger *config.LogGroup) error {
	for _, res := range results {
		if res.Graph == nil {
			logger.Debugf("%s always returns explicitly, no graph to dump", res.Function)
			continue
		}
		b, err := res.Graph.MarshalDOT(res.Function)
		if err != nil {
			return fmt.Errorf("could not marshal the graph of %s: %w", res.Function, err)
		}
		name := filepath.Join(dir, base+"."+res.Function+".dot")
		if err := os.WriteFile(name, b, 0600); err != nil {
			return fmt.Errorf("could not write %s: %w", name, err)
		}
		logger.Debugf("wrote %s", name)
	}
	return nil
}
