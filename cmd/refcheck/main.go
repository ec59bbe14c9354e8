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
	"flag"
	"fmt"
	"os"

	"github.com/awslabs/ar-refcheck/analysis/config"
)

var (
	configPath     = flag.String("config", "", "Config file path; defaults to config.yaml next to the first fixture")
	format         = flag.String("format", "", "Report format: text, yaml or msgpack (overrides the config)")
	parallelism    = flag.Int("j", 0, "Number of functions verified concurrently (overrides the config)")
	dumpGraphsFlag = flag.Bool("dot", false, "Write the final alias graph of each function in dot format")
	emitLLVM       = flag.Bool("ll", false, "Write an LLVM module with the destructor calls of each fixture")
	destructions   = flag.Bool("destructions", false, "Add the destruction events to the report")
	reportsDir     = flag.String("reports", "", "Directory for graphs and LLVM modules (overrides the config)")
	verbose        = flag.Bool("verbose", false, "Verbose printing on standard error")
	watchFiles     = flag.Bool("watch", false, "Check the fixtures again each time they change")
	stats          = flag.Bool("stats", false, "Print statistics about each fixture on standard error")
)

const usage = ` Check the reference safety of the functions of fixture files.
Usage:
    refcheck [options] <fixture.yaml>...
Examples:
% refcheck -config config.yaml fixture.yaml
% refcheck -format yaml -destructions fixture.yaml
Options:
`

func main() {
	flag.Parse()

	if flag.NArg() == 0 {
		_, _ = fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
		os.Exit(2)
	}

	c := &checker{
		configPath: *configPath,
		out:        os.Stdout,
		overrides: func(cfg *config.Config) {
			if *format != "" {
				cfg.ReportFormat = *format
			}
			if *parallelism > 0 {
				cfg.Parallelism = *parallelism
			}
			if *reportsDir != "" {
				cfg.ReportsDir = *reportsDir
			}
			cfg.DumpGraphs = cfg.DumpGraphs || *dumpGraphsFlag
			cfg.EmitLLVM = cfg.EmitLLVM || *emitLLVM
			cfg.ReportDestructions = cfg.ReportDestructions || *destructions
			if *verbose {
				cfg.LogLevel = int(config.DebugLevel)
			}
		},
	}
	if *stats {
		c.stats = os.Stderr
	}
	if c.configPath == "" {
		c.configPath = defaultConfigPath(flag.Arg(0))
	}

	if *watchFiles {
		if err := watch(c, flag.Args()); err != nil {
			fmt.Fprintf(os.Stderr, "watch failed: %v\n", err)
			os.Exit(2)
		}
		return
	}
	os.Exit(c.checkAll(flag.Args()))
}
