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
Package config provides a simple way to manage configuration files.

Use [Load](filename) to load a configuration from a specific filename.

Use [SetGlobalConfig](filename) to set filename as the global config, and then [LoadGlobal]() to load the global config.

A config file should be in yaml format. The top-level fields can be any of the fields defined in the Config
struct type and its embedded [Options]. For example, a valid config file is as follows:

	log-level: 4
	max-diagnostics: 20
	parallelism: 8
	report-format: yaml
	types:
	  - name: Vec
	    destructor: true
	    reference-tags: 1

# Types

Types declared in the config are visible to every fixture checked with that config, in addition to the builtin
types (i32, bool, ...). Fixtures can declare their own types as well.
*/
package config
