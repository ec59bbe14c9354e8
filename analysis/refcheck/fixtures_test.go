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

package refcheck_test

import (
	"path/filepath"
	"testing"

	"github.com/awslabs/ar-refcheck/internal/analysistest"
)

func TestScenarios(t *testing.T) {
	test := analysistest.LoadTest(t, "testdata", "scenarios.yaml")
	results := test.Check(t)
	if len(results) != len(test.Fixture.Functions) {
		t.Errorf("expected one result per function")
	}
}

func TestCallsArchive(t *testing.T) {
	test := analysistest.LoadArchive(t, filepath.Join("testdata", "calls.txtar"))
	test.Check(t)
}
