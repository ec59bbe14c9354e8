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

package formatutil

import "testing"

func TestColor(t *testing.T) {
	defer func(e bool) { Enabled = e }(Enabled)

	Enabled = false
	if s := Red("error"); s != "error" {
		t.Errorf("expected no escape sequence, got %q", s)
	}
	Enabled = true
	if s := Red("error"); s != "\033[1;31merror\033[0m" {
		t.Errorf("expected a red string, got %q", s)
	}
}

func TestSanitize(t *testing.T) {
	if s := Sanitize("a\x1b[2Jb\n"); s != `a\x1b[2Jb\n` {
		t.Errorf("unexpected sanitized string %q", s)
	}
}
