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
	"os"
	"os/signal"
	"path/filepath"

	"github.com/awslabs/ar-refcheck/internal/formatutil"
	"github.com/fsnotify/fsnotify"
)

// watch checks the files once, then again each time one of them or the config file changes, until interrupted
func watch(c *checker, files []string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	watched := map[string]bool{}
	dirs := map[string]bool{}
	for _, f := range append([]string{c.configPath}, files...) {
		if f == "" {
			continue
		}
		watched[filepath.Clean(f)] = true
		// editors often replace files, so the directory is watched rather than the file
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("could not watch %s: %w", dir, err)
		}
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	c.checkAll(files)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 || !watched[filepath.Clean(ev.Name)] {
				continue
			}
			fmt.Fprintln(os.Stderr, formatutil.Faint(fmt.Sprintf("%s changed", ev.Name)))
			c.checkAll(files)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return err
		case <-interrupt:
			return nil
		}
	}
}
