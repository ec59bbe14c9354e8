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

// Package funcutil contains generic helpers over slices and optional values.
package funcutil

import (
	"sync"
)

// Map returns a new slice b such that for any i <= len(a), b[i] = f(a[i])
func Map[T any, S any](a []T, f func(T) S) []S {
	res := make([]S, len(a))
	for i, x := range a {
		res[i] = f(x)
	}
	return res
}

// MapParallel is a parallel version of Map using numRoutines goroutines. The order of the results is the order of
// the inputs, whatever the order in which they have been computed.
func MapParallel[T any, S any](a []T, f func(T) S, numRoutines int) []S {
	if numRoutines <= 1 {
		return Map(a, f)
	}
	res := make([]S, len(a))
	indexes := make(chan int)
	go func() {
		defer close(indexes)
		for i := range a {
			indexes <- i
		}
	}()

	wg := &sync.WaitGroup{}
	wg.Add(numRoutines)
	for r := 0; r < numRoutines; r++ {
		go func() {
			defer wg.Done()
			// each index is received once, so the writes never overlap
			for i := range indexes {
				res[i] = f(a[i])
			}
		}()
	}
	wg.Wait()
	return res
}
