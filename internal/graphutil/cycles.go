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

package graphutil

import (
	"sort"

	"github.com/yourbasic/graph"
)

// FindAllElementaryCycles finds all elementary cycles in the graph g. Each cycle starts and ends with its smallest
// node. Self-loops are not reported.
// This uses Donald B. Johnson's algorithm presented in
// "Finding All The Elementary Circuits of a Directed Graph", 1975
func FindAllElementaryCycles(g AdjGraph) [][]int {
	s := &state{
		blocked: map[int]bool{},
		blist:   map[int]map[int]bool{},
		stack:   []int{},
		cycles:  [][]int{},
	}
	keys := make([]int, len(g.Keys))
	copy(keys, g.Keys)
	sort.Ints(keys)
	for start := 0; start < len(keys); {
		fg := Subgraph(g, keys[start:])
		least := -1
		for _, component := range graph.StrongComponents(fg) {
			if len(component) < 2 {
				continue
			}
			sort.Ints(component)
			if least < 0 || component[0] < least {
				least = component[0]
			}
		}
		if least < 0 {
			return s.cycles
		}
		s.stack = []int{}
		s.blocked = map[int]bool{}
		s.blist = map[int]map[int]bool{}
		s.circuit(least, least, Subgraph(fg, componentOf(fg, least)))
		start = sort.SearchInts(keys, least) + 1
	}
	return s.cycles
}

func componentOf(g AdjGraph, v int) []int {
	for _, c := range graph.StrongComponents(g) {
		for _, w := range c {
			if w == v {
				sort.Ints(c)
				return c
			}
		}
	}
	return []int{v}
}

type state struct {
	blocked map[int]bool
	blist   map[int]map[int]bool
	stack   []int
	cycles  [][]int
}

func (s *state) unblock(u int) {
	s.blocked[u] = false
	for w := range s.blist[u] {
		delete(s.blist[u], w)
		if s.blocked[w] {
			s.unblock(w)
		}
	}
}

func (s *state) circuit(v int, i int, g AdjGraph) bool {
	f := false
	s.stack = append(s.stack, v)
	s.blocked[v] = true
	g.Visit(v, func(w int, _ int64) bool {
		if w == v {
			return false
		}
		if w == i {
			stackCopy := make([]int, len(s.stack))
			copy(stackCopy, s.stack)
			stackCopy = append(stackCopy, w)
			s.cycles = append(s.cycles, stackCopy)
			f = true
		} else if !s.blocked[w] {
			if s.circuit(w, i, g) {
				f = true
			}
		}
		return false
	})

	if f {
		s.unblock(v)
	} else {
		g.Visit(v, func(w int, _ int64) bool {
			m := s.blist[w]
			if m != nil {
				s.blist[w][v] = true
			} else {
				s.blist[w] = map[int]bool{v: true}
			}
			return false
		})
	}
	s.stack = s.stack[:len(s.stack)-1]
	return f
}
