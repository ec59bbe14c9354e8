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

// AdjGraph is a sparse directed graph over integer node ids that implements graph.Iterator. Only the nodes in Keys
// are part of the graph; the order is kept from the graph it was built from so that subgraphs share node ids.
type AdjGraph struct {
	// The order of the graph
	order int

	// Keys are all the node IDs, sorted
	Keys []int

	// Edges is an adjacency matrix: Edges[x][y] means there is a directed edge from x to y
	Edges map[int]map[int]bool
}

// NewAdjGraph returns the subgraph of g induced by the nodes for which keep returns true. A nil keep keeps every
// node with at least one edge or for which Visit succeeds.
func NewAdjGraph(g graph.Iterator, keep func(int) bool) AdjGraph {
	edges := map[int]map[int]bool{}
	var keys []int
	for v := 0; v < g.Order(); v++ {
		if keep != nil && !keep(v) {
			continue
		}
		keys = append(keys, v)
		edges[v] = map[int]bool{}
	}
	for _, v := range keys {
		g.Visit(v, func(w int, _ int64) bool {
			if _, ok := edges[w]; ok {
				edges[v][w] = true
			}
			return false
		})
	}
	return AdjGraph{order: g.Order(), Keys: keys, Edges: edges}
}

// Subgraph returns a new graph that is the original graph with only the nodes in include. Only the edges that have
// both the origin and destination nodes in the include nodes are kept in the resulting graph.
// The subgraph's order is the same as in origin, meaning that node indices will stay consistent across subgraphs.
func Subgraph(original AdjGraph, include []int) AdjGraph {
	edges := make(map[int]map[int]bool, len(include))
	keys := make([]int, len(include))
	copy(keys, include)
	for _, i := range include {
		edges[i] = map[int]bool{}
	}
	for _, i := range include {
		for e := range original.Edges[i] {
			if _, ok := edges[e]; ok {
				edges[i][e] = true
			}
		}
	}
	return AdjGraph{order: original.order, Keys: keys, Edges: edges}
}

// Order implements the order of the graph.Iterator interface for the AdjGraph
func (c AdjGraph) Order() int {
	return c.order
}

// Visit implements the graph.Iterator interface for the AdjGraph. Neighbours are visited in increasing order.
func (c AdjGraph) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	succ, ok := c.Edges[v]
	if !ok {
		return false
	}
	ws := make([]int, 0, len(succ))
	for w := range succ {
		ws = append(ws, w)
	}
	sort.Ints(ws)
	for _, w := range ws {
		if do(w, 1) {
			return true
		}
	}
	return false
}

// ReachableFrom returns the nodes reachable from v in g, excluding v unless it is on a cycle, in increasing order.
func ReachableFrom(g graph.Iterator, v int) []int {
	var res []int
	seen := map[int]bool{}
	graph.BFS(g, v, func(_, w int, _ int64) {
		if !seen[w] {
			seen[w] = true
			res = append(res, w)
		}
	})
	// BFS never visits v again, so cycles back to v are checked separately
	back := false
	for _, u := range append([]int{v}, res...) {
		g.Visit(u, func(w int, _ int64) bool {
			back = w == v
			return back
		})
		if back {
			break
		}
	}
	if back {
		res = append(res, v)
	}
	sort.Ints(res)
	return res
}

// Cycles returns the elementary cycles of g, each starting with its smallest node. Self-loops are cycles of length
// one.
func Cycles(g graph.Iterator) [][]int {
	var cycles [][]int
	for v := 0; v < g.Order(); v++ {
		g.Visit(v, func(w int, _ int64) bool {
			if w == v {
				cycles = append(cycles, []int{v})
			}
			return false
		})
	}
	for _, c := range FindAllElementaryCycles(NewAdjGraph(g, nil)) {
		// the last element repeats the first
		cycles = append(cycles, c[:len(c)-1])
	}
	return cycles
}
