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

package refcheck

import (
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
)

type dotNode struct {
	id    NodeID
	node  Node
	moved bool
}

func (n dotNode) ID() int64 { return int64(n.id) }

func (n dotNode) DOTID() string { return "n" + strconv.Itoa(int(n.id)) }

func (n dotNode) Attributes() []encoding.Attribute {
	attrs := []encoding.Attribute{{Key: "label", Value: strconv.Quote(n.node.Name)}}
	switch n.node.Kind {
	case KindVariable:
		attrs = append(attrs, encoding.Attribute{Key: "shape", Value: "box"})
	case KindMutableReference:
		attrs = append(attrs, encoding.Attribute{Key: "color", Value: "red"})
	}
	if n.moved {
		attrs = append(attrs, encoding.Attribute{Key: "style", Value: "dashed"})
	}
	return attrs
}

type dotEdge struct {
	from, to dotNode
	inner    bool
}

func (e dotEdge) From() graph.Node { return e.from }

func (e dotEdge) To() graph.Node { return e.to }

func (e dotEdge) ReversedEdge() graph.Edge { return dotEdge{from: e.to, to: e.from, inner: e.inner} }

func (e dotEdge) Attributes() []encoding.Attribute {
	if e.inner {
		return []encoding.Attribute{{Key: "style", Value: "dotted"}, {Key: "label", Value: "inner"}}
	}
	return nil
}

// Graphviz returns the graph in DOT format. Links are drawn from the referenced node to the reference, and inner
// references are attached to their owner with dotted edges.
func (g *AliasGraph) Graphviz() string {
	b, err := g.MarshalDOT("alias")
	if err != nil {
		return fmt.Sprintf("// %v", err)
	}
	return string(b)
}

// MarshalDOT encodes the graph in DOT format with the given graph name
func (g *AliasGraph) MarshalDOT(name string) ([]byte, error) {
	dg := simple.NewDirectedGraph()
	nodes := map[NodeID]dotNode{}
	g.forEach(func(id NodeID, st nodeState) {
		n := dotNode{id: id, node: g.reg.Node(id), moved: st.moved}
		nodes[id] = n
		dg.AddNode(n)
	})
	g.forEach(func(id NodeID, st nodeState) {
		for _, to := range st.out {
			dg.SetEdge(dotEdge{from: nodes[id], to: nodes[to]})
		}
		if st.inner != NoNode {
			if in, ok := nodes[st.inner]; ok && !dg.HasEdgeFromTo(int64(id), int64(st.inner)) {
				dg.SetEdge(dotEdge{from: nodes[id], to: in, inner: true})
			}
		}
	})
	return dot.Marshal(dg, name, "", "  ")
}
