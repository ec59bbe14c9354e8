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
)

// NodeKind is the kind of a node: the storage of a variable, or one of the two kinds of references.
type NodeKind uint8

const (
	KindVariable           NodeKind = iota // Storage owned by a variable, an argument or a temporary value
	KindMutableReference                   // A mutable reference binding, argument lock or result
	KindImmutableReference                 // An immutable reference binding, argument lock or result
)

func (k NodeKind) String() string {
	switch k {
	case KindVariable:
		return "var"
	case KindMutableReference:
		return "&mut"
	case KindImmutableReference:
		return "&imut"
	default:
		return "?"
	}
}

// IsReference returns true for both reference kinds
func (k NodeKind) IsReference() bool {
	return k == KindMutableReference || k == KindImmutableReference
}

// referenceKind returns the reference kind with the given mutability
func referenceKind(mutable bool) NodeKind {
	if mutable {
		return KindMutableReference
	}
	return KindImmutableReference
}

// NodeID identifies a node in the Registry it was created by. Ids are dense, starting from zero.
type NodeID int32

// NoNode is the id of no node, e.g. the result of an expression that has no storage
const NoNode NodeID = -1

// A Node is a variable or a reference tracked by the reference checker
type Node struct {
	ID   NodeID
	Kind NodeKind

	// Name is only used in diagnostics and debugging output
	Name string

	// Owner is the node this node is the inner reference of, NoNode otherwise
	Owner NodeID
}

func (n Node) String() string {
	return fmt.Sprintf("%d<%s %s>", n.ID, n.Kind, n.Name)
}

// A Registry allocates the nodes of one function's analysis. Nodes are never reused: the registry only grows, and a
// new registry is created for each function.
type Registry struct {
	nodes []Node
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// NewNode creates a new node
func (r *Registry) NewNode(kind NodeKind, name string) NodeID {
	id := NodeID(len(r.nodes))
	r.nodes = append(r.nodes, Node{ID: id, Kind: kind, Name: name, Owner: NoNode})
	return id
}

// NewInnerNode creates the node for a reference stored inside the value of owner
func (r *Registry) NewInnerNode(owner NodeID, kind NodeKind) NodeID {
	id := r.NewNode(kind, r.Name(owner)+" inner reference")
	r.nodes[id].Owner = owner
	return id
}

// Len returns the number of nodes created so far
func (r *Registry) Len() int {
	return len(r.nodes)
}

// Node returns the node with the given id
func (r *Registry) Node(id NodeID) Node {
	if !r.valid(id) {
		return Node{ID: id, Name: "<invalid>", Owner: NoNode}
	}
	return r.nodes[id]
}

// Kind returns the kind of the node
func (r *Registry) Kind(id NodeID) NodeKind {
	return r.Node(id).Kind
}

// Name returns the name of the node
func (r *Registry) Name(id NodeID) string {
	return r.Node(id).Name
}

// OwnerOf returns the node whose inner reference id was created for, if any
func (r *Registry) OwnerOf(id NodeID) (NodeID, bool) {
	n := r.Node(id)
	return n.Owner, n.Owner != NoNode
}

func (r *Registry) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(r.nodes)
}
