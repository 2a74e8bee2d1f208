// Copyright 2025 Ross Light
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//		 https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package mistmark

import (
	"reflect"
	"strings"
)

// Position is the source range of a node.
// Start and End are 1-based line numbers, both inclusive.
type Position struct {
	Start int
	End   int
	// URI identifies the source document, if known.
	URI string
	// Meta carries arbitrary per-document metadata, if any.
	Meta map[string]any
}

// NodeData is the kind-specific payload of a [Node].
// Kind returns the kind discriminant, e.g. "Heading" or "RawText".
type NodeData interface {
	Kind() string
}

// A Node is an element of the syntax tree.
// Exactly one of Content and Children is meaningful:
// leaf nodes carry raw text in Content,
// container nodes own their Children exclusively.
type Node struct {
	Data     NodeData
	Content  string
	Children []*Node
	Position Position
}

// Kind returns the kind discriminant of the node's payload,
// or "" if the node is nil.
func (n *Node) Kind() string {
	if n == nil || n.Data == nil {
		return ""
	}
	return n.Data.Kind()
}

// Contains reports whether text occurs as a literal substring
// in any leaf content reachable from n.
func (n *Node) Contains(text string) bool {
	if n == nil {
		return false
	}
	if len(n.Children) == 0 {
		return strings.Contains(n.Content, text)
	}
	for _, c := range n.Children {
		if c.Contains(text) {
			return true
		}
	}
	return false
}

// A WalkItem describes one node encountered during [Walk].
// Index is the node's position in Parent's children
// (-1 for the root), Depth is the distance from the root.
type WalkItem struct {
	Node   *Node
	Parent *Node
	Index  int
	Depth  int
}

// Walk traverses the tree in depth-first pre-order, starting with root.
// If visit returns false, the node's children are not traversed.
func Walk(root *Node, visit func(WalkItem) bool) {
	stack := []WalkItem{{Node: root, Index: -1}}
	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if curr.Node == nil {
			continue
		}
		if !visit(curr) {
			continue
		}
		children := curr.Node.Children
		if t, ok := curr.Node.Data.(*Table); ok && t.Header != nil {
			stack = append(stack, WalkItem{
				Node:   t.Header,
				Parent: curr.Node,
				Index:  -1,
				Depth:  curr.Depth + 1,
			})
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, WalkItem{
				Node:   children[i],
				Parent: curr.Node,
				Index:  i,
				Depth:  curr.Depth + 1,
			})
		}
	}
}

// AsMap converts the node to a serializable form:
// a map holding the kind tag under "type",
// the payload's exported attributes,
// the position, and either the leaf content
// or the recursively expanded children.
// Pending span containers must be expanded before serialization;
// see [ParseOptions.Parse].
func (n *Node) AsMap() map[string]any {
	if n == nil {
		return nil
	}
	m := map[string]any{"type": n.Kind()}
	for k, v := range structAttrs(n.Data) {
		m[k] = v
	}
	m["position"] = []int{n.Position.Start, n.Position.End}
	if n.Children != nil {
		children := make([]any, len(n.Children))
		for i, c := range n.Children {
			children[i] = c.AsMap()
		}
		m["children"] = children
	} else {
		m["content"] = n.Content
	}
	return m
}

// structAttrs flattens the payload's exported fields into a map,
// keyed by the lowercased field name.
// Node-valued fields (e.g. a table's header row) are expanded recursively.
func structAttrs(data NodeData) map[string]any {
	if data == nil {
		return nil
	}
	v := reflect.ValueOf(data)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	attrs := make(map[string]any, v.NumField())
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := strings.ToLower(field.Name[:1]) + field.Name[1:]
		switch fv := v.Field(i).Interface().(type) {
		case *Node:
			attrs[name] = fv.AsMap()
		case []*Node:
			expanded := make([]any, len(fv))
			for j, c := range fv {
				expanded[j] = c.AsMap()
			}
			attrs[name] = expanded
		case map[string]*Node:
			expanded := make(map[string]any, len(fv))
			for k, c := range fv {
				expanded[k] = c.AsMap()
			}
			attrs[name] = expanded
		default:
			attrs[name] = fv
		}
	}
	return attrs
}

// newLeaf returns a leaf node carrying raw text.
func newLeaf(data NodeData, content string, pos Position) *Node {
	return &Node{Data: data, Content: content, Position: pos}
}

// newParent returns a container node owning the given children.
func newParent(data NodeData, children []*Node, pos Position) *Node {
	if children == nil {
		children = []*Node{}
	}
	return &Node{Data: data, Children: children, Position: pos}
}
