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

import "strings"

// A RenderFunc formats one node. Child nodes are rendered by
// calling back into the renderer.
type RenderFunc func(r *Renderer, n *Node) string

// A Renderer formats a parse tree by dispatching each node kind
// to a registered formatting function. Kinds without a function
// render as the concatenation of their rendered children, so a
// renderer only needs functions for the kinds it formats specially.
type Renderer struct {
	Funcs map[string]RenderFunc
}

// Register adds or replaces the formatting function for a kind.
func (r *Renderer) Register(kind string, fn RenderFunc) {
	if r.Funcs == nil {
		r.Funcs = make(map[string]RenderFunc)
	}
	r.Funcs[kind] = fn
}

// Render formats one node.
func (r *Renderer) Render(n *Node) string {
	if fn := r.Funcs[n.Kind()]; fn != nil {
		return fn(r, n)
	}
	return r.RenderChildren(n)
}

// RenderChildren formats a node's children and concatenates them
// with nothing in between.
func (r *Renderer) RenderChildren(n *Node) string {
	if len(n.Children) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, child := range n.Children {
		sb.WriteString(r.Render(child))
	}
	return sb.String()
}
