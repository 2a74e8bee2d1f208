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

// pendingSite records where a PendingReference sits in its parent,
// so replacement mutates the authoritative child slot even though
// sibling lists change underneath the walk.
type pendingSite struct {
	parent *Node
	index  int
}

// resolveReferences replaces every PendingReference left after span
// expansion with a resolved Link, Image, or FootReference node, or
// with the reconstructed literal text when its label has no
// definition. Running it on an already-resolved tree is a no-op.
func resolveReferences(root *Node, pc *ParseContext) {
	var sites []pendingSite
	Walk(root, func(item WalkItem) bool {
		if _, ok := item.Node.Data.(*PendingReference); ok && item.Parent != nil {
			sites = append(sites, pendingSite{parent: item.Parent, index: item.Index})
		}
		return true
	})
	for _, site := range sites {
		node := site.parent.Children[site.index]
		pending, ok := node.Data.(*PendingReference)
		if !ok {
			continue
		}
		site.parent.Children[site.index] = resolvePending(node, pending, pc)
	}
}

func resolvePending(node *Node, pending *PendingReference, pc *ParseContext) *Node {
	if def, ok := pc.linkDefs[NormalizeLabel(pending.Label)]; ok {
		var data NodeData
		if pending.Image {
			data = &Image{Src: def.Destination, Title: def.Title}
		} else {
			data = &Link{Target: def.Destination, Title: def.Title}
		}
		resolved := newParent(data, node.Children, node.Position)
		return resolved
	}
	if target, ok := footPendingTarget(pending, pc); ok {
		pc.recordFootReference(target)
		return newLeaf(&FootReference{Target: target}, pending.Raw, node.Position)
	}
	// No definition anywhere: degrade to the literal bracket text.
	return newLeaf(&RawText{}, pending.Raw, node.Position)
}

func footPendingTarget(pending *PendingReference, pc *ParseContext) (string, bool) {
	if len(pending.Label) < 2 || pending.Label[0] != '^' {
		return "", false
	}
	target := pending.Label[1:]
	if !footRefLabelPattern.MatchString(target) {
		return "", false
	}
	_, ok := pc.footDefs[target]
	return target, ok
}
