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

// blockSequence is the result of one block tokenization pass.
// loose records whether the pass skipped an unmatched blank line,
// which controls tight vs. loose list rendering.
type blockSequence struct {
	nodes []*Node
	loose bool
}

// skipKinds are block kinds whose Read registers definitions in the session
// and whose nodes are, by default, not inserted into the visible tree.
var skipKinds = map[string]bool{
	"LinkDefinition": true,
	"Footnote":       true,
}

// tokenizeBlocks partitions the cursor's lines into block nodes.
//
// At each line, the active block kinds are tried in registration order;
// the first kind whose Start predicate accepts the line gets to Read.
// A nil Read result means the kind rejected the construct on closer
// inspection (the cursor has been restored), and the next kind tries.
// A line no kind claims is an unmatched blank:
// it is advanced past and marks the sequence loose.
func tokenizeBlocks(lines *SourceCursor, pc *ParseContext) *blockSequence {
	seq := &blockSequence{}
	for {
		line, ok := lines.Peek()
		if !ok {
			break
		}
		matched := false
		for _, kind := range pc.blockTokens {
			if !kind.Start(line) {
				continue
			}
			node := kind.Read(lines, pc)
			if node == nil {
				continue
			}
			if !skipKinds[node.Kind()] || pc.KeepDefinitions {
				seq.nodes = append(seq.nodes, node)
			}
			matched = true
			break
		}
		if !matched {
			lines.Next()
			seq.loose = true
		}
	}
	return seq
}

// expandSpans walks the tree below node and replaces every
// [PendingSpanText] placeholder with the spans tokenized from its text.
// It is invoked only after all block-level scanning completes,
// so the session's definition tables are final.
func expandSpans(node *Node, pc *ParseContext) {
	if node == nil {
		return
	}
	if len(node.Children) == 1 {
		if pending, ok := node.Children[0].Data.(*PendingSpanText); ok {
			spans := TokenizeSpans(pending.Text, pc)
			stampPositions(spans, node.Children[0].Position)
			node.Children = spans
			return
		}
	}
	for _, c := range node.Children {
		expandSpans(c, pc)
	}
	if t, ok := node.Data.(*Table); ok {
		expandSpans(t.Header, pc)
	}
}

// stampPositions assigns the enclosing block's position
// to every span node produced by an expansion,
// keeping the invariant that positions are always populated.
func stampPositions(spans []*Node, pos Position) {
	for _, s := range spans {
		s.Position = pos
		stampPositions(s.Children, pos)
	}
}
