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

// A BlockToken recognizes one multi-line construct.
//
// Start reports whether the given line can begin the construct.
// Read consumes the construct's lines from the cursor and returns its node.
// Read may return nil to signal that Start was a false positive;
// it must then restore the cursor to where Read began
// (see [SourceCursor.Anchor] and [SourceCursor.Reset])
// so that the next kind in priority order can try the same line.
type BlockToken interface {
	Name() string
	Start(line string) bool
	Read(lines *SourceCursor, pc *ParseContext) *Node
}

// A SpanToken recognizes one inline construct.
//
// Find returns every candidate match of the kind within text,
// with offsets relative to text.
// Kinds fed by the unified nested scan retrieve their matches
// from the session's per-call buckets instead of scanning themselves.
type SpanToken interface {
	Name() string
	// Precedence orders overlapping matches of different kinds:
	// a lower number wins.
	Precedence() int
	Find(text string, pc *ParseContext) []*SpanMatch
}

// A SpanMatch is one candidate inline construct found by [SpanToken.Find].
type SpanMatch struct {
	// Start and End delimit the whole construct within the searched text.
	Start, End int
	// InnerStart and InnerEnd delimit the construct's inner content.
	// They are meaningful only when ParseInner is set.
	InnerStart, InnerEnd int
	// ParseInner requests recursive tokenization of the inner content
	// to populate Node's children.
	// When false, Node is used as returned.
	ParseInner bool
	// Node is the span node the match produces.
	Node *Node
}

// CommonMarkBlockTokens returns the default block kinds
// in their load-bearing registration order.
func CommonMarkBlockTokens() []BlockToken {
	return []BlockToken{
		&HTMLBlockToken{},
		&BlockCodeToken{},
		&HeadingToken{},
		&QuoteToken{},
		&CodeFenceToken{},
		&ThematicBreakToken{},
		&ListToken{},
		&LinkDefinitionToken{},
		&ParagraphToken{},
	}
}

// CommonMarkSpanTokens returns the default span kinds
// in their load-bearing registration order.
func CommonMarkSpanTokens() []SpanToken {
	return []SpanToken{
		&EscapeSequenceToken{},
		&HTMLSpanToken{},
		&AutoLinkToken{},
		&CoreTokens{},
		&InlineCodeToken{},
		&LineBreakToken{},
	}
}

// ExtendedBlockTokens returns the default block kinds
// plus tables and footnotes.
// Footnote must be registered before LinkDefinition:
// both start at a bracket, and ties are resolved by list position.
func ExtendedBlockTokens() []BlockToken {
	return []BlockToken{
		&HTMLBlockToken{},
		&BlockCodeToken{},
		&HeadingToken{},
		&QuoteToken{},
		&CodeFenceToken{},
		&ThematicBreakToken{},
		&ListToken{},
		&TableToken{},
		&FootnoteToken{},
		&LinkDefinitionToken{},
		&ParagraphToken{},
	}
}

// ExtendedSpanTokens returns the default span kinds
// plus strikethrough, math, and footnote references.
func ExtendedSpanTokens() []SpanToken {
	return []SpanToken{
		&EscapeSequenceToken{},
		&HTMLSpanToken{},
		&AutoLinkToken{},
		&CoreTokens{},
		&FootReferenceToken{},
		&StrikethroughToken{},
		&MathToken{},
		&InlineCodeToken{},
		&LineBreakToken{},
	}
}
