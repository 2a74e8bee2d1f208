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
	"regexp"
	"strings"
)

// RawText is literal text. All span recursion bottoms out here.
type RawText struct{}

func (*RawText) Kind() string { return "RawText" }

// Emphasis is emphasized text: "*some text*".
type Emphasis struct{}

func (*Emphasis) Kind() string { return "Emphasis" }

// Strong is strongly emphasized text: "**some text**".
type Strong struct{}

func (*Strong) Kind() string { return "Strong" }

// Link is a hyperlink with a resolved target.
type Link struct {
	Target string
	Title  string
}

func (*Link) Kind() string { return "Link" }

// Image is an image with a resolved source.
type Image struct {
	Src   string
	Title string
}

func (*Image) Kind() string { return "Image" }

// InlineCode is a code span: "`some code`".
// Its single child is a RawText leaf with whitespace-normalized content.
type InlineCode struct{}

func (*InlineCode) Kind() string { return "InlineCode" }

// AutoLink is an automatic link: "<http://www.google.com>".
type AutoLink struct {
	Target string
	Mailto bool
}

func (*AutoLink) Kind() string { return "AutoLink" }

// EscapeSequence is a backslash escape: "\*".
// Its single child is a RawText leaf holding the escaped character.
type EscapeSequence struct{}

func (*EscapeSequence) Kind() string { return "EscapeSequence" }

// LineBreak is a hard or soft line break.
type LineBreak struct {
	Soft bool
}

func (*LineBreak) Kind() string { return "LineBreak" }

// HTMLSpan is a span-level HTML island, rendered as-is.
type HTMLSpan struct{}

func (*HTMLSpan) Kind() string { return "HTMLSpan" }

// referenceStyle distinguishes the three reference link syntaxes.
type referenceStyle int

const (
	shortcutRef  referenceStyle = iota // [label]
	collapsedRef                       // [label][]
	fullRef                            // [inner][label]
)

// PendingReference is a placeholder for a reference link or image
// whose label had no definition when the construct was scanned.
// The resolver replaces it with a Link, Image, or FootReference node,
// or with the reconstructed literal text when the label never resolves.
type PendingReference struct {
	// Label is the definition label to look up, not yet normalized.
	Label string
	// Raw is the construct's full source text, for literal fallback.
	Raw   string
	Style referenceStyle
	Image bool
}

func (*PendingReference) Kind() string { return "PendingReference" }

// FootReference is a reference to a footnote definition: "[^a]".
type FootReference struct {
	Target string
}

func (*FootReference) Kind() string { return "FootReference" }

// CoreTokens feeds the nesting-sensitive inline constructs
// (emphasis, strong, links, images, references) from a single
// left-to-right scan of the text. The same scan deposits matches
// for code spans, autolinks, raw HTML, strikethrough, and math
// into per-kind session buckets.
type CoreTokens struct{}

func (*CoreTokens) Name() string { return "CoreTokens" }

func (*CoreTokens) Precedence() int { return 3 }

func (*CoreTokens) Find(text string, pc *ParseContext) []*SpanMatch {
	return pc.takeNestedMatches("CoreTokens")
}

// InlineCodeToken recognizes code spans found by the nested scan.
// Nothing is tokenized inside a code span's content.
type InlineCodeToken struct{}

func (*InlineCodeToken) Name() string { return "InlineCode" }

func (*InlineCodeToken) Precedence() int { return 2 }

func (*InlineCodeToken) Find(text string, pc *ParseContext) []*SpanMatch {
	return pc.takeNestedMatches("InlineCode")
}

// newInlineCode builds a code span node over the raw inner content.
func newInlineCode(content string) *Node {
	normalized := strings.Join(strings.Fields(strings.TrimSpace(content)), " ")
	child := newLeaf(&RawText{}, normalized, Position{})
	return newParent(&InlineCode{}, []*Node{child}, Position{})
}

// HTMLSpanToken recognizes raw HTML found by the nested scan.
type HTMLSpanToken struct{}

func (*HTMLSpanToken) Name() string { return "HTMLSpan" }

func (*HTMLSpanToken) Precedence() int { return 5 }

func (*HTMLSpanToken) Find(text string, pc *ParseContext) []*SpanMatch {
	return pc.takeNestedMatches("HTMLSpan")
}

// AutoLinkToken recognizes autolinks found by the nested scan.
type AutoLinkToken struct{}

func (*AutoLinkToken) Name() string { return "AutoLink" }

func (*AutoLinkToken) Precedence() int { return 5 }

func (*AutoLinkToken) Find(text string, pc *ParseContext) []*SpanMatch {
	return pc.takeNestedMatches("AutoLink")
}

func newAutoLink(target string) *Node {
	data := &AutoLink{
		Target: target,
		Mailto: strings.Contains(target, "@") && !strings.Contains(strings.ToLower(target), "mailto"),
	}
	child := newLeaf(&RawText{}, target, Position{})
	return newParent(data, []*Node{child}, Position{})
}

// EscapeSequenceToken recognizes backslash escapes of punctuation.
type EscapeSequenceToken struct{}

var escapePattern = regexp.MustCompile("\\\\([!\"#$%&'()*+,\\-./:;<=>?@\\[\\\\\\]^_`{|}~])")

func (*EscapeSequenceToken) Name() string { return "EscapeSequence" }

func (*EscapeSequenceToken) Precedence() int { return 2 }

func (*EscapeSequenceToken) Find(text string, pc *ParseContext) []*SpanMatch {
	var matches []*SpanMatch
	for _, idx := range escapePattern.FindAllStringSubmatchIndex(text, -1) {
		child := newLeaf(&RawText{}, text[idx[2]:idx[3]], Position{})
		node := newParent(&EscapeSequence{}, []*Node{child}, Position{})
		matches = append(matches, &SpanMatch{Start: idx[0], End: idx[1], Node: node})
	}
	return matches
}

// stripEscapes removes backslash escapes, keeping the escaped characters.
func stripEscapes(s string) string {
	return escapePattern.ReplaceAllString(s, "$1")
}

// LineBreakToken recognizes hard and soft line breaks.
// A line ending in two spaces or a backslash breaks hard.
type LineBreakToken struct{}

var lineBreakPattern = regexp.MustCompile(`( *|\\)\n`)

func (*LineBreakToken) Name() string { return "LineBreak" }

func (*LineBreakToken) Precedence() int { return 5 }

func (*LineBreakToken) Find(text string, pc *ParseContext) []*SpanMatch {
	var matches []*SpanMatch
	for _, idx := range lineBreakPattern.FindAllStringSubmatchIndex(text, -1) {
		marker := text[idx[2]:idx[3]]
		soft := !strings.HasPrefix(marker, "  ") && !strings.HasPrefix(marker, `\`)
		node := newLeaf(&LineBreak{Soft: soft}, "", Position{})
		matches = append(matches, &SpanMatch{Start: idx[0], End: idx[1], Node: node})
	}
	return matches
}
