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

import "regexp"

// Strikethrough is struck-through text: "~~some text~~".
type Strikethrough struct{}

func (*Strikethrough) Kind() string { return "Strikethrough" }

// Math is dollar-delimited math, single or double: "$a=1$".
// The content is kept verbatim, delimiters included.
type Math struct{}

func (*Math) Kind() string { return "Math" }

// StrikethroughToken recognizes strikethrough found by the nested scan.
// Register it after CoreTokens.
type StrikethroughToken struct{}

func (*StrikethroughToken) Name() string { return "Strikethrough" }

func (*StrikethroughToken) Precedence() int { return 5 }

func (*StrikethroughToken) Find(text string, pc *ParseContext) []*SpanMatch {
	return pc.takeNestedMatches("Strikethrough")
}

// MathToken recognizes math spans found by the nested scan.
// Register it after CoreTokens.
type MathToken struct{}

func (*MathToken) Name() string { return "Math" }

func (*MathToken) Precedence() int { return 5 }

func (*MathToken) Find(text string, pc *ParseContext) []*SpanMatch {
	return pc.takeNestedMatches("Math")
}

// FootReferenceToken recognizes bare footnote references: "[^a]".
// The nested scan already resolves bracketed constructs, so this
// regex pass only catches references in text regions the scan
// released, and only for labels with a registered definition.
type FootReferenceToken struct{}

var footReferencePattern = regexp.MustCompile(`\[\^([a-zA-Z0-9#@]+)\]`)

func (*FootReferenceToken) Name() string { return "FootReference" }

func (*FootReferenceToken) Precedence() int { return 5 }

func (*FootReferenceToken) Find(text string, pc *ParseContext) []*SpanMatch {
	var matches []*SpanMatch
	for _, idx := range footReferencePattern.FindAllStringSubmatchIndex(text, -1) {
		if escapedAt(text, idx[0]) {
			continue
		}
		target := text[idx[2]:idx[3]]
		if _, ok := pc.footDefs[target]; !ok {
			continue
		}
		node := newLeaf(&FootReference{Target: target}, text[idx[0]:idx[1]], Position{})
		matches = append(matches, &SpanMatch{Start: idx[0], End: idx[1], Node: node})
	}
	return matches
}

// escapedAt reports whether the character at i is backslash-escaped,
// accounting for runs of preceding backslashes.
func escapedAt(text string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && text[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}
