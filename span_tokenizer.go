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

import "sort"

// spanCandidate is one match annotated for merge ordering.
type spanCandidate struct {
	m *SpanMatch
	// precedence of the producing kind; lower wins on overlap.
	precedence int
	// order is the kind's registration position, the final tiebreak.
	order int
}

// TokenizeSpans tokenizes inline text into a span node sequence.
//
// Every active span kind's matches are merged into one ordered
// sequence: where two matches overlap, the lower precedence number
// wins; ties go to the leftmost start, then the longest match.
// Uncovered text becomes RawText leaves, so concatenating the
// sequence's literal content reproduces text exactly.
func TokenizeSpans(text string, pc *ParseContext) []*Node {
	if text == "" {
		return nil
	}

	// One unified scan primes the per-call buckets
	// that the nesting-sensitive kinds retrieve from.
	pc.nestingMatches = make(map[string][]*SpanMatch)
	for _, m := range findNested(text, pc) {
		pc.putNestedMatch("CoreTokens", m)
	}

	var candidates []*spanCandidate
	for order, tok := range pc.spanTokens {
		for _, m := range tok.Find(text, pc) {
			candidates = append(candidates, &spanCandidate{
				m:          m,
				precedence: tok.Precedence(),
				order:      order,
			})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.precedence != b.precedence {
			return a.precedence < b.precedence
		}
		if a.m.Start != b.m.Start {
			return a.m.Start < b.m.Start
		}
		if a.m.End != b.m.End {
			return a.m.End > b.m.End
		}
		return a.order < b.order
	})

	var accepted []*SpanMatch
	for _, c := range candidates {
		if !overlapsAny(accepted, c.m) {
			accepted = append(accepted, c.m)
		}
	}
	sort.Slice(accepted, func(i, j int) bool {
		return accepted[i].Start < accepted[j].Start
	})

	var nodes []*Node
	prev := 0
	for _, m := range accepted {
		if m.Start > prev {
			nodes = append(nodes, newLeaf(&RawText{}, text[prev:m.Start], Position{}))
		}
		node := m.Node
		if m.ParseInner {
			node.Children = TokenizeSpans(text[m.InnerStart:m.InnerEnd], pc)
		}
		if fr, ok := node.Data.(*FootReference); ok {
			pc.recordFootReference(fr.Target)
		}
		nodes = append(nodes, node)
		prev = m.End
	}
	if prev < len(text) {
		nodes = append(nodes, newLeaf(&RawText{}, text[prev:], Position{}))
	}
	return nodes
}

func overlapsAny(accepted []*SpanMatch, m *SpanMatch) bool {
	for _, a := range accepted {
		if m.Start < a.End && a.Start < m.End {
			return true
		}
	}
	return false
}
