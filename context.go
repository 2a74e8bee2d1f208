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
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
)

// LinkDefinition is the data of a link reference definition.
type LinkDefinition struct {
	Destination string
	Title       string
}

// A ParseContext holds the state of a single parse:
// the ordered, de-duplicated lists of active block and span kinds,
// the link and footnote definition tables accumulated during the block pass,
// the footnote reference order, and transient nested-match buckets.
//
// A ParseContext is scoped to one top-level parse invocation
// and must not be shared between concurrently running parses.
// Nested sub-parses (e.g. the inside of a block quote)
// receive the same context, so definitions are shared document-wide.
type ParseContext struct {
	blockTokens []BlockToken
	spanTokens  []SpanToken
	spanKinds   map[string]bool

	linkDefs map[string]LinkDefinition
	footDefs map[string]*Node
	// footDefOrder lists footnote labels in definition order,
	// for deterministic expansion of definition bodies.
	footDefOrder []string
	footOrder    []string
	footSeen     map[string]bool

	// nestingMatches buckets matches found by the unified nested scan
	// for retrieval by other span kinds' Find.
	// Each bucket is valid only within the tokenize call that filled it.
	nestingMatches map[string][]*SpanMatch

	// Logger receives duplicate-definition warnings.
	Logger *slog.Logger

	// KeepDefinitions retains LinkDefinition and Footnote nodes
	// in the visible tree instead of dropping them after registration.
	KeepDefinitions bool

	// noSetext disables setext heading detection in Paragraph reads.
	// Set during block quote recursion.
	noSetext bool
}

// NewParseContext returns a context with the given active kinds.
// Kinds with duplicate names are dropped, keeping the first occurrence;
// registration order is otherwise preserved, and it is load-bearing:
// the block tokenizer tries kinds in list order.
// Nil slices select [ExtendedBlockTokens] and [ExtendedSpanTokens],
// matching [ParseOptions.Parse].
func NewParseContext(blocks []BlockToken, spans []SpanToken) *ParseContext {
	if blocks == nil {
		blocks = ExtendedBlockTokens()
	}
	if spans == nil {
		spans = ExtendedSpanTokens()
	}
	pc := &ParseContext{
		blockTokens:    dedupeBlocks(blocks),
		spanTokens:     dedupeSpans(spans),
		nestingMatches: make(map[string][]*SpanMatch),
	}
	pc.spanKinds = make(map[string]bool, len(pc.spanTokens))
	for _, t := range pc.spanTokens {
		pc.spanKinds[t.Name()] = true
	}
	pc.resetDefinitions()
	return pc
}

// hasSpanKind reports whether a span kind is active.
// The nested scan consults this before consuming a construct's
// characters: an inactive kind's delimiters stay plain text.
func (pc *ParseContext) hasSpanKind(name string) bool {
	return pc.spanKinds[name]
}

func dedupeBlocks(tokens []BlockToken) []BlockToken {
	seen := make(map[string]bool, len(tokens))
	out := make([]BlockToken, 0, len(tokens))
	for _, t := range tokens {
		if !seen[t.Name()] {
			seen[t.Name()] = true
			out = append(out, t)
		}
	}
	return out
}

func dedupeSpans(tokens []SpanToken) []SpanToken {
	seen := make(map[string]bool, len(tokens))
	out := make([]SpanToken, 0, len(tokens))
	for _, t := range tokens {
		if !seen[t.Name()] {
			seen[t.Name()] = true
			out = append(out, t)
		}
	}
	return out
}

// BlockTokens returns the active block kinds in priority order.
func (pc *ParseContext) BlockTokens() []BlockToken {
	return pc.blockTokens
}

// SpanTokens returns the active span kinds in registration order.
func (pc *ParseContext) SpanTokens() []SpanToken {
	return pc.spanTokens
}

// Clone returns a context for an independent document:
// the active kind lists are shared, the definition tables are fresh.
func (pc *ParseContext) Clone() *ParseContext {
	clone := &ParseContext{
		blockTokens:     pc.blockTokens,
		spanTokens:      pc.spanTokens,
		spanKinds:       pc.spanKinds,
		nestingMatches:  make(map[string][]*SpanMatch),
		Logger:          pc.Logger,
		KeepDefinitions: pc.KeepDefinitions,
	}
	clone.resetDefinitions()
	return clone
}

// resetDefinitions discards the accumulated definition tables.
// Called at the start of each top-level parse.
func (pc *ParseContext) resetDefinitions() {
	pc.linkDefs = make(map[string]LinkDefinition)
	pc.footDefs = make(map[string]*Node)
	pc.footDefOrder = nil
	pc.footOrder = nil
	pc.footSeen = make(map[string]bool)
}

// LinkDefinitions returns the accumulated link definition table,
// keyed by normalized label.
func (pc *ParseContext) LinkDefinitions() map[string]LinkDefinition {
	return pc.linkDefs
}

// AddLinkDefinition registers a link definition under the normalized label.
// The first definition for a label wins; later duplicates are ignored.
func (pc *ParseContext) AddLinkDefinition(label string, def LinkDefinition) {
	key := NormalizeLabel(label)
	if _, exists := pc.linkDefs[key]; exists {
		return
	}
	pc.linkDefs[key] = def
}

// FootnoteDefinitions returns the accumulated footnote table,
// keyed by target label.
func (pc *ParseContext) FootnoteDefinitions() map[string]*Node {
	return pc.footDefs
}

// AddFootnoteDefinition registers a footnote definition node.
// The first definition for a label wins;
// a duplicate is dropped with a warning.
func (pc *ParseContext) AddFootnoteDefinition(label string, node *Node) {
	if _, exists := pc.footDefs[label]; exists {
		pc.warn("ignoring duplicate footnote definition",
			slog.String("label", label),
			slog.Int("line", node.Position.Start))
		return
	}
	pc.footDefs[label] = node
	pc.footDefOrder = append(pc.footDefOrder, label)
}

// recordFootReference appends label to the reference-order sequence
// the first time it is referenced in the document body.
func (pc *ParseContext) recordFootReference(label string) {
	if pc.footSeen[label] {
		return
	}
	pc.footSeen[label] = true
	pc.footOrder = append(pc.footOrder, label)
}

// takeNestedMatches removes and returns the named bucket.
func (pc *ParseContext) takeNestedMatches(kind string) []*SpanMatch {
	matches := pc.nestingMatches[kind]
	delete(pc.nestingMatches, kind)
	return matches
}

// putNestedMatch appends a match to the named bucket.
func (pc *ParseContext) putNestedMatch(kind string, m *SpanMatch) {
	pc.nestingMatches[kind] = append(pc.nestingMatches[kind], m)
}

func (pc *ParseContext) warn(msg string, args ...any) {
	if pc.Logger != nil {
		pc.Logger.Warn(msg, args...)
	}
}

var labelFolder = cases.Fold()

// NormalizeLabel case-folds a link or footnote label
// and collapses interior whitespace,
// so that labels match the way definitions are keyed.
func NormalizeLabel(label string) string {
	return labelFolder.String(strings.Join(strings.Fields(label), " "))
}
