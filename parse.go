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

// Package mistmark parses a permissive Markdown dialect into a
// position-annotated syntax tree.
//
// Parsing runs in two phases: a block pass scans source lines through
// an ordered registry of block kinds, then span text deferred inside
// the block nodes is tokenized once every link and footnote definition
// in the document is known. A final resolver pass replaces reference
// placeholders whose labels were defined later in the document.
// The set of recognized constructs is a property of the parse session
// and can be changed per parse; see [ParseOptions].
package mistmark

import (
	"fmt"
	"log/slog"
)

// Document is the payload of a parse's root node.
type Document struct {
	// LinkDefinitions maps normalized labels to their definitions.
	LinkDefinitions map[string]LinkDefinition
	// Footnotes maps footnote labels to their definition nodes.
	Footnotes map[string]*Node
	// FootnoteOrder lists defined footnote labels in order of first
	// reference in the document body.
	FootnoteOrder []string
	// FrontMatter is the document's front matter block, if any.
	FrontMatter *Node
}

func (*Document) Kind() string { return "Document" }

// Parse parses source with the default extended dialect:
// CommonMark-like constructs plus tables, footnotes, strikethrough,
// and math.
func Parse(source []byte) (*Node, error) {
	return ParseOptions{}.Parse(source)
}

// ParseOptions customizes a parse session.
type ParseOptions struct {
	// BlockTokens and SpanTokens select the active kinds.
	// Nil selects [ExtendedBlockTokens] and [ExtendedSpanTokens].
	BlockTokens []BlockToken
	SpanTokens  []SpanToken

	// FrontMatter recognizes a YAML metadata block at the top
	// of the document.
	FrontMatter bool

	// KeepDefinitions retains LinkDefinition and Footnote nodes
	// in the visible tree instead of dropping them after their
	// side-effect registration.
	KeepDefinitions bool

	// Logger receives duplicate-definition warnings.
	// Nil discards them.
	Logger *slog.Logger

	// URI labels node positions with a source name.
	URI string

	// StartLine offsets reported line numbers,
	// for documents embedded in a larger source.
	StartLine int
}

// Parse parses source into a document tree.
//
// Recoverable syntax conditions never produce an error: malformed
// constructs degrade to more permissive readings. The returned error
// reports a programming-contract violation, and no partial tree
// accompanies it.
func (opts ParseOptions) Parse(source []byte) (root *Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			cerr, ok := r.(*contractError)
			if !ok {
				panic(r)
			}
			root = nil
			err = fmt.Errorf("parse markdown: %w", cerr)
		}
	}()

	blocks := opts.BlockTokens
	if blocks == nil {
		blocks = ExtendedBlockTokens()
	}
	spans := opts.SpanTokens
	if spans == nil {
		spans = ExtendedSpanTokens()
	}
	pc := NewParseContext(blocks, spans)
	pc.Logger = opts.Logger
	pc.KeepDefinitions = opts.KeepDefinitions

	lines := SplitLines(string(source))
	offset := opts.StartLine
	data := &Document{}
	if opts.FrontMatter {
		var consumed int
		data.FrontMatter, consumed = readFrontMatter(lines, opts.URI, nil)
		lines = lines[consumed:]
		offset += consumed
	}

	cursor := NewSourceCursor(lines).WithLineOffset(offset).WithURI(opts.URI)
	seq := tokenizeBlocks(cursor, pc)
	doc := newParent(data, seq.nodes, Position{
		Start: offset + 1,
		End:   offset + len(lines),
		URI:   opts.URI,
	})
	expandSpans(doc, pc)
	// Footnote definitions live in the session table even when their
	// nodes are dropped from the visible tree; their span text still
	// needs expansion.
	for _, label := range pc.footDefOrder {
		def := pc.footDefs[label]
		expandSpans(def, pc)
		resolveReferences(def, pc)
	}
	resolveReferences(doc, pc)

	data.LinkDefinitions = pc.linkDefs
	data.Footnotes = pc.footDefs
	data.FootnoteOrder = pc.footOrder
	return doc, nil
}
