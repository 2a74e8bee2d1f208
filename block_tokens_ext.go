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
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// FrontMatter is a YAML metadata block delimited by --- fences
// at the very top of a document. The content is kept as raw text;
// YAML parsing is deferred to [FrontMatter.Metadata] so that
// invalid YAML does not fail the document parse.
type FrontMatter struct {
	Content string
}

func (*FrontMatter) Kind() string { return "FrontMatter" }

// Metadata parses the block's content as YAML.
func (fm *FrontMatter) Metadata() (map[string]any, error) {
	out := make(map[string]any)
	if err := yaml.Unmarshal([]byte(fm.Content), &out); err != nil {
		return nil, fmt.Errorf("parse front matter: %w", err)
	}
	return out, nil
}

// readFrontMatter recognizes a front matter block at the top of lines.
// It returns the block node and the number of lines consumed.
// A missing closing fence rejects the block entirely:
// the opening --- then reads as a thematic break.
func readFrontMatter(lines []string, uri string, meta map[string]any) (*Node, int) {
	if len(lines) == 0 || !strings.HasPrefix(lines[0], "---") {
		return nil, 0
	}
	end := -1
	for i, line := range lines[1:] {
		if strings.HasPrefix(line, "---") {
			end = i + 2
			break
		}
	}
	if end == -1 {
		return nil, 0
	}
	content := strings.Join(lines[1:end-1], "")
	pos := Position{Start: 1, End: end, URI: uri, Meta: meta}
	return newLeaf(&FrontMatter{Content: content}, content, pos), end
}

// CellAlign is a table column's alignment.
type CellAlign int

const (
	AlignDefault CellAlign = iota
	AlignCenter
	AlignRight
)

// Table is a pipe table. The header row lives in Header,
// not in Children; Children holds the body rows.
type Table struct {
	ColumnAlign []CellAlign
	Header      *Node
}

func (*Table) Kind() string { return "Table" }

// TableRow is a row of a [Table]. Its children are TableCell nodes.
type TableRow struct {
	RowAlign []CellAlign
}

func (*TableRow) Kind() string { return "TableRow" }

// TableCell holds one cell's span content.
type TableCell struct {
	Align CellAlign
}

func (*TableCell) Kind() string { return "TableCell" }

// TableToken recognizes pipe tables.
// A candidate without a valid delimiter second line is rejected
// and its lines re-read, usually as a paragraph.
type TableToken struct{}

var tableDelimiterPattern = regexp.MustCompile(`^:?-+:?$`)

func (*TableToken) Name() string { return "Table" }

func (*TableToken) Start(line string) bool {
	return strings.Contains(line, "|")
}

func (*TableToken) Read(lines *SourceCursor, pc *ParseContext) *Node {
	startLine := lines.Lineno() + 1
	lines.Anchor()
	buffer := []string{lines.Next()}
	for {
		next, ok := lines.Peek()
		if !ok || !strings.Contains(next, "|") {
			break
		}
		buffer = append(buffer, lines.Next())
	}
	if len(buffer) < 2 {
		lines.Reset()
		return nil
	}
	columnAlign, ok := parseDelimiterRow(buffer[1])
	if !ok {
		lines.Reset()
		return nil
	}
	header := readTableRow(buffer[0], columnAlign, lines.position(startLine))
	var rows []*Node
	for i, line := range buffer[2:] {
		rows = append(rows, readTableRow(line, columnAlign, lines.position(startLine+2+i)))
	}
	return newParent(&Table{ColumnAlign: columnAlign, Header: header},
		rows, lines.position(startLine))
}

// parseDelimiterRow validates a candidate delimiter line.
// Every non-empty cell must be a dash run with optional colons.
func parseDelimiterRow(line string) ([]CellAlign, bool) {
	var aligns []CellAlign
	for _, cell := range strings.Split(strings.TrimSpace(line), "|") {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		if !tableDelimiterPattern.MatchString(cell) {
			return nil, false
		}
		aligns = append(aligns, parseCellAlign(cell))
	}
	return aligns, len(aligns) > 0
}

func parseCellAlign(column string) CellAlign {
	if !strings.HasSuffix(column, ":") {
		return AlignDefault
	}
	if strings.HasPrefix(column, ":") {
		return AlignCenter
	}
	return AlignRight
}

// readTableRow splits a source line on pipes into cell nodes.
// Cells beyond the delimiter row's column count take the default
// alignment; missing trailing cells are filled in empty.
func readTableRow(line string, rowAlign []CellAlign, pos Position) *Node {
	var cells []string
	for _, cell := range strings.Split(strings.TrimSpace(line), "|") {
		if cell != "" {
			cells = append(cells, cell)
		}
	}
	n := len(cells)
	if len(rowAlign) > n {
		n = len(rowAlign)
	}
	children := make([]*Node, n)
	for i := 0; i < n; i++ {
		content := ""
		if i < len(cells) {
			content = strings.TrimSpace(cells[i])
		}
		align := AlignDefault
		if i < len(rowAlign) {
			align = rowAlign[i]
		}
		children[i] = newParent(&TableCell{Align: align}, pendingSpan(content, pos), pos)
	}
	return newParent(&TableRow{RowAlign: rowAlign}, children, pos)
}

// Footnote is a footnote definition: "[^label]: the footnote body".
// Definitions may appear anywhere, but footnotes render in the order
// they are first referenced, and unreferenced ones do not render.
// Only single-line definitions are recognized.
type Footnote struct {
	Target string
}

func (*Footnote) Kind() string { return "Footnote" }

// FootnoteToken recognizes footnote definitions.
// Register it ahead of LinkDefinitionToken: both start with a bracket.
type FootnoteToken struct{}

var footnoteLabelPattern = regexp.MustCompile(`^[ \n]{0,3}\[\^([a-zA-Z0-9#@]+)\]\:\s*(.*)$`)

func (*FootnoteToken) Name() string { return "Footnote" }

func (*FootnoteToken) Start(line string) bool {
	return strings.HasPrefix(strings.TrimLeft(line, " \t"), "[^")
}

func (*FootnoteToken) Read(lines *SourceCursor, pc *ParseContext) *Node {
	startLine := lines.Lineno() + 1
	next, _ := lines.Peek()
	m := footnoteLabelPattern.FindStringSubmatch(chomp(next))
	if m == nil {
		return nil
	}
	lines.Next()
	pos := lines.position(startLine)
	node := newParent(&Footnote{Target: m[1]}, pendingSpan(m[2], pos), pos)
	pc.AddFootnoteDefinition(m[1], node)
	return node
}
