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
	"strconv"
	"strings"

	"golang.org/x/net/html/atom"
)

// PendingSpanText is the payload of a deferred span-parse placeholder.
// Block readers that sit on the boundary between block- and span-level
// content (headings, paragraphs, table cells, footnotes) store their raw
// span text in one of these; the expansion walk replaces the placeholder
// with tokenized spans once every definition in the document is known.
type PendingSpanText struct {
	Text string
}

func (*PendingSpanText) Kind() string { return "PendingSpanText" }

// pendingSpan wraps raw span text in a placeholder node.
func pendingSpan(text string, pos Position) []*Node {
	return []*Node{newLeaf(&PendingSpanText{Text: text}, text, pos)}
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// chomp removes the line terminator
// so that $-anchored patterns see the line's true end.
func chomp(line string) string {
	return strings.TrimRight(line, "\r\n")
}

func indentWidth(line string) int {
	return len(line) - len(strings.TrimLeft(line, " "))
}

// Heading is an ATX heading. Its children are span nodes.
type Heading struct {
	Level int
}

func (*Heading) Kind() string { return "Heading" }

// HeadingToken recognizes ATX headings.
type HeadingToken struct{}

var headingPattern = regexp.MustCompile(`^ {0,3}(#{1,6})(?:$|\s+?(.*?)(?:$|\s+?#+\s*?$))`)

func (*HeadingToken) Name() string { return "Heading" }

func (*HeadingToken) Start(line string) bool {
	return headingPattern.MatchString(chomp(line))
}

func (*HeadingToken) Read(lines *SourceCursor, pc *ParseContext) *Node {
	line := lines.Next()
	m := headingPattern.FindStringSubmatch(chomp(line))
	content := strings.TrimSpace(m[2])
	if content != "" && strings.Trim(content, "#") == "" {
		// A run of closing hashes with no content, e.g. "### ###".
		content = ""
	}
	pos := lines.position(lines.Lineno())
	return newParent(&Heading{Level: len(m[1])}, pendingSpan(content, pos), pos)
}

// SetextHeading is a heading underlined with = or -.
// It is not registered for matching: Paragraph reads produce it
// when the following line is a setext underline.
type SetextHeading struct {
	Level int
}

func (*SetextHeading) Kind() string { return "SetextHeading" }

// Quote is a block quote. Its children are block nodes.
type Quote struct{}

func (*Quote) Kind() string { return "Quote" }

// QuoteToken recognizes block quotes, including lazy continuation lines.
type QuoteToken struct{}

func (*QuoteToken) Name() string { return "Quote" }

func (*QuoteToken) Start(line string) bool {
	return quoteStart(line)
}

func quoteStart(line string) bool {
	stripped := strings.TrimLeft(line, " ")
	if len(line)-len(stripped) > 3 {
		return false
	}
	return strings.HasPrefix(stripped, ">")
}

// quoteTransition reports whether the next line terminates the quote.
func quoteTransition(next string, ok bool) bool {
	return !ok ||
		isBlank(next) ||
		headingPattern.MatchString(chomp(next)) ||
		codeFenceStart(next) != nil ||
		thematicBreakStart(next) ||
		listStart(next)
}

func (*QuoteToken) Read(lines *SourceCursor, pc *ParseContext) *Node {
	startLine := lines.Lineno() + 1
	first := convertLeadingTabs(strings.TrimLeft(lines.Next(), " \t\r\n"))
	_, line, _ := strings.Cut(first, ">")
	line = strings.TrimPrefix(line, " ")
	buffer := []string{line}

	inCodeFence := codeFenceStart(line) != nil
	inBlockCode := blockCodeStart(line)
	blankLine := isBlank(line)

	for {
		next, ok := lines.Peek()
		if quoteTransition(next, ok) {
			break
		}
		stripped := convertLeadingTabs(strings.TrimLeft(next, " \t"))
		if strings.HasPrefix(stripped, ">") {
			// Has a leader; not a lazy continuation.
			prepend := 1
			if len(stripped) > 1 && stripped[1] == ' ' {
				prepend = 2
			}
			stripped = stripped[prepend:]
			inCodeFence = codeFenceStart(stripped) != nil
			inBlockCode = blockCodeStart(stripped)
			blankLine = isBlank(stripped)
			buffer = append(buffer, stripped)
		} else if inCodeFence || inBlockCode || blankLine {
			// Not paragraph continuation text.
			break
		} else {
			// Lazy continuation; preserve whitespace.
			buffer = append(buffer, next)
		}
		lines.Next()
	}

	// Block-level constructs are parsed here so that link definitions
	// inside quotes register before span tokenization.
	// Setext detection is off for the nested parse.
	inner := NewSourceCursor(buffer).WithLineOffset(startLine - 1)
	savedSetext := pc.noSetext
	pc.noSetext = true
	seq := tokenizeBlocks(inner, pc)
	pc.noSetext = savedSetext

	return newParent(&Quote{}, seq.nodes, lines.position(startLine))
}

// convertLeadingTabs rewrites a quote marker's tab
// and any further leading tabs into spaces.
func convertLeadingTabs(line string) string {
	line = strings.Replace(line, ">\t", "   ", 1)
	count := 0
	i := 0
	for ; i < len(line); i++ {
		switch line[i] {
		case '\t':
			count += 4
		case ' ':
			count++
		default:
			goto done
		}
	}
done:
	if i == 0 {
		return line
	}
	return ">" + strings.Repeat(" ", count) + line[i:]
}

// Paragraph is a run of continuous text lines.
// Its children are span nodes.
type Paragraph struct{}

func (*Paragraph) Kind() string { return "Paragraph" }

// ParagraphToken recognizes paragraphs.
// It also owns setext heading conversion:
// a paragraph line followed by a setext underline
// turns the accumulated lines into a [SetextHeading].
type ParagraphToken struct{}

var setextPattern = regexp.MustCompile(`^ {0,3}(=+|-+)\s*$`)

func (*ParagraphToken) Name() string { return "Paragraph" }

func (*ParagraphToken) Start(line string) bool {
	return !isBlank(line)
}

// paragraphTransition reports whether the next line interrupts the paragraph.
// List markers and HTML blocks need extra checks beyond this; see Read.
func paragraphTransition(next string, ok bool) bool {
	return !ok ||
		isBlank(next) ||
		headingPattern.MatchString(chomp(next)) ||
		codeFenceStart(next) != nil ||
		quoteStart(next)
}

func (t *ParagraphToken) Read(lines *SourceCursor, pc *ParseContext) *Node {
	buffer := []string{lines.Next()}
	startLine := lines.Lineno()
	for {
		next, ok := lines.Peek()
		if paragraphTransition(next, ok) {
			break
		}

		// A list marker interrupts only for a non-empty item
		// that is unordered or numbered from 1.
		if marker := parseListMarker(next); marker != nil && indentWidth(next) < 4 {
			if marker.prepend <= len(next) && strings.HasSuffix(next[:marker.prepend], " ") {
				num := marker.leader[:len(marker.leader)-1]
				if !isDigits(num) || num == "1" {
					break
				}
			}
		}

		// HTML blocks of any rule but 7 interrupt.
		if rule, _ := htmlBlockStart(next); rule != 0 && rule != 7 {
			break
		}

		// Setext underline: convert the whole paragraph.
		if !pc.noSetext && setextPattern.MatchString(chomp(next)) {
			underline := lines.Next()
			level := 2
			if strings.HasPrefix(strings.TrimLeft(underline, " "), "=") {
				level = 1
			}
			trimmed := make([]string, len(buffer))
			for i, line := range buffer {
				trimmed[i] = strings.TrimSpace(line)
			}
			pos := lines.position(startLine)
			content := strings.Join(trimmed, "\n")
			return newParent(&SetextHeading{Level: level}, pendingSpan(content, pos), pos)
		}

		// Thematic break has to be tested after setext:
		// "---" is an underline when a paragraph is open.
		if thematicBreakStart(next) {
			break
		}

		buffer = append(buffer, lines.Next())
	}

	var sb strings.Builder
	for _, line := range buffer {
		sb.WriteString(strings.TrimLeft(line, " \t"))
	}
	content := strings.TrimSpace(sb.String())
	pos := lines.position(startLine)
	return newParent(&Paragraph{}, pendingSpan(content, pos), pos)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// BlockCode is an indented code block.
// Its single child is a RawText leaf with the stripped content.
type BlockCode struct {
	Language string
}

func (*BlockCode) Kind() string { return "BlockCode" }

// BlockCodeToken recognizes indented code blocks.
type BlockCodeToken struct{}

func (*BlockCodeToken) Name() string { return "BlockCode" }

func (*BlockCodeToken) Start(line string) bool {
	return blockCodeStart(line)
}

func blockCodeStart(line string) bool {
	return strings.HasPrefix(strings.Replace(line, "\t", "    ", 1), "    ")
}

func (*BlockCodeToken) Read(lines *SourceCursor, pc *ParseContext) *Node {
	startLine := lines.Lineno() + 1
	var buffer []string
	for {
		line, ok := lines.Peek()
		if !ok {
			break
		}
		if isBlank(line) {
			if len(line) < 5 {
				buffer = append(buffer, strings.TrimLeft(line, " "))
			} else {
				buffer = append(buffer, line[4:])
			}
			lines.Next()
			continue
		}
		if !blockCodeStart(line) {
			break
		}
		buffer = append(buffer, stripCodeIndent(line))
		lines.Next()
	}
	content := strings.Trim(strings.Join(buffer, ""), "\n") + "\n"
	pos := lines.position(startLine)
	child := newLeaf(&RawText{}, content, pos)
	return newParent(&BlockCode{}, []*Node{child}, pos)
}

// stripCodeIndent removes one level (4 columns) of code indentation.
func stripCodeIndent(line string) string {
	count := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\t':
			return line[i+1:]
		case ' ':
			count++
		default:
			return line
		}
		if count == 4 {
			return line[i+1:]
		}
	}
	return line
}

// CodeFence is a fenced code block.
// Its single child is a RawText leaf with the literal content.
type CodeFence struct {
	Language  string
	Arguments string
}

func (*CodeFence) Kind() string { return "CodeFence" }

// CodeFenceToken recognizes fenced code blocks.
// An unterminated fence consumes to end of input.
type CodeFenceToken struct{}

var codeFencePattern = regexp.MustCompile("^( {0,3})((?:`|~){3,}) *([^`~\\s]*) *([^`~]*)$")

type fenceInfo struct {
	indent    int
	leader    string
	language  string
	arguments string
}

func (*CodeFenceToken) Name() string { return "CodeFence" }

func (*CodeFenceToken) Start(line string) bool {
	return codeFenceStart(line) != nil
}

func codeFenceStart(line string) *fenceInfo {
	m := codeFencePattern.FindStringSubmatch(chomp(line))
	if m == nil {
		return nil
	}
	if strings.ContainsRune(m[3], rune(m[2][0])) {
		return nil
	}
	return &fenceInfo{
		indent:    len(m[1]),
		leader:    m[2],
		language:  m[3],
		arguments: m[4],
	}
}

func (*CodeFenceToken) Read(lines *SourceCursor, pc *ParseContext) *Node {
	open := codeFenceStart(lines.Next())
	startLine := lines.Lineno()
	var buffer []string
	for {
		line, ok := lines.Peek()
		if !ok {
			break
		}
		lines.Next()
		stripped := strings.TrimLeft(line, " ")
		diff := len(line) - len(stripped)
		if strings.HasPrefix(stripped, open.leader) && len(strings.Fields(stripped)) == 1 && diff < 4 {
			break
		}
		if diff > open.indent {
			stripped = strings.Repeat(" ", diff-open.indent) + stripped
		}
		buffer = append(buffer, stripped)
	}
	pos := lines.position(startLine)
	argLine, _, _ := strings.Cut(open.arguments, "\n")
	child := newLeaf(&RawText{}, strings.Join(buffer, ""), pos)
	return newParent(&CodeFence{
		Language:  stripEscapes(open.language),
		Arguments: stripEscapes(argLine),
	}, []*Node{child}, pos)
}

// ThematicBreak is a horizontal rule.
type ThematicBreak struct{}

func (*ThematicBreak) Kind() string { return "ThematicBreak" }

// ThematicBreakToken recognizes thematic breaks.
type ThematicBreakToken struct{}

func (*ThematicBreakToken) Name() string { return "ThematicBreak" }

func (*ThematicBreakToken) Start(line string) bool {
	return thematicBreakStart(line)
}

// thematicBreakStart reports whether the line is three or more
// of the same -, _, or * character, interleaved with whitespace.
func thematicBreakStart(line string) bool {
	if indentWidth(line) > 3 {
		return false
	}
	n := 0
	var want byte
	for i := 0; i < len(line); i++ {
		switch b := line[i]; b {
		case '-', '_', '*':
			if n == 0 {
				want = b
			} else if b != want {
				return false
			}
			n++
		case ' ', '\t', '\r', '\n':
			// Ignore.
		default:
			return false
		}
	}
	return n >= 3
}

func (*ThematicBreakToken) Read(lines *SourceCursor, pc *ParseContext) *Node {
	lines.Next()
	return newParent(&ThematicBreak{}, nil, lines.position(lines.Lineno()))
}

// HTMLBlock is a block-level HTML island, rendered as-is.
type HTMLBlock struct{}

func (*HTMLBlock) Kind() string { return "HTMLBlock" }

// HTMLBlockToken recognizes the seven HTML block forms.
type HTMLBlockToken struct{}

var (
	htmlMultiblockPattern = regexp.MustCompile(`^<(script|pre|style)[ >\n]`)
	htmlPredefinedPattern = regexp.MustCompile(`^</?(.+?)(?:/?>|[ \n])`)
	htmlCustomTagPattern  = regexp.MustCompile(`^(?:` + openTagPattern + `|` + closingTagPattern + `)\s*$`)
)

// htmlBlockTagNames is the block-starting tag list;
// see htmlBlockAtoms for the interned form.
var htmlBlockTagNames = []string{
	"address", "article", "aside", "base", "basefont", "blockquote", "body",
	"caption", "center", "col", "colgroup", "dd", "details", "dialog", "dir",
	"div", "dl", "dt", "fieldset", "figcaption", "figure", "footer", "form",
	"frame", "frameset", "h1", "h2", "h3", "h4", "h5", "h6", "head", "header",
	"hr", "html", "iframe", "legend", "li", "link", "main", "menu", "menuitem",
	"meta", "nav", "noframes", "ol", "optgroup", "option", "p", "param",
	"section", "source", "summary", "table", "tbody", "td", "tfoot", "th",
	"thead", "title", "tr", "track", "ul",
}

var htmlBlockAtoms, htmlBlockExtra = func() (map[atom.Atom]bool, map[string]bool) {
	atoms := make(map[atom.Atom]bool)
	extra := make(map[string]bool)
	for _, name := range htmlBlockTagNames {
		if a := atom.Lookup([]byte(name)); a != 0 {
			atoms[a] = true
		} else {
			extra[name] = true
		}
	}
	return atoms, extra
}()

func isHTMLBlockTag(name string) bool {
	name = strings.ToLower(name)
	if a := atom.Lookup([]byte(name)); a != 0 {
		return htmlBlockAtoms[a]
	}
	return htmlBlockExtra[name]
}

func (*HTMLBlockToken) Name() string { return "HTMLBlock" }

func (*HTMLBlockToken) Start(line string) bool {
	rule, _ := htmlBlockStart(line)
	return rule != 0
}

// htmlBlockStart classifies the line against HTML block rules 1-7.
// It returns the rule number (0 for no match) and the terminating
// substring; an empty endCond means the block ends at a blank line.
func htmlBlockStart(line string) (rule int, endCond string) {
	stripped := strings.TrimLeft(line, " ")
	if len(line)-len(stripped) >= 4 {
		return 0, ""
	}
	// Rule 1: <pre>, <script> or <style>; newlines allowed in the block.
	if m := htmlMultiblockPattern.FindStringSubmatch(stripped); m != nil {
		return 1, "</" + strings.ToLower(m[1]) + ">"
	}
	// Rule 2: comments.
	if strings.HasPrefix(stripped, "<!--") {
		return 2, "-->"
	}
	// Rule 3: processing instructions.
	if strings.HasPrefix(stripped, "<?") {
		return 3, "?>"
	}
	// Rule 5: CDATA (before rule 4, both start with "<!").
	if strings.HasPrefix(stripped, "<![CDATA[") {
		return 5, "]]>"
	}
	// Rule 4: declarations.
	if strings.HasPrefix(stripped, "<!") && len(stripped) > 2 &&
		stripped[2] >= 'A' && stripped[2] <= 'Z' {
		return 4, ">"
	}
	// Rule 6: known block tags; block ends at a blank line.
	if m := htmlPredefinedPattern.FindStringSubmatch(stripped); m != nil && isHTMLBlockTag(m[1]) {
		return 6, ""
	}
	// Rule 7: any complete open or closing tag alone on the line.
	if htmlCustomTagPattern.MatchString(stripped) {
		return 7, ""
	}
	return 0, ""
}

func (*HTMLBlockToken) Read(lines *SourceCursor, pc *ParseContext) *Node {
	startLine := lines.Lineno() + 1
	first, _ := lines.Peek()
	_, endCond := htmlBlockStart(first)
	var buffer []string
	for {
		line, ok := lines.Peek()
		if !ok {
			break
		}
		lines.Next()
		// The stop condition can trigger on the starting line.
		if endCond != "" {
			buffer = append(buffer, line)
			if strings.Contains(strings.ToLower(line), endCond) {
				break
			}
		} else if isBlank(line) {
			break
		} else {
			buffer = append(buffer, line)
		}
	}
	content := strings.TrimRight(strings.Join(buffer, ""), "\n")
	return newLeaf(&HTMLBlock{}, content, lines.position(startLine))
}

// List is an ordered or unordered list. Its children are ListItem nodes.
type List struct {
	Loose   bool
	Ordered bool
	// Start is the first item's number; meaningful only when Ordered.
	Start int
}

func (*List) Kind() string { return "List" }

// ListItem is one item of a [List]. Its children are block nodes.
type ListItem struct {
	Loose  bool
	Leader string
}

func (*ListItem) Kind() string { return "ListItem" }

// ListToken recognizes lists and drives per-item reads.
type ListToken struct{}

var listStartPattern = regexp.MustCompile(`^ {0,3}(?:\d{0,9}[.)]|[+\-*])(?:[ \t]*$|[ \t]+)`)

func (*ListToken) Name() string { return "List" }

func (*ListToken) Start(line string) bool {
	return listStart(line)
}

func listStart(line string) bool {
	return listStartPattern.MatchString(chomp(line))
}

func (*ListToken) Read(lines *SourceCursor, pc *ParseContext) *Node {
	startLine := lines.Lineno() + 1
	var leader string
	var nextMarker *listMarker
	var items []*Node
	for {
		item, marker := readListItem(lines, pc, nextMarker)
		nextMarker = marker
		itemLeader := item.Data.(*ListItem).Leader
		if leader == "" {
			leader = itemLeader
		} else if !sameMarkerType(leader, itemLeader) {
			lines.Reset()
			break
		}
		items = append(items, item)
		if nextMarker == nil {
			break
		}
	}

	// The last item is loose only when it has more than one child.
	if len(items) > 0 {
		last := items[len(items)-1].Data.(*ListItem)
		last.Loose = last.Loose && len(items[len(items)-1].Children) > 1
	}
	loose := false
	for _, item := range items {
		loose = loose || item.Data.(*ListItem).Loose
	}
	first := items[0].Data.(*ListItem).Leader
	data := &List{Loose: loose}
	if len(first) != 1 {
		data.Ordered = true
		data.Start, _ = strconv.Atoi(first[:len(first)-1])
	}
	return newParent(data, items, lines.position(startLine))
}

func sameMarkerType(leader, other string) bool {
	if len(leader) == 1 {
		return leader == other
	}
	return isDigits(leader[:len(leader)-1]) &&
		isDigits(other[:len(other)-1]) &&
		leader[len(leader)-1] == other[len(other)-1]
}

type listMarker struct {
	prepend int
	leader  string
}

var listItemPattern = regexp.MustCompile(`^\s*(\d{0,9}[.)]|[+\-*])(\s*$|\s+)`)

// parseListMarker returns the item's marker info,
// or nil if the line has no valid leader.
// prepend is the content column: the number of bytes
// (after tab conversion) preceding the item's own content.
func parseListMarker(line string) *listMarker {
	idx := listItemPattern.FindStringSubmatchIndex(line)
	if idx == nil {
		return nil
	}
	leader := line[idx[2]:idx[3]]
	whole := line[idx[0]:idx[1]]
	content := strings.Replace(whole, leader+"\t", leader+"   ", 1)
	prepend := len(content)
	if prepend == len(chomp(line)) {
		// Marker followed by nothing (or only whitespace):
		// content starts one column past the leader.
		prepend = idx[3] + 1
	} else {
		spaces := line[idx[4]:idx[5]]
		if strings.HasPrefix(spaces, "\t") {
			spaces = strings.Replace(spaces, "\t", "   ", 1)
		}
		spaces = strings.ReplaceAll(spaces, "\t", "    ")
		if len(spaces) > 4 {
			// Indented code inside the item; content is one column in.
			prepend = idx[3] + 1
		}
	}
	return &listMarker{prepend: prepend, leader: leader}
}

func listItemContinues(line string, prepend int) bool {
	return isBlank(line) || len(line)-len(strings.TrimLeft(line, " \t")) >= prepend
}

func listItemTransition(line string) bool {
	return headingPattern.MatchString(chomp(line)) ||
		quoteStart(line) ||
		codeFenceStart(line) != nil ||
		thematicBreakStart(line)
}

// readListItem consumes one list item.
// It returns the item node and the marker of the immediately
// following item, if one terminated this item's read.
func readListItem(lines *SourceCursor, pc *ParseContext, prevMarker *listMarker) (*Node, *listMarker) {
	lines.Anchor()
	startLine := lines.Lineno() + 1
	var buffer []string
	var nextMarker *listMarker

	line := lines.Next()
	marker := prevMarker
	if marker == nil {
		marker = parseListMarker(line)
	}
	prepend, leader := marker.prepend, marker.leader
	line = strings.Replace(line, leader+"\t", leader+"   ", 1)
	line = strings.ReplaceAll(line, "\t", "    ")
	emptyFirstLine := prepend >= len(line) || isBlank(line[prepend:])
	if !emptyFirstLine {
		buffer = append(buffer, line[prepend:])
	}

	next, ok := lines.Peek()
	if emptyFirstLine && ok && isBlank(next) {
		// A marker alone followed by a blank line: the item holds
		// only that blank, and the following line may start a sibling.
		blank := lines.Next()
		inner := NewSourceCursor([]string{blank}).WithLineOffset(lines.Lineno() - 1)
		seq := tokenizeBlocks(inner, pc)
		if after, ok := lines.Peek(); ok {
			nextMarker = parseListMarker(after)
		}
		return newParent(&ListItem{Loose: seq.loose, Leader: leader},
			seq.nodes, lines.position(startLine)), nextMarker
	}

	newline := 0
	for {
		next, ok := lines.Peek()
		if !ok {
			if newline > 0 {
				lines.Backstep()
				buffer = buffer[:len(buffer)-newline]
			}
			break
		}
		next = strings.ReplaceAll(next, "\t", "    ")
		if !listItemContinues(next, prepend) {
			// Directly followed by another construct.
			if listItemTransition(next) {
				if newline > 0 {
					lines.Backstep()
					buffer = buffer[:len(buffer)-newline]
				}
				break
			}
			// A sibling item.
			if m := parseListMarker(next); m != nil {
				nextMarker = m
				break
			}
			// Not a continuation after blank lines.
			if newline > 0 {
				lines.Backstep()
				buffer = buffer[:len(buffer)-newline]
				break
			}
		}
		lines.Next()
		stripped := strings.TrimLeft(next, " ")
		diff := len(next) - len(stripped)
		if diff > prepend {
			stripped = strings.Repeat(" ", diff-prepend) + stripped
		}
		buffer = append(buffer, stripped)
		if isBlank(next) {
			newline++
		} else {
			newline = 0
		}
	}

	inner := NewSourceCursor(buffer).WithLineOffset(startLine - 1)
	seq := tokenizeBlocks(inner, pc)
	return newParent(&ListItem{Loose: seq.loose, Leader: leader},
		seq.nodes, lines.position(startLine)), nextMarker
}

// LinkDefinitionEntry is one definition parsed from a definition run.
type LinkDefinitionEntry struct {
	Label       string
	Destination string
	Title       string
}

// LinkDefinitionBlock is the node payload for a run of link definitions.
// By default these nodes register their definitions in the session
// and are not inserted into the tree; see [ParseContext.KeepDefinitions].
type LinkDefinitionBlock struct {
	Definitions []LinkDefinitionEntry
}

func (*LinkDefinitionBlock) Kind() string { return "LinkDefinition" }

// LinkDefinitionToken recognizes link reference definitions:
// `[label]: destination "title"`, possibly several in a row.
type LinkDefinitionToken struct{}

func (*LinkDefinitionToken) Name() string { return "LinkDefinition" }

func (*LinkDefinitionToken) Start(line string) bool {
	return strings.HasPrefix(strings.TrimLeft(line, " \t"), "[")
}

func (*LinkDefinitionToken) Read(lines *SourceCursor, pc *ParseContext) *Node {
	startLine := lines.Lineno() + 1
	var sb strings.Builder
	for {
		next, ok := lines.Peek()
		if !ok || isBlank(next) {
			break
		}
		sb.WriteString(lines.Next())
	}
	text := sb.String()
	offset := 0
	var entries []LinkDefinitionEntry
	for offset < len(text)-1 {
		newOffset, entry, ok := matchLinkDefinition(lines, text, offset)
		if !ok {
			break
		}
		offset = newOffset
		entries = append(entries, entry)
	}
	for _, e := range entries {
		pc.AddLinkDefinition(e.Label, LinkDefinition{
			Destination: stripEscapes(strings.TrimSpace(e.Destination)),
			Title:       stripEscapes(e.Title),
		})
	}
	if len(entries) == 0 {
		return nil
	}
	return newParent(&LinkDefinitionBlock{Definitions: entries}, nil, lines.position(startLine))
}

// matchLinkDefinition parses one `[label]: dest "title"` at offset.
// On failure it rewinds the cursor so that the unmatched tail
// is re-served to the next candidate kind.
func matchLinkDefinition(lines *SourceCursor, text string, offset int) (int, LinkDefinitionEntry, bool) {
	labelEnd, label, ok := matchLinkLabel(text, offset)
	if !ok {
		rewindDefinition(lines, text, offset)
		return 0, LinkDefinitionEntry{}, false
	}
	if labelEnd >= len(text) || text[labelEnd] != ':' {
		rewindDefinition(lines, text, offset)
		return 0, LinkDefinitionEntry{}, false
	}
	destEnd, dest, ok := matchLinkDest(text, labelEnd)
	if !ok {
		rewindDefinition(lines, text, offset)
		return 0, LinkDefinitionEntry{}, false
	}
	titleEnd, title, ok := matchLinkTitle(text, destEnd)
	if !ok {
		rewindDefinition(lines, text, destEnd)
		return 0, LinkDefinitionEntry{}, false
	}
	return titleEnd, LinkDefinitionEntry{Label: label, Destination: dest, Title: title}, true
}

// rewindDefinition steps the cursor back over every line
// that begins after the failure offset.
func rewindDefinition(lines *SourceCursor, text string, offset int) {
	if offset+1 >= len(text) {
		return
	}
	for i := strings.Count(text[offset+1:], "\n"); i > 0; i-- {
		lines.Backstep()
	}
}

// matchLinkLabel scans `[label]` starting at or after offset.
func matchLinkLabel(text string, offset int) (end int, label string, ok bool) {
	start := -1
	escaped := false
	for i := offset; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '[':
			if start != -1 {
				return 0, "", false
			}
			start = i
		case c == ']':
			if start == -1 {
				return 0, "", false
			}
			label := text[start+1 : i]
			if strings.TrimSpace(label) == "" {
				return 0, "", false
			}
			return i + 1, label, true
		}
	}
	return 0, "", false
}

// matchLinkDest scans the destination after the colon at offset.
func matchLinkDest(text string, offset int) (end int, dest string, ok bool) {
	offset = shiftWhitespace(text, offset+1)
	if offset == len(text) {
		return 0, "", false
	}
	if text[offset] == '<' {
		escaped := false
		for i := offset + 1; i < len(text); i++ {
			c := text[i]
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '\n' || c == '<':
				return 0, "", false
			case c == '>':
				return i + 1, text[offset+1 : i], true
			}
		}
		return 0, "", false
	}
	escaped := false
	count := 0
	i := offset
scan:
	for ; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			if c < 32 || c == 127 {
				return 0, "", false
			}
			escaped = false
		case c == '\\':
			escaped = true
		case isDefWhitespace(c):
			break scan
		case c == '(':
			count++
		case c == ')':
			count--
		}
	}
	if count != 0 {
		return 0, "", false
	}
	return i, text[offset:i], true
}

// matchLinkTitle scans an optional quoted title after the destination.
func matchLinkTitle(text string, offset int) (end int, title string, ok bool) {
	newOffset := shiftWhitespace(text, offset)
	if newOffset == len(text) ||
		(strings.Contains(text[offset:newOffset], "\n") && text[newOffset] == '[') {
		return newOffset, "", true
	}
	var closing byte
	switch text[newOffset] {
	case '"':
		closing = '"'
	case '\'':
		closing = '\''
	case '(':
		closing = ')'
	default:
		if strings.Contains(text[offset:newOffset], "\n") {
			return offset, "", true
		}
		return 0, "", false
	}
	offset = newOffset
	escaped := false
	for i := offset + 1; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == closing:
			after := shiftWhitespace(text, i+1)
			if !strings.Contains(text[i+1:after], "\n") && after != len(text) {
				return 0, "", false
			}
			return after, text[offset+1 : i], true
		}
	}
	return 0, "", false
}

func isDefWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func shiftWhitespace(text string, offset int) int {
	for offset < len(text) && isDefWhitespace(text[offset]) {
		offset++
	}
	return offset
}
