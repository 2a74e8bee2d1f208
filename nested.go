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
	"unicode"
	"unicode/utf8"
)

// findNested performs the single left-to-right scan over span text
// that resolves every nesting-sensitive construct: emphasis and strong
// delimiter runs, code spans, bracketed links and images, autolinks,
// raw HTML, strikethrough, and math. It returns the link, image,
// reference, and emphasis matches; the other kinds' matches are
// deposited into per-kind session buckets for their tokens to retrieve.
func findNested(text string, pc *ParseContext) []*SpanMatch {
	s := &nestedScanner{text: text, pc: pc}
	s.scan()
	s.processEmphasis(0)
	return s.matches
}

type nestedScanner struct {
	text     string
	pc       *ParseContext
	matches  []*SpanMatch
	delims   []*spanDelimiter
	brackets []spanBracket
}

// spanDelimiter is one * or _ run on the delimiter stack.
// start and end shrink as the run's characters are consumed by
// emphasis pairings; n keeps the run's original length for the
// multiple-of-three pairing rules.
type spanDelimiter struct {
	typ        spanDelimiterType
	flags      uint8
	n          int
	start, end int
}

type spanDelimiterType int8

const (
	spanDelimiterStar spanDelimiterType = 1 + iota
	spanDelimiterUnderscore
)

const (
	openerFlag = 1 << iota
	closerFlag
)

// spanBracket is one open [ or ![ awaiting its closing bracket.
type spanBracket struct {
	pos    int
	image  bool
	active bool
	// delimBottom is the delimiter stack depth at the bracket's open,
	// so delimiters inside a completed link cannot pair outside it.
	delimBottom int
}

func (s *nestedScanner) scan() {
	text := s.text
	for i := 0; i < len(text); {
		switch text[i] {
		case '\\':
			i += 2
		case '`':
			i = s.scanCodeSpan(i)
		case '<':
			i = s.scanAngle(i)
		case '*', '_':
			i = s.scanDelimiterRun(i)
		case '[':
			s.brackets = append(s.brackets, spanBracket{
				pos:         i,
				active:      true,
				delimBottom: len(s.delims),
			})
			i++
		case '!':
			if i+1 < len(text) && text[i+1] == '[' {
				s.brackets = append(s.brackets, spanBracket{
					pos:         i,
					image:       true,
					active:      true,
					delimBottom: len(s.delims),
				})
				i += 2
			} else {
				i++
			}
		case ']':
			i = s.closeBracket(i)
		case '~':
			i = s.scanStrikethrough(i)
		case '$':
			i = s.scanMath(i)
		default:
			i++
		}
	}
}

// scanCodeSpan matches a backtick run against the next run of the
// same length. A longer or shorter run does not terminate the span.
func (s *nestedScanner) scanCodeSpan(i int) int {
	text := s.text
	n := runLength(text, i, '`')
	if !s.pc.hasSpanKind("InlineCode") {
		return i + n
	}
	for j := i + n; j < len(text); {
		if text[j] != '`' {
			j++
			continue
		}
		m := runLength(text, j, '`')
		if m != n {
			j += m
			continue
		}
		s.pc.putNestedMatch("InlineCode", &SpanMatch{
			Start: i,
			End:   j + m,
			Node:  newInlineCode(text[i+n : j]),
		})
		return j + m
	}
	return i + n
}

func (s *nestedScanner) scanAngle(i int) int {
	text := s.text
	if m := autoLinkPattern.FindStringSubmatch(text[i:]); m != nil && s.pc.hasSpanKind("AutoLink") {
		s.pc.putNestedMatch("AutoLink", &SpanMatch{
			Start: i,
			End:   i + len(m[0]),
			Node:  newAutoLink(m[1]),
		})
		return i + len(m[0])
	}
	if end := matchHTMLSpan(text[i:]); end > 0 && s.pc.hasSpanKind("HTMLSpan") {
		raw := text[i : i+end]
		s.pc.putNestedMatch("HTMLSpan", &SpanMatch{
			Start: i,
			End:   i + end,
			Node:  newLeaf(&HTMLSpan{}, raw, Position{}),
		})
		return i + end
	}
	return i + 1
}

func (s *nestedScanner) scanDelimiterRun(i int) int {
	text := s.text
	end := i + runLength(text, i, text[i])
	elem := &spanDelimiter{
		flags: emphasisFlags(text, i, end),
		n:     end - i,
		start: i,
		end:   end,
	}
	if text[i] == '*' {
		elem.typ = spanDelimiterStar
	} else {
		elem.typ = spanDelimiterUnderscore
	}
	s.delims = append(s.delims, elem)
	return end
}

func (s *nestedScanner) scanStrikethrough(i int) int {
	text := s.text
	n := runLength(text, i, '~')
	if n < 2 || !s.pc.hasSpanKind("Strikethrough") {
		return i + n
	}
	for j := i + 3; j+1 < len(text); j++ {
		if text[j] == '~' && text[j+1] == '~' {
			s.pc.putNestedMatch("Strikethrough", &SpanMatch{
				Start:      i,
				End:        j + 2,
				InnerStart: i + 2,
				InnerEnd:   j,
				ParseInner: true,
				Node:       newParent(&Strikethrough{}, nil, Position{}),
			})
			return j + 2
		}
	}
	return i + n
}

func (s *nestedScanner) scanMath(i int) int {
	text := s.text
	n := runLength(text, i, '$')
	if n > 2 || !s.pc.hasSpanKind("Math") {
		return i + n
	}
	j := i + n
	for ; j < len(text) && text[j] != '$'; j++ {
	}
	if j == i+n || j+n > len(text) || text[j:j+n] != strings.Repeat("$", n) {
		return i + n
	}
	raw := text[i : j+n]
	s.pc.putNestedMatch("Math", &SpanMatch{
		Start: i,
		End:   j + n,
		Node:  newLeaf(&Math{}, raw, Position{}),
	})
	return j + n
}

// closeBracket resolves a ] against the most recent open bracket,
// producing an inline link, a resolved reference, a footnote
// reference, or a pending reference for the resolver pass.
func (s *nestedScanner) closeBracket(i int) int {
	if len(s.brackets) == 0 {
		return i + 1
	}
	b := s.brackets[len(s.brackets)-1]
	s.brackets = s.brackets[:len(s.brackets)-1]
	if !b.active {
		return i + 1
	}
	innerStart := b.pos + 1
	if b.image {
		innerStart = b.pos + 2
	}
	inner := s.text[innerStart:i]

	// Inline style: [text](dest "title").
	if i+1 < len(s.text) && s.text[i+1] == '(' {
		if dest, title, end, ok := matchSpanLinkSuffix(s.text, i+1); ok {
			var data NodeData
			if b.image {
				data = &Image{Src: strings.TrimSpace(dest), Title: title}
			} else {
				data = &Link{
					Target: stripEscapes(strings.TrimSpace(dest)),
					Title:  stripEscapes(title),
				}
			}
			s.emitBracket(&SpanMatch{
				Start:      b.pos,
				End:        end,
				InnerStart: innerStart,
				InnerEnd:   i,
				ParseInner: true,
				Node:       newParent(data, nil, Position{}),
			}, b)
			return end
		}
	}

	// Reference styles: [label], [inner][], [inner][label].
	label := inner
	style := shortcutRef
	end := i + 1
	if i+1 < len(s.text) && s.text[i+1] == '[' {
		if ref, refEnd, ok := matchRefLabel(s.text, i+1); ok {
			if strings.TrimSpace(ref) == "" {
				style = collapsedRef
			} else {
				style = fullRef
				label = ref
			}
			end = refEnd
		}
	}
	if NormalizeLabel(label) == "" {
		return i + 1
	}

	var node *Node
	if def, ok := s.pc.linkDefs[NormalizeLabel(label)]; ok {
		if b.image {
			node = newParent(&Image{Src: def.Destination, Title: def.Title}, nil, Position{})
		} else {
			node = newParent(&Link{Target: def.Destination, Title: def.Title}, nil, Position{})
		}
	} else if target, ok := s.footLabel(label); ok {
		s.matches = append(s.matches, &SpanMatch{
			Start: b.pos,
			End:   end,
			Node:  newLeaf(&FootReference{Target: target}, s.text[b.pos:end], Position{}),
		})
		s.afterBracketEmit(b)
		return end
	} else {
		node = newParent(&PendingReference{
			Label: label,
			Raw:   s.text[b.pos:end],
			Style: style,
			Image: b.image,
		}, nil, Position{})
	}
	s.emitBracket(&SpanMatch{
		Start:      b.pos,
		End:        end,
		InnerStart: innerStart,
		InnerEnd:   i,
		ParseInner: true,
		Node:       node,
	}, b)
	return end
}

// footLabel reports whether the label names a defined footnote.
func (s *nestedScanner) footLabel(label string) (string, bool) {
	if !strings.HasPrefix(label, "^") {
		return "", false
	}
	target := label[1:]
	if !footRefLabelPattern.MatchString(target) {
		return "", false
	}
	_, ok := s.pc.footDefs[target]
	return target, ok
}

func (s *nestedScanner) emitBracket(m *SpanMatch, b spanBracket) {
	s.matches = append(s.matches, m)
	s.afterBracketEmit(b)
}

// afterBracketEmit deactivates earlier link openers (links do not nest)
// and discards delimiters opened inside the consumed region.
func (s *nestedScanner) afterBracketEmit(b spanBracket) {
	if !b.image {
		for idx := range s.brackets {
			if !s.brackets[idx].image {
				s.brackets[idx].active = false
			}
		}
	}
	s.delims = s.delims[:b.delimBottom]
}

var footRefLabelPattern = regexp.MustCompile(`^[a-zA-Z0-9#@]+$`)

// matchRefLabel scans a [label] whose opening bracket is at i.
// Nested brackets are not allowed in a reference label.
func matchRefLabel(text string, i int) (label string, end int, ok bool) {
	for j := i + 1; j < len(text); j++ {
		switch text[j] {
		case '\\':
			j++
		case '[':
			return "", 0, false
		case ']':
			return text[i+1 : j], j + 1, true
		}
	}
	return "", 0, false
}

// matchSpanLinkSuffix scans `(dest "title")` with the paren at i.
func matchSpanLinkSuffix(text string, i int) (dest, title string, end int, ok bool) {
	j := shiftWhitespace(text, i+1)
	dest, j, ok = matchSpanLinkDest(text, j)
	if !ok {
		return "", "", 0, false
	}
	afterDest := j
	j = shiftWhitespace(text, j)
	if j < len(text) && (text[j] == '"' || text[j] == '\'' || text[j] == '(') {
		if j == afterDest {
			// The title needs whitespace after the destination.
			return "", "", 0, false
		}
		title, j, ok = matchSpanLinkTitle(text, j)
		if !ok {
			return "", "", 0, false
		}
		j = shiftWhitespace(text, j)
	}
	if j >= len(text) || text[j] != ')' {
		return "", "", 0, false
	}
	return dest, title, j + 1, true
}

func matchSpanLinkDest(text string, i int) (dest string, end int, ok bool) {
	if i < len(text) && text[i] == '<' {
		for j := i + 1; j < len(text); j++ {
			switch text[j] {
			case '\\':
				j++
			case '\n', '<':
				return "", 0, false
			case '>':
				return text[i+1 : j], j + 1, true
			}
		}
		return "", 0, false
	}
	count := 0
	j := i
scan:
	for ; j < len(text); j++ {
		switch c := text[j]; {
		case c == '\\':
			j++
		case c == '(':
			count++
		case c == ')':
			if count == 0 {
				break scan
			}
			count--
		case isDefWhitespace(c):
			break scan
		case c < 32 || c == 127:
			return "", 0, false
		}
	}
	if count != 0 {
		return "", 0, false
	}
	return text[i:j], j, true
}

func matchSpanLinkTitle(text string, i int) (title string, end int, ok bool) {
	closing := text[i]
	if closing == '(' {
		closing = ')'
	}
	for j := i + 1; j < len(text); j++ {
		switch text[j] {
		case '\\':
			j++
		case closing:
			return text[i+1 : j], j + 1, true
		}
	}
	return "", 0, false
}

func runLength(text string, i int, c byte) int {
	j := i
	for j < len(text) && text[j] == c {
		j++
	}
	return j - i
}

// emphasisFlags determines whether the delimiter run at [start, end)
// can open and/or close emphasis, per the flanking rules.
func emphasisFlags(text string, start, end int) uint8 {
	var flags uint8
	prevChar := ' '
	if start > 0 {
		prevChar, _ = utf8.DecodeLastRuneInString(text[:start])
	}
	nextChar := ' '
	if end < len(text) {
		nextChar, _ = utf8.DecodeRuneInString(text[end:])
	}
	leftFlanking := !isUnicodeWhitespace(nextChar) &&
		(!isUnicodePunctuation(nextChar) || isUnicodeWhitespace(prevChar) || isUnicodePunctuation(prevChar))
	rightFlanking := !isUnicodeWhitespace(prevChar) &&
		(!isUnicodePunctuation(prevChar) || isUnicodeWhitespace(nextChar) || isUnicodePunctuation(nextChar))
	if leftFlanking && (text[start] == '*' || !rightFlanking || isUnicodePunctuation(prevChar)) {
		flags |= openerFlag
	}
	if rightFlanking && (text[start] == '*' || !leftFlanking || isUnicodePunctuation(nextChar)) {
		flags |= closerFlag
	}
	return flags
}

const emphasisOpenersBottomCount = 7

func (d *spanDelimiter) openersBottomIndex() int {
	if d.typ == spanDelimiterUnderscore {
		return 6
	}
	if d.flags&openerFlag == 0 {
		return d.n % 3
	}
	return 3 + d.n%3
}

func isEmphasisDelimiterMatch(open, close *spanDelimiter) bool {
	return open.typ == close.typ &&
		open.flags&openerFlag != 0 &&
		close.flags&closerFlag != 0 &&
		// The multiple-of-three restriction on runs that can both
		// open and close.
		(open.flags&closerFlag == 0 && close.flags&openerFlag == 0 ||
			(open.n+close.n)%3 != 0 ||
			open.n%3 == 0 && close.n%3 == 0)
}

// processEmphasis pairs delimiter runs bottom-up into emphasis and
// strong matches. Outer pairings may enclose earlier emitted matches;
// overlap resolution keeps the outermost and recursion over its inner
// text rediscovers the rest.
func (s *nestedScanner) processEmphasis(stackBottom int) {
	currentPosition := stackBottom
	var openersBottom [emphasisOpenersBottomCount]int
	for i := range openersBottom {
		openersBottom[i] = stackBottom
	}
closerLoop:
	for {
		// Find the first potential closer.
		for {
			if currentPosition >= len(s.delims) {
				break closerLoop
			}
			if s.delims[currentPosition].flags&closerFlag != 0 {
				break
			}
			currentPosition++
		}

		// Look back in the stack for the first matching potential opener,
		// staying above the bottom recorded for this delimiter class.
		openerIndex := currentPosition - 1
		obi := s.delims[currentPosition].openersBottomIndex()
		for openerIndex >= openersBottom[obi] &&
			!isEmphasisDelimiterMatch(s.delims[openerIndex], s.delims[currentPosition]) {
			openerIndex--
		}
		if openerIndex >= openersBottom[obi] {
			opener := s.delims[openerIndex]
			closer := s.delims[currentPosition]
			use := 1
			var data NodeData = &Emphasis{}
			if opener.end-opener.start >= 2 && closer.end-closer.start >= 2 {
				use = 2
				data = &Strong{}
			}
			s.matches = append(s.matches, &SpanMatch{
				Start:      opener.end - use,
				End:        closer.start + use,
				InnerStart: opener.end,
				InnerEnd:   closer.start,
				ParseInner: true,
				Node:       newParent(data, nil, Position{}),
			})
			opener.end -= use
			closer.start += use

			// Remove delimiters between the opener and closer.
			s.delims = append(s.delims[:openerIndex+1], s.delims[currentPosition:]...)
			currentPosition = openerIndex + 1
			if opener.start == opener.end {
				s.delims = append(s.delims[:openerIndex], s.delims[openerIndex+1:]...)
				currentPosition--
			}
			if closer.start == closer.end {
				s.delims = append(s.delims[:currentPosition], s.delims[currentPosition+1:]...)
			}
		} else {
			// No opener exists for this class of closer up to here;
			// bound future searches.
			openersBottom[obi] = currentPosition
			if s.delims[currentPosition].flags&openerFlag == 0 {
				s.delims = append(s.delims[:currentPosition], s.delims[currentPosition+1:]...)
			} else {
				currentPosition++
			}
		}
	}
	s.delims = s.delims[:stackBottom]
}

func isUnicodeWhitespace(c rune) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' ||
		unicode.Is(unicode.Zs, c)
}

func isUnicodePunctuation(c rune) bool {
	return unicode.IsPunct(c) || unicode.IsSymbol(c)
}

const (
	htmlTagNamePattern    = `[A-Za-z][A-Za-z0-9-]*`
	htmlAttributesPattern = `(?:\s+[A-Za-z_:][A-Za-z0-9_.:-]*` +
		`(?:\s*=\s*(?:[^ "'=<>` + "`" + `]+|'[^']*?'|"[^"]*?"))?)*`
	openTagPattern    = `<` + htmlTagNamePattern + htmlAttributesPattern + `\s*/?>`
	closingTagPattern = `</` + htmlTagNamePattern + `\s*>`
)

var (
	autoLinkPattern = regexp.MustCompile(
		`^<([A-Za-z][A-Za-z0-9+.-]{1,31}:[^ <>]*?` +
			`|[A-Za-z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[A-Za-z0-9]` +
			`(?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?` +
			`(?:\.[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?)*)>`)
	spanOpenTagPattern    = regexp.MustCompile(`(?s)^` + openTagPattern)
	spanClosingTagPattern = regexp.MustCompile(`(?s)^` + closingTagPattern)
	spanInstructionEnd    = "?>"
)

// matchHTMLSpan matches one raw HTML construct at the start of s,
// returning its length, or 0 for no match.
func matchHTMLSpan(s string) int {
	if m := spanOpenTagPattern.FindString(s); m != "" {
		return len(m)
	}
	if m := spanClosingTagPattern.FindString(s); m != "" {
		return len(m)
	}
	if strings.HasPrefix(s, "<!--") {
		return matchHTMLComment(s)
	}
	if strings.HasPrefix(s, "<?") {
		// The instruction body must be non-empty.
		if idx := strings.Index(s[2:], spanInstructionEnd); idx >= 1 {
			return 2 + idx + 2
		}
		return 0
	}
	if strings.HasPrefix(s, "<![CDATA[") {
		if idx := strings.Index(s[9:], "]]>"); idx >= 0 {
			return 9 + idx + 3
		}
		return 0
	}
	if strings.HasPrefix(s, "<!") && len(s) > 2 && s[2] >= 'A' && s[2] <= 'Z' {
		if idx := strings.IndexByte(s[3:], '>'); idx >= 0 {
			return 3 + idx + 1
		}
		return 0
	}
	return 0
}

// matchHTMLComment matches `<!--comment-->`: the comment text must be
// non-empty, must not begin with > or ->, and its first -- must be
// the terminator's.
func matchHTMLComment(s string) int {
	inner := s[4:]
	if strings.HasPrefix(inner, ">") || strings.HasPrefix(inner, "->") {
		return 0
	}
	idx := strings.Index(inner, "--")
	if idx < 1 || !strings.HasPrefix(inner[idx:], "-->") {
		return 0
	}
	return 4 + idx + 3
}
