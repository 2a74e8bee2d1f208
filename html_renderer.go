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
	"html"
	"io"
	"strconv"
	"strings"

	"go4.org/bytereplacer"
)

// An HTMLRenderer converts a parsed document into HTML.
//
// Raw HTML in the source passes through unchanged, which can
// introduce cross-site scripting vulnerabilities with untrusted
// inputs; send the output through an HTML sanitizer in that case.
type HTMLRenderer struct {
	// Standalone wraps the output in a minimal HTML page.
	Standalone bool
	// CSS is inline style text for the standalone page header.
	CSS string
}

// RenderHTML writes doc to w as HTML with default options.
func RenderHTML(w io.Writer, doc *Node) error {
	return (&HTMLRenderer{}).Render(w, doc)
}

// Render writes doc to w as HTML.
// It returns the first write error encountered, if any.
func (hr *HTMLRenderer) Render(w io.Writer, doc *Node) error {
	if _, err := io.WriteString(w, hr.RenderString(doc)); err != nil {
		return fmt.Errorf("render markdown to html: %w", err)
	}
	return nil
}

// RenderString renders doc to an HTML string.
func (hr *HTMLRenderer) RenderString(doc *Node) string {
	s := &htmlRenderState{
		opts:         hr,
		suppressPTag: []bool{false},
	}
	s.r = &Renderer{Funcs: map[string]RenderFunc{
		"Document":       s.document,
		"Heading":        s.heading,
		"SetextHeading":  s.heading,
		"Quote":          s.quote,
		"Paragraph":      s.paragraph,
		"BlockCode":      s.codeBlock,
		"CodeFence":      s.codeBlock,
		"ThematicBreak":  s.thematicBreak,
		"HTMLBlock":      s.rawContent,
		"List":           s.list,
		"ListItem":       s.listItem,
		"Table":          s.table,
		"TableRow":       s.bodyTableRow,
		"Strong":         s.strong,
		"Emphasis":       s.emphasis,
		"InlineCode":     s.inlineCode,
		"Strikethrough":  s.strikethrough,
		"Math":           s.math,
		"Link":           s.link,
		"Image":          s.image,
		"AutoLink":       s.autoLink,
		"RawText":        s.rawText,
		"LineBreak":      s.lineBreak,
		"HTMLSpan":       s.rawContent,
		"FootReference":  s.footReference,
		"LinkDefinition": s.blank,
		"Footnote":       s.blank,
		"FrontMatter":    s.blank,
	}}
	return s.r.Render(doc)
}

type htmlRenderState struct {
	opts *HTMLRenderer
	r    *Renderer

	// suppressPTag tracks tight-list nesting: inside a tight list,
	// item paragraphs render without <p> tags.
	suppressPTag []bool

	// footOrder and footnotes come from the document being rendered.
	footOrder []string
	footnotes map[string]*Node
}

func (s *htmlRenderState) document(r *Renderer, n *Node) string {
	doc, ok := n.Data.(*Document)
	if !ok {
		throwf("html renderer: root node is %s, not Document", n.Kind())
	}
	s.footOrder = doc.FootnoteOrder
	s.footnotes = doc.Footnotes

	var parts []string
	for _, child := range n.Children {
		parts = append(parts, r.Render(child))
	}
	body := strings.Join(parts, "\n")
	if body != "" {
		body += "\n"
	}
	if len(s.footOrder) > 0 {
		body += s.footnoteSection(r)
	}
	if !s.opts.Standalone {
		return body
	}
	return minimalHTMLPage(body, s.opts.CSS)
}

func (s *htmlRenderState) footnoteSection(r *Renderer) string {
	var sb strings.Builder
	sb.WriteString("<hr class=\"footnotes-sep\">\n")
	sb.WriteString("<section class=\"footnotes\">\n")
	sb.WriteString("<ol class=\"footnotes-list\">\n")
	for i, target := range s.footOrder {
		def := s.footnotes[target]
		fmt.Fprintf(&sb, "<li id=\"fn%d\" class=\"footnote-item\">\n", i+1)
		var parts []string
		for _, child := range def.Children {
			parts = append(parts, r.Render(child))
		}
		sb.WriteString(strings.Join(parts, "\n"))
		sb.WriteString("\n</li>\n")
	}
	sb.WriteString("</ol>\n")
	sb.WriteString("</section>\n")
	return sb.String()
}

func (s *htmlRenderState) heading(r *Renderer, n *Node) string {
	var level int
	switch data := n.Data.(type) {
	case *Heading:
		level = data.Level
	case *SetextHeading:
		level = data.Level
	}
	return fmt.Sprintf("<h%d>%s</h%d>", level, r.RenderChildren(n), level)
}

func (s *htmlRenderState) quote(r *Renderer, n *Node) string {
	elements := []string{"<blockquote>"}
	s.suppressPTag = append(s.suppressPTag, false)
	for _, child := range n.Children {
		elements = append(elements, r.Render(child))
	}
	s.suppressPTag = s.suppressPTag[:len(s.suppressPTag)-1]
	elements = append(elements, "</blockquote>")
	return strings.Join(elements, "\n")
}

func (s *htmlRenderState) paragraph(r *Renderer, n *Node) string {
	if s.suppressPTag[len(s.suppressPTag)-1] {
		return r.RenderChildren(n)
	}
	return "<p>" + r.RenderChildren(n) + "</p>"
}

func (s *htmlRenderState) codeBlock(r *Renderer, n *Node) string {
	attr := ""
	if data, ok := n.Data.(*CodeFence); ok && data.Language != "" {
		attr = " class=\"language-" + escapeHTML(data.Language) + "\""
	}
	inner := html.EscapeString(n.Children[0].Content)
	return "<pre><code" + attr + ">" + inner + "</code></pre>"
}

func (s *htmlRenderState) list(r *Renderer, n *Node) string {
	data := n.Data.(*List)
	tag, attr := "ul", ""
	if data.Ordered {
		tag = "ol"
		if data.Start != 1 {
			attr = " start=\"" + strconv.Itoa(data.Start) + "\""
		}
	}
	s.suppressPTag = append(s.suppressPTag, !data.Loose)
	var items []string
	for _, child := range n.Children {
		items = append(items, r.Render(child))
	}
	s.suppressPTag = s.suppressPTag[:len(s.suppressPTag)-1]
	return "<" + tag + attr + ">\n" + strings.Join(items, "\n") + "\n</" + tag + ">"
}

func (s *htmlRenderState) listItem(r *Renderer, n *Node) string {
	if len(n.Children) == 0 {
		return "<li></li>"
	}
	var parts []string
	for _, child := range n.Children {
		parts = append(parts, r.Render(child))
	}
	inner := strings.Join(parts, "\n")
	before, after := "\n", "\n"
	if s.suppressPTag[len(s.suppressPTag)-1] {
		if n.Children[0].Kind() == "Paragraph" {
			before = ""
		}
		if n.Children[len(n.Children)-1].Kind() == "Paragraph" {
			after = ""
		}
	}
	return "<li>" + before + inner + after + "</li>"
}

func (s *htmlRenderState) table(r *Renderer, n *Node) string {
	data := n.Data.(*Table)
	head := ""
	if data.Header != nil {
		head = "<thead>\n" + s.tableRow(r, data.Header, true) + "</thead>\n"
	}
	var rows strings.Builder
	for _, row := range n.Children {
		rows.WriteString(s.tableRow(r, row, false))
	}
	body := "<tbody>\n" + rows.String() + "</tbody>\n"
	return "<table>\n" + head + body + "</table>"
}

func (s *htmlRenderState) bodyTableRow(r *Renderer, n *Node) string {
	return s.tableRow(r, n, false)
}

func (s *htmlRenderState) tableRow(r *Renderer, n *Node, header bool) string {
	var sb strings.Builder
	sb.WriteString("<tr>\n")
	for _, cell := range n.Children {
		sb.WriteString(s.tableCell(r, cell, header))
	}
	sb.WriteString("</tr>\n")
	return sb.String()
}

func (s *htmlRenderState) tableCell(r *Renderer, n *Node, header bool) string {
	tag := "td"
	if header {
		tag = "th"
	}
	align := "left"
	switch n.Data.(*TableCell).Align {
	case AlignCenter:
		align = "center"
	case AlignRight:
		align = "right"
	}
	return "<" + tag + " align=\"" + align + "\">" + r.RenderChildren(n) + "</" + tag + ">\n"
}

func (s *htmlRenderState) thematicBreak(r *Renderer, n *Node) string {
	return "<hr />"
}

func (s *htmlRenderState) strong(r *Renderer, n *Node) string {
	return "<strong>" + r.RenderChildren(n) + "</strong>"
}

func (s *htmlRenderState) emphasis(r *Renderer, n *Node) string {
	return "<em>" + r.RenderChildren(n) + "</em>"
}

func (s *htmlRenderState) strikethrough(r *Renderer, n *Node) string {
	return "<del>" + r.RenderChildren(n) + "</del>"
}

func (s *htmlRenderState) math(r *Renderer, n *Node) string {
	return escapeHTML(n.Content)
}

func (s *htmlRenderState) inlineCode(r *Renderer, n *Node) string {
	return "<code>" + html.EscapeString(n.Children[0].Content) + "</code>"
}

func (s *htmlRenderState) link(r *Renderer, n *Node) string {
	data := n.Data.(*Link)
	title := ""
	if data.Title != "" {
		title = " title=\"" + escapeHTML(data.Title) + "\""
	}
	return "<a href=\"" + escapeURL(data.Target) + "\"" + title + ">" +
		r.RenderChildren(n) + "</a>"
}

func (s *htmlRenderState) image(r *Renderer, n *Node) string {
	data := n.Data.(*Image)
	title := ""
	if data.Title != "" {
		title = " title=\"" + escapeHTML(data.Title) + "\""
	}
	return "<img src=\"" + escapeURL(data.Src) + "\" alt=\"" +
		renderPlain(n) + "\"" + title + " />"
}

func (s *htmlRenderState) autoLink(r *Renderer, n *Node) string {
	data := n.Data.(*AutoLink)
	target := escapeURL(data.Target)
	if data.Mailto {
		target = "mailto:" + data.Target
	}
	return "<a href=\"" + target + "\">" + r.RenderChildren(n) + "</a>"
}

func (s *htmlRenderState) rawText(r *Renderer, n *Node) string {
	return escapeHTML(n.Content)
}

func (s *htmlRenderState) rawContent(r *Renderer, n *Node) string {
	return n.Content
}

func (s *htmlRenderState) lineBreak(r *Renderer, n *Node) string {
	if n.Data.(*LineBreak).Soft {
		return "\n"
	}
	return "<br />\n"
}

func (s *htmlRenderState) footReference(r *Renderer, n *Node) string {
	data := n.Data.(*FootReference)
	for i, target := range s.footOrder {
		if target == data.Target {
			return fmt.Sprintf("<sup class=\"footnote-ref\"><a href=\"#fn%d\">[%d]</a></sup>", i+1, i+1)
		}
	}
	return escapeHTML(n.Content)
}

func (s *htmlRenderState) blank(r *Renderer, n *Node) string {
	return ""
}

// renderPlain flattens a subtree to its escaped literal text,
// for img alt attributes.
func renderPlain(n *Node) string {
	if len(n.Children) == 0 {
		return escapeHTML(n.Content)
	}
	var sb strings.Builder
	for _, child := range n.Children {
		sb.WriteString(renderPlain(child))
	}
	return sb.String()
}

var htmlEscaper = bytereplacer.New(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// escapeHTML escapes text for element content and attribute values.
// Entities already present in the source are normalized first,
// and apostrophes stay literal.
func escapeHTML(raw string) string {
	return string(htmlEscaper.Replace([]byte(html.UnescapeString(raw))))
}

// escapeURL encodes a link destination for an href or src attribute.
func escapeURL(raw string) string {
	return html.EscapeString(NormalizeURI(html.UnescapeString(raw)))
}

// NormalizeURI percent-encodes any characters in a string
// that are not reserved or unreserved URI characters.
// Bytes of a multibyte rune encode individually,
// and existing %XX sequences pass through untouched.
func NormalizeURI(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch b := s[i]; {
		case b == '%' && i+2 < len(s) && isHexDigit(s[i+1]) && isHexDigit(s[i+2]):
			sb.WriteString(s[i : i+3])
			i += 2
		case b == '%':
			sb.WriteString("%25")
		case uriSafeByte(b):
			sb.WriteByte(b)
		default:
			const upperhex = "0123456789ABCDEF"
			sb.WriteByte('%')
			sb.WriteByte(upperhex[b>>4])
			sb.WriteByte(upperhex[b&0x0f])
		}
	}
	return sb.String()
}

// uriSafeByte reports whether b may appear in a destination unencoded.
// The punctuation set is the RFC 3986 reserved and unreserved characters.
func uriSafeByte(b byte) bool {
	if 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z' || '0' <= b && b <= '9' {
		return true
	}
	return strings.IndexByte(`;/?:@&=+$,-_.!~*'()#`, b) >= 0
}

func isHexDigit(c byte) bool {
	return 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F' || '0' <= c && c <= '9'
}

func minimalHTMLPage(body, css string) string {
	return "<!DOCTYPE html>\n" +
		"<html lang=\"en\">\n" +
		"<head>\n" +
		"<meta charset=\"utf-8\">\n" +
		"<title>Standalone HTML</title>\n" +
		"<style>\n" + css + "\n</style>\n" +
		"</head>\n" +
		"<body>\n" + body + "</body>\n" +
		"</html>\n"
}
