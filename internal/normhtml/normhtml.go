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

// Package normhtml normalizes HTML for test comparison,
// ignoring insignificant differences in whitespace,
// attribute order, and entity spelling.
package normhtml

import (
	"bytes"
	"regexp"
	"sort"
	"unicode"

	"go4.org/bytereplacer"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NormalizeHTML strips insignificant output differences from HTML.
func NormalizeHTML(b []byte) []byte {
	n := &normalizer{prev: html.StartTagToken}
	tok := html.NewTokenizerFragment(bytes.NewReader(b), "div")
	for {
		tt := tok.Next()
		switch tt {
		case html.ErrorToken:
			return n.out
		case html.TextToken:
			n.text(tok.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			n.openTag(tok)
		case html.EndTagToken:
			n.closeTag(tok)
		case html.CommentToken:
			n.out = append(n.out, tok.Raw()...)
		}
		n.prev = tt
		if tt == html.SelfClosingTagToken {
			n.prev = html.EndTagToken
		}
	}
}

type normalizer struct {
	out     []byte
	prev    html.TokenType
	prevTag string
	inPre   bool
}

var (
	whitespaceRE = regexp.MustCompile(`\s+`)

	textEscaper = bytereplacer.New(
		"&", "&amp;",
		`'`, "&apos;",
		`<`, "&lt;",
		`>`, "&gt;",
		`"`, "&quot;",
	)
)

func (n *normalizer) text(data []byte) {
	afterTag := n.prev == html.EndTagToken || n.prev == html.StartTagToken
	if afterTag && n.prevTag == "br" {
		data = bytes.TrimLeft(data, "\n")
	}
	if !n.inPre {
		data = whitespaceRE.ReplaceAll(data, []byte(" "))
		if afterTag && isBlockTag(n.prevTag) {
			if n.prev == html.StartTagToken {
				data = bytes.TrimLeftFunc(data, unicode.IsSpace)
			} else {
				data = bytes.TrimSpace(data)
			}
		}
	}
	n.out = append(n.out, textEscaper.Replace(bytes.Clone(data))...)
}

func (n *normalizer) openTag(tok *html.Tokenizer) {
	tagBytes, hasAttr := tok.TagName()
	tag := string(tagBytes)
	if tag == "pre" {
		n.inPre = true
	}
	if isBlockTag(tag) {
		n.out = bytes.TrimRightFunc(n.out, unicode.IsSpace)
	}
	n.out = append(n.out, '<')
	n.out = append(n.out, tag...)
	if hasAttr {
		n.out = append(n.out, sortedAttrs(tok)...)
	}
	n.out = append(n.out, '>')
	n.prevTag = tag
}

func (n *normalizer) closeTag(tok *html.Tokenizer) {
	tagBytes, _ := tok.TagName()
	tag := string(tagBytes)
	if tag == "pre" {
		n.inPre = false
	} else if isBlockTag(tag) {
		n.out = bytes.TrimRightFunc(n.out, unicode.IsSpace)
	}
	n.out = append(n.out, "</"...)
	n.out = append(n.out, tag...)
	n.out = append(n.out, '>')
	n.prevTag = tag
}

// sortedAttrs serializes the current tag's attributes in key order.
func sortedAttrs(tok *html.Tokenizer) []byte {
	type attribute struct {
		key   string
		value string
	}
	var attrs []attribute
	for {
		k, v, more := tok.TagAttr()
		attrs = append(attrs, attribute{string(k), string(v)})
		if !more {
			break
		}
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].key < attrs[j].key
	})
	var out []byte
	for _, attr := range attrs {
		out = append(out, ' ')
		out = append(out, attr.key...)
		if attr.value != "" {
			out = append(out, `="`...)
			out = append(out, html.EscapeString(attr.value)...)
			out = append(out, '"')
		}
	}
	return out
}

var blockTagAtoms = []atom.Atom{
	atom.Article, atom.Aside, atom.Blockquote, atom.Body, atom.Button,
	atom.Canvas, atom.Caption, atom.Col, atom.Colgroup, atom.Dd,
	atom.Div, atom.Dl, atom.Dt, atom.Embed, atom.Fieldset,
	atom.Figcaption, atom.Figure, atom.Footer, atom.Form, atom.H1,
	atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Header,
	atom.Hgroup, atom.Hr, atom.Iframe, atom.Li, atom.Map, atom.Object,
	atom.Ol, atom.Output, atom.P, atom.Pre, atom.Progress, atom.Script,
	atom.Section, atom.Style, atom.Table, atom.Tbody, atom.Td,
	atom.Textarea, atom.Tfoot, atom.Th, atom.Thead, atom.Tr, atom.Ul,
	atom.Video,
}

var blockTags = func() map[string]struct{} {
	m := make(map[string]struct{}, len(blockTagAtoms))
	for _, a := range blockTagAtoms {
		m[a.String()] = struct{}{}
	}
	return m
}()

func isBlockTag(tag string) bool {
	_, ok := blockTags[tag]
	return ok
}
