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
	"strings"
	"testing"
)

// spanSketch tokenizes one line of text with a fresh extended session.
func spanSketch(t *testing.T, text string) string {
	t.Helper()
	pc := NewParseContext(ExtendedBlockTokens(), ExtendedSpanTokens())
	nodes := TokenizeSpans(text, pc)
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = sketch(n)
	}
	return strings.Join(parts, " ")
}

func TestTokenizeSpans(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"plain", `RawText("plain")`},
		{"*em*", `Emphasis[RawText("em")]`},
		{"**strong**", `Strong[RawText("strong")]`},
		{"***both***", `Emphasis[Strong[RawText("both")]]`},
		{"*a* b **c**", `Emphasis[RawText("a")] RawText(" b ") Strong[RawText("c")]`},
		{"a_b_c", `RawText("a_b_c")`},
		{"`code`", `InlineCode[RawText("code")]`},
		{"`` a`b ``", `InlineCode[RawText("a` + "`" + `b")]`},
		{"` spaced   out `", `InlineCode[RawText("spaced out")]`},
		{"*not `mixed*`", `RawText("*not ") InlineCode[RawText("mixed*")]`},
		{`\*literal\*`, `EscapeSequence[RawText("*")] RawText("literal") EscapeSequence[RawText("*")]`},
		{"[text](url)", `Link[RawText("text")]`},
		{"![alt](img.png)", `Image[RawText("alt")]`},
		{"<https://example.com>", `AutoLink[RawText("https://example.com")]`},
		{"<b>x</b>", `HTMLSpan("<b>") RawText("x") HTMLSpan("</b>")`},
		{"<!-- c -->", `HTMLSpan("<!-- c -->")`},
		{"~~gone~~", `Strikethrough[RawText("gone")]`},
		{"~~*em*~~", `Strikethrough[Emphasis[RawText("em")]]`},
		{"$x+y$", `Math("$x+y$")`},
		{"$$x$$", `Math("$$x$$")`},
		{"tail$", `RawText("tail$")`},
	}
	for _, test := range tests {
		if got := spanSketch(t, test.text); got != test.want {
			t.Errorf("TokenizeSpans(%q):\n got %s\nwant %s", test.text, got, test.want)
		}
	}
}

func TestTokenizeSpansLinkDetails(t *testing.T) {
	pc := NewParseContext(ExtendedBlockTokens(), ExtendedSpanTokens())
	nodes := TokenizeSpans(`[text](/url "the title")`, pc)
	if len(nodes) != 1 {
		t.Fatalf("got %d spans; want 1", len(nodes))
	}
	link, ok := nodes[0].Data.(*Link)
	if !ok {
		t.Fatalf("span is %s; want Link", nodes[0].Kind())
	}
	if link.Target != "/url" || link.Title != "the title" {
		t.Errorf("Link = %+v; want Target /url, Title %q", link, "the title")
	}
}

func TestTokenizeSpansAngleDest(t *testing.T) {
	pc := NewParseContext(ExtendedBlockTokens(), ExtendedSpanTokens())
	nodes := TokenizeSpans("[a](<has space>)", pc)
	if len(nodes) != 1 {
		t.Fatalf("got %d spans; want 1", len(nodes))
	}
	link, ok := nodes[0].Data.(*Link)
	if !ok {
		t.Fatalf("span is %s; want Link", nodes[0].Kind())
	}
	if link.Target != "has space" {
		t.Errorf("Target = %q; want %q", link.Target, "has space")
	}
}

func TestTokenizeSpansMailto(t *testing.T) {
	pc := NewParseContext(ExtendedBlockTokens(), ExtendedSpanTokens())
	nodes := TokenizeSpans("<user@example.com>", pc)
	if len(nodes) != 1 {
		t.Fatalf("got %d spans; want 1", len(nodes))
	}
	data, ok := nodes[0].Data.(*AutoLink)
	if !ok {
		t.Fatalf("span is %s; want AutoLink", nodes[0].Kind())
	}
	if !data.Mailto {
		t.Error("Mailto = false; want true")
	}
}

func TestTokenizeSpansLineBreaks(t *testing.T) {
	tests := []struct {
		text     string
		wantSoft bool
	}{
		{"a\nb", true},
		{"a  \nb", false},
		{"a\\\nb", false},
	}
	for _, test := range tests {
		pc := NewParseContext(ExtendedBlockTokens(), ExtendedSpanTokens())
		nodes := TokenizeSpans(test.text, pc)
		var br *LineBreak
		for _, n := range nodes {
			if data, ok := n.Data.(*LineBreak); ok {
				br = data
			}
		}
		if br == nil {
			t.Errorf("TokenizeSpans(%q): no line break", test.text)
			continue
		}
		if br.Soft != test.wantSoft {
			t.Errorf("TokenizeSpans(%q): Soft = %t; want %t", test.text, br.Soft, test.wantSoft)
		}
	}
}

// Delimiters of unregistered kinds stay plain text
// without hiding the emphasis inside them.
func TestTokenizeSpansCommonMarkOnly(t *testing.T) {
	pc := NewParseContext(CommonMarkBlockTokens(), CommonMarkSpanTokens())
	nodes := TokenizeSpans("~~*em*~~", pc)
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = sketch(n)
	}
	got := strings.Join(parts, " ")
	want := `RawText("~~") Emphasis[RawText("em")] RawText("~~")`
	if got != want {
		t.Errorf("TokenizeSpans:\n got %s\nwant %s", got, want)
	}
}

// Every byte of input is covered by exactly one accepted span,
// so concatenating match extents reconstructs the text.
func TestNewParseContextDefaultKinds(t *testing.T) {
	// Nil kind lists select the extended dialect, matching Parse.
	pc := NewParseContext(nil, nil)
	nodes := TokenizeSpans("~~gone~~", pc)
	if len(nodes) != 1 {
		t.Fatalf("TokenizeSpans with default kinds = %d nodes; want 1", len(nodes))
	}
	if got := nodes[0].Kind(); got != "Strikethrough" {
		t.Errorf("TokenizeSpans with default kinds yielded %s; want Strikethrough", got)
	}
}

func TestTokenizeSpansCoverage(t *testing.T) {
	// Restricted to span kinds that keep their full source extent in
	// leaf content, so concatenating the output reproduces the input:
	// every byte lands in exactly one match or RawText gap.
	texts := []string{
		"a $x+y$ b <b>c</b> d",
		"$first$ middle $second$",
		"<!-- note -->tail",
		"*unclosed and ` stray",
		"plain text only",
	}
	for _, text := range texts {
		pc := NewParseContext(ExtendedBlockTokens(), ExtendedSpanTokens())
		var got strings.Builder
		for _, n := range TokenizeSpans(text, pc) {
			if len(n.Children) > 0 {
				t.Fatalf("TokenizeSpans(%q) yielded container %s; want leaves only", text, n.Kind())
			}
			got.WriteString(n.Content)
		}
		if got.String() != text {
			t.Errorf("TokenizeSpans(%q) reassembles to %q", text, got.String())
		}
	}
}
