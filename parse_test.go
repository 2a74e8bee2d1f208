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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// sketch flattens a tree into a compact single-line form for comparison:
// leaf nodes show their kind and content, parents bracket their children.
func sketch(n *Node) string {
	if len(n.Children) == 0 {
		if n.Content != "" {
			return fmt.Sprintf("%s(%q)", n.Kind(), n.Content)
		}
		return n.Kind()
	}
	parts := make([]string, len(n.Children))
	for i, c := range n.Children {
		parts[i] = sketch(c)
	}
	return n.Kind() + "[" + strings.Join(parts, " ") + "]"
}

func mustParse(t *testing.T, source string) *Node {
	t.Helper()
	doc, err := Parse([]byte(source))
	if err != nil {
		t.Fatalf("Parse(%q): %v", source, err)
	}
	return doc
}

func TestParseBlocks(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{
			"# Hello *world*\n",
			`Document[Heading[RawText("Hello ") Emphasis[RawText("world")]]]`,
		},
		{
			"### Closed ###\n",
			`Document[Heading[RawText("Closed")]]`,
		},
		{
			"foo\nbar\n",
			`Document[Paragraph[RawText("foo") LineBreak RawText("bar")]]`,
		},
		{
			"foo\n\nbar\n",
			`Document[Paragraph[RawText("foo")] Paragraph[RawText("bar")]]`,
		},
		{
			"***\n",
			`Document[ThematicBreak]`,
		},
		{
			"> foo\n> bar\n",
			`Document[Quote[Paragraph[RawText("foo") LineBreak RawText("bar")]]]`,
		},
		{
			"> foo\nbar\n",
			`Document[Quote[Paragraph[RawText("foo") LineBreak RawText("bar")]]]`,
		},
		{
			"```python\nprint(1)\n```\n",
			`Document[CodeFence[RawText("print(1)\n")]]`,
		},
		{
			"    indented\n",
			`Document[BlockCode[RawText("indented\n")]]`,
		},
		{
			"- a\n- b\n",
			`Document[List[ListItem[Paragraph[RawText("a")]] ListItem[Paragraph[RawText("b")]]]]`,
		},
		{
			"<div>\nraw\n</div>\n",
			`Document[HTMLBlock("<div>\nraw\n</div>")]`,
		},
	}
	for _, test := range tests {
		doc := mustParse(t, test.source)
		if got := sketch(doc); got != test.want {
			t.Errorf("Parse(%q) tree:\n got %s\nwant %s", test.source, got, test.want)
		}
	}
}

func TestParseSetextHeading(t *testing.T) {
	doc := mustParse(t, "foo\nbar\n---\n")
	if len(doc.Children) != 1 {
		t.Fatalf("got %d blocks; want 1", len(doc.Children))
	}
	h := doc.Children[0]
	data, ok := h.Data.(*SetextHeading)
	if !ok {
		t.Fatalf("block is %s; want SetextHeading", h.Kind())
	}
	if data.Level != 2 {
		t.Errorf("Level = %d; want 2", data.Level)
	}
	want := `SetextHeading[RawText("foo") LineBreak RawText("bar")]`
	if got := sketch(h); got != want {
		t.Errorf("tree:\n got %s\nwant %s", got, want)
	}

	doc = mustParse(t, "title\n===\n")
	if data := doc.Children[0].Data.(*SetextHeading); data.Level != 1 {
		t.Errorf("Level = %d; want 1", data.Level)
	}
}

func TestParseSetextNotInsideQuote(t *testing.T) {
	// The underline form does not apply to lazy continuation lines.
	doc := mustParse(t, "> foo\n> ---\n")
	q := doc.Children[0]
	if q.Kind() != "Quote" {
		t.Fatalf("block is %s; want Quote", q.Kind())
	}
}

func TestParseListDetails(t *testing.T) {
	t.Run("Ordered", func(t *testing.T) {
		doc := mustParse(t, "3. a\n4. b\n")
		data := doc.Children[0].Data.(*List)
		if !data.Ordered || data.Start != 3 {
			t.Errorf("List = %+v; want Ordered with Start 3", data)
		}
		if data.Loose {
			t.Error("list is loose; want tight")
		}
	})
	t.Run("Loose", func(t *testing.T) {
		doc := mustParse(t, "- a\n\n- b\n")
		data := doc.Children[0].Data.(*List)
		if !data.Loose {
			t.Error("list is tight; want loose")
		}
	})
	t.Run("Nested", func(t *testing.T) {
		doc := mustParse(t, "- a\n  - b\n")
		want := `List[ListItem[Paragraph[RawText("a")] List[ListItem[Paragraph[RawText("b")]]]]]`
		if got := sketch(doc.Children[0]); got != want {
			t.Errorf("tree:\n got %s\nwant %s", got, want)
		}
	})
	t.Run("MarkerChange", func(t *testing.T) {
		// Switching bullet style starts a new list.
		doc := mustParse(t, "- a\n* b\n")
		if len(doc.Children) != 2 {
			t.Fatalf("got %d blocks; want 2", len(doc.Children))
		}
		for _, child := range doc.Children {
			if child.Kind() != "List" {
				t.Errorf("block is %s; want List", child.Kind())
			}
		}
	})
}

func TestParseLinkDefinition(t *testing.T) {
	doc := mustParse(t, "[a]: url1\n[a]: url2\n\n[a]\n")

	// The first definition wins for duplicate labels.
	data := doc.Data.(*Document)
	def, ok := data.LinkDefinitions["a"]
	if !ok {
		t.Fatal("no definition for label a")
	}
	if def.Destination != "url1" {
		t.Errorf("Destination = %q; want %q", def.Destination, "url1")
	}

	want := `Document[Paragraph[Link[RawText("a")]]]`
	if got := sketch(doc); got != want {
		t.Errorf("tree:\n got %s\nwant %s", got, want)
	}
	link := doc.Children[0].Children[0].Data.(*Link)
	if link.Target != "url1" {
		t.Errorf("Target = %q; want %q", link.Target, "url1")
	}
}

func TestParseLinkDefinitionAngleDest(t *testing.T) {
	// An angle-bracketed destination may contain spaces.
	doc := mustParse(t, "[a]: </my page> \"t\"\n\n[a]\n")
	data := doc.Data.(*Document)
	def, ok := data.LinkDefinitions["a"]
	if !ok {
		t.Fatal("no definition for label a")
	}
	if def.Destination != "/my page" {
		t.Errorf("Destination = %q; want %q", def.Destination, "/my page")
	}
	want := `Document[Paragraph[Link[RawText("a")]]]`
	if got := sketch(doc); got != want {
		t.Errorf("tree:\n got %s\nwant %s", got, want)
	}
}

func TestParseDefinitionBeforeUse(t *testing.T) {
	// Definitions register during the block pass,
	// so a reference earlier in the document still resolves.
	doc := mustParse(t, "[foo][ref]\n\n[ref]: /url \"t\"\n")
	want := `Document[Paragraph[Link[RawText("foo")]]]`
	if got := sketch(doc); got != want {
		t.Fatalf("tree:\n got %s\nwant %s", got, want)
	}
	link := doc.Children[0].Children[0].Data.(*Link)
	if link.Target != "/url" || link.Title != "t" {
		t.Errorf("Link = %+v; want Target /url, Title t", link)
	}
}

func TestParseUndefinedReference(t *testing.T) {
	// A reference with no matching definition stays literal text.
	doc := mustParse(t, "[missing][nope]\n")
	want := `Document[Paragraph[RawText("[missing][nope]")]]`
	if got := sketch(doc); got != want {
		t.Errorf("tree:\n got %s\nwant %s", got, want)
	}
}

func TestParseFootnoteOrder(t *testing.T) {
	doc := mustParse(t, "x[^b] y[^a]\n\n[^a]: A\n[^b]: B\n")
	data := doc.Data.(*Document)
	if diff := cmp.Diff([]string{"b", "a"}, data.FootnoteOrder); diff != "" {
		t.Errorf("FootnoteOrder (-want +got):\n%s", diff)
	}
	for _, label := range []string{"a", "b"} {
		if _, ok := data.Footnotes[label]; !ok {
			t.Errorf("no footnote definition for %q", label)
		}
	}
	want := `Document[Paragraph[RawText("x") FootReference("[^b]") RawText(" y") FootReference("[^a]")]]`
	if got := sketch(doc); got != want {
		t.Errorf("tree:\n got %s\nwant %s", got, want)
	}
}

func TestParseFrontMatter(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		source := "---\ntitle: Test\n---\n# Hi\n"
		doc, err := ParseOptions{FrontMatter: true}.Parse([]byte(source))
		if err != nil {
			t.Fatal(err)
		}
		data := doc.Data.(*Document)
		if data.FrontMatter == nil {
			t.Fatal("FrontMatter is nil")
		}
		meta, err := data.FrontMatter.Data.(*FrontMatter).Metadata()
		if err != nil {
			t.Fatal(err)
		}
		if meta["title"] != "Test" {
			t.Errorf("title = %v; want Test", meta["title"])
		}
		want := `Document[Heading[RawText("Hi")]]`
		if got := sketch(doc); got != want {
			t.Errorf("tree:\n got %s\nwant %s", got, want)
		}
	})
	t.Run("MissingCloseFence", func(t *testing.T) {
		source := "---\ntitle: Test\n"
		doc, err := ParseOptions{FrontMatter: true}.Parse([]byte(source))
		if err != nil {
			t.Fatal(err)
		}
		data := doc.Data.(*Document)
		if data.FrontMatter != nil {
			t.Error("unterminated block parsed as front matter")
		}
		if doc.Children[0].Kind() != "ThematicBreak" {
			t.Errorf("first block is %s; want ThematicBreak", doc.Children[0].Kind())
		}
	})
	t.Run("Disabled", func(t *testing.T) {
		doc := mustParse(t, "---\ntitle: Test\n---\n")
		if doc.Data.(*Document).FrontMatter != nil {
			t.Error("front matter parsed without the option")
		}
	})
	t.Run("BadYAML", func(t *testing.T) {
		source := "---\n\t: [\n---\n"
		doc, err := ParseOptions{FrontMatter: true}.Parse([]byte(source))
		if err != nil {
			t.Fatal(err)
		}
		fm := doc.Data.(*Document).FrontMatter
		if fm == nil {
			t.Fatal("FrontMatter is nil")
		}
		if _, err := fm.Data.(*FrontMatter).Metadata(); err == nil {
			t.Error("Metadata() succeeded on malformed YAML")
		}
	})
}

func TestParseKeepDefinitions(t *testing.T) {
	source := "[a]: /url\n"
	doc := mustParse(t, source)
	if len(doc.Children) != 0 {
		t.Errorf("definition node kept without the option: %s", sketch(doc))
	}

	doc2, err := ParseOptions{KeepDefinitions: true}.Parse([]byte(source))
	if err != nil {
		t.Fatal(err)
	}
	if len(doc2.Children) != 1 || doc2.Children[0].Kind() != "LinkDefinition" {
		t.Errorf("tree with KeepDefinitions: %s", sketch(doc2))
	}
}

func TestParseTable(t *testing.T) {
	source := "| a | b |\n| :-: | --: |\n| c | d |\n"
	doc := mustParse(t, source)
	table := doc.Children[0]
	data, ok := table.Data.(*Table)
	if !ok {
		t.Fatalf("block is %s; want Table", table.Kind())
	}
	if diff := cmp.Diff([]CellAlign{AlignCenter, AlignRight}, data.ColumnAlign); diff != "" {
		t.Errorf("ColumnAlign (-want +got):\n%s", diff)
	}
	wantHeader := `TableRow[TableCell[RawText("a")] TableCell[RawText("b")]]`
	if got := sketch(data.Header); got != wantHeader {
		t.Errorf("header:\n got %s\nwant %s", got, wantHeader)
	}
	wantBody := `Table[TableRow[TableCell[RawText("c")] TableCell[RawText("d")]]]`
	if got := sketch(table); got != wantBody {
		t.Errorf("body:\n got %s\nwant %s", got, wantBody)
	}
}

func TestParseTableRequiresDelimiterRow(t *testing.T) {
	sources := []string{
		"| a | b |\n| c | d |\n",
		// A dash inside an ordinary cell does not make a delimiter row.
		"| a | b |\n| c-d | e |\n",
	}
	for _, source := range sources {
		doc := mustParse(t, source)
		if got := doc.Children[0].Kind(); got != "Paragraph" {
			t.Errorf("mustParse(%q) block is %s; want Paragraph", source, got)
		}
	}
}

// Concatenating the source text of every leaf reproduces the input,
// modulo block structure markers. At minimum, plain paragraphs survive
// round trips exactly.
func TestParseRoundTripText(t *testing.T) {
	sources := []string{
		"just plain text\n",
		"text with * stray asterisk\n",
		"underscore_inside_word\n",
		"a [ lone bracket\n",
		"unmatched ~~tilde\n",
	}
	for _, source := range sources {
		doc := mustParse(t, source)
		var sb strings.Builder
		Walk(doc, func(item WalkItem) bool {
			if len(item.Node.Children) == 0 {
				sb.WriteString(item.Node.Content)
			}
			return true
		})
		want := strings.TrimSuffix(source, "\n")
		if got := sb.String(); got != want {
			t.Errorf("Parse(%q) leaf text = %q; want %q", source, got, want)
		}
	}
}
