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
	"io"
	"strconv"
	"strings"

	"go4.org/bytereplacer"
)

// A LaTeXRenderer converts a parsed document into a LaTeX article.
// Package requirements accumulate while rendering and become
// \usepackage lines in the preamble.
type LaTeXRenderer struct{}

// RenderLaTeX writes doc to w as a LaTeX document.
func RenderLaTeX(w io.Writer, doc *Node) error {
	return (&LaTeXRenderer{}).Render(w, doc)
}

// Render writes doc to w as a LaTeX document.
// It returns the first write error encountered, if any.
func (lr *LaTeXRenderer) Render(w io.Writer, doc *Node) error {
	if _, err := io.WriteString(w, lr.RenderString(doc)); err != nil {
		return fmt.Errorf("render markdown to latex: %w", err)
	}
	return nil
}

// RenderString renders doc to a LaTeX string.
func (lr *LaTeXRenderer) RenderString(doc *Node) string {
	s := &latexRenderState{packages: make(map[string]string)}
	s.r = &Renderer{Funcs: map[string]RenderFunc{
		"Document":       s.document,
		"Heading":        s.heading,
		"SetextHeading":  s.heading,
		"Quote":          s.quote,
		"Paragraph":      s.paragraph,
		"BlockCode":      s.codeBlock,
		"CodeFence":      s.codeBlock,
		"ThematicBreak":  s.thematicBreak,
		"HTMLBlock":      s.verbatim,
		"List":           s.list,
		"ListItem":       s.listItem,
		"Table":          s.table,
		"TableRow":       s.tableRow,
		"TableCell":      s.tableCell,
		"Strong":         s.strong,
		"Emphasis":       s.emphasis,
		"InlineCode":     s.inlineCode,
		"Strikethrough":  s.strikethrough,
		"Math":           s.verbatim,
		"Link":           s.link,
		"Image":          s.image,
		"AutoLink":       s.autoLink,
		"RawText":        s.rawText,
		"LineBreak":      s.lineBreak,
		"HTMLSpan":       s.verbatim,
		"FootReference":  s.footReference,
		"LinkDefinition": s.blank,
		"Footnote":       s.blank,
		"FrontMatter":    s.blank,
	}}
	return s.r.Render(doc)
}

type latexRenderState struct {
	r *Renderer

	// packages maps package name to an option string such as "[normalem]".
	// packageOrder preserves first-use order for the preamble.
	packages     map[string]string
	packageOrder []string

	footOrder []string
}

func (s *latexRenderState) requirePackage(name, options string) {
	if _, ok := s.packages[name]; !ok {
		s.packages[name] = options
		s.packageOrder = append(s.packageOrder, name)
	}
}

func (s *latexRenderState) document(r *Renderer, n *Node) string {
	if doc, ok := n.Data.(*Document); ok {
		s.footOrder = doc.FootnoteOrder
	}
	inner := r.RenderChildren(n)
	var preamble strings.Builder
	for _, name := range s.packageOrder {
		preamble.WriteString("\\usepackage" + s.packages[name] + "{" + name + "}\n")
	}
	return "\\documentclass{article}\n" +
		preamble.String() +
		"\\begin{document}\n" +
		inner +
		"\\end{document}\n"
}

func (s *latexRenderState) heading(r *Renderer, n *Node) string {
	var level int
	switch data := n.Data.(type) {
	case *Heading:
		level = data.Level
	case *SetextHeading:
		level = data.Level
	}
	cmd := "subsubsection"
	switch level {
	case 1:
		cmd = "section"
	case 2:
		cmd = "subsection"
	}
	return "\n\\" + cmd + "{" + r.RenderChildren(n) + "}\n"
}

func (s *latexRenderState) quote(r *Renderer, n *Node) string {
	s.requirePackage("csquotes", "")
	return "\\begin{displayquote}\n" + r.RenderChildren(n) + "\\end{displayquote}\n"
}

func (s *latexRenderState) paragraph(r *Renderer, n *Node) string {
	return "\n" + r.RenderChildren(n) + "\n"
}

func (s *latexRenderState) codeBlock(r *Renderer, n *Node) string {
	s.requirePackage("listings", "")
	lang := ""
	switch data := n.Data.(type) {
	case *BlockCode:
		lang = data.Language
	case *CodeFence:
		lang = data.Language
	}
	return "\n\\begin{lstlisting}[language=" + lang + "]\n" +
		n.Children[0].Content +
		"\\end{lstlisting}\n"
}

func (s *latexRenderState) list(r *Renderer, n *Node) string {
	data := n.Data.(*List)
	tag := "itemize"
	if data.Ordered {
		tag = "enumerate"
	}
	inner := r.RenderChildren(n)
	if data.Ordered && data.Start != 1 {
		inner = "\\setcounter{enumi}{" + strconv.Itoa(data.Start-1) + "}\n" + inner
	}
	return "\\begin{" + tag + "}\n" + inner + "\\end{" + tag + "}\n"
}

func (s *latexRenderState) listItem(r *Renderer, n *Node) string {
	return "\\item " + r.RenderChildren(n) + "\n"
}

func (s *latexRenderState) table(r *Renderer, n *Node) string {
	data := n.Data.(*Table)
	var cols []string
	for _, align := range data.ColumnAlign {
		switch align {
		case AlignCenter:
			cols = append(cols, "c")
		case AlignRight:
			cols = append(cols, "r")
		default:
			cols = append(cols, "l")
		}
	}
	head := ""
	if data.Header != nil {
		head = s.tableRow(r, data.Header) + "\\hline\n"
	}
	return "\\begin{tabular}{" + strings.Join(cols, " ") + "}\n" +
		head + r.RenderChildren(n) +
		"\\end{tabular}\n"
}

func (s *latexRenderState) tableRow(r *Renderer, n *Node) string {
	var cells []string
	for _, cell := range n.Children {
		cells = append(cells, r.Render(cell))
	}
	return strings.Join(cells, " & ") + " \\\\\n"
}

func (s *latexRenderState) tableCell(r *Renderer, n *Node) string {
	return r.RenderChildren(n)
}

func (s *latexRenderState) thematicBreak(r *Renderer, n *Node) string {
	return "\\hrulefill\n"
}

func (s *latexRenderState) strong(r *Renderer, n *Node) string {
	return "\\textbf{" + r.RenderChildren(n) + "}"
}

func (s *latexRenderState) emphasis(r *Renderer, n *Node) string {
	return "\\textit{" + r.RenderChildren(n) + "}"
}

func (s *latexRenderState) strikethrough(r *Renderer, n *Node) string {
	s.requirePackage("ulem", "[normalem]")
	return "\\sout{" + r.RenderChildren(n) + "}"
}

func (s *latexRenderState) inlineCode(r *Renderer, n *Node) string {
	return "\\verb|" + n.Children[0].Content + "|"
}

func (s *latexRenderState) link(r *Renderer, n *Node) string {
	s.requirePackage("hyperref", "")
	data := n.Data.(*Link)
	return "\\href{" + data.Target + "}{" + r.RenderChildren(n) + "}"
}

func (s *latexRenderState) image(r *Renderer, n *Node) string {
	s.requirePackage("graphicx", "")
	return "\n\\includegraphics{" + n.Data.(*Image).Src + "}\n"
}

func (s *latexRenderState) autoLink(r *Renderer, n *Node) string {
	s.requirePackage("hyperref", "")
	return "\\url{" + n.Data.(*AutoLink).Target + "}"
}

func (s *latexRenderState) rawText(r *Renderer, n *Node) string {
	return escapeLaTeX(n.Content)
}

func (s *latexRenderState) verbatim(r *Renderer, n *Node) string {
	return n.Content
}

func (s *latexRenderState) lineBreak(r *Renderer, n *Node) string {
	if n.Data.(*LineBreak).Soft {
		return "\n"
	}
	return "\\newline\n"
}

func (s *latexRenderState) footReference(r *Renderer, n *Node) string {
	data := n.Data.(*FootReference)
	for i, target := range s.footOrder {
		if target == data.Target {
			return "\\footnotemark[" + strconv.Itoa(i+1) + "]"
		}
	}
	return escapeLaTeX(n.Content)
}

func (s *latexRenderState) blank(r *Renderer, n *Node) string {
	return ""
}

var latexEscaper = bytereplacer.New(
	"$", "\\$",
	"#", "\\#",
	"{", "\\{",
	"}", "\\}",
	"&", "\\&",
)

func escapeLaTeX(raw string) string {
	return string(latexEscaper.Replace([]byte(raw)))
}
