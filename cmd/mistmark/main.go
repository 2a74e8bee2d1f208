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

// mistmark converts Markdown to HTML, LaTeX, or a JSON syntax tree.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jessevdk/go-flags"
	"zombiezen.com/go/mistmark"
)

type options struct {
	Renderer    string `short:"r" long:"renderer" description:"output format" choice:"html" choice:"latex" choice:"json" default:"html"`
	Output      string `short:"o" long:"output" description:"output filename (default stdout)"`
	FrontMatter bool   `long:"front-matter" description:"parse a leading YAML front matter block"`
	Standalone  bool   `long:"standalone" description:"wrap HTML output in a complete page"`
	Verbose     bool   `short:"v" long:"verbose" description:"log parse warnings"`

	Args struct {
		File string `positional-arg-name:"FILE" description:"input filename (default stdin)"`
	} `positional-args:"yes"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			return
		}
		os.Exit(2)
	}
	if err := run(&opts); err != nil {
		fmt.Fprintln(os.Stderr, "mistmark:", err)
		os.Exit(1)
	}
}

func run(opts *options) error {
	source, uri, err := readInput(opts.Args.File)
	if err != nil {
		return err
	}

	parseOpts := mistmark.ParseOptions{
		FrontMatter: opts.FrontMatter,
		URI:         uri,
	}
	if opts.Verbose {
		parseOpts.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	doc, err := parseOpts.Parse(source)
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	switch opts.Renderer {
	case "latex":
		return (&mistmark.LaTeXRenderer{}).Render(out, doc)
	case "json":
		return mistmark.RenderJSON(out, doc)
	default:
		r := &mistmark.HTMLRenderer{Standalone: opts.Standalone}
		return r.Render(out, doc)
	}
}

func readInput(path string) (source []byte, uri string, err error) {
	if path == "" {
		source, err = io.ReadAll(os.Stdin)
		return source, "<stdin>", err
	}
	source, err = os.ReadFile(path)
	return source, path, err
}
