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
)

// A SourceCursor is a read cursor over the lines of a document.
// Lines are immutable for the cursor's lifetime; only the read index moves.
// A SourceCursor must not be shared between goroutines.
type SourceCursor struct {
	lines  []string
	index  int
	anchor int

	// offset is added to the index when reporting line numbers,
	// so that cursors over an excerpt of a document
	// (e.g. the stripped body of a block quote)
	// still report positions in the enclosing document.
	offset int

	uri  string
	meta map[string]any
}

// NewSourceCursor returns a cursor over the given lines.
// Every line is normalized to end with a newline,
// matching the guarantee block readers rely on.
func NewSourceCursor(lines []string) *SourceCursor {
	normalized := make([]string, len(lines))
	for i, line := range lines {
		if !strings.HasSuffix(line, "\n") {
			line += "\n"
		}
		normalized[i] = line
	}
	return &SourceCursor{lines: normalized}
}

// SplitLines splits source text into lines, retaining line terminators.
// The final line is terminated even if the source is not.
func SplitLines(source string) []string {
	if source == "" {
		return nil
	}
	lines := strings.SplitAfter(source, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// WithLineOffset sets the line number reported for the first line to offset+1
// and returns the cursor.
func (c *SourceCursor) WithLineOffset(offset int) *SourceCursor {
	c.offset = offset
	return c
}

// WithURI records the identifier of the source document
// used when stamping node positions, and returns the cursor.
func (c *SourceCursor) WithURI(uri string) *SourceCursor {
	c.uri = uri
	return c
}

// WithMetadata records an arbitrary metadata map copied onto node positions,
// and returns the cursor.
func (c *SourceCursor) WithMetadata(meta map[string]any) *SourceCursor {
	c.meta = meta
	return c
}

// Peek returns the line at the current index without consuming it.
// ok is false if the cursor is exhausted.
func (c *SourceCursor) Peek() (line string, ok bool) {
	if c.index >= len(c.lines) {
		return "", false
	}
	return c.lines[c.index], true
}

// Next consumes and returns the line at the current index.
// Advancing past the end of input is a contract violation
// and aborts the parse.
func (c *SourceCursor) Next() string {
	if c.index >= len(c.lines) {
		throwf("advance past end of input (line %d)", c.Lineno())
	}
	line := c.lines[c.index]
	c.index++
	return line
}

// Backstep moves the cursor back by one line.
// It is used when a block reader over-consumes by one line
// while testing a terminating condition.
func (c *SourceCursor) Backstep() {
	if c.index == 0 {
		throwf("backstep before start of input")
	}
	c.index--
}

// Anchor records the current index for a later Reset.
func (c *SourceCursor) Anchor() {
	c.anchor = c.index
}

// Reset restores the index recorded by the last Anchor.
func (c *SourceCursor) Reset() {
	c.index = c.anchor
}

// Lineno returns the line number of the most recently consumed line.
// Line numbers are 1-based; before the first Next it returns the offset.
func (c *SourceCursor) Lineno() int {
	return c.offset + c.index
}

// Remaining returns the number of unconsumed lines.
func (c *SourceCursor) Remaining() int {
	return len(c.lines) - c.index
}

// position stamps a Position covering start through the last consumed line.
func (c *SourceCursor) position(start int) Position {
	return Position{Start: start, End: c.Lineno(), URI: c.uri, Meta: c.meta}
}

// contractError marks a programming-contract violation.
// It aborts the enclosing parse call;
// Parse recovers it and returns it as the call's error.
type contractError struct {
	msg string
}

func (e *contractError) Error() string {
	return "mistmark: " + e.msg
}

func throwf(format string, args ...any) {
	panic(&contractError{msg: fmt.Sprintf(format, args...)})
}
