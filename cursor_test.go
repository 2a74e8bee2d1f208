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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSplitLines(t *testing.T) {
	tests := []struct {
		source string
		want   []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a\n", []string{"a\n"}},
		{"a\nb", []string{"a\n", "b"}},
		{"a\nb\n", []string{"a\n", "b\n"}},
		{"\n\n", []string{"\n", "\n"}},
	}
	for _, test := range tests {
		got := SplitLines(test.source)
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("SplitLines(%q) (-want +got):\n%s", test.source, diff)
		}
	}
}

func TestSourceCursor(t *testing.T) {
	c := NewSourceCursor([]string{"a", "b\n", "c"})

	if line, ok := c.Peek(); !ok || line != "a\n" {
		t.Errorf("Peek() = %q, %t; want %q, true", line, ok, "a\n")
	}
	if got := c.Next(); got != "a\n" {
		t.Errorf("Next() = %q; want %q", got, "a\n")
	}
	if got := c.Lineno(); got != 1 {
		t.Errorf("Lineno() = %d; want 1", got)
	}

	c.Anchor()
	c.Next()
	c.Next()
	if _, ok := c.Peek(); ok {
		t.Error("Peek() ok after exhausting input")
	}
	c.Reset()
	if got := c.Lineno(); got != 1 {
		t.Errorf("Lineno() after Reset = %d; want 1", got)
	}
	if got := c.Next(); got != "b\n" {
		t.Errorf("Next() after Reset = %q; want %q", got, "b\n")
	}
	c.Backstep()
	if got := c.Next(); got != "b\n" {
		t.Errorf("Next() after Backstep = %q; want %q", got, "b\n")
	}
	if got := c.Remaining(); got != 1 {
		t.Errorf("Remaining() = %d; want 1", got)
	}
}

func TestSourceCursorLineOffset(t *testing.T) {
	c := NewSourceCursor([]string{"x\n", "y\n"}).WithLineOffset(4).WithURI("doc.md")
	c.Next()
	c.Next()
	got := c.position(5)
	want := Position{Start: 5, End: 6, URI: "doc.md"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("position (-want +got):\n%s", diff)
	}
}

func TestCursorContractViolation(t *testing.T) {
	c := NewSourceCursor(nil)
	defer func() {
		if _, ok := recover().(*contractError); !ok {
			t.Error("Next past end did not signal a contract error")
		}
	}()
	c.Next()
}
