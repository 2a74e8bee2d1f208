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

package normhtml

import "testing"

func TestNormalizeHTML(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"<p>hello \t world</p>", "<p>hello world</p>"},
		{"<p>hello\n\tworld</p>", "<p>hello world</p>"},
		{"\n<p>\n  para one\n</p>\n<p>\n  para two\n</p>\n", "<p>para one</p><p>para two</p>"},
		{"<em>inline  run</em> tail", "<em>inline run</em> tail"},
		{"<br />", "<br>"},
		{"<img src=\"pic.png\" alt=\"\"/>", `<img alt src="pic.png">`},
		{"<pre><code>x :=  1\n  y := 2\n</code></pre>", "<pre><code>x :=  1\n  y := 2\n</code></pre>"},
		{`<th align="center">c</th>`, `<th align="center">c</th>`},
		{`<a CLASS="footnote-ref" href="#fn1">[1]</a>`, `<a class="footnote-ref" href="#fn1">[1]</a>`},
		{"&hellip;&amp;&lt;script&gt;", "…&amp;&lt;script&gt;"},
	}
	for _, test := range tests {
		got := NormalizeHTML([]byte(test.input))
		if string(got) != test.want {
			t.Errorf("NormalizeHTML(%q) = %q; want %q", test.input, got, test.want)
		}
	}
}
