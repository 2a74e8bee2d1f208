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
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderJSON(t *testing.T) {
	doc := mustParse(t, "# Hi\n\npara *em*\n")
	out := new(strings.Builder)
	require.NoError(t, RenderJSON(out, doc))
	require.True(t, strings.HasSuffix(out.String(), "\n"))

	var tree map[string]any
	require.NoError(t, json.Unmarshal([]byte(out.String()), &tree))
	require.Equal(t, "Document", tree["type"])

	children := tree["children"].([]any)
	require.Len(t, children, 2)

	heading := children[0].(map[string]any)
	require.Equal(t, "Heading", heading["type"])
	require.EqualValues(t, 1, heading["level"])
	headingText := heading["children"].([]any)[0].(map[string]any)
	require.Equal(t, "RawText", headingText["type"])
	require.Equal(t, "Hi", headingText["content"])

	para := children[1].(map[string]any)
	require.Equal(t, "Paragraph", para["type"])
	spans := para["children"].([]any)
	require.Len(t, spans, 2)
	require.Equal(t, "Emphasis", spans[1].(map[string]any)["type"])
}

func TestRenderJSONFootnotes(t *testing.T) {
	doc := mustParse(t, "x[^a]\n\n[^a]: body\n")
	out := new(strings.Builder)
	require.NoError(t, RenderJSON(out, doc))

	var tree map[string]any
	require.NoError(t, json.Unmarshal([]byte(out.String()), &tree))
	footnotes := tree["footnotes"].(map[string]any)
	def := footnotes["a"].(map[string]any)
	require.Equal(t, "Footnote", def["type"])
	require.NotContains(t, def, "Data")
	body := def["children"].([]any)[0].(map[string]any)
	require.Equal(t, "RawText", body["type"])
	require.Equal(t, "body", body["content"])
}

func TestRenderJSONTableHeader(t *testing.T) {
	doc := mustParse(t, "| a |\n| --- |\n| b |\n")
	out := new(strings.Builder)
	require.NoError(t, RenderJSON(out, doc))

	var tree map[string]any
	require.NoError(t, json.Unmarshal([]byte(out.String()), &tree))
	table := tree["children"].([]any)[0].(map[string]any)
	require.Equal(t, "Table", table["type"])
	require.Contains(t, table, "header")
	header := table["header"].(map[string]any)
	require.Equal(t, "TableRow", header["type"])
}
