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
	"fmt"
	"io"
)

// RenderJSON writes doc to w as an indented JSON object tree.
// Each node becomes an object with a "type" key, the node's
// exported payload attributes, and a "children" array or a
// "content" string, per [Node.AsMap].
func RenderJSON(w io.Writer, doc *Node) error {
	out, err := json.MarshalIndent(doc.AsMap(), "", "  ")
	if err != nil {
		return fmt.Errorf("render markdown to json: %w", err)
	}
	out = append(out, '\n')
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("render markdown to json: %w", err)
	}
	return nil
}
