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

import "testing"

// A reference scanned before its definition registers
// stays pending until the resolver pass.
func TestResolveDeferredReference(t *testing.T) {
	pc := NewParseContext(ExtendedBlockTokens(), ExtendedSpanTokens())
	para := newParent(&Paragraph{}, TokenizeSpans("[a][ref]", pc), Position{})
	root := newParent(&Document{}, []*Node{para}, Position{})
	if got := para.Children[0].Kind(); got != "PendingReference" {
		t.Fatalf("span is %s; want PendingReference", got)
	}

	pc.AddLinkDefinition("ref", LinkDefinition{Destination: "/url"})
	resolveReferences(root, pc)
	want := `Document[Paragraph[Link[RawText("a")]]]`
	if got := sketch(root); got != want {
		t.Errorf("tree:\n got %s\nwant %s", got, want)
	}
	if target := para.Children[0].Data.(*Link).Target; target != "/url" {
		t.Errorf("Target = %q; want %q", target, "/url")
	}
}

// Resolving twice must not change the tree again.
func TestResolveIdempotent(t *testing.T) {
	pc := NewParseContext(ExtendedBlockTokens(), ExtendedSpanTokens())
	para := newParent(&Paragraph{}, TokenizeSpans("[a][gone] and [b][ref]", pc), Position{})
	root := newParent(&Document{}, []*Node{para}, Position{})
	pc.AddLinkDefinition("ref", LinkDefinition{Destination: "/url"})

	resolveReferences(root, pc)
	first := sketch(root)
	resolveReferences(root, pc)
	if second := sketch(root); second != first {
		t.Errorf("second resolve changed the tree:\n got %s\nwas %s", second, first)
	}
	want := `Document[Paragraph[RawText("[a][gone]") RawText(" and ") Link[RawText("b")]]]`
	if first != want {
		t.Errorf("tree:\n got %s\nwant %s", first, want)
	}
}

// Labels are case-folded and whitespace-collapsed before lookup.
func TestResolveLabelNormalization(t *testing.T) {
	pc := NewParseContext(ExtendedBlockTokens(), ExtendedSpanTokens())
	para := newParent(&Paragraph{}, TokenizeSpans("[x][A  B]", pc), Position{})
	root := newParent(&Document{}, []*Node{para}, Position{})
	pc.AddLinkDefinition("a b", LinkDefinition{Destination: "/url"})

	resolveReferences(root, pc)
	want := `Document[Paragraph[Link[RawText("x")]]]`
	if got := sketch(root); got != want {
		t.Errorf("tree:\n got %s\nwant %s", got, want)
	}
}
