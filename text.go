// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sidewinder

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// NormalizeHTML extracts all visible text from HTML, removing all tags.
// This includes navigation, headers, footers, and all content areas.
// Normalizes whitespace (collapses multiple spaces/newlines).
func NormalizeHTML(htmlBody []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlBody))
	if err != nil {
		return ""
	}

	// Remove script and style elements as they're not visible text
	doc.Find("script, style, noscript").Remove()

	text := doc.Text()

	return strings.TrimSpace(normalizeWhitespace(text))
}

// ExtractTitle returns the content of the document's <title> element, or ""
// when the markup cannot be parsed or carries no title.
func ExtractTitle(htmlBody []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlBody))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// normalizeWhitespace collapses multiple consecutive whitespace characters
// (spaces, tabs, newlines) into a single space.
func normalizeWhitespace(text string) string {
	fields := strings.Fields(text)
	return strings.Join(fields, " ")
}
