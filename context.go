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
	"net/url"
	"time"
)

// CrawlContext is the immutable per-crawl descriptor. It is created once by
// StartCrawl, passed by value to every subsequent step, and never mutated.
// FrontierID is kept separate from CrawlID so a frontier backend can namespace
// its storage independently of the history record key.
type CrawlContext struct {
	CrawlID    string    `json:"crawlId"`
	CrawlName  string    `json:"crawlName"`
	BaseURL    string    `json:"baseUrl"`
	Keywords   []string  `json:"keywords,omitempty"`
	FrontierID string    `json:"frontierId"`
	StartedAt  time.Time `json:"startedAt"`
}

// PageMetadata describes one extracted page.
type PageMetadata struct {
	Title        string `json:"title"`
	LastModified string `json:"lastModified"`
	URL          string `json:"url"`
}

// PageContent is the transient extraction result for one page. It is written
// to blob storage and then discarded; nothing in the crawl keeps it in memory
// across pages.
type PageContent struct {
	Metadata    PageMetadata `json:"metadata"`
	Content     string       `json:"content"`
	ContentHash string       `json:"contentHash,omitempty"`
}

// BlobKey returns the storage key for a page's content blob:
// the crawl name as prefix, then the URL-encoded page URL with an
// .html suffix.
func BlobKey(crawlName, pageURL string) string {
	return crawlName + "/" + url.QueryEscape(pageURL) + ".html"
}
