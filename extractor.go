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
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	whatwgUrl "github.com/nlnwa/whatwg-url/url"
	"github.com/sirupsen/logrus"

	"github.com/agentberlin/sidewinder/storage"
)

var urlParser = whatwgUrl.NewParser(whatwgUrl.WithPercentEncodeSinglePercentSign())

// DOM queries evaluated in the page session.
const (
	queryDocumentHTML = `document.documentElement.outerHTML`
	queryAnchorHrefs  = `Array.from(document.querySelectorAll('a[href]')).map(function(a) { return a.getAttribute('href'); })`
)

// Extractor drives one browser session per page: navigate until the network
// settles, normalize the rendered markup, persist the content blob, and
// discover candidate links for the frontier.
type Extractor struct {
	filter  *LinkFilter
	fetcher Fetcher
	blobs   storage.Blobs
	log     *logrus.Entry
}

// NewExtractor wires the extractor's collaborators.
func NewExtractor(filter *LinkFilter, fetcher Fetcher, blobs storage.Blobs, log *logrus.Entry) *Extractor {
	return &Extractor{
		filter:  filter,
		fetcher: fetcher,
		blobs:   blobs,
		log:     log,
	}
}

// Extract navigates the session to pageURL and returns the page's normalized
// content. The last-modified probe is best-effort: any failure there yields
// an empty string, never an extraction error.
func (e *Extractor) Extract(ctx context.Context, session Session, pageURL string) (*PageContent, error) {
	if err := session.Navigate(ctx, pageURL); err != nil {
		return nil, err
	}

	var html string
	if err := session.Evaluate(ctx, queryDocumentHTML, &html); err != nil {
		return nil, fmt.Errorf("failed to read document for %s: %v", pageURL, err)
	}

	body := []byte(html)
	content := NormalizeHTML(body)

	return &PageContent{
		Metadata: PageMetadata{
			Title:        ExtractTitle(body),
			LastModified: e.lastModified(ctx, pageURL),
			URL:          pageURL,
		},
		Content:     content,
		ContentHash: ContentHash([]byte(content)),
	}, nil
}

// Persist writes the page blob under crawlName. Empty content is skipped,
// not written.
func (e *Extractor) Persist(ctx context.Context, crawlName string, content *PageContent) error {
	if content == nil || content.Content == "" {
		return nil
	}

	data, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to serialize page content: %v", err)
	}
	if err := e.blobs.Put(ctx, BlobKey(crawlName, content.Metadata.URL), data); err != nil {
		return fmt.Errorf("failed to store page content: %v", err)
	}
	return nil
}

// DiscoverLinks collects every hyperlink target on the rendered page,
// resolves relative targets against the page's current document location so
// nested-page relative links land where the browser would take them, gates
// each candidate through the link filter, and reduces survivors to the
// path form the frontier tracks.
func (e *Extractor) DiscoverLinks(ctx context.Context, session Session) ([]string, error) {
	var hrefs []string
	if err := session.Evaluate(ctx, queryAnchorHrefs, &hrefs); err != nil {
		return nil, fmt.Errorf("failed to collect links: %v", err)
	}

	currentURL, err := session.CurrentURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read current URL: %v", err)
	}

	pass := e.filter.NewPass(ctx)
	seen := make(map[string]struct{}, len(hrefs))
	paths := make([]string, 0, len(hrefs))
	for _, href := range hrefs {
		if href == "" {
			continue
		}
		resolved, err := urlParser.ParseRef(currentURL, href)
		if err != nil {
			e.log.WithField("href", href).Debug("dropping unparseable link")
			continue
		}
		absolute := resolved.Href(true)
		if !pass.Allow(href, absolute) {
			continue
		}
		path, err := reduceToPath(absolute)
		if err != nil {
			continue
		}
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		paths = append(paths, path)
	}
	return paths, nil
}

func (e *Extractor) lastModified(ctx context.Context, pageURL string) string {
	headers, err := e.fetcher.Head(ctx, pageURL)
	if err != nil {
		return ""
	}
	return headers.Get("Last-Modified")
}

// reduceToPath strips scheme and host from an absolute URL, keeping the path
// and query. The frontier tracks paths, not absolute URLs.
func reduceToPath(absolute string) (string, error) {
	parsed, err := url.Parse(absolute)
	if err != nil {
		return "", err
	}
	path := parsed.Path
	if path == "" {
		path = "/"
	}
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}
	return path, nil
}

// resolveAgainstBase turns a frontier path back into an absolute URL on the
// crawl's site.
func resolveAgainstBase(baseURL, path string) (string, error) {
	resolved, err := urlParser.ParseRef(baseURL, path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q against base: %v", path, err)
	}
	return resolved.Href(true), nil
}
