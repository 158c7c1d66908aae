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

// Package testutil provides the canned site fixtures crawler tests run
// against: an HTTP server rendering a small linked site, and a browser whose
// sessions return the same pages without launching Chrome.
package testutil

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/agentberlin/sidewinder"
)

// DefaultRobots allows every path.
const DefaultRobots = "User-agent: *\nDisallow:\n"

// Page is one page of a canned site.
type Page struct {
	Title string
	// Links are rendered into the body as anchor hrefs, as site-relative
	// paths.
	Links []string
}

// Site is a set of pages keyed by path plus the site's robots.txt rules.
type Site struct {
	Pages  map[string]Page
	Robots string
}

// DocsSite returns the small documentation site most crawler tests use:
// five pages, cross-linked, with /about reachable from two of them.
func DocsSite() Site {
	return Site{
		Pages: map[string]Page{
			"/":              {Title: "Home", Links: []string{"/guide", "/about"}},
			"/guide":         {Title: "Guide", Links: []string{"/guide/install", "/guide/usage", "/"}},
			"/guide/install": {Title: "Install", Links: []string{"/guide"}},
			"/guide/usage":   {Title: "Usage", Links: []string{"/guide", "/about"}},
			"/about":         {Title: "About"},
		},
	}
}

// RenderPage renders the HTML served for a page. The fake browser returns
// the same markup, so content assertions hold for either path.
func RenderPage(page Page) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head><title>")
	b.WriteString(page.Title)
	b.WriteString("</title></head>\n<body>\n<h1>")
	b.WriteString(page.Title)
	b.WriteString("</h1>\n")
	for _, link := range page.Links {
		fmt.Fprintf(&b, "<a href=%q>%s</a>\n", link, link)
	}
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

// NewServer starts an HTTP server rendering the site. Pages carry a
// Last-Modified header; unknown paths return 404.
func NewServer(site Site) *httptest.Server {
	started := time.Now().UTC()
	robots := site.Robots
	if robots == "" {
		robots = DefaultRobots
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, robots)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		page, ok := site.Pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Last-Modified", started.Format(http.TimeFormat))
		fmt.Fprint(w, RenderPage(page))
	})

	return httptest.NewServer(mux)
}

// Browser implements sidewinder.Browser over a canned site, standing in for
// headless Chrome. Sessions resolve URLs against the base URL the site is
// served on and answer the extractor's document and link queries.
type Browser struct {
	baseURL string
	site    Site
}

// NewBrowser returns a Browser serving the site's pages as rendered at
// baseURL.
func NewBrowser(baseURL string, site Site) *Browser {
	return &Browser{baseURL: strings.TrimSuffix(baseURL, "/"), site: site}
}

func (b *Browser) Open(ctx context.Context) (sidewinder.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &session{browser: b}, nil
}

func (b *Browser) Close() {}

// page looks up the canned page a URL points at.
func (b *Browser) page(url string) (Page, bool) {
	path := strings.TrimPrefix(url, b.baseURL)
	if path == "" {
		path = "/"
	}
	page, ok := b.site.Pages[path]
	return page, ok
}

type session struct {
	browser *Browser
	url     string
}

func (s *session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := s.browser.page(url); !ok {
		return fmt.Errorf("no page for %s", url)
	}
	s.url = url
	return nil
}

func (s *session) Evaluate(ctx context.Context, expression string, result interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	page, ok := s.browser.page(s.url)
	if !ok {
		return fmt.Errorf("no page loaded")
	}

	// The link query reads raw href attributes, so it answers with the
	// site-relative paths exactly as RenderPage wrote them.
	switch v := result.(type) {
	case *string:
		*v = RenderPage(page)
	case *[]string:
		*v = append([]string(nil), page.Links...)
	default:
		return fmt.Errorf("unsupported evaluation result type %T", result)
	}
	return nil
}

func (s *session) CurrentURL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.url, nil
}

func (s *session) Close() {}
