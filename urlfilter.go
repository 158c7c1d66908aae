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
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
	"github.com/temoto/robotstxt"
)

// LinkFilter classifies candidate URLs discovered on a page: same-site test,
// keyword match, ignore globs, URL length cap, robots policy.
type LinkFilter struct {
	baseURL      string
	keywords     []string
	userAgent    string
	maxURLLength int
	ignore       []glob.Glob
	fetcher      Fetcher
}

// NewLinkFilter builds a filter from the crawl config. IgnorePatterns are
// compiled eagerly so a malformed pattern fails the crawl at start, not in
// the middle of a batch.
func NewLinkFilter(cfg *Config, fetcher Fetcher) (*LinkFilter, error) {
	ignore := make([]glob.Glob, 0, len(cfg.IgnorePatterns))
	for _, pattern := range cfg.IgnorePatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile ignore pattern %q: %v", pattern, err)
		}
		ignore = append(ignore, g)
	}
	return &LinkFilter{
		baseURL:      cfg.BaseURL,
		keywords:     cfg.PathKeywords,
		userAgent:    cfg.UserAgent,
		maxURLLength: cfg.MaxURLLength,
		ignore:       ignore,
		fetcher:      fetcher,
	}, nil
}

// SameSite reports whether a candidate belongs to the crawl's site. A
// candidate with no scheme is relative and counts as internal; an absolute
// candidate is internal iff the base URL is a literal prefix of it. The
// prefix test is deliberately byte-level: other ports or subdomains of the
// same host are external unless the base URL itself is their prefix.
func (f *LinkFilter) SameSite(candidate string) bool {
	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	if u.Scheme == "" {
		return true
	}
	return strings.HasPrefix(candidate, f.baseURL)
}

// MatchesKeywords reports whether the candidate URL contains at least one of
// the configured keywords, case-insensitive. An empty keyword list matches
// everything.
func (f *LinkFilter) MatchesKeywords(candidate string) bool {
	if len(f.keywords) == 0 {
		return true
	}
	lower := strings.ToLower(candidate)
	for _, keyword := range f.keywords {
		if strings.Contains(lower, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

func (f *LinkFilter) ignored(candidate string) bool {
	for _, g := range f.ignore {
		if g.Match(candidate) {
			return true
		}
	}
	return false
}

// FilterPass gates one batch of discovered links against a robots policy
// snapshot taken when the pass was created.
type FilterPass struct {
	filter *LinkFilter
	robots *robotstxt.RobotsData
}

// NewPass fetches and parses the site's robots policy and returns a gate for
// one filtering pass. The policy is fetched fresh on every call; any fetch or
// parse failure yields a pass that treats every URL as robots-allowed, since
// an unreachable policy is the common case.
func (f *LinkFilter) NewPass(ctx context.Context) *FilterPass {
	pass := &FilterPass{filter: f}

	u, err := url.Parse(f.baseURL)
	if err != nil {
		return pass
	}
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)

	body, err := f.fetcher.Get(ctx, robotsURL)
	if err != nil {
		return pass
	}
	robots, err := robotstxt.FromBytes(body)
	if err != nil {
		return pass
	}
	pass.robots = robots
	return pass
}

// Allow applies the full gate to one candidate: same-site on the raw href as
// found in the page, then keyword, ignore-glob, length and robots checks on
// its resolved absolute form.
func (p *FilterPass) Allow(rawHref, absoluteURL string) bool {
	f := p.filter
	if !f.SameSite(rawHref) {
		return false
	}
	if !f.MatchesKeywords(absoluteURL) {
		return false
	}
	if f.ignored(absoluteURL) {
		return false
	}
	if f.maxURLLength > 0 && len(absoluteURL) > f.maxURLLength {
		return false
	}
	if p.robots != nil {
		if u, err := url.Parse(absoluteURL); err == nil {
			if !p.robots.TestAgent(u.Path, f.userAgent) {
				return false
			}
		}
	}
	return true
}
