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
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
)

// fakePage is one canned page served by fakeSite.
type fakePage struct {
	html     string
	links    []string
	finalURL string
	navErr   error
}

// fakeSite serves canned pages to fake sessions, keyed by absolute URL.
type fakeSite struct {
	mu     sync.Mutex
	pages  map[string]fakePage
	opens  int
	closes int
}

func newFakeSite(pages map[string]fakePage) *fakeSite {
	return &fakeSite{pages: pages}
}

func (s *fakeSite) sessionBalance() (opens, closes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens, s.closes
}

type fakeBrowser struct {
	site *fakeSite
}

func (b *fakeBrowser) Open(ctx context.Context) (Session, error) {
	b.site.mu.Lock()
	b.site.opens++
	b.site.mu.Unlock()
	return &fakeSession{site: b.site}, nil
}

func (b *fakeBrowser) Close() {}

type fakeSession struct {
	site    *fakeSite
	current string
	page    fakePage
	loaded  bool
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	s.site.mu.Lock()
	page, ok := s.site.pages[url]
	s.site.mu.Unlock()
	if !ok {
		return fmt.Errorf("navigation to %s failed: no such page", url)
	}
	if page.navErr != nil {
		return page.navErr
	}
	s.page = page
	s.loaded = true
	s.current = url
	if page.finalURL != "" {
		s.current = page.finalURL
	}
	return nil
}

func (s *fakeSession) Evaluate(ctx context.Context, expression string, result interface{}) error {
	if !s.loaded {
		return errors.New("evaluate failed: no document")
	}
	switch expression {
	case queryDocumentHTML:
		out, ok := result.(*string)
		if !ok {
			return fmt.Errorf("unexpected result type %T", result)
		}
		*out = s.page.html
	case queryAnchorHrefs:
		out, ok := result.(*[]string)
		if !ok {
			return fmt.Errorf("unexpected result type %T", result)
		}
		*out = append([]string(nil), s.page.links...)
	default:
		return fmt.Errorf("unexpected expression %q", expression)
	}
	return nil
}

func (s *fakeSession) CurrentURL(ctx context.Context) (string, error) {
	if !s.loaded {
		return "", errors.New("no document")
	}
	return s.current, nil
}

func (s *fakeSession) Close() {
	s.site.mu.Lock()
	s.site.closes++
	s.site.mu.Unlock()
}

// fakeFetcher answers robots and last-modified probes with canned values.
type fakeFetcher struct {
	mu      sync.Mutex
	robots  string
	getErr  error
	headers http.Header
	headErr error
	gets    int
}

func (f *fakeFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.gets++
	f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return []byte(f.robots), nil
}

func (f *fakeFetcher) Head(ctx context.Context, url string) (http.Header, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if f.headers == nil {
		return http.Header{}, nil
	}
	return f.headers, nil
}

func (f *fakeFetcher) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

func quietLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}
