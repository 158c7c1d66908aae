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
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testFetcher() *HTTPFetcher {
	cfg := NewDefaultConfig()
	cfg.UserAgent = "sidewinder-test/1.0"
	return NewHTTPFetcher(cfg, quietLogger())
}

func TestFetcherGet(t *testing.T) {
	var gotUserAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	body, err := testFetcher().Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !strings.Contains(string(body), "hello") {
		t.Errorf("unexpected body %q", body)
	}
	if gotUserAgent != "sidewinder-test/1.0" {
		t.Errorf("User-Agent = %q, want %q", gotUserAgent, "sidewinder-test/1.0")
	}
}

func TestFetcherGetNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	if _, err := testFetcher().Get(context.Background(), srv.URL); err == nil {
		t.Fatal("expected an error for a 404 response")
	}
}

func TestFetcherGetGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte("<html><body>compressed</body></html>"))
		gz.Close()
	}))
	defer srv.Close()

	body, err := testFetcher().Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !strings.Contains(string(body), "compressed") {
		t.Errorf("unexpected body %q", body)
	}
}

func TestFetcherGetConvertsLegacyCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write([]byte("caf\xe9"))
	}))
	defer srv.Close()

	body, err := testFetcher().Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got := string(body); got != "café" {
		t.Errorf("converted body = %q, want %q", got, "café")
	}
}

func TestFetcherGetContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := testFetcher().Get(ctx, srv.URL); err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}

func TestFetcherHead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		w.Header().Set("Last-Modified", "Tue, 19 Aug 2025 10:00:00 GMT")
	}))
	defer srv.Close()

	headers, err := testFetcher().Head(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	if got := headers.Get("Last-Modified"); got != "Tue, 19 Aug 2025 10:00:00 GMT" {
		t.Errorf("Last-Modified = %q, want %q", got, "Tue, 19 Aug 2025 10:00:00 GMT")
	}
}

func TestFixCharset(t *testing.T) {
	tests := []struct {
		name        string
		body        []byte
		contentType string
		want        string
	}{
		{
			name:        "utf-8 passes through",
			body:        []byte("héllo"),
			contentType: "text/html; charset=utf-8",
			want:        "héllo",
		},
		{
			name:        "iso-8859-1 converted",
			body:        []byte("caf\xe9"),
			contentType: "text/html; charset=iso-8859-1",
			want:        "café",
		},
		{
			name:        "unknown charset left unchanged",
			body:        []byte("plain ascii"),
			contentType: "text/html; charset=bogus",
			want:        "plain ascii",
		},
		{
			name:        "missing charset sniffs ascii unchanged",
			body:        []byte("just ascii text, nothing exotic here"),
			contentType: "text/html",
			want:        "just ascii text, nothing exotic here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fixCharset(tt.body, tt.contentType)
			if err != nil {
				t.Fatalf("fixCharset failed: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("fixCharset() = %q, want %q", got, tt.want)
			}
		})
	}
}
