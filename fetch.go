// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// This file includes modifications to code originally developed by Adam Tauber,
// licensed under the Apache License, Version 2.0.
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
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"

	"github.com/saintfish/chardet"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"
)

// Fetcher is the plain-HTTP capability the crawl needs besides the browser:
// the robots policy document and the last-modified header probe.
type Fetcher interface {
	// Get fetches url and returns the response body decoded to UTF-8.
	Get(ctx context.Context, url string) ([]byte, error)
	// Head performs a header-only request against url.
	Head(ctx context.Context, url string) (http.Header, error)
}

// HTTPFetcher implements Fetcher on net/http.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	log       *logrus.Entry
}

// NewHTTPFetcher returns a fetcher with the config's timeout and User-Agent.
func NewHTTPFetcher(cfg *Config, log *logrus.Entry) *HTTPFetcher {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: cfg.UserAgent,
		log:       log,
	}
}

// fetchTrace records connection timing for one request.
type fetchTrace struct {
	start, connect    time.Time
	connectDuration   time.Duration
	firstByteDuration time.Duration
}

// attach returns the request with timing hooks recording into this trace.
func (t *fetchTrace) attach(req *http.Request) *http.Request {
	trace := &httptrace.ClientTrace{
		ConnectStart: func(network, addr string) { t.connect = time.Now() },
		ConnectDone: func(network, addr string, err error) {
			t.connectDuration = time.Since(t.connect)
		},
		GetConn: func(hostPort string) { t.start = time.Now() },
		GotFirstResponseByte: func() {
			t.firstByteDuration = time.Since(t.start)
		},
	}
	return req.WithContext(httptrace.WithClientTrace(req.Context(), trace))
}

func (f *HTTPFetcher) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	trace := &fetchTrace{}
	res, err := f.client.Do(trace.attach(req))
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	f.log.WithFields(logrus.Fields{
		"url":     url,
		"connect": trace.connectDuration,
		"ttfb":    trace.firstByteDuration,
	}).Debug("fetched")

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", url, res.StatusCode)
	}

	var bodyReader io.Reader = res.Body
	contentEncoding := strings.ToLower(res.Header.Get("Content-Encoding"))
	if !res.Uncompressed && strings.Contains(contentEncoding, "gzip") {
		gz, err := gzip.NewReader(bodyReader)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		bodyReader = gz
	}

	body, err := io.ReadAll(bodyReader)
	if err != nil {
		return nil, err
	}

	return fixCharset(body, res.Header.Get("Content-Type"))
}

func (f *HTTPFetcher) Head(ctx context.Context, url string) (http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	res, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	res.Body.Close()

	return res.Header, nil
}

// fixCharset re-encodes body to UTF-8. Bodies without an explicit charset
// declaration go through sniffing, since many older sites serve legacy
// encodings with a bare text/html content type.
func fixCharset(body []byte, contentType string) ([]byte, error) {
	contentType = strings.ToLower(contentType)
	if !strings.Contains(contentType, "charset") {
		d := chardet.NewTextDetector()
		r, err := d.DetectBest(body)
		if err != nil {
			return body, nil
		}
		contentType = "text/plain; charset=" + r.Charset
	}
	if strings.Contains(contentType, "utf-8") || strings.Contains(contentType, "utf8") {
		return body, nil
	}

	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return body, nil
	}
	converted, err := io.ReadAll(r)
	if err != nil {
		return body, nil
	}
	return converted, nil
}
