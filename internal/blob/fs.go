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

// Package blob provides the stores extracted page content is written to:
// a local filesystem tree and an S3 bucket. Keys are slash-separated with the
// crawl name as the leading segment.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kennygrant/sanitize"
)

// FSStore writes blobs under a root directory, one file per key. Key segments
// are sanitized so URL-derived names are always disk-safe.
type FSStore struct {
	root string
}

// NewFSStore creates the root directory if needed and returns the store.
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %v", err)
	}
	return &FSStore{root: root}, nil
}

// Put writes the blob, creating intermediate directories for the key's
// leading segments.
func (s *FSStore) Put(ctx context.Context, key string, data []byte) error {
	segments := strings.Split(key, "/")
	cleaned := make([]string, 0, len(segments)+1)
	cleaned = append(cleaned, s.root)
	for _, segment := range segments {
		cleaned = append(cleaned, sanitizeSegment(segment))
	}
	path := filepath.Join(cleaned...)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create content directory: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write content file: %v", err)
	}
	return nil
}

// Root returns the directory blobs are written under.
func (s *FSStore) Root() string {
	return s.root
}

// sanitizeSegment replaces dangerous characters in one key segment so the
// return value can be used as a safe file or directory name.
func sanitizeSegment(segment string) string {
	ext := filepath.Ext(segment)
	if ext == "" {
		return strings.Replace(sanitize.BaseName(segment), "-", "_", -1)
	}
	cleanExt := sanitize.BaseName(ext)
	if cleanExt == "" {
		cleanExt = ".unknown"
	}
	return strings.Replace(fmt.Sprintf(
		"%s.%s",
		sanitize.BaseName(segment[:len(segment)-len(ext)]),
		cleanExt[1:],
	), "-", "_", -1)
}
