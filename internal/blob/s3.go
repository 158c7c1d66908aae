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

package blob

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Config carries the settings for an S3-backed blob store. AccessKey and
// SecretKey may be empty, in which case the SDK's default credential chain
// applies. Endpoint is for S3-compatible stores and turns on path-style
// addressing.
type S3Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Endpoint  string
}

// S3Store writes blobs as private objects in one bucket.
type S3Store struct {
	s3     *s3.S3
	bucket string
}

// NewS3Store builds an S3 client from the config and returns the store.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	sess, err := session.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %v", err)
	}

	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.AccessKey != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""))
	}
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}

	return &S3Store{
		s3:     s3.New(sess, awsCfg),
		bucket: cfg.Bucket,
	}, nil
}

// Put implements storage.Blobs.Put.
func (s *S3Store) Put(ctx context.Context, key string, data []byte) error {
	obj := &s3.PutObjectInput{
		ACL:    aws.String("private"),
		Body:   bytes.NewReader(data),
		Key:    aws.String(key),
		Bucket: aws.String(s.bucket),
	}

	if _, err := s.s3.PutObjectWithContext(ctx, obj); err != nil {
		return fmt.Errorf("failed to put object %s: %v", key, err)
	}
	return nil
}
