//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of the NYC Taxi Platform.
//
// The NYC Taxi Platform is free software: you can redistribute it and/or
// modify it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The NYC Taxi Platform is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with the NYC Taxi Platform. If not, see https://www.gnu.org/licenses/.

package locator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Blotjarl/nyc-taxi-platform/config"
)

// Package locator turns a resolved Config into a concrete (source,
// destination) pair of object locations. When no explicit input key is
// configured it scans the source location and selects the most recently
// modified Parquet object; ties on modification time break toward the
// lexicographically greatest key, so monthly drops like
// yellow_tripdata_2024-02.parquet beat their predecessors deterministically.

// inputSuffix limits discovery to the columnar trip files.
const inputSuffix = ".parquet"

// outputPrefix derives the destination key from the chosen input key.
const outputPrefix = "processed_"

// ErrEmptySource is the soft-stop error: the source location exists but holds
// no candidate objects. Callers end the run cleanly without writing.
var ErrEmptySource = errors.New("no objects in source location")

// LocateError wraps locator failures with the operation that failed.
type LocateError struct {
	Op  string // Operation that failed (e.g., "list_objects", "scan_dir")
	Err error  // Underlying error
}

// Error returns the error string for LocateError.
func (e *LocateError) Error() string {
	return fmt.Sprintf("locator %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for LocateError.
func (e *LocateError) Unwrap() error {
	return e.Err
}

// Location is one fully qualified object location: an S3 bucket or local
// directory, plus the object key within it.
type Location struct {
	Bucket string
	Key    string
}

// String renders the location for logs.
func (l Location) String() string {
	if config.IsLocalPath(l.Bucket) {
		return filepath.Join(l.Bucket, l.Key)
	}
	return "s3://" + l.Bucket + "/" + l.Key
}

// ObjectLister is the part of the S3 API the locator needs.
type ObjectLister interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Locator resolves source and destination locations for one run.
type Locator struct {
	lister ObjectLister
}

// New creates a Locator. The lister may be nil when the configured source is
// a local directory.
func New(lister ObjectLister) *Locator {
	return &Locator{lister: lister}
}

// Resolve produces the (source, destination) pair for the run. An explicit
// input key bypasses discovery; otherwise the source location is scanned and
// the freshest Parquet object wins. Returns ErrEmptySource when the scan
// finds nothing.
func (l *Locator) Resolve(ctx context.Context, cfg *config.Config) (source, dest Location, err error) {
	inputKey := cfg.InputKey
	if inputKey == "" {
		inputKey, err = l.latestKey(ctx, cfg.RawBucket)
		if err != nil {
			return Location{}, Location{}, err
		}
	}

	outputKey := cfg.OutputKey
	if outputKey == "" {
		outputKey = outputPrefix + path.Base(inputKey)
	}

	source = Location{Bucket: cfg.RawBucket, Key: inputKey}
	dest = Location{Bucket: cfg.ProcessedBucket, Key: outputKey}
	return source, dest, nil
}

// latestKey scans the source location for the most recently modified
// candidate object.
func (l *Locator) latestKey(ctx context.Context, bucket string) (string, error) {
	if config.IsLocalPath(bucket) {
		return l.latestLocalKey(bucket)
	}
	return l.latestObjectKey(ctx, bucket)
}

func (l *Locator) latestObjectKey(ctx context.Context, bucket string) (string, error) {
	if l.lister == nil {
		return "", &LocateError{Op: "list_objects", Err: fmt.Errorf("no S3 client configured for bucket %q", bucket)}
	}

	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	paginator := s3.NewListObjectsV2Paginator(l.lister, input)

	var bestKey string
	var bestTime time.Time
	found := false
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return "", &LocateError{Op: "list_objects", Err: err}
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, inputSuffix) {
				continue
			}
			modified := aws.ToTime(obj.LastModified)
			if !found || newer(modified, key, bestTime, bestKey) {
				bestKey, bestTime, found = key, modified, true
			}
		}
	}
	if !found {
		return "", ErrEmptySource
	}
	return bestKey, nil
}

func (l *Locator) latestLocalKey(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", &LocateError{Op: "scan_dir", Err: err}
	}

	var bestKey string
	var bestTime time.Time
	found := false
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), inputSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return "", &LocateError{Op: "scan_dir", Err: err}
		}
		if !found || newer(info.ModTime(), entry.Name(), bestTime, bestKey) {
			bestKey, bestTime, found = entry.Name(), info.ModTime(), true
		}
	}
	if !found {
		return "", ErrEmptySource
	}
	return bestKey, nil
}

// newer reports whether candidate (t, key) beats the current best. Later
// modification time wins; equal times fall back to the greater key.
func newer(t time.Time, key string, bestTime time.Time, bestKey string) bool {
	if t.After(bestTime) {
		return true
	}
	if t.Equal(bestTime) {
		return key > bestKey
	}
	return false
}
