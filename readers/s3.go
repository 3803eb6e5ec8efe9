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

package readers

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectGetter is the part of the S3 API the reader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewS3ParquetReader fetches one Parquet object from S3 and returns a reader
// over it. The object is held in memory for the duration of the read; the
// Parquet footer requires random access, which the streaming GetObject body
// cannot provide. The dataset is bounded by process memory anyway.
func NewS3ParquetReader(ctx context.Context, client ObjectGetter, bucket, key string, options ...ReaderOption) (*ParquetReader, error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, &ParquetReaderError{Op: "get_object", Err: fmt.Errorf("s3://%s/%s: %w", bucket, key, err)}
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &ParquetReaderError{Op: "get_object", Err: fmt.Errorf("s3://%s/%s: %w", bucket, key, err)}
	}

	return newParquetReader(bytes.NewReader(body), nil, applyReaderOptions(options))
}
