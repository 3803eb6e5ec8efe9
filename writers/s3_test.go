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

package writers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platform "github.com/Blotjarl/nyc-taxi-platform"
	"github.com/Blotjarl/nyc-taxi-platform/readers"
)

type fakePutter struct {
	bucket string
	key    string
	body   []byte
	calls  int
	err    error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = aws.ToString(params.Bucket)
	f.key = aws.ToString(params.Key)
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

type fakeGetter struct {
	body []byte
}

func (f *fakeGetter) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.body))}, nil
}

func TestS3ParquetWriter_UploadsOnClose(t *testing.T) {
	putter := &fakePutter{}
	writer := NewS3ParquetWriter(putter, "processed-bucket", "processed_trips.parquet")

	ctx := context.Background()
	input := []platform.Record{
		{"id": int64(1), "distance": 2.5},
		{"id": int64(2), "distance": 0.8},
	}
	for _, record := range input {
		require.NoError(t, writer.Write(ctx, record))
	}
	assert.Equal(t, 0, putter.calls, "nothing uploads before Close")

	require.NoError(t, writer.Close())
	assert.Equal(t, 1, putter.calls)
	assert.Equal(t, "processed-bucket", putter.bucket)
	assert.Equal(t, "processed_trips.parquet", putter.key)
	require.NotEmpty(t, putter.body)

	// The uploaded bytes are a complete Parquet object.
	reader, err := readers.NewS3ParquetReader(ctx, &fakeGetter{body: putter.body}, "processed-bucket", "processed_trips.parquet")
	require.NoError(t, err)
	defer reader.Close()

	for i := 0; ; i++ {
		record, err := reader.Read(ctx)
		if err == io.EOF {
			assert.Equal(t, len(input), i)
			break
		}
		require.NoError(t, err)
		assert.Equal(t, input[i]["id"], record["id"])
		assert.Equal(t, input[i]["distance"], record["distance"])
	}
}

func TestS3ParquetWriter_NoUploadWhenEmpty(t *testing.T) {
	putter := &fakePutter{}
	writer := NewS3ParquetWriter(putter, "processed-bucket", "out.parquet")

	require.NoError(t, writer.Close())
	assert.Equal(t, 0, putter.calls)
}

func TestS3ParquetWriter_PutFailureIsSurfaced(t *testing.T) {
	putter := &fakePutter{err: errors.New("denied")}
	writer := NewS3ParquetWriter(putter, "processed-bucket", "out.parquet")

	require.NoError(t, writer.Write(context.Background(), platform.Record{"a": int64(1)}))

	err := writer.Close()
	require.Error(t, err)
	var werr *ParquetWriterError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, "put_object", werr.Op)
}
