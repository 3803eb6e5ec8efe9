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
	"errors"
	"io"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platform "github.com/Blotjarl/nyc-taxi-platform"
)

type fakeGetter struct {
	body []byte
	err  error
}

func (f *fakeGetter) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.body))}, nil
}

func TestS3ParquetReader_ReadsObject(t *testing.T) {
	filename := writeFixture(t, []platform.Record{
		{"a": int64(1)},
		{"a": int64(2)},
	})
	body, err := os.ReadFile(filename)
	require.NoError(t, err)

	reader, err := NewS3ParquetReader(context.Background(), &fakeGetter{body: body}, "raw-bucket", "fixture.parquet")
	require.NoError(t, err)
	defer reader.Close()

	records := drain(t, reader)
	require.Len(t, records, 2)
	assert.Equal(t, int64(1), records[0]["a"])
	assert.Equal(t, int64(2), records[1]["a"])
}

func TestS3ParquetReader_GetFailure(t *testing.T) {
	getter := &fakeGetter{err: errors.New("no such key")}

	_, err := NewS3ParquetReader(context.Background(), getter, "raw-bucket", "missing.parquet")
	require.Error(t, err)

	var rerr *ParquetReaderError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "get_object", rerr.Op)
}

func TestS3ParquetReader_CorruptObject(t *testing.T) {
	getter := &fakeGetter{body: []byte("junk")}

	_, err := NewS3ParquetReader(context.Background(), getter, "raw-bucket", "junk.parquet")
	require.Error(t, err)
}
