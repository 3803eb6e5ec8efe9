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
	"context"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet"
	"github.com/apache/arrow/go/v12/parquet/file"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"

	platform "github.com/Blotjarl/nyc-taxi-platform"
)

// Package readers provides DataSource implementations over Parquet trip
// files, local or in S3. Column types are preserved: Parquet timestamps
// surface as time.Time, numerics keep their width, strings stay strings.
// Reads are single-attempt; any failure is surfaced immediately.

// ParquetReaderError provides structured error information for parquet reader operations.
type ParquetReaderError struct {
	Op  string // Operation that failed (e.g., "open_file", "load_batch", "read")
	Err error  // Underlying error
}

// Error returns the error string for ParquetReaderError.
func (e *ParquetReaderError) Error() string {
	return fmt.Sprintf("parquet reader %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for ParquetReaderError.
func (e *ParquetReaderError) Unwrap() error {
	return e.Err
}

// ReaderStats holds counters about the reader's progress.
type ReaderStats struct {
	RecordsRead     int64
	BatchesRead     int64
	NullValueCounts map[string]int64
}

// ParquetReaderOptions configures a Parquet reader.
type ParquetReaderOptions struct {
	BatchSize int64    // Rows per Arrow batch
	Columns   []string // Optional column projection
}

// ReaderOption is a configuration function for ParquetReaderOptions.
type ReaderOption func(*ParquetReaderOptions)

// WithBatchSize sets the number of rows read per Arrow batch.
func WithBatchSize(size int64) ReaderOption {
	return func(opts *ParquetReaderOptions) {
		opts.BatchSize = size
	}
}

// WithColumns projects the read down to the named columns.
func WithColumns(columns ...string) ReaderOption {
	return func(opts *ParquetReaderOptions) {
		opts.Columns = make([]string, len(columns))
		copy(opts.Columns, columns)
	}
}

// ParquetReader implements platform.DataSource for Parquet data. Construct
// one with NewParquetReader (local file) or NewS3ParquetReader (S3 object).
type ParquetReader struct {
	closer          io.Closer
	reader          *file.Reader
	recordReader    pqarrow.RecordReader
	currentBatch    arrow.Record
	currentBatchIdx int
	schema          *arrow.Schema
	stats           ReaderStats
}

// NewParquetReader opens a local Parquet file.
func NewParquetReader(filename string, options ...ReaderOption) (*ParquetReader, error) {
	opts := applyReaderOptions(options)

	f, err := os.Open(filename)
	if err != nil {
		return nil, &ParquetReaderError{Op: "open_file", Err: err}
	}
	reader, err := newParquetReader(f, f, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	return reader, nil
}

func applyReaderOptions(options []ReaderOption) *ParquetReaderOptions {
	opts := &ParquetReaderOptions{BatchSize: 1024}
	for _, option := range options {
		option(opts)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1024
	}
	return opts
}

// newParquetReader wires the Arrow record reader over any seekable source.
// closer, which may be nil, is closed together with the reader.
func newParquetReader(src parquet.ReaderAtSeeker, closer io.Closer, opts *ParquetReaderOptions) (*ParquetReader, error) {
	parquetReader, err := file.NewParquetReader(src)
	if err != nil {
		return nil, &ParquetReaderError{Op: "create_reader", Err: err}
	}

	arrowReader, err := pqarrow.NewFileReader(parquetReader,
		pqarrow.ArrowReadProperties{BatchSize: opts.BatchSize}, memory.NewGoAllocator())
	if err != nil {
		return nil, &ParquetReaderError{Op: "create_arrow_reader", Err: err}
	}

	schema, err := arrowReader.Schema()
	if err != nil {
		return nil, &ParquetReaderError{Op: "get_schema", Err: err}
	}

	var colIndices []int
	if len(opts.Columns) > 0 {
		for _, name := range opts.Columns {
			idx := -1
			for i, field := range schema.Fields() {
				if field.Name == name {
					idx = i
					break
				}
			}
			if idx < 0 {
				return nil, &ParquetReaderError{Op: "column_projection", Err: fmt.Errorf("column %q not found in schema", name)}
			}
			colIndices = append(colIndices, idx)
		}
	}

	recordReader, err := arrowReader.GetRecordReader(context.Background(), colIndices, nil)
	if err != nil {
		return nil, &ParquetReaderError{Op: "create_record_reader", Err: err}
	}

	return &ParquetReader{
		closer:       closer,
		reader:       parquetReader,
		recordReader: recordReader,
		schema:       schema,
		stats:        ReaderStats{NullValueCounts: make(map[string]int64)},
	}, nil
}

// Read returns the next record, or io.EOF once the file is drained.
func (p *ParquetReader) Read(ctx context.Context) (platform.Record, error) {
	select {
	case <-ctx.Done():
		return nil, &ParquetReaderError{Op: "read", Err: ctx.Err()}
	default:
	}

	if p.currentBatch == nil || p.currentBatchIdx >= int(p.currentBatch.NumRows()) {
		if err := p.loadNextBatch(); err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, &ParquetReaderError{Op: "load_batch", Err: err}
		}
	}

	result := p.extractRecordFromBatch(p.currentBatch, p.currentBatchIdx)
	p.currentBatchIdx++
	p.stats.RecordsRead++
	return result, nil
}

// Close releases the Arrow resources and the underlying source.
func (p *ParquetReader) Close() error {
	if p.currentBatch != nil {
		p.currentBatch.Release()
		p.currentBatch = nil
	}
	if p.recordReader != nil {
		p.recordReader.Release()
		p.recordReader = nil
	}
	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}

// Schema returns the Arrow schema of the Parquet source.
func (p *ParquetReader) Schema() *arrow.Schema {
	return p.schema
}

// Stats returns the reader's progress counters.
func (p *ParquetReader) Stats() ReaderStats {
	return p.stats
}

// RequireColumns verifies the named columns are present in the schema. This
// is the only schema validation the job performs.
func (p *ParquetReader) RequireColumns(columns []string) error {
	for _, name := range columns {
		if !p.schema.HasField(name) {
			return &ParquetReaderError{Op: "require_columns", Err: fmt.Errorf("column %q not found in schema", name)}
		}
	}
	return nil
}

func (p *ParquetReader) loadNextBatch() error {
	if p.currentBatch != nil {
		p.currentBatch.Release()
		p.currentBatch = nil
	}

	rec, err := p.recordReader.Read()
	if err != nil {
		return err
	}
	if rec == nil || rec.NumRows() == 0 {
		return io.EOF
	}

	rec.Retain()
	p.currentBatch = rec
	p.currentBatchIdx = 0
	p.stats.BatchesRead++
	return nil
}

// extractRecordFromBatch builds a platform.Record from one row of an Arrow batch.
func (p *ParquetReader) extractRecordFromBatch(record arrow.Record, pos int) platform.Record {
	res := make(platform.Record, record.NumCols())
	sch := record.Schema()
	for i := 0; i < int(record.NumCols()); i++ {
		field := sch.Field(i)
		res[field.Name] = p.extractValueFromColumn(record.Column(i), pos, field.Name)
	}
	return res
}

func (p *ParquetReader) extractValueFromColumn(col arrow.Array, rowIdx int, fieldName string) interface{} {
	if col.IsNull(rowIdx) {
		p.stats.NullValueCounts[fieldName]++
		return nil
	}

	switch arr := col.(type) {
	case *array.Boolean:
		return arr.Value(rowIdx)
	case *array.Int8:
		return arr.Value(rowIdx)
	case *array.Int16:
		return arr.Value(rowIdx)
	case *array.Int32:
		return arr.Value(rowIdx)
	case *array.Int64:
		return arr.Value(rowIdx)
	case *array.Uint8:
		return arr.Value(rowIdx)
	case *array.Uint16:
		return arr.Value(rowIdx)
	case *array.Uint32:
		return arr.Value(rowIdx)
	case *array.Uint64:
		return arr.Value(rowIdx)
	case *array.Float32:
		return arr.Value(rowIdx)
	case *array.Float64:
		return arr.Value(rowIdx)
	case *array.String:
		return arr.Value(rowIdx)
	case *array.Binary:
		return arr.Value(rowIdx)
	case *array.Timestamp:
		unit := arrow.Microsecond
		if ts, ok := col.DataType().(*arrow.TimestampType); ok {
			unit = ts.Unit
		}
		return arr.Value(rowIdx).ToTime(unit)
	case *array.Date32:
		return arr.Value(rowIdx).ToTime()
	case *array.Date64:
		return arr.Value(rowIdx).ToTime()
	default:
		return fmt.Sprintf("%v", col.GetOneForMarshal(rowIdx))
	}
}
