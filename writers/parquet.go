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
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet"
	"github.com/apache/arrow/go/v12/parquet/compress"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"

	platform "github.com/Blotjarl/nyc-taxi-platform"
)

// Package writers provides DataSink implementations persisting cleaned trip
// records as Parquet, locally or to S3. Output carries exactly the record
// fields; no synthetic row-index column is added. A failed write leaves the
// destination absent or undefined; runs are idempotent by overwrite.

// ParquetWriterError wraps Parquet-specific write errors with context about the operation.
type ParquetWriterError struct {
	Op  string // Operation that failed (e.g., "open_file", "schema", "flush")
	Err error  // Underlying error
}

// Error returns the error string for ParquetWriterError.
func (e *ParquetWriterError) Error() string {
	return fmt.Sprintf("parquet writer %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for ParquetWriterError.
func (e *ParquetWriterError) Unwrap() error {
	return e.Err
}

// WriterStats holds counters about the writer's progress.
type WriterStats struct {
	RecordsWritten  int64
	BatchesWritten  int64
	NullValueCounts map[string]int64
}

// ParquetWriterOptions configures the Parquet writer.
type ParquetWriterOptions struct {
	BatchSize   int64                // Records to buffer before writing a row group
	Schema      *arrow.Schema        // Pre-defined schema; inferred from data when nil
	Compression compress.Compression // Compression codec
	FieldOrder  []string             // Explicit column ordering for inferred schemas
}

// WriterOption is a configuration function for ParquetWriterOptions.
type WriterOption func(*ParquetWriterOptions)

// WithBatchSize sets the number of records buffered before a batch is written.
func WithBatchSize(size int64) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.BatchSize = size
	}
}

// WithCompression sets the Parquet compression codec.
func WithCompression(compression compress.Compression) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.Compression = compression
	}
}

// WithFieldOrder sets the explicit column ordering used when the schema is
// inferred from records. Fields not listed are appended in sorted order.
func WithFieldOrder(fields []string) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.FieldOrder = make([]string, len(fields))
		copy(opts.FieldOrder, fields)
	}
}

// WithSchema fixes the Arrow schema instead of inferring it from the first batch.
func WithSchema(schema *arrow.Schema) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.Schema = schema
	}
}

// ParquetWriter implements platform.DataSink for Parquet output. Records are
// buffered and written as row groups; the schema is inferred from the first
// buffered batch unless fixed up front.
type ParquetWriter struct {
	out       io.Writer
	finalize  io.Closer
	writer    *pqarrow.FileWriter
	schema    *arrow.Schema
	buffer    []platform.Record
	allocator memory.Allocator
	opts      *ParquetWriterOptions
	stats     WriterStats
	closed    bool
}

// NewParquetWriter creates a Parquet writer targeting a local file, creating
// parent directories as needed.
func NewParquetWriter(filename string, options ...WriterOption) (*ParquetWriter, error) {
	if dir := filepath.Dir(filename); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &ParquetWriterError{Op: "create_directory", Err: err}
		}
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, &ParquetWriterError{Op: "open_file", Err: err}
	}
	return newParquetWriter(f, f, options), nil
}

// newParquetWriter targets an arbitrary io.Writer. finalize, which may be
// nil, is closed after the Parquet footer is written.
func newParquetWriter(out io.Writer, finalize io.Closer, options []WriterOption) *ParquetWriter {
	opts := &ParquetWriterOptions{
		BatchSize:   1024,
		Compression: compress.Codecs.Snappy,
	}
	for _, option := range options {
		option(opts)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1024
	}

	return &ParquetWriter{
		out:       out,
		finalize:  finalize,
		schema:    opts.Schema,
		buffer:    make([]platform.Record, 0, opts.BatchSize),
		allocator: memory.NewGoAllocator(),
		opts:      opts,
		stats:     WriterStats{NullValueCounts: make(map[string]int64)},
	}
}

// Write implements platform.DataSink. Records are buffered until BatchSize
// is reached.
func (p *ParquetWriter) Write(ctx context.Context, record platform.Record) error {
	if p.closed {
		return &ParquetWriterError{Op: "write", Err: fmt.Errorf("writer is closed")}
	}

	select {
	case <-ctx.Done():
		return &ParquetWriterError{Op: "write", Err: ctx.Err()}
	default:
	}

	p.buffer = append(p.buffer, record)
	p.stats.RecordsWritten++
	if int64(len(p.buffer)) >= p.opts.BatchSize {
		return p.flushBuffer()
	}
	return nil
}

// Flush writes any buffered records as a row group.
func (p *ParquetWriter) Flush() error {
	if p.closed {
		return nil
	}
	return p.flushBuffer()
}

// Close flushes, writes the Parquet footer, and closes the destination.
func (p *ParquetWriter) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	if err := p.flushBuffer(); err != nil {
		return err
	}
	if p.writer != nil {
		if err := p.writer.Close(); err != nil {
			return &ParquetWriterError{Op: "close", Err: err}
		}
	}
	if p.finalize != nil {
		if err := p.finalize.Close(); err != nil {
			return &ParquetWriterError{Op: "close", Err: err}
		}
	}
	return nil
}

// Stats returns the writer's progress counters.
func (p *ParquetWriter) Stats() WriterStats {
	return p.stats
}

func (p *ParquetWriter) flushBuffer() error {
	if len(p.buffer) == 0 {
		return nil
	}

	if p.schema == nil {
		schema, err := inferSchema(p.buffer, p.opts.FieldOrder)
		if err != nil {
			return &ParquetWriterError{Op: "schema", Err: err}
		}
		p.schema = schema
	}
	if p.writer == nil {
		props := parquet.NewWriterProperties(parquet.WithCompression(p.opts.Compression))
		writer, err := pqarrow.NewFileWriter(p.schema, p.out, props, pqarrow.DefaultWriterProps())
		if err != nil {
			return &ParquetWriterError{Op: "create_writer", Err: err}
		}
		p.writer = writer
	}

	rec, err := p.buildArrowRecord()
	if err != nil {
		return &ParquetWriterError{Op: "build_batch", Err: err}
	}
	defer rec.Release()

	if err := p.writer.Write(rec); err != nil {
		return &ParquetWriterError{Op: "flush", Err: err}
	}
	p.buffer = p.buffer[:0]
	p.stats.BatchesWritten++
	return nil
}

// buildArrowRecord converts the buffered records into one Arrow record batch
// following the writer schema. Missing or nil fields become nulls.
func (p *ParquetWriter) buildArrowRecord() (arrow.Record, error) {
	builder := array.NewRecordBuilder(p.allocator, p.schema)
	defer builder.Release()

	for i, field := range p.schema.Fields() {
		fb := builder.Field(i)
		for _, record := range p.buffer {
			value, exists := record[field.Name]
			if !exists || value == nil {
				fb.AppendNull()
				p.stats.NullValueCounts[field.Name]++
				continue
			}
			if err := appendValue(fb, field, value); err != nil {
				return nil, err
			}
		}
	}
	return builder.NewRecord(), nil
}

func appendValue(fb array.Builder, field arrow.Field, value interface{}) error {
	switch b := fb.(type) {
	case *array.BooleanBuilder:
		v, ok := value.(bool)
		if !ok {
			return typeMismatch(field.Name, value)
		}
		b.Append(v)
	case *array.Int32Builder:
		v, ok := toInt64(value)
		if !ok {
			return typeMismatch(field.Name, value)
		}
		b.Append(int32(v))
	case *array.Int64Builder:
		v, ok := toInt64(value)
		if !ok {
			return typeMismatch(field.Name, value)
		}
		b.Append(v)
	case *array.Float32Builder:
		v, ok := toFloat64(value)
		if !ok {
			return typeMismatch(field.Name, value)
		}
		b.Append(float32(v))
	case *array.Float64Builder:
		v, ok := toFloat64(value)
		if !ok {
			return typeMismatch(field.Name, value)
		}
		b.Append(v)
	case *array.StringBuilder:
		v, ok := value.(string)
		if !ok {
			return typeMismatch(field.Name, value)
		}
		b.Append(v)
	case *array.BinaryBuilder:
		v, ok := value.([]byte)
		if !ok {
			return typeMismatch(field.Name, value)
		}
		b.Append(v)
	case *array.TimestampBuilder:
		v, ok := value.(time.Time)
		if !ok {
			return typeMismatch(field.Name, value)
		}
		b.Append(arrow.Timestamp(v.UnixMicro()))
	default:
		return fmt.Errorf("unsupported column type %s for field %q", field.Type, field.Name)
	}
	return nil
}

func typeMismatch(field string, value interface{}) error {
	return fmt.Errorf("field %q: value of type %T does not match schema", field, value)
}

// inferSchema derives an Arrow schema from the first non-nil value seen for
// each field across the buffered records. A column that is null throughout
// the first batch cannot be typed and is an error.
func inferSchema(records []platform.Record, fieldOrder []string) (*arrow.Schema, error) {
	types := make(map[string]arrow.DataType)
	var discovered []string
	for _, record := range records {
		for name, value := range record {
			if _, seen := types[name]; seen {
				continue
			}
			if value == nil {
				if !contains(discovered, name) {
					discovered = append(discovered, name)
				}
				continue
			}
			dt, err := arrowType(value)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			types[name] = dt
			if !contains(discovered, name) {
				discovered = append(discovered, name)
			}
		}
	}

	names := orderFields(discovered, fieldOrder)
	fields := make([]arrow.Field, 0, len(names))
	for _, name := range names {
		dt, ok := types[name]
		if !ok {
			return nil, fmt.Errorf("field %q: all values null, cannot infer type", name)
		}
		fields = append(fields, arrow.Field{Name: name, Type: dt, Nullable: true})
	}
	return arrow.NewSchema(fields, nil), nil
}

// orderFields applies the explicit ordering first, then the remaining
// discovered fields sorted by name for a stable schema.
func orderFields(discovered, fieldOrder []string) []string {
	names := make([]string, 0, len(discovered))
	for _, name := range fieldOrder {
		if contains(discovered, name) && !contains(names, name) {
			names = append(names, name)
		}
	}
	rest := make([]string, 0, len(discovered))
	for _, name := range discovered {
		if !contains(names, name) {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

func contains(list []string, name string) bool {
	for _, s := range list {
		if s == name {
			return true
		}
	}
	return false
}

func arrowType(value interface{}) (arrow.DataType, error) {
	switch value.(type) {
	case bool:
		return arrow.FixedWidthTypes.Boolean, nil
	case int8, int16, int32:
		return arrow.PrimitiveTypes.Int32, nil
	case int, int64, uint8, uint16, uint32, uint64:
		return arrow.PrimitiveTypes.Int64, nil
	case float32:
		return arrow.PrimitiveTypes.Float32, nil
	case float64:
		return arrow.PrimitiveTypes.Float64, nil
	case string:
		return arrow.BinaryTypes.String, nil
	case []byte:
		return arrow.BinaryTypes.Binary, nil
	case time.Time:
		return arrow.FixedWidthTypes.Timestamp_us, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", value)
	}
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	default:
		return 0, false
	}
}

func toFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
