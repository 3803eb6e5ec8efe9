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

package taxiplatform

import (
	"context"
	"fmt"
	"io"
)

// Package taxiplatform provides the streaming pipeline used by the trip
// record cleaning job.
//
// A Pipeline reads records one at a time from its DataSource, pushes each
// through an ordered list of stages (transformations and filters, in the
// order they were registered), and writes surviving records to its DataSink.
// Stage order is preserved: a filter registered after a derivation sees the
// derived field; one registered before it does not.
//
// Example usage:
//
//	p, err := taxiplatform.NewPipeline().
//	    From(reader).
//	    Transform(transform.ParseTime("tpep_pickup_datetime", time.RFC3339)).
//	    Where("valid_trip", validTrip).
//	    To(writer).
//	    Build()
//	if err != nil { log.Fatal().Err(err).Send() }
//	if err := p.Execute(context.Background()); err != nil { log.Fatal().Err(err).Send() }

type stageKind int

const (
	stageTransform stageKind = iota
	stageFilter
)

// stage is one step of the pipeline. Exactly one of transformer/filter is set.
type stage struct {
	kind        stageKind
	name        string
	transformer Transformer
	filter      Filter
	in          int64
	out         int64
}

// PipelineBuilder provides a fluent API for constructing transformation pipelines.
// Use NewPipeline() to create a new builder, then chain From, Transform, Filter,
// To, and configuration methods.
type PipelineBuilder struct {
	pipeline *Pipeline
}

// NewPipeline creates a new PipelineBuilder for constructing a pipeline.
func NewPipeline() *PipelineBuilder {
	return &PipelineBuilder{
		pipeline: &Pipeline{
			stages:   make([]*stage, 0),
			strategy: FailFast,
		},
	}
}

// From sets the DataSource for the pipeline.
func (pb *PipelineBuilder) From(source DataSource) *PipelineBuilder {
	pb.pipeline.source = source
	return pb
}

// Transform appends a Transformer stage to the pipeline.
func (pb *PipelineBuilder) Transform(transformer Transformer) *PipelineBuilder {
	pb.pipeline.stages = append(pb.pipeline.stages, &stage{
		kind:        stageTransform,
		name:        fmt.Sprintf("transform_%d", len(pb.pipeline.stages)),
		transformer: transformer,
	})
	return pb
}

// Filter appends a named Filter stage to the pipeline. The name identifies
// the stage in row-count observations.
func (pb *PipelineBuilder) Filter(name string, filter Filter) *PipelineBuilder {
	pb.pipeline.stages = append(pb.pipeline.stages, &stage{
		kind:   stageFilter,
		name:   name,
		filter: filter,
	})
	return pb
}

// Map appends a mapping transformation using a plain function.
func (pb *PipelineBuilder) Map(fn func(ctx context.Context, record Record) (Record, error)) *PipelineBuilder {
	return pb.Transform(TransformFunc(fn))
}

// Where appends a named filtering condition using a plain function.
func (pb *PipelineBuilder) Where(name string, fn func(ctx context.Context, record Record) (bool, error)) *PipelineBuilder {
	return pb.Filter(name, FilterFunc(fn))
}

// To sets the DataSink for the pipeline.
func (pb *PipelineBuilder) To(sink DataSink) *PipelineBuilder {
	pb.pipeline.sink = sink
	return pb
}

// WithErrorStrategy sets the error handling strategy for the pipeline.
func (pb *PipelineBuilder) WithErrorStrategy(strategy ErrorStrategy) *PipelineBuilder {
	pb.pipeline.strategy = strategy
	return pb
}

// WithErrorHandler sets a custom error handler for the pipeline.
func (pb *PipelineBuilder) WithErrorHandler(handler ErrorHandler) *PipelineBuilder {
	pb.pipeline.errorHandler = handler
	return pb
}

// WithObserver sets the StageObserver notified with per-stage row counts
// once the run completes.
func (pb *PipelineBuilder) WithObserver(observer StageObserver) *PipelineBuilder {
	pb.pipeline.observer = observer
	return pb
}

// Build validates and constructs the Pipeline from the builder.
func (pb *PipelineBuilder) Build() (*Pipeline, error) {
	if pb.pipeline.source == nil {
		return nil, fmt.Errorf("pipeline requires a data source")
	}
	if pb.pipeline.sink == nil {
		return nil, fmt.Errorf("pipeline requires a data sink")
	}
	return pb.pipeline, nil
}

// Pipeline is a single-pass streaming run from source to sink.
//
// Use Execute to process all records. A Pipeline is single-use: Execute
// drains the source and closes both endpoints.
type Pipeline struct {
	stages       []*stage
	source       DataSource
	sink         DataSink
	strategy     ErrorStrategy
	errorHandler ErrorHandler
	observer     StageObserver
	recordsRead  int64
	written      int64
	collected    []error
	closed       bool
}

// Execute runs the pipeline, processing all records from source to sink.
//
// Records flow through the stages in registration order; a record dropped by
// a filter never reaches later stages. Error handling is governed by the
// configured ErrorStrategy and ErrorHandler. After the source is drained the
// observer, if any, receives one StageCount per filter stage.
//
// Sink Flush and Close errors are part of the run result: sinks that defer
// their actual write to Close (the S3 uploader, the Parquet footer) would
// otherwise fail invisibly.
func (p *Pipeline) Execute(ctx context.Context) error {
	// Safety net for the error returns inside the loop; the happy path
	// closes explicitly below so endpoint errors propagate.
	defer p.closeEndpoints()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		record, err := p.source.Read(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			if err := p.handleError(ctx, record, err); err != nil {
				return err
			}
			continue
		}
		if len(record) == 0 {
			continue
		}
		p.recordsRead++

		out, included, err := p.runStages(ctx, record)
		if err != nil {
			if err := p.handleError(ctx, record, err); err != nil {
				return err
			}
			continue
		}
		if !included || len(out) == 0 {
			continue
		}

		if err := p.sink.Write(ctx, out); err != nil {
			if err := p.handleError(ctx, out, err); err != nil {
				return err
			}
			continue
		}
		p.written++
	}

	p.notifyObserver()
	return p.closeEndpoints()
}

// closeEndpoints closes the source and sink exactly once, returning the
// first failure. The sink is flushed before it is closed.
func (p *Pipeline) closeEndpoints() error {
	if p.closed {
		return nil
	}
	p.closed = true

	var firstErr error
	if p.source != nil {
		if err := p.source.Close(); err != nil {
			firstErr = err
		}
	}
	if p.sink != nil {
		if err := p.sink.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := p.sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// RecordsRead returns the number of non-empty records drained from the source.
func (p *Pipeline) RecordsRead() int64 {
	return p.recordsRead
}

// RecordsWritten returns the number of records accepted by the sink.
func (p *Pipeline) RecordsWritten() int64 {
	return p.written
}

// StageCounts returns the per-filter-stage row counts accumulated so far,
// in stage order.
func (p *Pipeline) StageCounts() []StageCount {
	counts := make([]StageCount, 0, len(p.stages))
	for _, s := range p.stages {
		if s.kind != stageFilter {
			continue
		}
		counts = append(counts, StageCount{Stage: s.name, In: s.in, Out: s.out})
	}
	return counts
}

// runStages pushes one record through every stage in order. Returns the
// transformed record and whether it survived all filters.
func (p *Pipeline) runStages(ctx context.Context, record Record) (Record, bool, error) {
	current := record
	for _, s := range p.stages {
		switch s.kind {
		case stageTransform:
			transformed, err := s.transformer.Transform(ctx, current)
			if err != nil {
				return nil, false, err
			}
			current = transformed
		case stageFilter:
			s.in++
			include, err := s.filter.ShouldInclude(ctx, current)
			if err != nil {
				return nil, false, err
			}
			if !include {
				return current, false, nil
			}
			s.out++
		}
	}
	return current, true, nil
}

func (p *Pipeline) notifyObserver() {
	if p.observer == nil {
		return
	}
	for _, count := range p.StageCounts() {
		p.observer.StageComplete(count)
	}
}

// CollectedErrors returns the record errors gathered under the
// CollectErrors strategy, in encounter order.
func (p *Pipeline) CollectedErrors() []error {
	return p.collected
}

// handleError handles errors according to the pipeline's error strategy and handler.
func (p *Pipeline) handleError(ctx context.Context, record Record, err error) error {
	switch p.strategy {
	case FailFast:
		return err
	case SkipErrors:
		if p.errorHandler != nil {
			return p.errorHandler.HandleError(ctx, record, err)
		}
		return nil
	case CollectErrors:
		p.collected = append(p.collected, err)
		if p.errorHandler != nil {
			return p.errorHandler.HandleError(ctx, record, err)
		}
		return nil
	default:
		return err
	}
}
