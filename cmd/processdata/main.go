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

// Command processdata is the trip-record cleaning job. It locates the most
// recent raw trip file, filters out invalid trips and duration outliers,
// derives trip_duration_minutes, and writes the cleaned file to the
// processed location.
//
// Unresolved bucket configuration and an empty source location end the run
// cleanly with a logged reason; read and write failures are fatal.
package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	platform "github.com/Blotjarl/nyc-taxi-platform"
	"github.com/Blotjarl/nyc-taxi-platform/config"
	"github.com/Blotjarl/nyc-taxi-platform/locator"
	"github.com/Blotjarl/nyc-taxi-platform/readers"
	"github.com/Blotjarl/nyc-taxi-platform/s3client"
	"github.com/Blotjarl/nyc-taxi-platform/trips"
	"github.com/Blotjarl/nyc-taxi-platform/writers"
)

func main() {
	// Local convenience only; a missing .env is not an error.
	_ = godotenv.Load()

	log := zerolog.New(os.Stderr).With().Timestamp().Str("job", "processdata").Logger()
	ctx := context.Background()

	cfg, err := config.Load(config.Options{})
	if err != nil {
		if errors.Is(err, config.ErrUnresolved) {
			log.Warn().Err(err).Msg("could not determine bucket names, exiting")
			return
		}
		log.Fatal().Err(err).Msg("configuration failed")
	}
	log.Info().
		Str("raw_bucket", cfg.RawBucket).
		Str("processed_bucket", cfg.ProcessedBucket).
		Stringer("resolved_from", cfg.Source).
		Msg("configuration resolved")

	client := newS3Client(ctx, cfg, log)

	source, dest, err := locator.New(client).Resolve(ctx, cfg)
	if err != nil {
		if errors.Is(err, locator.ErrEmptySource) {
			log.Warn().Str("raw_bucket", cfg.RawBucket).Msg("source location is empty, nothing to process")
			return
		}
		log.Fatal().Err(err).Msg("source discovery failed")
	}
	log.Info().Stringer("source", source).Stringer("destination", dest).Msg("locations resolved")

	profile, err := trips.ProfileByName(cfg.FilterProfile)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid filter profile")
	}

	reader, err := openReader(ctx, client, source)
	if err != nil {
		log.Fatal().Err(err).Msg("unreadable source")
	}
	if err := reader.RequireColumns(profile.RequiredColumns()); err != nil {
		log.Fatal().Err(err).Msg("source schema missing required columns")
	}

	writer := openWriter(client, dest, profile, reader, log)

	observer := platform.StageObserverFunc(func(count platform.StageCount) {
		log.Info().
			Str("stage", count.Stage).
			Int64("rows_in", count.In).
			Int64("rows_out", count.Out).
			Msg("filter stage complete")
	})

	pipeline, err := profile.Apply(platform.NewPipeline().From(reader)).
		To(writer).
		WithObserver(observer).
		Build()
	if err != nil {
		log.Fatal().Err(err).Msg("pipeline construction failed")
	}

	if err := pipeline.Execute(ctx); err != nil {
		log.Fatal().Err(err).Msg("pipeline run failed")
	}

	log.Info().
		Int64("records_read", pipeline.RecordsRead()).
		Int64("records_written", pipeline.RecordsWritten()).
		Str("profile", profile.Name).
		Stringer("destination", dest).
		Msg("processing complete")
}

// newS3Client builds the shared client, or returns nil when both locations
// are local directories.
func newS3Client(ctx context.Context, cfg *config.Config, log zerolog.Logger) *s3client.Client {
	if config.IsLocalPath(cfg.RawBucket) && config.IsLocalPath(cfg.ProcessedBucket) {
		return nil
	}
	opts := []s3client.Option{}
	if cfg.Region != "" {
		opts = append(opts, s3client.WithRegion(cfg.Region))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, s3client.WithEndpoint(cfg.Endpoint))
	}
	client, err := s3client.New(ctx, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("s3 client construction failed")
	}
	return client
}

func openReader(ctx context.Context, client *s3client.Client, source locator.Location) (*readers.ParquetReader, error) {
	if config.IsLocalPath(source.Bucket) {
		return readers.NewParquetReader(filepath.Join(source.Bucket, source.Key))
	}
	return readers.NewS3ParquetReader(ctx, client, source.Bucket, source.Key)
}

func openWriter(client *s3client.Client, dest locator.Location, profile trips.Profile, reader *readers.ParquetReader, log zerolog.Logger) platform.DataSink {
	// Keep the output column order aligned with the input, with the derived
	// duration column last; a projecting profile dictates its own order.
	order := profile.Projection
	if len(order) == 0 {
		hasDuration := false
		for _, field := range reader.Schema().Fields() {
			order = append(order, field.Name)
			if field.Name == trips.ColTripDurationMinutes {
				hasDuration = true
			}
		}
		if !hasDuration {
			order = append(order, trips.ColTripDurationMinutes)
		}
	}

	if config.IsLocalPath(dest.Bucket) {
		writer, err := writers.NewParquetWriter(filepath.Join(dest.Bucket, dest.Key), writers.WithFieldOrder(order))
		if err != nil {
			log.Fatal().Err(err).Msg("cannot create destination file")
		}
		return writer
	}
	return writers.NewS3ParquetWriter(client, dest.Bucket, dest.Key, writers.WithFieldOrder(order))
}
