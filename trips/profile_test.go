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

package trips

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platform "github.com/Blotjarl/nyc-taxi-platform"
)

type sliceSource struct {
	records []platform.Record
	idx     int
}

func (s *sliceSource) Read(ctx context.Context) (platform.Record, error) {
	if s.idx >= len(s.records) {
		return nil, io.EOF
	}
	record := s.records[s.idx]
	s.idx++
	return record, nil
}

func (s *sliceSource) Close() error { return nil }

type sliceSink struct {
	records []platform.Record
}

func (s *sliceSink) Write(ctx context.Context, record platform.Record) error {
	s.records = append(s.records, record)
	return nil
}

func (s *sliceSink) Flush() error { return nil }
func (s *sliceSink) Close() error { return nil }

func runProfile(t *testing.T, profile Profile, records []platform.Record) (*platform.Pipeline, []platform.Record) {
	t.Helper()
	sink := &sliceSink{}
	p, err := profile.Apply(platform.NewPipeline().From(&sliceSource{records: records})).
		To(sink).
		Build()
	require.NoError(t, err)
	require.NoError(t, p.Execute(context.Background()))
	return p, sink.records
}

func trip(pickup, dropoff time.Time, passengers int64, distance float64) platform.Record {
	return platform.Record{
		ColPickupTime:     pickup,
		ColDropoffTime:    dropoff,
		ColPassengerCount: passengers,
		ColTripDistance:   distance,
	}
}

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestPassengerDistance_RetainsValidTrip(t *testing.T) {
	// 60 minute trip, one passenger, 2 miles.
	records := []platform.Record{trip(base, base.Add(time.Hour), 1, 2.0)}

	_, out := runProfile(t, PassengerDistance(), records)

	require.Len(t, out, 1)
	assert.InDelta(t, 60.0, out[0][ColTripDurationMinutes].(float64), 1e-9)
}

func TestPassengerDistance_ExcludesZeroPassengers(t *testing.T) {
	records := []platform.Record{trip(base, base.Add(time.Hour), 0, 2.0)}

	_, out := runProfile(t, PassengerDistance(), records)
	assert.Empty(t, out)
}

func TestPassengerDistance_ExcludesZeroDistance(t *testing.T) {
	records := []platform.Record{trip(base, base.Add(time.Hour), 1, 0)}

	_, out := runProfile(t, PassengerDistance(), records)
	assert.Empty(t, out)
}

func TestPassengerDistance_ExcludesShortTrip(t *testing.T) {
	// 30 second trip: duration 0.5 minutes, below the one-minute floor.
	records := []platform.Record{trip(base, base.Add(30*time.Second), 1, 2.0)}

	_, out := runProfile(t, PassengerDistance(), records)
	assert.Empty(t, out)
}

func TestPassengerDistance_ExcludesLongTrip(t *testing.T) {
	records := []platform.Record{trip(base, base.Add(121*time.Minute), 1, 2.0)}

	_, out := runProfile(t, PassengerDistance(), records)
	assert.Empty(t, out)
}

func TestPassengerDistance_RetainsBoundaryDurations(t *testing.T) {
	records := []platform.Record{
		trip(base, base.Add(time.Minute), 1, 2.0),     // exactly 1 minute
		trip(base, base.Add(120*time.Minute), 1, 2.0), // exactly 120 minutes
	}

	_, out := runProfile(t, PassengerDistance(), records)
	require.Len(t, out, 2)
	assert.InDelta(t, 1.0, out[0][ColTripDurationMinutes].(float64), 1e-9)
	assert.InDelta(t, 120.0, out[1][ColTripDurationMinutes].(float64), 1e-9)
}

// Dropoff before pickup yields a negative duration; the outlier filter drops
// it, there is no separate error class.
func TestPassengerDistance_ExcludesNegativeDuration(t *testing.T) {
	records := []platform.Record{trip(base.Add(time.Hour), base, 1, 2.0)}

	p, out := runProfile(t, PassengerDistance(), records)
	assert.Empty(t, out)

	counts := p.StageCounts()
	require.Len(t, counts, 2)
	assert.Equal(t, int64(1), counts[0].Out, "validity filter keeps the row")
	assert.Equal(t, int64(0), counts[1].Out, "outlier filter drops it")
}

// Nulls in predicate columns exclude the row: comparisons against null are
// false, never errors.
func TestPassengerDistance_ExcludesNullPredicateColumns(t *testing.T) {
	records := []platform.Record{
		{
			ColPickupTime:     base,
			ColDropoffTime:    base.Add(time.Hour),
			ColPassengerCount: nil,
			ColTripDistance:   2.0,
		},
		{
			ColPickupTime:     nil,
			ColDropoffTime:    base.Add(time.Hour),
			ColPassengerCount: int64(1),
			ColTripDistance:   2.0,
		},
	}

	_, out := runProfile(t, PassengerDistance(), records)
	assert.Empty(t, out)
}

func TestPassengerDistance_DurationMatchesTimestamps(t *testing.T) {
	durations := []time.Duration{
		90 * time.Second,
		17 * time.Minute,
		119*time.Minute + 59*time.Second,
	}
	records := make([]platform.Record, 0, len(durations))
	for _, d := range durations {
		records = append(records, trip(base, base.Add(d), 1, 1.0))
	}

	_, out := runProfile(t, PassengerDistance(), records)
	require.Len(t, out, len(durations))
	for i, d := range durations {
		assert.InDelta(t, d.Minutes(), out[i][ColTripDurationMinutes].(float64), 1e-9)
	}
}

func TestPassengerDistance_ParsesStringTimestamps(t *testing.T) {
	records := []platform.Record{{
		ColPickupTime:     "2024-01-01 00:00:00",
		ColDropoffTime:    "2024-01-01 01:00:00",
		ColPassengerCount: int64(1),
		ColTripDistance:   2.0,
	}}

	_, out := runProfile(t, PassengerDistance(), records)
	require.Len(t, out, 1)
	assert.InDelta(t, 60.0, out[0][ColTripDurationMinutes].(float64), 1e-9)
}

func TestPassengerDistance_PassesAllColumnsThrough(t *testing.T) {
	record := trip(base, base.Add(time.Hour), 1, 2.0)
	record[ColPULocationID] = int64(132)
	record[ColPaymentType] = int64(1)
	record["extra_producer_column"] = "kept"

	_, out := runProfile(t, PassengerDistance(), []platform.Record{record})
	require.Len(t, out, 1)
	assert.Equal(t, int64(132), out[0][ColPULocationID])
	assert.Equal(t, "kept", out[0]["extra_producer_column"])
}

func TestDistanceFare_FiltersOnFareNotPassengers(t *testing.T) {
	valid := trip(base, base.Add(time.Hour), 0, 2.0) // zero passengers is fine here
	valid[ColFareAmount] = 15.0

	noFare := trip(base, base.Add(time.Hour), 1, 2.0)
	noFare[ColFareAmount] = 0.0

	_, out := runProfile(t, DistanceFare(), []platform.Record{valid, noFare})
	require.Len(t, out, 1)
	assert.Equal(t, 15.0, out[0][ColFareAmount])
}

func TestDistanceFare_ProjectsToAllowList(t *testing.T) {
	record := trip(base, base.Add(time.Hour), 1, 2.0)
	record[ColFareAmount] = 15.0
	record[ColPULocationID] = int64(132)
	record["extra_producer_column"] = "dropped"

	_, out := runProfile(t, DistanceFare(), []platform.Record{record})
	require.Len(t, out, 1)

	assert.NotContains(t, out[0], "extra_producer_column")
	for field := range out[0] {
		assert.Contains(t, DefaultProjection, field)
	}
	assert.Contains(t, out[0], ColTripDurationMinutes)
}

func TestDurationMinutes_NilWhenTimestampMissing(t *testing.T) {
	out, err := DurationMinutes().Transform(context.Background(), platform.Record{
		ColPickupTime: base,
	})
	require.NoError(t, err)
	assert.Nil(t, out[ColTripDurationMinutes])
}

func TestProfileByName(t *testing.T) {
	p, err := ProfileByName("")
	require.NoError(t, err)
	assert.Equal(t, ProfilePassengerDistance, p.Name)

	p, err = ProfileByName(ProfileDistanceFare)
	require.NoError(t, err)
	assert.Equal(t, ProfileDistanceFare, p.Name)

	_, err = ProfileByName("bogus")
	assert.Error(t, err)
}

func TestRequiredColumns(t *testing.T) {
	assert.Equal(t,
		[]string{ColPickupTime, ColDropoffTime, ColPassengerCount, ColTripDistance},
		PassengerDistance().RequiredColumns())
	assert.Equal(t,
		[]string{ColPickupTime, ColDropoffTime, ColTripDistance, ColFareAmount},
		DistanceFare().RequiredColumns())
}
