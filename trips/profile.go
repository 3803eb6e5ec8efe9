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
	"fmt"
	"time"

	platform "github.com/Blotjarl/nyc-taxi-platform"
	"github.com/Blotjarl/nyc-taxi-platform/filter"
	"github.com/Blotjarl/nyc-taxi-platform/transform"
)

// Profile names accepted by ProfileByName.
const (
	ProfilePassengerDistance = "passenger-distance"
	ProfileDistanceFare      = "distance-fare"
)

// Profile is a named configuration of the cleaning pipeline: which validity
// predicates apply and which columns survive to the output. The two upstream
// data producers differ only in these two respects, so both are expressed as
// profiles of one pipeline rather than separate pipelines.
type Profile struct {
	// Name identifies the profile in configuration and logs.
	Name string
	// ValidityColumns are the columns the validity filter requires to be
	// strictly positive.
	ValidityColumns []string
	// Projection, when non-empty, is the ordered allow-list of output
	// columns. Empty means all columns pass through.
	Projection []string
}

// PassengerDistance returns the default profile: trips must carry at least
// one passenger and cover a positive distance. All columns pass through.
func PassengerDistance() Profile {
	return Profile{
		Name:            ProfilePassengerDistance,
		ValidityColumns: []string{ColPassengerCount, ColTripDistance},
	}
}

// DistanceFare returns the alternate profile for producers that omit
// passenger counts: trips must cover a positive distance and a positive
// fare. Output is projected to DefaultProjection.
func DistanceFare() Profile {
	return Profile{
		Name:            ProfileDistanceFare,
		ValidityColumns: []string{ColTripDistance, ColFareAmount},
		Projection:      DefaultProjection,
	}
}

// ProfileByName resolves a profile name from configuration.
func ProfileByName(name string) (Profile, error) {
	switch name {
	case ProfilePassengerDistance, "":
		return PassengerDistance(), nil
	case ProfileDistanceFare:
		return DistanceFare(), nil
	default:
		return Profile{}, fmt.Errorf("unknown filter profile %q", name)
	}
}

// RequiredColumns returns the input columns the profile cannot run without:
// both timestamps plus the validity columns.
func (p Profile) RequiredColumns() []string {
	cols := []string{ColPickupTime, ColDropoffTime}
	return append(cols, p.ValidityColumns...)
}

// Apply registers the cleaning stages on a pipeline builder, in the fixed
// order: timestamp normalization, validity filter, duration derivation,
// duration outlier filter, then projection if the profile has one.
func (p Profile) Apply(pb *platform.PipelineBuilder) *platform.PipelineBuilder {
	pb.Transform(transform.ParseTime(ColPickupTime, TimeLayout)).
		Transform(transform.ParseTime(ColDropoffTime, TimeLayout)).
		Filter("valid_trips", p.validityFilter()).
		Transform(DurationMinutes()).
		Filter("duration_outliers", filter.Between(ColTripDurationMinutes, MinDurationMinutes, MaxDurationMinutes))
	if len(p.Projection) > 0 {
		pb.Transform(transform.Select(p.Projection...))
	}
	return pb
}

// validityFilter ANDs one Positive predicate per validity column into a
// single stage, so the row-count observation matches the filter as a whole.
func (p Profile) validityFilter() platform.Filter {
	filters := make([]platform.Filter, 0, len(p.ValidityColumns))
	for _, col := range p.ValidityColumns {
		filters = append(filters, filter.Positive(col))
	}
	return allOf(filters...)
}

// DurationMinutes returns the transformer deriving ColTripDurationMinutes
// from the two timestamp columns. Records where either timestamp is missing,
// null, or not a time value get a nil duration, which the outlier filter
// drops.
func DurationMinutes() platform.Transformer {
	return transform.AddField(ColTripDurationMinutes, func(record platform.Record) interface{} {
		pickup, ok := record[ColPickupTime].(time.Time)
		if !ok {
			return nil
		}
		dropoff, ok := record[ColDropoffTime].(time.Time)
		if !ok {
			return nil
		}
		return dropoff.Sub(pickup).Minutes()
	})
}

func allOf(filters ...platform.Filter) platform.Filter {
	return platform.FilterFunc(func(ctx context.Context, record platform.Record) (bool, error) {
		for _, f := range filters {
			include, err := f.ShouldInclude(ctx, record)
			if err != nil {
				return false, err
			}
			if !include {
				return false, nil
			}
		}
		return true, nil
	})
}
