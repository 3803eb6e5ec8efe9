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

package filter

import (
	"context"

	platform "github.com/Blotjarl/nyc-taxi-platform"
)

// Package filter provides reusable, composable record filtering functions for
// trip record pipelines.
//
// All predicates treat a missing or null field as a failed comparison: the
// record is excluded, never errored. The same applies to values that are not
// numeric where a numeric comparison is requested. This mirrors the
// null-semantics of the columnar sources these filters run against.

// NotNull creates a filter that excludes records where the specified field is nil or absent.
func NotNull(field string) platform.Filter {
	return platform.FilterFunc(func(ctx context.Context, record platform.Record) (bool, error) {
		value, exists := record[field]
		if !exists || value == nil {
			return false, nil
		}
		if str, ok := value.(string); ok && str == "" {
			return false, nil
		}
		return true, nil
	})
}

// GreaterThan creates a filter that includes records where the numeric field
// is strictly greater than min. Missing, null, or non-numeric values exclude
// the record.
func GreaterThan(field string, min float64) platform.Filter {
	return platform.FilterFunc(func(ctx context.Context, record platform.Record) (bool, error) {
		v, ok := numericValue(record, field)
		if !ok {
			return false, nil
		}
		return v > min, nil
	})
}

// Positive creates a filter that includes records where the numeric field is
// strictly greater than zero.
func Positive(field string) platform.Filter {
	return GreaterThan(field, 0)
}

// Between creates a filter that includes records where the numeric field lies
// in [lo, hi], inclusive on both ends. Missing, null, or non-numeric values
// exclude the record.
func Between(field string, lo, hi float64) platform.Filter {
	return platform.FilterFunc(func(ctx context.Context, record platform.Record) (bool, error) {
		v, ok := numericValue(record, field)
		if !ok {
			return false, nil
		}
		return v >= lo && v <= hi, nil
	})
}

// numericValue extracts field as float64, covering the numeric types the
// Parquet readers produce.
func numericValue(record platform.Record, field string) (float64, bool) {
	value, exists := record[field]
	if !exists || value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}
