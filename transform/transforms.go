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

package transform

import (
	"context"
	"fmt"
	"time"

	platform "github.com/Blotjarl/nyc-taxi-platform"
)

// Package transform provides reusable record transformation functions for
// trip record pipelines: projection, field derivation, and type
// normalization.

// Select creates a transformer that restricts the record to the given fields,
// in the given order. Fields absent from the record are silently skipped, so
// an allow-list may name optional columns without error.
func Select(fields ...string) platform.Transformer {
	return platform.TransformFunc(func(ctx context.Context, record platform.Record) (platform.Record, error) {
		result := make(platform.Record, len(fields))
		for _, field := range fields {
			if value, exists := record[field]; exists {
				result[field] = value
			}
		}
		return result, nil
	})
}

// AddField creates a transformer that adds a computed field to each record.
// The compute function receives the record as it stands at this stage.
func AddField(field string, fn func(record platform.Record) interface{}) platform.Transformer {
	return platform.TransformFunc(func(ctx context.Context, record platform.Record) (platform.Record, error) {
		result := make(platform.Record, len(record)+1)
		for k, v := range record {
			result[k] = v
		}
		result[field] = fn(record)
		return result, nil
	})
}

// RemoveField creates a transformer that drops a field from each record.
// Removing a field that is not present is a no-op.
func RemoveField(field string) platform.Transformer {
	return platform.TransformFunc(func(ctx context.Context, record platform.Record) (platform.Record, error) {
		result := make(platform.Record, len(record))
		for k, v := range record {
			if k != field {
				result[k] = v
			}
		}
		return result, nil
	})
}

// ParseTime creates a transformer that normalizes a field to time.Time using
// the given layout. Values already of type time.Time pass through unchanged;
// nil values are left as nil (downstream filters drop them). Any other
// non-string value, or a string that does not match the layout, is an error.
func ParseTime(field, layout string) platform.Transformer {
	return platform.TransformFunc(func(ctx context.Context, record platform.Record) (platform.Record, error) {
		value, exists := record[field]
		if !exists || value == nil {
			return record, nil
		}
		if _, ok := value.(time.Time); ok {
			return record, nil
		}
		str, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("parse time %q: unsupported type %T", field, value)
		}
		parsed, err := time.Parse(layout, str)
		if err != nil {
			return nil, fmt.Errorf("parse time %q: %w", field, err)
		}
		result := make(platform.Record, len(record))
		for k, v := range record {
			result[k] = v
		}
		result[field] = parsed
		return result, nil
	})
}
