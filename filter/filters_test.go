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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platform "github.com/Blotjarl/nyc-taxi-platform"
)

func include(t *testing.T, f platform.Filter, record platform.Record) bool {
	t.Helper()
	ok, err := f.ShouldInclude(context.Background(), record)
	require.NoError(t, err)
	return ok
}

func TestPositive(t *testing.T) {
	f := Positive("passenger_count")

	tests := []struct {
		name     string
		record   platform.Record
		expected bool
	}{
		{"positive int64", platform.Record{"passenger_count": int64(1)}, true},
		{"positive float64", platform.Record{"passenger_count": 2.5}, true},
		{"zero", platform.Record{"passenger_count": int64(0)}, false},
		{"negative", platform.Record{"passenger_count": int64(-1)}, false},
		{"null value", platform.Record{"passenger_count": nil}, false},
		{"missing field", platform.Record{"other": int64(3)}, false},
		{"non-numeric", platform.Record{"passenger_count": "two"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, include(t, f, tt.record))
		})
	}
}

func TestBetween_InclusiveBounds(t *testing.T) {
	f := Between("trip_duration_minutes", 1, 120)

	tests := []struct {
		name     string
		value    interface{}
		expected bool
	}{
		{"below lower bound", 0.5, false},
		{"at lower bound", 1.0, true},
		{"inside", 60.0, true},
		{"at upper bound", 120.0, true},
		{"above upper bound", 120.01, false},
		{"negative", -3.0, false},
		{"null", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := platform.Record{"trip_duration_minutes": tt.value}
			assert.Equal(t, tt.expected, include(t, f, record))
		})
	}
}

func TestBetween_NumericWidths(t *testing.T) {
	f := Between("v", 1, 120)

	for _, value := range []interface{}{
		int(60), int8(60), int16(60), int32(60), int64(60),
		uint8(60), uint16(60), uint32(60), uint64(60),
		float32(60), float64(60),
	} {
		assert.True(t, include(t, f, platform.Record{"v": value}), "value %T", value)
	}
}

func TestGreaterThan(t *testing.T) {
	f := GreaterThan("fare_amount", 0)

	assert.True(t, include(t, f, platform.Record{"fare_amount": 12.5}))
	assert.False(t, include(t, f, platform.Record{"fare_amount": 0.0}))
	assert.False(t, include(t, f, platform.Record{"fare_amount": -5.0}))
}

func TestNotNull(t *testing.T) {
	f := NotNull("store_and_fwd_flag")

	assert.True(t, include(t, f, platform.Record{"store_and_fwd_flag": "N"}))
	assert.False(t, include(t, f, platform.Record{"store_and_fwd_flag": ""}))
	assert.False(t, include(t, f, platform.Record{"store_and_fwd_flag": nil}))
	assert.False(t, include(t, f, platform.Record{}))
}
