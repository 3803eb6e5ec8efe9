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

// Package trips carries the domain contract for TLC yellow-cab trip records:
// column names as they appear in the published Parquet files, the derived
// duration column, and the named cleaning profiles.

// Column names of the raw trip record schema.
const (
	ColPickupTime     = "tpep_pickup_datetime"
	ColDropoffTime    = "tpep_dropoff_datetime"
	ColPassengerCount = "passenger_count"
	ColTripDistance   = "trip_distance"
	ColFareAmount     = "fare_amount"
	ColVendorID       = "VendorID"
	ColRatecodeID     = "RatecodeID"
	ColStoreFwdFlag   = "store_and_fwd_flag"
	ColPULocationID   = "PULocationID"
	ColDOLocationID   = "DOLocationID"
	ColPaymentType    = "payment_type"
	ColTipAmount      = "tip_amount"
	ColTollsAmount    = "tolls_amount"
	ColTotalAmount    = "total_amount"
)

// ColTripDurationMinutes is the derived column: dropoff minus pickup in
// fractional minutes, float64.
const ColTripDurationMinutes = "trip_duration_minutes"

// Trip duration bounds for the outlier filter, in minutes, inclusive.
const (
	MinDurationMinutes = 1.0
	MaxDurationMinutes = 120.0
)

// TimeLayout is the layout used to normalize string-typed timestamp columns.
// Parquet sources deliver native timestamps and never hit this path.
const TimeLayout = "2006-01-02 15:04:05"

// DefaultProjection is the ordered allow-list of output columns used by
// profiles that project. Columns absent from the input schema are skipped
// without error.
var DefaultProjection = []string{
	ColPickupTime,
	ColDropoffTime,
	ColPassengerCount,
	ColTripDistance,
	ColFareAmount,
	ColPULocationID,
	ColDOLocationID,
	ColPaymentType,
	ColTipAmount,
	ColTotalAmount,
	ColTripDurationMinutes,
}
