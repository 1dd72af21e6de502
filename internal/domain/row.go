package domain

import (
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"
)

const (
	// KelvinOffset converts Kelvin to degrees Celsius.
	KelvinOffset = 273.15

	// nanosPerSecond converts the source timestamps, which are in nanoseconds.
	nanosPerSecond = 1_000_000_000
)

// Rejection reasons.
const (
	ReasonNonNumeric = "non-numeric field"
	ReasonNotObject  = "payload is not a JSON object"
	ReasonNoValidRow = "No valid rows"
)

// Required payload keys, in the order they are validated.
const (
	FieldTimestamp   = "timestamp"
	FieldTemperature = "temperature"
	FieldU10         = "u10"
	FieldV10         = "v10"
	FieldPressure    = "pressure"
	FieldLatitude    = "latitude"
	FieldLongitude   = "longitude"
)

// ClimateRow is one validated observation, already converted to store units.
type ClimateRow struct {
	TimestampSeconds   float64
	Longitude          float64
	Latitude           float64
	TemperatureCelsius float64
	U10                float64
	V10                float64
	Pressure           float64
}

// Values returns the nine positional bind values of the insert statement.
// Longitude and latitude appear twice: once for the geo_point column and once
// inside the data object.
func (r ClimateRow) Values() []any {
	return []any{
		r.TimestampSeconds,
		r.Longitude, r.Latitude,
		r.Longitude, r.Latitude,
		r.TemperatureCelsius,
		r.U10, r.V10, r.Pressure,
	}
}

// RowRejection records why the payload at Index could not become a row.
type RowRejection struct {
	Index   int     `json:"index"`
	Payload Payload `json:"payload"`
	Reason  string  `json:"error"`
	Field   string  `json:"field,omitempty"`
}

// MapRow validates a payload and converts it into a ClimateRow. Every required
// field must coerce to a number; otherwise the whole payload is rejected.
func MapRow(index int, p Payload) (ClimateRow, *RowRejection) {
	fields, ok := p.Fields()
	if !ok {
		return ClimateRow{}, &RowRejection{Index: index, Payload: p, Reason: ReasonNotObject}
	}

	reject := func(field string) (ClimateRow, *RowRejection) {
		return ClimateRow{}, &RowRejection{Index: index, Payload: p, Reason: ReasonNonNumeric, Field: field}
	}

	ts, ok := coerceTimestamp(fields[FieldTimestamp])
	if !ok {
		return reject(FieldTimestamp)
	}

	var values [6]float64
	for i, key := range []string{FieldTemperature, FieldU10, FieldV10, FieldPressure, FieldLatitude, FieldLongitude} {
		v, ok := coerceFloat(fields[key])
		if !ok {
			return reject(key)
		}
		values[i] = v
	}

	return ClimateRow{
		TimestampSeconds:   ts,
		TemperatureCelsius: values[0] - KelvinOffset,
		U10:                values[1],
		V10:                values[2],
		Pressure:           values[3],
		Latitude:           values[4],
		Longitude:          values[5],
	}, nil
}

// MapPayloads partitions payloads into valid rows and rejections, both in input order.
func MapPayloads(payloads []Payload) ([]ClimateRow, []RowRejection) {
	rows := make([]ClimateRow, 0, len(payloads))
	var rejections []RowRejection
	for i, p := range payloads {
		row, rej := MapRow(i, p)
		if rej != nil {
			rejections = append(rejections, *rej)
			continue
		}
		rows = append(rows, row)
	}
	return rows, rejections
}

// coerceTimestamp accepts an integral nanosecond count as a JSON number or a
// decimal integer string and returns seconds. Fractional JSON numbers are
// truncated toward zero. The division is exact up to the final rounding.
func coerceTimestamp(v any) (float64, bool) {
	var n *big.Int
	switch t := v.(type) {
	case json.Number:
		n = parseIntegral(t.String())
	case string:
		n, _ = new(big.Int).SetString(strings.TrimSpace(t), 10)
	case float64:
		n = truncateFloat(t)
	case int:
		n = big.NewInt(int64(t))
	case int64:
		n = big.NewInt(t)
	}
	if n == nil {
		return 0, false
	}
	seconds, _ := new(big.Rat).SetFrac(n, big.NewInt(nanosPerSecond)).Float64()
	return seconds, true
}

func parseIntegral(s string) *big.Int {
	if n, ok := new(big.Int).SetString(s, 10); ok {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return truncateFloat(f)
}

func truncateFloat(f float64) *big.Int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n, _ := big.NewFloat(math.Trunc(f)).Int(nil)
	return n
}

// coerceFloat accepts a JSON number or a string holding a float.
func coerceFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		return parseFloat(t.String())
	case string:
		return parseFloat(strings.TrimSpace(t))
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err == nil {
		return f, true
	}
	// Out-of-range literals saturate to ±Inf rather than failing.
	var numErr *strconv.NumError
	if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
		return f, true
	}
	return 0, false
}
