// Package domain models the climate telemetry that flows from the producer,
// through Kafka, into CrateDB.
//
// # Source Documents
//
// Each broker message is one "combined" JSON document describing a single grid
// point at a single instant:
//
//	{"timestamp": 1694500000000000000, "temperature": 300.15, "u10": 1.2,
//	 "v10": -0.5, "pressure": 101325.0, "latitude": 52.5, "longitude": 13.4}
//
// Values may arrive as JSON numbers or as numeric strings.
//
// Units:
//
//	timestamp    nanoseconds since the Unix epoch, integral
//	temperature  Kelvin (2 m air temperature)
//	u10, v10     m/s, eastward and northward wind components at 10 m
//	pressure     Pa (surface pressure)
//	latitude     degrees north
//	longitude    degrees east
//
// # Row Conversion
//
// [MapRow] converts timestamps to seconds (ns / 1e9) and temperature to Celsius
// (K - 273.15). No other field is converted. A payload becomes a row only if all
// seven fields are numeric; there are no partial rows.
//
// # Delivery Encoding
//
// The managed event source delivers message bodies base64-encoded under a
// "value" key. [DecodeRecord] reverses that and never fails: anything that is not
// a JSON object is kept as a RawText payload and rejected later by [MapRow].
package domain
