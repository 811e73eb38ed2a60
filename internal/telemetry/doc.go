// Package telemetry records device state history in InfluxDB.
//
// Each distinct state becomes one "device_state" point tagged with the
// node ID. Booleans are written as 0/1 so they chart and aggregate like the
// temperature. Door transitions are also written as "door_event" points.
// Writes go through the influxdb client's non-blocking batch API.
package telemetry
