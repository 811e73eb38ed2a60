// Package influxdb records panel telemetry in InfluxDB v2.
//
// The panel writes one point per device state change so temperature and
// relay history can be charted outside the panel. InfluxDB is optional;
// when influxdb.enabled is false Connect returns ErrDisabled and callers
// skip telemetry.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//
//	client.SetOnError(func(err error) { logger.Warn("telemetry write failed", "error", err) })
//	client.WritePoint("device_state", tags, fields, time.Now())
//
// The token should come from HOMEPANEL_INFLUXDB_TOKEN rather than the YAML file.
package influxdb
