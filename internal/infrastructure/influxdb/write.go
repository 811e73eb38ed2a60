package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WritePoint queues one point. Tags should be low cardinality (node, field
// names); values go in fields. Dropped silently when not connected.
//
// Example:
//
//	client.WritePoint("device_state",
//	    map[string]string{"node": "node-01"},
//	    map[string]any{"temperature_c": 24.5, "lamp_on": 1},
//	    time.Now())
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	if !c.IsConnected() || len(fields) == 0 {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}
