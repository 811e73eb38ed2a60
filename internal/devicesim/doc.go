// Package devicesim emulates the node firmware over HTTP for local
// development and tests.
//
// Sim serves the same endpoints as the microcontroller: one GET path per
// command token, /STATUS, and /SET_THRESHOLD:<value>. Every accepted
// command answers with the full status line:
//
//	TEMP:24.00,DOOR:CLOSED,LAMP:OFF,PLUG:OFF,ALARM:SAFE,THRESHOLD:27.0
//
// ALARM reads ALARM when the temperature is above the firmware threshold or
// the app has forced the buzzer on with ALARM_ON. Test hooks set the
// sensors, add response latency, or make every request fail with a status
// code.
package devicesim
