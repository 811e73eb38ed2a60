// Package mqttstate bridges the panel onto the home MQTT bus.
//
// Outbound, it publishes the device state (retained) and each activity
// entry under the node's topic tree. Inbound, it accepts intents on
// homepanel/<node>/command/<name> and forwards them to the device session,
// so other home automation can drive the node without the view layer.
//
// Topics:
//
//	homepanel/<node>/state              retained JSON snapshot, newest wins
//	homepanel/<node>/activity           one JSON entry per door transition
//	homepanel/<node>/command/lamp       ON | OFF | true | false | {"on": bool}
//	homepanel/<node>/command/plug       same as lamp
//	homepanel/<node>/command/alarm      same as lamp
//	homepanel/<node>/command/toggle     any payload
//	homepanel/<node>/command/threshold  27.5 | {"celsius": 27.5}
//	homepanel/<node>/command/status     any payload, triggers a status poll
//
// Publishing happens on the bridge's own goroutine; store notifications
// only hand over a snapshot. Commands run one at a time, in arrival order.
package mqttstate
