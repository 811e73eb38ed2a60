// Package device models the home automation node the panel controls: a
// lamp relay, a plug relay, a door sensor, a temperature sensor and a
// buzzer behind a microcontroller that speaks a plain-text HTTP protocol.
//
// # Wire format
//
// Commands are single path tokens (GET /LAMP_ON, GET /SET_THRESHOLD:30.0).
// Every response body is one status line of comma-separated KEY:VALUE
// pairs:
//
//	TEMP:24.50,DOOR:CLOSED,LAMP:ON,PLUG:OFF,ALARM:SAFE,THRESHOLD:27.0
//
// EncodeCommand and DecodeStatus translate between the two. Decoding is
// lenient: it yields a Partial holding whatever it could read, plus a
// DecodeWarning per malformed numeric field.
//
// # State
//
// Store keeps the current State, merges Partials into it and notifies
// subscribers synchronously, in subscription order:
//
//	store := device.NewStore(device.DefaultState())
//	unsubscribe := store.Subscribe(func(s device.State) {
//	    fmt.Println(s.Temperature, s.Door)
//	})
//	defer unsubscribe()
//
//	p, warnings := device.DecodeStatus(body)
//	store.Merge(p.WithConnected(true))
package device
