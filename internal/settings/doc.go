// Package settings persists the user's alarm threshold and applies changes
// to it.
//
// The software threshold is authoritative. Thresholds.Set validates the
// value, merges it into the device store, stores it in SQLite and, when
// configured and connected, pushes it to the firmware with SET_THRESHOLD so
// the physical alarm agrees with the panel. The device's own reported
// threshold is never read back into the software value.
package settings
