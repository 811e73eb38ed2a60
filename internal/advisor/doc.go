// Package advisor turns the current device state and recent activity into a
// single human-readable safety assessment.
//
// Advise is a pure function with a strict priority order: an active alarm
// beats an open door, which beats frequent door movement, which beats a
// recent door event. With none of those the system is reported secure.
package advisor
