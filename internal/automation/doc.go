// Package automation keeps the physical buzzer in step with the software
// alarm.
//
// The software alarm is derived from state: it is active whenever the
// temperature is strictly above the alarm threshold. The device reports its
// buzzer separately, and the two can disagree (the firmware judges against
// its own threshold, or a command has not landed yet). AlarmSync watches the
// store and, on disagreement, sends one SetAlarm correction.
//
// Architecture:
//
//	store.Merge ──▶ evaluate (inside the notification, never blocks)
//	                   │ divergence, connected, not already outstanding
//	                   ▼
//	             corrections (cap 1, newest wins)
//	                   │
//	                   ▼
//	             Run goroutine ──▶ session.SendCommand(SetAlarm{On})
//
// A correction stays outstanding until the state converges or the send
// fails. A failed correction is re-issued by the next poll's evaluation;
// there is no other retry.
//
// Usage:
//
//	sync := automation.NewAlarmSync(sess, log)
//	go sync.Run(ctx)
//	detach := sync.Attach(store)
//	defer detach()
package automation
