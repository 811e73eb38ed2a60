// Package activity records door transitions as an append-only activity log.
//
// The Log subscribes to the device state store and keeps the door status it
// saw last. Each OPEN/CLOSED change produces exactly one Entry, prepended to
// an in-memory slice and handed to an optional Repository for persistence.
//
// Persistence runs on its own goroutine (Run) so a slow or failing database
// never delays a store notification. Failures are logged and the in-memory
// log carries on.
//
// Usage:
//
//	log := activity.NewLog(activity.Options{
//	    Repository: activity.NewSQLiteRepository(db.DB, cfg.Node.ID),
//	    Logger:     logger,
//	})
//	if err := log.Load(ctx); err != nil {
//	    return err
//	}
//	go log.Run(ctx)
//	unsubscribe := log.Attach(store)
//	defer unsubscribe()
package activity
