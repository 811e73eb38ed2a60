// Package session keeps the panel talking to the device.
//
// A Session holds the device address, polls STATUS on a fixed interval
// while connected, and sends user commands. Every response, poll or
// command, is decoded and merged into the device.Store, so the cached
// state always reflects the last thing the device said.
//
//	s := session.New(session.Options{
//	    Transport:    transport.New(transport.WithTimeout(cfg.RequestTimeout())),
//	    Store:        store,
//	    PollInterval: cfg.PollInterval(),
//	    Logger:       logger.With("component", "session"),
//	})
//	if err := s.Connect("192.168.4.1"); err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	if err := s.SendCommand(ctx, device.SetLamp{On: true}); err != nil {
//	    // state is now Connected=false
//	}
//
// Only one request is in flight at a time. A tick that finds the slot
// busy is skipped rather than queued, so a slow device is never hit with
// a backlog of polls.
package session
