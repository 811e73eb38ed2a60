// Package transport sends single HTTP GET requests to the device.
//
// Every request carries a hard timeout (3 s unless configured) and
// failures are classified into ErrTimeout, ErrTransport and *HTTPError so
// callers can tell a slow device from an absent one. Nothing is retried;
// the poll loop above this package is the retry.
//
//	client := transport.New(transport.WithTimeout(cfg.RequestTimeout()))
//	body, err := client.Request(ctx, "192.168.4.1", "STATUS")
//	var httpErr *transport.HTTPError
//	if errors.As(err, &httpErr) {
//	    log.Printf("device said %d", httpErr.StatusCode)
//	}
package transport
