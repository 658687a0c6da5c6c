// Package document implements a schema versioned, session locked view of a single store key.
//
// A Document moves through the states CLOSED, OPENING, OPENED and CLOSING. Open acquires a
// session lock (see lockmgr), migrates the stored envelope to the newest schema version and
// caches the data. While open, the cache is read and replaced locally and written back by
// Update, Save, Close and a periodic auto-save. A second goroutine renews the session.
//
// All store writes go through the gateway's conditional update, so concurrent writers never
// lose data silently. Documents created with ConcurrentOptions skip the session lock and may
// be written by several processes at once.
//
// Usage Example:
//
//	doc := document.New("player:123", gw, locks, document.DefaultOptions())
//	if _, err := doc.Open(ctx); err != nil {
//	    return err
//	}
//	defer doc.Close(ctx)
//
//	_, err := doc.Update(ctx, func(data any) (any, error) {
//	    m := data.(map[string]any)
//	    m["level"] = 2
//	    return m, nil
//	})
package document
