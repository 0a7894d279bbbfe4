// Package server implements the session command server: a loopback TCP
// listener that serves one client connection at a time.
//
// # Lifecycle
//
// Start binds the listener and runs the accept loop on its own goroutine.
// StartWhenReady defers that until the host signals it has finished
// initialising. Stop closes the active connection and the listener and is
// safe to call any number of times, including before Start.
//
// # Connections
//
// The accept loop does not accept a second client until the current one
// disconnects, so a waiting client sits in the kernel's accept queue and gets
// no response until then. Within a connection, frames are read, decoded,
// dispatched, encoded and written strictly one at a time. Every frame gets
// exactly one response; only transport errors (or an oversized frame, after
// which the stream cannot be resynchronised) end the connection.
//
// Usage
//
//	loop := host.New(song, 0)
//	loop.Start(ctx)
//	srv, err := server.New(server.Options{Host: "127.0.0.1", Port: 9877}, dispatch.New(loop))
//	if err != nil {
//	    return err
//	}
//	errc := srv.StartWhenReady(ctx, loop.Ready())
//	loop.MarkReady()
//	if err := <-errc; err != nil {
//	    return err
//	}
//	defer srv.Stop()
package server
