// Package hubevent registers strongly-typed callbacks on a proxy's named
// event channels.
//
// A proxy delivers server-pushed events as an event name plus an ordered list
// of untyped values. The adapters in this package hide the conversion and
// bookkeeping: each one subscribes to the name, converts positional arguments
// to the callback's parameter types and returns a *proxy.Registration whose
// Close removes exactly that callback.
//
// Basic example:
//
//	hub := proxy.New(proxy.WithName("chat"))
//
//	reg, err := hubevent.On2(hub, "message", func(user string, count int) {
//	    fmt.Printf("%s sent %d messages\n", user, count)
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reg.Close()
//
//	// Delivered by the connection (see package bridge)
//	err = hub.Invoke(ctx, "message", proxy.Arguments{"alice", 3})
//
// Conversion rules:
//   - A missing trailing argument yields the zero value of its parameter.
//   - A value that cannot be converted returns a *convert.ConversionError from
//     the delivery and the callback is not called.
//   - Parameters of type any receive the raw value unchanged.
//
// Adapters:
//   - On, On1 .. On7: typed callbacks with zero to seven parameters
//   - OnAny: every call routed to a bound method, with the method name
//   - OnMissing: every call whose method has no bound handler
//   - Observe: a push sequence of raw arguments, with a channel facade
//   - GetValue: typed read of a proxy state value
//
// Options:
//   - WithConverter: set the structural converter. Default is JSON.
package hubevent
