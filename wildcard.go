package hubevent

import "github.com/rbaliyan/hubevent/proxy"

// OnAny registers fn for every call routed to a bound method. fn receives the
// raw arguments and the name of the method that was invoked.
func OnAny(p Proxy, fn func(args proxy.Arguments, method string)) (*proxy.Registration, error) {
	return registerInvocation(p, proxy.AnyEvent, fn)
}

// OnMissing registers fn for every call whose method has no bound handler.
// For a single call at most one of OnAny and OnMissing fires.
func OnMissing(p Proxy, fn func(args proxy.Arguments, method string)) (*proxy.Registration, error) {
	return registerInvocation(p, proxy.MissingEvent, fn)
}

func registerInvocation(p Proxy, name string, fn func(proxy.Arguments, string)) (*proxy.Registration, error) {
	if err := validate(p, name, fn == nil); err != nil {
		return nil, err
	}
	return p.Subscribe(name).OnInvocation(func(args proxy.Arguments, method string) error {
		fn(args, method)
		return nil
	}), nil
}
