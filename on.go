package hubevent

import "github.com/rbaliyan/hubevent/proxy"

// On registers fn for the event name. fn is called for every delivery,
// whatever its arguments.
func On(p Proxy, name string, fn func(), opts ...Option) (*proxy.Registration, error) {
	if err := validateMethod(p, name, fn == nil); err != nil {
		return nil, err
	}
	return register(p, name, func(proxy.Arguments) error {
		fn()
		return nil
	}), nil
}

// On1 registers fn for the event name, called with the first argument converted to T1.
// A missing argument yields the zero value; a conversion failure is returned
// from the delivery without calling fn.
func On1[T1 any](p Proxy, name string, fn func(T1), opts ...Option) (*proxy.Registration, error) {
	if err := validateMethod(p, name, fn == nil); err != nil {
		return nil, err
	}
	c := newAdapterConfig(opts...)
	return register(p, name, func(args proxy.Arguments) error {
		d := &decoder{codec: c.converter, args: args}
		a1 := arg[T1](d, 0)
		if d.err != nil {
			return d.err
		}
		fn(a1)
		return nil
	}), nil
}

// On2 registers fn for the event name, called with arguments 0..1 converted to T1..T2.
func On2[T1, T2 any](p Proxy, name string, fn func(T1, T2), opts ...Option) (*proxy.Registration, error) {
	if err := validateMethod(p, name, fn == nil); err != nil {
		return nil, err
	}
	c := newAdapterConfig(opts...)
	return register(p, name, func(args proxy.Arguments) error {
		d := &decoder{codec: c.converter, args: args}
		a1 := arg[T1](d, 0)
		a2 := arg[T2](d, 1)
		if d.err != nil {
			return d.err
		}
		fn(a1, a2)
		return nil
	}), nil
}

// On3 registers fn for the event name, called with arguments 0..2 converted to T1..T3.
func On3[T1, T2, T3 any](p Proxy, name string, fn func(T1, T2, T3), opts ...Option) (*proxy.Registration, error) {
	if err := validateMethod(p, name, fn == nil); err != nil {
		return nil, err
	}
	c := newAdapterConfig(opts...)
	return register(p, name, func(args proxy.Arguments) error {
		d := &decoder{codec: c.converter, args: args}
		a1 := arg[T1](d, 0)
		a2 := arg[T2](d, 1)
		a3 := arg[T3](d, 2)
		if d.err != nil {
			return d.err
		}
		fn(a1, a2, a3)
		return nil
	}), nil
}

// On4 registers fn for the event name, called with arguments 0..3 converted to T1..T4.
func On4[T1, T2, T3, T4 any](p Proxy, name string, fn func(T1, T2, T3, T4), opts ...Option) (*proxy.Registration, error) {
	if err := validateMethod(p, name, fn == nil); err != nil {
		return nil, err
	}
	c := newAdapterConfig(opts...)
	return register(p, name, func(args proxy.Arguments) error {
		d := &decoder{codec: c.converter, args: args}
		a1 := arg[T1](d, 0)
		a2 := arg[T2](d, 1)
		a3 := arg[T3](d, 2)
		a4 := arg[T4](d, 3)
		if d.err != nil {
			return d.err
		}
		fn(a1, a2, a3, a4)
		return nil
	}), nil
}

// On5 registers fn for the event name, called with arguments 0..4 converted to T1..T5.
func On5[T1, T2, T3, T4, T5 any](p Proxy, name string, fn func(T1, T2, T3, T4, T5), opts ...Option) (*proxy.Registration, error) {
	if err := validateMethod(p, name, fn == nil); err != nil {
		return nil, err
	}
	c := newAdapterConfig(opts...)
	return register(p, name, func(args proxy.Arguments) error {
		d := &decoder{codec: c.converter, args: args}
		a1 := arg[T1](d, 0)
		a2 := arg[T2](d, 1)
		a3 := arg[T3](d, 2)
		a4 := arg[T4](d, 3)
		a5 := arg[T5](d, 4)
		if d.err != nil {
			return d.err
		}
		fn(a1, a2, a3, a4, a5)
		return nil
	}), nil
}

// On6 registers fn for the event name, called with arguments 0..5 converted to T1..T6.
func On6[T1, T2, T3, T4, T5, T6 any](p Proxy, name string, fn func(T1, T2, T3, T4, T5, T6), opts ...Option) (*proxy.Registration, error) {
	if err := validateMethod(p, name, fn == nil); err != nil {
		return nil, err
	}
	c := newAdapterConfig(opts...)
	return register(p, name, func(args proxy.Arguments) error {
		d := &decoder{codec: c.converter, args: args}
		a1 := arg[T1](d, 0)
		a2 := arg[T2](d, 1)
		a3 := arg[T3](d, 2)
		a4 := arg[T4](d, 3)
		a5 := arg[T5](d, 4)
		a6 := arg[T6](d, 5)
		if d.err != nil {
			return d.err
		}
		fn(a1, a2, a3, a4, a5, a6)
		return nil
	}), nil
}

// On7 registers fn for the event name, called with arguments 0..6 converted to T1..T7.
func On7[T1, T2, T3, T4, T5, T6, T7 any](p Proxy, name string, fn func(T1, T2, T3, T4, T5, T6, T7), opts ...Option) (*proxy.Registration, error) {
	if err := validateMethod(p, name, fn == nil); err != nil {
		return nil, err
	}
	c := newAdapterConfig(opts...)
	return register(p, name, func(args proxy.Arguments) error {
		d := &decoder{codec: c.converter, args: args}
		a1 := arg[T1](d, 0)
		a2 := arg[T2](d, 1)
		a3 := arg[T3](d, 2)
		a4 := arg[T4](d, 3)
		a5 := arg[T5](d, 4)
		a6 := arg[T6](d, 5)
		a7 := arg[T7](d, 6)
		if d.err != nil {
			return d.err
		}
		fn(a1, a2, a3, a4, a5, a6, a7)
		return nil
	}), nil
}

// register appends h to the arguments-only list of the subscription for name
func register(p Proxy, name string, h proxy.ArgumentsHandler) *proxy.Registration {
	return p.Subscribe(name).OnArguments(h)
}
