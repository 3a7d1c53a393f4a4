package hubevent

import (
	"fmt"

	"github.com/rbaliyan/hubevent/convert"
	"github.com/rbaliyan/hubevent/proxy"
)

// Proxy is the client-side handle the adapters register on. *proxy.Hub
// implements it.
type Proxy interface {
	// Subscribe returns the subscription for name, creating it on first use.
	Subscribe(name string) *proxy.Subscription
	// State returns a state value and whether it is set.
	State(name string) (any, bool)
}

var _ Proxy = (*proxy.Hub)(nil)

// validate checks the arguments shared by every adapter
func validate(p Proxy, name string, nilCallback bool) error {
	if isNilProxy(p) {
		return fmt.Errorf("%w: proxy is nil", ErrInvalidArgument)
	}
	if name == "" {
		return fmt.Errorf("%w: event name is empty", ErrInvalidArgument)
	}
	if nilCallback {
		return fmt.Errorf("%w: callback for %q is nil", ErrInvalidArgument, name)
	}
	return nil
}

// validateMethod is validate for adapters bound to a method. The reserved
// names only dispatch to OnAny and OnMissing.
func validateMethod(p Proxy, name string, nilCallback bool) error {
	if err := validate(p, name, nilCallback); err != nil {
		return err
	}
	if proxy.IsReserved(name) {
		return fmt.Errorf("%w: %q is reserved, use OnAny or OnMissing", ErrInvalidArgument, name)
	}
	return nil
}

func isNilProxy(p Proxy) bool {
	if p == nil {
		return true
	}
	h, ok := p.(*proxy.Hub)
	return ok && h == nil
}

// decoder converts positional arguments left to right, keeping the first
// failure. Once failed, every later conversion yields the zero value.
type decoder struct {
	codec convert.Codec
	args  proxy.Arguments
	err   error
}

func arg[T any](d *decoder, index int) T {
	if d.err != nil {
		var zero T
		return zero
	}
	v, err := convert.At[T](d.codec, d.args, index)
	if err != nil {
		d.err = err
	}
	return v
}

// GetValue reads the state value name from p and converts it to T.
// An unset state value yields the zero value of T.
func GetValue[T any](p Proxy, name string, opts ...Option) (T, error) {
	var zero T
	if isNilProxy(p) {
		return zero, fmt.Errorf("%w: proxy is nil", ErrInvalidArgument)
	}
	if name == "" {
		return zero, fmt.Errorf("%w: state name is empty", ErrInvalidArgument)
	}
	v, ok := p.State(name)
	if !ok {
		return zero, nil
	}
	return convert.To[T](newAdapterConfig(opts...).converter, v)
}
