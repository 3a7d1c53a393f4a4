package hubevent

import "github.com/rbaliyan/hubevent/convert"

// adapterConfig holds configuration shared by the adapters (unexported)
type adapterConfig struct {
	converter convert.Codec
}

// Option adapter options
type Option func(*adapterConfig)

// WithConverter sets the codec used for structural conversion of arguments.
// Default is convert.JSON.
func WithConverter(c convert.Codec) Option {
	return func(o *adapterConfig) {
		if c != nil {
			o.converter = c
		}
	}
}

func newAdapterConfig(opts ...Option) *adapterConfig {
	o := &adapterConfig{
		converter: convert.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
