package bitvec

import "github.com/hupe1980/bitvec/resource"

type options struct {
	rc *resource.Controller
}

// Option configures vector construction and decoding.
type Option func(*options)

// WithController charges backing buffers against the controller's memory budget.
//
// When the budget cannot cover a new buffer, construction fails with
// ErrOutOfMemory instead of blocking. Release returns the bytes.
func WithController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

func applyOptions(opts []Option) options {
	var o options
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
