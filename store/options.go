package store

import "github.com/hupe1980/bitvec/resource"

// Format selects the on-blob encoding.
type Format int

const (
	// FormatFramed wraps the raw encoding in a checksummed container that
	// records the writer's byte order.
	FormatFramed Format = iota
	// FormatRaw stores the bare 8-byte-header encoding.
	FormatRaw
)

func (f Format) String() string {
	switch f {
	case FormatFramed:
		return "framed"
	case FormatRaw:
		return "raw"
	default:
		return "unknown"
	}
}

type options struct {
	logger      *Logger
	metrics     MetricsCollector
	rc          *resource.Controller
	format      Format
	concurrency int
}

// Option configures a Store.
type Option func(*options)

// WithLogger sets the logger. Defaults to NoopLogger.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetricsCollector sets the metrics collector.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metrics = mc
	}
}

// WithController sets the resource controller. Loaded vectors are charged
// against its memory budget and blob IO waits on its rate limiter.
func WithController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithFormat sets the encoding used by Save and expected by Load.
func WithFormat(f Format) Option {
	return func(o *options) {
		o.format = f
	}
}

// WithConcurrency bounds the goroutines used by SaveBatch and LoadBatch.
// Values below 1 fall back to the controller's worker count.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

func applyOptions(opts []Option) options {
	o := options{
		format: FormatFramed,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.metrics == nil {
		o.metrics = NoopMetricsCollector{}
	}
	if o.concurrency < 1 {
		o.concurrency = int(o.rc.Config().MaxWorkers)
	}
	return o
}
