package h5features

import (
	"strings"

	"github.com/bootphon/h5features-sub000/arraystore"
	"github.com/bootphon/h5features-sub000/codec"
	"github.com/bootphon/h5features-sub000/format"
	"github.com/bootphon/h5features-sub000/internal/compress"
	"github.com/bootphon/h5features-sub000/internal/h5err"
	"github.com/bootphon/h5features-sub000/internal/resource"
)

type options struct {
	version          format.Version
	compression      compress.Algorithm
	codec            codec.Codec
	chunkRows        int
	overwrite        bool
	logger           *Logger
	metricsCollector MetricsCollector
	ioLimit          int64
	maxConcurrentIO  int64
	cacheBytes       int64
	err              error
}

// Option configures NewWriter and Open. Options that only make sense for
// writing are ignored by Open.
type Option func(*options)

func buildOptions(opts []Option) options {
	o := options{
		codec:            codec.Default,
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		cacheBytes:       arraystore.DefaultCacheBytes,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func (o options) containerOptions() []arraystore.Option {
	rc := resource.NewController(resource.Config{
		MaxConcurrentIO:    o.maxConcurrentIO,
		IOLimitBytesPerSec: o.ioLimit,
	})
	return []arraystore.Option{
		arraystore.WithResourceController(rc),
		arraystore.WithCacheSize(o.cacheBytes),
	}
}

// WithOverwrite makes the first write of a Writer replace the group's
// content instead of appending to it. The group keeps its format version.
func WithOverwrite() Option {
	return func(o *options) {
		o.overwrite = true
	}
}

// WithCompression selects the chunk codec of new groups by name: "none",
// "lz4", "zstd", "snappy" or "s2".
func WithCompression(name string) Option {
	return func(o *options) {
		a, err := compress.Parse(name)
		if err != nil {
			o.err = h5err.Wrap(err, h5err.KindInvalidArgument, "h5features.WithCompression", "%q", name)
			return
		}
		o.compression = a
	}
}

// WithVersion selects the format version. New groups are created with it and
// existing groups must match it. By default existing groups keep their
// version and new ones use format.Default.
func WithVersion(tag string) Option {
	return func(o *options) {
		if strings.TrimSpace(tag) == "" {
			o.version = ""
			return
		}
		v, err := format.Parse(tag)
		if err != nil {
			o.err = err
			return
		}
		o.version = v
	}
}

// WithChunkRows sets the number of feature rows per chunk of new groups.
// Zero sizes chunks to about one MiB.
func WithChunkRows(n int) Option {
	return func(o *options) {
		if n < 0 {
			o.err = h5err.Invalid("h5features.WithChunkRows", "negative chunk rows %d", n)
			return
		}
		o.chunkRows = n
	}
}

// WithCodec configures the codec of the properties blob of new groups.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := h5features.NewJSONLogger(slog.LevelInfo)
//	w, _ := h5features.NewWriter(ctx, h5features.Local("./feats"), "mfcc", h5features.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &h5features.BasicMetricsCollector{}
//	w, _ := h5features.NewWriter(ctx, loc, "mfcc", h5features.WithMetricsCollector(metrics))
//	// ... write ...
//	stats := metrics.GetStats()
//	fmt.Printf("Writes: %d, rows: %d\n", stats.WriteCount, stats.WriteRows)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithIOLimit throttles chunk reads and writes to bytesPerSec. Zero disables
// throttling.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.ioLimit = max(bytesPerSec, 0)
	}
}

// WithMaxConcurrentIO bounds the number of chunks fetched or stored in
// parallel.
func WithMaxConcurrentIO(n int64) Option {
	return func(o *options) {
		o.maxConcurrentIO = n
	}
}

// WithCacheSize sizes the decoded chunk cache. Zero disables caching.
func WithCacheSize(bytes int64) Option {
	return func(o *options) {
		o.cacheBytes = max(bytes, 0)
	}
}

type readOptions struct {
	from, to         *float64
	ignoreProperties bool
}

// ReadOption restricts a read.
type ReadOption func(*readOptions)

// From keeps the rows of the first item whose time is at least t. For
// interval times the start of the interval is compared.
func From(t float64) ReadOption {
	return func(o *readOptions) { o.from = &t }
}

// To keeps the rows of the last item whose time is at most t. For interval
// times the end of the interval is compared.
func To(t float64) ReadOption {
	return func(o *readOptions) { o.to = &t }
}

// Between is From(from) and To(to).
func Between(from, to float64) ReadOption {
	return func(o *readOptions) { o.from, o.to = &from, &to }
}

// IgnoreProperties skips loading item properties.
func IgnoreProperties() ReadOption {
	return func(o *readOptions) { o.ignoreProperties = true }
}

func buildReadOptions(opts []ReadOption) readOptions {
	var o readOptions
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
