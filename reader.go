package h5features

import (
	"context"
	"errors"
	"io"
	"iter"
	"slices"
	"time"

	"github.com/bootphon/h5features-sub000/arraystore"
	"github.com/bootphon/h5features-sub000/data"
	"github.com/bootphon/h5features-sub000/internal/engine"
	"github.com/bootphon/h5features-sub000/internal/h5err"
)

// Info summarizes a group: schema, item and row counts, and per-column
// storage.
type Info = engine.Info

// ColumnInfo summarizes the storage of one column.
type ColumnInfo = engine.ColumnInfo

// Reader reads items of one group. The group state is loaded once by Open;
// writes committed afterwards are not visible. A Reader is not safe for
// concurrent use.
type Reader struct {
	loc    Location
	opts   options
	logger *Logger

	c      *arraystore.Container
	closer io.Closer
	g      *arraystore.Group
	res    *engine.Resolver
	closed bool
}

// Open opens group of the container at loc for reading. An empty group name
// selects the only group of the container.
func Open(ctx context.Context, loc Location, group string, opts ...Option) (*Reader, error) {
	o := buildOptions(opts)
	if o.err != nil {
		return nil, o.err
	}
	c, closer, err := openContainer(ctx, loc, o)
	if err != nil {
		return nil, err
	}
	r, err := openReader(ctx, c, group)
	if err != nil {
		_ = c.Close()
		closeQuietly(closer)
		return nil, translateError(err)
	}
	r.loc, r.opts, r.closer = loc, o, closer
	r.logger = o.logger.WithLocation(loc.String()).WithGroup(r.g.Name())
	return r, nil
}

func openContainer(ctx context.Context, loc Location, o options) (*arraystore.Container, io.Closer, error) {
	store, closer, err := loc.store(ctx, false)
	if err != nil {
		return nil, nil, translateError(err)
	}
	c, err := arraystore.Open(ctx, store, arraystore.ModeRead, o.containerOptions()...)
	if err != nil {
		closeQuietly(closer)
		return nil, nil, translateError(err)
	}
	return c, closer, nil
}

func openReader(ctx context.Context, c *arraystore.Container, group string) (*Reader, error) {
	const op = "h5features.Open"
	if group == "" {
		groups, err := c.ListGroups(ctx)
		if err != nil {
			return nil, err
		}
		switch len(groups) {
		case 0:
			return nil, h5err.NotFound(op, "container holds no group")
		case 1:
			group = groups[0]
		default:
			return nil, h5err.Invalid(op, "container holds %d groups %q, name one", len(groups), groups)
		}
	}
	if err := arraystore.ValidGroupName(group); err != nil {
		return nil, h5err.Wrap(err, h5err.KindInvalidArgument, op, "group %q", group)
	}
	g, err := c.Group(ctx, group)
	if errors.Is(err, arraystore.ErrGroupNotFound) {
		return nil, h5err.Wrap(err, h5err.KindNotFound, op, "group %q", group)
	}
	if err != nil {
		return nil, err
	}
	res, err := engine.NewResolver(ctx, g)
	if err != nil {
		return nil, err
	}
	return &Reader{c: c, g: g, res: res}, nil
}

// Group returns the name of the group read.
func (r *Reader) Group() string { return r.g.Name() }

// Items returns the item names in storage order.
func (r *Reader) Items() []string { return slices.Clone(r.res.State().Items) }

// Info describes the group.
func (r *Reader) Info() Info { return r.res.Describe() }

// Read returns the item name, optionally restricted to a time window.
func (r *Reader) Read(ctx context.Context, name string, opts ...ReadOption) (data.Item, error) {
	const op = "h5features.Read"
	if name == "" {
		return data.Item{}, h5err.Invalid(op, "empty item name")
	}
	items, err := r.read(ctx, name, name, opts)
	if err != nil {
		return data.Item{}, err
	}
	return items[0], nil
}

// ReadRange returns the items fromItem to toItem in storage order. The
// From option applies to fromItem and To to toItem. An empty toItem reads
// fromItem alone.
func (r *Reader) ReadRange(ctx context.Context, fromItem, toItem string, opts ...ReadOption) ([]data.Item, error) {
	return r.read(ctx, fromItem, toItem, opts)
}

// ReadAll returns every item of the group.
func (r *Reader) ReadAll(ctx context.Context, opts ...ReadOption) ([]data.Item, error) {
	return r.read(ctx, "", "", opts)
}

// All iterates over the whole items in storage order, loading one at a
// time. Only IgnoreProperties applies; a From or To window yields a single
// InvalidArgument error. Iteration stops after the first error.
func (r *Reader) All(ctx context.Context, opts ...ReadOption) iter.Seq2[data.Item, error] {
	o := buildReadOptions(opts)
	return func(yield func(data.Item, error) bool) {
		if o.from != nil || o.to != nil {
			yield(data.Item{}, h5err.Invalid("h5features.All", "time windows apply to ReadRange, not to All"))
			return
		}
		for _, name := range r.res.State().Items {
			items, err := r.read(ctx, name, name, []ReadOption{func(ro *readOptions) {
				ro.ignoreProperties = o.ignoreProperties
			}})
			if err != nil {
				yield(data.Item{}, err)
				return
			}
			if !yield(items[0], nil) {
				return
			}
		}
	}
}

func (r *Reader) read(ctx context.Context, fromItem, toItem string, opts []ReadOption) ([]data.Item, error) {
	if r.closed {
		return nil, ErrClosed
	}
	o := buildReadOptions(opts)
	start := time.Now()
	items, rows, err := r.load(ctx, fromItem, toItem, o)
	err = translateError(err)
	r.opts.metricsCollector.RecordRead(rows, time.Since(start), err)
	r.logger.LogRead(ctx, fromItem, toItem, rows, err)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *Reader) load(ctx context.Context, fromItem, toItem string, o readOptions) ([]data.Item, int64, error) {
	spans, err := r.res.Resolve(ctx, fromItem, toItem, o.from, o.to)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.res.Load(ctx, spans, o.ignoreProperties)
	if err != nil {
		return nil, 0, err
	}
	var rows int64
	for _, sp := range spans {
		rows += sp.Rows()
	}
	return items, rows, nil
}

// Close releases the container. It is safe to call Close more than once.
func (r *Reader) Close() error {
	if r == nil || r.closed {
		return nil
	}
	r.closed = true
	var firstErr error
	if err := r.c.Close(); err != nil {
		firstErr = err
	}
	if r.closer != nil {
		if err := r.closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
