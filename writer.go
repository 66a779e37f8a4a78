package h5features

import (
	"context"
	"io"
	"time"

	"github.com/bootphon/h5features-sub000/arraystore"
	"github.com/bootphon/h5features-sub000/data"
	"github.com/bootphon/h5features-sub000/internal/engine"
)

// Writer appends items to one group of a container. A Writer is not safe for
// concurrent use and there must be at most one Writer per group.
type Writer struct {
	loc    Location
	group  string
	opts   options
	logger *Logger

	c      *arraystore.Container
	closer io.Closer
	app    *engine.Appender
	closed bool
}

// NewWriter opens group of the container at loc for writing. The container
// and the group are created by the first write if they do not exist.
func NewWriter(ctx context.Context, loc Location, group string, opts ...Option) (*Writer, error) {
	o := buildOptions(opts)
	if o.err != nil {
		return nil, o.err
	}
	store, closer, err := loc.store(ctx, true)
	if err != nil {
		return nil, translateError(err)
	}
	c, err := arraystore.Open(ctx, store, arraystore.ModeWriteAppend, o.containerOptions()...)
	if err != nil {
		closeQuietly(closer)
		return nil, translateError(err)
	}
	logger := o.logger.WithLocation(loc.String()).WithGroup(group)
	app, err := engine.NewAppender(ctx, c, group, engine.Options{
		Version:     o.version,
		Compression: o.compression,
		Codec:       o.codec,
		ChunkRows:   o.chunkRows,
		Overwrite:   o.overwrite,
		Logger:      logger.Logger,
	})
	if err != nil {
		_ = c.Close()
		closeQuietly(closer)
		return nil, translateError(err)
	}
	return &Writer{
		loc:    loc,
		group:  group,
		opts:   o,
		logger: logger,
		c:      c,
		closer: closer,
		app:    app,
	}, nil
}

// Group returns the name of the group written to.
func (w *Writer) Group() string { return w.group }

// Write appends one item.
func (w *Writer) Write(ctx context.Context, item data.Item) error {
	return w.WriteBatch(ctx, data.BatchOf(item))
}

// WriteBatch validates b and appends its items in one atomic commit. If the
// first item of b is named like the last stored item it continues it. On
// error the group is left unchanged.
func (w *Writer) WriteBatch(ctx context.Context, b data.Batch) error {
	if w.closed {
		return ErrClosed
	}
	start := time.Now()
	res, err := w.app.Append(ctx, b)
	err = translateError(err)

	var rows int64
	for _, n := range b.RowCounts() {
		rows += int64(n)
	}
	w.opts.metricsCollector.RecordWrite(b.Len(), rows, time.Since(start), err)
	w.logger.LogWrite(ctx, b.Len(), rows, err)
	if err != nil {
		return err
	}
	w.opts.metricsCollector.RecordCommit(res.Generation, res.Continued)
	w.logger.LogCommit(ctx, res.Generation, res.Continued)
	return nil
}

// Close releases the container. It is safe to call Close more than once.
func (w *Writer) Close() error {
	if w == nil || w.closed {
		return nil
	}
	w.closed = true
	var firstErr error
	if err := w.c.Close(); err != nil {
		firstErr = err
	}
	if w.closer != nil {
		if err := w.closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
